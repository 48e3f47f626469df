// Package dedup detects duplicate statements and duplicate transaction
// rows. Both checks are advisory: duplicates are marked for the review
// screen, never silently discarded.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"personalfinance/internal/models"
)

// FileHash returns the content hash of an uploaded statement's raw
// bytes. Byte-identical uploads always hash the same.
func FileHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// NormalizeDescription reduces a description to the form used for
// fingerprinting and row comparison: trimmed, lowercased, inner runs
// of whitespace collapsed.
func NormalizeDescription(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// RowFingerprint hashes a candidate's identifying fields. Deterministic
// over (account, date, normalized description, two-decimal amount), so
// reordering rows never changes a fingerprint.
func RowFingerprint(accountID int64, date time.Time, description string, amount decimal.Decimal) string {
	var day string
	if !date.IsZero() {
		day = date.Format("2006-01-02")
	}
	payload := fmt.Sprintf("%d|%s|%s|%s", accountID, day, NormalizeDescription(description), amount.Abs().StringFixed(2))
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// TransactionFinder is the storage lookup row-level dedup needs. It
// returns committed transactions for one account near a date.
type TransactionFinder interface {
	FindTransactionsNearDate(accountID int64, date time.Time, windowDays int) ([]models.Transaction, error)
}

// Engine marks duplicate candidates within a batch and against stored
// transactions.
type Engine struct {
	finder     TransactionFinder
	windowDays int
}

// NewEngine returns an Engine comparing candidates against stored rows
// within windowDays of the candidate's date. The window absorbs
// year-inference drift while keeping lookups cheap.
func NewEngine(finder TransactionFinder, windowDays int) *Engine {
	return &Engine{finder: finder, windowDays: windowDays}
}

// Mark computes every candidate's fingerprint, then flags duplicates:
// rows repeated within the upload itself, and rows matching an already
// stored transaction near the same date. Flagged candidates default to
// Rejected so they are excluded from commit unless the user overrides.
func (e *Engine) Mark(accountID int64, cands []models.Candidate) error {
	seen := make(map[string]int, len(cands))

	for i := range cands {
		c := &cands[i]
		c.Fingerprint = RowFingerprint(accountID, candidateDate(c), c.Description, c.Amount)

		if _, dup := seen[c.Fingerprint]; dup {
			c.DuplicateInBatch = true
			c.ReviewState = models.ReviewRejected
		} else {
			seen[c.Fingerprint] = i
		}

		if !c.HasDate {
			continue
		}
		existing, err := e.finder.FindTransactionsNearDate(accountID, c.Date, e.windowDays)
		if err != nil {
			return fmt.Errorf("look up nearby transactions: %w", err)
		}
		if match := matchExisting(c, existing); match != nil {
			id := match.ID
			c.DuplicateOf = &id
			c.ReviewState = models.ReviewRejected
		}
	}
	return nil
}

// matchExisting finds a stored transaction with the same normalized
// description and absolute amount. Dates already agree to within the
// window by construction of the lookup.
func matchExisting(c *models.Candidate, existing []models.Transaction) *models.Transaction {
	desc := NormalizeDescription(c.Description)
	amount := c.Amount.Abs()
	for i := range existing {
		t := &existing[i]
		if NormalizeDescription(t.Description) == desc && t.Amount.Equal(amount) {
			return t
		}
	}
	return nil
}

func candidateDate(c *models.Candidate) time.Time {
	if c.HasDate {
		return c.Date
	}
	return time.Time{}
}
