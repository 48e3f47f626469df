// Package parser turns extracted statement lines into candidate
// transactions. Lines that do not look like transactions (headers,
// footers, balance summaries) are dropped without comment; lines that
// look like transactions but carry an unusable amount are dropped with
// a diagnostic so the review screen can show what was skipped.
package parser

import (
	"fmt"
	"strings"
	"time"

	"personalfinance/internal/extractor"
	"personalfinance/internal/models"
)

// Options control one parse run over a single uploaded statement.
type Options struct {
	// Hint is the statement date, usually recovered from the uploaded
	// filename. When set it drives year inference for short dates.
	Hint *time.Time

	// Now anchors "future date" decisions. Zero means time.Now().
	Now time.Time

	// AccountName is the account the upload targets. CSV rows naming a
	// different account are kept but flagged.
	AccountName string
}

// Result is the outcome of parsing one document.
type Result struct {
	Candidates []models.Candidate

	// Diagnostics describe lines that looked like transactions but were
	// dropped. Shown on the review screen, never fatal.
	Diagnostics []string
}

// Parser converts raw statement lines into transaction candidates.
type Parser struct {
	futureFraction float64
}

// New returns a Parser. futureFraction is the share of inferred dates
// that must land in the future before the whole batch is assumed to be
// mis-dated by one year.
func New(futureFraction float64) *Parser {
	return &Parser{futureFraction: futureFraction}
}

// Parse walks the document's lines in order and emits zero or one
// candidate per line. Candidate order follows document order.
func (p *Parser) Parse(doc *extractor.Document, opts Options) *Result {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	res := &Result{}
	for _, line := range doc.Lines {
		var (
			cand *models.Candidate
			diag string
		)
		if len(line.Fields) > 0 {
			cand, diag = p.parseCSVRow(line, opts, now)
		} else {
			cand, diag = p.parseTextLine(line, opts, now)
		}
		if diag != "" {
			res.Diagnostics = append(res.Diagnostics, diag)
		}
		if cand != nil {
			res.Candidates = append(res.Candidates, *cand)
		}
	}

	p.correctFutureYears(res.Candidates, opts, now)
	return res
}

// parseCSVRow handles a pre-split row following the fixed header
// date,title,amount,category,transaction_type,account.
func (p *Parser) parseCSVRow(line extractor.RawLine, opts Options, now time.Time) (*models.Candidate, string) {
	date := strings.TrimSpace(line.Fields[0])
	title := strings.TrimSpace(line.Fields[1])
	rawAmount := strings.TrimSpace(line.Fields[2])
	category := strings.TrimSpace(line.Fields[3])
	rawType := strings.TrimSpace(line.Fields[4])
	account := strings.TrimSpace(line.Fields[5])

	if title == "" && rawAmount == "" {
		return nil, ""
	}

	amount, ok := parseAmount(rawAmount)
	if !ok {
		return nil, fmt.Sprintf("row %d: amount %q is not a number, row skipped", line.Index+1, rawAmount)
	}
	if amount.IsZero() {
		return nil, fmt.Sprintf("row %d: zero amount, row skipped", line.Index+1)
	}

	cand := &models.Candidate{
		Description: title,
		Amount:      amount,
		Category:    category,
		Page:        line.Page,
		LineIndex:   line.Index,
		ReviewState: models.ReviewPending,
	}

	// One row can be off in several ways; keep every message.
	var diags []string

	if d, inferred, ok := parseDate(date, opts.Hint, now); ok {
		cand.Date = d
		cand.HasDate = true
		cand.YearInferred = inferred
	} else if date != "" {
		diags = append(diags, fmt.Sprintf("unrecognized date %q", date))
	}

	// The CSV type column is authoritative when present; otherwise the
	// amount's sign decides.
	if t := models.ParseTransactionType(rawType); t != models.TypeUnknown {
		cand.Type = t
	} else {
		cand.Type = models.TypeFromAmount(amount)
		if rawType != "" {
			diags = append(diags, fmt.Sprintf("unknown transaction type %q, inferred from sign", rawType))
		}
	}

	if cand.Category == "" {
		cand.Category = guessCategory(cand.Description)
	}

	if account != "" && opts.AccountName != "" && !strings.EqualFold(account, opts.AccountName) {
		diags = append(diags, fmt.Sprintf("row names account %q, importing into %q", account, opts.AccountName))
	}

	cand.Diagnostic = strings.Join(diags, "; ")
	return cand, ""
}

// parseTextLine handles a free-text statement line. The expected shape
// is a leading date token, a description, and one or two trailing
// numeric columns (amount, optionally followed by a running balance).
func (p *Parser) parseTextLine(line extractor.RawLine, opts Options, now time.Time) (*models.Candidate, string) {
	tokens := strings.Fields(line.Text)
	if len(tokens) < 3 {
		return nil, ""
	}

	date, inferred, ok := parseDate(tokens[0], opts.Hint, now)
	if !ok {
		return nil, ""
	}

	// Trailing numeric columns. When both of the last two tokens parse
	// as amounts the statement has a balance column, and the amount is
	// the second to last.
	amountIdx := len(tokens) - 1
	amount, ok := parseAmountToken(tokens[amountIdx])
	if !ok {
		return nil, ""
	}
	if len(tokens) >= 4 {
		if prev, prevOK := parseAmountToken(tokens[amountIdx-1]); prevOK {
			amountIdx--
			amount = prev
		}
	}

	desc := strings.Join(tokens[1:amountIdx], " ")
	if desc == "" {
		return nil, ""
	}
	if amount.IsZero() {
		return nil, fmt.Sprintf("line %d (page %d): zero amount for %q, line skipped", line.Index+1, line.Page, desc)
	}

	return &models.Candidate{
		Date:         date,
		HasDate:      true,
		YearInferred: inferred,
		Description:  desc,
		Amount:       amount,
		Category:     guessCategory(desc),
		Type:         models.TypeFromAmount(amount),
		Page:         line.Page,
		LineIndex:    line.Index,
		ReviewState:  models.ReviewPending,
	}, ""
}

// correctFutureYears applies the batch-level year fix: with no
// statement hint, short dates default to the current year, which
// mis-dates statements that span a year boundary. If enough of the
// inferred dates land in the future, the whole inferred set is shifted
// back one year.
func (p *Parser) correctFutureYears(cands []models.Candidate, opts Options, now time.Time) {
	if opts.Hint != nil {
		return
	}

	// Only inferred dates count toward the fraction: explicit years are
	// trusted, and letting them dilute the ratio would mask a mis-dated
	// short-form tail.
	inferred, future := 0, 0
	for i := range cands {
		if !cands[i].HasDate || !cands[i].YearInferred {
			continue
		}
		inferred++
		if cands[i].Date.After(now) {
			future++
		}
	}
	if inferred == 0 || float64(future)/float64(inferred) <= p.futureFraction {
		return
	}

	for i := range cands {
		if cands[i].HasDate && cands[i].YearInferred {
			cands[i].Date = shiftYearBack(cands[i].Date)
		}
	}
}

// shiftYearBack moves a date one year earlier, pinning Feb 29 to Feb 28.
func shiftYearBack(d time.Time) time.Time {
	day := d.Day()
	if d.Month() == time.February && day == 29 {
		day = 28
	}
	return time.Date(d.Year()-1, d.Month(), day, 0, 0, 0, 0, d.Location())
}
