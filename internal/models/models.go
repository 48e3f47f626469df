package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountTypes is the list of available account types
var AccountTypes = []string{
	"CHECKING",
	"SAVINGS",
	"CREDIT_CARD",
	"MORTGAGE",
	"PAYDAY_LOAN",
	"OTHER",
}

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type Account struct {
	ID          int64
	UserID      int64
	Name        string
	Institution string
	AccountType string // one of AccountTypes
	Active      bool
	CreatedAt   time.Time
}

// TransactionType is the closed set of transaction kinds. It is a tagged
// variant rather than a free string so sign inference and the CSV override
// can be handled exhaustively.
type TransactionType int

const (
	TypeUnknown TransactionType = iota
	TypeIncome
	TypeExpense
)

func (t TransactionType) String() string {
	switch t {
	case TypeIncome:
		return "INCOME"
	case TypeExpense:
		return "EXPENSE"
	default:
		return "UNKNOWN"
	}
}

// ParseTransactionType maps the wire/CSV value to a TransactionType.
// Blank or unrecognized values map to TypeUnknown, which means "infer from
// the amount sign".
func ParseTransactionType(s string) TransactionType {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INCOME":
		return TypeIncome
	case "EXPENSE":
		return TypeExpense
	default:
		return TypeUnknown
	}
}

// TypeFromAmount infers Income/Expense from the sign of a parsed amount.
func TypeFromAmount(amount decimal.Decimal) TransactionType {
	if amount.IsPositive() {
		return TypeIncome
	}
	return TypeExpense
}

// Transaction is a persisted, committed transaction row. Amount is always
// non-negative; the direction lives in Type.
type Transaction struct {
	ID          int64
	UserID      int64
	AccountID   int64
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Category    string
	Type        TransactionType
	CreatedAt   time.Time
}

// ReviewState tracks what the user has decided about a staged candidate.
type ReviewState int

const (
	ReviewPending ReviewState = iota
	ReviewEdited
	ReviewAccepted
	ReviewRejected
)

func (s ReviewState) String() string {
	switch s {
	case ReviewEdited:
		return "edited"
	case ReviewAccepted:
		return "accepted"
	case ReviewRejected:
		return "rejected"
	default:
		return "pending"
	}
}

// Candidate is one parsed transaction awaiting review. Amount keeps the
// sign as parsed; the absolute value is what gets persisted.
type Candidate struct {
	Date         time.Time
	HasDate      bool
	YearInferred bool // date came from a short form without a year
	Description  string
	Amount       decimal.Decimal
	Category     string
	Type         TransactionType

	// Source line identity
	Page      int
	LineIndex int

	Fingerprint string

	// DuplicateOf is the persisted transaction this candidate duplicates,
	// if any. DuplicateInBatch marks a repeat of an earlier row in the same
	// upload (no persisted id to point at).
	DuplicateOf      *int64
	DuplicateInBatch bool

	ReviewState ReviewState
	Diagnostic  string // review-screen note for rows kept but flagged
}

// IsDuplicate reports whether either duplicate check flagged the candidate.
func (c Candidate) IsDuplicate() bool {
	return c.DuplicateOf != nil || c.DuplicateInBatch
}

// BatchStatus is the lifecycle state of a staged import batch.
type BatchStatus int

const (
	BatchPending BatchStatus = iota
	BatchCommitted
	BatchDiscarded
)

func (s BatchStatus) String() string {
	switch s {
	case BatchCommitted:
		return "committed"
	case BatchDiscarded:
		return "discarded"
	default:
		return "pending"
	}
}

// SourceType distinguishes PDF and CSV uploads in the audit log.
type SourceType string

const (
	SourcePDF SourceType = "PDF"
	SourceCSV SourceType = "CSV"
)

// ImportBatch is one statement upload's staged candidates. A batch belongs
// to exactly one user and is never shared across sessions.
type ImportBatch struct {
	ID                uuid.UUID
	UserID            int64
	AccountID         int64
	SourceType        SourceType
	Filename          string
	StoredFile        string // filename in the filestore
	FileHash          string
	UploadedAt        time.Time
	StatementHint     *time.Time
	OverrideDuplicate bool
	Candidates        []Candidate
	Warnings          []string
	Status            BatchStatus
}

// DuplicateCount returns how many candidates carry a duplicate marker.
func (b *ImportBatch) DuplicateCount() int {
	n := 0
	for _, c := range b.Candidates {
		if c.IsDuplicate() {
			n++
		}
	}
	return n
}

// Audit statuses for StatementImport rows.
const (
	ImportStatusImported         = "IMPORTED"
	ImportStatusBlockedDuplicate = "BLOCKED_DUPLICATE"
)

// StatementImport is the persisted audit record: one row per committed
// import and one per upload blocked as a duplicate statement.
type StatementImport struct {
	ID                   int64
	UserID               int64
	AccountID            int64
	SourceType           SourceType
	Status               string // IMPORTED or BLOCKED_DUPLICATE
	Filename             string
	FileHash             string
	StatementDate        *time.Time
	RowsDetected         int
	RowsImported         int
	RowsSkippedDuplicate int
	RowsRejected         int
	Notes                string
	CreatedAt            time.Time
}

// CommitResult is returned by the commit action.
type CommitResult struct {
	Committed        int `json:"committed"`
	SkippedDuplicate int `json:"skipped_duplicate"`
	Rejected         int `json:"rejected"`
}
