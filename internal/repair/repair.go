// Package repair fixes the known year-inference failure mode: short
// statement dates guessed into the wrong year leave committed
// transactions dated in the future. The repair is operator-invoked,
// never automatic.
package repair

import (
	"fmt"
	"time"

	"personalfinance/internal/models"
)

// Storage is what the repair scan needs from the database.
type Storage interface {
	ListFutureTransactions(userID, accountID int64, threshold time.Time) ([]models.Transaction, error)
	UpdateTransactionDate(id int64, date time.Time) error
}

// Change is one proposed or applied date correction.
type Change struct {
	TransactionID int64     `json:"transaction_id"`
	Description   string    `json:"description"`
	OldDate       time.Time `json:"old_date"`
	NewDate       time.Time `json:"new_date"`
}

// Result reports what a repair run found. In dry-run mode Changes are
// proposals; in apply mode they are the corrections that succeeded and
// Failures lists the rows that could not be updated.
type Result struct {
	Changes  []Change `json:"changes"`
	Failures []string `json:"failures,omitempty"`
	Applied  bool     `json:"applied"`
}

// Options scope one repair run. AccountID zero means all of the user's
// accounts. DaysAhead is the grace window: transactions dated further
// ahead than that are considered mis-dated.
type Options struct {
	UserID    int64
	AccountID int64
	DaysAhead int
	Apply     bool
	Now       time.Time // zero means time.Now()
}

// Run scans for suspiciously future-dated transactions and shifts each
// one back a year, in dry-run or apply mode. A row whose corrected
// date would still be in the future is left alone; something other
// than year inference put it there. Re-running after a successful
// apply finds nothing.
func Run(st Storage, opts Options) (*Result, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	threshold := now.AddDate(0, 0, opts.DaysAhead)

	future, err := st.ListFutureTransactions(opts.UserID, opts.AccountID, threshold)
	if err != nil {
		return nil, fmt.Errorf("scan future transactions: %w", err)
	}

	res := &Result{Applied: opts.Apply}
	for _, t := range future {
		// The grace window only gates the scan; a corrected date still
		// past today means year inference is not the explanation.
		newDate := shiftYearBack(t.Date)
		if newDate.After(now) {
			continue
		}

		if opts.Apply {
			if err := st.UpdateTransactionDate(t.ID, newDate); err != nil {
				res.Failures = append(res.Failures,
					fmt.Sprintf("transaction %d: %v", t.ID, err))
				continue
			}
		}
		res.Changes = append(res.Changes, Change{
			TransactionID: t.ID,
			Description:   t.Description,
			OldDate:       t.Date,
			NewDate:       newDate,
		})
	}
	return res, nil
}

// shiftYearBack moves a date one year earlier, pinning Feb 29 to Feb 28.
func shiftYearBack(d time.Time) time.Time {
	day := d.Day()
	if d.Month() == time.February && day == 29 {
		day = 28
	}
	return time.Date(d.Year()-1, d.Month(), day, 0, 0, 0, 0, d.Location())
}
