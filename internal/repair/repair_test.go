package repair

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personalfinance/internal/models"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

type fakeStorage struct {
	future  []models.Transaction
	updated map[int64]time.Time
	failIDs map[int64]bool
}

func newFakeStorage(future ...models.Transaction) *fakeStorage {
	return &fakeStorage{
		future:  future,
		updated: make(map[int64]time.Time),
		failIDs: make(map[int64]bool),
	}
}

func (f *fakeStorage) ListFutureTransactions(userID, accountID int64, threshold time.Time) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, t := range f.future {
		d := t.Date
		if nd, ok := f.updated[t.ID]; ok {
			d = nd
		}
		if d.After(threshold) {
			t.Date = d
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStorage) UpdateTransactionDate(id int64, d time.Time) error {
	if f.failIDs[id] {
		return errors.New("disk I/O error")
	}
	f.updated[id] = d
	return nil
}

func TestDryRunReportsWithoutWriting(t *testing.T) {
	st := newFakeStorage(models.Transaction{ID: 1, Date: date(2099, 3, 1), Description: "Coffee Shop"})
	now := date(2098, 6, 1)

	res, err := Run(st, Options{UserID: 1, DaysAhead: 30, Now: now})
	require.NoError(t, err)

	assert.False(t, res.Applied)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, date(2099, 3, 1), res.Changes[0].OldDate)
	assert.Equal(t, date(2098, 3, 1), res.Changes[0].NewDate)
	assert.Empty(t, st.updated, "dry-run must not write")
}

func TestApplyThenIdempotent(t *testing.T) {
	st := newFakeStorage(models.Transaction{ID: 1, Date: date(2099, 3, 1)})
	now := date(2098, 6, 1)

	res, err := Run(st, Options{UserID: 1, DaysAhead: 30, Apply: true, Now: now})
	require.NoError(t, err)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, date(2098, 3, 1), st.updated[1])

	// A second run finds nothing further to fix.
	res, err = Run(st, Options{UserID: 1, DaysAhead: 30, Now: now})
	require.NoError(t, err)
	assert.Empty(t, res.Changes)
}

func TestSkipsStillFutureAfterShift(t *testing.T) {
	// Two years out: shifting one year back still lands in the future,
	// so year inference is not the explanation and the row is left alone.
	st := newFakeStorage(models.Transaction{ID: 1, Date: date(2100, 3, 1)})
	now := date(2098, 6, 1)

	res, err := Run(st, Options{UserID: 1, DaysAhead: 30, Apply: true, Now: now})
	require.NoError(t, err)
	assert.Empty(t, res.Changes)
	assert.Empty(t, st.updated)
}

func TestSkipsWhenShiftLandsInsideGraceWindow(t *testing.T) {
	// Shifting lands after today but inside the 30-day grace window.
	// That is still a future date, so the row is left alone.
	st := newFakeStorage(models.Transaction{ID: 1, Date: date(2099, 6, 15)})
	now := date(2098, 6, 1)

	res, err := Run(st, Options{UserID: 1, DaysAhead: 30, Apply: true, Now: now})
	require.NoError(t, err)
	assert.Empty(t, res.Changes)
	assert.Empty(t, st.updated)
}

func TestLeapDayPinnedToFeb28(t *testing.T) {
	st := newFakeStorage(models.Transaction{ID: 1, Date: date(2028, 2, 29)})
	now := date(2027, 3, 1)

	res, err := Run(st, Options{UserID: 1, DaysAhead: 30, Now: now})
	require.NoError(t, err)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, date(2027, 2, 28), res.Changes[0].NewDate)
}

func TestPerRowFailuresCollected(t *testing.T) {
	st := newFakeStorage(
		models.Transaction{ID: 1, Date: date(2099, 3, 1)},
		models.Transaction{ID: 2, Date: date(2099, 4, 1)},
	)
	st.failIDs[1] = true
	now := date(2098, 6, 1)

	res, err := Run(st, Options{UserID: 1, DaysAhead: 30, Apply: true, Now: now})
	require.NoError(t, err)

	// The failing row is reported; the independent one still updates.
	require.Len(t, res.Failures, 1)
	assert.Contains(t, res.Failures[0], "transaction 1")
	require.Len(t, res.Changes, 1)
	assert.Equal(t, int64(2), res.Changes[0].TransactionID)
}
