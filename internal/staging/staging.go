// Package staging holds parsed import batches between upload and
// commit. Batches live in memory, scoped to the owning user, and
// expire if a review is abandoned.
package staging

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"personalfinance/internal/models"
)

var (
	ErrNotFound   = errors.New("batch not found")
	ErrNotPending = errors.New("batch is not pending")
)

type entry struct {
	batch    *models.ImportBatch
	lastUsed time.Time
}

// Store keeps pending import batches keyed by batch id. Every lookup
// is scoped by the owning user, so one user can never see or touch
// another's staged batch.
type Store struct {
	mu      sync.Mutex
	batches map[uuid.UUID]*entry
	ttl     time.Duration
}

// NewStore returns a Store whose batches expire after ttl of
// inactivity.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		batches: make(map[uuid.UUID]*entry),
		ttl:     ttl,
	}
}

// Put registers a freshly parsed batch for review.
func (s *Store) Put(batch *models.ImportBatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.batches[batch.ID] = &entry{batch: batch, lastUsed: time.Now()}
}

// Get returns the user's batch, refreshing its expiry. Batches owned
// by other users are indistinguishable from missing ones.
func (s *Store) Get(userID int64, id uuid.UUID) (*models.ImportBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	e, ok := s.batches[id]
	if !ok || e.batch.UserID != userID {
		return nil, ErrNotFound
	}
	e.lastUsed = time.Now()
	return e.batch, nil
}

// Remove drops a batch after commit or discard. Removing an absent
// batch is a no-op.
func (s *Store) Remove(userID int64, id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.batches[id]; ok && e.batch.UserID == userID {
		delete(s.batches, id)
	}
}

func (s *Store) sweepLocked() {
	cutoff := time.Now().Add(-s.ttl)
	for id, e := range s.batches {
		if e.lastUsed.Before(cutoff) {
			delete(s.batches, id)
		}
	}
}

// Page is one page of candidates for the review screen.
type Page struct {
	Candidates []models.Candidate `json:"candidates"`
	Positions  []int              `json:"positions"`
	Page       int                `json:"page"`
	TotalPages int                `json:"total_pages"`
	TotalRows  int                `json:"total_rows"`
}

// PageOf slices a batch's candidates for display. Ordering follows
// original line order, so re-requesting the same page always returns
// the same rows.
func PageOf(batch *models.ImportBatch, page, pageSize int) Page {
	total := len(batch.Candidates)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}

	p := Page{
		Page:       page,
		TotalPages: totalPages,
		TotalRows:  total,
	}
	for i := start; i < end; i++ {
		p.Candidates = append(p.Candidates, batch.Candidates[i])
		p.Positions = append(p.Positions, i)
	}
	return p
}

// Edit is a user's change to one staged candidate. Nil fields are left
// untouched.
type Edit struct {
	Date        *time.Time
	Description *string
	Amount      *decimal.Decimal
	Category    *string
	Type        *models.TransactionType
	ReviewState *models.ReviewState
}

// ApplyEdit updates the candidate at position in the batch. Any field
// change other than a bare review-state flip moves the candidate to
// Edited.
func ApplyEdit(batch *models.ImportBatch, position int, edit Edit) error {
	if batch.Status != models.BatchPending {
		return ErrNotPending
	}
	if position < 0 || position >= len(batch.Candidates) {
		return fmt.Errorf("position %d out of range", position)
	}

	c := &batch.Candidates[position]
	fieldChanged := false

	if edit.Date != nil {
		c.Date = *edit.Date
		c.HasDate = true
		c.YearInferred = false
		fieldChanged = true
	}
	if edit.Description != nil {
		c.Description = *edit.Description
		fieldChanged = true
	}
	if edit.Amount != nil {
		c.Amount = *edit.Amount
		c.Type = models.TypeFromAmount(*edit.Amount)
		fieldChanged = true
	}
	if edit.Category != nil {
		c.Category = *edit.Category
		fieldChanged = true
	}
	if edit.Type != nil {
		c.Type = *edit.Type
		fieldChanged = true
	}

	switch {
	case edit.ReviewState != nil:
		c.ReviewState = *edit.ReviewState
	case fieldChanged:
		c.ReviewState = models.ReviewEdited
	}
	return nil
}

// SetDuplicateStates bulk-toggles every duplicate-marked candidate to
// the given state and returns how many changed. Used by the "include
// all duplicates anyway" and "exclude all duplicates" review actions.
func SetDuplicateStates(batch *models.ImportBatch, state models.ReviewState) int {
	n := 0
	for i := range batch.Candidates {
		c := &batch.Candidates[i]
		if c.IsDuplicate() && c.ReviewState != state {
			c.ReviewState = state
			n++
		}
	}
	return n
}
