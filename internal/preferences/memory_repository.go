package preferences

import (
	"context"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// Used for local development and tests. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewInMemoryRepository creates a new in-memory preference repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		records: make(map[string]*Record),
	}
}

// Get retrieves the record for a user.
func (r *InMemoryRepository) Get(_ context.Context, userID string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(rec), nil
}

// Upsert creates or replaces the record for a user.
func (r *InMemoryRepository) Upsert(_ context.Context, record *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := clone(record)
	if existing, ok := r.records[record.UserID]; ok {
		cpy.CreatedAt = existing.CreatedAt
	}
	r.records[record.UserID] = cpy
	return nil
}

// Delete removes the record for a user.
func (r *InMemoryRepository) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, userID)
	return nil
}

// clone copies a record including the preference pointers.
func clone(rec *Record) *Record {
	cpy := *rec
	p := &cpy.Preferences
	if p.Sensitivity != nil {
		s := *p.Sensitivity
		p.Sensitivity = &s
	}
	if p.Weights != nil {
		w := *p.Weights
		for _, f := range []**float64{&w.Distance, &w.Duration, &w.Effort, &w.Safety, &w.Comfort} {
			if *f != nil {
				v := **f
				*f = &v
			}
		}
		p.Weights = &w
	}
	return &cpy
}

var _ Repository = (*InMemoryRepository)(nil)
