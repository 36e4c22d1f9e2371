package greeting

import (
	"context"
	"slices"
	"sync"
	"time"
)

type AuditEntry struct {
	Name    string    `json:"name"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Store keeps greeting counts, the last note per name and the audit trail.
type Store interface {
	Record(ctx context.Context, name, note string) (int, error)
	Count(ctx context.Context, name string) (int, error)
	LastNote(ctx context.Context, name string) (string, error)
	Forget(ctx context.Context, name string) error
	Append(ctx context.Context, e AuditEntry) error
	Audit(ctx context.Context) ([]AuditEntry, error)
}

// Repository is the in-memory Store.
type Repository struct {
	mu     sync.RWMutex
	counts map[string]int
	notes  map[string]string
	audit  []AuditEntry
}

func NewRepository() *Repository {
	return &Repository{
		counts: make(map[string]int),
		notes:  make(map[string]string),
	}
}

func (r *Repository) Record(_ context.Context, name, note string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[name]++
	if note != "" {
		r.notes[name] = note
	}
	return r.counts[name], nil
}

func (r *Repository) Count(_ context.Context, name string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counts[name], nil
}

func (r *Repository) LastNote(_ context.Context, name string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.notes[name], nil
}

func (r *Repository) Forget(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.counts, name)
	delete(r.notes, name)
	return nil
}

func (r *Repository) Append(_ context.Context, e AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audit = append(r.audit, e)
	return nil
}

func (r *Repository) Audit(context.Context) ([]AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.audit), nil
}
