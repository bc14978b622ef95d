package billing

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	bySub   map[string]Record
	byEmail map[string]string // email -> subscription id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bySub:   make(map[string]Record),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryStore) Create(_ context.Context, rec Record) error {
	rec.UserEmail = NormalizeEmail(rec.UserEmail)
	if err := rec.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bySub[rec.SubscriptionID]; ok {
		return ErrDuplicateSubscription
	}
	if _, ok := s.byEmail[rec.UserEmail]; ok {
		return ErrEmailTaken
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.bySub[rec.SubscriptionID] = rec
	s.byEmail[rec.UserEmail] = rec.SubscriptionID
	return nil
}

func (s *MemoryStore) Replace(_ context.Context, rec Record) (Record, error) {
	rec.UserEmail = NormalizeEmail(rec.UserEmail)
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prevID, ok := s.byEmail[rec.UserEmail]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	if _, taken := s.bySub[rec.SubscriptionID]; taken && prevID != rec.SubscriptionID {
		return Record{}, ErrDuplicateSubscription
	}
	prev := s.bySub[prevID]
	delete(s.bySub, prevID)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.bySub[rec.SubscriptionID] = rec
	s.byEmail[rec.UserEmail] = rec.SubscriptionID
	return prev, nil
}

func (s *MemoryStore) GetBySubscriptionID(_ context.Context, subscriptionID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.bySub[subscriptionID]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return rec, nil
}

func (s *MemoryStore) GetByEmail(_ context.Context, email string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return s.bySub[id], nil
}

func (s *MemoryStore) ListByEmail(ctx context.Context, email string) ([]Record, error) {
	rec, err := s.GetByEmail(ctx, email)
	if errors.Is(err, ErrRecordNotFound) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, err
	}
	return []Record{rec}, nil
}

// List returns all records, newest first.
func (s *MemoryStore) List(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	out := make([]Record, 0, len(s.bySub))
	for _, rec := range s.bySub {
		out = append(out, rec)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b Record) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, subscriptionID string, u SubscriptionUpdate) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.bySub[subscriptionID]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	u.apply(&rec)
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	s.bySub[subscriptionID] = rec
	return rec, nil
}

func (s *MemoryStore) Delete(_ context.Context, subscriptionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.bySub[subscriptionID]
	if !ok {
		return ErrRecordNotFound
	}
	delete(s.bySub, subscriptionID)
	delete(s.byEmail, rec.UserEmail)
	return nil
}

// Ping satisfies readiness checks.
func (s *MemoryStore) Ping(context.Context) error { return nil }
