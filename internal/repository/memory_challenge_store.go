package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"TradeSense/internal/domain/models"
	"TradeSense/internal/domain/repository"

	"github.com/google/uuid"
)

type challengeRecord struct {
	account *models.Account
	trades  []*models.Trade
}

// MemoryChallengeStore keeps challenges, positions and trade history in process.
type MemoryChallengeStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*challengeRecord
}

// NewMemoryChallengeStore creates an empty store.
func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{records: make(map[uuid.UUID]*challengeRecord)}
}

var _ repository.ChallengeStore = (*MemoryChallengeStore)(nil)

func (s *MemoryChallengeStore) Create(_ context.Context, c *models.Challenge) error {
	if c == nil || c.ID == uuid.Nil {
		return errors.New("create challenge: missing id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[c.ID] = &challengeRecord{
		account: &models.Account{
			Challenge: *c,
			Positions: map[string]models.Position{},
		},
	}
	return nil
}

func (s *MemoryChallengeStore) Get(_ context.Context, id uuid.UUID) (*models.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, models.ErrChallengeNotFound
	}
	c := rec.account.Challenge
	return &c, nil
}

// List returns every challenge, oldest first.
func (s *MemoryChallengeStore) List(_ context.Context) ([]*models.Challenge, error) {
	s.mu.RLock()
	out := make([]*models.Challenge, 0, len(s.records))
	for _, rec := range s.records {
		c := rec.account.Challenge
		out = append(out, &c)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Account returns a copy of the challenge's account.
func (s *MemoryChallengeStore) Account(_ context.Context, id uuid.UUID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, models.ErrChallengeNotFound
	}
	return rec.account.Clone(), nil
}

// ApplyTrade holds the write lock while fn runs, so trades on one store are serialised.
func (s *MemoryChallengeStore) ApplyTrade(_ context.Context, id uuid.UUID, fn repository.TradeFunc) (*models.Account, *models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, nil, models.ErrChallengeNotFound
	}

	next := rec.account.Clone()
	trade, err := fn(next)
	if err != nil {
		return nil, nil, err
	}

	rec.account = next
	if trade != nil {
		rec.trades = append(rec.trades, trade)
	}
	return next.Clone(), trade, nil
}

// Trades returns the history in execution order.
func (s *MemoryChallengeStore) Trades(_ context.Context, id uuid.UUID) ([]*models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, models.ErrChallengeNotFound
	}
	out := make([]*models.Trade, len(rec.trades))
	copy(out, rec.trades)
	return out, nil
}
