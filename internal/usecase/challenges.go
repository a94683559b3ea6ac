package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"TradeSense/internal/domain/models"
	drepo "TradeSense/internal/domain/repository"
	"TradeSense/internal/services/rules"
	applogger "TradeSense/pkg/logger"
	"TradeSense/pkg/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const defaultLeaderboardSize = 10

// ChallengeService opens challenges and serves their read views.
type ChallengeService struct {
	store          drepo.ChallengeStore
	evaluator      *rules.Evaluator
	defaultBalance decimal.Decimal
	log            *applogger.Logger
	now            func() time.Time
}

func NewChallengeService(store drepo.ChallengeStore, evaluator *rules.Evaluator, defaultBalance decimal.Decimal, log *applogger.Logger) *ChallengeService {
	if log == nil {
		log = applogger.Nop()
	}
	return &ChallengeService{
		store:          store,
		evaluator:      evaluator,
		defaultBalance: defaultBalance,
		log:            log.Component("challenges"),
		now:            time.Now,
	}
}

// Open creates an active challenge. A zero balance uses the configured default;
// a negative one is rejected.
func (s *ChallengeService) Open(ctx context.Context, startBalance decimal.Decimal) (*models.Challenge, error) {
	if startBalance.IsNegative() {
		return nil, fmt.Errorf("%w: start balance must not be negative", models.ErrInvalidChallenge)
	}
	if startBalance.IsZero() {
		startBalance = s.defaultBalance
	}
	if !startBalance.IsPositive() {
		return nil, fmt.Errorf("%w: start balance must be positive", models.ErrInvalidChallenge)
	}

	c := models.NewChallenge(startBalance, s.now())
	if err := s.store.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("open challenge: %w", err)
	}
	s.log.Info("challenge opened",
		applogger.Stringer("challenge_id", c.ID),
		applogger.String("start_balance", startBalance.String()),
	)
	return c, nil
}

// Active returns the most recently opened challenge that is still active.
func (s *ChallengeService) Active(ctx context.Context) (*models.Challenge, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Status == models.StatusActive {
			return all[i], nil
		}
	}
	return nil, models.ErrNoActiveChallenge
}

func (s *ChallengeService) Get(ctx context.Context, id uuid.UUID) (*models.Challenge, error) {
	return s.store.Get(ctx, id)
}

// Metrics returns the rule-progress view for id as of now.
func (s *ChallengeService) Metrics(ctx context.Context, id uuid.UUID) (*models.ChallengeMetrics, error) {
	acct, err := s.store.Account(ctx, id)
	if err != nil {
		return nil, err
	}
	m := s.evaluator.Metrics(acct, s.now())
	return &m, nil
}

// Leaderboard ranks challenges opened in month's calendar month by profit percent.
func (s *ChallengeService) Leaderboard(ctx context.Context, month time.Time, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]models.LeaderboardEntry, 0, len(all))
	for _, c := range all {
		if !util.SameMonth(c.CreatedAt, month) {
			continue
		}
		entries = append(entries, models.LeaderboardEntry{
			ChallengeID:  c.ID,
			StartBalance: c.StartBalance,
			Equity:       c.Equity,
			ProfitPct:    models.PercentChange(c.StartBalance, c.Equity).Round(2),
			Status:       c.Status,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ProfitPct.GreaterThan(entries[j].ProfitPct)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
