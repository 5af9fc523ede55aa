package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ippiapp/ippi-server/internal/clock"
	"github.com/ippiapp/ippi-server/internal/domain"
	domainerrors "github.com/ippiapp/ippi-server/internal/errors"
	"github.com/ippiapp/ippi-server/internal/id"
	"github.com/ippiapp/ippi-server/internal/metrics"
	"github.com/ippiapp/ippi-server/internal/store"
)

// Evaluator awards achievements for an aggregate snapshot.
type Evaluator interface {
	Evaluate(ctx context.Context, userID string, snapshot *domain.UserStats) ([]*domain.AchievementAward, error)
}

// AchievementList is every rule with one user's progress.
type AchievementList struct {
	Achievements  []domain.AchievementStatus `json:"achievements"`
	TotalCount    int                        `json:"total_count"`
	AchievedCount int                        `json:"achieved_count"`
}

// AchievementService owns the rule catalog and the award ledger.
type AchievementService struct {
	store     store.AchievementStore
	publisher Publisher
	clock     clock.Clock
	metrics   metrics.Recorder
	logger    *slog.Logger

	// The catalog is read-only after seeding, so it is loaded once.
	mu    sync.RWMutex
	rules []*domain.AchievementRule
}

var _ Evaluator = (*AchievementService)(nil)

// NewAchievementService creates a new achievement service.
func NewAchievementService(
	store store.AchievementStore,
	publisher Publisher,
	clk clock.Clock,
	rec metrics.Recorder,
	logger *slog.Logger,
) *AchievementService {
	return &AchievementService{
		store:     store,
		publisher: publisher,
		clock:     clk,
		metrics:   rec,
		logger:    logger,
	}
}

// SeedCatalog inserts the built-in rules that are missing. Safe to call on every start.
func (s *AchievementService) SeedCatalog(ctx context.Context) (int, error) {
	rules := domain.DefaultAchievementRules()
	for i := range rules {
		ruleID, err := id.Generate(id.PrefixRule)
		if err != nil {
			return 0, fmt.Errorf("generate rule ID: %w", err)
		}
		rules[i].ID = ruleID
	}

	inserted, err := s.store.SeedAchievementRules(ctx, rules, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("seed achievement rules: %w", err)
	}

	s.mu.Lock()
	s.rules = nil
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "achievement catalog seeded", "inserted", inserted, "catalog_size", len(rules))
	return inserted, nil
}

// catalog returns the rules in display order, loading them on first use.
func (s *AchievementService) catalog(ctx context.Context) ([]*domain.AchievementRule, error) {
	s.mu.RLock()
	rules := s.rules
	s.mu.RUnlock()
	if rules != nil {
		return rules, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rules != nil {
		return s.rules, nil
	}

	rules, err := s.store.ListAchievementRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list achievement rules: %w", err)
	}
	s.rules = rules
	return rules, nil
}

// CatalogSize reports how many achievement rules are loaded.
func (s *AchievementService) CatalogSize(ctx context.Context) (int, error) {
	rules, err := s.catalog(ctx)
	if err != nil {
		return 0, err
	}
	return len(rules), nil
}

// Evaluate awards every satisfied rule the user does not hold yet and publishes
// one achievement_unlocked activity per new award.
//
// Callers must serialize Evaluate per user. The UNIQUE (user_id, rule_id)
// constraint still rejects a duplicate if they do not. Individual award or
// publish failures are logged and skipped; only a catalog failure is returned.
func (s *AchievementService) Evaluate(ctx context.Context, userID string, snapshot *domain.UserStats) ([]*domain.AchievementAward, error) {
	rules, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}

	var awarded []*domain.AchievementAward
	for _, rule := range rules {
		if !rule.SatisfiedBy(snapshot) {
			continue
		}

		award, err := s.award(ctx, userID, rule)
		if err != nil {
			s.metrics.IncAwardFailures()
			s.logger.WarnContext(ctx, "failed to award achievement",
				"user_id", userID,
				"rule_id", rule.ID,
				"error", err,
			)
			continue
		}
		if award == nil {
			continue
		}
		awarded = append(awarded, award)

		s.metrics.IncAchievementsAwarded(string(rule.Category))
		s.logger.InfoContext(ctx, "achievement unlocked",
			"user_id", userID,
			"rule_id", rule.ID,
			"name", rule.Name,
		)

		payload := domain.AchievementUnlockedPayload{
			RuleID:          rule.ID,
			AchievementName: rule.Name,
			Description:     rule.Description,
		}
		if err := s.publisher.Publish(ctx, userID, domain.ActivityAchievementUnlocked, payload); err != nil {
			s.logger.WarnContext(ctx, "failed to publish achievement activity",
				"user_id", userID,
				"rule_id", rule.ID,
				"error", err,
			)
		}
	}

	return awarded, nil
}

// award inserts the award unless the user already holds the rule, in which case it returns nil, nil.
func (s *AchievementService) award(ctx context.Context, userID string, rule *domain.AchievementRule) (*domain.AchievementAward, error) {
	held, err := s.store.HasUserAchievement(ctx, userID, rule.ID)
	if err != nil {
		return nil, fmt.Errorf("check award: %w", err)
	}
	if held {
		return nil, nil
	}

	awardID, err := id.Generate(id.PrefixAward)
	if err != nil {
		return nil, fmt.Errorf("generate award ID: %w", err)
	}

	award := &domain.AchievementAward{
		ID:        awardID,
		UserID:    userID,
		RuleID:    rule.ID,
		AwardedAt: s.clock.Now(),
	}
	if err := s.store.CreateUserAchievement(ctx, award); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, nil
		}
		return nil, fmt.Errorf("create award: %w", err)
	}
	return award, nil
}

// ListForUser returns the whole catalog with the user's achieved flags.
func (s *AchievementService) ListForUser(ctx context.Context, userID string) (*AchievementList, error) {
	rules, err := s.catalog(ctx)
	if err != nil {
		return nil, domainerrors.Internal(err, "failed to load achievements")
	}

	awards, err := s.store.ListUserAchievements(ctx, userID)
	if err != nil {
		return nil, domainerrors.Internal(err, "failed to load achievements")
	}

	awardedAt := make(map[string]time.Time, len(awards))
	for _, a := range awards {
		awardedAt[a.RuleID] = a.AwardedAt
	}

	list := &AchievementList{
		Achievements: make([]domain.AchievementStatus, 0, len(rules)),
		TotalCount:   len(rules),
	}
	for _, rule := range rules {
		status := domain.AchievementStatus{Rule: rule}
		if at, ok := awardedAt[rule.ID]; ok {
			status.Achieved = true
			status.AchievedAt = &at
			list.AchievedCount++
		}
		list.Achievements = append(list.Achievements, status)
	}
	return list, nil
}
