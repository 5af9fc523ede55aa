package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ippiapp/ippi-server/internal/domain"
	"github.com/ippiapp/ippi-server/internal/store"
)

const achievementRuleColumns = `id, category, name, description, threshold, display_order`

func scanAchievementRule(scanner interface{ Scan(dest ...any) error }) (*domain.AchievementRule, error) {
	var (
		r        domain.AchievementRule
		category string
	)
	if err := scanner.Scan(&r.ID, &category, &r.Name, &r.Description, &r.Threshold, &r.DisplayOrder); err != nil {
		return nil, err
	}
	r.Category = domain.AchievementCategory(category)
	return &r, nil
}

// SeedAchievementRules inserts rules that are not yet present, keyed on (category, threshold).
// Existing rules keep their IDs and creation time. Returns the number of rules inserted.
func (s *Store) SeedAchievementRules(ctx context.Context, rules []domain.AchievementRule, now time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, mapError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	createdAt := formatTime(now)
	inserted := 0
	for _, r := range rules {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO achievement_rules (id, category, name, description, threshold, display_order, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(category, threshold) DO NOTHING`,
			r.ID, string(r.Category), r.Name, r.Description, r.Threshold, r.DisplayOrder, createdAt,
		)
		if err != nil {
			return 0, mapError(fmt.Errorf("insert rule %s/%d: %w", r.Category, r.Threshold, err))
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, mapError(fmt.Errorf("commit: %w", err))
	}
	return inserted, nil
}

// ListAchievementRules returns the catalog in display order.
func (s *Store) ListAchievementRules(ctx context.Context) ([]*domain.AchievementRule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+achievementRuleColumns+` FROM achievement_rules ORDER BY display_order, id`)
	if err != nil {
		return nil, fmt.Errorf("list achievement rules: %w", err)
	}
	defer rows.Close()

	var rules []*domain.AchievementRule
	for rows.Next() {
		r, err := scanAchievementRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan achievement rule: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// HasUserAchievement reports whether the user already holds the rule.
func (s *Store) HasUserAchievement(ctx context.Context, userID, ruleID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_achievements WHERE user_id = ? AND rule_id = ?)`,
		userID, ruleID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user achievement: %w", err)
	}
	return exists, nil
}

// CreateUserAchievement records an award.
// Returns store.ErrAlreadyExists if the user already holds the rule.
func (s *Store) CreateUserAchievement(ctx context.Context, award *domain.AchievementAward) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_achievements (id, user_id, rule_id, awarded_at)
		VALUES (?, ?, ?, ?)`,
		award.ID, award.UserID, award.RuleID, formatTime(award.AwardedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists.WithCause(err)
	}
	if err != nil {
		return mapError(fmt.Errorf("insert user achievement: %w", err))
	}
	return nil
}

// ListUserAchievements returns the user's awards, oldest first.
func (s *Store) ListUserAchievements(ctx context.Context, userID string) ([]*domain.AchievementAward, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, rule_id, awarded_at FROM user_achievements
		WHERE user_id = ?
		ORDER BY awarded_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list user achievements: %w", err)
	}
	defer rows.Close()

	var awards []*domain.AchievementAward
	for rows.Next() {
		var (
			a         domain.AchievementAward
			awardedAt string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.RuleID, &awardedAt); err != nil {
			return nil, fmt.Errorf("scan user achievement: %w", err)
		}
		if a.AwardedAt, err = parseTime(awardedAt); err != nil {
			return nil, fmt.Errorf("parse awarded_at: %w", err)
		}
		awards = append(awards, &a)
	}
	return awards, rows.Err()
}
