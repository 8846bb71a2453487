package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/garnizeh/careerhub/pkg/models"
	"github.com/garnizeh/careerhub/pkg/repository"
)

const achievementColumns = `id, key, title, description, category, icon, xp_reward, repeatable, max_repeats, condition_type, condition_value, is_active`

func scanAchievement(s scanner, extra ...any) (*models.AchievementDefinition, error) {
	var a models.AchievementDefinition
	var repeatable, active int
	dest := append([]any{&a.ID, &a.Key, &a.Title, &a.Description, &a.Category, &a.Icon, &a.XPReward, &repeatable, &a.MaxRepeats, &a.ConditionType, &a.ConditionValue, &active}, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	a.Repeatable = repeatable == 1
	a.IsActive = active == 1
	return &a, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *SQLiteRepo) GetAchievementByKey(ctx context.Context, key string) (*models.AchievementDefinition, error) {
	a, err := scanAchievement(r.conn.QueryRow(ctx, `SELECT `+achievementColumns+` FROM achievement_definitions WHERE key = ?`, key))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (r *SQLiteRepo) ListAchievementDefinitions(ctx context.Context) ([]models.AchievementDefinition, error) {
	rows, err := r.conn.Query(ctx, `SELECT `+achievementColumns+` FROM achievement_definitions WHERE is_active = 1 ORDER BY category, xp_reward, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AchievementDefinition
	for rows.Next() {
		a, err := scanAchievement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) GetUserAchievement(ctx context.Context, userID, achievementID int64) (*models.UserAchievement, error) {
	var ua models.UserAchievement
	var claimed int
	var claimedAt sql.NullInt64
	err := r.conn.QueryRow(ctx, `SELECT id, user_id, achievement_id, earn_count, claimed, claimed_at, earned_at, updated
		FROM user_achievements WHERE user_id = ? AND achievement_id = ?`, userID, achievementID).
		Scan(&ua.ID, &ua.UserID, &ua.AchievementID, &ua.EarnCount, &claimed, &claimedAt, &ua.EarnedAt, &ua.Updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ua.Claimed = claimed == 1
	ua.ClaimedAt = intPtr(claimedAt)

	return &ua, nil
}

// ListUserAchievements returns the user's achievements with their definitions, most recent first.
func (r *SQLiteRepo) ListUserAchievements(ctx context.Context, userID int64) ([]models.UserAchievement, error) {
	rows, err := r.conn.Query(ctx, `SELECT d.id, d.key, d.title, d.description, d.category, d.icon, d.xp_reward, d.repeatable, d.max_repeats, d.condition_type, d.condition_value, d.is_active,
		ua.id, ua.user_id, ua.achievement_id, ua.earn_count, ua.claimed, ua.claimed_at, ua.earned_at, ua.updated
		FROM user_achievements ua JOIN achievement_definitions d ON d.id = ua.achievement_id
		WHERE ua.user_id = ? ORDER BY ua.updated DESC, ua.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.UserAchievement
	for rows.Next() {
		var ua models.UserAchievement
		var claimed int
		var claimedAt sql.NullInt64
		def, err := scanAchievement(rows, &ua.ID, &ua.UserID, &ua.AchievementID, &ua.EarnCount, &claimed, &claimedAt, &ua.EarnedAt, &ua.Updated)
		if err != nil {
			return nil, err
		}
		ua.Claimed = claimed == 1
		ua.ClaimedAt = intPtr(claimedAt)
		ua.Achievement = def
		out = append(out, ua)
	}

	return out, rows.Err()
}

// ApplyAward persists one achievement award, the new XP total and any badges in a single transaction.
func (r *SQLiteRepo) ApplyAward(ctx context.Context, a *repository.XPAward) error {
	if a == nil {
		return fmt.Errorf("award is nil")
	}

	tx, err := r.conn.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if a.IsNew {
		_, err = tx.ExecContext(ctx, `INSERT INTO user_achievements (user_id, achievement_id, earn_count, claimed, earned_at, updated) VALUES (?, ?, ?, 0, ?, ?)`,
			a.UserID, a.AchievementID, a.EarnCount, a.At, a.At)
	} else {
		_, err = tx.ExecContext(ctx, `UPDATE user_achievements SET earn_count = ?, claimed = 0, claimed_at = NULL, updated = ? WHERE user_id = ? AND achievement_id = ?`,
			a.EarnCount, a.At, a.UserID, a.AchievementID)
	}
	if err != nil {
		return fmt.Errorf("record achievement: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE users SET xp = ?, level = ?, updated = ? WHERE id = ?`, a.XP, a.Level, a.At, a.UserID); err != nil {
		return fmt.Errorf("update xp: %w", err)
	}

	for _, id := range a.BadgeIDs {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO user_badges (user_id, badge_id, awarded_at) VALUES (?, ?, ?)`, a.UserID, id, a.At); err != nil {
			return fmt.Errorf("award badge %d: %w", id, err)
		}
	}

	return tx.Commit()
}

func (r *SQLiteRepo) ClaimAchievement(ctx context.Context, userID, achievementID int64, at int64) error {
	return affected(r.conn.Exec(ctx, `UPDATE user_achievements SET claimed = 1, claimed_at = ?, updated = ? WHERE user_id = ? AND achievement_id = ?`,
		at, at, userID, achievementID))
}

func (r *SQLiteRepo) ListBadges(ctx context.Context) ([]models.BadgeDefinition, error) {
	rows, err := r.conn.Query(ctx, `SELECT id, level, name, description, color, icon FROM badge_definitions ORDER BY level`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.BadgeDefinition
	for rows.Next() {
		var b models.BadgeDefinition
		if err := rows.Scan(&b.ID, &b.Level, &b.Name, &b.Description, &b.Color, &b.Icon); err != nil {
			return nil, err
		}
		out = append(out, b)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) ListUserBadges(ctx context.Context, userID int64) ([]models.UserBadge, error) {
	rows, err := r.conn.Query(ctx, `SELECT ub.id, ub.user_id, ub.badge_id, ub.awarded_at, b.id, b.level, b.name, b.description, b.color, b.icon
		FROM user_badges ub JOIN badge_definitions b ON b.id = ub.badge_id WHERE ub.user_id = ? ORDER BY b.level`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.UserBadge
	for rows.Next() {
		var ub models.UserBadge
		var b models.BadgeDefinition
		if err := rows.Scan(&ub.ID, &ub.UserID, &ub.BadgeID, &ub.AwardedAt, &b.ID, &b.Level, &b.Name, &b.Description, &b.Color, &b.Icon); err != nil {
			return nil, err
		}
		ub.Badge = &b
		out = append(out, ub)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) ListDailyChallenges(ctx context.Context) ([]models.DailyChallenge, error) {
	rows, err := r.conn.Query(ctx, `SELECT id, key, title, description, achievement_key, xp_reward, is_active FROM daily_challenges WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DailyChallenge
	for rows.Next() {
		var c models.DailyChallenge
		var active int
		if err := rows.Scan(&c.ID, &c.Key, &c.Title, &c.Description, &c.AchievementKey, &c.XPReward, &active); err != nil {
			return nil, err
		}
		c.IsActive = active == 1
		out = append(out, c)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) GetDailyChallenge(ctx context.Context, id int64) (*models.DailyChallenge, error) {
	var c models.DailyChallenge
	var active int
	err := r.conn.QueryRow(ctx, `SELECT id, key, title, description, achievement_key, xp_reward, is_active FROM daily_challenges WHERE id = ?`, id).
		Scan(&c.ID, &c.Key, &c.Title, &c.Description, &c.AchievementKey, &c.XPReward, &active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.IsActive = active == 1

	return &c, nil
}

func (r *SQLiteRepo) CompletedChallengeIDs(ctx context.Context, userID int64, day string) ([]int64, error) {
	rows, err := r.conn.Query(ctx, `SELECT challenge_id FROM daily_challenge_completions WHERE user_id = ? AND day = ?`, userID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) CreateChallengeCompletion(ctx context.Context, userID, challengeID int64, day string, at int64) error {
	_, err := r.conn.Exec(ctx, `INSERT INTO daily_challenge_completions (user_id, challenge_id, day, completed_at) VALUES (?, ?, ?, ?)`, userID, challengeID, day, at)
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	return err
}

// Leaderboard ranks active users by XP. CurrentBadge is left for the caller to fill.
func (r *SQLiteRepo) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	limit, _ = clampPage(limit, 0, 10)

	rows, err := r.conn.Query(ctx, `SELECT id, name, profile_image, xp, level FROM users WHERE is_active = 1 ORDER BY xp DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.LeaderboardEntry
	for rows.Next() {
		e := models.LeaderboardEntry{Rank: len(out) + 1}
		if err := rows.Scan(&e.UserID, &e.Name, &e.ProfileImage, &e.XP, &e.Level); err != nil {
			return nil, err
		}
		out = append(out, e)
	}

	return out, rows.Err()
}
