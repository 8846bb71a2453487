package xp

import (
	"context"
	"fmt"

	"github.com/garnizeh/careerhub/pkg/models"
)

type ChallengeStatus struct {
	models.DailyChallenge
	Completed bool `json:"completed"`
}

type DailyChallenges struct {
	Available      []ChallengeStatus `json:"available"`
	CompletedToday int               `json:"completedToday"`
	MaxDaily       int               `json:"maxDaily"`
}

// Status is the XP summary shown on the dashboard.
type Status struct {
	XP              int                      `json:"xp"`
	Level           int                      `json:"level"`
	CurrentLevelXP  int                      `json:"currentLevelXp"`
	NextLevelXP     int                      `json:"nextLevelXp"`
	ProgressXP      int                      `json:"progressXp"`
	ProgressPercent float64                  `json:"progressPercent"`
	XPPerLevel      int                      `json:"xpPerLevel"`
	DisplayRange    string                   `json:"displayRange"`
	Achievements    []models.UserAchievement `json:"achievements"`
	Badges          []models.UserBadge       `json:"badges"`
	CurrentBadge    *models.BadgeDefinition  `json:"currentBadge"`
	DailyChallenges DailyChallenges          `json:"dailyChallenges"`
}

func newStatus(xp int) *Status {
	level := LevelFor(xp)
	st := &Status{
		XP:             xp,
		Level:          level,
		CurrentLevelXP: level * XPPerLevel,
		NextLevelXP:    (level + 1) * XPPerLevel,
		XPPerLevel:     XPPerLevel,
		Achievements:   []models.UserAchievement{},
		Badges:         []models.UserBadge{},
		DailyChallenges: DailyChallenges{
			Available: []ChallengeStatus{},
		},
	}
	st.ProgressXP = xp - st.CurrentLevelXP
	st.ProgressPercent = float64(st.ProgressXP) / XPPerLevel * 100
	st.DisplayRange = fmt.Sprintf("%d/%d XP", xp, st.NextLevelXP)
	return st
}

// ZeroStatus is returned to clients when the real status cannot be computed.
func ZeroStatus() *Status {
	return newStatus(0)
}

func (s *Service) Status(ctx context.Context, userID int64) (*Status, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	st := newStatus(u.XP)

	achievements, err := s.repo.ListUserAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	if achievements != nil {
		st.Achievements = achievements
	}

	badges, err := s.repo.ListUserBadges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	if badges != nil {
		st.Badges = badges
	}
	for _, b := range st.Badges {
		if b.Badge != nil && (st.CurrentBadge == nil || b.Badge.Level > st.CurrentBadge.Level) {
			st.CurrentBadge = b.Badge
		}
	}

	challenges, err := s.repo.ListDailyChallenges(ctx)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	done, err := s.repo.CompletedChallengeIDs(ctx, userID, Day(s.now()))
	if err != nil {
		return nil, fmt.Errorf("completed challenges: %w", err)
	}
	completed := make(map[int64]bool, len(done))
	for _, id := range done {
		completed[id] = true
	}
	for _, c := range challenges {
		st.DailyChallenges.Available = append(st.DailyChallenges.Available, ChallengeStatus{DailyChallenge: c, Completed: completed[c.ID]})
	}
	st.DailyChallenges.CompletedToday = len(done)
	st.DailyChallenges.MaxDaily = len(challenges)

	return st, nil
}

type Progress struct {
	Current int `json:"current"`
	Target  int `json:"target"`
	Percent int `json:"percent"`
}

// DefinitionProgress is an achievement definition annotated with the user's standing.
type DefinitionProgress struct {
	models.AchievementDefinition
	Earned    bool     `json:"earned"`
	EarnCount int      `json:"earnCount"`
	Claimed   bool     `json:"claimed"`
	ClaimedAt *int64   `json:"claimedAt"`
	EarnedAt  *int64   `json:"earnedAt"`
	Progress  Progress `json:"progress"`
}

func progressFor(key string, targetHint int, c *models.ProfileCounts) Progress {
	p := Progress{Target: 1}
	switch key {
	case KeyResumeArchivist:
		p = Progress{Current: c.Resumes, Target: resumesPerArchivist}
	default:
		found := false
		for _, m := range milestones {
			if m.key == key {
				p = Progress{Current: m.count(c), Target: m.threshold}
				found = true
				break
			}
		}
		if !found && targetHint > 0 {
			p.Target = targetHint
		}
	}
	if p.Current > p.Target {
		p.Current = p.Target
	}
	p.Percent = p.Current * 100 / p.Target
	return p
}

// Definitions lists active achievements with the user's progress towards each.
func (s *Service) Definitions(ctx context.Context, userID int64) ([]DefinitionProgress, error) {
	defs, err := s.repo.ListAchievementDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	held, err := s.repo.ListUserAchievements(ctx, userID)
	if err != nil {
		return nil, err
	}
	counts, err := s.profile.ProfileCounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	if counts == nil {
		return nil, ErrUserNotFound
	}

	byDef := make(map[int64]models.UserAchievement, len(held))
	for _, ua := range held {
		byDef[ua.AchievementID] = ua
	}

	out := make([]DefinitionProgress, 0, len(defs))
	for _, d := range defs {
		dp := DefinitionProgress{AchievementDefinition: d, Progress: progressFor(d.Key, d.ConditionValue, counts)}
		if ua, ok := byDef[d.ID]; ok {
			earned := ua.EarnedAt
			dp.Earned = true
			dp.EarnCount = ua.EarnCount
			dp.Claimed = ua.Claimed
			dp.ClaimedAt = ua.ClaimedAt
			dp.EarnedAt = &earned
			if dp.Progress.Current == 0 && dp.Progress.Target == 1 {
				dp.Progress = Progress{Current: 1, Target: 1, Percent: 100}
			}
		}
		out = append(out, dp)
	}
	return out, nil
}

// Badges returns every badge definition ordered by level.
func (s *Service) Badges(ctx context.Context) ([]models.BadgeDefinition, error) {
	return s.repo.ListBadges(ctx)
}

// Keys lists the event keys accepted by TriggerEvent.
func (s *Service) Keys(ctx context.Context) ([]string, error) {
	defs, err := s.repo.ListAchievementDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(defs))
	for _, d := range defs {
		keys = append(keys, d.Key)
	}
	return keys, nil
}

// Leaderboard ranks active users by XP. limit defaults to 10 and is capped at 100.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	entries, err := s.repo.Leaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}
	badges, err := s.repo.ListBadges(ctx)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].CurrentBadge = badgeForLevel(badges, entries[i].Level)
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	return entries, nil
}

// badgeForLevel returns the highest badge at or below level. badges must be sorted by level.
func badgeForLevel(badges []models.BadgeDefinition, level int) *models.BadgeDefinition {
	var out *models.BadgeDefinition
	for i := range badges {
		if badges[i].Level > level {
			break
		}
		out = &badges[i]
	}
	return out
}
