// Package xp implements the achievement engine: XP and levels, one-shot and
// repeatable achievements, level badges, daily challenges and the leaderboard.
package xp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/garnizeh/careerhub/pkg/models"
	"github.com/garnizeh/careerhub/pkg/repository"
)

const XPPerLevel = 300

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrAchievementNotFound = errors.New("achievement not found")
	ErrAlreadyClaimed      = errors.New("achievement already claimed")
	ErrChallengeNotFound   = errors.New("daily challenge not found")
	ErrChallengeDone       = errors.New("challenge already completed today")
)

// Achievement keys triggered by the service itself.
const (
	KeyApplicationAce       = "APPLICATION_ACE"
	KeyInterviewTrailblazer = "INTERVIEW_TRAILBLAZER"
	KeyInterviewInsight     = "INTERVIEW_INSIGHT"
	KeyResumeArchivist      = "RESUME_ARCHIVIST"
	KeyAdvisor              = "ADVISOR"
	KeyAdviceStepComplete   = "ADVICE_STEP_COMPLETE"
	KeyProfilePioneer       = "PROFILE_PIONEER"
	KeyLaunchpad            = "LAUNCHPAD"
	KeyProjectBuilder       = "PROJECT_BUILDER"
	KeySkillCollector       = "SKILL_COLLECTOR"
	KeySkillMaster          = "SKILL_MASTER"
	KeyWorkStarter          = "WORK_STARTER"
	KeyCareerClimber        = "CAREER_CLIMBER"
)

// LevelFor returns the level reached with xp points.
func LevelFor(xp int) int {
	if xp <= 0 {
		return 0
	}
	return xp / XPPerLevel
}

// Notifier receives achievement and level-up events.
type Notifier interface {
	NotifyAchievementUnlocked(ctx context.Context, userID int64, title string, xpReward int) (*models.Notification, error)
	NotifyLevelUp(ctx context.Context, userID int64, newLevel int, badgeName string) (*models.Notification, error)
}

// Result describes the outcome of one or more achievement events.
type Result struct {
	XPGained      int                            `json:"xpGained"`
	TotalXP       int                            `json:"totalXp"`
	Level         int                            `json:"level"`
	LeveledUp     bool                           `json:"leveledUp"`
	AlreadyEarned bool                           `json:"alreadyEarned,omitempty"`
	Achievement   *models.AchievementDefinition  `json:"achievement,omitempty"`
	Awarded       []models.AchievementDefinition `json:"awardedAchievements"`
	NewBadges     []models.BadgeDefinition       `json:"newBadges"`
}

type Service struct {
	repo     repository.XPRepo
	users    repository.UserRepo
	profile  repository.ProfileRepo
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewService builds the engine. notifier may be nil.
func NewService(repo repository.XPRepo, users repository.UserRepo, profile repository.ProfileRepo, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		users:    users,
		profile:  profile,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		locks:    map[int64]*sync.Mutex{},
	}
}

// lock serialises award computation per user.
func (s *Service) lock(userID int64) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (s *Service) user(ctx context.Context, userID int64) (*models.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// TriggerEvent awards the achievement identified by key. Unknown or inactive
// keys, non-repeatable achievements already held and repeatables at their cap
// award nothing.
func (s *Service) TriggerEvent(ctx context.Context, userID int64, key string, meta map[string]any) (*Result, error) {
	unlock := s.lock(userID)
	defer unlock()

	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	res := &Result{TotalXP: u.XP, Level: LevelFor(u.XP), Awarded: []models.AchievementDefinition{}, NewBadges: []models.BadgeDefinition{}}

	def, err := s.repo.GetAchievementByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load achievement %s: %w", key, err)
	}
	if def == nil || !def.IsActive {
		s.logger.Debug("xp event without active achievement", "user", userID, "key", key)
		return res, nil
	}
	res.Achievement = def

	held, err := s.repo.GetUserAchievement(ctx, userID, def.ID)
	if err != nil {
		return nil, fmt.Errorf("load user achievement: %w", err)
	}
	award := &repository.XPAward{UserID: userID, AchievementID: def.ID, IsNew: held == nil, EarnCount: 1}
	if held != nil {
		if !def.Repeatable || (def.MaxRepeats > 0 && held.EarnCount >= def.MaxRepeats) {
			res.AlreadyEarned = true
			return res, nil
		}
		award.EarnCount = held.EarnCount + 1
	}

	oldLevel := LevelFor(u.XP)
	award.XP = u.XP + def.XPReward
	award.Level = LevelFor(award.XP)
	award.At = s.now().UnixMilli()

	if award.Level > oldLevel {
		badges, err := s.repo.ListBadges(ctx)
		if err != nil {
			return nil, fmt.Errorf("load badges: %w", err)
		}
		for _, b := range badges {
			if b.Level > oldLevel && b.Level <= award.Level {
				award.BadgeIDs = append(award.BadgeIDs, b.ID)
				res.NewBadges = append(res.NewBadges, b)
			}
		}
	}

	if err := s.repo.ApplyAward(ctx, award); err != nil {
		return nil, fmt.Errorf("apply award: %w", err)
	}

	res.XPGained = def.XPReward
	res.TotalXP = award.XP
	res.Level = award.Level
	res.LeveledUp = award.Level > oldLevel
	res.Awarded = append(res.Awarded, *def)
	s.logger.Info("achievement awarded", "user", userID, "key", key, "xp", def.XPReward, "earn_count", award.EarnCount, "meta", meta)

	s.notify(ctx, userID, def, res)
	return res, nil
}

func (s *Service) notify(ctx context.Context, userID int64, def *models.AchievementDefinition, res *Result) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.NotifyAchievementUnlocked(ctx, userID, def.Title, def.XPReward); err != nil {
		s.logger.Warn("achievement notification failed", "user", userID, "err", err)
	}
	if !res.LeveledUp {
		return
	}
	badge := ""
	if n := len(res.NewBadges); n > 0 {
		badge = res.NewBadges[n-1].Name
	}
	if _, err := s.notifier.NotifyLevelUp(ctx, userID, res.Level, badge); err != nil {
		s.logger.Warn("level-up notification failed", "user", userID, "err", err)
	}
}

type milestone struct {
	key       string
	threshold int
	count     func(c *models.ProfileCounts) int
}

var milestones = []milestone{
	{KeyApplicationAce, 5, func(c *models.ProfileCounts) int { return c.Applications }},
	{KeyInterviewTrailblazer, 5, func(c *models.ProfileCounts) int { return c.Interviews }},
	{KeyProjectBuilder, 5, func(c *models.ProfileCounts) int { return c.Projects }},
	{KeySkillCollector, 5, func(c *models.ProfileCounts) int { return c.Skills }},
	{KeySkillMaster, 10, func(c *models.ProfileCounts) int { return c.Skills }},
	{KeyCareerClimber, 3, func(c *models.ProfileCounts) int { return c.Experiences }},
	{KeyLaunchpad, 1, func(c *models.ProfileCounts) int { return c.Projects }},
	{KeyWorkStarter, 1, func(c *models.ProfileCounts) int { return c.Experiences }},
	{KeyProfilePioneer, 1, profileComplete},
}

func profileComplete(c *models.ProfileCounts) int {
	if c.Skills+c.Experiences+c.Projects > 0 && c.HasHeadlineBio {
		return 1
	}
	return 0
}

// resumesPerArchivist is how many resumes earn one RESUME_ARCHIVIST.
const resumesPerArchivist = 3

// CheckMilestones awards every count-based achievement the user now
// qualifies for and returns the combined result.
func (s *Service) CheckMilestones(ctx context.Context, userID int64) (*Result, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	counts, err := s.profile.ProfileCounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("profile counts: %w", err)
	}
	if counts == nil {
		return nil, ErrUserNotFound
	}

	total := &Result{TotalXP: u.XP, Level: LevelFor(u.XP), Awarded: []models.AchievementDefinition{}, NewBadges: []models.BadgeDefinition{}}
	merge := func(r *Result) {
		total.XPGained += r.XPGained
		total.TotalXP = r.TotalXP
		total.Level = r.Level
		total.Awarded = append(total.Awarded, r.Awarded...)
		total.NewBadges = append(total.NewBadges, r.NewBadges...)
	}

	if target := counts.Resumes / resumesPerArchivist; target > 0 {
		earned := 0
		if def, err := s.repo.GetAchievementByKey(ctx, KeyResumeArchivist); err == nil && def != nil {
			if held, err := s.repo.GetUserAchievement(ctx, userID, def.ID); err == nil && held != nil {
				earned = held.EarnCount
			}
		}
		for ; earned < target; earned++ {
			r, err := s.TriggerEvent(ctx, userID, KeyResumeArchivist, map[string]any{"resumes": counts.Resumes})
			if err != nil {
				return nil, err
			}
			merge(r)
			if r.XPGained == 0 {
				break
			}
		}
	}

	for _, m := range milestones {
		if m.count(counts) < m.threshold {
			continue
		}
		r, err := s.TriggerEvent(ctx, userID, m.key, nil)
		if err != nil {
			return nil, err
		}
		merge(r)
	}

	total.LeveledUp = total.Level > LevelFor(u.XP)
	return total, nil
}

// Redeem marks a held achievement as claimed.
func (s *Service) Redeem(ctx context.Context, userID int64, key string) (*models.UserAchievement, error) {
	def, err := s.repo.GetAchievementByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, ErrAchievementNotFound
	}

	unlock := s.lock(userID)
	defer unlock()

	held, err := s.repo.GetUserAchievement(ctx, userID, def.ID)
	if err != nil {
		return nil, err
	}
	if held == nil {
		return nil, ErrAchievementNotFound
	}
	if held.Claimed {
		return nil, ErrAlreadyClaimed
	}
	at := s.now().UnixMilli()
	if err := s.repo.ClaimAchievement(ctx, userID, def.ID, at); err != nil {
		return nil, err
	}
	held.Claimed = true
	held.ClaimedAt = &at
	held.Achievement = def
	return held, nil
}

// Day returns the UTC calendar day used for daily challenge bookkeeping.
func Day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// CompleteDailyChallenge records today's completion and awards the linked achievement.
func (s *Service) CompleteDailyChallenge(ctx context.Context, userID, challengeID int64) (*Result, error) {
	c, err := s.repo.GetDailyChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if c == nil || !c.IsActive {
		return nil, ErrChallengeNotFound
	}
	now := s.now()
	err = s.repo.CreateChallengeCompletion(ctx, userID, c.ID, Day(now), now.UnixMilli())
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrChallengeDone
	}
	if err != nil {
		return nil, fmt.Errorf("record completion: %w", err)
	}
	return s.TriggerEvent(ctx, userID, c.AchievementKey, map[string]any{"challengeId": c.ID, "day": Day(now)})
}
