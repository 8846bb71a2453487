package xp_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	dbfs "github.com/garnizeh/careerhub/db"
	"github.com/garnizeh/careerhub/internal/db"
	"github.com/garnizeh/careerhub/internal/repository/sqlite"
	"github.com/garnizeh/careerhub/internal/xp"
	"github.com/garnizeh/careerhub/pkg/models"
	"github.com/garnizeh/careerhub/pkg/repository"
)

type fakeNotifier struct {
	mu           sync.Mutex
	achievements []string
	levelUps     []string
}

func (f *fakeNotifier) NotifyAchievementUnlocked(ctx context.Context, userID int64, title string, xpReward int) (*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.achievements = append(f.achievements, title)
	return &models.Notification{}, nil
}

func (f *fakeNotifier) NotifyLevelUp(ctx context.Context, userID int64, newLevel int, badgeName string) (*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.levelUps = append(f.levelUps, badgeName)
	return &models.Notification{}, nil
}

type fixture struct {
	repo *sqlite.SQLiteRepo
	svc  *xp.Service
	note *fakeNotifier
	user int64
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	d, err := db.New(ctx, "file:"+name+"?mode=memory&cache=shared", nil)
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo := sqlite.New(d, nil)
	uid, err := repo.CreateUser(ctx, &models.User{Name: "Ana", Email: "ana@example.com", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	note := &fakeNotifier{}
	return &fixture{repo: repo, svc: xp.NewService(repo, repo, repo, note, nil), note: note, user: uid}
}

// setXP moves the user to an arbitrary XP total without awarding badges.
func (f *fixture) setXP(t *testing.T, total int) {
	t.Helper()
	ctx := context.Background()
	def, err := f.repo.GetAchievementByKey(ctx, "CONNECTOR")
	if err != nil || def == nil {
		t.Fatalf("GetAchievementByKey: %v", err)
	}
	award := &repository.XPAward{UserID: f.user, AchievementID: def.ID, IsNew: true, EarnCount: 1, XP: total, Level: xp.LevelFor(total), At: 1}
	if err := f.repo.ApplyAward(ctx, award); err != nil {
		t.Fatalf("ApplyAward: %v", err)
	}
}

func TestLevelFor(t *testing.T) {
	tests := map[int]int{-5: 0, 0: 0, 299: 0, 300: 1, 899: 2, 3000: 10}
	for in, want := range tests {
		if got := xp.LevelFor(in); got != want {
			t.Fatalf("LevelFor(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestTriggerEvent_OneShot(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.TriggerEvent(ctx, f.user, xp.KeyWorkStarter, nil)
	if err != nil {
		t.Fatalf("TriggerEvent: %v", err)
	}
	if res.XPGained != 20 || res.TotalXP != 20 || res.Level != 0 || res.LeveledUp || res.Achievement == nil {
		t.Fatalf("unexpected first award %#v", res)
	}

	res, err = f.svc.TriggerEvent(ctx, f.user, xp.KeyWorkStarter, nil)
	if err != nil {
		t.Fatalf("TriggerEvent: %v", err)
	}
	if res.XPGained != 0 || !res.AlreadyEarned || res.TotalXP != 20 {
		t.Fatalf("non-repeatable achievement awarded twice: %#v", res)
	}
	if len(f.note.achievements) != 1 || f.note.achievements[0] != res.Achievement.Title {
		t.Fatalf("expected one achievement notification, got %v", f.note.achievements)
	}

	res, err = f.svc.TriggerEvent(ctx, f.user, "NOT_A_KEY", map[string]any{"x": 1})
	if err != nil || res.XPGained != 0 || res.Achievement != nil {
		t.Fatalf("unknown key should award nothing, got %#v, %v", res, err)
	}

	if _, err := f.svc.TriggerEvent(ctx, 9999, xp.KeyWorkStarter, nil); !errors.Is(err, xp.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestTriggerEvent_RepeatableCapAndBadge(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	var leveled int
	for i := 0; i < 10; i++ {
		res, err := f.svc.TriggerEvent(ctx, f.user, xp.KeyResumeArchivist, nil)
		if err != nil {
			t.Fatalf("TriggerEvent #%d: %v", i, err)
		}
		if res.XPGained != 50 {
			t.Fatalf("award #%d gained %d", i, res.XPGained)
		}
		if res.LeveledUp {
			leveled++
			if len(res.NewBadges) != 1 || res.NewBadges[0].Level != 1 {
				t.Fatalf("expected level 1 badge, got %#v", res.NewBadges)
			}
		}
	}
	if leveled != 1 {
		t.Fatalf("expected exactly one level-up, got %d", leveled)
	}

	res, err := f.svc.TriggerEvent(ctx, f.user, xp.KeyResumeArchivist, nil)
	if err != nil {
		t.Fatalf("TriggerEvent: %v", err)
	}
	if res.XPGained != 0 || res.TotalXP != 500 {
		t.Fatalf("cap of 10 not enforced: %#v", res)
	}

	if len(f.note.achievements) != 10 || len(f.note.levelUps) != 1 || f.note.levelUps[0] != "Bronze Explorer" {
		t.Fatalf("unexpected notifications %v / %v", f.note.achievements, f.note.levelUps)
	}
}

func TestTriggerEvent_MissingBadgeLevelsSkipped(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.setXP(t, 3290)

	res, err := f.svc.TriggerEvent(ctx, f.user, xp.KeyProjectBuilder, nil)
	if err != nil {
		t.Fatalf("TriggerEvent: %v", err)
	}
	if !res.LeveledUp || res.Level != 11 || len(res.NewBadges) != 0 {
		t.Fatalf("level 11 has no badge, got %#v", res)
	}

	res, err = f.svc.TriggerEvent(ctx, f.user, xp.KeyCareerClimber, nil)
	if err != nil {
		t.Fatalf("TriggerEvent: %v", err)
	}
	if res.Level != 11 || res.LeveledUp {
		t.Fatalf("3470 XP is still level 11, got %#v", res)
	}
	res, err = f.svc.TriggerEvent(ctx, f.user, xp.KeySkillMaster, nil)
	if err != nil {
		t.Fatalf("TriggerEvent: %v", err)
	}
	if res.Level != 11 {
		t.Fatalf("3540 XP is level 11, got %d", res.Level)
	}
	res, err = f.svc.TriggerEvent(ctx, f.user, xp.KeyApplicationAce, nil)
	if err != nil {
		t.Fatalf("TriggerEvent: %v", err)
	}
	if res.Level != 11 || res.TotalXP != 3590 {
		t.Fatalf("unexpected totals %#v", res)
	}
	res, err = f.svc.TriggerEvent(ctx, f.user, xp.KeyLaunchpad, nil)
	if err != nil {
		t.Fatalf("TriggerEvent: %v", err)
	}
	if !res.LeveledUp || res.Level != 12 || len(res.NewBadges) != 1 || res.NewBadges[0].Name != "Mythic Master" {
		t.Fatalf("expected Mythic Master at level 12, got %#v", res)
	}
}

func TestTriggerEvent_ConcurrentForOneUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 15)
	for i := 0; i < 15; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.TriggerEvent(ctx, f.user, xp.KeyInterviewInsight, nil); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("TriggerEvent: %v", err)
	}

	u, _ := f.repo.GetByID(ctx, f.user)
	if u.XP != 300 || u.Level != 1 {
		t.Fatalf("expected 300 XP at level 1, got %d at %d", u.XP, u.Level)
	}
	held, _ := f.repo.ListUserAchievements(ctx, f.user)
	if len(held) != 1 || held[0].EarnCount != 15 {
		t.Fatalf("unexpected achievements %#v", held)
	}
}

func TestCheckMilestones(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := f.repo.CreateResume(ctx, &models.Resume{UserID: f.user, Title: "cv"}); err != nil {
			t.Fatalf("CreateResume: %v", err)
		}
	}
	for _, s := range []string{"Go", "SQL", "Docker", "AWS", "Linux"} {
		if _, err := f.repo.CreateSkill(ctx, &models.Skill{UserID: f.user, Name: s}); err != nil {
			t.Fatalf("CreateSkill: %v", err)
		}
	}
	if _, err := f.repo.CreateExperience(ctx, &models.Experience{UserID: f.user, JobTitle: "Engineer"}); err != nil {
		t.Fatalf("CreateExperience: %v", err)
	}

	res, err := f.svc.CheckMilestones(ctx, f.user)
	if err != nil {
		t.Fatalf("CheckMilestones: %v", err)
	}
	// RESUME_ARCHIVIST 50 + SKILL_COLLECTOR 30 + WORK_STARTER 20; no headline/bio yet
	if res.XPGained != 100 || len(res.Awarded) != 3 {
		t.Fatalf("unexpected milestone result %#v", res)
	}

	u, _ := f.repo.GetByID(ctx, f.user)
	u.Headline = "Engineer"
	u.Bio = "Builds things"
	if err := f.repo.UpdateUser(ctx, u); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	res, err = f.svc.CheckMilestones(ctx, f.user)
	if err != nil {
		t.Fatalf("CheckMilestones: %v", err)
	}
	if res.XPGained != 50 || res.Awarded[0].Key != xp.KeyProfilePioneer || res.TotalXP != 150 {
		t.Fatalf("expected only PROFILE_PIONEER, got %#v", res)
	}

	res, err = f.svc.CheckMilestones(ctx, f.user)
	if err != nil || res.XPGained != 0 {
		t.Fatalf("repeated check awarded XP: %#v, %v", res, err)
	}
}

func TestDailyChallenges(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	challenges, err := f.repo.ListDailyChallenges(ctx)
	if err != nil || len(challenges) != 3 {
		t.Fatalf("expected 3 seeded challenges, got %d, %v", len(challenges), err)
	}
	id := challenges[0].ID

	res, err := f.svc.CompleteDailyChallenge(ctx, f.user, id)
	if err != nil || res.XPGained != 30 {
		t.Fatalf("CompleteDailyChallenge = %#v, %v", res, err)
	}
	if _, err := f.svc.CompleteDailyChallenge(ctx, f.user, id); !errors.Is(err, xp.ErrChallengeDone) {
		t.Fatalf("expected ErrChallengeDone, got %v", err)
	}
	if _, err := f.svc.CompleteDailyChallenge(ctx, f.user, 9999); !errors.Is(err, xp.ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound, got %v", err)
	}

	st, err := f.svc.Status(ctx, f.user)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	dc := st.DailyChallenges
	if dc.CompletedToday != 1 || dc.MaxDaily != 3 || !dc.Available[0].Completed || dc.Available[1].Completed {
		t.Fatalf("unexpected daily challenge status %#v", dc)
	}
}

func TestRedeem(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	if _, err := f.svc.Redeem(ctx, f.user, xp.KeyLaunchpad); !errors.Is(err, xp.ErrAchievementNotFound) {
		t.Fatalf("expected ErrAchievementNotFound for unearned, got %v", err)
	}
	if _, err := f.svc.Redeem(ctx, f.user, "NOPE"); !errors.Is(err, xp.ErrAchievementNotFound) {
		t.Fatalf("expected ErrAchievementNotFound for unknown key, got %v", err)
	}
	if _, err := f.svc.TriggerEvent(ctx, f.user, xp.KeyLaunchpad, nil); err != nil {
		t.Fatalf("TriggerEvent: %v", err)
	}
	ua, err := f.svc.Redeem(ctx, f.user, xp.KeyLaunchpad)
	if err != nil || !ua.Claimed || ua.ClaimedAt == nil {
		t.Fatalf("Redeem = %#v, %v", ua, err)
	}
	if _, err := f.svc.Redeem(ctx, f.user, xp.KeyLaunchpad); !errors.Is(err, xp.ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
}

func TestStatus(t *testing.T) {
	zero := xp.ZeroStatus()
	if zero.Level != 0 || zero.DisplayRange != "0/300 XP" || zero.NextLevelXP != 300 || zero.Achievements == nil {
		t.Fatalf("unexpected zero status %#v", zero)
	}

	f := setup(t)
	ctx := context.Background()
	f.setXP(t, 450)
	if _, err := f.svc.TriggerEvent(ctx, f.user, xp.KeyProjectBuilder, nil); err != nil {
		t.Fatalf("TriggerEvent: %v", err)
	}

	st, err := f.svc.Status(ctx, f.user)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.XP != 550 || st.Level != 1 || st.CurrentLevelXP != 300 || st.NextLevelXP != 600 || st.ProgressXP != 250 {
		t.Fatalf("unexpected status %#v", st)
	}
	if st.DisplayRange != "550/600 XP" || int(st.ProgressPercent) != 83 {
		t.Fatalf("unexpected progress %s %.2f", st.DisplayRange, st.ProgressPercent)
	}
	if len(st.Achievements) != 2 || st.CurrentBadge != nil {
		t.Fatalf("badges are only awarded by TriggerEvent level-ups: %#v", st)
	}

	if _, err := f.svc.Status(ctx, 424242); !errors.Is(err, xp.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestDefinitionsProgress(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for _, s := range []string{"Go", "SQL", "Docker", "AWS", "Linux", "Git"} {
		if _, err := f.repo.CreateSkill(ctx, &models.Skill{UserID: f.user, Name: s}); err != nil {
			t.Fatalf("CreateSkill: %v", err)
		}
	}
	if _, err := f.svc.TriggerEvent(ctx, f.user, xp.KeySkillCollector, nil); err != nil {
		t.Fatalf("TriggerEvent: %v", err)
	}

	defs, err := f.svc.Definitions(ctx, f.user)
	if err != nil {
		t.Fatalf("Definitions: %v", err)
	}
	byKey := map[string]xp.DefinitionProgress{}
	for _, d := range defs {
		byKey[d.Key] = d
	}
	if d := byKey[xp.KeySkillCollector]; !d.Earned || d.Progress != (xp.Progress{Current: 5, Target: 5, Percent: 100}) {
		t.Fatalf("unexpected SKILL_COLLECTOR %#v", d)
	}
	if d := byKey[xp.KeySkillMaster]; d.Earned || d.Progress != (xp.Progress{Current: 6, Target: 10, Percent: 60}) {
		t.Fatalf("unexpected SKILL_MASTER %#v", d)
	}
	if d := byKey[xp.KeyAdvisor]; d.Progress.Target != 1 || d.Progress.Percent != 0 {
		t.Fatalf("unexpected ADVISOR progress %#v", d.Progress)
	}

	keys, err := f.svc.Keys(ctx)
	if err != nil || len(keys) != len(defs) {
		t.Fatalf("Keys = %v, %v", keys, err)
	}
}

func TestLeaderboard(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	other, err := f.repo.CreateUser(ctx, &models.User{Name: "Bo", Email: "bo@example.com", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	f.setXP(t, 650)
	if _, err := f.svc.TriggerEvent(ctx, other, xp.KeyWorkStarter, nil); err != nil {
		t.Fatalf("TriggerEvent: %v", err)
	}

	board, err := f.svc.Leaderboard(ctx, 0)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(board) != 2 || board[0].UserID != f.user || board[0].Rank != 1 || board[1].Rank != 2 {
		t.Fatalf("unexpected leaderboard %#v", board)
	}
	if board[0].CurrentBadge == nil || board[0].CurrentBadge.Level != 2 || board[1].CurrentBadge != nil {
		t.Fatalf("unexpected badges %#v / %#v", board[0].CurrentBadge, board[1].CurrentBadge)
	}

	badges, err := f.svc.Badges(ctx)
	if err != nil || len(badges) != 13 || badges[0].Level != 1 {
		t.Fatalf("Badges = %d, %v", len(badges), err)
	}
}
