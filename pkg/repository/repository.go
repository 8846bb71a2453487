package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/garnizeh/careerhub/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.
//
// Getters return (nil, nil) when the row does not exist. Updates and deletes
// scoped to an owner return ErrNotFound when no row matched.

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

type UserRepo interface {
	CreateUser(ctx context.Context, u *models.User) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	TouchLastLogin(ctx context.Context, id int64) error
	SetCVParsed(ctx context.Context, id int64, cv json.RawMessage) error
	ListUsers(ctx context.Context, limit, offset int) ([]models.User, int64, error)
}

type TokenRepo interface {
	CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error
	GetRefreshToken(ctx context.Context, hash string) (*models.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, hash string) error
	DeleteUserRefreshTokens(ctx context.Context, userID int64) error
	CreatePasswordReset(ctx context.Context, pr *models.PasswordReset) (int64, error)
	GetActivePasswordReset(ctx context.Context, userID int64, now int64) (*models.PasswordReset, error)
	MarkPasswordResetUsed(ctx context.Context, id int64) error
}

type ProfileRepo interface {
	CreateSkill(ctx context.Context, s *models.Skill) (int64, error)
	ListSkills(ctx context.Context, userID int64) ([]models.Skill, error)
	DeleteSkill(ctx context.Context, userID, id int64) error
	CreateExperience(ctx context.Context, e *models.Experience) (int64, error)
	ListExperiences(ctx context.Context, userID int64) ([]models.Experience, error)
	DeleteExperience(ctx context.Context, userID, id int64) error
	CreateEducation(ctx context.Context, e *models.Education) (int64, error)
	ListEducations(ctx context.Context, userID int64) ([]models.Education, error)
	DeleteEducation(ctx context.Context, userID, id int64) error
	CreateProject(ctx context.Context, p *models.Project) (int64, error)
	ListProjects(ctx context.Context, userID int64) ([]models.Project, error)
	DeleteProject(ctx context.Context, userID, id int64) error
	CreateLanguage(ctx context.Context, l *models.Language) (int64, error)
	ListLanguages(ctx context.Context, userID int64) ([]models.Language, error)
	DeleteLanguage(ctx context.Context, userID, id int64) error
	CreateSocialLink(ctx context.Context, l *models.SocialLink) (int64, error)
	ListSocialLinks(ctx context.Context, userID int64) ([]models.SocialLink, error)
	DeleteSocialLink(ctx context.Context, userID, id int64) error
	CreateCertification(ctx context.Context, c *models.Certification) (int64, error)
	ListCertifications(ctx context.Context, userID int64) ([]models.Certification, error)
	DeleteCertification(ctx context.Context, userID, id int64) error
	CreateAward(ctx context.Context, a *models.Award) (int64, error)
	ListAwards(ctx context.Context, userID int64) ([]models.Award, error)
	DeleteAward(ctx context.Context, userID, id int64) error
	CreateVolunteerWork(ctx context.Context, v *models.VolunteerWork) (int64, error)
	ListVolunteerWork(ctx context.Context, userID int64) ([]models.VolunteerWork, error)
	DeleteVolunteerWork(ctx context.Context, userID, id int64) error
	// Update methods match on both id and user id.
	UpdateSkill(ctx context.Context, s *models.Skill) error
	UpdateExperience(ctx context.Context, e *models.Experience) error
	UpdateEducation(ctx context.Context, e *models.Education) error
	UpdateProject(ctx context.Context, p *models.Project) error
	UpdateLanguage(ctx context.Context, l *models.Language) error
	UpdateSocialLink(ctx context.Context, l *models.SocialLink) error
	UpdateCertification(ctx context.Context, c *models.Certification) error
	UpdateAward(ctx context.Context, a *models.Award) error
	UpdateVolunteerWork(ctx context.Context, v *models.VolunteerWork) error
	// ReplaceProfileSections swaps every CV-derived section of the user in one transaction.
	ReplaceProfileSections(ctx context.Context, userID int64, s *models.ProfileSections) error
	ProfileCounts(ctx context.Context, userID int64) (*models.ProfileCounts, error)
}

type CompanyRepo interface {
	// CreateCompany inserts the company and links the owner to it.
	CreateCompany(ctx context.Context, c *models.Company) (int64, error)
	GetCompany(ctx context.Context, id int64) (*models.Company, error)
	GetCompanyBySlug(ctx context.Context, slug string) (*models.Company, error)
	GetCompanyByOwner(ctx context.Context, ownerID int64) (*models.Company, error)
	UpdateCompany(ctx context.Context, c *models.Company) error
	ListCompanies(ctx context.Context, query string, limit, offset int) ([]models.Company, int64, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
}

type JobRepo interface {
	CreateJob(ctx context.Context, j *models.Job) (int64, error)
	GetJob(ctx context.Context, id int64) (*models.Job, error)
	UpdateJob(ctx context.Context, j *models.Job) error
	DeleteJob(ctx context.Context, id int64) error
	ListJobs(ctx context.Context, f models.JobFilter) ([]models.Job, int64, error)
}

// ApplicationFilter narrows application listings; zero values are ignored.
type ApplicationFilter struct {
	UserID int64
	JobID  int64
	Status string
	Limit  int
	Offset int
}

type ApplicationRepo interface {
	CreateApplication(ctx context.Context, a *models.JobApplication) (int64, error)
	GetApplication(ctx context.Context, id int64) (*models.JobApplication, error)
	UpdateApplication(ctx context.Context, a *models.JobApplication) error
	DeleteApplication(ctx context.Context, id int64) error
	ListApplications(ctx context.Context, f ApplicationFilter) ([]models.JobApplication, int64, error)
	// ApplicationStats aggregates over every user when userID is 0.
	ApplicationStats(ctx context.Context, userID int64) (*models.ApplicationStats, error)
}

type ResumeRepo interface {
	CreateResume(ctx context.Context, r *models.Resume) (int64, error)
	GetResume(ctx context.Context, id int64) (*models.Resume, error)
	ListResumesByUser(ctx context.Context, userID int64) ([]models.Resume, error)
	UpdateResume(ctx context.Context, r *models.Resume) error
	DeleteResume(ctx context.Context, id int64) error
	AttachResumeFile(ctx context.Context, id int64, key, name, mime string, size int64) error
	SetResumeText(ctx context.Context, id int64, text string) error
	SetResumeReview(ctx context.Context, id int64, review string, at int64) error
	SetCareerAdvice(ctx context.Context, id int64, advice json.RawMessage) error
	SetResumeShare(ctx context.Context, id int64, slug *string, public bool, expiry *int64) error
	GetResumeBySlug(ctx context.Context, slug string) (*models.Resume, error)
	IncrementShareViews(ctx context.Context, id int64, at int64) error
}

// ResumeSectionRepo stores the builder sections of a resume and the
// suggestions made against them. Ownership is checked by the caller
// through the parent resume.
type ResumeSectionRepo interface {
	CreateResumeSection(ctx context.Context, s *models.ResumeSection) (int64, error)
	CreateResumeSections(ctx context.Context, resumeID int64, sections []models.ResumeSection) error
	GetResumeSection(ctx context.Context, id int64) (*models.ResumeSection, error)
	ListResumeSections(ctx context.Context, resumeID int64) ([]models.ResumeSection, error)
	UpdateResumeSection(ctx context.Context, s *models.ResumeSection) error
	DeleteResumeSection(ctx context.Context, id int64) error
	// ReorderResumeSections applies all orders or none. An id outside the
	// resume yields ErrNotFound.
	ReorderResumeSections(ctx context.Context, resumeID int64, orders map[int64]int) error

	CreateResumeSuggestion(ctx context.Context, s *models.ResumeSuggestion) (int64, error)
	GetResumeSuggestion(ctx context.Context, id int64) (*models.ResumeSuggestion, error)
	ListResumeSuggestions(ctx context.Context, resumeID int64, status string, sectionID *int64) ([]models.ResumeSuggestion, error)
	// SetSuggestionStatus moves a suggestion to status. Accepting stamps
	// applied_at and copies the suggested content into its section.
	SetSuggestionStatus(ctx context.Context, id int64, status string, at int64) error
	DeleteResumeSuggestion(ctx context.Context, id int64) error
}

// XPAward is the state change produced by one achievement event.
type XPAward struct {
	UserID        int64
	AchievementID int64
	// IsNew inserts the user achievement; otherwise EarnCount is written and claimed reset.
	IsNew     bool
	EarnCount int
	XP        int
	Level     int
	BadgeIDs  []int64
	At        int64
}

type RecommendationRepo interface {
	// CreateRecommendation returns ErrConflict when the user already has one for the job.
	CreateRecommendation(ctx context.Context, rec *models.JobRecommendation) (int64, error)
	GetRecommendation(ctx context.Context, id int64) (*models.JobRecommendation, error)
	ListRecommendations(ctx context.Context, limit, offset int) ([]models.JobRecommendation, int64, error)
	ListAddedRecommendations(ctx context.Context, userID int64) ([]models.JobRecommendation, error)
	// SearchRecommendations matches keyword case-insensitively against the
	// description. A zero userID searches every user.
	SearchRecommendations(ctx context.Context, userID int64, keyword string) ([]models.JobRecommendation, error)
	SetRecommendationStatus(ctx context.Context, id int64, status string) error
	DeleteRecommendation(ctx context.Context, id int64) error
}

type PracticeRepo interface {
	// CreatePracticeInterview stores the interview with its questions and
	// any inline answers, filling in the generated ids.
	CreatePracticeInterview(ctx context.Context, iv *models.PracticeInterview) (int64, error)
	// GetPracticeInterview loads the full tree of questions, answers, rates and feedbacks.
	GetPracticeInterview(ctx context.Context, id int64) (*models.PracticeInterview, error)
	ListPracticeInterviews(ctx context.Context, userID int64) ([]models.PracticeInterview, error)
	// GetInterviewAnswer also reports the interview the answer belongs to.
	GetInterviewAnswer(ctx context.Context, id int64) (*models.InterviewAnswer, int64, error)
	// CreateInterviewAnswers stores all answers or none. A question that is
	// already answered yields ErrConflict.
	CreateInterviewAnswers(ctx context.Context, answers []models.InterviewAnswer) ([]models.InterviewAnswer, error)
	CreateInterviewRate(ctx context.Context, rate *models.InterviewRate) (int64, error)
	CreateInterviewFeedback(ctx context.Context, fb *models.InterviewFeedback) (int64, error)
}

type XPRepo interface {
	GetAchievementByKey(ctx context.Context, key string) (*models.AchievementDefinition, error)
	ListAchievementDefinitions(ctx context.Context) ([]models.AchievementDefinition, error)
	GetUserAchievement(ctx context.Context, userID, achievementID int64) (*models.UserAchievement, error)
	ListUserAchievements(ctx context.Context, userID int64) ([]models.UserAchievement, error)
	ApplyAward(ctx context.Context, a *XPAward) error
	ClaimAchievement(ctx context.Context, userID, achievementID int64, at int64) error
	ListBadges(ctx context.Context) ([]models.BadgeDefinition, error)
	ListUserBadges(ctx context.Context, userID int64) ([]models.UserBadge, error)
	ListDailyChallenges(ctx context.Context) ([]models.DailyChallenge, error)
	GetDailyChallenge(ctx context.Context, id int64) (*models.DailyChallenge, error)
	CompletedChallengeIDs(ctx context.Context, userID int64, day string) ([]int64, error)
	// CreateChallengeCompletion returns ErrConflict when the challenge was already completed that day.
	CreateChallengeCompletion(ctx context.Context, userID, challengeID int64, day string, at int64) error
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

type NotificationRepo interface {
	CreateNotification(ctx context.Context, n *models.Notification) (int64, error)
	GetNotification(ctx context.Context, id int64) (*models.Notification, error)
	ListNotifications(ctx context.Context, userID int64, f models.NotificationFilter) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	MarkRead(ctx context.Context, userID, id int64, at int64) error
	MarkAllRead(ctx context.Context, userID int64, at int64) (int64, error)
	Archive(ctx context.Context, userID, id int64) error
	DeleteNotification(ctx context.Context, userID, id int64) error
}

type VoiceRepo interface {
	CreateVoiceSession(ctx context.Context, s *models.VoiceSession) error
	GetVoiceSession(ctx context.Context, id string) (*models.VoiceSession, error)
	LatestVoiceSession(ctx context.Context, userID int64) (*models.VoiceSession, error)
	ListVoiceSessions(ctx context.Context, userID int64) ([]models.VoiceSession, error)
	UpdateVoiceStatus(ctx context.Context, id, status string) error
	// CompleteVoiceSession stores the report and reports whether this was the first completion.
	CompleteVoiceSession(ctx context.Context, id string, report json.RawMessage, score int, at int64) (bool, error)
}
