package models

import "encoding/json"

// Domain models matching the database schema in db/migrations/0001_init.sql.
// Timestamps are unix milliseconds.

// Roles
const (
	RoleUser     = "USER"
	RoleBusiness = "BUSINESS"
	RoleAdmin    = "ADMIN"
)

type User struct {
	ID           int64           `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	Email        string          `json:"email" db:"email"`
	PasswordHash string          `json:"-" db:"password_hash"`
	Role         string          `json:"role" db:"role"`
	Headline     string          `json:"headline" db:"headline"`
	Bio          string          `json:"bio" db:"bio"`
	Location     string          `json:"location" db:"location"`
	Phone        string          `json:"phone" db:"phone"`
	ProfileImage string          `json:"profileImage" db:"profile_image"`
	CompanyID    *int64          `json:"companyId,omitempty" db:"company_id"`
	XP           int             `json:"xp" db:"xp"`
	Level        int             `json:"level" db:"level"`
	IsActive     bool            `json:"isActive" db:"is_active"`
	CVParsed     json.RawMessage `json:"cvParsed,omitempty" db:"cv_parsed"`
	LastLogin    *int64          `json:"lastLogin,omitempty" db:"last_login"`
	Created      int64           `json:"created" db:"created"`
	Updated      int64           `json:"updated" db:"updated"`
}

// PublicUser is the subset of a user exposed to other users.
type PublicUser struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Headline     string `json:"headline"`
	Location     string `json:"location"`
	ProfileImage string `json:"profileImage"`
	XP           int    `json:"xp"`
	Level        int    `json:"level"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Headline: u.Headline, Location: u.Location, ProfileImage: u.ProfileImage, XP: u.XP, Level: u.Level}
}

type RefreshToken struct {
	ID        int64  `json:"id" db:"id"`
	UserID    int64  `json:"userId" db:"user_id"`
	TokenHash string `json:"-" db:"token_hash"`
	ExpiresAt int64  `json:"expiresAt" db:"expires_at"`
	Created   int64  `json:"created" db:"created"`
}

type PasswordReset struct {
	ID        int64  `json:"id" db:"id"`
	UserID    int64  `json:"userId" db:"user_id"`
	CodeHash  string `json:"-" db:"code_hash"`
	ExpiresAt int64  `json:"expiresAt" db:"expires_at"`
	Used      bool   `json:"used" db:"used"`
	Created   int64  `json:"created" db:"created"`
}

// Profile sections

type Skill struct {
	ID        int64  `json:"id" db:"id"`
	UserID    int64  `json:"userId" db:"user_id"`
	Name      string `json:"name" db:"name"`
	Level     string `json:"level" db:"level"`
	Category  string `json:"category" db:"category"`
	SortOrder int    `json:"order" db:"sort_order"`
	Created   int64  `json:"created" db:"created"`
}

type Experience struct {
	ID          int64  `json:"id" db:"id"`
	UserID      int64  `json:"userId" db:"user_id"`
	JobTitle    string `json:"jobTitle" db:"job_title"`
	Company     string `json:"company" db:"company"`
	Location    string `json:"location" db:"location"`
	StartDate   string `json:"startDate" db:"start_date"`
	EndDate     string `json:"endDate" db:"end_date"`
	IsCurrent   bool   `json:"isCurrent" db:"is_current"`
	Description string `json:"description" db:"description"`
	SortOrder   int    `json:"order" db:"sort_order"`
	Created     int64  `json:"created" db:"created"`
}

type Education struct {
	ID           int64  `json:"id" db:"id"`
	UserID       int64  `json:"userId" db:"user_id"`
	Degree       string `json:"degree" db:"degree"`
	FieldOfStudy string `json:"fieldOfStudy" db:"field_of_study"`
	Institution  string `json:"institution" db:"institution"`
	Location     string `json:"location" db:"location"`
	StartDate    string `json:"startDate" db:"start_date"`
	EndDate      string `json:"endDate" db:"end_date"`
	GPA          string `json:"gpa" db:"gpa"`
	SortOrder    int    `json:"order" db:"sort_order"`
	Created      int64  `json:"created" db:"created"`
}

type Project struct {
	ID           int64  `json:"id" db:"id"`
	UserID       int64  `json:"userId" db:"user_id"`
	Name         string `json:"name" db:"name"`
	Description  string `json:"description" db:"description"`
	Role         string `json:"role" db:"role"`
	URL          string `json:"url" db:"url"`
	Technologies string `json:"technologies" db:"technologies"`
	StartDate    string `json:"startDate" db:"start_date"`
	EndDate      string `json:"endDate" db:"end_date"`
	SortOrder    int    `json:"order" db:"sort_order"`
	Created      int64  `json:"created" db:"created"`
}

type Language struct {
	ID          int64  `json:"id" db:"id"`
	UserID      int64  `json:"userId" db:"user_id"`
	Language    string `json:"language" db:"language"`
	Proficiency string `json:"proficiency" db:"proficiency"`
	SortOrder   int    `json:"order" db:"sort_order"`
}

type SocialLink struct {
	ID        int64  `json:"id" db:"id"`
	UserID    int64  `json:"userId" db:"user_id"`
	Type      string `json:"type" db:"type"`
	URL       string `json:"url" db:"url"`
	IsPrimary bool   `json:"isPrimary" db:"is_primary"`
	SortOrder int    `json:"order" db:"sort_order"`
}

type Certification struct {
	ID            int64  `json:"id" db:"id"`
	UserID        int64  `json:"userId" db:"user_id"`
	Name          string `json:"name" db:"name"`
	Issuer        string `json:"issuer" db:"issuer"`
	IssueDate     string `json:"issueDate" db:"issue_date"`
	ExpiryDate    string `json:"expiryDate" db:"expiry_date"`
	CredentialID  string `json:"credentialId" db:"credential_id"`
	CredentialURL string `json:"credentialUrl" db:"credential_url"`
	SortOrder     int    `json:"order" db:"sort_order"`
	Created       int64  `json:"created" db:"created"`
}

type Award struct {
	ID          int64  `json:"id" db:"id"`
	UserID      int64  `json:"userId" db:"user_id"`
	Title       string `json:"title" db:"title"`
	Issuer      string `json:"issuer" db:"issuer"`
	Date        string `json:"date" db:"date"`
	Description string `json:"description" db:"description"`
	SortOrder   int    `json:"order" db:"sort_order"`
	Created     int64  `json:"created" db:"created"`
}

type VolunteerWork struct {
	ID           int64  `json:"id" db:"id"`
	UserID       int64  `json:"userId" db:"user_id"`
	Role         string `json:"role" db:"role"`
	Organization string `json:"organization" db:"organization"`
	Location     string `json:"location" db:"location"`
	StartDate    string `json:"startDate" db:"start_date"`
	EndDate      string `json:"endDate" db:"end_date"`
	IsCurrent    bool   `json:"isCurrent" db:"is_current"`
	Description  string `json:"description" db:"description"`
	SortOrder    int    `json:"order" db:"sort_order"`
	Created      int64  `json:"created" db:"created"`
}

// ProfileSections groups the rows produced from a parsed CV.
type ProfileSections struct {
	Skills         []Skill         `json:"skills"`
	Experiences    []Experience    `json:"experiences"`
	Educations     []Education     `json:"educations"`
	Projects       []Project       `json:"projects"`
	Languages      []Language      `json:"languages"`
	SocialLinks    []SocialLink    `json:"socialLinks"`
	Certifications []Certification `json:"certifications"`
	Awards         []Award         `json:"awards"`
	VolunteerWork  []VolunteerWork `json:"volunteerWork"`
}

// ProfileCounts feeds milestone checks and progress computation.
type ProfileCounts struct {
	Skills         int  `json:"skills"`
	Experiences    int  `json:"experiences"`
	Projects       int  `json:"projects"`
	Resumes        int  `json:"resumes"`
	Applications   int  `json:"applications"`
	Interviews     int  `json:"interviews"`
	HasHeadlineBio bool `json:"hasHeadlineBio"`
}

// Companies and jobs

type Company struct {
	ID             int64             `json:"id" db:"id"`
	OwnerID        *int64            `json:"ownerId,omitempty" db:"owner_id"`
	Name           string            `json:"name" db:"name"`
	Slug           string            `json:"slug" db:"slug"`
	Industry       string            `json:"industry" db:"industry"`
	Tagline        string            `json:"tagline" db:"tagline"`
	Description    string            `json:"description" db:"description"`
	Website        string            `json:"website" db:"website"`
	LogoURL        string            `json:"logoUrl" db:"logo_url"`
	BannerURL      string            `json:"bannerUrl" db:"banner_url"`
	CompanySize    string            `json:"companySize" db:"company_size"`
	Locations      []string          `json:"locations" db:"locations"`
	Benefits       []string          `json:"benefits" db:"benefits"`
	Values         []string          `json:"values" db:"company_values"`
	About          string            `json:"about" db:"about"`
	SEOTitle       string            `json:"seoTitle" db:"seo_title"`
	SEODescription string            `json:"seoDescription" db:"seo_description"`
	SocialLinks    map[string]string `json:"socialLinks" db:"social_links"`
	Created        int64             `json:"created" db:"created"`
	Updated        int64             `json:"updated" db:"updated"`
}

// Job types, experience levels and statuses.
const (
	JobStatusOpen   = "OPEN"
	JobStatusClosed = "CLOSED"
	JobStatusPaused = "PAUSED"
)

var (
	JobTypes         = []string{"FULL_TIME", "PART_TIME", "INTERNSHIP", "CONTRACT", "FREELANCE"}
	ExperienceLevels = []string{"JUNIOR", "MID", "SENIOR", "LEAD"}
	JobStatuses      = []string{JobStatusOpen, JobStatusClosed, JobStatusPaused}
)

type Job struct {
	ID              int64  `json:"id" db:"id"`
	CompanyID       *int64 `json:"companyId,omitempty" db:"company_id"`
	PostedBy        *int64 `json:"postedBy,omitempty" db:"posted_by"`
	Title           string `json:"title" db:"title"`
	CompanyName     string `json:"companyName" db:"company_name"`
	Location        string `json:"location" db:"location"`
	Type            string `json:"type" db:"type"`
	Description     string `json:"description" db:"description"`
	Requirements    string `json:"requirements" db:"requirements"`
	Benefits        string `json:"benefits" db:"benefits"`
	SalaryMin       *int64 `json:"salaryMin,omitempty" db:"salary_min"`
	SalaryMax       *int64 `json:"salaryMax,omitempty" db:"salary_max"`
	Currency        string `json:"currency" db:"currency"`
	ExperienceLevel string `json:"experienceLevel" db:"experience_level"`
	Remote          bool   `json:"remote" db:"remote"`
	Status          string `json:"status" db:"status"`
	ExternalURL     string `json:"externalUrl" db:"external_url"`
	PostedAt        int64  `json:"postedAt" db:"posted_at"`
	ExpiresAt       *int64 `json:"expiresAt,omitempty" db:"expires_at"`
	Created         int64  `json:"created" db:"created"`
	Updated         int64  `json:"updated" db:"updated"`
}

// JobFilter narrows job listings.
type JobFilter struct {
	Query           string
	Type            string
	ExperienceLevel string
	Status          string
	CompanyID       int64
	Remote          *bool
	Limit           int
	Offset          int
}

// Application statuses shown as kanban columns.
const (
	ApplicationApplied   = "applied"
	ApplicationInterview = "interview"
	ApplicationOnHold    = "on-hold"
	ApplicationRejected  = "rejected"
	ApplicationOffer     = "offer"
)

var ApplicationStatuses = []string{ApplicationApplied, ApplicationInterview, ApplicationOnHold, ApplicationRejected, ApplicationOffer}

type JobApplication struct {
	ID              int64  `json:"id" db:"id"`
	UserID          int64  `json:"userId" db:"user_id"`
	JobID           *int64 `json:"jobId,omitempty" db:"job_id"`
	JobTitle        string `json:"jobTitle" db:"job_title"`
	CompanyName     string `json:"companyName" db:"company_name"`
	Location        string `json:"location" db:"location"`
	JobURL          string `json:"jobUrl" db:"job_url"`
	Salary          *int64 `json:"salary,omitempty" db:"salary"`
	JobType         string `json:"jobType" db:"job_type"`
	ExperienceLevel string `json:"experienceLevel" db:"experience_level"`
	Status          string `json:"status" db:"status"`
	Notes           string `json:"notes" db:"notes"`
	AppliedAt       int64  `json:"appliedAt" db:"applied_at"`
	Created         int64  `json:"created" db:"created"`
	Updated         int64  `json:"updated" db:"updated"`
}

// Source is "internal" for applications to jobs posted on the platform.
func (a *JobApplication) Source() string {
	if a.JobID != nil {
		return "internal"
	}
	return "external"
}

type ApplicationStats struct {
	Total    int            `json:"total"`
	External int            `json:"external"`
	Internal int            `json:"internal"`
	ByStatus map[string]int `json:"byStatus"`
}

// Resumes

type Resume struct {
	ID             int64           `json:"id" db:"id"`
	UserID         int64           `json:"userId" db:"user_id"`
	Title          string          `json:"title" db:"title"`
	Data           json.RawMessage `json:"data" db:"data"`
	FileKey        string          `json:"-" db:"file_key"`
	FileName       string          `json:"fileName" db:"file_name"`
	MimeType       string          `json:"mimeType" db:"mime_type"`
	FileSize       int64           `json:"fileSize" db:"file_size"`
	ExtractedText  string          `json:"extractedText,omitempty" db:"extracted_text"`
	Review         string          `json:"review,omitempty" db:"review"`
	LastReviewedAt *int64          `json:"lastReviewedAt,omitempty" db:"last_reviewed_at"`
	CareerAdvice   json.RawMessage `json:"careerAdvice,omitempty" db:"career_advice"`
	ShareSlug      *string         `json:"shareSlug,omitempty" db:"share_slug"`
	IsPublic       bool            `json:"isPublic" db:"is_public"`
	ShareExpiry    *int64          `json:"shareExpiry,omitempty" db:"share_expiry"`
	ShareViews     int             `json:"shareViews" db:"share_views"`
	LastViewedAt   *int64          `json:"lastViewedAt,omitempty" db:"last_viewed_at"`
	Created        int64           `json:"created" db:"created"`
	Updated        int64           `json:"updated" db:"updated"`
}

// Resume section types.
const (
	SectionProfile        = "PROFILE"
	SectionSummary        = "SUMMARY"
	SectionExperience     = "EXPERIENCE"
	SectionEducation      = "EDUCATION"
	SectionSkills         = "SKILLS"
	SectionCertifications = "CERTIFICATIONS"
	SectionProjects       = "PROJECTS"
	SectionLanguages      = "LANGUAGES"
	SectionCustom         = "CUSTOM"
)

// ResumeSection is one ordered block of a resume in the builder.
type ResumeSection struct {
	ID        int64           `json:"id" db:"id"`
	ResumeID  int64           `json:"resumeId" db:"resume_id"`
	Type      string          `json:"type" db:"type"`
	Title     string          `json:"title" db:"title"`
	Content   json.RawMessage `json:"content" db:"content"`
	SortOrder int             `json:"order" db:"sort_order"`
	Created   int64           `json:"created" db:"created"`
	Updated   int64           `json:"updated" db:"updated"`

	// Suggestions holds the pending suggestions for this section when listed.
	Suggestions []ResumeSuggestion `json:"suggestions,omitempty" db:"-"`
}

const (
	SuggestionPending  = "pending"
	SuggestionAccepted = "accepted"
	SuggestionRejected = "rejected"
)

type ResumeSuggestion struct {
	ID        int64           `json:"id" db:"id"`
	ResumeID  int64           `json:"resumeId" db:"resume_id"`
	SectionID *int64          `json:"sectionId,omitempty" db:"section_id"`
	Type      string          `json:"type" db:"type"`
	Original  json.RawMessage `json:"original" db:"original"`
	Suggested json.RawMessage `json:"suggested" db:"suggested"`
	Reason    string          `json:"reason" db:"reason"`
	Status    string          `json:"status" db:"status"`
	AppliedAt *int64          `json:"appliedAt,omitempty" db:"applied_at"`
	Created   int64           `json:"created" db:"created"`
}

// Recommendation list states.
const (
	RecommendationNotAdded = "NOT_ADDED"
	RecommendationAdded    = "ADDED"
)

type JobRecommendation struct {
	ID          int64  `json:"id" db:"id"`
	UserID      int64  `json:"userId" db:"user_id"`
	JobID       int64  `json:"jobId" db:"job_id"`
	MatchScore  int    `json:"matchScore" db:"match_score"`
	Description string `json:"description" db:"description"`
	Status      string `json:"status" db:"status"`
	GeneratedAt int64  `json:"generatedAt" db:"generated_at"`
}

const (
	DifficultyEasy   = "EASY"
	DifficultyMedium = "MEDIUM"
	DifficultyHard   = "HARD"

	CategoryTechnical  = "TECHNICAL"
	CategoryBehavioral = "BEHAVIORAL"
	CategoryGeneral    = "GENERAL"
)

// PracticeInterview is a text interview. Get returns it with the full
// question, answer, rating and feedback tree.
type PracticeInterview struct {
	ID              int64               `json:"id" db:"id"`
	UserID          int64               `json:"userId" db:"user_id"`
	Description     string              `json:"description" db:"description"`
	DurationMinutes int                 `json:"durationMinutes" db:"duration_minutes"`
	QuestionCount   int                 `json:"nbrQuestions" db:"question_count"`
	Difficulty      string              `json:"difficulty" db:"difficulty"`
	Category        string              `json:"category" db:"category"`
	FocusArea       string              `json:"focusArea,omitempty" db:"focus_area"`
	Created         int64               `json:"createdAt" db:"created"`
	Questions       []InterviewQuestion `json:"questions"`
	Rates           []InterviewRate     `json:"rates"`
	Feedbacks       []InterviewFeedback `json:"feedbacks"`
}

type InterviewQuestion struct {
	ID          int64            `json:"id" db:"id"`
	InterviewID int64            `json:"interviewId" db:"interview_id"`
	Content     string           `json:"content" db:"content"`
	SortOrder   int              `json:"order" db:"sort_order"`
	Answer      *InterviewAnswer `json:"answer"`
}

type InterviewAnswer struct {
	ID         int64               `json:"id" db:"id"`
	QuestionID int64               `json:"questionId" db:"question_id"`
	Content    string              `json:"content" db:"content"`
	Created    int64               `json:"createdAt" db:"created"`
	Rates      []InterviewRate     `json:"rates,omitempty"`
	Feedbacks  []InterviewFeedback `json:"feedbacks,omitempty"`
}

// InterviewRate targets either a whole interview or one answer.
type InterviewRate struct {
	ID          int64  `json:"id" db:"id"`
	InterviewID *int64 `json:"interviewId,omitempty" db:"interview_id"`
	AnswerID    *int64 `json:"answerId,omitempty" db:"answer_id"`
	AuthorID    *int64 `json:"authorId,omitempty" db:"author_id"`
	Value       int    `json:"value" db:"value"`
	Created     int64  `json:"createdAt" db:"created"`
}

type InterviewFeedback struct {
	ID          int64  `json:"id" db:"id"`
	InterviewID *int64 `json:"interviewId,omitempty" db:"interview_id"`
	AnswerID    *int64 `json:"answerId,omitempty" db:"answer_id"`
	AuthorID    *int64 `json:"authorId,omitempty" db:"author_id"`
	Content     string `json:"content" db:"content"`
	Created     int64  `json:"createdAt" db:"created"`
}

// Gamification

type AchievementDefinition struct {
	ID             int64  `json:"id" db:"id"`
	Key            string `json:"key" db:"key"`
	Title          string `json:"title" db:"title"`
	Description    string `json:"description" db:"description"`
	Category       string `json:"category" db:"category"`
	Icon           string `json:"icon" db:"icon"`
	XPReward       int    `json:"xpReward" db:"xp_reward"`
	Repeatable     bool   `json:"isRepeatable" db:"repeatable"`
	MaxRepeats     int    `json:"maxRepeats" db:"max_repeats"`
	ConditionType  string `json:"conditionType,omitempty" db:"condition_type"`
	ConditionValue int    `json:"conditionValue,omitempty" db:"condition_value"`
	IsActive       bool   `json:"isActive" db:"is_active"`
}

type UserAchievement struct {
	ID            int64                  `json:"id" db:"id"`
	UserID        int64                  `json:"userId" db:"user_id"`
	AchievementID int64                  `json:"achievementId" db:"achievement_id"`
	EarnCount     int                    `json:"earnCount" db:"earn_count"`
	Claimed       bool                   `json:"claimed" db:"claimed"`
	ClaimedAt     *int64                 `json:"claimedAt,omitempty" db:"claimed_at"`
	EarnedAt      int64                  `json:"earnedAt" db:"earned_at"`
	Updated       int64                  `json:"updated" db:"updated"`
	Achievement   *AchievementDefinition `json:"achievement,omitempty"`
}

type BadgeDefinition struct {
	ID          int64  `json:"id" db:"id"`
	Level       int    `json:"level" db:"level"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
	Color       string `json:"color" db:"color"`
	Icon        string `json:"icon" db:"icon"`
}

type UserBadge struct {
	ID        int64            `json:"id" db:"id"`
	UserID    int64            `json:"userId" db:"user_id"`
	BadgeID   int64            `json:"badgeId" db:"badge_id"`
	AwardedAt int64            `json:"awardedAt" db:"awarded_at"`
	Badge     *BadgeDefinition `json:"badge,omitempty"`
}

type DailyChallenge struct {
	ID             int64  `json:"id" db:"id"`
	Key            string `json:"key" db:"key"`
	Title          string `json:"title" db:"title"`
	Description    string `json:"description" db:"description"`
	AchievementKey string `json:"achievementKey" db:"achievement_key"`
	XPReward       int    `json:"xpReward" db:"xp_reward"`
	IsActive       bool   `json:"isActive" db:"is_active"`
}

type LeaderboardEntry struct {
	Rank         int              `json:"rank"`
	UserID       int64            `json:"userId"`
	Name         string           `json:"name"`
	ProfileImage string           `json:"profileImage"`
	XP           int              `json:"xp"`
	Level        int              `json:"level"`
	CurrentBadge *BadgeDefinition `json:"currentBadge"`
}

// Notifications

const (
	NotificationAchievement       = "ACHIEVEMENT"
	NotificationSystem            = "SYSTEM"
	NotificationApplicationUpdate = "APPLICATION_UPDATE"
	NotificationMessage           = "MESSAGE"

	PriorityLow    = "LOW"
	PriorityNormal = "NORMAL"
	PriorityHigh   = "HIGH"
)

type Notification struct {
	ID         int64           `json:"id" db:"id"`
	UserID     int64           `json:"userId" db:"user_id"`
	Type       string          `json:"type" db:"type"`
	Priority   string          `json:"priority" db:"priority"`
	Title      string          `json:"title" db:"title"`
	Message    string          `json:"message" db:"message"`
	Link       string          `json:"link,omitempty" db:"link"`
	Metadata   json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	IsRead     bool            `json:"isRead" db:"is_read"`
	ReadAt     *int64          `json:"readAt,omitempty" db:"read_at"`
	IsArchived bool            `json:"isArchived" db:"is_archived"`
	Created    int64           `json:"createdAt" db:"created"`
}

type NotificationFilter struct {
	IncludeRead     bool
	IncludeArchived bool
	Limit           int
}

// Voice interviews

const (
	VoiceStatusActive    = "active"
	VoiceStatusEnded     = "ended"
	VoiceStatusCompleted = "completed"
)

type VoiceSession struct {
	ID             string          `json:"sessionId" db:"id"`
	UserID         int64           `json:"userId" db:"user_id"`
	StreamURL      string          `json:"streamUrl" db:"stream_url"`
	Status         string          `json:"status" db:"status"`
	CVData         json.RawMessage `json:"cvData,omitempty" db:"cv_data"`
	JobDescription json.RawMessage `json:"jobDescription,omitempty" db:"job_description"`
	Report         json.RawMessage `json:"report,omitempty" db:"report"`
	OverallScore   *int            `json:"overallScore,omitempty" db:"overall_score"`
	Created        int64           `json:"createdAt" db:"created"`
	CompletedAt    *int64          `json:"completedAt,omitempty" db:"completed_at"`
}
