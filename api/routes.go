package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/careerhub/internal/config"
	"github.com/garnizeh/careerhub/internal/notify"
	"github.com/garnizeh/careerhub/internal/repository/sqlite"
	"github.com/garnizeh/careerhub/internal/schema"
	"github.com/garnizeh/careerhub/internal/storage"
	"github.com/garnizeh/careerhub/internal/xp"
	"github.com/garnizeh/careerhub/pkg/models"
)

// Services are the collaborators built by the server command. Optional
// members may be left nil.
type Services struct {
	Repo         *sqlite.SQLiteRepo
	XP           *xp.Service
	Schemas      *schema.Registry
	Store        storage.ObjectStore
	Queue        notify.Enqueuer
	Notifier     ApplicationNotifier
	Codes        notify.CodeSender
	CV           CVService
	Advisor      CareerAdvisor
	Voice        VoiceService
	Integrations map[string]HealthChecker
}

func SetupRoutes(cfg *config.Config, version, buildTime string, svc Services) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware(cfg.CORSOrigin))
	r.Use(RecoveryMiddleware)

	repo := svc.Repo
	var achievements Achievements
	if svc.XP != nil {
		achievements = svc.XP
	}

	// Create handlers
	systemHandler := &SystemHandler{Integrations: svc.Integrations}
	authHandler := NewAuthHandler(repo, repo, svc.Codes, cfg.JWTSecret, cfg.TokenDuration, cfg.RefreshTokenDuration, cfg.BcryptCost)
	userHandler := NewUserHandler(repo, repo, achievements, svc.Schemas)
	companyHandler := NewCompanyHandler(repo, repo)
	jobHandler := NewJobHandler(repo, repo, repo)
	appHandler := NewApplicationHandler(repo, repo, repo, svc.Notifier, achievements)
	resumeHandler := NewResumeHandler(repo, repo, svc.Store, svc.CV, svc.Queue, achievements, cfg.MaxUploadBytes, cfg.PublicURL)
	advisorHandler := NewAdvisorHandler(repo, svc.Advisor, achievements)
	interviewHandler := NewInterviewHandler(repo, svc.Voice, svc.Schemas, achievements)
	practiceHandler := NewPracticeHandler(repo, repo, achievements)
	recHandler := NewRecommendationHandler(repo, repo, repo)
	notificationHandler := NewNotificationHandler(repo)
	xpHandler := NewXPHandler(svc.XP)

	// Preflight requests never reach the auth middleware.
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	r.HandleFunc("/v1/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/v1/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/v1/auth/refresh", authHandler.Refresh).Methods("POST")
	r.HandleFunc("/v1/auth/forgot-password", authHandler.ForgotPassword).Methods("POST")
	r.HandleFunc("/v1/auth/reset-password", authHandler.ResetPassword).Methods("POST")
	r.HandleFunc("/v1/public/resumes/{slug}", resumeHandler.Public).Methods("GET")

	// API v1 Protected routes
	apiV1 := r.PathPrefix("/v1").Subrouter()
	apiV1.Use(JWTAuthMiddlewareWithSecret(cfg.JWTSecret))
	admin := RequireRole(models.RoleAdmin)
	business := RequireRole(models.RoleBusiness, models.RoleAdmin)

	// Auth endpoints
	authV1 := apiV1.PathPrefix("/auth").Subrouter()
	authV1.HandleFunc("/logout", authHandler.Logout).Methods("POST")
	authV1.HandleFunc("/session", authHandler.Session).Methods("GET")

	// Users and profile sections
	apiV1.HandleFunc("/users/me", userHandler.Me).Methods("GET")
	apiV1.HandleFunc("/users/me", userHandler.UpdateMe).Methods("PATCH")
	apiV1.HandleFunc("/users/me/import-cv", userHandler.ImportCV).Methods("POST")
	me := apiV1.PathPrefix("/users/me").Subrouter()
	mountSection(me, "/skills", userHandler, userHandler.Skills())
	mountSection(me, "/experiences", userHandler, userHandler.Experiences())
	mountSection(me, "/educations", userHandler, userHandler.Educations())
	mountSection(me, "/projects", userHandler, userHandler.Projects())
	mountSection(me, "/languages", userHandler, userHandler.Languages())
	mountSection(me, "/social-links", userHandler, userHandler.SocialLinks())
	mountSection(me, "/certifications", userHandler, userHandler.Certifications())
	mountSection(me, "/awards", userHandler, userHandler.Awards())
	mountSection(me, "/volunteer-work", userHandler, userHandler.VolunteerWork())
	apiV1.HandleFunc("/users/{id:[0-9]+}", userHandler.GetUser).Methods("GET")

	adminV1 := apiV1.PathPrefix("/admin").Subrouter()
	adminV1.Use(admin)
	adminV1.HandleFunc("/users", userHandler.AdminList).Methods("GET")
	adminV1.HandleFunc("/users/{id:[0-9]+}", userHandler.AdminUpdate).Methods("PATCH")

	// Companies and jobs
	apiV1.Handle("/companies", business(http.HandlerFunc(companyHandler.Create))).Methods("POST")
	apiV1.HandleFunc("/companies", companyHandler.List).Methods("GET")
	apiV1.HandleFunc("/companies/{idOrSlug}", companyHandler.Get).Methods("GET")
	apiV1.HandleFunc("/companies/{idOrSlug}", companyHandler.Update).Methods("PATCH")
	apiV1.HandleFunc("/companies/{idOrSlug}/jobs", companyHandler.Jobs).Methods("GET")

	apiV1.HandleFunc("/jobs", jobHandler.List).Methods("GET")
	apiV1.Handle("/jobs", business(http.HandlerFunc(jobHandler.Create))).Methods("POST")
	apiV1.HandleFunc("/jobs/{id:[0-9]+}", jobHandler.Get).Methods("GET")
	apiV1.HandleFunc("/jobs/{id:[0-9]+}", jobHandler.Update).Methods("PATCH")
	apiV1.HandleFunc("/jobs/{id:[0-9]+}", jobHandler.Delete).Methods("DELETE")

	// Job applications
	apps := apiV1.PathPrefix("/job-applications").Subrouter()
	apps.HandleFunc("", appHandler.Create).Methods("POST")
	apps.Handle("", admin(http.HandlerFunc(appHandler.ListAll))).Methods("GET")
	apps.HandleFunc("/me", appHandler.ListMine).Methods("GET")
	apps.HandleFunc("/me/export", appHandler.Export).Methods("GET")
	apps.Handle("/stats/global", admin(http.HandlerFunc(appHandler.GlobalStats))).Methods("GET")
	apps.HandleFunc("/stats/me", appHandler.MyStats).Methods("GET")
	apps.HandleFunc("/user/{userId:[0-9]+}", appHandler.ListByUser).Methods("GET")
	apps.HandleFunc("/job/{jobId:[0-9]+}", appHandler.ListByJob).Methods("GET")
	apps.HandleFunc("/{id:[0-9]+}", appHandler.Get).Methods("GET")
	apps.HandleFunc("/{id:[0-9]+}", appHandler.Update).Methods("PATCH")
	apps.HandleFunc("/{id:[0-9]+}", appHandler.Delete).Methods("DELETE")

	// Job recommendations
	recs := apiV1.PathPrefix("/job-recommendations").Subrouter()
	recs.Handle("", admin(http.HandlerFunc(recHandler.Create))).Methods("POST")
	recs.Handle("", admin(http.HandlerFunc(recHandler.List))).Methods("GET")
	recs.HandleFunc("/search", recHandler.Search).Methods("GET")
	recs.HandleFunc("/me/added", recHandler.MyAdded).Methods("GET")
	recs.Handle("/added/{userId:[0-9]+}", admin(http.HandlerFunc(recHandler.UserAdded))).Methods("GET")
	recs.HandleFunc("/{id:[0-9]+}", recHandler.Get).Methods("GET")
	recs.HandleFunc("/{id:[0-9]+}", recHandler.AddToList).Methods("PATCH")
	recs.Handle("/{id:[0-9]+}", admin(http.HandlerFunc(recHandler.Delete))).Methods("DELETE")

	// Resumes and career advice
	resumes := apiV1.PathPrefix("/resumes").Subrouter()
	resumes.HandleFunc("", resumeHandler.Create).Methods("POST")
	resumes.HandleFunc("", resumeHandler.List).Methods("GET")
	resumes.HandleFunc("/match-job", resumeHandler.MatchJob).Methods("POST")
	resumes.HandleFunc("/parse", resumeHandler.Parse).Methods("POST")
	resumes.HandleFunc("/{id:[0-9]+}", resumeHandler.Get).Methods("GET")
	resumes.HandleFunc("/{id:[0-9]+}", resumeHandler.Update).Methods("PUT")
	resumes.HandleFunc("/{id:[0-9]+}", resumeHandler.Delete).Methods("DELETE")
	resumes.HandleFunc("/{id:[0-9]+}/upload", resumeHandler.Upload).Methods("POST")
	resumes.HandleFunc("/{id:[0-9]+}/download", resumeHandler.Download).Methods("GET")
	resumes.HandleFunc("/{id:[0-9]+}/review", resumeHandler.Review).Methods("POST")
	resumes.HandleFunc("/{id:[0-9]+}/review-multilingual", resumeHandler.ReviewMultilingual).Methods("POST")
	resumes.HandleFunc("/{id:[0-9]+}/rewrite", resumeHandler.Rewrite).Methods("POST")
	resumes.HandleFunc("/{id:[0-9]+}/share", resumeHandler.Share).Methods("POST")
	resumes.HandleFunc("/{id:[0-9]+}/share", resumeHandler.Unshare).Methods("DELETE")
	resumes.HandleFunc("/{id:[0-9]+}/share/stats", resumeHandler.ShareStats).Methods("GET")
	resumes.HandleFunc("/{id:[0-9]+}/sections", resumeHandler.CreateSection).Methods("POST")
	resumes.HandleFunc("/{id:[0-9]+}/sections", resumeHandler.ListSections).Methods("GET")
	resumes.HandleFunc("/{id:[0-9]+}/sections/reorder", resumeHandler.ReorderSections).Methods("PUT")
	resumes.HandleFunc("/sections/{sectionId:[0-9]+}", resumeHandler.GetSection).Methods("GET")
	resumes.HandleFunc("/sections/{sectionId:[0-9]+}", resumeHandler.UpdateSection).Methods("PUT")
	resumes.HandleFunc("/sections/{sectionId:[0-9]+}", resumeHandler.DeleteSection).Methods("DELETE")
	resumes.HandleFunc("/{id:[0-9]+}/suggestions", resumeHandler.CreateSuggestion).Methods("POST")
	resumes.HandleFunc("/{id:[0-9]+}/suggestions", resumeHandler.ListSuggestions).Methods("GET")
	resumes.HandleFunc("/suggestions/{suggestionId:[0-9]+}", resumeHandler.UpdateSuggestion).Methods("PUT")
	resumes.HandleFunc("/suggestions/{suggestionId:[0-9]+}", resumeHandler.DeleteSuggestion).Methods("DELETE")
	resumes.HandleFunc("/{id:[0-9]+}/career-advice", advisorHandler.Advise).Methods("POST")
	resumes.HandleFunc("/{id:[0-9]+}/career-advice", advisorHandler.Get).Methods("GET")
	resumes.HandleFunc("/{id:[0-9]+}/career-advice/feedback", advisorHandler.Feedback).Methods("POST")
	apiV1.HandleFunc("/advisor/steps/{stepId}/complete", advisorHandler.CompleteStep).Methods("POST")

	// Voice interviews
	voiceV1 := apiV1.PathPrefix("/voice-interviews").Subrouter()
	voiceV1.HandleFunc("/setup", interviewHandler.Setup).Methods("POST")
	voiceV1.HandleFunc("/report", interviewHandler.Report).Methods("GET")
	voiceV1.HandleFunc("/history", interviewHandler.History).Methods("GET")
	voiceV1.HandleFunc("/sessions", interviewHandler.Sessions).Methods("GET")
	voiceV1.HandleFunc("/{sessionId}/status", interviewHandler.Status).Methods("GET")
	voiceV1.HandleFunc("/{sessionId}/stream-url", interviewHandler.StreamURL).Methods("GET")
	voiceV1.HandleFunc("/{sessionId}/stream", interviewHandler.Stream).Methods("GET")

	// Practice interviews
	practice := apiV1.PathPrefix("/interviews").Subrouter()
	practice.HandleFunc("", practiceHandler.Create).Methods("POST")
	practice.HandleFunc("", practiceHandler.List).Methods("GET")
	practice.HandleFunc("/{interviewId:[0-9]+}", practiceHandler.Get).Methods("GET")
	practice.HandleFunc("/{interviewId:[0-9]+}/questions/{questionId:[0-9]+}/answer", practiceHandler.AnswerQuestion).Methods("POST")
	practice.HandleFunc("/{interviewId:[0-9]+}/answers", practiceHandler.Answers).Methods("POST")
	practice.Handle("/{interviewId:[0-9]+}/answers/{answerId:[0-9]+}/rate", admin(http.HandlerFunc(practiceHandler.RateAnswer))).Methods("POST")
	practice.Handle("/{interviewId:[0-9]+}/answers/{answerId:[0-9]+}/feedback", admin(http.HandlerFunc(practiceHandler.FeedbackAnswer))).Methods("POST")
	practice.Handle("/{interviewId:[0-9]+}/rate", admin(http.HandlerFunc(practiceHandler.RateInterview))).Methods("POST")
	practice.Handle("/{interviewId:[0-9]+}/feedback", admin(http.HandlerFunc(practiceHandler.FeedbackInterview))).Methods("POST")
	practice.HandleFunc("/{interviewId:[0-9]+}/report", practiceHandler.Report).Methods("GET")

	// Notifications
	notes := apiV1.PathPrefix("/notifications").Subrouter()
	notes.HandleFunc("", notificationHandler.List).Methods("GET")
	notes.HandleFunc("/unread-count", notificationHandler.UnreadCount).Methods("GET")
	notes.HandleFunc("/read-all", notificationHandler.MarkAllRead).Methods("POST")
	notes.HandleFunc("/{id:[0-9]+}/read", notificationHandler.MarkRead).Methods("PATCH")
	notes.HandleFunc("/{id:[0-9]+}/archive", notificationHandler.Archive).Methods("PATCH")
	notes.HandleFunc("/{id:[0-9]+}", notificationHandler.Delete).Methods("DELETE")

	// XP and achievements
	xpV1 := apiV1.PathPrefix("/xp").Subrouter()
	xpV1.HandleFunc("/status", xpHandler.Status).Methods("GET")
	xpV1.HandleFunc("/events", xpHandler.TriggerEvent).Methods("POST")
	xpV1.HandleFunc("/daily-challenges/{id:[0-9]+}/complete", xpHandler.CompleteChallenge).Methods("POST")
	xpV1.HandleFunc("/achievements/{key}/redeem", xpHandler.Redeem).Methods("POST")
	xpV1.HandleFunc("/achievements", xpHandler.Achievements).Methods("GET")
	xpV1.HandleFunc("/badges", xpHandler.Badges).Methods("GET")
	xpV1.HandleFunc("/leaderboard", xpHandler.Leaderboard).Methods("GET")
	xpV1.HandleFunc("/keys", xpHandler.Keys).Methods("GET")

	// System
	apiV1.Handle("/system/integrations", admin(http.HandlerFunc(systemHandler.IntegrationsHandler))).Methods("GET")

	return r
}

func mountSection[T any](r *mux.Router, path string, h *UserHandler, s section[T]) {
	r.HandleFunc(path, s.List).Methods("GET")
	r.HandleFunc(path, s.Create(h)).Methods("POST")
	r.HandleFunc(path+"/{id:[0-9]+}", s.Update(h)).Methods("PATCH")
	r.HandleFunc(path+"/{id:[0-9]+}", s.Delete).Methods("DELETE")
}
