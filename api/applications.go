package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/garnizeh/careerhub/internal/export"
	"github.com/garnizeh/careerhub/internal/xp"
	"github.com/garnizeh/careerhub/pkg/models"
	"github.com/garnizeh/careerhub/pkg/repository"
)

// ApplicationNotifier reports application status changes to the applicant.
type ApplicationNotifier interface {
	NotifyApplicationUpdate(ctx context.Context, userID int64, jobTitle, status string) (*models.Notification, error)
}

type ApplicationHandler struct {
	apps      repository.ApplicationRepo
	jobs      repository.JobRepo
	companies repository.CompanyRepo
	notifier  ApplicationNotifier
	xp        Achievements
}

func NewApplicationHandler(apps repository.ApplicationRepo, jobs repository.JobRepo, companies repository.CompanyRepo, notifier ApplicationNotifier, achievements Achievements) *ApplicationHandler {
	return &ApplicationHandler{apps: apps, jobs: jobs, companies: companies, notifier: notifier, xp: achievements}
}

type applicationRequest struct {
	JobID           *int64  `json:"jobId"`
	JobTitle        *string `json:"jobTitle"`
	CompanyName     *string `json:"companyName"`
	Location        *string `json:"location"`
	JobURL          *string `json:"jobUrl"`
	Salary          *int64  `json:"salary"`
	JobType         *string `json:"jobType"`
	ExperienceLevel *string `json:"experienceLevel"`
	Status          *string `json:"status"`
	Notes           *string `json:"notes"`
	AppliedAt       *int64  `json:"appliedAt"`
}

func (req *applicationRequest) apply(a *models.JobApplication) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&a.JobTitle, req.JobTitle)
	set(&a.CompanyName, req.CompanyName)
	set(&a.Location, req.Location)
	set(&a.JobURL, req.JobURL)
	set(&a.JobType, req.JobType)
	set(&a.ExperienceLevel, req.ExperienceLevel)
	set(&a.Notes, req.Notes)
	if req.Status != nil {
		a.Status = strings.ToLower(strings.TrimSpace(*req.Status))
	}
	if req.Salary != nil {
		a.Salary = req.Salary
	}
	if req.AppliedAt != nil {
		a.AppliedAt = *req.AppliedAt
	}
}

// fillFromJob copies the posting's details into fields the applicant left empty.
func fillFromJob(a *models.JobApplication, j *models.Job) {
	if a.JobTitle == "" {
		a.JobTitle = j.Title
	}
	if a.CompanyName == "" {
		a.CompanyName = j.CompanyName
	}
	if a.Location == "" {
		a.Location = j.Location
	}
	if a.Salary == nil {
		if j.SalaryMax != nil {
			a.Salary = j.SalaryMax
		} else {
			a.Salary = j.SalaryMin
		}
	}
	if a.JobType == "" {
		a.JobType = j.Type
	}
	if a.ExperienceLevel == "" {
		a.ExperienceLevel = j.ExperienceLevel
	}
}

func (h *ApplicationHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req applicationRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	a := &models.JobApplication{UserID: userID, Status: models.ApplicationApplied}
	req.apply(a)
	if req.JobID != nil {
		j, err := h.jobs.GetJob(r.Context(), *req.JobID)
		if err != nil {
			http.Error(w, "Failed to load job", http.StatusInternalServerError)
			return
		}
		if j == nil {
			http.Error(w, "Job not found", http.StatusNotFound)
			return
		}
		a.JobID = &j.ID
		fillFromJob(a, j)
	}
	if a.JobTitle == "" || a.CompanyName == "" {
		http.Error(w, "jobTitle and companyName are required", http.StatusBadRequest)
		return
	}
	if !slices.Contains(models.ApplicationStatuses, a.Status) {
		http.Error(w, "invalid application status", http.StatusBadRequest)
		return
	}
	if a.AppliedAt == 0 {
		a.AppliedAt = nowMillis()
	}

	id, err := h.apps.CreateApplication(r.Context(), a)
	if err != nil {
		logger.Error("create application", slog.Int64("user_id", userID), slog.Any("err", err))
		http.Error(w, "Failed to create job application", http.StatusInternalServerError)
		return
	}
	created, err := h.apps.GetApplication(r.Context(), id)
	if err != nil || created == nil {
		http.Error(w, "Failed to load job application", http.StatusInternalServerError)
		return
	}
	checkMilestones(r.Context(), h.xp, userID)
	writeJSON(w, withSource(created), http.StatusCreated)
}

type applicationView struct {
	*models.JobApplication
	Source string `json:"source"`
}

func withSource(a *models.JobApplication) applicationView {
	return applicationView{JobApplication: a, Source: a.Source()}
}

func views(apps []models.JobApplication) []applicationView {
	out := make([]applicationView, len(apps))
	for i := range apps {
		out[i] = withSource(&apps[i])
	}
	return out
}

func (h *ApplicationHandler) list(w http.ResponseWriter, r *http.Request, f repository.ApplicationFilter) {
	page, limit, offset := pageParams(r, 20, 100)
	f.Limit, f.Offset = limit, offset
	items, total, err := h.apps.ListApplications(r.Context(), f)
	if err != nil {
		logger.Error("list applications", slog.Any("err", err))
		http.Error(w, "Failed to list job applications", http.StatusInternalServerError)
		return
	}
	writeJSON(w, paged(views(items), total, page, limit), http.StatusOK)
}

// ListAll is the admin view across every user.
func (h *ApplicationHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, repository.ApplicationFilter{Status: r.URL.Query().Get("status")})
}

func (h *ApplicationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	h.list(w, r, repository.ApplicationFilter{UserID: userID, Status: r.URL.Query().Get("status")})
}

func (h *ApplicationHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	target, ok := pathID(r, "userId")
	if !ok {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}
	if target != userID && !isAdmin(r) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	h.list(w, r, repository.ApplicationFilter{UserID: target, Status: r.URL.Query().Get("status")})
}

// ListByJob is restricted to the company that posted the job.
func (h *ApplicationHandler) ListByJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	jobID, ok := pathID(r, "jobId")
	if !ok {
		http.Error(w, "Invalid job id", http.StatusBadRequest)
		return
	}
	j, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		http.Error(w, "Failed to load job", http.StatusInternalServerError)
		return
	}
	if j == nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	if !isAdmin(r) {
		c, err := h.companies.GetCompanyByOwner(r.Context(), userID)
		if err != nil {
			http.Error(w, "Failed to load company", http.StatusInternalServerError)
			return
		}
		if c == nil || j.CompanyID == nil || *j.CompanyID != c.ID {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}
	h.list(w, r, repository.ApplicationFilter{JobID: jobID, Status: r.URL.Query().Get("status")})
}

// owned loads the application in the path; admins may read any when readOnly.
func (h *ApplicationHandler) owned(w http.ResponseWriter, r *http.Request, readOnly bool) (*models.JobApplication, bool) {
	userID, ok := currentUser(w, r)
	if !ok {
		return nil, false
	}
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "Invalid job application id", http.StatusBadRequest)
		return nil, false
	}
	a, err := h.apps.GetApplication(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to load job application", http.StatusInternalServerError)
		return nil, false
	}
	if a == nil {
		http.Error(w, "Job application not found", http.StatusNotFound)
		return nil, false
	}
	if a.UserID != userID && !(readOnly && isAdmin(r)) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return nil, false
	}
	return a, true
}

func (h *ApplicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, ok := h.owned(w, r, true)
	if !ok {
		return
	}
	writeJSON(w, withSource(a), http.StatusOK)
}

func (h *ApplicationHandler) Update(w http.ResponseWriter, r *http.Request) {
	a, ok := h.owned(w, r, false)
	if !ok {
		return
	}
	var req applicationRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	prev := a.Status
	req.apply(a)
	if req.JobID != nil {
		j, err := h.jobs.GetJob(r.Context(), *req.JobID)
		if err != nil {
			http.Error(w, "Failed to load job", http.StatusInternalServerError)
			return
		}
		if j == nil {
			http.Error(w, "Job not found", http.StatusNotFound)
			return
		}
		a.JobID = &j.ID
		fillFromJob(a, j)
	}
	if a.JobTitle == "" || a.CompanyName == "" {
		http.Error(w, "jobTitle and companyName cannot be empty", http.StatusBadRequest)
		return
	}
	if !slices.Contains(models.ApplicationStatuses, a.Status) {
		http.Error(w, "invalid application status", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	if err := h.apps.UpdateApplication(ctx, a); err != nil {
		logger.Error("update application", slog.Int64("id", a.ID), slog.Any("err", err))
		http.Error(w, "Failed to update job application", http.StatusInternalServerError)
		return
	}

	if a.Status != prev {
		if h.notifier != nil {
			if _, err := h.notifier.NotifyApplicationUpdate(ctx, a.UserID, a.JobTitle, a.Status); err != nil {
				logger.Warn("application notification failed", slog.Int64("id", a.ID), slog.Any("err", err))
			}
		}
		if a.Status == models.ApplicationInterview {
			triggerEvent(ctx, h.xp, a.UserID, xp.KeyInterviewInsight, map[string]any{"applicationId": a.ID})
		}
	}
	writeJSON(w, withSource(a), http.StatusOK)
}

func (h *ApplicationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	a, ok := h.owned(w, r, false)
	if !ok {
		return
	}
	err := h.apps.DeleteApplication(r.Context(), a.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "Failed to delete job application", http.StatusInternalServerError)
		return
	}
	writeMessage(w, "Job application deleted successfully", http.StatusOK)
}

func (h *ApplicationHandler) stats(w http.ResponseWriter, r *http.Request, userID int64) {
	st, err := h.apps.ApplicationStats(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to load statistics", http.StatusInternalServerError)
		return
	}
	writeJSON(w, st, http.StatusOK)
}

func (h *ApplicationHandler) GlobalStats(w http.ResponseWriter, r *http.Request) {
	h.stats(w, r, 0)
}

func (h *ApplicationHandler) MyStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	h.stats(w, r, userID)
}

const exportPageSize = 100

// Export writes every application of the caller as an xlsx workbook.
func (h *ApplicationHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var all []models.JobApplication
	for offset := 0; ; offset += exportPageSize {
		items, total, err := h.apps.ListApplications(r.Context(), repository.ApplicationFilter{UserID: userID, Limit: exportPageSize, Offset: offset})
		if err != nil {
			http.Error(w, "Failed to export job applications", http.StatusInternalServerError)
			return
		}
		all = append(all, items...)
		if len(items) < exportPageSize || int64(len(all)) >= total {
			break
		}
	}

	var buf bytes.Buffer
	if err := export.ApplicationsXLSX(all, &buf); err != nil {
		logger.Error("export applications", slog.Int64("user_id", userID), slog.Any("err", err))
		http.Error(w, "Failed to export job applications", http.StatusInternalServerError)
		return
	}
	name := fmt.Sprintf("job-applications-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
