package api

import (
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/garnizeh/careerhub/pkg/models"
	"github.com/garnizeh/careerhub/pkg/repository"
)

type JobHandler struct {
	jobs      repository.JobRepo
	companies repository.CompanyRepo
	users     repository.UserRepo
}

func NewJobHandler(jobs repository.JobRepo, companies repository.CompanyRepo, users repository.UserRepo) *JobHandler {
	return &JobHandler{jobs: jobs, companies: companies, users: users}
}

// List filters open jobs by default; status=ALL lists every status.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, limit, offset := pageParams(r, 20, 100)
	f := models.JobFilter{
		Query:           q.Get("q"),
		Type:            strings.ToUpper(q.Get("type")),
		ExperienceLevel: strings.ToUpper(q.Get("experienceLevel")),
		Status:          strings.ToUpper(q.Get("status")),
		Limit:           limit,
		Offset:          offset,
	}
	switch f.Status {
	case "":
		f.Status = models.JobStatusOpen
	case "ALL":
		f.Status = ""
	}
	if v, err := strconv.ParseBool(q.Get("remote")); err == nil {
		f.Remote = &v
	}
	if v, err := strconv.ParseInt(q.Get("companyId"), 10, 64); err == nil {
		f.CompanyID = v
	}

	items, total, err := h.jobs.ListJobs(r.Context(), f)
	if err != nil {
		logger.Error("list jobs", slog.Any("err", err))
		http.Error(w, "Failed to list jobs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, paged(orEmpty(items), total, page, limit), http.StatusOK)
}

func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	j, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, j, http.StatusOK)
}

// load fetches the job named by {id}, writing the error response itself.
func (h *JobHandler) load(w http.ResponseWriter, r *http.Request) (*models.Job, bool) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "Invalid job id", http.StatusBadRequest)
		return nil, false
	}
	j, err := h.jobs.GetJob(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to load job", http.StatusInternalServerError)
		return nil, false
	}
	if j == nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return nil, false
	}
	return j, true
}

// callerCompany is the company owned by the caller, or nil.
func (h *JobHandler) callerCompany(r *http.Request, userID int64) (*models.Company, error) {
	return h.companies.GetCompanyByOwner(r.Context(), userID)
}

type jobRequest struct {
	Title           *string `json:"title"`
	CompanyName     *string `json:"companyName"`
	Location        *string `json:"location"`
	Type            *string `json:"type"`
	Description     *string `json:"description"`
	Requirements    *string `json:"requirements"`
	Benefits        *string `json:"benefits"`
	SalaryMin       *int64  `json:"salaryMin"`
	SalaryMax       *int64  `json:"salaryMax"`
	Currency        *string `json:"currency"`
	ExperienceLevel *string `json:"experienceLevel"`
	Remote          *bool   `json:"remote"`
	Status          *string `json:"status"`
	ExternalURL     *string `json:"externalUrl"`
	ExpiresAt       *int64  `json:"expiresAt"`
	CompanyID       *int64  `json:"companyId"`
}

func (req *jobRequest) apply(j *models.Job) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&j.Title, req.Title)
	set(&j.CompanyName, req.CompanyName)
	set(&j.Location, req.Location)
	set(&j.Description, req.Description)
	set(&j.Requirements, req.Requirements)
	set(&j.Benefits, req.Benefits)
	set(&j.Currency, req.Currency)
	set(&j.ExternalURL, req.ExternalURL)
	if req.Type != nil {
		j.Type = strings.ToUpper(strings.TrimSpace(*req.Type))
	}
	if req.ExperienceLevel != nil {
		j.ExperienceLevel = strings.ToUpper(strings.TrimSpace(*req.ExperienceLevel))
	}
	if req.Status != nil {
		j.Status = strings.ToUpper(strings.TrimSpace(*req.Status))
	}
	if req.SalaryMin != nil {
		j.SalaryMin = req.SalaryMin
	}
	if req.SalaryMax != nil {
		j.SalaryMax = req.SalaryMax
	}
	if req.Remote != nil {
		j.Remote = *req.Remote
	}
	if req.ExpiresAt != nil {
		j.ExpiresAt = req.ExpiresAt
	}
}

// validateJob returns a client-facing message for the first invalid field.
func validateJob(j *models.Job) string {
	switch {
	case j.Title == "":
		return "title is required"
	case j.Description == "":
		return "description is required"
	case j.Type != "" && !slices.Contains(models.JobTypes, j.Type):
		return "invalid job type"
	case j.ExperienceLevel != "" && !slices.Contains(models.ExperienceLevels, j.ExperienceLevel):
		return "invalid experience level"
	case !slices.Contains(models.JobStatuses, j.Status):
		return "invalid job status"
	case j.SalaryMin != nil && j.SalaryMax != nil && *j.SalaryMin > *j.SalaryMax:
		return "salaryMin must not exceed salaryMax"
	}
	return ""
}

func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req jobRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	j := &models.Job{PostedBy: &userID, Type: "FULL_TIME", Currency: "USD", Status: models.JobStatusOpen}
	req.apply(j)

	if isAdmin(r) {
		j.CompanyID = req.CompanyID
	} else {
		c, err := h.callerCompany(r, userID)
		if err != nil {
			http.Error(w, "Failed to create job", http.StatusInternalServerError)
			return
		}
		if c == nil {
			http.Error(w, "A company profile is required to post jobs", http.StatusForbidden)
			return
		}
		j.CompanyID = &c.ID
		if j.CompanyName == "" {
			j.CompanyName = c.Name
		}
	}
	if j.CompanyName == "" && j.CompanyID != nil {
		if c, err := h.companies.GetCompany(r.Context(), *j.CompanyID); err == nil && c != nil {
			j.CompanyName = c.Name
		}
	}
	if msg := validateJob(j); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	j.PostedAt = nowMillis()
	id, err := h.jobs.CreateJob(r.Context(), j)
	if err != nil {
		logger.Error("create job", slog.Int64("user_id", userID), slog.Any("err", err))
		http.Error(w, "Failed to create job", http.StatusInternalServerError)
		return
	}
	j.ID = id
	writeJSON(w, j, http.StatusCreated)
}

// canManageJob allows admins and the owner of the job's company.
func (h *JobHandler) canManageJob(r *http.Request, j *models.Job) (bool, error) {
	if isAdmin(r) {
		return true, nil
	}
	if j.CompanyID == nil {
		return false, nil
	}
	userID, _ := UserIDFrom(r.Context())
	c, err := h.callerCompany(r, userID)
	if err != nil || c == nil {
		return false, err
	}
	return c.ID == *j.CompanyID, nil
}

func (h *JobHandler) Update(w http.ResponseWriter, r *http.Request) {
	j, ok := h.load(w, r)
	if !ok {
		return
	}
	allowed, err := h.canManageJob(r, j)
	if err != nil {
		http.Error(w, "Failed to update job", http.StatusInternalServerError)
		return
	}
	if !allowed {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	var req jobRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	req.apply(j)
	if msg := validateJob(j); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	if err := h.jobs.UpdateJob(r.Context(), j); err != nil {
		http.Error(w, "Failed to update job", http.StatusInternalServerError)
		return
	}
	writeJSON(w, j, http.StatusOK)
}

func (h *JobHandler) Delete(w http.ResponseWriter, r *http.Request) {
	j, ok := h.load(w, r)
	if !ok {
		return
	}
	allowed, err := h.canManageJob(r, j)
	if err != nil {
		http.Error(w, "Failed to delete job", http.StatusInternalServerError)
		return
	}
	if !allowed {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if err := h.jobs.DeleteJob(r.Context(), j.ID); err != nil {
		http.Error(w, "Failed to delete job", http.StatusInternalServerError)
		return
	}
	writeMessage(w, "Job deleted successfully", http.StatusOK)
}
