package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/garnizeh/careerhub/pkg/models"
	"github.com/garnizeh/careerhub/pkg/repository"
)

type RecommendationHandler struct {
	recs  repository.RecommendationRepo
	jobs  repository.JobRepo
	users repository.UserRepo
}

func NewRecommendationHandler(recs repository.RecommendationRepo, jobs repository.JobRepo, users repository.UserRepo) *RecommendationHandler {
	return &RecommendationHandler{recs: recs, jobs: jobs, users: users}
}

type recommendationRequest struct {
	UserID      int64  `json:"userId"`
	JobID       int64  `json:"jobId"`
	MatchScore  int    `json:"matchScore"`
	Description string `json:"description"`
	Status      string `json:"status"`
	GeneratedAt int64  `json:"generatedAt"`
}

type recommendationView struct {
	*models.JobRecommendation
	Job *models.Job `json:"job,omitempty"`
}

func (h *RecommendationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req recommendationRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.UserID <= 0 || req.JobID <= 0 {
		http.Error(w, "userId and jobId are required", http.StatusBadRequest)
		return
	}
	if req.MatchScore < 0 || req.MatchScore > 100 {
		http.Error(w, "matchScore must be between 0 and 100", http.StatusBadRequest)
		return
	}
	switch req.Status {
	case "", models.RecommendationNotAdded, models.RecommendationAdded:
	default:
		http.Error(w, "invalid recommendation status", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	u, err := h.users.GetByID(ctx, req.UserID)
	if err != nil {
		http.Error(w, "Failed to load user", http.StatusInternalServerError)
		return
	}
	if u == nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	j, err := h.jobs.GetJob(ctx, req.JobID)
	if err != nil {
		http.Error(w, "Failed to load job", http.StatusInternalServerError)
		return
	}
	if j == nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	rec := &models.JobRecommendation{
		UserID:      u.ID,
		JobID:       j.ID,
		MatchScore:  req.MatchScore,
		Description: strings.TrimSpace(req.Description),
		Status:      req.Status,
		GeneratedAt: req.GeneratedAt,
	}
	id, err := h.recs.CreateRecommendation(ctx, rec)
	if errors.Is(err, repository.ErrConflict) {
		http.Error(w, "Job already recommended to this user", http.StatusConflict)
		return
	}
	if err != nil {
		logger.Error("create recommendation", slog.Int64("user_id", u.ID), slog.Int64("job_id", j.ID), slog.Any("err", err))
		http.Error(w, "Failed to create job recommendation", http.StatusInternalServerError)
		return
	}
	created, err := h.recs.GetRecommendation(ctx, id)
	if err != nil || created == nil {
		http.Error(w, "Failed to load job recommendation", http.StatusInternalServerError)
		return
	}
	writeJSON(w, created, http.StatusCreated)
}

// Search lists recommendations whose description contains keyword. Admins
// search across every user.
func (h *RecommendationHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	keyword := strings.TrimSpace(r.URL.Query().Get("keyword"))
	if keyword == "" {
		http.Error(w, "keyword is required", http.StatusBadRequest)
		return
	}
	if isAdmin(r) {
		userID = 0
	}
	recs, err := h.recs.SearchRecommendations(r.Context(), userID, keyword)
	if err != nil {
		http.Error(w, "Failed to search job recommendations", http.StatusInternalServerError)
		return
	}
	writeJSON(w, orEmpty(recs), http.StatusOK)
}

func (h *RecommendationHandler) MyAdded(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	h.added(w, r, userID)
}

func (h *RecommendationHandler) UserAdded(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}
	h.added(w, r, userID)
}

func (h *RecommendationHandler) added(w http.ResponseWriter, r *http.Request, userID int64) {
	recs, err := h.recs.ListAddedRecommendations(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to list job recommendations", http.StatusInternalServerError)
		return
	}
	writeJSON(w, orEmpty(recs), http.StatusOK)
}

func (h *RecommendationHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r, 20, 100)
	recs, total, err := h.recs.ListRecommendations(r.Context(), limit, offset)
	if err != nil {
		http.Error(w, "Failed to list job recommendations", http.StatusInternalServerError)
		return
	}
	writeJSON(w, paged(orEmpty(recs), total, page, limit), http.StatusOK)
}

// owned loads the recommendation in the path for its owner or an admin.
func (h *RecommendationHandler) owned(w http.ResponseWriter, r *http.Request) (*models.JobRecommendation, bool) {
	userID, ok := currentUser(w, r)
	if !ok {
		return nil, false
	}
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "Invalid recommendation id", http.StatusBadRequest)
		return nil, false
	}
	rec, err := h.recs.GetRecommendation(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to load job recommendation", http.StatusInternalServerError)
		return nil, false
	}
	if rec == nil {
		http.Error(w, "Job recommendation not found", http.StatusNotFound)
		return nil, false
	}
	if rec.UserID != userID && !isAdmin(r) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return nil, false
	}
	return rec, true
}

func (h *RecommendationHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.owned(w, r)
	if !ok {
		return
	}
	j, err := h.jobs.GetJob(r.Context(), rec.JobID)
	if err != nil {
		http.Error(w, "Failed to load job", http.StatusInternalServerError)
		return
	}
	writeJSON(w, recommendationView{JobRecommendation: rec, Job: j}, http.StatusOK)
}

// AddToList marks the recommendation ADDED.
func (h *RecommendationHandler) AddToList(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.owned(w, r)
	if !ok {
		return
	}
	if err := h.recs.SetRecommendationStatus(r.Context(), rec.ID, models.RecommendationAdded); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "Job recommendation not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to update job recommendation", http.StatusInternalServerError)
		return
	}
	rec.Status = models.RecommendationAdded
	writeJSON(w, rec, http.StatusOK)
}

func (h *RecommendationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "Invalid recommendation id", http.StatusBadRequest)
		return
	}
	err := h.recs.DeleteRecommendation(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "Job recommendation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to delete job recommendation", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
