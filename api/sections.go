package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/garnizeh/careerhub/internal/cvmap"
	"github.com/garnizeh/careerhub/pkg/models"
	"github.com/garnizeh/careerhub/pkg/repository"
)

var suggestionStatuses = []string{models.SuggestionPending, models.SuggestionAccepted, models.SuggestionRejected}

// seedSections builds the first builder sections from the resume data.
// Failures are logged; the resume itself is already stored.
func (h *ResumeHandler) seedSections(ctx context.Context, res *models.Resume) {
	if h.sections == nil {
		return
	}
	cv, err := cvmap.Parse(res.Data)
	if err != nil {
		return
	}
	secs := cvmap.Sections(cv)
	if len(secs) == 0 {
		return
	}
	if err := h.sections.CreateResumeSections(ctx, res.ID, secs); err != nil {
		logger.Warn("seed resume sections", slog.Int64("resume_id", res.ID), slog.Any("err", err))
	}
}

// ownedSection loads {sectionId} and checks the caller owns its resume.
func (h *ResumeHandler) ownedSection(w http.ResponseWriter, r *http.Request) (*models.ResumeSection, bool) {
	userID, ok := currentUser(w, r)
	if !ok {
		return nil, false
	}
	id, ok := pathID(r, "sectionId")
	if !ok {
		http.Error(w, "Invalid section id", http.StatusBadRequest)
		return nil, false
	}
	sec, err := h.sections.GetResumeSection(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to load section", http.StatusInternalServerError)
		return nil, false
	}
	if sec == nil {
		http.Error(w, "Section not found", http.StatusNotFound)
		return nil, false
	}
	if _, ok := h.ownResume(w, r, userID, sec.ResumeID); !ok {
		return nil, false
	}
	return sec, true
}

type sectionRequest struct {
	Type    *string         `json:"type"`
	Title   *string         `json:"title"`
	Content json.RawMessage `json:"content"`
	Order   *int            `json:"order"`
}

// apply copies the present fields onto sec.
func (req sectionRequest) apply(sec *models.ResumeSection) error {
	if req.Type != nil {
		typ, err := cvmap.SectionType(*req.Type)
		if err != nil {
			return err
		}
		sec.Type = typ
	}
	if req.Title != nil {
		sec.Title = strings.TrimSpace(*req.Title)
	}
	if len(req.Content) > 0 && string(req.Content) != "null" {
		if !validData(req.Content) {
			return errors.New("content must be a JSON object")
		}
		sec.Content = req.Content
	}
	if req.Order != nil {
		if *req.Order < 0 {
			return errors.New("order must not be negative")
		}
		sec.SortOrder = *req.Order
	}
	return nil
}

func (h *ResumeHandler) CreateSection(w http.ResponseWriter, r *http.Request) {
	res, ok := h.owned(w, r)
	if !ok {
		return
	}
	var req sectionRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Type == nil {
		http.Error(w, "type is required", http.StatusBadRequest)
		return
	}
	existing, err := h.sections.ListResumeSections(r.Context(), res.ID)
	if err != nil {
		http.Error(w, "Failed to load sections", http.StatusInternalServerError)
		return
	}
	sec := &models.ResumeSection{ResumeID: res.ID, Content: json.RawMessage(`{}`), SortOrder: len(existing)}
	if err := req.apply(sec); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if sec.Title == "" {
		sec.Title = strings.ToUpper(sec.Type[:1]) + strings.ToLower(sec.Type[1:])
	}
	id, err := h.sections.CreateResumeSection(r.Context(), sec)
	if err != nil {
		logger.Error("create resume section", slog.Int64("resume_id", res.ID), slog.Any("err", err))
		http.Error(w, "Failed to create section", http.StatusInternalServerError)
		return
	}
	created, err := h.sections.GetResumeSection(r.Context(), id)
	if err != nil || created == nil {
		http.Error(w, "Failed to load section", http.StatusInternalServerError)
		return
	}
	writeJSON(w, created, http.StatusCreated)
}

func (h *ResumeHandler) ListSections(w http.ResponseWriter, r *http.Request) {
	res, ok := h.owned(w, r)
	if !ok {
		return
	}
	secs, err := h.sections.ListResumeSections(r.Context(), res.ID)
	if err != nil {
		http.Error(w, "Failed to load sections", http.StatusInternalServerError)
		return
	}
	writeJSON(w, orEmpty(secs), http.StatusOK)
}

func (h *ResumeHandler) GetSection(w http.ResponseWriter, r *http.Request) {
	sec, ok := h.ownedSection(w, r)
	if !ok {
		return
	}
	writeJSON(w, sec, http.StatusOK)
}

func (h *ResumeHandler) UpdateSection(w http.ResponseWriter, r *http.Request) {
	sec, ok := h.ownedSection(w, r)
	if !ok {
		return
	}
	var req sectionRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := req.apply(sec); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if sec.Title == "" {
		http.Error(w, "title must not be empty", http.StatusBadRequest)
		return
	}
	if err := h.sections.UpdateResumeSection(r.Context(), sec); err != nil {
		http.Error(w, "Failed to update section", http.StatusInternalServerError)
		return
	}
	updated, err := h.sections.GetResumeSection(r.Context(), sec.ID)
	if err != nil || updated == nil {
		http.Error(w, "Failed to load section", http.StatusInternalServerError)
		return
	}
	writeJSON(w, updated, http.StatusOK)
}

func (h *ResumeHandler) DeleteSection(w http.ResponseWriter, r *http.Request) {
	sec, ok := h.ownedSection(w, r)
	if !ok {
		return
	}
	if err := h.sections.DeleteResumeSection(r.Context(), sec.ID); err != nil {
		http.Error(w, "Failed to delete section", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reorderRequest struct {
	SectionOrders []struct {
		ID    int64 `json:"id"`
		Order int   `json:"order"`
	} `json:"sectionOrders"`
}

func (h *ResumeHandler) ReorderSections(w http.ResponseWriter, r *http.Request) {
	res, ok := h.owned(w, r)
	if !ok {
		return
	}
	var req reorderRequest
	if err := decodeJSON(r, &req); err != nil || len(req.SectionOrders) == 0 {
		http.Error(w, "sectionOrders is required", http.StatusBadRequest)
		return
	}
	orders := make(map[int64]int, len(req.SectionOrders))
	for _, o := range req.SectionOrders {
		if o.ID <= 0 || o.Order < 0 {
			http.Error(w, "Invalid section order", http.StatusBadRequest)
			return
		}
		orders[o.ID] = o.Order
	}
	err := h.sections.ReorderResumeSections(r.Context(), res.ID, orders)
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "Section not found in resume", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to reorder sections", http.StatusInternalServerError)
		return
	}
	secs, err := h.sections.ListResumeSections(r.Context(), res.ID)
	if err != nil {
		http.Error(w, "Failed to load sections", http.StatusInternalServerError)
		return
	}
	writeJSON(w, orEmpty(secs), http.StatusOK)
}

type suggestionRequest struct {
	SectionID *int64          `json:"sectionId"`
	Type      string          `json:"type"`
	Original  json.RawMessage `json:"original"`
	Suggested json.RawMessage `json:"suggested"`
	Reason    string          `json:"reason"`
}

func (h *ResumeHandler) CreateSuggestion(w http.ResponseWriter, r *http.Request) {
	res, ok := h.owned(w, r)
	if !ok {
		return
	}
	var req suggestionRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	req.Type = strings.TrimSpace(req.Type)
	if req.Type == "" || len(req.Suggested) == 0 || !json.Valid(req.Suggested) {
		http.Error(w, "type and suggested are required", http.StatusBadRequest)
		return
	}
	if len(req.Original) > 0 && !json.Valid(req.Original) {
		http.Error(w, "original must be JSON", http.StatusBadRequest)
		return
	}
	if req.SectionID != nil {
		sec, err := h.sections.GetResumeSection(r.Context(), *req.SectionID)
		if err != nil {
			http.Error(w, "Failed to load section", http.StatusInternalServerError)
			return
		}
		if sec == nil || sec.ResumeID != res.ID {
			http.Error(w, "Section does not belong to this resume", http.StatusBadRequest)
			return
		}
		if !validData(req.Suggested) {
			http.Error(w, "suggested must be a JSON object for a section", http.StatusBadRequest)
			return
		}
	}
	sg := &models.ResumeSuggestion{
		ResumeID:  res.ID,
		SectionID: req.SectionID,
		Type:      req.Type,
		Original:  req.Original,
		Suggested: req.Suggested,
		Reason:    strings.TrimSpace(req.Reason),
		Status:    models.SuggestionPending,
	}
	id, err := h.sections.CreateResumeSuggestion(r.Context(), sg)
	if err != nil {
		logger.Error("create resume suggestion", slog.Int64("resume_id", res.ID), slog.Any("err", err))
		http.Error(w, "Failed to create suggestion", http.StatusInternalServerError)
		return
	}
	created, err := h.sections.GetResumeSuggestion(r.Context(), id)
	if err != nil || created == nil {
		http.Error(w, "Failed to load suggestion", http.StatusInternalServerError)
		return
	}
	writeJSON(w, created, http.StatusCreated)
}

func (h *ResumeHandler) ListSuggestions(w http.ResponseWriter, r *http.Request) {
	res, ok := h.owned(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	status := strings.ToLower(q.Get("status"))
	if status != "" && !slices.Contains(suggestionStatuses, status) {
		http.Error(w, "Invalid status", http.StatusBadRequest)
		return
	}
	var sectionID *int64
	if v := q.Get("sectionId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "Invalid sectionId", http.StatusBadRequest)
			return
		}
		sectionID = &id
	}
	items, err := h.sections.ListResumeSuggestions(r.Context(), res.ID, status, sectionID)
	if err != nil {
		http.Error(w, "Failed to list suggestions", http.StatusInternalServerError)
		return
	}
	writeJSON(w, orEmpty(items), http.StatusOK)
}

// ownedSuggestion loads {suggestionId} and checks the caller owns its resume.
func (h *ResumeHandler) ownedSuggestion(w http.ResponseWriter, r *http.Request) (*models.ResumeSuggestion, bool) {
	userID, ok := currentUser(w, r)
	if !ok {
		return nil, false
	}
	id, ok := pathID(r, "suggestionId")
	if !ok {
		http.Error(w, "Invalid suggestion id", http.StatusBadRequest)
		return nil, false
	}
	sg, err := h.sections.GetResumeSuggestion(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to load suggestion", http.StatusInternalServerError)
		return nil, false
	}
	if sg == nil {
		http.Error(w, "Suggestion not found", http.StatusNotFound)
		return nil, false
	}
	if _, ok := h.ownResume(w, r, userID, sg.ResumeID); !ok {
		return nil, false
	}
	return sg, true
}

func (h *ResumeHandler) UpdateSuggestion(w http.ResponseWriter, r *http.Request) {
	sg, ok := h.ownedSuggestion(w, r)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if !slices.Contains(suggestionStatuses, status) {
		http.Error(w, "status must be pending, accepted or rejected", http.StatusBadRequest)
		return
	}
	if err := h.sections.SetSuggestionStatus(r.Context(), sg.ID, status, nowMillis()); err != nil {
		logger.Error("update suggestion", slog.Int64("suggestion_id", sg.ID), slog.Any("err", err))
		http.Error(w, "Failed to update suggestion", http.StatusInternalServerError)
		return
	}
	updated, err := h.sections.GetResumeSuggestion(r.Context(), sg.ID)
	if err != nil || updated == nil {
		http.Error(w, "Failed to load suggestion", http.StatusInternalServerError)
		return
	}
	writeJSON(w, updated, http.StatusOK)
}

func (h *ResumeHandler) DeleteSuggestion(w http.ResponseWriter, r *http.Request) {
	sg, ok := h.ownedSuggestion(w, r)
	if !ok {
		return
	}
	if err := h.sections.DeleteResumeSuggestion(r.Context(), sg.ID); err != nil {
		http.Error(w, "Failed to delete suggestion", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
