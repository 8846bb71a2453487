package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/garnizeh/careerhub/internal/extract"
	"github.com/garnizeh/careerhub/internal/gradio"
	"github.com/garnizeh/careerhub/internal/jobs"
	"github.com/garnizeh/careerhub/internal/notify"
	"github.com/garnizeh/careerhub/internal/storage"
	"github.com/garnizeh/careerhub/pkg/models"
	"github.com/garnizeh/careerhub/pkg/repository"
)

// CVService is the set of Gradio calls the resume routes use.
type CVService interface {
	ReviewCV(ctx context.Context, cvJSON string, temperature float64, maxTokens int) (string, error)
	ReviewCVMultilingual(ctx context.Context, cvJSON string, temperature float64, maxTokens int) (string, error)
	RewriteCV(ctx context.Context, cvJSON string, temperature float64, maxTokens int) (json.RawMessage, error)
	MatchJob(ctx context.Context, r gradio.MatchRequest) (string, error)
	ParseCV(ctx context.Context, engine, text string) (*gradio.ParseResult, error)
}

var uploadExts = map[string]bool{".pdf": true, ".doc": true, ".docx": true}

const (
	defaultResumeTitle = "My Resume"
	jobPriorityNormal  = 5
	jobMaxAttempts     = 3
)

type ResumeHandler struct {
	resumes   repository.ResumeRepo
	sections  repository.ResumeSectionRepo
	store     storage.ObjectStore
	cv        CVService
	queue     notify.Enqueuer
	xp        Achievements
	maxUpload int64
	publicURL string
}

func NewResumeHandler(resumes repository.ResumeRepo, sections repository.ResumeSectionRepo, store storage.ObjectStore, cv CVService, queue notify.Enqueuer, achievements Achievements, maxUpload int64, publicURL string) *ResumeHandler {
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &ResumeHandler{
		resumes:   resumes,
		sections:  sections,
		store:     store,
		cv:        cv,
		queue:     queue,
		xp:        achievements,
		maxUpload: maxUpload,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// gradioFailed maps a Gradio error to 503 when unconfigured and 502 otherwise.
// Upstream detail stays in the log.
func gradioFailed(w http.ResponseWriter, op string, err error) {
	logger.Error("gradio call failed", slog.String("op", op), slog.Any("err", err))
	if errors.Is(err, gradio.ErrNotConfigured) {
		http.Error(w, "CV service is not configured", http.StatusServiceUnavailable)
		return
	}
	http.Error(w, "CV service error", http.StatusBadGateway)
}

// owned loads the caller's resume named by {id}.
func (h *ResumeHandler) owned(w http.ResponseWriter, r *http.Request) (*models.Resume, bool) {
	userID, ok := currentUser(w, r)
	if !ok {
		return nil, false
	}
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "Invalid resume id", http.StatusBadRequest)
		return nil, false
	}
	return h.ownResume(w, r, userID, id)
}

func (h *ResumeHandler) ownResume(w http.ResponseWriter, r *http.Request, userID, id int64) (*models.Resume, bool) {
	res, err := h.resumes.GetResume(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to load resume", http.StatusInternalServerError)
		return nil, false
	}
	if res == nil {
		http.Error(w, "Resume not found", http.StatusNotFound)
		return nil, false
	}
	if res.UserID != userID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return nil, false
	}
	return res, true
}

type resumeRequest struct {
	Title *string         `json:"title"`
	Data  json.RawMessage `json:"data"`
}

func validData(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{' && json.Valid(raw)
}

func (h *ResumeHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req resumeRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	res := &models.Resume{UserID: userID, Title: defaultResumeTitle, Data: json.RawMessage(`{}`)}
	if req.Title != nil && strings.TrimSpace(*req.Title) != "" {
		res.Title = strings.TrimSpace(*req.Title)
	}
	if len(req.Data) > 0 && string(req.Data) != "null" {
		if !validData(req.Data) {
			http.Error(w, "data must be a JSON object", http.StatusBadRequest)
			return
		}
		res.Data = req.Data
	}
	id, err := h.resumes.CreateResume(r.Context(), res)
	if err != nil {
		logger.Error("create resume", slog.Int64("user_id", userID), slog.Any("err", err))
		http.Error(w, "Failed to create resume", http.StatusInternalServerError)
		return
	}
	created, err := h.resumes.GetResume(r.Context(), id)
	if err != nil || created == nil {
		http.Error(w, "Failed to load resume", http.StatusInternalServerError)
		return
	}
	h.seedSections(r.Context(), created)
	checkMilestones(r.Context(), h.xp, userID)
	writeJSON(w, created, http.StatusCreated)
}

func (h *ResumeHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	items, err := h.resumes.ListResumesByUser(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to list resumes", http.StatusInternalServerError)
		return
	}
	writeJSON(w, orEmpty(items), http.StatusOK)
}

func (h *ResumeHandler) Get(w http.ResponseWriter, r *http.Request) {
	res, ok := h.owned(w, r)
	if !ok {
		return
	}
	writeJSON(w, res, http.StatusOK)
}

func (h *ResumeHandler) Update(w http.ResponseWriter, r *http.Request) {
	res, ok := h.owned(w, r)
	if !ok {
		return
	}
	var req resumeRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Title != nil {
		if t := strings.TrimSpace(*req.Title); t != "" {
			res.Title = t
		}
	}
	if len(req.Data) > 0 {
		if !validData(req.Data) {
			http.Error(w, "data must be a JSON object", http.StatusBadRequest)
			return
		}
		res.Data = req.Data
	}
	if err := h.resumes.UpdateResume(r.Context(), res); err != nil {
		http.Error(w, "Failed to update resume", http.StatusInternalServerError)
		return
	}
	writeJSON(w, res, http.StatusOK)
}

func (h *ResumeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	res, ok := h.owned(w, r)
	if !ok {
		return
	}
	if err := h.resumes.DeleteResume(r.Context(), res.ID); err != nil {
		http.Error(w, "Failed to delete resume", http.StatusInternalServerError)
		return
	}
	h.removeFile(r.Context(), res.FileKey)
	writeMessage(w, "Resume deleted successfully", http.StatusOK)
}

func (h *ResumeHandler) removeFile(ctx context.Context, key string) {
	if key == "" || h.store == nil {
		return
	}
	if err := h.store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		logger.Warn("delete resume file", slog.String("key", key), slog.Any("err", err))
	}
}

// readUpload reads the multipart "file" field, enforcing the size limit.
func (h *ResumeHandler) readUpload(w http.ResponseWriter, r *http.Request) (data []byte, name string, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+(1<<20))
	file, hdr, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
			return nil, "", false
		}
		http.Error(w, "file is required", http.StatusBadRequest)
		return nil, "", false
	}
	defer file.Close()
	if hdr.Size > h.maxUpload {
		http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
		return nil, "", false
	}
	if !uploadExts[strings.ToLower(filepath.Ext(hdr.Filename))] {
		http.Error(w, "Only PDF, DOC and DOCX files are accepted", http.StatusUnsupportedMediaType)
		return nil, "", false
	}
	data, err = io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		http.Error(w, "Failed to read upload", http.StatusBadRequest)
		return nil, "", false
	}
	if int64(len(data)) > h.maxUpload {
		http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
		return nil, "", false
	}
	return data, filepath.Base(hdr.Filename), true
}

func (h *ResumeHandler) Upload(w http.ResponseWriter, r *http.Request) {
	res, ok := h.owned(w, r)
	if !ok {
		return
	}
	if h.store == nil {
		http.Error(w, "File storage is not configured", http.StatusServiceUnavailable)
		return
	}
	data, name, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	ext := strings.ToLower(filepath.Ext(name))
	mime := extract.Kind(ext)
	key := fmt.Sprintf("resumes/%d/%s%s", res.UserID, uuid.NewString(), ext)
	if err := h.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), mime); err != nil {
		logger.Error("store resume file", slog.String("key", key), slog.Any("err", err))
		http.Error(w, "Failed to store file", http.StatusInternalServerError)
		return
	}
	if err := h.resumes.AttachResumeFile(ctx, res.ID, key, name, mime, int64(len(data))); err != nil {
		h.removeFile(ctx, key)
		http.Error(w, "Failed to update resume", http.StatusInternalServerError)
		return
	}
	h.removeFile(ctx, res.FileKey)

	resp := map[string]any{"id": res.ID, "fileName": name, "mimeType": mime, "fileSize": len(data)}
	if h.queue != nil {
		jobID, err := h.queue.Enqueue(ctx, jobs.TypeResumeExtract, jobs.ResumePayload{ResumeID: res.ID}, jobPriorityNormal, jobMaxAttempts)
		if err != nil {
			logger.Warn("enqueue text extraction", slog.Int64("resume_id", res.ID), slog.Any("err", err))
		} else {
			resp["jobId"] = jobID
		}
	}
	writeJSON(w, resp, http.StatusOK)
}

func (h *ResumeHandler) Download(w http.ResponseWriter, r *http.Request) {
	res, ok := h.owned(w, r)
	if !ok {
		return
	}
	if res.FileKey == "" || h.store == nil {
		http.Error(w, "No file uploaded", http.StatusNotFound)
		return
	}
	rc, err := h.store.Get(r.Context(), res.FileKey)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "No file uploaded", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to read file", http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	ct := res.MimeType
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.FileName))
	if _, err := io.Copy(w, rc); err != nil {
		logger.Warn("stream resume file", slog.Int64("resume_id", res.ID), slog.Any("err", err))
	}
}

type genRequest struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

func (h *ResumeHandler) Review(w http.ResponseWriter, r *http.Request) {
	res, ok := h.owned(w, r)
	if !ok {
		return
	}
	var req genRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if queryBool(r, "async", false) {
		if h.queue == nil {
			http.Error(w, "Background jobs are not available", http.StatusServiceUnavailable)
			return
		}
		jobID, err := h.queue.Enqueue(r.Context(), jobs.TypeResumeReview, jobs.ResumePayload{ResumeID: res.ID, Temperature: req.Temperature, MaxTokens: req.MaxTokens}, jobPriorityNormal, jobMaxAttempts)
		if err != nil {
			http.Error(w, "Failed to schedule review", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]int64{"jobId": jobID}, http.StatusAccepted)
		return
	}

	if h.cv == nil {
		gradioFailed(w, "review_cv", gradio.ErrNotConfigured)
		return
	}
	review, err := h.cv.ReviewCV(r.Context(), string(res.Data), req.Temperature, req.MaxTokens)
	if err != nil {
		gradioFailed(w, "review_cv", err)
		return
	}
	at := nowMillis()
	if err := h.resumes.SetResumeReview(r.Context(), res.ID, review, at); err != nil {
		logger.Warn("store resume review", slog.Int64("resume_id", res.ID), slog.Any("err", err))
	}
	writeJSON(w, map[string]any{"review": review, "lastReviewedAt": at}, http.StatusOK)
}

// ReviewMultilingual reviews the resume in its own language. The result is not stored.
func (h *ResumeHandler) ReviewMultilingual(w http.ResponseWriter, r *http.Request) {
	res, ok := h.owned(w, r)
	if !ok {
		return
	}
	var req genRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if h.cv == nil {
		gradioFailed(w, "review_cv_multilingual", gradio.ErrNotConfigured)
		return
	}
	review, err := h.cv.ReviewCVMultilingual(r.Context(), string(res.Data), req.Temperature, req.MaxTokens)
	if err != nil {
		gradioFailed(w, "review_cv_multilingual", err)
		return
	}
	writeJSON(w, map[string]string{"review": review}, http.StatusOK)
}

func (h *ResumeHandler) Rewrite(w http.ResponseWriter, r *http.Request) {
	res, ok := h.owned(w, r)
	if !ok {
		return
	}
	var req genRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if h.cv == nil {
		gradioFailed(w, "rewrite_cv", gradio.ErrNotConfigured)
		return
	}
	out, err := h.cv.RewriteCV(r.Context(), string(res.Data), req.Temperature, req.MaxTokens)
	if err != nil {
		gradioFailed(w, "rewrite_cv", err)
		return
	}
	writeJSON(w, map[string]json.RawMessage{"rewritten": out}, http.StatusOK)
}

type matchRequest struct {
	ResumeData      json.RawMessage `json:"resumeData"`
	JobTitle        string          `json:"jobTitle"`
	JobRequirements string          `json:"jobRequirements"`
	JobDescription  string          `json:"jobDescription"`
	GithubURL       string          `json:"githubUrl"`
	LinkedinURL     string          `json:"linkedinUrl"`
}

func (h *ResumeHandler) MatchJob(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}
	var req matchRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.JobTitle) == "" || strings.TrimSpace(req.JobRequirements) == "" {
		http.Error(w, "jobTitle and jobRequirements are required", http.StatusBadRequest)
		return
	}
	if h.cv == nil {
		gradioFailed(w, "match_job", gradio.ErrNotConfigured)
		return
	}
	cv := "{}"
	if len(req.ResumeData) > 0 {
		cv = string(req.ResumeData)
	}
	out, err := h.cv.MatchJob(r.Context(), gradio.MatchRequest{
		CVJSON:          cv,
		JobTitle:        req.JobTitle,
		JobRequirements: req.JobRequirements,
		JobDescription:  req.JobDescription,
		GithubURL:       req.GithubURL,
		LinkedinURL:     req.LinkedinURL,
	})
	if err != nil {
		gradioFailed(w, "match_job", err)
		return
	}
	writeJSON(w, map[string]string{"result": out}, http.StatusOK)
}

// Parse extracts the text of an uploaded CV and sends it to the parse endpoint.
func (h *ResumeHandler) Parse(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}
	engine := strings.ToLower(r.URL.Query().Get("engine"))
	if engine != "" && engine != "gemini" && engine != "qwen" {
		http.Error(w, "engine must be gemini or qwen", http.StatusBadRequest)
		return
	}
	data, name, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	text, err := extract.Text(r.Context(), bytes.NewReader(data), int64(len(data)), name)
	if errors.Is(err, extract.ErrUnsupportedType) {
		http.Error(w, "Cannot read text from this file type", http.StatusUnsupportedMediaType)
		return
	}
	if err != nil {
		http.Error(w, "Failed to read file", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(text) == "" {
		http.Error(w, "No text found in file", http.StatusUnprocessableEntity)
		return
	}
	if h.cv == nil {
		gradioFailed(w, "parse_cv", gradio.ErrNotConfigured)
		return
	}
	out, err := h.cv.ParseCV(r.Context(), engine, text)
	if err != nil {
		gradioFailed(w, "parse_cv", err)
		return
	}
	writeJSON(w, out, http.StatusOK)
}

type shareRequest struct {
	Expiry *int64 `json:"expiry"`
}

type shareResponse struct {
	ShareURL    string  `json:"shareUrl"`
	ShareSlug   *string `json:"shareSlug"`
	IsPublic    bool    `json:"isPublic"`
	ShareExpiry *int64  `json:"shareExpiry"`
}

func (h *ResumeHandler) shareURL(slug string) string {
	return h.publicURL + "/v1/public/resumes/" + slug
}

// Share makes the resume public, keeping an existing slug.
func (h *ResumeHandler) Share(w http.ResponseWriter, r *http.Request) {
	res, ok := h.owned(w, r)
	if !ok {
		return
	}
	var req shareRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Expiry != nil && *req.Expiry <= nowMillis() {
		http.Error(w, "expiry must be in the future", http.StatusBadRequest)
		return
	}
	slug := res.ShareSlug
	if slug == nil {
		s := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
		slug = &s
	}
	if err := h.resumes.SetResumeShare(r.Context(), res.ID, slug, true, req.Expiry); err != nil {
		http.Error(w, "Failed to share resume", http.StatusInternalServerError)
		return
	}
	writeJSON(w, shareResponse{ShareURL: h.shareURL(*slug), ShareSlug: slug, IsPublic: true, ShareExpiry: req.Expiry}, http.StatusOK)
}

func (h *ResumeHandler) Unshare(w http.ResponseWriter, r *http.Request) {
	res, ok := h.owned(w, r)
	if !ok {
		return
	}
	if err := h.resumes.SetResumeShare(r.Context(), res.ID, nil, false, nil); err != nil {
		http.Error(w, "Failed to unshare resume", http.StatusInternalServerError)
		return
	}
	writeMessage(w, "Resume is no longer shared", http.StatusOK)
}

func (h *ResumeHandler) ShareStats(w http.ResponseWriter, r *http.Request) {
	res, ok := h.owned(w, r)
	if !ok {
		return
	}
	out := map[string]any{
		"isPublic":     res.IsPublic,
		"shareSlug":    res.ShareSlug,
		"shareExpiry":  res.ShareExpiry,
		"shareViews":   res.ShareViews,
		"lastViewedAt": res.LastViewedAt,
	}
	if res.ShareSlug != nil {
		out["shareUrl"] = h.shareURL(*res.ShareSlug)
	}
	writeJSON(w, out, http.StatusOK)
}

// Public serves a shared resume without authentication.
func (h *ResumeHandler) Public(w http.ResponseWriter, r *http.Request) {
	res, err := h.resumes.GetResumeBySlug(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		http.Error(w, "Failed to load resume", http.StatusInternalServerError)
		return
	}
	now := nowMillis()
	if res == nil || !res.IsPublic || (res.ShareExpiry != nil && *res.ShareExpiry <= now) {
		http.Error(w, "Resume not found", http.StatusNotFound)
		return
	}
	if err := h.resumes.IncrementShareViews(r.Context(), res.ID, now); err != nil {
		logger.Warn("count share view", slog.Int64("resume_id", res.ID), slog.Any("err", err))
	}
	writeJSON(w, map[string]any{
		"id":         res.ID,
		"title":      res.Title,
		"data":       res.Data,
		"shareViews": res.ShareViews + 1,
		"updated":    res.Updated,
	}, http.StatusOK)
}
