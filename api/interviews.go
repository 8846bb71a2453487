package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/garnizeh/careerhub/internal/schema"
	"github.com/garnizeh/careerhub/internal/voice"
	"github.com/garnizeh/careerhub/pkg/models"
	"github.com/garnizeh/careerhub/pkg/repository"
)

// VoiceService is the voice interview engine.
type VoiceService interface {
	Setup(ctx context.Context, cvData json.RawMessage, job voice.JobDescription) (*voice.SetupResponse, error)
	Status(ctx context.Context, sessionID string) (*voice.SessionStatus, error)
	Report(ctx context.Context, sessionID string) (*voice.ReportResponse, error)
	History(ctx context.Context, sessionID string) ([]voice.HistoryEntry, error)
	StreamURL(sessionID string) string
}

type InterviewHandler struct {
	sessions repository.VoiceRepo
	voice    VoiceService
	schemas  *schema.Registry
	xp       Achievements
	dialer   *websocket.Dialer
}

// NewInterviewHandler falls back to an unconfigured client when svc is nil.
func NewInterviewHandler(sessions repository.VoiceRepo, svc VoiceService, schemas *schema.Registry, achievements Achievements) *InterviewHandler {
	if svc == nil {
		svc = voice.New("", 0, nil)
	}
	return &InterviewHandler{sessions: sessions, voice: svc, schemas: schemas, xp: achievements, dialer: websocket.DefaultDialer}
}

func voiceFailed(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, voice.ErrNotConfigured):
		http.Error(w, "Voice interview service is not configured", http.StatusServiceUnavailable)
	case errors.Is(err, voice.ErrSessionNotFound):
		http.Error(w, "Interview session not found", http.StatusNotFound)
	default:
		logger.Error("voice service call failed", slog.String("op", op), slog.Any("err", err))
		http.Error(w, "Voice interview service error", http.StatusBadGateway)
	}
}

type setupRequest struct {
	CVData         json.RawMessage      `json:"cvData"`
	JobDescription voice.JobDescription `json:"jobDescription"`
}

func (h *InterviewHandler) Setup(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req setupRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if !validData(req.CVData) {
		http.Error(w, "cvData must be a JSON object", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.JobDescription.Title) == "" {
		http.Error(w, "jobDescription.title is required", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	if h.schemas != nil {
		if err := h.schemas.Validate(ctx, schema.CV, req.CVData); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	out, err := h.voice.Setup(ctx, req.CVData, req.JobDescription)
	if err != nil {
		voiceFailed(w, "setup", err)
		return
	}
	jd, _ := json.Marshal(req.JobDescription)
	s := &models.VoiceSession{
		ID:             out.SessionID,
		UserID:         userID,
		StreamURL:      h.voice.StreamURL(out.SessionID),
		Status:         models.VoiceStatusActive,
		CVData:         req.CVData,
		JobDescription: jd,
		Created:        nowMillis(),
	}
	if err := h.sessions.CreateVoiceSession(ctx, s); err != nil {
		logger.Error("persist voice session", slog.String("session_id", s.ID), slog.Any("err", err))
		http.Error(w, "Failed to save interview session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"sessionId": s.ID,
		"streamUrl": s.StreamURL,
		"status":    s.Status,
		"createdAt": s.Created,
		"message":   out.Message,
	}, http.StatusCreated)
}

// session resolves the caller's session from id, falling back to the latest
// one when id is empty or a client placeholder.
func (h *InterviewHandler) session(w http.ResponseWriter, r *http.Request, id string) (*models.VoiceSession, bool) {
	userID, ok := currentUser(w, r)
	if !ok {
		return nil, false
	}
	var (
		s   *models.VoiceSession
		err error
	)
	switch strings.TrimSpace(id) {
	case "", "undefined", "null":
		s, err = h.sessions.LatestVoiceSession(r.Context(), userID)
	default:
		s, err = h.sessions.GetVoiceSession(r.Context(), id)
	}
	if err != nil {
		http.Error(w, "Failed to load interview session", http.StatusInternalServerError)
		return nil, false
	}
	if s == nil || s.UserID != userID {
		http.Error(w, "Interview session not found", http.StatusNotFound)
		return nil, false
	}
	return s, true
}

type reportResponse struct {
	SessionID    string          `json:"sessionId"`
	Status       string          `json:"status"`
	Report       []voice.Section `json:"report"`
	OverallScore int             `json:"overallScore"`
	CompletedAt  *int64          `json:"completedAt,omitempty"`
}

func (h *InterviewHandler) Report(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r, r.URL.Query().Get("sessionId"))
	if !ok {
		return
	}
	if s.Status == models.VoiceStatusCompleted && len(s.Report) > 0 {
		var sections []voice.Section
		if err := json.Unmarshal(s.Report, &sections); err == nil {
			score := 0
			if s.OverallScore != nil {
				score = *s.OverallScore
			}
			writeJSON(w, reportResponse{SessionID: s.ID, Status: s.Status, Report: sections, OverallScore: score, CompletedAt: s.CompletedAt}, http.StatusOK)
			return
		}
	}

	ctx := r.Context()
	raw, err := h.voice.Report(ctx, s.ID)
	if err != nil {
		voiceFailed(w, "report", err)
		return
	}
	if raw.Pending() {
		writeJSON(w, map[string]string{"sessionId": s.ID, "status": "pending"}, http.StatusAccepted)
		return
	}
	sections, err := voice.NormalizeReport(raw.Report)
	if errors.Is(err, voice.ErrEmptyReport) {
		http.Error(w, "Interview report not available", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Invalid interview report", http.StatusBadGateway)
		return
	}
	score := voice.OverallScore(sections)
	at := nowMillis()
	stored, _ := json.Marshal(sections)
	first, err := h.sessions.CompleteVoiceSession(ctx, s.ID, stored, score, at)
	if err != nil {
		logger.Error("store interview report", slog.String("session_id", s.ID), slog.Any("err", err))
		http.Error(w, "Failed to store interview report", http.StatusInternalServerError)
		return
	}
	if first {
		checkMilestones(ctx, h.xp, s.UserID)
	}
	writeJSON(w, reportResponse{SessionID: s.ID, Status: models.VoiceStatusCompleted, Report: sections, OverallScore: score, CompletedAt: &at}, http.StatusOK)
}

func (h *InterviewHandler) History(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r, r.URL.Query().Get("sessionId"))
	if !ok {
		return
	}
	entries, err := h.voice.History(r.Context(), s.ID)
	if err != nil {
		voiceFailed(w, "history", err)
		return
	}
	writeJSON(w, map[string]any{
		"sessionId":      s.ID,
		"entries":        orEmpty(entries),
		"totalExchanges": len(entries),
	}, http.StatusOK)
}

func (h *InterviewHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	items, err := h.sessions.ListVoiceSessions(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to list interview sessions", http.StatusInternalServerError)
		return
	}
	writeJSON(w, orEmpty(items), http.StatusOK)
}

func (h *InterviewHandler) Status(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r, mux.Vars(r)["sessionId"])
	if !ok {
		return
	}
	st, err := h.voice.Status(r.Context(), s.ID)
	if err != nil {
		voiceFailed(w, "status", err)
		return
	}
	writeJSON(w, map[string]any{"sessionId": s.ID, "status": s.Status, "engine": st}, http.StatusOK)
}

func (h *InterviewHandler) StreamURL(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r, mux.Vars(r)["sessionId"])
	if !ok {
		return
	}
	u := h.voice.StreamURL(s.ID)
	if u == "" {
		voiceFailed(w, "stream-url", voice.ErrNotConfigured)
		return
	}
	writeJSON(w, map[string]string{"sessionId": s.ID, "streamUrl": u}, http.StatusOK)
}

// Stream upgrades the request and relays frames to the voice engine. A
// "complete" frame from the engine marks the session ended.
func (h *InterviewHandler) Stream(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r, mux.Vars(r)["sessionId"])
	if !ok {
		return
	}
	upstream := h.voice.StreamURL(s.ID)
	if upstream == "" {
		voiceFailed(w, "stream", voice.ErrNotConfigured)
		return
	}
	conn, err := voice.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", slog.String("session_id", s.ID), slog.Any("err", err))
		return
	}

	onServer := func(msgType string) {
		if msgType != voice.MsgComplete {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.sessions.UpdateVoiceStatus(ctx, s.ID, models.VoiceStatusEnded); err != nil {
			logger.Warn("mark interview ended", slog.String("session_id", s.ID), slog.Any("err", err))
		}
	}
	if err := voice.Relay(r.Context(), conn, upstream, h.dialer, onServer); err != nil {
		logger.Info("voice relay closed", slog.String("session_id", s.ID), slog.Any("err", err))
	}
}
