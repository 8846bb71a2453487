package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/garnizeh/careerhub/internal/xp"
)

// Achievements is the part of the XP engine that other handlers trigger.
type Achievements interface {
	TriggerEvent(ctx context.Context, userID int64, key string, meta map[string]any) (*xp.Result, error)
	CheckMilestones(ctx context.Context, userID int64) (*xp.Result, error)
}

// checkMilestones runs the milestone check; failures never fail the request.
func checkMilestones(ctx context.Context, a Achievements, userID int64) *xp.Result {
	if a == nil {
		return nil
	}
	res, err := a.CheckMilestones(ctx, userID)
	if err != nil {
		logger.Warn("milestone check failed", slog.Int64("user_id", userID), slog.Any("err", err))
		return nil
	}
	return res
}

func triggerEvent(ctx context.Context, a Achievements, userID int64, key string, meta map[string]any) *xp.Result {
	if a == nil {
		return nil
	}
	res, err := a.TriggerEvent(ctx, userID, key, meta)
	if err != nil {
		logger.Warn("achievement event failed", slog.Int64("user_id", userID), slog.String("key", key), slog.Any("err", err))
		return nil
	}
	return res
}

type XPHandler struct {
	svc *xp.Service
}

func NewXPHandler(svc *xp.Service) *XPHandler {
	return &XPHandler{svc: svc}
}

// Status never fails: errors are logged and a zeroed status returned.
func (h *XPHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	st, err := h.svc.Status(r.Context(), userID)
	if err != nil {
		logger.Error("xp status", slog.Int64("user_id", userID), slog.Any("err", err))
		st = xp.ZeroStatus()
	}
	writeJSON(w, st, http.StatusOK)
}

type xpEventRequest struct {
	EventKey string         `json:"eventKey"`
	Meta     map[string]any `json:"meta"`
}

func (h *XPHandler) TriggerEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req xpEventRequest
	if err := decodeJSON(r, &req); err != nil || req.EventKey == "" {
		http.Error(w, "eventKey is required", http.StatusBadRequest)
		return
	}
	res, err := h.svc.TriggerEvent(r.Context(), userID, req.EventKey, req.Meta)
	if errors.Is(err, xp.ErrUserNotFound) {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Error("trigger xp event", slog.Int64("user_id", userID), slog.Any("err", err))
		http.Error(w, "Failed to process event", http.StatusInternalServerError)
		return
	}
	writeJSON(w, res, http.StatusOK)
}

func (h *XPHandler) CompleteChallenge(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "Invalid challenge id", http.StatusBadRequest)
		return
	}
	res, err := h.svc.CompleteDailyChallenge(r.Context(), userID, id)
	switch {
	case errors.Is(err, xp.ErrChallengeNotFound):
		http.Error(w, "Challenge not found", http.StatusNotFound)
		return
	case errors.Is(err, xp.ErrChallengeDone):
		http.Error(w, "Challenge already completed today", http.StatusBadRequest)
		return
	case err != nil:
		logger.Error("complete challenge", slog.Int64("user_id", userID), slog.Any("err", err))
		http.Error(w, "Failed to complete challenge", http.StatusInternalServerError)
		return
	}
	writeJSON(w, res, http.StatusOK)
}

func (h *XPHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ua, err := h.svc.Redeem(r.Context(), userID, mux.Vars(r)["key"])
	switch {
	case errors.Is(err, xp.ErrAchievementNotFound):
		http.Error(w, "Achievement not earned", http.StatusNotFound)
		return
	case errors.Is(err, xp.ErrAlreadyClaimed):
		http.Error(w, "Achievement already claimed", http.StatusBadRequest)
		return
	case err != nil:
		logger.Error("redeem achievement", slog.Int64("user_id", userID), slog.Any("err", err))
		http.Error(w, "Failed to redeem achievement", http.StatusInternalServerError)
		return
	}
	writeJSON(w, ua, http.StatusOK)
}

func (h *XPHandler) Achievements(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	defs, err := h.svc.Definitions(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to load achievements", http.StatusInternalServerError)
		return
	}
	writeJSON(w, orEmpty(defs), http.StatusOK)
}

func (h *XPHandler) Badges(w http.ResponseWriter, r *http.Request) {
	badges, err := h.svc.Badges(r.Context())
	if err != nil {
		http.Error(w, "Failed to load badges", http.StatusInternalServerError)
		return
	}
	writeJSON(w, orEmpty(badges), http.StatusOK)
}

func (h *XPHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.svc.Leaderboard(r.Context(), limit)
	if err != nil {
		http.Error(w, "Failed to load leaderboard", http.StatusInternalServerError)
		return
	}
	writeJSON(w, orEmpty(entries), http.StatusOK)
}

func (h *XPHandler) Keys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.svc.Keys(r.Context())
	if err != nil {
		http.Error(w, "Failed to load keys", http.StatusInternalServerError)
		return
	}
	writeJSON(w, orEmpty(keys), http.StatusOK)
}
