package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/garnizeh/careerhub/pkg/models"
	"github.com/garnizeh/careerhub/pkg/repository"
)

type NotificationHandler struct {
	repo repository.NotificationRepo
}

func NewNotificationHandler(repo repository.NotificationRepo) *NotificationHandler {
	return &NotificationHandler{repo: repo}
}

func queryBool(r *http.Request, name string, def bool) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	f := models.NotificationFilter{
		IncludeRead:     queryBool(r, "includeRead", true),
		IncludeArchived: queryBool(r, "includeArchived", false),
		Limit:           50,
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 200 {
		f.Limit = v
	}
	items, err := h.repo.ListNotifications(r.Context(), userID, f)
	if err != nil {
		http.Error(w, "Failed to list notifications", http.StatusInternalServerError)
		return
	}
	writeJSON(w, orEmpty(items), http.StatusOK)
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	n, err := h.repo.CountUnread(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to count notifications", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]int64{"count": n}, http.StatusOK)
}

// owned runs op on the notification named in the path, mapping ErrNotFound to 404.
func (h *NotificationHandler) owned(w http.ResponseWriter, r *http.Request, op func(userID, id int64) error, done string) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "Invalid notification id", http.StatusBadRequest)
		return
	}
	err := op(userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "Notification not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to update notification", http.StatusInternalServerError)
		return
	}
	writeMessage(w, done, http.StatusOK)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	h.owned(w, r, func(userID, id int64) error {
		return h.repo.MarkRead(r.Context(), userID, id, nowMillis())
	}, "Notification marked as read")
}

func (h *NotificationHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.owned(w, r, func(userID, id int64) error {
		return h.repo.Archive(r.Context(), userID, id)
	}, "Notification archived")
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.owned(w, r, func(userID, id int64) error {
		return h.repo.DeleteNotification(r.Context(), userID, id)
	}, "Notification deleted")
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	n, err := h.repo.MarkAllRead(r.Context(), userID, nowMillis())
	if err != nil {
		http.Error(w, "Failed to update notifications", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]int64{"updated": n}, http.StatusOK)
}
