package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/garnizeh/careerhub/pkg/models"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", slog.Any("err", err))
	}
}

func writeMessage(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, map[string]string{"message": msg}, status)
}

// decodeJSON reads a JSON body. An empty body is reported as io.EOF.
func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

// decodeOptionalJSON is decodeJSON that accepts an empty body.
func decodeOptionalJSON(r *http.Request, v any) error {
	if err := decodeJSON(r, v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id, err == nil && id > 0
}

func nowMillis() int64 {
	return time.Now().UTC().UnixMilli()
}

func isAdmin(r *http.Request) bool {
	return RoleFrom(r.Context()) == models.RoleAdmin
}

// currentUser returns the caller's id, writing 401 when it is missing.
func currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := UserIDFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}
	return id, ok
}

type pageMeta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

type pagedResponse struct {
	Data any      `json:"data"`
	Meta pageMeta `json:"meta"`
}

// pageParams reads page (1-based) and limit query parameters.
func pageParams(r *http.Request, defLimit, maxLimit int) (page, limit, offset int) {
	q := r.URL.Query()
	page, limit = 1, defLimit
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		limit = min(v, maxLimit)
	}
	return page, limit, (page - 1) * limit
}

func paged(data any, total int64, page, limit int) pagedResponse {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return pagedResponse{Data: data, Meta: pageMeta{Total: total, Page: page, Limit: limit, TotalPages: pages}}
}

// orEmpty keeps JSON list responses as [] instead of null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
