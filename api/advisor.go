package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/garnizeh/careerhub/internal/advisor"
	"github.com/garnizeh/careerhub/internal/xp"
	"github.com/garnizeh/careerhub/pkg/repository"
)

// CareerAdvisor produces and refines career roadmaps.
type CareerAdvisor interface {
	Advise(ctx context.Context, cvJSON json.RawMessage, desiredPaths []string, intentions string) (*advisor.Result, error)
	ApplyFeedback(ctx context.Context, original json.RawMessage, stepID string, fb advisor.Feedback) (json.RawMessage, error)
}

type AdvisorHandler struct {
	resumes repository.ResumeRepo
	advisor CareerAdvisor
	xp      Achievements
	owner   *ResumeHandler
}

func NewAdvisorHandler(resumes repository.ResumeRepo, adv CareerAdvisor, achievements Achievements) *AdvisorHandler {
	return &AdvisorHandler{resumes: resumes, advisor: adv, xp: achievements, owner: &ResumeHandler{resumes: resumes}}
}

type adviceRequest struct {
	DesiredPaths []string        `json:"desiredPaths"`
	Intentions   string          `json:"intentions"`
	CVData       json.RawMessage `json:"cvData"`
}

func advisorFailed(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, advisor.ErrEmptyCV), errors.Is(err, advisor.ErrInvalidFeedback):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		logger.Error("career advisor failed", slog.Any("err", err))
		http.Error(w, "Career advisor is unavailable", http.StatusBadGateway)
	}
}

// Advise generates a roadmap from the resume data and stores it on the resume.
func (h *AdvisorHandler) Advise(w http.ResponseWriter, r *http.Request) {
	res, ok := h.owner.owned(w, r)
	if !ok {
		return
	}
	var req adviceRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	cv := res.Data
	if len(req.CVData) > 0 && string(req.CVData) != "null" {
		cv = req.CVData
	}
	if t := bytes.TrimSpace(cv); len(t) == 0 || string(t) == "{}" {
		http.Error(w, "Resume has no CV data", http.StatusBadRequest)
		return
	}
	if h.advisor == nil {
		http.Error(w, "Career advisor is not configured", http.StatusServiceUnavailable)
		return
	}

	ctx := r.Context()
	out, err := h.advisor.Advise(ctx, cv, req.DesiredPaths, strings.TrimSpace(req.Intentions))
	if err != nil {
		advisorFailed(w, err)
		return
	}
	if err := h.resumes.SetCareerAdvice(ctx, res.ID, out.Raw); err != nil {
		logger.Error("store career advice", slog.Int64("resume_id", res.ID), slog.Any("err", err))
		http.Error(w, "Failed to store career advice", http.StatusInternalServerError)
		return
	}
	award := triggerEvent(ctx, h.xp, res.UserID, xp.KeyAdvisor, map[string]any{"resumeId": res.ID})
	writeJSON(w, map[string]any{"roadmap": out.Raw, "source": out.Source, "xp": award}, http.StatusOK)
}

func (h *AdvisorHandler) Get(w http.ResponseWriter, r *http.Request) {
	res, ok := h.owner.owned(w, r)
	if !ok {
		return
	}
	if len(res.CareerAdvice) == 0 || string(res.CareerAdvice) == "null" {
		http.Error(w, "No career advice yet", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]json.RawMessage{"roadmap": res.CareerAdvice}, http.StatusOK)
}

type feedbackRequest struct {
	StepID   json.Number      `json:"stepId"`
	Original json.RawMessage  `json:"original"`
	Feedback advisor.Feedback `json:"feedback"`
}

// Feedback regenerates one step and writes it back into the stored roadmap.
func (h *AdvisorHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	res, ok := h.owner.owned(w, r)
	if !ok {
		return
	}
	var req feedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	stepID := req.StepID.String()
	if stepID == "" {
		http.Error(w, "stepId is required", http.StatusBadRequest)
		return
	}
	if err := req.Feedback.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	original := res.CareerAdvice
	if len(req.Original) > 0 && string(req.Original) != "null" {
		original = req.Original
	}
	if len(original) == 0 || string(original) == "null" {
		http.Error(w, "No roadmap to update", http.StatusBadRequest)
		return
	}
	if h.advisor == nil {
		http.Error(w, "Career advisor is not configured", http.StatusServiceUnavailable)
		return
	}

	step, err := h.advisor.ApplyFeedback(r.Context(), original, stepID, req.Feedback)
	if err != nil {
		advisorFailed(w, err)
		return
	}
	if updated, ok := replaceStep(original, stepID, step); ok {
		if err := h.resumes.SetCareerAdvice(r.Context(), res.ID, updated); err != nil {
			logger.Warn("store updated roadmap", slog.Int64("resume_id", res.ID), slog.Any("err", err))
		}
	}
	writeJSON(w, map[string]json.RawMessage{"step": step}, http.StatusOK)
}

// replaceStep swaps the step whose id matches stepID inside roadmap.
func replaceStep(roadmap json.RawMessage, stepID string, step json.RawMessage) (json.RawMessage, bool) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(roadmap, &doc); err != nil {
		return nil, false
	}
	var steps []json.RawMessage
	if err := json.Unmarshal(doc["steps"], &steps); err != nil {
		return nil, false
	}
	want, err := strconv.Atoi(stepID)
	if err != nil {
		return nil, false
	}
	found := false
	for i, s := range steps {
		var head struct {
			ID int `json:"id"`
		}
		if json.Unmarshal(s, &head) == nil && head.ID == want {
			steps[i] = step
			found = true
			break
		}
	}
	if !found {
		return nil, false
	}
	b, err := json.Marshal(steps)
	if err != nil {
		return nil, false
	}
	doc["steps"] = b
	out, err := json.Marshal(doc)
	return out, err == nil
}

func (h *AdvisorHandler) CompleteStep(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	stepID := mux.Vars(r)["stepId"]
	if stepID == "" {
		http.Error(w, "Invalid step id", http.StatusBadRequest)
		return
	}
	award := triggerEvent(r.Context(), h.xp, userID, xp.KeyAdviceStepComplete, map[string]any{"stepId": stepID})
	if award == nil {
		award = &xp.Result{}
	}
	writeJSON(w, award, http.StatusOK)
}
