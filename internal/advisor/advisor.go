// Package advisor produces career roadmaps from a parsed CV. The Gradio
// career advisor is tried first; a local Ollama model is the fallback.
package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/garnizeh/careerhub/internal/schema"
	"github.com/garnizeh/careerhub/pkg/ollama"
)

var (
	ErrNoRoadmap       = errors.New("no roadmap could be generated")
	ErrInvalidFeedback = errors.New("invalid feedback")
	ErrEmptyCV         = errors.New("cv data is required")
)

// Generator is the remote advisor service.
type Generator interface {
	CareerAdvice(ctx context.Context, cvJSON string, desiredPaths []string, intentions string) (json.RawMessage, error)
	ApplyCareerFeedback(ctx context.Context, original, stepID, feedbackJSON string) (json.RawMessage, error)
}

// Fallback generates JSON locally.
type Fallback interface {
	GenerateJSON(ctx context.Context, system, prompt string) (ollama.GenerateResult, error)
}

type Intentions struct {
	DesiredPosition string `json:"desiredPosition"`
	CareerGoals     string `json:"careerGoals"`
}

type Path struct {
	CurrentPosition string   `json:"currentPosition"`
	PotentialPaths  []string `json:"potentialPaths"`
}

type Profile struct {
	CurrentPosition string   `json:"currentPosition"`
	Experience      string   `json:"experience"`
	KeySkills       []string `json:"keySkills"`
}

type Resource struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Explanation string `json:"explanation"`
}

type Step struct {
	ID                   int        `json:"id"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	Duration             string     `json:"duration"`
	RecommendedResources []Resource `json:"recommendedResources"`
	ImprovementAreas     []string   `json:"improvementAreas"`
}

type Roadmap struct {
	Intentions Intentions `json:"intentions"`
	Roadmap    Path       `json:"roadmap"`
	Profile    Profile    `json:"profile"`
	Steps      []Step     `json:"steps"`
}

// Step returns the step with the given id, or nil.
func (r *Roadmap) Step(id int) *Step {
	for i := range r.Steps {
		if r.Steps[i].ID == id {
			return &r.Steps[i]
		}
	}
	return nil
}

// Result carries the parsed roadmap, the validated JSON and where it came from.
type Result struct {
	Roadmap *Roadmap        `json:"roadmap"`
	Raw     json.RawMessage `json:"-"`
	Source  string          `json:"source"`
}

// Feedback is the user's rating of one roadmap step.
type Feedback struct {
	ClarityScore    *int    `json:"clarityScore"`
	RelevanceScore  *int    `json:"relevanceScore"`
	DifficultyLevel *string `json:"difficultyLevel"`
	UserComment     *string `json:"userComment"`
}

func (f Feedback) Validate() error {
	for _, s := range []*int{f.ClarityScore, f.RelevanceScore} {
		if s != nil && (*s < 1 || *s > 5) {
			return fmt.Errorf("%w: scores must be between 1 and 5", ErrInvalidFeedback)
		}
	}
	if f.DifficultyLevel != nil {
		switch *f.DifficultyLevel {
		case "easy", "medium", "hard":
		default:
			return fmt.Errorf("%w: difficultyLevel must be easy, medium or hard", ErrInvalidFeedback)
		}
	}
	if f.ClarityScore == nil && f.RelevanceScore == nil && f.DifficultyLevel == nil && (f.UserComment == nil || strings.TrimSpace(*f.UserComment) == "") {
		return fmt.Errorf("%w: empty feedback", ErrInvalidFeedback)
	}
	return nil
}

type Advisor struct {
	gen      Generator
	fallback Fallback
	schemas  *schema.Registry
	logger   *slog.Logger
}

// New wires the advisor. gen and fallback may be nil; at least one is
// needed for Advise to succeed.
func New(gen Generator, fallback Fallback, schemas *schema.Registry, logger *slog.Logger) *Advisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Advisor{gen: gen, fallback: fallback, schemas: schemas, logger: logger}
}

// Advise returns a validated roadmap for the CV.
func (a *Advisor) Advise(ctx context.Context, cvJSON json.RawMessage, desiredPaths []string, intentions string) (*Result, error) {
	if len(cvJSON) == 0 || string(cvJSON) == "null" {
		return nil, ErrEmptyCV
	}
	var lastErr error

	if a.gen != nil {
		raw, err := a.gen.CareerAdvice(ctx, string(cvJSON), desiredPaths, intentions)
		if err == nil {
			rm, valid, perr := a.ParseRoadmap(ctx, raw)
			if perr == nil {
				return &Result{Roadmap: rm, Raw: valid, Source: "gradio"}, nil
			}
			err = perr
		}
		a.logger.Warn("career advisor service failed", "err", err)
		lastErr = err
	}

	if a.fallback != nil {
		prompt, err := ollama.RenderTemplate(roadmapPrompt, map[string]any{
			"CV":         string(cvJSON),
			"Paths":      desiredPaths,
			"Intentions": intentions,
		})
		if err != nil {
			return nil, fmt.Errorf("render roadmap prompt: %w", err)
		}
		out, err := a.fallback.GenerateJSON(ctx, systemPrompt, prompt)
		if err == nil {
			rm, valid, perr := a.ParseRoadmap(ctx, []byte(out.Text))
			if perr == nil {
				a.logger.Info("roadmap generated by fallback model", "model", out.Model)
				return &Result{Roadmap: rm, Raw: valid, Source: "ollama"}, nil
			}
			err = perr
		}
		a.logger.Warn("fallback roadmap generation failed", "err", err)
		lastErr = err
	}

	if lastErr == nil {
		return nil, ErrNoRoadmap
	}
	return nil, fmt.Errorf("%w: %v", ErrNoRoadmap, lastErr)
}

// ParseRoadmap extracts the roadmap object from model output, validates it
// and decodes it. A JSON string wrapping the object is unwrapped first.
func (a *Advisor) ParseRoadmap(ctx context.Context, raw []byte) (*Roadmap, json.RawMessage, error) {
	j := ExtractJSON(unquote(raw))
	if j == "" {
		return nil, nil, errors.New("no JSON object found in response")
	}
	if a.schemas != nil {
		if err := a.schemas.Validate(ctx, schema.Roadmap, []byte(j)); err != nil {
			return nil, nil, err
		}
	}
	var rm Roadmap
	if err := json.Unmarshal([]byte(j), &rm); err != nil {
		return nil, nil, fmt.Errorf("decode roadmap: %w", err)
	}
	if len(rm.Steps) == 0 {
		return nil, nil, errors.New("roadmap has no steps")
	}
	return &rm, json.RawMessage(j), nil
}

// ApplyFeedback regenerates one step of original from the feedback and
// returns the updated step object.
func (a *Advisor) ApplyFeedback(ctx context.Context, original json.RawMessage, stepID string, fb Feedback) (json.RawMessage, error) {
	if err := fb.Validate(); err != nil {
		return nil, err
	}
	if len(original) == 0 {
		return nil, errors.New("original roadmap is required")
	}
	fbJSON, _ := json.Marshal(fb)
	var lastErr error

	if a.gen != nil {
		raw, err := a.gen.ApplyCareerFeedback(ctx, string(original), stepID, string(fbJSON))
		if err == nil {
			step, perr := parseStep(raw)
			if perr == nil {
				return step, nil
			}
			err = perr
		}
		a.logger.Warn("career feedback service failed", "err", err)
		lastErr = err
	}

	if a.fallback != nil {
		prompt, err := ollama.RenderTemplate(feedbackPrompt, map[string]any{
			"Original": string(original),
			"StepID":   stepID,
			"Feedback": string(fbJSON),
		})
		if err != nil {
			return nil, fmt.Errorf("render feedback prompt: %w", err)
		}
		out, err := a.fallback.GenerateJSON(ctx, systemPrompt, prompt)
		if err == nil {
			step, perr := parseStep([]byte(out.Text))
			if perr == nil {
				return step, nil
			}
			err = perr
		}
		lastErr = err
	}

	if lastErr == nil {
		return nil, ErrNoRoadmap
	}
	return nil, fmt.Errorf("%w: %v", ErrNoRoadmap, lastErr)
}

func parseStep(raw []byte) (json.RawMessage, error) {
	j := ExtractJSON(unquote(raw))
	if j == "" {
		return nil, errors.New("no JSON object found in response")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(j), &m); err != nil {
		return nil, fmt.Errorf("decode step: %w", err)
	}
	if e, ok := m["error"]; ok {
		return nil, fmt.Errorf("advisor error: %v", e)
	}
	if t, _ := m["title"].(string); strings.TrimSpace(t) == "" {
		return nil, errors.New("updated step has no title")
	}
	return json.RawMessage(j), nil
}

// unquote returns the content of a JSON string, or raw unchanged.
func unquote(raw []byte) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// ExtractJSON returns the substring from the first '{' to the last '}' in the input.
// Model output often wraps JSON in text or markdown.
func ExtractJSON(s string) string {
	first := strings.Index(s, "{")
	last := strings.LastIndex(s, "}")
	if first == -1 || last == -1 || last < first {
		return ""
	}
	return s[first : last+1]
}
