package gradio

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	defaultTemperature = 0.7
	advisorMaxTokens   = 8192
)

// First returns the first element of a result array.
func First(raw json.RawMessage) (json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode gradio result: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyResult
	}
	return items[0], nil
}

// Text returns v as a string when it is a JSON string, else its JSON text.
func Text(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return string(v)
}

// AsJSON returns v as JSON: strings holding JSON are unwrapped, other strings
// are kept as JSON strings.
func AsJSON(v json.RawMessage) json.RawMessage {
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return v
	}
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	trimmed = strings.TrimSpace(trimmed)
	if json.Valid([]byte(trimmed)) && (strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")) {
		return json.RawMessage(trimmed)
	}
	return v
}

func (c *Client) callFirst(ctx context.Context, endpoint string, data []any) (json.RawMessage, error) {
	raw, err := c.Call(ctx, endpoint, data)
	if err != nil {
		return nil, err
	}
	return First(raw)
}

func genOpts(temperature float64, maxTokens, defMax int) (float64, int) {
	if temperature <= 0 {
		temperature = defaultTemperature
	}
	if maxTokens <= 0 {
		maxTokens = defMax
	}
	return temperature, maxTokens
}

// ReviewCV returns the ATS review text for a CV.
func (c *Client) ReviewCV(ctx context.Context, cvJSON string, temperature float64, maxTokens int) (string, error) {
	t, m := genOpts(temperature, maxTokens, 2048)
	v, err := c.callFirst(ctx, "review_cv", []any{cvJSON, t, m})
	if err != nil {
		return "", err
	}
	return Text(v), nil
}

// ReviewCVMultilingual reviews a CV written in any language, answering in that language.
func (c *Client) ReviewCVMultilingual(ctx context.Context, cvJSON string, temperature float64, maxTokens int) (string, error) {
	t, m := genOpts(temperature, maxTokens, 4000)
	v, err := c.callFirst(ctx, "review_cv_multilingual", []any{cvJSON, t, m})
	if err != nil {
		return "", err
	}
	return Text(v), nil
}

// RewriteCV returns the rewritten CV, parsed as JSON when possible.
func (c *Client) RewriteCV(ctx context.Context, cvJSON string, temperature float64, maxTokens int) (json.RawMessage, error) {
	t, m := genOpts(temperature, maxTokens, 4096)
	v, err := c.callFirst(ctx, "rewrite_cv", []any{cvJSON, t, m})
	if err != nil {
		return nil, err
	}
	return AsJSON(v), nil
}

type MatchRequest struct {
	CVJSON          string
	JobTitle        string
	JobRequirements string
	JobDescription  string
	GithubURL       string
	LinkedinURL     string
}

func (c *Client) MatchJob(ctx context.Context, r MatchRequest) (string, error) {
	v, err := c.callFirst(ctx, "match_job", []any{r.CVJSON, r.JobTitle, r.JobRequirements, r.JobDescription, r.GithubURL, r.LinkedinURL})
	if err != nil {
		return "", err
	}
	return Text(v), nil
}

// ParseResult is the [display, json] pair returned by the parse endpoints.
type ParseResult struct {
	Display string          `json:"display"`
	JSON    json.RawMessage `json:"json"`
}

// ParseCV sends extracted CV text to parse_cv_gemini or parse_cv_qwen.
func (c *Client) ParseCV(ctx context.Context, engine, text string) (*ParseResult, error) {
	var endpoint string
	switch strings.ToLower(engine) {
	case "", "gemini":
		endpoint = "parse_cv_gemini"
	case "qwen":
		endpoint = "parse_cv_qwen"
	default:
		return nil, fmt.Errorf("unknown parse engine %q", engine)
	}
	raw, err := c.Call(ctx, endpoint, []any{text})
	if err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode gradio result: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyResult
	}
	out := &ParseResult{Display: Text(items[0])}
	if len(items) > 1 {
		out.JSON = AsJSON(items[1])
	}
	if !json.Valid(out.JSON) || len(out.JSON) == 0 || out.JSON[0] != '{' {
		return nil, fmt.Errorf("%s returned no CV object", endpoint)
	}
	return out, nil
}

// CareerAdvice returns the raw roadmap produced by career_advisor_fn.
func (c *Client) CareerAdvice(ctx context.Context, cvJSON string, desiredPaths []string, intentions string) (json.RawMessage, error) {
	if desiredPaths == nil {
		desiredPaths = []string{}
	}
	v, err := c.callFirst(ctx, "career_advisor_fn", []any{cvJSON, desiredPaths, intentions, defaultTemperature, advisorMaxTokens})
	if err != nil {
		return nil, err
	}
	return AsJSON(v), nil
}

// ApplyCareerFeedback regenerates a roadmap step from user feedback.
func (c *Client) ApplyCareerFeedback(ctx context.Context, original, stepID, feedbackJSON string) (json.RawMessage, error) {
	v, err := c.callFirst(ctx, "apply_feedback_fn", []any{original, stepID, feedbackJSON, defaultTemperature, advisorMaxTokens})
	if err != nil {
		return nil, err
	}
	return AsJSON(v), nil
}
