package advisor_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/garnizeh/careerhub/internal/advisor"
	"github.com/garnizeh/careerhub/internal/schema"
	"github.com/garnizeh/careerhub/pkg/ollama"
)

const validRoadmap = `{"intentions":{"desiredPosition":"Staff Engineer","careerGoals":"lead"},
"roadmap":{"currentPosition":"Senior","potentialPaths":["Staff"]},
"profile":{"currentPosition":"Senior","experience":"8 years","keySkills":["Go"]},
"steps":[{"id":1,"title":"Deepen distributed systems","description":"d","duration":"3 months",
"recommendedResources":[{"type":"Book","title":"DDIA","url":"https://dataintensive.net","explanation":"classic"}],
"improvementAreas":["consensus"]},{"id":2,"title":"Mentor","duration":"ongoing"}]}`

type fakeGen struct {
	advice   json.RawMessage
	feedback json.RawMessage
	err      error
	gotPaths []string
}

func (g *fakeGen) CareerAdvice(ctx context.Context, cvJSON string, paths []string, intentions string) (json.RawMessage, error) {
	g.gotPaths = paths
	return g.advice, g.err
}

func (g *fakeGen) ApplyCareerFeedback(ctx context.Context, original, stepID, fb string) (json.RawMessage, error) {
	return g.feedback, g.err
}

type fakeLLM struct {
	text   string
	err    error
	prompt string
}

func (f *fakeLLM) GenerateJSON(ctx context.Context, system, prompt string) (ollama.GenerateResult, error) {
	f.prompt = prompt
	return ollama.GenerateResult{Text: f.text, Model: "llama3"}, f.err
}

func registry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := schema.Load()
	if err != nil {
		t.Fatalf("schema.Load: %v", err)
	}
	return reg
}

func quoted(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

func TestAdvise_FromService(t *testing.T) {
	gen := &fakeGen{advice: json.RawMessage(validRoadmap)}
	a := advisor.New(gen, nil, registry(t), nil)

	res, err := a.Advise(context.Background(), json.RawMessage(`{"skills":["Go"]}`), []string{"DevOps"}, "grow")
	if err != nil {
		t.Fatalf("Advise: %v", err)
	}
	if res.Source != "gradio" || len(res.Roadmap.Steps) != 2 || res.Roadmap.Step(1).RecommendedResources[0].Title != "DDIA" {
		t.Fatalf("unexpected result %#v", res)
	}
	if res.Roadmap.Step(3) != nil {
		t.Fatalf("expected nil for unknown step")
	}
	if len(gen.gotPaths) != 1 || gen.gotPaths[0] != "DevOps" {
		t.Fatalf("paths not forwarded: %v", gen.gotPaths)
	}
}

func TestAdvise_StringWrappedMarkdown(t *testing.T) {
	gen := &fakeGen{advice: quoted("Here you go:\n```json\n" + validRoadmap + "\n```")}
	a := advisor.New(gen, nil, registry(t), nil)
	res, err := a.Advise(context.Background(), json.RawMessage(`{"a":1}`), nil, "")
	if err != nil || res.Roadmap.Profile.Experience != "8 years" {
		t.Fatalf("Advise = %#v, %v", res, err)
	}
	if !json.Valid(res.Raw) {
		t.Fatalf("raw roadmap is not valid JSON: %s", res.Raw)
	}
}

func TestAdvise_FallsBackToOllama(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGen
	}{
		{"service error", &fakeGen{err: errors.New("gradio down")}},
		{"service error object", &fakeGen{advice: json.RawMessage(`{"error":"Model response was not valid JSON"}`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeLLM{text: validRoadmap}
			a := advisor.New(tt.gen, llm, registry(t), nil)
			res, err := a.Advise(context.Background(), json.RawMessage(`{"a":1}`), []string{"SRE", "Data"}, "remote work")
			if err != nil {
				t.Fatalf("Advise: %v", err)
			}
			if res.Source != "ollama" {
				t.Fatalf("expected ollama source, got %s", res.Source)
			}
			if !strings.Contains(llm.prompt, `["SRE","Data"]`) || !strings.Contains(llm.prompt, "remote work") {
				t.Fatalf("prompt missing inputs: %s", llm.prompt)
			}
		})
	}
}

func TestAdvise_Failures(t *testing.T) {
	if _, err := advisor.New(nil, nil, nil, nil).Advise(context.Background(), nil, nil, ""); !errors.Is(err, advisor.ErrEmptyCV) {
		t.Fatalf("expected ErrEmptyCV, got %v", err)
	}
	if _, err := advisor.New(nil, nil, nil, nil).Advise(context.Background(), json.RawMessage(`{}`), nil, ""); !errors.Is(err, advisor.ErrNoRoadmap) {
		t.Fatalf("expected ErrNoRoadmap without generators, got %v", err)
	}
	a := advisor.New(&fakeGen{err: errors.New("down")}, &fakeLLM{text: `{"steps":[]}`}, registry(t), nil)
	if _, err := a.Advise(context.Background(), json.RawMessage(`{}`), nil, ""); !errors.Is(err, advisor.ErrNoRoadmap) {
		t.Fatalf("expected ErrNoRoadmap when both fail, got %v", err)
	}
}

func intp(i int) *int       { return &i }
func strp(s string) *string { return &s }

func TestFeedbackValidate(t *testing.T) {
	tests := []struct {
		name string
		fb   advisor.Feedback
		ok   bool
	}{
		{"scores", advisor.Feedback{ClarityScore: intp(2), RelevanceScore: intp(5)}, true},
		{"comment only", advisor.Feedback{UserComment: strp("more videos")}, true},
		{"score too high", advisor.Feedback{ClarityScore: intp(6)}, false},
		{"bad difficulty", advisor.Feedback{DifficultyLevel: strp("brutal")}, false},
		{"empty", advisor.Feedback{UserComment: strp("  ")}, false},
	}
	for _, tt := range tests {
		err := tt.fb.Validate()
		if tt.ok != (err == nil) {
			t.Fatalf("%s: unexpected err %v", tt.name, err)
		}
		if err != nil && !errors.Is(err, advisor.ErrInvalidFeedback) {
			t.Fatalf("%s: expected ErrInvalidFeedback, got %v", tt.name, err)
		}
	}
}

func TestApplyFeedback(t *testing.T) {
	fb := advisor.Feedback{DifficultyLevel: strp("easy")}

	a := advisor.New(&fakeGen{feedback: quoted(`{"id":1,"title":"Simpler step"}`)}, nil, nil, nil)
	step, err := a.ApplyFeedback(context.Background(), json.RawMessage(validRoadmap), "1", fb)
	if err != nil || !strings.Contains(string(step), "Simpler step") {
		t.Fatalf("ApplyFeedback = %s, %v", step, err)
	}

	a = advisor.New(&fakeGen{feedback: json.RawMessage(`{"error":"No original output provided."}`)}, &fakeLLM{text: `{"title":"From fallback"}`}, nil, nil)
	step, err = a.ApplyFeedback(context.Background(), json.RawMessage(validRoadmap), "1", fb)
	if err != nil || !strings.Contains(string(step), "From fallback") {
		t.Fatalf("fallback ApplyFeedback = %s, %v", step, err)
	}

	if _, err := a.ApplyFeedback(context.Background(), nil, "1", fb); err == nil {
		t.Fatalf("expected error without original roadmap")
	}
	if _, err := a.ApplyFeedback(context.Background(), json.RawMessage(validRoadmap), "1", advisor.Feedback{}); !errors.Is(err, advisor.ErrInvalidFeedback) {
		t.Fatalf("expected ErrInvalidFeedback, got %v", err)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := map[string]string{
		"noise {\"a\":1} tail": `{"a":1}`,
		"no json":              "",
		"} backwards {":        "",
	}
	for in, want := range tests {
		if got := advisor.ExtractJSON(in); got != want {
			t.Fatalf("ExtractJSON(%q) = %q, want %q", in, got, want)
		}
	}
}
