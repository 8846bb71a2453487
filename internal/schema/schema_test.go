package schema_test

import (
	"context"
	"errors"
	"testing"

	"github.com/garnizeh/careerhub/internal/schema"
)

func TestValidate(t *testing.T) {
	reg, err := schema.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ctx := context.Background()

	tests := []struct {
		name   string
		schema string
		doc    string
		valid  bool
	}{
		{"roadmap ok", schema.Roadmap, `{"steps":[{"id":1,"title":"Learn Go","recommendedResources":[{"type":"Book","title":"GOPL","url":null}]}]}`, true},
		{"roadmap without steps", schema.Roadmap, `{"profile":{}}`, false},
		{"roadmap empty steps", schema.Roadmap, `{"steps":[]}`, false},
		{"roadmap step without title", schema.Roadmap, `{"steps":[{"id":1}]}`, false},
		{"roadmap error object", schema.Roadmap, `{"error":"Model response was not valid JSON"}`, false},
		{"cv ok", schema.CV, `{"personalInformation":{"fullName":"Ana"},"skills":["Go",{"name":"SQL"}],"workExperience":[{"jobTitle":"Dev","description":["a","b"]}]}`, true},
		{"cv empty", schema.CV, `{}`, false},
		{"cv skills wrong type", schema.CV, `{"skills":"Go"}`, false},
		{"cv not an object", schema.CV, `["Go"]`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.Validate(ctx, tt.schema, []byte(tt.doc))
			if tt.valid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.valid {
				var verr *schema.ValidationError
				if !errors.As(err, &verr) || len(verr.Problems) == 0 {
					t.Fatalf("expected *ValidationError, got %v", err)
				}
			}
		})
	}
}

func TestValidate_UnknownSchemaAndAdd(t *testing.T) {
	reg, err := schema.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if err := reg.Validate(context.Background(), "nope", []byte(`{}`)); !errors.Is(err, schema.ErrUnknownSchema) {
		t.Fatalf("expected ErrUnknownSchema, got %v", err)
	}
	if err := reg.Add("bad", []byte(`{not json`)); err == nil {
		t.Fatalf("expected compile error")
	}
	if err := reg.Add("num", []byte(`{"type":"number"}`)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := reg.Validate(context.Background(), "num", []byte(`3`)); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
