// Package schema compiles the embedded JSON Schemas used to check payloads
// exchanged with the AI services.
package schema

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/qri-io/jsonschema"
)

//go:embed schemas/*.json
var files embed.FS

// Names of the embedded schemas.
const (
	CV      = "cv"
	Roadmap = "roadmap"
)

var ErrUnknownSchema = errors.New("unknown schema")

// ValidationError lists the keyword errors of a rejected document.
type ValidationError struct {
	Schema   string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("document does not match %s schema: %s", e.Schema, strings.Join(e.Problems, "; "))
}

// Registry caches compiled schemas by name.
type Registry struct {
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

// Load compiles every embedded schema.
func Load() (*Registry, error) {
	r := &Registry{cache: make(map[string]*jsonschema.Schema)}
	entries, err := files.ReadDir("schemas")
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		b, err := files.ReadFile(path.Join("schemas", e.Name()))
		if err != nil {
			return nil, err
		}
		if err := r.Add(strings.TrimSuffix(e.Name(), ".json"), b); err != nil {
			return nil, err
		}
	}
	return r, nil
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
	defaultErr  error
)

// Default returns the process-wide registry of embedded schemas.
func Default() (*Registry, error) {
	defaultOnce.Do(func() { defaultReg, defaultErr = Load() })
	return defaultReg, defaultErr
}

// Add compiles and registers a schema, replacing one with the same name.
func (r *Registry) Add(name string, raw []byte) error {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal(raw, rs); err != nil {
		return fmt.Errorf("compile schema %s: %w", name, err)
	}
	r.mu.Lock()
	r.cache[name] = rs
	r.mu.Unlock()
	return nil
}

func (r *Registry) Get(name string) (*jsonschema.Schema, bool) {
	r.mu.RLock()
	s, ok := r.cache[name]
	r.mu.RUnlock()
	return s, ok
}

// Validate checks data against the named schema. A mismatch is reported as
// *ValidationError.
func (r *Registry) Validate(ctx context.Context, name string, data []byte) error {
	s, ok := r.Get(name)
	if !ok || s == nil {
		return fmt.Errorf("%w: %s", ErrUnknownSchema, name)
	}
	verrs, err := s.ValidateBytes(ctx, data)
	if err != nil {
		return fmt.Errorf("schema validate error: %w", err)
	}
	if len(verrs) > 0 {
		problems := make([]string, 0, len(verrs))
		for _, v := range verrs {
			msg := v.Message
			if v.PropertyPath != "" && v.PropertyPath != "/" {
				msg = v.PropertyPath + ": " + msg
			}
			problems = append(problems, msg)
		}
		return &ValidationError{Schema: name, Problems: problems}
	}
	return nil
}
