// Package tools holds the registry of named operations exposed over the RPC
// boundary, with argument validation against each operation's JSON Schema.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

var (
	// ErrUnknownTool is returned by Call for a name that is not registered.
	ErrUnknownTool = errors.New("tool not found")
	// ErrInvalidArguments marks arguments rejected before the handler ran.
	ErrInvalidArguments = errors.New("invalid arguments")
)

// ArgumentError describes why arguments for Tool were rejected.
type ArgumentError struct {
	Tool string
	Err  error
}

func (e *ArgumentError) Error() string { return e.Err.Error() }

func (e *ArgumentError) Unwrap() error { return e.Err }

func (e *ArgumentError) Is(target error) bool { return target == ErrInvalidArguments }

// Handler executes a tool with raw JSON arguments and returns a raw JSON
// result. Failures of the operation itself belong in the result; a returned
// error means the call could not be served.
type Handler func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)

// Definition describes a callable tool. StableName is lowercase snake_case
// and never changes; SemVer is bumped when the contract changes.
type Definition struct {
	StableName   string
	SemVer       string
	Description  string
	JSONSchema   json.RawMessage
	Capabilities []string
	Handler      Handler
}

// Spec is the listing entry returned by tools/list.
type Spec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Meta is a minimal, serializable view for logs and diagnostics.
type Meta struct {
	StableName   string   `json:"stable_name"`
	SemVer       string   `json:"semver"`
	Capabilities []string `json:"capabilities"`
}

// Registry maps stable names to definitions. It is populated at startup and
// read concurrently afterwards.
type Registry struct {
	defs map[string]Definition
	// Timeout bounds a single Call when positive.
	Timeout time.Duration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

var (
	nameRe   = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	semverRe = regexp.MustCompile(`^v?(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)(?:-[0-9A-Za-z.-]+)?(?:\+[0-9A-Za-z.-]+)?$`)
)

// Register adds or replaces a definition after validating its identity,
// schema, and handler.
func (r *Registry) Register(def Definition) error {
	if !nameRe.MatchString(def.StableName) {
		return fmt.Errorf("invalid stable name %q: must be lowercase snake_case starting with a letter", def.StableName)
	}
	if !semverRe.MatchString(def.SemVer) {
		return fmt.Errorf("invalid semver %q for %s", def.SemVer, def.StableName)
	}
	if !isJSONObject(def.JSONSchema) {
		return fmt.Errorf("%s: json schema must be a non-empty JSON object", def.StableName)
	}
	if def.Handler == nil {
		return fmt.Errorf("%s: handler must not be nil", def.StableName)
	}
	caps := make([]string, 0, len(def.Capabilities))
	for _, c := range def.Capabilities {
		if c = strings.TrimSpace(c); c != "" {
			caps = append(caps, c)
		}
	}
	def.Capabilities = caps
	if r.defs == nil {
		r.defs = make(map[string]Definition)
	}
	r.defs[def.StableName] = def
	return nil
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Specs lists the tools sorted by name.
func (r *Registry) Specs() []Spec {
	out := make([]Spec, 0, len(r.defs))
	for _, name := range r.names() {
		def := r.defs[name]
		out = append(out, Spec{Name: def.StableName, Description: def.Description, InputSchema: def.JSONSchema})
	}
	return out
}

// Get returns the definition registered under name.
func (r *Registry) Get(name string) (Definition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Catalog returns identity metadata for every tool, sorted by name.
func (r *Registry) Catalog() []Meta {
	out := make([]Meta, 0, len(r.defs))
	for _, name := range r.names() {
		def := r.defs[name]
		out = append(out, Meta{
			StableName:   def.StableName,
			SemVer:       def.SemVer,
			Capabilities: append([]string(nil), def.Capabilities...),
		})
	}
	return out
}

// Call validates args against the tool's schema and runs its handler.
// Empty or null args are treated as an empty object.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	def, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	if trimmed := strings.TrimSpace(string(args)); trimmed == "" || trimmed == "null" {
		args = json.RawMessage(`{}`)
	}
	var value any
	if err := json.Unmarshal(args, &value); err != nil {
		return nil, &ArgumentError{Tool: name, Err: fmt.Errorf("arguments are not valid JSON: %v", err)}
	}
	if err := validateAgainstSchema(value, def.JSONSchema); err != nil {
		return nil, &ArgumentError{Tool: name, Err: err}
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	return def.Handler(ctx, args)
}

func isJSONObject(raw json.RawMessage) bool {
	var v any
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return false
	}
	_, ok := v.(map[string]any)
	return ok
}
