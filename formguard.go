package formguard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/formguard/pkg/catalog"
	"github.com/aretw0/formguard/pkg/definition"
	"github.com/aretw0/formguard/pkg/redact"
	"github.com/aretw0/formguard/pkg/schema"
)

// ErrUnknownEntity is returned when an entity name is not registered.
var ErrUnknownEntity = errors.New("unknown entity")

// ValidationEvent describes one completed evaluation.
type ValidationEvent struct {
	Entity   string
	Options  schema.Options
	Valid    bool
	Errors   schema.Errors
	Duration time.Duration
	// Cached is set when the verdict was served from a result cache without
	// running the rules. Duration then covers the lookup only.
	Cached bool
}

// Hooks are observability callbacks invoked synchronously by the Engine.
type Hooks struct {
	OnValidated func(ctx context.Context, e *ValidationEvent)
}

// Engine is the high-level entry point for the formguard library.
// It owns a private registry of entity schemas and evaluates payloads against them.
// Safe for concurrent use once built.
type Engine struct {
	base        *catalog.Registry
	registry    *catalog.Registry
	definitions []string
	hooks       Hooks
	logger      *slog.Logger
	redactor    *redact.Redactor
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithCatalog replaces the built-in entities with the schemas of reg.
// The registry is copied; later changes to reg are not seen by the Engine.
func WithCatalog(reg *catalog.Registry) Option {
	return func(e *Engine) {
		e.base = reg
	}
}

// WithDefinitions loads extra entities from definition files or directories.
// Entities with a built-in name replace the built-in schema.
func WithDefinitions(paths ...string) Option {
	return func(e *Engine) {
		e.definitions = append(e.definitions, paths...)
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks Hooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRedaction sets the key patterns masked when rejected payloads are logged.
func WithRedaction(patterns ...string) Option {
	return func(e *Engine) {
		e.redactor = redact.New(patterns...)
	}
}

// New initializes a new Engine. Without options it serves the built-in
// back-office entities of catalog.Default.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if eng.redactor == nil {
		eng.redactor = redact.Default()
	}
	if eng.base == nil {
		eng.base = catalog.Default()
	}

	eng.registry = catalog.NewRegistry()
	eng.registry.Merge(eng.base)

	if len(eng.definitions) > 0 {
		names, err := definition.LoadInto(eng.registry, eng.definitions...)
		if err != nil {
			return nil, fmt.Errorf("failed to load definitions: %w", err)
		}
		eng.logger.Info("Loaded entity definitions", "count", len(names), "entities", names)
	}

	return eng, nil
}

// Validate evaluates input against the schema registered as entity.
// Validation failures are reported in the Result, not as an error; the error
// is reserved for unknown entities and canceled contexts.
func (e *Engine) Validate(ctx context.Context, entity string, input any, opts schema.Options) (schema.Result, error) {
	if err := ctx.Err(); err != nil {
		return schema.Result{}, err
	}
	rule, err := e.Schema(entity)
	if err != nil {
		return schema.Result{}, err
	}

	start := time.Now()
	res := schema.Validate(rule, input, opts)
	elapsed := time.Since(start)

	if res.Valid() {
		e.logger.Debug("Payload accepted", "entity", entity, "duration", elapsed)
	} else {
		e.logger.Debug("Payload rejected",
			"entity", entity,
			"errors", len(res.Errors),
			"payload", e.redactor.Value(input),
		)
	}

	if e.hooks.OnValidated != nil {
		e.hooks.OnValidated(ctx, &ValidationEvent{
			Entity:   entity,
			Options:  opts,
			Valid:    res.Valid(),
			Errors:   res.Errors,
			Duration: elapsed,
		})
	}
	return res, nil
}

// Schema returns the rule registered as entity.
func (e *Engine) Schema(entity string) (schema.ObjectRule, error) {
	rule, err := e.registry.Get(entity)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return schema.ObjectRule{}, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
		}
		return schema.ObjectRule{}, err
	}
	return rule, nil
}

// Describe returns the structural description of entity.
func (e *Engine) Describe(entity string) (schema.Description, error) {
	rule, err := e.Schema(entity)
	if err != nil {
		return schema.Description{}, err
	}
	return schema.Describe(rule), nil
}

// Entities returns the registered entity names, sorted.
func (e *Engine) Entities() []string {
	return e.registry.Names()
}

// Registry exposes the Engine's schemas, e.g. for OpenAPI export.
func (e *Engine) Registry() *catalog.Registry {
	return e.registry
}
