package teamflow

import (
	"context"
	"errors"
	"time"

	"github.com/chin3/hat-manager/hat"
	"github.com/chin3/hat-manager/internal/metrics"
	"github.com/chin3/hat-manager/llm"
	"github.com/chin3/hat-manager/memory"
	"github.com/chin3/hat-manager/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/chin3/hat-manager/teamflow")

// Responder produces a hat's reply to a prompt.
type Responder interface {
	Generate(ctx context.Context, prompt string, h *hat.Hat) (string, error)
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx context.Context, prompt string, h *hat.Hat) (string, error)

func (f ResponderFunc) Generate(ctx context.Context, prompt string, h *hat.Hat) (string, error) {
	return f(ctx, prompt, h)
}

// GeneratorConfig tunes model calls.
type GeneratorConfig struct {
	// Timeout bounds one model call. Zero disables the bound.
	Timeout     time.Duration
	MemoryTopK  int
	Temperature float32
	MaxTokens   int
}

// DefaultGeneratorConfig returns the defaults used by the service.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Timeout:     60 * time.Second,
		MemoryTopK:  3,
		Temperature: 0.7,
		MaxTokens:   1000,
	}
}

// Generator turns a hat definition plus a prompt into model output. It
// resolves collaborators through the hat store and pulls relevant memories.
type Generator struct {
	provider llm.Provider
	hats     hat.Store
	memory   memory.Store
	cfg      GeneratorConfig
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// NewGenerator creates a generator. hats, mem and collector may be nil.
func NewGenerator(provider llm.Provider, hats hat.Store, mem memory.Store, cfg GeneratorConfig, collector *metrics.Collector, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		provider: provider,
		hats:     hats,
		memory:   mem,
		cfg:      cfg,
		metrics:  collector,
		logger:   logger.With(zap.String("component", "generator")),
	}
}

// Generate calls the model as h. Any failure comes back as a
// GENERATION_FAILURE error; nothing is retried here.
func (g *Generator) Generate(ctx context.Context, prompt string, h *hat.Hat) (string, error) {
	if h == nil {
		return "", types.NewGenerationError("", errors.New("hat is nil"))
	}
	ctx, span := tracer.Start(ctx, "teamflow.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("hat.id", h.ID),
		attribute.String("hat.name", h.Name),
		attribute.String("llm.model", h.Model),
	)

	req := &llm.ChatRequest{
		Model: h.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: g.SystemPrompt(ctx, h, prompt)},
			{Role: llm.RoleUser, Content: prompt},
		},
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
	}
	if traceID, ok := types.TraceID(ctx); ok {
		req.TraceID = traceID
	}

	callCtx := ctx
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.provider.Completion(callCtx, req)
	g.metrics.RecordGeneration(h.Model, err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		fields := []zap.Field{zap.String("hat_id", h.ID), zap.String("model", h.Model), zap.Error(err)}
		if sid, ok := types.SessionID(ctx); ok {
			fields = append(fields, zap.String("session_id", sid))
		}
		if rid, ok := types.RunID(ctx); ok {
			fields = append(fields, zap.String("run_id", rid))
		}
		g.logger.Warn("generation failed", fields...)
		return "", types.NewGenerationError(h.ID, err)
	}
	return resp.Content(), nil
}

// SystemPrompt renders the system message for h. Unresolvable collaborators
// are logged and rendered as missing; memory lookup failures drop memories.
func (g *Generator) SystemPrompt(ctx context.Context, h *hat.Hat, prompt string) string {
	collaborators := make([]collaborator, 0, len(h.Relationships))
	for _, id := range h.Relationships {
		c := collaborator{id: id}
		if g.hats != nil {
			found, err := g.hats.Get(ctx, id)
			if err == nil {
				c.found = found
			} else {
				g.logger.Warn("collaborator not resolved",
					zap.String("code", string(types.ErrMalformedPersonaReference)),
					zap.Error(types.NewMalformedReferenceError(h.ID, id).WithCause(err)))
			}
		}
		collaborators = append(collaborators, c)
	}

	var memories []memory.Match
	if g.memory != nil && h.ID != "" && g.cfg.MemoryTopK > 0 {
		found, err := g.memory.Query(ctx, h.ID, prompt, g.cfg.MemoryTopK)
		if err != nil {
			g.logger.Warn("memory lookup failed", zap.String("hat_id", h.ID), zap.Error(err))
		} else {
			memories = found
		}
	}

	return buildSystemPrompt(h, collaborators, memories)
}
