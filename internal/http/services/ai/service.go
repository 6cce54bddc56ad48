// Package ai contiene los services de generación (script e ideas) del gateway.
package ai

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/creatorverse/internal/ailimit"
	"github.com/dropDatabas3/creatorverse/internal/domain/repository"
	"github.com/dropDatabas3/creatorverse/internal/genai"
	"github.com/dropDatabas3/creatorverse/internal/metrics"
	"github.com/dropDatabas3/creatorverse/internal/observability/logger"
)

var (
	ErrNotConfigured      = errors.New("ai: api key not configured")
	ErrPromptRequired     = errors.New("ai: prompt is required")
	ErrDailyLimit         = errors.New("ai: daily limit reached")
	ErrUniverseNotFound   = errors.New("ai: creator universe not found")
	ErrUniverseIncomplete = errors.New("ai: creator universe incomplete")
	ErrNoUniverseSource   = errors.New("ai: no creator universe repository")
)

// Generator es el cliente de IA (genai.Client).
type Generator interface {
	Configured() bool
	Generate(ctx context.Context, prompt string, gc genai.GenerationConfig) (string, error)
}

// Quota es la cuota diaria por feature/usuario (ailimit.Limiter).
type Quota interface {
	Allowed(ctx context.Context, feature, user string) bool
	Record(ctx context.Context, feature, user string)
}

// Deps agrupa las dependencias del service.
type Deps struct {
	AI       Generator
	Universe repository.UniverseRepository
	Quota    Quota // opcional
	Logger   *zap.Logger
}

// Service genera scripts e ideas para un usuario ya autenticado.
type Service interface {
	Configured() bool
	GenerateScript(ctx context.Context, userID, prompt string) (string, error)
	GenerateIdeas(ctx context.Context, userID string) ([]string, error)
}

type service struct {
	deps Deps
	log  *zap.Logger
}

func NewService(d Deps) Service {
	return &service{deps: d, log: logger.OrGlobal(d.Logger, "ai")}
}

func (s *service) Configured() bool { return s.deps.AI != nil && s.deps.AI.Configured() }

var (
	scriptConfig = genai.GenerationConfig{Temperature: 0.6, MaxOutputTokens: 2048}
	ideasConfig  = genai.GenerationConfig{Temperature: 0.6, MaxOutputTokens: 8192}
)

func (s *service) GenerateScript(ctx context.Context, userID, prompt string) (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}
	if prompt == "" {
		return "", ErrPromptRequired
	}
	if !s.allowed(ctx, ailimit.FeatureAutoScript, userID) {
		return "", ErrDailyLimit
	}
	script, err := s.generate(ctx, ailimit.FeatureAutoScript, prompt, scriptConfig)
	if err != nil {
		return "", err
	}
	s.record(ctx, ailimit.FeatureAutoScript, userID)
	return script, nil
}

func (s *service) GenerateIdeas(ctx context.Context, userID string) ([]string, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("GenerateIdeas"))
	if !s.Configured() {
		return nil, ErrNotConfigured
	}
	if s.deps.Universe == nil {
		return nil, ErrNoUniverseSource
	}
	if !s.allowed(ctx, ailimit.FeatureIdeaGenerator, userID) {
		return nil, ErrDailyLimit
	}

	u, err := s.deps.Universe.FindUniverse(ctx, userID)
	if err != nil || u == nil {
		if err != nil && !repository.IsNotFound(err) {
			log.Warn("creator universe lookup failed", logger.Err(err))
		}
		return nil, ErrUniverseNotFound
	}
	in := IdeaInputsFrom(u)
	if !in.Complete() {
		return nil, ErrUniverseIncomplete
	}

	raw, err := s.generate(ctx, ailimit.FeatureIdeaGenerator, in.Prompt(), ideasConfig)
	if err != nil {
		return nil, err
	}
	ideas := ParseIdeas(raw)
	if len(ideas) < IdeaCount {
		log.Warn("ai returned fewer ideas than requested", logger.Count(len(ideas)), logger.Int("expected", IdeaCount))
	}
	s.record(ctx, ailimit.FeatureIdeaGenerator, userID)
	return ideas, nil
}

func (s *service) generate(ctx context.Context, feature, prompt string, gc genai.GenerationConfig) (string, error) {
	start := time.Now()
	out, err := s.deps.AI.Generate(ctx, prompt, gc)
	metrics.AILatency.WithLabelValues(feature).Observe(time.Since(start).Seconds())

	var up *genai.UpstreamError
	switch {
	case err == nil:
		metrics.AIRequestsTotal.WithLabelValues(feature, "ok").Inc()
	case errors.As(err, &up):
		metrics.AIRequestsTotal.WithLabelValues(feature, "upstream_error").Inc()
		logger.From(ctx).Error("ai service error", logger.Feature(feature), logger.Status(up.Status), logger.String("body", up.Detail()))
	default:
		metrics.AIRequestsTotal.WithLabelValues(feature, "failed").Inc()
		logger.From(ctx).Error("ai request failed", logger.Feature(feature), logger.Err(err))
	}
	return out, err
}

func (s *service) allowed(ctx context.Context, feature, user string) bool {
	if s.deps.Quota == nil {
		return true
	}
	return s.deps.Quota.Allowed(ctx, feature, user)
}

func (s *service) record(ctx context.Context, feature, user string) {
	if s.deps.Quota != nil {
		s.deps.Quota.Record(ctx, feature, user)
	}
}
