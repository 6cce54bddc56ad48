// Package ai contiene los controllers de generación con IA.
package ai

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dropDatabas3/creatorverse/internal/genai"
	"github.com/dropDatabas3/creatorverse/internal/http/dto"
	httperrors "github.com/dropDatabas3/creatorverse/internal/http/errors"
	"github.com/dropDatabas3/creatorverse/internal/http/helpers"
	mw "github.com/dropDatabas3/creatorverse/internal/http/middlewares"
	svc "github.com/dropDatabas3/creatorverse/internal/http/services/ai"
	"github.com/dropDatabas3/creatorverse/internal/observability/logger"
)

// Controller maneja POST /generate-script y POST /generate-ideas. Ambos corren
// detrás de RequireAuth con ReadBody, así que body y claims ya están en el contexto.
type Controller struct {
	service svc.Service
}

func NewController(s svc.Service) *Controller {
	return &Controller{service: s}
}

// Gate es el chequeo de configuración que RequireAuth corre entre NO_TOKEN y la verificación.
func (c *Controller) Gate(*http.Request) error {
	if !c.service.Configured() {
		return httperrors.ErrAINotConfigured
	}
	return nil
}

// GenerateScript maneja POST /generate-script.
func (c *Controller) GenerateScript(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AIController.GenerateScript"))

	claims := mw.MustGetClaims(ctx)
	prompt := strings.TrimSpace(mw.GetBody(ctx).String("prompt"))

	script, err := c.service.GenerateScript(ctx, claims.Subject, prompt)
	if err != nil {
		log.Debug("generate script failed", logger.Err(err))
		httperrors.WriteError(w, mapError(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.ScriptResponse{Script: script})
}

// GenerateIdeas maneja POST /generate-ideas.
func (c *Controller) GenerateIdeas(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := mw.MustGetClaims(ctx)

	ideas, err := c.service.GenerateIdeas(ctx, claims.Subject)
	if err != nil {
		httperrors.WriteError(w, mapError(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.IdeasResponse{Ideas: ideas})
}

func mapError(err error) error {
	var up *genai.UpstreamError
	switch {
	case errors.Is(err, svc.ErrNotConfigured), errors.Is(err, genai.ErrNotConfigured):
		return httperrors.ErrAINotConfigured
	case errors.Is(err, svc.ErrPromptRequired):
		return httperrors.ErrPromptRequired
	case errors.Is(err, svc.ErrDailyLimit):
		return httperrors.ErrDailyLimit
	case errors.Is(err, svc.ErrUniverseNotFound):
		return httperrors.ErrUniverseNotFound
	case errors.Is(err, svc.ErrUniverseIncomplete):
		return httperrors.ErrUniverseIncomplete
	case errors.Is(err, svc.ErrNoUniverseSource):
		return httperrors.ErrServerConfig.WithCause(err)
	case errors.As(err, &up):
		return httperrors.ErrAIUpstream.WithDetail(up.Detail()).WithCause(err)
	default:
		return httperrors.ErrAIUnavailable.WithCause(err)
	}
}
