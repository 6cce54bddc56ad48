// Package me expone GET /me: la vista de usuario resuelta para el bearer.
package me

import (
	"context"
	"net/http"

	"github.com/dropDatabas3/creatorverse/internal/domain/types"
	"github.com/dropDatabas3/creatorverse/internal/http/helpers"
	mw "github.com/dropDatabas3/creatorverse/internal/http/middlewares"
	"github.com/dropDatabas3/creatorverse/internal/profile"
)

// Resolver es profile.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, id types.Identity) types.UserView
}

type Controller struct {
	profiles Resolver
}

func NewController(r Resolver) *Controller { return &Controller{profiles: r} }

// Me maneja GET /me. Nunca falla por el perfil: sin fila o con el repositorio
// caído responde la vista por defecto.
func (c *Controller) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := mw.MustGetClaims(ctx)

	id := types.Identity{Subject: claims.Subject, Email: claims.Email}
	if meta, ok := claims.Raw["user_metadata"].(map[string]any); ok {
		id.Metadata = meta
	}

	var view types.UserView
	if c.profiles != nil {
		view = c.profiles.Resolve(profile.WithAccessToken(ctx, mw.GetToken(ctx)), id)
	} else {
		view = profile.Default(id)
	}
	helpers.WriteJSON(w, http.StatusOK, view)
}
