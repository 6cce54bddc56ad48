package repository

import "context"

// ContentPillar es un pilar de contenido con sus ideas semilla.
type ContentPillar struct {
	Name  string   `json:"title"`
	Ideas []string `json:"ideas"`
}

// Psychographic guarda luchas y deseos de la audiencia como texto libre
// (separado por comas o saltos de línea).
type Psychographic struct {
	Struggles string `json:"struggle"`
	Desires   string `json:"desire"`
}

type Avatar struct {
	Psychographic Psychographic `json:"psychographic"`
}

// CreatorUniverse es el contexto de marca del creador.
type CreatorUniverse struct {
	UserID         string          `json:"user_id"`
	ContentPillars []ContentPillar `json:"content_pillars"`
	Avatar         Avatar          `json:"avatar"`
}

// UniverseRepository lee el creator universe de un usuario.
type UniverseRepository interface {
	// FindUniverse retorna ErrNotFound si no existe.
	FindUniverse(ctx context.Context, userID string) (*CreatorUniverse, error)
}
