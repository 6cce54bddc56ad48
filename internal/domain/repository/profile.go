package repository

import "context"

// ProfileRecord es la fila cruda de "profiles". Los valores conservan el tipo que
// devolvió la fuente (float64, json.Number, string, nil...) y se normalizan en
// profile.Resolver.
type ProfileRecord map[string]any

// ProfileRepository busca el perfil guardado por subject.
type ProfileRepository interface {
	// FindProfile retorna ErrNotFound si el usuario aún no tiene perfil.
	FindProfile(ctx context.Context, userID string) (ProfileRecord, error)
}
