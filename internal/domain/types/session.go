// Package types define tipos de dominio compartidos entre session, auth, profile y http.
package types

import "time"

// Identity es el registro de sujeto emitido por el identity provider. Solo lectura.
type Identity struct {
	Subject  string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"user_metadata,omitempty"`
}

// MetaString retorna Metadata[key] si es un string no vacío.
func (i Identity) MetaString(key string) string {
	if i.Metadata == nil {
		return ""
	}
	if s, ok := i.Metadata[key].(string); ok {
		return s
	}
	return ""
}

// Session es el par access/refresh con su expiración. Solo session.Store la muta.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Subject      string    `json:"subject"`
	Identity     Identity  `json:"identity"`
}

// Expired reporta si la sesión vence antes de now+skew.
func (s *Session) Expired(now time.Time, skew time.Duration) bool {
	if s == nil {
		return true
	}
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(skew).Before(s.ExpiresAt)
}

// Clone retorna una copia; Metadata se copia superficialmente.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Identity.Metadata != nil {
		c.Identity.Metadata = make(map[string]any, len(s.Identity.Metadata))
		for k, v := range s.Identity.Metadata {
			c.Identity.Metadata[k] = v
		}
	}
	return &c
}

// TokenPair es el par extraído de un redirect. Transitorio: nunca se guarda.
// Campo vacío = ausente.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Complete reporta si ambos tokens están presentes.
func (p TokenPair) Complete() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}
