package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

// GenerateOpaqueToken genera un token opaco aleatorio (base64url sin padding).
func GenerateOpaqueToken(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SHA256Base64URL devuelve sha256(input) en base64url sin padding.
func SHA256Base64URL(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// PKCE es un par verifier/challenge (RFC 7636, método S256).
type PKCE struct {
	Verifier  string
	Challenge string
	Method    string
}

// NewPKCE genera un verifier de 43 caracteres (32 bytes) y su challenge S256.
func NewPKCE() (PKCE, error) {
	v, err := GenerateOpaqueToken(32)
	if err != nil {
		return PKCE{}, err
	}
	return PKCE{Verifier: v, Challenge: SHA256Base64URL(v), Method: "s256"}, nil
}
