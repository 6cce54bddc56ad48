// Package secretbox cifra blobs chicos en reposo (la sesión local del cliente) con
// AES-256-GCM. La clave de cifrado se deriva con HKDF-SHA256 de una clave maestra
// y un "purpose", así una misma SESSION_KEY no se reutiliza tal cual para otros usos.
//
// Formato: base64(nonce)|base64(ciphertext).
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	nonceSizeGCM      = 12  // 96 bits
	requiredKeyLength = 32  // AES-256
	sep               = "|" // nonce|ciphertext
)

var ErrBadFormat = errors.New("secretbox: formato inválido, esperado base64(nonce)|base64(ciphertext)")

// Box cifra y descifra con una subclave fija.
type Box struct {
	aead    cipher.AEAD
	purpose []byte
}

// New deriva la subclave para purpose a partir de master (32 bytes).
func New(master []byte, purpose string) (*Box, error) {
	if len(master) != requiredKeyLength {
		return nil, fmt.Errorf("secretbox: clave maestra de %d bytes, se requieren %d", len(master), requiredKeyLength)
	}
	sub := make([]byte, requiredKeyLength)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(purpose)), sub); err != nil {
		return nil, fmt.Errorf("secretbox: hkdf: %w", err)
	}
	block, err := aes.NewCipher(sub)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return &Box{aead: aead, purpose: []byte(purpose)}, nil
}

// Seal cifra plain. El purpose va como AAD.
func (b *Box) Seal(plain []byte) (string, error) {
	nonce := make([]byte, nonceSizeGCM)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce random: %w", err)
	}
	ct := b.aead.Seal(nil, nonce, plain, b.purpose)
	return base64.StdEncoding.EncodeToString(nonce) + sep + base64.StdEncoding.EncodeToString(ct), nil
}

// Open descifra lo producido por Seal con la misma clave y purpose.
func (b *Box) Open(sealed string) ([]byte, error) {
	nonceB64, ctB64, ok := strings.Cut(strings.TrimSpace(sealed), sep)
	if !ok {
		return nil, ErrBadFormat
	}
	nonce, err := base64.StdEncoding.DecodeString(nonceB64)
	if err != nil {
		return nil, fmt.Errorf("decode nonce: %w", err)
	}
	if len(nonce) != nonceSizeGCM {
		return nil, fmt.Errorf("nonce inválido: esperado %d bytes, obtuvo %d", nonceSizeGCM, len(nonce))
	}
	ct, err := base64.StdEncoding.DecodeString(ctB64)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	pt, err := b.aead.Open(nil, nonce, ct, b.purpose)
	if err != nil {
		return nil, fmt.Errorf("gcm auth/decrypt: %w", err)
	}
	return pt, nil
}
