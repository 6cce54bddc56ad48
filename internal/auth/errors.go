package auth

import (
	"errors"
	"fmt"

	"github.com/dropDatabas3/creatorverse/internal/oauth/gotrue"
	"github.com/dropDatabas3/creatorverse/internal/session"
)

var (
	ErrLoginCancelled   = errors.New("auth: login cancelled")
	ErrLoginSuperseded  = errors.New("auth: login superseded by a newer attempt")
	ErrRedirectRejected = errors.New("auth: redirect rejected")
	ErrClosed           = errors.New("auth: coordinator closed")
)

// CredentialError is a provider rejection the user can fix (wrong password, email
// already registered). Message is the provider's text, meant to be shown as is.
type CredentialError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *CredentialError) Error() string { return e.Message }
func (e *CredentialError) Unwrap() error { return e.Err }

// credentialErr maps provider rejections to CredentialError and wraps the rest.
func credentialErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if pe, ok := gotrue.AsProviderError(err); ok && pe.Rejected() {
		return &CredentialError{Code: pe.Code, Message: pe.Message, Status: pe.Status, Err: err}
	}
	return fmt.Errorf("auth: %s: %w", op, err)
}

// exchangeErr normaliza los errores de session.Store para el llamador de Login.
func exchangeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrSuperseded):
		return ErrLoginCancelled
	}
	var ve *session.VerificationError
	if errors.As(err, &ve) {
		return err
	}
	return credentialErr("exchange", err)
}
