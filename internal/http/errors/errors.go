// Package errors define el catálogo de errores HTTP del gateway y cómo se escriben.
//
// El cuerpo siempre es {error, code?, detail?}: los clientes de la app ramifican por
// code (NO_TOKEN, JWT_VERIFY_FAILED, DAILY_LIMIT) y muestran error tal cual.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError es el error estándar de la capa HTTP.
type AppError struct {
	Code       string
	Message    string
	Detail     string
	HTTPStatus int
	Err        error // causa, solo para logs

	// detailsKey serializa Detail como "details" (respuestas 502 del servicio de IA).
	detailsKey bool
}

func (e *AppError) Error() string {
	label := e.Code
	if label == "" {
		label = http.StatusText(e.HTTPStatus)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", label, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", label, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// New crea un AppError.
func New(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// Wrap crea un AppError con causa.
func Wrap(err error, status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// FromError convierte cualquier error en AppError. Lo que no sea AppError es un 500.
func FromError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return ErrInternalServerError.WithCause(err)
}

// WithDetail devuelve una COPIA con detail; las variables del catálogo no se mutan.
func (e *AppError) WithDetail(detail string) *AppError {
	n := *e
	n.Detail = detail
	return &n
}

// WithCause devuelve una COPIA con la causa.
func (e *AppError) WithCause(err error) *AppError {
	n := *e
	n.Err = err
	return &n
}

// =================================================================================
// CATÁLOGO
// =================================================================================

var (
	ErrInvalidJSON = &AppError{
		Message:    "Invalid JSON body",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrPromptRequired = &AppError{
		Message:    "prompt is required",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrUniverseIncomplete = &AppError{
		Message:    "Add struggles (Target Avatar), desires (Target Avatar), and topics (Vision ideas) in Creator Universe first.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrBodyTooLarge = &AppError{
		Code:       "BODY_TOO_LARGE",
		Message:    "Request body too large",
		HTTPStatus: http.StatusRequestEntityTooLarge,
	}
)

var (
	ErrNoToken = &AppError{
		Code:       "NO_TOKEN",
		Message:    "Unauthorized",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrInvalidToken = &AppError{
		Code:       "JWT_VERIFY_FAILED",
		Message:    "Invalid or expired token",
		HTTPStatus: http.StatusUnauthorized,
	}
)

var (
	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Not found",
		HTTPStatus: http.StatusNotFound,
	}

	ErrUniverseNotFound = &AppError{
		Message:    "Creator Universe not found. Set up your Creator Universe first.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrMethodNotAllowed = &AppError{
		Message:    "Method not allowed",
		HTTPStatus: http.StatusMethodNotAllowed,
	}
)

var (
	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMITED",
		Message:    "Too many requests",
		HTTPStatus: http.StatusTooManyRequests,
	}

	ErrDailyLimit = &AppError{
		Code:       "DAILY_LIMIT",
		Message:    "Daily AI limit reached. Try again tomorrow.",
		HTTPStatus: http.StatusTooManyRequests,
	}
)

var (
	ErrInternalServerError = &AppError{
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrAINotConfigured = &AppError{
		Message:    "GEMINI_API_KEY not configured",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrServerConfig = &AppError{
		Message:    "Server configuration error",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrAIUpstream = &AppError{
		Message:    "AI service error",
		HTTPStatus: http.StatusBadGateway,
		detailsKey: true,
	}

	ErrAIUnavailable = &AppError{
		Message:    "Failed to call AI service",
		HTTPStatus: http.StatusBadGateway,
	}

	ErrServiceUnavailable = &AppError{
		Code:       "SERVICE_UNAVAILABLE",
		Message:    "Service unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
	}
)

// =================================================================================
// ESCRITURA
// =================================================================================

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Detail  string `json:"detail,omitempty"`
	Details string `json:"details,omitempty"`
}

// Body arma el cuerpo JSON de e.
func Body(e *AppError) any {
	resp := errorResponse{Error: e.Message, Code: e.Code}
	if e.detailsKey {
		resp.Details = e.Detail
	} else {
		resp.Detail = e.Detail
	}
	return resp
}

// WriteError escribe err como JSON con su status.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(Body(appErr))
}
