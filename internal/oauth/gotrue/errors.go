package gotrue

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ProviderError is a non-2xx answer from the auth API. Message is the
// provider-supplied text, safe to show to the user.
type ProviderError struct {
	Status  int
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gotrue http %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("gotrue http %d: %s", e.Status, e.Message)
}

// Rejected reports whether the provider refused the credentials or tokens
// (as opposed to being unreachable or failing internally).
func (e *ProviderError) Rejected() bool {
	return e.Status >= 400 && e.Status < 500 && e.Status != http.StatusTooManyRequests
}

// AsProviderError unwraps err into a *ProviderError.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	ok := errors.As(err, &pe)
	return pe, ok
}

// IsRejected is AsProviderError + Rejected.
func IsRejected(err error) bool {
	pe, ok := AsProviderError(err)
	return ok && pe.Rejected()
}

func decodeProviderError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	// The API has used several shapes over time; take the first non-empty field.
	var body struct {
		Code             any    `json:"code"`
		ErrorCode        string `json:"error_code"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	_ = json.Unmarshal(b, &body)

	pe := &ProviderError{Status: resp.StatusCode}
	pe.Code = firstNonEmpty(body.ErrorCode, body.Error)
	if s, ok := body.Code.(string); ok && pe.Code == "" {
		pe.Code = s
	}
	pe.Message = firstNonEmpty(body.Msg, body.ErrorDescription, body.Message, body.Error)
	if pe.Message == "" {
		pe.Message = strings.TrimSpace(string(b))
	}
	if pe.Message == "" {
		pe.Message = http.StatusText(resp.StatusCode)
	}
	return pe
}

func firstNonEmpty(v ...string) string {
	for _, s := range v {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
