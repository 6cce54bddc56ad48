// Package genaitest sirve una API generateContent falsa para tests.
package genaitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Request es lo que recibió el fake.
type Request struct {
	Path   string
	APIKey string
	Prompt string
	Temp   float64
	Tokens int
}

type Server struct {
	*httptest.Server

	mu       sync.Mutex
	reply    string
	status   int
	errBody  string
	requests []Request
}

// New arranca el fake; por defecto responde 200 con reply "ok".
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{reply: "ok", status: http.StatusOK}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Reply fija el texto del primer candidato.
func (s *Server) Reply(text string) {
	s.mu.Lock()
	s.reply, s.status = text, http.StatusOK
	s.mu.Unlock()
}

// Fail hace que el fake responda status con body.
func (s *Server) Fail(status int, body string) {
	s.mu.Lock()
	s.status, s.errBody = status, body
	s.mu.Unlock()
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Contents []struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
		GenerationConfig struct {
			Temperature     float64 `json:"temperature"`
			MaxOutputTokens int     `json:"maxOutputTokens"`
		} `json:"generationConfig"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)
	req := Request{
		Path:   r.URL.Path,
		APIKey: r.Header.Get("x-goog-api-key"),
		Temp:   in.GenerationConfig.Temperature,
		Tokens: in.GenerationConfig.MaxOutputTokens,
	}
	if len(in.Contents) > 0 && len(in.Contents[0].Parts) > 0 {
		req.Prompt = in.Contents[0].Parts[0].Text
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	status, reply, errBody := s.status, s.reply, s.errBody
	s.mu.Unlock()

	if status != http.StatusOK {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(errBody))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"candidates": []any{map[string]any{
			"content": map[string]any{"role": "model", "parts": []any{map[string]any{"text": reply}}},
		}},
	})
}
