// Package genai es un cliente mínimo de la API generateContent de Gemini.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/creatorverse/internal/util"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.5-flash"
	// MaxDetailLen limita el cuerpo upstream que se devuelve al cliente.
	MaxDetailLen = 200
)

// ErrNotConfigured: no hay API key.
var ErrNotConfigured = errors.New("genai: api key not configured")

// UpstreamError es una respuesta no-2xx de la API.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("genai: upstream status %d: %s", e.Status, e.Detail())
}

// Detail es el cuerpo truncado a MaxDetailLen runas.
func (e *UpstreamError) Detail() string { return util.Truncate(e.Body, MaxDetailLen) }

type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// GenerationConfig se envía tal cual como generationConfig.
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type Client struct {
	apiKey string
	model  string
	base   string
	http   *http.Client
}

func New(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{apiKey: cfg.APIKey, model: cfg.Model, base: strings.TrimRight(cfg.BaseURL, "/"), http: hc}
}

// Configured reporta si hay API key.
func (c *Client) Configured() bool { return c != nil && c.apiKey != "" }

func (c *Client) Model() string { return c.model }

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate envía prompt como único turno de usuario y devuelve el texto del primer
// candidato, recortado. Sin candidatos devuelve "".
func (c *Client) Generate(ctx context.Context, prompt string, gc GenerationConfig) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: gc,
	})
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.base, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("genai: request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("genai: read body: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return "", &UpstreamError{Status: resp.StatusCode, Body: string(raw)}
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("genai: decode response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return strings.TrimSpace(out.Candidates[0].Content.Parts[0].Text), nil
}
