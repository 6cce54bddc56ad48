package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// gatewayClient habla con el gateway de IA.
type gatewayClient struct {
	BaseURL string
	HTTP    *http.Client
}

func newGatewayClient(base string, hc *http.Client) *gatewayClient {
	return &gatewayClient{BaseURL: strings.TrimRight(base, "/"), HTTP: hc}
}

// gatewayError es una respuesta no-2xx del gateway.
type gatewayError struct {
	Status  int
	Message string `json:"error"`
	Code    string `json:"code"`
	Detail  string `json:"detail"`
	Details string `json:"details"`
}

func (e *gatewayError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "gateway %d: %s", e.Status, e.Message)
	if e.Code != "" {
		fmt.Fprintf(&b, " [%s]", e.Code)
	}
	if d := e.Detail + e.Details; d != "" {
		fmt.Fprintf(&b, ": %s", d)
	}
	return b.String()
}

// post manda body con el token en el body y en Authorization y decodifica out.
func (c *gatewayClient) post(ctx context.Context, path, token string, body map[string]any, out any) error {
	if body == nil {
		body = map[string]any{}
	}
	body["access_token"] = token
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		ge := &gatewayError{Status: resp.StatusCode}
		if json.Unmarshal(b, ge) != nil || ge.Message == "" {
			ge.Message = strings.TrimSpace(string(b))
		}
		return ge
	}
	return json.Unmarshal(b, out)
}

func (c *gatewayClient) GenerateScript(ctx context.Context, token, prompt string) (string, error) {
	var out struct {
		Script string `json:"script"`
	}
	if err := c.post(ctx, "/generate-script", token, map[string]any{"prompt": prompt}, &out); err != nil {
		return "", err
	}
	return out.Script, nil
}

func (c *gatewayClient) GenerateIdeas(ctx context.Context, token string) ([]string, error) {
	var out struct {
		Ideas []string `json:"ideas"`
	}
	if err := c.post(ctx, "/generate-ideas", token, nil, &out); err != nil {
		return nil, err
	}
	return out.Ideas, nil
}
