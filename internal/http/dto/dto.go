// Package dto contiene los cuerpos de respuesta del gateway.
package dto

import "time"

// ScriptResponse es la respuesta 200 de POST /generate-script.
type ScriptResponse struct {
	Script string `json:"script"`
}

// IdeasResponse es la respuesta 200 de POST /generate-ideas.
type IdeasResponse struct {
	Ideas []string `json:"ideas"`
}

// HealthStatus es el estado de un componente.
type HealthStatus struct {
	Status string `json:"status"` // ok | error | disabled
	Error  string `json:"error,omitempty"`
}

// HealthResponse es la respuesta de /readyz.
type HealthResponse struct {
	Status     string                  `json:"status"` // ready | degraded | unavailable
	Version    string                  `json:"version,omitempty"`
	Components map[string]HealthStatus `json:"components"`
	Timestamp  time.Time               `json:"timestamp"`
}
