// Package health contiene el service para health checks.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/dropDatabas3/creatorverse/internal/http/dto"
	"github.com/dropDatabas3/creatorverse/internal/observability/logger"
)

// Check es un ping de un componente.
type Check func(ctx context.Context) error

// Component describe un chequeo. Critical: si falla, el gateway está "unavailable";
// si no, solo "degraded".
type Component struct {
	Name     string
	Critical bool
	Check    Check // nil = disabled
}

type Deps struct {
	Components []Component
	Version    string
	// Timeout por chequeo. Default 2s.
	Timeout time.Duration
}

// HealthService define las operaciones de health check.
type HealthService interface {
	Check(ctx context.Context) dto.HealthResponse
}

type healthService struct {
	deps Deps
}

func NewHealthService(d Deps) HealthService {
	if d.Timeout <= 0 {
		d.Timeout = 2 * time.Second
	}
	return &healthService{deps: d}
}

func (s *healthService) Check(ctx context.Context) dto.HealthResponse {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("health"), logger.Op("Check"))

	resp := dto.HealthResponse{
		Status:     "ready",
		Version:    s.deps.Version,
		Components: make(map[string]dto.HealthStatus, len(s.deps.Components)),
		Timestamp:  time.Now().UTC(),
	}

	type result struct {
		c   Component
		err error
	}
	results := make([]result, len(s.deps.Components))
	var wg sync.WaitGroup
	for i, c := range s.deps.Components {
		if c.Check == nil {
			results[i] = result{c: c}
			continue
		}
		wg.Add(1)
		go func(i int, c Component) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, s.deps.Timeout)
			defer cancel()
			results[i] = result{c: c, err: c.Check(cctx)}
		}(i, c)
	}
	wg.Wait()

	for _, r := range results {
		switch {
		case r.c.Check == nil:
			resp.Components[r.c.Name] = dto.HealthStatus{Status: "disabled"}
		case r.err != nil:
			resp.Components[r.c.Name] = dto.HealthStatus{Status: "error", Error: r.err.Error()}
			log.Warn("component unhealthy", logger.String("name", r.c.Name), logger.Err(r.err))
			if r.c.Critical {
				resp.Status = "unavailable"
			} else if resp.Status == "ready" {
				resp.Status = "degraded"
			}
		default:
			resp.Components[r.c.Name] = dto.HealthStatus{Status: "ok"}
		}
	}
	return resp
}
