package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Domain metrics shared by jwt, genai and the HTTP layer. They live in a standalone
// package so that jwt/genai do not import http.

var (
	JWTVerifyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_jwt_verify_total",
		Help: "Verificaciones de bearer token por resultado (ok|no_token|failed)",
	}, []string{"result"})

	JWKSFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_jwks_fetch_total",
		Help: "Descargas del JWKS del identity provider por resultado (ok|not_modified|error)",
	}, []string{"result"})

	AIRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_ai_requests_total",
		Help: "Llamadas al servicio de IA por feature y resultado",
	}, []string{"feature", "result"})

	AILatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_ai_request_duration_seconds",
		Help:    "Latencia de las llamadas al servicio de IA",
		Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 40, 80},
	}, []string{"feature"})
)

// Register registra las métricas de dominio en reg (o el default si es nil).
// Registrar dos veces no es error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{JWTVerifyTotal, JWKSFetchTotal, AIRequestsTotal, AILatency} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
		}
	}
	return nil
}
