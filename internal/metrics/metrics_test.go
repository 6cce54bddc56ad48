package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(JWTVerifyTotal.WithLabelValues("ok"))
	JWTVerifyTotal.WithLabelValues("ok").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(JWTVerifyTotal.WithLabelValues("ok")))
}
