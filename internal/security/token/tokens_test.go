package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPKCE(t *testing.T) {
	p, err := NewPKCE()
	require.NoError(t, err)
	require.Len(t, p.Verifier, 43)
	require.Equal(t, SHA256Base64URL(p.Verifier), p.Challenge)

	q, err := NewPKCE()
	require.NoError(t, err)
	require.NotEqual(t, p.Verifier, q.Verifier)
}

func TestSHA256Base64URL_KnownVector(t *testing.T) {
	// RFC 7636 Appendix B
	require.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		SHA256Base64URL("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"))
}
