package deeplink

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/creatorverse/internal/domain/types"
)

func TestIsValidDeepLink_Rejects(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"evil://auth#access_token=abc&refresh_token=xyz",
		"javascript:alert(1)",
		"HTTPS://example.com/#access_token=a",
		"http://example.com",
		"auth#access_token=abc",
		"//frontend/auth",
		"%zz",
		"fr ontend://auth",
		"://auth",
	}
	for _, c := range cases {
		if IsValidDeepLink(c, nil) {
			t.Fatalf("expected invalid: %q", c)
		}
	}
}

func TestIsValidDeepLink_Accepts(t *testing.T) {
	cases := []string{
		"frontend://auth#access_token=abc&refresh_token=xyz",
		"FRONTEND://auth",
		"exp://192.168.0.10:8081/--/auth?access_token=a",
		"frontend:auth",
	}
	for _, c := range cases {
		if !IsValidDeepLink(c, nil) {
			t.Fatalf("expected valid: %q", c)
		}
	}
}

func TestIsValidDeepLink_CustomAllowList(t *testing.T) {
	require.True(t, IsValidDeepLink("HTTPS://example.com/cb", []string{"https"}))
	require.False(t, IsValidDeepLink("frontend://auth", []string{"https"}))
	require.True(t, IsValidDeepLink("frontend://auth", []string{}), "empty list means defaults")
}

func TestValidate_ErrorReasons(t *testing.T) {
	_, err := Validate("evil://auth#access_token=secret", nil)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, ReasonSchemeNotAllowed, verr.Reason)
	require.Equal(t, "evil", verr.Scheme)
	require.NotContains(t, err.Error(), "secret")

	_, err = Validate("no-scheme-here", nil)
	require.True(t, errors.As(err, &verr))
	require.Equal(t, ReasonMissingScheme, verr.Reason)

	_, err = Validate("%zz", nil)
	require.True(t, errors.As(err, &verr))
	require.Equal(t, ReasonMalformed, verr.Reason)
}

func mustValidate(t *testing.T, raw string) ValidatedURL {
	t.Helper()
	v, err := Validate(raw, nil)
	require.NoError(t, err)
	return v
}

func TestParseAuthTokens_FragmentOrQuery(t *testing.T) {
	want := types.TokenPair{AccessToken: "A", RefreshToken: "B"}
	cases := []string{
		"frontend://auth#access_token=A&refresh_token=B",
		"frontend://auth?access_token=A&refresh_token=B",
		"frontend://auth#type=recovery&access_token=A&expires_in=3600&refresh_token=B&token_type=bearer",
		"frontend://auth?state=xyz&refresh_token=B&foo=bar&access_token=A",
		"frontend://auth?access_token=ignored#access_token=A&refresh_token=B",
	}
	for _, c := range cases {
		require.Equal(t, want, ParseAuthTokens(mustValidate(t, c)), c)
	}
}

func TestParseAuthTokens_Decoding(t *testing.T) {
	v := mustValidate(t, "frontend://auth#access_token=a%2Bb%3D&refresh_token=r%20t")
	require.Equal(t, types.TokenPair{AccessToken: "a+b=", RefreshToken: "r t"}, ParseAuthTokens(v))
}

func TestParseAuthTokens_Absent(t *testing.T) {
	require.Equal(t, types.TokenPair{}, ParseAuthTokens(mustValidate(t, "frontend://auth")))
	require.Equal(t, types.TokenPair{AccessToken: "only"},
		ParseAuthTokens(mustValidate(t, "frontend://auth#access_token=only")))
	require.Equal(t, types.TokenPair{}, ParseAuthTokens(mustValidate(t, "frontend://auth#")))
	require.Equal(t, types.TokenPair{}, ParseAuthTokens(ValidatedURL{}))
}

func TestParseAuthTokens_MalformedEncoding(t *testing.T) {
	// solo se pierde el par roto
	v := mustValidate(t, "frontend://auth?access_token=%zz&refresh_token=B")
	require.Equal(t, types.TokenPair{RefreshToken: "B"}, ParseAuthTokens(v))
}

func TestParseAuthTokens_BrokenUnrelatedParam(t *testing.T) {
	want := types.TokenPair{AccessToken: "A", RefreshToken: "B"}
	for _, raw := range []string{
		"frontend://auth#access_token=A&refresh_token=B&note=a;b",
		"frontend://auth?access_token=A&refresh_token=B&x=%zz",
	} {
		require.Equal(t, want, ParseAuthTokens(mustValidate(t, raw)), raw)
	}
}

func TestValidatedURL_Param(t *testing.T) {
	v := mustValidate(t, "frontend://auth?code=abc123&state=s1")
	require.Equal(t, "abc123", v.Param("code"))
	require.Equal(t, "frontend", v.Scheme())

	v = mustValidate(t, "frontend://auth#error=access_denied&error_description=User+denied")
	require.Equal(t, "access_denied", v.Param("error"))
	require.Equal(t, "User denied", v.Param("error_description"))
	require.Equal(t, "", ValidatedURL{}.Param("code"))
}
