package genai_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/creatorverse/internal/genai"
	"github.com/dropDatabas3/creatorverse/internal/genai/genaitest"
)

func TestGenerate(t *testing.T) {
	fake := genaitest.New(t)
	fake.Reply("  Hook: hello  \n")
	c := genai.New(genai.Config{APIKey: "k", Model: "m1", BaseURL: fake.URL})

	out, err := c.Generate(context.Background(), "write", genai.GenerationConfig{Temperature: 0.6, MaxOutputTokens: 2048})
	require.NoError(t, err)
	require.Equal(t, "Hook: hello", out)

	reqs := fake.Requests()
	require.Len(t, reqs, 1)
	require.Equal(t, "/v1beta/models/m1:generateContent", reqs[0].Path)
	require.Equal(t, "k", reqs[0].APIKey)
	require.Equal(t, "write", reqs[0].Prompt)
	require.Equal(t, 0.6, reqs[0].Temp)
	require.Equal(t, 2048, reqs[0].Tokens)
}

func TestGenerate_Upstream(t *testing.T) {
	fake := genaitest.New(t)
	fake.Fail(http.StatusTooManyRequests, strings.Repeat("é", 500))
	c := genai.New(genai.Config{APIKey: "k", BaseURL: fake.URL})

	_, err := c.Generate(context.Background(), "p", genai.GenerationConfig{})
	var ue *genai.UpstreamError
	require.ErrorAs(t, err, &ue)
	require.Equal(t, http.StatusTooManyRequests, ue.Status)
	require.Equal(t, 200, len([]rune(ue.Detail())))
}

func TestGenerate_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()
	out, err := genai.New(genai.Config{APIKey: "k", BaseURL: srv.URL}).Generate(context.Background(), "p", genai.GenerationConfig{})
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestGenerate_TransportAndConfigErrors(t *testing.T) {
	_, err := genai.New(genai.Config{}).Generate(context.Background(), "p", genai.GenerationConfig{})
	require.ErrorIs(t, err, genai.ErrNotConfigured)

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()
	_, err = genai.New(genai.Config{APIKey: "k", BaseURL: url}).Generate(context.Background(), "p", genai.GenerationConfig{})
	require.Error(t, err)
	var ue *genai.UpstreamError
	require.False(t, errors.As(err, &ue))
}
