package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayClientGenerateScript(t *testing.T) {
	var gotBody map[string]any
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate-script", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"script":"hola"}`))
	}))
	defer srv.Close()

	c := newGatewayClient(srv.URL+"/", srv.Client())
	script, err := c.GenerateScript(context.Background(), "tok", "write a hook")
	require.NoError(t, err)
	assert.Equal(t, "hola", script)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "tok", gotBody["access_token"])
	assert.Equal(t, "write a hook", gotBody["prompt"])
}

func TestGatewayClientGenerateIdeas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate-ideas", r.URL.Path)
		_, _ = w.Write([]byte(`{"ideas":["a","b"]}`))
	}))
	defer srv.Close()

	ideas, err := newGatewayClient(srv.URL, srv.Client()).GenerateIdeas(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ideas)
}

func TestGatewayClientErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   gatewayError
		msg    string
	}{
		{
			name:   "jwt",
			status: http.StatusUnauthorized,
			body:   `{"error":"Invalid or expired token","code":"JWT_VERIFY_FAILED","detail":"token is expired"}`,
			want:   gatewayError{Status: 401, Message: "Invalid or expired token", Code: "JWT_VERIFY_FAILED", Detail: "token is expired"},
			msg:    "gateway 401: Invalid or expired token [JWT_VERIFY_FAILED]: token is expired",
		},
		{
			name:   "upstream",
			status: http.StatusBadGateway,
			body:   `{"error":"AI service error","details":"quota"}`,
			want:   gatewayError{Status: 502, Message: "AI service error", Details: "quota"},
			msg:    "gateway 502: AI service error: quota",
		},
		{
			name:   "plain text",
			status: http.StatusServiceUnavailable,
			body:   "upstream down\n",
			want:   gatewayError{Status: 503, Message: "upstream down"},
			msg:    "gateway 503: upstream down",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := newGatewayClient(srv.URL, srv.Client()).GenerateScript(context.Background(), "tok", "p")
			var ge *gatewayError
			require.True(t, errors.As(err, &ge))
			assert.Equal(t, tc.want, *ge)
			assert.Equal(t, tc.msg, ge.Error())
		})
	}
}
