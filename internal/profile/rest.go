package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/creatorverse/internal/domain/repository"
	"github.com/dropDatabas3/creatorverse/internal/util"
)

type ctxKey struct{}

// WithAccessToken attaches the caller's access token; RESTRepository sends it as the
// bearer so row-level security applies.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ctxKey{}, token)
}

func accessToken(ctx context.Context) string {
	s, _ := ctx.Value(ctxKey{}).(string)
	return s
}

// RESTRepository reads profiles and creator universes through the provider's
// PostgREST endpoint (/rest/v1).
type RESTRepository struct {
	base   string
	apiKey string
	http   *http.Client
}

func NewRESTRepository(baseURL, apiKey string, hc *http.Client) *RESTRepository {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &RESTRepository{base: strings.TrimRight(baseURL, "/") + "/rest/v1", apiKey: apiKey, http: hc}
}

var (
	_ repository.ProfileRepository  = (*RESTRepository)(nil)
	_ repository.UniverseRepository = (*RESTRepository)(nil)
)

func (r *RESTRepository) FindProfile(ctx context.Context, userID string) (repository.ProfileRecord, error) {
	var rows []map[string]any
	if err := r.get(ctx, "profiles", "id", userID, "*", &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	return repository.ProfileRecord(rows[0]), nil
}

func (r *RESTRepository) FindUniverse(ctx context.Context, userID string) (*repository.CreatorUniverse, error) {
	var rows []repository.CreatorUniverse
	if err := r.get(ctx, "creator_universe", "user_id", userID, "user_id,content_pillars,avatar", &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	return &rows[0], nil
}

func (r *RESTRepository) get(ctx context.Context, table, col, val, sel string, out any) error {
	q := url.Values{}
	q.Set(col, "eq."+val)
	q.Set("select", sel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.base+"/"+table+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", r.apiKey)
	req.Header.Set("Accept", "application/json")
	bearer := accessToken(ctx)
	if bearer == "" {
		bearer = r.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("rest %s: %w", table, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("rest %s: read body: %w", table, err)
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("rest %s: status %d: %s", table, resp.StatusCode, util.Truncate(string(body), 200))
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("rest %s: decode: %w", table, err)
	}
	return nil
}
