// Package profile maps an identity to the UserView the app shows.
//
// Resolve never fails: a missing profile, a lookup error or even a panic inside a
// repository degrades to a default built from the identity's metadata. The default
// is not persisted.
package profile

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/dropDatabas3/creatorverse/internal/domain/repository"
	"github.com/dropDatabas3/creatorverse/internal/domain/types"
	"github.com/dropDatabas3/creatorverse/internal/observability/logger"
)

const defaultName = "User"

type Resolver struct {
	repo repository.ProfileRepository
	log  *zap.Logger
}

// NewResolver builds a resolver. A nil repo always yields the default view.
func NewResolver(repo repository.ProfileRepository, log *zap.Logger) *Resolver {
	return &Resolver{repo: repo, log: logger.OrGlobal(log, "profile")}
}

// Resolve returns the stored profile for id, or the synthesized default.
func (r *Resolver) Resolve(ctx context.Context, id types.Identity) (view types.UserView) {
	if r == nil || r.repo == nil {
		return Default(id)
	}
	defer func() {
		if p := recover(); p != nil {
			r.log.Warn("profile lookup panicked, using default", logger.UserID(id.Subject), logger.Any("panic", p))
			view = Default(id)
		}
	}()

	rec, err := r.repo.FindProfile(ctx, id.Subject)
	switch {
	case err == nil && rec != nil:
		return FromRecord(id, rec)
	case err == nil, repository.IsNotFound(err):
		r.log.Debug("no stored profile, using default", logger.UserID(id.Subject))
	default:
		r.log.Warn("profile lookup failed, using default", logger.UserID(id.Subject), logger.Err(err))
	}
	return Default(id)
}

// Default synthesizes a view with zeroed counters from identity metadata.
func Default(id types.Identity) types.UserView {
	return types.UserView{
		ID:      id.Subject,
		Email:   id.Email,
		Name:    metaName(id),
		Picture: metaPicture(id),
	}
}

// FromRecord maps a stored row. Numeric columns are coerced; anything that is not a
// finite number becomes 0.
func FromRecord(id types.Identity, rec repository.ProfileRecord) types.UserView {
	v := types.UserView{
		ID:            id.Subject,
		Email:         id.Email,
		Name:          str(rec["name"]),
		Streak:        Int(rec["streak"]),
		Coins:         Int(rec["coins"]),
		CurrentPlanet: Int(rec["current_planet"]),
	}
	if v.Name == "" {
		v.Name = metaName(id)
	}
	if p := str(rec["picture"]); p != "" {
		v.Picture = &p
	} else {
		v.Picture = metaPicture(id)
	}
	if d := str(rec["last_post_date"]); d != "" {
		v.LastPostDate = &d
	}
	return v
}

func metaName(id types.Identity) string {
	for _, k := range []string{"full_name", "name"} {
		if s := strings.TrimSpace(id.MetaString(k)); s != "" {
			return s
		}
	}
	return defaultName
}

func metaPicture(id types.Identity) *string {
	for _, k := range []string{"avatar_url", "picture"} {
		if s := id.MetaString(k); s != "" {
			return &s
		}
	}
	return nil
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// Int coerces a stored value to int.
func Int(v any) int {
	var f float64
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float32:
		f = float64(n)
	case float64:
		f = n
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
		x, err := n.Float64()
		if err != nil {
			return 0
		}
		f = x
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		f = x
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0
	}
	return int(f)
}
