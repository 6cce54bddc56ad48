package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/creatorverse/internal/domain/repository"
)

var _ repository.UniverseRepository = (*Store)(nil)

func (s *Store) FindUniverse(ctx context.Context, userID string) (*repository.CreatorUniverse, error) {
	const q = `SELECT user_id, content_pillars, COALESCE(avatar, '{}'::jsonb) FROM creator_universe WHERE user_id = $1`
	var (
		u               repository.CreatorUniverse
		pillars, avatar []byte
	)
	err := s.pool.QueryRow(ctx, q, userID).Scan(&u.UserID, &pillars, &avatar)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: find universe: %w", err)
	}
	if err := json.Unmarshal(pillars, &u.ContentPillars); err != nil {
		return nil, fmt.Errorf("pg: decode content_pillars: %w", err)
	}
	if err := json.Unmarshal(avatar, &u.Avatar); err != nil {
		return nil, fmt.Errorf("pg: decode avatar: %w", err)
	}
	return &u, nil
}
