package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/creatorverse/internal/domain/repository"
)

var _ repository.ProfileRepository = (*Store)(nil)

// FindProfile devuelve la fila de profiles como mapa. to_jsonb mantiene los nombres
// de columna; los números llegan como float64 y ProfileResolver los normaliza.
func (s *Store) FindProfile(ctx context.Context, userID string) (repository.ProfileRecord, error) {
	const q = `SELECT to_jsonb(p) FROM profiles p WHERE p.id = $1`
	var rec map[string]any
	err := s.pool.QueryRow(ctx, q, userID).Scan(&rec)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: find profile: %w", err)
	}
	return repository.ProfileRecord(rec), nil
}
