package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DoorRepository persists door states. It satisfies door.StateStore.
type DoorRepository struct {
	pool *pgxpool.Pool
}

// NewDoorRepository creates a door state repository.
func NewDoorRepository(pool *pgxpool.Pool) *DoorRepository {
	return &DoorRepository{pool: pool}
}

// LoadAll returns the stored door states of a map, keyed by door name.
func (r *DoorRepository) LoadAll(ctx context.Context, mapName string) (map[string]bool, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT door_name, closed FROM nav_doors WHERE map_name = $1`, mapName)
	if err != nil {
		return nil, fmt.Errorf("query nav_doors %q: %w", mapName, err)
	}
	defer rows.Close()

	states := make(map[string]bool)
	for rows.Next() {
		var (
			name   string
			closed bool
		)
		if err := rows.Scan(&name, &closed); err != nil {
			return nil, fmt.Errorf("scan nav_doors: %w", err)
		}
		states[name] = closed
	}
	return states, rows.Err()
}

// Save inserts or updates one door state.
func (r *DoorRepository) Save(ctx context.Context, mapName, door string, closed bool) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO nav_doors (map_name, door_name, closed, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (map_name, door_name) DO UPDATE SET
		   closed = EXCLUDED.closed, updated_at = EXCLUDED.updated_at`,
		mapName, door, closed)
	if err != nil {
		return fmt.Errorf("upsert nav_doors %s/%s: %w", mapName, door, err)
	}
	return nil
}

// DeleteMap removes every stored door state of a map.
func (r *DoorRepository) DeleteMap(ctx context.Context, mapName string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM nav_doors WHERE map_name = $1`, mapName)
	if err != nil {
		return 0, fmt.Errorf("delete nav_doors %q: %w", mapName, err)
	}
	return tag.RowsAffected(), nil
}
