package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/aasnav/internal/aasfile"
)

// MapRecord is one row of the map registry.
type MapRecord struct {
	Name           string
	Version        uint32
	MapCRC         uint32
	Fingerprint    string
	Areas          int
	Reachabilities int
	Clusters       int
	Portals        int
	LoadedAt       time.Time
}

// RecordOf describes a loaded file for the registry.
func RecordOf(f *aasfile.File) MapRecord {
	info := f.Info()
	return MapRecord{
		Name:           f.Name(),
		Version:        f.Version(),
		MapCRC:         f.MapCRC(),
		Fingerprint:    f.Fingerprint(),
		Areas:          info.Areas,
		Reachabilities: info.Reachabilities,
		Clusters:       info.Clusters,
		Portals:        info.Portals,
	}
}

// MapRepository stores which navigation files were loaded and what they held.
type MapRepository struct {
	pool *pgxpool.Pool
}

// NewMapRepository creates a map registry repository.
func NewMapRepository(pool *pgxpool.Pool) *MapRepository {
	return &MapRepository{pool: pool}
}

// Upsert records a loaded map and reports whether its content differs from
// the previous registration. A map seen for the first time counts as changed.
func (r *MapRepository) Upsert(ctx context.Context, rec MapRecord) (bool, error) {
	var previous *string
	err := r.pool.QueryRow(ctx,
		`WITH old AS (SELECT fingerprint FROM nav_maps WHERE name = $1)
		 INSERT INTO nav_maps
		   (name, version, map_crc, fingerprint, areas, reachabilities, clusters, portals, loaded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		 ON CONFLICT (name) DO UPDATE SET
		   version = EXCLUDED.version, map_crc = EXCLUDED.map_crc,
		   fingerprint = EXCLUDED.fingerprint,
		   areas = EXCLUDED.areas, reachabilities = EXCLUDED.reachabilities,
		   clusters = EXCLUDED.clusters, portals = EXCLUDED.portals,
		   loaded_at = EXCLUDED.loaded_at
		 RETURNING (SELECT fingerprint FROM old)`,
		rec.Name, int32(rec.Version), int64(rec.MapCRC), rec.Fingerprint,
		rec.Areas, rec.Reachabilities, rec.Clusters, rec.Portals,
	).Scan(&previous)
	if err != nil {
		return false, fmt.Errorf("upsert nav_maps %q: %w", rec.Name, err)
	}
	return previous == nil || *previous != rec.Fingerprint, nil
}

// Get returns the registration of a map.
// Returns nil, nil if the map was never registered.
func (r *MapRepository) Get(ctx context.Context, name string) (*MapRecord, error) {
	rec, err := scanMap(r.pool.QueryRow(ctx,
		`SELECT name, version, map_crc, fingerprint, areas, reachabilities, clusters, portals, loaded_at
		 FROM nav_maps WHERE name = $1`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying nav_maps %q: %w", name, err)
	}
	return rec, nil
}

// List returns every registered map ordered by name.
func (r *MapRepository) List(ctx context.Context) ([]MapRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT name, version, map_crc, fingerprint, areas, reachabilities, clusters, portals, loaded_at
		 FROM nav_maps ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query nav_maps: %w", err)
	}
	defer rows.Close()

	var result []MapRecord
	for rows.Next() {
		rec, err := scanMap(rows)
		if err != nil {
			return nil, fmt.Errorf("scan nav_maps: %w", err)
		}
		result = append(result, *rec)
	}
	return result, rows.Err()
}

func scanMap(row pgx.Row) (*MapRecord, error) {
	var (
		rec     MapRecord
		version int32
		crc     int64
	)
	if err := row.Scan(&rec.Name, &version, &crc, &rec.Fingerprint,
		&rec.Areas, &rec.Reachabilities, &rec.Clusters, &rec.Portals, &rec.LoadedAt); err != nil {
		return nil, err
	}
	rec.Version = uint32(version)
	rec.MapCRC = uint32(crc)
	return &rec, nil
}
