package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Nav holds all configuration for the navigation tools.
type Nav struct {
	LogLevel string `yaml:"log_level"`

	// Maps
	MapsDir       string `yaml:"maps_dir"`
	FileExtension string `yaml:"file_extension"`
	LoadWorkers   int    `yaml:"load_workers"` // parallel map loads; 0 = unlimited

	Routing Routing `yaml:"routing"`
	Spatial Spatial `yaml:"spatial"`

	// Database is optional; with persist_doors off it is not opened.
	Database     DatabaseConfig `yaml:"database"`
	PersistDoors bool           `yaml:"persist_doors"`

	// Doors lists the doors of each map by map name.
	Doors map[string][]Door `yaml:"doors"`
}

// Routing tunes the routing caches and costs.
type Routing struct {
	MaxCacheMemory         int64 `yaml:"max_cache_memory"` // bytes per map
	LedgeTravelPenalty     int32 `yaml:"ledge_travel_penalty"`
	UncertainTravelPenalty int32 `yaml:"uncertain_travel_penalty"`
}

// Spatial tunes point location.
type Spatial struct {
	CellSize     float32 `yaml:"cell_size"`
	PointEpsilon float32 `yaml:"point_epsilon"`
}

// Door is a door placed in a map.
type Door struct {
	Name   string     `yaml:"name"`
	Mins   [3]float32 `yaml:"mins"`
	Maxs   [3]float32 `yaml:"maxs"`
	Closed bool       `yaml:"closed"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// DefaultNav returns Nav config with sensible defaults.
func DefaultNav() Nav {
	return Nav{
		LogLevel:      "info",
		MapsDir:       "maps",
		FileExtension: ".aas",
		LoadWorkers:   4,
		Routing: Routing{
			MaxCacheMemory:         2 << 20,
			LedgeTravelPenalty:     250,
			UncertainTravelPenalty: 100,
		},
		Spatial: Spatial{
			CellSize:     256,
			PointEpsilon: 0.125,
		},
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "aasnav",
			Password: "aasnav",
			DBName:   "aasnav",
			SSLMode:  "disable",
		},
	}
}

// LoadNav loads navigation config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadNav(path string) (Nav, error) {
	cfg := DefaultNav()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the runtime cannot work with.
func (c Nav) Validate() error {
	switch {
	case c.Routing.MaxCacheMemory < 0:
		return fmt.Errorf("routing.max_cache_memory must not be negative: %d", c.Routing.MaxCacheMemory)
	case c.Routing.LedgeTravelPenalty < 0:
		return fmt.Errorf("routing.ledge_travel_penalty must not be negative: %d", c.Routing.LedgeTravelPenalty)
	case c.Spatial.CellSize <= 0:
		return fmt.Errorf("spatial.cell_size must be positive: %g", c.Spatial.CellSize)
	case c.Spatial.PointEpsilon < 0:
		return fmt.Errorf("spatial.point_epsilon must not be negative: %g", c.Spatial.PointEpsilon)
	case c.LoadWorkers < 0:
		return fmt.Errorf("load_workers must not be negative: %d", c.LoadWorkers)
	}
	for m, doors := range c.Doors {
		seen := make(map[string]bool, len(doors))
		for _, d := range doors {
			if d.Name == "" {
				return fmt.Errorf("doors.%s: door without name", m)
			}
			if seen[d.Name] {
				return fmt.Errorf("doors.%s: duplicate door %q", m, d.Name)
			}
			seen[d.Name] = true
		}
	}
	return nil
}
