// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all geograph configuration.
type Config struct {
	// Graph store settings
	Neo4j Neo4jConfig

	// Relational store settings; disabled when POSTGRES_HOST is empty
	Postgres PostgresConfig

	// Bound on every store round trip
	GraphTimeout      time.Duration `env:"GEOGRAPH_GRAPH_TIMEOUT" envDefault:"30s"`
	RelationalTimeout time.Duration `env:"GEOGRAPH_RELATIONAL_TIMEOUT" envDefault:"30s"`

	// Spatial reference id geometries are stored in
	SRID int `env:"GEOGRAPH_SRID" envDefault:"4326"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Neo4jConfig holds graph store connection settings.
type Neo4jConfig struct {
	URI      string `env:"NEO4J_URI" envDefault:"neo4j://localhost:7687"`
	User     string `env:"NEO4J_USER" envDefault:"neo4j"`
	Password string `env:"NEO4J_PASSWORD" envDefault:""`
	Database string `env:"NEO4J_DATABASE" envDefault:""` // empty selects the server default
}

// PostgresConfig holds PostGIS connection settings.
type PostgresConfig struct {
	Host     string `env:"POSTGRES_HOST" envDefault:""`
	Port     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER" envDefault:"geograph"`
	Password string `env:"POSTGRES_PASSWORD" envDefault:""`
	Database string `env:"POSTGRES_DB" envDefault:"geograph"`
	SSLMode  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	MaxConns int    `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
}

// Enabled reports whether a relational store is configured.
func (p *PostgresConfig) Enabled() bool {
	return p.Host != ""
}

// DSN returns the PostgreSQL connection string.
func (p *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode,
	)
}

// Load reads an optional .env file (existing environment variables take
// precedence) and parses the environment into a Config.
//
// Missing dotenv files are ignored; any other read error is returned.
func Load(dotenvFiles ...string) (*Config, error) {
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !isNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return Parse()
}

// Parse parses the current environment into a Config.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.GraphTimeout <= 0 {
		return fmt.Errorf("GEOGRAPH_GRAPH_TIMEOUT must be positive, got %s", c.GraphTimeout)
	}
	if c.RelationalTimeout <= 0 {
		return fmt.Errorf("GEOGRAPH_RELATIONAL_TIMEOUT must be positive, got %s", c.RelationalTimeout)
	}
	if c.SRID <= 0 {
		return fmt.Errorf("GEOGRAPH_SRID must be positive, got %d", c.SRID)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() slog.Level {
	level, _ := ParseLevel(c.LogLevel)
	return level
}

// ParseLevel parses debug, info, warn or error (case-insensitive).
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
