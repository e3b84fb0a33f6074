// Package slides provides the Postgres-backed slide catalog. Decks are
// authored out of band; the session only ever reads them.
package slides

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/livedeck/livedeck/pkg/core/session"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store reads the slide catalog from Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to the database and applies pending migrations.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if err := migrate(cfg); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool}, nil
}

// migrate runs goose over a short-lived database/sql connection; pgxpool
// stays the runtime interface.
func migrate(cfg *pgxpool.Config) error {
	db := stdlib.OpenDB(*cfg.ConnConfig)
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// Slides returns the deck in position order. Implements session.SlideSource.
func (s *Store) Slides(ctx context.Context) ([]session.Slide, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, prompt, cta, image_ref
		FROM slides
		ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying slides: %w", err)
	}
	defer rows.Close()

	var out []session.Slide
	for rows.Next() {
		var sl session.Slide
		if err := rows.Scan(&sl.ID, &sl.Title, &sl.Prompt, &sl.CTA, &sl.ImageRef); err != nil {
			return nil, fmt.Errorf("scanning slide: %w", err)
		}
		out = append(out, sl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading slides: %w", err)
	}
	return out, nil
}

// Ping reports whether the database is reachable; used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
