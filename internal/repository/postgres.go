package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"orderbot/internal/model"
)

// PostgresRepository reads the store's catalog mirror and writes the turn log
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	// Disable prepared statement caching to avoid "unnamed prepared statement does not exist" errors
	if strings.Contains(dsn, "://") {
		if !strings.Contains(dsn, "?") {
			dsn += "?prefer_simple_protocol=true"
		} else {
			dsn += "&prefer_simple_protocol=true"
		}
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// NewPostgresRepositoryWithDB wraps an existing handle.
func NewPostgresRepositoryWithDB(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// Ping checks the connection is alive
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const (
	selectCategories = `SELECT id, name, slug, count FROM product_categories ORDER BY name`
	selectTags       = `SELECT id, name, slug FROM product_tags ORDER BY name`
	selectTerms      = `SELECT id, attribute, name, slug FROM attribute_terms ORDER BY attribute, id`
	selectProducts   = `SELECT id, name, slug FROM products WHERE status = 'publish' ORDER BY id`
)

// LoadCatalog reads the four catalog tables concurrently
func (r *PostgresRepository) LoadCatalog(ctx context.Context) (model.CatalogData, error) {
	var data model.CatalogData
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := r.db.SelectContext(ctx, &data.Categories, selectCategories); err != nil {
			return fmt.Errorf("failed to load categories: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := r.db.SelectContext(ctx, &data.Tags, selectTags); err != nil {
			return fmt.Errorf("failed to load tags: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := r.db.SelectContext(ctx, &data.Terms, selectTerms); err != nil {
			return fmt.Errorf("failed to load attribute terms: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := r.db.SelectContext(ctx, &data.Products, selectProducts); err != nil {
			return fmt.Errorf("failed to load products: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return model.CatalogData{}, err
	}
	data.LoadedAt = time.Now()
	return data, nil
}

// LogTurn writes one handled turn. The message must already be sanitised.
func (r *PostgresRepository) LogTurn(ctx context.Context, rec *model.TurnRecord) error {
	query := `
		INSERT INTO chat_turns (session_id, turn_id, message, intent, confidence, verdict, flow_state, next_state, entities, took_ms, created_at)
		VALUES (:session_id, :turn_id, :message, :intent, :confidence, :verdict, :flow_state, :next_state, :entities, :took_ms, :created_at)
	`
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := r.db.NamedExecContext(ctx, query, rec)
	if err != nil {
		return fmt.Errorf("failed to log turn: %w", err)
	}
	return nil
}

// RecentTurns returns the latest turns of a session, newest first
func (r *PostgresRepository) RecentTurns(ctx context.Context, sessionID string, limit int) ([]model.TurnRecord, error) {
	query := `
		SELECT session_id, turn_id, message, intent, confidence, verdict, flow_state, next_state, entities, took_ms, created_at
		FROM chat_turns
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	var turns []model.TurnRecord
	if err := r.db.SelectContext(ctx, &turns, query, sessionID, limit); err != nil {
		return nil, fmt.Errorf("failed to fetch turns: %w", err)
	}
	return turns, nil
}
