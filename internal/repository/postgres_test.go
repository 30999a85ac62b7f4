package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderbot/internal/model"
)

func newMockRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepositoryWithDB(sqlx.NewDb(db, "postgres")), mock
}

func TestPostgresRepository_LoadCatalog(t *testing.T) {
	repo, mock := newMockRepo(t)
	// the four tables load concurrently
	mock.MatchExpectationsInOrder(false)

	mock.ExpectQuery(regexp.QuoteMeta(selectCategories)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "count"}).
			AddRow(10, "Wall", "wall", 12).
			AddRow(12, "Mosaics", "mosaics", 4))
	mock.ExpectQuery(regexp.QuoteMeta(selectTags)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug"}).
			AddRow(70, "Quick Ship", "quick-ship"))
	mock.ExpectQuery(regexp.QuoteMeta(selectTerms)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "attribute", "name", "slug"}).
			AddRow(1, "pa_finish", "Polished", "polished").
			AddRow(4, "pa_size", "24x48", "24x48"))
	mock.ExpectQuery(regexp.QuoteMeta(selectProducts)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug"}).
			AddRow(500, "Allspice Porcelain Tile", "allspice-porcelain-tile"))

	data, err := repo.LoadCatalog(context.Background())
	require.NoError(t, err)
	assert.Len(t, data.Categories, 2)
	assert.Equal(t, model.Category{ID: 10, Name: "Wall", Slug: "wall", Count: 12}, data.Categories[0])
	assert.Equal(t, []model.Tag{{ID: 70, Name: "Quick Ship", Slug: "quick-ship"}}, data.Tags)
	assert.Equal(t, "pa_size", data.Terms[1].Attribute)
	assert.Equal(t, 500, data.Products[0].ID)
	assert.False(t, data.LoadedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_LoadCatalogFails(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.MatchExpectationsInOrder(false)

	empty := func(cols ...string) *sqlmock.Rows { return sqlmock.NewRows(cols) }
	mock.ExpectQuery(regexp.QuoteMeta(selectCategories)).WillReturnRows(empty("id", "name", "slug", "count"))
	mock.ExpectQuery(regexp.QuoteMeta(selectTags)).WillReturnError(errors.New("relation \"product_tags\" does not exist"))
	mock.ExpectQuery(regexp.QuoteMeta(selectTerms)).WillReturnRows(empty("id", "attribute", "name", "slug"))
	mock.ExpectQuery(regexp.QuoteMeta(selectProducts)).WillReturnRows(empty("id", "name", "slug"))

	_, err := repo.LoadCatalog(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load tags")
}

func TestPostgresRepository_LogTurn(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO chat_turns")).
		WithArgs("sess-1", "turn-1", "show me wall tiles", "category_browse", 0.94, "proceed", "idle", "showing_results", sqlmock.AnyArg(), int64(12), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := &model.TurnRecord{
		SessionID:  "sess-1",
		TurnID:     "turn-1",
		Message:    "show me wall tiles",
		Intent:     "category_browse",
		Confidence: 0.94,
		Verdict:    "proceed",
		FlowState:  "idle",
		NextState:  "showing_results",
		Entities:   model.JSONMap{"category_name": "Wall"},
		TookMs:     12,
	}
	require.NoError(t, repo.LogTurn(context.Background(), rec))
	assert.False(t, rec.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_LogTurnError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO chat_turns")).WillReturnError(errors.New("connection reset"))

	err := repo.LogTurn(context.Background(), &model.TurnRecord{SessionID: "s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to log turn")
}

func TestPostgresRepository_RecentTurns(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM chat_turns")).
		WithArgs("sess-1", 5).
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "turn_id", "message", "intent", "confidence", "verdict", "flow_state", "next_state", "entities", "took_ms", "created_at"}).
			AddRow("sess-1", "turn-2", "5", "unknown", 0.0, "dialogue", "awaiting_quantity", "awaiting_order_confirm", []byte(`{"quantity":5}`), 3, at))

	turns, err := repo.RecentTurns(context.Background(), "sess-1", 5)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "turn-2", turns[0].TurnID)
	assert.Equal(t, float64(5), turns[0].Entities["quantity"])
	assert.Equal(t, at, turns[0].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
