package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractsonly/api/internal/database"
	"github.com/contractsonly/api/internal/model"
)

// ============================================================================
// Mock Database
// ============================================================================

type mockDB struct {
	queryFunc    func(ctx context.Context, query string, vars map[string]interface{}) ([]database.Row, error)
	queryOneFunc func(ctx context.Context, query string, vars map[string]interface{}) (database.Row, error)
	executeFunc  func(ctx context.Context, query string, vars map[string]interface{}) error

	lastQuery string
	lastVars  map[string]interface{}
}

func (m *mockDB) Connect(ctx context.Context) error { return nil }
func (m *mockDB) Close() error                      { return nil }
func (m *mockDB) Ping(ctx context.Context) error    { return nil }

func (m *mockDB) Query(ctx context.Context, query string, vars map[string]interface{}) ([]database.Row, error) {
	m.lastQuery, m.lastVars = query, vars
	if m.queryFunc != nil {
		return m.queryFunc(ctx, query, vars)
	}
	return nil, nil
}

func (m *mockDB) QueryOne(ctx context.Context, query string, vars map[string]interface{}) (database.Row, error) {
	m.lastQuery, m.lastVars = query, vars
	if m.queryOneFunc != nil {
		return m.queryOneFunc(ctx, query, vars)
	}
	return nil, database.ErrNotFound
}

func (m *mockDB) Execute(ctx context.Context, query string, vars map[string]interface{}) error {
	m.lastQuery, m.lastVars = query, vars
	if m.executeFunc != nil {
		return m.executeFunc(ctx, query, vars)
	}
	return nil
}

// ============================================================================
// Helper Tests
// ============================================================================

func TestRowHelpers(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	row := database.Row{
		"s":       "text",
		"b":       []byte("bytes"),
		"i64":     int64(7),
		"f":       0.75,
		"numeric": "0.5",
		"flag":    true,
		"ts":      now,
		"ts_str":  "2026-01-02T03:04:05Z",
	}

	assert.Equal(t, "text", getString(row, "s"))
	assert.Equal(t, "bytes", getString(row, "b"))
	assert.Equal(t, "", getString(row, "missing"))
	assert.Equal(t, 7, getInt(row, "i64"))
	assert.Equal(t, 0.75, getFloat(row, "f"))
	assert.Equal(t, 0.5, getFloat(row, "numeric"))
	assert.True(t, getBool(row, "flag"))
	assert.False(t, getBool(row, "missing"))
	require.NotNil(t, getTime(row, "ts"))
	assert.True(t, now.Equal(*getTime(row, "ts_str")))
	assert.Nil(t, getTime(row, "missing"))
}

// ============================================================================
// PostingRepository Tests
// ============================================================================

func TestPostingRepository_ListPendingVerification(t *testing.T) {
	t.Parallel()

	created := time.Now().UTC()
	db := &mockDB{queryFunc: func(ctx context.Context, query string, vars map[string]interface{}) ([]database.Row, error) {
		return []database.Row{{
			"id":             "p1",
			"title":          "Go Contractor",
			"status":         "pending_review",
			"contract_score": 0.0,
			"created_at":     created,
		}}, nil
	}}

	postings, err := NewPostingRepository(db).ListPendingVerification(context.Background(), 25)
	require.NoError(t, err)
	require.Len(t, postings, 1)
	assert.Equal(t, "p1", postings[0].ID)
	assert.Equal(t, model.PostingStatusPendingReview, postings[0].Status)
	assert.Equal(t, created, postings[0].CreatedAt)
	assert.Equal(t, 25, db.lastVars["limit"])
	assert.Equal(t, "pending_review", db.lastVars["status"])
}

func TestPostingRepository_ApplyVerification(t *testing.T) {
	t.Parallel()

	db := &mockDB{}
	v := &model.Verification{
		PostingID:          "p1",
		FinalScore:         0.8,
		Confidence:         model.ConfidenceHigh,
		Recommendation:     model.RecommendationAccept,
		Method:             model.VerificationScrapingOnly,
		ContractIndicators: []string{"contract", "1099"},
	}

	err := NewPostingRepository(db).ApplyVerification(context.Background(), v, model.PostingStatusActive)
	require.NoError(t, err)
	assert.Equal(t, "active", db.lastVars["status"])
	assert.Equal(t, "contract,1099", db.lastVars["contract_indicators"])
	assert.Nil(t, db.lastVars["hourly_rate"])
	assert.Equal(t, "ACCEPT", db.lastVars["recommendation"])
}

func TestPostingRepository_ExpireOlderThan(t *testing.T) {
	t.Parallel()

	db := &mockDB{queryFunc: func(ctx context.Context, query string, vars map[string]interface{}) ([]database.Row, error) {
		return []database.Row{{"id": "a"}, {"id": "b"}}, nil
	}}

	n, err := NewPostingRepository(db).ExpireOlderThan(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, db.lastQuery, "RETURNING id")
}

func TestPostingRepository_QueryError(t *testing.T) {
	t.Parallel()

	db := &mockDB{queryFunc: func(ctx context.Context, query string, vars map[string]interface{}) ([]database.Row, error) {
		return nil, database.ErrConnection
	}}

	_, err := NewPostingRepository(db).ListActiveSince(context.Background(), time.Now())
	assert.ErrorIs(t, err, database.ErrConnection)
}

func TestPostingRepository_CountByStatus(t *testing.T) {
	t.Parallel()

	db := &mockDB{queryFunc: func(ctx context.Context, query string, vars map[string]interface{}) ([]database.Row, error) {
		return []database.Row{
			{"status": "active", "count": int64(4)},
			{"status": "expired", "count": int64(9)},
		}, nil
	}}

	counts, err := NewPostingRepository(db).CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, counts[model.PostingStatusActive])
	assert.Equal(t, 9, counts[model.PostingStatusExpired])
}

// ============================================================================
// SubscriberRepository Tests
// ============================================================================

func TestSubscriberRepository_GetByID_NotFound(t *testing.T) {
	t.Parallel()

	sub, err := NewSubscriberRepository(&mockDB{}).GetByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestSubscriberRepository_ListDueForDigest(t *testing.T) {
	t.Parallel()

	last := time.Now().Add(-10 * 24 * time.Hour)
	db := &mockDB{queryFunc: func(ctx context.Context, query string, vars map[string]interface{}) ([]database.Row, error) {
		return []database.Row{
			{"id": "s1", "email": "a@example.com", "digest_enabled": true, "last_digest_at": last},
			{"id": "s2", "email": "b@example.com", "digest_enabled": true, "keywords": "go,rust"},
		}, nil
	}}

	subs, err := NewSubscriberRepository(db).ListDueForDigest(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, subs, 2)
	require.NotNil(t, subs[0].LastDigestAt)
	assert.Nil(t, subs[1].LastDigestAt)
	assert.Equal(t, []string{"go", "rust"}, subs[1].KeywordList())
}

func TestSubscriberRepository_DisableDigest(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{queryOneFunc: func(ctx context.Context, query string, vars map[string]interface{}) (database.Row, error) {
			return database.Row{"id": vars["id"]}, nil
		}}
		assert.NoError(t, NewSubscriberRepository(db).DisableDigest(context.Background(), "s1"))
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		err := NewSubscriberRepository(&mockDB{}).DisableDigest(context.Background(), "nope")
		assert.True(t, errors.Is(err, database.ErrNotFound))
	})
}
