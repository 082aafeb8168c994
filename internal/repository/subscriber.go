package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/contractsonly/api/internal/database"
	"github.com/contractsonly/api/internal/model"
)

// SubscriberRepository handles digest subscriber data access
type SubscriberRepository struct {
	db database.Database
}

// NewSubscriberRepository creates a new subscriber repository
func NewSubscriberRepository(db database.Database) *SubscriberRepository {
	return &SubscriberRepository{db: db}
}

// ListDueForDigest returns enabled subscribers never sent a digest or last sent before cutoff
func (r *SubscriberRepository) ListDueForDigest(ctx context.Context, cutoff time.Time) ([]*model.DigestSubscriber, error) {
	query := `
		SELECT * FROM digest_subscribers
		WHERE digest_enabled = true
			AND (last_digest_at IS NULL OR last_digest_at < @cutoff)
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, map[string]interface{}{"cutoff": cutoff})
	if err != nil {
		return nil, fmt.Errorf("list digest subscribers: %w", err)
	}

	subscribers := make([]*model.DigestSubscriber, 0, len(rows))
	for _, row := range rows {
		subscribers = append(subscribers, parseSubscriber(row))
	}
	return subscribers, nil
}

// GetByID retrieves a subscriber by ID. Returns nil when not found.
func (r *SubscriberRepository) GetByID(ctx context.Context, id string) (*model.DigestSubscriber, error) {
	query := `SELECT * FROM digest_subscribers WHERE id = @id LIMIT 1`

	row, err := r.db.QueryOne(ctx, query, map[string]interface{}{"id": id})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return parseSubscriber(row), nil
}

// MarkDigestSent records when the subscriber last received a digest
func (r *SubscriberRepository) MarkDigestSent(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE digest_subscribers SET last_digest_at = @at, updated_at = NOW() WHERE id = @id`
	if err := r.db.Execute(ctx, query, map[string]interface{}{"id": id, "at": at}); err != nil {
		return fmt.Errorf("mark digest sent for %s: %w", id, err)
	}
	return nil
}

// DisableDigest opts the subscriber out of the digest.
// Returns database.ErrNotFound when no subscriber has the ID.
func (r *SubscriberRepository) DisableDigest(ctx context.Context, id string) error {
	query := `
		UPDATE digest_subscribers SET digest_enabled = false, updated_at = NOW()
		WHERE id = @id
		RETURNING id
	`
	if _, err := r.db.QueryOne(ctx, query, map[string]interface{}{"id": id}); err != nil {
		return err
	}
	return nil
}

func parseSubscriber(row database.Row) *model.DigestSubscriber {
	return &model.DigestSubscriber{
		ID:            getString(row, "id"),
		Email:         getString(row, "email"),
		Name:          getString(row, "name"),
		Keywords:      getString(row, "keywords"),
		DigestEnabled: getBool(row, "digest_enabled"),
		LastDigestAt:  getTime(row, "last_digest_at"),
		CreatedAt:     parseTime(row["created_at"]),
		UpdatedAt:     parseTime(row["updated_at"]),
	}
}
