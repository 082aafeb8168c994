// Package fixtures provides test data factories for database tests.
//
// Each factory method inserts a row with sensible defaults, allows
// customization via option functions, and returns the populated model.
//
// Usage:
//
//	f := fixtures.New(tdb.DB)
//	posting := f.CreatePosting(t, fixtures.Active())
//	sub := f.CreateSubscriber(t, func(o *fixtures.SubscriberOpts) { o.Keywords = "golang" })
package fixtures

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/contractsonly/api/internal/database"
	"github.com/contractsonly/api/internal/model"
)

// Factory creates test entities in the database
type Factory struct {
	db database.Database
}

// New creates a new fixture factory
func New(db database.Database) *Factory {
	return &Factory{db: db}
}

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return c
}

// ============================================================================
// Posting Fixtures
// ============================================================================

// PostingOpts customizes posting creation
type PostingOpts struct {
	Title          string
	Company        string
	Location       string
	Description    string
	JobType        string
	URL            string
	Status         model.PostingStatus
	Recommendation model.Recommendation
	CreatedAt      time.Time
}

// Active marks the posting as already verified and live
func Active() func(*PostingOpts) {
	return func(o *PostingOpts) {
		o.Status = model.PostingStatusActive
		o.Recommendation = model.RecommendationAccept
	}
}

// CreatedAgo backdates the posting
func CreatedAgo(d time.Duration) func(*PostingOpts) {
	return func(o *PostingOpts) {
		o.CreatedAt = time.Now().Add(-d)
	}
}

// CreatePosting inserts a job posting, pending review by default
func (f *Factory) CreatePosting(t *testing.T, opts ...func(*PostingOpts)) *model.JobPosting {
	t.Helper()

	id := uuid.New().String()
	o := &PostingOpts{
		Title:       "Senior Go Engineer (Contract)",
		Company:     "Acme Corp",
		Location:    "Remote",
		Description: "6 month contract, $90/hr, W2 or 1099.",
		JobType:     "contract",
		URL:         fmt.Sprintf("https://jobs.test/%s", id),
		Status:      model.PostingStatusPendingReview,
		CreatedAt:   time.Now(),
	}
	for _, fn := range opts {
		fn(o)
	}

	query := `
		INSERT INTO job_postings
			(id, title, company, location, description, job_type, url, status, recommendation, created_at, updated_at)
		VALUES
			(@id, @title, @company, @location, @description, @job_type, @url, @status, @recommendation, @created_at, @created_at)
	`
	vars := map[string]interface{}{
		"id":             id,
		"title":          o.Title,
		"company":        o.Company,
		"location":       o.Location,
		"description":    o.Description,
		"job_type":       o.JobType,
		"url":            o.URL,
		"status":         string(o.Status),
		"recommendation": string(o.Recommendation),
		"created_at":     o.CreatedAt,
	}
	if err := f.db.Execute(ctx(t), query, vars); err != nil {
		t.Fatalf("fixtures: failed to create posting: %v", err)
	}

	return &model.JobPosting{
		ID:             id,
		Title:          o.Title,
		Company:        o.Company,
		Location:       o.Location,
		Description:    o.Description,
		JobType:        o.JobType,
		URL:            o.URL,
		Status:         o.Status,
		Recommendation: o.Recommendation,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.CreatedAt,
	}
}

// ============================================================================
// Subscriber Fixtures
// ============================================================================

// SubscriberOpts customizes subscriber creation
type SubscriberOpts struct {
	Email         string
	Name          string
	Keywords      string
	DigestEnabled bool
	LastDigestAt  *time.Time
}

// CreateSubscriber inserts a digest subscriber, enabled and never sent by default
func (f *Factory) CreateSubscriber(t *testing.T, opts ...func(*SubscriberOpts)) *model.DigestSubscriber {
	t.Helper()

	id := uuid.New().String()
	o := &SubscriberOpts{
		Email:         fmt.Sprintf("sub_%s@test.local", id[:8]),
		Name:          "Test Subscriber",
		DigestEnabled: true,
	}
	for _, fn := range opts {
		fn(o)
	}

	now := time.Now()
	query := `
		INSERT INTO digest_subscribers
			(id, email, name, keywords, digest_enabled, last_digest_at, created_at, updated_at)
		VALUES
			(@id, @email, @name, @keywords, @digest_enabled, @last_digest_at, @now, @now)
	`
	vars := map[string]interface{}{
		"id":             id,
		"email":          o.Email,
		"name":           o.Name,
		"keywords":       o.Keywords,
		"digest_enabled": o.DigestEnabled,
		"last_digest_at": o.LastDigestAt,
		"now":            now,
	}
	if err := f.db.Execute(ctx(t), query, vars); err != nil {
		t.Fatalf("fixtures: failed to create subscriber: %v", err)
	}

	return &model.DigestSubscriber{
		ID:            id,
		Email:         o.Email,
		Name:          o.Name,
		Keywords:      o.Keywords,
		DigestEnabled: o.DigestEnabled,
		LastDigestAt:  o.LastDigestAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
