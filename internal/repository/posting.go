package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/contractsonly/api/internal/database"
	"github.com/contractsonly/api/internal/model"
)

// PostingRepository handles job posting data access
type PostingRepository struct {
	db database.Database
}

// NewPostingRepository creates a new posting repository
func NewPostingRepository(db database.Database) *PostingRepository {
	return &PostingRepository{db: db}
}

// ListPendingVerification returns postings awaiting a first verification verdict, oldest first
func (r *PostingRepository) ListPendingVerification(ctx context.Context, limit int) ([]*model.JobPosting, error) {
	query := `
		SELECT * FROM job_postings
		WHERE status = @status AND (recommendation IS NULL OR recommendation = '')
		ORDER BY created_at ASC
		LIMIT @limit
	`
	vars := map[string]interface{}{
		"status": string(model.PostingStatusPendingReview),
		"limit":  limit,
	}

	rows, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, fmt.Errorf("list pending postings: %w", err)
	}
	return parsePostings(rows), nil
}

// ListActiveSince returns active postings created at or after since, newest first
func (r *PostingRepository) ListActiveSince(ctx context.Context, since time.Time) ([]*model.JobPosting, error) {
	query := `
		SELECT * FROM job_postings
		WHERE status = @status AND created_at >= @since
		ORDER BY created_at DESC
	`
	vars := map[string]interface{}{
		"status": string(model.PostingStatusActive),
		"since":  since,
	}

	rows, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, fmt.Errorf("list active postings: %w", err)
	}
	return parsePostings(rows), nil
}

// ApplyVerification stores a verdict and moves the posting to status
func (r *PostingRepository) ApplyVerification(ctx context.Context, v *model.Verification, status model.PostingStatus) error {
	query := `
		UPDATE job_postings SET
			status = @status,
			contract_score = @score,
			confidence = @confidence,
			recommendation = @recommendation,
			verification_method = @method,
			contract_indicators = @contract_indicators,
			full_time_indicators = @full_time_indicators,
			hourly_rate = COALESCE(@hourly_rate, hourly_rate),
			duration = COALESCE(@duration, duration),
			verified_at = NOW(),
			updated_at = NOW()
		WHERE id = @id
	`
	vars := map[string]interface{}{
		"id":                   v.PostingID,
		"status":               string(status),
		"score":                v.FinalScore,
		"confidence":           string(v.Confidence),
		"recommendation":       string(v.Recommendation),
		"method":               string(v.Method),
		"contract_indicators":  joinList(v.ContractIndicators),
		"full_time_indicators": joinList(v.FullTimeIndicators),
		"hourly_rate":          nilIfEmpty(v.HourlyRate),
		"duration":             nilIfEmpty(v.Duration),
	}

	if err := r.db.Execute(ctx, query, vars); err != nil {
		return fmt.Errorf("apply verification to %s: %w", v.PostingID, err)
	}
	return nil
}

// ExpireOlderThan marks active postings created before cutoff as expired
// and returns how many were changed
func (r *PostingRepository) ExpireOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		UPDATE job_postings SET status = @expired, updated_at = NOW()
		WHERE status = @active AND created_at < @cutoff
		RETURNING id
	`
	vars := map[string]interface{}{
		"expired": string(model.PostingStatusExpired),
		"active":  string(model.PostingStatusActive),
		"cutoff":  cutoff,
	}

	rows, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return 0, fmt.Errorf("expire postings: %w", err)
	}
	return len(rows), nil
}

// CountByStatus returns the number of postings in each status
func (r *PostingRepository) CountByStatus(ctx context.Context) (map[model.PostingStatus]int, error) {
	query := `SELECT status, COUNT(*) AS count FROM job_postings GROUP BY status`

	rows, err := r.db.Query(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("count postings: %w", err)
	}

	counts := make(map[model.PostingStatus]int, len(rows))
	for _, row := range rows {
		counts[model.PostingStatus(getString(row, "status"))] = getInt(row, "count")
	}
	return counts, nil
}

func parsePostings(rows []database.Row) []*model.JobPosting {
	postings := make([]*model.JobPosting, 0, len(rows))
	for _, row := range rows {
		postings = append(postings, parsePosting(row))
	}
	return postings
}

func parsePosting(row database.Row) *model.JobPosting {
	p := &model.JobPosting{
		ID:                 getString(row, "id"),
		Title:              getString(row, "title"),
		Company:            getString(row, "company"),
		Location:           getString(row, "location"),
		Description:        getString(row, "description"),
		JobType:            getString(row, "job_type"),
		URL:                getString(row, "url"),
		HourlyRate:         getString(row, "hourly_rate"),
		Duration:           getString(row, "duration"),
		Status:             model.PostingStatus(getString(row, "status")),
		ContractScore:      getFloat(row, "contract_score"),
		Confidence:         model.Confidence(getString(row, "confidence")),
		Recommendation:     model.Recommendation(getString(row, "recommendation")),
		VerificationMethod: model.VerificationMethod(getString(row, "verification_method")),
		ContractIndicators: getString(row, "contract_indicators"),
		FullTimeIndicators: getString(row, "full_time_indicators"),
		VerifiedAt:         getTime(row, "verified_at"),
		PostedAt:           getTime(row, "posted_at"),
	}
	p.CreatedAt = parseTime(row["created_at"])
	p.UpdatedAt = parseTime(row["updated_at"])
	return p
}
