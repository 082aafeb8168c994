package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/contractsonly/api/internal/model"
)

const (
	defaultVerifyBatchLimit  = 100
	defaultVerifyConcurrency = 5
)

// PendingPostingRepository interface for the verification service
type PendingPostingRepository interface {
	ListPendingVerification(ctx context.Context, limit int) ([]*model.JobPosting, error)
	ApplyVerification(ctx context.Context, v *model.Verification, status model.PostingStatus) error
}

// VerificationService scores imported postings and decides whether they
// are contract roles
type VerificationService struct {
	postings    PendingPostingRepository
	fetcher     PageFetcher
	batchLimit  int
	concurrency int
	logger      *slog.Logger
}

// VerificationServiceConfig holds configuration for the verification service.
// A nil Fetcher scores postings from their scraped text only.
type VerificationServiceConfig struct {
	Postings    PendingPostingRepository
	Fetcher     PageFetcher
	BatchLimit  int
	Concurrency int
	Logger      *slog.Logger
}

// NewVerificationService creates a new verification service
func NewVerificationService(cfg VerificationServiceConfig) *VerificationService {
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = defaultVerifyBatchLimit
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultVerifyConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &VerificationService{
		postings:    cfg.Postings,
		fetcher:     cfg.Fetcher,
		batchLimit:  cfg.BatchLimit,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
	}
}

// VerifyPending verifies postings awaiting review in groups of at most
// Concurrency at a time so source sites are not overwhelmed
func (s *VerificationService) VerifyPending(ctx context.Context) error {
	pending, err := s.postings.ListPendingVerification(ctx, s.batchLimit)
	if err != nil {
		return fmt.Errorf("loading pending postings: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	var (
		mu     sync.Mutex
		errs   []error
		counts = map[model.Recommendation]int{}
	)

	for start := 0; start < len(pending); start += s.concurrency {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		end := min(start+s.concurrency, len(pending))

		var wg sync.WaitGroup
		for _, p := range pending[start:end] {
			wg.Add(1)
			go func(p *model.JobPosting) {
				defer wg.Done()

				v := s.Verify(ctx, p)
				err := s.postings.ApplyVerification(ctx, v, statusFor(v.Recommendation))

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					errs = append(errs, err)
					return
				}
				counts[v.Recommendation]++
			}(p)
		}
		wg.Wait()
	}

	s.logger.Info("posting verification finished",
		slog.Int("pending", len(pending)),
		slog.Int("accepted", counts[model.RecommendationAccept]),
		slog.Int("rejected", counts[model.RecommendationReject]),
		slog.Int("manual_review", counts[model.RecommendationManualReview]),
		slog.Int("failed", len(errs)),
	)
	return errors.Join(errs...)
}

// Verify scores one posting. Page fetch failures are recorded on the
// result and fall back to the scraped text.
func (s *VerificationService) Verify(ctx context.Context, p *model.JobPosting) *model.Verification {
	if IsExplicitNonContractType(p.JobType) {
		jobType := strings.ToLower(strings.TrimSpace(p.JobType))
		return &model.Verification{
			PostingID:          p.ID,
			Confidence:         model.ConfidenceHigh,
			Recommendation:     model.RecommendationReject,
			Method:             model.VerificationExplicitJobType,
			JobTypeFound:       jobType,
			ContractIndicators: []string{},
			FullTimeIndicators: []string{"job_type: " + jobType},
		}
	}

	initial := ScoreContractText(p.Description, p.Title)
	v := &model.Verification{
		PostingID:          p.ID,
		InitialScore:       initial.Value,
		ContractIndicators: appendUnique(nil, initial.ContractIndicators...),
		FullTimeIndicators: appendUnique(nil, initial.FullTimeIndicators...),
	}

	if s.fetcher != nil && p.URL != "" {
		content, err := s.fetcher.Fetch(ctx, p.URL)
		switch {
		case err != nil:
			v.Error = err.Error()
			s.logger.Warn("posting page fetch failed",
				slog.String("posting_id", p.ID),
				slog.String("error", err.Error()),
			)
		case content != "":
			page := ScoreContractText(content, "")
			v.PageScore = page.Value
			v.JobTypeFound = ExtractJobType(content)
			v.HourlyRate = ExtractHourlyRate(content)
			v.Duration = ExtractDuration(content)
			v.ContractIndicators = appendUnique(v.ContractIndicators, page.ContractIndicators...)
			v.FullTimeIndicators = appendUnique(v.FullTimeIndicators, page.FullTimeIndicators...)
		}
	}

	if v.HourlyRate == "" {
		v.HourlyRate = ExtractHourlyRate(p.Description)
	}
	if v.Duration == "" {
		v.Duration = ExtractDuration(p.Description)
	}

	// A page only counts as evidence when it scored and labelled its job type
	pageVerified := v.PageScore > 0 && v.JobTypeFound != ""
	d := Decide(v.InitialScore, v.PageScore, pageVerified)
	v.FinalScore = d.Score
	v.Confidence = d.Confidence
	v.Recommendation = d.Recommendation
	v.Method = d.Method

	if v.ContractIndicators == nil {
		v.ContractIndicators = []string{}
	}
	if v.FullTimeIndicators == nil {
		v.FullTimeIndicators = []string{}
	}
	return v
}

// statusFor maps a verdict onto the posting lifecycle
func statusFor(r model.Recommendation) model.PostingStatus {
	switch r {
	case model.RecommendationAccept:
		return model.PostingStatusActive
	case model.RecommendationReject:
		return model.PostingStatusRejected
	default:
		return model.PostingStatusPendingReview
	}
}
