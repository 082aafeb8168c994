package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/contractsonly/api/internal/model"
)

const defaultPostingTTL = 30 * 24 * time.Hour

// PostingExpirer interface for the posting service
type PostingExpirer interface {
	ExpireOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// PostingService handles posting lifecycle maintenance
type PostingService struct {
	postings PostingExpirer
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// PostingServiceConfig holds configuration for the posting service
type PostingServiceConfig struct {
	Postings PostingExpirer
	TTL      time.Duration
	Logger   *slog.Logger
}

// NewPostingService creates a new posting service
func NewPostingService(cfg PostingServiceConfig) *PostingService {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultPostingTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &PostingService{
		postings: cfg.Postings,
		ttl:      cfg.TTL,
		logger:   cfg.Logger,
		now:      time.Now,
	}
}

// ExpireStale moves active postings older than the TTL to expired
func (s *PostingService) ExpireStale(ctx context.Context) error {
	cutoff := s.now().UTC().Add(-s.ttl)

	n, err := s.postings.ExpireOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("expiring postings: %w", err)
	}

	s.logger.Info("stale postings expired",
		slog.Int("expired", n),
		slog.Time("cutoff", cutoff),
		slog.String("status", string(model.PostingStatusExpired)),
	)
	return nil
}
