package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/contractsonly/api/internal/model"
)

// PostingCounter interface for the report service
type PostingCounter interface {
	CountByStatus(ctx context.Context) (map[model.PostingStatus]int, error)
}

// ReportService asks the analytics endpoint to rebuild its reports
type ReportService struct {
	refreshURL string
	secret     string
	postings   PostingCounter
	client     *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// ReportServiceConfig holds configuration for the report service
type ReportServiceConfig struct {
	RefreshURL string
	// Secret is sent as a bearer token so the endpoint can authenticate the call
	Secret     string
	Postings   PostingCounter
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewReportService creates a new report service
func NewReportService(cfg ReportServiceConfig) *ReportService {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &ReportService{
		refreshURL: cfg.RefreshURL,
		secret:     cfg.Secret,
		postings:   cfg.Postings,
		client:     cfg.HTTPClient,
		logger:     cfg.Logger,
		now:        time.Now,
	}
}

type refreshRequest struct {
	TriggeredAt time.Time                   `json:"triggered_at"`
	Postings    map[model.PostingStatus]int `json:"postings,omitempty"`
}

// Refresh posts a refresh request with current posting counts
func (s *ReportService) Refresh(ctx context.Context) error {
	if s.refreshURL == "" {
		return ErrAnalyticsNotConfigured
	}

	payload := refreshRequest{TriggeredAt: s.now().UTC()}
	if s.postings != nil {
		counts, err := s.postings.CountByStatus(ctx)
		if err != nil {
			return fmt.Errorf("counting postings: %w", err)
		}
		payload.Postings = counts
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.refreshURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.secret != "" {
		req.Header.Set("Authorization", "Bearer "+s.secret)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAnalyticsRefresh, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrAnalyticsRefresh, resp.StatusCode)
	}

	s.logger.Info("analytics refreshed", slog.Int("status", resp.StatusCode))
	return nil
}
