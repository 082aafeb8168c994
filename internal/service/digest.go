package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/contractsonly/api/internal/database"
	"github.com/contractsonly/api/internal/model"
)

const defaultDigestMaxPostings = 20

// SubscriberRepository interface for the digest service
type SubscriberRepository interface {
	ListDueForDigest(ctx context.Context, cutoff time.Time) ([]*model.DigestSubscriber, error)
	MarkDigestSent(ctx context.Context, id string, at time.Time) error
	DisableDigest(ctx context.Context, id string) error
}

// ActivePostingSource interface for the digest service
type ActivePostingSource interface {
	ListActiveSince(ctx context.Context, since time.Time) ([]*model.JobPosting, error)
}

// DigestService sends the weekly digest of new contract postings
type DigestService struct {
	subscribers SubscriberRepository
	postings    ActivePostingSource
	sender      EmailSender
	tokens      *UnsubscribeTokens
	appBaseURL  string
	apiBaseURL  string
	maxPostings int
	logger      *slog.Logger
	now         func() time.Time
}

// DigestServiceConfig holds configuration for the digest service
type DigestServiceConfig struct {
	Subscribers SubscriberRepository
	Postings    ActivePostingSource
	Sender      EmailSender
	Tokens      *UnsubscribeTokens
	AppBaseURL  string
	APIBaseURL  string
	MaxPostings int
	Logger      *slog.Logger
}

// NewDigestService creates a new digest service
func NewDigestService(cfg DigestServiceConfig) *DigestService {
	if cfg.MaxPostings <= 0 {
		cfg.MaxPostings = defaultDigestMaxPostings
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &DigestService{
		subscribers: cfg.Subscribers,
		postings:    cfg.Postings,
		sender:      cfg.Sender,
		tokens:      cfg.Tokens,
		appBaseURL:  strings.TrimRight(cfg.AppBaseURL, "/"),
		apiBaseURL:  strings.TrimRight(cfg.APIBaseURL, "/"),
		maxPostings: cfg.MaxPostings,
		logger:      cfg.Logger,
		now:         time.Now,
	}
}

// SendWeeklyDigests emails every due subscriber the active postings from the
// last week that match their keywords. Subscribers are stamped as they
// succeed, so a retry only reaches the ones that failed.
func (s *DigestService) SendWeeklyDigests(ctx context.Context) error {
	now := s.now().UTC()
	cutoff := now.Add(-model.DigestInterval)

	due, err := s.subscribers.ListDueForDigest(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("loading subscribers: %w", err)
	}
	if len(due) == 0 {
		s.logger.Info("weekly digest: no subscribers due")
		return nil
	}

	postings, err := s.postings.ListActiveSince(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("loading postings: %w", err)
	}

	var (
		errs    []error
		sent    int
		skipped int
	)
	for _, sub := range due {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		matched := matchingPostings(sub, postings, s.maxPostings)
		if len(matched) == 0 {
			skipped++
			continue
		}

		msg, err := s.buildDigest(sub, matched)
		if err != nil {
			errs = append(errs, fmt.Errorf("building digest for %s: %w", sub.ID, err))
			continue
		}
		if _, err := s.sender.Send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("sending digest to %s: %w", sub.ID, err))
			continue
		}
		if err := s.subscribers.MarkDigestSent(ctx, sub.ID, now); err != nil {
			errs = append(errs, err)
			continue
		}
		sent++
	}

	s.logger.Info("weekly digest finished",
		slog.Int("due", len(due)),
		slog.Int("sent", sent),
		slog.Int("skipped", skipped),
		slog.Int("failed", len(errs)),
	)
	return errors.Join(errs...)
}

// Unsubscribe disables the digest for the subscriber named by token
func (s *DigestService) Unsubscribe(ctx context.Context, token string) error {
	if s.tokens == nil {
		return ErrUnsubscribeNotConfigured
	}
	id, err := s.tokens.Parse(token)
	if err != nil {
		return err
	}
	if err := s.subscribers.DisableDigest(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrSubscriberNotFound
		}
		return fmt.Errorf("disabling digest: %w", err)
	}
	s.logger.Info("digest unsubscribed", slog.String("subscriber_id", id))
	return nil
}

func matchingPostings(sub *model.DigestSubscriber, postings []*model.JobPosting, limit int) []*model.JobPosting {
	matched := make([]*model.JobPosting, 0, min(limit, len(postings)))
	for _, p := range postings {
		if len(matched) == limit {
			break
		}
		if sub.Matches(p) {
			matched = append(matched, p)
		}
	}
	return matched
}

var digestTemplate = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #1a1a1a;">
<h2>{{if .Name}}Hi {{.Name}}, here{{else}}Here{{end}} are this week's contract roles</h2>
<ul>
{{range .Postings}}<li style="margin-bottom: 12px;">
<a href="{{.URL}}"><strong>{{.Title}}</strong></a><br>
{{if .Company}}{{.Company}}{{end}}{{if .Location}} &middot; {{.Location}}{{end}}{{if .HourlyRate}} &middot; {{.HourlyRate}}{{end}}
</li>
{{end}}</ul>
<p><a href="{{.BoardURL}}">See all contract roles</a></p>
{{if .UnsubscribeURL}}<p style="font-size: 12px; color: #666;"><a href="{{.UnsubscribeURL}}">Unsubscribe from the weekly digest</a></p>{{end}}
</body>
</html>`))

type digestView struct {
	Name           string
	Postings       []*model.JobPosting
	BoardURL       string
	UnsubscribeURL string
}

func (s *DigestService) buildDigest(sub *model.DigestSubscriber, postings []*model.JobPosting) (*EmailMessage, error) {
	view := digestView{
		Name:     sub.Name,
		Postings: postings,
		BoardURL: s.appBaseURL + "/jobs",
	}

	headers := map[string]string{}
	if s.tokens != nil {
		token, err := s.tokens.Issue(sub.ID)
		if err != nil && !errors.Is(err, ErrUnsubscribeNotConfigured) {
			return nil, err
		}
		if token != "" {
			view.UnsubscribeURL = s.apiBaseURL + "/v1/digest/unsubscribe?token=" + url.QueryEscape(token)
			headers["List-Unsubscribe"] = "<" + view.UnsubscribeURL + ">"
			headers["List-Unsubscribe-Post"] = "List-Unsubscribe=One-Click"
		}
	}

	var html bytes.Buffer
	if err := digestTemplate.Execute(&html, view); err != nil {
		return nil, fmt.Errorf("rendering digest: %w", err)
	}

	var text strings.Builder
	text.WriteString("This week's contract roles:\n\n")
	for _, p := range postings {
		fmt.Fprintf(&text, "- %s (%s)\n  %s\n", p.Title, p.Company, p.URL)
	}
	if view.UnsubscribeURL != "" {
		fmt.Fprintf(&text, "\nUnsubscribe: %s\n", view.UnsubscribeURL)
	}

	subject := fmt.Sprintf("%d new contract roles this week", len(postings))
	if len(postings) == 1 {
		subject = "1 new contract role this week"
	}

	return &EmailMessage{
		To:      sub.Email,
		Subject: subject,
		HTML:    html.String(),
		Text:    text.String(),
		Headers: headers,
	}, nil
}
