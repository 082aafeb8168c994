package model

import (
	"strings"
	"time"
)

// DigestInterval is how often a subscriber receives the digest email
const DigestInterval = 7 * 24 * time.Hour

// DigestSubscriber is a profile opted in to the weekly digest email
type DigestSubscriber struct {
	ID            string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email         string     `gorm:"uniqueIndex;not null;type:varchar(320)" json:"email"`
	Name          string     `gorm:"type:varchar(255)" json:"name,omitempty"`
	Keywords      string     `gorm:"type:text" json:"keywords,omitempty"` // comma separated
	DigestEnabled bool       `gorm:"default:true;index" json:"digest_enabled"`
	LastDigestAt  *time.Time `json:"last_digest_at,omitempty"`
	CreatedAt     time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (DigestSubscriber) TableName() string {
	return "digest_subscribers"
}

// KeywordList returns the subscriber's keywords lowercased and trimmed
func (s *DigestSubscriber) KeywordList() []string {
	if s.Keywords == "" {
		return nil
	}
	parts := strings.Split(s.Keywords, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if k := strings.ToLower(strings.TrimSpace(p)); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// Matches reports whether a posting matches any subscriber keyword.
// Subscribers without keywords match every posting.
func (s *DigestSubscriber) Matches(p *JobPosting) bool {
	keywords := s.KeywordList()
	if len(keywords) == 0 {
		return true
	}
	text := strings.ToLower(p.Title + " " + p.Company + " " + p.Location + " " + p.Description)
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
