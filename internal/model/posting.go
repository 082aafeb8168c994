package model

import "time"

// PostingStatus represents the lifecycle state of a job posting
type PostingStatus string

const (
	PostingStatusPendingReview PostingStatus = "pending_review"
	PostingStatusActive        PostingStatus = "active"
	PostingStatusRejected      PostingStatus = "rejected"
	PostingStatusExpired       PostingStatus = "expired"
)

// Confidence is how sure the verifier is about its contract score
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// Recommendation is the verifier's verdict for an imported posting
type Recommendation string

const (
	RecommendationAccept       Recommendation = "ACCEPT"
	RecommendationReject       Recommendation = "REJECT"
	RecommendationManualReview Recommendation = "MANUAL_REVIEW"
)

// VerificationMethod records which evidence produced the final score
type VerificationMethod string

const (
	VerificationScrapingOnly    VerificationMethod = "SCRAPING_ONLY"
	VerificationPageVerified    VerificationMethod = "PAGE_VERIFIED"
	VerificationExplicitJobType VerificationMethod = "EXPLICIT_JOB_TYPE_REJECT"
)

// JobPosting is a contract role listed on the board
type JobPosting struct {
	ID                 string             `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title              string             `gorm:"not null;type:varchar(500)" json:"title"`
	Company            string             `gorm:"type:varchar(255)" json:"company"`
	Location           string             `gorm:"type:varchar(255)" json:"location"`
	Description        string             `gorm:"type:text" json:"description"`
	JobType            string             `gorm:"type:varchar(50)" json:"job_type"`
	URL                string             `gorm:"uniqueIndex;not null;type:varchar(1000)" json:"url"`
	HourlyRate         string             `gorm:"type:varchar(100)" json:"hourly_rate,omitempty"`
	Duration           string             `gorm:"type:varchar(100)" json:"duration,omitempty"`
	Status             PostingStatus      `gorm:"not null;type:varchar(50);default:'pending_review';index" json:"status"`
	ContractScore      float64            `gorm:"default:0" json:"contract_score"`
	Confidence         Confidence         `gorm:"type:varchar(10)" json:"confidence,omitempty"`
	Recommendation     Recommendation     `gorm:"type:varchar(20);index" json:"recommendation,omitempty"`
	VerificationMethod VerificationMethod `gorm:"type:varchar(50)" json:"verification_method,omitempty"`
	ContractIndicators string             `gorm:"type:text" json:"contract_indicators,omitempty"`  // comma separated
	FullTimeIndicators string             `gorm:"type:text" json:"full_time_indicators,omitempty"` // comma separated
	VerifiedAt         *time.Time         `json:"verified_at,omitempty"`
	PostedAt           *time.Time         `json:"posted_at,omitempty"`
	CreatedAt          time.Time          `gorm:"not null;index" json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

func (JobPosting) TableName() string {
	return "job_postings"
}

// Verification is the verifier's output for one posting
type Verification struct {
	PostingID          string             `json:"posting_id"`
	InitialScore       float64            `json:"initial_score"`
	PageScore          float64            `json:"page_score"`
	FinalScore         float64            `json:"final_score"`
	Confidence         Confidence         `json:"confidence"`
	Recommendation     Recommendation     `json:"recommendation"`
	Method             VerificationMethod `json:"verification_method"`
	JobTypeFound       string             `json:"job_type_found,omitempty"`
	HourlyRate         string             `json:"hourly_rate,omitempty"`
	Duration           string             `json:"duration,omitempty"`
	ContractIndicators []string           `json:"contract_indicators"`
	FullTimeIndicators []string           `json:"full_time_indicators"`
	Error              string             `json:"error,omitempty"`
}

// IsContractJob reports whether the verdict admits the posting to the board
func (v *Verification) IsContractJob() bool {
	return v.Recommendation == RecommendationAccept
}
