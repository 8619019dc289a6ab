package store

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"smartats/internal/types"
)

// resumeExcerptLimit bounds how much extracted resume text is persisted per
// review. Full resumes can be large and the excerpt is only for context.
const resumeExcerptLimit = 2000

// Review is one persisted analysis
type Review struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	JobDescription  string    `gorm:"type:text;not null" json:"job_description"`
	ResumeExcerpt   string    `gorm:"type:text" json:"resume_excerpt"`
	JDMatch         string    `gorm:"type:varchar(16)" json:"jd_match"`
	MatchPercent    float64   `gorm:"type:decimal(5,2)" json:"match_percent"`
	MissingKeywords string    `gorm:"type:text" json:"missing_keywords"`
	ProfileSummary  string    `gorm:"type:text" json:"profile_summary"`
	Fallback        bool      `gorm:"not null;default:false" json:"fallback"`
	Attempts        int       `gorm:"not null;default:1" json:"attempts"`
	CreatedAt       time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Review) TableName() string {
	return "reviews"
}

// NewReview builds a persistable review from a pipeline outcome
func NewReview(input types.AnalysisInput, outcome types.Outcome) *Review {
	return &Review{
		JobDescription:  input.JobDescription,
		ResumeExcerpt:   excerpt(input.ResumeText, resumeExcerptLimit),
		JDMatch:         outcome.Result.JDMatch,
		MatchPercent:    parseMatchPercent(outcome.Result.JDMatch),
		MissingKeywords: strings.Join(outcome.Result.MissingKeywords, ","),
		ProfileSummary:  outcome.Result.ProfileSummary,
		Fallback:        outcome.Fallback(),
		Attempts:        outcome.Attempts,
	}
}

// Keywords returns the stored comma-joined keywords as a slice
func (r *Review) Keywords() []string {
	if r.MissingKeywords == "" {
		return []string{}
	}
	return strings.Split(r.MissingKeywords, ",")
}

func excerpt(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}

// parseMatchPercent extracts the numeric value from "NN%" forms; the "N/A"
// sentinel and anything else non-numeric yield 0.
func parseMatchPercent(match string) float64 {
	s := strings.TrimSuffix(strings.TrimSpace(match), "%")
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return value
}
