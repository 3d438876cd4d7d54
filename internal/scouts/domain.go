package scouts

import "time"

// Summary is a scout's performance overview.
type Summary struct {
	ScoutID          int64          `json:"scout_id"`
	Name             string         `json:"name"`
	Active           bool           `json:"active"`
	ReportsSubmitted int            `json:"reports_submitted"`
	ReportsApproved  int            `json:"reports_approved"`
	ApprovalRate     float64        `json:"approval_rate"`
	AverageRating    float64        `json:"average_rating"`
	Recommendations  map[string]int `json:"recommendations"`
	GeneratedAt      time.Time      `json:"generated_at"`
}

// Scout is the persisted scout row relevant to summaries.
type Scout struct {
	ID               int64
	Name             string
	Active           bool
	ReportsSubmitted int
	ReportsApproved  int
}
