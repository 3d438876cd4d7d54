package reports

import "time"

// Status is the lifecycle state of a scouting report.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// Terminal reports whether no further transition may leave the status.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusSubmitted || s.Terminal()
}

// Recommendation is the scout's verdict on the player.
type Recommendation string

const (
	RecommendSignImmediately Recommendation = "sign_immediately"
	RecommendHighPriority    Recommendation = "high_priority"
	RecommendMonitor         Recommendation = "monitor"
	RecommendReject          Recommendation = "reject"
)

// Recommendations lists every recommendation value.
func Recommendations() []Recommendation {
	return []Recommendation{RecommendSignImmediately, RecommendHighPriority, RecommendMonitor, RecommendReject}
}

// Decision is a reviewer's verdict on a submitted report.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Valid reports whether d is approve or reject.
func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// AutoApproveNote is written to review_notes when a report is approved at creation.
const AutoApproveNote = "[system] approved on submission by creator"

// Report is a scouting report on one player, optionally tied to a match.
type Report struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	ScoutID  int64  `json:"scout_id"`
	PlayerID int64  `json:"player_id"`
	MatchID  *int64 `json:"match_id,omitempty"`

	Technical        float64 `json:"technical"`
	Tactical         float64 `json:"tactical"`
	Physical         float64 `json:"physical"`
	Mental           float64 `json:"mental"`
	OverallRating    float64 `json:"overall_rating"`
	OverallPotential float64 `json:"overall_potential"`

	Strengths       string `json:"strengths"`
	Weaknesses      string `json:"weaknesses"`
	Comparison      string `json:"comparison,omitempty"`
	RiskAssessment  string `json:"risk_assessment,omitempty"`
	AdditionalNotes string `json:"additional_notes,omitempty"`

	Recommendation Recommendation `json:"recommendation"`

	Status         Status     `json:"status"`
	ReviewedBy     *int64     `json:"reviewed_by,omitempty"`
	ReviewNotes    *string    `json:"review_notes,omitempty"`
	SystemApproved bool       `json:"system_approved"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`

	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateInput is the payload for a new report.
type CreateInput struct {
	ScoutID  int64  `json:"scout_id" validate:"required,gt=0"`
	PlayerID int64  `json:"player_id" validate:"required,gt=0"`
	MatchID  *int64 `json:"match_id,omitempty" validate:"omitempty,gt=0"`

	Technical        float64 `json:"technical" validate:"score"`
	Tactical         float64 `json:"tactical" validate:"score"`
	Physical         float64 `json:"physical" validate:"score"`
	Mental           float64 `json:"mental" validate:"score"`
	OverallPotential float64 `json:"overall_potential" validate:"score"`

	Strengths       string `json:"strengths" validate:"required,max=4000"`
	Weaknesses      string `json:"weaknesses" validate:"required,max=4000"`
	Comparison      string `json:"comparison,omitempty" validate:"max=4000"`
	RiskAssessment  string `json:"risk_assessment,omitempty" validate:"max=4000"`
	AdditionalNotes string `json:"additional_notes,omitempty" validate:"max=4000"`

	Recommendation Recommendation `json:"recommendation" validate:"required,oneof=sign_immediately high_priority monitor reject"`

	// AutoApprove asks for the report to be approved in the same unit of work.
	// It is honoured only when the creator also holds approve on reports.
	AutoApprove bool `json:"auto_approve"`
}

// ReviewUpdate carries the columns written by a review transition.
type ReviewUpdate struct {
	Status     Status
	ReviewedBy int64
	Notes      *string
	ReviewedAt time.Time
	ApprovedAt *time.Time
}

// ListFilter narrows the review queue.
type ListFilter struct {
	Status  *Status
	ScoutID int64
	Limit   int
	Offset  int
}

const (
	defaultListLimit = 25
	maxListLimit     = 100
	maxReviewNotes   = 2000
)
