package domain

import "time"

// Diagnosis statuses
const (
	StatusOngoing  = "ongoing"
	StatusResolved = "resolved"
	StatusTesting  = "testing"
)

// Application outcomes. Only Worked and DidNotWork are conclusive.
const (
	ResultTesting    = "testing"
	ResultWorked     = "worked"
	ResultDidNotWork = "didn't work"
)

// Diagnosis is a reported plant-health problem. Treatments holds the
// applications logged against it, oldest first.
type Diagnosis struct {
	ID          string        `json:"_id"`
	UserID      string        `json:"userId"`
	Username    string        `json:"username"`
	PlantName   string        `json:"plantName"`
	Symptoms    string        `json:"symptoms"`
	PhotoURL    string        `json:"photoUrl"`
	Description string        `json:"description"`
	Status      string        `json:"status"`
	Treatments  []Application `json:"treatments"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// Application records one attempt of a treatment against a diagnosis.
// TreatmentID is not checked and may reference a deleted treatment.
type Application struct {
	TreatmentID string    `json:"treatmentId"`
	AppliedBy   string    `json:"appliedBy"`
	AppliedAt   time.Time `json:"appliedAt"`
	Result      string    `json:"result"`
}

func IsValidStatus(s string) bool {
	switch s {
	case StatusOngoing, StatusResolved, StatusTesting:
		return true
	}
	return false
}

func IsValidResult(r string) bool {
	return r == ResultTesting || IsConclusive(r)
}

// IsConclusive reports whether r should be folded into the treatment's success rate.
func IsConclusive(r string) bool {
	return r == ResultWorked || r == ResultDidNotWork
}

type CreateDiagnosisRequest struct {
	PlantName   string
	Symptoms    string
	PhotoURL    string
	Description string
}

// UpdateDiagnosisRequest mirrors the owner-editable fields. Empty Symptoms or
// Status are ignored; Description and PhotoURL apply whenever non-nil.
type UpdateDiagnosisRequest struct {
	Symptoms    *string
	Status      *string
	Description *string
	PhotoURL    *string
}

type ListFilter struct {
	Search       string
	Status       string
	PlantSpecies string
}

// Event is published on a diagnosis' change channel.
type Event struct {
	Type      string     `json:"type"`
	Diagnosis *Diagnosis `json:"diagnosis,omitempty"`
	ID        string     `json:"diagnosisId"`
}

const (
	EventUpdated = "update"
	EventDeleted = "deleted"
)
