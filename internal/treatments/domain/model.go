package domain

import "time"

// Treatment is a reusable remedy with an aggregate track record.
// Applications and SuccessRate are only ever changed by rating.
type Treatment struct {
	ID             string    `json:"_id"`
	UserID         string    `json:"userId"`
	Username       string    `json:"username"`
	Name           string    `json:"name"`
	Instructions   string    `json:"instructions"`
	Type           string    `json:"type"`
	ProblemsSolved string    `json:"problemsSolved"`
	Ingredients    []string  `json:"ingredients"`
	SuccessRate    int       `json:"successRate"`
	Applications   int       `json:"applications"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Treatment categories
const (
	TypeOrganic  = "organic"
	TypeChemical = "chemical"
)

func IsValidType(t string) bool {
	return t == TypeOrganic || t == TypeChemical
}

type CreateTreatmentRequest struct {
	Name           string
	Instructions   string
	Type           string
	ProblemsSolved string
	Ingredients    []string
}

// UpdateTreatmentRequest carries the owner-editable fields. Nil or empty means unchanged.
type UpdateTreatmentRequest struct {
	Instructions   *string
	Ingredients    []string
	Type           *string
	ProblemsSolved *string
}

type ListFilter struct {
	Type    string
	Problem string
	Search  string
}
