package entity

import (
	"time"

	"github.com/google/uuid"
)

// ReimbursementPlan groups the invoices submitted together for one
// reimbursement request.
type ReimbursementPlan struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
