package models

import "time"

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// Profile carries the applicant fields recorded at issuance time.
// These are the source of truth for every later identity check.
type Profile struct {
	FullName   string    `json:"full_name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	NationalID string    `json:"national_id"`
	DateOfBirth time.Time `json:"date_of_birth"`
}

type CreditRequest struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	Profile       Profile       `json:"profile"`
	MonthlyIncome int64         `json:"monthly_income"`
	Status        RequestStatus `json:"status"`
	DecisionNotes *string       `json:"decision_notes,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
