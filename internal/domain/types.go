package domain

import "time"

// ContactSubmission is a persisted contact-form submission. Records are
// written once and never mutated; the store assigns ID at insert time.
type ContactSubmission struct {
	ID          int64     `json:"id"`
	FullName    string    `json:"fullName"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phoneNumber"`
	Reason      string    `json:"reason"`
	IsSubmitted bool      `json:"isSubmitted"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// ChatInteraction is the audit record of one proxied chatbot exchange.
type ChatInteraction struct {
	ID        int64     `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	SessionID string    `json:"sessionId,omitempty"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
