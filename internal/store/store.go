package store

import (
	"context"

	"nuverse/internal/domain"
)

// Store defines persistence for contact submissions and chatbot interactions.
// Both record types are append-only; neither has an update or delete path.
type Store interface {
	// AddSubmission inserts a new row and assigns submission.ID.
	// Repeated calls with identical fields create distinct rows.
	AddSubmission(ctx context.Context, submission *domain.ContactSubmission) error
	ListSubmissions(ctx context.Context) ([]domain.ContactSubmission, error)

	// AddInteraction appends one chatbot exchange to the audit trail.
	AddInteraction(ctx context.Context, interaction *domain.ChatInteraction) error
	ListInteractions(ctx context.Context) ([]domain.ChatInteraction, error)
}
