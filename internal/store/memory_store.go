package store

import (
	"context"
	"sync"

	"nuverse/internal/domain"
)

// MemoryStore keeps records in-process for local development and tests.
type MemoryStore struct {
	mu           sync.RWMutex
	nextID       int64
	submissions  []domain.ContactSubmission
	interactions []domain.ChatInteraction
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

// AddSubmission appends the record and assigns a sequential ID.
func (m *MemoryStore) AddSubmission(_ context.Context, submission *domain.ContactSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	submission.ID = m.nextID
	m.nextID++
	m.submissions = append(m.submissions, *submission)
	return nil
}

// ListSubmissions returns submissions in insertion order.
func (m *MemoryStore) ListSubmissions(_ context.Context) ([]domain.ContactSubmission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.ContactSubmission, len(m.submissions))
	copy(res, m.submissions)
	return res, nil
}

// AddInteraction appends the record and assigns a sequential ID.
func (m *MemoryStore) AddInteraction(_ context.Context, interaction *domain.ChatInteraction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	interaction.ID = m.nextID
	m.nextID++
	m.interactions = append(m.interactions, *interaction)
	return nil
}

// ListInteractions returns interactions in insertion order.
func (m *MemoryStore) ListInteractions(_ context.Context) ([]domain.ChatInteraction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.ChatInteraction, len(m.interactions))
	copy(res, m.interactions)
	return res, nil
}

var _ Store = (*MemoryStore)(nil)
var _ Store = (*GormStore)(nil)
