package store

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"nuverse/internal/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&SubmissionModel{}, &InteractionModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// AddSubmission inserts the row and copies the generated ID back.
func (s *GormStore) AddSubmission(ctx context.Context, submission *domain.ContactSubmission) error {
	model := submissionToModel(*submission)
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	submission.ID = model.ID
	return nil
}

// ListSubmissions returns submissions in insertion order.
func (s *GormStore) ListSubmissions(ctx context.Context) ([]domain.ContactSubmission, error) {
	var models []SubmissionModel
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.ContactSubmission, 0, len(models))
	for _, m := range models {
		res = append(res, submissionFromModel(m))
	}
	return res, nil
}

// AddInteraction appends a chatbot exchange.
func (s *GormStore) AddInteraction(ctx context.Context, interaction *domain.ChatInteraction) error {
	model := interactionToModel(*interaction)
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}
	interaction.ID = model.ID
	return nil
}

// ListInteractions returns interactions in insertion order.
func (s *GormStore) ListInteractions(ctx context.Context) ([]domain.ChatInteraction, error) {
	var models []InteractionModel
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.ChatInteraction, 0, len(models))
	for _, m := range models {
		res = append(res, interactionFromModel(m))
	}
	return res, nil
}

func submissionToModel(s domain.ContactSubmission) SubmissionModel {
	return SubmissionModel{
		ID:          s.ID,
		FullName:    s.FullName,
		Email:       s.Email,
		PhoneNumber: s.PhoneNumber,
		Reason:      s.Reason,
		IsSubmitted: s.IsSubmitted,
		SubmittedAt: s.SubmittedAt,
	}
}

func submissionFromModel(m SubmissionModel) domain.ContactSubmission {
	return domain.ContactSubmission{
		ID:          m.ID,
		FullName:    m.FullName,
		Email:       m.Email,
		PhoneNumber: m.PhoneNumber,
		Reason:      m.Reason,
		IsSubmitted: m.IsSubmitted,
		SubmittedAt: m.SubmittedAt,
	}
}

func interactionToModel(i domain.ChatInteraction) InteractionModel {
	return InteractionModel{
		ID:        i.ID,
		Question:  i.Question,
		Answer:    i.Answer,
		SessionID: i.SessionID,
		Category:  i.Category,
		CreatedAt: i.CreatedAt,
	}
}

func interactionFromModel(m InteractionModel) domain.ChatInteraction {
	return domain.ChatInteraction{
		ID:        m.ID,
		Question:  m.Question,
		Answer:    m.Answer,
		SessionID: m.SessionID,
		Category:  m.Category,
		CreatedAt: m.CreatedAt,
	}
}
