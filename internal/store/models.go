package store

import "time"

// GORM models used for persistence.
type SubmissionModel struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	FullName    string    `gorm:"size:200"`
	Email       string    `gorm:"size:255;not null"`
	PhoneNumber string    `gorm:"size:50"`
	Reason      string    `gorm:"type:text;not null"`
	IsSubmitted bool      `gorm:"not null"`
	SubmittedAt time.Time `gorm:"not null"`
}

func (SubmissionModel) TableName() string { return "contact_submissions" }

type InteractionModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Question  string    `gorm:"type:text;not null"`
	Answer    string    `gorm:"type:text;not null"`
	SessionID string    `gorm:"size:100"`
	Category  string    `gorm:"size:100"`
	CreatedAt time.Time `gorm:"not null;index"`
}

func (InteractionModel) TableName() string { return "chatbot_interactions" }
