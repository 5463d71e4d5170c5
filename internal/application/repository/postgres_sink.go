package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"onlyjobs-backend/internal/application/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JobApplicationRow is the Postgres shape of an analytics record.
type JobApplicationRow struct {
	UserID          string    `gorm:"primaryKey;size:128"`
	EmailID         string    `gorm:"primaryKey;size:256"`
	Company         string    `gorm:"size:512"`
	JobTitle        string    `gorm:"size:512"`
	Location        string    `gorm:"size:512"`
	Status          string    `gorm:"size:32;index"`
	InsertedAt      time.Time `gorm:"not null"`
	EmailDate       time.Time
	RawEmailContent string    `gorm:"type:text"`
}

func (JobApplicationRow) TableName() string {
	return "job_applications"
}

type postgresSink struct {
	db *gorm.DB

	mu       sync.Mutex
	migrated bool
}

// NewPostgresSink stores analytics records in Postgres, keyed on
// (user_id, email_id) so a rewrite replaces the earlier row.
func NewPostgresSink(db *gorm.DB) AnalyticsSink {
	return &postgresSink{db: db}
}

func (s *postgresSink) migrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.migrated {
		return nil
	}
	if err := s.db.AutoMigrate(&JobApplicationRow{}); err != nil {
		return fmt.Errorf("failed to migrate job_applications: %w", err)
	}
	s.migrated = true
	return nil
}

func (s *postgresSink) Insert(ctx context.Context, app *domain.JobApplication) error {
	if err := s.migrate(); err != nil {
		return err
	}

	row := &JobApplicationRow{
		UserID:          app.UserID,
		EmailID:         app.MessageID,
		Company:         app.Company,
		JobTitle:        app.JobTitle,
		Location:        app.Location,
		Status:          string(app.Status),
		InsertedAt:      app.InsertedAt.UTC(),
		EmailDate:       emailTimestamp(app),
		RawEmailContent: app.RawContent,
	}

	// Atomic upsert: INSERT ... ON CONFLICT (user_id, email_id) DO UPDATE
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "email_id"}},
		UpdateAll: true,
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert job application: %w", err)
	}
	return nil
}
