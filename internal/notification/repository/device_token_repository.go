package repository

import (
	"context"
	"time"

	"onlyjobs-backend/internal/notification/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DeviceTokenRepository interface {
	Save(ctx context.Context, userID, token, deviceInfo string) error
	ListByUser(ctx context.Context, userID string) ([]domain.DeviceToken, error)
	// Delete removes token. A non-empty userID restricts it to that user.
	Delete(ctx context.Context, userID, token string) error
	DeleteTokens(ctx context.Context, tokens []string) error
}

type deviceTokenRepository struct {
	db *gorm.DB
}

func NewDeviceTokenRepository(db *gorm.DB) DeviceTokenRepository {
	return &deviceTokenRepository{
		db: db,
	}
}

// Save registers token for userID. A token seen before moves to the new user.
func (r *deviceTokenRepository) Save(ctx context.Context, userID, token, deviceInfo string) error {
	now := time.Now()
	row := &domain.DeviceToken{
		ID:         uuid.New().String(),
		UserID:     userID,
		Token:      token,
		DeviceInfo: deviceInfo,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// Atomic upsert: INSERT ... ON CONFLICT (token) DO UPDATE
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "device_info", "updated_at"}),
	}).Create(row).Error
}

func (r *deviceTokenRepository) ListByUser(ctx context.Context, userID string) ([]domain.DeviceToken, error) {
	var tokens []domain.DeviceToken
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *deviceTokenRepository) Delete(ctx context.Context, userID, token string) error {
	q := r.db.WithContext(ctx).Where("token = ?", token)
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	return q.Delete(&domain.DeviceToken{}).Error
}

func (r *deviceTokenRepository) DeleteTokens(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("token IN ?", tokens).Delete(&domain.DeviceToken{}).Error
}
