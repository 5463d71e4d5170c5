package domain

import (
	"errors"
	"time"
)

// DeviceToken is a Firebase Cloud Messaging registration for one browser
// or device of a user.
type DeviceToken struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	UserID     string    `json:"user_id" gorm:"index;not null"`
	Token      string    `json:"-" gorm:"uniqueIndex;not null"`
	DeviceInfo string    `json:"device_info"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

var ErrEmptyToken = errors.New("device token is empty")
