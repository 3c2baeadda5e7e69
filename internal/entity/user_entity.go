package entity

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	Id           uuid.UUID
	Email        string
	PasswordHash *string // nil for OAuth-only accounts
	DisplayName  string
	PhotoURL     *string
	PhoneNumber  *string
	Provider     *string // "google" for federated sign-ups
	CreatedAt    time.Time
	LastLoginAt  time.Time
	UpdatedAt    time.Time
}

type PasswordResetToken struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	Token     string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}
