package models

import "time"

// User is a principal of the modern auth store.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	EmailVerified bool      `json:"emailVerified"`
	Role          Role      `json:"role"`
	ChapterID     *string   `json:"chapterId,omitempty"`
	LegacyUserID  *string   `json:"legacyUserId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Account is a credential record bound to a User, one per provider.
type Account struct {
	ID         string
	UserID     string
	ProviderID string
	Password   string
	CreatedAt  time.Time
}
