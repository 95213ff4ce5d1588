// Package models holds the wire shapes the CLI exchanges with the auth API.
package models

import (
	"time"

	"github.com/goccy/go-json"
)

type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	EmailVerified bool      `json:"emailVerified"`
	Role          string    `json:"role"`
	ChapterID     *string   `json:"chapterId,omitempty"`
	LegacyUserID  *string   `json:"legacyUserId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// MigrateResult is the body of a successful migrate-login call. Exactly one
// of Migrated and AlreadyMigrated is set.
type MigrateResult struct {
	Migrated        bool     `json:"migrated"`
	AlreadyMigrated bool     `json:"alreadyMigrated"`
	RedirectTo      string   `json:"redirectTo"`
	Message         string   `json:"message"`
	RequiresLogin   bool     `json:"requiresLogin"`
	User            *User    `json:"user"`
	Session         *Session `json:"session"`
}

type SessionInfo struct {
	User    *User    `json:"user"`
	Session *Session `json:"session"`
}

type MigrationStatus struct {
	Email        string `json:"email"`
	Migrated     bool   `json:"migrated"`
	IsLegacyUser bool   `json:"isLegacyUser"`
}

type Validation struct {
	OK       bool     `json:"valid"`
	Warnings []string `json:"warnings"`
}

type FlagsStatus struct {
	Flags      map[string]bool `json:"flags"`
	Validation Validation      `json:"validation"`
}

type Health struct {
	Status     string     `json:"status"`
	Validation Validation `json:"validation"`
}

// Timeseries keeps each point raw; the CLI only pretty-prints them.
type Timeseries struct {
	TimeSeries []json.RawMessage `json:"timeSeries"`
	HoursBack  int               `json:"hoursBack"`
}
