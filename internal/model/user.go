// Package model defines the data structures shared by every layer of the
// application. Struct tags carry both the JSON shape of API responses and the
// GORM column mapping, so a model is the single source of truth for a table.
package model

import "time"

// Role labels what a user account is allowed to do. Checks happen per-route
// in the handlers; the role also rides inside the JWT so middleware can
// reject obviously wrong requests before touching the database.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleResearcher  Role = "researcher"
	RoleAdmin       Role = "admin"
	RoleGuest       Role = "guest"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleParticipant, RoleResearcher, RoleAdmin, RoleGuest:
		return true
	}
	return false
}

// User is a registered account. Guests are real rows too: they get a
// generated email and no password, which keeps every foreign key in the
// schema pointing at the same table.
//
// PasswordHash is a bcrypt hash and never serializes to JSON. The two token
// fields hold opaque UUIDs for email verification and password reset; a reset
// token expires after ResetTokenExpiresAt.
type User struct {
	ID                  string     `json:"id"                  gorm:"primaryKey;size:20"`
	Name                string     `json:"name"                gorm:"size:200;not null"`
	Email               string     `json:"email"               gorm:"size:320;uniqueIndex;not null"`
	PasswordHash        string     `json:"-"                   gorm:"size:100"`
	Role                Role       `json:"role"                gorm:"size:20;not null;default:'participant'"`
	AvatarURL           string     `json:"avatarUrl"           gorm:"size:500"`
	GitHubID            int64      `json:"-"                   gorm:"index"`
	EmailVerified       bool       `json:"emailVerified"       gorm:"not null;default:false"`
	VerificationToken   string     `json:"-"                   gorm:"size:40"`
	ResetToken          string     `json:"-"                   gorm:"size:40"`
	ResetTokenExpiresAt *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}
