// Package models defines the rows stored in PostgreSQL and their JSON shapes.
package models

import "time"

// Role names stored in users.role. STUDENT, PARENT and MENTOR are the roles a
// visitor can self-register with; the others are assigned by administrators.
const (
	RoleStudent    = "STUDENT"
	RoleParent     = "PARENT"
	RoleMentor     = "MENTOR"
	RoleAdmin      = "ADMIN"
	RoleMember     = "MEMBER"
	RoleInstructor = "INSTRUCTOR"
	RoleOwner      = "OWNER"
)

// Interface languages.
const (
	LanguageKO = "KO"
	LanguageEN = "EN"
)

// User is an account holder. PasswordHash never leaves the server.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"firstName"`
	LastName     string    `db:"last_name" json:"lastName"`
	Role         string    `db:"role" json:"role"`
	Language     string    `db:"language" json:"language"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// IsSelfRegistrableRole reports whether role may be chosen at sign-up.
func IsSelfRegistrableRole(role string) bool {
	switch role {
	case RoleStudent, RoleParent, RoleMentor:
		return true
	}
	return false
}

// IsValidLanguage reports whether lang is a supported interface language.
func IsValidLanguage(lang string) bool {
	return lang == LanguageKO || lang == LanguageEN
}
