package models

import "github.com/golang-jwt/jwt/v5"

// UserRole is the coarse role carried in access tokens.
type UserRole string

const (
	RoleNameAdmin   UserRole = "ADMIN"
	RoleNameTeacher UserRole = "TEACHER"
)

// JWTClaims represents the JWT payload for access tokens. SchoolID scopes
// every staff operation to the caller's current school.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	SchoolID int64    `json:"school_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	jwt.RegisteredClaims
}
