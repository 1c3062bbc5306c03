package model

// Accounts live in the platform's identity service; this backend only sees
// the role carried in the JWT.
type UserRole string

const (
	Student UserRole = "student"
	Author  UserRole = "author"
	Admin   UserRole = "admin"
)
