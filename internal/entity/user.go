package entity

import "time"

// User is a platform account. Local email/password credentials only; the
// password hash never leaves the process through JSON.
type User struct {
	ID            string     `db:"id" json:"id"`
	Email         string     `db:"email" json:"email"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	DisplayName   string     `db:"display_name" json:"display_name"`
	EmailVerified bool       `db:"email_verified" json:"email_verified"`
	Enabled       bool       `db:"enabled" json:"enabled"`
	LastLoginAt   *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Users is the admin-facing descriptor for User. The password hash and
// login timestamp are read-only through the admin API.
var Users = MustDescribe(&User{}, "users", "users", "password_hash", "last_login_at")
