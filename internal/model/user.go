package model

import (
	"time"
)

type User struct {
	ID              string     `db:"id"`
	Email           string     `db:"email"`
	PasswordHash    *string    `db:"password_hash"` // Nullable until email verification applies it
	PinHash         *string    `db:"pin_hash"`      // Optional short secret, also bcrypt-hashed
	EmailVerifiedAt *time.Time `db:"email_verified_at"`
	CreatedAt       time.Time  `db:"created_at"`
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

func (u *User) HasPIN() bool {
	return u.PinHash != nil && *u.PinHash != ""
}

func (u *User) EmailVerified() bool {
	return u.EmailVerifiedAt != nil
}
