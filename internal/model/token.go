package model

import (
	"time"
)

// Token is a single-use verification token. Registration parks the
// requested credential hashes on the token row; they are applied to the
// user only when the email link is consumed.
type Token struct {
	ID                  string     `db:"id"`
	UserID              string     `db:"user_id"`
	Type                string     `db:"type"`
	Token               string     `db:"token"`
	PendingPasswordHash *string    `db:"pending_password_hash"`
	PendingPinHash      *string    `db:"pending_pin_hash"`
	ExpiresAt           time.Time  `db:"expires_at"`
	UsedAt              *time.Time `db:"used_at"`
	CreatedAt           time.Time  `db:"created_at"`
}

const (
	TokenTypeEmailVerify = "email_verify"
)

func (t *Token) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

func (t *Token) IsUsed() bool {
	return t.UsedAt != nil
}

func (t *Token) IsValid() bool {
	return !t.IsExpired() && !t.IsUsed()
}
