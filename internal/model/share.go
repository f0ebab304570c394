package model

import (
	"time"
)

// Share is a slot's published artifact: one row per scope key, holding a
// file reference or a text snippet, never both.
type Share struct {
	ScopeKey  string    `db:"scope_key"` // "public" or "user:<id>"
	UserID    *string   `db:"user_id"`   // nil for the public slot
	FilePath  *string   `db:"file_path"` // storage path of the blob
	FileName  *string   `db:"file_name"` // original filename for download
	Text      *string   `db:"text"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (s *Share) HasFile() bool {
	return s.FilePath != nil && *s.FilePath != ""
}

func (s *Share) HasText() bool {
	return s.Text != nil && *s.Text != ""
}

// IsStale reports whether the artifact has outlived its TTL.
// A non-positive TTL disables expiry.
func (s *Share) IsStale(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return false
	}
	return s.UpdatedAt.Before(now.Add(-ttl))
}
