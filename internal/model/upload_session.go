package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// ChunkList is the set of received chunk indices, stored as a JSON array
// in a text column. Kept sorted and duplicate-free.
type ChunkList []int

func (c ChunkList) Value() (driver.Value, error) {
	if c == nil {
		c = ChunkList{}
	}
	b, err := json.Marshal([]int(c))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *ChunkList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c = ChunkList{}
		return nil
	case []byte:
		return json.Unmarshal(v, (*[]int)(c))
	case string:
		return json.Unmarshal([]byte(v), (*[]int)(c))
	default:
		return fmt.Errorf("cannot scan %T into ChunkList", src)
	}
}

func (c ChunkList) Contains(index int) bool {
	for _, i := range c {
		if i == index {
			return true
		}
	}
	return false
}

// Add returns the list with index included, sorted, without duplicates.
func (c ChunkList) Add(index int) ChunkList {
	if c.Contains(index) {
		return c
	}
	out := append(ChunkList{}, c...)
	out = append(out, index)
	sort.Ints(out)
	return out
}

// Clamp drops indices outside [0, totalChunks). Used when a resumed
// session recomputes its chunk count.
func (c ChunkList) Clamp(totalChunks int) ChunkList {
	out := ChunkList{}
	for _, i := range c {
		if i >= 0 && i < totalChunks && !out.Contains(i) {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

// Missing returns the ascending list of indices in [0, totalChunks)
// not yet received.
func (c ChunkList) Missing(totalChunks int) []int {
	missing := []int{}
	for i := 0; i < totalChunks; i++ {
		if !c.Contains(i) {
			missing = append(missing, i)
		}
	}
	return missing
}

// UploadSession is the durable record of one resumable upload attempt.
// The registry row is authoritative for which chunks exist logically;
// the chunk store holds the bytes.
type UploadSession struct {
	ID             string    `db:"id"`
	UserID         *string   `db:"user_id"` // nil for public sessions
	IsPublic       bool      `db:"is_public"`
	Filename       string    `db:"filename"`
	ContentType    string    `db:"content_type"`
	TotalSize      int64     `db:"total_size"`
	ChunkSize      int64     `db:"chunk_size"`
	TotalChunks    int       `db:"total_chunks"`
	ReceivedChunks ChunkList `db:"received_chunks"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (s *UploadSession) Scope() Scope {
	if s.IsPublic || s.UserID == nil {
		return PublicScope()
	}
	return UserScope(*s.UserID)
}

// OwnedBy reports whether the caller's scope may touch this session.
// Public sessions only accept anonymous callers, user sessions only
// accept the owning user.
func (s *UploadSession) OwnedBy(scope Scope) bool {
	return s.Scope() == scope
}

// Matches reports whether the session can be resumed for a start request
// with the given parameters. Chunk size must not change across resumes.
func (s *UploadSession) Matches(scope Scope, filename string, totalSize, chunkSize int64) bool {
	return s.OwnedBy(scope) &&
		s.Filename == filename &&
		s.TotalSize == totalSize &&
		s.ChunkSize == chunkSize
}

// TotalChunksFor computes ceil(totalSize/chunkSize), minimum 1.
func TotalChunksFor(totalSize, chunkSize int64) int {
	if totalSize <= 0 || chunkSize <= 0 {
		return 1
	}
	n := (totalSize + chunkSize - 1) / chunkSize
	if n < 1 {
		n = 1
	}
	return int(n)
}
