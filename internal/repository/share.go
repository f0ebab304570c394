package repository

import (
	"database/sql"
	"errors"

	"github.com/dshare/dshare/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrShareNotFound = errors.New("share not found")
)

type ShareRepository interface {
	ByScopeKey(key string) (*model.Share, error)
	Create(share *model.Share) error
	Update(share *model.Share) error
}

type shareRepository struct {
	db *sqlx.DB
}

func NewShareRepository(db *sqlx.DB) ShareRepository {
	return &shareRepository{db: db}
}

func (r *shareRepository) ByScopeKey(key string) (*model.Share, error) {
	share := &model.Share{}
	query := `SELECT * FROM shares WHERE scope_key = $1`

	err := r.db.Get(share, query, key)
	if err == sql.ErrNoRows {
		return nil, ErrShareNotFound
	}

	return share, err
}

func (r *shareRepository) Create(share *model.Share) error {
	query := `INSERT INTO shares (scope_key, user_id, file_path, file_name, text, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(query,
		share.ScopeKey,
		share.UserID,
		share.FilePath,
		share.FileName,
		share.Text,
		share.UpdatedAt,
	)
	return err
}

func (r *shareRepository) Update(share *model.Share) error {
	query := `UPDATE shares SET file_path = $1, file_name = $2, text = $3, updated_at = $4 WHERE scope_key = $5`

	_, err := r.db.Exec(query,
		share.FilePath,
		share.FileName,
		share.Text,
		share.UpdatedAt,
		share.ScopeKey,
	)
	return err
}
