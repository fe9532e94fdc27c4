package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/event-slot-booking/internal/model"
)

// AdminRepo implements AdminRepository on MySQL.
type AdminRepo struct {
	db *sql.DB
}

// NewAdminRepo returns a new AdminRepo bound to the given database.
func NewAdminRepo(db *sql.DB) *AdminRepo { return &AdminRepo{db: db} }

// GetByEmail looks up an admin account by email, or returns
// ErrAdminNotFound. The login handler compares the bcrypt hash itself.
func (r *AdminRepo) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	const q = `SELECT id, email, password_hash, created_at FROM admins WHERE email = ?`
	var a model.Admin
	err := r.db.QueryRowContext(ctx, q, email).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAdminNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts an operator account and fills in its assigned id.
// Called by the startup bootstrap when the seed account is missing.
func (r *AdminRepo) Create(ctx context.Context, a *model.Admin) error {
	const q = `INSERT INTO admins (email, password_hash, created_at) VALUES (?, ?, NOW())`
	res, err := r.db.ExecContext(ctx, q, a.Email, a.PasswordHash)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}
