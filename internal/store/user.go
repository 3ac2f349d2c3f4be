package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/veristat/apiserver/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	const query = `
		SELECT id, username, password_hash, is_active, is_admin, created_at
		FROM users
		WHERE username = $1`
	var user types.User
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.IsActive,
		&user.IsAdmin,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	user.CreatedAt = time.Now()

	const query = `
		INSERT INTO users (username, password_hash, is_active, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Username,
		user.PasswordHash,
		user.IsActive,
		user.IsAdmin,
		user.CreatedAt,
	).Scan(&user.ID); err != nil {
		if isUniqueViolation(err) {
			return types.User{}, ErrDuplicate
		}
		return types.User{}, err
	}
	return user, nil
}

// SetActive flips the account's active flag. Only the ops CLI calls it;
// there is no API path.
func (r *UserRepository) SetActive(ctx context.Context, username string, active bool) error {
	const query = `UPDATE users SET is_active = $1 WHERE username = $2`
	return r.updateFlag(ctx, query, active, username)
}

// SetAdmin flips the account's admin flag. Promotion happens only through
// the ops CLI; registration never grants the role.
func (r *UserRepository) SetAdmin(ctx context.Context, username string, admin bool) error {
	const query = `UPDATE users SET is_admin = $1 WHERE username = $2`
	return r.updateFlag(ctx, query, admin, username)
}

func (r *UserRepository) updateFlag(ctx context.Context, query string, value bool, username string) error {
	result, err := r.db.ExecContext(ctx, query, value, username)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
