package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/veristat/apiserver/types"
)

// SessionRepository handles persistence for the token ledger.
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Record appends a non-revoked ledger row for the issued token. Token
// content is not required to be unique at this layer.
func (r *SessionRepository) Record(ctx context.Context, username, token string) (types.Session, error) {
	session := types.Session{
		Username:  username,
		Token:     token,
		CreatedAt: time.Now(),
	}

	const query = `
		INSERT INTO user_sessions (username, token, created_at, revoked)
		VALUES ($1, $2, $3, FALSE)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		session.Username,
		session.Token,
		session.CreatedAt,
	).Scan(&session.ID); err != nil {
		return types.Session{}, err
	}
	return session, nil
}

// Revoke marks every ledger row matching the exact token string as revoked.
// Revoking a token with no ledger row is a no-op, which makes logout
// idempotent.
func (r *SessionRepository) Revoke(ctx context.Context, token string) error {
	const query = `UPDATE user_sessions SET revoked = TRUE WHERE token = $1`
	_, err := r.db.ExecContext(ctx, query, token)
	return err
}

// IsRevoked reports whether a revoked ledger row exists for the token.
// A token with no ledger row at all passes as not revoked; tokens issued
// before the ledger existed must keep working until they expire.
func (r *SessionRepository) IsRevoked(ctx context.Context, token string) (bool, error) {
	const query = `SELECT revoked FROM user_sessions WHERE token = $1 LIMIT 1`
	var revoked bool
	err := r.db.QueryRowContext(ctx, query, token).Scan(&revoked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return revoked, nil
}

// ListByUsername returns the user's ledger rows, newest first.
func (r *SessionRepository) ListByUsername(ctx context.Context, username string) ([]types.Session, error) {
	const query = `
		SELECT id, username, token, created_at, revoked
		FROM user_sessions
		WHERE username = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []types.Session
	for rows.Next() {
		var session types.Session
		if err := rows.Scan(
			&session.ID,
			&session.Username,
			&session.Token,
			&session.CreatedAt,
			&session.Revoked,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}
