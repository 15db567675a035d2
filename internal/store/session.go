package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hrdesk/apiserver/types"
)

// SessionRepository persists server-side login sessions.
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session types.Session) (types.Session, error) {
	const query = `
		INSERT INTO sessions (id, user_id, remember, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		session.ID,
		session.UserID,
		session.Remember,
		session.ExpiresAt,
		session.CreatedAt,
	); err != nil {
		return types.Session{}, mapError(err)
	}
	return session, nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (types.Session, error) {
	const query = `
		SELECT id, user_id, remember, expires_at, created_at
		FROM sessions
		WHERE id = $1`
	var session types.Session
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.Remember,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Session{}, ErrNotFound
		}
		return types.Session{}, err
	}
	return session, nil
}

// Extend moves the expiry of a session forward.
func (r *SessionRepository) Extend(ctx context.Context, id string, expiresAt time.Time) error {
	const query = `UPDATE sessions SET expires_at = $1 WHERE id = $2`
	return execAffectingOne(ctx, r.db, query, expiresAt, id)
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM sessions WHERE id = $1`
	return execAffectingOne(ctx, r.db, query, id)
}

// DeleteByUser drops every session of a user.
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID int) error {
	const query = `DELETE FROM sessions WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

// DeleteOthers drops every session of a user except keepID.
func (r *SessionRepository) DeleteOthers(ctx context.Context, userID int, keepID string) error {
	const query = `DELETE FROM sessions WHERE user_id = $1 AND id::text <> $2`
	_, err := r.db.ExecContext(ctx, query, userID, keepID)
	return err
}

// DeleteExpired removes sessions that expired before now and reports how many were dropped.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM sessions WHERE expires_at < $1`
	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
