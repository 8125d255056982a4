package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/adhamahmad/music-genie/internal/models"
	"github.com/adhamahmad/music-genie/internal/shared"
)

// SessionTTL is the inactivity ceiling: sessions untouched for this long
// read as absent and are lazily deleted.
const SessionTTL = 7 * 24 * time.Hour

// SessionRepository persists ephemeral browser sessions.
//
// All reads on a missing, invalidated or inactivity-expired session return
// found=false, never an error: callers treat absence as "unauthenticated".
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create stores a new session. An existing session under the same id is
// replaced (a fresh login supersedes whatever was there).
func (r *SessionRepository) Create(sessionID, userID, accessToken string, expiry *time.Time) error {
	now := time.Now()

	query := `
		INSERT INTO sessions (id, user_id, access_token, access_token_expiry, created_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			access_token = excluded.access_token,
			access_token_expiry = excluded.access_token_expiry,
			last_seen_at = excluded.last_seen_at
	`

	if _, err := r.db.Exec(query, sessionID, userID, accessToken, nullableTime(expiry), now, now); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// UpdateAccessToken replaces the session's access token and expiry.
// Last write wins; concurrent refreshes are not serialized.
func (r *SessionRepository) UpdateAccessToken(sessionID, accessToken string, expiry *time.Time) error {
	query := `
		UPDATE sessions
		SET access_token = ?, access_token_expiry = ?, last_seen_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query, accessToken, nullableTime(expiry), time.Now(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to update access token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: id %s", shared.ErrAbsentSession, sessionID)
	}

	return nil
}

// Get retrieves a live session and refreshes its activity timestamp.
func (r *SessionRepository) Get(sessionID string) (*models.Session, bool, error) {
	query := `
		SELECT user_id, access_token, access_token_expiry, created_at, last_seen_at
		FROM sessions
		WHERE id = ?
	`

	var (
		userID      string
		accessToken string
		expiry      sql.NullTime
		createdAt   time.Time
		lastSeenAt  time.Time
	)

	err := r.db.QueryRow(query, sessionID).Scan(&userID, &accessToken, &expiry, &createdAt, &lastSeenAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query session: %w", err)
	}

	now := time.Now()
	if now.Sub(lastSeenAt) > SessionTTL {
		// Past the inactivity ceiling: the store owns the lifetime, so the
		// row is gone as far as callers are concerned.
		_, _ = r.db.Exec("DELETE FROM sessions WHERE id = ?", sessionID)
		return nil, false, nil
	}

	if _, err := r.db.Exec("UPDATE sessions SET last_seen_at = ? WHERE id = ?", now, sessionID); err != nil {
		return nil, false, fmt.Errorf("failed to touch session: %w", err)
	}

	session := &models.Session{
		ID:          sessionID,
		UserID:      userID,
		AccessToken: accessToken,
		CreatedAt:   createdAt,
		LastSeenAt:  now,
	}
	if expiry.Valid {
		session.AccessTokenExpiry = &expiry.Time
	}

	return session, true, nil
}

// UserID returns the user bound to the session, or found=false.
func (r *SessionRepository) UserID(sessionID string) (string, bool, error) {
	session, found, err := r.Get(sessionID)
	if err != nil || !found {
		return "", false, err
	}
	return session.UserID, true, nil
}

// AccessToken returns the session's access token, or found=false.
func (r *SessionRepository) AccessToken(sessionID string) (string, bool, error) {
	session, found, err := r.Get(sessionID)
	if err != nil || !found {
		return "", false, err
	}
	return session.AccessToken, true, nil
}

// AccessTokenExpiry returns the session's token expiry; nil when the
// provider reported none.
func (r *SessionRepository) AccessTokenExpiry(sessionID string) (*time.Time, bool, error) {
	session, found, err := r.Get(sessionID)
	if err != nil || !found {
		return nil, false, err
	}
	return session.AccessTokenExpiry, true, nil
}

// IsExpired reports whether the session's access token expiry is set and
// strictly in the past. An absent session reports false.
func (r *SessionRepository) IsExpired(sessionID string) (bool, error) {
	session, found, err := r.Get(sessionID)
	if err != nil || !found {
		return false, err
	}
	return session.Expired(time.Now()), nil
}

// Invalidate destroys the session. Idempotent: a missing session is fine.
func (r *SessionRepository) Invalidate(sessionID string) error {
	if _, err := r.db.Exec("DELETE FROM sessions WHERE id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}
	return nil
}

// PurgeInactive deletes sessions past the inactivity ceiling and returns how
// many were removed.
func (r *SessionRepository) PurgeInactive() (int64, error) {
	result, err := r.db.Exec("DELETE FROM sessions WHERE last_seen_at < ?", time.Now().Add(-SessionTTL))
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return result.RowsAffected()
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
