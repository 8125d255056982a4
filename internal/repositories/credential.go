package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/adhamahmad/music-genie/internal/models"
	"github.com/adhamahmad/music-genie/internal/shared"
)

// CredentialRepository persists the per-(user, provider) credential link.
//
// At most one row exists per (user_id, provider_id); Upsert keeps logins
// idempotent. The refresh_token column only ever holds vault ciphertext.
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository creates a new [CredentialRepository] with the given database connection
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Upsert creates the credential link if absent, otherwise refreshes the
// provider-side user id. Safe to call on every login.
func (r *CredentialRepository) Upsert(userID, providerID, providerUserID string) error {
	now := time.Now()

	query := `
		INSERT INTO user_providers (user_id, provider_id, provider_user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, provider_id)
		DO UPDATE SET provider_user_id = excluded.provider_user_id, updated_at = excluded.updated_at
	`

	if _, err := r.db.Exec(query, userID, providerID, providerUserID, now, now); err != nil {
		return fmt.Errorf("failed to upsert credential: %w", err)
	}

	return nil
}

// Find retrieves the credential for (userID, providerID). Returns found=false
// when the user never linked this provider.
func (r *CredentialRepository) Find(userID, providerID string) (*models.Credential, bool, error) {
	query := `
		SELECT provider_user_id, refresh_token, created_at, updated_at
		FROM user_providers
		WHERE user_id = ? AND provider_id = ?
	`

	var (
		providerUserID string
		refreshToken   sql.NullString
		createdAt      time.Time
		updatedAt      time.Time
	)

	err := r.db.QueryRow(query, userID, providerID).Scan(&providerUserID, &refreshToken, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query credential: %w", err)
	}

	credential := &models.Credential{
		UserID:         userID,
		ProviderID:     providerID,
		ProviderUserID: providerUserID,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}
	if refreshToken.Valid {
		credential.RefreshToken = refreshToken.String
	}

	return credential, true, nil
}

// SetRefreshToken stores the encrypted refresh token for an existing link.
func (r *CredentialRepository) SetRefreshToken(userID, providerID, ciphertext string) error {
	query := `
		UPDATE user_providers
		SET refresh_token = ?, updated_at = ?
		WHERE user_id = ? AND provider_id = ?
	`

	result, err := r.db.Exec(query, ciphertext, time.Now(), userID, providerID)
	if err != nil {
		return fmt.Errorf("failed to update refresh token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: user %s", shared.ErrAbsentCredential, userID)
	}

	return nil
}

// ClearRefreshToken removes the stored refresh token. Clearing an absent link
// or an already-empty token is not an error.
func (r *CredentialRepository) ClearRefreshToken(userID, providerID string) error {
	query := `
		UPDATE user_providers
		SET refresh_token = NULL, updated_at = ?
		WHERE user_id = ? AND provider_id = ?
	`

	if _, err := r.db.Exec(query, time.Now(), userID, providerID); err != nil {
		return fmt.Errorf("failed to clear refresh token: %w", err)
	}

	return nil
}

// RefreshTokenCiphertext returns the stored encrypted refresh token. Returns
// found=false when the link is absent or no token was ever issued.
func (r *CredentialRepository) RefreshTokenCiphertext(userID, providerID string) (string, bool, error) {
	var refreshToken sql.NullString

	query := "SELECT refresh_token FROM user_providers WHERE user_id = ? AND provider_id = ?"
	err := r.db.QueryRow(query, userID, providerID).Scan(&refreshToken)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query refresh token: %w", err)
	}

	if !refreshToken.Valid || refreshToken.String == "" {
		return "", false, nil
	}

	return refreshToken.String, true, nil
}
