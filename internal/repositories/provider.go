package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/adhamahmad/music-genie/internal/models"
	"github.com/adhamahmad/music-genie/internal/shared"
)

// ProviderRepository resolves registered music providers by name.
//
// Providers are seeded by migration; an unregistered name is a configuration
// defect and surfaces as [shared.ErrUnknownProvider].
type ProviderRepository struct {
	db *sql.DB
}

// NewProviderRepository creates a new [ProviderRepository] with the given database connection
func NewProviderRepository(db *sql.DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

// GetByName retrieves a provider by its registered name.
func (r *ProviderRepository) GetByName(name string) (*models.Provider, error) {
	var (
		id        string
		createdAt time.Time
	)

	err := r.db.QueryRow("SELECT id, created_at FROM providers WHERE name = ?", name).Scan(&id, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrUnknownProvider, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query provider: %w", err)
	}

	return &models.Provider{ID: id, Name: name, CreatedAt: createdAt}, nil
}

// IDByName resolves a provider name to its id.
func (r *ProviderRepository) IDByName(name string) (string, error) {
	provider, err := r.GetByName(name)
	if err != nil {
		return "", err
	}
	return provider.ID, nil
}

// Exists reports whether a provider with the given name is registered.
func (r *ProviderRepository) Exists(name string) (bool, error) {
	var exists bool
	err := r.db.QueryRow("SELECT EXISTS(SELECT 1 FROM providers WHERE name = ?)", name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query provider: %w", err)
	}
	return exists, nil
}
