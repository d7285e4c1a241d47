package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brocketdesign/rakubun-sub003/src/models"
)

// PgxSiteRepository reads site connection credentials from Postgres.
// Application passwords are stored encrypted at rest when a decrypter is
// configured; plaintext rows from before encryption was enabled still load.
type PgxSiteRepository struct {
	pool      *pgxpool.Pool
	decrypter Decrypter
}

// NewPgxSiteRepository creates a Postgres site repository
func NewPgxSiteRepository(pool *pgxpool.Pool, decrypter Decrypter) *PgxSiteRepository {
	return &PgxSiteRepository{pool: pool, decrypter: decrypter}
}

// GetCredential returns the connection credential for one site
func (r *PgxSiteRepository) GetCredential(ctx context.Context, siteID uuid.UUID) (*models.SiteCredential, error) {
	cred := &models.SiteCredential{SiteID: siteID}
	var appPassword []byte

	err := r.pool.QueryRow(ctx, `
		SELECT wp_base_url, wp_username, wp_app_password
		FROM sites
		WHERE id = $1
	`, siteID).Scan(&cred.BaseURL, &cred.Username, &appPassword)
	if err != nil {
		return nil, fmt.Errorf("site credential not found: %w", err)
	}

	if r.decrypter != nil {
		appPassword, err = r.decrypter.Decrypt(appPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt site credential: %w", err)
		}
	}
	cred.AppPassword = string(appPassword)

	if cred.BaseURL == "" || cred.Username == "" || cred.AppPassword == "" {
		return nil, fmt.Errorf("site %s has incomplete credentials", siteID)
	}

	return cred, nil
}
