package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/brocketdesign/rakubun-sub003/src/models"
)

// ArticleRepository defines the reconciliation-facing view of article storage
type ArticleRepository interface {
	// GetTracked returns every article with a known remote post id, in
	// store order
	GetTracked(ctx context.Context) ([]models.Article, error)

	// UpdateSyncState writes back status, link, and (when non-nil)
	// first_published for one article
	UpdateSyncState(ctx context.Context, id uuid.UUID, status models.ArticleStatus, link string, firstPublished *time.Time) error
}

// SiteRepository resolves site connection credentials. Read-only: the
// business layer owns the records.
type SiteRepository interface {
	GetCredential(ctx context.Context, siteID uuid.UUID) (*models.SiteCredential, error)
}

// Decrypter decrypts stored secrets. Satisfied by services.Encryptor; a nil
// or pass-through implementation means credentials are stored in cleartext.
type Decrypter interface {
	Decrypt(ciphertext []byte) ([]byte, error)
}
