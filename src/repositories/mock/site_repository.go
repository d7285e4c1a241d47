package mock

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/brocketdesign/rakubun-sub003/src/models"
)

// SiteRepository is an in-memory mock of repositories.SiteRepository
type SiteRepository struct {
	Credentials map[uuid.UUID]*models.SiteCredential

	// LookupCount tracks how many times each site was resolved, so tests can
	// assert the reconciler's per-run credential cache actually caches
	LookupCount map[uuid.UUID]int
}

// NewSiteRepository creates a mock site repository
func NewSiteRepository() *SiteRepository {
	return &SiteRepository{
		Credentials: make(map[uuid.UUID]*models.SiteCredential),
		LookupCount: make(map[uuid.UUID]int),
	}
}

// Add registers a credential for a site
func (m *SiteRepository) Add(cred *models.SiteCredential) {
	m.Credentials[cred.SiteID] = cred
}

// GetCredential returns the configured credential or an error
func (m *SiteRepository) GetCredential(ctx context.Context, siteID uuid.UUID) (*models.SiteCredential, error) {
	m.LookupCount[siteID]++
	cred, ok := m.Credentials[siteID]
	if !ok {
		return nil, errors.New("site credential not found")
	}
	return cred, nil
}
