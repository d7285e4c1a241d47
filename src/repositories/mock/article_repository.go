package mock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brocketdesign/rakubun-sub003/src/models"
)

// ArticleRepository is an in-memory mock of repositories.ArticleRepository
type ArticleRepository struct {
	mu       sync.Mutex
	Articles []models.Article

	// UpdateErr, when set, is returned by every UpdateSyncState call
	UpdateErr error
	// UpdateCalls counts UpdateSyncState invocations
	UpdateCalls int
}

// NewArticleRepository creates a mock article repository
func NewArticleRepository(articles ...models.Article) *ArticleRepository {
	return &ArticleRepository{Articles: articles}
}

// GetTracked returns the configured articles in insertion order
func (m *ArticleRepository) GetTracked(ctx context.Context) ([]models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Article, len(m.Articles))
	copy(out, m.Articles)
	return out, nil
}

// UpdateSyncState applies the write to the in-memory article, mirroring the
// COALESCE semantics of the Postgres implementation for first_published
func (m *ArticleRepository) UpdateSyncState(ctx context.Context, id uuid.UUID, status models.ArticleStatus, link string, firstPublished *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdateCalls++
	if m.UpdateErr != nil {
		return m.UpdateErr
	}

	for i := range m.Articles {
		if m.Articles[i].ID == id {
			m.Articles[i].Status = status
			m.Articles[i].Link = link
			if m.Articles[i].FirstPublished == nil && firstPublished != nil {
				m.Articles[i].FirstPublished = firstPublished
			}
			m.Articles[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return nil
}
