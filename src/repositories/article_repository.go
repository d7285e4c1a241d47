package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brocketdesign/rakubun-sub003/src/models"
)

// PgxArticleRepository is the Postgres-backed article repository
type PgxArticleRepository struct {
	pool *pgxpool.Pool
}

// NewPgxArticleRepository creates a Postgres article repository
func NewPgxArticleRepository(pool *pgxpool.Pool) *PgxArticleRepository {
	return &PgxArticleRepository{pool: pool}
}

// GetTracked returns every article that has a remote counterpart
func (r *PgxArticleRepository) GetTracked(ctx context.Context) ([]models.Article, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, site_id, remote_post_id, status, link, first_published, updated_at
		FROM articles
		WHERE remote_post_id IS NOT NULL AND remote_post_id != ''
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracked articles: %w", err)
	}
	defer rows.Close()

	var articles []models.Article
	for rows.Next() {
		var a models.Article
		if err := rows.Scan(&a.ID, &a.SiteID, &a.RemotePostID, &a.Status, &a.Link, &a.FirstPublished, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, a)
	}

	return articles, rows.Err()
}

// UpdateSyncState writes the reconciled status and link for one article.
// first_published is only ever written when it is currently NULL, so the
// transition into published stamps it exactly once.
func (r *PgxArticleRepository) UpdateSyncState(ctx context.Context, id uuid.UUID, status models.ArticleStatus, link string, firstPublished *time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE articles
		SET status = $2,
		    link = $3,
		    first_published = COALESCE(first_published, $4),
		    updated_at = NOW()
		WHERE id = $1
	`, id, status, link, firstPublished)
	if err != nil {
		return fmt.Errorf("failed to update article sync state: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("article not found: %s", id)
	}
	return nil
}
