package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/brocketdesign/rakubun-sub003/src/models"
	"github.com/brocketdesign/rakubun-sub003/src/repositories"
)

// ReconcileService folds remote post status back into local article state.
// Local status is always derived from the remote system of record, never the
// reverse. One record's failure never aborts a run.
type ReconcileService struct {
	articles    repositories.ArticleRepository
	sites       repositories.SiteRepository
	remote      RemoteStatusPort
	concurrency int
}

// maxReconcileConcurrency bounds in-flight remote fetches to respect the
// remote system's implicit rate limits
const maxReconcileConcurrency = 4

// NewReconcileService creates a reconcile service. concurrency <= 1 processes
// records sequentially; values above 4 are clamped.
func NewReconcileService(articles repositories.ArticleRepository, sites repositories.SiteRepository, remote RemoteStatusPort, concurrency int) *ReconcileService {
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > maxReconcileConcurrency {
		concurrency = maxReconcileConcurrency
	}
	return &ReconcileService{
		articles:    articles,
		sites:       sites,
		remote:      remote,
		concurrency: concurrency,
	}
}

// MapRemoteStatus maps a remote WordPress post status onto the local status
// enum. Unrecognized statuses map to draft: never assume success.
func MapRemoteStatus(remote string) models.ArticleStatus {
	switch remote {
	case models.RemoteStatusPublish, models.RemoteStatusPrivate:
		return models.ArticleStatusPublished
	case models.RemoteStatusFuture:
		return models.ArticleStatusScheduled
	case models.RemoteStatusDraft, models.RemoteStatusPending:
		return models.ArticleStatusDraft
	default:
		return models.ArticleStatusDraft
	}
}

// credentialCache holds site credentials for the duration of one run.
// Never reused across runs, so revoked or rotated credentials take effect on
// the next run at the latest.
type credentialCache struct {
	mu    sync.Mutex
	sites repositories.SiteRepository
	creds map[uuid.UUID]*models.SiteCredential
	fails map[uuid.UUID]bool
}

func newCredentialCache(sites repositories.SiteRepository) *credentialCache {
	return &credentialCache{
		sites: sites,
		creds: make(map[uuid.UUID]*models.SiteCredential),
		fails: make(map[uuid.UUID]bool),
	}
}

// resolve returns the credential for siteID, hitting the repository at most
// once per site per run. Failed lookups are cached too, so a site with many
// articles does not trigger repeated lookups.
func (cc *credentialCache) resolve(ctx context.Context, siteID uuid.UUID) (*models.SiteCredential, bool) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	if cred, ok := cc.creds[siteID]; ok {
		return cred, true
	}
	if cc.fails[siteID] {
		return nil, false
	}

	cred, err := cc.sites.GetCredential(ctx, siteID)
	if err != nil {
		log.Warn().Err(err).Str("site_id", siteID.String()).Msg("failed to resolve site credentials")
		cc.fails[siteID] = true
		return nil, false
	}

	cc.creds[siteID] = cred
	return cred, true
}

// recordOutcome is the per-article result folded into the summary
type recordOutcome struct {
	changed *models.ChangedArticle
	errored bool
}

// Run executes one reconciliation pass over every tracked article and
// returns the summary. Records are independent; no cross-record ordering is
// guaranteed when concurrency is enabled.
func (rs *ReconcileService) Run(ctx context.Context) (*models.ReconcileSummary, error) {
	articles, err := rs.articles.GetTracked(ctx)
	if err != nil {
		return nil, err
	}

	cache := newCredentialCache(rs.sites)
	outcomes := make([]recordOutcome, len(articles))

	if rs.concurrency <= 1 {
		for i := range articles {
			outcomes[i] = rs.reconcileOne(ctx, &articles[i], cache)
		}
	} else {
		sem := make(chan struct{}, rs.concurrency)
		var wg sync.WaitGroup
		for i := range articles {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int) {
				defer wg.Done()
				defer func() { <-sem }()
				outcomes[i] = rs.reconcileOne(ctx, &articles[i], cache)
			}(i)
		}
		wg.Wait()
	}

	summary := &models.ReconcileSummary{}
	for _, o := range outcomes {
		switch {
		case o.errored:
			summary.Errors++
		case o.changed != nil:
			summary.Updated = append(summary.Updated, *o.changed)
		default:
			summary.Unchanged++
		}
	}

	log.Info().
		Int("updated", len(summary.Updated)).
		Int("unchanged", summary.Unchanged).
		Int("errors", summary.Errors).
		Msg("reconciliation run complete")

	return summary, nil
}

// reconcileOne fetches remote truth for one article and writes back local
// state when it changed
func (rs *ReconcileService) reconcileOne(ctx context.Context, article *models.Article, cache *credentialCache) recordOutcome {
	cred, ok := cache.resolve(ctx, article.SiteID)
	if !ok {
		return recordOutcome{errored: true}
	}

	remote, err := rs.remote.FetchPostStatus(ctx, cred, article.RemotePostID)
	if err != nil {
		log.Warn().Err(err).
			Str("article_id", article.ID.String()).
			Str("remote_post_id", article.RemotePostID).
			Msg("failed to fetch remote post status")
		return recordOutcome{errored: true}
	}

	newStatus := MapRemoteStatus(remote.Status)
	newLink := remote.Link
	if newLink == "" {
		newLink = article.Link
	}

	// Change detection: only write when something actually moved, so
	// updated_at keeps meaning "last real change"
	if newStatus == article.Status && newLink == article.Link {
		return recordOutcome{}
	}

	var firstPublished *time.Time
	if newStatus == models.ArticleStatusPublished && article.FirstPublished == nil {
		now := time.Now()
		firstPublished = &now
	}

	if err := rs.articles.UpdateSyncState(ctx, article.ID, newStatus, newLink, firstPublished); err != nil {
		log.Error().Err(err).Str("article_id", article.ID.String()).Msg("failed to write reconciled state")
		return recordOutcome{errored: true}
	}

	return recordOutcome{changed: &models.ChangedArticle{
		ID:     article.ID,
		Status: newStatus,
		Link:   newLink,
	}}
}
