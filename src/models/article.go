package models

import (
	"time"

	"github.com/google/uuid"
)

// Article carries the fields of a local article record that participate in
// reconciliation against the remote site. Content fields live elsewhere.
type Article struct {
	ID             uuid.UUID     `json:"id"`
	SiteID         uuid.UUID     `json:"site_id"`
	RemotePostID   string        `json:"remote_post_id"`
	Status         ArticleStatus `json:"status"`
	Link           string        `json:"link"`
	FirstPublished *time.Time    `json:"first_published,omitempty"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// ChangedArticle describes one record updated by a reconciliation run
type ChangedArticle struct {
	ID     uuid.UUID     `json:"id"`
	Status ArticleStatus `json:"status"`
	Link   string        `json:"link"`
}

// ReconcileSummary is the result of one reconciliation run
type ReconcileSummary struct {
	Updated   []ChangedArticle `json:"updated"`
	Unchanged int              `json:"unchanged"`
	Errors    int              `json:"errors"`
}

// Total returns the number of records the run attempted to process
func (s *ReconcileSummary) Total() int {
	return len(s.Updated) + s.Unchanged + s.Errors
}
