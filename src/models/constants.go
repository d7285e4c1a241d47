package models

// ArticleStatus represents the local publishing status of an article
type ArticleStatus string

const (
	// ArticleStatusDraft indicates the article has not been scheduled or published
	ArticleStatusDraft ArticleStatus = "draft"
	// ArticleStatusScheduled indicates the article is scheduled for future publication
	ArticleStatusScheduled ArticleStatus = "scheduled"
	// ArticleStatusPublished indicates the article is live on the remote site
	ArticleStatusPublished ArticleStatus = "published"
)

// Remote WordPress post statuses as returned by the REST API
const (
	RemoteStatusPublish = "publish"
	RemoteStatusPrivate = "private"
	RemoteStatusFuture  = "future"
	RemoteStatusDraft   = "draft"
	RemoteStatusPending = "pending"
)

// Webhook event names dispatched to subscribers
const (
	EventConfigUpdated  = "config_updated"
	EventCreditsUpdated = "credits_updated"
	EventPluginEnabled  = "plugin_enabled"
	EventPluginDisabled = "plugin_disabled"
	EventPackageUpdated = "package_updated"
)

// Key prefixes identify the token class in logs and secret scanners
const (
	// APIKeyPrefix prefixes every issued API key secret
	APIKeyPrefix = "rkn_"
	// WebhookSecretPrefix prefixes every webhook signing secret
	WebhookSecretPrefix = "whsec_"
	// APIKeyDisplayLength is how many leading characters of a secret are kept for display
	APIKeyDisplayLength = 12
)
