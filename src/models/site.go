package models

import "github.com/google/uuid"

// SiteCredential is the subset of a site's connection info needed to query
// the remote WordPress instance. Owned by the business layer; the reconciler
// reads it and caches it for one run only.
type SiteCredential struct {
	SiteID      uuid.UUID
	BaseURL     string
	Username    string
	AppPassword string
}
