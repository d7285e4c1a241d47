package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/brocketdesign/rakubun-sub003/src/models"
)

// PostStatus is what the remote system reports about one post
type PostStatus struct {
	Status string `json:"status"`
	Link   string `json:"link"`
}

// RemoteStatusPort is the collaborator contract the reconciler consumes:
// given site credentials and a remote post id, return the post's current
// status and public link.
type RemoteStatusPort interface {
	FetchPostStatus(ctx context.Context, cred *models.SiteCredential, remotePostID string) (*PostStatus, error)
}

// WordPressService queries post status over the WordPress REST API using
// basic auth with an application password.
type WordPressService struct {
	client *resty.Client
}

// NewWordPressService creates a WordPress client with the given per-request timeout
func NewWordPressService(timeout time.Duration) *WordPressService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &WordPressService{client: client}
}

// FetchPostStatus fetches one post's status and link. Transport failures,
// timeouts, and non-2xx responses all surface as ErrUpstream.
func (wp *WordPressService) FetchPostStatus(ctx context.Context, cred *models.SiteCredential, remotePostID string) (*PostStatus, error) {
	var post PostStatus

	url := fmt.Sprintf("%s/wp-json/wp/v2/posts/%s?context=edit",
		strings.TrimRight(cred.BaseURL, "/"), remotePostID)

	resp, err := wp.client.R().
		SetContext(ctx).
		SetBasicAuth(cred.Username, cred.AppPassword).
		SetResult(&post).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d from %s", ErrUpstream, resp.StatusCode(), cred.BaseURL)
	}
	if post.Status == "" {
		return nil, fmt.Errorf("%w: empty status for post %s", ErrUpstream, remotePostID)
	}

	return &post, nil
}
