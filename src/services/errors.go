package services

import "errors"

// Sentinel errors for explicit error handling
// These errors allow callers to distinguish between different failure modes
// using errors.Is() instead of string matching

var (
	// ErrAuthentication covers every credential failure: missing header,
	// unknown key, revoked key, invalid session token. Deliberately a single
	// error with a single message so callers cannot tell the cases apart.
	ErrAuthentication = errors.New("authentication required")

	// ErrValidation indicates malformed input to an issue/register call
	ErrValidation = errors.New("invalid input")

	// ErrKeyNotFound indicates the requested key does not exist or is not
	// owned by the caller
	ErrKeyNotFound = errors.New("key not found")

	// ErrSubscriptionNotFound indicates no webhook subscription exists for the site
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrUpstream indicates the remote system was unreachable, timed out,
	// or returned a non-success status
	ErrUpstream = errors.New("upstream request failed")
)
