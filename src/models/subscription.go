package models

import "time"

// WebhookSubscription is a per-site registration for outbound event
// notifications. The signing secret is generated at registration and used
// only locally to compute payload signatures; it is returned to the
// subscriber once, in the registration response.
type WebhookSubscription struct {
	SiteID    string    `json:"site_id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"` // empty = all events
	Secret    string    `json:"secret,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WantsEvent reports whether the subscription's event filter admits the
// given event. An empty filter admits everything.
func (s *WebhookSubscription) WantsEvent(event string) bool {
	if len(s.Events) == 0 {
		return true
	}
	for _, e := range s.Events {
		if e == event {
			return true
		}
	}
	return false
}

// WebhookEnvelope is the JSON body POSTed to subscriber endpoints.
// Receivers recompute the HMAC signature over the exact received bytes.
type WebhookEnvelope struct {
	Event     string      `json:"event"`
	SiteID    string      `json:"site_id"`
	Timestamp string      `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NotDeliveredReason discriminates why a delivery did not reach the subscriber
type NotDeliveredReason string

const (
	// ReasonInactive means no active subscription exists for the site
	ReasonInactive NotDeliveredReason = "inactive"
	// ReasonFiltered means the subscription's event filter excluded the event
	ReasonFiltered NotDeliveredReason = "filtered"
	// ReasonTransportError means the HTTP call failed or timed out
	ReasonTransportError NotDeliveredReason = "transport_error"
	// ReasonHTTPError means the endpoint responded with a non-2xx status
	ReasonHTTPError NotDeliveredReason = "http_error"
)

// DeliveryResult is the outcome of a single webhook delivery attempt
type DeliveryResult struct {
	Delivered  bool               `json:"delivered"`
	Reason     NotDeliveredReason `json:"reason,omitempty"`
	StatusCode int                `json:"status_code,omitempty"`
}

// BroadcastResult aggregates delivery outcomes across all subscriptions
type BroadcastResult struct {
	Delivered int `json:"delivered"`
	Total     int `json:"total"`
}
