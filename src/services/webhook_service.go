package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brocketdesign/rakubun-sub003/src/models"
)

// WebhookService owns per-site webhook registrations, signs outbound event
// payloads, and delivers them. Registrations live in memory only: the
// registry is authoritative for one running process and is lost on restart.
// Construct one instance at startup and hand it to everything that needs it.
type WebhookService struct {
	mu         sync.RWMutex
	subs       map[string]*models.WebhookSubscription
	httpClient *http.Client
}

// NewWebhookService creates a webhook service with the given delivery timeout
func NewWebhookService(deliveryTimeout time.Duration) *WebhookService {
	if deliveryTimeout <= 0 {
		deliveryTimeout = 10 * time.Second
	}
	return &WebhookService{
		subs: make(map[string]*models.WebhookSubscription),
		httpClient: &http.Client{
			Timeout: deliveryTimeout,
		},
	}
}

// Register creates or replaces the subscription for siteID. Re-registering
// is idempotent: the prior registration and its signing secret are replaced.
// An empty events slice subscribes to all events. The returned subscription
// is the only place the signing secret is ever handed out.
func (ws *WebhookService) Register(siteID, targetURL string, events []string) (*models.WebhookSubscription, error) {
	siteID = strings.TrimSpace(siteID)
	if siteID == "" {
		return nil, fmt.Errorf("%w: site id is required", ErrValidation)
	}

	parsed, err := url.Parse(targetURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("%w: url must be a valid http(s) URL", ErrValidation)
	}

	secret, err := generateSecret(models.WebhookSecretPrefix)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sub := &models.WebhookSubscription{
		SiteID:    siteID,
		URL:       targetURL,
		Events:    append([]string(nil), events...),
		Secret:    secret,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ws.mu.Lock()
	if prev, ok := ws.subs[siteID]; ok {
		sub.CreatedAt = prev.CreatedAt
	}
	ws.subs[siteID] = sub
	ws.mu.Unlock()

	out := *sub
	return &out, nil
}

// Get returns the subscription for siteID with the signing secret stripped
func (ws *WebhookService) Get(siteID string) (*models.WebhookSubscription, error) {
	ws.mu.RLock()
	sub, ok := ws.subs[siteID]
	ws.mu.RUnlock()
	if !ok {
		return nil, ErrSubscriptionNotFound
	}

	out := *sub
	out.Secret = ""
	return &out, nil
}

// Deactivate marks the subscription inactive without discarding it
func (ws *WebhookService) Deactivate(siteID string) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	sub, ok := ws.subs[siteID]
	if !ok {
		return ErrSubscriptionNotFound
	}
	sub.Active = false
	sub.UpdatedAt = time.Now()
	return nil
}

// Unregister removes the subscription entirely
func (ws *WebhookService) Unregister(siteID string) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if _, ok := ws.subs[siteID]; !ok {
		return ErrSubscriptionNotFound
	}
	delete(ws.subs, siteID)
	return nil
}

// snapshot copies the current registrations so delivery can run without
// holding the registry lock
func (ws *WebhookService) snapshot() []models.WebhookSubscription {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	subs := make([]models.WebhookSubscription, 0, len(ws.subs))
	for _, sub := range ws.subs {
		subs = append(subs, *sub)
	}
	return subs
}

// Deliver sends one signed event notification to the site's subscriber.
// It never returns an error: absent/inactive subscriptions, filtered events,
// and transport failures all map to a NotDelivered outcome. A single attempt
// is made per call; there is no retry.
func (ws *WebhookService) Deliver(ctx context.Context, siteID, event string, data interface{}) models.DeliveryResult {
	ws.mu.RLock()
	sub, ok := ws.subs[siteID]
	var snap models.WebhookSubscription
	if ok {
		snap = *sub
	}
	ws.mu.RUnlock()

	if !ok || !snap.Active {
		return models.DeliveryResult{Delivered: false, Reason: models.ReasonInactive}
	}
	if !snap.WantsEvent(event) {
		return models.DeliveryResult{Delivered: false, Reason: models.ReasonFiltered}
	}

	return ws.post(ctx, &snap, event, data)
}

// post builds the envelope, signs it, and performs the HTTP call
func (ws *WebhookService) post(ctx context.Context, sub *models.WebhookSubscription, event string, data interface{}) models.DeliveryResult {
	envelope := models.WebhookEnvelope{
		Event:     event,
		SiteID:    sub.SiteID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		log.Error().Err(err).Str("site_id", sub.SiteID).Str("event", event).Msg("failed to marshal webhook envelope")
		return models.DeliveryResult{Delivered: false, Reason: models.ReasonTransportError}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(payload))
	if err != nil {
		log.Error().Err(err).Str("site_id", sub.SiteID).Msg("failed to build webhook request")
		return models.DeliveryResult{Delivered: false, Reason: models.ReasonTransportError}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Rakubun-Event", event)
	req.Header.Set("X-Rakubun-Signature", SignPayload(payload, sub.Secret))

	resp, err := ws.httpClient.Do(req)
	if err != nil {
		// Timeouts are treated identically to any other transport failure
		log.Warn().Err(err).Str("site_id", sub.SiteID).Str("event", event).Msg("webhook delivery failed")
		return models.DeliveryResult{Delivered: false, Reason: models.ReasonTransportError}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn().Int("status", resp.StatusCode).Str("site_id", sub.SiteID).Str("event", event).Msg("webhook endpoint returned error")
		return models.DeliveryResult{Delivered: false, Reason: models.ReasonHTTPError, StatusCode: resp.StatusCode}
	}

	return models.DeliveryResult{Delivered: true, StatusCode: resp.StatusCode}
}

// Broadcast fans out an event to every active subscription concurrently and
// waits for every outcome. Individual failures never short-circuit the fan
// out; they only reduce the delivered count. Delivery order is unspecified.
func (ws *WebhookService) Broadcast(ctx context.Context, event string, data interface{}) models.BroadcastResult {
	subs := ws.snapshot()

	var wg sync.WaitGroup
	results := make(chan models.DeliveryResult, len(subs))

	total := 0
	for i := range subs {
		sub := subs[i]
		if !sub.Active {
			continue
		}
		total++
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !sub.WantsEvent(event) {
				results <- models.DeliveryResult{Delivered: false, Reason: models.ReasonFiltered}
				return
			}
			results <- ws.post(ctx, &sub, event, data)
		}()
	}

	wg.Wait()
	close(results)

	delivered := 0
	for r := range results {
		if r.Delivered {
			delivered++
		}
	}

	return models.BroadcastResult{Delivered: delivered, Total: total}
}

// Typed convenience notifications. Thin wrappers over Deliver/Broadcast with
// fixed event names and structured data shapes.

// NotifyConfigUpdated tells a site's subscriber its configuration changed
func (ws *WebhookService) NotifyConfigUpdated(ctx context.Context, siteID string, config map[string]interface{}) models.DeliveryResult {
	return ws.Deliver(ctx, siteID, models.EventConfigUpdated, config)
}

// NotifyCreditsUpdated tells a site's subscriber its credit balance changed
func (ws *WebhookService) NotifyCreditsUpdated(ctx context.Context, siteID string, credits int) models.DeliveryResult {
	return ws.Deliver(ctx, siteID, models.EventCreditsUpdated, map[string]interface{}{"credits": credits})
}

// NotifyPluginToggled tells a site's subscriber a plugin was enabled or disabled
func (ws *WebhookService) NotifyPluginToggled(ctx context.Context, siteID, plugin string, enabled bool) models.DeliveryResult {
	event := models.EventPluginDisabled
	if enabled {
		event = models.EventPluginEnabled
	}
	return ws.Deliver(ctx, siteID, event, map[string]interface{}{"plugin": plugin, "enabled": enabled})
}

// NotifyPackageUpdated broadcasts a package change to every subscriber
func (ws *WebhookService) NotifyPackageUpdated(ctx context.Context, pkg, version string) models.BroadcastResult {
	return ws.Broadcast(ctx, models.EventPackageUpdated, map[string]interface{}{"package": pkg, "version": version})
}
