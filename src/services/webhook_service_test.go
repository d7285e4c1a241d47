package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brocketdesign/rakubun-sub003/src/models"
)

func newTestWebhookService() *WebhookService {
	return NewWebhookService(2 * time.Second)
}

func TestRegisterReturnsSecretOnce(t *testing.T) {
	ws := newTestWebhookService()

	sub, err := ws.Register("site-1", "https://example.com/hook", nil)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sub.Secret, models.WebhookSecretPrefix))
	assert.True(t, sub.Active)

	// Get never exposes the secret again
	fetched, err := ws.Get("site-1")
	require.NoError(t, err)
	assert.Empty(t, fetched.Secret)
	assert.Equal(t, sub.URL, fetched.URL)
}

func TestRegisterValidation(t *testing.T) {
	ws := newTestWebhookService()

	tests := []struct {
		name   string
		siteID string
		url    string
	}{
		{"empty site id", "", "https://example.com/hook"},
		{"blank site id", "   ", "https://example.com/hook"},
		{"empty url", "site-1", ""},
		{"relative url", "site-1", "/hook"},
		{"bad scheme", "site-1", "ftp://example.com/hook"},
		{"no host", "site-1", "https://"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ws.Register(tt.siteID, tt.url, nil)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestRegisterReplaceRotatesSecret(t *testing.T) {
	ws := newTestWebhookService()

	first, err := ws.Register("site-1", "https://example.com/old", nil)
	require.NoError(t, err)

	second, err := ws.Register("site-1", "https://example.com/new", []string{models.EventConfigUpdated})
	require.NoError(t, err)

	assert.NotEqual(t, first.Secret, second.Secret)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	fetched, err := ws.Get("site-1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/new", fetched.URL)
	assert.Equal(t, []string{models.EventConfigUpdated}, fetched.Events)
}

func TestGetUnknownSite(t *testing.T) {
	ws := newTestWebhookService()

	_, err := ws.Get("nope")
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestUnregister(t *testing.T) {
	ws := newTestWebhookService()

	_, err := ws.Register("site-1", "https://example.com/hook", nil)
	require.NoError(t, err)

	require.NoError(t, ws.Unregister("site-1"))

	_, err = ws.Get("site-1")
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
	assert.ErrorIs(t, ws.Unregister("site-1"), ErrSubscriptionNotFound)
}

func TestDeliverSignedEnvelope(t *testing.T) {
	var gotBody []byte
	var gotEvent, gotSig string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotEvent = r.Header.Get("X-Rakubun-Event")
		gotSig = r.Header.Get("X-Rakubun-Signature")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ws := newTestWebhookService()
	sub, err := ws.Register("site-1", server.URL, nil)
	require.NoError(t, err)

	result := ws.Deliver(context.Background(), "site-1", models.EventConfigUpdated, map[string]interface{}{"theme": "dark"})

	assert.True(t, result.Delivered)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, models.EventConfigUpdated, gotEvent)

	// The signature must verify against the exact received bytes
	assert.True(t, VerifySignature(gotBody, gotSig, sub.Secret))

	var envelope models.WebhookEnvelope
	require.NoError(t, json.Unmarshal(gotBody, &envelope))
	assert.Equal(t, models.EventConfigUpdated, envelope.Event)
	assert.Equal(t, "site-1", envelope.SiteID)
	assert.NotEmpty(t, envelope.Timestamp)
}

func TestDeliverNeverErrors(t *testing.T) {
	errorServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer errorServer.Close()

	ws := newTestWebhookService()

	// No subscription at all
	result := ws.Deliver(context.Background(), "missing", "test", nil)
	assert.False(t, result.Delivered)
	assert.Equal(t, models.ReasonInactive, result.Reason)

	// Deactivated subscription
	_, err := ws.Register("inactive-site", errorServer.URL, nil)
	require.NoError(t, err)
	require.NoError(t, ws.Deactivate("inactive-site"))
	result = ws.Deliver(context.Background(), "inactive-site", "test", nil)
	assert.False(t, result.Delivered)
	assert.Equal(t, models.ReasonInactive, result.Reason)

	// Event excluded by the filter
	_, err = ws.Register("filtered-site", errorServer.URL, []string{models.EventCreditsUpdated})
	require.NoError(t, err)
	result = ws.Deliver(context.Background(), "filtered-site", models.EventConfigUpdated, nil)
	assert.False(t, result.Delivered)
	assert.Equal(t, models.ReasonFiltered, result.Reason)

	// Endpoint responds 5xx
	_, err = ws.Register("erroring-site", errorServer.URL, nil)
	require.NoError(t, err)
	result = ws.Deliver(context.Background(), "erroring-site", "test", nil)
	assert.False(t, result.Delivered)
	assert.Equal(t, models.ReasonHTTPError, result.Reason)
	assert.Equal(t, http.StatusInternalServerError, result.StatusCode)

	// Endpoint unreachable
	_, err = ws.Register("unreachable-site", "http://127.0.0.1:1/hook", nil)
	require.NoError(t, err)
	result = ws.Deliver(context.Background(), "unreachable-site", "test", nil)
	assert.False(t, result.Delivered)
	assert.Equal(t, models.ReasonTransportError, result.Reason)
}

func TestBroadcastSettlesAll(t *testing.T) {
	var okHits, failHits atomic.Int32

	okServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		okHits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer okServer.Close()

	failServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		failHits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failServer.Close()

	ws := newTestWebhookService()

	for _, siteID := range []string{"a", "b", "c"} {
		_, err := ws.Register(siteID, okServer.URL, nil)
		require.NoError(t, err)
	}
	_, err := ws.Register("d", failServer.URL, nil)
	require.NoError(t, err)
	_, err = ws.Register("e", failServer.URL, nil)
	require.NoError(t, err)

	// An inactive subscription is excluded from the total
	_, err = ws.Register("dormant", okServer.URL, nil)
	require.NoError(t, err)
	require.NoError(t, ws.Deactivate("dormant"))

	result := ws.Broadcast(context.Background(), models.EventPackageUpdated, map[string]interface{}{"package": "core"})

	assert.Equal(t, 5, result.Total)
	assert.Equal(t, 3, result.Delivered)
	assert.Equal(t, int32(3), okHits.Load())
	assert.Equal(t, int32(2), failHits.Load())
}

func TestBroadcastCountsFilteredInTotal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ws := newTestWebhookService()

	_, err := ws.Register("wants-it", server.URL, nil)
	require.NoError(t, err)
	_, err = ws.Register("filters-it", server.URL, []string{models.EventCreditsUpdated})
	require.NoError(t, err)

	result := ws.Broadcast(context.Background(), models.EventConfigUpdated, nil)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Delivered)
}

func TestBroadcastEmptyRegistry(t *testing.T) {
	ws := newTestWebhookService()

	result := ws.Broadcast(context.Background(), "anything", nil)

	assert.Equal(t, 0, result.Total)
	assert.Equal(t, 0, result.Delivered)
}

func TestNotifyPluginToggled(t *testing.T) {
	var gotEvent string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotEvent = r.Header.Get("X-Rakubun-Event")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ws := newTestWebhookService()
	_, err := ws.Register("site-1", server.URL, nil)
	require.NoError(t, err)

	result := ws.NotifyPluginToggled(context.Background(), "site-1", "seo-helper", true)
	require.True(t, result.Delivered)
	assert.Equal(t, models.EventPluginEnabled, gotEvent)

	var envelope models.WebhookEnvelope
	require.NoError(t, json.Unmarshal(gotBody, &envelope))
	data := envelope.Data.(map[string]interface{})
	assert.Equal(t, "seo-helper", data["plugin"])
	assert.Equal(t, true, data["enabled"])

	result = ws.NotifyPluginToggled(context.Background(), "site-1", "seo-helper", false)
	require.True(t, result.Delivered)
	assert.Equal(t, models.EventPluginDisabled, gotEvent)
}

func TestWantsEvent(t *testing.T) {
	all := &models.WebhookSubscription{}
	assert.True(t, all.WantsEvent("anything"))

	filtered := &models.WebhookSubscription{Events: []string{models.EventConfigUpdated, models.EventCreditsUpdated}}
	assert.True(t, filtered.WantsEvent(models.EventConfigUpdated))
	assert.False(t, filtered.WantsEvent(models.EventPackageUpdated))
}
