package routes_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmmarJamshed/FDA-checker/internal/api/handlers"
	"github.com/AmmarJamshed/FDA-checker/internal/api/routes"
	"github.com/AmmarJamshed/FDA-checker/internal/application/services"
	"github.com/AmmarJamshed/FDA-checker/internal/domain/entities"
	"github.com/AmmarJamshed/FDA-checker/internal/infrastructure/observability"
)

type fixedClassifier int

func (c fixedClassifier) Predict(ctx context.Context, features entities.FeatureVector) (int, error) {
	return int(c), nil
}

func newTestServer(t *testing.T, origins []string) http.Handler {
	t.Helper()
	model, err := services.NewModelContext(fixedClassifier(1),
		entities.DefaultPhaseVocabulary(),
		entities.DefaultTrialResultsVocabulary(),
		entities.ModelInfo{Name: "drug_model", Version: "v1"},
	)
	require.NoError(t, err)

	metrics, err := observability.InitMetrics()
	require.NoError(t, err)

	svc := services.NewComplianceService(model, services.DefaultComplianceOptions(), metrics)
	return routes.NewRouter(handlers.NewComplianceHandler(svc, model), origins, metrics).SetupRoutes()
}

func TestRouter_EvaluateEndToEnd(t *testing.T) {
	server := newTestServer(t, []string{"*"})

	req := httptest.NewRequest(http.MethodPost, "/api/compliance/evaluate",
		strings.NewReader(`{"drug_name":"Remedix-Alpha","phase":"Phase 2","safety_data":8,"efficacy_data":7,"trial_results":"Success"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()

	server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"verdict":"compliant"`)
	assert.Contains(t, rec.Body.String(), `"features":{"phase":1,"safety_data":8,"efficacy_data":7,"trial_results":2}`)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouter_OutOfRangeIsBadRequest(t *testing.T) {
	server := newTestServer(t, []string{"*"})

	req := httptest.NewRequest(http.MethodPost, "/api/compliance/evaluate",
		strings.NewReader(`{"drug_name":"A","phase":"Phase 2","safety_data":0,"efficacy_data":7,"trial_results":"Success"}`))
	rec := httptest.NewRecorder()

	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "safety_data must be between 1 and 10")
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	server := newTestServer(t, []string{"*"})

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/compliance/evaluate", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_PreflightAndOriginAllowList(t *testing.T) {
	server := newTestServer(t, []string{"https://allowed.example"})

	req := httptest.NewRequest(http.MethodOptions, "/api/compliance/evaluate", nil)
	req.Header.Set("Origin", "https://allowed.example")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://allowed.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://other.example")
	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_VocabulariesETag(t *testing.T) {
	server := newTestServer(t, []string{"*"})

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/compliance/vocabularies", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Contains(t, rec.Body.String(), "Preclinical")

	req := httptest.NewRequest(http.MethodGet, "/api/compliance/vocabularies", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())
}

// channelBus is an in-memory event bus.
type channelBus struct {
	mu   sync.Mutex
	subs map[string][]chan *entities.EvaluationEvent
}

func (b *channelBus) Publish(ctx context.Context, channel string, event *entities.EvaluationEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[channel] {
		ch <- event
	}
	return nil
}

func (b *channelBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.EvaluationEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[string][]chan *entities.EvaluationEvent)
	}
	ch := make(chan *entities.EvaluationEvent, 4)
	b.subs[channel] = append(b.subs[channel], ch)
	return ch, nil
}

func (b *channelBus) Unsubscribe(ctx context.Context, channel string) error { return nil }

func (b *channelBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, chans := range b.subs {
		for _, ch := range chans {
			close(ch)
		}
	}
	b.subs = nil
	return nil
}

func (b *channelBus) subscribed(channel string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[channel]) > 0
}

func TestRouter_EventStreamNotRegisteredByDefault(t *testing.T) {
	server := newTestServer(t, []string{"*"})

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/compliance/events", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_EvaluationsAreStreamed(t *testing.T) {
	model, err := services.NewModelContext(fixedClassifier(0),
		entities.DefaultPhaseVocabulary(),
		entities.DefaultTrialResultsVocabulary(),
		entities.ModelInfo{Name: "drug_model", Version: "v1"},
	)
	require.NoError(t, err)

	bus := &channelBus{}
	svc := services.NewComplianceService(model, services.DefaultComplianceOptions(), nil).WithEventPublisher(bus)
	server := routes.NewRouter(handlers.NewComplianceHandler(svc, model), []string{"*"}, nil).
		WithEventStream(handlers.NewSSEHandler(bus, time.Hour)).
		SetupRoutes()

	streamRec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		server.ServeHTTP(streamRec, httptest.NewRequest(http.MethodGet, "/api/compliance/events?verdict=non_compliant", nil))
		close(done)
	}()
	require.Eventually(t, func() bool { return bus.subscribed("compliance:verdict:non_compliant") }, time.Second, 5*time.Millisecond)

	req := httptest.NewRequest(http.MethodPost, "/api/compliance/evaluate",
		strings.NewReader(`{"drug_name":"X","phase":"Phase 1","safety_data":3,"efficacy_data":3,"trial_results":"Failure"}`))
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Eventually(t, func() bool {
		health := httptest.NewRecorder()
		server.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/health", nil))
		return strings.Contains(health.Body.String(), `"stream_clients":1`)
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, bus.Close())
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end")
	}

	assert.Equal(t, "text/event-stream", streamRec.Header().Get("Content-Type"))
	assert.Contains(t, streamRec.Body.String(), "event: verdict\n")
	assert.Contains(t, streamRec.Body.String(), `"verdict":"non_compliant"`)
}
