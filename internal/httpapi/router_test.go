package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoddden/terradev-broker/internal/adapter"
	"github.com/theoddden/terradev-broker/internal/allocate"
	"github.com/theoddden/terradev-broker/internal/auth"
	"github.com/theoddden/terradev-broker/internal/config"
	"github.com/theoddden/terradev-broker/internal/engine"
	"github.com/theoddden/terradev-broker/internal/governor"
	"github.com/theoddden/terradev-broker/internal/provision"
	"github.com/theoddden/terradev-broker/internal/quote"
	"github.com/theoddden/terradev-broker/internal/stage"
	"github.com/theoddden/terradev-broker/pkg/model"
)

type fakeAdapter struct {
	id     model.ProviderID
	quotes []model.Quote
}

func (f *fakeAdapter) ID() model.ProviderID { return f.id }
func (f *fakeAdapter) GetQuotes(ctx context.Context, req adapter.QuoteRequest) ([]model.Quote, error) {
	return f.quotes, nil
}
func (f *fakeAdapter) Provision(ctx context.Context, req adapter.ProvisionRequest) (adapter.ProvisionedInstance, error) {
	return adapter.ProvisionedInstance{InstanceID: string(f.id) + "_1", Status: model.StatusActive}, nil
}
func (f *fakeAdapter) Status(ctx context.Context, instanceID string) (adapter.InstanceInfo, error) {
	return adapter.InstanceInfo{InstanceID: instanceID, Status: "running"}, nil
}
func (f *fakeAdapter) Stop(ctx context.Context, instanceID string) error      { return nil }
func (f *fakeAdapter) Start(ctx context.Context, instanceID string) error     { return nil }
func (f *fakeAdapter) Terminate(ctx context.Context, instanceID string) error { return nil }
func (f *fakeAdapter) ListInstances(ctx context.Context) ([]adapter.InstanceInfo, error) {
	return nil, nil
}
func (f *fakeAdapter) ExecuteCommand(ctx context.Context, instanceID, command string) (adapter.CommandResult, error) {
	return adapter.CommandResult{ExitCode: 0, Stdout: "ok"}, nil
}

func newTestEngine() *engine.Engine {
	reg := adapter.NewRegistry()
	reg.Register(&fakeAdapter{id: "aws", quotes: []model.Quote{
		{Provider: "aws", InstanceType: "a", PricePerHour: 1.0, Available: true, Availability: model.OnDemand},
	}})

	gov := governor.New(config.GovernorConfig{
		GlobalRequestsPerMinute: 6000,
		ProviderLimits: map[string]config.ProviderRateLimit{
			"aws": {RequestsPerSecond: 1000, RequestsPerMinute: 60000, BurstLimit: 1000, Timeout: 5 * time.Second},
		},
	})
	weights := config.OptimizationSettings{PriceWeight: 0.4, AvailabilityWeight: 0.3, LatencyWeight: 0.2, ReliabilityWeight: 0.1}

	return engine.New(reg, quote.New(reg, gov, 4, weights, config.DefaultProviderDescriptors()), allocate.New(), provision.New(reg, gov), stage.New(0, ""))
}

func TestHealth_AlwaysOK(t *testing.T) {
	router := NewRouter(newTestEngine(), "")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetQuotes_ReturnsAggregatedQuotesAsJSON(t *testing.T) {
	router := NewRouter(newTestEngine(), "")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/quotes", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["count"])
}

func TestProvision_RejectsNonPositiveCount(t *testing.T) {
	router := NewRouter(newTestEngine(), "")
	payload, _ := json.Marshal(map[string]interface{}{"count": 0})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/provision", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProvision_DryRunSucceeds(t *testing.T) {
	router := NewRouter(newTestEngine(), "")
	payload, _ := json.Marshal(map[string]interface{}{"count": 1, "dry_run": true})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/provision", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStageDataset_RejectsMissingFields(t *testing.T) {
	router := NewRouter(newTestEngine(), "")
	payload, _ := json.Marshal(map[string]interface{}{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/stage", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExecuteCommand_RejectsEmptyCommand(t *testing.T) {
	router := NewRouter(newTestEngine(), "")
	payload, _ := json.Marshal(map[string]interface{}{"command": ""})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/instances/aws_123/exec", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExecuteCommand_DispatchesToAdapter(t *testing.T) {
	router := NewRouter(newTestEngine(), "")
	payload, _ := json.Marshal(map[string]interface{}{"command": "echo hi"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/instances/aws_123/exec", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "ok", result["Stdout"])
}

func TestBearerAuth_DisabledWhenSecretEmpty(t *testing.T) {
	router := NewRouter(newTestEngine(), "")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/quotes", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "no secret configured means no auth is enforced")
}

func TestBearerAuth_RejectsMissingTokenWhenEnabled(t *testing.T) {
	router := NewRouter(newTestEngine(), "test-secret")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/quotes", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerAuth_RejectsInvalidToken(t *testing.T) {
	router := NewRouter(newTestEngine(), "test-secret")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/quotes", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerAuth_AcceptsValidToken(t *testing.T) {
	secret := "test-secret"
	router := NewRouter(newTestEngine(), secret)

	pair, err := auth.GenerateTokenPair(uuid.New(), "user@example.com", false, secret, time.Hour, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quotes", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthAndMetrics_NotGatedByBearerAuth(t *testing.T) {
	router := NewRouter(newTestEngine(), "test-secret")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
