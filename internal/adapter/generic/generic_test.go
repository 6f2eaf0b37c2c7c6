package generic

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoddden/terradev-broker/internal/adapter"
	"github.com/theoddden/terradev-broker/pkg/model"
)

func testCatalog() []StaticOffer {
	return []StaticOffer{
		{InstanceType: "rp.a100.1x", GPUFamily: model.GPUA100, GPUCount: 1, PricePerHour: 1.79, Region: "us-east-1"},
		{InstanceType: "rp.h100.1x", GPUFamily: model.GPUH100, GPUCount: 1, PricePerHour: 3.29, Region: "us-west-2", Spot: true},
	}
}

func TestGetQuotes_FiltersByGPUFamily(t *testing.T) {
	a := New(Config{ID: "runpod", Catalog: testCatalog()})
	quotes, err := a.GetQuotes(context.Background(), adapter.QuoteRequest{GPUFamily: model.GPUH100})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, model.GPUH100, quotes[0].GPUFamily)
	assert.Equal(t, model.Spot, quotes[0].Availability)
}

func TestGetQuotes_FiltersByMaxPrice(t *testing.T) {
	a := New(Config{ID: "runpod", Catalog: testCatalog()})
	quotes, err := a.GetQuotes(context.Background(), adapter.QuoteRequest{MaxPricePerHr: 2.0})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "rp.a100.1x", quotes[0].InstanceType)
}

func TestGetQuotes_TagsEveryQuoteWithItsProviderID(t *testing.T) {
	a := New(Config{ID: "runpod", Catalog: testCatalog()})
	quotes, err := a.GetQuotes(context.Background(), adapter.QuoteRequest{})
	require.NoError(t, err)
	for _, q := range quotes {
		assert.Equal(t, model.ProviderID("runpod"), q.Provider)
		assert.True(t, q.Available)
	}
}

func TestExecuteCommand_AlwaysReportsNotWired(t *testing.T) {
	a := New(Config{ID: "runpod"})
	_, err := a.ExecuteCommand(context.Background(), "instance-1", "echo hi")
	require.Error(t, err)
	assert.True(t, errors.Is(err, adapter.ErrExecuteCommandNotWired))
}

func TestProvision_FallsBackToMockIDWhenProviderOmitsOne(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"pending"}`))
	}))
	defer srv.Close()

	a := New(Config{ID: "runpod", BaseURL: srv.URL})
	inst, err := a.Provision(context.Background(), adapter.ProvisionRequest{InstanceType: "rp.a100.1x", Region: "us-east-1"})
	require.NoError(t, err)
	assert.Contains(t, inst.InstanceID, "mock_runpod_")
	assert.Equal(t, model.StatusActive, inst.Status)
}

func TestProvision_UsesProviderAssignedIDWhenPresent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"rp-12345","status":"pending"}`))
	}))
	defer srv.Close()

	a := New(Config{ID: "runpod", BaseURL: srv.URL})
	inst, err := a.Provision(context.Background(), adapter.ProvisionRequest{InstanceType: "rp.a100.1x"})
	require.NoError(t, err)
	assert.Equal(t, "rp-12345", inst.InstanceID)
}

func TestStatus_PropagatesProviderHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	a := New(Config{ID: "runpod", BaseURL: srv.URL})
	_, err := a.Status(context.Background(), "missing-instance")
	require.Error(t, err)
}
