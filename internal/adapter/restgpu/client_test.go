package restgpu

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoResponse struct {
	Got string `json:"got"`
}

func TestDoJSON_SendsAuthHeaderAndDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "/v1/instances", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"got":"ok"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "Authorization", "Bearer sk-test")
	var out echoResponse
	err := c.DoJSON(context.Background(), http.MethodGet, "/v1/instances", nil, &out)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Got)
}

func TestDoJSON_MarshalsRequestBody(t *testing.T) {
	type reqBody struct {
		Name string `json:"name"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "")
	err := c.DoJSON(context.Background(), http.MethodPost, "/v1/create", reqBody{Name: "gpu-box"}, nil)
	require.NoError(t, err)
}

func TestDoJSON_NonSuccessStatusReturnsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("rate limited"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "")
	err := c.DoJSON(context.Background(), http.MethodGet, "/v1/quotes", nil, nil)
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusTooManyRequests, httpErr.StatusCode)
	assert.Contains(t, httpErr.Body, "rate limited")
}

func TestDoJSON_OmitsAuthHeaderWhenUnset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "")
	err := c.DoJSON(context.Background(), http.MethodGet, "/v1/ping", nil, nil)
	require.NoError(t, err)
}
