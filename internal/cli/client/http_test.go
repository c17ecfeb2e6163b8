package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL:    baseURL,
		callerID:   "test-cli",
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestAPIClient_Post(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/verify", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "test-cli", r.Header.Get("X-Caller-ID"))

		var req VerifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Is gold rallying?", req.Query)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"answer": "yes"},
		})
	}))
	defer server.Close()

	api := newTestClient(server.URL)

	resp, err := api.Post("/verify", VerifyRequest{Query: "Is gold rallying?"})
	require.NoError(t, err)

	var verdict VerifyResponse
	require.NoError(t, json.Unmarshal(resp.Data, &verdict))
	assert.Equal(t, "yes", verdict.Answer)
}

func TestAPIClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/index/stats", r.URL.Path)

		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"total_chunks": 42},
		})
	}))
	defer server.Close()

	api := newTestClient(server.URL)

	resp, err := api.Get("/index/stats")
	require.NoError(t, err)

	var stats StatsResponse
	require.NoError(t, json.Unmarshal(resp.Data, &stats))
	assert.Equal(t, int64(42), stats.TotalChunks)
}

func TestAPIClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "pipeline worker pool is saturated",
		})
	}))
	defer server.Close()

	api := newTestClient(server.URL)

	_, err := api.Post("/verify", VerifyRequest{Query: "anything"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "saturated")
}

func TestAPIClient_NonJSONErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer server.Close()

	api := newTestClient(server.URL)

	_, err := api.Get("/index/stats")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "upstream exploded")
}

func TestAPIClient_NoCallerIDHeaderWhenUnset(t *testing.T) {
	var gotCaller string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCaller = r.Header.Get("X-Caller-ID")
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{}})
	}))
	defer server.Close()

	api := newTestClient(server.URL)
	api.callerID = ""

	_, err := api.Get("/health")
	require.NoError(t, err)
	assert.Empty(t, gotCaller)
}
