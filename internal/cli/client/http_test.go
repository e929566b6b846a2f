package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClient_PostSendsAuthHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"results": []any{}}})
	}))
	defer srv.Close()

	api := NewAPIClientWithConfig("secret", srv.URL)

	resp, err := api.Post("/v1/search", SearchRequest{Query: "restart"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.NotNil(t, resp.Data)
}

func TestAPIClient_NoAuthHeaderWithoutKey(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{}})
	}))
	defer srv.Close()

	api := NewAPIClientWithConfig("", srv.URL)

	_, err := api.Get("/v1/stats")
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestAPIClient_SurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"error": "query is required"})
	}))
	defer srv.Close()

	api := NewAPIClientWithConfig("", srv.URL)

	_, err := api.Post("/v1/search", SearchRequest{})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "query is required", apiErr.Message)
}

func TestAPIClient_NonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	api := NewAPIClientWithConfig("", srv.URL)

	_, err := api.Get("/v1/stats")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "upstream exploded")
}

func TestParseFilters(t *testing.T) {
	filter, err := parseFilters([]string{"lang=en", "team=platform"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"lang": "en", "team": "platform"}, filter)

	filter, err = parseFilters(nil)
	require.NoError(t, err)
	assert.Nil(t, filter)

	_, err = parseFilters([]string{"notapair"})
	assert.Error(t, err)

	_, err = parseFilters([]string{"=value"})
	assert.Error(t, err)
}
