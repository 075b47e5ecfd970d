package feedback

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Ingest_SendsAuthAndDecodesRecord(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/feedback", r.URL.Path)

		var item Item
		require.NoError(t, json.NewDecoder(r.Body).Decode(&item))
		assert.Equal(t, "twitter", item.Source)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Record{ID: "abc", Source: "twitter", Content: "slow dashboard"})
	}))
	defer srv.Close()

	client, err := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "secret"})
	require.NoError(t, err)

	rec, err := client.Ingest(context.Background(), Item{
		Source: "twitter",
		Fields: map[string]interface{}{"text": "slow dashboard"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "abc", rec.ID)
	assert.Equal(t, "slow dashboard", rec.Content)
}

func TestClient_Search_DecodesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/search", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "critical issues", body["query"])

		json.NewEncoder(w).Encode(SearchResult{
			Results: []map[string]interface{}{{"content": "api down"}},
			Summary: "Found 1 matching feedback items: 1 Critical.",
			Count:   1,
		})
	}))
	defer srv.Close()

	client, err := NewClient(ClientConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	result, err := client.Search(context.Background(), "critical issues")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, "api down", result.Results[0]["content"])
}

func TestClient_Get_NotFoundReturnsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "feedback not found"})
	}))
	defer srv.Close()

	client, err := NewClient(ClientConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Get(context.Background(), "missing-id")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "feedback not found", apiErr.Message)
}

func TestNewClient_DefaultsBaseURL(t *testing.T) {
	client, err := NewClient(ClientConfig{})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8090", client.baseURL)
}
