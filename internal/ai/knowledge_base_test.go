package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrieveAndGenerate(t *testing.T) {
	var gotBody map[string]interface{}
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/retrieve-and-generate", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"output":{"text":"grounded answer"}}`))
	}))
	defer srv.Close()

	client := NewKnowledgeBaseClient(srv.URL, "secret")
	answer, err := client.RetrieveAndGenerate(context.Background(), "a prompt", "kb-1", "ds-1", "model-1", "key-ref")
	require.NoError(t, err)
	assert.Equal(t, "grounded answer", answer)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "a prompt", gotBody["input"])
	assert.Equal(t, "ds-1", gotBody["data_source_id"])
	assert.Equal(t, "key-ref", gotBody["encryption_key_ref"])
}

func TestRetrieveAndGenerateOmitsEmptyDataSource(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"output":{"text":"ok"}}`))
	}))
	defer srv.Close()

	client := NewKnowledgeBaseClient(srv.URL, "")
	_, err := client.RetrieveAndGenerate(context.Background(), "p", "kb-1", "", "model-1", "")
	require.NoError(t, err)
	assert.NotContains(t, gotBody, "data_source_id")
	assert.NotContains(t, gotBody, "encryption_key_ref")
}

func TestGenerateSendsParams(t *testing.T) {
	var gotBody struct {
		Input  string           `json:"input"`
		Params GenerationParams `json:"params"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"output":{"text":"free answer"}}`))
	}))
	defer srv.Close()

	client := NewKnowledgeBaseClient(srv.URL, "")
	answer, err := client.Generate(context.Background(), "p", "model-1", GenerationParams{
		MaxTokens:   512,
		Temperature: 0.7,
		TopP:        0.9,
		TopK:        40,
	})
	require.NoError(t, err)
	assert.Equal(t, "free answer", answer)
	assert.Equal(t, 512, gotBody.Params.MaxTokens)
	assert.Equal(t, 0.9, gotBody.Params.TopP)
}

func TestStartIngestionJob(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ingestion-jobs", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"job_id":"job-7"}`))
	}))
	defer srv.Close()

	client := NewKnowledgeBaseClient(srv.URL, "")
	jobID, err := client.StartIngestionJob(context.Background(), "kb-1", "ds-1", "token-1")
	require.NoError(t, err)
	assert.Equal(t, "job-7", jobID)
	assert.Equal(t, "token-1", gotBody["client_token"])
}

func TestErrorStatusSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewKnowledgeBaseClient(srv.URL, "")
	_, err := client.RetrieveAndGenerate(context.Background(), "p", "kb-1", "", "model-1", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}
