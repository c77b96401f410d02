package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GenerationParams are the fixed decoding parameters for free-form
// generation.
type GenerationParams struct {
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	TopK        int     `json:"top_k"`
}

// KnowledgeBaseClient talks to the retrieval/generation backend over HTTP.
// The backend also runs the asynchronous ingestion jobs that keep the index
// in sync with the document set.
type KnowledgeBaseClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewKnowledgeBaseClient(baseURL, apiKey string) *KnowledgeBaseClient {
	return &KnowledgeBaseClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

// RetrieveAndGenerate runs grounded generation scoped to a knowledge base.
// dataSourceID may be empty to search the whole knowledge base. Returns ""
// when the backend produced no output.
func (c *KnowledgeBaseClient) RetrieveAndGenerate(
	ctx context.Context,
	prompt, knowledgeBaseID, dataSourceID, modelID, encryptionKeyRef string,
) (string, error) {
	reqBody := map[string]interface{}{
		"input":             prompt,
		"knowledge_base_id": knowledgeBaseID,
		"model_id":          modelID,
	}
	if dataSourceID != "" {
		reqBody["data_source_id"] = dataSourceID
	}
	if encryptionKeyRef != "" {
		reqBody["encryption_key_ref"] = encryptionKeyRef
	}

	raw, err := c.post(ctx, "/retrieve-and-generate", reqBody)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Output struct {
			Text string `json:"text"`
		} `json:"output"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse retrieve-and-generate response failed: %w", err)
	}
	return parsed.Output.Text, nil
}

// Generate runs free-form generation with fixed decoding parameters.
func (c *KnowledgeBaseClient) Generate(
	ctx context.Context,
	prompt, modelID string,
	params GenerationParams,
) (string, error) {
	reqBody := map[string]interface{}{
		"input":    prompt,
		"model_id": modelID,
		"params":   params,
	}

	raw, err := c.post(ctx, "/generate", reqBody)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Output struct {
			Text string `json:"text"`
		} `json:"output"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse generate response failed: %w", err)
	}
	return parsed.Output.Text, nil
}

// StartIngestionJob asks the backend to re-index the data source. The
// clientToken makes retried requests idempotent on the backend side;
// completion is not polled here.
func (c *KnowledgeBaseClient) StartIngestionJob(
	ctx context.Context,
	knowledgeBaseID, dataSourceID, clientToken string,
) (string, error) {
	reqBody := map[string]interface{}{
		"knowledge_base_id": knowledgeBaseID,
		"data_source_id":    dataSourceID,
		"client_token":      clientToken,
	}

	raw, err := c.post(ctx, "/ingestion-jobs", reqBody)
	if err != nil {
		return "", err
	}

	var parsed struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse ingestion job response failed: %w", err)
	}
	return parsed.JobID, nil
}

func (c *KnowledgeBaseClient) post(ctx context.Context, path string, body interface{}) ([]byte, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal kb request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build kb request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kb request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read kb response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("kb response status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}
