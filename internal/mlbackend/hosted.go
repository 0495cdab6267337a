package mlbackend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"backend/internal/config"
)

// HostedClient talks to a generic hosted classification endpoint that returns
// label scores only (huggingface-inference-style). Explanation and bias have
// to be synthesized client-side by its normalizer.
type HostedClient struct {
	url          string
	apiKey       string
	modelVersion string
	httpClient   *http.Client
}

type hostedRequest struct {
	Inputs string `json:"inputs"`
}

// HostedScore is one label/score entry from the hosted endpoint.
type HostedScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// HostedResponse represents the hosted endpoint's classification result:
// one score entry per class for the single input.
type HostedResponse struct {
	Scores []HostedScore
}

func (*HostedResponse) backendResponse() {}

// NewHostedClient creates a client for a generic hosted classification
// endpoint. A zero timeout means the call waits indefinitely.
func NewHostedClient(cfg config.BackendConfig) *HostedClient {
	return &HostedClient{
		url:          cfg.URL,
		apiKey:       cfg.APIKey,
		modelVersion: cfg.ModelVersion,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

func (c *HostedClient) Name() string { return config.VariantHosted }

func (c *HostedClient) ModelVersion() string { return c.modelVersion }

// Call classifies a single text. The language is not sent; hosted models are
// per-language deployments selected by URL. Exactly one network attempt.
func (c *HostedClient) Call(ctx context.Context, text, language string, opts Options) (Response, error) {
	jsonData, err := json.Marshal(hostedRequest{Inputs: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &CallError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	// The endpoint wraps results for a single input in an outer array.
	var nested [][]HostedScore
	if err := json.NewDecoder(resp.Body).Decode(&nested); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(nested) == 0 || len(nested[0]) == 0 {
		return nil, &CallError{StatusCode: resp.StatusCode, Body: "empty score list"}
	}

	return &HostedResponse{Scores: nested[0]}, nil
}
