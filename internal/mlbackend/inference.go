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

// InferenceClient talks to the dedicated detection service, which returns the
// full outcome (label, confidence, probabilities, explanation, bias scores)
// in a single call.
type InferenceClient struct {
	baseURL      string
	modelVersion string
	httpClient   *http.Client
}

// inferenceRequest is the detection service's classify request body.
type inferenceRequest struct {
	Text               string `json:"text"`
	Language           string `json:"language"`
	IncludeExplanation bool   `json:"include_explanation"`
	IncludeBias        bool   `json:"include_bias"`
}

// InferenceExplanation is the raw attribution block from the service.
type InferenceExplanation struct {
	Tokens      []string  `json:"tokens"`
	Importances []float64 `json:"importances"`
	Method      string    `json:"method"`
}

// InferenceBiasScores is the raw bias block from the service. Overall is
// reported by the service independently of the sub-scores.
type InferenceBiasScores struct {
	Gender    float64 `json:"gender"`
	Ethnic    float64 `json:"ethnic"`
	Religious float64 `json:"religious"`
	Overall   float64 `json:"overall"`
}

// InferenceResponse represents the classification result from the dedicated
// detection service.
type InferenceResponse struct {
	Label         int                   `json:"label"`
	Confidence    float64               `json:"confidence"`
	Probabilities []float64             `json:"probabilities"`
	Explanation   *InferenceExplanation `json:"explanation,omitempty"`
	BiasScores    *InferenceBiasScores  `json:"bias_scores,omitempty"`
	ModelVersion  string                `json:"model_version,omitempty"`
}

func (*InferenceResponse) backendResponse() {}

// NewInferenceClient creates a client for the dedicated detection service.
// A zero timeout means the call waits indefinitely.
func NewInferenceClient(cfg config.BackendConfig) *InferenceClient {
	return &InferenceClient{
		baseURL:      cfg.URL,
		modelVersion: cfg.ModelVersion,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

func (c *InferenceClient) Name() string { return config.VariantInference }

func (c *InferenceClient) ModelVersion() string { return c.modelVersion }

// Call classifies a single text. Exactly one network attempt is made.
func (c *InferenceClient) Call(ctx context.Context, text, language string, opts Options) (Response, error) {
	reqBody := inferenceRequest{
		Text:               text,
		Language:           language,
		IncludeExplanation: opts.Explain,
		IncludeBias:        opts.Bias,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/classify", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &CallError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result InferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.ModelVersion == "" {
		result.ModelVersion = c.modelVersion
	}

	return &result, nil
}
