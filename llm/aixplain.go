package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	// DefaultAixplainBaseURL is the aiXplain model execution endpoint.
	DefaultAixplainBaseURL = "https://models.aixplain.com/api/v1"

	// DefaultAixplainModelID is the pre-selected extraction model instance.
	DefaultAixplainModelID = "6646261c6eb563165658bbb1"
)

// AixplainClient runs prompts against a single pre-selected aiXplain model
// instance. The instance is chosen once at construction, not per request.
type AixplainClient struct {
	baseURL string
	apiKey  string
	modelID string
	client  *http.Client
}

// NewAixplainClient creates a client for the given model instance. Empty
// baseURL and modelID fall back to the defaults above.
func NewAixplainClient(baseURL, apiKey, modelID string) *AixplainClient {
	if baseURL == "" {
		baseURL = DefaultAixplainBaseURL
	}
	if modelID == "" {
		modelID = DefaultAixplainModelID
	}
	return &AixplainClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		modelID: modelID,
		client:  &http.Client{},
	}
}

type aixplainRunRequest struct {
	Text string `json:"text"`
}

// aixplainRunResponse is the explicit schema for the execution envelope. Only
// the data field carries the model's textual payload; when absent it decodes
// to the empty string, which downstream parsing treats as an empty result.
type aixplainRunResponse struct {
	Data         string `json:"data"`
	Status       string `json:"status"`
	Completed    bool   `json:"completed"`
	ErrorMessage string `json:"error_message"`
}

// Generate runs the prompt against the configured model instance and returns
// the textual payload of the response envelope.
func (c *AixplainClient) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(aixplainRunRequest{Text: prompt})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/execute/%s", c.baseURL, c.modelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("aixplain returned status %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}

	var result aixplainRunResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if result.ErrorMessage != "" {
		return "", fmt.Errorf("aixplain model error: %s", result.ErrorMessage)
	}
	return result.Data, nil
}

func readErrorBody(body io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(body, 512))
	if err != nil {
		return fmt.Sprintf("(failed to read response body: %v)", err)
	}
	return string(b)
}
