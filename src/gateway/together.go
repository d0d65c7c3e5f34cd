package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// TogetherClient calls the Together inference endpoint, used for the raw
// code generation role. The API takes a single prompt, so the system
// instruction is folded into it.
type TogetherClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

const togetherBaseURL = "https://api.together.ai"

func NewTogetherClient(apiKey, baseURL, model string, timeout time.Duration) *TogetherClient {
	if baseURL == "" {
		baseURL = togetherBaseURL
	}
	return &TogetherClient{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type togetherResponse struct {
	Output struct {
		Choices []struct {
			Text string `json:"text"`
		} `json:"choices"`
	} `json:"output"`
}

func (c *TogetherClient) Generate(ctx context.Context, role Role, system, user string) (string, error) {
	prompt := user
	if system != "" {
		prompt = system + "\n\n" + user
	}

	payload := map[string]any{
		"model":       c.model,
		"prompt":      prompt,
		"max_tokens":  2000,
		"temperature": 0.7,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/inference", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &GatewayError{Provider: "together", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(resp.Body)
		return "", &GatewayError{Provider: "together", Status: resp.StatusCode, Body: buf.String()}
	}

	var parsed togetherResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Output.Choices) == 0 {
		return "", fmt.Errorf("empty completion from %s", c.baseURL)
	}
	return parsed.Output.Choices[0].Text, nil
}
