package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/crateful/linernotes/internal/config"
)

// LLMModelHandlers handles LLM provider discovery and connectivity testing
// for the generative source.
type LLMModelHandlers struct {
	config *config.Config
	client *http.Client
}

// NewLLMModelHandlers creates a new LLMModelHandlers instance.
func NewLLMModelHandlers(cfg *config.Config) *LLMModelHandlers {
	return &LLMModelHandlers{
		config: cfg,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// AvailableModelsResponse is the response for available models endpoint
type AvailableModelsResponse struct {
	Provider string   `json:"provider"`
	Models   []string `json:"models"`
	Error    string   `json:"error,omitempty"`
}

// TestLLMConnectionResponse is the response for the connection probe
type TestLLMConnectionResponse struct {
	Success         bool     `json:"success"`
	Provider        string   `json:"provider"`
	AvailableModels []string `json:"available_models,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// GetAvailableModels handles GET /api/llm/available-models
// Lists models for a provider; defaults to the configured one.
func (h *LLMModelHandlers) GetAvailableModels(w http.ResponseWriter, r *http.Request) {
	provider := r.URL.Query().Get("provider")
	if provider == "" {
		provider = h.config.LLM.LLMProvider
	}
	apiKey := h.apiKeyFor(provider, r.URL.Query().Get("api_key"))
	baseURL := h.baseURLFor(provider, r.URL.Query().Get("base_url"))

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	var models []string
	var err error

	switch provider {
	case "ollama":
		models, err = h.getOllamaModels(ctx, baseURL)
	case "openai":
		models, err = h.getOpenAIModels(ctx, apiKey)
	case "anthropic":
		models, err = h.getAnthropicModels(ctx, apiKey)
	default:
		respondError(w, http.StatusBadRequest, "unsupported provider", nil)
		return
	}

	resp := AvailableModelsResponse{
		Provider: provider,
		Models:   models,
	}
	if err != nil {
		resp.Error = err.Error()
	}

	respondJSON(w, http.StatusOK, resp)
}

// TestConnection handles GET /api/llm/test-connection
// Probes the generative provider's reachability. With no query parameters
// the configured provider is probed; provider, api_key and base_url may be
// overridden to test a candidate configuration before saving it.
func (h *LLMModelHandlers) TestConnection(w http.ResponseWriter, r *http.Request) {
	provider := r.URL.Query().Get("provider")
	if provider == "" {
		provider = h.config.LLM.LLMProvider
	}
	apiKey := h.apiKeyFor(provider, r.URL.Query().Get("api_key"))
	baseURL := h.baseURLFor(provider, r.URL.Query().Get("base_url"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := TestLLMConnectionResponse{Provider: provider}

	switch provider {
	case "ollama":
		if err := h.testOllamaConnection(ctx, baseURL); err == nil {
			resp.Success = true
			models, _ := h.getOllamaModels(ctx, baseURL)
			resp.AvailableModels = models
		} else {
			resp.Error = err.Error()
		}
	case "openai":
		if err := h.testOpenAIConnection(ctx, apiKey); err == nil {
			resp.Success = true
			models, _ := h.getOpenAIModels(ctx, apiKey)
			resp.AvailableModels = models
		} else {
			resp.Error = err.Error()
		}
	case "anthropic":
		if err := h.testAnthropicConnection(ctx, apiKey); err == nil {
			resp.Success = true
			models, _ := h.getAnthropicModels(ctx, apiKey)
			resp.AvailableModels = models
		} else {
			resp.Error = err.Error()
		}
	default:
		resp.Error = fmt.Sprintf("unsupported provider: %q", provider)
	}

	respondJSON(w, http.StatusOK, resp)
}

// apiKeyFor returns the override key when given, otherwise the configured
// key for the provider.
func (h *LLMModelHandlers) apiKeyFor(provider, override string) string {
	if override != "" {
		return override
	}
	switch provider {
	case "openai":
		return h.config.LLM.OpenAIAPIKey
	case "anthropic":
		return h.config.LLM.AnthropicAPIKey
	}
	return ""
}

// baseURLFor returns the override URL when given, otherwise the configured
// URL for the provider.
func (h *LLMModelHandlers) baseURLFor(provider, override string) string {
	if override != "" {
		return override
	}
	if provider == "ollama" {
		return h.config.LLM.OllamaURL
	}
	return ""
}

// getOllamaModels fetches available models from Ollama
func (h *LLMModelHandlers) getOllamaModels(ctx context.Context, baseURL string) ([]string, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	req, err := http.NewRequestWithContext(ctx, "GET", baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ollama: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse Ollama response: %w", err)
	}

	var models []string
	for _, m := range result.Models {
		if m.Name != "" {
			models = append(models, m.Name)
		}
	}

	return models, nil
}

// testOllamaConnection tests Ollama connection
func (h *LLMModelHandlers) testOllamaConnection(ctx context.Context, baseURL string) error {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	req, err := http.NewRequestWithContext(ctx, "GET", baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to Ollama at %s: %w", baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	return nil
}

// getOpenAIModels returns the known OpenAI completion models.
func (h *LLMModelHandlers) getOpenAIModels(ctx context.Context, apiKey string) ([]string, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key required for OpenAI")
	}

	return []string{
		"gpt-4-turbo",
		"gpt-4",
		"gpt-3.5-turbo",
	}, nil
}

// testOpenAIConnection tests OpenAI connection
func (h *LLMModelHandlers) testOpenAIConnection(ctx context.Context, apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("API key required")
	}

	req, err := http.NewRequestWithContext(ctx, "GET", "https://api.openai.com/v1/models", nil)
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to OpenAI: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("invalid API key")
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("OpenAI returned status %d", resp.StatusCode)
	}

	return nil
}

// getAnthropicModels returns the known Anthropic models.
func (h *LLMModelHandlers) getAnthropicModels(ctx context.Context, apiKey string) ([]string, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key required for Anthropic")
	}

	return []string{
		"claude-opus-4-1",
		"claude-sonnet-4-20250514",
		"claude-haiku-4-5-20251001",
	}, nil
}

// testAnthropicConnection tests Anthropic connection
func (h *LLMModelHandlers) testAnthropicConnection(ctx context.Context, apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("API key required")
	}

	model := h.config.LLM.AnthropicModel
	if model == "" {
		model = "claude-haiku-4-5-20251001"
	}

	payload := map[string]interface{}{
		"model":      model,
		"max_tokens": 10,
		"messages": []map[string]string{
			{"role": "user", "content": "test"},
		},
	}

	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, "POST", "https://api.anthropic.com/v1/messages", bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("content-type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to Anthropic: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("invalid API key")
	}

	// 4xx other than 401 can be rate limiting or model mismatch; the
	// connection itself is fine.
	if resp.StatusCode >= 500 {
		return fmt.Errorf("anthropic service error: status %d", resp.StatusCode)
	}

	return nil
}
