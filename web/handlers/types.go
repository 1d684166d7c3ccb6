package handlers

import (
	"github.com/crateful/linernotes/internal/config"
)

// ErrorResponse is the standard error response format for the API.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// StatsResponse is the response format for GET /api/stats.
type StatsResponse struct {
	Artists            int             `json:"artists"`
	CachedNetworks     int             `json:"cachedNetworks"`
	SingleNodeNetworks int             `json:"singleNodeNetworks"`
	NetworksBySource   map[string]int  `json:"networksBySource"`
	Generations        GenerationStats `json:"generations"`
}

// GenerationStats counts network builds since process start.
type GenerationStats struct {
	Started   int `json:"started"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// ConfigResponse is the response format for GET /api/config.
// API keys are masked for security.
type ConfigResponse struct {
	Storage    StorageConfigResponse    `json:"storage"`
	LLM        LLMConfigResponse        `json:"llm"`
	Providers  ProvidersConfigResponse  `json:"providers"`
	Generation GenerationConfigResponse `json:"generation"`
}

// StorageConfigResponse describes the configured storage backend.
type StorageConfigResponse struct {
	Engine   string `json:"engine"`
	DataPath string `json:"data_path,omitempty"`
}

// LLMConfigResponse contains LLM configuration with masked API keys.
type LLMConfigResponse struct {
	Provider        string `json:"provider"`
	OllamaURL       string `json:"ollama_url"`
	OllamaModel     string `json:"ollama_model"`
	EmbeddingModel  string `json:"embedding_model"`
	OpenAIAPIKey    string `json:"openai_api_key"` // Masked
	OpenAIModel     string `json:"openai_model"`
	AnthropicAPIKey string `json:"anthropic_api_key"` // Masked
	AnthropicModel  string `json:"anthropic_model"`
}

// ProvidersConfigResponse contains the external metadata provider endpoints.
type ProvidersConfigResponse struct {
	MusicgraphURL   string `json:"musicgraph_url"`
	EncyclopediaURL string `json:"encyclopedia_url"`
	ImageAPIURL     string `json:"image_api_url"`
	ImageAPIKey     string `json:"image_api_key"` // Masked
	TimeoutSeconds  int    `json:"timeout_seconds"`
}

// GenerationConfigResponse contains network generation tuning.
type GenerationConfigResponse struct {
	EnrichWorkers              int  `json:"enrich_workers"`
	AllowHallucinationsDefault bool `json:"allow_hallucinations_default"`
}

// MaskAPIKey masks an API key for safe display.
// Shows first 7 chars and last 4 chars, hides the middle.
func MaskAPIKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) < 8 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}

// ToConfigResponse converts a config.Config to ConfigResponse with masked keys.
func ToConfigResponse(cfg *config.Config) ConfigResponse {
	return ConfigResponse{
		Storage: StorageConfigResponse{
			Engine:   cfg.Storage.StorageEngine,
			DataPath: cfg.Storage.DataPath,
		},
		LLM: LLMConfigResponse{
			Provider:        cfg.LLM.LLMProvider,
			OllamaURL:       cfg.LLM.OllamaURL,
			OllamaModel:     cfg.LLM.OllamaModel,
			EmbeddingModel:  cfg.LLM.OllamaEmbeddingModel,
			OpenAIAPIKey:    MaskAPIKey(cfg.LLM.OpenAIAPIKey),
			OpenAIModel:     cfg.LLM.OpenAIModel,
			AnthropicAPIKey: MaskAPIKey(cfg.LLM.AnthropicAPIKey),
			AnthropicModel:  cfg.LLM.AnthropicModel,
		},
		Providers: ProvidersConfigResponse{
			MusicgraphURL:   cfg.Providers.MusicgraphURL,
			EncyclopediaURL: cfg.Providers.EncyclopediaURL,
			ImageAPIURL:     cfg.Providers.ImageAPIURL,
			ImageAPIKey:     MaskAPIKey(cfg.Providers.ImageAPIKey),
			TimeoutSeconds:  cfg.Providers.TimeoutSeconds,
		},
		Generation: GenerationConfigResponse{
			EnrichWorkers:              cfg.Generation.EnrichWorkers,
			AllowHallucinationsDefault: cfg.Generation.DefaultAllowHallucinations,
		},
	}
}
