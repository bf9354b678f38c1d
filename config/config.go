// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Provider names accepted in LLM_PROVIDER.
const (
	ProviderAixplain = "aixplain"
	ProviderOpenAI   = "openai"
)

// Config holds all service configuration. Everything comes from environment
// variables, optionally seeded from a .env file in the working directory.
type Config struct {
	ListenAddr string

	OllamaBaseURL string
	EmbedModel    string

	CorpusPath string
	IndexDir   string

	Provider        string
	AixplainBaseURL string
	AixplainAPIKey  string
	AixplainModelID string
	OpenAIAPIKey    string
	OpenAIModel     string

	GenerateTimeout time.Duration
}

// Load reads configuration from the environment. A missing .env file is not
// an error; an unknown provider or malformed timeout is.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr:      getenv("LISTEN_ADDR", ":8080"),
		OllamaBaseURL:   getenv("OLLAMA_BASE_URL", "http://localhost:11434"),
		EmbedModel:      getenv("EMBED_MODEL", "nomic-embed-text"),
		CorpusPath:      getenv("CORPUS_PATH", "output.txt"),
		IndexDir:        getenv("INDEX_DIR", "chroma_db_all"),
		Provider:        getenv("LLM_PROVIDER", ProviderAixplain),
		AixplainBaseURL: os.Getenv("AIXPLAIN_BASE_URL"),
		AixplainAPIKey:  os.Getenv("AIXPLAIN_API_KEY"),
		AixplainModelID: os.Getenv("AIXPLAIN_MODEL_ID"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     os.Getenv("OPENAI_MODEL"),
	}

	if cfg.Provider != ProviderAixplain && cfg.Provider != ProviderOpenAI {
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q (want %q or %q)", cfg.Provider, ProviderAixplain, ProviderOpenAI)
	}

	seconds := getenv("GENERATE_TIMEOUT", "60")
	n, err := strconv.Atoi(seconds)
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("invalid GENERATE_TIMEOUT %q: want a positive number of seconds", seconds)
	}
	cfg.GenerateTimeout = time.Duration(n) * time.Second

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
