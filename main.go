package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/asqrzk/address-parser-api/config"
	"github.com/asqrzk/address-parser-api/llm"
	"github.com/asqrzk/address-parser-api/rag"
	"github.com/asqrzk/address-parser-api/server"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("loading configuration")
	}

	embedder := rag.NewOllamaEmbedder(cfg.OllamaBaseURL, cfg.EmbedModel)

	// The index is built (or loaded) exactly once; a missing corpus with no
	// persisted index means the service cannot answer anything and refuses
	// to start.
	index, err := rag.OpenIndex(context.Background(), cfg.IndexDir, cfg.CorpusPath, embedder)
	if err != nil {
		logger.Fatal().Err(err).Msg("opening reference index")
	}
	logger.Info().Int("documents", index.Len()).Str("model", embedder.ModelName()).Msg("reference index ready")

	generator, err := newGenerator(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("configuring generation provider")
	}

	srv := server.New(index, generator, logger, cfg.GenerateTimeout)

	logger.Info().Str("addr", cfg.ListenAddr).Str("provider", cfg.Provider).Msg("server listening")
	if err := http.ListenAndServe(cfg.ListenAddr, srv.Routes()); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

// newGenerator selects the generation provider once at startup.
func newGenerator(cfg *config.Config) (llm.Generator, error) {
	switch cfg.Provider {
	case config.ProviderAixplain:
		if cfg.AixplainAPIKey == "" {
			return nil, fmt.Errorf("AIXPLAIN_API_KEY is required for the aixplain provider")
		}
		return llm.NewAixplainClient(cfg.AixplainBaseURL, cfg.AixplainAPIKey, cfg.AixplainModelID), nil
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
		return llm.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
