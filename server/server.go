// Package server exposes the address parsing pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/asqrzk/address-parser-api/extract"
	"github.com/asqrzk/address-parser-api/llm"
	"github.com/asqrzk/address-parser-api/rag"
)

// DefaultGenerateTimeout bounds the two generation calls of one request. The
// generation service is the only unbounded-latency dependency, so a request
// that exceeds this deadline is answered with a gateway error rather than
// held open.
const DefaultGenerateTimeout = 60 * time.Second

// Server orchestrates one request through validate, retrieve, compose,
// generate and reconcile. The index and generator are shared across requests
// and read-only after construction.
type Server struct {
	index      *rag.Index
	generator  llm.Generator
	log        zerolog.Logger
	genTimeout time.Duration
}

func New(index *rag.Index, generator llm.Generator, log zerolog.Logger, genTimeout time.Duration) *Server {
	if genTimeout <= 0 {
		genTimeout = DefaultGenerateTimeout
	}
	return &Server{
		index:      index,
		generator:  generator,
		log:        log,
		genTimeout: genTimeout,
	}
}

// Routes returns the service handler with CORS applied.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/parse-address", s.parseAddressHandler)
	return allowAll(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("ok\n"))
}

type parseAddressRequest struct {
	Address string `json:"address"`
}

// POST /parse-address  { "address": "..." }
func (s *Server) parseAddressHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()

	var req parseAddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if !IsValidAddress(req.Address) {
		writeDetail(w, http.StatusBadRequest, "Invalid address provided.")
		return
	}

	docs, err := s.index.Retrieve(r.Context(), req.Address, rag.DefaultTopK, rag.DefaultScoreThreshold)
	if err != nil {
		s.log.Error().Err(err).Msg("retrieval failed")
		writeDetail(w, http.StatusBadGateway, "Address lookup failed.")
		return
	}

	// Empty retrieval is passed through; the structural prompt simply
	// carries an empty context block.
	structuralPrompt, descriptivePrompt := extract.ComposePrompts(req.Address, docs)

	ctx, cancel := context.WithTimeout(r.Context(), s.genTimeout)
	defer cancel()

	rawStructural, err := s.generator.Generate(ctx, structuralPrompt)
	if err != nil {
		s.log.Error().Err(err).Msg("structural extraction failed")
		writeDetail(w, http.StatusBadGateway, "Address extraction failed.")
		return
	}
	rawDescriptive, err := s.generator.Generate(ctx, descriptivePrompt)
	if err != nil {
		s.log.Error().Err(err).Msg("descriptive extraction failed")
		writeDetail(w, http.StatusBadGateway, "Address extraction failed.")
		return
	}

	structural := extract.ParsePayload(rawStructural)
	descriptive := extract.ParsePayload(rawDescriptive)
	if structural.Err != nil {
		s.log.Warn().Err(structural.Err).Msg("structural payload unparseable, using empty result")
	}
	if descriptive.Err != nil {
		s.log.Warn().Err(descriptive.Err).Msg("descriptive payload unparseable, using empty result")
	}

	record := extract.Merge(structural, descriptive)
	record["processing_time"] = extract.FormatProcessingTime(time.Since(start))

	s.log.Info().
		Int("documents", len(docs)).
		Int("fields", len(record)).
		Dur("elapsed", time.Since(start)).
		Msg("address parsed")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

// writeDetail writes an error response in the {"detail": ...} envelope.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

// allowAll is the permissive CORS posture of the original deployment: all
// origins, methods and headers. Tighten before exposing publicly.
func allowAll(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "*")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
