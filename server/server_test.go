package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/asqrzk/address-parser-api/rag"
)

// testEmbedder is deterministic and content-sensitive; it fails on demand to
// simulate an unreachable embedding service.
type testEmbedder struct {
	fail bool
}

func (e *testEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.fail {
		return nil, fmt.Errorf("embedding service unavailable")
	}
	vec := make([]float32, 16)
	for _, r := range text {
		vec[int(r)%16]++
	}
	return vec, nil
}

func (e *testEmbedder) ModelName() string { return "test-model" }

// fakeGenerator answers the structural and descriptive prompts with canned
// payloads, telling them apart by their instruction text.
type fakeGenerator struct {
	structural  string
	descriptive string
	err         error
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	if strings.Contains(prompt, "region name and emirate name") {
		return g.structural, nil
	}
	return g.descriptive, nil
}

func newTestIndex(t *testing.T, embedder rag.Embedder) *rag.Index {
	t.Helper()
	dir := t.TempDir()
	corpus := filepath.Join(dir, "output.txt")
	content := "Al Musafah, Abu Dhabi\nMussafah Industrial Area, Abu Dhabi\nAl Karamah, Abu Dhabi\nAl Barsha, Dubai"
	if err := os.WriteFile(corpus, []byte(content), 0o644); err != nil {
		t.Fatalf("writing corpus: %v", err)
	}
	ix, err := rag.OpenIndex(context.Background(), filepath.Join(dir, "index"), corpus, embedder)
	if err != nil {
		t.Fatalf("building test index: %v", err)
	}
	return ix
}

func newTestServer(t *testing.T, gen *fakeGenerator) (*Server, *testEmbedder) {
	t.Helper()
	embedder := &testEmbedder{}
	ix := newTestIndex(t, embedder)
	return New(ix, gen, zerolog.Nop(), 0), embedder
}

func postAddress(t *testing.T, h http.Handler, address string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"address": address})
	req := httptest.NewRequest(http.MethodPost, "/parse-address", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestParseAddress_HappyPath(t *testing.T) {
	srv, _ := newTestServer(t, &fakeGenerator{
		structural:  `{"region_name": "Al Musafah", "region_code": null, "emirate_name": "Abu Dhabi", "emirate_code": "AUH"}`,
		descriptive: `{"addressee name": null, "villa number or flat number": "12", "street": null}`,
	})

	w := postAddress(t, srv.Routes(), "Villa 12, Al Musaffah, Abu Dhabi")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var record map[string]any
	if err := json.NewDecoder(w.Body).Decode(&record); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if record["emirate_name"] != "Abu Dhabi" {
		t.Fatalf("expected emirate_name Abu Dhabi, got %v", record["emirate_name"])
	}
	if record["villa number or flat number"] != "12" {
		t.Fatalf("expected villa number 12, got %v", record["villa number or flat number"])
	}

	pt, ok := record["processing_time"].(string)
	if !ok {
		t.Fatalf("expected processing_time string, got %v", record["processing_time"])
	}
	if !regexp.MustCompile(`^\d+\.\d{4} seconds$`).MatchString(pt) {
		t.Fatalf("unexpected processing_time format: %q", pt)
	}
}

func TestParseAddress_RejectsInvalidAddress(t *testing.T) {
	srv, _ := newTestServer(t, &fakeGenerator{})

	w := postAddress(t, srv.Routes(), "hi there")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["detail"] != "Invalid address provided." {
		t.Fatalf("unexpected detail: %q", body["detail"])
	}
}

func TestParseAddress_BadRequestBody(t *testing.T) {
	srv, _ := newTestServer(t, &fakeGenerator{})

	req := httptest.NewRequest(http.MethodPost, "/parse-address", strings.NewReader("not json"))
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", w.Code)
	}
}

func TestParseAddress_WrongMethod(t *testing.T) {
	srv, _ := newTestServer(t, &fakeGenerator{})

	req := httptest.NewRequest(http.MethodGet, "/parse-address", nil)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET, got %d", w.Code)
	}
}

func TestParseAddress_RetrievalFailureIsServerError(t *testing.T) {
	srv, embedder := newTestServer(t, &fakeGenerator{})
	embedder.fail = true

	w := postAddress(t, srv.Routes(), "Villa 12, Al Musaffah, Abu Dhabi")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 when embedding fails, got %d", w.Code)
	}

	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["detail"] != "Address lookup failed." {
		t.Fatalf("unexpected detail: %q", body["detail"])
	}
}

func TestParseAddress_GenerationFailureIsServerError(t *testing.T) {
	srv, _ := newTestServer(t, &fakeGenerator{err: fmt.Errorf("model timed out")})

	w := postAddress(t, srv.Routes(), "Villa 12, Al Musaffah, Abu Dhabi")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 when generation fails, got %d", w.Code)
	}

	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["detail"] != "Address extraction failed." {
		t.Fatalf("unexpected detail: %q", body["detail"])
	}
}

// One malformed model response degrades to an empty half, not an error.
func TestParseAddress_ToleratesMalformedStructuralPayload(t *testing.T) {
	srv, _ := newTestServer(t, &fakeGenerator{
		structural:  "the model rambled instead of answering",
		descriptive: `{"street": "Hamdan St", "landmark": null}`,
	})

	w := postAddress(t, srv.Routes(), "Villa 12, Al Musaffah, Abu Dhabi")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var record map[string]any
	if err := json.NewDecoder(w.Body).Decode(&record); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if record["street"] != "Hamdan St" {
		t.Fatalf("expected descriptive fields to survive, got %v", record)
	}
	if _, ok := record["region_name"]; ok {
		t.Fatalf("did not expect structural fields after a parse failure")
	}
	if _, ok := record["processing_time"]; !ok {
		t.Fatalf("expected processing_time to always be present")
	}
}

func TestParseAddress_MergePrecedence(t *testing.T) {
	srv, _ := newTestServer(t, &fakeGenerator{
		structural:  `{"region_name": "X"}`,
		descriptive: `{"region_name": "Y", "email": "z@z.com"}`,
	})

	w := postAddress(t, srv.Routes(), "Villa 12, Al Musaffah, Abu Dhabi")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var record map[string]any
	json.NewDecoder(w.Body).Decode(&record)
	if record["region_name"] != "X" {
		t.Fatalf("expected structural value to win, got %v", record["region_name"])
	}
	if record["email"] != "z@z.com" {
		t.Fatalf("expected descriptive email, got %v", record["email"])
	}
}

func TestCORS_Permissive(t *testing.T) {
	srv, _ := newTestServer(t, &fakeGenerator{})
	h := srv.Routes()

	req := httptest.NewRequest(http.MethodOptions, "/parse-address", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected permissive CORS origin header")
	}
}

func TestHealth_OK(t *testing.T) {
	srv, _ := newTestServer(t, &fakeGenerator{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
