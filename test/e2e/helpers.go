//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jerry-assistant/ragcore/internal/api/handlers"
	"github.com/jerry-assistant/ragcore/internal/cache"
	"github.com/jerry-assistant/ragcore/internal/chunking"
	"github.com/jerry-assistant/ragcore/internal/embedding"
	"github.com/jerry-assistant/ragcore/internal/ingest"
	"github.com/jerry-assistant/ragcore/internal/repository"
	"github.com/jerry-assistant/ragcore/internal/retriever"
	"github.com/jerry-assistant/ragcore/internal/server"
	"github.com/jerry-assistant/ragcore/internal/testutil"
)

const testAPIKey = "e2e-test-key"

// TestEnv holds the full stack under test: a pgvector-backed index, the
// hash embedding provider, a SQLite semantic cache and the HTTP server.
type TestEnv struct {
	T          *testing.T
	Ctx        context.Context
	Pool       *pgxpool.Pool
	Ingest     *ingest.Service
	Cache      *cache.Cache
	Server     *httptest.Server
	HTTPClient *http.Client
}

// SetupEnv starts a postgres container, runs migrations and wires the
// whole service the way the serve command does.
func SetupEnv(t *testing.T) *TestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	t.Cleanup(func() { _ = pgC.Terminate(context.Background()) })

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")
	t.Cleanup(pool.Close)

	logger := slog.New(slog.DiscardHandler)
	encoder := embedding.NewHashProvider(1536)
	chunkIndex := repository.NewChunkIndex(pool)

	ingestSvc := ingest.New(chunking.New(chunking.DefaultConfig()), encoder, chunkIndex, logger)

	rtr := retriever.NewWithConfig(encoder, chunkIndex, retriever.SemanticScorer{}, retriever.Config{
		TopK:                5,
		SimilarityThreshold: 0.3,
		MaxContextLength:    4000,
		QueryTimeout:        10 * time.Second,
	}, logger)

	store, err := cache.NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"), logger)
	if err != nil {
		t.Fatalf("failed to open cache store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	semanticCache := cache.New(store, encoder, logger)

	router := server.NewRouter(server.RouterConfig{
		APIKey:           testAPIKey,
		Logger:           logger,
		RetrievalHandler: handlers.NewRetrievalHandler(rtr),
		CacheHandler:     handlers.NewCacheHandler(semanticCache),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &TestEnv{
		T:          t,
		Ctx:        ctx,
		Pool:       pool,
		Ingest:     ingestSvc,
		Cache:      semanticCache,
		Server:     srv,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIResponse mirrors the server's response envelope.
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// Post sends an authenticated POST request to the test server.
func (e *TestEnv) Post(path string, body interface{}) (*APIResponse, int, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, 0, err
		}
		reqBody = bytes.NewReader(jsonData)
	}
	return e.do(http.MethodPost, path, reqBody, testAPIKey)
}

// Get sends an authenticated GET request to the test server.
func (e *TestEnv) Get(path string) (*APIResponse, int, error) {
	return e.do(http.MethodGet, path, nil, testAPIKey)
}

// PostUnauthenticated sends a POST without credentials.
func (e *TestEnv) PostUnauthenticated(path string) (*APIResponse, int, error) {
	return e.do(http.MethodPost, path, nil, "")
}

func (e *TestEnv) do(method, path string, body io.Reader, apiKey string) (*APIResponse, int, error) {
	req, err := http.NewRequest(method, e.Server.URL+path, body)
	if err != nil {
		return nil, 0, err
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to parse response %q: %w", respBody, err)
	}
	return &apiResp, resp.StatusCode, nil
}
