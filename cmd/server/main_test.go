package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/splitwiser/internal/config"
	"github.com/mmynk/splitwiser/internal/storage/sqlite"
	"github.com/mmynk/splitwiser/pkg/api"
)

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "server.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	cfg := config.Default()
	cfg.JWTSecret = "test-secret"

	server := httptest.NewServer(newHandler(cfg, store))
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})
	return server
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestHandler_OperationalEndpoints(t *testing.T) {
	server := setupServer(t)

	if code, body := get(t, server.URL+"/healthz"); code != http.StatusOK || body != "ok" {
		t.Errorf("/healthz = %d %q", code, body)
	}

	// Drive one RPC so the splitwiser collectors have samples.
	client := api.NewLedgerServiceClient(http.DefaultClient, server.URL)
	_, err := client.GetBalances(context.Background(), connect.NewRequest(&api.GetBalancesRequest{}))
	if connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Fatalf("expected unauthenticated, got %v", err)
	}

	code, body := get(t, server.URL+"/metrics")
	if code != http.StatusOK {
		t.Fatalf("/metrics = %d", code)
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Error("/metrics should expose the default Go collectors")
	}
}

func TestHandler_RegisterAndUseToken(t *testing.T) {
	server := setupServer(t)
	ctx := context.Background()

	authClient := api.NewAuthServiceClient(http.DefaultClient, server.URL)
	registered, err := authClient.Register(ctx, connect.NewRequest(&api.RegisterRequest{
		Email:       "alice@example.com",
		DisplayName: "Alice",
		Password:    "password123",
	}))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	req := connect.NewRequest(&api.GetBalancesRequest{})
	req.Header().Set("Authorization", "Bearer "+registered.Msg.Token)
	resp, err := api.NewLedgerServiceClient(http.DefaultClient, server.URL).GetBalances(ctx, req)
	if err != nil {
		t.Fatalf("GetBalances failed: %v", err)
	}
	if len(resp.Msg.Balances) != 0 {
		t.Errorf("new user should have no balances: %+v", resp.Msg.Balances)
	}
}
