package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/splitwiser/internal/auth"
	"github.com/mmynk/splitwiser/internal/ledger"
	"github.com/mmynk/splitwiser/internal/middleware"
	"github.com/mmynk/splitwiser/internal/storage/sqlite"
	"github.com/mmynk/splitwiser/pkg/api"
)

type testClients struct {
	auth   *api.AuthServiceClient
	ledger *api.LedgerServiceClient
	groups *api.GroupServiceClient
}

// testUser is a registered account with its bearer token.
type testUser struct {
	id    string
	token string
}

// setupTestServer serves all three services over a temp database, wired
// with the same interceptors as the server binary.
func setupTestServer(t *testing.T) *testClients {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store, bcrypt.MinCost)
	l := ledger.New(store, store)

	common := connect.WithInterceptors(middleware.MetricsInterceptor(), middleware.LoggingInterceptor())
	required := connect.WithInterceptors(middleware.RequireAuth(jwtManager))
	optional := connect.WithInterceptors(middleware.OptionalAuth(jwtManager))

	mux := http.NewServeMux()
	mux.Handle(api.NewAuthServiceHandler(NewAuthService(authenticator, jwtManager, slog.Default()), optional, common))
	mux.Handle(api.NewLedgerServiceHandler(NewLedgerService(l), required, common))
	mux.Handle(api.NewGroupServiceHandler(NewGroupService(store, l), required, common))

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	return &testClients{
		auth:   api.NewAuthServiceClient(http.DefaultClient, server.URL),
		ledger: api.NewLedgerServiceClient(http.DefaultClient, server.URL),
		groups: api.NewGroupServiceClient(http.DefaultClient, server.URL),
	}
}

func (c *testClients) register(t *testing.T, name string) testUser {
	t.Helper()
	resp, err := c.auth.Register(context.Background(), connect.NewRequest(&api.RegisterRequest{
		Email:       strings.ToLower(name) + "@example.com",
		DisplayName: name,
		Password:    "password123",
	}))
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", name, err)
	}
	return testUser{id: resp.Msg.User.ID, token: resp.Msg.Token}
}

// as builds a request authenticated as u.
func as[T any](u testUser, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+u.token)
	return req
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got success", want)
	}
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		t.Fatalf("expected connect error, got %v", err)
	}
	if connectErr.Code() != want {
		t.Fatalf("code = %v, want %v (%v)", connectErr.Code(), want, connectErr.Message())
	}
}

func balanceOf(t *testing.T, c *testClients, u testUser) map[string]string {
	t.Helper()
	resp, err := c.ledger.GetBalances(context.Background(), as(u, &api.GetBalancesRequest{}))
	if err != nil {
		t.Fatalf("GetBalances failed: %v", err)
	}
	out := make(map[string]string)
	for _, b := range resp.Msg.Balances {
		out[b.CounterpartyID] = b.Net.StringFixed(2)
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}
