package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/portfolio-manager/internal/config"
	"github.com/aristath/portfolio-manager/internal/di"
	"github.com/aristath/portfolio-manager/internal/domain"
	"github.com/aristath/portfolio-manager/internal/modules/users"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir: t.TempDir(),
		Port:    8080,
		MarketData: config.MarketDataConfig{
			Provider:           config.ProviderAlphaVantage,
			AlphaVantageAPIKey: "demo",
			Timeout:            time.Second,
			RatePerMinute:      5,
		},
		News: config.NewsConfig{BaseURL: "http://127.0.0.1:1"},
		Auth: config.AuthConfig{
			JWTSecret:   "test-secret",
			TokenExpiry: time.Hour,
		},
		Banking: config.BankingConfig{
			DefaultBankName:     "HSBC Bank",
			AccountNumberPrefix: "ACC",
		},
		CacheCleanupSchedule: "0 0 * * * *",
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	container, err := di.Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	return New(Config{Log: zerolog.Nop(), Config: cfg, Container: container})
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	for _, path := range []string{"/health", "/api/health"} {
		t.Run(path, func(t *testing.T) {
			rec := do(s, httptest.NewRequest(http.MethodGet, path, nil))
			require.Equal(t, http.StatusOK, rec.Code)

			var body HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "healthy", body.Status)
			assert.Equal(t, map[string]string{"portfolio": "ok", "client_data": "ok"}, body.Databases)
		})
	}
}

func TestHealthReportsClosedDatabase(t *testing.T) {
	cfg := testConfig(t)
	container, err := di.Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	s := New(Config{Log: zerolog.Nop(), Config: cfg, Container: container})
	require.NoError(t, container.ClientDataDB.Close())
	t.Cleanup(func() { _ = container.PortfolioDB.Close() })

	rec := do(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "ok", body.Databases["portfolio"])
	assert.NotEqual(t, "ok", body.Databases["client_data"])
}

func TestSystemStatus(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/system/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body SystemStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, []string{"client_data_cleanup", "wal_checkpoint"}, body.Jobs)
	assert.Len(t, body.Databases, 2)
	assert.Greater(t, body.Goroutines, 0)
	assert.GreaterOrEqual(t, body.MemoryPercent, 0.0)
	require.Len(t, body.JobRuns, 2)
	assert.Equal(t, "client_data_cleanup", body.JobRuns[0].Name)
	assert.Zero(t, body.JobRuns[0].Runs)
}

func TestRunJob(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	rec := do(s, httptest.NewRequest(http.MethodPost, "/api/system/jobs/wal_checkpoint/run", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"job":"wal_checkpoint","status":"completed"}`, rec.Body.String())

	rec = do(s, httptest.NewRequest(http.MethodPost, "/api/system/jobs/defrag/run", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	for _, st := range s.container.Scheduler.Status() {
		if st.Name == "wal_checkpoint" {
			assert.Equal(t, 1, st.Runs)
		}
	}
}

func TestMetricsUseRoutePatterns(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	do(s, httptest.NewRequest(http.MethodGet, "/api/stocks/", nil))
	do(s, httptest.NewRequest(http.MethodGet, "/api/users/42", nil))
	do(s, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	rec := do(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, "portfolio_manager_http_requests_total")
	assert.Contains(t, text, `handler="/api/users/{id}"`)
	assert.Contains(t, text, `handler="unmatched"`)
	assert.NotContains(t, text, `handler="/api/users/42"`)
	assert.Contains(t, text, "go_goroutines")
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	req := httptest.NewRequest(http.MethodOptions, "/api/stocks/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	rec := do(s, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodGet)
}

func TestRequireAuth(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.RequireAuth = true
	s := newTestServer(t, cfg)

	t.Run("user routes need a token", func(t *testing.T) {
		rec := do(s, httptest.NewRequest(http.MethodGet, "/api/users/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
	})

	t.Run("valid token passes", func(t *testing.T) {
		token, err := s.container.TokenManager.Issue(1, "john")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/users/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := do(s, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("public routes stay open", func(t *testing.T) {
		rec := do(s, httptest.NewRequest(http.MethodGet, "/api/stocks/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = do(s, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func signup(t *testing.T, s *Server, username string) users.LoginResponse {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"email":"%s@example.com","password":"secret123"}`, username, username)
	rec := do(s, httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp users.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp
}

func TestUserScopedRoutesRejectOtherUsers(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.RequireAuth = true
	s := newTestServer(t, cfg)

	john := signup(t, s, "john")
	jane := signup(t, s, "jane")

	call := func(method, target, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+john.Token)
		return do(s, req)
	}

	rec := call(http.MethodPost, fmt.Sprintf("/api/bank-account/user/%d/create", john.UserID),
		`{"accountNumber":"ACC100","bankName":"HSBC Bank"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = call(http.MethodGet, fmt.Sprintf("/api/bank-account/user/%d", john.UserID), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = call(http.MethodGet, fmt.Sprintf("/api/users/%d", john.UserID), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	other := jane.UserID
	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"bank account", http.MethodGet, fmt.Sprintf("/api/bank-account/user/%d", other), ""},
		{"create bank account", http.MethodPost, fmt.Sprintf("/api/bank-account/user/%d/create", other), `{"accountNumber":"ACC200","bankName":"HSBC Bank"}`},
		{"withdraw", http.MethodPost, fmt.Sprintf("/api/bank-account/user/%d/withdraw", other), `{"amount":10}`},
		{"deposit", http.MethodPost, fmt.Sprintf("/api/bank-account/user/%d/deposit", other), `{"amount":10}`},
		{"chat", http.MethodPost, "/api/chatbot/chat", fmt.Sprintf(`{"userId":%d,"message":"hi","consentGiven":true}`, other)},
		{"clear consent", http.MethodPost, fmt.Sprintf("/api/chatbot/clear-consent/%d", other), ""},
		{"chat socket", http.MethodGet, fmt.Sprintf("/api/chatbot/ws?userId=%d", other), ""},
		{"portfolio", http.MethodGet, fmt.Sprintf("/api/portfolio/user/%d", other), ""},
		{"concentration", http.MethodGet, fmt.Sprintf("/api/portfolio/user/%d/concentration", other), ""},
		{"buy", http.MethodPost, fmt.Sprintf("/api/portfolio/buy?userId=%d&symbol=AAPL&quantity=1&buyPrice=10", other), ""},
		{"sell", http.MethodPost, fmt.Sprintf("/api/portfolio/sell?userId=%d&investmentId=1&quantity=1", other), ""},
		{"risk", http.MethodGet, fmt.Sprintf("/api/risk/analyze/%d", other), ""},
		{"get user", http.MethodGet, fmt.Sprintf("/api/users/%d", other), ""},
		{"update user", http.MethodPut, fmt.Sprintf("/api/users/%d", other), `{"firstName":"Mallory"}`},
		{"delete user", http.MethodDelete, fmt.Sprintf("/api/users/%d", other), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(tt.method, tt.target, tt.body)
			assert.Equal(t, http.StatusForbidden, rec.Code)
			assert.JSONEq(t, `{"error":"Access denied"}`, rec.Body.String())
		})
	}

	// jane's data is untouched
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/bank-account/user/%d", other), nil)
	req.Header.Set("Authorization", "Bearer "+jane.Token)
	rec = do(s, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var account domain.BankAccount
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &account))
	assert.True(t, account.Balance.IsZero())
	assert.NotEqual(t, "ACC200", account.AccountNumber)

	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/users/%d", other), nil)
	req.Header.Set("Authorization", "Bearer "+jane.Token)
	assert.Equal(t, http.StatusOK, do(s, req).Code)
}

type fakeParser struct {
	valid string
}

func (p fakeParser) Parse(token string) (*users.Claims, error) {
	if token != p.valid {
		return nil, errors.New("bad token")
	}
	return &users.Claims{UserID: 7, Username: "jane"}, nil
}

func TestRequireTokenMiddleware(t *testing.T) {
	var seen *domain.Principal
	handler := RequireToken(fakeParser{valid: "good"}, zerolog.Nop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = domain.PrincipalFromContext(r.Context())
			w.WriteHeader(http.StatusNoContent)
		}),
	)

	tests := []struct {
		name   string
		header string
		target string
		want   int
	}{
		{"no token", "", "/", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", "/", http.StatusUnauthorized},
		{"bad token", "Bearer nope", "/", http.StatusUnauthorized},
		{"bearer header", "Bearer good", "/", http.StatusNoContent},
		{"lowercase scheme", "bearer good", "/", http.StatusNoContent},
		{"query token", "", "/ws?token=good", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusNoContent {
				require.NotNil(t, seen)
				assert.Equal(t, int64(7), seen.UserID)
				assert.Equal(t, "jane", seen.Username)
			} else {
				assert.Nil(t, seen)
			}
		})
	}
}
