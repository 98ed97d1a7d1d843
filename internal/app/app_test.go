package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikhailRaia/codekeeper/internal/config"
	"github.com/MikhailRaia/codekeeper/internal/storage/file"
	"github.com/MikhailRaia/codekeeper/internal/storage/gormstore"
	"github.com/MikhailRaia/codekeeper/internal/storage/memory"
)

func testConfig() *config.Config {
	return &config.Config{
		ServerAddress:   "127.0.0.1:0",
		BaseURL:         "http://localhost:8080",
		JWTSecret:       "integration-secret",
		TokenTTL:        time.Hour,
		CacheTTL:        time.Minute,
		ShutdownTimeout: time.Second,
	}
}

type client struct {
	t      *testing.T
	server *httptest.Server
	http   *http.Client
	token  string
}

func (c *client) do(method, path, body string) (*http.Response, map[string]any) {
	c.t.Helper()

	req, err := http.NewRequest(method, c.server.URL+path, strings.NewReader(body))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&decoded))
	}
	return resp, decoded
}

func (c *client) signupAndLogin(name, email string) {
	c.t.Helper()

	resp, _ := c.do(http.MethodPost, "/user/signup",
		`{"name":"`+name+`","email":"`+email+`","password":"correct horse"}`)
	require.Equal(c.t, http.StatusCreated, resp.StatusCode)

	resp, body := c.do(http.MethodPost, "/user/login",
		`{"email":"`+email+`","password":"correct horse"}`)
	require.Equal(c.t, http.StatusOK, resp.StatusCode)
	c.token = body["token"].(string)
}

func TestApp_Integration(t *testing.T) {
	a, err := NewApp(context.Background(), testConfig())
	require.NoError(t, err)
	defer a.Close()

	server := httptest.NewServer(a.handler)
	defer server.Close()

	noRedirect := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	alice := &client{t: t, server: server, http: noRedirect}
	bob := &client{t: t, server: server, http: noRedirect}
	anon := &client{t: t, server: server, http: noRedirect}

	alice.signupAndLogin("Alice", "alice@example.com")
	bob.signupAndLogin("Bob", "bob@example.com")

	resp, body := alice.do(http.MethodPost, "/shorten", `{"url":"https://example.com/docs","code":"docs"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := body["id"].(string)
	assert.Equal(t, "http://localhost:8080/docs", body["shortURL"])

	resp, _ = bob.do(http.MethodPost, "/shorten", `{"url":"https://example.com/other","code":"docs"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = anon.do(http.MethodGet, "/docs", "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://example.com/docs", resp.Header.Get("Location"))

	resp, body = bob.do(http.MethodGet, "/codes", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["codes"])

	resp, body = alice.do(http.MethodGet, "/codes", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["codes"], 1)

	resp, _ = bob.do(http.MethodPut, "/"+id, `{"code":"stolen"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = alice.do(http.MethodPut, "/"+id, `{"code":"guide"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Short code updated", body["message"])

	resp, _ = anon.do(http.MethodGet, "/docs", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = anon.do(http.MethodGet, "/guide", "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	resp, _ = bob.do(http.MethodDelete, "/"+id, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = alice.do(http.MethodDelete, "/"+id, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["deleted"])

	resp, _ = anon.do(http.MethodGet, "/guide", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = alice.do(http.MethodGet, "/user/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, "alice@example.com", data["email"])
}

func TestNewStorage(t *testing.T) {
	tests := []struct {
		name    string
		cfg     func(dir string) *config.Config
		check   func(t *testing.T, s any)
		wantErr bool
	}{
		{
			name: "memory",
			cfg:  func(string) *config.Config { return testConfig() },
			check: func(t *testing.T, s any) {
				assert.IsType(t, &memory.Storage{}, s)
			},
		},
		{
			name: "file",
			cfg: func(dir string) *config.Config {
				cfg := testConfig()
				cfg.FileStoragePath = filepath.Join(dir, "journal.jsonl")
				return cfg
			},
			check: func(t *testing.T, s any) {
				assert.IsType(t, &file.Storage{}, s)
			},
		},
		{
			name: "sqlite",
			cfg: func(dir string) *config.Config {
				cfg := testConfig()
				cfg.DatabaseDriver = gormstore.DriverSQLite
				cfg.DatabaseDSN = filepath.Join(dir, "codekeeper.db")
				return cfg
			},
			check: func(t *testing.T, s any) {
				assert.IsType(t, &gormstore.Storage{}, s)
			},
		},
		{
			name: "unknown driver",
			cfg: func(string) *config.Config {
				cfg := testConfig()
				cfg.DatabaseDriver = "oracle"
				cfg.DatabaseDSN = "whatever"
				return cfg
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := newStorage(context.Background(), tt.cfg(t.TempDir()))
			if tt.wantErr {
				assert.ErrorIs(t, err, gormstore.ErrUnknownDriver)
				return
			}
			require.NoError(t, err)
			defer s.Close()
			tt.check(t, s)
		})
	}
}

func TestNewApp_RedisUnavailable(t *testing.T) {
	cfg := testConfig()
	cfg.RedisAddr = "127.0.0.1:1"

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewApp(ctx, cfg)
	assert.Error(t, err)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.GRPCAddress = "127.0.0.1:0"

	a, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- a.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
