package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/simonjohansson/taskboard/internal/auth"
	"github.com/simonjohansson/taskboard/internal/model"
	"github.com/simonjohansson/taskboard/internal/server"
)

const testSecret = "test-secret"

type testEnv struct {
	app        *server.Server
	httpServer *httptest.Server
	sqlitePath string
	owner      model.User
	admin      model.User
	stranger   model.User
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()
	return newTestServerWithOptions(t, server.Options{})
}

func newTestServerWithOptions(t *testing.T, opts server.Options) *testEnv {
	t.Helper()
	opts.SQLitePath = filepath.Join(t.TempDir(), "taskboard.db")
	opts.JWTSecret = testSecret
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	app, err := server.New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	env := &testEnv{
		app:        app,
		httpServer: newHTTPTestServer(t, app.Handler()),
		sqlitePath: opts.SQLitePath,
	}
	ctx := context.Background()
	env.owner, err = app.Service().AddUser(ctx, "Olivia Owner", "olivia@example.com", false)
	require.NoError(t, err)
	env.admin, err = app.Service().AddUser(ctx, "Adam Admin", "adam@example.com", true)
	require.NoError(t, err)
	env.stranger, err = app.Service().AddUser(ctx, "Sam Stranger", "sam@example.com", false)
	require.NoError(t, err)
	return env
}

func (e *testEnv) url(path string) string {
	return e.httpServer.URL + path
}

func tokenFor(t *testing.T, user model.User) string {
	t.Helper()
	token, err := auth.IssueToken(user.ID, testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func newHTTPTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	httpServer := httptest.NewServer(handler)
	t.Cleanup(httpServer.Close)
	return httpServer
}

func doJSON(t *testing.T, url, method string, payload any) *http.Response {
	t.Helper()
	return doAuthJSON(t, url, method, "", payload)
}

func doAuthJSON(t *testing.T, url, method, token string, payload any) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func doRaw(t *testing.T, url, method, token, payload, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewBufferString(payload))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeMap(t *testing.T, reader io.Reader) map[string]any {
	t.Helper()
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	var out map[string]any
	err = json.Unmarshal(data, &out)
	require.NoError(t, err)
	return out
}

func decodeList(t *testing.T, reader io.Reader) []map[string]any {
	t.Helper()
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	var out []map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func readBody(t *testing.T, reader io.Reader) []byte {
	t.Helper()
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	return data
}

func requireError(t *testing.T, resp *http.Response, status int, msg string) {
	t.Helper()
	require.Equal(t, status, resp.StatusCode)
	body := decodeMap(t, resp.Body)
	require.Len(t, body, 1)
	if msg != "" {
		require.Equal(t, msg, body["error"])
	} else {
		require.NotEmpty(t, body["error"])
	}
}

func createCard(t *testing.T, env *testEnv, token string, payload map[string]any) map[string]any {
	t.Helper()
	resp := doAuthJSON(t, env.url("/cards"), http.MethodPost, token, payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decodeMap(t, resp.Body)
}

func idOf(body map[string]any) int64 {
	return int64(body["id"].(float64))
}
