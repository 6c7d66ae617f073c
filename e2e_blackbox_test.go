package taskboard_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

type runResult struct {
	exitCode int
	stdout   string
	stderr   string
	combined string
}

func TestTaskboardShowsHelpByDefault(t *testing.T) {
	bin := buildTaskboardBinary(t)

	result := runTaskboard(t, bin, isolatedEnv(t.TempDir()))
	require.Equal(t, 0, result.exitCode, result.combined)
	require.Contains(t, result.stdout, "Usage:")
	require.Contains(t, result.stdout, "taskboard [command]")
	for _, name := range []string{"serve", "user", "token", "card", "comment", "watch"} {
		require.Contains(t, result.stdout, name)
	}
}

func TestE2EBlackBoxServerProcess(t *testing.T) {
	bin := buildTaskboardBinary(t)
	home := t.TempDir()
	sqlitePath := filepath.Join(home, "data", "taskboard.db")
	addr := freeAddr(t)
	baseURL := "http://" + addr
	env := append(isolatedEnv(home),
		"TASKBOARD_SQLITE_PATH="+sqlitePath,
		"TASKBOARD_SERVER_URL="+baseURL,
	)

	addUser := runTaskboard(t, bin, env, "--output", "json", "user", "add", "--name", "Blackbox", "--email", "bb@example.com")
	require.Equal(t, 0, addUser.exitCode, addUser.combined)

	issue := runTaskboard(t, bin, env, "token", "issue", "--user", "1", "--save")
	require.Equal(t, 0, issue.exitCode, issue.combined)
	token := strings.TrimSpace(issue.stdout)
	require.NotEmpty(t, token)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cmd := exec.CommandContext(ctx, bin, "serve", "--addr", addr)
	cmd.Env = env
	stdoutPipe, err := cmd.StdoutPipe()
	require.NoError(t, err)
	stderrPipe, err := cmd.StderrPipe()
	require.NoError(t, err)
	var streamWG sync.WaitGroup
	serverOut := newServerLog(t, "server stdout")
	serverOut.Follow(stdoutPipe, &streamWG)
	newServerLog(t, "server stderr").Follow(stderrPipe, &streamWG)
	require.NoError(t, cmd.Start())
	t.Cleanup(func() {
		cancel()
		_ = cmd.Wait()
		streamWG.Wait()
	})

	require.Eventually(t, func() bool {
		resp, err := http.Get(baseURL + "/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 10*time.Second, 100*time.Millisecond)

	anonymous := doJSONRequest(t, baseURL+"/cards", http.MethodPost, "", map[string]string{"title": "no token"})
	require.Equal(t, http.StatusUnauthorized, anonymous.StatusCode)

	createCard := doJSONRequest(t, baseURL+"/cards/", http.MethodPost, token, map[string]string{
		"title":       "exercise process",
		"description": "test real server",
		"status":      "Ongoing",
	})
	require.Equal(t, http.StatusOK, createCard.StatusCode)
	card := decodeBodyMap(t, createCard.Body)
	require.Equal(t, "Blackbox", card["user"].(map[string]any)["name"])
	serverOut.requireEventually("card created", "status=Ongoing")
	serverOut.requireEventually("http request", "method=POST", "status=401")

	// The CLI picks up the token saved by token issue.
	comment := runTaskboard(t, bin, env, "--output", "json", "comment", "add", "--card", "1", "--message", "from the cli")
	require.Equal(t, 0, comment.exitCode, comment.combined)

	conflict := runTaskboard(t, bin, env, "card", "create", "--title", "second", "--status", "Ongoing")
	require.Equal(t, 1, conflict.exitCode)
	require.Contains(t, conflict.stderr, "error (400): ")

	getCard := doJSONRequest(t, baseURL+"/cards/1", http.MethodGet, "", nil)
	require.Equal(t, http.StatusOK, getCard.StatusCode)
	getCardMap := decodeBodyMap(t, getCard.Body)
	require.Len(t, getCardMap["comments"].([]any), 1)

	metrics := doJSONRequest(t, baseURL+"/metrics", http.MethodGet, "", nil)
	require.Equal(t, http.StatusOK, metrics.StatusCode)
	metricsBody, err := io.ReadAll(metrics.Body)
	require.NoError(t, err)
	require.Contains(t, string(metricsBody), "taskboard_cards_created_total 1")

	db, err := sql.Open("sqlite", sqlitePath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var count int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM comments WHERE card_id = 1`).Scan(&count))
	require.Equal(t, 1, count)
}

func TestTaskboardWatchExitsOnInterrupt(t *testing.T) {
	bin := buildTaskboardBinary(t)

	connected := make(chan string, 1)
	upgrader := websocket.Upgrader{
		CheckOrigin: func(_ *http.Request) bool { return true },
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		connected <- r.URL.RawQuery
		_ = conn.WriteJSON(map[string]any{"type": "card.updated", "card_id": 4, "user_id": 1})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	cmd := exec.Command(bin, "--server-url", server.URL, "watch", "--card", "4")
	cmd.Env = isolatedEnv(t.TempDir())
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	require.NoError(t, cmd.Start())

	waitCh := make(chan error, 1)
	go func() {
		waitCh <- cmd.Wait()
	}()

	select {
	case query := <-connected:
		require.Equal(t, "card=4", query)
	case <-time.After(2 * time.Second):
		_ = cmd.Process.Kill()
		<-waitCh
		require.Fail(t, "watch did not connect")
	}

	// Give the client a moment to print the pushed event.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, cmd.Process.Signal(os.Interrupt))

	select {
	case err := <-waitCh:
		require.NoError(t, err, stdout.String()+stderr.String())
	case <-time.After(2 * time.Second):
		_ = cmd.Process.Kill()
		<-waitCh
		require.Fail(t, "watch did not exit after interrupt")
	}
	require.Contains(t, stdout.String(), "type=card.updated card_id=4 user_id=1")
}

func buildTaskboardBinary(t *testing.T) string {
	t.Helper()

	binPath := filepath.Join(t.TempDir(), "taskboard")
	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/taskboard")
	cmd.Dir = "."
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
	return binPath
}

// isolatedEnv points HOME at home and drops any TASKBOARD_ settings from the
// caller's environment.
func isolatedEnv(home string) []string {
	env := make([]string, 0, len(os.Environ())+1)
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "TASKBOARD_") || strings.HasPrefix(kv, "HOME=") {
			continue
		}
		env = append(env, kv)
	}
	return append(env, "HOME="+home)
}

func runTaskboard(t *testing.T, bin string, env []string, args ...string) runResult {
	t.Helper()

	cmd := exec.Command(bin, args...)
	cmd.Env = env
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	code := 0
	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		require.True(t, ok, err)
		code = exitErr.ExitCode()
	}

	return runResult{
		exitCode: code,
		stdout:   stdout.String(),
		stderr:   stderr.String(),
		combined: stdout.String() + stderr.String(),
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func doJSONRequest(t *testing.T, url, method, token string, payload any) *http.Response {
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

func decodeBodyMap(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	var out map[string]any
	err = json.Unmarshal(raw, &out)
	require.NoError(t, err, fmt.Sprintf("failed to decode: %s", string(raw)))
	return out
}
