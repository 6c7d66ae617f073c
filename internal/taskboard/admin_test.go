package taskboard

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/simonjohansson/taskboard/internal/auth"
	"github.com/simonjohansson/taskboard/internal/model"
	"github.com/simonjohansson/taskboard/internal/server"
	"github.com/simonjohansson/taskboard/internal/service"
	"github.com/simonjohansson/taskboard/pkg/taskboardconfig"
)

const adminTestSecret = "cli-secret"

func adminEnv(t *testing.T) (home string, env []string) {
	t.Helper()
	home = t.TempDir()
	t.Setenv("HOME", home)
	sqlitePath := filepath.Join(home, "data", "taskboard.db")
	return home, []string{
		"TASKBOARD_SQLITE_PATH=" + sqlitePath,
		"TASKBOARD_JWT_SECRET=" + adminTestSecret,
	}
}

func runJSON(t *testing.T, args []string, env []string, out any) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Run(append([]string{"--output", "json"}, args...), &stdout, &stderr, env)
	require.Equal(t, 0, code, strings.Join(args, " ")+" stderr="+stderr.String())
	require.NoError(t, json.Unmarshal(stdout.Bytes(), out))
}

func TestUserAddAndList(t *testing.T) {
	_, env := adminEnv(t)

	var ada userOutput
	runJSON(t, []string{"user", "add", "--name", "Ada", "--email", "ada@example.com", "--admin"}, env, &ada)
	require.Equal(t, userOutput{ID: ada.ID, Name: "Ada", Email: "ada@example.com", IsAdmin: true}, ada)

	var users []userOutput
	runJSON(t, []string{"user", "ls"}, env, &users)
	require.Equal(t, []userOutput{ada}, users)

	var stdout bytes.Buffer
	require.Equal(t, 0, Run([]string{"user", "ls"}, &stdout, io.Discard, env))
	require.Equal(t, "#1 Ada <ada@example.com> admin\n", stdout.String())
}

func TestUserAddRejectsDuplicateEmail(t *testing.T) {
	_, env := adminEnv(t)

	require.Equal(t, 0, Run([]string{"user", "add", "-n", "Ada", "-e", "ada@example.com"}, io.Discard, io.Discard, env))

	var stderr bytes.Buffer
	code := Run([]string{"user", "add", "-n", "Other", "-e", "ada@example.com"}, io.Discard, &stderr, env)
	require.Equal(t, 1, code)
	require.Equal(t, "error (400): Email address already in use\n", stderr.String())
}

func TestTokenIssue(t *testing.T) {
	home, env := adminEnv(t)

	var ada userOutput
	runJSON(t, []string{"user", "add", "-n", "Ada", "-e", "ada@example.com"}, env, &ada)

	var issued tokenOutput
	runJSON(t, []string{"token", "issue", "--user", "1", "--ttl", "1h", "--save"}, env, &issued)
	require.Equal(t, ada.ID, issued.UserID)
	require.Equal(t, "1h0m0s", issued.ExpiresIn)
	require.Equal(t, ConfigPath(home), issued.Saved)

	identity, err := auth.ParseToken(issued.Token, adminTestSecret)
	require.NoError(t, err)
	require.Equal(t, model.Identity(ada.ID), identity)

	saved, err := taskboardconfig.LoadFile(ConfigPath(home))
	require.NoError(t, err)
	require.Equal(t, issued.Token, saved.CLI.Token)
}

func TestTokenIssueErrors(t *testing.T) {
	_, env := adminEnv(t)

	var stderr bytes.Buffer
	require.Equal(t, 1, Run([]string{"token", "issue", "--user", "42"}, io.Discard, &stderr, env))
	require.Equal(t, "error (404): User not found\n", stderr.String())

	stderr.Reset()
	require.Equal(t, 1, Run([]string{"token", "issue", "--user", "1", "--ttl", "soon"}, io.Discard, &stderr, env))
	require.Contains(t, stderr.String(), "invalid token ttl")
}

// TestCLIAgainstServer drives a real server with a token saved by the CLI.
func TestCLIAgainstServer(t *testing.T) {
	home, env := adminEnv(t)

	require.Equal(t, 0, Run([]string{"user", "add", "-n", "Ada", "-e", "ada@example.com"}, io.Discard, io.Discard, env))
	require.Equal(t, 0, Run([]string{"token", "issue", "-u", "1", "--save"}, io.Discard, io.Discard, env))

	app, err := server.New(server.Options{
		SQLitePath: filepath.Join(home, "data", "taskboard.db"),
		JWTSecret:  adminTestSecret,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	httpServer := httptest.NewServer(app.Handler())
	t.Cleanup(httpServer.Close)

	env = append(env, "TASKBOARD_SERVER_URL="+httpServer.URL)

	var card model.CardView
	runJSON(t, []string{"card", "create", "-t", "Ship it", "-s", "Ongoing"}, env, &card)
	require.Equal(t, "Ship it", card.Title)
	require.Equal(t, "Ada", card.User.Name)

	var stderr bytes.Buffer
	require.Equal(t, 1, Run([]string{"card", "create", "-t", "Second", "-s", "Ongoing"}, io.Discard, &stderr, env))
	require.Contains(t, stderr.String(), "error (400): ")

	var comment model.CommentView
	runJSON(t, []string{"comment", "add", "-c", "1", "-m", "started"}, env, &comment)
	require.Equal(t, "started", comment.Message)

	var listed []model.CardView
	runJSON(t, []string{"card", "ls"}, env, &listed)
	require.Len(t, listed, 1)
	require.Len(t, listed[0].Comments, 1)

	stderr.Reset()
	require.Equal(t, 1, Run([]string{"--token", "", "card", "rm", "-i", "1"}, io.Discard, &stderr, env))
	require.Equal(t, "error (401): Missing or invalid bearer token\n", stderr.String())

	var msg model.Message
	runJSON(t, []string{"card", "rm", "-i", "1"}, env, &msg)
	require.Equal(t, "Card 'Ship it' deleted successfully", msg.Message)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStreamEventsPrintsUntilCancelled(t *testing.T) {
	t.Parallel()

	app, err := server.New(server.Options{
		SQLitePath: filepath.Join(t.TempDir(), "taskboard.db"),
		JWTSecret:  adminTestSecret,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	httpServer := httptest.NewServer(app.Handler())
	t.Cleanup(httpServer.Close)

	user, err := app.Service().AddUser(context.Background(), "Ada", "ada@example.com", false)
	require.NoError(t, err)

	wsURL, err := BuildWebsocketURL(httpServer.URL, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- streamEvents(ctx, wsURL, OutputText, out) }()

	title := "Watched"
	// The subscription is registered asynchronously, so keep producing
	// events until one arrives.
	require.Eventually(t, func() bool {
		if _, err := app.Service().CreateCard(context.Background(), service.CardPayload{Title: &title}, model.Identity(user.ID)); err != nil {
			return false
		}
		return strings.Contains(out.String(), "type=card.created")
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
