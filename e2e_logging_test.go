package taskboard_test

import (
	"bufio"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// serverLog mirrors server output into the test log and keeps every line so
// a test can wait for a record the server is expected to emit.
type serverLog struct {
	t       *testing.T
	label   string
	mu      sync.Mutex
	pending string
	lines   []string
}

func newServerLog(t *testing.T, label string) *serverLog {
	return &serverLog{t: t, label: label}
}

// Logger returns an slog logger writing text records into l.
func (l *serverLog) Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(l, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func (l *serverLog) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	chunk := l.pending + string(p)
	parts := strings.Split(chunk, "\n")
	l.pending = parts[len(parts)-1]
	for _, line := range parts[:len(parts)-1] {
		l.record(line)
	}
	return len(p), nil
}

// record must be called with mu held.
func (l *serverLog) record(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	l.lines = append(l.lines, line)
	l.t.Logf("[%s] %s", l.label, line)
}

// Follow drains r until EOF. Callers wait on wg before the test returns so
// no Logf happens after completion.
func (l *serverLog) Follow(r io.Reader, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			l.mu.Lock()
			l.record(scanner.Text())
			l.mu.Unlock()
		}
	}()
}

// Count reports how many lines contain every fragment.
func (l *serverLog) Count(fragments ...string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, line := range l.lines {
		matched := true
		for _, f := range fragments {
			if !strings.Contains(line, f) {
				matched = false
				break
			}
		}
		if matched {
			n++
		}
	}
	return n
}

func (l *serverLog) requireEventually(fragments ...string) {
	l.t.Helper()
	require.Eventuallyf(l.t, func() bool {
		return l.Count(fragments...) > 0
	}, 5*time.Second, 20*time.Millisecond, "[%s] no line containing %q", l.label, fragments)
}
