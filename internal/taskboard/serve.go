package taskboard

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/simonjohansson/taskboard/internal/server"
)

const defaultListenAddr = "127.0.0.1:8080"

type serveSettings struct {
	Addr       string
	SQLitePath string
	JWTSecret  string
	RateLimit  float64
	RateBurst  int
}

var runServeFunc = runServe

func addrFromServerURL(serverURL string) string {
	raw := strings.TrimSpace(serverURL)
	if raw == "" {
		return defaultListenAddr
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return defaultListenAddr
	}

	host := u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr == nil {
		return host
	}

	switch u.Scheme {
	case "https":
		return net.JoinHostPort(host, "443")
	case "http":
		return net.JoinHostPort(host, "80")
	default:
		return defaultListenAddr
	}
}

func newServeCommand(cfg *Config) *cobra.Command {
	var (
		addr       string
		sqlitePath string
		rateLimit  float64
		rateBurst  int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the taskboard API server.",
		Long:  "Runs the HTTP API backed by SQLite. Pending schema migrations are applied on start.",
		Example: strings.TrimSpace(`taskboard serve
taskboard serve --addr 127.0.0.1:8090
taskboard --server-url http://127.0.0.1:9010 serve
taskboard serve --sqlite-path /tmp/taskboard.db --rate-limit 5`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings := serveSettings{
				Addr:       addrFromServerURL(cfg.ServerURL),
				SQLitePath: strings.TrimSpace(cfg.SQLitePath),
				JWTSecret:  strings.TrimSpace(cfg.JWTSecret),
				RateLimit:  cfg.RateLimit,
				RateBurst:  cfg.RateBurst,
			}
			if cmd.Flags().Changed("addr") {
				settings.Addr = strings.TrimSpace(addr)
			}
			if cmd.Flags().Changed("sqlite-path") {
				settings.SQLitePath = strings.TrimSpace(sqlitePath)
			}
			if cmd.Flags().Changed("rate-limit") {
				settings.RateLimit = rateLimit
			}
			if cmd.Flags().Changed("rate-burst") {
				settings.RateBurst = rateBurst
			}

			if settings.Addr == "" {
				return errors.New("--addr cannot be empty")
			}
			if settings.SQLitePath == "" {
				return errors.New("--sqlite-path cannot be empty")
			}
			if settings.JWTSecret == "" {
				return errors.New("jwt secret is not configured")
			}
			if settings.RateLimit < 0 {
				return errors.New("--rate-limit cannot be negative")
			}

			return runServeFunc(settings)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "server listen address (defaults to the server url host)")
	cmd.Flags().StringVar(&sqlitePath, "sqlite-path", "", "sqlite database path")
	cmd.Flags().Float64Var(&rateLimit, "rate-limit", 0, "mutating requests per second per user, 0 disables")
	cmd.Flags().IntVar(&rateBurst, "rate-burst", 0, "burst size for --rate-limit")
	return cmd
}

func runServe(settings serveSettings) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	return runServeWithSignals(settings, sigCh)
}

func runServeWithSignals(settings serveSettings, sigCh <-chan os.Signal) error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := os.MkdirAll(filepath.Dir(settings.SQLitePath), 0o755); err != nil {
		return fmt.Errorf("create sqlite parent dir failed: %w", err)
	}

	app, err := server.New(server.Options{
		SQLitePath: settings.SQLitePath,
		JWTSecret:  settings.JWTSecret,
		Logger:     logger,
		RateLimit:  rate.Limit(settings.RateLimit),
		RateBurst:  settings.RateBurst,
	})
	if err != nil {
		return fmt.Errorf("init server failed: %w", err)
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			logger.Error("close server failed", "error", closeErr)
		}
	}()

	httpServer := &http.Server{
		Addr:              settings.Addr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("starting taskboard", "addr", settings.Addr, "sqlite_path", settings.SQLitePath)

	serverErrCh := make(chan error, 1)
	go func() {
		if listenErr := httpServer.ListenAndServe(); listenErr != nil && !errors.Is(listenErr, http.ErrServerClosed) {
			serverErrCh <- listenErr
			return
		}
		serverErrCh <- nil
	}()

	select {
	case listenErr := <-serverErrCh:
		if listenErr != nil {
			return fmt.Errorf("listen failed: %w", listenErr)
		}
		return nil
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	if err := httpServer.Close(); err != nil {
		return fmt.Errorf("http server close failed: %w", err)
	}
	if listenErr := <-serverErrCh; listenErr != nil {
		return fmt.Errorf("listen failed after shutdown: %w", listenErr)
	}
	logger.Info("server stopped")
	return nil
}
