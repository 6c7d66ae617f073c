package main

import (
	"flag"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/simonjohansson/taskboard/internal/server"
)

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", filepath.Join("api", "openapi.yaml"), "output path for OpenAPI YAML")
	flag.Parse()

	tmpDir, err := os.MkdirTemp("", "taskboard-openapi-")
	if err != nil {
		log.Fatalf("create temp dir: %v", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	app, err := server.New(server.Options{
		SQLitePath: filepath.Join(tmpDir, "taskboard.db"),
		JWTSecret:  "export-only",
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		log.Fatalf("init server: %v", err)
	}
	defer func() { _ = app.Close() }()

	raw, err := yaml.Marshal(app.OpenAPI())
	if err != nil {
		log.Fatalf("marshal openapi: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		log.Fatalf("create output dir: %v", err)
	}
	if err := os.WriteFile(outPath, raw, 0o644); err != nil {
		log.Fatalf("write openapi file: %v", err)
	}
}
