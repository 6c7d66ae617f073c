package taskboardconfig

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	DefaultServerURL = "http://127.0.0.1:8080"
	DefaultOutput    = "text"
	DefaultTokenTTL  = "720h"
)

type Config struct {
	ServerURL string        `yaml:"server_url"`
	Backend   BackendConfig `yaml:"backend"`
	CLI       CLIConfig     `yaml:"cli"`
}

type BackendConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
	JWTSecret  string `yaml:"jwt_secret"`
	TokenTTL   string `yaml:"token_ttl"`
	// RateLimit is mutating requests per second per identity; 0 disables it.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

type CLIConfig struct {
	Output string `yaml:"output"`
	Token  string `yaml:"token"`
}

// Default returns the baseline config for home. Each call generates a new
// JWT secret, which LoadOrInit persists on first use.
func Default(home string) Config {
	stateDir := filepath.Join(home, ".local", "state", "taskboard")

	return Config{
		ServerURL: DefaultServerURL,
		Backend: BackendConfig{
			SQLitePath: filepath.Join(stateDir, "taskboard.db"),
			JWTSecret:  uuid.NewString(),
			TokenTTL:   DefaultTokenTTL,
		},
		CLI: CLIConfig{
			Output: DefaultOutput,
		},
	}
}

func ConfigPath(home string) string {
	return filepath.Join(home, ".config", "taskboard", "config.yaml")
}

func LoadOrInit(home string) (Config, error) {
	path := ConfigPath(home)
	defaults := Default(home)

	cfg, err := LoadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := SaveFile(path, defaults); err != nil {
				return Config{}, err
			}
			return defaults, nil
		}
		return Config{}, err
	}

	merged := Merge(defaults, cfg)
	if merged != cfg {
		if err := SaveFile(path, merged); err != nil {
			return Config{}, err
		}
	}

	return merged, nil
}

func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}

	return normalize(cfg), nil
}

// SaveFile writes cfg owner-readable only since it holds the signing secret
// and a bearer token.
func SaveFile(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(normalize(cfg))
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

func Merge(defaults Config, user Config) Config {
	out := normalize(defaults)
	in := normalize(user)

	if in.ServerURL != "" {
		out.ServerURL = in.ServerURL
	}

	if in.Backend.SQLitePath != "" {
		out.Backend.SQLitePath = in.Backend.SQLitePath
	}
	if in.Backend.JWTSecret != "" {
		out.Backend.JWTSecret = in.Backend.JWTSecret
	}
	if in.Backend.TokenTTL != "" {
		out.Backend.TokenTTL = in.Backend.TokenTTL
	}
	if in.Backend.RateLimit > 0 {
		out.Backend.RateLimit = in.Backend.RateLimit
	}
	if in.Backend.RateBurst > 0 {
		out.Backend.RateBurst = in.Backend.RateBurst
	}

	if in.CLI.Output != "" {
		out.CLI.Output = in.CLI.Output
	}
	if in.CLI.Token != "" {
		out.CLI.Token = in.CLI.Token
	}

	return out
}

func normalize(cfg Config) Config {
	cfg.ServerURL = strings.TrimSpace(cfg.ServerURL)
	cfg.Backend.SQLitePath = strings.TrimSpace(cfg.Backend.SQLitePath)
	cfg.Backend.JWTSecret = strings.TrimSpace(cfg.Backend.JWTSecret)
	cfg.Backend.TokenTTL = strings.TrimSpace(cfg.Backend.TokenTTL)
	cfg.CLI.Output = strings.TrimSpace(cfg.CLI.Output)
	cfg.CLI.Token = strings.TrimSpace(cfg.CLI.Token)
	return cfg
}
