package taskboard

import (
	"strconv"
	"strings"

	"github.com/simonjohansson/taskboard/pkg/taskboardconfig"
)

// Config is the CLI view of the shared config file, after env and flag
// overrides.
type Config struct {
	ServerURL  string
	Output     Output
	Token      string
	SQLitePath string
	JWTSecret  string
	TokenTTL   string
	RateLimit  float64
	RateBurst  int
	// ConfigPath is where token issue --save writes the credential.
	ConfigPath string
}

func DefaultConfig(home string) Config {
	cfg := mapSharedToCLI(taskboardconfig.Default(home))
	cfg.ConfigPath = ConfigPath(home)
	return cfg
}

func ParseEnvConfig(env []string) Config {
	cfg := Config{}

	for _, kv := range env {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "TASKBOARD_SERVER_URL":
			cfg.ServerURL = value
		case "TASKBOARD_OUTPUT":
			if isValidOutput(value) {
				cfg.Output = Output(value)
			}
		case "TASKBOARD_TOKEN":
			cfg.Token = value
		case "TASKBOARD_SQLITE_PATH":
			cfg.SQLitePath = value
		case "TASKBOARD_JWT_SECRET":
			cfg.JWTSecret = value
		case "TASKBOARD_TOKEN_TTL":
			cfg.TokenTTL = value
		case "TASKBOARD_RATE_LIMIT":
			if parsed, err := strconv.ParseFloat(value, 64); err == nil && parsed >= 0 {
				cfg.RateLimit = parsed
			}
		case "TASKBOARD_RATE_BURST":
			if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
				cfg.RateBurst = parsed
			}
		}
	}

	return cfg
}

func MergeConfig(defaults, fileCfg, envCfg, flagCfg Config) Config {
	out := defaults
	applyConfig(&out, fileCfg)
	applyConfig(&out, envCfg)
	applyConfig(&out, flagCfg)
	return out
}

func applyConfig(dst *Config, src Config) {
	if value := strings.TrimSpace(src.ServerURL); value != "" {
		dst.ServerURL = value
	}
	if src.Output != "" {
		dst.Output = src.Output
	}
	if value := strings.TrimSpace(src.Token); value != "" {
		dst.Token = value
	}
	if value := strings.TrimSpace(src.SQLitePath); value != "" {
		dst.SQLitePath = value
	}
	if value := strings.TrimSpace(src.JWTSecret); value != "" {
		dst.JWTSecret = value
	}
	if value := strings.TrimSpace(src.TokenTTL); value != "" {
		dst.TokenTTL = value
	}
	if src.RateLimit > 0 {
		dst.RateLimit = src.RateLimit
	}
	if src.RateBurst > 0 {
		dst.RateBurst = src.RateBurst
	}
	if value := strings.TrimSpace(src.ConfigPath); value != "" {
		dst.ConfigPath = value
	}
}

func LoadOrInitConfig(home string) (Config, error) {
	shared, err := taskboardconfig.LoadOrInit(home)
	if err != nil {
		return Config{}, err
	}
	return mapSharedToCLI(shared), nil
}

func ConfigPath(home string) string {
	return taskboardconfig.ConfigPath(home)
}

// SaveToken stores token as the CLI credential in the config file at path.
func SaveToken(path, token string) error {
	shared, err := taskboardconfig.LoadFile(path)
	if err != nil {
		return err
	}
	shared.CLI.Token = strings.TrimSpace(token)
	return taskboardconfig.SaveFile(path, shared)
}

func mapSharedToCLI(shared taskboardconfig.Config) Config {
	cfg := Config{
		ServerURL:  strings.TrimSpace(shared.ServerURL),
		Output:     Output(strings.TrimSpace(shared.CLI.Output)),
		Token:      strings.TrimSpace(shared.CLI.Token),
		SQLitePath: strings.TrimSpace(shared.Backend.SQLitePath),
		JWTSecret:  strings.TrimSpace(shared.Backend.JWTSecret),
		TokenTTL:   strings.TrimSpace(shared.Backend.TokenTTL),
		RateLimit:  shared.Backend.RateLimit,
		RateBurst:  shared.Backend.RateBurst,
	}
	if cfg.Output != "" && !isValidOutput(string(cfg.Output)) {
		cfg.Output = ""
	}
	return cfg
}
