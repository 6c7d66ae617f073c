package taskboard

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/simonjohansson/taskboard/internal/auth"
	"github.com/simonjohansson/taskboard/internal/model"
	"github.com/simonjohansson/taskboard/internal/service"
	"github.com/simonjohansson/taskboard/internal/store"
)

type userOutput struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

type tokenOutput struct {
	UserID    int64  `json:"user_id"`
	Token     string `json:"token"`
	ExpiresIn string `json:"expires_in"`
	Saved     string `json:"saved_to,omitempty"`
}

func toUserOutput(user model.User) userOutput {
	return userOutput{ID: user.ID, Name: user.Name, Email: user.Email, IsAdmin: user.IsAdmin}
}

func formatUserLine(user model.User) string {
	line := fmt.Sprintf("#%d %s <%s>", user.ID, user.Name, user.Email)
	if user.IsAdmin {
		line += " admin"
	}
	return line
}

// withLocalService opens the configured database directly. User and token
// commands run on the server host and never go through the HTTP API.
func withLocalService(cfg *Config, fn func(*service.Service) error) error {
	path := strings.TrimSpace(cfg.SQLitePath)
	if path == "" {
		return &cliError{status: http.StatusBadRequest, message: "sqlite path is not configured"}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &cliError{status: http.StatusInternalServerError, message: err.Error()}
	}
	sqliteStore, err := store.Open(path)
	if err != nil {
		return &cliError{status: http.StatusInternalServerError, message: err.Error()}
	}
	defer sqliteStore.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return fn(service.New(service.FromSQLite(sqliteStore), service.Options{Logger: logger}))
}

func serviceCLIError(err error) error {
	status := http.StatusInternalServerError
	switch service.CodeOf(err) {
	case service.CodeValidation:
		status = http.StatusBadRequest
	case service.CodeUnauthorized:
		status = http.StatusUnauthorized
	case service.CodeForbidden:
		status = http.StatusForbidden
	case service.CodeNotFound:
		status = http.StatusNotFound
	}
	return &cliError{status: status, message: service.MessageOf(err)}
}

func newUserCommand(cfg *Config, stdout io.Writer) *cobra.Command {
	userCmd := &cobra.Command{
		Use:     "user",
		Aliases: []string{"users"},
		Short:   "Manage users in the local database.",
		Long:    "Operator commands that read and write the configured SQLite database directly.",
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Register a user.",
		Example: strings.TrimSpace(`taskboard user add --name "Ada" --email ada@example.com
taskboard users add -n Root -e root@example.com --admin`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			admin, _ := cmd.Flags().GetBool("admin")

			return withLocalService(cfg, func(svc *service.Service) error {
				user, err := svc.AddUser(context.Background(), name, email, admin)
				if err != nil {
					return serviceCLIError(err)
				}
				return printValue(cfg.Output, stdout, toUserOutput(user), formatUserLine(user))
			})
		},
	}
	addCmd.Flags().StringP("name", "n", "", "Display name")
	addCmd.Flags().StringP("email", "e", "", "Unique email address")
	addCmd.Flags().Bool("admin", false, "Grant admin rights")
	_ = addCmd.MarkFlagRequired("name")
	_ = addCmd.MarkFlagRequired("email")

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List users.",
		Example: strings.TrimSpace(`taskboard user list --output json`),
		RunE: func(_ *cobra.Command, _ []string) error {
			return withLocalService(cfg, func(svc *service.Service) error {
				users, err := svc.ListUsers(context.Background())
				if err != nil {
					return serviceCLIError(err)
				}
				out := make([]userOutput, 0, len(users))
				lines := make([]string, 0, len(users))
				for _, user := range users {
					out = append(out, toUserOutput(user))
					lines = append(lines, formatUserLine(user))
				}
				text := strings.Join(lines, "\n")
				if len(lines) == 0 {
					text = "(no users)"
				}
				return printValue(cfg.Output, stdout, out, text)
			})
		},
	}

	userCmd.AddCommand(addCmd, listCmd)
	return userCmd
}

func newTokenCommand(cfg *Config, stdout io.Writer) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue bearer tokens.",
	}

	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a token for a user.",
		Long:  "Signs a token with the configured secret. --save stores it as the CLI credential.",
		Example: strings.TrimSpace(`taskboard token issue --user 1
taskboard token issue --user 1 --ttl 24h --save`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, _ := cmd.Flags().GetInt64("user")
			ttlRaw, _ := cmd.Flags().GetString("ttl")
			save, _ := cmd.Flags().GetBool("save")

			if !cmd.Flags().Changed("ttl") {
				ttlRaw = cfg.TokenTTL
			}
			ttl, err := time.ParseDuration(strings.TrimSpace(ttlRaw))
			if err != nil || ttl <= 0 {
				return &cliError{status: http.StatusBadRequest, message: fmt.Sprintf("invalid token ttl: %q", ttlRaw)}
			}
			if strings.TrimSpace(cfg.JWTSecret) == "" {
				return &cliError{status: http.StatusBadRequest, message: "jwt secret is not configured"}
			}

			return withLocalService(cfg, func(svc *service.Service) error {
				user, err := svc.GetUser(context.Background(), userID)
				if err != nil {
					return serviceCLIError(err)
				}
				token, err := auth.IssueToken(user.ID, cfg.JWTSecret, ttl)
				if err != nil {
					return &cliError{status: http.StatusInternalServerError, message: err.Error()}
				}

				out := tokenOutput{UserID: user.ID, Token: token, ExpiresIn: ttl.String()}
				if save {
					if err := SaveToken(cfg.ConfigPath, token); err != nil {
						return &cliError{status: http.StatusInternalServerError, message: err.Error()}
					}
					out.Saved = cfg.ConfigPath
				}
				return printValue(cfg.Output, stdout, out, token)
			})
		},
	}
	issueCmd.Flags().Int64P("user", "u", 0, "User id")
	issueCmd.Flags().String("ttl", "", "Token lifetime (defaults to the configured token_ttl)")
	issueCmd.Flags().Bool("save", false, "Store the token in the config file")
	_ = issueCmd.MarkFlagRequired("user")

	tokenCmd.AddCommand(issueCmd)
	return tokenCmd
}
