package taskboard

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/simonjohansson/taskboard/internal/taskboard/commands/cardcmd"
	"github.com/simonjohansson/taskboard/internal/taskboard/commands/commentcmd"
)

type globalFlags struct {
	serverURL string
	output    string
	token     string
}

type commandRuntime struct {
	cfg *Config
}

func (r commandRuntime) ServerURL() string {
	return r.cfg.ServerURL
}

func (r commandRuntime) Output() string {
	return string(r.cfg.Output)
}

func (r commandRuntime) Token() string {
	return r.cfg.Token
}

func NewRootCommand(initial Config, stdout, stderr io.Writer) *cobra.Command {
	cfg := initial
	flags := globalFlags{
		serverURL: initial.ServerURL,
		output:    string(initial.Output),
		token:     initial.Token,
	}
	runtime := commandRuntime{cfg: &cfg}

	root := &cobra.Command{
		Use:   "taskboard",
		Short: "Run the taskboard server and manage cards over HTTP.",
		Long: strings.TrimSpace(`taskboard is a single binary for:
- starting the taskboard API server
- managing users and issuing tokens on the server host
- managing cards and comments over the HTTP API

Use taskboard help <command> for command-specific examples.`),
		Example: strings.TrimSpace(`taskboard serve
taskboard user add --name Ada --email ada@example.com --admin
taskboard token issue --user 1 --save
taskboard card create -t "Write docs" -s "To Do"
taskboard card update -i 1 -s Ongoing
taskboard comment add -c 1 -m "Started"
taskboard watch --card 1 --output json`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return applyGlobalFlags(&cfg, flags)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&flags.serverURL, "server-url", flags.serverURL, "API base URL (e.g. http://127.0.0.1:8080)")
	root.PersistentFlags().StringVar(&flags.output, "output", flags.output, "Output format: text or json")
	root.PersistentFlags().StringVar(&flags.token, "token", flags.token, "Bearer token for mutating requests")

	root.AddCommand(newServeCommand(&cfg))
	root.AddCommand(newUserCommand(&cfg, stdout))
	root.AddCommand(newTokenCommand(&cfg, stdout))
	root.AddCommand(cardcmd.New(runtime, stdout, handleResponseFromString, wrapCLIError))
	root.AddCommand(commentcmd.New(runtime, stdout, handleResponseFromString, wrapCLIError))
	root.AddCommand(newWatchCommand(&cfg, stdout))

	return root
}

func applyGlobalFlags(cfg *Config, flags globalFlags) error {
	output := strings.TrimSpace(flags.output)
	if !isValidOutput(output) {
		return &cliError{status: http.StatusBadRequest, message: fmt.Sprintf("invalid --output: %s", output)}
	}

	cfg.ServerURL = strings.TrimSpace(flags.serverURL)
	cfg.Output = Output(output)
	cfg.Token = strings.TrimSpace(flags.token)

	if cfg.ServerURL == "" {
		return &cliError{status: http.StatusBadRequest, message: "--server-url cannot be empty"}
	}

	return nil
}

func handleResponseFromString(output string, stdout io.Writer, resp *http.Response, reqErr error) error {
	if !isValidOutput(output) {
		return &cliError{status: http.StatusBadRequest, message: fmt.Sprintf("invalid --output: %s", output)}
	}
	return handleResponse(Output(output), stdout, resp, reqErr)
}

func wrapCLIError(status int, message string) error {
	return &cliError{status: status, message: message}
}

func newWatchCommand(cfg *Config, stdout io.Writer) *cobra.Command {
	watchCmd := &cobra.Command{
		Use:     "watch",
		Aliases: []string{"events", "stream"},
		Short:   "Stream realtime events over websocket.",
		Long:    "Connect to the server websocket and print card and comment events until interrupted.",
		Example: strings.TrimSpace(`taskboard watch
taskboard watch --card 3
taskboard events --output json`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			card, _ := cmd.Flags().GetInt64("card")
			wsURL, err := BuildWebsocketURL(cfg.ServerURL, card)
			if err != nil {
				return &cliError{status: http.StatusBadRequest, message: err.Error()}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return streamEvents(ctx, wsURL, cfg.Output, stdout)
		},
	}

	watchCmd.Flags().Int64P("card", "c", 0, "Optional card id filter")
	return watchCmd
}

func streamEvents(ctx context.Context, wsURL string, output Output, stdout io.Writer) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return &cliError{status: http.StatusBadGateway, message: err.Error()}
	}
	defer conn.Close()

	// ReadJSON ignores ctx; closing the socket unblocks it.
	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "interrupt"),
			time.Now().Add(500*time.Millisecond),
		)
		_ = conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		var event map[string]any
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return &cliError{status: http.StatusBadGateway, message: err.Error()}
		}

		line, err := FormatWatchLine(output, event)
		if err != nil {
			return &cliError{status: http.StatusInternalServerError, message: err.Error()}
		}
		if _, err := fmt.Fprintln(stdout, line); err != nil {
			return &cliError{status: http.StatusInternalServerError, message: err.Error()}
		}
	}
}
