package taskboard

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type Output string

const (
	OutputText Output = "text"
	OutputJSON Output = "json"
)

type cliError struct {
	status  int
	message string
	rawJSON []byte
}

func (e *cliError) Error() string {
	return e.message
}

func isValidOutput(v string) bool {
	return v == string(OutputText) || v == string(OutputJSON)
}

func FormatError(output Output, status int, message string) string {
	msg := strings.TrimSpace(message)
	if msg == "" {
		msg = http.StatusText(status)
	}

	if output == OutputJSON {
		raw, _ := json.Marshal(map[string]any{
			"status": status,
			"error":  msg,
		})
		return string(raw)
	}

	return fmt.Sprintf("error (%d): %s", status, msg)
}

func handleResponse(output Output, stdout io.Writer, resp *http.Response, reqErr error) error {
	if reqErr != nil {
		return &cliError{status: http.StatusBadGateway, message: reqErr.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &cliError{status: http.StatusInternalServerError, message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(extractErrorMessage(raw))
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		if output == OutputJSON && json.Valid(raw) {
			return &cliError{status: resp.StatusCode, message: msg, rawJSON: compactJSON(raw)}
		}
		return &cliError{status: resp.StatusCode, message: msg}
	}

	trimmed := strings.TrimSpace(string(raw))
	if output == OutputJSON {
		switch {
		case trimmed == "":
			_, _ = fmt.Fprintln(stdout, "{}")
		case json.Valid(raw):
			_, _ = fmt.Fprintln(stdout, string(compactJSON(raw)))
		default:
			encoded, _ := json.Marshal(map[string]any{"result": trimmed})
			_, _ = fmt.Fprintln(stdout, string(encoded))
		}
		return nil
	}

	if trimmed == "" {
		_, _ = fmt.Fprintln(stdout, "ok")
		return nil
	}
	_, _ = fmt.Fprintln(stdout, formatText(raw))
	return nil
}

// formatText renders cards, comments and messages as short lines; anything
// else is printed as received.
func formatText(raw []byte) string {
	var list []map[string]any
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return "(no cards)"
		}
		lines := make([]string, 0, len(list))
		for _, item := range list {
			lines = append(lines, formatCardLine(item))
		}
		return strings.Join(lines, "\n")
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return strings.TrimSpace(string(raw))
	}
	if msg, ok := obj["message"].(string); ok && len(obj) == 1 {
		return msg
	}
	if _, ok := obj["title"]; ok {
		lines := []string{formatCardLine(obj)}
		if comments, ok := obj["comments"].([]any); ok {
			for _, c := range comments {
				if comment, ok := c.(map[string]any); ok {
					lines = append(lines, "  "+formatCommentLine(comment))
				}
			}
		}
		return strings.Join(lines, "\n")
	}
	if _, ok := obj["message"]; ok {
		return formatCommentLine(obj)
	}
	return strings.TrimSpace(string(raw))
}

func formatCardLine(card map[string]any) string {
	parts := []string{fmt.Sprintf("#%v", card["id"]), fmt.Sprintf("%v", card["title"])}
	for _, key := range []string{"status", "priority", "date"} {
		if value, ok := card[key]; ok && value != nil {
			parts = append(parts, fmt.Sprintf("%s=%q", key, fmt.Sprint(value)))
		}
	}
	if user, ok := card["user"].(map[string]any); ok {
		parts = append(parts, fmt.Sprintf("owner=%v", user["name"]))
	}
	if comments, ok := card["comments"].([]any); ok {
		parts = append(parts, fmt.Sprintf("comments=%d", len(comments)))
	}
	return strings.Join(parts, " ")
}

func formatCommentLine(comment map[string]any) string {
	return fmt.Sprintf("comment #%v by user %v on %v: %v", comment["id"], comment["user_id"], comment["date"], comment["message"])
}

func extractErrorMessage(raw []byte) string {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}

	for _, key := range []string{"error", "detail", "title"} {
		if value, ok := obj[key].(string); ok && strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func compactJSON(raw []byte) []byte {
	var out bytes.Buffer
	if err := json.Compact(&out, raw); err != nil {
		return raw
	}
	return out.Bytes()
}

func asCLIError(err error, target **cliError) bool {
	return errors.As(err, target)
}

// printValue writes locally produced results (user and token commands) in
// the selected format.
func printValue(output Output, stdout io.Writer, value any, text string) error {
	if output == OutputJSON {
		raw, err := json.Marshal(value)
		if err != nil {
			return &cliError{status: http.StatusInternalServerError, message: err.Error()}
		}
		_, _ = fmt.Fprintln(stdout, string(raw))
		return nil
	}
	_, _ = fmt.Fprintln(stdout, text)
	return nil
}

func FormatWatchLine(output Output, event map[string]any) (string, error) {
	if output == OutputJSON {
		raw, err := json.Marshal(event)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}

	parts := make([]string, 0, 4)
	for _, key := range []string{"type", "card_id", "comment_id", "user_id"} {
		if value, ok := event[key]; ok && fmt.Sprintf("%v", value) != "" {
			parts = append(parts, fmt.Sprintf("%s=%v", key, value))
		}
	}
	if len(parts) == 0 {
		return "(event)", nil
	}

	return strings.Join(parts, " "), nil
}
