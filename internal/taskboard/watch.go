package taskboard

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

func BuildWebsocketURL(serverURL string, card int64) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(serverURL))
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid server url")
	}

	wsScheme := "ws"
	if parsed.Scheme == "https" {
		wsScheme = "wss"
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("server url must start with http:// or https://")
	}
	if card < 0 {
		return "", fmt.Errorf("card must be a positive integer")
	}

	wsURL := &url.URL{
		Scheme: wsScheme,
		Host:   parsed.Host,
		Path:   strings.TrimSuffix(parsed.Path, "/") + "/ws",
	}

	if card > 0 {
		q := wsURL.Query()
		q.Set("card", strconv.FormatInt(card, 10))
		wsURL.RawQuery = q.Encode()
	}

	return wsURL.String(), nil
}
