package common

import (
	"io"
	"net/http"
	"strings"

	"github.com/simonjohansson/taskboard/internal/client"
)

type Runtime interface {
	ServerURL() string
	Output() string
	Token() string
}

type HandleResponseFunc func(output string, stdout io.Writer, resp *http.Response, reqErr error) error

type WrapErrorFunc func(status int, message string) error

func NewClient(runtime Runtime) (*client.Client, error) {
	return client.NewClient(runtime.ServerURL(), client.WithBearerToken(runtime.Token()))
}

// OptionalString returns a pointer to the flag value only when the flag was
// set, so unset flags stay absent from partial updates.
func OptionalString(changed bool, value string) *string {
	if !changed {
		return nil
	}
	v := strings.TrimSpace(value)
	return &v
}
