package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/simonjohansson/taskboard/internal/service"
)

const msgMissingToken = "Missing or invalid bearer token"

// errorBody is the single error shape returned by every endpoint.
type errorBody struct {
	status  int
	Message string `json:"error"`
}

func (e *errorBody) Error() string  { return e.Message }
func (e *errorBody) GetStatus() int { return e.status }

func init() {
	huma.NewError = newErrorBody
}

// newErrorBody folds huma's request validation details into the message and
// reports them as 400 like every other invalid payload.
func newErrorBody(status int, msg string, errs ...error) huma.StatusError {
	if status == http.StatusUnprocessableEntity {
		status = http.StatusBadRequest
	}
	details := make([]string, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			details = append(details, err.Error())
		}
	}
	if len(details) > 0 {
		msg = msg + ": " + strings.Join(details, "; ")
	}
	return &errorBody{status: status, Message: msg}
}

func toHumaError(err error) error {
	return newErrorBody(statusForError(err), service.MessageOf(err))
}

func statusForError(err error) int {
	switch service.CodeOf(err) {
	case service.CodeValidation:
		return http.StatusBadRequest
	case service.CodeUnauthorized:
		return http.StatusUnauthorized
	case service.CodeForbidden:
		return http.StatusForbidden
	case service.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders the error body for handlers outside huma.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Message: msg})
}
