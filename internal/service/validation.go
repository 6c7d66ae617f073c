package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/simonjohansson/taskboard/internal/model"
)

// CardPayload carries the writable card fields. A nil field is absent from
// the request; a non-nil field is applied and validated, even when empty.
type CardPayload struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
}

func (p CardPayload) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Priority == nil
}

type CommentPayload struct {
	Message *string
}

const (
	msgOngoingConflict = "You already have an ongoing card"
	msgNotOwner        = "You are not the owner of the card"
	msgNotAuthorised   = "User is not authorised to perform this action."
)

var titlePattern = regexp.MustCompile(`^[a-zA-Z0-9 ]+$`)

func validateTitle(title string) error {
	// Surrounding spaces do not count towards the minimum length.
	if len(strings.TrimSpace(title)) < 2 {
		return newError(CodeValidation, "Title must be at least 2 characters long", nil)
	}
	if !titlePattern.MatchString(title) {
		return newError(CodeValidation, "Title can only have alphanumeric characters and spaces", nil)
	}
	return nil
}

func validateStatus(status string) error {
	if _, ok := model.AllowedStatus[status]; !ok {
		return newError(CodeValidation, fmt.Sprintf("Invalid status. Must be one of: %s", strings.Join(model.StatusValues, ", ")), nil)
	}
	return nil
}

func validatePriority(priority string) error {
	if _, ok := model.AllowedPriority[priority]; !ok {
		return newError(CodeValidation, fmt.Sprintf("Invalid priority. Must be one of: %s", strings.Join(model.PriorityValues, ", ")), nil)
	}
	return nil
}

// validateCardFields checks every field present in the payload.
func validateCardFields(p CardPayload) error {
	if p.Title != nil {
		if err := validateTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.Status != nil {
		if err := validateStatus(*p.Status); err != nil {
			return err
		}
	}
	if p.Priority != nil {
		if err := validatePriority(*p.Priority); err != nil {
			return err
		}
	}
	return nil
}

func validateMessage(message *string) error {
	if message == nil || strings.TrimSpace(*message) == "" {
		return newError(CodeValidation, "Message is required", nil)
	}
	return nil
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
