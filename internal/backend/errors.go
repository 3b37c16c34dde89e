package backend

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

var (
	ErrNotFound           = errors.New("parking api: not found")
	ErrInvalidCredentials = errors.New("parking api: invalid credentials")
	ErrShiftActive        = errors.New("parking api: shift already active")
	ErrUnauthorized       = errors.New("parking api: unauthorized")
	ErrEmptyCode          = errors.New("ticket code is required")
	ErrMissingSignURL     = errors.New("sign url is not configured")
)

type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("parking api error: %s", e.Status)
	}
	return fmt.Sprintf("parking api error: %s: %s", e.Status, e.Body)
}

// statusErrors overrides the default sentinel for a status code on a single call.
type statusErrors map[int]error

func apiErrorFromResponse(resp *resty.Response, overrides statusErrors) error {
	apiErr := &APIError{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Body:       strings.TrimSpace(resp.String()),
	}

	if sentinel, ok := overrides[resp.StatusCode()]; ok {
		return fmt.Errorf("%w: %w", sentinel, apiErr)
	}

	switch resp.StatusCode() {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrNotFound, apiErr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrUnauthorized, apiErr)
	default:
		return apiErr
	}
}
