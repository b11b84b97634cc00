package mlplatform

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrNotFound classifies 404 responses from any platform resource.
var ErrNotFound = errors.New("platform resource not found")

// APIError is a non-2xx platform response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("platform api: status %d, code %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("platform api: status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		apiErr.Message = resp.Status
		return apiErr
	}

	var payload struct {
		Errors []struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case len(payload.Errors) > 0:
			apiErr.Code = payload.Errors[0].Code
			apiErr.Message = payload.Errors[0].Message
		case payload.Message != "":
			apiErr.Code = payload.Code
			apiErr.Message = payload.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = resp.Status
	}
	return apiErr
}
