package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"githubhunt-gateway/internal/auth"
	"githubhunt-gateway/internal/translator"
)

type requestError struct {
	Status  int
	Message string
	Type    string
	Code    string
}

func (e requestError) Error() string {
	return e.Message
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code,omitempty"`
	} `json:"error"`
}

func writeError(c echo.Context, status int, message, errType, code string) error {
	var payload errorBody
	payload.Error.Message = message
	payload.Error.Type = errType
	payload.Error.Code = code
	return c.JSON(status, payload)
}

// openAIErrorHandler renders every handler error as an OpenAI-style
// {"error": {...}} envelope.
func openAIErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var reqErr requestError
	if errors.As(err, &reqErr) {
		_ = writeError(c, reqErr.Status, reqErr.Message, reqErr.Type, reqErr.Code)
		return
	}

	type httpError interface {
		Code() int
		Error() string
	}

	if he, ok := err.(httpError); ok {
		_ = writeError(c, he.Code(), he.Error(), "invalid_request_error", "")
		return
	}

	_ = writeError(c, http.StatusInternalServerError, "internal server error", "server_error", "")
}

func authError(err error) error {
	message := "Invalid API key"
	switch {
	case errors.Is(err, auth.ErrMissingCredential):
		message = "Missing Authorization header"
	case errors.Is(err, auth.ErrMalformedCredential):
		message = "Invalid Authorization header format"
	}
	return requestError{
		Status:  http.StatusUnauthorized,
		Message: message,
		Type:    "authentication_error",
		Code:    "invalid_api_key",
	}
}

func queryError(err error) error {
	switch {
	case errors.Is(err, translator.ErrNoUserMessage):
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "No user message found in conversation",
			Type:    "invalid_request_error",
		}
	case errors.Is(err, translator.ErrMultimodalContent):
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "Multimodal input (text+image) is not supported yet, please use text-only queries",
			Type:    "invalid_request_error",
		}
	default:
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "Failed to parse messages: " + err.Error(),
			Type:    "invalid_request_error",
		}
	}
}

func agentError(err error) error {
	return requestError{
		Status:  http.StatusInternalServerError,
		Message: "Agent execution failed: " + err.Error(),
		Type:    "internal_error",
		Code:    "agent_execution_failed",
	}
}
