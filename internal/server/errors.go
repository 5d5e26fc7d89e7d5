package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"llm-bridge/internal/provider"
	"llm-bridge/internal/request"
	"llm-bridge/internal/response"
	"llm-bridge/internal/tool"
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

func jsonErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var reqErr requestError
	if errors.As(err, &reqErr) {
		_ = writeError(c, reqErr.Status, reqErr.Message, reqErr.Type, reqErr.Code)
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		message := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			message = m
		}
		_ = writeError(c, he.Code, message, "invalid_request_error", "")
		return
	}

	_ = writeError(c, http.StatusInternalServerError, "internal server error", "server_error", "")
}

func errorStatus(err error) int {
	var reqErr requestError
	if errors.As(err, &reqErr) {
		return reqErr.Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}

func invalidRequest(err error) requestError {
	return requestError{
		Status:  http.StatusBadRequest,
		Message: err.Error(),
		Type:    "invalid_request_error",
	}
}

func upstream(status int, err error, code string) requestError {
	return requestError{
		Status:  status,
		Message: err.Error(),
		Type:    "upstream_error",
		Code:    code,
	}
}

// toHTTPError maps domain errors to API errors. Problems with the caller's
// request are 400s; anything that went wrong talking to the vendor is a 502,
// or a 504 when the vendor timed out.
func toHTTPError(err error) error {
	var reqErr requestError
	if errors.As(err, &reqErr) {
		return reqErr
	}

	switch {
	case errors.Is(err, request.ErrMissingMessages),
		errors.Is(err, request.ErrInvalidUsage),
		errors.Is(err, tool.ErrMissingField),
		errors.Is(err, provider.ErrUnknownModel),
		errors.Is(err, provider.ErrUnknownProvider):
		return invalidRequest(err)
	case errors.Is(err, provider.ErrClient):
		return upstream(http.StatusBadGateway, err, "vendor_client_error")
	case errors.Is(err, provider.ErrServer):
		return upstream(http.StatusBadGateway, err, "vendor_server_error")
	case errors.Is(err, context.DeadlineExceeded):
		return upstream(http.StatusGatewayTimeout, err, "vendor_timeout")
	case errors.Is(err, provider.ErrRequest):
		return upstream(http.StatusBadGateway, err, "vendor_unreachable")
	case errors.Is(err, response.ErrUnrecognizedShape):
		return upstream(http.StatusBadGateway, err, "vendor_response_invalid")
	}

	return requestError{
		Status:  http.StatusBadGateway,
		Message: "upstream provider error",
		Type:    "upstream_error",
	}
}
