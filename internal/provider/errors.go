package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrClient indicates the vendor rejected the request with a 4xx status.
	ErrClient = errors.New("vendor client error")

	// ErrServer indicates the vendor failed with a 5xx status.
	ErrServer = errors.New("vendor server error")

	// ErrRequest indicates no HTTP status was obtained at all.
	ErrRequest = errors.New("vendor request failed")
)

// ClientError reports a 4xx response. Detail carries the status line and body.
type ClientError struct {
	StatusCode int
	Detail     string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("client error: %s", e.Detail)
}

func (e *ClientError) Is(target error) bool {
	return target == ErrClient
}

// ServerError reports a 5xx response. Detail carries the status line and body.
type ServerError struct {
	StatusCode int
	Detail     string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: %s", e.Detail)
}

func (e *ServerError) Is(target error) bool {
	return target == ErrServer
}

// RequestError wraps a transport failure such as a refused connection or a timeout.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request error: %v", e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func (e *RequestError) Is(target error) bool {
	return target == ErrRequest
}
