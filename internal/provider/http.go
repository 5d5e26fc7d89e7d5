package provider

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxBodyBytes bounds how much of a vendor reply is buffered.
const maxBodyBytes = 16 << 20

// ErrBodyTooLarge reports a vendor reply larger than maxBodyBytes.
var ErrBodyTooLarge = errors.New("response body exceeds limit")

// Do sends req and captures the status and body whatever the status is.
func Do(client *http.Client, req *http.Request) (Result, error) {
	resp, err := client.Do(req)
	if err != nil {
		return Result{}, &RequestError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return Result{}, &RequestError{Err: fmt.Errorf("read response body (status %d): %w", resp.StatusCode, err)}
	}
	if len(body) > maxBodyBytes {
		return Result{}, &RequestError{Err: fmt.Errorf("%w: more than %d bytes (status %d)", ErrBodyTooLarge, maxBodyBytes, resp.StatusCode)}
	}

	return Result{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(body),
	}, nil
}
