package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// MessageHeader is the response header the upstream API uses to explain errors.
const MessageHeader = "message"

// UpstreamError represents a failed upstream request with its response context.
// StatusCode is 0 when no response was received.
type UpstreamError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Header     http.Header
	Body       []byte
	Err        error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("upstream %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsClientError reports whether err carries a 4xx upstream response.
func IsClientError(err error) bool {
	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		return false
	}
	return upErr.ErrorClass == ErrorClassClient
}

// ClientMessage picks the text to show callers for an upstream error:
// the message header first, then a "message" field in a JSON body.
// Returns "" when neither is present.
func (e *UpstreamError) ClientMessage() string {
	if e.Header != nil {
		if msg := e.Header.Get(MessageHeader); msg != "" {
			return msg
		}
	}

	var body struct {
		Message string `json:"message"`
	}
	if len(e.Body) > 0 && json.Unmarshal(e.Body, &body) == nil {
		return body.Message
	}
	return ""
}

// Data returns the upstream body if it is valid JSON, otherwise an empty object.
func (e *UpstreamError) Data() json.RawMessage {
	if len(e.Body) > 0 && json.Valid(e.Body) {
		return json.RawMessage(e.Body)
	}
	return json.RawMessage(`{}`)
}
