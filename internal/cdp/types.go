package cdp

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrProtocolError    = errors.New("protocol error")
)

// ProtocolError represents an error returned by the Chrome DevTools Protocol.
type ProtocolError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error %d: %s", e.Code, e.Message)
}

func (e *ProtocolError) Unwrap() error {
	return ErrProtocolError
}

// TargetInfo describes a browser target (tab/page).
type TargetInfo struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// EvalResult holds the value of an evaluated JavaScript expression.
type EvalResult struct {
	Value interface{} `json:"value"`
	Type  string      `json:"type,omitempty"`
}
