// Package errors defines the relay error taxonomy used to pick HTTP status
// codes at the boundary and human-readable replies inside the wizard engine.
package errors

import (
	"errors"
	"fmt"
	"net"
)

// ValidationError reports a malformed inbound payload, e.g. a missing
// required field. Rejected at the boundary with a 422.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid payload: %s (%s)", e.Message, e.Field)
	}
	return fmt.Sprintf("invalid payload: %s", e.Message)
}

// AuthError reports a bad shared secret or a rejected credential. Rejected
// at the boundary with a 403.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("auth error: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// StateError reports a callback referencing a session or wizard that was
// never initialized. Handlers treat it as recoverable and ask the user to
// restart the command.
type StateError struct {
	Message string
}

func (e *StateError) Error() string {
	return e.Message
}

// UpstreamKind classifies a backend-service failure.
type UpstreamKind int

const (
	// UpstreamNetwork - no response was received at all.
	UpstreamNetwork UpstreamKind = iota
	// UpstreamAuth - the backend rejected the credential.
	UpstreamAuth
	// UpstreamDomain - the backend answered with a well-formed error body.
	UpstreamDomain
)

func (k UpstreamKind) String() string {
	switch k {
	case UpstreamNetwork:
		return "network"
	case UpstreamAuth:
		return "auth"
	default:
		return "domain"
	}
}

// UpstreamError reports a backend task/time-tracking service failure.
type UpstreamError struct {
	Kind       UpstreamKind
	Op         string // backend operation, e.g. "fetch-objectives"
	StatusCode int    // HTTP status if a response was received
	Message    string // user-facing text from the error body
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsAuth reports whether err is an AuthError.
func IsAuth(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

// AsUpstream extracts an UpstreamError from err's chain.
func AsUpstream(err error) (*UpstreamError, bool) {
	var target *UpstreamError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// IsUpstreamNetwork reports whether err is an upstream failure with no
// response, including raw net errors that were not yet wrapped.
func IsUpstreamNetwork(err error) bool {
	if upstream, ok := AsUpstream(err); ok {
		return upstream.Kind == UpstreamNetwork
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// UserMessage returns the text surfaced to the chat user for err. Every
// failure path ends in a reply, so this never returns an empty string.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var state *StateError
	if errors.As(err, &state) {
		return state.Message
	}
	if upstream, ok := AsUpstream(err); ok {
		if upstream.Kind == UpstreamNetwork {
			return "The task service did not respond. Please try again."
		}
		return upstream.Error()
	}
	return err.Error()
}
