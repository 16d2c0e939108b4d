package core

import "errors"

// Error codes for protocol errors reported back to a peer.
const (
	ErrCodeAlreadyLoggedIn  = "already_logged_in"
	ErrCodeLoginTaken       = "login_taken"
	ErrCodeBadLogin         = "bad_login"
	ErrCodeNotAuthenticated = "not_authenticated"
	ErrCodeInvalidCommand   = "invalid_command"
	ErrCodeEmptyMessage     = "empty_message"
	ErrCodeRateLimited      = "rate_limited"
)

var (
	ErrAlreadyLoggedIn  = errors.New("already logged in")
	ErrLoginTaken       = errors.New("login id in use")
	ErrEmptyLoginID     = errors.New("empty login id")
	ErrConnectionClosed = errors.New("connection closed")
	ErrNotRegistered    = errors.New("connection not registered")
)

// CoreError wraps a code and the human-readable reply sent to the peer.
type CoreError struct {
	Code    string
	Message string
	Err     error
}

func (e *CoreError) Error() string {
	return e.Message
}

func (e *CoreError) Unwrap() error {
	return e.Err
}

func coreError(code, msg string, err error) *CoreError {
	return &CoreError{Code: code, Message: msg, Err: err}
}

// ProtocolError builds a CoreError for a rejected peer line.
func ProtocolError(code, msg string) *CoreError {
	return coreError(code, msg, nil)
}
