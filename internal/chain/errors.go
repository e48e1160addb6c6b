package chain

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	// Transient: the same request may succeed on retry.
	CodeTimeout    ErrorCode = "timeout"
	CodeThrottled  ErrorCode = "throttled"
	CodeStaleRoute ErrorCode = "stale_route"

	// Permanent: retrying cannot help.
	CodeUnregisteredSigner ErrorCode = "unregistered_signer"
	CodeInsufficientFunds  ErrorCode = "insufficient_funds"
	CodeRejected           ErrorCode = "rejected"
	CodeInvalidRequest     ErrorCode = "invalid_request"
)

type Error struct {
	Code ErrorCode
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// IsTransient reports whether err is a network fault worth retrying.
// Unknown errors count as transient: a flaky node should not turn a bet
// into a permanent failure on the first hiccup.
func IsTransient(err error) bool {
	var ce *Error
	if errors.As(err, &ce) {
		switch ce.Code {
		case CodeTimeout, CodeThrottled, CodeStaleRoute:
			return true
		default:
			return false
		}
	}
	return true
}

func CodeOf(err error) ErrorCode {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
