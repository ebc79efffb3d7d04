package api

import (
	"fmt"

	"github.com/felixgeelhaar/authflow/internal/errors"
)

// Kind classifies a failed call.
type Kind int

const (
	// KindNetwork means no response was received.
	KindNetwork Kind = iota
	// KindServer means the server answered with a non-2xx status.
	KindServer
	// KindUnexpected covers everything else, such as an undecodable body.
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	default:
		return "unexpected"
	}
}

// User-facing messages for failures that carry no server message.
const (
	MsgNetwork    = "connection error: check your network connection"
	MsgServer     = "server error"
	MsgUnexpected = "unexpected error: please try again"
)

var errMissingToken = errors.New(errors.ErrCodeAPIUnexpected, "login response carried no token")

// Error is returned by every Client method.
type Error struct {
	Kind Kind
	// Status is the HTTP status, zero when no response was received.
	Status int
	// Message is safe to show to the user.
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("api %s error (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("api %s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match the API-* error codes.
func (e *Error) Is(target error) bool {
	t, ok := target.(*errors.AuthflowError)
	return ok && t.Code == e.Code()
}

// Code returns the error code for the kind.
func (e *Error) Code() errors.ErrorCode {
	switch e.Kind {
	case KindNetwork:
		return errors.ErrCodeAPINetwork
	case KindServer:
		return errors.ErrCodeAPIRejected
	default:
		return errors.ErrCodeAPIUnexpected
	}
}

// Unauthorized reports whether the server refused the credentials.
func (e *Error) Unauthorized() bool {
	return e.Kind == KindServer && e.Status == 401
}

func network(cause error) *Error {
	return &Error{Kind: KindNetwork, Message: MsgNetwork, Cause: cause}
}

func server(status int, msg string) *Error {
	if msg == "" {
		msg = MsgServer
	}
	return &Error{Kind: KindServer, Status: status, Message: msg}
}

func unexpected(status int, cause error) *Error {
	return &Error{Kind: KindUnexpected, Status: status, Message: MsgUnexpected, Cause: cause}
}

// KindOf returns the kind of err, or KindUnexpected for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// Message returns the string to show the user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return MsgUnexpected
}
