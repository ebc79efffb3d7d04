package session

import (
	"fmt"

	"github.com/felixgeelhaar/authflow/internal/errors"
)

var (
	// ErrUnrecognizedEvent matches every UnrecognizedEventError.
	ErrUnrecognizedEvent = errors.New(errors.ErrCodeSessionUnrecognizedEvent, "unrecognized session event")

	// ErrInvalidPayload is returned when an event's payload would break the
	// record invariants, such as a login success without a token.
	ErrInvalidPayload = errors.New(errors.ErrCodeSessionInvalidPayload, "invalid event payload")
)

// UnrecognizedEventError reports an event type outside the declared set.
// It is a programming error on the caller's side.
type UnrecognizedEventError struct {
	Type EventType
}

func (e *UnrecognizedEventError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnrecognizedEvent.Error(), string(e.Type))
}

// Unwrap lets errors.Is(err, ErrUnrecognizedEvent) match.
func (e *UnrecognizedEventError) Unwrap() error {
	return ErrUnrecognizedEvent
}

// Next computes the record that follows r under ev. It is pure: r is not
// modified, the result shares no mutable state with r or ev, and equal
// inputs always produce equal outputs.
func Next(r Record, ev Event) (Record, error) {
	next := r.Clone()

	switch ev.Type {
	case EventLoginStart, EventSignupStart:
		next.IsLoading = true
		next.Error = ""

	case EventLoginSuccess:
		if ev.Token == "" {
			return r, ErrInvalidPayload.WithCause(fmt.Errorf("%s without a token", ev.Type))
		}
		next.IsAuthenticated = true
		next.Token = ev.Token
		next.User = ev.User.Clone()
		next.IsLoading = false
		next.Error = ""

	case EventLoginError:
		next = dropCredentials(next)
		next.IsLoading = false
		next.Error = ev.Message

	case EventLogout:
		next = dropCredentials(next)
		next.Error = ""
		next.Message = ""

	case EventSignupSuccess:
		next.IsLoading = false
		next.Error = ""
		next.Message = ev.Message

	case EventSignupError:
		next.IsLoading = false
		next.Error = ev.Message

	case EventValidateTokenSuccess:
		if r.Token == "" {
			return r, ErrInvalidPayload.WithCause(fmt.Errorf("%s with no token held", ev.Type))
		}
		next.IsAuthenticated = true
		next.User = ev.User.Clone()

	case EventValidateTokenError:
		next = dropCredentials(next)

	case EventClearError:
		next.Error = ""

	case EventClearMessage:
		next.Message = ""

	case EventSetLoading:
		next.IsLoading = ev.Loading

	default:
		return r, &UnrecognizedEventError{Type: ev.Type}
	}

	return next, nil
}

// dropCredentials clears the authenticated flag, token and user in one step.
func dropCredentials(r Record) Record {
	r.IsAuthenticated = false
	r.Token = ""
	r.User = nil
	return r
}
