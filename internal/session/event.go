package session

// EventType names a transition.
type EventType string

// The complete event set. Next rejects anything else.
const (
	EventLoginStart           EventType = "LOGIN_START"
	EventLoginSuccess         EventType = "LOGIN_SUCCESS"
	EventLoginError           EventType = "LOGIN_ERROR"
	EventLogout               EventType = "LOGOUT"
	EventSignupStart          EventType = "SIGNUP_START"
	EventSignupSuccess        EventType = "SIGNUP_SUCCESS"
	EventSignupError          EventType = "SIGNUP_ERROR"
	EventValidateTokenSuccess EventType = "VALIDATE_TOKEN_SUCCESS"
	EventValidateTokenError   EventType = "VALIDATE_TOKEN_ERROR"
	EventClearError           EventType = "CLEAR_ERROR"
	EventClearMessage         EventType = "CLEAR_MESSAGE"
	EventSetLoading           EventType = "SET_LOADING"
)

// EventTypes lists every recognized event type in declaration order.
func EventTypes() []EventType {
	return []EventType{
		EventLoginStart,
		EventLoginSuccess,
		EventLoginError,
		EventLogout,
		EventSignupStart,
		EventSignupSuccess,
		EventSignupError,
		EventValidateTokenSuccess,
		EventValidateTokenError,
		EventClearError,
		EventClearMessage,
		EventSetLoading,
	}
}

// Event is a named transition plus its payload. Only the payload fields
// relevant to Type are read.
type Event struct {
	Type EventType

	Token   string
	User    *User
	Message string
	Loading bool
}

func (e Event) String() string {
	return string(e.Type)
}

// LoginStart marks a login request as in flight.
func LoginStart() Event { return Event{Type: EventLoginStart} }

// LoginSuccess carries the credentials returned by a successful login.
func LoginSuccess(token string, user *User) Event {
	return Event{Type: EventLoginSuccess, Token: token, User: user.Clone()}
}

// LoginError carries the message of a failed login.
func LoginError(message string) Event {
	return Event{Type: EventLoginError, Message: message}
}

// Logout ends the session.
func Logout() Event { return Event{Type: EventLogout} }

// SignupStart marks a signup request as in flight.
func SignupStart() Event { return Event{Type: EventSignupStart} }

// SignupSuccess carries the confirmation notice of a successful signup.
func SignupSuccess(message string) Event {
	return Event{Type: EventSignupSuccess, Message: message}
}

// SignupError carries the message of a failed signup.
func SignupError(message string) Event {
	return Event{Type: EventSignupError, Message: message}
}

// ValidateTokenSuccess carries the profile returned by token validation.
func ValidateTokenSuccess(user *User) Event {
	return Event{Type: EventValidateTokenSuccess, User: user.Clone()}
}

// ValidateTokenError reports that the server rejected the held token.
func ValidateTokenError() Event { return Event{Type: EventValidateTokenError} }

// ClearError drops the last error.
func ClearError() Event { return Event{Type: EventClearError} }

// ClearMessage drops the last notice.
func ClearMessage() Event { return Event{Type: EventClearMessage} }

// SetLoading sets the loading flag explicitly.
func SetLoading(loading bool) Event {
	return Event{Type: EventSetLoading, Loading: loading}
}
