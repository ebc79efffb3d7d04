package server

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Response messages of the account endpoints.
const (
	msgNoData          = "No data provided"
	msgRequired        = "Email and password are required"
	msgInvalidEmail    = "Invalid email format"
	msgShortPassword   = "Password must be at least 6 characters long"
	msgUserExists      = "User already exists with this email"
	msgUserCreated     = "User created successfully"
	msgBadCredentials  = "Invalid email or password"
	msgDeactivated     = "Account is deactivated"
	msgLoginSuccessful = "Login successful"
	msgTokenMissing    = "Token is missing"
	msgTokenInvalid    = "Token is invalid or expired"
	msgUserInactive    = "User not found or inactive"
	msgTokenValid      = "Token is valid"
	msgInternal        = "Internal server error"
	msgHello           = "Hello! I'm a message that came from the backend, check the network tab on the google inspector and you will see the GET request"
)

// MinPasswordLength is the shortest password signup accepts.
const MinPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// credentials is the body of signup and login requests
type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ValidateLogin checks that both fields are present
func (c credentials) ValidateLogin() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email, validation.Required.Error(msgRequired)),
		validation.Field(&c.Password, validation.Required.Error(msgRequired)),
	)
}

// ValidateSignup runs the signup rules
func (c credentials) ValidateSignup() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email,
			validation.Required.Error(msgRequired),
			validation.Match(emailPattern).Error(msgInvalidEmail),
		),
		validation.Field(&c.Password,
			validation.Required.Error(msgRequired),
			validation.RuneLength(MinPasswordLength, 0).Error(msgShortPassword),
		),
	)
}

// firstMessage picks the message to report from a validation failure:
// a missing field first, then the email, then the password.
func firstMessage(err error) string {
	errs, ok := err.(validation.Errors)
	if !ok {
		return err.Error()
	}
	for _, field := range []string{"email", "password"} {
		if e, ok := errs[field]; ok && e.Error() == msgRequired {
			return msgRequired
		}
	}
	for _, field := range []string{"email", "password"} {
		if e, ok := errs[field]; ok {
			return e.Error()
		}
	}
	return err.Error()
}
