// Package flow drives the session machine from API calls. Each operation
// issues the request, then feeds its outcome back into the machine as an
// event; the machine itself never touches the network.
package flow

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/felixgeelhaar/authflow/internal/api"
	"github.com/felixgeelhaar/authflow/internal/errors"
	"github.com/felixgeelhaar/authflow/internal/log"
	"github.com/felixgeelhaar/authflow/internal/session"
)

// API is the subset of *api.Client the controller needs.
type API interface {
	Signup(ctx context.Context, email, password string) (*api.SignupResponse, error)
	Login(ctx context.Context, email, password string) (*api.LoginResponse, error)
	ValidateToken(ctx context.Context, token string) (*api.ValidateResponse, error)
	Profile(ctx context.Context, token string) (*api.ProfileResponse, error)
	Hello(ctx context.Context) (*api.HelloResponse, error)
}

const (
	kindLogin    = "login"
	kindSignup   = "signup"
	kindValidate = "validate"
)

// Controller runs the login, signup, validation and logout flows.
//
// Calls of the same kind share one in-flight request: a second Login while
// one is pending waits for and returns the first one's result, and its own
// credentials are not sent.
type Controller struct {
	machine *session.Machine
	api     API
	logger  *log.Logger
	group   singleflight.Group
}

// Option customizes a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New binds a Controller to m and client.
func New(m *session.Machine, client API, opts ...Option) *Controller {
	c := &Controller{
		machine: m,
		api:     client,
		logger:  log.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("subsystem", "flow")
	return c
}

// Machine returns the bound session machine.
func (c *Controller) Machine() *session.Machine {
	return c.machine
}

// Login authenticates with email and password. An API failure is recorded
// in the session's Error and also returned, except that a transport failure
// while a session is held leaves that session in place.
func (c *Controller) Login(ctx context.Context, email, password string) (session.Record, error) {
	return c.shared(ctx, kindLogin, func() (session.Record, error) {
		return c.login(ctx, email, password)
	})
}

func (c *Controller) login(ctx context.Context, email, password string) (session.Record, error) {
	if _, err := c.ClearNotices(ctx); err != nil {
		return c.machine.State(), err
	}
	t := c.machine.Begin()
	if _, err := c.machine.DispatchFor(ctx, t, session.LoginStart()); err != nil {
		return c.machine.State(), err
	}

	resp, err := c.api.Login(ctx, email, password)
	if err != nil {
		c.logger.WithError(err).InfoContext(ctx, "login failed")
		if api.IsKind(err, api.KindNetwork) && c.machine.State().IsAuthenticated {
			if serr := c.machine.Settle(ctx, t); serr != nil {
				return c.machine.State(), serr
			}
			return c.machine.State(), err
		}
		return c.settle(ctx, t, session.LoginError(api.Message(err)), err)
	}
	return c.settle(ctx, t, session.LoginSuccess(resp.Token, resp.User), nil)
}

// Signup creates an account. It never authenticates; the confirmation is
// left in the session's Message.
func (c *Controller) Signup(ctx context.Context, email, password string) (session.Record, error) {
	return c.shared(ctx, kindSignup, func() (session.Record, error) {
		return c.signup(ctx, email, password)
	})
}

func (c *Controller) signup(ctx context.Context, email, password string) (session.Record, error) {
	if _, err := c.ClearNotices(ctx); err != nil {
		return c.machine.State(), err
	}
	t := c.machine.Begin()
	if _, err := c.machine.DispatchFor(ctx, t, session.SignupStart()); err != nil {
		return c.machine.State(), err
	}

	resp, err := c.api.Signup(ctx, email, password)
	if err != nil {
		c.logger.WithError(err).InfoContext(ctx, "signup failed")
		return c.settle(ctx, t, session.SignupError(api.Message(err)), err)
	}
	return c.settle(ctx, t, session.SignupSuccess(resp.Message), nil)
}

// settle applies the outcome of a fenced request. A superseded outcome is
// dropped and the request's loading flag released.
func (c *Controller) settle(ctx context.Context, t session.Ticket, ev session.Event, callErr error) (session.Record, error) {
	rec, err := c.machine.DispatchFor(ctx, t, ev)
	if errors.Is(err, session.ErrStaleOutcome) {
		if serr := c.machine.Settle(ctx, t); serr != nil {
			c.logger.LogError(ctx, "could not release loading flag", serr)
		}
		return c.machine.State(), err
	}
	if err != nil {
		return rec, err
	}
	return rec, callErr
}

// Validate checks the held token with the server.
//
// Without a token no request is made and a not-authenticated error is
// returned. A rejection by the server ends the session. A transport failure
// or a server fault changes nothing and is returned as is.
func (c *Controller) Validate(ctx context.Context) (session.Record, error) {
	return c.shared(ctx, kindValidate, func() (session.Record, error) {
		return c.validate(ctx)
	})
}

func (c *Controller) validate(ctx context.Context) (session.Record, error) {
	rec := c.machine.State()
	if rec.Token == "" {
		return rec, errors.NewNotAuthenticatedError()
	}
	token := rec.Token
	holds := func(r session.Record) bool { return r.Token == token }

	resp, err := c.api.ValidateToken(ctx, token)
	if err != nil {
		if !rejected(err) {
			c.logger.WithError(err).WarnContext(ctx, "token validation unavailable")
			return c.machine.State(), err
		}
		c.logger.InfoContext(ctx, "token rejected", "token_fp", log.Fingerprint(token))
		rec, derr := c.machine.DispatchWhen(ctx, holds, session.ValidateTokenError())
		if derr != nil {
			return rec, derr
		}
		return rec, err
	}
	return c.machine.DispatchWhen(ctx, holds, session.ValidateTokenSuccess(resp.User))
}

// Logout ends the session locally. There is no server call.
func (c *Controller) Logout(ctx context.Context) (session.Record, error) {
	return c.machine.Dispatch(ctx, session.Logout())
}

// ClearNotices drops the last error and message.
func (c *Controller) ClearNotices(ctx context.Context) (session.Record, error) {
	if _, err := c.machine.Dispatch(ctx, session.ClearError()); err != nil {
		return c.machine.State(), err
	}
	return c.machine.Dispatch(ctx, session.ClearMessage())
}

// Profile fetches the current user's profile. A rejection of the held
// token ends the session like a failed validation; other failures leave it.
func (c *Controller) Profile(ctx context.Context) (*session.User, error) {
	rec := c.machine.State()
	if rec.Token == "" {
		return nil, errors.NewNotAuthenticatedError()
	}
	token := rec.Token

	resp, err := c.api.Profile(ctx, token)
	if err != nil {
		if rejected(err) {
			c.logger.InfoContext(ctx, "token rejected", "token_fp", log.Fingerprint(token))
			holds := func(r session.Record) bool { return r.Token == token }
			if _, derr := c.machine.DispatchWhen(ctx, holds, session.ValidateTokenError()); derr != nil && !errors.Is(derr, session.ErrStaleOutcome) {
				return nil, derr
			}
		}
		return nil, err
	}
	return resp.User, nil
}

// Hello returns the greeting from the unauthenticated hello endpoint.
func (c *Controller) Hello(ctx context.Context) (string, error) {
	resp, err := c.api.Hello(ctx)
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (c *Controller) shared(ctx context.Context, kind string, fn func() (session.Record, error)) (session.Record, error) {
	v, err, joined := c.group.Do(kind, func() (any, error) {
		return fn()
	})
	if joined {
		c.logger.DebugContext(ctx, "joined in-flight request", "kind", kind)
	}
	rec, _ := v.(session.Record)
	return rec.Clone(), err
}

// rejected reports whether the server refused the request itself, as
// opposed to failing to answer it.
func rejected(err error) bool {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Kind != api.KindServer {
		return false
	}
	return apiErr.Status >= 400 && apiErr.Status < 500
}
