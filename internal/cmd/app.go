package cmd

import (
	"context"
	stderrors "errors"
	"io"

	"github.com/felixgeelhaar/authflow/internal/api"
	"github.com/felixgeelhaar/authflow/internal/config"
	"github.com/felixgeelhaar/authflow/internal/flow"
	"github.com/felixgeelhaar/authflow/internal/log"
	"github.com/felixgeelhaar/authflow/internal/session"
	"github.com/felixgeelhaar/authflow/internal/store"
)

// app holds what a command run needs. The session is opened lazily so
// commands like version and serve never touch the store.
type app struct {
	cfg    config.Config
	logOut io.Writer
	logger *log.Logger

	store      store.Store
	machine    *session.Machine
	controller *flow.Controller
}

func (a *app) configure(cfg config.Config, logOut io.Writer) {
	a.cfg = cfg
	a.logOut = logOut

	base := log.DefaultConfig()
	base.Output = log.NewOutput(logOut)
	a.logger = newLogger(cfg, base)
	log.SetDefaultLogger(a.logger)
}

// session opens the store, rehydrates the machine and binds a controller.
func (a *app) session(ctx context.Context) (*flow.Controller, error) {
	if a.controller != nil {
		return a.controller, nil
	}

	st, err := store.Open(ctx, a.cfg.Store)
	if err != nil {
		return nil, err
	}
	m, err := session.New(ctx, st, session.WithLogger(a.logger))
	if err != nil {
		_ = store.Close(st)
		return nil, err
	}

	client := api.NewClient(a.cfg.APIURL, api.WithLogger(a.logger))
	a.store = st
	a.machine = m
	a.controller = flow.New(m, client, flow.WithLogger(a.logger))
	return a.controller, nil
}

func (a *app) close() error {
	if a.machine != nil {
		a.machine.Close()
		a.machine = nil
	}
	var err error
	if a.store != nil {
		err = store.Close(a.store)
		a.store = nil
	}
	a.controller = nil
	return err
}

// userFacing strips the API error wrapper down to the message the server
// sent, which is what a person at the terminal wants to read.
func userFacing(err error) error {
	var apiErr *api.Error
	if stderrors.As(err, &apiErr) {
		return &cliError{msg: apiErr.Message, err: err}
	}
	return err
}

type cliError struct {
	msg string
	err error
}

func (e *cliError) Error() string { return e.msg }

func (e *cliError) Unwrap() error { return e.err }
