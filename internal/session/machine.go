package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/authflow/internal/errors"
	"github.com/felixgeelhaar/authflow/internal/log"
	"github.com/felixgeelhaar/authflow/internal/store"
)

var (
	// ErrClosed is returned by Dispatch after Close.
	ErrClosed = errors.New(errors.ErrCodeSessionClosed, "session machine is closed")

	// ErrStaleOutcome is returned by DispatchFor when the ticket was
	// superseded before the outcome arrived. Nothing was applied.
	ErrStaleOutcome = errors.New(errors.ErrCodeSessionStaleOutcome, "outcome of a superseded request")
)

// Subscriber receives every committed record, in dispatch order.
// It runs while the machine is still serializing transitions, so it must not
// call Dispatch itself; hand the work to a goroutine instead.
type Subscriber func(Record)

// Ticket identifies one request started with Begin.
type Ticket struct {
	epoch uint64
}

// Option customizes a Machine.
type Option func(*Machine)

// WithLogger sets the logger used for transition traces.
func WithLogger(logger *log.Logger) Option {
	return func(m *Machine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Machine owns the session record and the store it mirrors into.
// It is safe for concurrent use; transitions are applied one at a time in
// the order Dispatch is called.
type Machine struct {
	store  store.Store
	logger *log.Logger

	// dispatchMu serializes transitions, store writes and notifications.
	dispatchMu sync.Mutex

	// mu guards the fields below for readers such as State.
	mu          sync.RWMutex
	record      Record
	subscribers []subscription
	nextSubID   int
	closed      bool
	epoch       uint64
	lastIssued  uint64
}

type subscription struct {
	id int
	fn Subscriber
}

// New creates a Machine whose record is rehydrated from st. The result is
// optimistic: a stored token counts as authenticated until validation says
// otherwise.
func New(ctx context.Context, st store.Store, opts ...Option) (*Machine, error) {
	m := &Machine{
		store:  st,
		logger: log.DefaultLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	m.logger = m.logger.With("subsystem", "session")

	rec, err := Rehydrate(ctx, st, m.logger)
	if err != nil {
		return nil, err
	}
	m.record = rec

	m.logger.DebugContext(ctx, "session rehydrated",
		"authenticated", rec.IsAuthenticated,
		"has_user", rec.User != nil,
		"token_fp", log.Fingerprint(rec.Token),
	)
	return m, nil
}

// Rehydrate builds the startup record from st. A stored token yields an
// authenticated record with the cached profile, if it parses. A profile left
// behind without a token is removed so both keys are absent together.
func Rehydrate(ctx context.Context, st store.Store, logger *log.Logger) (Record, error) {
	if logger == nil {
		logger = log.DefaultLogger()
	}

	token, hasToken, err := st.Get(ctx, store.KeyToken)
	if err != nil {
		return Record{}, err
	}
	raw, hasUser, err := st.Get(ctx, store.KeyUserData)
	if err != nil {
		return Record{}, err
	}

	if !hasToken || token == "" {
		if hasUser {
			if err := st.Remove(ctx, store.KeyUserData); err != nil {
				logger.WithError(err).WarnContext(ctx, "could not remove orphaned profile")
			}
		}
		return Unauthenticated(), nil
	}

	rec := Record{IsAuthenticated: true, Token: token}
	if hasUser {
		var u User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			logger.WithError(err).WarnContext(ctx, "ignoring unreadable cached profile")
		} else {
			rec.User = &u
		}
	}
	return rec, nil
}

// State returns a copy of the current record.
func (m *Machine) State() Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.record.Clone()
}

// Subscribe registers fn for every future committed record and returns a
// function that removes it. fn is not called with the current record.
func (m *Machine) Subscribe(fn Subscriber) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return func() {}
	}
	m.nextSubID++
	id := m.nextSubID
	m.subscribers = append(m.subscribers, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, s := range m.subscribers {
				if s.id == id {
					m.subscribers = append(m.subscribers[:i:i], m.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

// Dispatch applies ev. When it returns without error the new record is
// committed, mirrored into the store and delivered to subscribers. On error
// nothing changed: the record, the store and subscribers are as before.
func (m *Machine) Dispatch(ctx context.Context, ev Event) (Record, error) {
	m.dispatchMu.Lock()
	defer m.dispatchMu.Unlock()
	return m.apply(ctx, ev)
}

// Begin starts a fenced request. Outcomes delivered through DispatchFor with
// the returned ticket are dropped if another Begin, a LOGOUT or a
// VALIDATE_TOKEN_ERROR happened in the meantime.
func (m *Machine) Begin() Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	m.lastIssued = m.epoch
	return Ticket{epoch: m.epoch}
}

// DispatchFor applies ev only while t is current, otherwise it returns
// ErrStaleOutcome and changes nothing.
func (m *Machine) DispatchFor(ctx context.Context, t Ticket, ev Event) (Record, error) {
	m.dispatchMu.Lock()
	defer m.dispatchMu.Unlock()

	m.mu.RLock()
	current := m.epoch
	m.mu.RUnlock()

	if t.epoch != current {
		m.logger.DebugContext(ctx, "dropping stale outcome", "event", ev.Type)
		return m.State(), ErrStaleOutcome.WithCause(fmt.Errorf("%s", ev.Type))
	}
	return m.apply(ctx, ev)
}

// DispatchWhen applies ev only if cond holds for the current record, checked
// under the same lock that applies ev. Otherwise it returns ErrStaleOutcome.
func (m *Machine) DispatchWhen(ctx context.Context, cond func(Record) bool, ev Event) (Record, error) {
	m.dispatchMu.Lock()
	defer m.dispatchMu.Unlock()

	if cur := m.State(); !cond(cur) {
		m.logger.DebugContext(ctx, "dropping outcome for a changed session", "event", ev.Type)
		return cur, ErrStaleOutcome.WithCause(fmt.Errorf("%s", ev.Type))
	}
	return m.apply(ctx, ev)
}

// Settle clears the loading flag left behind by a request whose outcome was
// dropped, unless a newer request has started since and now owns the flag.
func (m *Machine) Settle(ctx context.Context, t Ticket) error {
	m.dispatchMu.Lock()
	defer m.dispatchMu.Unlock()

	m.mu.RLock()
	owner := m.lastIssued == t.epoch
	loading := m.record.IsLoading
	m.mu.RUnlock()

	if !owner || !loading {
		return nil
	}
	_, err := m.apply(ctx, SetLoading(false))
	return err
}

// Close disposes the machine. Subscribers are dropped and later dispatches
// fail with ErrClosed. The store is left as is.
func (m *Machine) Close() {
	m.dispatchMu.Lock()
	defer m.dispatchMu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.subscribers = nil
}

// apply runs one transition. The caller holds dispatchMu.
func (m *Machine) apply(ctx context.Context, ev Event) (Record, error) {
	m.mu.RLock()
	closed := m.closed
	prev := m.record
	m.mu.RUnlock()

	if closed {
		return Record{}, ErrClosed
	}

	next, err := Next(prev, ev)
	if err != nil {
		m.logger.WithError(err).WarnContext(ctx, "transition rejected", "event", ev.Type)
		return prev.Clone(), err
	}

	if err := m.sync(ctx, prev, next, ev); err != nil {
		m.logger.WithError(err).ErrorContext(ctx, "store sync failed, transition not applied", "event", ev.Type)
		return prev.Clone(), err
	}

	m.mu.Lock()
	m.record = next
	if ev.Type == EventLogout || ev.Type == EventValidateTokenError {
		m.epoch++
	}
	subs := make([]subscription, len(m.subscribers))
	copy(subs, m.subscribers)
	m.mu.Unlock()

	m.logger.DebugContext(ctx, "session transition",
		"event", ev.Type,
		"authenticated", next.IsAuthenticated,
		"loading", next.IsLoading,
		"token_fp", log.Fingerprint(next.Token),
	)

	for _, s := range subs {
		s.fn(next.Clone())
	}
	return next.Clone(), nil
}

// sync mirrors the token and profile of next into the store.
// LOGIN_SUCCESS persists both keys. LOGOUT and VALIDATE_TOKEN_ERROR always
// remove both. Any other transition that drops a held token removes both as
// well, so the store never keeps a token the record no longer has.
func (m *Machine) sync(ctx context.Context, prev, next Record, ev Event) error {
	switch {
	case ev.Type == EventLoginSuccess:
		return m.persist(ctx, prev, next)
	case ev.Type == EventLogout, ev.Type == EventValidateTokenError:
		return m.clear(ctx, prev)
	case prev.Token != "" && next.Token == "":
		return m.clear(ctx, prev)
	}
	return nil
}

func (m *Machine) persist(ctx context.Context, prev, next Record) error {
	if err := m.store.Set(ctx, store.KeyToken, next.Token); err != nil {
		return m.syncFailed(ctx, prev, err)
	}

	if next.User == nil {
		if err := m.store.Remove(ctx, store.KeyUserData); err != nil {
			return m.syncFailed(ctx, prev, err)
		}
		return nil
	}

	data, err := json.Marshal(next.User)
	if err != nil {
		return m.syncFailed(ctx, prev, err)
	}
	if err := m.store.Set(ctx, store.KeyUserData, string(data)); err != nil {
		return m.syncFailed(ctx, prev, err)
	}
	return nil
}

func (m *Machine) clear(ctx context.Context, prev Record) error {
	if err := m.store.Remove(ctx, store.KeyToken); err != nil {
		return m.syncFailed(ctx, prev, err)
	}
	if err := m.store.Remove(ctx, store.KeyUserData); err != nil {
		return m.syncFailed(ctx, prev, err)
	}
	return nil
}

// syncFailed puts the store back in line with prev, which stays the
// committed record, and reports the original failure.
func (m *Machine) syncFailed(ctx context.Context, prev Record, cause error) error {
	if err := m.restore(ctx, prev); err != nil {
		m.logger.WithError(err).ErrorContext(ctx, "could not restore store after failed sync")
	}
	return errors.Wrap(errors.ErrCodeSessionSyncFailed, "session store sync failed", cause)
}

func (m *Machine) restore(ctx context.Context, r Record) error {
	if r.Token == "" {
		if err := m.store.Remove(ctx, store.KeyToken); err != nil {
			return err
		}
		return m.store.Remove(ctx, store.KeyUserData)
	}
	if err := m.store.Set(ctx, store.KeyToken, r.Token); err != nil {
		return err
	}
	if r.User == nil {
		return m.store.Remove(ctx, store.KeyUserData)
	}
	data, err := json.Marshal(r.User)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, store.KeyUserData, string(data))
}
