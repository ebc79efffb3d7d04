package session

import (
	"context"
	"testing"

	"pgregory.net/rapid"

	"github.com/felixgeelhaar/authflow/internal/log"
	"github.com/felixgeelhaar/authflow/internal/store"
)

func genUser() *rapid.Generator[*User] {
	return rapid.Custom(func(t *rapid.T) *User {
		if rapid.Bool().Draw(t, "nil_user") {
			return nil
		}
		return &User{
			ID:       rapid.Int64Range(1, 1000).Draw(t, "id"),
			Email:    rapid.StringMatching(`[a-z]{1,6}@[a-z]{1,4}\.com`).Draw(t, "email"),
			IsActive: rapid.Bool().Draw(t, "active"),
		}
	})
}

// genEvent draws any of the twelve events, including malformed payloads
// such as a LOGIN_SUCCESS without a token.
func genEvent() *rapid.Generator[Event] {
	return rapid.Custom(func(t *rapid.T) Event {
		token := rapid.SampledFrom([]string{"", "tok-a", "tok-b"}).Draw(t, "token")
		msg := rapid.SampledFrom([]string{"", "Invalid email or password", "User created successfully"}).Draw(t, "message")

		switch rapid.SampledFrom(EventTypes()).Draw(t, "type") {
		case EventLoginStart:
			return LoginStart()
		case EventLoginSuccess:
			return LoginSuccess(token, genUser().Draw(t, "user"))
		case EventLoginError:
			return LoginError(msg)
		case EventLogout:
			return Logout()
		case EventSignupStart:
			return SignupStart()
		case EventSignupSuccess:
			return SignupSuccess(msg)
		case EventSignupError:
			return SignupError(msg)
		case EventValidateTokenSuccess:
			return ValidateTokenSuccess(genUser().Draw(t, "user"))
		case EventValidateTokenError:
			return ValidateTokenError()
		case EventClearError:
			return ClearError()
		case EventClearMessage:
			return ClearMessage()
		default:
			return SetLoading(rapid.Bool().Draw(t, "loading"))
		}
	})
}

func checkCredentials(t *rapid.T, r Record) {
	if r.IsAuthenticated && r.Token == "" {
		t.Fatalf("authenticated without a token: %+v", r)
	}
	if !r.IsAuthenticated && (r.Token != "" || r.User != nil) {
		t.Fatalf("unauthenticated record kept credentials: %+v", r)
	}
}

func TestNext_CredentialsAlwaysConsistent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := Unauthenticated()
		events := rapid.SliceOfN(genEvent(), 1, 40).Draw(t, "events")
		for _, ev := range events {
			next, err := Next(r, ev)
			if err != nil {
				if next != r {
					t.Fatalf("rejected %s changed the record", ev)
				}
				continue
			}
			checkCredentials(t, next)
			r = next
		}
	})
}

func TestNext_Deterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		events := rapid.SliceOfN(genEvent(), 1, 20).Draw(t, "events")

		walk := func() Record {
			r := Unauthenticated()
			for _, ev := range events {
				next, err := Next(r, ev)
				if err == nil {
					r = next
				}
			}
			return r
		}

		a, b := walk(), walk()
		if a.IsAuthenticated != b.IsAuthenticated || a.Token != b.Token ||
			a.Error != b.Error || a.Message != b.Message || a.IsLoading != b.IsLoading ||
			(a.User == nil) != (b.User == nil) {
			t.Fatalf("same events, different records: %+v vs %+v", a, b)
		}
	})
}

func TestMachine_StoreMirrorsRecord(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		st := store.NewMemoryStore()
		m, err := New(ctx, st, WithLogger(log.Nop()))
		if err != nil {
			t.Fatalf("new machine: %v", err)
		}
		defer m.Close()

		events := rapid.SliceOfN(genEvent(), 1, 40).Draw(t, "events")
		for _, ev := range events {
			rec, err := m.Dispatch(ctx, ev)
			if err != nil {
				continue
			}
			checkCredentials(t, rec)

			token, ok, err := st.Get(ctx, store.KeyToken)
			if err != nil {
				t.Fatalf("get token: %v", err)
			}
			if rec.Token == "" {
				if ok {
					t.Fatalf("store kept token %q after %s", token, ev)
				}
				if _, ok, _ := st.Get(ctx, store.KeyUserData); ok {
					t.Fatalf("store kept userData without a token after %s", ev)
				}
				continue
			}
			if !ok || token != rec.Token {
				t.Fatalf("store token %q (present %v), record token %q after %s", token, ok, rec.Token, ev)
			}
		}
	})
}
