package session

import (
	"encoding/json"
	"maps"
)

// User is the last known profile of the authenticated account.
// Fields beyond id, email and is_active are kept in Extra and survive a
// round trip through the store.
type User struct {
	ID       int64
	Email    string
	IsActive bool
	Extra    map[string]any
}

type userFields struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
}

// MarshalJSON emits the known fields plus Extra in a single object.
func (u User) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(u.Extra)+3)
	for k, v := range u.Extra {
		out[k] = v
	}
	out["id"] = u.ID
	out["email"] = u.Email
	out["is_active"] = u.IsActive
	return json.Marshal(out)
}

// UnmarshalJSON reads the known fields and keeps the rest in Extra.
func (u *User) UnmarshalJSON(data []byte) error {
	var known userFields
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	delete(all, "id")
	delete(all, "email")
	delete(all, "is_active")

	u.ID = known.ID
	u.Email = known.Email
	u.IsActive = known.IsActive
	u.Extra = nil
	if len(all) > 0 {
		u.Extra = all
	}
	return nil
}

// Clone returns a deep enough copy that the original and the copy share no
// mutable state at the top level.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	cp := *u
	if u.Extra != nil {
		cp.Extra = maps.Clone(u.Extra)
	}
	return &cp
}

// Record is the in-memory session. It is a value: transitions return a new
// Record and never modify the one they were given.
type Record struct {
	IsAuthenticated bool
	// Token is the opaque bearer credential; empty means absent.
	Token string
	// User is nil when no profile is known.
	User      *User
	IsLoading bool
	// Error is the last actionable failure; empty means absent.
	Error string
	// Message is the last informational notice; empty means absent.
	Message string
}

// Clone returns a copy of r that shares no mutable state with it.
func (r Record) Clone() Record {
	r.User = r.User.Clone()
	return r
}

// Unauthenticated is the record of a process that holds no credentials.
func Unauthenticated() Record {
	return Record{}
}
