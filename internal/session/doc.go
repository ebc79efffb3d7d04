// Package session holds the client-side session state machine.
//
// A Machine owns one Record, the single source of truth for authentication
// status. The record changes only through Dispatch, which computes the next
// record with the pure function Next, mirrors token and profile into the
// persistent store, and then notifies subscribers, all before returning.
//
// Invariants kept by every transition:
//
//   - IsAuthenticated implies a non-empty Token.
//   - Dropping to unauthenticated clears Token and User together.
//   - The store's token agrees with the record's token once Dispatch returns.
//
// Network calls never happen here. Callers issue them and feed the outcomes
// back in as events.
package session
