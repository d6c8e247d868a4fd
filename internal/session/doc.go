// Package session owns the client-side record of what is being edited: the
// bound primary and auxiliary assets, the effective artifact reference, the
// pending job marker, and the append-only edit history ledger.
//
// State mutations are serialized by an internal lock and observers read
// deep-copied snapshots, so a reset on new primary upload is never seen half
// applied. Callers must still run at most one operation per session at a
// time; State rejects a second pending job with services.ErrJobInFlight and
// the CLI additionally holds a per-session file lock across processes.
//
// Store persists snapshots to SQLite so a session survives between CLI
// invocations.
package session
