// Package notifications carries operation progress and outcomes from the
// editor to whatever presents them.
//
// The editor depends only on the Reconciler interface. Console renders status
// lines for terminal users, Ntfy publishes outcomes to an ntfy topic when one
// is configured, Fanout delivers to several reconcilers, and Recorder keeps
// every event for tests. Reconcilers receive copies of data and never touch
// session state.
package notifications
