// Package jobs submits edit operations to the processing service and polls
// the resulting jobs to a terminal state.
//
// The Submitter owns the per-operation request builders: it validates the
// operation's local preconditions, applies parameter defaults, and returns
// the canonical parameter snapshot that is later recorded in the edit
// history. The Poller waits on a job handle with an injectable interval,
// attempt cap, and sleeper so tests never run real timers.
package jobs
