// Package editor runs edit operations against one session.
//
// Every operation follows the same protocol: validate locally, upload the
// music track when the invocation supplies one, submit the job, poll it to a
// terminal state, then apply the result to the session and notify the
// reconciler. Validation failures never reach the network, and a failed job
// leaves the session as it was. An Editor runs one operation at a time; a
// second concurrent call fails with services.ErrJobInFlight.
package editor
