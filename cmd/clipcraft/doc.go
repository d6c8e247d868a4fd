// Package main hosts the clipcraft CLI entrypoint and command graph.
//
// Each invocation opens the named session from the session database, takes
// the session lock for commands that mutate it, and runs one editor
// operation against the processing service. Progress and outcomes are
// rendered by the console reconciler on stderr; command results such as
// tables and JSON go to stdout.
package main
