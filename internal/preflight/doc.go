// Package preflight provides readiness checks for the local directories and
// the remote processing service that clipcraft depends on.
//
// The CLI "clipcraft status" command runs RunAll and renders every Result;
// operations do not run preflight themselves, a failure surfaces from the
// operation that hits it.
package preflight
