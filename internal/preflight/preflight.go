package preflight

import (
	"context"

	"clipcraft/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes every readiness check for cfg. svc may be nil, in which
// case the service check reports that no client was configured.
func RunAll(ctx context.Context, cfg *config.Config, svc Pinger) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckOptionalDirectory("Download directory", cfg.Paths.DownloadDir),
	}
	results = append(results, CheckService(ctx, cfg.APIRootURL(), svc))
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
