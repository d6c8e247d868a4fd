package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"clipcraft/internal/services/mediaapi"
)

const serviceCheckTimeout = 5 * time.Second

// Pinger reports whether the processing service answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckDirectoryAccess verifies that path exists as a directory with read,
// write, and execute permissions.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckOptionalDirectory passes when path is a usable directory, or when it
// does not exist yet but its nearest existing parent is writable.
func CheckOptionalDirectory(name, path string) Result {
	if _, err := os.Stat(path); err == nil || !os.IsNotExist(err) {
		return CheckDirectoryAccess(name, path)
	}
	parent := filepath.Dir(path)
	for {
		if _, err := os.Stat(parent); err == nil {
			break
		}
		next := filepath.Dir(parent)
		if next == parent {
			break
		}
		parent = next
	}
	if err := unix.Access(parent, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, parent, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (created on first download)", path)}
}

// CheckService verifies the processing service at apiRoot is reachable.
func CheckService(ctx context.Context, apiRoot string, svc Pinger) Result {
	const name = "Processing service"
	if svc == nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: no client configured)", apiRoot)}
	}

	checkCtx, cancel := context.WithTimeout(ctx, serviceCheckTimeout)
	defer cancel()

	if err := svc.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%s)", apiRoot, summarizeServiceError(err))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (reachable)", apiRoot)}
}

func summarizeServiceError(err error) string {
	var statusErr *mediaapi.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("error: http %d", statusErr.StatusCode)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "error: timed out"
	}
	return fmt.Sprintf("error: unreachable: %v", err)
}
