package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"clipcraft/internal/config"
	"clipcraft/internal/editor"
	"clipcraft/internal/logging"
	"clipcraft/internal/notifications"
	"clipcraft/internal/services/mediaapi"
	"clipcraft/internal/session"
	"clipcraft/internal/textutil"
)

const defaultSessionName = "default"

type commandContext struct {
	configFlag  *string
	sessionFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, sessionFlag *string) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		sessionFlag: sessionFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// sessionName is the sanitized --session value, safe for lock file names.
func (c *commandContext) sessionName() string {
	if c.sessionFlag == nil {
		return defaultSessionName
	}
	return textutil.SanitizeToken(*c.sessionFlag)
}

func newServiceClient(cfg *config.Config) (*mediaapi.Client, error) {
	return mediaapi.New(mediaapi.Config{
		APIRoot:        cfg.APIRootURL(),
		RequestTimeout: cfg.RequestTimeout(),
		UploadTimeout:  cfg.UploadTimeout(),
	})
}

// workspace is everything a mutating command needs: the locked session,
// its store and an editor bound to both.
type workspace struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *session.Store
	lock   *session.Lock
	client *mediaapi.Client
	state  *session.State
	editor *editor.Editor
}

func (w *workspace) Close() error {
	var errs []error
	if w.store != nil {
		errs = append(errs, w.store.Close())
	}
	if w.lock != nil {
		errs = append(errs, w.lock.Release())
	}
	return errors.Join(errs...)
}

// withEditor locks the session, loads or creates it, and runs fn with an
// editor that persists every mutation and reports to the console.
func (c *commandContext) withEditor(cmd *cobra.Command, fn func(*workspace) error) (err error) {
	ws, err := c.openWorkspace(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := ws.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ws)
}

func (c *commandContext) openWorkspace(cmd *cobra.Command) (*workspace, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	name := c.sessionName()
	lock, err := session.AcquireLock(cfg.LockPath(name))
	if err != nil {
		if errors.Is(err, session.ErrLocked) {
			return nil, fmt.Errorf("session %q is in use by another clipcraft process", name)
		}
		return nil, err
	}
	ws := &workspace{cfg: cfg, logger: logger, lock: lock}

	store, err := session.Open(cfg)
	if err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("open session store: %w", err)
	}
	ws.store = store

	state, err := loadState(cmd.Context(), store, name)
	if err != nil {
		_ = ws.Close()
		return nil, err
	}
	ws.state = state

	client, err := newServiceClient(cfg)
	if err != nil {
		_ = ws.Close()
		return nil, err
	}
	ws.client = client

	reconciler := notifications.NewFanout(consoleFor(cmd.ErrOrStderr()), notifications.NewFromConfig(cfg))
	ed, err := editor.NewFromConfig(cfg, state, client,
		editor.WithReconciler(reconciler),
		editor.WithPersister(store),
		editor.WithLogger(logger),
	)
	if err != nil {
		_ = ws.Close()
		return nil, err
	}
	ws.editor = ed
	return ws, nil
}

func loadState(ctx context.Context, store *session.Store, name string) (*session.State, error) {
	snap, err := store.Load(ctx, name)
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return session.New(name), nil
	case err != nil:
		return nil, fmt.Errorf("load session %q: %w", name, err)
	default:
		return session.Restore(snap), nil
	}
}

// readSnapshot loads the session without locking it. A session that was
// never saved reads as empty.
func (c *commandContext) readSnapshot(ctx context.Context) (*config.Config, session.Snapshot, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, session.Snapshot{}, err
	}
	store, err := session.Open(cfg)
	if err != nil {
		return nil, session.Snapshot{}, fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()
	state, err := loadState(ctx, store, c.sessionName())
	if err != nil {
		return nil, session.Snapshot{}, err
	}
	return cfg, state.Snapshot(), nil
}

func consoleFor(w io.Writer) *notifications.Console {
	if f, ok := w.(*os.File); ok {
		return notifications.NewTerminalConsole(f)
	}
	return notifications.NewConsole(w, false)
}

// reportedError marks an error the console reconciler has already shown.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return &reportedError{err: err}
}

func alreadyReported(err error) bool {
	var target *reportedError
	return errors.As(err, &target)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
