package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"clipcraft/internal/config"
	"clipcraft/internal/jobs"
	"clipcraft/internal/logging"
	"clipcraft/internal/media"
	"clipcraft/internal/notifications"
	"clipcraft/internal/services"
	"clipcraft/internal/session"
	"clipcraft/internal/upload"
)

// Service is the remote processing service as the editor uses it.
type Service interface {
	upload.Store
	jobs.SubmitAPI
	jobs.StatusAPI
	Downloader
}

// Downloader streams a resolved artifact URL into w.
type Downloader interface {
	Download(ctx context.Context, rawURL string, w io.Writer) (int64, error)
}

// Persister saves session snapshots after every mutation.
type Persister interface {
	Save(ctx context.Context, snap session.Snapshot) error
}

// Editor owns one session and drives operations against it.
type Editor struct {
	state      *session.State
	gateway    *upload.Gateway
	submitter  *jobs.Submitter
	poller     *jobs.Poller
	resolver   *media.Resolver
	downloader Downloader
	reconciler notifications.Reconciler
	persister  Persister
	reuseAux   bool
	logger     *slog.Logger

	busy sync.Mutex
}

type options struct {
	reconciler  notifications.Reconciler
	persister   Persister
	logger      *slog.Logger
	defaults    jobs.Defaults
	pollOptions []jobs.PollerOption
	reuseAux    bool
}

// Option configures an Editor.
type Option func(*options)

// WithReconciler sets where progress and outcomes are reported.
func WithReconciler(r notifications.Reconciler) Option {
	return func(o *options) { o.reconciler = r }
}

// WithPersister saves the session after each mutation.
func WithPersister(p Persister) Option {
	return func(o *options) { o.persister = p }
}

// WithLogger sets the editor's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithDefaults sets the parameter defaults applied by the submitter.
func WithDefaults(d jobs.Defaults) Option {
	return func(o *options) { o.defaults = d }
}

// WithPollerOptions customizes the job poller.
func WithPollerOptions(opts ...jobs.PollerOption) Option {
	return func(o *options) { o.pollOptions = append(o.pollOptions, opts...) }
}

// WithAuxiliaryReuse reuses a bound music track whose content digest matches
// instead of uploading it again.
func WithAuxiliaryReuse(enabled bool) Option {
	return func(o *options) { o.reuseAux = enabled }
}

// New builds an Editor for state. apiRoot is the absolute service API root
// used to resolve artifact references.
func New(state *session.State, svc Service, apiRoot string, opts ...Option) (*Editor, error) {
	if state == nil {
		return nil, errors.New("editor: session state is required")
	}
	if svc == nil {
		return nil, errors.New("editor: service is required")
	}
	resolver, err := media.NewResolver(apiRoot)
	if err != nil {
		return nil, fmt.Errorf("editor: %w", err)
	}
	o := options{defaults: jobs.DefaultsFromConfig(nil)}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = logging.NewNop()
	}
	reconciler := o.reconciler
	if reconciler == nil {
		reconciler = notifications.Noop{}
	}
	pollOpts := append([]jobs.PollerOption{jobs.WithLogger(logger)}, o.pollOptions...)
	return &Editor{
		state:      state,
		gateway:    upload.NewGateway(svc, logger),
		submitter:  jobs.NewSubmitter(svc, o.defaults, logger),
		poller:     jobs.NewPoller(svc, pollOpts...),
		resolver:   resolver,
		downloader: svc,
		reconciler: reconciler,
		persister:  o.persister,
		reuseAux:   o.reuseAux,
		logger:     logging.NewComponentLogger(logger, "editor"),
	}, nil
}

// NewFromConfig builds an Editor with defaults, polling policy and upload
// policy read from cfg. Extra options are applied last.
func NewFromConfig(cfg *config.Config, state *session.State, svc Service, opts ...Option) (*Editor, error) {
	base := []Option{
		WithDefaults(jobs.DefaultsFromConfig(cfg)),
		WithPollerOptions(
			jobs.WithInterval(cfg.PollInterval()),
			jobs.WithMaxAttempts(cfg.Polling.MaxAttempts),
		),
		WithAuxiliaryReuse(cfg.Upload.ReuseAuxiliary),
	}
	return New(state, svc, cfg.APIRootURL(), append(base, opts...)...)
}

// Snapshot returns a copy of the session state.
func (e *Editor) Snapshot() session.Snapshot {
	return e.state.Snapshot()
}

// Resolve turns an artifact reference into a downloadable URL.
func (e *Editor) Resolve(ref string) (string, error) {
	return e.resolver.Resolve(ref)
}

func (e *Editor) acquire(ctx context.Context, op string) error {
	if e.busy.TryLock() {
		return nil
	}
	return e.fail(ctx, services.Wrap(services.ErrJobInFlight, "editor", op, "another operation is running on this session", nil))
}

func (e *Editor) operationContext(ctx context.Context, op string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = services.WithSessionID(ctx, e.state.ID())
	ctx = services.WithOperation(ctx, op)
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, uuid.NewString())
	}
	return ctx
}

func (e *Editor) persist(ctx context.Context) error {
	if e.persister == nil {
		return nil
	}
	if err := e.persister.Save(ctx, e.state.Snapshot()); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
