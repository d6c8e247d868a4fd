package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"clipcraft/internal/logging"
	"clipcraft/internal/media"
	"clipcraft/internal/services"
	"clipcraft/internal/services/mediaapi"
)

const (
	defaultPollInterval    = time.Second
	defaultMaxPollAttempts = 60
)

// StatusAPI is the remote collaborator that reports job status.
type StatusAPI interface {
	Status(ctx context.Context, jobID string) (mediaapi.StatusResponse, error)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Observer receives every non-final status observation.
type Observer func(job media.Job)

// Poller waits for jobs to reach a terminal state.
type Poller struct {
	api         StatusAPI
	interval    time.Duration
	maxAttempts int
	sleep       Sleeper
	logger      *slog.Logger

	mu     sync.Mutex
	active map[string]struct{}
}

// PollerOption customizes the poller.
type PollerOption func(*Poller)

// WithInterval overrides the wait between status queries.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d >= 0 {
			p.interval = d
		}
	}
}

// WithMaxAttempts caps the number of status queries; zero disables the cap.
func WithMaxAttempts(n int) PollerOption {
	return func(p *Poller) {
		if n >= 0 {
			p.maxAttempts = n
		}
	}
}

// WithSleeper overrides how inter-poll waits are performed (useful for tests).
func WithSleeper(sleeper Sleeper) PollerOption {
	return func(p *Poller) {
		if sleeper != nil {
			p.sleep = sleeper
		}
	}
}

// WithLogger sets the poller's logger.
func WithLogger(logger *slog.Logger) PollerOption {
	return func(p *Poller) {
		p.logger = logging.NewComponentLogger(logger, "poller")
	}
}

// NewPoller constructs a Poller.
func NewPoller(api StatusAPI, opts ...PollerOption) *Poller {
	p := &Poller{
		api:         api,
		interval:    defaultPollInterval,
		maxAttempts: defaultMaxPollAttempts,
		sleep:       sleepContext,
		logger:      logging.NewNop(),
		active:      make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Await polls job until it completes or fails. Each attempt waits one
// interval and then issues one status query. A completed job must carry an
// artifact reference; a failed job surfaces the server's error verbatim.
// Transport failures end the wait immediately.
func (p *Poller) Await(ctx context.Context, job media.Job, observe Observer) (media.Job, error) {
	op := string(job.Kind)
	if strings.TrimSpace(job.ID) == "" {
		return job, services.Wrap(services.ErrMalformedResult, "jobs", op, "job handle is empty", nil)
	}
	if !p.claim(job.ID) {
		return job, services.Wrap(services.ErrJobInFlight, "jobs", op, fmt.Sprintf("job %s is already being polled", job.ID), nil)
	}
	defer p.release(job.ID)

	ctx = services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, p.logger)

	for attempt := 1; ; attempt++ {
		if p.maxAttempts > 0 && attempt > p.maxAttempts {
			logging.WarnWithContext(logger, "poll attempts exhausted", "poll_exhausted",
				logging.Int("attempts", p.maxAttempts),
				logging.String("last_status", job.RawStatus),
			)
			return job, services.Wrap(services.ErrPollExhausted, "jobs", op,
				fmt.Sprintf("job %s did not finish after %d status checks", job.ID, p.maxAttempts), nil)
		}
		if err := p.sleep(ctx, p.interval); err != nil {
			return job, err
		}

		resp, err := p.api.Status(ctx, job.ID)
		if err != nil {
			if services.IsCanceled(err) && ctx.Err() != nil {
				return job, ctx.Err()
			}
			return job, services.Wrap(services.ErrTransport, "jobs", op, transportMessage(err, "status query failed"), err)
		}

		job.Attempts = attempt
		job.RawStatus = resp.Status
		job.Status = media.ParseJobStatus(resp.Status)
		job.Error = strings.TrimSpace(resp.Error)
		if resp.Result != nil {
			job.Message = strings.TrimSpace(resp.Result.Message)
			job.ArtifactRef = strings.TrimSpace(resp.Result.DownloadURL)
		}

		logger.Debug("job status",
			logging.Int("attempt", attempt),
			logging.String("status", resp.Status),
		)

		switch job.Status {
		case media.JobCompleted:
			if job.ArtifactRef == "" {
				return job, services.Wrap(services.ErrMalformedResult, "jobs", op, "completed job has no download_url", nil)
			}
			logger.Info("job completed",
				logging.Int("attempts", attempt),
				logging.String("artifact", job.ArtifactRef),
				logging.String("message", job.Message),
				logging.String(logging.FieldEventType, "job_completed"),
			)
			return job, nil
		case media.JobFailed:
			logging.WarnWithContext(logger, "job failed", "job_failed",
				logging.Int("attempts", attempt),
				logging.String("reason", job.Error),
			)
			return job, services.Wrap(services.ErrJobFailed, "jobs", op, "", &services.JobError{JobID: job.ID, Reason: job.Error})
		default:
			if observe != nil {
				observe(job)
			}
		}
	}
}

func (p *Poller) claim(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.active[id]; busy {
		return false
	}
	p.active[id] = struct{}{}
	return true
}

func (p *Poller) release(id string) {
	p.mu.Lock()
	delete(p.active, id)
	p.mu.Unlock()
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if ctx == nil {
		return errors.New("poll wait: nil context")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
