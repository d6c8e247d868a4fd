package notifications

import (
	"context"
	"errors"

	"clipcraft/internal/media"
)

// Phase names a step of the operation protocol.
type Phase string

const (
	PhaseValidating Phase = "validating"
	PhaseUploading  Phase = "uploading"
	PhaseSubmitting Phase = "submitting"
	PhasePolling    Phase = "polling"
	PhaseApplying   Phase = "applying"
)

// Progress is one intermediate observation of a running operation.
type Progress struct {
	Phase   Phase
	Kind    media.Kind
	JobID   string
	Attempt int
	// Status is the raw service status while polling.
	Status string
	Detail string
}

// Reconciler receives operation transitions. Implementations must not block
// for long; delivery failures are reported to the caller, which logs them.
type Reconciler interface {
	OnProgress(ctx context.Context, p Progress) error
	OnSuccess(ctx context.Context, artifactRef, label string) error
	OnError(ctx context.Context, kind, message string) error
}

// Noop discards every event.
type Noop struct{}

func (Noop) OnProgress(context.Context, Progress) error      { return nil }
func (Noop) OnSuccess(context.Context, string, string) error { return nil }
func (Noop) OnError(context.Context, string, string) error   { return nil }

// Fanout delivers each event to every member and joins their errors.
type Fanout []Reconciler

// NewFanout drops nil members.
func NewFanout(members ...Reconciler) Fanout {
	out := make(Fanout, 0, len(members))
	for _, m := range members {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

func (f Fanout) OnProgress(ctx context.Context, p Progress) error {
	var errs []error
	for _, m := range f {
		errs = append(errs, m.OnProgress(ctx, p))
	}
	return errors.Join(errs...)
}

func (f Fanout) OnSuccess(ctx context.Context, artifactRef, label string) error {
	var errs []error
	for _, m := range f {
		errs = append(errs, m.OnSuccess(ctx, artifactRef, label))
	}
	return errors.Join(errs...)
}

func (f Fanout) OnError(ctx context.Context, kind, message string) error {
	var errs []error
	for _, m := range f {
		errs = append(errs, m.OnError(ctx, kind, message))
	}
	return errors.Join(errs...)
}
