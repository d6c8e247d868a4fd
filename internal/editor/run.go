package editor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"clipcraft/internal/fileutil"
	"clipcraft/internal/jobs"
	"clipcraft/internal/logging"
	"clipcraft/internal/media"
	"clipcraft/internal/notifications"
	"clipcraft/internal/services"
	"clipcraft/internal/session"
	"clipcraft/internal/upload"
)

// Request describes one edit operation.
type Request struct {
	Kind   media.Kind
	Params media.Params
	// AuxiliaryPath is a music track to send with this invocation. Only
	// operations that take a music track accept it.
	AuxiliaryPath string
	AuxiliaryType string
}

// Outcome is a completed operation.
type Outcome struct {
	Job         media.Job
	Record      session.Record
	ArtifactURL string
}

// auxiliary is the music track chosen for one invocation. Fresh uploads are
// bound to the session only when the job succeeds.
type auxiliary struct {
	handle media.AssetHandle
	digest string
	fresh  bool
}

// Run validates, submits, polls and applies one operation.
func (e *Editor) Run(ctx context.Context, req Request) (Outcome, error) {
	ctx = e.operationContext(ctx, string(req.Kind))
	if err := e.acquire(ctx, string(req.Kind)); err != nil {
		return Outcome{}, err
	}
	defer e.busy.Unlock()

	e.progress(ctx, notifications.Progress{Phase: notifications.PhaseValidating, Kind: req.Kind})
	snap := e.state.Snapshot()
	if err := e.validate(snap, req); err != nil {
		return Outcome{}, e.fail(ctx, err)
	}

	aux, err := e.chooseAuxiliary(ctx, snap, req)
	if err != nil {
		return Outcome{}, e.fail(ctx, err)
	}

	e.progress(ctx, notifications.Progress{Phase: notifications.PhaseSubmitting, Kind: req.Kind})
	target := jobs.Target{Primary: snap.Primary}
	if aux != nil {
		h := aux.handle
		target.Auxiliary = &h
	}
	job, params, err := e.submitter.Submit(ctx, req.Kind, target, req.Params)
	if err != nil {
		return Outcome{}, e.fail(ctx, err)
	}
	if err := e.state.BeginJob(media.PendingJob{ID: job.ID, Kind: job.Kind, Params: params}); err != nil {
		return Outcome{}, e.fail(ctx, err)
	}
	if err := e.persist(ctx); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, e.logger), "pending job not saved", "persist_failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err),
		)
	}
	return e.complete(ctx, job, params, aux)
}

// Resume polls the job left pending by an interrupted invocation and applies
// its result.
func (e *Editor) Resume(ctx context.Context) (Outcome, error) {
	ctx = e.operationContext(ctx, "resume")
	if err := e.acquire(ctx, "resume"); err != nil {
		return Outcome{}, err
	}
	defer e.busy.Unlock()

	pending, ok := e.state.Pending()
	if !ok {
		return Outcome{}, e.fail(ctx, services.Wrap(services.ErrInvalidParameter, "editor", "resume", "no job is pending", nil))
	}
	ctx = services.WithOperation(ctx, string(pending.Kind))
	logging.WithContext(ctx, e.logger).Info("resuming pending job",
		logging.String(logging.FieldJobID, pending.ID),
		logging.String("submitted_at", pending.SubmittedAt.Format("2006-01-02 15:04:05")),
		logging.String(logging.FieldEventType, "job_resumed"),
	)
	job := media.Job{ID: pending.ID, Kind: pending.Kind, Status: media.JobSubmitted}
	return e.complete(ctx, job, pending.Params, nil)
}

func (e *Editor) validate(snap session.Snapshot, req Request) error {
	op := string(req.Kind)
	if snap.Pending != nil {
		return services.Wrap(services.ErrJobInFlight, "editor", op,
			fmt.Sprintf("job %s (%s) has not finished; run resume first", snap.Pending.ID, snap.Pending.Kind), nil)
	}
	target := jobs.Target{Primary: snap.Primary}
	switch {
	case strings.TrimSpace(req.AuxiliaryPath) != "":
		if !req.Kind.UsesAuxiliary() {
			return services.Wrap(services.ErrInvalidParameter, "editor", op, "this operation does not take a music track", nil)
		}
		if err := upload.ValidateFile(req.AuxiliaryPath, media.AssetMusic, req.AuxiliaryType); err != nil {
			return err
		}
		target.Auxiliary = &media.AssetHandle{ID: "pending-upload", FileName: filepath.Base(req.AuxiliaryPath), Kind: media.AssetMusic}
	case req.Kind.NeedsAuxiliary():
		target.Auxiliary = snap.Auxiliary
	}
	_, err := e.submitter.Prepare(req.Kind, target, req.Params)
	return err
}

// chooseAuxiliary returns the music track for this invocation: the supplied
// file (reused by digest when enabled, else uploaded), or the bound track for
// operations that require one.
func (e *Editor) chooseAuxiliary(ctx context.Context, snap session.Snapshot, req Request) (*auxiliary, error) {
	path := strings.TrimSpace(req.AuxiliaryPath)
	if path == "" {
		if req.Kind.NeedsAuxiliary() && snap.Auxiliary != nil {
			return &auxiliary{handle: *snap.Auxiliary, digest: snap.AuxiliaryDigest}, nil
		}
		return nil, nil
	}

	e.progress(ctx, notifications.Progress{Phase: notifications.PhaseUploading, Kind: req.Kind, Detail: filepath.Base(path)})
	if e.reuseAux {
		digest, err := fileutil.DigestFile(path)
		if err != nil {
			return nil, services.Wrap(services.ErrInvalidParameter, "editor", "upload music", "music track is not readable", err)
		}
		if handle, ok := e.state.AuxiliaryMatching(digest); ok {
			logging.WithContext(ctx, e.logger).Info("music track reused",
				logging.String("file_id", handle.ID),
				logging.String(logging.FieldEventType, "auxiliary_reused"),
			)
			return &auxiliary{handle: handle, digest: digest}, nil
		}
	}
	result, err := e.gateway.SubmitFile(ctx, path, media.AssetMusic, req.AuxiliaryType)
	if err != nil {
		return nil, err
	}
	return &auxiliary{handle: result.Handle, digest: result.Digest, fresh: true}, nil
}

// complete polls job to a terminal state and applies the outcome.
func (e *Editor) complete(ctx context.Context, job media.Job, params media.Params, aux *auxiliary) (Outcome, error) {
	ctx = services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, e.logger)

	e.progress(ctx, notifications.Progress{Phase: notifications.PhasePolling, Kind: job.Kind, JobID: job.ID, Status: job.RawStatus})
	done, err := e.poller.Await(ctx, job, func(observed media.Job) {
		e.progress(ctx, notifications.Progress{
			Phase:   notifications.PhasePolling,
			Kind:    observed.Kind,
			JobID:   observed.ID,
			Attempt: observed.Attempts,
			Status:  observed.RawStatus,
		})
	})
	if err != nil {
		if services.IsCanceled(err) {
			logging.WarnWithContext(logger, "wait interrupted; job left pending", "job_interrupted")
		} else {
			e.state.AbandonJob(job.ID)
			if perr := e.persist(ctx); perr != nil {
				logging.WarnWithContext(logger, "session not saved after failure", "persist_failed", logging.Error(perr))
			}
		}
		return Outcome{Job: done}, e.fail(ctx, err)
	}

	e.progress(ctx, notifications.Progress{Phase: notifications.PhaseApplying, Kind: done.Kind, JobID: done.ID, Attempt: done.Attempts})
	if aux != nil && aux.fresh {
		if err := e.state.BindAuxiliary(aux.handle, aux.digest); err != nil {
			e.state.AbandonJob(job.ID)
			return Outcome{Job: done}, e.fail(ctx, err)
		}
	}
	record, err := e.state.ApplyCompletedJob(done.ID, done.Kind, params, done.ArtifactRef)
	if err != nil {
		e.state.AbandonJob(job.ID)
		return Outcome{Job: done}, e.fail(ctx, err)
	}
	if err := e.persist(ctx); err != nil {
		return Outcome{Job: done, Record: record}, e.fail(ctx, err)
	}

	artifactURL, err := e.resolver.Resolve(record.ArtifactRef)
	if err != nil {
		artifactURL = record.ArtifactRef
	}
	logger.Info("edit applied",
		logging.String("label", done.Kind.Label()),
		logging.String("artifact", artifactURL),
		logging.Int("edits", len(e.state.Snapshot().Records)),
		logging.String(logging.FieldEventType, "edit_applied"),
	)
	e.succeed(ctx, artifactURL, done.Kind.Label())
	return Outcome{Job: done, Record: record, ArtifactURL: artifactURL}, nil
}
