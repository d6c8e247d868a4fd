package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipcraft/internal/media"
	"clipcraft/internal/services"
)

// Snapshot is an immutable copy of a session's state.
type Snapshot struct {
	ID              string
	Name            string
	Primary         media.AssetHandle
	OriginalRef     string
	EffectiveRef    string
	Auxiliary       *media.AssetHandle
	AuxiliaryDigest string
	Records         []Record
	Pending         *media.PendingJob
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasPrimary reports whether a primary asset is bound.
func (s Snapshot) HasPrimary() bool {
	return !s.Primary.IsZero()
}

// CurrentRef is the reference that represents the session's current output:
// the effective artifact when one exists, else the original.
func (s Snapshot) CurrentRef() string {
	if s.EffectiveRef != "" {
		return s.EffectiveRef
	}
	return s.OriginalRef
}

// State is the single source of truth for one edit session.
type State struct {
	mu sync.RWMutex

	id              string
	name            string
	primary         media.AssetHandle
	originalRef     string
	effectiveRef    string
	auxiliary       *media.AssetHandle
	auxiliaryDigest string
	ledger          Ledger
	pending         *media.PendingJob
	createdAt       time.Time
	updatedAt       time.Time

	now func() time.Time
}

// Option customizes a State.
type Option func(*State)

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *State) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates an empty session with a fresh identifier.
func New(name string, opts ...Option) *State {
	s := &State{id: uuid.NewString(), name: strings.TrimSpace(name), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.createdAt = s.now().UTC()
	s.updatedAt = s.createdAt
	return s
}

// Restore rebuilds a State from a persisted snapshot.
func Restore(snap Snapshot, opts ...Option) *State {
	s := &State{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.id = snap.ID
	if s.id == "" {
		s.id = uuid.NewString()
	}
	s.name = snap.Name
	s.primary = snap.Primary
	s.originalRef = snap.OriginalRef
	s.effectiveRef = snap.EffectiveRef
	s.auxiliary = cloneHandle(snap.Auxiliary)
	s.auxiliaryDigest = snap.AuxiliaryDigest
	for _, r := range snap.Records {
		s.ledger.append(r)
	}
	s.pending = clonePending(snap.Pending)
	s.createdAt = snap.CreatedAt
	s.updatedAt = snap.UpdatedAt
	return s
}

// Snapshot returns a deep copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		ID:              s.id,
		Name:            s.name,
		Primary:         s.primary,
		OriginalRef:     s.originalRef,
		EffectiveRef:    s.effectiveRef,
		Auxiliary:       cloneHandle(s.auxiliary),
		AuxiliaryDigest: s.auxiliaryDigest,
		Records:         s.ledger.Records(),
		Pending:         clonePending(s.pending),
		CreatedAt:       s.createdAt,
		UpdatedAt:       s.updatedAt,
	}
}

// ID returns the session identifier.
func (s *State) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// Name returns the session name.
func (s *State) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// NewPrimaryUpload binds handle as the primary asset and clears every piece
// of derived state in one step: the effective artifact, the auxiliary asset,
// and the ledger. location becomes the original reference.
func (s *State) NewPrimaryUpload(handle media.AssetHandle, location string) error {
	if handle.IsZero() {
		return services.Wrap(services.ErrMissingPrimaryAsset, "session", "bind primary", "asset handle is empty", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		return s.inFlightError("bind primary")
	}
	s.primary = handle
	s.originalRef = location
	s.effectiveRef = ""
	s.auxiliary = nil
	s.auxiliaryDigest = ""
	s.ledger.reset()
	s.touch()
	return nil
}

// BindAuxiliary replaces the auxiliary asset. digest is the content hash of
// the uploaded bytes, used to recognize a re-upload of the same track.
func (s *State) BindAuxiliary(handle media.AssetHandle, digest string) error {
	if handle.IsZero() {
		return services.Wrap(services.ErrMissingAuxiliaryAsset, "session", "bind auxiliary", "asset handle is empty", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	h := handle
	s.auxiliary = &h
	s.auxiliaryDigest = digest
	s.touch()
	return nil
}

// AuxiliaryMatching returns the bound auxiliary asset when its digest equals
// digest.
func (s *State) AuxiliaryMatching(digest string) (media.AssetHandle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.auxiliary == nil || digest == "" || s.auxiliaryDigest != digest {
		return media.AssetHandle{}, false
	}
	return *s.auxiliary, true
}

// BeginJob records job as the session's single in-flight job.
func (s *State) BeginJob(job media.PendingJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.primary.IsZero() {
		return services.Wrap(services.ErrMissingPrimaryAsset, "session", "begin job", "upload a video first", nil)
	}
	if s.pending != nil {
		return s.inFlightError("begin job")
	}
	p := job
	p.Params = job.Params.Clone()
	if p.SubmittedAt.IsZero() {
		p.SubmittedAt = s.now().UTC()
	}
	s.pending = &p
	s.touch()
	return nil
}

// Pending returns the in-flight job, if any.
func (s *State) Pending() (media.PendingJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pending == nil {
		return media.PendingJob{}, false
	}
	return *clonePending(s.pending), true
}

// AbandonJob clears the pending marker for jobID without touching the ledger.
// It is used when a job fails or its outcome cannot be consumed.
func (s *State) AbandonJob(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil && s.pending.ID == jobID {
		s.pending = nil
		s.touch()
	}
}

// ApplyCompletedJob appends one record and makes artifactRef the effective
// artifact. It is the only mutator of the ledger and must be called once per
// completed job, after the poller has returned the terminal state.
func (s *State) ApplyCompletedJob(jobID string, kind media.Kind, params media.Params, artifactRef string) (Record, error) {
	artifactRef = strings.TrimSpace(artifactRef)
	if artifactRef == "" {
		return Record{}, services.Wrap(services.ErrMalformedResult, "session", "apply", "artifact reference is empty", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.primary.IsZero() {
		return Record{}, services.Wrap(services.ErrMissingPrimaryAsset, "session", "apply", "no primary asset bound", nil)
	}
	if s.pending != nil && jobID != "" && s.pending.ID != jobID {
		return Record{}, services.Wrap(services.ErrJobInFlight, "session", "apply",
			fmt.Sprintf("job %s does not match pending job %s", jobID, s.pending.ID), nil)
	}
	record := Record{
		Kind:        kind,
		CreatedAt:   s.now().UTC(),
		Params:      params.Clone(),
		ArtifactRef: artifactRef,
		JobID:       jobID,
	}
	s.ledger.append(record)
	s.effectiveRef = artifactRef
	s.pending = nil
	s.touch()
	return record, nil
}

// RevertLast removes the most recent record and returns the session to the
// original asset. Reverting always lands on the original, never on the
// previous edit.
func (s *State) RevertLast() (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		return Record{}, s.inFlightError("revert")
	}
	last, ok := s.ledger.pop()
	if !ok {
		return Record{}, services.Wrap(services.ErrNothingToRevert, "session", "revert", "no edits applied", nil)
	}
	s.effectiveRef = ""
	s.touch()
	return last, nil
}

func (s *State) inFlightError(op string) error {
	return services.Wrap(services.ErrJobInFlight, "session", op,
		fmt.Sprintf("job %s (%s) has not finished; run resume first", s.pending.ID, s.pending.Kind), nil)
}

func (s *State) touch() {
	s.updatedAt = s.now().UTC()
}

func cloneHandle(h *media.AssetHandle) *media.AssetHandle {
	if h == nil {
		return nil
	}
	c := *h
	return &c
}

func clonePending(p *media.PendingJob) *media.PendingJob {
	if p == nil {
		return nil
	}
	c := *p
	c.Params = p.Params.Clone()
	return &c
}
