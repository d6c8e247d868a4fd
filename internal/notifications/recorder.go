package notifications

import (
	"context"
	"sync"
)

// Success is a recorded OnSuccess call.
type Success struct {
	ArtifactRef string
	Label       string
}

// Failure is a recorded OnError call.
type Failure struct {
	Kind    string
	Message string
}

// Recorder keeps every event it receives.
type Recorder struct {
	mu        sync.Mutex
	progress  []Progress
	successes []Success
	failures  []Failure
}

func (r *Recorder) OnProgress(_ context.Context, p Progress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, p)
	return nil
}

func (r *Recorder) OnSuccess(_ context.Context, artifactRef, label string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes = append(r.successes, Success{ArtifactRef: artifactRef, Label: label})
	return nil
}

func (r *Recorder) OnError(_ context.Context, kind, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, Failure{Kind: kind, Message: message})
	return nil
}

// Progress returns the recorded progress events.
func (r *Recorder) Progress() []Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Progress(nil), r.progress...)
}

// Successes returns the recorded successes.
func (r *Recorder) Successes() []Success {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Success(nil), r.successes...)
}

// Failures returns the recorded failures.
func (r *Recorder) Failures() []Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Failure(nil), r.failures...)
}

// Phases returns the phase of every progress event in order.
func (r *Recorder) Phases() []Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Phase, len(r.progress))
	for i, p := range r.progress {
		out[i] = p.Phase
	}
	return out
}
