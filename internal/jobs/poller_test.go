package jobs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"clipcraft/internal/media"
	"clipcraft/internal/services"
	"clipcraft/internal/services/mediaapi"
)

type scriptedStatus struct {
	mu        sync.Mutex
	responses []mediaapi.StatusResponse
	err       error
	calls     int
}

func (s *scriptedStatus) Status(_ context.Context, _ string) (mediaapi.StatusResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return mediaapi.StatusResponse{}, s.err
	}
	if len(s.responses) == 0 {
		return mediaapi.StatusResponse{Status: "processing"}, nil
	}
	next := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return next, nil
}

type countingSleeper struct {
	waits []time.Duration
}

func (c *countingSleeper) sleep(ctx context.Context, d time.Duration) error {
	c.waits = append(c.waits, d)
	return ctx.Err()
}

func newTestPoller(api StatusAPI, sleeper *countingSleeper, maxAttempts int) *Poller {
	return NewPoller(api, WithInterval(250*time.Millisecond), WithMaxAttempts(maxAttempts), WithSleeper(sleeper.sleep))
}

var testJob = media.Job{ID: "t-1", Kind: media.KindCaptions, Status: media.JobSubmitted}

func TestAwaitCompletesAfterProcessing(t *testing.T) {
	api := &scriptedStatus{responses: []mediaapi.StatusResponse{
		{Status: "processing"},
		{Status: "step_1"},
		{Status: "completed", Result: &mediaapi.JobResult{DownloadURL: "/files/out1.mp4"}},
	}}
	sleeper := &countingSleeper{}
	var observed []string
	job, err := newTestPoller(api, sleeper, 60).Await(context.Background(), testJob, func(j media.Job) {
		observed = append(observed, j.RawStatus)
	})
	if err != nil {
		t.Fatalf("Await returned error: %v", err)
	}
	if job.Status != media.JobCompleted || job.ArtifactRef != "/files/out1.mp4" || job.Attempts != 3 {
		t.Fatalf("unexpected job %+v", job)
	}
	if api.calls != 3 || len(sleeper.waits) != 3 {
		t.Fatalf("expected one wait per query, got %d queries and %d waits", api.calls, len(sleeper.waits))
	}
	for _, wait := range sleeper.waits {
		if wait != 250*time.Millisecond {
			t.Fatalf("unexpected wait %s", wait)
		}
	}
	if strings.Join(observed, ",") != "processing,step_1" {
		t.Fatalf("unexpected observations %v", observed)
	}
}

func TestAwaitCompletedWithoutReferenceIsMalformed(t *testing.T) {
	api := &scriptedStatus{responses: []mediaapi.StatusResponse{{Status: "completed", Result: &mediaapi.JobResult{}}}}
	_, err := newTestPoller(api, &countingSleeper{}, 60).Await(context.Background(), testJob, nil)
	if !errors.Is(err, services.ErrMalformedResult) {
		t.Fatalf("expected malformed result, got %v", err)
	}
}

func TestAwaitFailedSurfacesReasonVerbatim(t *testing.T) {
	api := &scriptedStatus{responses: []mediaapi.StatusResponse{{Status: "failed", Error: "decode error"}}}
	_, err := newTestPoller(api, &countingSleeper{}, 60).Await(context.Background(), testJob, nil)
	if !errors.Is(err, services.ErrJobFailed) {
		t.Fatalf("expected job failure, got %v", err)
	}
	if got := services.UserMessage(err); got != "decode error" {
		t.Fatalf("expected verbatim reason, got %q", got)
	}
}

func TestAwaitExhaustsAttemptCap(t *testing.T) {
	api := &scriptedStatus{}
	_, err := newTestPoller(api, &countingSleeper{}, 5).Await(context.Background(), testJob, nil)
	if !errors.Is(err, services.ErrPollExhausted) {
		t.Fatalf("expected poll exhaustion, got %v", err)
	}
	if api.calls != 5 {
		t.Fatalf("expected 5 status queries, got %d", api.calls)
	}
}

func TestAwaitUnlimitedWhenCapDisabled(t *testing.T) {
	responses := make([]mediaapi.StatusResponse, 0, 101)
	for i := 0; i < 100; i++ {
		responses = append(responses, mediaapi.StatusResponse{Status: "processing"})
	}
	responses = append(responses, mediaapi.StatusResponse{Status: "completed", Result: &mediaapi.JobResult{DownloadURL: "out.mp4"}})
	api := &scriptedStatus{responses: responses}
	job, err := newTestPoller(api, &countingSleeper{}, 0).Await(context.Background(), testJob, nil)
	if err != nil {
		t.Fatalf("Await returned error: %v", err)
	}
	if job.Attempts != 101 {
		t.Fatalf("expected 101 attempts, got %d", job.Attempts)
	}
}

func TestAwaitTransportFailureIsNotRetried(t *testing.T) {
	api := &scriptedStatus{err: errors.New("connection refused")}
	_, err := newTestPoller(api, &countingSleeper{}, 60).Await(context.Background(), testJob, nil)
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport failure, got %v", err)
	}
	if api.calls != 1 {
		t.Fatalf("expected a single query, got %d", api.calls)
	}
}

func TestAwaitStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	api := &scriptedStatus{}
	_, err := newTestPoller(api, &countingSleeper{}, 60).Await(ctx, testJob, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if api.calls != 0 {
		t.Fatalf("expected no queries after cancel, got %d", api.calls)
	}
}

func TestAwaitRejectsConcurrentPollOfSameJob(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	api := &scriptedStatus{responses: []mediaapi.StatusResponse{{Status: "completed", Result: &mediaapi.JobResult{DownloadURL: "x"}}}}
	var once sync.Once
	poller := NewPoller(api, WithSleeper(func(ctx context.Context, d time.Duration) error {
		once.Do(func() { close(entered) })
		<-release
		return nil
	}))

	done := make(chan error, 1)
	go func() {
		_, err := poller.Await(context.Background(), testJob, nil)
		done <- err
	}()
	<-entered

	if _, err := poller.Await(context.Background(), testJob, nil); !errors.Is(err, services.ErrJobInFlight) {
		t.Fatalf("expected in-flight rejection, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first poll failed: %v", err)
	}
}

func TestSleepContextHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if err := sleepContext(context.Background(), 0); err != nil {
		t.Fatalf("expected immediate return, got %v", err)
	}
}
