package editor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipcraft/internal/jobs"
	"clipcraft/internal/media"
	"clipcraft/internal/notifications"
	"clipcraft/internal/services"
	"clipcraft/internal/services/mediaapi"
	"clipcraft/internal/session"
	"clipcraft/internal/testsupport"
)

type harness struct {
	editor   *Editor
	state    *session.State
	recorder *notifications.Recorder
	fake     *testsupport.FakeService
	dir      string
}

func newHarness(t *testing.T, fake *testsupport.FakeService, opts ...Option) *harness {
	t.Helper()
	client, err := mediaapi.New(mediaapi.Config{APIRoot: fake.APIRoot()})
	if err != nil {
		t.Fatalf("mediaapi.New: %v", err)
	}
	state := session.New("test")
	rec := &notifications.Recorder{}
	base := []Option{
		WithReconciler(rec),
		WithPollerOptions(jobs.WithInterval(0), jobs.WithMaxAttempts(20)),
	}
	e, err := New(state, client, fake.APIRoot(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &harness{editor: e, state: state, recorder: rec, fake: fake, dir: t.TempDir()}
}

func (h *harness) uploadClip(t *testing.T) media.AssetHandle {
	t.Helper()
	path := testsupport.WriteVideo(t, h.dir, "clip.mp4")
	handle, err := h.editor.UploadPrimary(context.Background(), path, "")
	if err != nil {
		t.Fatalf("UploadPrimary: %v", err)
	}
	return handle
}

func TestCaptionsScenario(t *testing.T) {
	fake := testsupport.NewFakeService(t, testsupport.WithResultURL("/files/out1.mp4"), testsupport.WithPollsUntilDone(2))
	h := newHarness(t, fake)
	handle := h.uploadClip(t)
	if handle.ID != "file-1" || handle.FileName != "clip.mp4" {
		t.Fatalf("handle = %+v", handle)
	}

	out, err := h.editor.Run(context.Background(), Request{Kind: media.KindCaptions, Params: media.Params{FontSize: 32}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	snap := h.state.Snapshot()
	if len(snap.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(snap.Records))
	}
	rec := snap.Records[0]
	if rec.Kind != media.KindCaptions || rec.Params.FontSize != 32 {
		t.Fatalf("record = %+v", rec)
	}
	if snap.EffectiveRef != "/files/out1.mp4" {
		t.Fatalf("effective = %q", snap.EffectiveRef)
	}
	if snap.Pending != nil {
		t.Fatalf("pending should be cleared: %+v", snap.Pending)
	}
	if out.ArtifactURL != fake.URL()+"/api/files/out1.mp4" {
		t.Fatalf("artifact url = %q", out.ArtifactURL)
	}

	subs := fake.Submissions()
	if len(subs) != 1 || subs[0].Route != "file-1/add-captions" {
		t.Fatalf("submissions = %+v", subs)
	}
	params := subs[0].Params()
	if params["filename"] != "clip.mp4" || params["font_size"] != float64(32) {
		t.Fatalf("params = %+v", params)
	}

	successes := h.recorder.Successes()
	last := successes[len(successes)-1]
	if last.Label != "Add Captions completed" || last.ArtifactRef != out.ArtifactURL {
		t.Fatalf("success = %+v", last)
	}
	phases := h.recorder.Phases()
	want := []notifications.Phase{notifications.PhaseValidating, notifications.PhaseSubmitting, notifications.PhasePolling, notifications.PhasePolling, notifications.PhaseApplying}
	got := phases[len(phases)-len(want):]
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("phases = %v, want suffix %v", phases, want)
		}
	}
}

func TestMusicWithoutTrackFailsLocally(t *testing.T) {
	fake := testsupport.NewFakeService(t)
	h := newHarness(t, fake)
	h.uploadClip(t)
	if _, err := h.editor.Run(context.Background(), Request{Kind: media.KindCaptions}); err != nil {
		t.Fatalf("captions: %v", err)
	}
	before := fake.TotalRequests()

	_, err := h.editor.Run(context.Background(), Request{Kind: media.KindMusic})
	if !errors.Is(err, services.ErrMissingAuxiliaryAsset) {
		t.Fatalf("err = %v, want missing auxiliary", err)
	}
	if fake.TotalRequests() != before {
		t.Fatal("no network call may happen")
	}
	if n := len(h.state.Snapshot().Records); n != 1 {
		t.Fatalf("records = %d, want 1", n)
	}
	failures := h.recorder.Failures()
	if len(failures) != 1 || failures[0].Kind != string(services.KindMissingAuxiliaryAsset) {
		t.Fatalf("failures = %+v", failures)
	}
}

func TestWhitespaceInstructionFailsLocally(t *testing.T) {
	fake := testsupport.NewFakeService(t)
	h := newHarness(t, fake)
	h.uploadClip(t)
	before := fake.TotalRequests()

	_, err := h.editor.Run(context.Background(), Request{Kind: media.KindAIEdit, Params: media.Params{Instruction: " \t\n "}})
	if !errors.Is(err, services.ErrEmptyInstruction) {
		t.Fatalf("err = %v", err)
	}
	if fake.TotalRequests() != before {
		t.Fatal("no network call may happen")
	}
}

func TestOperationWithoutPrimaryFailsLocally(t *testing.T) {
	fake := testsupport.NewFakeService(t)
	h := newHarness(t, fake)
	_, err := h.editor.Run(context.Background(), Request{Kind: media.KindDedupe})
	if !errors.Is(err, services.ErrMissingPrimaryAsset) {
		t.Fatalf("err = %v", err)
	}
	if fake.TotalRequests() != 0 {
		t.Fatal("no network call may happen")
	}
}

func TestCompletedWithoutReferenceIsMalformed(t *testing.T) {
	fake := testsupport.NewFakeService(t, testsupport.WithMissingResult())
	h := newHarness(t, fake)
	h.uploadClip(t)

	_, err := h.editor.Run(context.Background(), Request{Kind: media.KindDedupe})
	if !errors.Is(err, services.ErrMalformedResult) {
		t.Fatalf("err = %v", err)
	}
	snap := h.state.Snapshot()
	if len(snap.Records) != 0 || snap.EffectiveRef != "" || snap.Pending != nil {
		t.Fatalf("state changed: %+v", snap)
	}
}

func TestFailedJobSurfacesReason(t *testing.T) {
	fake := testsupport.NewFakeService(t, testsupport.WithJobFailure("decode error"))
	h := newHarness(t, fake)
	h.uploadClip(t)
	before := h.state.Snapshot()

	_, err := h.editor.Run(context.Background(), Request{Kind: media.KindBroll, Params: media.Params{Keywords: []string{"sea"}}})
	if !errors.Is(err, services.ErrJobFailed) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(services.UserMessage(err), "decode error") {
		t.Fatalf("message = %q", services.UserMessage(err))
	}
	failures := h.recorder.Failures()
	if len(failures) != 1 || failures[0].Message != "decode error" || failures[0].Kind != string(services.KindJobFailed) {
		t.Fatalf("failures = %+v", failures)
	}
	after := h.state.Snapshot()
	if len(after.Records) != 0 || after.EffectiveRef != before.EffectiveRef || after.Pending != nil {
		t.Fatalf("state changed: %+v", after)
	}
}

func TestPollExhaustionClearsPendingJob(t *testing.T) {
	fake := testsupport.NewFakeService(t, testsupport.WithPollsUntilDone(10))
	h := newHarness(t, fake, WithPollerOptions(jobs.WithMaxAttempts(3)))
	h.uploadClip(t)

	_, err := h.editor.Run(context.Background(), Request{Kind: media.KindDedupe})
	if !errors.Is(err, services.ErrPollExhausted) {
		t.Fatalf("err = %v", err)
	}
	if fake.StatusCalls() != 3 {
		t.Fatalf("status calls = %d, want 3", fake.StatusCalls())
	}
	if _, ok := h.state.Pending(); ok {
		t.Fatal("pending job should be cleared")
	}
}

func TestSubmissionRejectedByServer(t *testing.T) {
	fake := testsupport.NewFakeService(t, testsupport.WithSubmitError(400, "File not found"))
	h := newHarness(t, fake)
	h.uploadClip(t)

	_, err := h.editor.Run(context.Background(), Request{Kind: media.KindDedupe})
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(err.Error(), "File not found") {
		t.Fatalf("server detail missing from %v", err)
	}
	if _, ok := h.state.Pending(); ok {
		t.Fatal("no job may be pending after a rejected submission")
	}
}

func TestMusicUploadsTrackPerInvocation(t *testing.T) {
	fake := testsupport.NewFakeService(t)
	h := newHarness(t, fake)
	h.uploadClip(t)
	track := testsupport.WriteTrack(t, h.dir, "song.mp3")

	for i := 0; i < 2; i++ {
		if _, err := h.editor.Run(context.Background(), Request{Kind: media.KindMusic, AuxiliaryPath: track, Params: media.Params{Volume: media.Float64(0.2)}}); err != nil {
			t.Fatalf("music run %d: %v", i, err)
		}
	}
	uploads := fake.Uploads()
	if len(uploads) != 3 {
		t.Fatalf("uploads = %d, want video plus one track per run", len(uploads))
	}
	if uploads[1].FileType != "music" || uploads[1].ContentType != "audio/mpeg" {
		t.Fatalf("track upload = %+v", uploads[1])
	}
	subs := fake.Submissions()
	params := subs[1].Params()
	if params["music_file_id"] != "file-3" || params["music_volume"] != 0.2 {
		t.Fatalf("second music params = %+v", params)
	}
	snap := h.state.Snapshot()
	if snap.Auxiliary == nil || snap.Auxiliary.ID != "file-3" || snap.AuxiliaryDigest == "" {
		t.Fatalf("auxiliary = %+v", snap.Auxiliary)
	}
}

func TestMusicReusesIdenticalTrack(t *testing.T) {
	fake := testsupport.NewFakeService(t)
	h := newHarness(t, fake, WithAuxiliaryReuse(true))
	h.uploadClip(t)
	track := testsupport.WriteTrack(t, h.dir, "song.mp3")

	for i := 0; i < 2; i++ {
		if _, err := h.editor.Run(context.Background(), Request{Kind: media.KindMusic, AuxiliaryPath: track}); err != nil {
			t.Fatalf("music run %d: %v", i, err)
		}
	}
	if n := len(fake.Uploads()); n != 2 {
		t.Fatalf("uploads = %d, want video plus a single track", n)
	}
	for _, sub := range fake.Submissions() {
		if sub.Params()["music_file_id"] != "file-2" {
			t.Fatalf("submission did not reuse track: %+v", sub.Params())
		}
	}
}

func TestMusicUsesBoundTrack(t *testing.T) {
	fake := testsupport.NewFakeService(t)
	h := newHarness(t, fake)
	h.uploadClip(t)
	track := testsupport.WriteTrack(t, h.dir, "song.wav")
	handle, err := h.editor.UploadAuxiliary(context.Background(), track, "")
	if err != nil {
		t.Fatalf("UploadAuxiliary: %v", err)
	}

	if _, err := h.editor.Run(context.Background(), Request{Kind: media.KindMusic}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	params := fake.Submissions()[0].Params()
	if params["music_file_id"] != handle.ID || params["music_filename"] != "song.wav" || params["music_volume"] != 0.5 {
		t.Fatalf("params = %+v", params)
	}
}

func TestFailedMusicJobDoesNotBindTrack(t *testing.T) {
	fake := testsupport.NewFakeService(t, testsupport.WithJobFailure("mix failed"))
	h := newHarness(t, fake)
	h.uploadClip(t)
	track := testsupport.WriteTrack(t, h.dir, "song.mp3")

	if _, err := h.editor.Run(context.Background(), Request{Kind: media.KindMusic, AuxiliaryPath: track}); !errors.Is(err, services.ErrJobFailed) {
		t.Fatalf("err = %v", err)
	}
	if aux := h.state.Snapshot().Auxiliary; aux != nil {
		t.Fatalf("auxiliary bound after failure: %+v", aux)
	}
}

func TestAIEditRequest(t *testing.T) {
	fake := testsupport.NewFakeService(t, testsupport.WithFinalStatus("processing complete"))
	h := newHarness(t, fake)
	h.uploadClip(t)

	out, err := h.editor.Run(context.Background(), Request{Kind: media.KindAIEdit, Params: media.Params{Instruction: "  cut the silences  "}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	sub := fake.Submissions()[0]
	if sub.Route != "ai-edit" {
		t.Fatalf("route = %q", sub.Route)
	}
	if sub.Body["file_id"] != "file-1" || sub.Body["user_input"] != "cut the silences" {
		t.Fatalf("body = %+v", sub.Body)
	}
	if v, ok := sub.Body["music_file_id"]; !ok || v != nil {
		t.Fatalf("music_file_id should be null, got %v (present=%v)", v, ok)
	}
	if out.Record.Label() != "AI Edit" {
		t.Fatalf("label = %q", out.Record.Label())
	}
	if s := h.recorder.Successes(); s[len(s)-1].Label != "AI Edit completed" {
		t.Fatalf("success label = %q", s[len(s)-1].Label)
	}
}

func TestAuxiliaryRejectedForOperationsWithoutTrack(t *testing.T) {
	fake := testsupport.NewFakeService(t)
	h := newHarness(t, fake)
	h.uploadClip(t)
	track := testsupport.WriteTrack(t, h.dir, "song.mp3")
	before := fake.TotalRequests()

	_, err := h.editor.Run(context.Background(), Request{Kind: media.KindCaptions, AuxiliaryPath: track})
	if !errors.Is(err, services.ErrInvalidParameter) {
		t.Fatalf("err = %v", err)
	}
	if fake.TotalRequests() != before {
		t.Fatal("no network call may happen")
	}
}

func TestInvalidTrackTypeFailsBeforeNetwork(t *testing.T) {
	fake := testsupport.NewFakeService(t)
	h := newHarness(t, fake)
	h.uploadClip(t)
	track := testsupport.WriteFile(t, h.dir, "song.ogg", []byte("OggS"))
	before := fake.TotalRequests()

	_, err := h.editor.Run(context.Background(), Request{Kind: media.KindMusic, AuxiliaryPath: track})
	if !errors.Is(err, services.ErrInvalidAssetType) {
		t.Fatalf("err = %v", err)
	}
	if fake.TotalRequests() != before {
		t.Fatal("no network call may happen")
	}
}

func TestUploadPrimaryRejectsWrongType(t *testing.T) {
	fake := testsupport.NewFakeService(t)
	h := newHarness(t, fake)
	path := testsupport.WriteFile(t, h.dir, "clip.webm", []byte("webm"))

	_, err := h.editor.UploadPrimary(context.Background(), path, "")
	if !errors.Is(err, services.ErrInvalidAssetType) {
		t.Fatalf("err = %v", err)
	}
	if fake.TotalRequests() != 0 {
		t.Fatal("no network call may happen")
	}
}

func TestUploadFailureCarriesServerDetail(t *testing.T) {
	fake := testsupport.NewFakeService(t, testsupport.WithUploadError(413, "File too large"))
	h := newHarness(t, fake)
	path := testsupport.WriteVideo(t, h.dir, "clip.mp4")

	_, err := h.editor.UploadPrimary(context.Background(), path, "")
	if !errors.Is(err, services.ErrTransport) || !strings.Contains(err.Error(), "File too large") {
		t.Fatalf("err = %v", err)
	}
	if h.state.Snapshot().HasPrimary() {
		t.Fatal("primary must not be bound after a failed upload")
	}
}

func TestNewPrimaryUploadResetsSession(t *testing.T) {
	fake := testsupport.NewFakeService(t)
	h := newHarness(t, fake)
	h.uploadClip(t)
	track := testsupport.WriteTrack(t, h.dir, "song.mp3")
	if _, err := h.editor.Run(context.Background(), Request{Kind: media.KindMusic, AuxiliaryPath: track}); err != nil {
		t.Fatalf("music: %v", err)
	}

	second := testsupport.WriteVideo(t, h.dir, "second.mov")
	handle, err := h.editor.UploadPrimary(context.Background(), second, "")
	if err != nil {
		t.Fatalf("UploadPrimary: %v", err)
	}
	snap := h.state.Snapshot()
	if snap.Primary.ID != handle.ID || len(snap.Records) != 0 || snap.EffectiveRef != "" || snap.Auxiliary != nil {
		t.Fatalf("session not reset: %+v", snap)
	}
	if snap.OriginalRef != "/api/files/download/"+handle.ID+"/second.mov" {
		t.Fatalf("original ref = %q", snap.OriginalRef)
	}
}

func TestRevertReturnsToOriginal(t *testing.T) {
	fake := testsupport.NewFakeService(t)
	h := newHarness(t, fake)
	h.uploadClip(t)
	for _, kind := range []media.Kind{media.KindDedupe, media.KindCaptions} {
		if _, err := h.editor.Run(context.Background(), Request{Kind: kind}); err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
	}

	removed, err := h.editor.Revert(context.Background())
	if err != nil {
		t.Fatalf("Revert: %v", err)
	}
	if removed.Kind != media.KindCaptions {
		t.Fatalf("removed %s", removed.Kind)
	}
	snap := h.state.Snapshot()
	if snap.EffectiveRef != "" || len(snap.Records) != 1 {
		t.Fatalf("after revert: %+v", snap)
	}
	last := h.recorder.Successes()
	if got := last[len(last)-1]; got.Label != "Reverted Add Captions" || got.ArtifactRef != fake.URL()+snap.OriginalRef {
		t.Fatalf("revert success = %+v", got)
	}
}

func TestRevertOnEmptyHistory(t *testing.T) {
	fake := testsupport.NewFakeService(t)
	h := newHarness(t, fake)
	h.uploadClip(t)
	if _, err := h.editor.Revert(context.Background()); !errors.Is(err, services.ErrNothingToRevert) {
		t.Fatalf("err = %v", err)
	}
}

type cancelOnPoll struct {
	*notifications.Recorder
	cancel context.CancelFunc
}

func (c cancelOnPoll) OnProgress(ctx context.Context, p notifications.Progress) error {
	if p.Phase == notifications.PhasePolling {
		c.cancel()
	}
	return c.Recorder.OnProgress(ctx, p)
}

func TestInterruptedJobCanBeResumed(t *testing.T) {
	fake := testsupport.NewFakeService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &notifications.Recorder{}
	h := newHarness(t, fake, WithReconciler(cancelOnPoll{Recorder: rec, cancel: cancel}))
	h.uploadClip(t)

	_, err := h.editor.Run(ctx, Request{Kind: media.KindBroll})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want canceled", err)
	}
	pending, ok := h.state.Pending()
	if !ok || pending.Kind != media.KindBroll || len(pending.Params.Keywords) != 3 {
		t.Fatalf("pending = %+v ok=%v", pending, ok)
	}
	if _, err := h.editor.Run(context.Background(), Request{Kind: media.KindDedupe}); !errors.Is(err, services.ErrJobInFlight) {
		t.Fatalf("run while pending: %v", err)
	}

	out, err := h.editor.Resume(context.Background())
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if out.Record.Kind != media.KindBroll || out.Record.JobID != pending.ID {
		t.Fatalf("resumed record = %+v", out.Record)
	}
	if _, ok := h.state.Pending(); ok {
		t.Fatal("pending should be cleared after resume")
	}
	if _, err := h.editor.Resume(context.Background()); !errors.Is(err, services.ErrInvalidParameter) {
		t.Fatalf("second resume: %v", err)
	}
}

func TestConcurrentOperationIsRejected(t *testing.T) {
	fake := testsupport.NewFakeService(t)
	h := newHarness(t, fake)
	h.uploadClip(t)

	h.editor.busy.Lock()
	_, err := h.editor.Run(context.Background(), Request{Kind: media.KindDedupe})
	h.editor.busy.Unlock()
	if !errors.Is(err, services.ErrJobInFlight) {
		t.Fatalf("err = %v", err)
	}
}

func TestOperationRequestsShareCorrelationID(t *testing.T) {
	fake := testsupport.NewFakeService(t, testsupport.WithPollsUntilDone(2))
	h := newHarness(t, fake)
	h.uploadClip(t)
	skip := len(fake.RequestIDs())

	if _, err := h.editor.Run(context.Background(), Request{Kind: media.KindDedupe}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	ids := fake.RequestIDs()[skip:]
	if len(ids) != 3 {
		t.Fatalf("request ids = %v, want submit plus two polls", ids)
	}
	for _, id := range ids {
		if id != ids[0] {
			t.Fatalf("ids differ within one operation: %v", ids)
		}
	}
	if fake.RequestIDs()[0] == ids[0] {
		t.Fatal("separate operations should use separate ids")
	}
}

type memoryPersister struct {
	saves []session.Snapshot
}

func (m *memoryPersister) Save(_ context.Context, snap session.Snapshot) error {
	m.saves = append(m.saves, snap)
	return nil
}

func TestEveryMutationIsPersisted(t *testing.T) {
	fake := testsupport.NewFakeService(t)
	p := &memoryPersister{}
	h := newHarness(t, fake, WithPersister(p))
	h.uploadClip(t)
	if _, err := h.editor.Run(context.Background(), Request{Kind: media.KindDedupe}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(p.saves) != 3 {
		t.Fatalf("saves = %d, want upload, pending job, applied edit", len(p.saves))
	}
	if p.saves[1].Pending == nil || len(p.saves[1].Records) != 0 {
		t.Fatalf("second save should carry the pending job only: %+v", p.saves[1])
	}
	if p.saves[2].Pending != nil || len(p.saves[2].Records) != 1 {
		t.Fatalf("final save = %+v", p.saves[2])
	}
}

func TestDownloadWritesEffectiveArtifact(t *testing.T) {
	fake := testsupport.NewFakeService(t)
	h := newHarness(t, fake)
	h.uploadClip(t)
	out, err := h.editor.Run(context.Background(), Request{Kind: media.KindDedupe})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	dir := filepath.Join(h.dir, "downloads")

	dest, n, err := h.editor.Download(context.Background(), DownloadRequest{Dir: dir})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	wantName := "output_" + out.Job.ID + ".mp4"
	if filepath.Base(dest) != wantName {
		t.Fatalf("dest = %q, want %s", dest, wantName)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if int64(len(data)) != n || string(data) != "artifact:"+out.Job.ID+"/"+wantName {
		t.Fatalf("content = %q (n=%d)", data, n)
	}

	again, _, err := h.editor.Download(context.Background(), DownloadRequest{Dir: dir})
	if err != nil {
		t.Fatalf("second Download: %v", err)
	}
	if again == dest {
		t.Fatal("second download must not overwrite the first")
	}

	original, _, err := h.editor.Download(context.Background(), DownloadRequest{Original: true, Output: filepath.Join(dir, "orig.mp4")})
	if err != nil {
		t.Fatalf("original Download: %v", err)
	}
	data, _ = os.ReadFile(original)
	if string(data) != "artifact:file-1/clip.mp4" {
		t.Fatalf("original content = %q", data)
	}
}

func TestDownloadWithoutPrimary(t *testing.T) {
	fake := testsupport.NewFakeService(t)
	h := newHarness(t, fake)
	if _, _, err := h.editor.Download(context.Background(), DownloadRequest{Dir: h.dir}); !errors.Is(err, services.ErrMissingPrimaryAsset) {
		t.Fatalf("err = %v", err)
	}
}
