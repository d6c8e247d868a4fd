package session_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"clipcraft/internal/media"
	"clipcraft/internal/session"
	"clipcraft/internal/testsupport"
)

func sampleState(t *testing.T) *session.State {
	t.Helper()
	s := session.New("demo")
	if err := s.NewPrimaryUpload(media.AssetHandle{ID: "v1", FileName: "clip.mp4", DownloadURL: "/api/files/download/v1/clip.mp4", Kind: media.AssetVideo}, "/api/files/download/v1/clip.mp4"); err != nil {
		t.Fatalf("NewPrimaryUpload: %v", err)
	}
	if err := s.BindAuxiliary(media.AssetHandle{ID: "m1", FileName: "song.mp3", Kind: media.AssetMusic}, "digest-1"); err != nil {
		t.Fatalf("BindAuxiliary: %v", err)
	}
	if err := s.BeginJob(media.PendingJob{ID: "t1", Kind: media.KindMusic}); err != nil {
		t.Fatalf("BeginJob: %v", err)
	}
	params := media.Params{Volume: media.Float64(0.3), MusicFileID: "m1", MusicFileName: "song.mp3"}
	if _, err := s.ApplyCompletedJob("t1", media.KindMusic, params, "/out/a.mp4"); err != nil {
		t.Fatalf("ApplyCompletedJob: %v", err)
	}
	if err := s.BeginJob(media.PendingJob{ID: "t2", Kind: media.KindCaptions, Params: media.Params{FontSize: 32}}); err != nil {
		t.Fatalf("BeginJob: %v", err)
	}
	return s
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	snap := sampleState(t).Snapshot()
	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load(ctx, "demo")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ID != snap.ID || got.Primary.ID != "v1" || got.OriginalRef != snap.OriginalRef {
		t.Fatalf("primary mismatch: %+v", got)
	}
	if got.EffectiveRef != "/out/a.mp4" {
		t.Fatalf("effective = %q", got.EffectiveRef)
	}
	if got.Auxiliary == nil || got.Auxiliary.ID != "m1" || got.AuxiliaryDigest != "digest-1" {
		t.Fatalf("auxiliary mismatch: %+v", got.Auxiliary)
	}
	if len(got.Records) != 1 {
		t.Fatalf("records = %d", len(got.Records))
	}
	rec := got.Records[0]
	if rec.Kind != media.KindMusic || rec.JobID != "t1" || rec.Params.Volume == nil || *rec.Params.Volume != 0.3 {
		t.Fatalf("record mismatch: %+v", rec)
	}
	if !rec.CreatedAt.Equal(snap.Records[0].CreatedAt) {
		t.Fatalf("created_at = %v, want %v", rec.CreatedAt, snap.Records[0].CreatedAt)
	}
	if got.Pending == nil || got.Pending.ID != "t2" || got.Pending.Params.FontSize != 32 {
		t.Fatalf("pending mismatch: %+v", got.Pending)
	}
}

func TestStoreSaveReplacesRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	state := sampleState(t)
	if err := store.Save(ctx, state.Snapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	state.AbandonJob("t2")
	if _, err := state.RevertLast(); err != nil {
		t.Fatalf("RevertLast: %v", err)
	}
	if err := store.Save(ctx, state.Snapshot()); err != nil {
		t.Fatalf("Save after revert: %v", err)
	}

	got, err := store.Load(ctx, "demo")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Records) != 0 || got.EffectiveRef != "" || got.Pending != nil {
		t.Fatalf("expected reverted state, got %+v", got)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	_, err := store.Load(context.Background(), "nope")
	if !errors.Is(err, session.ErrSessionNotFound) {
		t.Fatalf("err = %v", err)
	}
	if err := store.Delete(context.Background(), "nope"); !errors.Is(err, session.ErrSessionNotFound) {
		t.Fatalf("delete err = %v", err)
	}
}

func TestStoreListAndDelete(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if err := store.Save(ctx, sampleState(t).Snapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(ctx, session.New("empty").Snapshot()); err != nil {
		t.Fatalf("Save empty: %v", err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("list = %d, want 2", len(list))
	}
	byName := map[string]session.Summary{}
	for _, s := range list {
		byName[s.Name] = s
	}
	demo := byName["demo"]
	if demo.PrimaryName != "clip.mp4" || demo.Edits != 1 || !demo.Pending {
		t.Fatalf("demo summary = %+v", demo)
	}
	if empty := byName["empty"]; empty.PrimaryName != "" || empty.Edits != 0 || empty.Pending {
		t.Fatalf("empty summary = %+v", empty)
	}

	if err := store.Delete(ctx, "demo"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	list, err = store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Name != "empty" {
		t.Fatalf("after delete list = %+v", list)
	}
}

func TestStoreReopenKeepsData(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := session.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Save(context.Background(), sampleState(t).Snapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := session.OpenPath(filepath.Join(cfg.Paths.StateDir, "sessions.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.Load(context.Background(), "demo"); err != nil {
		t.Fatalf("Load after reopen: %v", err)
	}
}

func TestStoreRejectsUnnamedSnapshot(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	if err := store.Save(context.Background(), session.Snapshot{ID: "x"}); err == nil {
		t.Fatal("expected error for snapshot without name")
	}
}
