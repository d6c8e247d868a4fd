package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipcraft/internal/media"
	"clipcraft/internal/services"
	"clipcraft/internal/services/mediaapi"
)

type stubStore struct {
	calls int
	req   mediaapi.UploadRequest
	body  string
	resp  mediaapi.UploadResponse
	err   error
}

func (s *stubStore) Upload(_ context.Context, req mediaapi.UploadRequest) (mediaapi.UploadResponse, error) {
	s.calls++
	s.req = req
	data, _ := io.ReadAll(req.Body)
	s.body = string(data)
	return s.resp, s.err
}

func TestSubmitRejectsDisallowedTypeWithoutNetwork(t *testing.T) {
	cases := []struct {
		name string
		src  Source
		kind media.AssetKind
	}{
		{"webm video", Source{FileName: "clip.webm", Size: 4, Body: strings.NewReader("data")}, media.AssetVideo},
		{"video as music", Source{FileName: "clip.mp4", Size: 4, Body: strings.NewReader("data")}, media.AssetMusic},
		{"declared mismatch", Source{FileName: "song.mp3", ContentType: "audio/ogg", Size: 4, Body: strings.NewReader("data")}, media.AssetMusic},
		{"unknown kind", Source{FileName: "clip.mp4", Size: 4, Body: strings.NewReader("data")}, media.AssetKind("image")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &stubStore{}
			_, err := NewGateway(store, nil).Submit(context.Background(), tc.src, tc.kind)
			if !errors.Is(err, services.ErrInvalidAssetType) {
				t.Fatalf("expected invalid asset type, got %v", err)
			}
			if store.calls != 0 {
				t.Fatalf("expected no network call, got %d", store.calls)
			}
		})
	}
}

func TestSubmitRejectsEmptyAsset(t *testing.T) {
	store := &stubStore{}
	_, err := NewGateway(store, nil).Submit(context.Background(), Source{FileName: "clip.mp4", Size: 0, Body: strings.NewReader("")}, media.AssetVideo)
	if !errors.Is(err, services.ErrInvalidParameter) || store.calls != 0 {
		t.Fatalf("expected local empty-asset failure, got %v (calls=%d)", err, store.calls)
	}
}

func TestSubmitReturnsHandleAndDigest(t *testing.T) {
	store := &stubStore{resp: mediaapi.UploadResponse{FileID: "f1", FileName: "clip.mp4", FilePath: "uploads/f1/clip.mp4"}}
	result, err := NewGateway(store, nil).Submit(context.Background(), Source{FileName: "/tmp/clip.mp4", Size: 6, Body: strings.NewReader("frames")}, media.AssetVideo)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if store.calls != 1 || store.req.FileType != "video" || store.req.ContentType != "video/mp4" || store.req.FileName != "clip.mp4" {
		t.Fatalf("unexpected request %+v (calls=%d)", store.req, store.calls)
	}
	if store.body != "frames" {
		t.Fatalf("unexpected body %q", store.body)
	}
	want := media.AssetHandle{ID: "f1", FileName: "clip.mp4", Path: "uploads/f1/clip.mp4", Kind: media.AssetVideo}
	if result.Handle != want {
		t.Fatalf("unexpected handle %+v", result.Handle)
	}
	if len(result.Digest) != 64 || result.Size != 6 {
		t.Fatalf("unexpected digest/size %q %d", result.Digest, result.Size)
	}
}

func TestSubmitWrapsTransportFailureWithServerDetail(t *testing.T) {
	store := &stubStore{err: &mediaapi.StatusError{Operation: "mediaapi upload", StatusCode: http.StatusInternalServerError, Detail: "File upload failed: disk full"}}
	_, err := NewGateway(store, nil).Submit(context.Background(), Source{FileName: "song.wav", Size: 1, Body: strings.NewReader("x")}, media.AssetMusic)
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport failure, got %v", err)
	}
	if !strings.Contains(services.UserMessage(err), "disk full") {
		t.Fatalf("expected server detail in message, got %q", services.UserMessage(err))
	}
	if store.calls != 1 {
		t.Fatalf("expected exactly one submission, got %d", store.calls)
	}
}

func TestSubmitRequiresFileID(t *testing.T) {
	store := &stubStore{resp: mediaapi.UploadResponse{FileName: "clip.mp4"}}
	_, err := NewGateway(store, nil).Submit(context.Background(), Source{FileName: "clip.mp4", Size: 1, Body: strings.NewReader("x")}, media.AssetVideo)
	if !errors.Is(err, services.ErrMalformedResult) {
		t.Fatalf("expected malformed result, got %v", err)
	}
}

func TestSubmitFileInfersContentType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.mp3")
	if err := os.WriteFile(path, []byte("id3"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := &stubStore{resp: mediaapi.UploadResponse{FileID: "m1", FileName: "track.mp3"}}
	result, err := NewGateway(store, nil).SubmitFile(context.Background(), path, media.AssetMusic, "")
	if err != nil {
		t.Fatalf("SubmitFile returned error: %v", err)
	}
	if store.req.ContentType != "audio/mpeg" || result.Handle.Kind != media.AssetMusic {
		t.Fatalf("unexpected upload %+v / %+v", store.req, result.Handle)
	}
}

func TestValidateFileChecksTypeAndSize(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.mp4")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	wav := filepath.Join(dir, "song.wav")
	if err := os.WriteFile(wav, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ValidateFile(wav, media.AssetMusic, ""); err != nil {
		t.Fatalf("wav should be accepted: %v", err)
	}
	if err := ValidateFile(wav, media.AssetVideo, ""); !errors.Is(err, services.ErrInvalidAssetType) {
		t.Fatalf("wav as video: %v", err)
	}
	if err := ValidateFile(empty, media.AssetVideo, ""); !errors.Is(err, services.ErrInvalidParameter) {
		t.Fatalf("empty file: %v", err)
	}
	if err := ValidateFile(filepath.Join(dir, "missing.mp4"), media.AssetVideo, ""); !errors.Is(err, services.ErrInvalidParameter) {
		t.Fatalf("missing file: %v", err)
	}
}
