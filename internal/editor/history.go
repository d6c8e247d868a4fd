package editor

import (
	"context"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"clipcraft/internal/fileutil"
	"clipcraft/internal/logging"
	"clipcraft/internal/services"
	"clipcraft/internal/session"
	"clipcraft/internal/textutil"
)

// Revert removes the most recent edit and returns the session to the
// original asset. Earlier edits stay in the history but no longer describe
// the current output.
func (e *Editor) Revert(ctx context.Context) (session.Record, error) {
	ctx = e.operationContext(ctx, "revert")
	if err := e.acquire(ctx, "revert"); err != nil {
		return session.Record{}, err
	}
	defer e.busy.Unlock()

	removed, err := e.state.RevertLast()
	if err != nil {
		return session.Record{}, e.fail(ctx, err)
	}
	if err := e.persist(ctx); err != nil {
		return removed, e.fail(ctx, err)
	}
	snap := e.state.Snapshot()
	logging.WithContext(ctx, e.logger).Info("edit reverted",
		logging.String("removed", string(removed.Kind)),
		logging.Int("remaining", len(snap.Records)),
		logging.String(logging.FieldEventType, "edit_reverted"),
	)
	e.succeed(ctx, e.resolveOrRaw(snap.OriginalRef), "Reverted "+removed.Kind.DisplayName())
	return removed, nil
}

// DownloadRequest selects what to download and where.
type DownloadRequest struct {
	// Original downloads the uploaded asset instead of the current output.
	Original bool
	// Output is the destination file. When empty a name derived from the
	// artifact is used under Dir without overwriting existing files.
	Output string
	Dir    string
}

// Download writes the current output (or the original) to disk atomically
// and returns the destination path and size.
func (e *Editor) Download(ctx context.Context, req DownloadRequest) (string, int64, error) {
	ctx = e.operationContext(ctx, "download")
	snap := e.state.Snapshot()
	if !snap.HasPrimary() {
		return "", 0, e.fail(ctx, services.Wrap(services.ErrMissingPrimaryAsset, "editor", "download", "upload a video first", nil))
	}
	ref := snap.CurrentRef()
	if req.Original {
		ref = snap.OriginalRef
	}
	source, err := e.resolver.Resolve(ref)
	if err != nil {
		return "", 0, e.fail(ctx, services.Wrap(services.ErrMalformedResult, "editor", "download", "artifact reference cannot be resolved", err))
	}

	dest := strings.TrimSpace(req.Output)
	if dest == "" {
		name := artifactName(source)
		if name == "" {
			name = textutil.SanitizeFileName(snap.Primary.FileName)
		}
		if name == "" {
			name = "clip.mp4"
		}
		dest = fileutil.UniquePath(filepath.Join(req.Dir, name))
	}

	var written int64
	err = fileutil.WriteAtomic(dest, 0o644, func(w io.Writer) error {
		n, err := e.downloader.Download(ctx, source, w)
		written = n
		return err
	})
	if err != nil {
		return "", 0, e.fail(ctx, services.Wrap(services.ErrTransport, "editor", "download", "download failed", err))
	}
	logging.WithContext(ctx, e.logger).Info("artifact downloaded",
		logging.String("source", source),
		logging.String("destination", dest),
		logging.Int64("bytes", written),
		logging.String(logging.FieldEventType, "artifact_downloaded"),
	)
	return dest, written, nil
}

func artifactName(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	base := path.Base(parsed.Path)
	if base == "." || base == "/" {
		return ""
	}
	return textutil.SanitizeFileName(base)
}
