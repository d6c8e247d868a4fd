package editor

import (
	"context"
	"fmt"
	"path/filepath"

	"clipcraft/internal/fileutil"
	"clipcraft/internal/logging"
	"clipcraft/internal/media"
	"clipcraft/internal/notifications"
	"clipcraft/internal/services"
	"clipcraft/internal/upload"
)

// UploadPrimary uploads the video at path and makes it the session's primary
// asset, discarding every edit, the music track, and the effective artifact.
func (e *Editor) UploadPrimary(ctx context.Context, path, declaredType string) (media.AssetHandle, error) {
	ctx = e.operationContext(ctx, "upload")
	if err := e.acquire(ctx, "upload"); err != nil {
		return media.AssetHandle{}, err
	}
	defer e.busy.Unlock()

	e.progress(ctx, notifications.Progress{Phase: notifications.PhaseValidating, Detail: filepath.Base(path)})
	if pending, ok := e.state.Pending(); ok {
		return media.AssetHandle{}, e.fail(ctx, services.Wrap(services.ErrJobInFlight, "editor", "upload",
			fmt.Sprintf("job %s (%s) has not finished; run resume first", pending.ID, pending.Kind), nil))
	}
	if err := upload.ValidateFile(path, media.AssetVideo, declaredType); err != nil {
		return media.AssetHandle{}, e.fail(ctx, err)
	}

	e.progress(ctx, notifications.Progress{Phase: notifications.PhaseUploading, Detail: filepath.Base(path)})
	result, err := e.gateway.SubmitFile(ctx, path, media.AssetVideo, declaredType)
	if err != nil {
		return media.AssetHandle{}, e.fail(ctx, err)
	}
	original := e.resolver.OriginalReference(result.Handle)
	if err := e.state.NewPrimaryUpload(result.Handle, original); err != nil {
		return media.AssetHandle{}, e.fail(ctx, err)
	}
	if err := e.persist(ctx); err != nil {
		return result.Handle, e.fail(ctx, err)
	}

	logging.WithContext(ctx, e.logger).Info("primary asset bound",
		logging.String("file_id", result.Handle.ID),
		logging.String("filename", result.Handle.FileName),
		logging.String(logging.FieldEventType, "primary_bound"),
	)
	e.succeed(ctx, e.resolveOrRaw(original), "Video upload completed")
	return result.Handle, nil
}

// UploadAuxiliary uploads the music track at path and binds it to the
// session. With reuse enabled an identical track already bound is kept.
func (e *Editor) UploadAuxiliary(ctx context.Context, path, declaredType string) (media.AssetHandle, error) {
	ctx = e.operationContext(ctx, "upload-music")
	if err := e.acquire(ctx, "upload-music"); err != nil {
		return media.AssetHandle{}, err
	}
	defer e.busy.Unlock()

	e.progress(ctx, notifications.Progress{Phase: notifications.PhaseValidating, Detail: filepath.Base(path)})
	if err := upload.ValidateFile(path, media.AssetMusic, declaredType); err != nil {
		return media.AssetHandle{}, e.fail(ctx, err)
	}
	if e.reuseAux {
		if digest, err := fileutil.DigestFile(path); err == nil {
			if handle, ok := e.state.AuxiliaryMatching(digest); ok {
				e.succeed(ctx, e.resolveOrRaw(e.resolver.OriginalReference(handle)), "Music already uploaded")
				return handle, nil
			}
		}
	}

	e.progress(ctx, notifications.Progress{Phase: notifications.PhaseUploading, Detail: filepath.Base(path)})
	result, err := e.gateway.SubmitFile(ctx, path, media.AssetMusic, declaredType)
	if err != nil {
		return media.AssetHandle{}, e.fail(ctx, err)
	}
	if err := e.state.BindAuxiliary(result.Handle, result.Digest); err != nil {
		return media.AssetHandle{}, e.fail(ctx, err)
	}
	if err := e.persist(ctx); err != nil {
		return result.Handle, e.fail(ctx, err)
	}
	e.succeed(ctx, e.resolveOrRaw(e.resolver.OriginalReference(result.Handle)), "Music upload completed")
	return result.Handle, nil
}

func (e *Editor) resolveOrRaw(ref string) string {
	if resolved, err := e.resolver.Resolve(ref); err == nil {
		return resolved
	}
	return ref
}
