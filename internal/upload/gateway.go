package upload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"clipcraft/internal/logging"
	"clipcraft/internal/media"
	"clipcraft/internal/services"
	"clipcraft/internal/services/mediaapi"
)

// Store is the remote collaborator that accepts uploads.
type Store interface {
	Upload(ctx context.Context, req mediaapi.UploadRequest) (mediaapi.UploadResponse, error)
}

// Source describes the binary being submitted. A negative Size means the
// length is unknown.
type Source struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Result is a bound asset handle plus the content digest of what was sent.
type Result struct {
	Handle media.AssetHandle
	Digest string
	Size   int64
}

// Gateway validates and submits assets.
type Gateway struct {
	store  Store
	logger *slog.Logger
}

// NewGateway constructs a Gateway around the remote store.
func NewGateway(store Store, logger *slog.Logger) *Gateway {
	return &Gateway{store: store, logger: logging.NewComponentLogger(logger, "upload")}
}

// Validate applies the local preconditions for submitting src as kind.
func Validate(src Source, kind media.AssetKind) error {
	if err := checkType(src.FileName, src.ContentType, kind); err != nil {
		return err
	}
	if src.Body == nil || src.Size == 0 {
		return services.Wrap(services.ErrInvalidParameter, "upload", "validate", "asset is empty", nil)
	}
	return nil
}

// ValidateFile applies the same preconditions to a file on disk without
// reading it.
func ValidateFile(path string, kind media.AssetKind, declaredType string) error {
	if err := checkType(filepath.Base(path), declaredType, kind); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrInvalidParameter, "upload", "validate", "asset is not readable", err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrInvalidParameter, "upload", "validate", fmt.Sprintf("%s is a directory", path), nil)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrInvalidParameter, "upload", "validate", "asset is empty", nil)
	}
	return nil
}

func checkType(fileName, declaredType string, kind media.AssetKind) error {
	if !kind.Valid() {
		return services.Wrap(services.ErrInvalidAssetType, "upload", "validate", fmt.Sprintf("unknown asset kind %q", kind), nil)
	}
	contentType := media.DetectContentType(fileName, declaredType)
	if !kind.Accepts(contentType) {
		if contentType == "" {
			contentType = "unknown"
		}
		return services.Wrap(services.ErrInvalidAssetType, "upload", "validate",
			fmt.Sprintf("%s uploads accept %s, got %s", kind, strings.Join(kind.AllowedContentTypes(), " or "), contentType), nil)
	}
	return nil
}

// Submit validates src and registers it with the remote store.
func (g *Gateway) Submit(ctx context.Context, src Source, kind media.AssetKind) (Result, error) {
	if err := Validate(src, kind); err != nil {
		return Result{}, err
	}
	contentType := media.DetectContentType(src.FileName, src.ContentType)
	fileName := filepath.Base(src.FileName)

	hasher := sha256.New()
	counter := &countingReader{r: io.TeeReader(src.Body, hasher)}
	resp, err := g.store.Upload(ctx, mediaapi.UploadRequest{
		FileName:    fileName,
		ContentType: contentType,
		FileType:    string(kind),
		Body:        counter,
	})
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransport, "upload", string(kind), transportMessage(err), err)
	}
	if strings.TrimSpace(resp.FileID) == "" {
		return Result{}, services.Wrap(services.ErrMalformedResult, "upload", string(kind), "response missing file_id", nil)
	}

	handle := media.AssetHandle{
		ID:          strings.TrimSpace(resp.FileID),
		FileName:    strings.TrimSpace(resp.FileName),
		Path:        strings.TrimSpace(resp.FilePath),
		DownloadURL: strings.TrimSpace(resp.DownloadURL),
		Kind:        kind,
	}
	if handle.FileName == "" {
		handle.FileName = fileName
	}
	g.logger.Info("asset uploaded",
		logging.String("file_id", handle.ID),
		logging.String("filename", handle.FileName),
		logging.String("kind", string(kind)),
		logging.Int64("bytes", counter.n),
		logging.String(logging.FieldEventType, "asset_uploaded"),
	)
	return Result{Handle: handle, Digest: hex.EncodeToString(hasher.Sum(nil)), Size: counter.n}, nil
}

// SubmitFile opens path and submits it as kind. declaredType may be empty, in
// which case the content type is inferred from the file extension.
func (g *Gateway) SubmitFile(ctx context.Context, path string, kind media.AssetKind, declaredType string) (Result, error) {
	if err := ValidateFile(path, kind, declaredType); err != nil {
		return Result{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open asset: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return Result{}, fmt.Errorf("stat asset: %w", err)
	}
	return g.Submit(ctx, Source{
		FileName:    filepath.Base(path),
		ContentType: declaredType,
		Size:        info.Size(),
		Body:        f,
	}, kind)
}

func transportMessage(err error) string {
	var statusErr *mediaapi.StatusError
	if errors.As(err, &statusErr) && strings.TrimSpace(statusErr.Detail) != "" {
		return statusErr.Detail
	}
	return "upload failed"
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
