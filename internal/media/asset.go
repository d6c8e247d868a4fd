package media

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// AssetKind is the declared category of an uploaded binary.
type AssetKind string

const (
	// AssetVideo is the primary media asset being edited.
	AssetVideo AssetKind = "video"
	// AssetMusic is the auxiliary audio track used by mixing and AI edits.
	AssetMusic AssetKind = "music"
)

var allowedContentTypes = map[AssetKind][]string{
	AssetVideo: {"video/mp4", "video/quicktime"},
	AssetMusic: {"audio/mpeg", "audio/wav"},
}

var contentTypeAliases = map[string]string{
	"audio/mp3":     "audio/mpeg",
	"audio/x-wav":   "audio/wav",
	"audio/wave":    "audio/wav",
	"audio/vnd.wav": "audio/wav",
}

var extensionContentTypes = map[string]string{
	".mp4": "video/mp4",
	".m4v": "video/mp4",
	".mov": "video/quicktime",
	".qt":  "video/quicktime",
	".mp3": "audio/mpeg",
	".wav": "audio/wav",
}

// ParseAssetKind maps user input onto a known kind.
func ParseAssetKind(raw string) (AssetKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "video", "primary":
		return AssetVideo, nil
	case "music", "audio", "auxiliary":
		return AssetMusic, nil
	default:
		return "", fmt.Errorf("unknown asset kind %q", raw)
	}
}

// Valid reports whether k is one of the declared kinds.
func (k AssetKind) Valid() bool {
	_, ok := allowedContentTypes[k]
	return ok
}

// Primary reports whether k binds as the session's primary asset.
func (k AssetKind) Primary() bool {
	return k == AssetVideo
}

// AllowedContentTypes returns the content types accepted for k.
func (k AssetKind) AllowedContentTypes() []string {
	return append([]string(nil), allowedContentTypes[k]...)
}

// Accepts reports whether contentType belongs to the allow-list for k.
func (k AssetKind) Accepts(contentType string) bool {
	normalized := NormalizeContentType(contentType)
	for _, allowed := range allowedContentTypes[k] {
		if normalized == allowed {
			return true
		}
	}
	return false
}

// NormalizeContentType strips parameters and maps common aliases onto the
// canonical content type.
func NormalizeContentType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = parsed
	}
	contentType = strings.ToLower(contentType)
	if alias, ok := contentTypeAliases[contentType]; ok {
		return alias
	}
	return contentType
}

// DetectContentType returns the declared content type when present, else the
// type implied by the filename extension.
func DetectContentType(filename, declared string) string {
	if normalized := NormalizeContentType(declared); normalized != "" {
		return normalized
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if ct, ok := extensionContentTypes[ext]; ok {
		return ct
	}
	return NormalizeContentType(mime.TypeByExtension(ext))
}

// AssetHandle is the identity the remote store assigned to an upload.
type AssetHandle struct {
	ID          string    `json:"file_id"`
	FileName    string    `json:"filename"`
	Path        string    `json:"file_path,omitempty"`
	DownloadURL string    `json:"download_url,omitempty"`
	Kind        AssetKind `json:"file_type"`
}

// IsZero reports whether no asset is bound.
func (h AssetHandle) IsZero() bool {
	return strings.TrimSpace(h.ID) == ""
}
