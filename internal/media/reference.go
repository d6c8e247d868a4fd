package media

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Resolver turns artifact references returned by the service into
// downloadable URLs.
type Resolver struct {
	root     *url.URL
	rootPath string
}

// NewResolver builds a resolver for the service API root, e.g.
// "http://127.0.0.1:8000/api".
func NewResolver(apiRoot string) (*Resolver, error) {
	parsed, err := url.Parse(strings.TrimSpace(apiRoot))
	if err != nil {
		return nil, fmt.Errorf("parse api root: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("api root %q must be an absolute url", apiRoot)
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	rootPath := strings.TrimRight(parsed.Path, "/")
	parsed.Path = rootPath
	parsed.RawPath = ""
	return &Resolver{root: parsed, rootPath: rootPath}, nil
}

// RootPath returns the API root path, e.g. "/api".
func (r *Resolver) RootPath() string {
	return r.rootPath
}

// Resolve normalizes ref: absolute URLs are used unchanged, references that
// already start with the API root are resolved against the host, other
// rooted references get the API root prepended, and bare references are
// treated as relative to the API root.
func (r *Resolver) Resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("empty artifact reference")
	}
	if parsed, err := url.Parse(ref); err == nil && parsed.IsAbs() && parsed.Host != "" {
		return ref, nil
	}
	var path string
	switch {
	case r.hasRootPrefix(ref):
		path = ref
	case strings.HasPrefix(ref, "/"):
		path = r.rootPath + ref
	default:
		path = r.rootPath + "/" + ref
	}
	return r.root.Scheme + "://" + r.root.Host + path, nil
}

func (r *Resolver) hasRootPrefix(ref string) bool {
	if r.rootPath == "" {
		return strings.HasPrefix(ref, "/")
	}
	return ref == r.rootPath || strings.HasPrefix(ref, r.rootPath+"/")
}

// OriginalReference is the download location of an uploaded asset: the one
// reported by the store when present, else the fixed download template.
func (r *Resolver) OriginalReference(handle AssetHandle) string {
	if ref := strings.TrimSpace(handle.DownloadURL); ref != "" {
		return ref
	}
	return r.rootPath + "/files/download/" + url.PathEscape(handle.ID) + "/" + url.PathEscape(handle.FileName)
}
