// Package fileutil provides atomic file writes and content digests used for
// artifact downloads and auxiliary asset reuse.
package fileutil
