package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to name under dir, creating parents, and returns
// the full path.
func WriteFile(t testing.TB, dir, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteVideo writes a small placeholder .mp4 file.
func WriteVideo(t testing.TB, dir, name string) string {
	t.Helper()
	return WriteFile(t, dir, name, []byte("\x00\x00\x00\x18ftypmp42 video bytes for "+name))
}

// WriteTrack writes a small placeholder audio file.
func WriteTrack(t testing.TB, dir, name string) string {
	t.Helper()
	return WriteFile(t, dir, name, []byte("ID3 audio bytes for "+name))
}
