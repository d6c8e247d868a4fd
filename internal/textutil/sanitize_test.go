package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"clip.mp4":        "clip.mp4",
		"  a/b:c*d?.mp4 ": "a-b-c-d.mp4",
		"../etc/passwd":   "-etc-passwd",
		".hidden.mp4":     "hidden.mp4",
		"tab\there.mp4":   "tabhere.mp4",
		"":                "",
	}
	for input, want := range cases {
		if got := SanitizeFileName(input); got != want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSanitizeToken(t *testing.T) {
	cases := map[string]string{
		"My Session":  "my_session",
		"demo-1":      "demo-1",
		"__x__":       "x",
		"  ":          "default",
		"weird/../na": "weird____na",
	}
	for input, want := range cases {
		if got := SanitizeToken(input); got != want {
			t.Fatalf("SanitizeToken(%q) = %q, want %q", input, got, want)
		}
	}
}
