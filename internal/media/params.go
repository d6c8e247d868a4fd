package media

import (
	"strconv"
	"strings"
)

const (
	// DefaultFontSize applies when the caption size is absent or not numeric.
	DefaultFontSize = 28
	// DefaultMusicVolume applies when no mixing volume is given.
	DefaultMusicVolume = 0.5
	// DefaultDedupeModel is the fixed processing profile for deduplication.
	DefaultDedupeModel = "base"
)

// DefaultKeywords is the fallback list for supplemental-content insertion.
func DefaultKeywords() []string {
	return []string{"nature", "city", "technology"}
}

// Params is the operation-specific parameter snapshot recorded with every
// submitted job and every applied edit. Only the fields relevant to the
// operation kind are set.
type Params struct {
	Threshold     *float64 `json:"dedupe_threshold,omitempty"`
	Model         string   `json:"model,omitempty"`
	FontSize      int      `json:"font_size,omitempty"`
	Volume        *float64 `json:"music_volume,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
	Instruction   string   `json:"user_input,omitempty"`
	MusicFileID   string   `json:"music_file_id,omitempty"`
	MusicFileName string   `json:"music_filename,omitempty"`
}

// Clone returns a deep copy so snapshots never alias caller memory.
func (p Params) Clone() Params {
	out := p
	if p.Threshold != nil {
		v := *p.Threshold
		out.Threshold = &v
	}
	if p.Volume != nil {
		v := *p.Volume
		out.Volume = &v
	}
	if p.Keywords != nil {
		out.Keywords = append([]string(nil), p.Keywords...)
	}
	return out
}

// Summary renders the parameters as a short key=value list for display.
func (p Params) Summary() string {
	parts := make([]string, 0, 6)
	if p.Threshold != nil {
		parts = append(parts, "threshold="+strconv.FormatFloat(*p.Threshold, 'f', -1, 64))
	}
	if p.FontSize > 0 {
		parts = append(parts, "font_size="+strconv.Itoa(p.FontSize))
	}
	if p.Volume != nil {
		parts = append(parts, "volume="+strconv.FormatFloat(*p.Volume, 'f', -1, 64))
	}
	if len(p.Keywords) > 0 {
		parts = append(parts, "keywords="+strings.Join(p.Keywords, ","))
	}
	if p.MusicFileName != "" {
		parts = append(parts, "music="+p.MusicFileName)
	}
	if p.Instruction != "" {
		parts = append(parts, "instruction="+strconv.Quote(p.Instruction))
	}
	return strings.Join(parts, " ")
}

// Float64 returns a pointer to v for optional parameters.
func Float64(v float64) *float64 {
	return &v
}

// ParseFontSize parses a caption font size, falling back to DefaultFontSize
// when raw is empty, not numeric, or not positive.
func ParseFontSize(raw string) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return DefaultFontSize
	}
	return value
}

// ParseKeywords splits a comma-delimited list and trims each entry. Empty
// input, or input with no non-blank entries, yields DefaultKeywords.
func ParseKeywords(raw string) []string {
	fields := strings.Split(raw, ",")
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return DefaultKeywords()
	}
	return out
}
