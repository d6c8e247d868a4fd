package media

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind identifies one of the closed set of edit operations.
type Kind string

const (
	KindDedupe   Kind = "dedupe"
	KindCaptions Kind = "captions"
	KindMusic    Kind = "music"
	KindBroll    Kind = "broll"
	KindAIEdit   Kind = "ai-edit"
)

type kindInfo struct {
	route       string
	description string
}

var kinds = map[Kind]kindInfo{
	KindDedupe:   {route: "remove-duplicates", description: "remove duplicates"},
	KindCaptions: {route: "add-captions", description: "add captions"},
	KindMusic:    {route: "music", description: "add music"},
	KindBroll:    {route: "broll", description: "add broll"},
	KindAIEdit:   {route: "ai-edit", description: "AI edit"},
}

var allKinds = []Kind{KindDedupe, KindCaptions, KindMusic, KindBroll, KindAIEdit}

var titleCaser = cases.Title(language.Und, cases.NoLower)

// AllKinds returns the operation kinds in presentation order.
func AllKinds() []Kind {
	return append([]Kind(nil), allKinds...)
}

// ParseKind maps a kind name or its service route onto a Kind.
func ParseKind(raw string) (Kind, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	for kind, info := range kinds {
		if value == string(kind) || value == info.route {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown operation kind %q", raw)
}

// Valid reports whether k is a known operation.
func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// Route returns the path segment the processing service exposes for k.
func (k Kind) Route() string {
	return kinds[k].route
}

// NeedsAuxiliary reports whether k cannot be submitted without a bound
// auxiliary asset.
func (k Kind) NeedsAuxiliary() bool {
	return k == KindMusic
}

// UsesAuxiliary reports whether k may carry an auxiliary asset.
func (k Kind) UsesAuxiliary() bool {
	return k == KindMusic || k == KindAIEdit
}

// DisplayName is the title-cased operation name, e.g. "Add Captions".
func (k Kind) DisplayName() string {
	info, ok := kinds[k]
	if !ok {
		return titleCaser.String(strings.ReplaceAll(string(k), "-", " "))
	}
	return titleCaser.String(info.description)
}

// Label is the human-readable completion label shown after success.
func (k Kind) Label() string {
	return k.DisplayName() + " completed"
}
