package session

import (
	"time"

	"clipcraft/internal/media"
)

// Record is one applied edit. Records are never mutated after creation.
type Record struct {
	Kind        media.Kind   `json:"kind"`
	CreatedAt   time.Time    `json:"created_at"`
	Params      media.Params `json:"params"`
	ArtifactRef string       `json:"artifact_ref"`
	JobID       string       `json:"job_id,omitempty"`
}

func (r Record) clone() Record {
	r.Params = r.Params.Clone()
	return r
}

// Label is the human-readable description of the edit.
func (r Record) Label() string {
	return r.Kind.DisplayName()
}

// Ledger is the ordered history of applied edits. Insertion order equals
// application order.
type Ledger struct {
	records []Record
}

func (l *Ledger) append(r Record) {
	l.records = append(l.records, r.clone())
}

func (l *Ledger) pop() (Record, bool) {
	if len(l.records) == 0 {
		return Record{}, false
	}
	last := l.records[len(l.records)-1]
	l.records = l.records[:len(l.records)-1]
	return last, true
}

func (l *Ledger) reset() {
	l.records = nil
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	return len(l.records)
}

// Records returns a deep copy of the history in application order.
func (l *Ledger) Records() []Record {
	out := make([]Record, len(l.records))
	for i, r := range l.records {
		out[i] = r.clone()
	}
	return out
}
