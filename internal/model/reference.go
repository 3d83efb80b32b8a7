package model

import "time"

// Source identifies the collaborator system a DataReference originated from.
type Source string

const (
	SourceCRMField      Source = "crm_field"
	SourceActivityLog   Source = "activity_log"
	SourceMemoryPattern Source = "memory_pattern"
	SourceDealRecord    Source = "deal_record"
)

// DataReference is a single provenance-tagged piece of evidence underlying a
// recommendation. References are created once during extraction and never
// mutated afterwards.
type DataReference struct {
	Source     Source    `json:"source"`
	FieldPath  string    `json:"field_path"`
	Value      any       `json:"value"`
	ObservedAt time.Time `json:"observed_at"`
	RecordID   string    `json:"record_id"`
}

// AgeDays returns the reference's age in fractional days relative to now.
func (r DataReference) AgeDays(now time.Time) float64 {
	return now.Sub(r.ObservedAt).Hours() / 24
}

// DedupeByRecordID returns the references with at most one entry per record
// ID, keeping the first occurrence. Order is preserved.
func DedupeByRecordID(refs []DataReference) []DataReference {
	seen := make(map[string]bool, len(refs))
	var out []DataReference
	for _, r := range refs {
		if seen[r.RecordID] {
			continue
		}
		seen[r.RecordID] = true
		out = append(out, r)
	}
	return out
}

// UniqueSources returns the number of distinct Source values across refs.
func UniqueSources(refs []DataReference) int {
	seen := make(map[Source]bool, 4)
	for _, r := range refs {
		seen[r.Source] = true
	}
	return len(seen)
}
