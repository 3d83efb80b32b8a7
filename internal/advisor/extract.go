package advisor

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/account-advisor/internal/model"
)

// Payloads bundles the raw collaborator data handed to the extractor:
// the Data Scout account/deal/activity snapshots and the Memory Analyst
// pattern hits.
type Payloads struct {
	Account  *model.AccountSnapshot
	Deals    []model.DealRecord
	Activity []model.ActivityEntry
	Patterns []model.MemoryPattern
}

// Extractor normalizes collaborator payloads into typed, provenance-tagged
// DataReferences. Extraction is a pure transform with no side effects.
type Extractor struct {
	playbook *Playbook
}

// NewExtractor creates an Extractor driven by the given playbook's
// per-type field allowlists.
func NewExtractor(pb *Playbook) *Extractor {
	return &Extractor{playbook: pb}
}

// Extract walks the payloads and emits one DataReference per leaf value
// that is relevant to at least one candidate type. Payloads missing a
// record ID are reported as ExtractionErrors; extraction is best-effort
// and never all-or-nothing.
func (e *Extractor) Extract(p Payloads) ([]model.DataReference, []*ExtractionError) {
	var refs []model.DataReference
	var diags []*ExtractionError

	emit := func(source model.Source, recordID, path string, value any, observedAt time.Time) {
		if !e.relevantToAny(path) {
			return
		}
		refs = append(refs, model.DataReference{
			Source:     source,
			FieldPath:  path,
			Value:      value,
			ObservedAt: observedAt,
			RecordID:   recordID,
		})
	}

	if p.Account != nil {
		if p.Account.RecordID == "" {
			diags = append(diags, &ExtractionError{Payload: "account", Reason: "missing record_id"})
		} else {
			walkLeaves("account", p.Account.Fields, func(path string, value any) {
				emit(model.SourceCRMField, p.Account.RecordID, path, value, p.Account.SnapshotAt)
			})
			if p.Account.RiskLevel != "" {
				emit(model.SourceCRMField, p.Account.RecordID, "account.risk_level", p.Account.RiskLevel, p.Account.SnapshotAt)
			}
		}
	}

	for i := range p.Deals {
		d := &p.Deals[i]
		if d.RecordID == "" {
			diags = append(diags, &ExtractionError{Payload: fmt.Sprintf("deal[%d]", i), Reason: "missing record_id"})
			continue
		}
		emit(model.SourceDealRecord, d.RecordID, "deal.stage", d.Stage, d.UpdatedAt)
		emit(model.SourceDealRecord, d.RecordID, "deal.amount", d.Amount, d.UpdatedAt)
		walkLeaves("deal", d.Fields, func(path string, value any) {
			emit(model.SourceDealRecord, d.RecordID, path, value, d.UpdatedAt)
		})
	}

	for i := range p.Activity {
		a := &p.Activity[i]
		if a.RecordID == "" {
			diags = append(diags, &ExtractionError{Payload: fmt.Sprintf("activity[%d]", i), Reason: "missing record_id"})
			continue
		}
		if len(a.Fields) == 0 {
			emit(model.SourceActivityLog, a.RecordID, "activity."+a.Kind, a.Kind, a.OccurredAt)
			continue
		}
		walkLeaves("activity."+a.Kind, a.Fields, func(path string, value any) {
			emit(model.SourceActivityLog, a.RecordID, path, value, a.OccurredAt)
		})
	}

	for i := range p.Patterns {
		m := &p.Patterns[i]
		if m.RecordID == "" {
			diags = append(diags, &ExtractionError{Payload: fmt.Sprintf("pattern[%d]", i), Reason: "missing record_id"})
			continue
		}
		emit(model.SourceMemoryPattern, m.RecordID, "pattern."+m.Pattern, m.Occurrences, m.LastSeen)
	}

	if len(diags) > 0 {
		zap.L().Warn("extract: skipped payloads",
			zap.Int("skipped", len(diags)),
			zap.Int("references", len(refs)),
		)
	}

	return refs, diags
}

// ForType filters refs down to those relevant to the given candidate type,
// per the playbook allowlist.
func (e *Extractor) ForType(t model.RecommendationType, refs []model.DataReference) []model.DataReference {
	var out []model.DataReference
	for _, r := range refs {
		if e.playbook.Relevant(t, r.FieldPath) {
			out = append(out, r)
		}
	}
	return out
}

func (e *Extractor) relevantToAny(path string) bool {
	for t := range e.playbook.Types {
		if e.playbook.Relevant(t, path) {
			return true
		}
	}
	return false
}

// walkLeaves visits every leaf value in a possibly nested field map,
// producing dotted paths rooted at prefix. Keys are visited in sorted
// order so extraction output is deterministic.
func walkLeaves(prefix string, fields map[string]any, visit func(path string, value any)) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		path := prefix + "." + k
		switch v := fields[k].(type) {
		case map[string]any:
			walkLeaves(path, v, visit)
		case nil:
			// skip empty leaves
		default:
			visit(path, v)
		}
	}
}
