package advisor

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/account-advisor/internal/model"
)

// TypePlaybook configures extraction and building for one candidate type.
type TypePlaybook struct {
	// Title is the recommendation headline for this type.
	Title string `yaml:"title"`

	// FieldAllowlist holds field-path prefixes considered relevant evidence
	// for this type. A reference is relevant when its FieldPath starts with
	// any listed prefix.
	FieldAllowlist []string `yaml:"field_allowlist"`

	// ExpectedSources are the distinct evidence sources a well-supported
	// candidate of this type draws on. Drives the evidence-quality score.
	ExpectedSources []model.Source `yaml:"expected_sources"`

	// NextSteps is the ordered checklist attached to built recommendations.
	NextSteps []string `yaml:"next_steps"`
}

// Playbook maps candidate types to their extraction/build configuration.
type Playbook struct {
	Types map[model.RecommendationType]TypePlaybook `yaml:"types"`
}

// Relevant reports whether a field path counts as evidence for the type.
func (p *Playbook) Relevant(t model.RecommendationType, fieldPath string) bool {
	tp, ok := p.Types[t]
	if !ok {
		return false
	}
	for _, prefix := range tp.FieldAllowlist {
		if strings.HasPrefix(fieldPath, prefix) {
			return true
		}
	}
	return false
}

// DefaultPlaybook returns the built-in per-type configuration.
func DefaultPlaybook() *Playbook {
	return &Playbook{
		Types: map[model.RecommendationType]TypePlaybook{
			model.TypeEngagement: {
				Title: "Re-engage account contacts",
				FieldAllowlist: []string{
					"account.last_contact",
					"account.owner",
					"activity.call",
					"activity.email",
					"activity.meeting",
					"pattern.engagement",
				},
				ExpectedSources: []model.Source{
					model.SourceCRMField, model.SourceActivityLog, model.SourceMemoryPattern,
				},
				NextSteps: []string{
					"Review recent activity history with the account owner",
					"Schedule a touchpoint call within the next week",
					"Log the outreach outcome back to the CRM",
				},
			},
			model.TypeExpansion: {
				Title: "Pursue expansion opportunity",
				FieldAllowlist: []string{
					"account.annual_revenue",
					"account.product_usage",
					"deal.",
					"pattern.expansion",
				},
				ExpectedSources: []model.Source{
					model.SourceCRMField, model.SourceDealRecord, model.SourceMemoryPattern,
				},
				NextSteps: []string{
					"Validate usage growth against entitlement limits",
					"Prepare an expansion proposal with pricing options",
					"Brief the account executive before outreach",
				},
			},
			model.TypeRetention: {
				Title: "Run retention play before renewal",
				FieldAllowlist: []string{
					"account.renewal",
					"account.health_score",
					"activity.support",
					"deal.renewal",
					"pattern.churn",
				},
				ExpectedSources: []model.Source{
					model.SourceCRMField, model.SourceActivityLog,
					model.SourceDealRecord, model.SourceMemoryPattern,
				},
				NextSteps: []string{
					"Review health score trend and open support tickets",
					"Schedule an executive business review ahead of renewal",
					"Confirm renewal terms with the customer success lead",
				},
			},
			model.TypeRiskMitigation: {
				Title: "Mitigate account risk signals",
				FieldAllowlist: []string{
					"account.risk_level",
					"account.health_score",
					"activity.support",
					"activity.escalation",
					"deal.stalled",
					"pattern.risk",
				},
				ExpectedSources: []model.Source{
					model.SourceCRMField, model.SourceActivityLog,
					model.SourceDealRecord, model.SourceMemoryPattern,
				},
				NextSteps: []string{
					"Triage the underlying risk signals with support",
					"Draft a mitigation plan with owners and deadlines",
					"Set a follow-up checkpoint within two weeks",
				},
			},
			model.TypeEscalation: {
				Title: "Escalate account to leadership",
				FieldAllowlist: []string{
					"account.risk_level",
					"activity.escalation",
					"pattern.risk",
					"pattern.critical",
				},
				ExpectedSources: []model.Source{
					model.SourceCRMField, model.SourceActivityLog, model.SourceMemoryPattern,
				},
				NextSteps: []string{
					"Summarize the situation for the leadership channel",
					"Identify the executive sponsor and hand off context",
					"Track resolution and record the outcome",
				},
			},
		},
	}
}

// LoadPlaybook reads a playbook from a YAML file, filling gaps per type
// from the defaults. Types absent from the file keep their default entry.
func LoadPlaybook(path string) (*Playbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "advisor: read playbook %s", path)
	}

	var loaded Playbook
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, eris.Wrap(err, "advisor: parse playbook")
	}

	merged := DefaultPlaybook()
	for t, tp := range loaded.Types {
		base := merged.Types[t]
		if tp.Title != "" {
			base.Title = tp.Title
		}
		if len(tp.FieldAllowlist) > 0 {
			base.FieldAllowlist = tp.FieldAllowlist
		}
		if len(tp.ExpectedSources) > 0 {
			base.ExpectedSources = tp.ExpectedSources
		}
		if len(tp.NextSteps) > 0 {
			base.NextSteps = tp.NextSteps
		}
		merged.Types[t] = base
	}
	return merged, nil
}
