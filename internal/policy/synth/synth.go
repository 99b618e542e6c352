// Package synth maps a free-text description to a policy document with a
// fixed keyword table. It needs no external service and is used when no
// language-model oracle is configured.
//
// The table is intentionally coarse: placeholder ARNs, no least-privilege
// minimization. It exists so the rest of the pipeline works offline.
package synth

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	platformstrings "github.com/ThomasGates3/ai-powered-iam/pkg/platform/strings"
	"github.com/ThomasGates3/ai-powered-iam/pkg/policydoc"
)

//go:embed rules.yaml
var rulesYAML []byte

// Name identifies this generator in logs and metrics.
const Name = "heuristic"

// Rule appends one Allow statement when every keyword is present.
type Rule struct {
	Keywords []string `yaml:"keywords"`
	Actions  []string `yaml:"actions"`
	Resource string   `yaml:"resource"`
}

func (r Rule) matches(text string) bool {
	for _, kw := range r.Keywords {
		if !strings.Contains(text, kw) {
			return false
		}
	}
	return len(r.Keywords) > 0
}

func (r Rule) statement() policydoc.Statement {
	return policydoc.Statement{
		Effect:   policydoc.EffectAllow,
		Action:   append(policydoc.StringList(nil), r.Actions...),
		Resource: policydoc.StringList{r.Resource},
	}
}

// Table is the ordered rule set plus the statement used when nothing fires.
type Table struct {
	Rules   []Rule `yaml:"rules"`
	Default Rule   `yaml:"default"`
}

// ParseTable decodes a YAML rule table.
func ParseTable(data []byte) (Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Table{}, fmt.Errorf("parse rule table: %w", err)
	}
	t.Default.Actions = platformstrings.DedupeAndTrim(t.Default.Actions)
	if len(t.Default.Actions) == 0 || t.Default.Resource == "" {
		return Table{}, fmt.Errorf("parse rule table: default statement requires actions and resource")
	}
	for i := range t.Rules {
		r := &t.Rules[i]
		r.Keywords = platformstrings.DedupeAndTrimLower(r.Keywords)
		r.Actions = platformstrings.DedupeAndTrim(r.Actions)
		r.Resource = strings.TrimSpace(r.Resource)
		if len(r.Keywords) == 0 || len(r.Actions) == 0 || r.Resource == "" {
			return Table{}, fmt.Errorf("parse rule table: rule %d requires keywords, actions and resource", i)
		}
	}
	return t, nil
}

var defaultTable = mustParse(rulesYAML)

func mustParse(data []byte) Table {
	t, err := ParseTable(data)
	if err != nil {
		panic(err)
	}
	return t
}

// Synthesizer generates documents from a rule table.
type Synthesizer struct {
	table Table
}

// New returns a Synthesizer over the built-in table.
func New() *Synthesizer {
	return &Synthesizer{table: defaultTable}
}

// NewWithTable returns a Synthesizer over a caller-supplied table.
func NewWithTable(t Table) *Synthesizer {
	return &Synthesizer{table: t}
}

// Synthesize never fails. Callers reject empty descriptions before calling it.
func (s *Synthesizer) Synthesize(description string) *policydoc.Document {
	text := strings.ToLower(description)

	var statements []policydoc.Statement
	for _, r := range s.table.Rules {
		if r.matches(text) {
			statements = append(statements, r.statement())
		}
	}
	if len(statements) == 0 {
		statements = append(statements, s.table.Default.statement())
	}
	return policydoc.New(statements...)
}

// Generate adapts Synthesize to the service's generator contract.
func (s *Synthesizer) Generate(ctx context.Context, description string) (*policydoc.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Synthesize(description), nil
}

// Name implements the generator contract.
func (s *Synthesizer) Name() string {
	return Name
}

// Synthesize runs the built-in table.
func Synthesize(description string) *policydoc.Document {
	return New().Synthesize(description)
}
