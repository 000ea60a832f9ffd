package concepts

import (
	"fmt"
)

// ConceptRule is one detectable concept at one tier. Rules are built once by
// a Registry and never mutated afterwards.
type ConceptRule struct {
	ID       string   `json:"id"`
	Tier     Tier     `json:"tier"`
	Category Category `json:"category"`
	Label    string   `json:"label"`
	Matcher  Matcher  `json:"-"`
}

// Registry is the ordered, read-only set of rules used by an Extractor.
// It is safe for concurrent use once built.
type Registry struct {
	rules []ConceptRule
	byID  map[string]int
	table *CallTable
}

// ruleDef describes a built-in rule before its matcher is bound to a call
// table.
type ruleDef struct {
	id       string
	tier     Tier
	category Category
	label    string
	matcher  func(t *CallTable) Matcher
}

func static(f MatchFunc) func(*CallTable) Matcher {
	return func(*CallTable) Matcher { return f }
}

func calls(category Category) func(*CallTable) Matcher {
	return func(t *CallTable) Matcher { return matchCall(t, category) }
}

func yamlFormat(t *CallTable) Matcher {
	return matchDataFormat(t, CategoryYAMLUsage, ".yaml", ".yml")
}

func jsonFormat(t *CallTable) Matcher {
	return matchDataFormat(t, CategoryJSONUsage, ".json")
}

func envAccess(t *CallTable) Matcher { return matchEnvAccess(t) }

func logging(t *CallTable) Matcher { return matchLogging(t) }

// builtinRules is the rule catalogue in registration order. Categories seen
// at both tiers get one rule per tier.
var builtinRules = []ruleDef{
	{"T1-SECRET", Tier1, CategorySecret, "Hardcoded secret", static(matchSecret)},
	{"T1-ENV", Tier1, CategoryEnvAccess, "Environment variable access", envAccess},
	{"T1-HTTP", Tier1, CategoryHTTPCall, "HTTP request", calls(CategoryHTTPCall)},
	{"T1-YAML", Tier1, CategoryYAMLUsage, "YAML parsing", yamlFormat},
	{"T1-JSON", Tier1, CategoryJSONUsage, "JSON parsing", jsonFormat},
	{"T1-FILE", Tier1, CategoryFileOp, "File manipulation", calls(CategoryFileOp)},
	{"T1-SUBPROCESS", Tier1, CategorySubprocess, "Subprocess execution", calls(CategorySubprocess)},
	{"T1-API", Tier1, CategoryAPIClient, "API client", calls(CategoryAPIClient)},
	{"T1-ASYNC", Tier1, CategoryAsyncDecl, "Async function", static(matchAsync)},
	{"T1-TAG", Tier1, CategorySpecialComment, "Special tag", static(matchSpecialComment)},

	{"T2-ENV", Tier2, CategoryEnvAccess, "Environment variable access", envAccess},
	{"T2-DECORATOR", Tier2, CategoryDecorator, "Decorator", static(matchDecorator)},
	{"T2-INHERITANCE", Tier2, CategoryInheritance, "Class inheritance", static(matchInheritance)},
	{"T2-TYPE", Tier2, CategoryTypeAnnotation, "Type annotation", static(matchTypeAnnotation)},
	{"T2-HTTP", Tier2, CategoryHTTPCall, "HTTP request", calls(CategoryHTTPCall)},
	{"T2-YAML", Tier2, CategoryYAMLUsage, "YAML usage", yamlFormat},
	{"T2-CLOUD", Tier2, CategoryCloudSDK, "Cloud SDK usage", calls(CategoryCloudSDK)},
	{"T2-CLI", Tier2, CategoryCLIParsing, "Command-line argument parsing", calls(CategoryCLIParsing)},
	{"T2-FILE", Tier2, CategoryFileOp, "File manipulation", calls(CategoryFileOp)},
	{"T2-ERROR", Tier2, CategoryErrorHandling, "Error handling", static(matchErrorHandling)},
	{"T2-TAG", Tier2, CategorySpecialComment, "Special tag", static(matchSpecialComment)},
	{"T2-LOGGING", Tier2, CategoryLogging, "Logging", logging},
}

// NewRegistry builds the built-in rules against table. A nil table uses the
// built-in call table.
func NewRegistry(table *CallTable) *Registry {
	if table == nil {
		table = DefaultCallTable()
	}

	r := &Registry{
		rules: make([]ConceptRule, 0, len(builtinRules)),
		byID:  make(map[string]int, len(builtinRules)),
		table: table,
	}
	for _, def := range builtinRules {
		r.byID[def.id] = len(r.rules)
		r.rules = append(r.rules, ConceptRule{
			ID:       def.id,
			Tier:     def.tier,
			Category: def.category,
			Label:    def.label,
			Matcher:  def.matcher(table),
		})
	}
	return r
}

// NewDefaultRegistry builds the built-in rules against the built-in table.
func NewDefaultRegistry() *Registry {
	return NewRegistry(nil)
}

// NewRegistryWithCalls extends the built-in table with extra patterns.
func NewRegistryWithCalls(extra []CallPattern) (*Registry, error) {
	table := DefaultCallTable()
	if err := table.AddAll(extra); err != nil {
		return nil, fmt.Errorf("failed to extend call table: %w", err)
	}
	return NewRegistry(table), nil
}

// Rules returns every rule in registration order.
func (r *Registry) Rules() []ConceptRule {
	out := make([]ConceptRule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Rule looks up a rule by ID.
func (r *Registry) Rule(id string) (ConceptRule, bool) {
	i, ok := r.byID[id]
	if !ok {
		return ConceptRule{}, false
	}
	return r.rules[i], true
}

// ForTiers returns the rules whose tier is selected, in registration order.
func (r *Registry) ForTiers(tiers TierSet) []ConceptRule {
	out := make([]ConceptRule, 0, len(r.rules))
	for _, rule := range r.rules {
		if tiers.Has(rule.Tier) {
			out = append(out, rule)
		}
	}
	return out
}

// Categories returns the distinct categories of the rules selected by tiers,
// in report order.
func (r *Registry) Categories(tiers TierSet) []Category {
	present := make(map[Category]bool)
	for _, rule := range r.ForTiers(tiers) {
		present[rule.Category] = true
	}
	out := make([]Category, 0, len(present))
	for _, c := range Categories {
		if present[c] {
			out = append(out, c)
		}
	}
	return out
}

// CallTable returns the call table the rules were bound to.
func (r *Registry) CallTable() *CallTable {
	return r.table
}
