package concepts

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Tier classifies a concept as foundational / security relevant (Tier1)
// or structural / style relevant (Tier2).
type Tier int

const (
	Tier1 Tier = 1
	Tier2 Tier = 2
)

// TierSet is a set of tiers selected for a scan. The zero value selects
// every tier.
type TierSet uint8

// AllTiers selects Tier1 and Tier2.
const AllTiers = TierSet(1<<Tier1 | 1<<Tier2)

// NewTierSet builds a set from explicit tiers.
func NewTierSet(tiers ...Tier) TierSet {
	var ts TierSet
	for _, t := range tiers {
		ts |= 1 << t
	}
	return ts
}

// Has reports whether t is selected. An empty set selects everything.
func (ts TierSet) Has(t Tier) bool {
	if ts == 0 {
		return t == Tier1 || t == Tier2
	}
	return ts&(1<<t) != 0
}

// Tiers lists the selected tiers in ascending order.
func (ts TierSet) Tiers() []Tier {
	var out []Tier
	for _, t := range []Tier{Tier1, Tier2} {
		if ts.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

func (ts TierSet) String() string {
	parts := make([]string, 0, 2)
	for _, t := range ts.Tiers() {
		parts = append(parts, strconv.Itoa(int(t)))
	}
	return strings.Join(parts, ",")
}

// ParseTiers parses a comma separated tier list such as "1,2".
// An empty string selects every tier.
func ParseTiers(s string) (TierSet, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return AllTiers, nil
	}

	var tiers []Tier
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		n, err := strconv.Atoi(part)
		if err != nil || (Tier(n) != Tier1 && Tier(n) != Tier2) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTier, part)
		}
		tiers = append(tiers, Tier(n))
	}
	return NewTierSet(tiers...), nil
}

// TiersFromInts converts configuration values into a TierSet.
func TiersFromInts(values []int) (TierSet, error) {
	if len(values) == 0 {
		return AllTiers, nil
	}
	tiers := make([]Tier, 0, len(values))
	for _, v := range values {
		if Tier(v) != Tier1 && Tier(v) != Tier2 {
			return 0, fmt.Errorf("%w: %d", ErrInvalidTier, v)
		}
		tiers = append(tiers, Tier(v))
	}
	return NewTierSet(tiers...), nil
}

// Category is the kind of concept an occurrence belongs to.
type Category string

const (
	CategorySecret         Category = "Secret"
	CategoryEnvAccess      Category = "EnvAccess"
	CategoryDecorator      Category = "Decorator"
	CategoryInheritance    Category = "Inheritance"
	CategoryTypeAnnotation Category = "TypeAnnotation"
	CategoryHTTPCall       Category = "HttpCall"
	CategoryYAMLUsage      Category = "YamlUsage"
	CategoryJSONUsage      Category = "JsonUsage"
	CategoryCloudSDK       Category = "CloudSdk"
	CategoryCLIParsing     Category = "CliParsing"
	CategoryFileOp         Category = "FileOp"
	CategoryErrorHandling  Category = "ErrorHandling"
	CategoryAsyncDecl      Category = "AsyncDecl"
	CategorySpecialComment Category = "SpecialComment"
	CategoryLogging        Category = "Logging"
	CategorySubprocess     Category = "Subprocess"
	CategoryAPIClient      Category = "ApiClient"
)

// Categories lists every known category in report order.
var Categories = []Category{
	CategorySecret,
	CategoryEnvAccess,
	CategoryDecorator,
	CategoryInheritance,
	CategoryTypeAnnotation,
	CategoryHTTPCall,
	CategoryYAMLUsage,
	CategoryJSONUsage,
	CategoryCloudSDK,
	CategoryCLIParsing,
	CategoryFileOp,
	CategoryErrorHandling,
	CategoryAsyncDecl,
	CategorySpecialComment,
	CategoryLogging,
	CategorySubprocess,
	CategoryAPIClient,
}

// ParseCategory resolves a category name, case-insensitively.
func ParseCategory(name string) (Category, bool) {
	for _, c := range Categories {
		if strings.EqualFold(string(c), strings.TrimSpace(name)) {
			return c, true
		}
	}
	return "", false
}

// Occurrence is a single rule firing at a source position.
type Occurrence struct {
	RuleID     string   `json:"ruleId"`
	Line       int      `json:"line"`
	Column     int      `json:"column"`
	Tier       Tier     `json:"tier"`
	Category   Category `json:"category"`
	Label      string   `json:"label"`
	Snippet    string   `json:"snippet"`
	Identifier string   `json:"identifier,omitempty"`
	Names      []string `json:"names,omitempty"`
}

// MalformedConstruct records a construct the scanner recognized but could
// not parse. It never aborts a scan.
type MalformedConstruct struct {
	Line    int    `json:"line"`
	Snippet string `json:"snippet"`
}

// Summary holds per-category and per-tier counts of a scan.
type Summary struct {
	ByCategory map[Category]int `json:"byCategory"`
	ByTier     map[Tier]int     `json:"byTier"`
}

// Total returns the number of occurrences counted in the summary.
func (s Summary) Total() int {
	total := 0
	for _, n := range s.ByTier {
		total += n
	}
	return total
}

// SortedCategories returns the categories present in the summary, in
// report order.
func (s Summary) SortedCategories() []Category {
	out := make([]Category, 0, len(s.ByCategory))
	for c := range s.ByCategory {
		out = append(out, c)
	}
	order := make(map[Category]int, len(Categories))
	for i, c := range Categories {
		order[c] = i
	}
	sort.Slice(out, func(i, j int) bool { return order[out[i]] < order[out[j]] })
	return out
}

// ScanResult is the report of one scan.
type ScanResult struct {
	Path        string               `json:"path,omitempty"`
	Occurrences []Occurrence         `json:"occurrences"`
	Summary     Summary              `json:"summary"`
	Malformed   []MalformedConstruct `json:"malformed,omitempty"`
}

// Clone returns a deep copy of r.
func (r *ScanResult) Clone() *ScanResult {
	if r == nil {
		return nil
	}
	out := &ScanResult{
		Path:        r.Path,
		Occurrences: make([]Occurrence, len(r.Occurrences)),
		Summary: Summary{
			ByCategory: make(map[Category]int, len(r.Summary.ByCategory)),
			ByTier:     make(map[Tier]int, len(r.Summary.ByTier)),
		},
	}
	for i, o := range r.Occurrences {
		if o.Names != nil {
			o.Names = append([]string(nil), o.Names...)
		}
		out.Occurrences[i] = o
	}
	for c, n := range r.Summary.ByCategory {
		out.Summary.ByCategory[c] = n
	}
	for t, n := range r.Summary.ByTier {
		out.Summary.ByTier[t] = n
	}
	if r.Malformed != nil {
		out.Malformed = append([]MalformedConstruct(nil), r.Malformed...)
	}
	return out
}
