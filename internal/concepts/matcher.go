package concepts

import (
	"strings"

	"github.com/mvp-joe/concept-lens/internal/scanner"
)

// Hit is what a matcher extracts from an event it accepts.
type Hit struct {
	Identifier string
	Names      []string
}

// Matcher decides whether an event is an occurrence of a concept.
type Matcher interface {
	Match(ev scanner.Event) (Hit, bool)
}

// MatchFunc adapts a function to the Matcher interface.
type MatchFunc func(ev scanner.Event) (Hit, bool)

// Match calls f(ev).
func (f MatchFunc) Match(ev scanner.Event) (Hit, bool) {
	return f(ev)
}

var secretMarkers = []string{"token", "secret", "key", "password", "apikey"}

var logMethods = map[string]bool{
	"debug":     true,
	"info":      true,
	"warning":   true,
	"warn":      true,
	"error":     true,
	"critical":  true,
	"exception": true,
}

var commentMarkers = []string{"@task", "TODO:", "FIXME:"}

// matchSecret fires on a string literal assigned to a name that looks like
// a credential. The literal content is never inspected.
func matchSecret(ev scanner.Event) (Hit, bool) {
	if ev.Kind != scanner.EventAssignment || !ev.Literal {
		return Hit{}, false
	}
	last := strings.ToLower(lastSegment(ev.Name))
	for _, marker := range secretMarkers {
		if strings.Contains(last, marker) {
			return Hit{Identifier: ev.Name}, true
		}
	}
	return Hit{}, false
}

func matchEnvAccess(table *CallTable) MatchFunc {
	return func(ev scanner.Event) (Hit, bool) {
		switch ev.Kind {
		case scanner.EventCall:
			if !table.Has(chain(ev), CategoryEnvAccess) {
				return Hit{}, false
			}
		case scanner.EventSubscript:
			if !isEnviron(chain(ev)) {
				return Hit{}, false
			}
		default:
			return Hit{}, false
		}
		if ev.Value != "" {
			return Hit{Identifier: ev.Value}, true
		}
		return Hit{Identifier: chain(ev)}, true
	}
}

func isEnviron(chain string) bool {
	return chain == "environ" || chain == "os.environ" || strings.HasSuffix(chain, ".environ")
}

func matchDecorator(ev scanner.Event) (Hit, bool) {
	if ev.Kind != scanner.EventDecorator {
		return Hit{}, false
	}
	return Hit{Identifier: ev.Name}, true
}

func matchInheritance(ev scanner.Event) (Hit, bool) {
	if ev.Kind != scanner.EventClassDef {
		return Hit{}, false
	}
	var bases []string
	for _, b := range ev.Names {
		if b != "object" {
			bases = append(bases, b)
		}
	}
	if len(bases) == 0 {
		return Hit{}, false
	}
	return Hit{Identifier: strings.Join(bases, ", "), Names: bases}, true
}

func matchTypeAnnotation(ev scanner.Event) (Hit, bool) {
	if ev.Kind != scanner.EventAnnotation {
		return Hit{}, false
	}
	hit := Hit{Identifier: ev.Name}
	if ev.Value != "" {
		hit.Names = []string{ev.Value}
	}
	return hit, true
}

func matchAsync(ev scanner.Event) (Hit, bool) {
	if ev.Kind != scanner.EventFuncDef || !ev.Async {
		return Hit{}, false
	}
	return Hit{Identifier: ev.Name}, true
}

func matchErrorHandling(ev scanner.Event) (Hit, bool) {
	switch ev.Kind {
	case scanner.EventTry:
		return Hit{Identifier: "try"}, true
	case scanner.EventExcept:
		hit := Hit{Identifier: ev.Name, Names: ev.Names}
		if hit.Identifier == "" {
			hit.Identifier = strings.Join(ev.Names, ", ")
		}
		return hit, true
	case scanner.EventFinally:
		return Hit{Identifier: "finally"}, true
	}
	return Hit{}, false
}

func matchSpecialComment(ev scanner.Event) (Hit, bool) {
	if ev.Kind != scanner.EventComment {
		return Hit{}, false
	}
	for _, marker := range commentMarkers {
		rest, ok := strings.CutPrefix(ev.Text, marker)
		if !ok || !markerBoundary(marker, rest) {
			continue
		}
		return Hit{
			Identifier: strings.TrimSpace(rest),
			Names:      []string{marker},
		}, true
	}
	return Hit{}, false
}

// markerBoundary reports whether a comment marker ends where rest begins:
// at the end of the comment, before whitespace, or after the marker's colon.
func markerBoundary(marker, rest string) bool {
	if rest == "" || strings.HasSuffix(marker, ":") {
		return true
	}
	return rest[0] == ' ' || rest[0] == '\t'
}

// matchCall fires on calls whose resolved chain is in the table under
// category.
func matchCall(table *CallTable, category Category) MatchFunc {
	return func(ev scanner.Event) (Hit, bool) {
		if ev.Kind != scanner.EventCall {
			return Hit{}, false
		}
		c := chain(ev)
		if !table.Has(c, category) {
			return Hit{}, false
		}
		return Hit{Identifier: c}, true
	}
}

// matchDataFormat fires on table hits and on string literals naming a file
// with one of exts.
func matchDataFormat(table *CallTable, category Category, exts ...string) MatchFunc {
	calls := matchCall(table, category)
	return func(ev scanner.Event) (Hit, bool) {
		if ev.Kind == scanner.EventString {
			value := strings.ToLower(strings.TrimSpace(ev.Value))
			for _, ext := range exts {
				if strings.HasSuffix(value, ext) {
					return Hit{Identifier: ev.Value}, true
				}
			}
			return Hit{}, false
		}
		return calls(ev)
	}
}

func matchLogging(table *CallTable) MatchFunc {
	calls := matchCall(table, CategoryLogging)
	return func(ev scanner.Event) (Hit, bool) {
		if hit, ok := calls(ev); ok {
			return hit, true
		}
		if ev.Kind != scanner.EventCall {
			return Hit{}, false
		}
		receiver, method := splitLast(ev.Name)
		if receiver == "" || !logMethods[method] {
			return Hit{}, false
		}
		recv := strings.ToLower(strings.TrimSuffix(lastSegment(receiver), "()"))
		if strings.Contains(recv, "logger") || recv == "log" || recv == "logging" {
			return Hit{Identifier: chain(ev)}, true
		}
		return Hit{}, false
	}
}

// chain returns the qualified chain of an event, falling back to the raw one.
func chain(ev scanner.Event) string {
	if ev.Resolved != "" {
		return ev.Resolved
	}
	return ev.Name
}

func lastSegment(name string) string {
	_, last := splitLast(name)
	return last
}

func splitLast(name string) (string, string) {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}
