package scanner

import (
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// Scanner turns Python source into a stream of structural events.
//
// The underlying tree-sitter grammar is error tolerant: unparseable spans
// become ERROR or missing nodes instead of aborting the parse. Those are
// reported as EventMalformed and the walk continues into whatever the parser
// could still recognize.
//
// A Scanner is safe for concurrent use; each Scan call owns its own parser.
type Scanner struct {
	language *sitter.Language
}

// NewPythonScanner creates a scanner for Python source.
func NewPythonScanner() *Scanner {
	return &Scanner{
		language: sitter.NewLanguage(python.Language()),
	}
}

// Scan parses source and returns its events ordered by (line, column).
// It never fails: empty input yields no events.
func (s *Scanner) Scan(source []byte) []Event {
	if len(source) == 0 {
		return nil
	}

	lines := lineCount(source)

	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(s.language); err != nil {
		return []Event{{Kind: EventMalformed, Line: 1, Text: "python grammar unavailable"}}
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return []Event{{Kind: EventMalformed, Line: 1, Text: "unparseable source"}}
	}
	defer tree.Close()

	w := &walker{
		source:    source,
		lines:     lines,
		symbols:   newSymbolTable(),
		malformed: make(map[int]bool),
	}
	w.visit(tree.RootNode())

	sort.SliceStable(w.events, func(i, j int) bool {
		if w.events[i].Line != w.events[j].Line {
			return w.events[i].Line < w.events[j].Line
		}
		return w.events[i].Column < w.events[j].Column
	})
	return w.events
}

// walker holds the per-scan state of a single tree walk.
type walker struct {
	source    []byte
	lines     int
	symbols   *symbolTable
	malformed map[int]bool
	events    []Event
}

func (w *walker) visit(n *sitter.Node) {
	if n == nil {
		return
	}

	if n.IsError() || n.IsMissing() {
		w.recordMalformed(n)
	}

	switch n.Kind() {
	case "comment":
		w.comment(n)
	case "decorated_definition":
		w.decorators(n)
	case "class_definition":
		w.classDef(n)
	case "function_definition":
		w.funcDef(n)
	case "import_statement":
		w.importStatement(n)
	case "import_from_statement":
		w.importFrom(n)
	case "assignment":
		w.assignment(n)
	case "typed_parameter", "typed_default_parameter":
		w.typedParameter(n)
	case "call":
		w.call(n)
	case "subscript":
		w.subscript(n)
	case "string":
		w.stringLiteral(n)
	case "try_statement":
		w.emit(n, Event{Kind: EventTry, Text: "try:"})
	case "except_clause", "except_group_clause":
		w.exceptClause(n)
	case "finally_clause":
		w.emit(n, Event{Kind: EventFinally, Text: w.header(n)})
	}

	for i := uint(0); i < n.ChildCount(); i++ {
		w.visit(n.Child(i))
	}

	// Bind after the right-hand side has been walked so `x = x.f()` resolves
	// against the previous binding.
	if n.Kind() == "assignment" {
		w.bindAssignment(n)
	}
}

func (w *walker) emit(n *sitter.Node, ev Event) {
	pos := n.StartPosition()
	ev.Line = w.clampLine(int(pos.Row) + 1)
	ev.Column = int(pos.Column)
	w.events = append(w.events, ev)
}

func (w *walker) clampLine(line int) int {
	if line > w.lines {
		line = w.lines
	}
	if line < 1 {
		line = 1
	}
	return line
}

func (w *walker) recordMalformed(n *sitter.Node) {
	line := w.clampLine(int(n.StartPosition().Row) + 1)
	if w.malformed[line] {
		return
	}
	w.malformed[line] = true

	text := snippet(n, w.source)
	if n.IsMissing() {
		text = "missing " + n.Kind()
	}
	w.emit(n, Event{Kind: EventMalformed, Text: text})
}

// header returns the clause header up to and including its ':' token,
// leaving out trailing comments.
func (w *walker) header(n *sitter.Node) string {
	if colon := findChildByType(n, ":"); colon != nil && colon.EndByte() <= uint(len(w.source)) {
		return firstLine(string(w.source[n.StartByte():colon.EndByte()]))
	}
	return snippet(n, w.source)
}

func (w *walker) comment(n *sitter.Node) {
	text := strings.TrimSpace(strings.TrimPrefix(nodeText(n, w.source), "#"))
	w.emit(n, Event{Kind: EventComment, Text: text})
}

func (w *walker) decorators(n *sitter.Node) {
	var defName string
	if def := n.ChildByFieldName("definition"); def != nil {
		defName = nodeText(def.ChildByFieldName("name"), w.source)
	}

	for i := uint(0); i < n.ChildCount(); i++ {
		dec := n.Child(i)
		if dec == nil || dec.Kind() != "decorator" {
			continue
		}
		expr := dec.NamedChild(0)
		if expr == nil {
			continue
		}
		target := expr
		if expr.Kind() == "call" {
			target = expr.ChildByFieldName("function")
		}
		name := chainOf(target, w.source)
		if name == "" {
			name = firstLine(nodeText(target, w.source))
		}
		w.emit(dec, Event{
			Kind:     EventDecorator,
			Text:     snippet(dec, w.source),
			Name:     name,
			Resolved: w.symbols.resolve(name),
			Value:    defName,
		})
	}
}

func (w *walker) classDef(n *sitter.Node) {
	var bases []string
	if supers := n.ChildByFieldName("superclasses"); supers != nil {
		for _, arg := range namedChildren(supers) {
			switch arg.Kind() {
			case "keyword_argument", "list_splat", "dictionary_splat", "comment":
				continue
			}
			if base := strings.TrimSpace(nodeText(arg, w.source)); base != "" {
				bases = append(bases, base)
			}
		}
	}

	w.emit(n, Event{
		Kind:  EventClassDef,
		Text:  w.header(n),
		Name:  nodeText(n.ChildByFieldName("name"), w.source),
		Names: bases,
	})
}

func (w *walker) funcDef(n *sitter.Node) {
	name := nodeText(n.ChildByFieldName("name"), w.source)

	w.emit(n, Event{
		Kind:  EventFuncDef,
		Text:  w.header(n),
		Name:  name,
		Async: findChildByType(n, "async") != nil,
	})

	if rt := n.ChildByFieldName("return_type"); rt != nil {
		typ := strings.TrimSpace(nodeText(rt, w.source))
		w.emit(rt, Event{
			Kind:   EventAnnotation,
			Text:   "-> " + firstLine(typ),
			Name:   name,
			Value:  typ,
			Target: TargetReturn,
		})
	}
}

func (w *walker) typedParameter(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		nameNode = n.NamedChild(0)
	}
	name := strings.TrimLeft(nodeText(nameNode, w.source), "*")

	w.emit(n, Event{
		Kind:   EventAnnotation,
		Text:   snippet(n, w.source),
		Name:   name,
		Value:  strings.TrimSpace(nodeText(n.ChildByFieldName("type"), w.source)),
		Target: TargetParameter,
	})
}

func (w *walker) importStatement(n *sitter.Node) {
	var names []string
	for _, child := range namedChildren(n) {
		switch child.Kind() {
		case "dotted_name":
			names = append(names, nodeText(child, w.source))
		case "aliased_import":
			module := nodeText(child.ChildByFieldName("name"), w.source)
			alias := nodeText(child.ChildByFieldName("alias"), w.source)
			w.symbols.bind(alias, module)
			names = append(names, alias)
		}
	}
	w.emit(n, Event{Kind: EventImport, Text: snippet(n, w.source), Names: names})
}

func (w *walker) importFrom(n *sitter.Node) {
	moduleNode := n.ChildByFieldName("module_name")
	module := strings.TrimLeft(nodeText(moduleNode, w.source), ".")

	qualify := func(name string) string {
		if module == "" {
			return ""
		}
		return module + "." + name
	}

	var names []string
	for _, child := range namedChildren(n) {
		if sameNode(child, moduleNode) {
			continue
		}
		switch child.Kind() {
		case "dotted_name":
			local := nodeText(child, w.source)
			w.symbols.bind(local, qualify(local))
			names = append(names, local)
		case "aliased_import":
			orig := nodeText(child.ChildByFieldName("name"), w.source)
			alias := nodeText(child.ChildByFieldName("alias"), w.source)
			w.symbols.bind(alias, qualify(orig))
			names = append(names, alias)
		case "wildcard_import":
			names = append(names, "*")
		}
	}
	w.emit(n, Event{Kind: EventImport, Text: snippet(n, w.source), Names: names, Resolved: module})
}

func (w *walker) assignment(n *sitter.Node) {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")

	name := chainOf(left, w.source)
	if name == "" {
		name = strings.TrimSpace(nodeText(left, w.source))
	}

	literal := isPlainString(finalValue(right))
	w.emit(n, Event{
		Kind:    EventAssignment,
		Text:    snippet(n, w.source),
		Name:    name,
		Literal: literal,
	})

	if typ := n.ChildByFieldName("type"); typ != nil {
		w.emit(n, Event{
			Kind:   EventAnnotation,
			Text:   snippet(n, w.source),
			Name:   name,
			Value:  strings.TrimSpace(nodeText(typ, w.source)),
			Target: TargetVariable,
		})
	}
}

func (w *walker) bindAssignment(n *sitter.Node) {
	target := chainOf(n.ChildByFieldName("left"), w.source)
	if target == "" {
		return
	}

	right := finalValue(n.ChildByFieldName("right"))
	if right == nil {
		return
	}

	switch right.Kind() {
	case "call":
		callee := chainOf(right.ChildByFieldName("function"), w.source)
		if callee == "" {
			w.symbols.unbind(target)
			return
		}
		w.symbols.bind(target, w.symbols.resolve(callee)+"()")
	case "identifier", "attribute":
		raw := chainOf(right, w.source)
		if resolved := w.symbols.resolve(raw); resolved != raw {
			w.symbols.bind(target, resolved)
			return
		}
		w.symbols.unbind(target)
	default:
		w.symbols.unbind(target)
	}
}

// finalValue follows the right sides of a chained assignment (a = b = v)
// down to v.
func finalValue(right *sitter.Node) *sitter.Node {
	for right != nil && right.Kind() == "assignment" {
		right = right.ChildByFieldName("right")
	}
	return right
}

// isPlainString reports whether n is a string literal without f-string
// interpolations.
func isPlainString(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Kind() {
	case "string":
		return findChildByType(n, "interpolation") == nil
	case "concatenated_string":
		for _, part := range namedChildren(n) {
			if !isPlainString(part) {
				return false
			}
		}
		return true
	}
	return false
}

func (w *walker) call(n *sitter.Node) {
	raw := chainOf(n.ChildByFieldName("function"), w.source)
	if raw == "" {
		return
	}

	var firstArg string
	if args := n.ChildByFieldName("arguments"); args != nil && args.Kind() == "argument_list" {
		if first := args.NamedChild(0); first != nil && first.Kind() == "string" {
			firstArg = stringValue(first, w.source)
		}
	}

	w.emit(n, Event{
		Kind:     EventCall,
		Text:     snippet(n, w.source),
		Name:     raw,
		Resolved: w.symbols.resolve(raw),
		Value:    firstArg,
	})
}

func (w *walker) subscript(n *sitter.Node) {
	if isAssignmentTarget(n) {
		return
	}

	raw := chainOf(n.ChildByFieldName("value"), w.source)
	if raw == "" {
		return
	}

	var key string
	if sub := n.ChildByFieldName("subscript"); sub != nil && sub.Kind() == "string" {
		key = stringValue(sub, w.source)
	}

	w.emit(n, Event{
		Kind:     EventSubscript,
		Text:     snippet(n, w.source),
		Name:     raw,
		Resolved: w.symbols.resolve(raw),
		Value:    key,
	})
}

func (w *walker) stringLiteral(n *sitter.Node) {
	w.emit(n, Event{
		Kind:  EventString,
		Text:  snippet(n, w.source),
		Value: stringValue(n, w.source),
	})
}

func (w *walker) exceptClause(n *sitter.Node) {
	var (
		types  []string
		alias  string
		seenAs bool
	)

	addTypes := func(t *sitter.Node) {
		switch t.Kind() {
		case "tuple", "parenthesized_expression", "expression_list":
			for _, el := range namedChildren(t) {
				types = append(types, strings.TrimSpace(nodeText(el, w.source)))
			}
		default:
			types = append(types, strings.TrimSpace(nodeText(t, w.source)))
		}
	}

	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		if !child.IsNamed() {
			if k := child.Kind(); k == "as" || k == "," {
				seenAs = true
			}
			if child.Kind() == ":" {
				break
			}
			continue
		}

		switch child.Kind() {
		case "block", "comment":
			continue
		case "as_pattern":
			parts := namedChildren(child)
			if len(parts) > 0 {
				addTypes(parts[0])
			}
			if len(parts) > 1 {
				alias = strings.TrimSpace(nodeText(parts[len(parts)-1], w.source))
			}
		default:
			if seenAs {
				alias = strings.TrimSpace(nodeText(child, w.source))
			} else {
				addTypes(child)
			}
		}
	}

	w.emit(n, Event{
		Kind:  EventExcept,
		Text:  w.header(n),
		Name:  alias,
		Names: types,
	})
}

// isAssignmentTarget reports whether n is the left side of an assignment.
func isAssignmentTarget(n *sitter.Node) bool {
	parent := n.Parent()
	if parent == nil {
		return false
	}
	switch parent.Kind() {
	case "assignment", "augmented_assignment":
		return sameNode(parent.ChildByFieldName("left"), n)
	}
	return false
}

// chainOf renders a callee expression as a dotted chain. Calls and
// subscripts inside the chain are kept as "()" and "[]" markers. Anything
// that is not a name chain (literals, operators, lambdas) yields "".
func chainOf(n *sitter.Node, source []byte) string {
	if n == nil {
		return ""
	}
	switch n.Kind() {
	case "identifier":
		return nodeText(n, source)
	case "attribute":
		obj := chainOf(n.ChildByFieldName("object"), source)
		attr := nodeText(n.ChildByFieldName("attribute"), source)
		if obj == "" || attr == "" {
			return ""
		}
		return obj + "." + attr
	case "call":
		fn := chainOf(n.ChildByFieldName("function"), source)
		if fn == "" {
			return ""
		}
		return fn + "()"
	case "subscript":
		v := chainOf(n.ChildByFieldName("value"), source)
		if v == "" {
			return ""
		}
		return v + "[]"
	case "parenthesized_expression":
		return chainOf(n.NamedChild(0), source)
	}
	return ""
}

// stringValue returns the literal content of a string node without quotes
// or prefixes. Interpolations of f-strings are dropped.
func stringValue(n *sitter.Node, source []byte) string {
	if findChildByType(n, "string_start") != nil {
		var b strings.Builder
		for i := uint(0); i < n.ChildCount(); i++ {
			if child := n.Child(i); child != nil && child.Kind() == "string_content" {
				b.WriteString(nodeText(child, source))
			}
		}
		return b.String()
	}
	return unquote(nodeText(n, source))
}

func unquote(text string) string {
	text = strings.TrimLeft(text, "rRbBuUfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(text) >= 2*len(q) && strings.HasPrefix(text, q) && strings.HasSuffix(text, q) {
			return text[len(q) : len(text)-len(q)]
		}
	}
	return text
}
