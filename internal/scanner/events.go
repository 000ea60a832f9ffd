package scanner

// EventKind identifies the structural construct an Event was emitted for.
type EventKind int

const (
	EventComment EventKind = iota
	EventDecorator
	EventClassDef
	EventFuncDef
	EventImport
	EventAssignment
	EventAnnotation
	EventCall
	EventSubscript
	EventString
	EventTry
	EventExcept
	EventFinally
	EventMalformed
)

var eventKindNames = map[EventKind]string{
	EventComment:    "comment",
	EventDecorator:  "decorator",
	EventClassDef:   "class_def",
	EventFuncDef:    "func_def",
	EventImport:     "import",
	EventAssignment: "assignment",
	EventAnnotation: "annotation",
	EventCall:       "call",
	EventSubscript:  "subscript",
	EventString:     "string",
	EventTry:        "try",
	EventExcept:     "except",
	EventFinally:    "finally",
	EventMalformed:  "malformed",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Annotation targets carried in Event.Target for EventAnnotation.
const (
	TargetParameter = "parameter"
	TargetReturn    = "return"
	TargetVariable  = "variable"
)

// Event is a single structural fact discovered in the source.
// Which payload fields are populated depends on Kind:
//
//	Comment     Text (without the leading '#')
//	Decorator   Name (decorator chain), Resolved
//	ClassDef    Name (class name), Names (positional bases)
//	FuncDef     Name (function name), Async
//	Import      Names (locally bound names), Resolved (module)
//	Assignment  Name (target chain), Literal (RHS is a string literal)
//	Annotation  Name (annotated name), Value (type expression), Target
//	Call        Name (raw callee chain), Resolved, Value (first string argument)
//	Subscript   Name (raw value chain), Resolved, Value (string key)
//	String      Value (literal content)
//	Except      Name (bound alias), Names (exception types)
type Event struct {
	Kind     EventKind
	Line     int // 1-based
	Column   int // 0-based byte offset within the line
	Text     string
	Name     string
	Resolved string
	Names    []string
	Value    string
	Target   string
	Async    bool
	Literal  bool
}
