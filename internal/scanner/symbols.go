package scanner

import "strings"

// symbolTable maps locally bound names to qualified call chains.
// It is populated from imports and from `name = <call>` assignments while
// the tree is walked, so a binding is only visible to code after it.
type symbolTable struct {
	bindings map[string]string
}

func newSymbolTable() *symbolTable {
	return &symbolTable{bindings: make(map[string]string)}
}

func (t *symbolTable) bind(name, qualified string) {
	if name == "" || qualified == "" || name == qualified {
		return
	}
	t.bindings[name] = qualified
}

func (t *symbolTable) unbind(name string) {
	delete(t.bindings, name)
}

// resolve rewrites the longest bound prefix of chain.
//
//	storage.Client        -> google.cloud.storage.Client
//	parser.add_argument   -> argparse.ArgumentParser().add_argument
func (t *symbolTable) resolve(chain string) string {
	if chain == "" || len(t.bindings) == 0 {
		return chain
	}

	segs := strings.Split(chain, ".")
	for i := len(segs); i >= 1; i-- {
		prefix := strings.Join(segs[:i], ".")
		if q, ok := t.bindings[prefix]; ok {
			return joinChain(q, segs[i:])
		}
	}

	// Head segment may carry a call or subscript suffix: get_client().list
	head, suffix := splitSuffix(segs[0])
	if suffix != "" {
		if q, ok := t.bindings[head]; ok {
			segs[0] = q + suffix
			return strings.Join(segs, ".")
		}
	}
	return chain
}

func joinChain(head string, rest []string) string {
	if len(rest) == 0 {
		return head
	}
	return head + "." + strings.Join(rest, ".")
}

// splitSuffix separates "name()[]" into "name" and "()[]".
func splitSuffix(seg string) (string, string) {
	if i := strings.IndexAny(seg, "(["); i > 0 {
		return seg[:i], seg[i:]
	}
	return seg, ""
}
