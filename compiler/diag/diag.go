package diag

import (
	"fmt"
	"strings"

	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/crux/compiler/ast"
)

type (
	Kind int

	// Diag is a user-facing problem found in the program.
	Diag struct {
		Kind Kind
		Pos  ast.Pos
		Msg  string
	}

	// List collects diagnostics in the order they were found.
	List struct {
		d []Diag
	}

	// Error is returned by phases that refuse to go on because of diagnostics.
	Error struct {
		Diags []Diag
	}
)

const (
	DeclarationError Kind = iota
	ResolveSymbolError
	TypeError
)

func (k Kind) String() string {
	switch k {
	case DeclarationError:
		return "DeclarationError"
	case ResolveSymbolError:
		return "ResolveSymbolError"
	case TypeError:
		return "TypeError"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (d Diag) String() string {
	return fmt.Sprintf("%v%v[%s]", d.Kind, d.Pos, d.Msg)
}

func (d Diag) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 2)
	b = e.AppendString(b, "kind")
	b = e.AppendString(b, d.Kind.String())
	b = e.AppendString(b, "msg")
	b = e.AppendString(b, d.Pos.String()+" "+d.Msg)

	return b
}

func (l *List) Add(k Kind, pos ast.Pos, format string, args ...any) {
	l.d = append(l.d, Diag{
		Kind: k,
		Pos:  pos,
		Msg:  fmt.Sprintf(format, args...),
	})
}

func (l *List) Len() int {
	if l == nil {
		return 0
	}

	return len(l.d)
}

// All returns a copy of the collected diagnostics.
func (l *List) All() []Diag {
	if l == nil {
		return nil
	}

	return append([]Diag{}, l.d...)
}

// Strings renders every diagnostic in its canonical form.
func (l *List) Strings() []string {
	r := make([]string, l.Len())

	for i, d := range l.All() {
		r[i] = d.String()
	}

	return r
}

// Err is nil if nothing was reported.
func (l *List) Err() error {
	if l.Len() == 0 {
		return nil
	}

	return &Error{Diags: l.All()}
}

func (e *Error) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%d error(s)", len(e.Diags))

	for _, d := range e.Diags {
		b.WriteString("\n")
		b.WriteString(d.String())
	}

	return b.String()
}
