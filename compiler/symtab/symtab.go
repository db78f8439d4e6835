package symtab

import (
	"github.com/slowlang/crux/compiler/ast"
	"github.com/slowlang/crux/compiler/diag"
	"github.com/slowlang/crux/compiler/tp"
)

type (
	// Table is a chain of scopes. The root scope holds the built-in functions
	// and the program's global declarations.
	Table struct {
		scopes []map[string]*ast.Symbol
		diags  *diag.List
	}

	Builtin struct {
		Name string
		Type tp.Func
	}
)

// Builtins are declared in the root scope of every table.
var Builtins = []Builtin{
	{Name: "readInt", Type: tp.Func{Ret: tp.Int{}}},
	{Name: "readChar", Type: tp.Func{Ret: tp.Int{}}},
	{Name: "printBool", Type: tp.Func{Args: tp.List{tp.Bool{}}, Ret: tp.Void{}}},
	{Name: "printInt", Type: tp.Func{Args: tp.List{tp.Int{}}, Ret: tp.Void{}}},
	{Name: "printChar", Type: tp.Func{Args: tp.List{tp.Int{}}, Ret: tp.Void{}}},
	{Name: "println", Type: tp.Func{Ret: tp.Void{}}},
}

func New(diags *diag.List) *Table {
	t := &Table{
		diags: diags,
	}

	t.Enter()

	for _, b := range Builtins {
		t.Declare(ast.Pos{}, b.Name, b.Type)
	}

	return t
}

func (t *Table) Enter() {
	t.scopes = append(t.scopes, make(map[string]*ast.Symbol))
}

func (t *Table) Exit() {
	if len(t.scopes) <= 1 {
		panic("exit from the root scope")
	}

	t.scopes = t.scopes[:len(t.scopes)-1]
}

func (t *Table) Depth() int { return len(t.scopes) }

// Declare adds name to the innermost scope.
// Redeclaration within one scope is reported and yields an error-tagged symbol.
func (t *Table) Declare(pos ast.Pos, name string, typ tp.Type) *ast.Symbol {
	cur := t.scopes[len(t.scopes)-1]

	if _, ok := cur[name]; ok {
		t.diags.Add(diag.DeclarationError, pos, "Symbol %s is already defined.", name)

		return &ast.Symbol{Name: name, Type: tp.Error{Msg: "DeclarationError"}, Err: "DeclarationError"}
	}

	s := &ast.Symbol{Name: name, Type: typ}
	cur[name] = s

	return s
}

// Lookup searches from the innermost scope outwards.
// A missing name is reported and yields an error-tagged symbol.
func (t *Table) Lookup(pos ast.Pos, name string) *ast.Symbol {
	if s, ok := t.Find(name); ok {
		return s
	}

	t.diags.Add(diag.ResolveSymbolError, pos, "Could not find %s.", name)

	return &ast.Symbol{Name: name, Type: tp.Error{Msg: "ResolveSymbolError"}, Err: "ResolveSymbolError"}
}

func (t *Table) Find(name string) (*ast.Symbol, bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if s, ok := t.scopes[i][name]; ok {
			return s, true
		}
	}

	return nil, false
}

// IsBuiltin reports whether name is provided by the runtime rather than the program.
func IsBuiltin(name string) bool {
	for _, b := range Builtins {
		if b.Name == name {
			return true
		}
	}

	return false
}
