package ast

import (
	"fmt"

	"github.com/slowlang/crux/compiler/tp"
)

type (
	Pos struct {
		Line int
		Col  int
	}

	Node interface {
		Position() Pos
	}

	Decl interface {
		Node
		decl()
	}

	Stmt interface {
		Node
		stmt()
	}

	Expr interface {
		Node
		Type() tp.Type
		SetType(tp.Type)
	}

	// Symbol is a declared name. Err is set when the declaration or lookup failed,
	// in which case Type is an Error.
	Symbol struct {
		Name string
		Type tp.Type
		Err  string
	}

	Base struct {
		Pos Pos
	}

	// Typed is embedded by expressions; the checker fills T.
	Typed struct {
		Base
		T tp.Type
	}

	DeclarationList struct {
		Base
		Decls []Decl
	}

	FunctionDefinition struct {
		Base
		Symbol *Symbol
		Params []*Symbol
		Body   *StatementList
	}

	VariableDeclaration struct {
		Base
		Symbol *Symbol
	}

	ArrayDeclaration struct {
		Base
		Symbol *Symbol
	}

	StatementList struct {
		Base
		Stmts []Stmt
	}

	// Assignment stores Value into Location, which is a *VarAccess or an *ArrayAccess.
	Assignment struct {
		Base
		Location Expr
		Value    Expr
	}

	// Call is both an expression and a statement.
	Call struct {
		Typed
		Callee *Symbol
		Args   []Expr
	}

	IfElseBranch struct {
		Base
		Cond Expr
		Then *StatementList
		Else *StatementList
	}

	Loop struct {
		Base
		Body *StatementList
	}

	Break struct {
		Base
	}

	Continue struct {
		Base
	}

	// Return with a nil Value returns from a void function.
	Return struct {
		Base
		Value Expr
	}

	// OpExpr is a binary operation; Right is nil for Not.
	OpExpr struct {
		Typed
		Op    Op
		Left  Expr
		Right Expr
	}

	VarAccess struct {
		Typed
		Symbol *Symbol
	}

	ArrayAccess struct {
		Typed
		Array *Symbol
		Index Expr
	}

	LiteralInt struct {
		Typed
		Value int64
	}

	LiteralBool struct {
		Typed
		Value bool
	}
)

func (p Pos) String() string {
	return fmt.Sprintf("(%d:%d)", p.Line, p.Col)
}

func (s *Symbol) String() string {
	if s.Err != "" {
		return fmt.Sprintf("Symbol(%s:%s)", s.Name, s.Err)
	}

	return fmt.Sprintf("Symbol(%s:%v)", s.Name, s.Type)
}

func (b Base) Position() Pos { return b.Pos }

func (t *Typed) Type() tp.Type      { return t.T }
func (t *Typed) SetType(x tp.Type) { t.T = x }

func (*FunctionDefinition) decl()  {}
func (*VariableDeclaration) decl() {}
func (*ArrayDeclaration) decl()    {}

func (*VariableDeclaration) stmt() {}
func (*ArrayDeclaration) stmt()    {}
func (*Assignment) stmt()          {}
func (*Call) stmt()                {}
func (*IfElseBranch) stmt()        {}
func (*Loop) stmt()                {}
func (*Break) stmt()               {}
func (*Continue) stmt()            {}
func (*Return) stmt()              {}
