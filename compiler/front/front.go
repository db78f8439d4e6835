package front

import (
	"context"
	"os"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/crux/compiler/ast"
	"github.com/slowlang/crux/compiler/diag"
	"github.com/slowlang/crux/compiler/symtab"
	"github.com/slowlang/crux/compiler/tp"
)

type (
	// Front turns syntax documents into a resolved syntax tree.
	//
	// A document is YAML: a top-level "decls" list of single-key mappings,
	// one of var, array or func. Statements and expressions are single-key
	// mappings too; plain scalars stand for literals and variable names.
	Front struct {
		diags *diag.List
		st    *symtab.Table

		files []file
	}

	file struct {
		name string
		root *yaml.Node
	}
)

func New(diags *diag.List) *Front {
	return &Front{
		diags: diags,
		st:    symtab.New(diags),
	}
}

func (c *Front) AddFile(ctx context.Context, name string, text []byte) error {
	var doc yaml.Node

	err := yaml.Unmarshal(text, &doc)
	if err != nil {
		return errors.Wrap(err, "parse %v", name)
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return errors.New("%v: empty document", name)
	}

	tlog.SpanFromContext(ctx).Printw("add file", "name", name, "size", len(text))

	c.files = append(c.files, file{name: name, root: doc.Content[0]})

	return nil
}

func (c *Front) AddPath(ctx context.Context, name string) error {
	text, err := os.ReadFile(name)
	if err != nil {
		return errors.Wrap(err, "read file")
	}

	return c.AddFile(ctx, name, text)
}

// Parse resolves every added file into one declaration list.
// Name errors go to the diagnostics, malformed documents are returned as errors.
func (c *Front) Parse(ctx context.Context) (x *ast.DeclarationList, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "front: parse", "files", len(c.files))
	defer tr.Finish("err", &err)

	x = &ast.DeclarationList{}

	for _, f := range c.files {
		x.Pos = pos(f.root)

		err = c.parseFile(ctx, x, f.root)
		if err != nil {
			return nil, errors.Wrap(err, "%v", f.name)
		}
	}

	return x, nil
}

func (c *Front) parseFile(ctx context.Context, x *ast.DeclarationList, root *yaml.Node) error {
	fields, err := mapping(root, "decls")
	if err != nil {
		return err
	}

	decls := fields["decls"]
	if decls == nil {
		return nil
	}

	if decls.Kind != yaml.SequenceNode {
		return errorf(decls, "decls: list expected")
	}

	for _, n := range decls.Content {
		d, err := c.parseDecl(ctx, n)
		if err != nil {
			return err
		}

		x.Decls = append(x.Decls, d)
	}

	return nil
}

func (c *Front) parseDecl(ctx context.Context, n *yaml.Node) (ast.Decl, error) {
	key, v, err := single(n)
	if err != nil {
		return nil, err
	}

	switch key {
	case "var":
		return c.parseVar(v)
	case "array":
		return c.parseArray(v)
	case "func":
		return c.parseFunc(ctx, v)
	default:
		return nil, errorf(n, "unexpected declaration: %v", key)
	}
}

func (c *Front) parseVar(n *yaml.Node) (*ast.VariableDeclaration, error) {
	f, err := mapping(n, "name", "type")
	if err != nil {
		return nil, err
	}

	name, err := str(f, n, "name")
	if err != nil {
		return nil, err
	}

	t, err := typ(f, n, "type")
	if err != nil {
		return nil, err
	}

	d := &ast.VariableDeclaration{Base: ast.Base{Pos: pos(n)}}
	d.Symbol = c.st.Declare(d.Pos, name, t)

	return d, nil
}

func (c *Front) parseArray(n *yaml.Node) (*ast.ArrayDeclaration, error) {
	f, err := mapping(n, "name", "type", "extent")
	if err != nil {
		return nil, err
	}

	name, err := str(f, n, "name")
	if err != nil {
		return nil, err
	}

	t, err := typ(f, n, "type")
	if err != nil {
		return nil, err
	}

	var ext int64

	en := f["extent"]
	if en == nil {
		return nil, errorf(n, "array %v: extent required", name)
	}

	err = en.Decode(&ext)
	if err != nil {
		return nil, errorf(en, "extent: %v", err)
	}

	d := &ast.ArrayDeclaration{Base: ast.Base{Pos: pos(n)}}
	d.Symbol = c.st.Declare(d.Pos, name, tp.Array{Base: t, Extent: ext})

	return d, nil
}

func (c *Front) parseFunc(ctx context.Context, n *yaml.Node) (d *ast.FunctionDefinition, err error) {
	f, err := mapping(n, "name", "params", "ret", "body")
	if err != nil {
		return nil, err
	}

	name, err := str(f, n, "name")
	if err != nil {
		return nil, err
	}

	ret := tp.Type(tp.Void{})
	if f["ret"] != nil {
		ret, err = typ(f, n, "ret")
		if err != nil {
			return nil, err
		}
	}

	type param struct {
		pos  ast.Pos
		name string
		t    tp.Type
	}

	var params []param
	var args tp.List

	if pn := f["params"]; pn != nil {
		if pn.Kind != yaml.SequenceNode {
			return nil, errorf(pn, "params: list expected")
		}

		for _, p := range pn.Content {
			pf, err := mapping(p, "name", "type")
			if err != nil {
				return nil, err
			}

			pname, err := str(pf, p, "name")
			if err != nil {
				return nil, err
			}

			pt, err := typ(pf, p, "type")
			if err != nil {
				return nil, err
			}

			params = append(params, param{pos: pos(p), name: pname, t: pt})
			args = append(args, pt)
		}
	}

	d = &ast.FunctionDefinition{Base: ast.Base{Pos: pos(n)}}
	d.Symbol = c.st.Declare(d.Pos, name, tp.Func{Args: args, Ret: ret})

	c.st.Enter()
	defer c.st.Exit()

	for _, p := range params {
		d.Params = append(d.Params, c.st.Declare(p.pos, p.name, p.t))
	}

	d.Body, err = c.parseList(ctx, f["body"], pos(n), false)
	if err != nil {
		return nil, errors.Wrap(err, "func %v", name)
	}

	return d, nil
}

func errorf(n *yaml.Node, format string, args ...any) error {
	return errors.Wrap(errors.New(format, args...), "%d:%d", n.Line, n.Column)
}

func pos(n *yaml.Node) ast.Pos {
	return ast.Pos{Line: n.Line, Col: n.Column}
}

// single unpacks a one-key mapping. A plain scalar is a key without a value.
func single(n *yaml.Node) (string, *yaml.Node, error) {
	switch {
	case n.Kind == yaml.ScalarNode:
		return n.Value, nil, nil
	case n.Kind == yaml.MappingNode && len(n.Content) == 2:
		return n.Content[0].Value, n.Content[1], nil
	default:
		return "", nil, errorf(n, "single-key mapping expected")
	}
}

// mapping reads a mapping, rejecting keys not in allowed.
func mapping(n *yaml.Node, allowed ...string) (map[string]*yaml.Node, error) {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil, errorf(orEmpty(n), "mapping expected")
	}

	r := make(map[string]*yaml.Node, len(n.Content)/2)

outer:
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i].Value

		for _, a := range allowed {
			if k == a {
				r[k] = n.Content[i+1]
				continue outer
			}
		}

		return nil, errorf(n.Content[i], "unexpected key: %v", k)
	}

	return r, nil
}

func str(f map[string]*yaml.Node, n *yaml.Node, key string) (string, error) {
	v := f[key]
	if v == nil || v.Kind != yaml.ScalarNode || v.Value == "" {
		return "", errorf(n, "%v required", key)
	}

	return v.Value, nil
}

func typ(f map[string]*yaml.Node, n *yaml.Node, key string) (tp.Type, error) {
	name, err := str(f, n, key)
	if err != nil {
		return nil, err
	}

	switch name {
	case "int":
		return tp.Int{}, nil
	case "bool":
		return tp.Bool{}, nil
	case "void":
		return tp.Void{}, nil
	default:
		return nil, errorf(f[key], "unknown type: %v", name)
	}
}

func orEmpty(n *yaml.Node) *yaml.Node {
	if n == nil {
		return &yaml.Node{}
	}

	return n
}
