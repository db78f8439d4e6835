package asm

import (
	"bytes"
	"context"
	"strconv"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

type (
	Spaces uint64
)

var (
	SpaceTab = NewSpaces(' ', '\t')
	SpaceAll = NewSpaces(' ', '\t', '\r', '\n')
)

func NewSpaces(skip ...byte) (ss Spaces) {
	for _, q := range skip {
		if q >= 64 {
			panic("too high char code")
		}

		ss |= 1 << q
	}

	return
}

func (s Spaces) Skip(b []byte, st int) (i int) {
	i = st

	for i < len(b) && b[i] < 64 && s&(1<<b[i]) != 0 {
		i++
	}

	return
}

func (s Spaces) Trim(b []byte) []byte {
	b = b[s.Skip(b, 0):]

	for len(b) != 0 && b[len(b)-1] < 64 && s&(1<<b[len(b)-1]) != 0 {
		b = b[:len(b)-1]
	}

	return b
}

// Parse reads AT&T syntax assembly: .comm and .globl directives, labels and instructions.
// Everything after # on a line is a comment.
func Parse(ctx context.Context, text []byte) (p *Program, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "asm: parse", "size", len(text))
	defer tr.Finish("err", &err)

	p = &Program{
		Labels: make(map[Label]int),
	}

	for line, st := 1, 0; st < len(text); line++ {
		end := bytes.IndexByte(text[st:], '\n')
		if end < 0 {
			end = len(text)
		} else {
			end += st
		}

		l := text[st:end]
		st = end + 1

		if c := bytes.IndexByte(l, '#'); c >= 0 {
			l = l[:c]
		}

		l = SpaceAll.Trim(l)

		switch {
		case len(l) == 0:
		case l[0] == '.' && l[len(l)-1] != ':':
			err = p.directive(l)
		case l[len(l)-1] == ':':
			name := Label(l[:len(l)-1])

			if _, ok := p.Labels[name]; ok {
				err = errors.New("duplicate label %v", name)
				break
			}

			p.Labels[name] = len(p.Code)
		default:
			var x Instr

			x, err = parseInstr(l)
			x.Line = line

			p.Code = append(p.Code, x)
		}

		if err != nil {
			return nil, errors.Wrap(err, "line %d", line)
		}
	}

	tr.V("asm_parse").Printw("parsed", "instrs", len(p.Code), "labels", len(p.Labels), "comms", len(p.Comms))

	return p, nil
}

func (p *Program) directive(l []byte) (err error) {
	e := word(l, 0)
	name := string(l[:e])
	args := splitArgs(l[e:])

	switch name {
	case ".comm":
		if len(args) < 2 || len(args) > 3 {
			return errors.New(".comm: want 2 or 3 args, got %d", len(args))
		}

		c := Comm{Name: string(args[0]), Align: 1}

		c.Size, err = strconv.ParseInt(string(args[1]), 10, 64)
		if err != nil {
			return errors.Wrap(err, ".comm size")
		}

		if len(args) == 3 {
			c.Align, err = strconv.ParseInt(string(args[2]), 10, 64)
			if err != nil {
				return errors.Wrap(err, ".comm align")
			}
		}

		p.Comms = append(p.Comms, c)
	case ".globl":
		if len(args) != 1 {
			return errors.New(".globl: want 1 arg, got %d", len(args))
		}

		p.Globl = append(p.Globl, string(args[0]))
	case ".text", ".data":
	default:
		return errors.New("unsupported directive: %s", name)
	}

	return nil
}

func parseInstr(l []byte) (x Instr, err error) {
	e := word(l, 0)
	x.Op = string(l[:e])

	for j, a := range splitArgs(l[e:]) {
		op, err := parseOperand(a)
		if err != nil {
			return x, errors.Wrap(err, "%v: arg %d", x.Op, j)
		}

		x.Args = append(x.Args, op)
	}

	return x, nil
}

func parseOperand(a []byte) (Operand, error) {
	if len(a) == 0 {
		return nil, errors.New("empty operand")
	}

	switch {
	case a[0] == '$':
		v, err := strconv.ParseInt(string(a[1:]), 10, 64)
		if err != nil {
			return nil, errors.Wrap(err, "immediate")
		}

		return Imm(v), nil
	case a[0] == '%':
		return parseReg(a)
	case bytes.HasSuffix(a, []byte("@GOTPCREL(%rip)")):
		return Sym(a[:bytes.IndexByte(a, '@')]), nil
	}

	if p := bytes.IndexByte(a, '('); p >= 0 {
		if a[len(a)-1] != ')' {
			return nil, errors.New("bad memory operand: %s", a)
		}

		m := Mem{}

		if p != 0 {
			off, err := strconv.ParseInt(string(a[:p]), 10, 64)
			if err != nil {
				return nil, errors.Wrap(err, "offset")
			}

			m.Off = off
		}

		r, err := parseReg(a[p+1 : len(a)-1])
		if err != nil {
			return nil, err
		}

		m.Base = r.(Reg)

		return m, nil
	}

	return Label(a), nil
}

func parseReg(a []byte) (Operand, error) {
	if len(a) < 2 || a[0] != '%' {
		return nil, errors.New("register expected: %s", a)
	}

	for r, n := range regNames {
		if n == string(a[1:]) {
			return Reg(r), nil
		}
	}

	return nil, errors.New("unknown register: %s", a)
}

func splitArgs(b []byte) (r [][]byte) {
	b = SpaceAll.Trim(b)
	if len(b) == 0 {
		return nil
	}

	for _, a := range bytes.Split(b, []byte{','}) {
		r = append(r, SpaceAll.Trim(a))
	}

	return r
}

func word(b []byte, st int) (i int) {
	i = st

	for i < len(b) && !(b[i] < 64 && SpaceAll&(1<<b[i]) != 0) {
		i++
	}

	return i
}
