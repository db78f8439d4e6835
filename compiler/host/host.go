package host

import (
	"bufio"
	"io"
	"strconv"

	"tlog.app/go/errors"

	"github.com/slowlang/crux/compiler/symtab"
)

type (
	// Env runs the built-in functions for executed programs.
	Env struct {
		in  *bufio.Reader
		out io.Writer

		buf []byte
	}
)

var ErrUnknown = errors.New("unknown builtin")

func New(in io.Reader, out io.Writer) *Env {
	e := &Env{out: out}

	if in != nil {
		e.in = bufio.NewReader(in)
	}

	return e
}

func IsBuiltin(name string) bool {
	return symtab.IsBuiltin(name)
}

// Call runs builtin name. Functions without a result return 0.
func (e *Env) Call(name string, args []int64) (r int64, err error) {
	arg := func() int64 {
		if len(args) == 0 {
			return 0
		}

		return args[0]
	}

	e.buf = e.buf[:0]

	switch name {
	case "readInt":
		return e.readInt()
	case "readChar":
		return e.readChar()
	case "printInt":
		e.buf = strconv.AppendInt(e.buf, arg(), 10)
	case "printBool":
		e.buf = strconv.AppendBool(e.buf, arg() != 0)
	case "printChar":
		e.buf = append(e.buf, byte(arg()))
	case "println":
		e.buf = append(e.buf, '\n')
	default:
		return 0, errors.Wrap(ErrUnknown, "%v", name)
	}

	if e.out == nil {
		return 0, nil
	}

	_, err = e.out.Write(e.buf)
	if err != nil {
		return 0, errors.Wrap(err, "write")
	}

	return 0, nil
}

// readChar returns the next input byte or -1 at the end of input.
func (e *Env) readChar() (int64, error) {
	if e.in == nil {
		return -1, nil
	}

	c, err := e.in.ReadByte()
	if errors.Is(err, io.EOF) {
		return -1, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "read")
	}

	return int64(c), nil
}

// readInt skips spaces and reads a decimal integer.
func (e *Env) readInt() (int64, error) {
	if e.in == nil {
		return 0, errors.New("read int: no input")
	}

	var tok []byte

	for {
		c, err := e.in.ReadByte()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, errors.Wrap(err, "read")
		}

		if c == ' ' || c == '\n' || c == '\t' || c == '\r' {
			if len(tok) == 0 {
				continue
			}

			break
		}

		tok = append(tok, c)
	}

	if len(tok) == 0 {
		return 0, errors.Wrap(io.ErrUnexpectedEOF, "read int")
	}

	v, err := strconv.ParseInt(string(tok), 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "read int")
	}

	return v, nil
}
