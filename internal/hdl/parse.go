// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hdl implements the lexer and parser for the chip description
// language and for the pin lists and connection strings used by the hwsim
// API.
//
package hdl

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Std is a language standard.
//
type Std int

// Supported language standards. Std1 has single pins only. Std2 adds buses,
// pin indexes and ranges.
//
const (
	Std1 Std = 1
	Std2 Std = 2
)

// MaxBusWidth is the maximum width of a bus.
//
const MaxBusWidth = 64

// PinRef is a reference to a pin, a bus, a bus pin p[i] or a range of bus
// pins p[i..j]. Start and End are -1 when not specified.
//
type PinRef struct {
	Name  string
	Start int
	End   int
	Pos   Pos
}

// Indexed returns true if the reference has an index or a range.
//
func (p PinRef) Indexed() bool { return p.Start >= 0 }

func (p PinRef) String() string {
	var b strings.Builder
	b.WriteString(p.Name)
	if p.Start >= 0 {
		b.WriteByte('[')
		b.WriteString(strconv.Itoa(p.Start))
		if p.End >= 0 {
			b.WriteString("..")
			b.WriteString(strconv.Itoa(p.End))
		}
		b.WriteByte(']')
	}
	return b.String()
}

// PinDecl is an input or output pin declaration. Width is 0 for a single pin.
//
type PinDecl struct {
	Name  string
	Width int
	Pos   Pos
}

// Conn is a part pin to chip pin assignment. pp=cp
//
type Conn struct {
	PP PinRef
	CP PinRef
}

// PartDecl is a part instantiation in a chip body.
//
type PartDecl struct {
	Name  string
	Conns []Conn
	Pos   Pos
}

// ChipDecl is a chip declaration.
//
type ChipDecl struct {
	Name    string
	In      []PinDecl
	Out     []PinDecl
	Parts   []PartDecl
	Builtin string // name of the builtin part implementing the chip, if any.
	Pos     Pos
}

// File is a parsed HDL source file.
//
type File struct {
	Name  string
	Chips []*ChipDecl
}

// Uses returns the names of the parts instantiated by the chips in f, in order
// of first appearance.
//
func (f *File) Uses() []string {
	var out []string
	seen := make(map[string]bool)
	for _, c := range f.Chips {
		for _, p := range c.Parts {
			if !seen[p.Name] {
				seen[p.Name] = true
				out = append(out, p.Name)
			}
		}
	}
	return out
}

// Parser is a recursive descent parser for HDL sources.
//
type Parser struct {
	Name  string // file name used in error messages. May be empty.
	Input string
	Std   Std

	l *Lexer
	i Item
}

// ParseFile parses an HDL source file.
//
func ParseFile(name, input string, std Std) (*File, error) {
	p := &Parser{Name: name, Input: input, Std: std}
	return p.File()
}

func (p *Parser) next() {
	if p.l == nil {
		p.l = NewLexer(p.Input)
	}
	p.i = p.l.Lex()
}

func (p *Parser) errorf(pos Pos, format string, args ...interface{}) error {
	if p.Name == "" {
		return errors.Errorf("in %q at pos %d: "+format, append([]interface{}{p.Input, int(pos) + 1}, args...)...)
	}
	line, col := LineCol(p.Input, pos)
	return errors.Errorf("%s:%d:%d: "+format, append([]interface{}{p.Name, line, col}, args...)...)
}

func (p *Parser) unexpected(what string) error {
	if p.i.Type == Raw {
		return p.errorf(p.i.Pos, "invalid %s", p.i)
	}
	return p.errorf(p.i.Pos, "expected %s, got %s", what, p.i)
}

func (p *Parser) expect(t Type) error {
	if p.i.Type != t {
		return p.unexpected(t.String())
	}
	p.next()
	return nil
}

func (p *Parser) keyword(kw string) bool {
	return p.i.Type == Ident && p.i.Value.(string) == kw
}

func (p *Parser) ident(what string) (string, Pos, error) {
	if p.i.Type != Ident {
		return "", p.i.Pos, p.unexpected(what)
	}
	n, pos := p.i.Value.(string), p.i.Pos
	p.next()
	return n, pos, nil
}

func (p *Parser) int(what string) (int, error) {
	if p.i.Type != Int {
		return 0, p.unexpected(what)
	}
	n := p.i.Value.(int)
	p.next()
	return n, nil
}

// index parses a bus index.
func (p *Parser) index(what string) (int, error) {
	pos := p.i.Pos
	n, err := p.int(what)
	if err == nil && n >= MaxBusWidth {
		err = p.errorf(pos, "bus index %d out of range [0..%d]", n, MaxBusWidth-1)
	}
	return n, err
}

// File parses a whole source file.
//
func (p *Parser) File() (*File, error) {
	f := &File{Name: p.Name}
	p.next()
	for p.i.Type != EOF {
		c, err := p.chip()
		if err != nil {
			return nil, err
		}
		f.Chips = append(f.Chips, c)
	}
	return f, nil
}

func (p *Parser) chip() (*ChipDecl, error) {
	if !p.keyword("CHIP") {
		return nil, p.unexpected("CHIP")
	}
	c := &ChipDecl{Pos: p.i.Pos}
	p.next()
	var err error
	if c.Name, _, err = p.ident("chip name"); err != nil {
		return nil, err
	}
	if err = p.expect(BraceOpen); err != nil {
		return nil, err
	}
	if p.keyword("IN") {
		p.next()
		if c.In, err = p.pinDecls(); err != nil {
			return nil, err
		}
	}
	if p.keyword("OUT") {
		p.next()
		if c.Out, err = p.pinDecls(); err != nil {
			return nil, err
		}
	}
	switch {
	case p.keyword("PARTS"):
		p.next()
		if err = p.expect(Colon); err != nil {
			return nil, err
		}
		for p.i.Type != BraceClose {
			pd, err := p.part()
			if err != nil {
				return nil, err
			}
			c.Parts = append(c.Parts, pd)
		}
	case p.keyword("BUILTIN"):
		p.next()
		if c.Builtin, _, err = p.ident("builtin part name"); err != nil {
			return nil, err
		}
		if err = p.expect(Semicolon); err != nil {
			return nil, err
		}
	default:
		return nil, p.unexpected("PARTS or BUILTIN")
	}
	if err = p.expect(BraceClose); err != nil {
		return nil, err
	}
	return c, nil
}

// pinDecls parses a semicolon terminated pin declaration list.
func (p *Parser) pinDecls() ([]PinDecl, error) {
	var out []PinDecl
	for {
		d, err := p.pinDecl()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
		switch p.i.Type {
		case Comma:
			p.next()
		case Semicolon:
			p.next()
			return out, nil
		default:
			return nil, p.unexpected("',' or ';'")
		}
	}
}

func (p *Parser) pinDecl() (PinDecl, error) {
	n, pos, err := p.ident("pin name")
	if err != nil {
		return PinDecl{}, err
	}
	d := PinDecl{Name: n, Pos: pos}
	if p.i.Type != BracketOpen {
		return d, nil
	}
	if p.Std < Std2 {
		return d, p.errorf(p.i.Pos, "bus declarations require standard 2 or later")
	}
	p.next()
	if d.Width, err = p.int("bus size"); err != nil {
		return d, err
	}
	if d.Width < 1 || d.Width > MaxBusWidth {
		return d, p.errorf(pos, "invalid bus size %d for %s", d.Width, n)
	}
	return d, p.expect(BracketClose)
}

func (p *Parser) part() (PartDecl, error) {
	n, pos, err := p.ident("part name")
	if err != nil {
		return PartDecl{}, err
	}
	pd := PartDecl{Name: n, Pos: pos}
	if err = p.expect(ParenOpen); err != nil {
		return pd, err
	}
	if p.i.Type != ParenClose {
		if pd.Conns, err = p.conns(ParenClose); err != nil {
			return pd, err
		}
	}
	if err = p.expect(ParenClose); err != nil {
		return pd, err
	}
	return pd, p.expect(Semicolon)
}

// conns parses a comma separated list of connections up to the end token.
// The end token is not consumed.
func (p *Parser) conns(end Type) ([]Conn, error) {
	var out []Conn
	for {
		pp, err := p.pinRef()
		if err != nil {
			return nil, err
		}
		if err = p.expect(Equal); err != nil {
			return nil, err
		}
		cp, err := p.pinRef()
		if err != nil {
			return nil, err
		}
		out = append(out, Conn{pp, cp})
		switch p.i.Type {
		case Comma:
			p.next()
		case end:
			return out, nil
		default:
			return nil, p.unexpected("',' or " + end.String())
		}
	}
}

func (p *Parser) pinRef() (PinRef, error) {
	n, pos, err := p.ident("pin name")
	if err != nil {
		return PinRef{}, err
	}
	r := PinRef{Name: n, Start: -1, End: -1, Pos: pos}
	if p.i.Type != BracketOpen {
		return r, nil
	}
	if p.Std < Std2 {
		return r, p.errorf(p.i.Pos, "bus indexes require standard 2 or later")
	}
	p.next()
	if r.Start, err = p.index("bus index"); err != nil {
		return r, err
	}
	if p.i.Type == Range {
		p.next()
		if r.End, err = p.index("end of bus range"); err != nil {
			return r, err
		}
		if r.End < r.Start {
			return r, p.errorf(pos, "invalid bus range %d..%d", r.Start, r.End)
		}
	}
	return r, p.expect(BracketClose)
}

// ParseConnections parses a connection string like "a=x, b=bus[0..3]".
//
func ParseConnections(s string) ([]Conn, error) {
	p := &Parser{Input: s, Std: Std2}
	p.next()
	if p.i.Type == EOF {
		return nil, nil
	}
	return p.conns(EOF)
}

// ParsePinRef parses a single pin reference like "a", "a[2]" or "a[0..3]".
//
func ParsePinRef(s string) (PinRef, error) {
	p := &Parser{Input: s, Std: Std2}
	p.next()
	r, err := p.pinRef()
	if err != nil {
		return r, err
	}
	if p.i.Type != EOF {
		return r, p.unexpected("end of input")
	}
	return r, nil
}

// ParseIO parses a pin declaration list like "a, b, bus[8]". An empty string
// yields an empty list.
//
func ParseIO(s string) ([]PinDecl, error) {
	p := &Parser{Input: s, Std: Std2}
	p.next()
	var out []PinDecl
	if p.i.Type == EOF {
		return nil, nil
	}
	for {
		d, err := p.pinDecl()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
		switch p.i.Type {
		case EOF:
			return out, nil
		case Comma:
			p.next()
		default:
			return nil, p.unexpected("',' or end of input")
		}
	}
}

// LineCol converts a byte offset in input to 1-based line and column numbers.
//
func LineCol(input string, pos Pos) (line, col int) {
	if int(pos) > len(input) {
		pos = Pos(len(input))
	}
	before := input[:pos]
	line = strings.Count(before, "\n") + 1
	col = int(pos) - strings.LastIndexByte(before, '\n')
	return line, col
}
