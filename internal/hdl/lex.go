// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

import (
	"strconv"
	"unicode"
	"unicode/utf8"
)

// Type is a token type.
//
type Type int

// Tokens
const (
	EOF Type = iota
	Raw
	Ident
	Int
	BracketOpen
	BracketClose
	BraceOpen
	BraceClose
	ParenOpen
	ParenClose
	Comma
	Semicolon
	Colon
	Range
	Equal
)

var typeNames = [...]string{
	EOF:          "end of input",
	Raw:          "invalid character",
	Ident:        "identifier",
	Int:          "integer",
	BracketOpen:  "'['",
	BracketClose: "']'",
	BraceOpen:    "'{'",
	BraceClose:   "'}'",
	ParenOpen:    "'('",
	ParenClose:   "')'",
	Comma:        "','",
	Semicolon:    "';'",
	Colon:        "':'",
	Range:        "'..'",
	Equal:        "'='",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "token(" + strconv.Itoa(int(t)) + ")"
}

// Pos is a byte offset in the input.
//
type Pos int

// An Item is a lexed token.
//
type Item struct {
	Type  Type
	Pos   Pos
	Value interface{}
}

func (i Item) String() string {
	switch i.Type {
	case Ident:
		return "identifier " + i.Value.(string)
	case Int:
		return "integer " + strconv.Itoa(i.Value.(int))
	case Raw:
		return "character " + strconv.QuoteRune(i.Value.(rune))
	}
	return i.Type.String()
}

const eof = -1

// stateFn is a lexer state. A nil stateFn returns to lexInit.
//
type stateFn func(l *Lexer) stateFn

// Lexer is a state function based lexer for HDL sources, i/o specs and
// connection descriptions.
//
type Lexer struct {
	input string
	start int // start of current token
	pos   int // current position
	cur   rune
	width int
	items []Item
	state stateFn
}

// NewLexer returns a new lexer for the given input.
//
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Lex returns the next token.
//
func (l *Lexer) Lex() Item {
	for len(l.items) == 0 {
		st := l.state
		if st == nil {
			st = lexInit
			l.start = l.pos
		}
		l.state = st(l)
	}
	i := l.items[0]
	l.items = l.items[1:]
	return i
}

func (l *Lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		l.cur = eof
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.pos += w
	l.cur = r
	return r
}

func (l *Lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

// backup can only be called once per call to next.
func (l *Lexer) backup() {
	l.pos -= l.width
	l.width = 0
}

func (l *Lexer) acceptWhile(f func(rune) bool) {
	for r := l.next(); r != eof && f(r); r = l.next() {
	}
	l.backup()
}

func (l *Lexer) emit(t Type, v interface{}) {
	l.items = append(l.items, Item{t, Pos(l.start), v})
}

func lexInit(l *Lexer) stateFn {
	r := l.next()
	switch {
	case r == eof:
		return lexEOF
	case unicode.IsSpace(r):
		l.acceptWhile(unicode.IsSpace)
	case unicode.IsLetter(r) || r == '_':
		return lexIdent
	case '0' <= r && r <= '9':
		return lexNumber
	case r == '/':
		switch l.peek() {
		case '/':
			l.acceptWhile(func(r rune) bool { return r != '\n' })
		case '*':
			return lexBlockComment
		default:
			l.emit(Raw, r)
			return lexEOF
		}
	case r == '.':
		if l.next() == '.' {
			l.emit(Range, "..")
			break
		}
		l.emit(Raw, '.')
		return lexEOF
	default:
		if t, ok := punct[r]; ok {
			l.emit(t, string(r))
			break
		}
		l.emit(Raw, r)
		return lexEOF
	}
	return nil
}

var punct = map[rune]Type{
	'[': BracketOpen,
	']': BracketClose,
	'{': BraceOpen,
	'}': BraceClose,
	'(': ParenOpen,
	')': ParenClose,
	',': Comma,
	';': Semicolon,
	':': Colon,
	'=': Equal,
}

func lexBlockComment(l *Lexer) stateFn {
	l.next() // '*'
	for {
		switch l.next() {
		case eof:
			l.emit(Raw, '/')
			return lexEOF
		case '*':
			if l.peek() == '/' {
				l.next()
				return nil
			}
		}
	}
}

func lexNumber(l *Lexer) stateFn {
	i := int(l.cur - '0')
	for r := l.next(); '0' <= r && r <= '9'; r = l.next() {
		// saturate; callers reject large values anyway.
		if i < 1<<30 {
			i = i*10 + int(r-'0')
		}
	}
	l.backup()
	l.emit(Int, i)
	return nil
}

func lexIdent(l *Lexer) stateFn {
	l.acceptWhile(func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
	})
	l.emit(Ident, l.input[l.start:l.pos])
	return nil
}

// lexEOF places the lexer in End-Of-File state.
// Once in this state, the lexer will only emit EOF.
//
func lexEOF(l *Lexer) stateFn {
	l.start = l.pos
	l.emit(EOF, "end of input")
	return lexEOF
}
