// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl_test

import (
	"reflect"
	"testing"

	"github.com/db47h/hwunit/internal/hdl"
)

func TestLexer(t *testing.T) {
	in := "a[0..3]=x, // comment\n /* block\n comment */ y;"
	want := []hdl.Type{
		hdl.Ident, hdl.BracketOpen, hdl.Int, hdl.Range, hdl.Int, hdl.BracketClose,
		hdl.Equal, hdl.Ident, hdl.Comma, hdl.Ident, hdl.Semicolon, hdl.EOF, hdl.EOF,
	}
	l := hdl.NewLexer(in)
	for i, w := range want {
		it := l.Lex()
		if it.Type != w {
			t.Fatalf("token %d: got %s, expected %s", i, it.Type, w)
		}
	}
	l = hdl.NewLexer("  abc 42")
	if it := l.Lex(); it.Type != hdl.Ident || it.Pos != 2 || it.Value.(string) != "abc" {
		t.Fatalf("got %v at %d", it, it.Pos)
	}
	if it := l.Lex(); it.Type != hdl.Int || it.Pos != 6 || it.Value.(int) != 42 {
		t.Fatalf("got %v at %d", it, it.Pos)
	}
}

func TestParseIO(t *testing.T) {
	td := []struct {
		in   string
		want []hdl.PinDecl
		err  string
	}{
		{"", nil, ""},
		{"in[2], sel", []hdl.PinDecl{{Name: "in", Width: 2, Pos: 0}, {Name: "sel", Pos: 7}}, ""},
		{"a b", nil, `in "a b" at pos 3: expected ',' or end of input, got identifier b`},
		{"a[0]", nil, `in "a[0]" at pos 1: invalid bus size 0 for a`},
		{"a, 1", nil, `in "a, 1" at pos 4: expected pin name, got integer 1`},
		{"w[64]", []hdl.PinDecl{{Name: "w", Width: 64}}, ""},
		{"a[65]", nil, `in "a[65]" at pos 1: invalid bus size 65 for a`},
		{"a[100000000]", nil, `in "a[100000000]" at pos 1: invalid bus size 100000000 for a`},
	}
	for _, d := range td {
		t.Run(d.in, func(t *testing.T) {
			got, err := hdl.ParseIO(d.in)
			if err != nil {
				if d.err == "" {
					t.Fatal(err)
				}
				if err.Error() != d.err {
					t.Fatalf("got error %q, expected %q", err, d.err)
				}
				return
			}
			if d.err != "" {
				t.Fatalf("no error, expected %q", d.err)
			}
			if !reflect.DeepEqual(got, d.want) {
				t.Fatalf("got %v, expected %v", got, d.want)
			}
		})
	}
}

func TestParsePinRef(t *testing.T) {
	td := []struct {
		in    string
		start int
		end   int
		err   string
	}{
		{"a", -1, -1, ""},
		{"a[2]", 2, -1, ""},
		{"a[0..3]", 0, 3, ""},
		{"a[3..1]", 0, 0, `in "a[3..1]" at pos 1: invalid bus range 3..1`},
		{"a b", 0, 0, `in "a b" at pos 3: expected end of input, got identifier b`},
		{"a$", 0, 0, `in "a$" at pos 2: invalid character '$'`},
		{"a[", 0, 0, `in "a[" at pos 3: expected bus index, got end of input`},
		{"a[63]", 63, -1, ""},
		{"a[64]", 0, 0, `in "a[64]" at pos 3: bus index 64 out of range [0..63]`},
		{"a[0..100000000]", 0, 0, `in "a[0..100000000]" at pos 6: bus index 100000000 out of range [0..63]`},
	}
	for _, d := range td {
		t.Run(d.in, func(t *testing.T) {
			r, err := hdl.ParsePinRef(d.in)
			if d.err != "" {
				if err == nil || err.Error() != d.err {
					t.Fatalf("got error %v, expected %q", err, d.err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if r.Name != "a" || r.Start != d.start || r.End != d.end {
				t.Fatalf("got %+v", r)
			}
			if r.String() != d.in {
				t.Fatalf("String: got %q, expected %q", r.String(), d.in)
			}
		})
	}
}

func TestParseConnections(t *testing.T) {
	cs, err := hdl.ParseConnections("a=x[0..3], b[1]=y, out=z")
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, c := range cs {
		got = append(got, c.PP.String()+"="+c.CP.String())
	}
	want := []string{"a=x[0..3]", "b[1]=y", "out=z"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, expected %v", got, want)
	}
	if cs, err = hdl.ParseConnections(""); err != nil || cs != nil {
		t.Fatalf("empty connections: got %v, %v", cs, err)
	}
	if _, err = hdl.ParseConnections("a=b c=d"); err == nil {
		t.Fatal("missing comma: no error")
	}
}

const adderSrc = `// adders
CHIP HalfAdder {
    IN a, b;
    OUT sum, carry;
    PARTS:
    Xor(a=a, b=b, out=sum);
    And(a=a, b=b, out=carry);
}

/* 2 bits */
CHIP Add2 {
    IN a[2], b[2];
    OUT out[2];
    PARTS:
    HalfAdder(a=a[0], b=b[0], sum=out[0], carry=c);
    FullAdder(a=a[1], b=b[1], c=c, sum=out[1]);
}

CHIP MyNot { IN in; OUT out; BUILTIN Not; }
`

func TestParseFile(t *testing.T) {
	f, err := hdl.ParseFile("adder.hdl", adderSrc, hdl.Std2)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Chips) != 3 {
		t.Fatalf("got %d chips, expected 3", len(f.Chips))
	}
	ha := f.Chips[0]
	if ha.Name != "HalfAdder" || len(ha.In) != 2 || len(ha.Out) != 2 || len(ha.Parts) != 2 {
		t.Fatalf("bad HalfAdder: %+v", ha)
	}
	if line, col := hdl.LineCol(adderSrc, ha.Parts[1].Pos); line != 7 || col != 5 {
		t.Fatalf("And part at %d:%d, expected 7:5", line, col)
	}
	add2 := f.Chips[1]
	if add2.In[0].Width != 2 || add2.Out[0].Width != 2 {
		t.Fatalf("bad bus widths: %+v", add2)
	}
	if c := add2.Parts[0].Conns[2]; c.PP.Name != "sum" || c.CP.String() != "out[0]" {
		t.Fatalf("bad connection: %+v", c)
	}
	if f.Chips[2].Builtin != "Not" {
		t.Fatalf("got builtin %q", f.Chips[2].Builtin)
	}
	want := []string{"Xor", "And", "HalfAdder", "FullAdder"}
	if got := f.Uses(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Uses: got %v, expected %v", got, want)
	}
}

func TestParseFile_errors(t *testing.T) {
	td := []struct {
		name string
		src  string
		std  hdl.Std
		err  string
	}{
		{"std1_bus", "CHIP A { IN a[2]; OUT b; PARTS: }", hdl.Std1,
			"f.hdl:1:14: bus declarations require standard 2 or later"},
		{"std1_index", "CHIP A { IN a; OUT b; PARTS: Not(in=a[0], out=b); }", hdl.Std1,
			"f.hdl:1:38: bus indexes require standard 2 or later"},
		{"bus_size", "CHIP A { IN a[0]; OUT b; PARTS: }", hdl.Std2,
			"f.hdl:1:13: invalid bus size 0 for a"},
		{"bus_too_wide", "CHIP A { IN a[65]; OUT b; PARTS: }", hdl.Std2,
			"f.hdl:1:13: invalid bus size 65 for a"},
		{"no_body", "CHIP A {\n  IN a;\n  BAD\n}", hdl.Std2,
			"f.hdl:3:3: expected PARTS or BUILTIN, got identifier BAD"},
		{"keyword", "chip A {}", hdl.Std2,
			"f.hdl:1:1: expected CHIP, got identifier chip"},
		{"comment", "/* unterminated", hdl.Std2,
			"f.hdl:1:1: invalid character '/'"},
		{"missing_semicolon", "CHIP A {\n  IN a;\n  OUT b;\n  PARTS:\n  Not(in=a, out=b)\n}", hdl.Std2,
			"f.hdl:6:1: expected ';', got '}'"},
	}
	for _, d := range td {
		t.Run(d.name, func(t *testing.T) {
			_, err := hdl.ParseFile("f.hdl", d.src, d.std)
			if err == nil {
				t.Fatalf("no error, expected %q", d.err)
			}
			if err.Error() != d.err {
				t.Fatalf("got error %q, expected %q", err, d.err)
			}
		})
	}
}

func TestLineCol(t *testing.T) {
	in := "ab\ncd\n\nef"
	td := []struct {
		pos       hdl.Pos
		line, col int
	}{
		{0, 1, 1},
		{1, 1, 2},
		{3, 2, 1},
		{6, 3, 1},
		{8, 4, 2},
		{100, 4, 3},
	}
	for _, d := range td {
		if line, col := hdl.LineCol(in, d.pos); line != d.line || col != d.col {
			t.Errorf("pos %d: got %d:%d, expected %d:%d", d.pos, line, col, d.line, d.col)
		}
	}
}
