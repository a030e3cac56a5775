// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwtest_test

import (
	"testing"

	hl "github.com/db47h/hwunit/hwlib"
	hw "github.com/db47h/hwunit/hwsim"
	"github.com/db47h/hwunit/hwtest"
)

func TestComparePart(t *testing.T) {
	or, err := hw.Chip("custom_or", hw.IO("a,b"), hw.IO("out"), hw.Parts{
		hl.Nand("a=a, b=a, out=notA"),
		hl.Nand("a=b, b=b, out=notB"),
		hl.Nand("a=notA, b=notB, out=out"),
	})
	if err != nil {
		t.Fatal(err)
	}
	hwtest.ComparePart(t, 4, hl.Or, or)
}

func TestComparePart_adder(t *testing.T) {
	add2, err := hw.Chip("Add2c", hw.IO("a[2], b[2]"), hw.IO("out[2], carry"), hw.Parts{
		hl.HalfAdder("a=a[0], b=b[0], sum=out[0], carry=c0"),
		hl.FullAdder("a=a[1], b=b[1], c=c0, sum=out[1], carry=carry"),
	})
	if err != nil {
		t.Fatal(err)
	}
	hwtest.ComparePart(t, 8, hl.AdderN(2), add2)
}
