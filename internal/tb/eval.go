// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tb

import (
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Generics maps generic names to values.
//
type Generics map[string]cty.Value

// ToValue converts a Go value to a cty.Value.
//
func ToValue(v interface{}) (cty.Value, error) {
	if v == nil {
		return cty.NilVal, errors.New("nil value")
	}
	if cv, ok := v.(cty.Value); ok {
		return cv, nil
	}
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, errors.Wrapf(err, "unsupported value %v", v)
	}
	return gocty.ToCtyValue(v, ty)
}

// Check checks that overrides only name generics declared by b and that their
// values convert to the type of the generic default.
//
func (b *Bench) Check(overrides map[string]interface{}) error {
	_, err := b.values(overrides)
	return err
}

// Resolve returns the generic values of b given per-configuration overrides.
// Overrides are converted to the type of the generic default. Unknown generic
// names and generics without value are errors.
//
func (b *Bench) Resolve(overrides map[string]interface{}) (Generics, error) {
	out, err := b.values(overrides)
	if err != nil {
		return nil, err
	}
	for _, g := range b.Generics {
		if _, ok := out[g.Name]; !ok {
			return nil, errors.Errorf("generic %s has no value", g.Name)
		}
	}
	return out, nil
}

func (b *Bench) values(overrides map[string]interface{}) (Generics, error) {
	out := make(Generics, len(b.Generics))
	for _, g := range b.Generics {
		if g.HasDefault() {
			out[g.Name] = g.value
		}
	}
	for n, v := range overrides {
		g, ok := b.Generic(n)
		if !ok {
			return nil, errors.Errorf("testbench %s has no generic %q", b.Name, n)
		}
		cv, err := ToValue(v)
		if err != nil {
			return nil, errors.Wrapf(err, "generic %s", n)
		}
		if g.HasDefault() {
			if cv, err = convert.Convert(cv, g.value.Type()); err != nil {
				return nil, errors.Wrapf(err, "generic %s: cannot convert %#v to %s", n, v, g.value.Type().FriendlyName())
			}
		}
		out[n] = cv
	}
	return out, nil
}

// EvalContext returns an evaluation context with the generics in scope.
//
func (gs Generics) EvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"generic": cty.ObjectVal(gs),
		},
	}
}

// Value is a pin or bus value. Bool is set for boolean literals, in which case
// N is 0 or 1.
//
type Value struct {
	N    int64
	Bool bool
}

// Step is an evaluated vector.
//
type Step struct {
	In     map[string]Value
	Expect map[string]Value
	Cycles int
	Pos    string
}

// Eval evaluates the vector expressions in the given context.
//
func (v *Vector) Eval(ctx *hcl.EvalContext) (*Step, error) {
	var err error
	s := &Step{Pos: Pos(v.In.Range()), Cycles: 1}
	if s.In, err = pinValues(v.In, ctx); err != nil {
		return nil, err
	}
	if s.Expect, err = pinValues(v.Expect, ctx); err != nil {
		return nil, err
	}
	cv, diags := v.Cycles.Value(ctx)
	if diags.HasErrors() {
		return nil, errors.New(diags.Error())
	}
	if !cv.IsNull() {
		if err = gocty.FromCtyValue(cv, &s.Cycles); err != nil {
			return nil, errors.Wrapf(err, "%s: invalid cycles", Pos(v.Cycles.Range()))
		}
		if s.Cycles < 1 {
			return nil, errors.Errorf("%s: cycles must be at least 1, got %d", Pos(v.Cycles.Range()), s.Cycles)
		}
	}
	return s, nil
}

// Steps evaluates all the vectors of t.
//
func (t *Test) Steps(ctx *hcl.EvalContext) ([]*Step, error) {
	out := make([]*Step, 0, len(t.Vectors))
	for _, v := range t.Vectors {
		s, err := v.Eval(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func pinValues(expr hcl.Expression, ctx *hcl.EvalContext) (map[string]Value, error) {
	pos := Pos(expr.Range())
	v, diags := expr.Value(ctx)
	if diags.HasErrors() {
		return nil, errors.New(diags.Error())
	}
	if v.IsNull() || !v.IsKnown() {
		return nil, errors.Errorf("%s: missing pin values", pos)
	}
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, errors.Errorf("%s: expected an object of pin values, got %s", pos, ty.FriendlyName())
	}
	out := make(map[string]Value)
	for it := v.ElementIterator(); it.Next(); {
		k, ev := it.Element()
		name := k.AsString()
		if ev.IsNull() {
			return nil, errors.Errorf("%s: pin %s: null value", pos, name)
		}
		if ev.Type() == cty.Bool {
			val := Value{Bool: true}
			if ev.True() {
				val.N = 1
			}
			out[name] = val
			continue
		}
		n, err := convert.Convert(ev, cty.Number)
		if err != nil {
			return nil, errors.Errorf("%s: pin %s: expected bool or number, got %s", pos, name, ev.Type().FriendlyName())
		}
		var i int64
		if err = gocty.FromCtyValue(n, &i); err != nil {
			return nil, errors.Wrapf(err, "%s: pin %s", pos, name)
		}
		out[name] = Value{N: i}
	}
	return out, nil
}

// PinNames returns the sorted keys of a pin value map.
//
func PinNames(m map[string]Value) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
