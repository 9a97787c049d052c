package stosh

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"stosh/internal/errs"
	"stosh/internal/native"
)

type valueKind uint8

const (
	kindInvalid valueKind = iota
	kindBool
	kindInt
	kindUint
	kindFloat
	kindString
)

// Value is a scalar sampler option: a bool, integer, float or text.
type Value struct {
	kind valueKind
	b    bool
	i    int64
	u    uint64
	f    float64
	s    string
}

func Bool(v bool) Value     { return Value{kind: kindBool, b: v} }
func Int(v int64) Value     { return Value{kind: kindInt, i: v} }
func Uint(v uint64) Value   { return Value{kind: kindUint, u: v} }
func Float(v float64) Value { return Value{kind: kindFloat, f: v} }
func String(v string) Value { return Value{kind: kindString, s: v} }

// IsValid reports whether v was built by one of the constructors.
func (v Value) IsValid() bool { return v.kind != kindInvalid }

// Text returns the canonical text form passed across the native boundary:
// "true"/"false" for booleans, shortest decimal for numbers, text unchanged.
func (v Value) Text() string {
	switch v.kind {
	case kindBool:
		if v.b {
			return "true"
		}
		return "false"
	case kindInt:
		return strconv.FormatInt(v.i, 10)
	case kindUint:
		return strconv.FormatUint(v.u, 10)
	case kindFloat:
		switch {
		case math.IsNaN(v.f):
			return "nan"
		case math.IsInf(v.f, 1):
			return "inf"
		case math.IsInf(v.f, -1):
			return "-inf"
		}
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case kindString:
		return v.s
	}
	return ""
}

func (v Value) String() string { return v.Text() }

// ValueOf converts a loosely typed scalar. Integral float64 values (as
// produced by JSON decoding) become integers.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case Value:
		if !t.IsValid() {
			return Value{}, errs.New(errs.ErrInvalidInput, "zero Value")
		}
		return t, nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return Uint(uint64(t)), nil
	case uint8:
		return Uint(uint64(t)), nil
	case uint16:
		return Uint(uint64(t)), nil
	case uint32:
		return Uint(uint64(t)), nil
	case uint64:
		return Uint(t), nil
	case float32:
		return floatValue(float64(t)), nil
	case float64:
		return floatValue(t), nil
	case string:
		return String(t), nil
	case fmt.Stringer:
		return String(t.String()), nil
	}
	return Value{}, errs.Newf(errs.ErrInvalidInput, "unsupported parameter type %T", x)
}

func floatValue(f float64) Value {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return Int(int64(f))
	}
	return Float(f)
}

// Params is an ordered mapping of option name to scalar Value. The zero
// value is an empty, usable set. Setting an existing name replaces its value
// in place.
type Params struct {
	keys []string
	vals map[string]Value
}

// Pair is one marshalled key/value text pair.
type Pair struct {
	Key   string
	Value string
}

// Set stores v under name and returns p for chaining.
func (p *Params) Set(name string, v Value) *Params {
	if p.vals == nil {
		p.vals = make(map[string]Value)
	}
	if _, ok := p.vals[name]; !ok {
		p.keys = append(p.keys, name)
	}
	p.vals[name] = v
	return p
}

// Get returns the value stored under name.
func (p Params) Get(name string) (Value, bool) {
	v, ok := p.vals[name]
	return v, ok
}

// Len returns the number of options.
func (p Params) Len() int { return len(p.keys) }

// Keys returns the option names in insertion order.
func (p Params) Keys() []string { return append([]string(nil), p.keys...) }

// Pairs returns the canonical text pairs in insertion order.
func (p Params) Pairs() []Pair {
	out := make([]Pair, 0, len(p.keys))
	for _, k := range p.keys {
		out = append(out, Pair{Key: k, Value: p.vals[k].Text()})
	}
	return out
}

// ParamsFromMap builds Params from loosely typed input such as decoded JSON.
// Names are ordered lexically since map order is unspecified.
func ParamsFromMap(m map[string]any) (Params, error) {
	var p Params
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := ValueOf(m[k])
		if err != nil {
			return Params{}, fmt.Errorf("parameter %q: %w", k, err)
		}
		p.Set(k, v)
	}
	return p, nil
}

// ParseParam parses "name=value" as given on a command line, inferring bool,
// integer and float values; anything else is text.
func ParseParam(s string) (string, Value, error) {
	name, raw, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", Value{}, errs.Newf(errs.ErrInvalidInput, "parameter must be name=value: %q", s)
	}
	switch raw {
	case "true":
		return name, Bool(true), nil
	case "false":
		return name, Bool(false), nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return name, Int(i), nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return name, Float(f), nil
	}
	return name, String(raw), nil
}

// marshal converts p to the parallel text arrays the native call takes.
// The result is built per call and never stored.
func (p Params) marshal() (native.Args, error) {
	args := native.Args{
		Keys:   make([]string, 0, len(p.keys)),
		Values: make([]string, 0, len(p.keys)),
	}
	for _, k := range p.keys {
		v := p.vals[k]
		if k == "" {
			return native.Args{}, errs.New(errs.ErrInvalidInput, "parameter name is empty")
		}
		if !v.IsValid() {
			return native.Args{}, errs.Newf(errs.ErrInvalidInput, "parameter %q has no value", k)
		}
		text := v.Text()
		if strings.IndexByte(k, 0) >= 0 || strings.IndexByte(text, 0) >= 0 {
			return native.Args{}, errs.Newf(errs.ErrInvalidInput, "parameter %q contains a NUL byte", k)
		}
		args.Keys = append(args.Keys, k)
		args.Values = append(args.Values, text)
	}
	return args, nil
}
