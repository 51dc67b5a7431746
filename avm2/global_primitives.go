package avm2

import (
	"math"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Package-level functions and constants
// ---------------------------------------------------------------------------

func (vm *VM) registerGlobalPrimitives() error {
	vm.defineGlobal(NewQName("", "NaN"), Number(math.NaN()))
	vm.defineGlobal(NewQName("", "Infinity"), Number(math.Inf(1)))
	vm.defineGlobal(NewQName("", "undefined"), Undefined)
	for _, m := range []nativeMethod{
		{"trace", globalTrace},
		{"isNaN", globalIsNaN},
		{"isFinite", globalIsFinite},
		{"parseInt", globalParseInt},
		{"parseFloat", globalParseFloat},
	} {
		vm.defineGlobal(NewQName("", m.name), ObjectValue(vm.newNativeFunction(m.name, m.fn)))
	}
	return nil
}

// globalTrace writes its arguments, space separated, to the trace sink.
func globalTrace(a *Activation, this Value, args []Value) (Value, error) {
	parts := make([]string, len(args))
	for i, v := range args {
		s, err := a.ToString(v)
		if err != nil {
			return Undefined, err
		}
		parts[i] = s.String()
	}
	a.vm.emitTrace(strings.Join(parts, " "))
	return Undefined, nil
}

func globalIsNaN(a *Activation, this Value, args []Value) (Value, error) {
	n, err := a.ToNumber(arg(args, 0))
	return Bool(math.IsNaN(n)), err
}

func globalIsFinite(a *Activation, this Value, args []Value) (Value, error) {
	n, err := a.ToNumber(arg(args, 0))
	return Bool(!math.IsNaN(n) && !math.IsInf(n, 0)), err
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

// globalParseInt reads the longest integer prefix in the given radix.
// Radix 0 means 10, or 16 with a 0x prefix.
func globalParseInt(a *Activation, this Value, args []Value) (Value, error) {
	str, err := a.ToString(arg(args, 0))
	if err != nil {
		return Undefined, err
	}
	radix, err := a.ToInt32(arg(args, 1))
	if err != nil {
		return Undefined, err
	}
	s := strings.TrimLeftFunc(str.String(), func(r rune) bool { return r < 0x80 && isSpace(byte(r)) })
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	hex := len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
	switch {
	case radix == 0 && hex, radix == 16 && hex:
		radix, s = 16, s[2:]
	case radix == 0:
		radix = 10
	case radix < 2 || radix > 36:
		return Number(math.NaN()), nil
	}
	r, digits := 0.0, 0
	for ; digits < len(s); digits++ {
		d := digitValue(s[digits])
		if d >= int(radix) {
			break
		}
		r = r*float64(radix) + float64(d)
	}
	if digits == 0 {
		return Number(math.NaN()), nil
	}
	if neg {
		r = -r
	}
	return normalize(r), nil
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return 99
}

// globalParseFloat reads the longest decimal literal prefix.
func globalParseFloat(a *Activation, this Value, args []Value) (Value, error) {
	str, err := a.ToString(arg(args, 0))
	if err != nil {
		return Undefined, err
	}
	s := strings.TrimLeftFunc(str.String(), func(r rune) bool { return r < 0x80 && isSpace(byte(r)) })
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	if strings.HasPrefix(s[end:], "Infinity") {
		if s[0] == '-' {
			return Number(math.Inf(-1)), nil
		}
		return Number(math.Inf(1)), nil
	}
	digits := func() int {
		n := 0
		for end < len(s) && s[end] >= '0' && s[end] <= '9' {
			end++
			n++
		}
		return n
	}
	n := digits()
	if end < len(s) && s[end] == '.' {
		end++
		n += digits()
	}
	if n == 0 {
		return Number(math.NaN()), nil
	}
	if end < len(s) && (s[end] == 'e' || s[end] == 'E') {
		mark := end
		end++
		if end < len(s) && (s[end] == '-' || s[end] == '+') {
			end++
		}
		if digits() == 0 {
			end = mark
		}
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		// Out of range literals still parse to ±Inf.
		if ne, ok := err.(*strconv.NumError); !ok || ne.Err != strconv.ErrRange {
			return Number(math.NaN()), nil
		}
	}
	return normalize(f), nil
}
