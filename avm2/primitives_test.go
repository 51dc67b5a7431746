package avm2

import (
	"testing"
)

func TestBuiltinPrimitives(t *testing.T) {
	tests := []struct {
		name string
		emit func(p *program)
		want string
	}{
		{"Math.max", func(p *program) {
			p.b.Emit(OpGetLex, p.u.Public("Math"))
			p.b.PushInt(p.u, 1)
			p.b.PushInt(p.u, 5)
			p.b.PushInt(p.u, 3)
			p.b.Emit(OpCallProperty, p.u.Public("max"), 3)
		}, "5"},
		{"Math.floor", func(p *program) {
			p.b.Emit(OpGetLex, p.u.Public("Math"))
			p.b.PushDouble(p.u, -1.5)
			p.b.Emit(OpCallProperty, p.u.Public("floor"), 1)
		}, "-2"},
		{"String.toUpperCase", func(p *program) {
			p.b.PushString(p.u, "hello")
			p.b.Emit(OpCallProperty, p.u.Public("toUpperCase"), 0)
		}, "HELLO"},
		{"String.length", func(p *program) {
			p.b.PushString(p.u, "hello")
			p.b.Emit(OpGetProperty, p.u.Public("length"))
		}, "5"},
		{"String.substr", func(p *program) {
			p.b.PushString(p.u, "abcdef")
			p.b.PushInt(p.u, -3)
			p.b.PushInt(p.u, 2)
			p.b.Emit(OpCallProperty, p.u.Public("substr"), 2)
		}, "de"},
		{"String.split", func(p *program) {
			p.b.PushString(p.u, "a,b,c")
			p.b.PushString(p.u, ",")
			p.b.Emit(OpCallProperty, p.u.Public("split"), 1)
			p.b.Emit(OpGetProperty, p.u.Public("length"))
		}, "3"},
		{"Array.sort.join", func(p *program) {
			p.b.PushInt(p.u, 10)
			p.b.PushInt(p.u, 9)
			p.b.PushInt(p.u, 1)
			p.b.Emit(OpNewArray, 3)
			p.b.Emit(OpCallProperty, p.u.Public("sort"), 0)
			p.b.PushString(p.u, "-")
			p.b.Emit(OpCallProperty, p.u.Public("join"), 1)
		}, "1-10-9"},
		{"Array.sort numeric", func(p *program) {
			p.b.PushInt(p.u, 10)
			p.b.PushInt(p.u, 9)
			p.b.PushInt(p.u, 1)
			p.b.Emit(OpNewArray, 3)
			p.b.PushInt(p.u, sortNumeric|sortDescending)
			p.b.Emit(OpCallProperty, p.u.Public("sort"), 1)
		}, "10,9,1"},
		{"Array.push", func(p *program) {
			p.b.Emit(OpNewArray, 0)
			p.b.PushString(p.u, "x")
			p.b.PushString(p.u, "y")
			p.b.Emit(OpCallProperty, p.u.Public("push"), 2)
		}, "2"},
		{"Number.toString radix", func(p *program) {
			p.b.PushInt(p.u, 255)
			p.b.PushInt(p.u, 16)
			p.b.Emit(OpCallProperty, p.u.Public("toString"), 1)
		}, "ff"},
		{"Number.toFixed", func(p *program) {
			p.b.PushDouble(p.u, 3.14159)
			p.b.PushInt(p.u, 2)
			p.b.Emit(OpCallProperty, p.u.Public("toFixed"), 1)
		}, "3.14"},
		{"parseInt hex", func(p *program) {
			p.b.Emit(OpFindPropStrict, p.u.Public("parseInt"))
			p.b.PushString(p.u, "0x1A")
			p.b.Emit(OpCallProperty, p.u.Public("parseInt"), 1)
		}, "26"},
		{"parseFloat prefix", func(p *program) {
			p.b.Emit(OpFindPropStrict, p.u.Public("parseFloat"))
			p.b.PushString(p.u, "  2.5e1px")
			p.b.Emit(OpCallProperty, p.u.Public("parseFloat"), 1)
		}, "25"},
		{"Error.toString", func(p *program) {
			p.b.Emit(OpFindPropStrict, p.u.Public("Error"))
			p.b.PushString(p.u, "boom")
			p.b.Emit(OpConstructProp, p.u.Public("Error"), 1)
			p.b.Emit(OpCallProperty, p.u.Public("toString"), 0)
		}, "Error: boom"},
		{"TypeError name", func(p *program) {
			p.b.Emit(OpFindPropStrict, p.u.Public("TypeError"))
			p.b.Emit(OpConstructProp, p.u.Public("TypeError"), 0)
			p.b.Emit(OpGetProperty, p.u.Public("name"))
		}, "TypeError"},
		{"int conversion", func(p *program) {
			p.b.Emit(OpFindPropStrict, p.u.Public("int"))
			p.b.PushDouble(p.u, 3.99)
			p.b.Emit(OpCallProperty, p.u.Public("int"), 1)
		}, "3"},
		{"hasOwnProperty", func(p *program) {
			p.b.PushString(p.u, "k")
			p.b.PushInt(p.u, 1)
			p.b.Emit(OpNewObject, 1)
			p.b.PushString(p.u, "k")
			p.b.Emit(OpCallProperty, p.u.Public("hasOwnProperty"), 1)
		}, "true"},
		{"Function.apply", func(p *program) {
			p.b.Emit(OpGetLex, p.u.Public("Math"))
			p.b.Emit(OpGetProperty, p.u.Public("min"))
			p.b.Ops(OpPushNull)
			p.b.PushInt(p.u, 4)
			p.b.PushInt(p.u, 2)
			p.b.Emit(OpNewArray, 2)
			p.b.Emit(OpCallProperty, p.u.Public("apply"), 2)
		}, "2"},
		{"Namespace uri", func(p *program) {
			p.b.Emit(OpFindPropStrict, p.u.Public("Namespace"))
			p.b.PushString(p.u, "com.example")
			p.b.Emit(OpConstructProp, p.u.Public("Namespace"), 1)
			p.b.Emit(OpGetProperty, p.u.Public("uri"))
		}, "com.example"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm, out := newTestVM(t, Limits{})
			p := newProgram("primitives")
			p.trace(func() { tt.emit(p) })
			if err := p.run(vm); err != nil {
				t.Fatalf("Execute: %v", err)
			}
			expectTrace(t, out, tt.want)
		})
	}
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name  string
		emit  func(p *program)
		class string
		code  Code
	}{
		{"Math is not a function", func(p *program) {
			p.b.Emit(OpFindPropStrict, p.u.Public("Math"))
			p.b.Emit(OpCallProperty, p.u.Public("Math"), 0)
		}, "TypeError", CodeMathNotFunction},
		{"Math is not a constructor", func(p *program) {
			p.b.Emit(OpFindPropStrict, p.u.Public("Math"))
			p.b.Emit(OpConstructProp, p.u.Public("Math"), 0)
		}, "TypeError", CodeMathNotConstructor},
		{"negative array length", func(p *program) {
			p.b.Emit(OpFindPropStrict, p.u.Public("Array"))
			p.b.PushInt(p.u, -1)
			p.b.Emit(OpConstructProp, p.u.Public("Array"), 1)
		}, "RangeError", CodeArrayIndex},
		{"radix out of range", func(p *program) {
			p.b.PushInt(p.u, 10)
			p.b.PushInt(p.u, 99)
			p.b.Emit(OpCallProperty, p.u.Public("toString"), 1)
		}, "RangeError", CodePrecisionRange},
		{"apply with non-array", func(p *program) {
			p.b.Emit(OpGetLex, p.u.Public("parseInt"))
			p.b.Ops(OpPushNull)
			p.b.PushInt(p.u, 3)
			p.b.Emit(OpCallProperty, p.u.Public("apply"), 2)
		}, "TypeError", CodeApplyArray},
		{"native function is not a constructor", func(p *program) {
			p.b.Emit(OpGetLex, p.u.Public("parseInt"))
			p.b.Emit(OpConstruct, 0)
		}, "TypeError", CodeNotAConstructor},
		{"write to primitive", func(p *program) {
			p.b.PushString(p.u, "s")
			p.b.PushInt(p.u, 1)
			p.b.Emit(OpSetProperty, p.u.Public("foo"))
		}, "ReferenceError", CodeCannotCreateProperty},
		{"call on null", func(p *program) {
			p.b.Ops(OpPushNull)
			p.b.Emit(OpCallPropVoid, p.u.Public("foo"), 0)
		}, "TypeError", CodeNullReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm, _ := newTestVM(t, Limits{})
			p := newProgram("errors")
			tt.emit(p)
			expectThrown(t, p.run(vm), tt.class, tt.code)
		})
	}
}

func TestSparseArrays(t *testing.T) {
	// sparse pushes an array with value written at each key in order.
	sparse := func(p *program, writes ...[2]string) {
		p.b.Emit(OpNewArray, 0)
		for _, w := range writes {
			p.b.Ops(OpDup)
			p.b.PushString(p.u, w[1])
			p.b.Emit(OpSetProperty, p.u.Public(w[0]))
		}
	}
	tests := []struct {
		name string
		emit func(p *program)
		want string
	}{
		{"far write grows length", func(p *program) {
			sparse(p, [2]string{"3000000000", "x"})
			p.b.Emit(OpGetProperty, p.u.Public("length"))
		}, "3000000001"},
		{"length assignment", func(p *program) {
			sparse(p, [2]string{"length", "4000000000"})
			p.b.Emit(OpGetProperty, p.u.Public("length"))
		}, "4000000000"},
		{"join skips holes", func(p *program) {
			sparse(p, [2]string{"0", "a"}, [2]string{"3000000000", "b"})
			p.b.PushString(p.u, "")
			p.b.Emit(OpCallProperty, p.u.Public("join"), 1)
		}, "ab"},
		{"join renders trailing holes", func(p *program) {
			sparse(p, [2]string{"1", "a"}, [2]string{"length", "4"})
			p.b.Emit(OpCallProperty, p.u.Public("join"), 0)
		}, ",a,,"},
		{"truncate drops far entries", func(p *program) {
			sparse(p, [2]string{"0", "a"}, [2]string{"3000000000", "b"}, [2]string{"length", "1"})
			p.b.Emit(OpCallProperty, p.u.Public("toString"), 0)
		}, "a"},
		{"pop reads the far entry", func(p *program) {
			sparse(p, [2]string{"5000000", "z"})
			p.b.Emit(OpCallProperty, p.u.Public("pop"), 0)
		}, "z"},
		{"slice of sparse tail", func(p *program) {
			sparse(p, [2]string{"0", "a"}, [2]string{"2000000000", "b"})
			p.b.PushInt(p.u, -2)
			p.b.Emit(OpCallProperty, p.u.Public("slice"), 1)
			p.b.Emit(OpCallProperty, p.u.Public("toString"), 0)
		}, ",b"},
		{"splice shifts sparse entries", func(p *program) {
			sparse(p, [2]string{"0", "a"}, [2]string{"2000000000", "b"})
			p.b.Ops(OpDup)
			p.b.PushInt(p.u, 0)
			p.b.PushInt(p.u, 1)
			p.b.Emit(OpCallPropVoid, p.u.Public("splice"), 2)
			p.b.Emit(OpGetProperty, p.u.Public("1999999999"))
		}, "b"},
		{"reverse moves far entries", func(p *program) {
			sparse(p, [2]string{"0", "a"}, [2]string{"length", "1000000000"})
			p.b.Emit(OpCallProperty, p.u.Public("reverse"), 0)
			p.b.Emit(OpGetProperty, p.u.Public("999999999"))
		}, "a"},
		{"concat offsets past holes", func(p *program) {
			sparse(p, [2]string{"length", "1000000000"})
			p.b.PushString(p.u, "z")
			p.b.Emit(OpCallProperty, p.u.Public("concat"), 1)
			p.b.Emit(OpGetProperty, p.u.Public("1000000000"))
		}, "z"},
		{"sort gathers entries at the front", func(p *program) {
			sparse(p, [2]string{"3000", "b"}, [2]string{"0", "c"}, [2]string{"9000000", "a"})
			p.b.Emit(OpCallProperty, p.u.Public("sort"), 0)
			p.b.Emit(OpGetProperty, p.u.Public("1"))
		}, "b"},
		{"indexOf finds the far entry", func(p *program) {
			sparse(p, [2]string{"7000000", "q"})
			p.b.PushString(p.u, "q")
			p.b.Emit(OpCallProperty, p.u.Public("indexOf"), 1)
		}, "7000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm, out := newTestVM(t, Limits{})
			p := newProgram("sparse")
			p.trace(func() { tt.emit(p) })
			if err := p.run(vm); err != nil {
				t.Fatalf("Execute: %v", err)
			}
			expectTrace(t, out, tt.want)
		})
	}
}

func TestArrayResourceLimits(t *testing.T) {
	huge := func(p *program) {
		p.b.Emit(OpNewArray, 0)
		p.b.Ops(OpDup)
		p.b.PushString(p.u, "4000000000")
		p.b.Emit(OpSetProperty, p.u.Public("length"))
	}
	tests := []struct {
		name string
		emit func(p *program)
	}{
		{"join with a separator", func(p *program) {
			huge(p)
			p.b.PushString(p.u, "-")
			p.b.Emit(OpCallPropVoid, p.u.Public("join"), 1)
		}},
		{"apply", func(p *program) {
			p.b.Emit(OpGetLex, p.u.Public("Math"))
			p.b.Emit(OpGetProperty, p.u.Public("max"))
			p.b.Ops(OpPushNull)
			huge(p)
			p.b.Emit(OpCallPropVoid, p.u.Public("apply"), 2)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm, _ := newTestVM(t, Limits{})
			p := newProgram("limits")
			tt.emit(p)
			expectHostError(t, p.run(vm), CodeOutOfMemory)
		})
	}
}
