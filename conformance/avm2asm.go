package conformance

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/avmcore/avm2"
)

// ---------------------------------------------------------------------------
// AVM2 assembly
//
//	<mnemonic> [operands]         e.g. callpropvoid trace 1
//	pushstring "s" / pushint 5 / pushdouble 2.5
//	name or pkg::name             multiname operands, public when unqualified
//	loop:                         places a label
//	iftrue loop                   branches take a label
//	lookupswitch default a b      targets must already be placed
//	catch from to target [Type]   registers an exception handler
//	newfunction name              closes over a declared function
// ---------------------------------------------------------------------------

type operandKind uint8

const (
	noOperands operandKind = iota
	nameOperand
	nameCountOperands
	intOperand
	intIntOperands
	branchOperand
)

var operandKinds = map[avm2.Op]operandKind{}

func init() {
	for _, op := range []avm2.Op{
		avm2.OpGetLex, avm2.OpFindPropStrict, avm2.OpFindProperty, avm2.OpFindDef,
		avm2.OpGetProperty, avm2.OpSetProperty, avm2.OpInitProperty, avm2.OpDeleteProperty,
		avm2.OpGetSuper, avm2.OpSetSuper, avm2.OpCoerce, avm2.OpAsType, avm2.OpIsType,
	} {
		operandKinds[op] = nameOperand
	}
	for _, op := range []avm2.Op{
		avm2.OpCallProperty, avm2.OpCallPropVoid, avm2.OpCallPropLex, avm2.OpConstructProp,
		avm2.OpCallSuper, avm2.OpCallSuperVoid,
	} {
		operandKinds[op] = nameCountOperands
	}
	for _, op := range []avm2.Op{
		avm2.OpCall, avm2.OpConstruct, avm2.OpConstructSuper, avm2.OpNewObject, avm2.OpNewArray,
		avm2.OpGetSlot, avm2.OpSetSlot, avm2.OpGetGlobalSlot, avm2.OpSetGlobalSlot, avm2.OpKill,
		avm2.OpIncLocal, avm2.OpDecLocal, avm2.OpIncLocalI, avm2.OpDecLocalI, avm2.OpNewCatch,
	} {
		operandKinds[op] = intOperand
	}
	for _, op := range []avm2.Op{avm2.OpCallMethod, avm2.OpCallStatic} {
		operandKinds[op] = intIntOperands
	}
	for _, op := range []avm2.Op{
		avm2.OpJump, avm2.OpIfTrue, avm2.OpIfFalse, avm2.OpIfEq, avm2.OpIfNe, avm2.OpIfLT,
		avm2.OpIfLE, avm2.OpIfGT, avm2.OpIfGE, avm2.OpIfStrictEq, avm2.OpIfStrictNe,
		avm2.OpIfNLT, avm2.OpIfNLE, avm2.OpIfNGT, avm2.OpIfNGE,
	} {
		operandKinds[op] = branchOperand
	}
}

var methodFlags = map[string]avm2.MethodFlags{
	"need_arguments":  avm2.NeedArguments,
	"need_activation": avm2.NeedActivation,
	"need_rest":       avm2.NeedRest,
}

// AssembleUnit builds a one-script translation unit. functions become
// function traits of the script; code is the body of its initializer,
// run with the global object pushed on the scope stack.
func AssembleUnit(name string, functions []Function, code string) (*avm2.TranslationUnit, error) {
	a := &unitAssembler{u: avm2.NewUnitBuilder(name), funcs: make(map[string]int)}
	var traits []avm2.Trait
	for _, f := range functions {
		m, err := a.function(f)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", f.Name, err)
		}
		id := a.u.Method(m)
		a.funcs[f.Name] = id
		traits = append(traits, avm2.Trait{Name: parseQName(f.Name), Kind: avm2.TraitFunction, MethodID: id})
	}
	body, err := a.body(newSource("getlocal_0\npushscope\n"+code+"\nreturnvoid"), 8)
	if err != nil {
		return nil, err
	}
	a.u.Script(&avm2.Method{Name: name, Body: body}, traits...)
	return a.u.Unit(), nil
}

type unitAssembler struct {
	u     *avm2.UnitBuilder
	funcs map[string]int
}

func (a *unitAssembler) function(f Function) (*avm2.Method, error) {
	m := &avm2.Method{Name: f.Name}
	for _, p := range f.Params {
		param := avm2.Param{Name: p.Name}
		if p.Type != "" {
			param.Type = parseQName(p.Type)
		}
		if p.Default != nil {
			c, err := constant(p.Default)
			if err != nil {
				return nil, fmt.Errorf("parameter %s: %w", p.Name, err)
			}
			param.Default = c
			m.Flags |= avm2.HasOptional
		}
		m.Params = append(m.Params, param)
	}
	for _, name := range f.Flags {
		bit, ok := methodFlags[name]
		if !ok {
			return nil, fmt.Errorf("unknown flag %s", name)
		}
		m.Flags |= bit
	}
	locals := f.Locals
	if locals == 0 {
		locals = len(f.Params) + 4
	}
	body, err := a.body(newSource(f.Code), locals)
	if err != nil {
		return nil, err
	}
	m.Body = body
	return m, nil
}

func constant(v any) (*avm2.Constant, error) {
	switch v := v.(type) {
	case int:
		return avm2.IntConstant(int32(v)), nil
	case float64:
		return avm2.NumberConstant(v), nil
	case string:
		return avm2.StringConstant(v), nil
	case bool:
		return avm2.BoolConstant(v), nil
	}
	return nil, fmt.Errorf("unsupported default %v", v)
}

// parseQName reads "pkg::name" or a public "name".
func parseQName(s string) avm2.QName {
	if ns, name, ok := strings.Cut(s, "::"); ok {
		return avm2.NewQName(ns, name)
	}
	return avm2.NewQName("", s)
}

func (a *unitAssembler) name(s string) int {
	if strings.Contains(s, "::") {
		return a.u.QName(parseQName(s))
	}
	return a.u.Public(s)
}

type codeLabels struct {
	labels map[string]*avm2.Label
}

func (ls *codeLabels) get(b *avm2.CodeBuilder, name string) *avm2.Label {
	l, ok := ls.labels[name]
	if !ok {
		l = b.NewLabel()
		ls.labels[name] = l
	}
	return l
}

type pendingCatch struct {
	l                line
	from, to, target string
	typ              avm2.QName
}

func (a *unitAssembler) body(src *source, locals int) (*avm2.MethodBody, error) {
	b := avm2.NewCodeBuilder()
	ls := &codeLabels{labels: make(map[string]*avm2.Label)}
	placed := make(map[string]bool)
	var catches []pendingCatch

	for l, ok := src.next(); ok; l, ok = src.next() {
		if name, isLabel := strings.CutSuffix(l.text, ":"); isLabel && !strings.ContainsAny(name, " :") {
			if placed[name] {
				return nil, l.errorf("label placed twice")
			}
			placed[name] = true
			b.Mark(ls.get(b, name))
			continue
		}
		mnemonic, rest := cut(l.text)
		if mnemonic == "catch" {
			f := strings.Fields(rest)
			if len(f) < 3 || len(f) > 4 {
				return nil, l.errorf("expected catch from to target [type]")
			}
			c := pendingCatch{l: l, from: f[0], to: f[1], target: f[2]}
			if len(f) == 4 {
				c.typ = parseQName(f[3])
			}
			catches = append(catches, c)
			continue
		}
		if err := a.instruction(b, ls, placed, l, mnemonic, rest); err != nil {
			return nil, err
		}
	}

	for name := range ls.labels {
		if !placed[name] {
			return nil, fmt.Errorf("label %s is never placed", name)
		}
	}
	for _, c := range catches {
		for _, name := range []string{c.from, c.to, c.target} {
			if !placed[name] {
				return nil, c.l.errorf("label %s is never placed", name)
			}
		}
		b.Catch(ls.labels[c.from], ls.labels[c.to], ls.labels[c.target], c.typ, avm2.QName{})
	}
	return b.Body(locals), nil
}

func (a *unitAssembler) instruction(b *avm2.CodeBuilder, ls *codeLabels, placed map[string]bool, l line, mnemonic, rest string) error {
	ops := strings.Fields(rest)
	ints := func(n int) ([]int, error) {
		if len(ops) != n {
			return nil, l.errorf("expected %d operands", n)
		}
		out := make([]int, n)
		for i, o := range ops {
			v, err := strconv.Atoi(o)
			if err != nil {
				return nil, l.errorf("bad operand %s", o)
			}
			out[i] = v
		}
		return out, nil
	}

	switch mnemonic {
	case "pushstring":
		s, err := unquote(rest)
		if err != nil {
			return l.errorf("%v", err)
		}
		b.PushString(a.u, s)
		return nil
	case "pushint", "pushbyte", "pushshort":
		n, err := strconv.ParseInt(rest, 10, 32)
		if err != nil {
			return l.errorf("bad integer")
		}
		b.PushInt(a.u, int32(n))
		return nil
	case "pushuint":
		n, err := strconv.ParseUint(rest, 10, 32)
		if err != nil {
			return l.errorf("bad integer")
		}
		b.Emit(avm2.OpPushUint, a.u.Uint(uint32(n)))
		return nil
	case "pushdouble":
		f, err := strconv.ParseFloat(rest, 64)
		if err != nil {
			return l.errorf("bad number")
		}
		b.PushDouble(a.u, f)
		return nil
	case "getlocal", "setlocal", "getscopeobject":
		v, err := ints(1)
		if err != nil {
			return err
		}
		switch mnemonic {
		case "getlocal":
			b.GetLocal(v[0])
		case "setlocal":
			b.SetLocal(v[0])
		default:
			b.GetScopeObject(v[0])
		}
		return nil
	case "newfunction":
		id, ok := a.funcs[rest]
		if !ok {
			return l.errorf("unknown function %s", rest)
		}
		b.Emit(avm2.OpNewFunction, id)
		return nil
	case "lookupswitch":
		if len(ops) < 2 {
			return l.errorf("expected default and case labels")
		}
		targets := make([]*avm2.Label, len(ops))
		for i, name := range ops {
			if !placed[name] {
				return l.errorf("lookupswitch target %s must be placed first", name)
			}
			targets[i] = ls.labels[name]
		}
		b.LookupSwitch(targets[0], targets[1:]...)
		return nil
	}

	op, ok := avm2.OpByName(mnemonic)
	if !ok {
		return l.errorf("unknown instruction")
	}
	switch operandKinds[op] {
	case nameOperand:
		if len(ops) != 1 {
			return l.errorf("expected a name")
		}
		b.Emit(op, a.name(ops[0]))
	case nameCountOperands:
		if len(ops) != 2 {
			return l.errorf("expected a name and an argument count")
		}
		n, err := strconv.Atoi(ops[1])
		if err != nil {
			return l.errorf("bad argument count")
		}
		b.Emit(op, a.name(ops[0]), n)
	case intOperand:
		v, err := ints(1)
		if err != nil {
			return err
		}
		b.Emit(op, v[0])
	case intIntOperands:
		v, err := ints(2)
		if err != nil {
			return err
		}
		b.Emit(op, v...)
	case branchOperand:
		if len(ops) != 1 {
			return l.errorf("expected a label")
		}
		b.Branch(op, ls.get(b, ops[0]))
	default:
		if len(ops) != 0 {
			return l.errorf("unexpected operands")
		}
		b.Ops(op)
	}
	return nil
}
