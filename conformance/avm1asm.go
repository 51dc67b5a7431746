package conformance

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/avmcore/avm1"
)

// ---------------------------------------------------------------------------
// AVM1 assembly
//
//	push "str", 1, 2.5, true, null, undefined, r:1, c:0
//	constants "a", "b"
//	store 1
//	settarget "/clip"
//	label loop / jump loop / if loop
//	function name(a, b) { ... }
//	function2 name(r1:a, b) regs=4 flags=preload_this|suppress_super { ... }
//	with { ... }
//	try [name | r:N] { ... } catch { ... } finally { ... }
//	<action name>
// ---------------------------------------------------------------------------

var function2Flags = map[string]avm1.Flags{
	"preload_this":       avm1.PreloadThis,
	"suppress_this":      avm1.SuppressThis,
	"preload_arguments":  avm1.PreloadArguments,
	"suppress_arguments": avm1.SuppressArguments,
	"preload_super":      avm1.PreloadSuper,
	"suppress_super":     avm1.SuppressSuper,
	"preload_root":       avm1.PreloadRoot,
	"preload_parent":     avm1.PreloadParent,
	"preload_global":     avm1.PreloadGlobal,
}

// AssembleActions assembles an action block.
func AssembleActions(text string) ([]byte, error) {
	b := avm1.NewActionBuilder()
	if err := assembleActions(newSource(text), b); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

type actionLabels struct {
	labels map[string]*avm1.Label
	placed map[string]bool
}

func (ls *actionLabels) get(name string) *avm1.Label {
	l, ok := ls.labels[name]
	if !ok {
		l = &avm1.Label{}
		ls.labels[name] = l
	}
	return l
}

func assembleActions(src *source, b *avm1.ActionBuilder) error {
	ls := &actionLabels{labels: make(map[string]*avm1.Label), placed: make(map[string]bool)}
	for l, ok := src.next(); ok; l, ok = src.next() {
		if err := assembleAction(src, b, ls, l); err != nil {
			return err
		}
	}
	for name := range ls.labels {
		if !ls.placed[name] {
			return fmt.Errorf("label %s is never placed", name)
		}
	}
	return nil
}

func assembleAction(src *source, b *avm1.ActionBuilder, ls *actionLabels, l line) error {
	op, rest := cut(l.text)
	switch strings.ToLower(op) {
	case "push":
		items, err := pushItems(rest)
		if err != nil {
			return l.errorf("%v", err)
		}
		b.Push(items...)
	case "constants":
		ops, err := splitOperands(rest)
		if err != nil {
			return l.errorf("%v", err)
		}
		strs := make([]string, len(ops))
		for i, o := range ops {
			if strs[i], err = unquote(o); err != nil {
				return l.errorf("%v", err)
			}
		}
		b.ConstantPool(strs...)
	case "store":
		n, err := strconv.ParseUint(rest, 10, 8)
		if err != nil {
			return l.errorf("bad register")
		}
		b.StoreRegister(uint8(n))
	case "settarget":
		path, err := unquote(rest)
		if err != nil {
			return l.errorf("%v", err)
		}
		b.SetTarget(path)
	case "label":
		if ls.placed[rest] {
			return l.errorf("label placed twice")
		}
		ls.placed[rest] = true
		b.Mark(ls.get(rest))
	case "jump":
		b.Jump(ls.get(rest))
	case "if":
		b.If(ls.get(rest))
	case "function":
		return assembleFunction(src, b, l, rest)
	case "function2":
		return assembleFunction2(src, b, l, rest)
	case "with":
		body, err := src.block(l)
		if err != nil {
			return err
		}
		var bodyErr error
		b.With(func(nb *avm1.ActionBuilder) { bodyErr = assembleActions(body, nb) })
		return bodyErr
	case "try":
		return assembleTry(src, b, l, rest)
	default:
		code, ok := avm1.ActionByName(op)
		if !ok || rest != "" {
			return l.errorf("unknown action")
		}
		b.Emit(code)
	}
	return nil
}

func pushItems(rest string) ([]avm1.PushItem, error) {
	ops, err := splitOperands(rest)
	if err != nil {
		return nil, err
	}
	items := make([]avm1.PushItem, 0, len(ops))
	for _, o := range ops {
		item, err := pushItem(o)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func pushItem(o string) (avm1.PushItem, error) {
	switch {
	case strings.HasPrefix(o, `"`):
		s, err := unquote(o)
		return avm1.PushString(s), err
	case o == "true" || o == "false":
		return avm1.PushBool(o == "true"), nil
	case o == "null":
		return avm1.PushNull(), nil
	case o == "undefined":
		return avm1.PushUndefined(), nil
	case strings.HasPrefix(o, "r:"):
		n, err := strconv.ParseUint(o[2:], 10, 8)
		return avm1.PushRegister(uint8(n)), err
	case strings.HasPrefix(o, "c:"):
		n, err := strconv.ParseUint(o[2:], 10, 16)
		return avm1.PushConstant(uint16(n)), err
	}
	if i, err := strconv.ParseInt(o, 10, 32); err == nil {
		return avm1.PushInt(int32(i)), nil
	}
	f, err := strconv.ParseFloat(o, 64)
	if err != nil {
		return nil, fmt.Errorf("bad push item %s", o)
	}
	return avm1.PushNumber(f), nil
}

func assembleFunction(src *source, b *avm1.ActionBuilder, l line, rest string) error {
	if !l.opensBlock() {
		return l.errorf("expected {")
	}
	name, params, _, err := header(rest)
	if err != nil {
		return l.errorf("%v", err)
	}
	body, err := src.block(l)
	if err != nil {
		return err
	}
	var bodyErr error
	b.DefineFunction(name, params, func(nb *avm1.ActionBuilder) { bodyErr = assembleActions(body, nb) })
	return bodyErr
}

func assembleFunction2(src *source, b *avm1.ActionBuilder, l line, rest string) error {
	if !l.opensBlock() {
		return l.errorf("expected {")
	}
	name, rawParams, options, err := header(rest)
	if err != nil {
		return l.errorf("%v", err)
	}
	params := make([]avm1.Param, len(rawParams))
	for i, p := range rawParams {
		if reg, pname, ok := strings.Cut(p, ":"); ok {
			n, err := strconv.ParseUint(strings.TrimPrefix(reg, "r"), 10, 8)
			if err != nil {
				return l.errorf("bad parameter register %s", reg)
			}
			params[i] = avm1.Param{Register: uint8(n), Name: pname}
			continue
		}
		params[i] = avm1.Param{Name: p}
	}
	var flags avm1.Flags
	if fs := options["flags"]; fs != "" {
		for _, f := range strings.Split(fs, "|") {
			bit, ok := function2Flags[f]
			if !ok {
				return l.errorf("unknown flag %s", f)
			}
			flags |= bit
		}
	}
	regs := uint64(4)
	if r, ok := options["regs"]; ok {
		if regs, err = strconv.ParseUint(r, 10, 8); err != nil {
			return l.errorf("bad register count")
		}
	}
	body, err := src.block(l)
	if err != nil {
		return err
	}
	var bodyErr error
	b.DefineFunction2(name, uint8(regs), flags, params, func(nb *avm1.ActionBuilder) { bodyErr = assembleActions(body, nb) })
	return bodyErr
}

func assembleTry(src *source, b *avm1.ActionBuilder, l line, rest string) error {
	if !l.opensBlock() {
		return l.errorf("expected {")
	}
	t := avm1.TryBlock{}
	switch target := strings.TrimSpace(strings.TrimSuffix(rest, "{")); {
	case strings.HasPrefix(target, "r:"):
		n, err := strconv.ParseUint(target[2:], 10, 8)
		if err != nil {
			return l.errorf("bad catch register")
		}
		t.UseRegister, t.CatchRegister = true, uint8(n)
	default:
		t.CatchName = target
	}

	var errs [3]error
	body, err := src.block(l)
	if err != nil {
		return err
	}
	t.Body = func(nb *avm1.ActionBuilder) { errs[0] = assembleActions(body, nb) }
	if next, ok := src.peek(); ok && next.text == "catch {" {
		src.next()
		catch, err := src.block(next)
		if err != nil {
			return err
		}
		t.Catch = func(nb *avm1.ActionBuilder) { errs[1] = assembleActions(catch, nb) }
	}
	if next, ok := src.peek(); ok && next.text == "finally {" {
		src.next()
		finally, err := src.block(next)
		if err != nil {
			return err
		}
		t.Finally = func(nb *avm1.ActionBuilder) { errs[2] = assembleActions(finally, nb) }
	}
	if t.Catch == nil && t.Finally == nil {
		return l.errorf("try without catch or finally")
	}
	b.Try(t)
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
