package avm1

import (
	"errors"
	"fmt"
)

// Thrown carries a script value raised by ActionThrow. It is the only
// error an ActionTry block can catch.
type Thrown struct {
	Value Value
}

func (e *Thrown) Error() string {
	if o := e.Value.AsObject(); o != nil {
		if p := o.OwnProperty("message", false); p != nil && p.Value.IsString() {
			return "uncaught exception: " + p.Value.AsString().String()
		}
		if o.proto != nil {
			if p := o.proto.OwnProperty("message", false); p != nil && p.Value.IsString() {
				return "uncaught exception: " + p.Value.AsString().String()
			}
		}
		return "uncaught exception: [object]"
	}
	return "uncaught exception: " + e.Value.primitiveToString(7).String()
}

// HaltReason enumerates the host-level failures of dialect 1.
type HaltReason uint8

const (
	FunctionRecursionLimit HaltReason = iota
	PrototypeRecursionLimit
	SpecialRecursionLimit
	ExecutionTimeout
	InvalidBytecode
	InternalError
	ResourceLimit
)

var haltReasonNames = [...]string{
	"function recursion limit reached",
	"prototype recursion limit reached",
	"special recursion limit reached",
	"execution timeout",
	"invalid bytecode",
	"internal error",
	"resource limit exceeded",
}

func (r HaltReason) String() string {
	if int(r) < len(haltReasonNames) {
		return haltReasonNames[r]
	}
	return "unknown halt"
}

// HaltError aborts the execution unit. Scripts can never catch it.
type HaltError struct {
	Reason HaltReason
	Err    error
}

func (e *HaltError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("avm1: %s: %v", e.Reason, e.Err)
	}
	return "avm1: " + e.Reason.String()
}

func (e *HaltError) Unwrap() error { return e.Err }

// AsScriptedError extracts the thrown value without handling it.
func AsScriptedError(err error) (Value, bool) {
	var t *Thrown
	if errors.As(err, &t) {
		return t.Value, true
	}
	return Undefined, false
}

// IsHalt reports whether err is a host-level failure.
func IsHalt(err error) bool {
	var h *HaltError
	return errors.As(err, &h)
}

func invalidBytecode(format string, args ...any) error {
	return &HaltError{Reason: InvalidBytecode, Err: fmt.Errorf(format, args...)}
}
