package avm2

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Error classes and codes
// ---------------------------------------------------------------------------

// ErrorClass names the built-in error class a code is thrown as.
type ErrorClass uint8

const (
	GenericError ErrorClass = iota
	RangeError
	ReferenceError
	TypeError
	ArgumentError
	IOError
	VerifyError
	SyntaxError
	URIError
	EOFError
	SecurityError
	DefinitionError
	EvalError
	UninitializedError
	IllegalOperationError
)

var errorClassNames = [...]string{
	"Error", "RangeError", "ReferenceError", "TypeError", "ArgumentError",
	"IOError", "VerifyError", "SyntaxError", "URIError", "EOFError",
	"SecurityError", "DefinitionError", "EvalError", "UninitializedError",
	"IllegalOperationError",
}

func (c ErrorClass) String() string {
	if int(c) < len(errorClassNames) {
		return errorClassNames[c]
	}
	return "Error"
}

// QName returns the qualified name of the class.
func (c ErrorClass) QName() QName {
	switch c {
	case IOError, EOFError, IllegalOperationError:
		return NewQName("flash.errors", c.String())
	}
	return NewQName("", c.String())
}

// Code is a stable error number. Scripts match on these, so they never
// change meaning.
type Code uint16

const (
	CodeOutOfMemory              Code = 1000
	CodePrecisionRange           Code = 1002
	CodeArrayIndex               Code = 1005
	CodeNotAFunction             Code = 1006
	CodeNullReference            Code = 1009
	CodeUndefinedReference       Code = 1010
	CodeIllegalOpcode            Code = 1011
	CodeClassNotFound            Code = 1014
	CodeScopeStackUnderflow      Code = 1018
	CodeScopeObjectBounds        Code = 1019
	CodeFallOffEnd               Code = 1020
	CodeBranchTarget             Code = 1021
	CodeStackOverflow            Code = 1023
	CodeStackUnderflow           Code = 1024
	CodeInvalidRegister          Code = 1025
	CodeSlotExceeds              Code = 1026
	CodeCpoolIndex               Code = 1032
	CodeTypeCoercion             Code = 1034
	CodeIllegalSuper             Code = 1035
	CodeAssignToMethod           Code = 1037
	CodeInstanceOfRHS            Code = 1040
	CodeIsTypeRHS                Code = 1041
	CodeCannotConvertToPrimitive Code = 1050
	CodeInvalidURI               Code = 1052
	CodeIllegalOverride          Code = 1053
	CodeCannotCreateProperty     Code = 1056
	CodeArgumentCount            Code = 1063
	CodeMethodNotConstructor     Code = 1064
	CodeUndefinedVariable        Code = 1065
	CodePropertyNotFound         Code = 1069
	CodeMethodNotFound           Code = 1070
	CodeWriteReadOnly            Code = 1074
	CodeMathNotFunction          Code = 1075
	CodeMathNotConstructor       Code = 1076
	CodeReadWriteOnly            Code = 1077
	CodeCannotExtend             Code = 1110
	CodeClassCoercionArgs        Code = 1112
	CodeNewActivationFlag        Code = 1113
	CodeNotAConstructor          Code = 1115
	CodeApplyArray               Code = 1116
	CodeCannotDelete             Code = 1120
	CodeIndexOutOfRange          Code = 1125
	CodeInvalidJSON              Code = 1132
	CodeScriptTimeout            Code = 1502
	CodeNullArgument             Code = 1507
	CodeInvalidArgument          Code = 1508
	CodeInvalidParam             Code = 2004
	CodeParamOutOfRange          Code = 2006
	CodeNullParameter            Code = 2007
	CodeCannotInstantiate        Code = 2012
	CodeEndOfFile                Code = 2030
	CodeStreamError              Code = 2032
	CodeSecuritySandbox          Code = 2048
)

type codeInfo struct {
	class    ErrorClass
	template string
}

var codeTable = map[Code]codeInfo{
	CodeOutOfMemory:              {GenericError, "The system is out of memory."},
	CodePrecisionRange:           {RangeError, "The %s argument must be between %s and %s; got %s."},
	CodeArrayIndex:               {RangeError, "Array index is not a positive integer (%s)."},
	CodeNotAFunction:             {TypeError, "%s is not a function."},
	CodeNullReference:            {TypeError, "Cannot access a property or method of a null object reference."},
	CodeUndefinedReference:       {TypeError, "A term is undefined and has no properties."},
	CodeIllegalOpcode:            {VerifyError, "Method %s contained illegal opcode %s at offset %s."},
	CodeClassNotFound:            {VerifyError, "Class %s could not be found."},
	CodeScopeStackUnderflow:      {VerifyError, "Scope stack underflow occurred."},
	CodeScopeObjectBounds:        {VerifyError, "Getscopeobject %s is out of bounds."},
	CodeFallOffEnd:               {VerifyError, "Code cannot fall off the end of a method."},
	CodeBranchTarget:             {VerifyError, "At least one branch target was not on a valid instruction in the method."},
	CodeStackOverflow:            {GenericError, "Stack overflow occurred."},
	CodeStackUnderflow:           {VerifyError, "Stack underflow occurred."},
	CodeInvalidRegister:          {VerifyError, "An invalid register %s was accessed."},
	CodeSlotExceeds:              {VerifyError, "Slot %s exceeds slotCount=%s of %s."},
	CodeCpoolIndex:               {VerifyError, "Cpool index %s is out of range %s."},
	CodeTypeCoercion:             {TypeError, "Type Coercion failed: cannot convert %s to %s."},
	CodeIllegalSuper:             {VerifyError, "Illegal super expression found in method %s."},
	CodeAssignToMethod:           {ReferenceError, "Cannot assign to a method %s on %s."},
	CodeInstanceOfRHS:            {TypeError, "The right-hand side of instanceof must be a class or function."},
	CodeIsTypeRHS:                {TypeError, "The right-hand side of operator must be a class."},
	CodeCannotConvertToPrimitive: {TypeError, "Cannot convert %s to primitive."},
	CodeInvalidURI:               {URIError, "Invalid URI passed to %s function."},
	CodeIllegalOverride:          {VerifyError, "Illegal override of %s in %s."},
	CodeCannotCreateProperty:     {ReferenceError, "Cannot create property %s on %s."},
	CodeArgumentCount:            {ArgumentError, "Argument count mismatch on %s. Expected %s, got %s."},
	CodeMethodNotConstructor:     {TypeError, "Cannot call method %s as constructor."},
	CodeUndefinedVariable:        {ReferenceError, "Variable %s is not defined."},
	CodePropertyNotFound:         {ReferenceError, "Property %s not found on %s and there is no default value."},
	CodeWriteReadOnly:            {ReferenceError, "Illegal write to read-only property %s on %s."},
	CodeMathNotFunction:          {TypeError, "Math is not a function."},
	CodeMathNotConstructor:       {TypeError, "Math is not a constructor."},
	CodeMethodNotFound:           {ReferenceError, "Method %s not found on %s"},
	CodeReadWriteOnly:            {ReferenceError, "Illegal read of write-only property %s on %s."},
	CodeCannotExtend:             {VerifyError, "%s cannot extend %s."},
	CodeClassCoercionArgs:        {ArgumentError, "Argument count mismatch on class coercion. Expected 1, got %s."},
	CodeNewActivationFlag:        {VerifyError, "OP_newactivation used in method without NEED_ACTIVATION flag."},
	CodeNotAConstructor:          {TypeError, "%s is not a constructor."},
	CodeApplyArray:               {TypeError, "second argument to Function.prototype.apply must be an array."},
	CodeCannotDelete:             {ReferenceError, "Cannot delete property %s on %s."},
	CodeIndexOutOfRange:          {RangeError, "The index %s is out of range %s."},
	CodeInvalidJSON:              {SyntaxError, "Invalid JSON parse input."},
	CodeScriptTimeout:            {GenericError, "A script has executed for longer than the default timeout period of 15 seconds."},
	CodeNullArgument:             {TypeError, "Argument %s cannot be null."},
	CodeInvalidArgument:          {ArgumentError, "The value specified for argument %s is invalid."},
	CodeInvalidParam:             {ArgumentError, "One of the parameters is invalid."},
	CodeParamOutOfRange:          {RangeError, "The supplied index is out of bounds."},
	CodeNullParameter:            {TypeError, "Parameter %s must be non-null."},
	CodeCannotInstantiate:        {ArgumentError, "%s class cannot be instantiated."},
	CodeEndOfFile:                {EOFError, "End of file was encountered."},
	CodeStreamError:              {IOError, "Stream Error."},
	CodeSecuritySandbox:          {SecurityError, "Security sandbox violation: %s cannot load data from %s."},
}

// Class returns the error class code is thrown as.
func (c Code) Class() ErrorClass {
	return codeTable[c].class
}

// Message formats the full message, e.g.
// "Error #1065: Variable foo is not defined.". Missing arguments print
// as empty strings.
func (c Code) Message(args ...any) string {
	info, ok := codeTable[c]
	if !ok {
		return fmt.Sprintf("Error #%d", c)
	}
	n := countVerbs(info.template)
	vals := make([]any, n)
	for i := range vals {
		if i < len(args) {
			vals[i] = fmt.Sprint(args[i])
		} else {
			vals[i] = ""
		}
	}
	return fmt.Sprintf("Error #%d: "+info.template, append([]any{int(c)}, vals...)...)
}

func countVerbs(s string) int {
	n := 0
	for i := 0; i+1 < len(s); i++ {
		if s[i] == '%' && s[i+1] == 's' {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// Engine error kinds
// ---------------------------------------------------------------------------

// Thrown carries a script value in flight. It is the only error an
// exception handler can catch.
type Thrown struct {
	Value Value
}

func (e *Thrown) Error() string {
	if info, ok := ErrorDetails(e.Value); ok {
		return "uncaught " + info.Class + ": " + info.Message
	}
	return "uncaught exception: " + e.Value.primitiveToString().String()
}

// HostError aborts the execution unit. Scripts never see it.
type HostError struct {
	Code Code
	Err  error
}

func (e *HostError) Error() string {
	switch {
	case e.Code != 0 && e.Err != nil:
		return fmt.Sprintf("avm2: %s: %v", e.Code.Message(), e.Err)
	case e.Code != 0:
		return "avm2: " + e.Code.Message()
	case e.Err != nil:
		return "avm2: " + e.Err.Error()
	}
	return "avm2: internal error"
}

func (e *HostError) Unwrap() error { return e.Err }

var (
	// ErrNotFinished is wrapped when script touches a class whose
	// construction has not completed.
	ErrNotFinished = errors.New("class is not finished")
	// ErrBootstrapped is returned when bootstrap runs twice on one VM.
	ErrBootstrapped = errors.New("vm is already bootstrapped")
)

func hostErrorf(code Code, format string, args ...any) error {
	return &HostError{Code: code, Err: fmt.Errorf(format, args...)}
}

// AsScriptedError extracts the thrown value without handling it.
func AsScriptedError(err error) (Value, bool) {
	var t *Thrown
	if errors.As(err, &t) {
		return t.Value, true
	}
	return Undefined, false
}

// IsHostError reports whether err is a host-level failure.
func IsHostError(err error) bool {
	var h *HostError
	return errors.As(err, &h)
}

// ErrorInfo describes a thrown error object for host diagnostics.
type ErrorInfo struct {
	Class   string
	Code    Code
	Message string
}

// ErrorDetails inspects v when it is an instance of a built-in error
// class.
func ErrorDetails(v Value) (ErrorInfo, bool) {
	o := v.AsObject()
	if o == nil || o.kind != ObjectError {
		return ErrorInfo{}, false
	}
	info := ErrorInfo{Code: o.errorID}
	if o.instanceOf != nil {
		info.Class = o.instanceOf.Name().Name
	}
	if p, ok := o.lookupDynamic("message"); ok && p.IsString() {
		info.Message = p.s.String()
	}
	return info, true
}

// ---------------------------------------------------------------------------
// Factories
// ---------------------------------------------------------------------------

// newError constructs an instance of the given error class and wraps it
// as a thrown value. Before bootstrap has published the class, the
// failure degrades to a host error carrying the same code.
func (a *Activation) newError(class ErrorClass, msg string, code Code) error {
	cls := a.vm.system.errorClass(class)
	if cls == nil || !cls.finished {
		return &HostError{Code: code, Err: fmt.Errorf("%s: %s (error classes not ready)", class, msg)}
	}
	o := a.vm.newErrorObject(cls, msg, code)
	return &Thrown{Value: ObjectValue(o)}
}

func NewError(a *Activation, msg string, code Code) error {
	return a.newError(GenericError, msg, code)
}
func NewRangeError(a *Activation, msg string, code Code) error {
	return a.newError(RangeError, msg, code)
}
func NewReferenceError(a *Activation, msg string, code Code) error {
	return a.newError(ReferenceError, msg, code)
}
func NewTypeError(a *Activation, msg string, code Code) error {
	return a.newError(TypeError, msg, code)
}
func NewArgumentError(a *Activation, msg string, code Code) error {
	return a.newError(ArgumentError, msg, code)
}
func NewIOError(a *Activation, msg string, code Code) error {
	return a.newError(IOError, msg, code)
}
func NewVerifyError(a *Activation, msg string, code Code) error {
	return a.newError(VerifyError, msg, code)
}
func NewSyntaxError(a *Activation, msg string, code Code) error {
	return a.newError(SyntaxError, msg, code)
}
func NewURIError(a *Activation, msg string, code Code) error {
	return a.newError(URIError, msg, code)
}
func NewEOFError(a *Activation, msg string, code Code) error {
	return a.newError(EOFError, msg, code)
}
func NewSecurityError(a *Activation, msg string, code Code) error {
	return a.newError(SecurityError, msg, code)
}

// Throw raises code with the class and message template from the table.
func (a *Activation) Throw(code Code, args ...any) error {
	return a.newError(code.Class(), code.Message(args...), code)
}
