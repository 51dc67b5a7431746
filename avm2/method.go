package avm2

// MethodFlags are the method-info flags that shape the calling
// convention.
type MethodFlags uint8

const (
	NeedArguments  MethodFlags = 0x01
	NeedActivation MethodFlags = 0x02
	NeedRest       MethodFlags = 0x04
	HasOptional    MethodFlags = 0x08
	SetsDXNS       MethodFlags = 0x40
	HasParamNames  MethodFlags = 0x80
)

func (f MethodFlags) Has(bit MethodFlags) bool { return f&bit != 0 }

// Param is one declared parameter. A nil Default makes it required.
type Param struct {
	Name    string    `cbor:"1,keyasint,omitempty"`
	Type    QName     `cbor:"2,keyasint,omitempty"`
	Default *Constant `cbor:"3,keyasint,omitempty"`
}

// NativeFunc is the contract for host-implemented built-ins.
type NativeFunc func(a *Activation, this Value, args []Value) (Value, error)

// TableNativeFunc multiplexes several built-ins through one entry point
// selected by index.
type TableNativeFunc func(a *Activation, this Value, args []Value, index int) (Value, error)

// ExceptionHandler covers the code range [From, To) of a method body.
// A zero Type catches everything.
type ExceptionHandler struct {
	From    int   `cbor:"1,keyasint"`
	To      int   `cbor:"2,keyasint"`
	Target  int   `cbor:"3,keyasint"`
	Type    QName `cbor:"4,keyasint,omitempty"`
	VarName QName `cbor:"5,keyasint,omitempty"`
}

// MethodBody is the code of a script method.
type MethodBody struct {
	MaxStack   int                `cbor:"1,keyasint"`
	LocalCount int                `cbor:"2,keyasint"`
	MaxScope   int                `cbor:"3,keyasint,omitempty"`
	Code       []byte             `cbor:"4,keyasint"`
	Exceptions []ExceptionHandler `cbor:"5,keyasint,omitempty"`
	Traits     []Trait            `cbor:"6,keyasint,omitempty"`
}

// Method is an executable: a script body or a native entry point.
type Method struct {
	Name       string      `cbor:"1,keyasint,omitempty"`
	Params     []Param     `cbor:"2,keyasint,omitempty"`
	ReturnType QName       `cbor:"3,keyasint,omitempty"`
	Flags      MethodFlags `cbor:"4,keyasint,omitempty"`
	Body       *MethodBody `cbor:"5,keyasint,omitempty"`

	Native     NativeFunc      `cbor:"-"`
	Table      TableNativeFunc `cbor:"-"`
	TableIndex int             `cbor:"-"`

	unit         *TranslationUnit
	activationVT *VTable
}

// NewNative wraps a Go function as a method.
func NewNative(name string, fn NativeFunc) *Method {
	return &Method{Name: name, Native: fn}
}

// NewTableNative wraps entry index of a multiplexed native.
func NewTableNative(name string, fn TableNativeFunc, index int) *Method {
	return &Method{Name: name, Table: fn, TableIndex: index}
}

func (m *Method) IsNative() bool { return m.Native != nil || m.Table != nil }

func (m *Method) displayName() string {
	if m == nil || m.Name == "" {
		return "anonymous"
	}
	return m.Name
}

// requiredParams counts the parameters without defaults.
func (m *Method) requiredParams() int {
	n := 0
	for _, p := range m.Params {
		if p.Default == nil {
			n++
		}
	}
	return n
}
