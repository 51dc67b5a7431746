package avm2

// TraitKind is the member kind of a trait.
type TraitKind uint8

const (
	TraitSlot TraitKind = iota
	TraitMethod
	TraitGetter
	TraitSetter
	TraitClass
	TraitFunction
	TraitConst
)

var traitKindNames = [...]string{"slot", "method", "getter", "setter", "class", "function", "const"}

func (k TraitKind) String() string {
	if int(k) < len(traitKindNames) {
		return traitKindNames[k]
	}
	return "trait"
}

// Trait declares one member of a class, script or activation.
//
// Decoded traits refer to methods and classes by their index in the
// translation unit; Load fills Method and Class from those indices.
// Traits built by natives set the pointers directly.
type Trait struct {
	Name     QName     `cbor:"1,keyasint"`
	Kind     TraitKind `cbor:"2,keyasint"`
	SlotID   int       `cbor:"3,keyasint,omitempty"`
	Type     QName     `cbor:"4,keyasint,omitempty"`
	Default  *Constant `cbor:"5,keyasint,omitempty"`
	MethodID int       `cbor:"6,keyasint,omitempty"`
	ClassID  int       `cbor:"7,keyasint,omitempty"`
	Final    bool      `cbor:"8,keyasint,omitempty"`
	Override bool      `cbor:"9,keyasint,omitempty"`

	Method *Method   `cbor:"-"`
	Class  *ClassDef `cbor:"-"`
}

// isSlot reports whether the trait occupies a slot.
func (t *Trait) isSlot() bool {
	switch t.Kind {
	case TraitSlot, TraitConst, TraitClass, TraitFunction:
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Constants
// ---------------------------------------------------------------------------

// ConstantKind tags a constant-pool default value.
type ConstantKind uint8

const (
	ConstUndefined ConstantKind = iota
	ConstNull
	ConstTrue
	ConstFalse
	ConstInt
	ConstUint
	ConstDouble
	ConstString
	ConstNamespace
)

// Constant is a default value for optional parameters and slots.
type Constant struct {
	Kind ConstantKind `cbor:"1,keyasint"`
	Int  int64        `cbor:"2,keyasint,omitempty"`
	Num  float64      `cbor:"3,keyasint,omitempty"`
	Str  string       `cbor:"4,keyasint,omitempty"`
	NS   Namespace    `cbor:"5,keyasint,omitempty"`
}

func IntConstant(i int32) *Constant      { return &Constant{Kind: ConstInt, Int: int64(i)} }
func NumberConstant(n float64) *Constant { return &Constant{Kind: ConstDouble, Num: n} }
func StringConstant(s string) *Constant  { return &Constant{Kind: ConstString, Str: s} }
func BoolConstant(b bool) *Constant {
	if b {
		return &Constant{Kind: ConstTrue}
	}
	return &Constant{Kind: ConstFalse}
}

// Value converts the constant. Namespace constants need a VM to box them
// and are resolved by the caller.
func (c *Constant) Value() Value {
	if c == nil {
		return Undefined
	}
	switch c.Kind {
	case ConstNull:
		return Null
	case ConstTrue:
		return True
	case ConstFalse:
		return False
	case ConstInt:
		return Int(int32(c.Int))
	case ConstUint:
		return Uint(uint32(c.Int))
	case ConstDouble:
		return Number(c.Num)
	case ConstString:
		return Str(c.Str)
	}
	return Undefined
}
