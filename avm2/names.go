package avm2

import (
	"strings"
)

// ---------------------------------------------------------------------------
// Namespaces
// ---------------------------------------------------------------------------

// NamespaceKind distinguishes the namespace flavours of the constant pool.
type NamespaceKind uint8

const (
	NamespacePublic NamespaceKind = iota
	NamespacePackageInternal
	NamespaceProtected
	NamespaceExplicit
	NamespaceStaticProtected
	NamespacePrivate
)

var namespaceKindNames = [...]string{"public", "internal", "protected", "explicit", "static protected", "private"}

func (k NamespaceKind) String() string {
	if int(k) < len(namespaceKindNames) {
		return namespaceKindNames[k]
	}
	return "namespace"
}

// Namespace qualifies a name. Two namespaces are the same namespace when
// both kind and URI match; the decoder gives every private namespace a
// distinct URI.
type Namespace struct {
	Kind NamespaceKind `cbor:"1,keyasint"`
	URI  string        `cbor:"2,keyasint"`
}

// Public is the unnamed public package.
var Public = Namespace{Kind: NamespacePublic}

// PackageNamespace returns the public namespace of a package.
func PackageNamespace(uri string) Namespace {
	return Namespace{Kind: NamespacePublic, URI: uri}
}

func (ns Namespace) IsPublic() bool { return ns.Kind == NamespacePublic }

func (ns Namespace) String() string {
	if ns.Kind == NamespacePublic {
		return ns.URI
	}
	return ns.Kind.String() + " " + ns.URI
}

// ---------------------------------------------------------------------------
// QName
// ---------------------------------------------------------------------------

// QName is a fully qualified name: one namespace plus a local name.
type QName struct {
	NS   Namespace `cbor:"1,keyasint"`
	Name string    `cbor:"2,keyasint"`
}

// NewQName qualifies name with the public namespace of pkg.
func NewQName(pkg, name string) QName {
	return QName{NS: PackageNamespace(pkg), Name: name}
}

// ParseQName splits "pkg.sub::Name" or "pkg.sub.Name" into a public QName.
func ParseQName(s string) QName {
	if i := strings.LastIndex(s, "::"); i >= 0 {
		return NewQName(s[:i], s[i+2:])
	}
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return NewQName(s[:i], s[i+1:])
	}
	return NewQName("", s)
}

// IsAny reports whether q is the zero QName, used for the "*" type.
func (q QName) IsAny() bool { return q == QName{} }

// String renders the name the way error messages print it:
// flash.display::Sprite, or just the local name in the unnamed package.
func (q QName) String() string {
	if q.IsAny() {
		return "*"
	}
	if q.NS.URI == "" {
		return q.Name
	}
	return q.NS.URI + "::" + q.Name
}

// Multiname returns a compile-time multiname that matches exactly q.
func (q QName) Multiname() Multiname {
	return Multiname{Kind: MultinameQName, Name: q.Name, NS: []Namespace{q.NS}}
}

// ---------------------------------------------------------------------------
// Multiname
// ---------------------------------------------------------------------------

// MultinameKind says which parts of a multiname come from the constant
// pool and which are popped off the operand stack at run time.
type MultinameKind uint8

const (
	MultinameQName MultinameKind = iota
	MultinameRTQName
	MultinameRTQNameL
	MultinameMulti
	MultinameMultiL
)

// Multiname is a property reference that may match several qualified
// names: a local name looked up in a set of namespaces.
type Multiname struct {
	Kind      MultinameKind `cbor:"1,keyasint"`
	Name      string        `cbor:"2,keyasint,omitempty"`
	NS        []Namespace   `cbor:"3,keyasint,omitempty"`
	Attribute bool          `cbor:"4,keyasint,omitempty"`
}

// PublicName returns a multiname for name in the unnamed public package.
func PublicName(name string) Multiname {
	return Multiname{Kind: MultinameQName, Name: name, NS: []Namespace{Public}}
}

// HasRuntimeName reports whether the local name is popped at run time.
func (m Multiname) HasRuntimeName() bool {
	return m.Kind == MultinameRTQNameL || m.Kind == MultinameMultiL
}

// HasRuntimeNS reports whether the namespace is popped at run time.
func (m Multiname) HasRuntimeNS() bool {
	return m.Kind == MultinameRTQName || m.Kind == MultinameRTQNameL
}

// Resolved returns a copy with the run-time parts filled in.
func (m Multiname) Resolved(name string, ns *Namespace) Multiname {
	r := m
	if m.HasRuntimeName() {
		r.Name = name
	}
	if ns != nil {
		r.NS = []Namespace{*ns}
	}
	switch m.Kind {
	case MultinameRTQName, MultinameRTQNameL:
		r.Kind = MultinameQName
	case MultinameMultiL:
		r.Kind = MultinameMulti
	}
	return r
}

// Matches reports whether q is one of the names m stands for.
func (m Multiname) Matches(q QName) bool {
	if m.Name != q.Name {
		return false
	}
	for _, ns := range m.NS {
		if ns == q.NS {
			return true
		}
	}
	return false
}

// HasPublic reports whether dynamic properties can match m. Dynamic
// properties always live in the unnamed public namespace.
func (m Multiname) HasPublic() bool {
	for _, ns := range m.NS {
		if ns == Public {
			return true
		}
	}
	return false
}

// QNames enumerates the qualified names m can match, in namespace order.
func (m Multiname) QNames() []QName {
	out := make([]QName, len(m.NS))
	for i, ns := range m.NS {
		out[i] = QName{NS: ns, Name: m.Name}
	}
	return out
}

// String renders m for diagnostics. A single namespace prints as a
// qualified name; a namespace set prints the local name only.
func (m Multiname) String() string {
	if len(m.NS) == 1 {
		return QName{NS: m.NS[0], Name: m.Name}.String()
	}
	return m.Name
}
