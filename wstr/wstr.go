// Package wstr implements the engine's string type: an immutable sequence
// of UTF-16 code units stored narrow (one byte per unit) when every unit
// fits in Latin-1, and wide otherwise.
package wstr

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Str is an immutable engine string. The zero value is the empty string.
type Str struct {
	narrow []byte
	wide   []uint16
	isWide bool
}

// Empty is the shared empty string.
var Empty = &Str{}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

// New converts a UTF-8 Go string. The result is narrow when every code
// point is representable in Latin-1.
func New(s string) *Str {
	if s == "" {
		return Empty
	}
	narrow := make([]byte, 0, len(s))
	for _, r := range s {
		b, ok := charmap.ISO8859_1.EncodeRune(r)
		if !ok {
			return &Str{wide: utf16.Encode([]rune(s)), isWide: true}
		}
		narrow = append(narrow, b)
	}
	return &Str{narrow: narrow}
}

// FromLatin1 wraps a copy of Latin-1 bytes.
func FromLatin1(b []byte) *Str {
	if len(b) == 0 {
		return Empty
	}
	return &Str{narrow: append([]byte(nil), b...)}
}

// FromUnits builds a string from UTF-16 code units, narrowing when possible.
func FromUnits(units []uint16) *Str {
	if len(units) == 0 {
		return Empty
	}
	for _, u := range units {
		if u > 0xFF {
			return &Str{wide: append([]uint16(nil), units...), isWide: true}
		}
	}
	narrow := make([]byte, len(units))
	for i, u := range units {
		narrow[i] = byte(u)
	}
	return &Str{narrow: narrow}
}

// FromUTF16LE decodes little-endian UTF-16 bytes, honoring a leading BOM.
func FromUTF16LE(data []byte) (*Str, error) {
	dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	out, err := dec.Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("wstr: decode utf-16: %w", err)
	}
	return New(string(out)), nil
}

// Decode converts string bytes embedded in a document. Documents before
// version 6 store strings in the Windows-1252 code page; later ones use UTF-8.
func Decode(data []byte, swfVersion uint8) (*Str, error) {
	if swfVersion >= 6 {
		return New(string(data)), nil
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("wstr: decode ansi: %w", err)
	}
	return New(string(out)), nil
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Len returns the number of code units.
func (s *Str) Len() int {
	if s.isWide {
		return len(s.wide)
	}
	return len(s.narrow)
}

// IsWide reports whether the string is stored with 16-bit units.
func (s *Str) IsWide() bool { return s.isWide }

// At returns the code unit at index i.
func (s *Str) At(i int) uint16 {
	if s.isWide {
		return s.wide[i]
	}
	return uint16(s.narrow[i])
}

// Units returns a copy of the code units.
func (s *Str) Units() []uint16 {
	if s.isWide {
		return append([]uint16(nil), s.wide...)
	}
	out := make([]uint16, len(s.narrow))
	for i, b := range s.narrow {
		out[i] = uint16(b)
	}
	return out
}

// String returns the UTF-8 form. Unpaired surrogates become U+FFFD.
func (s *Str) String() string {
	if s == nil {
		return ""
	}
	if s.isWide {
		return string(utf16.Decode(s.wide))
	}
	var sb strings.Builder
	sb.Grow(len(s.narrow))
	for _, b := range s.narrow {
		sb.WriteRune(charmap.ISO8859_1.DecodeByte(b))
	}
	return sb.String()
}

// UTF16LE encodes the string as little-endian UTF-16 bytes without a BOM.
func (s *Str) UTF16LE() []byte {
	out := make([]byte, 2*s.Len())
	for i := 0; i < s.Len(); i++ {
		binary.LittleEndian.PutUint16(out[2*i:], s.At(i))
	}
	return out
}

// ---------------------------------------------------------------------------
// Comparison
// ---------------------------------------------------------------------------

// Equal reports code-unit equality.
func (s *Str) Equal(o *Str) bool {
	if s == o {
		return true
	}
	if s.Len() != o.Len() {
		return false
	}
	if !s.isWide && !o.isWide {
		return string(s.narrow) == string(o.narrow)
	}
	for i := 0; i < s.Len(); i++ {
		if s.At(i) != o.At(i) {
			return false
		}
	}
	return true
}

// EqualFold compares ignoring case for ASCII and Latin-1 letters.
func (s *Str) EqualFold(o *Str) bool {
	if s.Len() != o.Len() {
		return false
	}
	for i := 0; i < s.Len(); i++ {
		if foldUnit(s.At(i)) != foldUnit(o.At(i)) {
			return false
		}
	}
	return true
}

// Compare orders strings by code unit, returning -1, 0 or 1.
func (s *Str) Compare(o *Str) int {
	n := s.Len()
	if o.Len() < n {
		n = o.Len()
	}
	for i := 0; i < n; i++ {
		a, b := s.At(i), o.At(i)
		if a != b {
			if a < b {
				return -1
			}
			return 1
		}
	}
	switch {
	case s.Len() < o.Len():
		return -1
	case s.Len() > o.Len():
		return 1
	}
	return 0
}

// ---------------------------------------------------------------------------
// Derivation
// ---------------------------------------------------------------------------

// Concat returns s followed by o. A narrow result is kept narrow.
func (s *Str) Concat(o *Str) *Str {
	if s.Len() == 0 {
		return o
	}
	if o.Len() == 0 {
		return s
	}
	if !s.isWide && !o.isWide {
		b := make([]byte, 0, len(s.narrow)+len(o.narrow))
		b = append(b, s.narrow...)
		b = append(b, o.narrow...)
		return &Str{narrow: b}
	}
	w := make([]uint16, 0, s.Len()+o.Len())
	w = append(w, s.Units()...)
	w = append(w, o.Units()...)
	return &Str{wide: w, isWide: true}
}

// Builder accumulates strings without copying the prefix on every
// append. It stays narrow until a wide string is added. The zero value
// is ready to use.
type Builder struct {
	narrow []byte
	wide   []uint16
	isWide bool
}

// Len returns the number of code units appended so far.
func (b *Builder) Len() int {
	if b.isWide {
		return len(b.wide)
	}
	return len(b.narrow)
}

// Append adds s.
func (b *Builder) Append(s *Str) {
	if s.Len() == 0 {
		return
	}
	if !b.isWide && !s.isWide {
		b.narrow = append(b.narrow, s.narrow...)
		return
	}
	if !b.isWide {
		w := make([]uint16, len(b.narrow), len(b.narrow)+s.Len())
		for i, c := range b.narrow {
			w[i] = uint16(c)
		}
		b.narrow, b.wide, b.isWide = nil, w, true
	}
	b.wide = append(b.wide, s.Units()...)
}

// Str returns the accumulated string. Later appends do not change it.
func (b *Builder) Str() *Str {
	switch {
	case b.Len() == 0:
		return Empty
	case b.isWide:
		return &Str{wide: b.wide[:len(b.wide):len(b.wide)], isWide: true}
	}
	return &Str{narrow: b.narrow[:len(b.narrow):len(b.narrow)]}
}

// Slice returns units [start, end), clamped to the string bounds.
func (s *Str) Slice(start, end int) *Str {
	if start < 0 {
		start = 0
	}
	if end > s.Len() {
		end = s.Len()
	}
	if start >= end {
		return Empty
	}
	if s.isWide {
		return FromUnits(s.wide[start:end])
	}
	return &Str{narrow: s.narrow[start:end]}
}

// IndexOf returns the first index of sub at or after from, or -1.
func (s *Str) IndexOf(sub *Str, from int) int {
	if from < 0 {
		from = 0
	}
	for i := from; i+sub.Len() <= s.Len(); i++ {
		match := true
		for j := 0; j < sub.Len(); j++ {
			if s.At(i+j) != sub.At(j) {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// ToLower lowercases ASCII and Latin-1 letters.
func (s *Str) ToLower() *Str {
	return s.mapUnits(foldUnit)
}

// ToUpper uppercases ASCII and Latin-1 letters.
func (s *Str) ToUpper() *Str {
	return s.mapUnits(func(u uint16) uint16 {
		switch {
		case u >= 'a' && u <= 'z':
			return u - 0x20
		case u >= 0xE0 && u <= 0xFE && u != 0xF7:
			return u - 0x20
		}
		return u
	})
}

func (s *Str) mapUnits(f func(uint16) uint16) *Str {
	units := s.Units()
	for i, u := range units {
		units[i] = f(u)
	}
	return FromUnits(units)
}

func foldUnit(u uint16) uint16 {
	switch {
	case u >= 'A' && u <= 'Z':
		return u + 0x20
	case u >= 0xC0 && u <= 0xDE && u != 0xD7:
		return u + 0x20
	}
	return u
}
