package wstr

import "testing"

func TestNewPicksRepresentation(t *testing.T) {
	tests := []struct {
		in   string
		wide bool
		len  int
	}{
		{"", false, 0},
		{"hello", false, 5},
		{"café", false, 4},
		{"ÿ", false, 1},
		{"Ā", true, 1},
		{"日本", true, 2},
		{"😀", true, 2}, // surrogate pair
	}
	for _, tt := range tests {
		s := New(tt.in)
		if s.IsWide() != tt.wide {
			t.Errorf("New(%q).IsWide() = %v, want %v", tt.in, s.IsWide(), tt.wide)
		}
		if s.Len() != tt.len {
			t.Errorf("New(%q).Len() = %d, want %d", tt.in, s.Len(), tt.len)
		}
		if s.String() != tt.in {
			t.Errorf("New(%q).String() = %q", tt.in, s.String())
		}
	}
}

func TestFromUnitsNarrows(t *testing.T) {
	s := FromUnits([]uint16{'a', 0xE9})
	if s.IsWide() {
		t.Error("expected narrow string for Latin-1 units")
	}
	if s.String() != "aé" {
		t.Errorf("String() = %q, want aé", s.String())
	}
	w := FromUnits([]uint16{'a', 0x100})
	if !w.IsWide() {
		t.Error("expected wide string")
	}
}

func TestEqualAcrossRepresentations(t *testing.T) {
	narrow := New("abc")
	wide := &Str{wide: []uint16{'a', 'b', 'c'}, isWide: true}
	if !narrow.Equal(wide) || !wide.Equal(narrow) {
		t.Error("narrow and wide forms of the same units should be equal")
	}
	if narrow.Equal(New("abd")) {
		t.Error("abc should not equal abd")
	}
}

func TestEqualFold(t *testing.T) {
	if !New("onClipEvent").EqualFold(New("ONCLIPEVENT")) {
		t.Error("ASCII fold failed")
	}
	if !New("ÉTÉ").EqualFold(New("été")) {
		t.Error("Latin-1 fold failed")
	}
	if New("a").EqualFold(New("b")) {
		t.Error("a should not fold-equal b")
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"a", "b", -1},
		{"b", "a", 1},
		{"abc", "abc", 0},
		{"ab", "abc", -1},
		{"Z", "a", -1},
	}
	for _, tt := range tests {
		if got := New(tt.a).Compare(New(tt.b)); got != tt.want {
			t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestConcatAndSlice(t *testing.T) {
	s := New("foo").Concat(New("bar"))
	if s.String() != "foobar" || s.IsWide() {
		t.Errorf("Concat = %q (wide=%v)", s.String(), s.IsWide())
	}
	w := New("foo").Concat(New("日"))
	if !w.IsWide() || w.String() != "foo日" {
		t.Errorf("wide Concat = %q (wide=%v)", w.String(), w.IsWide())
	}
	if got := w.Slice(1, 3).String(); got != "oo" {
		t.Errorf("Slice(1,3) = %q, want oo", got)
	}
	if w.Slice(1, 3).IsWide() {
		t.Error("slice with only Latin-1 units should narrow")
	}
	if got := s.Slice(4, 100).String(); got != "ar" {
		t.Errorf("clamped Slice = %q, want ar", got)
	}
	if s.Slice(3, 2).Len() != 0 {
		t.Error("inverted slice should be empty")
	}
}

func TestBuilder(t *testing.T) {
	var b Builder
	if b.Str().Len() != 0 {
		t.Error("zero Builder should yield the empty string")
	}
	b.Append(New("ab"))
	b.Append(Empty)
	narrow := b.Str()
	if narrow.String() != "ab" || narrow.IsWide() {
		t.Errorf("narrow Str = %q (wide=%v)", narrow.String(), narrow.IsWide())
	}
	b.Append(New("日"))
	b.Append(New("c"))
	if got := b.Str(); got.String() != "ab日c" || !got.IsWide() || b.Len() != 4 {
		t.Errorf("wide Str = %q (wide=%v, len=%d)", got.String(), got.IsWide(), b.Len())
	}
	if narrow.String() != "ab" {
		t.Errorf("earlier Str changed to %q", narrow.String())
	}
}

func TestIndexOf(t *testing.T) {
	s := New("banana")
	if got := s.IndexOf(New("an"), 0); got != 1 {
		t.Errorf("IndexOf(an, 0) = %d, want 1", got)
	}
	if got := s.IndexOf(New("an"), 2); got != 3 {
		t.Errorf("IndexOf(an, 2) = %d, want 3", got)
	}
	if got := s.IndexOf(New("x"), 0); got != -1 {
		t.Errorf("IndexOf(x) = %d, want -1", got)
	}
}

func TestCaseMapping(t *testing.T) {
	if got := New("Hello É").ToLower().String(); got != "hello é" {
		t.Errorf("ToLower = %q", got)
	}
	if got := New("hello é").ToUpper().String(); got != "HELLO É" {
		t.Errorf("ToUpper = %q", got)
	}
}

func TestUTF16RoundTrip(t *testing.T) {
	s := New("a日")
	got, err := FromUTF16LE(s.UTF16LE())
	if err != nil {
		t.Fatalf("FromUTF16LE: %v", err)
	}
	if !got.Equal(s) {
		t.Errorf("round trip = %q, want %q", got.String(), s.String())
	}
	bom, err := FromUTF16LE([]byte{0xFF, 0xFE, 'x', 0})
	if err != nil {
		t.Fatalf("FromUTF16LE with BOM: %v", err)
	}
	if bom.String() != "x" {
		t.Errorf("BOM decode = %q, want x", bom.String())
	}
}

func TestDecodeByVersion(t *testing.T) {
	// 0x80 is the euro sign in Windows-1252.
	old, err := Decode([]byte{0x80}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if old.String() != "€" {
		t.Errorf("SWF5 decode = %q, want €", old.String())
	}
	modern, err := Decode([]byte("€"), 6)
	if err != nil {
		t.Fatal(err)
	}
	if modern.String() != "€" {
		t.Errorf("SWF6 decode = %q, want €", modern.String())
	}
}

func TestInterner(t *testing.T) {
	in := NewInterner()
	a := in.Intern("prototype")
	b := in.Intern("prototype")
	if a != b {
		t.Error("Intern should return the same instance")
	}
	if in.InternStr(New("prototype")) != a {
		t.Error("InternStr should return the canonical instance")
	}
	if _, ok := in.Lookup("missing"); ok {
		t.Error("Lookup should not create entries")
	}
	if in.Len() != 1 {
		t.Errorf("Len = %d, want 1", in.Len())
	}
}
