package wstr

import "sync"

// ---------------------------------------------------------------------------
// Interner: canonical string instances
// ---------------------------------------------------------------------------

// Interner maps UTF-8 text to one canonical *Str so that interned names
// compare by pointer. Each VM owns one.
type Interner struct {
	mu     sync.RWMutex
	byText map[string]*Str
}

// NewInterner creates an empty interner.
func NewInterner() *Interner {
	return &Interner{byText: make(map[string]*Str, 256)}
}

// Intern returns the canonical instance for text, creating it if needed.
func (in *Interner) Intern(text string) *Str {
	// Fast path: read-only lookup
	in.mu.RLock()
	if s, ok := in.byText[text]; ok {
		in.mu.RUnlock()
		return s
	}
	in.mu.RUnlock()

	in.mu.Lock()
	defer in.mu.Unlock()

	// Double-check after acquiring write lock
	if s, ok := in.byText[text]; ok {
		return s
	}
	s := New(text)
	in.byText[text] = s
	return s
}

// InternStr returns the canonical instance equal to s.
func (in *Interner) InternStr(s *Str) *Str {
	return in.Intern(s.String())
}

// Lookup returns the canonical instance for text without creating one.
func (in *Interner) Lookup(text string) (*Str, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	s, ok := in.byText[text]
	return s, ok
}

// Len returns the number of interned strings.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.byText)
}
