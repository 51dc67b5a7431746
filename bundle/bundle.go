// Package bundle defines the on-disk form of decoded script code: AVM1
// action blocks and AVM2 translation units, CBOR encoded and content
// hashed so a player can verify what it is about to run.
package bundle

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/avmcore/avm2"
)

// Extension is the file extension of encoded bundles.
const Extension = ".avmb"

// FormatVersion is bumped whenever the encoding changes incompatibly.
const FormatVersion = 1

var (
	// ErrHashMismatch is returned when a bundle's contents do not match
	// its recorded hash.
	ErrHashMismatch = errors.New("bundle: hash mismatch")
	// ErrUnsealed is returned when a bundle without a hash is verified.
	ErrUnsealed = errors.New("bundle: not sealed")
	// ErrFormat is returned for bundles written by an incompatible encoder.
	ErrFormat = errors.New("bundle: unsupported format version")
)

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bundle: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// ActionBlock is one block of timeline actions.
type ActionBlock struct {
	Name string `cbor:"1,keyasint"`
	// Target is the slash path of the clip the block runs on. Empty
	// means the root timeline.
	Target string `cbor:"2,keyasint,omitempty"`
	// Version overrides the bundle's SWF version for this block.
	Version uint8  `cbor:"3,keyasint,omitempty"`
	Code    []byte `cbor:"4,keyasint"`
}

// Bundle is the unit of code a player loads.
type Bundle struct {
	Format  int                     `cbor:"1,keyasint"`
	Name    string                  `cbor:"2,keyasint"`
	Version uint8                   `cbor:"3,keyasint,omitempty"`
	Actions []ActionBlock           `cbor:"4,keyasint,omitempty"`
	Units   []*avm2.TranslationUnit `cbor:"5,keyasint,omitempty"`
	Hash    [sha256.Size]byte       `cbor:"6,keyasint,omitempty"`
}

// New creates an empty bundle for documents of the given SWF version.
func New(name string, version uint8) *Bundle {
	return &Bundle{Format: FormatVersion, Name: name, Version: version}
}

// AddActions appends a block of timeline actions targeting the clip at
// path (the root when empty).
func (b *Bundle) AddActions(name, path string, code []byte) {
	b.Actions = append(b.Actions, ActionBlock{Name: name, Target: path, Code: code})
	b.Hash = [sha256.Size]byte{}
}

// AddUnit appends a translation unit.
func (b *Bundle) AddUnit(u *avm2.TranslationUnit) {
	b.Units = append(b.Units, u)
	b.Hash = [sha256.Size]byte{}
}

// Sealed reports whether the bundle carries a hash.
func (b *Bundle) Sealed() bool { return b.Hash != [sha256.Size]byte{} }

// ContentHash computes the hash of the bundle's contents. The stored
// hash does not take part.
func (b *Bundle) ContentHash() ([sha256.Size]byte, error) {
	c := *b
	c.Hash = [sha256.Size]byte{}
	data, err := encMode.Marshal(&c)
	if err != nil {
		return [sha256.Size]byte{}, fmt.Errorf("bundle: encode %s: %w", b.Name, err)
	}
	return sha256.Sum256(data), nil
}

// Seal records the content hash.
func (b *Bundle) Seal() error {
	h, err := b.ContentHash()
	if err != nil {
		return err
	}
	b.Hash = h
	return nil
}

// Verify checks the recorded hash against the contents.
func (b *Bundle) Verify() error {
	if b.Format != FormatVersion {
		return fmt.Errorf("%w: %d", ErrFormat, b.Format)
	}
	if !b.Sealed() {
		return ErrUnsealed
	}
	h, err := b.ContentHash()
	if err != nil {
		return err
	}
	if h != b.Hash {
		return fmt.Errorf("%w: %s: declared %x, computed %x", ErrHashMismatch, b.Name, b.Hash[:8], h[:8])
	}
	return nil
}

// Marshal seals b if needed and encodes it.
func Marshal(b *Bundle) ([]byte, error) {
	if !b.Sealed() {
		if err := b.Seal(); err != nil {
			return nil, err
		}
	}
	return encMode.Marshal(b)
}

// Unmarshal decodes a bundle. The hash is not checked; call Verify.
func Unmarshal(data []byte) (*Bundle, error) {
	var b Bundle
	if err := cbor.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("bundle: unmarshal: %w", err)
	}
	return &b, nil
}

// ReadFile decodes and verifies the bundle at path.
func ReadFile(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bundle: %w", err)
	}
	b, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := b.Verify(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// WriteFile seals and writes b to path.
func WriteFile(path string, b *Bundle) error {
	data, err := Marshal(b)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Equal reports whether two bundles have the same contents.
func Equal(a, b *Bundle) bool {
	ha, err := a.ContentHash()
	if err != nil {
		return false
	}
	hb, err := b.ContentHash()
	if err != nil {
		return false
	}
	return bytes.Equal(ha[:], hb[:])
}
