// Package manifest handles avm.toml player configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the configuration file looked up by Load.
const FileName = "avm.toml"

// Default limits. They match the values the reference player ships with.
const (
	DefaultSWFVersion        = 10
	DefaultMaxRecursionDepth = 256
	DefaultMaxPrototypeDepth = 255
	DefaultMaxSpecialDepth   = 32
	DefaultExecutionTimeout  = 15 * time.Second
	DefaultCollectThreshold  = 4096
)

// Manifest represents an avm.toml configuration.
type Manifest struct {
	Player Player `toml:"player"`
	Limits Limits `toml:"limits"`
	Heap   Heap   `toml:"heap"`
	Log    Log    `toml:"log"`

	// Dir is the directory containing the avm.toml file (set at load time).
	Dir string `toml:"-"`
}

// Player contains the document-level defaults.
type Player struct {
	// SWFVersion is the version assumed for code that does not carry one.
	SWFVersion uint8 `toml:"swf_version"`
}

// Limits configures the engine's host-level guards.
type Limits struct {
	MaxRecursionDepth int    `toml:"max_recursion_depth"`
	MaxPrototypeDepth int    `toml:"max_prototype_depth"`
	MaxSpecialDepth   int    `toml:"max_special_depth"`
	ExecutionTimeout  string `toml:"execution_timeout"`

	timeout time.Duration
}

// Heap configures the collector.
type Heap struct {
	// CollectThreshold is the number of allocations between collections.
	CollectThreshold int `toml:"collect_threshold"`
}

// Log configures commonlog.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns a manifest with every default applied.
func Default() *Manifest {
	m := &Manifest{}
	if err := m.applyDefaults(); err != nil {
		// Defaults never fail to parse.
		panic(err)
	}
	return m
}

// Load parses an avm.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// Parse decodes configuration bytes and applies defaults.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if err := m.applyDefaults(); err != nil {
		return nil, err
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find an avm.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

func (m *Manifest) applyDefaults() error {
	if m.Player.SWFVersion == 0 {
		m.Player.SWFVersion = DefaultSWFVersion
	}
	if m.Limits.MaxRecursionDepth <= 0 {
		m.Limits.MaxRecursionDepth = DefaultMaxRecursionDepth
	}
	if m.Limits.MaxPrototypeDepth <= 0 {
		m.Limits.MaxPrototypeDepth = DefaultMaxPrototypeDepth
	}
	if m.Limits.MaxSpecialDepth <= 0 {
		m.Limits.MaxSpecialDepth = DefaultMaxSpecialDepth
	}
	if m.Heap.CollectThreshold <= 0 {
		m.Heap.CollectThreshold = DefaultCollectThreshold
	}

	m.Limits.timeout = DefaultExecutionTimeout
	if m.Limits.ExecutionTimeout != "" {
		d, err := time.ParseDuration(m.Limits.ExecutionTimeout)
		if err != nil {
			return fmt.Errorf("limits.execution_timeout: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("limits.execution_timeout must be positive, got %s", d)
		}
		m.Limits.timeout = d
	}
	return nil
}

// Timeout returns the parsed execution timeout.
func (l Limits) Timeout() time.Duration {
	if l.timeout == 0 {
		return DefaultExecutionTimeout
	}
	return l.timeout
}

// SetTimeout overrides the execution timeout (used by command-line flags).
func (l *Limits) SetTimeout(d time.Duration) {
	l.timeout = d
	l.ExecutionTimeout = d.String()
}
