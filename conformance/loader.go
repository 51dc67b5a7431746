// Package conformance runs YAML fixtures that pin down the observable
// behaviour of both dialects: preload ordering, scoping, argument
// binding and error codes. Programs are written in a small line-based
// assembly for each dialect and executed through a player.
package conformance

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed testdata/*.yaml
var fixtures embed.FS

// LoadedCase is a case with the suite and file it came from.
type LoadedCase struct {
	File  string
	Suite *Suite
	Case  Case
}

// LoadAll loads every embedded fixture.
func LoadAll() ([]LoadedCase, error) {
	return LoadFS(fixtures, "testdata")
}

// LoadFS loads every .yaml file in dir of fsys, in name order.
func LoadFS(fsys fs.FS, dir string) ([]LoadedCase, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var loaded []LoadedCase
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".yaml" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		suite, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		for _, c := range suite.Cases {
			loaded = append(loaded, LoadedCase{File: e.Name(), Suite: suite, Case: c})
		}
	}
	return loaded, nil
}

// Parse decodes one fixture file.
func Parse(data []byte) (*Suite, error) {
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	switch s.Dialect {
	case "avm1", "avm2":
	default:
		return nil, fmt.Errorf("suite %q: unknown dialect %q", s.Name, s.Dialect)
	}
	for _, c := range s.Cases {
		if c.Name == "" {
			return nil, fmt.Errorf("suite %q: case without a name", s.Name)
		}
	}
	return &s, nil
}
