package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/avmcore/avm1"
	"github.com/chazu/avmcore/bundle"
	"github.com/chazu/avmcore/manifest"
)

func writeBundle(t *testing.T, dir, name string, blocks map[string]func(b *avm1.ActionBuilder)) string {
	t.Helper()
	b := bundle.New(name, 10)
	for _, n := range []string{"a", "b"} {
		emit, ok := blocks[n]
		if !ok {
			continue
		}
		ab := avm1.NewActionBuilder()
		emit(ab)
		b.AddActions(n, "", ab.Bytes())
	}
	path := filepath.Join(dir, name+bundle.Extension)
	if err := bundle.WriteFile(path, b); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	ok := writeBundle(t, dir, "ok", map[string]func(*avm1.ActionBuilder){
		"a": func(b *avm1.ActionBuilder) {
			b.Push(avm1.PushString("hello"))
			b.Emit(avm1.ActionTrace)
		},
	})
	throws := writeBundle(t, dir, "throws", map[string]func(*avm1.ActionBuilder){
		"a": func(b *avm1.ActionBuilder) {
			b.Push(avm1.PushString("bad"))
			b.Emit(avm1.ActionThrow)
		},
		"b": func(b *avm1.ActionBuilder) {
			b.Push(avm1.PushString("after"))
			b.Emit(avm1.ActionTrace)
		},
	})
	corrupt := filepath.Join(dir, "corrupt"+bundle.Extension)
	if err := os.WriteFile(corrupt, []byte("not a bundle"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		args     []string
		code     int
		stdout   []string
		stderr   string
		excluded []string
	}{
		{
			name:   "completed",
			args:   []string{"-C", dir, ok},
			code:   exitOK,
			stdout: []string{"hello", "avm1 a: completed", "1 units, 0 failed"},
		},
		{
			name:   "uncaught keeps running",
			args:   []string{"-C", dir, throws},
			code:   exitFailed,
			stdout: []string{"avm1 a: uncaught (", "bad", "after", "avm1 b: completed", "2 units, 1 failed"},
		},
		{
			name:     "quiet",
			args:     []string{"-C", dir, "-q", throws},
			code:     exitFailed,
			stdout:   []string{"avm1 a: uncaught"},
			excluded: []string{"avm1 b: completed"},
		},
		{
			name:   "unreadable bundle",
			args:   []string{"-C", dir, corrupt, ok},
			code:   exitBundle,
			stdout: []string{"hello"},
			stderr: "corrupt" + bundle.Extension,
		},
		{
			name:   "no bundles",
			args:   []string{"-C", dir},
			code:   exitUsage,
			stderr: "no bundles given",
		},
		{
			name:   "bad swf",
			args:   []string{"-swf", "300", ok},
			code:   exitUsage,
			stderr: "out of range",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(tt.args, &stdout, &stderr); code != tt.code {
				t.Errorf("exit %d, want %d\nstdout:\n%s\nstderr:\n%s", code, tt.code, stdout.String(), stderr.String())
			}
			for _, want := range tt.stdout {
				if !strings.Contains(stdout.String(), want) {
					t.Errorf("stdout missing %q:\n%s", want, stdout.String())
				}
			}
			for _, not := range tt.excluded {
				if strings.Contains(stdout.String(), not) {
					t.Errorf("stdout contains %q:\n%s", not, stdout.String())
				}
			}
			if !strings.Contains(stderr.String(), tt.stderr) {
				t.Errorf("stderr missing %q:\n%s", tt.stderr, stderr.String())
			}
		})
	}
}

func TestLoadManifestOverrides(t *testing.T) {
	dir := t.TempDir()
	toml := "[limits]\nmax_recursion_depth = 64\nexecution_timeout = \"3s\"\n"
	if err := os.WriteFile(filepath.Join(dir, manifest.FileName), []byte(toml), 0o644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "movies")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	c, err := parseFlags([]string{"-C", sub, "-max-recursion", "8", "-swf", "6", "x.avmb"}, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	m, err := loadManifest(c)
	if err != nil {
		t.Fatal(err)
	}
	if m.Dir != dir {
		t.Errorf("Dir = %q, want %q", m.Dir, dir)
	}
	if m.Limits.MaxRecursionDepth != 8 || m.Player.SWFVersion != 6 {
		t.Errorf("overrides not applied: %+v %+v", m.Limits, m.Player)
	}
	if m.Limits.Timeout().String() != "3s" {
		t.Errorf("timeout = %v, want manifest value", m.Limits.Timeout())
	}
}
