// avm CLI - runs sealed script bundles on a fresh player
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/avmcore/bundle"
	"github.com/chazu/avmcore/manifest"
	"github.com/chazu/avmcore/player"
)

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
	exitBundle = 3
)

type config struct {
	dir       string
	verbosity int
	timeout   time.Duration
	recursion int
	swf       int
	quiet     bool
	paths     []string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (*config, error) {
	fs := flag.NewFlagSet("avm", flag.ContinueOnError)
	fs.SetOutput(stderr)
	c := &config{}
	fs.StringVar(&c.dir, "C", ".", "Directory to search upwards for "+manifest.FileName)
	fs.IntVar(&c.verbosity, "v", -1, "Log verbosity (overrides the manifest)")
	fs.DurationVar(&c.timeout, "timeout", 0, "Execution timeout (overrides the manifest)")
	fs.IntVar(&c.recursion, "max-recursion", 0, "Maximum call depth (overrides the manifest)")
	fs.IntVar(&c.swf, "swf", 0, "SWF version for blocks that do not carry one")
	fs.BoolVar(&c.quiet, "q", false, "Only print failing units")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: avm [options] bundle%s...\n\n", bundle.Extension)
		fmt.Fprintf(stderr, "Runs each bundle on its own player and reports every unit's outcome.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  avm movie.avmb                   # Run with avm.toml or defaults\n")
		fmt.Fprintf(stderr, "  avm -v 2 -timeout 5s movie.avmb  # Debug logging, 5 second budget\n")
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	c.paths = fs.Args()
	if len(c.paths) == 0 {
		fs.Usage()
		return nil, fmt.Errorf("no bundles given")
	}
	if c.swf < 0 || c.swf > 255 {
		return nil, fmt.Errorf("swf version %d out of range", c.swf)
	}
	return c, nil
}

// loadManifest finds avm.toml above dir and applies the flag overrides.
func loadManifest(c *config) (*manifest.Manifest, error) {
	m, err := manifest.FindAndLoad(c.dir)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = manifest.Default()
	}
	if c.verbosity >= 0 {
		m.Log.Verbosity = c.verbosity
	}
	if c.timeout > 0 {
		m.Limits.SetTimeout(c.timeout)
	}
	if c.recursion > 0 {
		m.Limits.MaxRecursionDepth = c.recursion
	}
	if c.swf > 0 {
		m.Player.SWFVersion = uint8(c.swf)
	}
	return m, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	c, err := parseFlags(args, stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return exitOK
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	m, err := loadManifest(c)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading %s: %v\n", manifest.FileName, err)
		return exitUsage
	}
	var logFile *string
	if m.Log.File != "" {
		logFile = &m.Log.File
	}
	commonlog.Configure(m.Log.Verbosity, logFile)

	opts := player.OptionsFromManifest(m)
	opts.Trace = func(s string) { fmt.Fprintln(stdout, s) }

	code := exitOK
	for _, path := range c.paths {
		b, err := bundle.ReadFile(path)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %s: %v\n", path, err)
			code = exitBundle
			continue
		}
		report, err := runBundle(opts, b)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %s: %v\n", path, err)
			code = exitBundle
			continue
		}
		printReport(stdout, path, report, c.quiet)
		if report.Failed() && code == exitOK {
			code = exitFailed
		}
	}
	return code
}

func runBundle(opts player.Options, b *bundle.Bundle) (*player.Report, error) {
	p, err := player.New(opts)
	if err != nil {
		return nil, err
	}
	defer p.Close()
	return p.RunBundle(b)
}

func printReport(w io.Writer, path string, r *player.Report, quiet bool) {
	failed := 0
	for _, u := range r.Results {
		if u.Outcome != player.Completed {
			failed++
		} else if quiet {
			continue
		}
		fmt.Fprintf(w, "%s: %s %s: %s", path, u.Dialect, u.Name, u.Outcome)
		switch {
		case u.Class != "":
			fmt.Fprintf(w, " (%s #%d: %s)", u.Class, u.Code, u.Message)
		case u.Code != 0:
			fmt.Fprintf(w, " (#%d: %s)", u.Code, u.Message)
		case u.Message != "":
			fmt.Fprintf(w, " (%s)", u.Message)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%s: %d units, %d failed, %d collections\n", path, len(r.Results), failed, len(r.Cycles))
}
