// Package config holds the compiler's tunable knobs: the CPU-to-target
// table (spec.md §6) and the warning/output settings the CLI exposes.
package config

import (
	"fmt"
	"runtime"
	"sort"

	"modernc.org/libqbe"
)

// cpuTargets is the fixed mapping from -cpu NAME to a QBE target
// triple. Unknown or unspecified names fall back to "generic" and the
// host triple (spec.md §6).
var cpuTargets = map[string]string{
	"x86-64":      "amd64_sysv",
	"x86-64-apple": "amd64_apple",
	"cortex-m3":   "arm",
	"cortex-a72":  "arm64",
	"apple-m1":    "arm64_apple",
	"neoverse-n1": "arm64",
	"rv64gc":      "rv64",
}

// Warning identifies a category of non-fatal diagnostic.
type Warning int

const (
	WarnUnknownCPU Warning = iota
	WarnImportCycle
	WarnOverflow
)

// Config carries the resolved target and output settings shared by the
// backend and the driver across one compilation run.
type Config struct {
	CPU           string
	TargetTriple  string
	WordSize      int // bytes
	OutputName    string
	PrintAST      bool
	PrintIR       bool
	TextualIR     bool // -ll
	Assembly      bool // -asm
	Benchmark     bool
	warnings      map[Warning]bool
}

// New builds a Config with the spec's defaults: output basename "out",
// no CPU selected (host triple via libqbe.DefaultTarget), all warnings
// enabled.
func New() *Config {
	return &Config{
		OutputName: "out",
		warnings: map[Warning]bool{
			WarnUnknownCPU:  true,
			WarnImportCycle: true,
			WarnOverflow:    true,
		},
	}
}

// ResolveCPU sets TargetTriple/WordSize from the requested CPU name,
// defaulting to the host triple for "" or an unrecognised name. It
// returns a non-empty warning message when the name was unrecognised
// and the WarnUnknownCPU warning is enabled, matching §7's "External"
// taxonomy entry: unknown CPU silently degrades, it does not abort.
func (c *Config) ResolveCPU(name string) (warning string) {
	c.CPU = name
	if name == "" {
		c.TargetTriple = libqbe.DefaultTarget(runtime.GOOS, runtime.GOARCH)
		c.WordSize = wordSizeForTriple(c.TargetTriple)
		return ""
	}
	if triple, ok := cpuTargets[name]; ok {
		c.TargetTriple = triple
		c.WordSize = wordSizeForTriple(triple)
		return ""
	}
	c.TargetTriple = libqbe.DefaultTarget(runtime.GOOS, runtime.GOARCH)
	c.WordSize = wordSizeForTriple(c.TargetTriple)
	if c.warnings[WarnUnknownCPU] {
		return fmt.Sprintf("unknown CPU %q, defaulting to 'generic' (%s)", name, c.TargetTriple)
	}
	return ""
}

func wordSizeForTriple(triple string) int {
	switch triple {
	case "arm", "rv32":
		return 4
	default:
		return 8
	}
}

// IsWarningEnabled reports whether w should be printed.
func (c *Config) IsWarningEnabled(w Warning) bool { return c.warnings[w] }

// SetWarning enables or disables w.
func (c *Config) SetWarning(w Warning, enabled bool) { c.warnings[w] = enabled }

// KnownCPUs returns the sorted set of CPU names understood by
// ResolveCPU.
func KnownCPUs() []string {
	names := make([]string, 0, len(cpuTargets))
	for n := range cpuTargets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
