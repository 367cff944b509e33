// Command emtest is a small golden-output test runner for the em
// compiler: it builds each testdata/*.em fixture with emc, runs the
// resulting binary, and compares its behaviour against a recorded
// golden file.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
)

// Golden is one fixture's recorded expectation, keyed by the xxhash of
// its actual output so a byte-identical rerun never needs the diff
// path at all.
type Golden struct {
	Stdout   string `json:"stdout"`
	ExitCode int    `json:"exitCode"`
	Hash     uint64 `json:"hash"`
}

var (
	emcPath        = flag.String("emc", "./emc", "path to the emc binary under test")
	testGlob       = flag.String("test-files", "testdata/*.em", "glob pattern for .em fixtures")
	goldenDir      = flag.String("golden-dir", "testdata/golden", "directory holding recorded golden files")
	generateGolden = flag.Bool("generate-golden", false, "record golden output for every matched fixture instead of comparing")
	timeout        = flag.Duration("timeout", 5*time.Second, "per-fixture timeout")
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	files, err := filepath.Glob(*testGlob)
	if err != nil {
		log.Fatalf("bad -test-files pattern: %v", err)
	}
	sort.Strings(files)
	if len(files) == 0 {
		log.Fatalf("no fixtures matched %q", *testGlob)
	}

	workDir, err := os.MkdirTemp("", "emtest-*")
	if err != nil {
		log.Fatalf("creating work dir: %v", err)
	}
	defer os.RemoveAll(workDir)

	failures := 0
	for _, f := range files {
		if *generateGolden {
			if err := recordGolden(f, workDir); err != nil {
				log.Printf("FAIL %s: %v", f, err)
				failures++
			} else {
				fmt.Printf("recorded %s\n", f)
			}
			continue
		}
		if err := runFixture(f, workDir); err != nil {
			log.Printf("FAIL %s: %v", f, err)
			failures++
		} else {
			fmt.Printf("PASS %s\n", f)
		}
	}

	if failures > 0 {
		log.Fatalf("%d/%d fixtures failed", failures, len(files))
	}
}

func goldenPath(src string) string {
	return filepath.Join(*goldenDir, filepath.Base(src)+".golden.json")
}

func build(src, workDir string) (binary string, err error) {
	binary = filepath.Join(workDir, filepath.Base(src)+".bin")
	cmd := exec.Command(*emcPath, src, "-o", binary)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("compile failed: %w\n%s", err, out)
	}
	return binary, nil
}

func run(binary string) (stdout string, exitCode int, err error) {
	cmd := exec.Command(binary)
	outBytes, runErr := cmd.Output()
	stdout = string(outBytes)
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			return stdout, exitErr.ExitCode(), nil
		}
		return stdout, -1, runErr
	}
	return stdout, 0, nil
}

func recordGolden(src, workDir string) error {
	binary, err := build(src, workDir)
	if err != nil {
		return err
	}
	stdout, exitCode, err := run(binary)
	if err != nil {
		return err
	}
	g := Golden{Stdout: stdout, ExitCode: exitCode, Hash: xxhash.Sum64String(stdout)}
	if err := os.MkdirAll(*goldenDir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(goldenPath(src), b, 0o644)
}

func runFixture(src, workDir string) error {
	wantBytes, err := os.ReadFile(goldenPath(src))
	if err != nil {
		return fmt.Errorf("no golden file (run with -generate-golden first): %w", err)
	}
	var want Golden
	if err := json.Unmarshal(wantBytes, &want); err != nil {
		return fmt.Errorf("malformed golden file: %w", err)
	}

	binary, err := build(src, workDir)
	if err != nil {
		return err
	}
	stdout, exitCode, err := run(binary)
	if err != nil {
		return err
	}

	if xxhash.Sum64String(stdout) == want.Hash && exitCode == want.ExitCode {
		return nil
	}
	got := Golden{Stdout: stdout, ExitCode: exitCode, Hash: xxhash.Sum64String(stdout)}
	return fmt.Errorf("output mismatch:\n%s", cmp.Diff(want, got))
}
