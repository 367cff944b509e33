// Command emc is the em compiler's entry point: it lexes, parses, and
// emits every input file in parallel, relocates them into one shared
// module, lowers to QBE, and links the result (spec.md §6.1).
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goforj/godump"
	"github.com/google/uuid"
	"github.com/ncruces/go-strftime"
	"golang.org/x/term"

	"github.com/emlang/emc/pkg/codegen"
	"github.com/emlang/emc/pkg/config"
	"github.com/emlang/emc/pkg/diag"
	"github.com/emlang/emc/pkg/driver"
	"github.com/emlang/emc/pkg/lexer"
	"github.com/emlang/emc/pkg/parser"
	"github.com/emlang/emc/pkg/token"
)

type options struct {
	files     []string
	output    string
	cpu       string
	printAST  bool
	printIR   bool
	asmOnly   bool
	benchmark bool
}

func parseArgs(args []string) (options, error) {
	opts := options{output: "out"}
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "-pout":
			opts.printAST = true
		case a == "-llout" || a == "-ll":
			opts.printIR = true
		case a == "-asm":
			opts.asmOnly = true
		case a == "-benchmark":
			opts.benchmark = true
		case a == "-o":
			i++
			if i >= len(args) {
				return opts, fmt.Errorf("-o requires an argument")
			}
			opts.output = args[i]
		case a == "-cpu":
			i++
			if i >= len(args) {
				return opts, fmt.Errorf("-cpu requires an argument")
			}
			opts.cpu = args[i]
		case strings.HasPrefix(a, "-"):
			return opts, fmt.Errorf("unrecognised flag %q", a)
		default:
			if !strings.HasSuffix(a, ".em") {
				return opts, fmt.Errorf("%q does not have the required .em extension", a)
			}
			opts.files = append(opts.files, a)
		}
	}
	return opts, nil
}

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "emc:", err)
		os.Exit(1)
	}
	if len(opts.files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: emc FILE.em [FILE.em ...] [-pout] [-llout] [-asm] [-benchmark] [-cpu NAME] [-o NAME]")
		os.Exit(1)
	}

	if opts.printAST {
		dumpAST(opts.files)
		return
	}

	cfg := config.New()
	if warning := cfg.ResolveCPU(opts.cpu); warning != "" && cfg.IsWarningEnabled(config.WarnUnknownCPU) {
		diag.Warn(token.Position{File: "emc"}, "%s", warning)
	}

	start := time.Now()

	if opts.printIR {
		mod, _, err := driver.BuildModule(opts.files)
		if err != nil {
			fmt.Fprintln(os.Stderr, "emc:", err)
			os.Exit(1)
		}
		fmt.Print(codegen.TextualIR(mod))
		return
	}

	asm, metrics, err := driver.Compile(opts.files, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "emc:", err)
		os.Exit(1)
	}

	elapsed := time.Since(start)

	if opts.asmOnly {
		outName := opts.output + ".s"
		if err := os.WriteFile(outName, asm.Bytes(), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, "emc:", err)
			os.Exit(1)
		}
	} else if err := assembleAndLink(opts.output, asm.String()); err != nil {
		fmt.Fprintln(os.Stderr, "emc:", err)
		os.Exit(1)
	}

	if opts.benchmark {
		printBenchmark(metrics, elapsed)
	}
}

// dumpAST lexes and parses every file independently and pretty-prints
// the resulting AST via godump, for -pout.
func dumpAST(files []string) {
	for _, f := range files {
		lex := lexer.New(func(path string) (string, error) {
			b, err := os.ReadFile(path)
			return string(b), err
		})
		if err := lex.LexFile(f); err != nil {
			fmt.Fprintln(os.Stderr, "emc:", err)
			os.Exit(1)
		}
		p := parser.New(lex)
		roots, err := p.Parse()
		if err != nil {
			fmt.Fprintln(os.Stderr, "emc:", err)
			os.Exit(1)
		}
		fmt.Printf("--- %s ---\n", f)
		godump.Dump(roots)
	}
}

func printBenchmark(m *driver.Metrics, elapsed time.Duration) {
	rule := strings.Repeat("-", terminalWidth())
	fmt.Println(rule)
	fmt.Printf("[%s] compiled %s across %d file(s) in %s (%s/s)\n",
		strftime.Format("%Y-%m-%d %H:%M:%S", time.Now()),
		humanize.Comma(int64(m.LineCount)), m.FileCount, elapsed.Round(time.Microsecond),
		humanize.Comma(int64(float64(m.LineCount)/elapsed.Seconds())))
	fmt.Println(rule)
}

func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 60
}

// assembleAndLink hands the generated assembly to the system C
// compiler, via a uniquely-named temp file so concurrent emc
// invocations in the same directory never collide.
func assembleAndLink(outFile, asm string) error {
	tmpName := fmt.Sprintf("emc-%s.s", uuid.New().String())
	tmpPath := filepath.Join(os.TempDir(), tmpName)
	if err := os.WriteFile(tmpPath, []byte(asm), 0o644); err != nil {
		return fmt.Errorf("writing temporary assembly file: %w", err)
	}
	defer os.Remove(tmpPath)

	cmd := exec.Command("cc", "-no-pie", "-o", outFile, tmpPath)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("cc failed: %w\n%s", err, output)
	}
	return nil
}

