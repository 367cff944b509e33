// Package driver orchestrates a parallel, multi-file compilation run:
// one lexer/parser/emit pipeline per worker goroutine, joined at a
// barrier, then a single-threaded relocation of every worker's Module
// into one shared context before linking and invoking the backend
// once (spec.md §5).
package driver

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"github.com/emlang/emc/pkg/ast"
	"github.com/emlang/emc/pkg/codegen"
	"github.com/emlang/emc/pkg/config"
	"github.com/emlang/emc/pkg/emit"
	"github.com/emlang/emc/pkg/ir"
	"github.com/emlang/emc/pkg/lexer"
	"github.com/emlang/emc/pkg/parser"
)

// Metrics aggregates the counters the driver collects across every
// worker, guarded by a single mutex (spec.md §5).
type Metrics struct {
	mu        sync.Mutex
	LineCount int
	FileCount int
}

func (m *Metrics) add(lines int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LineCount += lines
	m.FileCount++
}

// workerResult is one file's completed front-end output, or the error
// that stopped it.
type workerResult struct {
	file string
	text string // this file's Module, relocated to driver text form
	roots []*ast.Node
	entry bool
	err   error
}

// Compile runs the full pipeline over files: parallel lex+parse+emit,
// a join barrier, single-threaded module relocation and linking, then
// one backend invocation. It returns the generated assembly.
func Compile(files []string, cfg *config.Config) (*bytes.Buffer, *Metrics, error) {
	shared, metrics, err := BuildModule(files)
	if err != nil {
		return nil, metrics, err
	}
	asm, err := codegen.Generate(shared, cfg)
	if err != nil {
		return nil, metrics, err
	}
	return asm, metrics, nil
}

// BuildModule runs the front-end half of the pipeline only — parallel
// lex+parse+emit, the join barrier, and the relocation/link step —
// stopping short of the backend. Used by -llout to dump the
// intermediate representation without generating target code.
func BuildModule(files []string) (*ir.Module, *Metrics, error) {
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no input files")
	}

	metrics := &Metrics{}
	results := make([]workerResult, len(files))

	var wg sync.WaitGroup
	var entryMu sync.Mutex
	entryPointFound := false
	var firstEntryFile string

	for i, f := range files {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			text, foundEntry, lines, err := compileOneFile(path)
			metrics.add(lines)
			if err != nil {
				results[i] = workerResult{file: path, err: err}
				return
			}
			results[i] = workerResult{file: path, text: text, entry: foundEntry}
			if foundEntry {
				entryMu.Lock()
				if entryPointFound {
					results[i].err = fmt.Errorf("multiple definitions of the program entry point: %q and %q both define main", firstEntryFile, path)
				} else {
					entryPointFound = true
					firstEntryFile = path
				}
				entryMu.Unlock()
			}
		}(i, f)
	}
	wg.Wait()

	for _, r := range results {
		if r.err != nil {
			return nil, metrics, r.err
		}
	}
	if !entryPointFound {
		return nil, metrics, fmt.Errorf("no function named \"main\" was found across %d input file(s)", len(files))
	}

	shared := ir.NewModule()
	for _, r := range results {
		relocated, err := ir.Parse(r.text)
		if err != nil {
			return nil, metrics, fmt.Errorf("relocating %q into the shared module: %w", r.file, err)
		}
		mergeInto(shared, relocated)
	}

	if err := ir.VerifyModule(shared); err != nil {
		return nil, metrics, err
	}

	return shared, metrics, nil
}

// compileOneFile runs the lex/parse/emit pipeline for one file in
// isolation (its own Lexer, SymbolTable, and ir.Module/Context) and
// returns that file's Module rendered as text, ready for relocation.
func compileOneFile(path string) (text string, foundEntry bool, lines int, err error) {
	lex := lexer.New(readFile)
	if err := lex.LexFile(path); err != nil {
		return "", false, 0, err
	}

	p := parser.New(lex)
	roots, err := p.Parse()
	if err != nil {
		return "", false, lex.LineCount, err
	}

	mod := ir.NewModule()
	ctx := emit.NewContext(mod)
	if err := ctx.EmitFile(roots); err != nil {
		return "", false, lex.LineCount, err
	}

	return ir.Print(mod), lex.EntryPointFound, lex.LineCount, nil
}

func readFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// mergeInto appends src's functions, globals, and strings onto dst,
// renaming src's deduplicated string labels if they happen to collide
// across files.
func mergeInto(dst, src *ir.Module) {
	remap := make(map[string]string)
	for _, s := range src.Strings {
		name := dst.InternString(s.Val)
		remap[s.Name] = name
	}
	for _, g := range src.Globals {
		if ref, ok := g.Init.(ir.Global); ok {
			if newName, ok := remap[ref.Name]; ok {
				g.Init = ir.Global{Name: newName}
			}
		}
		dst.Globals = append(dst.Globals, g)
	}
	for _, fn := range src.Funcs {
		renameStrings(fn, remap)
		existing := dst.FindFunc(fn.Name)
		if existing == nil {
			dst.Funcs = append(dst.Funcs, fn)
			continue
		}
		if existing.HasBody || !fn.HasBody {
			continue // keep the definition already present; drop a duplicate prototype
		}
		for i, f := range dst.Funcs {
			if f.Name == fn.Name {
				dst.Funcs[i] = fn // replace the earlier prototype with its definition
				break
			}
		}
	}
}

func renameStrings(fn *ir.Function, remap map[string]string) {
	if len(remap) == 0 {
		return
	}
	for _, blk := range fn.Blocks {
		for _, in := range blk.Instructions {
			for i, a := range in.Args {
				if g, ok := a.(ir.Global); ok {
					if newName, ok := remap[g.Name]; ok {
						in.Args[i] = ir.Global{Name: newName}
					}
				}
			}
		}
	}
}
