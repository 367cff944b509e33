// Package diag implements the compiler's fail-fast, located diagnostics.
//
// Every stage of the front-end (lexer, parser, IR emitter) reports its
// first error through this package and the process halts: there is no
// error recovery anywhere in the core, matching §7 of the spec this
// compiler implements.
package diag

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"

	"github.com/emlang/emc/pkg/token"
)

// sourceFile records one (already import-expanded) file's content so
// diagnostics can render the offending line with a caret.
type sourceFile struct {
	Name    string
	Lines   []string
}

var (
	mu    sync.Mutex
	files []sourceFile
)

// Register records a file's content for later diagnostic rendering and
// returns its index in the registry. Format finds a file's source lines
// by the name in Position.File, not by this index. Safe to call from
// multiple driver worker goroutines.
func Register(name, content string) int {
	mu.Lock()
	defer mu.Unlock()
	files = append(files, sourceFile{Name: name, Lines: strings.Split(content, "\n")})
	return len(files) - 1
}

func lookupLine(file string, line int) (string, bool) {
	mu.Lock()
	defer mu.Unlock()
	for _, f := range files {
		if f.Name == file {
			if line-1 >= 0 && line-1 < len(f.Lines) {
				return f.Lines[line-1], true
			}
		}
	}
	return "", false
}

func colorEnabled(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Format renders one diagnostic in the wire format this compiler's
// interface specifies: "[<file>: line <L>, position <C>] <message>"
// followed by the source line and a caret under column C.
func Format(pos token.Position, format string, args ...any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s: line %d, position %d] %s", pos.File, pos.Line, pos.Column, fmt.Sprintf(format, args...))
	if line, ok := lookupLine(pos.File, pos.Line); ok {
		b.WriteString("\n")
		b.WriteString(line)
		b.WriteString("\n")
		if pos.Column >= 0 && pos.Column <= len(line) {
			b.WriteString(strings.Repeat(" ", pos.Column))
		}
		b.WriteString("^")
	}
	return b.String()
}

// Error is a located, fail-fast diagnostic. A *diag.Error bubbles up
// through the Result-style error returns of lexer/parser/emit instead
// of calling os.Exit directly, so the driver (and tests) can observe it
// without tearing down the process.
type Error struct {
	Pos token.Position
	Msg string
}

func (e *Error) Error() string { return Format(e.Pos, "%s", e.Msg) }

// Errorf constructs a located *Error.
func Errorf(pos token.Position, format string, args ...any) *Error {
	return &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// Fatal prints a located error to stderr and halts the process.
// Internal packages never call it: they return *Error instead, so they
// stay usable from tests and from multiple parallel workers.
func Fatal(pos token.Position, format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(os.Stderr, "error", Format(pos, format, args...)))
	os.Exit(1)
}

// Warn prints a located, non-fatal warning to stderr.
func Warn(pos token.Position, format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(os.Stderr, "warning", Format(pos, format, args...)))
}

func colorize(f *os.File, kind, msg string) string {
	if !colorEnabled(f) {
		return msg
	}
	code := "31"
	if kind == "warning" {
		code = "33"
	}
	return "\033[" + code + "m" + msg + "\033[0m"
}
