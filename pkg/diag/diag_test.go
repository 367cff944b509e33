package diag

import (
	"strings"
	"testing"

	"github.com/emlang/emc/pkg/token"
)

func TestFormatWithoutRegisteredFileOmitsSourceLine(t *testing.T) {
	pos := token.Position{File: "nowhere.em", Line: 1, Column: 0}
	msg := Format(pos, "unexpected token %q", "}")
	if !strings.Contains(msg, `[nowhere.em: line 1, position 0] unexpected token "}"`) {
		t.Errorf("Format = %q, missing the located header", msg)
	}
	if strings.Contains(msg, "^") {
		t.Errorf("Format should not render a caret line for an unregistered file, got %q", msg)
	}
}

func TestFormatWithRegisteredFileRendersCaret(t *testing.T) {
	Register("caret_test.em", "int x = 1;\nreturn x;\n")
	pos := token.Position{File: "caret_test.em", Line: 2, Column: 7}
	msg := Format(pos, "use of undeclared identifier %q", "x")
	lines := strings.Split(msg, "\n")
	if len(lines) != 3 {
		t.Fatalf("Format produced %d lines, want 3 (header, source, caret): %q", len(lines), msg)
	}
	if lines[1] != "return x;" {
		t.Errorf("source line = %q, want %q", lines[1], "return x;")
	}
	if lines[2] != strings.Repeat(" ", 7)+"^" {
		t.Errorf("caret line = %q, want caret at column 7", lines[2])
	}
}

func TestErrorImplementsErrorInterface(t *testing.T) {
	pos := token.Position{File: "f.em", Line: 3, Column: 1}
	err := Errorf(pos, "duplicate declaration of %q", "a")
	if !strings.Contains(err.Error(), `duplicate declaration of "a"`) {
		t.Errorf("Error() = %q, missing the formatted message", err.Error())
	}
	if err.Pos != pos {
		t.Errorf("Pos = %+v, want %+v", err.Pos, pos)
	}
}

func TestRegisterIsConcurrencySafe(t *testing.T) {
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(i int) {
			Register("concurrent.em", "line one\n")
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
