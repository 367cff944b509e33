package driver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/emlang/emc/pkg/ir"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestBuildModuleRejectsEmptyFileList(t *testing.T) {
	if _, _, err := BuildModule(nil); err == nil {
		t.Fatal("expected an error for an empty file list")
	}
}

func TestBuildModuleRequiresEntryPoint(t *testing.T) {
	dir := t.TempDir()
	f := writeFile(t, dir, "util.em", `int helper() { return 1; }`)
	if _, _, err := BuildModule([]string{f}); err == nil {
		t.Fatal("expected an error when no file defines main")
	}
}

func TestBuildModuleRejectsMultipleMainDefinitions(t *testing.T) {
	dir := t.TempDir()
	f1 := writeFile(t, dir, "a.em", `int main() { return 0; }`)
	f2 := writeFile(t, dir, "b.em", `int main() { return 1; }`)
	if _, _, err := BuildModule([]string{f1, f2}); err == nil {
		t.Fatal("expected an error for two files both defining main")
	}
}

func TestBuildModuleMergesFunctionsAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	f1 := writeFile(t, dir, "main.em", `
		int helper(int x);
		int main() { return helper(1); }
	`)
	f2 := writeFile(t, dir, "util.em", `int helper(int x) { return x + 1; }`)

	mod, metrics, err := BuildModule([]string{f1, f2})
	if err != nil {
		t.Fatalf("BuildModule: %v", err)
	}
	if metrics.FileCount != 2 {
		t.Errorf("FileCount = %d, want 2", metrics.FileCount)
	}
	if mod.FindFunc("main") == nil || mod.FindFunc("helper") == nil {
		t.Fatalf("merged module missing a function: %+v", mod.Funcs)
	}
	if err := ir.VerifyModule(mod); err != nil {
		t.Fatalf("merged module fails verification: %v", err)
	}
}

func TestBuildModuleKeepsDefinitionOverPrototypeDuplicate(t *testing.T) {
	dir := t.TempDir()
	f1 := writeFile(t, dir, "main.em", `
		int helper(int x);
		int main() { return helper(1); }
	`)
	f2 := writeFile(t, dir, "util.em", `int helper(int x) { return x + 1; }`)

	mod, _, err := BuildModule([]string{f1, f2})
	if err != nil {
		t.Fatalf("BuildModule: %v", err)
	}
	count := 0
	for _, fn := range mod.Funcs {
		if fn.Name == "helper" {
			count++
			if !fn.HasBody {
				t.Error("the surviving helper entry should be the definition, not the prototype")
			}
		}
	}
	if count != 1 {
		t.Errorf("helper appears %d times in the merged module, want 1 (prototype collapsed into its definition)", count)
	}
}

func TestBuildModuleDedupesIdenticalStringsAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	f1 := writeFile(t, dir, "main.em", `
		string greeting = "hello";
		int main() { return 0; }
	`)
	f2 := writeFile(t, dir, "util.em", `string other = "hello";`)

	mod, _, err := BuildModule([]string{f1, f2})
	if err != nil {
		t.Fatalf("BuildModule: %v", err)
	}
	if len(mod.Strings) != 1 {
		t.Fatalf("got %d distinct strings, want 1 (both files intern the same literal): %+v", len(mod.Strings), mod.Strings)
	}
	for _, g := range mod.Globals {
		ref, ok := g.Init.(ir.Global)
		if !ok {
			t.Fatalf("global %q has no string reference: %#v", g.Name, g.Init)
		}
		if ref.Name != mod.Strings[0].Name {
			t.Errorf("global %q points at string label %q, want %q", g.Name, ref.Name, mod.Strings[0].Name)
		}
	}
}

func TestBuildModuleSurfacesParseErrors(t *testing.T) {
	dir := t.TempDir()
	f := writeFile(t, dir, "broken.em", `int main() { return 0 }`)
	if _, _, err := BuildModule([]string{f}); err == nil {
		t.Fatal("expected a parse error to propagate from BuildModule")
	}
}

func TestBuildModuleCountsLinesAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	f1 := writeFile(t, dir, "a.em", "int main() {\n\treturn 0;\n}\n")
	f2 := writeFile(t, dir, "b.em", "int helper() {\n\treturn 1;\n}\n")

	_, metrics, err := BuildModule([]string{f1, f2})
	if err != nil {
		t.Fatalf("BuildModule: %v", err)
	}
	if metrics.LineCount <= 0 {
		t.Errorf("LineCount = %d, want > 0", metrics.LineCount)
	}
}
