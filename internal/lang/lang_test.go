package lang

import "testing"

func TestCanonicalAliases(t *testing.T) {
	cases := map[string]Language{
		"py":      Python,
		"ts":      TypeScript,
		"rs":      Rust,
		"golang":  Go,
		"c-sharp": CSharp,
		"python":  Python,
	}
	for tag, want := range cases {
		got, ok := Canonical(tag)
		if !ok {
			t.Errorf("Canonical(%q): expected ok", tag)
			continue
		}
		if got != want {
			t.Errorf("Canonical(%q) = %q, want %q", tag, got, want)
		}
	}

	if _, ok := Canonical("cobol"); ok {
		t.Error("Canonical(\"cobol\") should not resolve")
	}
}

func TestIsStdlibImportEverySpecEntry(t *testing.T) {
	for _, l := range AllLanguages() {
		spec := ForLanguage(l)
		if spec == nil {
			t.Fatalf("no spec registered for %q", l)
		}
		for name := range spec.StdlibPrefixes {
			if !IsStdlibImport(name, l) {
				t.Errorf("IsStdlibImport(%q, %q) = false, want true", name, l)
			}
		}
	}
}

func TestIsStdlibImportSubpath(t *testing.T) {
	if !IsStdlibImport("os/exec", Go) {
		t.Error("expected os/exec to match the os stdlib prefix")
	}
	if !IsStdlibImport("collections.abc", Python) {
		t.Error("expected collections.abc to match the collections stdlib prefix")
	}
	if IsStdlibImport("github.com/spf13/cobra", Go) {
		t.Error("expected a third-party Go import not to be classified as stdlib")
	}
	if IsStdlibImport("requests", Python) {
		t.Error("expected a third-party Python import not to be classified as stdlib")
	}
}

func TestIsStdlibImportUnknownLanguage(t *testing.T) {
	if IsStdlibImport("os", Language("brainfuck")) {
		t.Error("expected IsStdlibImport to be false for an unregistered language")
	}
}

func TestLanguageForExtension(t *testing.T) {
	l, ok := LanguageForExtension(".py")
	if !ok || l != Python {
		t.Errorf("LanguageForExtension(.py) = (%q, %v), want (python, true)", l, ok)
	}
	if _, ok := LanguageForExtension(".xyz"); ok {
		t.Error("LanguageForExtension(.xyz) should not resolve")
	}
}
