package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"sales.csv":            "sales.csv",
		"../../etc/passwd":     "passwd",
		`C:\Users\me\q1.xlsx`:  "q1.xlsx",
		"report (final)!.xlsx": "report final.xlsx",
		"...":                  "upload",
	}
	for in, want := range tests {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestVerifyFileExists(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.csv"), []byte("a\n1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !VerifyFileExists(dir, "a.csv") {
		t.Error("expected a.csv to exist")
	}
	if VerifyFileExists(dir, "missing.csv") {
		t.Error("missing.csv reported as existing")
	}
	if VerifyFileExists(filepath.Dir(dir), filepath.Base(dir)) {
		t.Error("directory reported as a file")
	}
}

func TestSessionWorkspace(t *testing.T) {
	if got := SessionWorkspace("/srv/ws", "../abc"); got != filepath.Join("/srv/ws", "abc") {
		t.Errorf("SessionWorkspace = %s", got)
	}
}
