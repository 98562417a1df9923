package version

import (
	"bytes"
	"strings"
	"testing"
)

func TestGetVersionPrefersLdflags(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })

	Version = "v9.9.9"
	if got := GetVersion(); got != "v9.9.9" {
		t.Errorf("GetVersion() = %q, want %q", got, "v9.9.9")
	}

	Version = "dev"
	if GetVersion() == "" {
		t.Error("GetVersion() returned empty string")
	}
}

func TestGetFullVersionShortensCommit(t *testing.T) {
	origV, origC, origD := Version, Commit, Date
	t.Cleanup(func() { Version, Commit, Date = origV, origC, origD })

	Version = "v1.2.3"
	Commit = "0123456789abcdef"
	Date = "2024-01-01T00:00:00Z"
	if got, want := GetFullVersion(), "v1.2.3 (0123456, built 2024-01-01T00:00:00Z)"; got != want {
		t.Errorf("GetFullVersion() = %q, want %q", got, want)
	}

	Date = ""
	if got := GetFullVersion(); !strings.Contains(got, "v1.2.3 (0123456") {
		t.Errorf("GetFullVersion() = %q, want short commit", got)
	}
}

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	PrintVersion(&buf, "fastgen")
	out := buf.String()
	for _, want := range []string{"fastgen version ", "Package: fastgen", "Go: go"} {
		if !strings.Contains(out, want) {
			t.Errorf("PrintVersion output missing %q:\n%s", want, out)
		}
	}
}
