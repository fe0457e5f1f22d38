package version

import (
	"strings"
	"testing"
)

func TestCurrent(t *testing.T) {
	b := Current()
	if b.Version == "" || b.Commit == "" || b.Date == "" {
		t.Fatalf("build info must not be empty: %+v", b)
	}
}

func TestBuildString(t *testing.T) {
	got := Build{Version: "v1.0.0", Commit: "abc123", Date: "2026-05-01"}.String()
	if got != "version=v1.0.0 commit=abc123 date=2026-05-01" {
		t.Fatalf("unexpected string: %q", got)
	}
}

func TestUserAgent(t *testing.T) {
	old := version
	version = "v2.3.4"
	t.Cleanup(func() { version = old })

	tests := []struct {
		component string
		want      string
	}{
		{component: "", want: "farmstand/v2.3.4"},
		{component: "kiosk", want: "farmstand-kiosk/v2.3.4"},
	}
	for _, tt := range tests {
		if got := UserAgent(tt.component); got != tt.want {
			t.Errorf("UserAgent(%q) = %q, want %q", tt.component, got, tt.want)
		}
	}
}

func TestLdflagsOverride(t *testing.T) {
	oldVersion, oldCommit := version, commit
	version, commit = "v9.9.9", "deadbeef"
	t.Cleanup(func() { version, commit = oldVersion, oldCommit })

	if s := Current().String(); !strings.Contains(s, "v9.9.9") || !strings.Contains(s, "deadbeef") {
		t.Fatalf("override not visible: %s", s)
	}
}
