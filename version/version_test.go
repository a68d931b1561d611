package version

import (
	"strings"
	"testing"
)

func TestInfoString(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{"bare", Info{Version: "dev"}, "dev"},
		{"commit shortened", Info{Version: "1.0.0", GitCommit: "abcdef1234567"}, "1.0.0-abcdef1"},
		{"dirty", Info{Version: "1.0.0", GitCommit: "abc", Dirty: true}, "1.0.0-abc-dirty"},
		{
			"build details",
			Info{Version: "1.0.0", BuildTime: "2026-01-02T03:04:05Z", GoVersion: "go1.26.0"},
			"1.0.0 (built 2026-01-02T03:04:05Z, go1.26.0)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetUsesLinkerValues(t *testing.T) {
	oldVersion, oldCommit := Version, GitCommit
	defer func() { Version, GitCommit = oldVersion, oldCommit }()

	Version = "2.3.4"
	GitCommit = "deadbeef"
	info := Get()
	if info.Version != "2.3.4" || info.GitCommit != "deadbeef" {
		t.Errorf("expected linker values, got %+v", info)
	}
	if !strings.HasPrefix(info.GoVersion, "go") {
		t.Errorf("expected a Go version from build info, got %q", info.GoVersion)
	}
}
