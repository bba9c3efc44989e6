package version

import (
	"strings"
	"testing"
	"time"
)

func TestGet_Defaults(t *testing.T) {
	info := Get()
	if info.Version != Version {
		t.Errorf("Version = %q, want %q", info.Version, Version)
	}
	// Test binaries carry build info, so GoVersion should resolve.
	if info.GoVersion == "" {
		t.Error("GoVersion is empty")
	}
}

func TestGet_ParsesBuildTime(t *testing.T) {
	orig := BuildTime
	defer func() { BuildTime = orig }()

	BuildTime = "2026-03-15T10:30:00Z"
	info := Get()
	want := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	if !info.BuildDate.Equal(want) {
		t.Errorf("BuildDate = %v, want %v", info.BuildDate, want)
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{"bare", Info{Version: "dev"}, "dev"},
		{"with commit", Info{Version: "1.2.0", GitCommit: "9f2c1ab"}, "1.2.0-9f2c1ab"},
		{"dirty", Info{Version: "1.2.0", GitCommit: "9f2c1ab", Dirty: true}, "1.2.0-9f2c1ab-dirty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestString_IncludesGoVersion(t *testing.T) {
	info := Info{Version: "1.0.0", GoVersion: "go1.26.0"}
	if got := info.String(); !strings.HasSuffix(got, "(go1.26.0)") {
		t.Errorf("String() = %q, want go version suffix", got)
	}
}

func TestShortCommit(t *testing.T) {
	if got := shortCommit("9f2c1ab34567890"); got != "9f2c1ab" {
		t.Errorf("shortCommit() = %q, want %q", got, "9f2c1ab")
	}
	if got := shortCommit("abc"); got != "abc" {
		t.Errorf("shortCommit() = %q, want %q", got, "abc")
	}
}
