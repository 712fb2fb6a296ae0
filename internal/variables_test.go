package internal

import (
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// Replaces the linker variables for the duration of the test.
func setBuildVars(t *testing.T, v, s, c string) {
	t.Helper()
	saved := [3]string{version, stage, gitCommit}
	t.Cleanup(func() { version, stage, gitCommit = saved[0], saved[1], saved[2] })
	version, stage, gitCommit = v, s, c
}

func TestInfo(t *testing.T) {
	setBuildVars(t, " V1.4.0 ", "Staging", "a1b2c3d4")

	want := BuildInfo{
		Version:   "1.4.0",
		Stage:     "staging",
		GitCommit: "a1b2c3d4",
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if diff := cmp.Diff(want, Info()); diff != "" {
		t.Errorf("Info (-want +got):\n%s", diff)
	}
}

func TestVersionString(t *testing.T) {
	platform := " [" + runtime.GOOS + "/" + runtime.GOARCH + "]"

	tests := []struct {
		name                 string
		version, stage, hash string
		want                 string
	}{
		{name: "local", want: localBuild},
		{name: "missing commit", version: "1.0.0", stage: "main", want: localBuild},
		{name: "main channel", version: "v1.4.0", stage: "main", hash: "a1b2c3d4", want: "1.4.0 a1b2c3d4" + platform},
		{name: "other channel", version: "1.4.0", stage: "Staging", hash: "a1b2c3d4", want: "1.4.0+staging a1b2c3d4" + platform},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBuildVars(t, tt.version, tt.stage, tt.hash)
			if got := VersionString(); got != tt.want {
				t.Fatalf("VersionString() = %q, want %q", got, tt.want)
			}
		})
	}
}
