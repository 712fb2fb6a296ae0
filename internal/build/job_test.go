package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cruciblehq/forge/internal/remote"
)

func TestJobBuild(t *testing.T) {
	env := &fakeEnv{outputs: map[string]string{"make": "compiling\n"}}
	logPath := filepath.Join(t.TempDir(), "build.log")
	if err := os.WriteFile(logPath, []byte("earlier attempt\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	job := NewJob(env, "make", nil, logPath, "/out")
	if err := job.Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	log := string(data)
	if !strings.HasPrefix(log, "earlier attempt\n") {
		t.Errorf("log was truncated:\n%s", log)
	}
	for _, want := range []string{"job " + job.ID + ": make", "compiling\n", "job " + job.ID + " succeeded"} {
		if !strings.Contains(log, want) {
			t.Errorf("log missing %q:\n%s", want, log)
		}
	}
}

func TestJobCommand(t *testing.T) {
	tests := []struct {
		name    string
		options Options
		want    string
	}{
		{name: "no options", want: "make image"},
		{
			name:    "options",
			options: Options{"variant": "release", "arch": "x86_64"},
			want:    "env arch=x86_64 variant=release make image",
		},
		{
			name:    "quoted value",
			options: Options{"flags": "-O2 -g"},
			want:    "env 'flags=-O2 -g' make image",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &Job{Action: "make image", Options: tt.options}
			if got := job.command(); got != tt.want {
				t.Fatalf("command() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJobBuildFailure(t *testing.T) {
	failure := &remote.ExitError{Command: "make", Code: 2, Stderr: "missing target"}
	env := &fakeEnv{failures: map[string]error{"make": failure}}
	logPath := filepath.Join(t.TempDir(), "build.log")

	err := NewJob(env, "make", nil, logPath, "/out").Build(context.Background())
	if !errors.Is(err, ErrBuild) {
		t.Fatalf("Build error = %v, want ErrBuild", err)
	}
	var exitErr *remote.ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 2 {
		t.Fatalf("Build error = %v, want the remote exit error", err)
	}
}

func TestJobResult(t *testing.T) {
	env := &fakeEnv{outputs: map[string]string{"tar -C /out -c .": "archive"}}
	dir := t.TempDir()
	archive := filepath.Join(dir, "result.tar")

	job := NewJob(env, "make", nil, filepath.Join(dir, "build.log"), "/out")
	if err := job.Result(context.Background(), archive); err != nil {
		t.Fatalf("Result: %v", err)
	}
	if diff := cmp.Diff([]string{"tar -C /out -c ."}, env.calls); diff != "" {
		t.Errorf("calls (-want +got):\n%s", diff)
	}
}
