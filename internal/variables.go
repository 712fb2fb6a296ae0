package internal

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"
)

const (

	// Executable name, used for the log group and XDG subdirectories.
	Name = "forge"

	// Reported for build variables that were not injected.
	undefined = "(undefined)"

	// Version string of a build made outside the release pipeline.
	localBuild = "(local)"

	// Release channel that is left out of version strings.
	mainBranch = "main"
)

// Injected by the release pipeline with -ldflags "-X".
var (
	version   = "" // Release version, e.g. "v1.2.3".
	stage     = "" // Release channel or branch, e.g. "staging".
	gitCommit = "" // Commit the binary was built from.

	rawQuiet   = "false" // Initial quiet mode.
	rawDebug   = "false" // Initial debug mode.
	rawVerbose = "false" // Initial verbose mode.
)

// Build metadata of the running binary.
type BuildInfo struct {
	Version   string // Version without a "v" prefix.
	Stage     string // Lower-cased release channel.
	GitCommit string // Commit hash.
	Platform  string // "<os>/<arch>" of the binary.
}

// Returns the build metadata, with "(undefined)" for anything the pipeline
// did not inject.
func Info() BuildInfo {
	return BuildInfo{
		Version:   orUndefined(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(version)), "v")),
		Stage:     orUndefined(strings.ToLower(strings.TrimSpace(stage))),
		GitCommit: orUndefined(strings.TrimSpace(gitCommit)),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Whether any build variable is missing, meaning the binary was not built
// by the release pipeline.
func IsLocal() bool {
	info := Info()
	return info.Version == undefined || info.Stage == undefined || info.GitCommit == undefined
}

// Returns "(local)" for local builds and "<version>[+<stage>] <commit>
// [<os>/<arch>]" otherwise. The main channel is not shown.
func VersionString() string {
	if IsLocal() {
		return localBuild
	}

	info := Info()
	v := info.Version
	if info.Stage != mainBranch {
		v += "+" + info.Stage
	}
	return fmt.Sprintf("%s %s [%s]", v, info.GitCommit, info.Platform)
}

// Renders the build metadata as a log group.
func (b BuildInfo) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("version", b.Version),
		slog.String("stage", b.Stage),
		slog.String("commit", b.GitCommit),
		slog.String("platform", b.Platform),
	)
}

func orUndefined(s string) string {
	if s == "" {
		return undefined
	}
	return s
}
