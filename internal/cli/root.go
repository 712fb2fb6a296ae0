package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"golang.org/x/term"

	"github.com/cruciblehq/forge/internal"
	"github.com/cruciblehq/forge/internal/config"
)

// Represents the root command for forge.
var RootCmd struct {
	Quiet     bool   `short:"q" help:"Suppress informational output."`
	Verbose   bool   `short:"v" help:"Include source locations in log records."`
	Debug     bool   `short:"d" help:"Enable debug output."`
	Config    string `short:"c" help:"Override the configuration file path." placeholder:"PATH" type:"path"`
	SSHHost   string `name:"ssh-host" help:"Build host for the host backend." placeholder:"HOST"`
	SSHUser   string `name:"ssh-user" help:"Login user on the build host." placeholder:"USER"`
	SSHKey    string `name:"ssh-key" help:"Private key for the build host." placeholder:"PATH" type:"path"`
	SSHPort   int    `name:"ssh-port" help:"SSH port of the build host." placeholder:"PORT"`
	Transport string `help:"SSH client used for remote commands." enum:",openssh,native" default:""`
	Lock      string `help:"Lock backend." enum:",sqlite,semaphore" default:""`

	Status  StatusCmd  `cmd:"" help:"Show the build status of a recipe."`
	Build   BuildCmd   `cmd:"" help:"Build a recipe if it changed."`
	Log     LogCmd     `cmd:"" help:"Print the build log of a recipe."`
	Unlock  UnlockCmd  `cmd:"" help:"Release a lock left behind by a dead build."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// Parses arguments, configures logging, and runs the selected subcommand.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("Builds recipes in ephemeral build environments, one build per recipe at a time."),
		kong.UsageOnError(),
		kong.Vars{
			"version": internal.VersionString(),
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// Configures the global logger based on CLI flags.
//
// Terminals get the text handler; anything else gets JSON records.
func configureLogger() {
	if RootCmd.Quiet {
		internal.SetQuiet(true)
	}
	if RootCmd.Debug {
		internal.SetDebug(true)
	}
	if RootCmd.Verbose {
		internal.SetVerbose(true)
	}

	opts := &slog.HandlerOptions{
		Level:     internal.LogLevel(),
		AddSource: internal.IsVerbose(),
	}

	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// Loads the configuration and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(RootCmd.Config, os.Environ())
	if err != nil {
		return nil, err
	}
	applyFlags(cfg)
	return cfg, nil
}

// Overrides configuration values with the flags that were set.
func applyFlags(cfg *config.Config) {
	if RootCmd.SSHHost != "" {
		cfg.SSH.Host = RootCmd.SSHHost
	}
	if RootCmd.SSHUser != "" {
		cfg.SSH.User = RootCmd.SSHUser
	}
	if RootCmd.SSHKey != "" {
		cfg.SSH.PrivateKey = RootCmd.SSHKey
	}
	if RootCmd.SSHPort != 0 {
		cfg.SSH.Port = RootCmd.SSHPort
	}
	if RootCmd.Transport != "" {
		cfg.SSH.Transport = RootCmd.Transport
	}
	if RootCmd.Lock != "" {
		cfg.Lock.Backend = RootCmd.Lock
	}
}
