// Parses flags, configures logging and runs the forge subcommands.
//
// Global flags:
//
//	-q, --quiet       Suppress informational output.
//	-v, --verbose     Include source locations in log records.
//	-d, --debug       Enable debug output.
//	-c, --config      Configuration file path.
//	    --ssh-host    Build host for the host backend.
//	    --ssh-user    Login user on the build host.
//	    --ssh-key     Private key for the build host.
//	    --ssh-port    SSH port of the build host.
//	    --transport   SSH client: openssh or native.
//	    --lock        Lock backend: sqlite or semaphore.
//
// Flags override build-time defaults set via linker flags, the
// configuration file and FORGE_* environment variables. Each recipe
// subcommand loads the configuration once and wires the recipe, its build
// environment, the lock store and the activity probe from it.
package cli
