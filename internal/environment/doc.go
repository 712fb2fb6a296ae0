// Package environment drives the ephemeral execution contexts that builds
// run in.
//
// Every backend implements [Environment]: a lifecycle of Up, Provision and
// Halt, a busy check, the lockfile path the recipe lock is derived from,
// and a builder for commands that run inside the environment. Callers
// depend only on the interface; [New] picks the variant named by the
// recipe.
//
// Three variants exist. [Host] reaches an existing build machine over
// SSH and never tears it down. [Vagrant] drives a VM through the vagrant
// command line and reaches it over SSH on the forwarded port.
// [Containerd] starts a container from an OCI archive and executes
// commands inside it.
//
// Halt is safe after a partial Up or Provision, so callers can always
// defer it.
//
// Example usage:
//
//	env, err := environment.New(r, cfg)
//	if err != nil {
//	    return err
//	}
//	defer env.Halt(ctx)
//
//	if err := env.Up(ctx); err != nil {
//	    return err
//	}
//	if err := env.Provision(ctx); err != nil {
//	    return err
//	}
//	err = env.Command("make").Run(ctx, os.Stdout, os.Stderr)
package environment
