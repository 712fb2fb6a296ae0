// Package remote runs commands in a build environment.
//
// A [Target] describes an SSH endpoint and renders the canonical remote
// invocation, with the action always run through sudo:
//
//	ssh -o StrictHostKeyChecking=no -p 22 -i <key> <user>@<host> sudo <action>
//
// A [Shell] turns action strings into runnable [Command] values. Two SSH
// transports are provided: [OpenSSH] executes the argv above with the
// local ssh client, and [Native] speaks the protocol directly. Both report
// a non-zero remote exit status as an [*ExitError] carrying the remote
// standard error verbatim.
//
// Example usage:
//
//	shell, err := remote.NewShell(remote.TransportOpenSSH, remote.Target{
//	    Host:       "build01",
//	    User:       "builder",
//	    PrivateKey: "/home/builder/.ssh/id_ed25519",
//	})
//	if err != nil {
//	    return err
//	}
//
//	if err := shell.Command("make -C /src").Run(ctx, os.Stdout, os.Stderr); err != nil {
//	    return err
//	}
package remote
