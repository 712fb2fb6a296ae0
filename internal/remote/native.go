package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"golang.org/x/crypto/ssh"
)

// Shell that speaks SSH in-process.
//
// Host keys are not verified, matching StrictHostKeyChecking=no of the
// OpenSSH transport. Build environments are ephemeral and their host keys
// change with every instance.
type Native struct {
	Target Target // Endpoint to connect to.
}

// Returns a command running "sudo action" on the target.
func (n *Native) Command(action string) Command {
	return &nativeCommand{target: n.Target, action: "sudo " + action}
}

// Command run over a dedicated SSH connection.
type nativeCommand struct {
	target Target
	action string
}

// Dials the target, runs the action in a new session, and closes the
// connection. Cancelling ctx tears the connection down.
func (c *nativeCommand) Run(ctx context.Context, stdout, stderr io.Writer) error {
	client, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("%w: new session: %w", ErrTransport, err)
	}
	defer session.Close()

	var captured bytes.Buffer
	session.Stdout = stdout
	session.Stderr = capture(stderr, &captured)

	stop := context.AfterFunc(ctx, func() { client.Close() })
	defer stop()

	err = session.Run(c.action)
	if err == nil {
		return nil
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{
			Command: c.String(),
			Code:    exitErr.ExitStatus(),
			Stderr:  captured.String(),
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %s: %w", ErrTransport, c.target.Address(), err)
}

// Returns a rendering in the shape of the equivalent ssh invocation.
func (c *nativeCommand) String() string {
	return fmt.Sprintf("ssh %s@%s %s", c.target.User, c.target.Address(), c.action)
}

// Opens an authenticated client connection.
func (c *nativeCommand) dial(ctx context.Context) (*ssh.Client, error) {
	key, err := os.ReadFile(c.target.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: read private key: %w", ErrTransport, err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: parse private key %s: %w", ErrTransport, c.target.PrivateKey, err)
	}

	config := &ssh.ClientConfig{
		User:            c.target.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	addr := c.target.Address()
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", ErrTransport, addr, err)
	}

	sconn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: handshake %s: %w", ErrTransport, addr, err)
	}
	return ssh.NewClient(sconn, chans, reqs), nil
}
