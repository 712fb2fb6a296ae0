package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Standard SSH port, used when a target does not set one.
const DefaultPort = 22

var (
	ErrTransport        = errors.New("remote transport error")
	ErrUnknownTransport = errors.New("unknown remote transport")
)

// Runnable command bound to an environment.
type Command interface {

	// Runs the command to completion. Standard output and standard error
	// are streamed to stdout and stderr, either of which may be nil. A
	// non-zero exit status is returned as [*ExitError].
	Run(ctx context.Context, stdout, stderr io.Writer) error

	// Returns a human-readable rendering for logs.
	String() string
}

// Builds commands for action strings.
type Shell interface {
	Command(action string) Command
}

// Returned when a command exits with a non-zero status.
type ExitError struct {
	Command string // Rendering of the failed command.
	Code    int    // Exit status.
	Stderr  string // Captured standard error, verbatim.
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Command, e.Code)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// SSH endpoint of a build environment.
type Target struct {
	Host       string // Host name or address.
	User       string // Login user.
	Port       int    // TCP port. Zero uses [DefaultPort].
	PrivateKey string // Path to the private key file.
}

// Returns the effective port.
func (t Target) EffectivePort() int {
	if t.Port == 0 {
		return DefaultPort
	}
	return t.Port
}

// Returns "host:port".
func (t Target) Address() string {
	return t.Host + ":" + strconv.Itoa(t.EffectivePort())
}

// Returns the full ssh argv that runs action as root on the target.
func (t Target) Args(action string) []string {
	return []string{
		"ssh",
		"-o", "StrictHostKeyChecking=no",
		"-p", strconv.Itoa(t.EffectivePort()),
		"-i", t.PrivateKey,
		t.User + "@" + t.Host,
		"sudo " + action,
	}
}

// Names a transport implementation.
type Transport string

const (
	TransportOpenSSH Transport = "openssh" // Local ssh client binary.
	TransportNative  Transport = "native"  // In-process SSH client.
)

// Returns a shell for target over the named transport. An empty transport
// selects [TransportOpenSSH].
func NewShell(transport Transport, target Target) (Shell, error) {
	switch transport {
	case "", TransportOpenSSH:
		return &OpenSSH{Target: target}, nil
	case TransportNative:
		return &Native{Target: target}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, transport)
	}
}

// Returns a writer that captures everything written to it and forwards it
// to w when w is not nil.
func capture(w io.Writer, buf *bytes.Buffer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(w, buf)
}
