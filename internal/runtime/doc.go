// Package runtime runs build containers backed by containerd.
//
// A [Runtime] connects to a containerd daemon. [Runtime.StartContainer]
// imports an OCI archive, tags it with a deterministic hash of its path,
// unpacks it for the target platform and starts a container whose primary
// task sleeps forever, so that build commands can be attached to it as
// additional exec processes.
//
// Each [Container] accepts shell commands through [Container.Exec], which
// streams the process output to the supplied writers, and receives files
// as tar streams through [Container.CopyTo]. A container should be
// destroyed when the build is over to release its snapshot.
//
// Example usage:
//
//	rt, err := runtime.New("/run/containerd/containerd.sock", "forge")
//	if err != nil {
//	    return err
//	}
//	defer rt.Close()
//
//	ctr, err := rt.StartContainer(ctx, "image.tar", "forge-1234", "linux/amd64")
//	if err != nil {
//	    return err
//	}
//	defer ctr.Destroy(ctx)
//
//	code, err := ctr.Exec(ctx, "/bin/sh", "make", "/src", os.Stdout, os.Stderr)
package runtime
