package runtime

import (
	"context"
	"io"
	"sync"
)

// Creates a directory inside the container, including parents.
func (c *Container) MkdirAll(ctx context.Context, path string) error {
	return c.mustRun(ctx, "mkdir "+path, nil, "mkdir", "-p", path)
}

// Extracts the tar stream r into dir inside the container.
func (c *Container) CopyTo(ctx context.Context, r io.Reader, dir string) error {
	return c.mustRun(ctx, "tar extract into "+dir, r, "tar", "-x", "-f", "-", "-C", dir)
}

// Reader that reports when its source is exhausted.
type eofReader struct {
	src  io.Reader
	done chan struct{}
	once sync.Once
}

func newEOFReader(src io.Reader) *eofReader {
	return &eofReader{src: src, done: make(chan struct{})}
}

// Returns a channel closed once the source has returned io.EOF.
func (r *eofReader) Done() <-chan struct{} {
	return r.done
}

func (r *eofReader) Read(p []byte) (int, error) {
	n, err := r.src.Read(p)
	if err == io.EOF {
		r.once.Do(func() { close(r.done) })
	}
	return n, err
}
