package runtime

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	goruntime "runtime"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/core/images"
	"github.com/containerd/errdefs"
	"github.com/containerd/platforms"
)

const (

	// Snapshotter for container filesystems. fuse-overlayfs needs no
	// mount(2), so forge can drive containerd without root.
	snapshotter = "fuse-overlayfs"

	// OCI runtime shim.
	ociRuntime = "io.containerd.runc.v2"
)

// Connection to a containerd daemon.
type Runtime struct {
	client *containerd.Client // All operations are scoped to the client's namespace.
}

// Connects to the containerd socket at address. Operations are scoped to
// namespace. The runtime must be closed after use.
func New(address, namespace string) (*Runtime, error) {
	client, err := containerd.New(address, containerd.WithDefaultNamespace(namespace))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	return &Runtime{client: client}, nil
}

// Closes the containerd connection.
func (rt *Runtime) Close() error {
	return rt.client.Close()
}

// Starts a build container from the OCI archive at path.
//
// The archive is imported under a tag derived from path and unpacked for
// platform; an empty platform means [DefaultPlatform]. A container left
// under id by an earlier interrupted build is removed first. Foreign
// platforms need QEMU / binfmt_misc support in the kernel.
func (rt *Runtime) StartContainer(ctx context.Context, path, id, platform string) (*Container, error) {
	if platform == "" {
		platform = DefaultPlatform()
	}

	image, err := rt.loadImage(ctx, path, platform)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRuntime, path, err)
	}

	c := rt.Container(id, platform)
	c.clear(ctx)

	if err := c.start(ctx, image); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	slog.Debug("container started", "id", id, "image", image.Name(), "platform", platform)
	return c, nil
}

// Returns a handle on the container id. The container need not exist.
func (rt *Runtime) Container(id, platform string) *Container {
	if platform == "" {
		platform = DefaultPlatform()
	}
	return &Container{client: rt.client, id: id, platform: platform}
}

// Imports the archive at path, tags it and unpacks the layers for
// platform into the snapshotter.
func (rt *Runtime) loadImage(ctx context.Context, path, platform string) (containerd.Image, error) {
	p, err := platforms.Parse(platform)
	if err != nil {
		return nil, err
	}

	imported, err := rt.importArchive(ctx, path)
	if err != nil {
		return nil, err
	}

	record, err := rt.tag(ctx, imported, imageTag(path))
	if err != nil {
		return nil, err
	}

	image := containerd.NewImageWithPlatform(rt.client, record, platforms.Only(p))
	if err := image.Unpack(ctx, snapshotter); err != nil {
		return nil, err
	}
	return image, nil
}

// Imports an OCI archive into the content store.
//
// The archive must hold exactly one image. A multi-platform image is a
// single index and counts as one.
func (rt *Runtime) importArchive(ctx context.Context, path string) (images.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return images.Image{}, err
	}
	defer f.Close()

	imported, err := rt.client.Import(ctx, f)
	if err != nil {
		return images.Image{}, err
	}

	switch len(imported) {
	case 0:
		return images.Image{}, ErrEmptyArchive
	case 1:
		return imported[0], nil
	default:
		return images.Image{}, ErrMultipleImages
	}
}

// Points name at the target of the imported image, creating or updating
// the record, and drops the import's own record.
func (rt *Runtime) tag(ctx context.Context, imported images.Image, name string) (images.Image, error) {
	store := rt.client.ImageService()
	record := images.Image{Name: name, Target: imported.Target}

	created, err := store.Create(ctx, record)
	if errdefs.IsAlreadyExists(err) {
		created, err = store.Update(ctx, record, "target")
	}
	if err != nil {
		return images.Image{}, err
	}

	if imported.Name != name {
		_ = store.Delete(ctx, imported.Name)
	}
	return created, nil
}

// Derives an image tag from an archive path. Hashing keeps the tag a
// valid reference whatever the path contains.
func imageTag(path string) string {
	sum := sha256.Sum256([]byte(path))
	return "forge/" + hex.EncodeToString(sum[:]) + ":latest"
}

// Returns the OCI platform of the host.
func DefaultPlatform() string {
	return "linux/" + goruntime.GOARCH
}
