package recipe

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"
)

// Directories excluded from the checksum. Both hold state written by
// builds, not recipe content.
var skipDirs = map[string]bool{
	MetaDir:    true,
	".vagrant": true,
}

// Computes the digest of the recipe content.
//
// Files are visited in lexical order. Each contributes its slash-separated
// relative path, its type and its content (or link target), so renames and
// mode changes between regular file and symlink alter the digest.
func (r *Recipe) Checksum() (digest.Digest, error) {
	digester := digest.Canonical.Digester()
	h := digester.Hash()

	err := filepath.WalkDir(r.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(r.Dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if skipDirs[d.Name()] && path != r.Dir {
				return filepath.SkipDir
			}
			return nil
		}

		switch {
		case d.Type()&fs.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(h, "L %s\x00%s\x00", rel, target)

		case d.Type().IsRegular():
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			fmt.Fprintf(h, "F %s\x00", rel)
			if _, err := io.Copy(h, f); err != nil {
				return err
			}
			h.Write([]byte{0})
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrChecksum, err)
	}

	return digester.Digest(), nil
}

// Returns the checksum of the last successful build, or "" if none was
// recorded or the record is unreadable.
func (r *Recipe) RecordedChecksum() (digest.Digest, error) {
	data, err := os.ReadFile(r.ChecksumFile())
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrChecksum, err)
	}

	d, err := digest.Parse(strings.TrimSpace(string(data)))
	if err != nil {
		return "", nil
	}
	return d, nil
}

// Whether the recipe changed since its last successful build.
func (r *Recipe) JobRequired() (bool, error) {
	recorded, err := r.RecordedChecksum()
	if err != nil {
		return false, err
	}
	if recorded == "" {
		return true, nil
	}

	current, err := r.Checksum()
	if err != nil {
		return false, err
	}
	return current != recorded, nil
}

// Records the current checksum as that of the last successful build.
func (r *Recipe) WriteChecksum() error {
	current, err := r.Checksum()
	if err != nil {
		return err
	}
	if err := r.EnsureMeta(); err != nil {
		return err
	}
	if err := os.WriteFile(r.ChecksumFile(), []byte(current.String()+"\n"), 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrChecksum, err)
	}
	return nil
}
