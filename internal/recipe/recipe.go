package recipe

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (

	// Name of the definition file inside a recipe directory.
	FileName = "recipe.yaml"

	// Metadata directory, relative to the recipe directory.
	MetaDir = ".forge"

	buildLogName = "build.log"
	optionsName  = "build_options.json"
	checksumName = "checksum"
	archiveName  = "result.tar"
	lockName     = "lock"

	// Remote directory holding build results when the recipe names none.
	DefaultResultDir = "/var/tmp/forge/result"
)

// Backend names accepted in recipe definitions.
const (
	BackendHost       = "host"
	BackendVagrant    = "vagrant"
	BackendContainerd = "containerd"
)

// Contents of recipe.yaml.
type Definition struct {
	Name      string `yaml:"name"`      // Human-readable name. Defaults to the directory name.
	Backend   string `yaml:"backend"`   // Build environment backend.
	Build     string `yaml:"build"`     // Build action run inside the environment.
	Provision string `yaml:"provision"` // Setup action run before the build. Optional.
	Result    string `yaml:"result"`    // Directory inside the environment holding the build output.
	Image     string `yaml:"image"`     // OCI archive for the containerd backend, relative to the recipe.
	Platform  string `yaml:"platform"`  // OCI platform for the containerd backend.
}

// A loaded recipe. Immutable for the duration of a build.
type Recipe struct {
	Definition
	Dir string // Absolute path of the recipe directory.
}

// Loads the recipe in dir.
func Load(dir string) (*Recipe, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRecipe, err)
	}

	data, err := os.ReadFile(filepath.Join(abs, FileName))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRecipe, err)
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRecipe, FileName, err)
	}

	r := &Recipe{Definition: def, Dir: abs}
	if err := r.normalize(); err != nil {
		return nil, err
	}
	return r, nil
}

// Applies defaults and validates the definition.
func (r *Recipe) normalize() error {
	if r.Name == "" {
		r.Name = filepath.Base(r.Dir)
	}
	if r.Backend == "" {
		r.Backend = BackendHost
	}
	if r.Result == "" {
		r.Result = DefaultResultDir
	}

	if r.Build == "" {
		return fmt.Errorf("%w: %s: build action is required", ErrRecipe, r.Name)
	}

	switch r.Backend {
	case BackendHost, BackendVagrant:
	case BackendContainerd:
		if r.Image == "" {
			return fmt.Errorf("%w: %s: containerd backend requires an image", ErrRecipe, r.Name)
		}
		if !filepath.IsAbs(r.Image) {
			r.Image = filepath.Join(r.Dir, r.Image)
		}
	default:
		return fmt.Errorf("%w: %s: unknown backend %q", ErrRecipe, r.Name, r.Backend)
	}
	return nil
}

// Returns the metadata directory.
func (r *Recipe) MetaPath() string {
	return filepath.Join(r.Dir, MetaDir)
}

// Returns the append-only build log.
func (r *Recipe) BuildLog() string {
	return filepath.Join(r.MetaPath(), buildLogName)
}

// Returns the persisted build options file.
func (r *Recipe) OptionsFile() string {
	return filepath.Join(r.MetaPath(), optionsName)
}

// Returns the file recording the checksum of the last successful build.
func (r *Recipe) ChecksumFile() string {
	return filepath.Join(r.MetaPath(), checksumName)
}

// Returns the local path the build result is archived to.
func (r *Recipe) ResultArchive() string {
	return filepath.Join(r.MetaPath(), archiveName)
}

// Returns the lock file path the recipe lock key is derived from. The file
// itself is never created.
func (r *Recipe) Lockfile() string {
	return filepath.Join(r.MetaPath(), lockName)
}

// Creates the metadata directory if needed.
func (r *Recipe) EnsureMeta() error {
	if err := os.MkdirAll(r.MetaPath(), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrRecipe, err)
	}
	return nil
}
