package build

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	jsonv2 "github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/cruciblehq/forge/internal/paths"
)

// Build option names mapped to values.
type Options map[string]string

// Returns the options as sorted "key=value" strings.
func (o Options) Environ() []string {
	env := make([]string, 0, len(o))
	for k, v := range o {
		env = append(env, k+"="+v)
	}
	slices.Sort(env)
	return env
}

// Persists build options as a JSON object.
type OptionsStore struct {
	Path string // Options file, usually [recipe.Recipe.OptionsFile].
}

// Writes options, replacing the previous contents.
func (s *OptionsStore) Save(o Options) error {
	if o == nil {
		o = Options{}
	}

	data, err := jsonv2.Marshal(o, jsontext.Multiline(true), jsonv2.Deterministic(true))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOptions, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.Path), paths.DefaultDirMode); err != nil {
		return fmt.Errorf("%w: %w", ErrOptions, err)
	}
	if err := os.WriteFile(s.Path, append(data, '\n'), paths.DefaultFileMode); err != nil {
		return fmt.Errorf("%w: %w", ErrOptions, err)
	}
	return nil
}

// Reads the saved options. A missing or unreadable file yields an empty
// mapping.
func (s *OptionsStore) Load() Options {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Debug("ignoring build options", "path", s.Path, "error", err)
		}
		return Options{}
	}

	var o Options
	if err := jsonv2.Unmarshal(data, &o); err != nil || o == nil {
		slog.Debug("ignoring build options", "path", s.Path, "error", err)
		return Options{}
	}
	return o
}
