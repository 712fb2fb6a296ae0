package cli

import (
	"errors"

	"github.com/cruciblehq/forge/internal/activity"
	"github.com/cruciblehq/forge/internal/build"
	"github.com/cruciblehq/forge/internal/environment"
	"github.com/cruciblehq/forge/internal/lock"
	"github.com/cruciblehq/forge/internal/recipe"
)

// Everything a recipe subcommand works with, wired from the configuration.
type session struct {
	recipe *recipe.Recipe // Loaded recipe.
	store  lock.Store     // Lock store, closed by Close.
	task   *build.Task    // Coordinator for the recipe.
}

// Loads the recipe in dir and wires its task.
func openSession(dir string) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	r, err := recipe.Load(dir)
	if err != nil {
		return nil, err
	}

	env, err := environment.New(r, cfg)
	if err != nil {
		return nil, err
	}

	probe, err := activity.New(activity.Kind(cfg.Probe))
	if err != nil {
		return nil, err
	}

	store, err := lock.Open(lock.Backend(cfg.Lock.Backend), cfg.Lock.Database)
	if err != nil {
		return nil, err
	}

	return &session{
		recipe: r,
		store:  store,
		task:   build.NewTask(r, env, store, probe),
	}, nil
}

// Closes the lock store.
func (s *session) Close() error {
	return s.store.Close()
}

// Closes s, joining a close failure onto err.
func closeSession(s *session, err *error) {
	if cerr := s.Close(); cerr != nil {
		*err = errors.Join(*err, cerr)
	}
}
