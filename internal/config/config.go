package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	jsonv2 "github.com/go-json-experiment/json"
	"github.com/tailscale/hujson"

	"github.com/cruciblehq/forge/internal/paths"
)

// Prefix of environment variables read by [Load].
const EnvPrefix = "FORGE_"

var ErrConfig = errors.New("invalid configuration")

// Top-level configuration.
type Config struct {
	SSH        SSH        `json:"ssh" envPrefix:"SSH_"`
	Vagrant    Vagrant    `json:"vagrant" envPrefix:"VAGRANT_"`
	Containerd Containerd `json:"containerd" envPrefix:"CONTAINERD_"`
	Lock       Lock       `json:"lock" envPrefix:"LOCK_"`
	Probe      string     `json:"probe" env:"PROBE"` // Activity probe: "process" or "fuser".
}

// Connection to a pre-existing build host.
type SSH struct {
	Host       string `json:"host" env:"HOST"`
	User       string `json:"user" env:"USER"`
	Port       int    `json:"port" env:"PORT"`
	PrivateKey string `json:"privateKey" env:"PRIVATE_KEY"`
	Transport  string `json:"transport" env:"TRANSPORT"` // "openssh" or "native".
}

// Vagrant-managed build VMs.
type Vagrant struct {
	Program    string `json:"program" env:"PROGRAM"`
	Host       string `json:"host" env:"HOST"`
	User       string `json:"user" env:"USER"`
	Port       int    `json:"port" env:"PORT"`
	PrivateKey string `json:"privateKey" env:"PRIVATE_KEY"`
}

// Containerd daemon used by the containerd backend.
type Containerd struct {
	Address   string `json:"address" env:"ADDRESS"`
	Namespace string `json:"namespace" env:"NAMESPACE"`
}

// Recipe lock storage.
type Lock struct {
	Backend  string `json:"backend" env:"BACKEND"` // "sqlite" or "semaphore".
	Database string `json:"database" env:"DATABASE"`
}

// Returns the built-in defaults.
func Default() *Config {
	return &Config{
		SSH: SSH{
			Port:      22,
			Transport: "openssh",
		},
		Vagrant: Vagrant{
			Program: "vagrant",
			Host:    "127.0.0.1",
			User:    "vagrant",
			Port:    2222,
		},
		Containerd: Containerd{
			Address:   "/run/containerd/containerd.sock",
			Namespace: "forge",
		},
		Lock: Lock{
			Backend:  "sqlite",
			Database: paths.LockDatabase(),
		},
		Probe: "process",
	}
}

// Builds the configuration from defaults, the file at path and environ.
//
// A missing file is not an error. An empty path uses [paths.ConfigFile].
func Load(path string, environ []string) (*Config, error) {
	if path == "" {
		path = paths.ConfigFile()
	}

	cfg := Default()
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}
	if err := cfg.mergeEnvironment(environ); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Merges the HuJSON file at path into the configuration.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	std, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrConfig, path, err)
	}
	if err := jsonv2.Unmarshal(std, c, jsonv2.RejectUnknownMembers(false)); err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrConfig, path, err)
	}
	return nil
}

// Overrides values with FORGE_* variables present in environ.
func (c *Config) mergeEnvironment(environ []string) error {
	err := env.ParseWithOptions(c, env.Options{
		Environment: env.ToMap(environ),
		Prefix:      EnvPrefix,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return nil
}
