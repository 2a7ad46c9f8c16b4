// Package config loads the application shell's configuration from a
// YAML file with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for tuning knobs left unset in the config file.
const (
	DefaultPageSize    = 100
	DefaultPageLimit   = 3
	DefaultWorkers     = 4
	DefaultPageTimeout = 30 * time.Second
)

// Config holds the shell configuration for one ingestion cycle.
type Config struct {
	// Token authenticates against the GitHub API. Usually supplied via
	// the STREAMS_GITHUB_TOKEN environment variable, not the file.
	Token string `yaml:"token"`

	// Repos lists the repositories to ingest, as "owner/name".
	Repos []string `yaml:"repos"`

	// APIBaseURL overrides the GitHub API base URL (enterprise setups).
	APIBaseURL string `yaml:"api_base_url"`

	PageSize    int           `yaml:"page_size"`
	PageLimit   int           `yaml:"page_limit"`
	Workers     int           `yaml:"workers"`
	PageTimeout time.Duration `yaml:"page_timeout"`
}

// Load reads the config file at path (optional, may be empty), applies
// environment overrides and fills in defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	return cfg, nil
}

func (c *Config) applyEnv() {
	if token := os.Getenv("STREAMS_GITHUB_TOKEN"); token != "" {
		c.Token = token
	}
	if repos := os.Getenv("STREAMS_REPOS"); repos != "" {
		c.Repos = splitRepos(repos)
	}
	if base := os.Getenv("STREAMS_API_BASE_URL"); base != "" {
		c.APIBaseURL = base
	}
	if size := os.Getenv("STREAMS_PAGE_SIZE"); size != "" {
		if n, err := strconv.Atoi(size); err == nil && n > 0 {
			c.PageSize = n
		}
	}
	if limit := os.Getenv("STREAMS_PAGE_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			c.PageLimit = n
		}
	}
	if workers := os.Getenv("STREAMS_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil && n > 0 {
			c.Workers = n
		}
	}
	if timeout := os.Getenv("STREAMS_PAGE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			c.PageTimeout = d
		}
	}
}

func (c *Config) applyDefaults() {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.PageLimit <= 0 {
		c.PageLimit = DefaultPageLimit
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.PageTimeout <= 0 {
		c.PageTimeout = DefaultPageTimeout
	}
}

// Validate checks that the configuration can drive a fetch cycle.
func (c *Config) Validate() error {
	if len(c.Repos) == 0 {
		return fmt.Errorf("no repositories configured")
	}
	for _, repo := range c.Repos {
		if _, _, err := SplitRepo(repo); err != nil {
			return err
		}
	}
	return nil
}

// SplitRepo splits an "owner/name" spec into its parts.
func SplitRepo(spec string) (owner, name string, err error) {
	parts := strings.Split(spec, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q, want owner/name", spec)
	}
	return parts[0], parts[1], nil
}

func splitRepos(value string) []string {
	var repos []string
	for _, repo := range strings.Split(value, ",") {
		repo = strings.TrimSpace(repo)
		if repo != "" {
			repos = append(repos, repo)
		}
	}
	return repos
}
