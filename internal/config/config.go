package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDocsURL       = "http://localhost:8080"
	DefaultUsersURL      = "http://localhost:8081"
	DefaultTimeout       = 30 * time.Second
	DefaultImportTimeout = 120 * time.Second
)

// Environment variables read by Load.
const (
	EnvConfig   = "APIDOCS_CONFIG"
	EnvDocsURL  = "APIDOCS_DOCS_URL"
	EnvUsersURL = "APIDOCS_USERS_URL"
	EnvToken    = "APIDOCS_TOKEN"
)

// Config is the resolved console configuration.
type Config struct {
	DocsURL       string        `yaml:"docs_url"`
	UsersURL      string        `yaml:"users_url"`
	Timeout       time.Duration `yaml:"timeout"`
	ImportTimeout time.Duration `yaml:"import_timeout"`
	SessionFile   string        `yaml:"session_file"`
	// Token is only ever set from the environment or a flag.
	Token string `yaml:"-"`
}

// Overrides are values given on the command line. Zero values mean unset.
type Overrides struct {
	DocsURL  string
	UsersURL string
	Timeout  time.Duration
	Token    string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DocsURL:       DefaultDocsURL,
		UsersURL:      DefaultUsersURL,
		Timeout:       DefaultTimeout,
		ImportTimeout: DefaultImportTimeout,
	}
}

// DefaultPath is <user config dir>/apidocs/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "apidocs", "config.yaml")
}

// Load resolves the configuration: flags over environment over file over
// defaults. path may be empty, in which case APIDOCS_CONFIG or DefaultPath is
// used and a missing file is not an error. An explicitly named file must
// exist.
func Load(path string, flags Overrides, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if p := getenv(EnvConfig); p != "" {
			path, explicit = p, true
		} else {
			path = DefaultPath()
		}
	}
	if path != "" {
		if err := loadFile(&cfg, path, explicit); err != nil {
			return nil, err
		}
	}

	if v := getenv(EnvDocsURL); v != "" {
		cfg.DocsURL = v
	}
	if v := getenv(EnvUsersURL); v != "" {
		cfg.UsersURL = v
	}
	if v := getenv(EnvToken); v != "" {
		cfg.Token = v
	}

	if flags.DocsURL != "" {
		cfg.DocsURL = flags.DocsURL
	}
	if flags.UsersURL != "" {
		cfg.UsersURL = flags.UsersURL
	}
	if flags.Timeout != 0 {
		cfg.Timeout = flags.Timeout
	}
	if flags.Token != "" {
		cfg.Token = flags.Token
	}

	cfg.SessionFile = expandHome(cfg.SessionFile)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(cfg *Config, path string, mustExist bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !mustExist {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config YAML %s: %w", path, err)
	}
	return nil
}

// Validate checks that both service URLs are absolute and the timeouts are
// positive.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{"docs_url": c.DocsURL, "users_url": c.UsersURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s %q must be an absolute URL such as http://localhost:8080", name, raw)
		}
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.ImportTimeout <= 0 {
		return fmt.Errorf("import_timeout must be positive, got %s", c.ImportTimeout)
	}
	return nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
