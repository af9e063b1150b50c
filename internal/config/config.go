package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-version"
	apperrors "github.com/jrsteele09/tableau-pat-provisioner/internal/errors"
	"github.com/jrsteele09/tableau-pat-provisioner/internal/utils"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile = "configs.yml"
	DefaultOutputFile = "pat_tokens.txt"
	DefaultLogFile    = "logs.txt"
	DefaultLogLevel   = "debug"

	// Personal access tokens arrived with Tableau 2019.4 (REST API 3.6).
	minimumAPIVersion = "3.6"
)

// Config is the run configuration. It is loaded once and not modified afterwards.
type Config struct {
	Tableau Tableau  `yaml:"tableau"`
	Users   []string `yaml:"users"`
	Options Options  `yaml:"options"`
}

// Tableau describes the target server and the administrator used to impersonate users.
type Tableau struct {
	ServerURL string  `yaml:"server_url"`
	Version   string  `yaml:"version"`
	Verify    *bool   `yaml:"verify"`
	Username  string  `yaml:"username"`
	Password  string  `yaml:"password"`
	SiteName  *string `yaml:"site_name"` // "" selects the Default site
}

// Options are optional run settings; every field has a default.
type Options struct {
	OutputFile     string `yaml:"output_file"`
	LogFile        string `yaml:"log_file"`
	LogLevel       string `yaml:"log_level"`
	DuplicateUsers string `yaml:"duplicate_users"` // "error" (default) or "first"
	HTTPTimeout    string `yaml:"http_timeout"`    // Go duration, empty means no timeout
}

// Load reads and validates the YAML configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Mark(apperrors.Wrapf(err, "[config.Load] reading %s", path), apperrors.ErrConfig)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML configuration document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, apperrors.Mark(apperrors.Wrapf(err, "[config.Parse] yaml"), apperrors.ErrConfig)
	}

	if cfg.Tableau.Password == "" {
		cfg.Tableau.Password = GetEnv(passwordEnvVar, "")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every required field is present and well formed.
// The admin password is not checked here because it may still be prompted for.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Tableau.ServerURL) == "" {
		missing = append(missing, "tableau.server_url")
	}
	if strings.TrimSpace(c.Tableau.Version) == "" {
		missing = append(missing, "tableau.version")
	}
	if c.Tableau.Verify == nil {
		missing = append(missing, "tableau.verify")
	}
	if strings.TrimSpace(c.Tableau.Username) == "" {
		missing = append(missing, "tableau.username")
	}
	if c.Tableau.SiteName == nil {
		missing = append(missing, "tableau.site_name")
	}
	if c.Users == nil {
		missing = append(missing, "users")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required field(s) %s", apperrors.ErrConfig, strings.Join(missing, ", "))
	}

	u, err := url.Parse(c.GetServerURL())
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: tableau.server_url %q must be an absolute http(s) URL", apperrors.ErrConfig, c.Tableau.ServerURL)
	}

	apiVersion, err := version.NewVersion(c.Tableau.Version)
	if err != nil {
		return fmt.Errorf("%w: tableau.version %q: %v", apperrors.ErrConfig, c.Tableau.Version, err)
	}
	if apiVersion.LessThan(version.Must(version.NewVersion(minimumAPIVersion))) {
		return fmt.Errorf("%w: tableau.version %s does not support personal access tokens (need %s or later)", apperrors.ErrConfig, apiVersion.Original(), minimumAPIVersion)
	}

	if len(c.Users) == 0 {
		return fmt.Errorf("%w: users list is empty", apperrors.ErrConfig)
	}
	for i, name := range c.Users {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: users[%d] is blank", apperrors.ErrConfig, i)
		}
	}

	switch c.Options.DuplicateUsers {
	case "", "error", "first":
	default:
		return fmt.Errorf("%w: options.duplicate_users must be \"error\" or \"first\", got %q", apperrors.ErrConfig, c.Options.DuplicateUsers)
	}

	if c.Options.HTTPTimeout != "" {
		if _, err := time.ParseDuration(c.Options.HTTPTimeout); err != nil {
			return fmt.Errorf("%w: options.http_timeout: %v", apperrors.ErrConfig, err)
		}
	}
	return nil
}

// GetServerURL returns the server base address without a trailing slash.
func (c *Config) GetServerURL() string {
	return strings.TrimRight(strings.TrimSpace(c.Tableau.ServerURL), "/")
}

func (c *Config) GetAPIVersion() string {
	return strings.TrimSpace(c.Tableau.Version)
}

func (c *Config) GetVerify() bool {
	return utils.Value(c.Tableau.Verify)
}

func (c *Config) GetSiteName() string {
	return utils.Value(c.Tableau.SiteName)
}

func (c *Config) GetOutputFile() string {
	if c.Options.OutputFile == "" {
		return DefaultOutputFile
	}
	return c.Options.OutputFile
}

func (c *Config) GetLogFile() string {
	if c.Options.LogFile == "" {
		return DefaultLogFile
	}
	return c.Options.LogFile
}

func (c *Config) GetLogLevel() string {
	if c.Options.LogLevel == "" {
		return DefaultLogLevel
	}
	return c.Options.LogLevel
}

func (c *Config) GetDuplicateUsers() string {
	if c.Options.DuplicateUsers == "" {
		return "error"
	}
	return c.Options.DuplicateUsers
}

// GetHTTPTimeout returns zero (no timeout) when unset.
func (c *Config) GetHTTPTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Options.HTTPTimeout)
	return d
}
