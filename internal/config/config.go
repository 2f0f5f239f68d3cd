// Package config loads narrator's YAML configuration files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apresai/narrator/internal/tts"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// FileName is the global configuration file in the user's home directory.
const FileName = ".narrator.yaml"

// Backend is one set of TTS credentials. Backends are tried in the order
// they are listed.
type Backend struct {
	Name     string `yaml:"name,omitempty"`
	Provider string `yaml:"provider,omitempty"`

	Region                string `yaml:"region,omitempty"`
	SubscriptionKey       string `yaml:"subscriptionKey,omitempty"`
	SubscriptionKeySecret string `yaml:"subscriptionKeySecret,omitempty"`
	Endpoint              string `yaml:"endpoint,omitempty"`

	CredentialsFile string  `yaml:"credentialsFile,omitempty"`
	LanguageCode    string  `yaml:"languageCode,omitempty"`
	SpeakingRate    float64 `yaml:"speakingRate,omitempty"`

	Profile string `yaml:"profile,omitempty"`
	Engine  string `yaml:"engine,omitempty"`

	Voice             string `yaml:"voice,omitempty"`
	RequestsPerMinute int    `yaml:"requestsPerMinute,omitempty"`
}

// TTS converts b to the backend configuration used by the tts package.
func (b Backend) TTS() tts.BackendConfig {
	return tts.BackendConfig{
		Name:              b.Name,
		Kind:              strings.ToLower(b.Provider),
		Region:            b.Region,
		SubscriptionKey:   b.SubscriptionKey,
		Endpoint:          b.Endpoint,
		CredentialsFile:   b.CredentialsFile,
		LanguageCode:      b.LanguageCode,
		SpeakingRate:      b.SpeakingRate,
		Profile:           b.Profile,
		Engine:            b.Engine,
		Voice:             b.Voice,
		RequestsPerMinute: b.RequestsPerMinute,
	}
}

type Logging struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Secrets configures AWS Secrets Manager lookups for subscriptionKeySecret.
type Secrets struct {
	Region  string `yaml:"region,omitempty"`
	Profile string `yaml:"profile,omitempty"`
}

// Publish holds defaults for the publish command.
type Publish struct {
	Bucket  string `yaml:"bucket,omitempty"`
	Prefix  string `yaml:"prefix,omitempty"`
	Region  string `yaml:"region,omitempty"`
	Profile string `yaml:"profile,omitempty"`
}

// Config is the global configuration.
type Config struct {
	Backends []Backend `yaml:"backends,omitempty"`
	// MaxFragmentWeight overrides the markup budget of a single request.
	MaxFragmentWeight int     `yaml:"maxFragmentWeight,omitempty"`
	Logging           Logging `yaml:"logging,omitempty"`
	Secrets           Secrets `yaml:"secrets,omitempty"`
	Publish           Publish `yaml:"publish,omitempty"`

	path string
}

// Path is the file the configuration was read from.
func (c *Config) Path() string { return c.path }

// DefaultPath returns $NARRATOR_CONFIG or ~/.narrator.yaml.
func DefaultPath() (string, error) {
	if p := os.Getenv("NARRATOR_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, FileName), nil
}

// Load reads and validates the global configuration. ${VAR} references are
// expanded from the environment before parsing.
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("could not find config file at %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.path = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every backend has what its provider needs and fills
// in display names.
func (c *Config) Validate() error {
	if len(c.Backends) == 0 {
		return c.missing("backends")
	}
	seen := map[string]bool{}
	for i := range c.Backends {
		b := &c.Backends[i]
		b.Provider = strings.ToLower(b.Provider)
		if b.Name == "" {
			b.Name = fmt.Sprintf("%s-%d", b.Provider, i+1)
		}
		if seen[b.Name] {
			return fmt.Errorf("error in %s: backend name %q is used twice", c.path, b.Name)
		}
		seen[b.Name] = true

		switch b.Provider {
		case tts.KindAzure:
			if b.Region == "" && b.Endpoint == "" {
				return c.missing(fmt.Sprintf("backends[%d].region", i))
			}
			if b.SubscriptionKey == "" && b.SubscriptionKeySecret == "" {
				return c.missing(fmt.Sprintf("backends[%d].subscriptionKey", i))
			}
		case tts.KindGoogle, tts.KindPolly:
		case "":
			return c.missing(fmt.Sprintf("backends[%d].provider", i))
		default:
			return fmt.Errorf("error in %s: backends[%d].provider %q is not one of azure, google, polly", c.path, i, b.Provider)
		}
		if b.RequestsPerMinute < 0 {
			return fmt.Errorf("error in %s: backends[%d].requestsPerMinute must not be negative", c.path, i)
		}
	}
	if c.MaxFragmentWeight < 0 {
		return fmt.Errorf("error in %s: maxFragmentWeight must not be negative", c.path)
	}
	return nil
}

func (c *Config) missing(key string) error {
	return fmt.Errorf("error in %s: %s is missing or empty", c.path, key)
}

// Kinds returns the distinct providers in priority order.
func (c *Config) Kinds() []string {
	var kinds []string
	seen := map[string]bool{}
	for _, b := range c.Backends {
		if !seen[b.Provider] {
			seen[b.Provider] = true
			kinds = append(kinds, b.Provider)
		}
	}
	return kinds
}

// FragmentWeight is the markup budget of a single synthesis request. Without
// an explicit maxFragmentWeight it is the smallest limit among the configured
// backends, since failover may replay a fragment on any of them.
func (c *Config) FragmentWeight() int {
	if c.MaxFragmentWeight > 0 {
		return c.MaxFragmentWeight
	}
	weight := 0
	for _, b := range c.Backends {
		if w := tts.MaxRequestWeight(b.Provider); weight == 0 || w < weight {
			weight = w
		}
	}
	return weight
}

// AddBackend appends b to the configuration file at path, creating the file
// when it does not exist. ${VAR} references already in the file are kept.
func AddBackend(fs afero.Fs, path string, b Backend) error {
	var cfg Config
	data, err := afero.ReadFile(fs, path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return fmt.Errorf("read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.path = path
	cfg.Backends = append(cfg.Backends, b)
	if err := cfg.Validate(); err != nil {
		return err
	}

	out, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(fs, path, out, 0o600)
}
