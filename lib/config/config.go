// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete client configuration.
type Config struct {
	// Environment, when set, overrides classification of
	// Network.Origin.
	Environment Environment `yaml:"environment"`

	Network          NetworkConfig          `yaml:"network"`
	Canisters        CanisterConfig         `yaml:"canisters"`
	IdentityProvider IdentityProviderConfig `yaml:"identity_provider"`
	Storage          StorageConfig          `yaml:"storage"`
	Messaging        MessagingConfig        `yaml:"messaging"`
	Input            InputConfig            `yaml:"input"`
	Bootstrap        BootstrapConfig        `yaml:"bootstrap"`
	Logging          LoggingConfig          `yaml:"logging"`

	// Per-environment overrides, applied after the base file.
	Development *Overrides `yaml:"development,omitempty"`
	Sandbox     *Overrides `yaml:"sandbox,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides holds the sections an environment block may replace.
// Only non-zero fields take effect.
type Overrides struct {
	Network          *NetworkConfig          `yaml:"network,omitempty"`
	Canisters        *CanisterConfig         `yaml:"canisters,omitempty"`
	IdentityProvider *IdentityProviderConfig `yaml:"identity_provider,omitempty"`
	Storage          *StorageConfig          `yaml:"storage,omitempty"`
	Logging          *LoggingConfig          `yaml:"logging,omitempty"`
}

// NetworkConfig locates the backend.
type NetworkConfig struct {
	// Origin is the client's own origin, used to classify the
	// environment when Environment is unset.
	Origin string `yaml:"origin"`

	// LocalReplica is the replica URL used in Development and Sandbox.
	LocalReplica string `yaml:"local_replica"`

	// ProductionHost is the boundary node URL used in Production.
	ProductionHost string `yaml:"production_host"`

	// CallTimeout bounds each actor call and sets its ingress expiry.
	CallTimeout Duration `yaml:"call_timeout"`
}

// CanisterConfig names the three backend actors. IDsFile, when set,
// points at a canister_ids.json file consulted for any id left empty.
type CanisterConfig struct {
	Backend   string `yaml:"backend"`
	Social    string `yaml:"social"`
	Messaging string `yaml:"messaging"`
	IDsFile   string `yaml:"ids_file"`
}

// IdentityProviderConfig configures the delegation provider used in
// Production.
type IdentityProviderConfig struct {
	URL             string `yaml:"url"`
	ApplicationName string `yaml:"application_name"`
	LogoURL         string `yaml:"logo_url"`

	// TokenFile holds the bearer token presented to the provider. "-"
	// reads it from stdin.
	TokenFile string `yaml:"token_file"`
}

// StorageConfig locates the durable key/value store holding the
// session key and any cached delegation.
type StorageConfig struct {
	// Path is the SQLite database file. ":memory:" keeps everything in
	// process memory.
	Path string `yaml:"path"`

	// PassphraseFile, when set, seals every stored value with an age
	// passphrase read from this file.
	PassphraseFile string `yaml:"passphrase_file"`
}

// MessagingConfig tunes the messaging store.
type MessagingConfig struct {
	PollInterval Duration `yaml:"poll_interval"`
	PageSize     int      `yaml:"page_size"`
	ErrorDisplay Duration `yaml:"error_display"`
}

// InputConfig tunes interactive input handling.
type InputConfig struct {
	UsernameDebounce Duration `yaml:"username_debounce"`
	SearchDebounce   Duration `yaml:"search_debounce"`
	SearchMinLength  int      `yaml:"search_min_length"`
}

// BootstrapConfig bounds identity acquisition.
type BootstrapConfig struct {
	MaxAttempts   int      `yaml:"max_attempts"`
	Backoff       Duration `yaml:"backoff"`
	DelegationTTL Duration `yaml:"delegation_ttl"`
}

// LoggingConfig configures the root logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration is a time.Duration written in YAML as a Go duration string
// such as "30s" or "8h".
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalYAML() (any, error) { return time.Duration(d).String(), nil }

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var text string
	if err := node.Decode(&text); err != nil {
		return fmt.Errorf("line %d: duration must be a string like \"30s\": %w", node.Line, err)
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// Default returns a configuration that works against a local replica
// without any file.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Network: NetworkConfig{
			Origin:         "http://localhost:5173",
			LocalReplica:   "http://localhost:4943",
			ProductionHost: "https://icp-api.io",
			CallTimeout:    Duration(60 * time.Second),
		},
		Canisters: CanisterConfig{
			IDsFile: "canister_ids.json",
		},
		IdentityProvider: IdentityProviderConfig{
			URL:             "https://nfid.one",
			ApplicationName: "Chained Social",
		},
		Storage: StorageConfig{
			Path: filepath.Join(homeDir, ".local", "state", "chainedsocial", "client.db"),
		},
		Messaging: MessagingConfig{
			PollInterval: Duration(30 * time.Second),
			PageSize:     50,
			ErrorDisplay: Duration(5 * time.Second),
		},
		Input: InputConfig{
			UsernameDebounce: Duration(500 * time.Millisecond),
			SearchDebounce:   Duration(300 * time.Millisecond),
			SearchMinLength:  2,
		},
		Bootstrap: BootstrapConfig{
			MaxAttempts:   3,
			Backoff:       Duration(time.Second),
			DelegationTTL: Duration(8 * time.Hour),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load reads the file at path, or the file named by CHAINED_CONFIG
// when path is empty. With neither, it returns Default() resolved
// against the default origin.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CHAINED_CONFIG")
	}
	if path == "" {
		cfg := Default()
		cfg.resolve()
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile reads path over Default(), applies the matching
// environment section, and expands ${VAR} and ${VAR:-default} in
// path-valued fields.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse is LoadFile without the file read.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.resolve()
	return cfg, nil
}

func (c *Config) resolve() {
	if c.Environment == "" {
		c.Environment = ClassifyHost(c.Network.Origin)
	} else if parsed, err := ParseEnvironment(string(c.Environment)); err == nil {
		c.Environment = parsed
	}
	c.applyOverrides()
	c.expandVariables()
}

func (c *Config) applyOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Sandbox:
		overrides = c.Sandbox
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if network := overrides.Network; network != nil {
		setString(&c.Network.Origin, network.Origin)
		setString(&c.Network.LocalReplica, network.LocalReplica)
		setString(&c.Network.ProductionHost, network.ProductionHost)
		if network.CallTimeout != 0 {
			c.Network.CallTimeout = network.CallTimeout
		}
	}
	if canisters := overrides.Canisters; canisters != nil {
		setString(&c.Canisters.Backend, canisters.Backend)
		setString(&c.Canisters.Social, canisters.Social)
		setString(&c.Canisters.Messaging, canisters.Messaging)
		setString(&c.Canisters.IDsFile, canisters.IDsFile)
	}
	if provider := overrides.IdentityProvider; provider != nil {
		setString(&c.IdentityProvider.URL, provider.URL)
		setString(&c.IdentityProvider.ApplicationName, provider.ApplicationName)
		setString(&c.IdentityProvider.LogoURL, provider.LogoURL)
		setString(&c.IdentityProvider.TokenFile, provider.TokenFile)
	}
	if storage := overrides.Storage; storage != nil {
		setString(&c.Storage.Path, storage.Path)
		setString(&c.Storage.PassphraseFile, storage.PassphraseFile)
	}
	if logging := overrides.Logging; logging != nil {
		setString(&c.Logging.Level, logging.Level)
		setString(&c.Logging.Format, logging.Format)
	}
}

func setString(target *string, value string) {
	if value != "" {
		*target = value
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{"HOME": os.Getenv("HOME")}
	c.Storage.Path = expandVars(c.Storage.Path, vars)
	c.Storage.PassphraseFile = expandVars(c.Storage.PassphraseFile, vars)
	c.Canisters.IDsFile = expandVars(c.Canisters.IDsFile, vars)
	c.IdentityProvider.TokenFile = expandVars(c.IdentityProvider.TokenFile, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars replaces ${NAME} and ${NAME:-fallback}. vars is consulted
// before the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, fallback := parts[1], parts[2]
		if value := vars[name]; value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return fallback
	})
}

// Host returns the backend URL for the resolved environment.
func (c *Config) Host() string {
	if c.Environment.Deterministic() {
		return c.Network.LocalReplica
	}
	return c.Network.ProductionHost
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if _, err := ParseEnvironment(string(c.Environment)); err != nil {
		errs = append(errs, err)
	}
	if c.Host() == "" {
		errs = append(errs, fmt.Errorf("no backend host configured for %s", c.Environment))
	}
	if c.Network.CallTimeout <= 0 {
		errs = append(errs, fmt.Errorf("network.call_timeout must be positive"))
	}
	if c.Environment == Production && c.IdentityProvider.URL == "" {
		errs = append(errs, fmt.Errorf("identity_provider.url is required in production"))
	}
	if c.Storage.Path == "" {
		errs = append(errs, fmt.Errorf("storage.path is required"))
	}
	if c.Messaging.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("messaging.poll_interval must be positive"))
	}
	if c.Messaging.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("messaging.page_size must be positive"))
	}
	if c.Bootstrap.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("bootstrap.max_attempts must be at least 1"))
	}
	if c.Bootstrap.DelegationTTL <= 0 {
		errs = append(errs, fmt.Errorf("bootstrap.delegation_ttl must be positive"))
	}
	switch c.Logging.Format {
	case "", "auto", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be auto, text or json"))
	}

	return errors.Join(errs...)
}
