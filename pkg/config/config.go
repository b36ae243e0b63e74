package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the image harvester
type Config struct {
	// Page to harvest
	Target TargetConfig `yaml:"target" json:"target"`

	// Browser automation settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Scroll/probe loop settings
	Harvest HarvestConfig `yaml:"harvest" json:"harvest"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// TargetConfig holds the page to harvest
type TargetConfig struct {
	URL string `yaml:"url" json:"url"`
}

// BrowserConfig holds page-automation configuration
type BrowserConfig struct {
	Engine             Engine        `yaml:"engine" json:"engine"`
	Headless           bool          `yaml:"headless" json:"headless"`
	Stealth            bool          `yaml:"stealth" json:"stealth"`
	UserAgent          string        `yaml:"user_agent" json:"user_agent"`
	RemoteURL          string        `yaml:"remote_url" json:"remote_url"`
	NavigationTimeout  time.Duration `yaml:"navigation_timeout" json:"navigation_timeout"`
	NetworkIdleTimeout time.Duration `yaml:"network_idle_timeout" json:"network_idle_timeout"`
	CaptureTimeout     time.Duration `yaml:"capture_timeout" json:"capture_timeout"`
}

// HarvestConfig holds the convergence loop configuration
type HarvestConfig struct {
	Interact      bool          `yaml:"interact" json:"interact"`
	MaxScrolls    int           `yaml:"max_scrolls" json:"max_scrolls"`
	SettleDelay   time.Duration `yaml:"settle_delay" json:"settle_delay"`
	TextTimeout   time.Duration `yaml:"text_timeout" json:"text_timeout"`
	ScrollTimeout time.Duration `yaml:"scroll_timeout" json:"scroll_timeout"`
	ClickTimeout  time.Duration `yaml:"click_timeout" json:"click_timeout"`
	MaxCandidates int           `yaml:"max_candidates" json:"max_candidates"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	Directory       string   `yaml:"directory" json:"directory"`
	ManifestName    string   `yaml:"manifest_name" json:"manifest_name"`
	Mode            SaveMode `yaml:"mode" json:"mode"`
	AspectNormalize bool     `yaml:"aspect_normalize" json:"aspect_normalize"`
}

// DownloadConfig holds byte fetcher configuration
type DownloadConfig struct {
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
	// MaxSize is the largest response body accepted, in bytes
	MaxSize int64 `yaml:"max_size" json:"max_size"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Engine:             EngineRod,
			Headless:           true,
			Stealth:            false,
			UserAgent:          "",
			NavigationTimeout:  45 * time.Second,
			NetworkIdleTimeout: 15 * time.Second,
			CaptureTimeout:     2 * time.Second,
		},
		Harvest: HarvestConfig{
			Interact:      true,
			MaxScrolls:    30,
			SettleDelay:   800 * time.Millisecond,
			TextTimeout:   400 * time.Millisecond,
			ScrollTimeout: time.Second,
			ClickTimeout:  1500 * time.Millisecond,
			MaxCandidates: 200,
		},
		Output: OutputConfig{
			Directory:       "./images",
			ManifestName:    "images_manifest.json",
			Mode:            ModeDownload,
			AspectNormalize: false,
		},
		Download: DownloadConfig{
			Timeout:   20 * time.Second,
			UserAgent: defaultUserAgent,
			MaxSize:   64 << 20,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if target := os.Getenv("IMGHARVEST_URL"); target != "" {
		c.Target.URL = target
	}
	if outputDir := os.Getenv("IMGHARVEST_OUTPUT_DIR"); outputDir != "" {
		c.Output.Directory = outputDir
	}
	if mode := os.Getenv("IMGHARVEST_MODE"); mode != "" {
		c.Output.Mode = normalizeMode(mode)
	}
	if engine := os.Getenv("IMGHARVEST_ENGINE"); engine != "" {
		c.Browser.Engine = normalizeEngine(engine)
	}
	if remote := os.Getenv("IMGHARVEST_REMOTE_URL"); remote != "" {
		c.Browser.RemoteURL = remote
	}
	if userAgent := os.Getenv("IMGHARVEST_USER_AGENT"); userAgent != "" {
		c.Browser.UserAgent = userAgent
		c.Download.UserAgent = userAgent
	}

	if v := os.Getenv("IMGHARVEST_MAX_SCROLLS"); v != "" {
		var val int
		if _, err := fmt.Sscanf(v, "%d", &val); err != nil || val <= 0 {
			errs = append(errs, fmt.Errorf("IMGHARVEST_MAX_SCROLLS: invalid value %q", v))
		} else {
			c.Harvest.MaxScrolls = val
		}
	}

	boolVars := map[string]*bool{
		"IMGHARVEST_HEADLESS":         &c.Browser.Headless,
		"IMGHARVEST_STEALTH":          &c.Browser.Stealth,
		"IMGHARVEST_INTERACT":         &c.Harvest.Interact,
		"IMGHARVEST_ASPECT_NORMALIZE": &c.Output.AspectNormalize,
	}
	for name, target := range boolVars {
		if v := os.Getenv(name); v != "" {
			*target = strings.ToLower(v) == "true" || v == "1"
		}
	}

	if logLevel := os.Getenv("IMGHARVEST_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("IMGHARVEST_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".imgharvest.yaml",
		".imgharvest.yml",
		filepath.Join(home, ".config", "imgharvest", "config.yaml"),
		filepath.Join(home, ".config", "imgharvest", "config.yml"),
		filepath.Join(home, ".imgharvest.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid. The target URL is checked
// separately by ValidateTarget because config subcommands run without one.
func (c *Config) Validate() error {
	var errs []error

	if _, err := ParseEngine(string(c.Browser.Engine)); err != nil {
		errs = append(errs, err)
	}
	if c.Browser.NavigationTimeout <= 0 {
		errs = append(errs, errors.New("navigation timeout must be positive"))
	}
	if c.Browser.NetworkIdleTimeout <= 0 {
		errs = append(errs, errors.New("network idle timeout must be positive"))
	}
	if c.Browser.CaptureTimeout <= 0 {
		errs = append(errs, errors.New("capture timeout must be positive"))
	}

	if c.Harvest.MaxScrolls <= 0 {
		errs = append(errs, errors.New("max scrolls must be positive"))
	}
	if c.Harvest.MaxScrolls > 1000 {
		errs = append(errs, errors.New("max scrolls should not exceed 1000"))
	}
	if c.Harvest.SettleDelay < 0 {
		errs = append(errs, errors.New("settle delay cannot be negative"))
	}
	if c.Harvest.TextTimeout <= 0 || c.Harvest.ScrollTimeout <= 0 || c.Harvest.ClickTimeout <= 0 {
		errs = append(errs, errors.New("element timeouts must be positive"))
	}
	if c.Harvest.MaxCandidates <= 0 {
		errs = append(errs, errors.New("max candidates must be positive"))
	}

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.ManifestName == "" || filepath.Base(c.Output.ManifestName) != c.Output.ManifestName {
		errs = append(errs, errors.New("manifest name must be a plain file name"))
	}
	if _, err := ParseSaveMode(string(c.Output.Mode)); err != nil {
		errs = append(errs, err)
	}

	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.MaxSize <= 0 {
		errs = append(errs, errors.New("download max size must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// ValidateTarget checks that a harvestable page URL is configured
func (c *Config) ValidateTarget() error {
	if c.Target.URL == "" {
		return errors.New("target URL is required")
	}
	u, err := url.Parse(c.Target.URL)
	if err != nil {
		return fmt.Errorf("invalid target URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "file" {
		return fmt.Errorf("unsupported target URL scheme %q", u.Scheme)
	}
	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if target, ok := flags["url"].(string); ok && target != "" {
		c.Target.URL = target
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.Directory = outputDir
	}
	if mode, ok := flags["mode"].(string); ok && mode != "" {
		c.Output.Mode = normalizeMode(mode)
	}
	if engine, ok := flags["engine"].(string); ok && engine != "" {
		c.Browser.Engine = normalizeEngine(engine)
	}
	if headless, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = headless
	}
	if stealth, ok := flags["stealth"].(bool); ok {
		c.Browser.Stealth = stealth
	}
	if interact, ok := flags["interact"].(bool); ok {
		c.Harvest.Interact = interact
	}
	if maxScrolls, ok := flags["max-scrolls"].(int); ok && maxScrolls > 0 {
		c.Harvest.MaxScrolls = maxScrolls
	}
	if normalize, ok := flags["aspect-normalize"].(bool); ok {
		c.Output.AspectNormalize = normalize
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// ManifestPath returns the full path of the session manifest
func (c *Config) ManifestPath() string {
	return filepath.Join(c.Output.Directory, c.Output.ManifestName)
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".imgharvest.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
