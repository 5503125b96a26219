package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	DefaultExtension = ".rexx"
	DefaultEnv       = "SYSTEM"
	DefaultDigits    = 9
)

// Configuration holds the interpreter settings of the command line host.
type Configuration struct {
	Version   string `toml:"-" yaml:"-"`
	BuildDate string `toml:"-" yaml:"-"`
	Commit    string `toml:"-" yaml:"-"`

	Extension  string   `toml:"extension" yaml:"extension"`
	Path       []string `toml:"path" yaml:"path"`
	DefaultEnv string   `toml:"environment" yaml:"environment"`
	Digits     int      `toml:"digits" yaml:"digits"`
	Trace      string   `toml:"trace" yaml:"trace"`
	Shell      string   `toml:"shell" yaml:"shell"`

	LogLevel string `toml:"log_level" yaml:"log_level"`
	LogFile  string `toml:"log_file" yaml:"log_file"`

	SQLDriver string `toml:"sql_driver" yaml:"sql_driver"`
	SQLDSN    string `toml:"sql_dsn" yaml:"sql_dsn"`

	// Source is the file the settings were read from, if any.
	Source string `toml:"-" yaml:"-"`
}

// Default returns the built-in settings.
func Default() Configuration {
	return Configuration{
		Extension:  DefaultExtension,
		DefaultEnv: DefaultEnv,
		Digits:     DefaultDigits,
		Trace:      "N",
		LogLevel:   "none",
		SQLDriver:  "sqlite3",
	}
}

// Load builds the configuration from the defaults, the file named by path
// (or $REXX_CONFIG when path is empty) and the environment. getenv is
// os.Getenv when nil.
func Load(path string, getenv func(string) string) (Configuration, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := Default()
	if path == "" {
		path = getenv("REXX_CONFIG")
	}
	if path != "" {
		if err := cfg.ReadFile(path); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnv(getenv)
	return cfg, cfg.Validate()
}

// ReadFile merges the settings of a TOML or YAML file into cfg. The format
// follows the extension; TOML is assumed for anything but .yaml and .yml.
func (cfg *Configuration) ReadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		md, err := toml.NewDecoder(f).Decode(cfg)
		if err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
		if keys := md.Undecoded(); len(keys) > 0 {
			return fmt.Errorf("config: %s: unknown setting %q", path, keys[0].String())
		}
	}
	cfg.Source = path
	return nil
}

func (cfg *Configuration) applyEnv(getenv func(string) string) {
	if ext := getenv("REXXEXT"); ext != "" {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		cfg.Extension = ext
	}
	if p := getenv("REXXPATH"); p != "" {
		for _, dir := range filepath.SplitList(p) {
			if dir != "" {
				cfg.Path = append(cfg.Path, dir)
			}
		}
	}
	if dsn := getenv("REXX_SQL_DSN"); dsn != "" {
		cfg.SQLDSN = dsn
	}
}

// Validate reports settings the interpreter cannot start with.
func (cfg *Configuration) Validate() error {
	if cfg.Digits < 1 {
		return fmt.Errorf("config: digits must be positive, got %d", cfg.Digits)
	}
	if cfg.DefaultEnv == "" {
		return errors.New("config: environment must not be empty")
	}
	cfg.DefaultEnv = strings.ToUpper(cfg.DefaultEnv)
	switch cfg.SQLDriver {
	case "sqlite3", "mysql", "postgres":
	default:
		return fmt.Errorf("config: unknown sql driver %q", cfg.SQLDriver)
	}
	return nil
}
