// Package config builds the layered sqlscorer configuration.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// FileName is the per-repository configuration file.
const FileName = ".sqlscorer.yml"

// Result sink backends.
const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendSQLite   = "sqlite"
	BackendNone     = "none"
)

var (
	backends = []string{BackendPostgres, BackendMongo, BackendSQLite, BackendNone}
	formats  = []string{"text", "json", "sarif", "table"}
)

// envKeys maps the recognized environment variables to config keys.
var envKeys = map[string]string{
	"SCORER_DB":             "backend",
	"SQLSCORER_DB_URL":      "db_url",
	"POSTGRES_DBNAME":       "postgres.dbname",
	"POSTGRES_USER":         "postgres.user",
	"POSTGRES_PASSWORD":     "postgres.password",
	"POSTGRES_HOST":         "postgres.host",
	"POSTGRES_PORT":         "postgres.port",
	"MONGO_URI":             "mongo.uri",
	"MONGO_DBNAME":          "mongo.dbname",
	"SQLSCORER_SQLITE_PATH": "sqlite.path",
}

// flagKeys maps CLI flags to config keys. Flags not listed stay CLI-only.
var flagKeys = map[string]string{
	"backend":      "backend",
	"db-url":       "db_url",
	"format":       "defaults.format",
	"timeout":      "defaults.timeout",
	"plan-timeout": "defaults.plan_timeout",
	"parallel":     "defaults.parallel",
	"exclude":      "exclude.paths",
}

// Config holds all sqlscorer configuration.
type Config struct {
	Backend  string       `koanf:"backend"`
	DBURL    string       `koanf:"db_url"`
	Postgres Postgres     `koanf:"postgres"`
	Mongo    Mongo        `koanf:"mongo"`
	SQLite   SQLite       `koanf:"sqlite"`
	Exclude  Exclude      `koanf:"exclude"`
	Defaults Defaults     `koanf:"defaults"`
	Rules    []RuleConfig `koanf:"rules"`

	// File is the configuration file that was loaded, if any.
	File string `koanf:"-"`
}

// Postgres holds the discrete connection fields used when db_url is empty.
type Postgres struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"dbname"`
}

// Mongo configures the document sink.
type Mongo struct {
	URI    string `koanf:"uri"`
	DBName string `koanf:"dbname"`
}

// SQLite configures the local relational sink.
type SQLite struct {
	Path string `koanf:"path"`
}

// Exclude lists finding names and path globs to skip.
type Exclude struct {
	Findings []string `koanf:"findings"`
	Paths    []string `koanf:"paths"`
}

// Defaults holds default CLI flag values.
type Defaults struct {
	Format      string `koanf:"format"`
	Timeout     string `koanf:"timeout"`      // parsed as time.Duration
	PlanTimeout string `koanf:"plan_timeout"` // parsed as time.Duration
	Parallel    int    `koanf:"parallel"`
}

// RuleConfig declares a custom regular-expression rule.
type RuleConfig struct {
	Name        string `koanf:"name"`
	Pattern     string `koanf:"pattern"`
	Prefix      string `koanf:"prefix"`
	Severity    string `koanf:"severity"`
	Description string `koanf:"description"`
}

func defaultValues() map[string]any {
	return map[string]any{
		"backend":               BackendPostgres,
		"postgres.host":         "localhost",
		"postgres.port":         5432,
		"postgres.user":         "postgres",
		"postgres.password":     "postgres",
		"postgres.dbname":       "scorer",
		"mongo.uri":             "mongodb://localhost:27017/",
		"mongo.dbname":          "scorer",
		"sqlite.path":           "sqlscorer.db",
		"defaults.format":       "text",
		"defaults.timeout":      "30s",
		"defaults.plan_timeout": "10s",
		"defaults.parallel":     0,
	}
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	k := koanf.New(".")
	_ = k.Load(confmap.Provider(defaultValues(), "."), nil)

	var cfg Config
	_ = k.Unmarshal("", &cfg)
	return cfg
}

// Exists reports whether dir contains a configuration file.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, FileName))
	return err == nil
}

// Load builds the configuration. Precedence, lowest first: defaults,
// .sqlscorer.yml in dir (or ~/.sqlscorer.yml), environment, explicitly set
// flags. flags may be nil.
func Load(dir string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultValues(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	path := findFile(dir)
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	// Empty variables are ignored so they never blank a default.
	if err := k.Load(env.ProviderWithValue("", ".", func(key, value string) (string, any) {
		if value == "" {
			return "", nil
		}
		return envKeys[key], value
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return Config{}, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	cfg.File = path
	return cfg, nil
}

func findFile(dir string) string {
	paths := []string{filepath.Join(dir, FileName)}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, FileName))
	}
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// Validate rejects settings that would fail later in the run.
func (c *Config) Validate() error {
	if !slices.Contains(backends, c.Backend) {
		return fmt.Errorf("unknown backend %q (want one of %s)", c.Backend, strings.Join(backends, ", "))
	}
	if !slices.Contains(formats, c.Defaults.Format) {
		return fmt.Errorf("unknown format %q (want one of %s)", c.Defaults.Format, strings.Join(formats, ", "))
	}
	for _, d := range []struct{ key, val string }{
		{"defaults.timeout", c.Defaults.Timeout},
		{"defaults.plan_timeout", c.Defaults.PlanTimeout},
	} {
		if d.val == "" {
			continue
		}
		if _, err := time.ParseDuration(d.val); err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
	}
	if c.Defaults.Parallel < 0 {
		return fmt.Errorf("defaults.parallel must be >= 0, got %d", c.Defaults.Parallel)
	}

	seen := make(map[string]bool)
	for i, r := range c.Rules {
		if r.Name == "" {
			return fmt.Errorf("rules[%d]: name is required", i)
		}
		if seen[r.Name] {
			return fmt.Errorf("rules[%d]: duplicate rule %q", i, r.Name)
		}
		seen[r.Name] = true
		if r.Pattern == "" {
			return fmt.Errorf("rule %s: pattern is required", r.Name)
		}
		if _, err := regexp.Compile(r.Pattern); err != nil {
			return fmt.Errorf("rule %s: %w", r.Name, err)
		}
	}
	return nil
}

// PostgresURL returns db_url, or a URL built from the discrete postgres fields.
func (c *Config) PostgresURL() string {
	if c.DBURL != "" {
		return c.DBURL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Postgres.User, c.Postgres.Password),
		Host:   net.JoinHostPort(c.Postgres.Host, strconv.Itoa(c.Postgres.Port)),
		Path:   "/" + c.Postgres.DBName,
	}
	return u.String()
}

// TimeoutDuration parses Defaults.Timeout. Returns 30s if parsing fails.
func (c *Config) TimeoutDuration() time.Duration {
	return parseDuration(c.Defaults.Timeout, 30*time.Second)
}

// PlanTimeoutDuration parses Defaults.PlanTimeout. Returns 10s if parsing fails.
func (c *Config) PlanTimeoutDuration() time.Duration {
	return parseDuration(c.Defaults.PlanTimeout, 10*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
