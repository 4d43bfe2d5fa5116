package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/example/stepmigrate/internal/logging"
)

const (
	// DefaultFileName is looked up in the working directory when no config
	// path is given.
	DefaultFileName = "stepmigrate.toml"

	// EnvConfigPath overrides the config file path.
	EnvConfigPath = "STEPMIGRATE_CONFIG"
)

// Version store kinds.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// StoreConfig selects where the current version is kept.
type StoreConfig struct {
	Kind        string `toml:"kind" comment:"Version store: 'file' or 'sqlite'"`
	VersionFile string `toml:"version_file" comment:"Version file used by the file store"`
	DSN         string `toml:"dsn" comment:"SQLite database used by the sqlite store"`
	LockFile    string `toml:"lock_file" comment:"Lock file guarding migration runs (default: '<store>.lock')"`
}

// TargetConfig describes the database SQL script migrations run against.
type TargetConfig struct {
	DSN      string `toml:"dsn" comment:"SQLite database the SQL scripts run against"`
	ResetSQL string `toml:"reset_sql" comment:"SQL script run by 'clean' before the version is reset"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `toml:"level" comment:"debug, info, warn or error"`
	Format string `toml:"format" comment:"auto, json or text"`
}

// Config is the resolved tool configuration.
type Config struct {
	MigrationsDir string       `toml:"migrations_dir" comment:"Directory holding the migration scripts"`
	Store         StoreConfig  `toml:"store"`
	Target        TargetConfig `toml:"target"`
	Log           LogConfig    `toml:"log"`

	path string // file the config was loaded from, if any
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		MigrationsDir: "migrations",
		Store: StoreConfig{
			Kind:        StoreFile,
			VersionFile: ".stepmigrate_version",
		},
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatAuto,
		},
	}
}

// Path returns the file the configuration was loaded from, or "".
func (c Config) Path() string {
	return c.path
}

// LockPath returns the lock file, derived from the store location when not
// set explicitly.
func (c Config) LockPath() string {
	if c.Store.LockFile != "" {
		return c.Store.LockFile
	}
	if c.Store.Kind == StoreSQLite && c.Store.DSN != "" {
		return c.Store.DSN + ".lock"
	}
	return c.Store.VersionFile + ".lock"
}

// Validate reports every missing or invalid value at once.
func (c Config) Validate() error {
	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 4)

	if strings.TrimSpace(c.MigrationsDir) == "" {
		missing = append(missing, "migrations_dir")
	}

	switch c.Store.Kind {
	case StoreFile:
		if strings.TrimSpace(c.Store.VersionFile) == "" {
			missing = append(missing, "store.version_file")
		}
	case StoreSQLite:
		if strings.TrimSpace(c.Store.DSN) == "" {
			missing = append(missing, "store.dsn")
		}
	default:
		invalid = append(invalid, "store.kind")
	}

	if c.Target.ResetSQL != "" && c.Target.DSN == "" {
		missing = append(missing, "target.dsn")
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		invalid = append(invalid, "log.level")
	}
	switch strings.ToLower(c.Log.Format) {
	case logging.FormatAuto, logging.FormatJSON, logging.FormatText:
	default:
		invalid = append(invalid, "log.format")
	}

	if len(missing) > 0 {
		return fmt.Errorf("config: missing required values: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return fmt.Errorf("config: invalid values: %s", strings.Join(invalid, ", "))
	}
	return nil
}

// Load builds the configuration with LoadUnvalidated and validates it.
func Load(userPath string) (Config, error) {
	cfg, err := LoadUnvalidated(userPath)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadUnvalidated builds the configuration from defaults, the config file and
// the process environment, in that order of precedence (lowest first). Callers
// layering further overrides on top must call Validate themselves.
//
// When userPath is empty the file named by STEPMIGRATE_CONFIG is used, and
// failing that ./stepmigrate.toml if it exists. An explicitly requested file
// must exist.
func LoadUnvalidated(userPath string) (Config, error) {
	cfg := Default()

	path, explicit := userPath, userPath != ""
	if !explicit {
		if p, ok := os.LookupEnv(EnvConfigPath); ok && p != "" {
			path, explicit = p, true
		} else {
			path = DefaultFileName
		}
	}

	if err := cfg.loadFile(path, explicit); err != nil {
		return Config{}, err
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string, explicit bool) error {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: no config file found at %q", path)
		}
		return fmt.Errorf("config: read file: %w", err)
	}

	dec := toml.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("config: %s: %s", path, strict.String())
		}
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	c.path = path
	return nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		key    string
		target *string
	}{
		{"STEPMIGRATE_MIGRATIONS_DIR", &c.MigrationsDir},
		{"STEPMIGRATE_STORE", &c.Store.Kind},
		{"STEPMIGRATE_VERSION_FILE", &c.Store.VersionFile},
		{"STEPMIGRATE_STORE_DSN", &c.Store.DSN},
		{"STEPMIGRATE_LOCK_FILE", &c.Store.LockFile},
		{"STEPMIGRATE_TARGET_DSN", &c.Target.DSN},
		{"STEPMIGRATE_RESET_SQL", &c.Target.ResetSQL},
		{"STEPMIGRATE_LOG_LEVEL", &c.Log.Level},
		{"STEPMIGRATE_LOG_FORMAT", &c.Log.Format},
	}
	for _, o := range overrides {
		if value := strings.TrimSpace(os.Getenv(o.key)); value != "" {
			*o.target = value
		}
	}
}

// Render encodes c as a commented TOML document that Load accepts.
func Render(c Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("config: encode: %w", err)
	}
	return buf.Bytes(), nil
}
