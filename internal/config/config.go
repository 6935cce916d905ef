package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap/zapcore"

	"github.com/n3wscott/contactbook/internal/store"
)

// EnvPrefix marks environment variables that override file settings,
// e.g. CONTACTBOOK_LOG_LEVEL -> log_level.
const EnvPrefix = "CONTACTBOOK_"

// Config captures all runtime configuration.
type Config struct {
	Dir        string        `koanf:"dir"`
	DBaseFile  string        `koanf:"dbase_file"`
	BackupFile string        `koanf:"backup_file"`
	LogFile    string        `koanf:"log_file"`
	Separator  string        `koanf:"separator"`
	NumOfLines int           `koanf:"num_of_lines"`
	MarkPrint  int           `koanf:"mark_print"`
	LogLevel   string        `koanf:"log_level"`
	Debounce   time.Duration `koanf:"debounce"`
	Welcome    string        `koanf:"welcome"`
}

const (
	defaultDirName    = "contact_book"
	defaultConfigFile = "config.yaml"
	defaultDBaseFile  = "contact-book.dbase"
	defaultBackupFile = "contact-book.backup"
	defaultLogFile    = "contact-book.log"
	defaultLogLevel   = "info"
	defaultDebounce   = 250 * time.Millisecond
	defaultWelcome    = "Welcome to your contact book!"

	maxConfigFileSize = 1 << 20
)

// Default returns the configuration used when nothing is overridden.
func Default() (Config, error) {
	dir, err := DefaultDir()
	if err != nil {
		return Config{}, err
	}
	cfg := Config{Dir: dir}
	applyDefaults(&cfg, func(string) bool { return false })
	return cfg, nil
}

// DefaultDir is <home>/contact_book.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: locating home directory: %w", err)
	}
	return filepath.Join(home, defaultDirName), nil
}

// DefaultPath is the config file read when no path is given.
func DefaultPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, defaultConfigFile), nil
}

// Load reads the YAML file at path (skipped when absent), applies
// CONTACTBOOK_* environment overrides, fills defaults and validates.
// An empty path means DefaultPath.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	data, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("config: loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}

	if cfg.Dir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		cfg.Dir = dir
	}
	applyDefaults(&cfg, k.Exists)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config: %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config: %s exceeds %d bytes", path, maxConfigFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return data, nil
}

// applyDefaults fills unset values. explicit reports keys the user set, so
// a deliberate 0 for the paging values survives and ChunkFor clamps it.
func applyDefaults(cfg *Config, explicit func(key string) bool) {
	if cfg.DBaseFile == "" {
		cfg.DBaseFile = defaultDBaseFile
	}
	if cfg.BackupFile == "" {
		cfg.BackupFile = defaultBackupFile
	}
	if cfg.LogFile == "" {
		cfg.LogFile = defaultLogFile
	}
	if cfg.Separator == "" {
		cfg.Separator = store.DefaultSeparator
	}
	if cfg.NumOfLines == 0 && !explicit("num_of_lines") {
		cfg.NumOfLines = store.DefaultThreshold
	}
	if cfg.MarkPrint == 0 && !explicit("mark_print") {
		cfg.MarkPrint = store.DefaultChunk
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	if cfg.Debounce == 0 {
		cfg.Debounce = defaultDebounce
	}
	if cfg.Welcome == "" {
		cfg.Welcome = defaultWelcome
	}
}

// Validate checks that config values are usable.
func (c *Config) Validate() error {
	if strings.ContainsAny(c.Separator, "\r\n") {
		return errors.New("config: separator cannot contain line breaks")
	}
	if c.NumOfLines < 0 {
		return fmt.Errorf("config: num_of_lines must not be negative, got %d", c.NumOfLines)
	}
	if c.MarkPrint < 0 {
		return fmt.Errorf("config: mark_print must not be negative, got %d", c.MarkPrint)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("config: debounce must not be negative, got %v", c.Debounce)
	}
	if _, err := ToZapLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// DBasePath is the delimited database file.
func (c *Config) DBasePath() string {
	return c.resolve(c.DBaseFile)
}

// BackupPath is the JSON backup file.
func (c *Config) BackupPath() string {
	return c.resolve(c.BackupFile)
}

// LogPath is the append-only trace log.
func (c *Config) LogPath() string {
	return c.resolve(c.LogFile)
}

func (c *Config) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Dir, name)
}

// EnsureDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDir() error {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("config: creating %s: %w", c.Dir, err)
	}
	return nil
}

// StoreOptions converts the tuning values into persistence options.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Separator:    c.Separator,
		Threshold:    c.NumOfLines,
		DefaultChunk: c.MarkPrint,
	}
}

// ToZapLevel converts string log levels into zap levels.
func ToZapLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("config: invalid log level %q", level)
	}
}
