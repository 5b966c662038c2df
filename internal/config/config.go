package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/jvmtools/svcgen/internal/branding"
	"github.com/jvmtools/svcgen/internal/classpath"
	"github.com/jvmtools/svcgen/internal/platform"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Known configuration keys.
const (
	KeyLogLevel          = "log_level"
	KeyMaxOpenArchives   = "max_open_archives"
	KeyArchiveExtensions = "archive_extensions"
	KeyPlatformPackages  = "platform_packages"
	KeyUpdateCheck       = "update_check"
	KeyJavaHome          = "java_home"
)

// Keys lists every key accepted by Set.
var Keys = []string{KeyLogLevel, KeyMaxOpenArchives, KeyArchiveExtensions, KeyPlatformPackages, KeyUpdateCheck, KeyJavaHome}

// Dir returns the path to the config directory (~/.svcgen/). SVCGEN_HOME
// overrides it.
func Dir() string {
	if v := os.Getenv(branding.EnvVar("HOME")); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.svcgen/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, platform.DirPerm); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
func Load() error {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()

	viper.SetDefault(KeyLogLevel, "info")
	viper.SetDefault(KeyMaxOpenArchives, classpath.DefaultMaxOpenArchives)
	viper.SetDefault(KeyArchiveExtensions, strings.Join(classpath.DefaultArchiveExtensions, ","))
	viper.SetDefault(KeyUpdateCheck, true)

	if err := viper.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(FilePath()); os.IsNotExist(statErr) {
			return nil // no config file yet
		}
		return fmt.Errorf("reading config file %s: %w", FilePath(), err)
	}
	return nil
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	if v, ok := viper.Get(key).([]any); ok {
		return strings.Join(cast.ToStringSlice(v), ",")
	}
	return viper.GetString(key)
}

// Set validates and writes a config key-value pair and saves the config
// file.
func Set(key, value string) error {
	if !slices.Contains(Keys, key) {
		return fmt.Errorf("unknown config key %q (known keys: %s)", key, strings.Join(Keys, ", "))
	}
	switch key {
	case KeyMaxOpenArchives:
		if n, err := cast.ToIntE(value); err != nil || n < 1 {
			return fmt.Errorf("%s must be a positive integer, got %q", key, value)
		}
	case KeyUpdateCheck:
		if _, err := cast.ToBoolE(value); err != nil {
			return fmt.Errorf("%s must be true or false, got %q", key, value)
		}
	}
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// LogLevel returns the configured log level name.
func LogLevel() string { return viper.GetString(KeyLogLevel) }

// UpdateCheck reports whether the CLI may look for newer releases.
func UpdateCheck() bool { return viper.GetBool(KeyUpdateCheck) }

// JavaHome returns the JDK searched for platform classes: the java_home
// setting, or else the JAVA_HOME environment variable.
func JavaHome() string {
	if v := viper.GetString(KeyJavaHome); v != "" {
		return v
	}
	return os.Getenv("JAVA_HOME")
}

// MaxOpenArchives returns the bound on simultaneously open archives.
func MaxOpenArchives() int {
	if n := viper.GetInt(KeyMaxOpenArchives); n > 0 {
		return n
	}
	return classpath.DefaultMaxOpenArchives
}

// ArchiveExtensions returns the extensions treated as archives.
func ArchiveExtensions() []string {
	if exts := list(KeyArchiveExtensions); len(exts) > 0 {
		return exts
	}
	return classpath.DefaultArchiveExtensions
}

// PlatformPackages returns the configured platform package prefixes, or nil
// when the built-in list applies.
func PlatformPackages() []string {
	if !viper.IsSet(KeyPlatformPackages) {
		return nil
	}
	return list(KeyPlatformPackages)
}

// list reads a key holding either a YAML list or a comma-separated string.
func list(key string) []string {
	var raw []string
	switch v := viper.Get(key).(type) {
	case []any:
		raw = cast.ToStringSlice(v)
	case []string:
		raw = v
	default:
		raw = strings.Split(cast.ToString(v), ",")
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
