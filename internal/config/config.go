// Package config loads settings for the contacts programs from flags,
// CONTACTS_* environment variables and an optional config file.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"contacts/internal/errdecode"
)

// DefaultImageURL is the sample image shown on the contact screen.
const DefaultImageURL = "https://media.macphun.com/img/uploads/macphun/blog/2386/1_GlowEffectToAPicture.jpg?q=75&w=1710&h=906&resize=cover"

type Config struct {
	DBPath  string `mapstructure:"db"`
	LogFile string `mapstructure:"logfile"`
	Verbose bool   `mapstructure:"verbose"`
	Debug   bool   `mapstructure:"debug"`

	SaveTimeout time.Duration `mapstructure:"savetimeout"`
	PopOnError  bool          `mapstructure:"poponerror"`

	ServerURL  string `mapstructure:"serverurl"`
	Discover   bool   `mapstructure:"discover"`
	ErrorShape string `mapstructure:"errorshape"`

	ImageURL string `mapstructure:"imageurl"`

	ServerPort int  `mapstructure:"port"`
	Announce   bool `mapstructure:"announce"`
}

// Flags registers every option on fs. Flag names, with dashes removed,
// double as config file keys.
func Flags(fs *pflag.FlagSet) {
	setupFlagNormalization(fs)
	fs.String("config", "", "Path to a config file")
	fs.String("db", "", "Database path (defaults to the per-user data directory)")
	fs.String("log-file", "", "Log file path (defaults next to the database)")
	fs.BoolP("verbose", "v", false, "Log at info level")
	fs.Bool("debug", false, "Log at debug level")
	fs.Duration("save-timeout", 5*time.Second, "Give up on a store operation after this long")
	fs.Bool("pop-on-error", true, "Leave the contact screen even when a save fails")
	fs.String("server-url", "", "Contacts sync server URL")
	fs.Bool("discover", false, "Look for a sync server on the local network when no URL is set")
	fs.String("error-shape", errdecode.ShapeEnvelope, "Error payload shape: array or envelope")
	fs.String("image-url", DefaultImageURL, "Image shown on the contact screen (empty disables it)")
	fs.Int("port", 8765, "Port for the contacts server")
	fs.Bool("announce", true, "Announce the contacts server over mDNS")
}

// Load resolves the configuration. Precedence: flags, environment, config
// file, defaults.
func Load(fs *pflag.FlagSet, stderr io.Writer) (*Config, error) {
	v := viper.New()
	setupViper(v, fs)

	if err := handleConfigFile(v, fs, stderr); err != nil {
		return nil, err
	}
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("unable to bind flags: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}

	if cfg.DBPath == "" {
		dir, err := DataDir()
		if err != nil {
			return nil, err
		}
		cfg.DBPath = filepath.Join(dir, "contacts.db")
	}
	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(filepath.Dir(cfg.DBPath), "contacts.log")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := errdecode.ForShape(c.ErrorShape); err != nil {
		return fmt.Errorf("invalid error-shape: %w", err)
	}
	if c.SaveTimeout <= 0 {
		return fmt.Errorf("save-timeout must be positive, got %v", c.SaveTimeout)
	}
	return nil
}

func setupViper(v *viper.Viper, fs *pflag.FlagSet) {
	v.AddConfigPath("$HOME/.contacts")
	v.AddConfigPath(".")
	v.SetConfigName("config")

	v.SetEnvPrefix("CONTACTS")
	v.AutomaticEnv()

	if f := fs.Lookup("config"); f != nil && f.Changed {
		v.SetConfigFile(f.Value.String())
	}
}

// setupFlagNormalization makes "save-timeout", "save_timeout" and
// "savetimeout" name the same flag.
func setupFlagNormalization(fs *pflag.FlagSet) {
	normalizeFunc := fs.GetNormalizeFunc()
	fs.SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		result := string(normalizeFunc(f, name))
		result = strings.NewReplacer("-", "", "_", "", ".", "").Replace(result)
		return pflag.NormalizedName(result)
	})
}

func handleConfigFile(v *viper.Viper, fs *pflag.FlagSet, stderr io.Writer) error {
	verbose, _ := fs.GetBool("verbose")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("unable to read config file: %w", err)
	}

	if verbose && stderr != nil {
		fmt.Fprintf(stderr, "contacts: read config from %s\n", v.ConfigFileUsed())
	}
	return nil
}

// DataDir is the per-user directory holding the database and log.
func DataDir() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "windows":
		dataDir = os.Getenv("APPDATA")
		if dataDir == "" {
			dataDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support")
	default:
		dataDir = os.Getenv("XDG_DATA_HOME")
		if dataDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share")
		}
	}

	return filepath.Join(dataDir, "contacts"), nil
}
