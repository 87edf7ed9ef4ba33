// Package config loads the server preferences and classification
// thresholds. Settings come from a YAML preferences file (overridable
// with --prefs), with SPRUCE_-prefixed environment variables taking
// precedence for credentials so they can stay out of files entirely.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Preferences is everything a run needs that is not on the command
// line.
type Preferences struct {
	URL            string `mapstructure:"url"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	VerifySSL      bool   `mapstructure:"verify_ssl"`
	StaleDays      int    `mapstructure:"stale_days"`
	VersionsToKeep int    `mapstructure:"versions_to_keep"`
	FetchWorkers   int    `mapstructure:"fetch_workers"`
}

// ErrMissingCredentials means no usable URL/username/password could be
// resolved from any source.
var ErrMissingCredentials = errors.New("server URL, username, and password must be configured")

// Load resolves preferences. pathOverride, when non-empty, names the
// exact file to read; otherwise the usual search paths are tried and a
// missing file is fine as long as the environment supplies the
// credentials.
func Load(pathOverride string) (*Preferences, error) {
	v := viper.New()
	v.SetDefault("verify_ssl", true)
	v.SetDefault("stale_days", 90)
	v.SetDefault("versions_to_keep", 1)
	v.SetDefault("fetch_workers", 6)

	v.SetEnvPrefix("SPRUCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if pathOverride != "" {
		v.SetConfigFile(pathOverride)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading preferences %s: %w", pathOverride, err)
		}
	} else {
		v.SetConfigName("spruce")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "spruce"))
		}
		v.AddConfigPath("/etc/spruce")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading preferences: %w", err)
			}
		}
	}

	// Bind the credential keys explicitly; AutomaticEnv alone does not
	// surface env-only keys through Unmarshal.
	for _, key := range []string{"url", "username", "password"} {
		if v.Get(key) == nil {
			if value, ok := os.LookupEnv("SPRUCE_" + strings.ToUpper(key)); ok {
				v.Set(key, value)
			}
		}
	}

	prefs := &Preferences{}
	if err := v.Unmarshal(prefs); err != nil {
		return nil, fmt.Errorf("parsing preferences: %w", err)
	}
	if prefs.URL == "" || prefs.Username == "" || prefs.Password == "" {
		return nil, ErrMissingCredentials
	}
	if prefs.StaleDays < 1 {
		prefs.StaleDays = 90
	}
	if prefs.VersionsToKeep < 1 {
		prefs.VersionsToKeep = 1
	}
	return prefs, nil
}
