// Package config holds the generator settings. The defaults reproduce the
// fixed archive URLs and cache layout, so no file is ever required.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultNSRLURL = "https://s3.amazonaws.com/docs.nsrl.nist.gov/legacy/NSRLvectors.zip"
	DefaultCAVPURL = "https://csrc.nist.gov/CSRC/media/Projects/Cryptographic-Algorithm-Validation-Program/documents/shs/shabytetestvectors.zip"

	NSRLArchive = "NSRLvectors.zip"
	CAVPArchive = "shabytetestvectors.zip"

	DefaultUserAgent = "Mozilla/5.0"
)

// Config is the full set of generator settings.
type Config struct {
	CacheDir    string        `mapstructure:"cache_dir"`    // where archives are cached
	OutDir      string        `mapstructure:"out_dir"`      // where headers are written
	UserAgent   string        `mapstructure:"user_agent"`   // sent with archive requests
	Parallel    bool          `mapstructure:"parallel"`     // run independent jobs concurrently
	SelfCheck   bool          `mapstructure:"self_check"`   // recompute every parsed digest
	NSRLURL     string        `mapstructure:"nsrl_url"`     // NSRL MD5 archive
	CAVPURL     string        `mapstructure:"cavp_url"`     // CAVP SHA archive
	HTTPTimeout time.Duration `mapstructure:"http_timeout"` // per request
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		CacheDir:    ".",
		OutDir:      "generated",
		UserAgent:   DefaultUserAgent,
		Parallel:    true,
		SelfCheck:   true,
		NSRLURL:     DefaultNSRLURL,
		CAVPURL:     DefaultCAVPURL,
		HTTPTimeout: 5 * time.Minute,
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("cache_dir", d.CacheDir)
	v.SetDefault("out_dir", d.OutDir)
	v.SetDefault("user_agent", d.UserAgent)
	v.SetDefault("parallel", d.Parallel)
	v.SetDefault("self_check", d.SelfCheck)
	v.SetDefault("nsrl_url", d.NSRLURL)
	v.SetDefault("cavp_url", d.CAVPURL)
	v.SetDefault("http_timeout", d.HTTPTimeout)
}

// Load overlays the YAML file at path on the defaults. An empty path yields
// Default().
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	if c.CacheDir == "" {
		return errors.New("config: cache_dir is required")
	}
	if c.OutDir == "" {
		return errors.New("config: out_dir is required")
	}
	if c.NSRLURL == "" || c.CAVPURL == "" {
		return errors.New("config: nsrl_url and cavp_url are required")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("config: invalid http_timeout %s", c.HTTPTimeout)
	}
	return nil
}
