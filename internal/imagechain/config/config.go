package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type LoggingCfg struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
	DebugFile   string `mapstructure:"debug_file"`
	InfoFile    string `mapstructure:"info_file"`
}

type SigningCfg struct {
	Scheme         string `mapstructure:"scheme"`
	Signer         string `mapstructure:"signer"`
	PrivateKeyPath string `mapstructure:"private_key_path"`
	PublicKeyPath  string `mapstructure:"public_key_path"`
}

type OutputCfg struct {
	Dir string `mapstructure:"dir"`
}

type Config struct {
	Version string     `mapstructure:"version"`
	Signing SigningCfg `mapstructure:"signing"`
	Output  OutputCfg  `mapstructure:"output"`
	Logging LoggingCfg `mapstructure:"logging"`
}

var cfg *Config

// Load populates global config from a viper instance
func Load(v *viper.Viper) error {
	// set defaults
	v.SetDefault("version", "0.1")
	v.SetDefault("signing.scheme", "ecdsa-p256-sha256")
	v.SetDefault("output.dir", ".")
	v.SetDefault("logging.level", "info")

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	cfg = &c
	return nil
}

func Get() *Config {
	if cfg == nil {
		cfg = &Config{}
	}
	return cfg
}
