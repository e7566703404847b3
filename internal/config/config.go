// Package config loads runtime settings from configs/config.yml, EXTRUDER_*
// environment variables and built-in defaults, in increasing precedence
// order: defaults < file < env.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "EXTRUDER"

type Config struct {
	Port   string       `mapstructure:"port"`
	Log    LogConfig    `mapstructure:"log"`
	DB     DBConfig     `mapstructure:"db"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Serial SerialConfig `mapstructure:"serial"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

type SerialConfig struct {
	Port        string        `mapstructure:"port"`
	BaudRate    int           `mapstructure:"baud_rate"`
	AutoConnect bool          `mapstructure:"autoconnect"`
	Simulate    bool          `mapstructure:"simulate"`
	SimTick     time.Duration `mapstructure:"sim_tick"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("db.path", "extruder.db")
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", 12*time.Hour)
	v.SetDefault("serial.port", "")
	v.SetDefault("serial.baud_rate", 115200)
	v.SetDefault("serial.autoconnect", false)
	v.SetDefault("serial.simulate", false)
	v.SetDefault("serial.sim_tick", time.Second)
}

// Load reads the config file at path, or configs/config.yml when path is
// empty. A missing default file is not an error; a missing explicit one is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Serial.BaudRate <= 0 {
		return fmt.Errorf("serial.baud_rate must be positive, got %d", c.Serial.BaudRate)
	}
	if c.Serial.SimTick <= 0 {
		return fmt.Errorf("serial.sim_tick must be positive, got %s", c.Serial.SimTick)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive, got %s", c.Auth.TokenTTL)
	}
	return nil
}
