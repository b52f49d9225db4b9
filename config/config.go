// Package config loads loader settings and permutation manifests.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/bootloader/connector"
	"github.com/wippyai/bootloader/devmode"
	"github.com/wippyai/bootloader/errors"
)

// EnvPrefix prefixes environment overrides, e.g. BOOTLOADER_BRIDGE_CODE_SERVER.
const EnvPrefix = "BOOTLOADER"

// EnvConfig names a config file explicitly.
const EnvConfig = "BOOTLOADER_CONFIG"

// Config holds loader settings.
type Config struct {
	Bridge   BridgeConfig `mapstructure:"bridge"`
	Log      LogConfig    `mapstructure:"log"`
	Manifest string       `mapstructure:"manifest"`
}

// BridgeConfig holds dev-mode settings.
type BridgeConfig struct {
	CodeServer         string `mapstructure:"code_server"`
	ProtocolVersion    string `mapstructure:"protocol_version"`
	MissingPluginURL   string `mapstructure:"missing_plugin_url"`
	TroubleshootingURL string `mapstructure:"troubleshooting_url"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Options converts the bridge settings for devmode.New.
func (b BridgeConfig) Options() devmode.Options {
	return devmode.Options{
		ProtocolVersion:    b.ProtocolVersion,
		MissingPluginURL:   b.MissingPluginURL,
		TroubleshootingURL: b.TroubleshootingURL,
	}
}

// ZapLevel parses the configured log level. Unknown names fall back to info.
func (l LogConfig) ZapLevel() zapcore.Level {
	lvl, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// Binder lets callers attach flags or overrides before the config is read.
type Binder func(v *viper.Viper) error

// Load reads configuration from path, or from $BOOTLOADER_CONFIG, or from
// bootloader.yaml in the working directory or ~/.config/bootloader. A missing
// default file is not an error; a missing explicit file is.
func Load(path string, binders ...Binder) (Config, error) {
	v := viper.New()

	v.SetDefault("bridge.code_server", connector.DefaultCodeServer)
	v.SetDefault("bridge.protocol_version", connector.ProtocolVersion)
	v.SetDefault("bridge.missing_plugin_url", devmode.MissingPluginURL)
	v.SetDefault("bridge.troubleshooting_url", devmode.TroubleshootingURL)
	v.SetDefault("log.level", "info")
	v.SetDefault("manifest", "manifest.yaml")

	v.SetConfigType("yaml")

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	explicit := path != ""
	if explicit {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("bootloader")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "bootloader"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, bind := range binders {
		if err := bind(v); err != nil {
			return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "bind config overrides")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, errors.New(errors.PhaseConfig, errors.KindConfigParse).
				Subject(path).
				Cause(err).
				Detail("read config file").
				Build()
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, errors.New(errors.PhaseConfig, errors.KindConfigParse).
			Subject(v.ConfigFileUsed()).
			Cause(err).
			Detail("decode config").
			Build()
	}
	return c, nil
}
