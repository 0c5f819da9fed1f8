package mcp

import (
	"github.com/spf13/viper"

	"github.com/rmksrv/mkxray-web/pkg/sockpath"
)

// Config holds all configuration for the MCP server.
type Config struct {
	Daemon DaemonConfig `mapstructure:"daemon"`
}

// DaemonConfig holds settings for connecting to the mkxray-web daemon API.
type DaemonConfig struct {
	Socket string `mapstructure:"socket"`
}

// LoadConfig reads the MCP server configuration from file, env vars, and defaults.
func LoadConfig(cfgFile string) (Config, error) {
	v := viper.New()

	v.SetDefault("daemon.socket", sockpath.DefaultSocketPath())

	v.SetConfigType("toml")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("mkxray-mcp")
		v.AddConfigPath("/etc/mkxray")
		v.AddConfigPath("$HOME/.config/mkxray")
		v.AddConfigPath(".")
	}

	v.BindEnv("daemon.socket", "MKXRAY_DAEMON_SOCKET")

	_ = v.ReadInConfig() // config file is optional

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
