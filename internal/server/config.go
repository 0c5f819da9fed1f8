package server

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"github.com/rmksrv/mkxray-web/internal/installcmd"
	"github.com/rmksrv/mkxray-web/internal/secrets"
	"github.com/rmksrv/mkxray-web/internal/web"
	"github.com/rmksrv/mkxray-web/pkg/sockpath"
)

// Config is the top-level daemon configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Web     WebConfig     `mapstructure:"web"`
	NATS    NATSConfig    `mapstructure:"nats"`
	Form    FormConfig    `mapstructure:"form"`
	Secrets SecretsConfig `mapstructure:"secrets"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// ServerConfig holds control socket settings.
type ServerConfig struct {
	Socket string `mapstructure:"socket"`
}

// WebConfig holds web UI settings.
type WebConfig struct {
	Listen         string `mapstructure:"listen"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"` // #nosec G117 -- config deserialization, not hardcoded
	MaxConns       int    `mapstructure:"max_conns"`
	ActivityBuffer int    `mapstructure:"activity_buffer"`
}

// NATSConfig holds embedded NATS settings.
type NATSConfig struct {
	Host  string `mapstructure:"host"`
	Port  int    `mapstructure:"port"`
	Token string `mapstructure:"token"`
}

// FormConfig holds the values the install form starts with.
type FormConfig struct {
	DefaultDest string `mapstructure:"default_dest"`
	DefaultArch string `mapstructure:"default_arch"`
	EscapeDest  bool   `mapstructure:"escape_dest"`
	HotReload   bool   `mapstructure:"hot_reload"`
}

// SecretsConfig holds the age identity location.
type SecretsConfig struct {
	Identity string `mapstructure:"identity"`
}

// Defaults converts the form section into web form defaults.
func (f FormConfig) Defaults() web.FormDefaults {
	return web.FormDefaults{
		Dest:       f.DefaultDest,
		Arch:       f.DefaultArch,
		EscapeDest: f.EscapeDest,
	}
}

// LoadConfig reads configuration from file and env. A missing config file
// is not an error; a malformed one is.
func LoadConfig(cfgFile string) (Config, error) {
	v := viper.New()

	v.SetDefault("server.socket", sockpath.DefaultSocketPath())
	v.SetDefault("web.listen", "127.0.0.1:8501")
	v.SetDefault("web.max_conns", 256)
	v.SetDefault("web.activity_buffer", 50)
	v.SetDefault("nats.port", -1)
	v.SetDefault("form.default_dest", "www.samsung.com:443")
	v.SetDefault("form.default_arch", installcmd.DefaultArch.String())
	v.SetDefault("form.escape_dest", false)
	v.SetDefault("form.hot_reload", true)

	v.SetConfigType("toml")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("mkxray")
		v.AddConfigPath("/etc/mkxray")
		v.AddConfigPath("$HOME/.config/mkxray")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("MKXRAY")
	v.AutomaticEnv()

	v.BindEnv("nats.token", "MKXRAY_NATS_TOKEN")
	v.BindEnv("web.username", "MKXRAY_WEB_USERNAME")
	v.BindEnv("web.password", "MKXRAY_WEB_PASSWORD")
	v.BindEnv("web.listen", "MKXRAY_WEB_LISTEN")

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}

	if err := secrets.Apply(v); err != nil {
		return cfg, fmt.Errorf("decrypt config: %w", err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.File = v.ConfigFileUsed()

	if arch, ok := installcmd.ParseArch(cfg.Form.DefaultArch); !ok {
		return cfg, fmt.Errorf("form.default_arch: unsupported arch %q", arch)
	}
	return cfg, nil
}
