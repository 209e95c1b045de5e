package config

import (
	"errors"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const DefaultPath = "config/example.yaml"

type Config struct {
	App struct {
		Env            string
		Timezone       string
		PageSize       int  `mapstructure:"page_size"`
		AllowOverIssue bool `mapstructure:"allow_over_issue"`
	} `mapstructure:"app"`

	Telegram struct {
		Token       string
		AdminChatID int64 `mapstructure:"admin_chat_id"`
	} `mapstructure:"telegram"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`
}

// Flags регистрирует флаги командной строки; --config указывает путь к yaml.
func Flags(fs *pflag.FlagSet) {
	fs.String("config", DefaultPath, "path to config file")
	fs.String("http.addr", "", "override http listen address")
}

func Load(path string) (Config, error) {
	return load(path, nil)
}

// LoadWithFlags читает конфиг по пути из --config и применяет переопределения флагов.
func LoadWithFlags(fs *pflag.FlagSet) (Config, error) {
	path, err := fs.GetString("config")
	if err != nil || path == "" {
		path = DefaultPath
	}
	return load(path, fs)
}

func load(path string, fs *pflag.FlagSet) (Config, error) {
	// .env не обязателен
	_ = gotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()

	v.SetDefault("app.env", "prod")
	v.SetDefault("app.timezone", "Asia/Kolkata")
	v.SetDefault("app.page_size", 10)
	v.SetDefault("http.addr", ":8080")

	if fs != nil {
		if f := fs.Lookup("http.addr"); f != nil && f.Changed {
			if err := v.BindPFlag("http.addr", f); err != nil {
				return Config{}, err
			}
		}
	}

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	if c.Postgres.DSN == "" {
		return c, errors.New("postgres.dsn is required")
	}
	if c.App.PageSize <= 0 {
		c.App.PageSize = 10
	}
	return c, nil
}

// Location возвращает часовой пояс отчётов; при ошибке — UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
