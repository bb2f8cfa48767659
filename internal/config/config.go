// Package config 服务配置：默认值 < 配置文件 < 环境变量
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	DriverAirtable = "airtable"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Store   StoreConfig   `mapstructure:"store"`
	DB      DBConfig      `mapstructure:"db"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	SMTP    SMTPConfig    `mapstructure:"smtp"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Outbox  OutboxConfig  `mapstructure:"outbox"`
	Log     LogConfig     `mapstructure:"log"`
	Sentry  SentryConfig  `mapstructure:"sentry"`
	Tracing TracingConfig `mapstructure:"tracing"`
	Auth    AuthConfig    `mapstructure:"auth"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type StoreConfig struct {
	Driver   string         `mapstructure:"driver"`
	Airtable AirtableConfig `mapstructure:"airtable"`
}

type AirtableConfig struct {
	APIKey   string `mapstructure:"api_key"`
	BaseID   string `mapstructure:"base_id"`
	Endpoint string `mapstructure:"endpoint"`
}

type DBConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type NotifyConfig struct {
	Moderators []string `mapstructure:"moderators"`
}

type OutboxConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LogConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Service  string `mapstructure:"service"`
}

type AuthConfig struct {
	Secret string `mapstructure:"secret"`
}

// 部署环境里沿用的变量名，直接绑定
var legacyEnv = map[string]string{
	"store.airtable.api_key": "AIRTABLE_API_KEY",
	"store.airtable.base_id": "AIRTABLE_BASE_ID",
	"auth.secret":            "NEXTAUTH_SECRET",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("store.driver", DriverAirtable)
	v.SetDefault("store.airtable.endpoint", "https://api.airtable.com/v0")
	v.SetDefault("db.dsn", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "viso.records")
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 465)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("notify.moderators", []string{})
	v.SetDefault("outbox.enabled", false)
	v.SetDefault("log.development", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.service", "viso-collective")
	v.SetDefault("auth.secret", "")
}

// Load 读取配置，path 为空时只用默认值和环境变量
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("VISO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "VISO_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	// 环境变量里的列表用逗号分隔
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)
	cfg.Notify.Moderators = splitList(cfg.Notify.Moderators)
	return &cfg, nil
}

// Validate 检查所选存储需要的配置是否齐全
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case DriverAirtable:
		if c.Store.Airtable.APIKey == "" {
			errs = append(errs, errors.New("store.airtable.api_key is required"))
		}
		if c.Store.Airtable.BaseID == "" {
			errs = append(errs, errors.New("store.airtable.base_id is required"))
		}
	case DriverMySQL, DriverPostgres, DriverSQLite:
		if c.DB.DSN == "" {
			errs = append(errs, fmt.Errorf("db.dsn is required for driver %s", c.Store.Driver))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}
	if c.Auth.Secret == "" {
		errs = append(errs, errors.New("auth.secret is required"))
	}
	if c.Outbox.Enabled && !c.SQLStore() {
		errs = append(errs, errors.New("outbox.enabled needs a sql store driver"))
	}
	return errors.Join(errs...)
}

// SQLStore 当前存储是否为 gorm 后端
func (c *Config) SQLStore() bool {
	switch c.Store.Driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
		return true
	}
	return false
}

func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
