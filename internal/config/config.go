package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// Token описывает web bearer-токен в конфигурации.
type Token struct {
	ID          string `yaml:"id"`
	TokenSHA256 string `yaml:"token_sha256"`
	Subject     string `yaml:"subject"`
	Enabled     bool   `yaml:"enabled"`
}

// Config описывает параметры агента riakadm.
type Config struct {
	Agent struct {
		LogLevel string `yaml:"log_level"`
	} `yaml:"agent"`
	Riak struct {
		Bin      string `yaml:"bin"`
		AdminBin string `yaml:"admin_bin"`
		DataDir  string `yaml:"data_dir"`
	} `yaml:"riak"`
	Security struct {
		AuthAllowlist map[string][]string `yaml:"auth_allowlist"`
	} `yaml:"security"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Scheduler struct {
		IntervalSeconds int `yaml:"interval_seconds"`
	} `yaml:"scheduler"`
	Web struct {
		Enabled          bool    `yaml:"enabled"`
		ListenAddr       string  `yaml:"listen_addr"`
		ReadTimeoutMS    int     `yaml:"read_timeout_ms"`
		WriteTimeoutMS   int     `yaml:"write_timeout_ms"`
		RequestTimeoutMS int     `yaml:"request_timeout_ms"`
		ShutdownTimeoutS int     `yaml:"shutdown_timeout_s"`
		MaxBodyBytes     int64   `yaml:"max_body_bytes"`
		RateLimitPerSec  int     `yaml:"rate_limit_per_sec"`
		Tokens           []Token `yaml:"tokens"`
	} `yaml:"web"`
}

// Default возвращает конфигурацию по умолчанию.
func Default() Config {
	var cfg Config
	cfg.Agent.LogLevel = "info"
	cfg.Riak.Bin = "riak"
	cfg.Riak.AdminBin = "riak-admin"
	cfg.Riak.DataDir = "/var/lib/riak"
	cfg.SQLite.Path = "/var/lib/riakadm/state.db"
	cfg.Scheduler.IntervalSeconds = 60
	cfg.Web.Enabled = false
	cfg.Web.ListenAddr = "127.0.0.1:8087"
	cfg.Web.ReadTimeoutMS = 2000
	cfg.Web.WriteTimeoutMS = 5000
	cfg.Web.RequestTimeoutMS = 10000
	cfg.Web.ShutdownTimeoutS = 5
	cfg.Web.MaxBodyBytes = 1 << 20
	cfg.Web.RateLimitPerSec = 5
	cfg.Security.AuthAllowlist = map[string][]string{"web": {}}
	return cfg
}

// Load читает YAML-конфиг поверх значений по умолчанию.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path) // #nosec G304 -- путь к конфигу задается оператором.
	if err != nil {
		return cfg, err
	}
	if len(data) == 0 {
		return cfg, errors.New("config file is empty")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
