// Package config carrega a configuração do serviço: variáveis de ambiente
// (LISTEN_ADDR, RATE_MAX_REQUESTS, ...) com padrões, e opcionalmente um
// arquivo YAML com as mesmas chaves em minúsculas.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	AlgorithmFixed = "fixed"
	AlgorithmToken = "token"

	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type Config struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	DatabasePath    string        `mapstructure:"database_path"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	RateEnabled     bool          `mapstructure:"rate_enabled"`
	RateMaxRequests int           `mapstructure:"rate_max_requests"`
	RateWindow      time.Duration `mapstructure:"rate_window"`
	RateAlgorithm   string        `mapstructure:"rate_algorithm"`
	RateStore       string        `mapstructure:"rate_store"`
	RateKeyHeader   string        `mapstructure:"rate_key_header"`
	RateHeaders     bool          `mapstructure:"add_ratelimit_headers"`
	TrustXFF        bool          `mapstructure:"trust_xff"`

	// TrustedProxies (IPs ou CIDRs) são os únicos pares cujo
	// X-Forwarded-For vale para o bloqueio de IP.
	TrustedProxies []string `mapstructure:"trusted_proxies"`

	BlockedIPs    []string `mapstructure:"blocked_ips"`
	LogRejections bool     `mapstructure:"log_rejections"`

	ConcurrencyMax     int           `mapstructure:"concurrency_max"`
	ConcurrencyTimeout time.Duration `mapstructure:"concurrency_timeout"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	RateStatsEnabled   bool          `mapstructure:"rate_stats_enabled"`
	RateStatsPrefix    string        `mapstructure:"rate_stats_prefix"`
	RateStatsTTL       time.Duration `mapstructure:"rate_stats_ttl"`
	RateStatsBucket    string        `mapstructure:"rate_stats_bucket"`
	RateStatsTrackKeys bool          `mapstructure:"rate_stats_track_keys"`

	InvoiceQueueURL string `mapstructure:"invoice_queue_url"`
	AWSRegion       string `mapstructure:"aws_region"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("database_path", "data/store.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("shutdown_timeout", 10*time.Second)

	v.SetDefault("rate_enabled", true)
	v.SetDefault("rate_max_requests", 5)
	v.SetDefault("rate_window", time.Minute)
	v.SetDefault("rate_algorithm", AlgorithmFixed)
	v.SetDefault("rate_store", StoreMemory)
	v.SetDefault("rate_key_header", "")
	v.SetDefault("add_ratelimit_headers", false)
	v.SetDefault("trust_xff", false)
	v.SetDefault("trusted_proxies", []string{})

	v.SetDefault("blocked_ips", []string{"123.45.67.89"})
	v.SetDefault("log_rejections", true)

	v.SetDefault("concurrency_max", 0)
	v.SetDefault("concurrency_timeout", time.Duration(0))

	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	v.SetDefault("rate_stats_enabled", false)
	v.SetDefault("rate_stats_prefix", "policy:stats")
	v.SetDefault("rate_stats_ttl", 24*time.Hour)
	v.SetDefault("rate_stats_bucket", "minute")
	v.SetDefault("rate_stats_track_keys", false)

	v.SetDefault("invoice_queue_url", "")
	v.SetDefault("aws_region", "")
}

// Load lê o arquivo (se path não for vazio) e as variáveis de ambiente, que
// têm precedência sobre o arquivo.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.BlockedIPs = splitList(cfg.BlockedIPs)
	cfg.TrustedProxies = splitList(cfg.TrustedProxies)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// BLOCKED_IPS e TRUSTED_PROXIES vêm do ambiente como "a,b c"; do YAML vem como lista.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
			out = append(out, f)
		}
	}
	return out
}

func (c Config) Validate() error {
	var errs []error
	if c.RateMaxRequests <= 0 {
		errs = append(errs, errors.New("RATE_MAX_REQUESTS must be > 0"))
	}
	if c.RateWindow <= 0 {
		errs = append(errs, errors.New("RATE_WINDOW must be > 0"))
	}
	switch c.RateAlgorithm {
	case AlgorithmFixed, AlgorithmToken:
	default:
		errs = append(errs, fmt.Errorf("RATE_ALGORITHM must be %q or %q, got %q", AlgorithmFixed, AlgorithmToken, c.RateAlgorithm))
	}
	switch c.RateStore {
	case StoreMemory:
	case StoreRedis:
		if c.RateAlgorithm != AlgorithmFixed {
			errs = append(errs, errors.New("RATE_STORE=redis only supports RATE_ALGORITHM=fixed"))
		}
	default:
		errs = append(errs, fmt.Errorf("RATE_STORE must be %q or %q, got %q", StoreMemory, StoreRedis, c.RateStore))
	}
	if c.RateStore == StoreRedis && strings.TrimSpace(c.RedisAddr) == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required when RATE_STORE=redis"))
	}
	if c.ConcurrencyMax < 0 {
		errs = append(errs, errors.New("CONCURRENCY_MAX must be >= 0"))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("DATABASE_PATH is required"))
	}
	return errors.Join(errs...)
}

// UsesRedis informa se algum componente precisa do cliente Redis. Estatísticas
// sem REDIS_ADDR ficam em memória.
func (c Config) UsesRedis() bool {
	if c.RateStore == StoreRedis {
		return true
	}
	return c.RateStatsEnabled && strings.TrimSpace(c.RedisAddr) != ""
}
