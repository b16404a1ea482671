package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RateMaxRequests != 5 || cfg.RateWindow != time.Minute {
		t.Fatalf("rate defaults = %d/%s", cfg.RateMaxRequests, cfg.RateWindow)
	}
	if !reflect.DeepEqual(cfg.BlockedIPs, []string{"123.45.67.89"}) {
		t.Fatalf("blocked = %v", cfg.BlockedIPs)
	}
	if cfg.RateAlgorithm != AlgorithmFixed || cfg.RateStore != StoreMemory {
		t.Fatalf("algorithm/store = %s/%s", cfg.RateAlgorithm, cfg.RateStore)
	}
	if !cfg.LogRejections {
		t.Fatalf("rejections should be logged by default")
	}
	if cfg.UsesRedis() {
		t.Fatalf("default config must not need redis")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RATE_MAX_REQUESTS", "10")
	t.Setenv("RATE_WINDOW", "30s")
	t.Setenv("BLOCKED_IPS", "10.0.0.1, 10.0.0.2")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8")
	t.Setenv("RATE_ALGORITHM", "token")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RateMaxRequests != 10 || cfg.RateWindow != 30*time.Second {
		t.Fatalf("got %d/%s", cfg.RateMaxRequests, cfg.RateWindow)
	}
	if !reflect.DeepEqual(cfg.BlockedIPs, []string{"10.0.0.1", "10.0.0.2"}) {
		t.Fatalf("blocked = %v", cfg.BlockedIPs)
	}
	if cfg.RateAlgorithm != AlgorithmToken {
		t.Fatalf("algorithm = %s", cfg.RateAlgorithm)
	}
	if !reflect.DeepEqual(cfg.TrustedProxies, []string{"10.0.0.0/8"}) {
		t.Fatalf("trusted proxies = %v", cfg.TrustedProxies)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.yaml")
	yaml := strings.Join([]string{
		"listen_addr: \":9090\"",
		"rate_max_requests: 3",
		"blocked_ips:",
		"  - 1.2.3.4",
		"invoice_queue_url: https://sqs.local/q",
	}, "\n")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":9090" || cfg.RateMaxRequests != 3 {
		t.Fatalf("got %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.BlockedIPs, []string{"1.2.3.4"}) {
		t.Fatalf("blocked = %v", cfg.BlockedIPs)
	}
	if cfg.InvoiceQueueURL != "https://sqs.local/q" {
		t.Fatalf("queue = %q", cfg.InvoiceQueueURL)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidate(t *testing.T) {
	base, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	cases := map[string]func(*Config){
		"zero max":           func(c *Config) { c.RateMaxRequests = 0 },
		"zero window":        func(c *Config) { c.RateWindow = 0 },
		"bad algorithm":      func(c *Config) { c.RateAlgorithm = "leaky" },
		"bad store":          func(c *Config) { c.RateStore = "etcd" },
		"redis without addr": func(c *Config) { c.RateStore = StoreRedis },
		"redis token":        func(c *Config) { c.RateStore = StoreRedis; c.RedisAddr = "x:6379"; c.RateAlgorithm = AlgorithmToken },
		"negative conc":      func(c *Config) { c.ConcurrencyMax = -1 },
	}
	for name, mutate := range cases {
		c := base
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	mem := base
	mem.RateStatsEnabled = true
	if err := mem.Validate(); err != nil {
		t.Fatalf("stats without redis rejected: %v", err)
	}
	if mem.UsesRedis() {
		t.Fatalf("stats without REDIS_ADDR must stay in memory")
	}
	mem.RedisAddr = "localhost:6379"
	if !mem.UsesRedis() {
		t.Fatalf("stats with REDIS_ADDR should use redis")
	}

	ok := base
	ok.RateStore = StoreRedis
	ok.RedisAddr = "localhost:6379"
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid redis config rejected: %v", err)
	}
}
