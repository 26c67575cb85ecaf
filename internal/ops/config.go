package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Server   ServerConfig       `json:"server"`
	Breaker  BreakerConfig      `json:"breaker"`
	Webhooks []string           `json:"webhooks"`
	ErrorLog ErrorLogConfig     `json:"errorLog"`
	Postgres PostgresConfig     `json:"postgres"`
	Features FeatureFlagsConfig `json:"features"`
}

// ServerConfig describes the HTTP/WebSocket listener.
type ServerConfig struct {
	ListenAddr  string `json:"listenAddr"`
	WSQueueSize int    `json:"wsQueueSize"`
}

// BreakerConfig tunes the outbound call monitor.
type BreakerConfig struct {
	Threshold       int            `json:"threshold"`
	CooldownSeconds int            `json:"cooldownSeconds"`
	ProbeTimeoutSec int            `json:"probeTimeoutSeconds"`
	Modules         []ModuleConfig `json:"modules"`
}

// ModuleConfig describes one external module entry.
type ModuleConfig struct {
	Name       string `json:"name"`
	BaseURL    string `json:"baseUrl"`
	HealthPath string `json:"healthPath"`
}

// ErrorLogConfig tunes the shared error ring buffer.
type ErrorLogConfig struct {
	Capacity             int `json:"capacity"`
	PurgeIntervalSeconds int `json:"purgeIntervalSeconds"`
	MaxAgeHours          int `json:"maxAgeHours"`
}

// PostgresConfig describes the deposit store connection.
type PostgresConfig struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	User       string `json:"user"`
	Password   string `json:"password"`
	Database   string `json:"database"`
	ConnString string `json:"connString"`
}

// FeatureFlagsConfig captures optional runtime flags.
type FeatureFlagsConfig struct {
	EnableProfiling *bool `json:"enableProfiling"`
	EnableStore     *bool `json:"enableStore"`
}

// FeatureFlags are resolved runtime flags.
type FeatureFlags struct {
	EnableProfiling bool
	EnableStore     bool
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	ListenAddr    string
	WSQueueSize   int
	Threshold     int
	Cooldown      time.Duration
	ProbeTimeout  time.Duration
	Modules       []ModuleConfig
	Webhooks      []string
	ErrCapacity   int
	ErrPurgeEvery time.Duration
	ErrMaxAge     time.Duration
	Postgres      PostgresConfig
	Features      FeatureFlags
}

// Load reads a JSON config file and resolves defaults. An empty path yields
// the defaults alone.
func Load(path string) (Loaded, error) {
	var cfg FileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Loaded{}, err
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Loaded{}, err
		}
	}
	if err := validate(cfg); err != nil {
		return Loaded{}, err
	}
	return resolve(cfg), nil
}

func validate(cfg FileConfig) error {
	if cfg.Breaker.Threshold < 0 {
		return fmt.Errorf("breaker threshold must be >= 0")
	}
	if cfg.Breaker.CooldownSeconds < 0 {
		return fmt.Errorf("breaker cooldown must be >= 0")
	}
	if cfg.ErrorLog.Capacity < 0 {
		return fmt.Errorf("error log capacity must be >= 0")
	}
	seen := make(map[string]struct{}, len(cfg.Breaker.Modules))
	for _, mod := range cfg.Breaker.Modules {
		if mod.Name == "" {
			return fmt.Errorf("module name is empty")
		}
		if _, dup := seen[mod.Name]; dup {
			return fmt.Errorf("duplicate module: %s", mod.Name)
		}
		seen[mod.Name] = struct{}{}
		if mod.BaseURL == "" {
			return fmt.Errorf("module %s has no base url", mod.Name)
		}
	}
	return nil
}

func resolve(cfg FileConfig) Loaded {
	loaded := Loaded{
		ListenAddr:    cfg.Server.ListenAddr,
		WSQueueSize:   cfg.Server.WSQueueSize,
		Threshold:     cfg.Breaker.Threshold,
		Cooldown:      time.Duration(cfg.Breaker.CooldownSeconds) * time.Second,
		ProbeTimeout:  time.Duration(cfg.Breaker.ProbeTimeoutSec) * time.Second,
		Modules:       cfg.Breaker.Modules,
		Webhooks:      cfg.Webhooks,
		ErrCapacity:   cfg.ErrorLog.Capacity,
		ErrPurgeEvery: time.Duration(cfg.ErrorLog.PurgeIntervalSeconds) * time.Second,
		ErrMaxAge:     time.Duration(cfg.ErrorLog.MaxAgeHours) * time.Hour,
		Postgres:      cfg.Postgres,
		Features:      resolveFeatures(cfg.Features),
	}
	if loaded.ListenAddr == "" {
		loaded.ListenAddr = ":8080"
	}
	if loaded.WSQueueSize == 0 {
		loaded.WSQueueSize = 256
	}
	if loaded.Threshold == 0 {
		loaded.Threshold = 5
	}
	if loaded.Cooldown == 0 {
		loaded.Cooldown = 60 * time.Second
	}
	if loaded.ProbeTimeout == 0 {
		loaded.ProbeTimeout = 5 * time.Second
	}
	if loaded.ErrCapacity == 0 {
		loaded.ErrCapacity = 1000
	}
	if loaded.ErrPurgeEvery == 0 {
		loaded.ErrPurgeEvery = time.Hour
	}
	if loaded.ErrMaxAge == 0 {
		loaded.ErrMaxAge = 24 * time.Hour
	}
	return loaded
}

func resolveFeatures(cfg FeatureFlagsConfig) FeatureFlags {
	flags := FeatureFlags{
		EnableProfiling: false,
		EnableStore:     false,
	}
	if cfg.EnableProfiling != nil {
		flags.EnableProfiling = *cfg.EnableProfiling
	}
	if cfg.EnableStore != nil {
		flags.EnableStore = *cfg.EnableStore
	}
	return flags
}
