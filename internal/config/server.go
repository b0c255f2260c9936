// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/and161185/beatbattle/internal/service"
)

type ServerConfig struct {
	PostgresDSN string `env:"POSTGRES_DSN,required,notEmpty"`
	JWTSignKey  string `env:"JWT_SIGN_KEY,required,notEmpty"`

	HTTPAddr       string `env:"HTTP_ADDR" envDefault:":8080"`
	OpsAddr        string `env:"OPS_ADDR" envDefault:":9090"`
	TLSCert        string `env:"TLS_CERT"`
	TLSKey         string `env:"TLS_KEY"`
	GRPCReflection bool   `env:"GRPC_REFLECTION" envDefault:"false"`
	AdminAPIKey    string `env:"ADMIN_API_KEY"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// EconomyConfig holds coin amounts and battle timing.
type EconomyConfig struct {
	StartingCoins   int64         `env:"STARTING_COINS" envDefault:"1000"`
	DefaultEntryFee int64         `env:"DEFAULT_ENTRY_FEE" envDefault:"250"`
	WinReward       int64         `env:"WIN_REWARD" envDefault:"500"`
	BattleDuration  time.Duration `env:"BATTLE_DURATION" envDefault:"24h"`
	MinDuration     time.Duration `env:"MIN_BATTLE_DURATION" envDefault:"1m"`
	MaxDuration     time.Duration `env:"MAX_BATTLE_DURATION" envDefault:"168h"`
	ChallengeTTL    time.Duration `env:"CHALLENGE_TTL" envDefault:"168h"`
}

type ResolverConfig struct {
	Interval time.Duration `env:"RESOLVER_INTERVAL" envDefault:"30s"`
	Batch    int           `env:"RESOLVER_BATCH" envDefault:"100"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return cfg, fmt.Errorf("TLS_CERT and TLS_KEY must be set together")
	}
	return cfg, nil
}

func LoadEconomy() (EconomyConfig, error) {
	var cfg EconomyConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	switch {
	case cfg.StartingCoins < 0 || cfg.DefaultEntryFee <= 0 || cfg.WinReward < 0:
		return cfg, fmt.Errorf("coin amounts must be non-negative and DEFAULT_ENTRY_FEE positive")
	case cfg.MinDuration <= 0 || cfg.MinDuration > cfg.MaxDuration:
		return cfg, fmt.Errorf("MIN_BATTLE_DURATION must be positive and not above MAX_BATTLE_DURATION")
	case cfg.BattleDuration < cfg.MinDuration || cfg.BattleDuration > cfg.MaxDuration:
		return cfg, fmt.Errorf("BATTLE_DURATION must lie within the min/max bounds")
	case cfg.ChallengeTTL <= 0:
		return cfg, fmt.Errorf("CHALLENGE_TTL must be positive")
	}
	return cfg, nil
}

func LoadResolver() (ResolverConfig, error) {
	var cfg ResolverConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	if cfg.Interval <= 0 || cfg.Batch <= 0 {
		return cfg, fmt.Errorf("RESOLVER_INTERVAL and RESOLVER_BATCH must be positive")
	}
	return cfg, nil
}

// Rules converts the economy section into service rules.
func (c EconomyConfig) Rules() service.Rules {
	return service.Rules{
		StartingCoins:   c.StartingCoins,
		DefaultEntryFee: c.DefaultEntryFee,
		WinReward:       c.WinReward,
		BattleDuration:  c.BattleDuration,
		MinDuration:     c.MinDuration,
		MaxDuration:     c.MaxDuration,
		ChallengeTTL:    c.ChallengeTTL,
	}
}
