package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/bimakw/route-agent/internal/domain/entities"
	"github.com/bimakw/route-agent/internal/domain/services"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ROUTE_AGENT_"

// EnvPrivateKey is the only place the wallet key is read from.
const EnvPrivateKey = EnvPrefix + "PRIVATE_KEY"

type Config struct {
	RPCURL       string `yaml:"rpc_url"`
	ChainID      int64  `yaml:"chain_id"`
	ChainsDir    string `yaml:"chains_dir"`
	Router       string `yaml:"router"`
	RouterSchema string `yaml:"router_schema"`

	MaxHops      int           `yaml:"max_hops"`
	SlippageBps  int           `yaml:"slippage_bps"`
	Fee          string        `yaml:"fee"`
	StageTimeout time.Duration `yaml:"stage_timeout"`
	MaxAttempts  int           `yaml:"max_attempts"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`

	RPCRateLimit   RateLimitConfig `yaml:"rpc_rate_limit"`
	Redis          RedisConfig     `yaml:"redis"`
	TokenCacheSize int             `yaml:"token_cache_size"`
	HTTP           HTTPConfig      `yaml:"http"`
	OTelEndpoint   string          `yaml:"otel_endpoint"`
	Wallet         WalletConfig    `yaml:"wallet"`
	Debug          bool            `yaml:"debug"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

// WalletConfig names the recipient. PrivateKey is never read from files.
type WalletConfig struct {
	Address    string `yaml:"address"`
	PrivateKey string `yaml:"-"`
}

func Defaults() Config {
	return Config{
		ChainsDir:    "configs/chains",
		MaxHops:      services.DefaultMaxHops,
		SlippageBps:  services.DefaultSlippageBps,
		Fee:          "0",
		StageTimeout: services.DefaultStageTimeout,
		MaxAttempts:  services.DefaultMaxAttempts,
		RetryBackoff: services.DefaultRetryBackoff,
		RPCRateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             10,
		},
		TokenCacheSize: 256,
		HTTP: HTTPConfig{
			Port: 8080,
		},
	}
}

// Load merges the YAML file at path (optional) over the defaults, loads .env
// if present and applies ROUTE_AGENT_* overrides. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []string

	if c.RPCURL == "" {
		errs = append(errs, "rpc_url must not be empty")
	}
	if c.ChainID < 0 {
		errs = append(errs, "chain_id must not be negative")
	}
	if c.Router != "" && !common.IsHexAddress(c.Router) {
		errs = append(errs, fmt.Sprintf("router %q is not an address", c.Router))
	}
	if c.MaxHops < 1 || c.MaxHops > 255 {
		errs = append(errs, fmt.Sprintf("max_hops must be 1-255, got %d", c.MaxHops))
	}
	if c.SlippageBps < 0 || c.SlippageBps > entities.BasisPointDenominator {
		errs = append(errs, fmt.Sprintf("slippage_bps must be 0-10000, got %d", c.SlippageBps))
	}
	if _, err := c.FeeAmount(); err != nil {
		errs = append(errs, fmt.Sprintf("fee: %v", err))
	}
	if c.StageTimeout <= 0 {
		errs = append(errs, "stage_timeout must be positive")
	}
	if c.MaxAttempts < 1 {
		errs = append(errs, "max_attempts must be at least 1")
	}
	if c.RetryBackoff < 0 {
		errs = append(errs, "retry_backoff must not be negative")
	}
	if c.RPCRateLimit.RequestsPerSecond < 0 {
		errs = append(errs, "rpc_rate_limit.requests_per_second must not be negative")
	}
	if c.TokenCacheSize < 1 {
		errs = append(errs, "token_cache_size must be at least 1")
	}
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Sprintf("http.port must be 1-65535, got %d", c.HTTP.Port))
	}
	if c.Wallet.Address != "" && !common.IsHexAddress(c.Wallet.Address) {
		errs = append(errs, fmt.Sprintf("wallet.address %q is not an address", c.Wallet.Address))
	}

	if len(errs) > 0 {
		return errors.New("invalid config: " + strings.Join(errs, "; "))
	}
	return nil
}

// FeeAmount parses Fee.
func (c *Config) FeeAmount() (*big.Int, error) {
	if c.Fee == "" {
		return big.NewInt(0), nil
	}
	return entities.ParseAmount(c.Fee)
}

// AgentConfig builds the agent settings for router. Call after Validate.
func (c *Config) AgentConfig(router common.Address) services.AgentConfig {
	fee, err := c.FeeAmount()
	if err != nil {
		fee = big.NewInt(0)
	}
	return services.AgentConfig{
		Router:             router,
		DefaultMaxHops:     c.MaxHops,
		DefaultSlippageBps: c.SlippageBps,
		DefaultFee:         fee,
		StageTimeout:       c.StageTimeout,
		MaxAttempts:        c.MaxAttempts,
		RetryBackoff:       c.RetryBackoff,
	}
}
