package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// applyEnvOverrides overwrites fields whose ROUTE_AGENT_* variable is set.
// Unparseable values are reported rather than ignored.
func applyEnvOverrides(cfg *Config) error {
	o := &overrides{}

	o.setStr(&cfg.RPCURL, "RPC_URL")
	o.setInt64(&cfg.ChainID, "CHAIN_ID")
	o.setStr(&cfg.ChainsDir, "CHAINS_DIR")
	o.setStr(&cfg.Router, "ROUTER")
	o.setStr(&cfg.RouterSchema, "ROUTER_SCHEMA")

	o.setInt(&cfg.MaxHops, "MAX_HOPS")
	o.setInt(&cfg.SlippageBps, "SLIPPAGE_BPS")
	o.setStr(&cfg.Fee, "FEE")
	o.setDuration(&cfg.StageTimeout, "STAGE_TIMEOUT")
	o.setInt(&cfg.MaxAttempts, "MAX_ATTEMPTS")
	o.setDuration(&cfg.RetryBackoff, "RETRY_BACKOFF")

	o.setFloat64(&cfg.RPCRateLimit.RequestsPerSecond, "RPC_RPS")
	o.setInt(&cfg.RPCRateLimit.Burst, "RPC_BURST")

	o.setStr(&cfg.Redis.Addr, "REDIS_ADDR")
	o.setStr(&cfg.Redis.Password, "REDIS_PASSWORD")
	o.setInt(&cfg.Redis.DB, "REDIS_DB")
	o.setInt(&cfg.TokenCacheSize, "TOKEN_CACHE_SIZE")

	o.setInt(&cfg.HTTP.Port, "HTTP_PORT")
	o.setStr(&cfg.OTelEndpoint, "OTEL_ENDPOINT")
	o.setBool(&cfg.Debug, "DEBUG")

	o.setStr(&cfg.Wallet.Address, "WALLET_ADDRESS")
	o.setStr(&cfg.Wallet.PrivateKey, "PRIVATE_KEY")

	return o.err
}

type overrides struct {
	err error
}

func (o *overrides) lookup(key string) (string, bool) {
	v := os.Getenv(EnvPrefix + key)
	return v, v != ""
}

func (o *overrides) fail(key, v string, err error) {
	if o.err == nil {
		o.err = fmt.Errorf("%s%s=%q: %w", EnvPrefix, key, v, err)
	}
}

func (o *overrides) setStr(dst *string, key string) {
	if v, ok := o.lookup(key); ok {
		*dst = v
	}
}

func (o *overrides) setInt(dst *int, key string) {
	if v, ok := o.lookup(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			o.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (o *overrides) setInt64(dst *int64, key string) {
	if v, ok := o.lookup(key); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			o.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (o *overrides) setFloat64(dst *float64, key string) {
	if v, ok := o.lookup(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			o.fail(key, v, err)
			return
		}
		*dst = f
	}
}

func (o *overrides) setBool(dst *bool, key string) {
	if v, ok := o.lookup(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			o.fail(key, v, err)
			return
		}
		*dst = b
	}
}

func (o *overrides) setDuration(dst *time.Duration, key string) {
	if v, ok := o.lookup(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			o.fail(key, v, err)
			return
		}
		*dst = d
	}
}
