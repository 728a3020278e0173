package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/bimakw/route-agent/internal/domain/entities"
)

// Chain describes one network the router is deployed on. Chain files may be
// JSON or YAML.
type Chain struct {
	Name          string                 `yaml:"name"`
	ChainID       int64                  `yaml:"chain_id"`
	RPCURL        string                 `yaml:"rpc_url"`
	Router        string                 `yaml:"router"`
	RouterSchema  string                 `yaml:"router_schema"`
	WrappedNative string                 `yaml:"wrapped_native"`
	Adapters      []string               `yaml:"adapters"`
	Tokens        []entities.TokenConfig `yaml:"tokens"`
}

func (c *Chain) Validate() error {
	if c.ChainID <= 0 {
		return fmt.Errorf("chain %q: chain_id must be positive", c.Name)
	}
	if !common.IsHexAddress(c.Router) {
		return fmt.Errorf("chain %d: router %q is not an address", c.ChainID, c.Router)
	}
	if c.WrappedNative != "" && !common.IsHexAddress(c.WrappedNative) {
		return fmt.Errorf("chain %d: wrapped_native %q is not an address", c.ChainID, c.WrappedNative)
	}
	for _, a := range c.Adapters {
		if !common.IsHexAddress(a) {
			return fmt.Errorf("chain %d: adapter %q is not an address", c.ChainID, a)
		}
	}
	return nil
}

func (c *Chain) RouterAddress() common.Address {
	return common.HexToAddress(c.Router)
}

func (c *Chain) WrappedNativeAddress() common.Address {
	return common.HexToAddress(c.WrappedNative)
}

// AdapterAddresses returns the adapters the router is known to use.
func (c *Chain) AdapterAddresses() []common.Address {
	out := make([]common.Address, len(c.Adapters))
	for i, a := range c.Adapters {
		out[i] = common.HexToAddress(a)
	}
	return out
}

// TokenRegistry builds a registry of the chain's tokens.
func (c *Chain) TokenRegistry() (*entities.TokenRegistry, error) {
	registry := entities.NewTokenRegistry()
	if err := registry.LoadConfigs(c.Tokens); err != nil {
		return nil, fmt.Errorf("chain %d: %w", c.ChainID, err)
	}
	return registry, nil
}

// ChainRegistry holds the chains loaded from a directory.
type ChainRegistry struct {
	chains map[int64]*Chain
}

// LoadChainRegistry reads every *.json, *.yaml and *.yml file in dir.
func LoadChainRegistry(dir string) (*ChainRegistry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read chains dir: %w", err)
	}

	r := &ChainRegistry{chains: make(map[int64]*Chain)}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
		default:
			continue
		}

		path := filepath.Join(dir, e.Name())
		chain, err := LoadChain(path)
		if err != nil {
			return nil, err
		}
		if prev, ok := r.chains[chain.ChainID]; ok {
			return nil, fmt.Errorf("%s: chain %d already defined by %q", path, chain.ChainID, prev.Name)
		}
		r.chains[chain.ChainID] = chain
	}
	return r, nil
}

// LoadChain reads and validates a single chain file.
func LoadChain(path string) (*Chain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain file: %w", err)
	}
	var chain Chain
	if err := yaml.Unmarshal(data, &chain); err != nil {
		return nil, fmt.Errorf("failed to parse chain file %s: %w", path, err)
	}
	if chain.Name == "" {
		chain.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := chain.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &chain, nil
}

// ByID returns the chain with the given id.
func (r *ChainRegistry) ByID(chainID int64) (*Chain, error) {
	chain, ok := r.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("unknown chain id %d", chainID)
	}
	return chain, nil
}

// IDs returns the known chain ids in ascending order.
func (r *ChainRegistry) IDs() []int64 {
	ids := make([]int64, 0, len(r.chains))
	for id := range r.chains {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
