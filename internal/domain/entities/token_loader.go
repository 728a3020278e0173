package entities

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// TokenConfig represents a token entry in a chain file
type TokenConfig struct {
	Address  string `json:"address" yaml:"address"`
	Symbol   string `json:"symbol" yaml:"symbol"`
	Name     string `json:"name" yaml:"name"`
	Decimals uint8  `json:"decimals" yaml:"decimals"`
}

// TokenRegistry holds known tokens indexed by address and symbol.
// It is built once at startup and only read afterwards.
type TokenRegistry struct {
	byAddress map[common.Address]Token
	bySymbol  map[string]Token
	all       []Token
}

// NewTokenRegistry creates a new token registry
func NewTokenRegistry() *TokenRegistry {
	return &TokenRegistry{
		byAddress: make(map[common.Address]Token),
		bySymbol:  make(map[string]Token),
		all:       make([]Token, 0),
	}
}

// LoadConfigs registers every token from a chain file
func (r *TokenRegistry) LoadConfigs(configs []TokenConfig) error {
	for _, tc := range configs {
		if !common.IsHexAddress(tc.Address) {
			return fmt.Errorf("token %q: invalid address %q", tc.Symbol, tc.Address)
		}
		r.Register(Token{
			Address:  common.HexToAddress(tc.Address),
			Symbol:   tc.Symbol,
			Name:     tc.Name,
			Decimals: tc.Decimals,
		})
	}
	return nil
}

// Register adds a token to the registry
func (r *TokenRegistry) Register(token Token) {
	if old, ok := r.byAddress[token.Address]; ok {
		delete(r.bySymbol, strings.ToUpper(old.Symbol))
		for i := range r.all {
			if r.all[i].Address == token.Address {
				r.all[i] = token
			}
		}
	} else {
		r.all = append(r.all, token)
	}
	r.byAddress[token.Address] = token
	if token.Symbol != "" {
		r.bySymbol[strings.ToUpper(token.Symbol)] = token
	}
}

// GetByAddress returns a token by its address
func (r *TokenRegistry) GetByAddress(addr common.Address) (Token, bool) {
	token, ok := r.byAddress[addr]
	return token, ok
}

// GetBySymbol returns a token by its symbol, case-insensitively
func (r *TokenRegistry) GetBySymbol(symbol string) (Token, bool) {
	token, ok := r.bySymbol[strings.ToUpper(symbol)]
	return token, ok
}

// Resolve accepts either a hex address or a registered symbol.
func (r *TokenRegistry) Resolve(ref string) (common.Address, error) {
	if common.IsHexAddress(ref) {
		return common.HexToAddress(ref), nil
	}
	if token, ok := r.GetBySymbol(ref); ok {
		return token.Address, nil
	}
	return common.Address{}, fmt.Errorf("unknown token %q", ref)
}

// GetAll returns all registered tokens
func (r *TokenRegistry) GetAll() []Token {
	return r.all
}

// Count returns the number of registered tokens
func (r *TokenRegistry) Count() int {
	return len(r.all)
}
