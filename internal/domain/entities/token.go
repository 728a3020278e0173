package entities

import "github.com/ethereum/go-ethereum/common"

type Token struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Name     string         `json:"name,omitempty"`
	Decimals uint8          `json:"decimals"`
}

// UnknownToken is used for display when metadata cannot be resolved.
func UnknownToken(addr common.Address) Token {
	return Token{
		Address:  addr,
		Symbol:   "UNKNOWN",
		Decimals: 18,
	}
}
