package identity

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Provider supplies the address trades are paid out to.
type Provider struct {
	address common.Address
}

func (p *Provider) Address() common.Address {
	return p.address
}

// Static returns a provider for a fixed address.
func Static(addr common.Address) (*Provider, error) {
	if addr == (common.Address{}) {
		return nil, fmt.Errorf("identity address must not be zero")
	}
	return &Provider{address: addr}, nil
}

// FromHex parses a hex address.
func FromHex(s string) (*Provider, error) {
	if !common.IsHexAddress(s) {
		return nil, fmt.Errorf("invalid identity address %q", s)
	}
	return Static(common.HexToAddress(s))
}

// FromHexKey derives the address of a secp256k1 private key. Only the
// address is kept.
func FromHexKey(hexKey string) (*Provider, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return Static(crypto.PubkeyToAddress(key.PublicKey))
}
