package router

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const (
	queryMethod = "findBestPathWithGas"
	swapMethod  = "swapNoSplit"

	querySig = "findBestPathWithGas(uint256,address,address,uint8,uint256)"
	swapSig  = "swapNoSplit((uint256,uint256,address[],address[]),address,uint256)"

	offerTuple = "(uint256[],address[],address[],uint256)"
)

// RouterV1ABI is the router interface with the offer returned as a single
// FormattedOffer tuple.
const RouterV1ABI = `[
{"inputs":[{"name":"amountIn","type":"uint256"},{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"maxSteps","type":"uint8"},{"name":"gasPrice","type":"uint256"}],
 "name":"findBestPathWithGas",
 "outputs":[{"components":[{"name":"amounts","type":"uint256[]"},{"name":"adapters","type":"address[]"},{"name":"path","type":"address[]"},{"name":"gasEstimate","type":"uint256"}],"name":"FormattedOffer","type":"tuple"}],
 "stateMutability":"view","type":"function"},
{"inputs":[{"components":[{"name":"amountIn","type":"uint256"},{"name":"amountOut","type":"uint256"},{"name":"path","type":"address[]"},{"name":"adapters","type":"address[]"}],"name":"trade","type":"tuple"},{"name":"to","type":"address"},{"name":"fee","type":"uint256"}],
 "name":"swapNoSplit","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// RouterV1FlatABI is the same interface with the offer returned as four
// separate values, as some router deployments declare it.
const RouterV1FlatABI = `[
{"inputs":[{"name":"amountIn","type":"uint256"},{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"maxSteps","type":"uint8"},{"name":"gasPrice","type":"uint256"}],
 "name":"findBestPathWithGas",
 "outputs":[{"name":"amounts","type":"uint256[]"},{"name":"adapters","type":"address[]"},{"name":"path","type":"address[]"},{"name":"gasEstimate","type":"uint256"}],
 "stateMutability":"view","type":"function"},
{"inputs":[{"components":[{"name":"amountIn","type":"uint256"},{"name":"amountOut","type":"uint256"},{"name":"path","type":"address[]"},{"name":"adapters","type":"address[]"}],"name":"trade","type":"tuple"},{"name":"to","type":"address"},{"name":"fee","type":"uint256"}],
 "name":"swapNoSplit","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

const (
	VersionV1     = "router/v1"
	VersionV1Flat = "router/v1-flat"
)

// Schema is a versioned router call interface. Selectors and argument
// layouts come from the parsed ABI only.
type Schema struct {
	version    string
	abi        abi.ABI
	tupleOffer bool
}

// NewSchema parses abiJSON and checks that it declares the best-path query
// and the swap entry point with the expected argument layout.
func NewSchema(version, abiJSON string) (*Schema, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI %s: %w", version, err)
	}

	query, ok := parsed.Methods[queryMethod]
	if !ok {
		return nil, fmt.Errorf("router ABI %s: missing %s", version, queryMethod)
	}
	if query.Sig != querySig {
		return nil, fmt.Errorf("router ABI %s: %s has signature %s, want %s", version, queryMethod, query.Sig, querySig)
	}
	if !query.IsConstant() {
		return nil, fmt.Errorf("router ABI %s: %s must be a view function", version, queryMethod)
	}

	tuple, err := offerLayout(query.Outputs)
	if err != nil {
		return nil, fmt.Errorf("router ABI %s: %w", version, err)
	}

	swap, ok := parsed.Methods[swapMethod]
	if !ok {
		return nil, fmt.Errorf("router ABI %s: missing %s", version, swapMethod)
	}
	if swap.Sig != swapSig {
		return nil, fmt.Errorf("router ABI %s: %s has signature %s, want %s", version, swapMethod, swap.Sig, swapSig)
	}

	return &Schema{version: version, abi: parsed, tupleOffer: tuple}, nil
}

func offerLayout(outputs abi.Arguments) (bool, error) {
	switch len(outputs) {
	case 1:
		if outputs[0].Type.T != abi.TupleTy || outputs[0].Type.String() != offerTuple {
			return false, fmt.Errorf("%s returns %s, want %s", queryMethod, outputs[0].Type.String(), offerTuple)
		}
		return true, nil
	case 4:
		types := make([]string, len(outputs))
		for i, out := range outputs {
			types[i] = out.Type.String()
		}
		if got := "(" + strings.Join(types, ",") + ")"; got != offerTuple {
			return false, fmt.Errorf("%s returns %s, want %s", queryMethod, got, offerTuple)
		}
		return false, nil
	default:
		return false, fmt.Errorf("%s declares %d outputs", queryMethod, len(outputs))
	}
}

// MustSchema is NewSchema for the built-in interfaces.
func MustSchema(version, abiJSON string) *Schema {
	s, err := NewSchema(version, abiJSON)
	if err != nil {
		panic(err)
	}
	return s
}

var (
	SchemaV1     = MustSchema(VersionV1, RouterV1ABI)
	SchemaV1Flat = MustSchema(VersionV1Flat, RouterV1FlatABI)
)

// SchemaByVersion returns a built-in schema. An empty version selects v1.
func SchemaByVersion(version string) (*Schema, error) {
	switch version {
	case "", VersionV1:
		return SchemaV1, nil
	case VersionV1Flat:
		return SchemaV1Flat, nil
	default:
		return nil, fmt.Errorf("unknown router schema %q", version)
	}
}

func (s *Schema) Version() string {
	return s.version
}

// QuerySelector is the 4-byte selector of the best-path query.
func (s *Schema) QuerySelector() []byte {
	return s.abi.Methods[queryMethod].ID
}

// SwapSelector is the 4-byte selector of the swap entry point.
func (s *Schema) SwapSelector() []byte {
	return s.abi.Methods[swapMethod].ID
}
