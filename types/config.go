package types

import (
	"math/big"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type Config struct {
	Logger Logger

	// Primary RPC URL, http(s) or ws(s)
	RPCURL *url.URL
	// Extra nodes that receive a best-effort copy of every broadcast
	SecondaryRPCURLs []*url.URL

	// The fixed call every account submits
	ContractAddress common.Address
	InputData       []byte
	Value           *big.Int

	WorkersCount int

	// Per-account random delay bounds, applied before the gas re-check
	MinAccountDelay time.Duration
	MaxAccountDelay time.Duration

	// Gas price ceiling in wei
	GasTarget *big.Int
	// Applied to the node's gas estimate, result rounded up
	GasMultiplier *big.Rat

	GasPollInterval     time.Duration
	GateWaitInterval    time.Duration
	MaxGasQueryFailures int

	// Zero disables pacing
	MaxSubmissionsPerSecond float64
}
