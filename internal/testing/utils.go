package testing

import (
	"math/big"
	"net/url"
	"testing"
	"time"

	eslogger "github.com/celer-network/eth-batch-sender/logger"
	"github.com/celer-network/eth-batch-sender/store"
	"github.com/celer-network/eth-batch-sender/store/tendermint"
	"github.com/celer-network/eth-batch-sender/types"
	"github.com/stretchr/testify/require"
	tmdb "github.com/tendermint/tm-db"
	"go.uber.org/zap"
)

// NewStore creates a new Store for testing
func NewStore(t testing.TB) store.Store {
	t.Helper()

	return tendermint.NewTMStore(tmdb.NewMemDB())
}

// NewConfig creates a new Config for testing. Timings are shortened so that
// gate and worker loops run in milliseconds.
func NewConfig(t testing.TB) *types.Config {
	t.Helper()

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)
	rpcURL, err := url.Parse("http://localhost:8545")
	require.NoError(t, err)
	return &types.Config{
		Logger:           eslogger.NewZapLogger(logger.Sugar()),
		RPCURL:           rpcURL,
		SecondaryRPCURLs: nil,

		ContractAddress: NewAddress(),
		InputData:       []byte{0xde, 0xad, 0xbe, 0xef},
		Value:           big.NewInt(0),

		WorkersCount:    1,
		MinAccountDelay: 0,
		MaxAccountDelay: 0,

		GasTarget:     big.NewInt(50),
		GasMultiplier: big.NewRat(1, 1),

		GasPollInterval:     10 * time.Millisecond,
		GateWaitInterval:    5 * time.Millisecond,
		MaxGasQueryFailures: 3,
	}
}
