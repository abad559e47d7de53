package txmanager_test

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/celer-network/eth-batch-sender/account"
	"github.com/celer-network/eth-batch-sender/internal/mocks"
	esTesting "github.com/celer-network/eth-batch-sender/internal/testing"
	"github.com/celer-network/eth-batch-sender/subscription"
	"github.com/celer-network/eth-batch-sender/txmanager"
	"github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tevino/abool"

	gethCommon "github.com/ethereum/go-ethereum/common"
	gethTypes "github.com/ethereum/go-ethereum/core/types"
)

func expectNodeCalls(ethClient *mocks.Client) {
	ethClient.On("SuggestGasTipCap", mock.Anything).Return(big.NewInt(1), nil)
	ethClient.On("PendingNonceAt", mock.Anything, mock.Anything).Return(uint64(0), nil)
	ethClient.On("ChainID", mock.Anything).Return(big.NewInt(1337), nil)
	ethClient.On("EstimateGas", mock.Anything, mock.Anything).Return(uint64(21000), nil)
}

func TestTxManager_Run_WaitsForGasThenSubmitsAll(t *testing.T) {
	t.Parallel()

	g := gomega.NewWithT(t)
	config := esTesting.NewConfig(t)
	store := esTesting.NewStore(t)
	ethClient := new(mocks.Client)
	credentials, _ := esTesting.NewCredentials(t, 3)

	ethClient.On("SuggestGasPrice", mock.Anything).Return(big.NewInt(60), nil).Twice()
	ethClient.On("SuggestGasPrice", mock.Anything).Return(big.NewInt(40), nil)
	expectNodeCalls(ethClient)
	ethClient.On("SendTransaction", mock.Anything, mock.MatchedBy(func(tx *gethTypes.Transaction) bool {
		return tx.Gas() == 21000 && tx.GasFeeCap().Int64() == 82 && tx.GasTipCap().Int64() == 1
	})).Return(nil).Times(3)

	txm := txmanager.NewTxManager(ethClient, store, config, esTesting.NeverSleeper{})
	summary, err := txm.Run(context.Background(), credentials)
	require.NoError(t, err)

	g.Expect(summary.Total).To(gomega.Equal(3))
	g.Expect(summary.Submitted).To(gomega.Equal(3))
	g.Expect(summary.Pending).To(gomega.BeZero())
	g.Expect(summary.TxHashes).To(gomega.HaveLen(3))
	ethClient.AssertExpectations(t)
}

// recordSenders counts broadcast transactions per sender.
func recordSenders(t *testing.T, ethClient *mocks.Client, onSend func()) func() map[gethCommon.Address]int {
	t.Helper()

	var lock sync.Mutex
	senders := map[gethCommon.Address]int{}
	ethClient.On("SendTransaction", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			if onSend != nil {
				onSend()
			}
			tx := args.Get(1).(*gethTypes.Transaction)
			sender, err := gethTypes.Sender(gethTypes.LatestSignerForChainID(tx.ChainId()), tx)
			assert.NoError(t, err)
			lock.Lock()
			senders[sender]++
			lock.Unlock()
		}).
		Return(nil)
	return func() map[gethCommon.Address]int {
		lock.Lock()
		defer lock.Unlock()
		return senders
	}
}

func TestTxManager_Run_NothingSentAboveTarget(t *testing.T) {
	t.Parallel()

	config := esTesting.NewConfig(t)
	config.WorkersCount = 4
	store := esTesting.NewStore(t)
	ethClient := new(mocks.Client)
	credentials, addresses := esTesting.NewCredentials(t, 6)

	var polls int32
	belowTarget := abool.New()
	ethClient.On("SuggestGasPrice", mock.Anything).Return(func(context.Context) *big.Int {
		if atomic.AddInt32(&polls, 1) <= 5 {
			return big.NewInt(60)
		}
		belowTarget.Set()
		return big.NewInt(40)
	}, nil)
	expectNodeCalls(ethClient)
	var early int32
	senders := recordSenders(t, ethClient, func() {
		if !belowTarget.IsSet() {
			atomic.AddInt32(&early, 1)
		}
	})

	txm := txmanager.NewTxManager(ethClient, store, config, esTesting.NeverSleeper{})
	summary, err := txm.Run(context.Background(), credentials)
	require.NoError(t, err)

	assert.Equal(t, int32(0), atomic.LoadInt32(&early))
	assert.Equal(t, 6, summary.Submitted)
	for _, address := range addresses {
		assert.Equal(t, 1, senders()[address], address.Hex())
	}
}

func TestTxManager_Run_OneSubmissionPerCredentialUnderContention(t *testing.T) {
	t.Parallel()

	config := esTesting.NewConfig(t)
	config.WorkersCount = 8
	store := esTesting.NewStore(t)
	ethClient := new(mocks.Client)
	credentials, addresses := esTesting.NewCredentials(t, 40)

	// every third reading is above target
	var polls int32
	ethClient.On("SuggestGasPrice", mock.Anything).Return(func(context.Context) *big.Int {
		if atomic.AddInt32(&polls, 1)%3 == 0 {
			return big.NewInt(60)
		}
		return big.NewInt(40)
	}, nil)
	expectNodeCalls(ethClient)
	senders := recordSenders(t, ethClient, nil)

	txm := txmanager.NewTxManager(ethClient, store, config, esTesting.NeverSleeper{})
	summary, err := txm.Run(context.Background(), credentials)
	require.NoError(t, err)

	assert.Equal(t, 40, summary.Total)
	assert.Equal(t, 40, summary.Submitted)
	assert.Equal(t, 0, summary.Pending)
	assert.Len(t, senders(), 40)
	for _, address := range addresses {
		assert.Equal(t, 1, senders()[address], address.Hex())
	}
	ethClient.AssertNumberOfCalls(t, "SendTransaction", 40)
}

func TestTxManager_Run_MoreWorkersThanCredentials(t *testing.T) {
	t.Parallel()

	config := esTesting.NewConfig(t)
	config.WorkersCount = 10
	store := esTesting.NewStore(t)
	ethClient := new(mocks.Client)
	credentials, _ := esTesting.NewCredentials(t, 1)

	ethClient.On("SuggestGasPrice", mock.Anything).Return(big.NewInt(40), nil)
	expectNodeCalls(ethClient)
	ethClient.On("SendTransaction", mock.Anything, mock.Anything).Return(nil)

	txm := txmanager.NewTxManager(ethClient, store, config, esTesting.NeverSleeper{})
	summary, err := txm.Run(context.Background(), credentials)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Submitted)
	ethClient.AssertNumberOfCalls(t, "SendTransaction", 1)
}

func TestTxManager_Run_CountsEveryOutcome(t *testing.T) {
	t.Parallel()

	config := esTesting.NewConfig(t)
	config.WorkersCount = 2
	store := esTesting.NewStore(t)
	ethClient := new(mocks.Client)
	good, _ := esTesting.NewCredentials(t, 2)
	credentials := []account.Credential{good[0], "deadbeef", good[1]}

	ethClient.On("SuggestGasPrice", mock.Anything).Return(big.NewInt(40), nil)
	expectNodeCalls(ethClient)
	ethClient.On("SendTransaction", mock.Anything, mock.Anything).Return(errors.New("nonce too low")).Once()
	ethClient.On("SendTransaction", mock.Anything, mock.Anything).Return(nil).Once()

	txm := txmanager.NewTxManager(ethClient, store, config, esTesting.NeverSleeper{})
	summary, err := txm.Run(context.Background(), credentials)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Submitted)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.InvalidCredentials)
	assert.Equal(t, 0, summary.Pending)
	assert.Len(t, summary.TxHashes, 1)
}

func TestTxManager_Run_NoCredentials(t *testing.T) {
	t.Parallel()

	config := esTesting.NewConfig(t)
	ethClient := new(mocks.Client)
	txm := txmanager.NewTxManager(ethClient, esTesting.NewStore(t), config)

	_, err := txm.Run(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, txmanager.ErrNoCredentials))
	ethClient.AssertNotCalled(t, "SuggestGasPrice", mock.Anything)
}

func TestTxManager_Run_OnlyOnce(t *testing.T) {
	t.Parallel()

	config := esTesting.NewConfig(t)
	ethClient := new(mocks.Client)
	credentials, _ := esTesting.NewCredentials(t, 1)
	ethClient.On("SuggestGasPrice", mock.Anything).Return(big.NewInt(40), nil)
	expectNodeCalls(ethClient)
	ethClient.On("SendTransaction", mock.Anything, mock.Anything).Return(nil)

	txm := txmanager.NewTxManager(ethClient, esTesting.NewStore(t), config, esTesting.NeverSleeper{})
	_, err := txm.Run(context.Background(), credentials)
	require.NoError(t, err)
	_, err = txm.Run(context.Background(), credentials)
	require.Error(t, err)
}

func TestTxManager_Run_GateFailureStopsWorkers(t *testing.T) {
	t.Parallel()

	config := esTesting.NewConfig(t)
	config.MaxGasQueryFailures = 3
	config.WorkersCount = 2
	ethClient := new(mocks.Client)
	credentials, _ := esTesting.NewCredentials(t, 2)
	ethClient.On("SuggestGasPrice", mock.Anything).Return(nil, errors.New("no route to host"))

	txm := txmanager.NewTxManager(ethClient, esTesting.NewStore(t), config, esTesting.NeverSleeper{})
	summary, err := txm.Run(context.Background(), credentials)
	require.Error(t, err)
	assert.True(t, errors.Is(err, subscription.ErrGasQuery))
	require.NotNil(t, summary)
	assert.Equal(t, 2, summary.Pending)
	assert.Equal(t, 0, summary.Submitted)
	ethClient.AssertNotCalled(t, "SendTransaction", mock.Anything, mock.Anything)
}

func TestTxManager_Run_Interrupted(t *testing.T) {
	t.Parallel()

	g := gomega.NewWithT(t)
	config := esTesting.NewConfig(t)
	ethClient := new(mocks.Client)
	credentials, _ := esTesting.NewCredentials(t, 2)

	var polls int32
	ethClient.On("SuggestGasPrice", mock.Anything).
		Run(func(mock.Arguments) { atomic.AddInt32(&polls, 1) }).
		Return(big.NewInt(60), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type result struct {
		summary *txmanager.Summary
		err     error
	}
	chResult := make(chan result, 1)
	txm := txmanager.NewTxManager(ethClient, esTesting.NewStore(t), config, esTesting.NeverSleeper{})
	go func() {
		summary, err := txm.Run(ctx, credentials)
		chResult <- result{summary, err}
	}()

	g.Eventually(func() int32 { return atomic.LoadInt32(&polls) }).Should(gomega.BeNumerically(">=", 3))
	cancel()

	var res result
	g.Eventually(chResult).Should(gomega.Receive(&res))
	require.Error(t, res.err)
	assert.True(t, errors.Is(res.err, context.Canceled))
	assert.Equal(t, 2, res.summary.Pending)
	ethClient.AssertNotCalled(t, "SendTransaction", mock.Anything, mock.Anything)
}
