package client

import (
	"context"
	"math/big"
	"net/url"
	"sync"

	esTypes "github.com/celer-network/eth-batch-sender/types"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
)

//go:generate mockery --name Client --output ../internal/mocks/ --case=underscore

// Client is the interface used to interact with an ethereum node.
type Client interface {
	GethClient

	Dial(ctx context.Context) error
	Close()
}

// GethClient is the subset of go-ethereum's own ethclient that the sender needs
// https://github.com/ethereum/go-ethereum/blob/master/ethclient/ethclient.go
type GethClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
}

// Impl implements the ethereum Client interface on top of go-ethereum's rpc and ethclient.
type Impl struct {
	GethClient
	rpcClient            *rpc.Client
	url                  *url.URL
	SecondaryGethClients []GethClient
	secondaryRPCClients  []*rpc.Client
	secondaryURLs        []*url.URL
	logger               esTypes.Logger
}

var _ Client = (*Impl)(nil)

// NewImpl creates a new client implementation
func NewImpl(config *esTypes.Config) (*Impl, error) {
	rpcURL := config.RPCURL
	if rpcURL == nil {
		return nil, errors.New("Ethereum RPC URL is required")
	}
	if !isSupportedScheme(rpcURL.Scheme) {
		return nil, errors.Errorf("Ethereum URL scheme must be http(s) or ws(s): %s", rpcURL.String())
	}

	secondaryRPCURLs := config.SecondaryRPCURLs
	for _, url := range secondaryRPCURLs {
		if !isSupportedScheme(url.Scheme) {
			return nil, errors.Errorf("secondary Ethereum RPC URL scheme must be http(s) or ws(s): %s", url.String())
		}
	}
	return &Impl{url: rpcURL, secondaryURLs: secondaryRPCURLs, logger: config.Logger}, nil
}

func isSupportedScheme(scheme string) bool {
	switch scheme {
	case "http", "https", "ws", "wss":
		return true
	}
	return false
}

func (client *Impl) Dial(ctx context.Context) error {
	client.logger.Debugw("eth.Client#Dial(...)", "url", client.url.Redacted())
	if client.rpcClient != nil {
		panic("eth.Client.Dial(...) should only be called once during the application's lifetime.")
	}

	rpcClient, err := rpc.DialContext(ctx, client.url.String())
	if err != nil {
		return errors.Wrapf(err, "could not dial %s", client.url.Redacted())
	}
	client.rpcClient = rpcClient
	client.GethClient = ethclient.NewClient(rpcClient)

	client.SecondaryGethClients = []GethClient{}
	client.secondaryRPCClients = []*rpc.Client{}
	for _, url := range client.secondaryURLs {
		secondaryRPCClient, err := rpc.DialContext(ctx, url.String())
		if err != nil {
			return errors.Wrapf(err, "could not dial secondary %s", url.Redacted())
		}
		client.secondaryRPCClients = append(client.secondaryRPCClients, secondaryRPCClient)
		client.SecondaryGethClients = append(client.SecondaryGethClients, ethclient.NewClient(secondaryRPCClient))
	}
	return nil
}

func (client *Impl) Close() {
	for _, c := range client.secondaryRPCClients {
		c.Close()
	}
	if client.rpcClient != nil {
		client.rpcClient.Close()
	}
}

func (client *Impl) ChainID(ctx context.Context) (*big.Int, error) {
	client.logger.Debugw("eth.Client#ChainID(...)")
	return client.GethClient.ChainID(ctx)
}

// SendTransaction also uses the secondary RPC URLs if set
func (client *Impl) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	client.logger.Debugw("eth.Client#SendTransaction(...)",
		"txHash", tx.Hash(),
	)

	var wg sync.WaitGroup
	defer wg.Wait()
	for _, gethClient := range client.SecondaryGethClients {
		// Parallel send to secondary node
		wg.Add(1)
		go func(gethClient GethClient) {
			defer wg.Done()
			err := NewSendError(gethClient.SendTransaction(ctx, tx))
			if err == nil || err.IsNonceTooLowError() || err.IsTransactionAlreadyInMempool() {
				// Nonce too low or transaction known errors are expected since
				// the primary SendTransaction may well have succeeded already
				return
			}
			client.logger.Warnw("secondary eth client returned error", "err", err, "txHash", tx.Hash())
		}(gethClient)
	}

	return client.GethClient.SendTransaction(ctx, tx)
}

func (client *Impl) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	client.logger.Debugw("eth.Client#PendingNonceAt(...)",
		"account", account,
	)
	return client.GethClient.PendingNonceAt(ctx, account)
}

func (client *Impl) EstimateGas(ctx context.Context, call ethereum.CallMsg) (gas uint64, err error) {
	client.logger.Debugw("eth.Client#EstimateGas(...)",
		"from", call.From,
		"to", call.To,
	)
	return client.GethClient.EstimateGas(ctx, call)
}

func (client *Impl) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	client.logger.Debugw("eth.Client#SuggestGasPrice()")
	return client.GethClient.SuggestGasPrice(ctx)
}

func (client *Impl) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	client.logger.Debugw("eth.Client#SuggestGasTipCap()")
	return client.GethClient.SuggestGasTipCap(ctx)
}
