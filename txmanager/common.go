package txmanager

import (
	"context"
	"math/big"
	"time"

	"github.com/celer-network/eth-batch-sender/account"
	"github.com/celer-network/eth-batch-sender/client"
	"github.com/celer-network/eth-batch-sender/types"

	gethTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

const (
	// maxEthNodeRequestTime is the worst case time we will wait for a response
	// from the eth node before we consider it to be an error
	maxEthNodeRequestTime = 15 * time.Second
)

func signTx(signer account.TxSigner, tx *gethTypes.Transaction, chainID *big.Int) (*gethTypes.Transaction, error) {
	signedTx, err := signer.SignTx(tx, chainID)
	if err != nil {
		return nil, errors.Wrap(err, "signTx failed")
	}
	return signedTx, nil
}

// sendTransaction broadcasts the transaction to the ethereum network and
// returns an error (or nil) depending on the status
func sendTransaction(ctx context.Context, ethClient client.Client, signedTx *gethTypes.Transaction, logger types.Logger) *client.SendError {
	ctx, cancel := context.WithTimeout(ctx, maxEthNodeRequestTime)
	defer cancel()
	err := ethClient.SendTransaction(ctx, signedTx)
	err = errors.WithStack(err)

	logger.Debugw("TxSubmitter: Broadcasting transaction",
		"txHash", signedTx.Hash(),
		"nonce", signedTx.Nonce(),
		"gasLimit", signedTx.Gas(),
		"gasFeeCapWei", signedTx.GasFeeCap().String(),
		"gasTipCapWei", signedTx.GasTipCap().String(),
	)
	sendErr := client.NewSendError(err)
	if sendErr == nil {
		return nil
	}
	if sendErr.IsTransactionAlreadyInMempool() {
		logger.Debugw("transaction already in mempool", "txHash", signedTx.Hash(), "nodeErr", sendErr.Error())
		return nil
	}
	return sendErr
}
