package txmanager

import (
	"context"
	"math/big"

	"github.com/celer-network/eth-batch-sender/account"
	"github.com/celer-network/eth-batch-sender/client"
	"github.com/celer-network/eth-batch-sender/types"

	ethereum "github.com/ethereum/go-ethereum"
	gethCommon "github.com/ethereum/go-ethereum/common"
	gethTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// ErrSubmission is wrapped by every error returned from TxSubmitter.SendTx.
var ErrSubmission = errors.New("transaction submission failed")

// IsSubmissionFailure reports whether err came out of TxSubmitter.SendTx.
func IsSubmissionFailure(err error) bool {
	return errors.Is(err, ErrSubmission)
}

// submissionError marks err as ErrSubmission while keeping the node error
// reachable through Unwrap.
type submissionError struct {
	err error
}

func (e *submissionError) Error() string {
	return ErrSubmission.Error() + ": " + e.err.Error()
}

func (e *submissionError) Unwrap() error {
	return e.err
}

func (e *submissionError) Is(target error) bool {
	return target == ErrSubmission
}

// TxRequest is a partially specified transaction. A nil field is absent and
// gets filled with a live value from the node when the request is submitted.
type TxRequest struct {
	To    *gethCommon.Address
	Data  []byte
	Value *big.Int

	Nonce   *uint64
	From    *gethCommon.Address
	ChainID *big.Int
	Gas     *uint64

	MaxPriorityFeePerGas *big.Int
	MaxFeePerGas         *big.Int
}

func (req *TxRequest) copy() *TxRequest {
	c := *req
	if req.Data != nil {
		c.Data = append([]byte(nil), req.Data...)
	}
	return &c
}

func (req *TxRequest) callMsg() ethereum.CallMsg {
	return ethereum.CallMsg{
		From:      *req.From,
		To:        req.To,
		Value:     req.Value,
		Data:      req.Data,
		GasFeeCap: req.MaxFeePerGas,
		GasTipCap: req.MaxPriorityFeePerGas,
	}
}

// TxSubmitter turns a TxRequest and a signer into a broadcast transaction.
//
// Every call works on a copy of the request, so absent fields are derived
// again on each attempt and the caller's request is never modified. No
// idempotency is provided: submitting the same request twice may produce two
// transactions.
type TxSubmitter interface {
	SendTx(ctx context.Context, req *TxRequest, signer account.TxSigner) (gethCommon.Hash, error)
}

type txSubmitter struct {
	ethClient     client.Client
	gasMultiplier *big.Rat
	logger        types.Logger
}

var _ TxSubmitter = (*txSubmitter)(nil)

// NewTxSubmitter returns a new concrete TxSubmitter
func NewTxSubmitter(ethClient client.Client, config *types.Config) TxSubmitter {
	multiplier := config.GasMultiplier
	if multiplier == nil {
		multiplier = big.NewRat(1, 1)
	}
	return &txSubmitter{
		ethClient:     ethClient,
		gasMultiplier: multiplier,
		logger:        config.Logger,
	}
}

func (ts *txSubmitter) SendTx(ctx context.Context, req *TxRequest, signer account.TxSigner) (hash gethCommon.Hash, err error) {
	defer func() {
		if err != nil {
			err = &submissionError{err: err}
		}
	}()

	if req == nil || req.To == nil {
		return hash, errors.New("transaction has no recipient")
	}
	filled, err := ts.populate(ctx, req.copy(), signer)
	if err != nil {
		return hash, err
	}

	tx := gethTypes.NewTx(&gethTypes.DynamicFeeTx{
		ChainID:   filled.ChainID,
		Nonce:     *filled.Nonce,
		GasTipCap: filled.MaxPriorityFeePerGas,
		GasFeeCap: filled.MaxFeePerGas,
		Gas:       *filled.Gas,
		To:        filled.To,
		Value:     filled.Value,
		Data:      filled.Data,
	})
	signedTx, err := signTx(signer, tx, filled.ChainID)
	if err != nil {
		return hash, client.NewFatalSendError(err)
	}

	if sendErr := sendTransaction(ctx, ts.ethClient, signedTx, ts.logger); sendErr != nil {
		return hash, errors.Wrapf(sendErr, "broadcast of %s failed", signedTx.Hash().Hex())
	}
	return signedTx.Hash(), nil
}

// populate fills the absent fields in order: nonce, from, chain ID, fees and
// finally gas, which is estimated against the otherwise complete request.
func (ts *txSubmitter) populate(ctx context.Context, req *TxRequest, signer account.TxSigner) (*TxRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, maxEthNodeRequestTime)
	defer cancel()

	// canonical form
	to := gethCommon.HexToAddress(req.To.Hex())
	req.To = &to

	if req.Value == nil {
		req.Value = big.NewInt(0)
	}
	if req.Nonce == nil {
		nonce, err := ts.ethClient.PendingNonceAt(ctx, signer.Address())
		if err != nil {
			return nil, errors.Wrapf(err, "could not get pending nonce for %s", signer.Address().Hex())
		}
		req.Nonce = &nonce
	}
	if req.From == nil {
		from := signer.Address()
		req.From = &from
	}
	if req.ChainID == nil {
		chainID, err := ts.ethClient.ChainID(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "could not get chain ID")
		}
		if chainID == nil {
			return nil, errors.New("node returned no chain ID")
		}
		req.ChainID = chainID
	}
	if req.MaxPriorityFeePerGas == nil || req.MaxFeePerGas == nil {
		fees, err := EIP1559Fees(ctx, ts.ethClient)
		if err != nil {
			return nil, err
		}
		if req.MaxPriorityFeePerGas == nil {
			req.MaxPriorityFeePerGas = fees.MaxPriorityFeePerGas
		}
		if req.MaxFeePerGas == nil {
			req.MaxFeePerGas = fees.MaxFeePerGas
		}
	}
	if req.Gas == nil {
		estimate, err := ts.ethClient.EstimateGas(ctx, req.callMsg())
		if err != nil {
			return nil, errors.Wrap(err, "could not estimate gas")
		}
		gas, err := applyMultiplier(estimate, ts.gasMultiplier)
		if err != nil {
			return nil, err
		}
		req.Gas = &gas
	}
	return req, nil
}

// applyMultiplier returns ceil(estimate × multiplier).
func applyMultiplier(estimate uint64, multiplier *big.Rat) (uint64, error) {
	product := new(big.Rat).Mul(new(big.Rat).SetInt(new(big.Int).SetUint64(estimate)), multiplier)
	quo, rem := new(big.Int).QuoRem(product.Num(), product.Denom(), new(big.Int))
	if rem.Sign() > 0 {
		quo.Add(quo, big.NewInt(1))
	}
	if quo.Sign() < 0 || !quo.IsUint64() {
		return 0, errors.Errorf("gas limit %s out of range", quo)
	}
	return quo.Uint64(), nil
}
