package txmanager

import (
	"context"
	"math/big"

	"github.com/celer-network/eth-batch-sender/client"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// Fees are the EIP-1559 fee caps attached to a dynamic fee transaction.
type Fees struct {
	MaxPriorityFeePerGas *big.Int
	MaxFeePerGas         *big.Int
}

// EIP1559Fees returns the node's suggested tip p and a fee cap of
// 2 × (gasPrice + p). The suggested gas price stands in for the base fee; the
// doubling leaves headroom for base fee movement before inclusion.
func EIP1559Fees(ctx context.Context, ethClient client.Client) (fees Fees, err error) {
	defer WrapIfError(&err, "EIP1559Fees failed")

	ctx, cancel := context.WithTimeout(ctx, maxEthNodeRequestTime)
	defer cancel()

	baseFee, err := ethClient.SuggestGasPrice(ctx)
	if err != nil {
		return fees, errors.Wrap(err, "could not get gas price")
	}
	tip, err := ethClient.SuggestGasTipCap(ctx)
	if err != nil {
		return fees, errors.Wrap(err, "could not get gas tip cap")
	}
	return feesFrom(baseFee, tip)
}

func feesFrom(baseFee, tip *big.Int) (Fees, error) {
	if baseFee == nil || tip == nil {
		return Fees{}, errors.New("node returned no fee data")
	}
	base, overflow := uint256.FromBig(baseFee)
	if overflow || baseFee.Sign() < 0 {
		return Fees{}, errors.Errorf("gas price %s out of range", baseFee)
	}
	priority, overflow := uint256.FromBig(tip)
	if overflow || tip.Sign() < 0 {
		return Fees{}, errors.Errorf("gas tip cap %s out of range", tip)
	}

	sum, overflow := new(uint256.Int).AddOverflow(base, priority)
	if overflow {
		return Fees{}, errors.New("fee cap overflows 256 bits")
	}
	feeCap, overflow := new(uint256.Int).MulOverflow(sum, uint256.NewInt(2))
	if overflow {
		return Fees{}, errors.New("fee cap overflows 256 bits")
	}
	return Fees{
		MaxPriorityFeePerGas: priority.ToBig(),
		MaxFeePerGas:         feeCap.ToBig(),
	}, nil
}
