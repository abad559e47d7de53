package types

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/params"
)

var gwei = big.NewRat(params.GWei, 1)

// GweiToWei converts a gwei amount to wei, truncating any fraction of a wei.
func GweiToWei(amount float64) *big.Int {
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(amount, 'f', -1, 64))
	if !ok {
		return new(big.Int)
	}
	r.Mul(r, gwei)
	return new(big.Int).Quo(r.Num(), r.Denom())
}

// GweiString formats a wei amount as gwei for log output.
func GweiString(wei *big.Int) string {
	if wei == nil {
		return "<nil>"
	}
	return new(big.Rat).SetFrac(wei, big.NewInt(params.GWei)).FloatString(3)
}
