// Package account turns raw credentials into transaction signers.
package account

import (
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// ErrInvalidCredential is returned when a credential cannot be parsed into a key.
var ErrInvalidCredential = errors.New("invalid credential")

// Credential is a hex encoded secp256k1 private key, with or without 0x prefix.
type Credential string

// String keeps credentials out of log output.
func (c Credential) String() string {
	return "<redacted>"
}

// TxSigner signs transactions on behalf of a single address.
type TxSigner interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Signer is a TxSigner backed by an in-memory private key.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

var _ TxSigner = (*Signer)(nil)

// NewSigner parses the credential and derives its address.
func NewSigner(credential Credential) (*Signer, error) {
	raw := strings.TrimSpace(string(credential))
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X")
	key, err := crypto.HexToECDSA(raw)
	if err != nil {
		// the parse error never echoes key material
		return nil, errors.Wrap(ErrInvalidCredential, err.Error())
	}
	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

func (s *Signer) Address() common.Address {
	return s.address
}

// SignTx signs tx with the latest signer rules for chainID.
func (s *Signer) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if chainID == nil {
		return nil, errors.New("chain ID is required for signing")
	}
	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
	if err != nil {
		return nil, errors.Wrapf(err, "could not sign transaction for %s", s.address.Hex())
	}
	return signedTx, nil
}
