package testing

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/celer-network/eth-batch-sender/account"
	"github.com/celer-network/eth-batch-sender/store"
	"github.com/celer-network/eth-batch-sender/store/models"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	uuid "github.com/satori/go.uuid"
	"github.com/stretchr/testify/require"
)

// NewHash return random Keccak256
func NewHash() common.Hash {
	return common.BytesToHash(randomBytes(32))
}

// NewAddress return a random new address
func NewAddress() common.Address {
	return common.BytesToAddress(randomBytes(20))
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	rand.Read(b)
	return b
}

// NewCredential generates a fresh private key and returns it hex encoded
// together with its address.
func NewCredential(t testing.TB) (account.Credential, common.Address) {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return account.Credential(hexutil.Encode(crypto.FromECDSA(key))), crypto.PubkeyToAddress(key.PublicKey)
}

// NewCredentials generates n credentials in order.
func NewCredentials(t testing.TB, n int) ([]account.Credential, []common.Address) {
	t.Helper()

	credentials := make([]account.Credential, 0, n)
	addresses := make([]common.Address, 0, n)
	for i := 0; i < n; i++ {
		credential, address := NewCredential(t)
		credentials = append(credentials, credential)
		addresses = append(addresses, address)
	}
	return credentials, addresses
}

func NewOutcome(t testing.TB, state models.OutcomeState) *models.Outcome {
	t.Helper()

	return &models.Outcome{
		ID:      uuid.NewV4(),
		Worker:  0,
		Address: NewAddress().Hex(),
		State:   state,
	}
}

func MustInsertOutcome(t testing.TB, s store.Store, state models.OutcomeState) *models.Outcome {
	t.Helper()

	outcome := NewOutcome(t, state)
	if state == models.OutcomeStateSubmitted {
		outcome.TxHash = NewHash().Hex()
	}
	require.NoError(t, s.PutOutcome(outcome))
	return outcome
}

// BigInts converts a list of int64 to big.Int values.
func BigInts(values ...int64) []*big.Int {
	res := make([]*big.Int, 0, len(values))
	for _, v := range values {
		res = append(res, big.NewInt(v))
	}
	return res
}
