package client_test

import (
	"testing"

	"github.com/celer-network/eth-batch-sender/client"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestSendError_Classification(t *testing.T) {
	t.Parallel()

	assert.Nil(t, client.NewSendError(nil))
	assert.False(t, client.NewSendError(nil).Fatal())

	tests := []struct {
		name        string
		message     string
		fatal       bool
		nonceTooLow bool
		known       bool
		underpriced bool
		noFunds     bool
		class       string
	}{
		{"nonce too low", "nonce too low", false, true, false, false, false, "nonceTooLow"},
		{"wrapped nonce too low", "error while sending: nonce too low", false, true, false, false, false, "nonceTooLow"},
		{"already known", "already known", false, false, true, false, false, "unknown"},
		{"known transaction", "known transaction: 0x1234", false, false, true, false, false, "unknown"},
		{"replacement underpriced", "replacement transaction underpriced", false, false, false, false, false, "replacementUnderpriced"},
		{"underpriced", "transaction underpriced", false, false, false, true, false, "terminallyUnderpriced"},
		{"below base fee", "max fee per gas less than block base fee: address 0x1, maxFeePerGas: 1 baseFee: 2", false, false, false, true, false, "terminallyUnderpriced"},
		{"insufficient funds", "insufficient funds for gas * price + value", false, false, false, false, true, "insufficientFunds"},
		{"gas limit", "exceeds block gas limit", true, false, false, false, false, "fatal"},
		{"invalid sender", "invalid sender", true, false, false, false, false, "fatal"},
		{"tip above cap", "max priority fee per gas higher than max fee per gas", true, false, false, false, false, "fatal"},
		{"unknown", "connection refused", false, false, false, false, false, "unknown"},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			sendErr := client.NewSendError(errors.New(test.message))
			assert.Equal(t, test.fatal, sendErr.Fatal())
			assert.Equal(t, test.nonceTooLow, sendErr.IsNonceTooLowError())
			assert.Equal(t, test.known, sendErr.IsTransactionAlreadyInMempool())
			assert.Equal(t, test.underpriced, sendErr.IsTerminallyUnderpriced())
			assert.Equal(t, test.noFunds, sendErr.IsInsufficientFunds())
			assert.Equal(t, test.class, sendErr.Class())
			assert.Contains(t, sendErr.Error(), test.message)
		})
	}

	t.Run("fatal wrapper", func(t *testing.T) {
		sendErr := client.NewFatalSendError(errors.New("could not sign"))
		assert.True(t, sendErr.Fatal())
		assert.Equal(t, "fatal", sendErr.Class())
		assert.Nil(t, client.NewFatalSendError(nil))
		assert.Equal(t, "", client.NewFatalSendError(nil).Class())
	})
}
