package client

import (
	"regexp"

	"github.com/pkg/errors"
)

// SendError wraps an error returned by an eth node on eth_sendRawTransaction
// and classifies it.
type SendError struct {
	fatal bool
	err   error
}

func (s *SendError) Error() string {
	return s.err.Error()
}

func (s *SendError) Cause() error {
	return s.err
}

func (s *SendError) Unwrap() error {
	return s.err
}

// Fatal indicates whether the error should be considered fatal or not
// Fatal errors mean that no matter how many times the send is retried, no node
// will ever accept it
func (s *SendError) Fatal() bool {
	return s != nil && s.fatal
}

// NewFatalSendError wraps an error that is known to be unrecoverable.
func NewFatalSendError(e error) *SendError {
	if e == nil {
		return nil
	}
	return &SendError{err: errors.WithStack(e), fatal: true}
}

// NewSendError classifies a node error. Returns nil for a nil error.
func NewSendError(e error) *SendError {
	if e == nil {
		return nil
	}
	fatal := isFatalSendError(e)
	return &SendError{err: errors.WithStack(e), fatal: fatal}
}

// Geth
// See: https://github.com/ethereum/go-ethereum/blob/master/core/txpool/errors.go
// and https://github.com/ethereum/go-ethereum/blob/master/core/error.go
var (
	nonceTooLowRegex                    = regexp.MustCompile(`(^|: )nonce too low`)
	replacementUnderpricedRegex         = regexp.MustCompile(`(^|: )replacement transaction underpriced`)
	transactionAlreadyInMempoolRegex    = regexp.MustCompile(`(^|: )(?i)(known transaction|already known)`)
	terminallyUnderpricedRegex          = regexp.MustCompile(`(^|: )transaction underpriced`)
	insufficientFundsRegex              = regexp.MustCompile(`(^|: )(insufficient funds for gas \* price \+ value|insufficient funds for transfer)`)
	feeCapBelowBaseFeeRegex             = regexp.MustCompile(`(^|: )max fee per gas less than block base fee`)
	fatalInvalidSenderRegex             = regexp.MustCompile(`(^|: )invalid sender`)
	fatalOversizedDataRegex             = regexp.MustCompile(`(^|: )oversized data`)
	fatalGasLimitRegex                  = regexp.MustCompile(`(^|: )(exceeds block gas limit|intrinsic gas too low)`)
	fatalNegativeValueRegex             = regexp.MustCompile(`(^|: )negative value`)
	fatalTipAboveFeeCapRegex            = regexp.MustCompile(`(^|: )max priority fee per gas higher than max fee per gas`)
	fatalTransactionTypeNotSupportedRgx = regexp.MustCompile(`(^|: )transaction type not supported`)
)

func isFatalSendError(err error) bool {
	if err == nil {
		return false
	}
	str := err.Error()
	return fatalInvalidSenderRegex.MatchString(str) ||
		fatalOversizedDataRegex.MatchString(str) ||
		fatalGasLimitRegex.MatchString(str) ||
		fatalNegativeValueRegex.MatchString(str) ||
		fatalTipAboveFeeCapRegex.MatchString(str) ||
		fatalTransactionTypeNotSupportedRgx.MatchString(str)
}

// IsNonceTooLowError indicates that the nonce has already been consumed.
func (s *SendError) IsNonceTooLowError() bool {
	return s != nil && s.err != nil && nonceTooLowRegex.MatchString(s.Error())
}

// IsReplacementUnderpriced indicates that a transaction already exists in the
// mempool with this nonce but a different gas price or payload
func (s *SendError) IsReplacementUnderpriced() bool {
	return s != nil && s.err != nil && replacementUnderpricedRegex.MatchString(s.Error())
}

// IsTransactionAlreadyInMempool indicates that this exact transaction was
// already accepted by the node.
func (s *SendError) IsTransactionAlreadyInMempool() bool {
	return s != nil && s.err != nil && transactionAlreadyInMempoolRegex.MatchString(s.Error())
}

// IsTerminallyUnderpriced indicates that the node refuses the fee outright.
func (s *SendError) IsTerminallyUnderpriced() bool {
	return s != nil && s.err != nil && (terminallyUnderpricedRegex.MatchString(s.Error()) ||
		feeCapBelowBaseFeeRegex.MatchString(s.Error()))
}

func (s *SendError) IsInsufficientFunds() bool {
	return s != nil && s.err != nil && insufficientFundsRegex.MatchString(s.Error())
}

// Class names the failure for logs and outcome records.
func (s *SendError) Class() string {
	switch {
	case s == nil:
		return ""
	case s.IsNonceTooLowError():
		return "nonceTooLow"
	case s.IsReplacementUnderpriced():
		return "replacementUnderpriced"
	case s.IsTerminallyUnderpriced():
		return "terminallyUnderpriced"
	case s.IsInsufficientFunds():
		return "insufficientFunds"
	case s.Fatal():
		return "fatal"
	}
	return "unknown"
}
