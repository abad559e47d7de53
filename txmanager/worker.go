package txmanager

import (
	"context"
	"math/big"
	"time"

	"github.com/celer-network/eth-batch-sender/account"
	"github.com/celer-network/eth-batch-sender/client"
	"github.com/celer-network/eth-batch-sender/store"
	"github.com/celer-network/eth-batch-sender/store/models"
	"github.com/celer-network/eth-batch-sender/types"

	gethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// GasGate is the read side of subscription.GasGate.
type GasGate interface {
	Blocked() bool
}

// Worker drains the shared queue one item at a time:
//
//	Idle -> Waiting -> Fetching -> Jittering -> GasCheck -> Submitting -> Idle
//
// A worker is done when it finds the queue empty while idle. It never writes
// the gate; it polls it and re-checks the gas price itself before submitting.
// An item whose gas check fails goes back to the tail of the queue. An item
// with an invalid credential or a failed submission is dropped.
type Worker struct {
	id        int
	queue     *WorkQueue
	gate      GasGate
	submitter TxSubmitter
	ethClient client.Client
	store     store.Store
	limiter   *rate.Limiter
	config    *types.Config
	logger    types.Logger
}

// NewWorker returns a worker. limiter may be nil to submit without pacing.
func NewWorker(
	id int,
	queue *WorkQueue,
	gate GasGate,
	submitter TxSubmitter,
	ethClient client.Client,
	store store.Store,
	limiter *rate.Limiter,
	config *types.Config,
) *Worker {
	return &Worker{
		id:        id,
		queue:     queue,
		gate:      gate,
		submitter: submitter,
		ethClient: ethClient,
		store:     store,
		limiter:   limiter,
		config:    config,
		logger:    config.Logger.With("worker", id),
	}
}

// Run processes items until the queue is observed empty or ctx is done. Once
// cancelled, a worker pops nothing new but lets an in-flight submission finish.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Debug("Worker: started")
	for {
		if ctx.Err() != nil {
			w.logger.Infow("Worker: stopping", "reason", ctx.Err())
			return
		}
		if w.queue.Empty() {
			w.logger.Debug("Worker: queue empty, done")
			return
		}
		if w.gate.Blocked() {
			sleepContext(ctx, w.config.GateWaitInterval)
			continue
		}
		item, ok := w.queue.Pop()
		if !ok {
			continue
		}
		w.process(ctx, item)
	}
}

func (w *Worker) process(ctx context.Context, item *WorkItem) {
	signer, err := account.NewSigner(item.Credential)
	if err != nil {
		w.logger.Errorw("Worker: dropping invalid credential", "item", item.ID, "err", err)
		w.record(item, models.OutcomeStateInvalidCredential, "", "", err)
		return
	}
	address := signer.Address().Hex()
	logger := w.logger.With("item", item.ID, "address", address)

	delay := randomDelay(w.config.MinAccountDelay, w.config.MaxAccountDelay)
	logger.Infow("Worker: sleeping before submission", "delay", delay)
	if !sleepContext(ctx, delay) {
		w.requeue(item, models.OutcomeStatePending, address, nil)
		return
	}

	if ok, price, err := w.gasCheck(ctx); !ok {
		item.Requeues++
		if err != nil {
			logger.Warnw("Worker: gas price check failed, requeueing", "requeues", item.Requeues, "err", err)
		} else {
			logger.Infow("Worker: gas price above target, requeueing",
				"gasPriceGwei", types.GweiString(price),
				"targetGwei", types.GweiString(w.config.GasTarget),
				"requeues", item.Requeues,
			)
		}
		w.requeue(item, models.OutcomeStateRequeued, address, err)
		return
	}

	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			w.requeue(item, models.OutcomeStatePending, address, nil)
			return
		}
	}

	hash, err := w.submit(context.WithoutCancel(ctx), signer)
	if err != nil {
		class := "unknown"
		var sendErr *client.SendError
		if errors.As(err, &sendErr) {
			class = sendErr.Class()
		}
		logger.Errorw("Worker: submission failed, dropping account", "class", class, "err", err)
		w.record(item, models.OutcomeStateSubmissionFailed, address, "", errors.Wrap(err, class))
		return
	}
	logger.Infow("Worker: transaction submitted", "txHash", hash.Hex())
	w.record(item, models.OutcomeStateSubmitted, address, hash.Hex(), nil)
}

// gasCheck reads a fresh gas price, independent of the gate's last view.
func (w *Worker) gasCheck(ctx context.Context) (bool, *big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, maxEthNodeRequestTime)
	defer cancel()

	price, err := w.ethClient.SuggestGasPrice(ctx)
	if err != nil {
		return false, nil, errors.Wrap(err, "could not get gas price")
	}
	if price == nil {
		return false, nil, errors.New("node returned no gas price")
	}
	return price.Cmp(w.config.GasTarget) <= 0, price, nil
}

func (w *Worker) submit(ctx context.Context, signer account.TxSigner) (hash gethCommon.Hash, err error) {
	fees, err := EIP1559Fees(ctx, w.ethClient)
	if err != nil {
		return hash, &submissionError{err: err}
	}
	to := w.config.ContractAddress
	value := new(big.Int)
	if w.config.Value != nil {
		value.Set(w.config.Value)
	}
	req := &TxRequest{
		To:                   &to,
		Data:                 w.config.InputData,
		Value:                value,
		MaxPriorityFeePerGas: fees.MaxPriorityFeePerGas,
		MaxFeePerGas:         fees.MaxFeePerGas,
	}
	return w.submitter.SendTx(ctx, req, signer)
}

// requeue records the item before handing it back, since another worker may
// pop it and record a final state as soon as it is pushed.
func (w *Worker) requeue(item *WorkItem, state models.OutcomeState, address string, cause error) {
	w.record(item, state, address, "", cause)
	w.queue.Push(item)
}

func (w *Worker) record(item *WorkItem, state models.OutcomeState, address, txHash string, cause error) {
	outcome := &models.Outcome{
		ID:        item.ID,
		Worker:    w.id,
		Address:   address,
		State:     state,
		TxHash:    txHash,
		Requeues:  item.Requeues,
		UpdatedAt: time.Now(),
	}
	if cause != nil {
		outcome.Error = cause.Error()
	}
	if err := w.store.PutOutcome(outcome); err != nil {
		w.logger.Errorw("Worker: could not record outcome", "item", item.ID, "err", err)
	}
}
