package txmanager

import (
	"context"
	"sync"
	"time"

	"github.com/celer-network/eth-batch-sender/account"
	esClient "github.com/celer-network/eth-batch-sender/client"
	esStore "github.com/celer-network/eth-batch-sender/store"
	"github.com/celer-network/eth-batch-sender/store/models"
	"github.com/celer-network/eth-batch-sender/subscription"
	esTypes "github.com/celer-network/eth-batch-sender/types"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"
)

// ErrNoCredentials is returned when there is nothing to submit.
var ErrNoCredentials = errors.New("no credentials supplied")

// TxManager submits one transaction per credential, holding all workers
// while the network gas price is above target.
type TxManager interface {
	// Run blocks until every worker is done, ctx is cancelled or the gas
	// gate gives up. The summary is returned in all three cases.
	Run(ctx context.Context, credentials []account.Credential) (*Summary, error)
}

// Summary counts the outcomes of a run.
type Summary struct {
	Total              int
	Submitted          int
	InvalidCredentials int
	Failed             int
	// Items still queued or held when the run ended
	Pending  int
	Requeues int
	TxHashes []string
}

type txManager struct {
	ethClient esClient.Client
	store     esStore.Store
	config    *esTypes.Config
	logger    esTypes.Logger
	sleepers  []subscription.Sleeper

	StartStopOnce
}

var _ TxManager = (*txManager)(nil)

// NewTxManager returns a TxManager. The optional sleeper is handed to the gas
// gate to pace retries of failed gas price polls.
func NewTxManager(
	ethClient esClient.Client,
	store esStore.Store,
	config *esTypes.Config,
	sleepers ...subscription.Sleeper,
) TxManager {
	return &txManager{
		ethClient: ethClient,
		store:     store,
		config:    config,
		logger:    config.Logger,
		sleepers:  sleepers,
	}
}

func (txm *txManager) Run(ctx context.Context, credentials []account.Credential) (summary *Summary, err error) {
	if len(credentials) == 0 {
		return nil, ErrNoCredentials
	}
	if txm.config.WorkersCount < 1 {
		return nil, errors.Errorf("workers count must be positive, got %d", txm.config.WorkersCount)
	}
	if !txm.OkayToStart() {
		return nil, errors.New("TxManager has already run")
	}
	defer txm.OkayToStop()

	queue := NewWorkQueue(credentials)
	for _, item := range queue.Snapshot() {
		if err := txm.store.PutOutcome(&models.Outcome{
			ID:        item.ID,
			State:     models.OutcomeStatePending,
			UpdatedAt: time.Now(),
		}); err != nil {
			return nil, errors.Wrap(err, "could not record pending outcome")
		}
	}

	gate := subscription.NewGasGate(txm.ethClient, txm.config, txm.sleepers...)
	if err := gate.Start(); err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if txm.config.MaxSubmissionsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(txm.config.MaxSubmissionsPerSecond), 1)
	}
	submitter := NewTxSubmitter(txm.ethClient, txm.config)

	txm.logger.Infow("TxManager: starting workers",
		"credentials", len(credentials),
		"workers", txm.config.WorkersCount,
		"contract", txm.config.ContractAddress.Hex(),
	)
	mark := time.Now()

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(txm.config.WorkersCount)
	for i := 0; i < txm.config.WorkersCount; i++ {
		worker := NewWorker(i, queue, gate, submitter, txm.ethClient, txm.store, limiter, txm.config)
		go func() {
			defer wg.Done()
			worker.Run(workerCtx)
		}()
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case gateErr := <-gate.Err():
		txm.logger.Errorw("TxManager: gas gate failed, stopping workers", "err", gateErr)
		err = errors.Wrap(gateErr, "gas gate stopped")
		cancel()
		<-done
	}
	err = multierr.Append(err, gate.Stop())
	if err == nil && ctx.Err() != nil {
		err = errors.Wrap(ctx.Err(), "run interrupted")
	}

	summary, summaryErr := txm.summarize()
	if summaryErr != nil {
		return nil, multierr.Append(err, summaryErr)
	}
	txm.logger.Infow("TxManager: finished",
		"total", summary.Total,
		"submitted", summary.Submitted,
		"invalidCredentials", summary.InvalidCredentials,
		"failed", summary.Failed,
		"pending", summary.Pending,
		"requeues", summary.Requeues,
		"time", time.Since(mark),
	)
	return summary, err
}

func (txm *txManager) summarize() (*Summary, error) {
	outcomes, err := txm.store.GetOutcomes()
	if err != nil {
		return nil, errors.Wrap(err, "could not read outcomes")
	}
	summary := &Summary{Total: len(outcomes), TxHashes: []string{}}
	for _, outcome := range outcomes {
		summary.Requeues += outcome.Requeues
		if !outcome.State.Final() {
			summary.Pending++
			continue
		}
		switch outcome.State {
		case models.OutcomeStateSubmitted:
			summary.Submitted++
			summary.TxHashes = append(summary.TxHashes, outcome.TxHash)
		case models.OutcomeStateInvalidCredential:
			summary.InvalidCredentials++
		case models.OutcomeStateSubmissionFailed:
			summary.Failed++
		}
	}
	return summary, nil
}
