package subscription

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/celer-network/eth-batch-sender/client"
	"github.com/celer-network/eth-batch-sender/types"
	"github.com/pkg/errors"
	"github.com/tevino/abool"
)

const (
	// maxEthNodeRequestTime is the worst case time we will wait for a gas
	// price from the eth node before we count the poll as failed
	maxEthNodeRequestTime = 15 * time.Second
)

// ErrGasQuery is wrapped by every error caused by an unavailable gas price.
var ErrGasQuery = errors.New("gas price query failed")

// gasQueryError marks err as ErrGasQuery while keeping the node error
// reachable through Unwrap.
type gasQueryError struct {
	err error
}

func (e *gasQueryError) Error() string {
	return ErrGasQuery.Error() + ": " + e.err.Error()
}

func (e *gasQueryError) Unwrap() error {
	return e.err
}

func (e *gasQueryError) Is(target error) bool {
	return target == ErrGasQuery
}

// GasGate polls the network gas price and keeps a shared block engaged while
// the price is above the configured target.
//
// The block has exactly one writer, the monitor goroutine started by Start.
// Workers observe it through Blocked and never change it. A failed poll
// engages the block; after MaxGasQueryFailures consecutive failures the
// monitor gives up and reports on Err, leaving the block engaged.
type GasGate struct {
	ethClient    client.Client
	threshold    *big.Int
	pollInterval time.Duration
	maxFailures  int
	sleeper      Sleeper
	logger       types.Logger

	blocked *abool.AtomicBool
	chErr   chan error

	lock    sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewGasGate returns a gate for config.GasTarget. An optional sleeper
// dictates how long the monitor backs off after a failed poll.
func NewGasGate(ethClient client.Client, config *types.Config, sleepers ...Sleeper) *GasGate {
	var sleeper Sleeper
	if len(sleepers) > 0 {
		sleeper = sleepers[0]
	} else {
		sleeper = NewBackoffSleeper()
	}
	return &GasGate{
		ethClient:    ethClient,
		threshold:    config.GasTarget,
		pollInterval: config.GasPollInterval,
		maxFailures:  config.MaxGasQueryFailures,
		sleeper:      sleeper,
		logger:       config.Logger,
		blocked:      abool.New(),
	}
}

// Start engages the block and launches the monitor. The block is engaged
// before Start returns, so no worker can proceed before the first poll.
func (g *GasGate) Start() error {
	g.lock.Lock()
	defer g.lock.Unlock()

	if g.started {
		return errors.New("GasGate is already started")
	}

	g.blocked.Set()
	g.logger.Infow("GasGate: started", "targetGwei", types.GweiString(g.threshold))

	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	chErr := make(chan error, 1)
	g.chErr = chErr

	g.wg.Add(1)
	go g.monitor(ctx, chErr)

	g.started = true
	return nil
}

// Stop ends the monitor and waits for it to exit.
func (g *GasGate) Stop() error {
	g.lock.Lock()

	if !g.started {
		g.lock.Unlock()
		return nil
	}

	g.cancel()
	g.started = false
	g.lock.Unlock()

	g.wg.Wait()
	return nil
}

// Blocked reports whether the last observed gas price was above target.
func (g *GasGate) Blocked() bool {
	return g.blocked.IsSet()
}

// Err delivers the error that made the current run of the monitor give up.
// It fires at most once per Start and is nil before the first Start.
func (g *GasGate) Err() <-chan error {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.chErr
}

// Poll queries the gas price once and moves the block accordingly.
func (g *GasGate) Poll(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, maxEthNodeRequestTime)
	defer cancel()

	price, err := g.ethClient.SuggestGasPrice(ctx)
	if err == nil && price == nil {
		err = errors.New("node returned no gas price")
	}
	if err != nil {
		if g.blocked.SetToIf(false, true) {
			g.logger.Warnw("GasGate: gas price unavailable, holding workers", "err", err)
		}
		return &gasQueryError{err: err}
	}

	if price.Cmp(g.threshold) > 0 {
		g.blocked.Set()
		g.logger.Infow("GasGate: gas price above target, waiting",
			"gasPriceGwei", types.GweiString(price),
			"targetGwei", types.GweiString(g.threshold),
		)
		return nil
	}
	if g.blocked.SetToIf(true, false) {
		g.logger.Infow("GasGate: gas price at or below target, proceeding",
			"gasPriceGwei", types.GweiString(price),
			"targetGwei", types.GweiString(g.threshold),
		)
	}
	return nil
}

func (g *GasGate) monitor(ctx context.Context, chErr chan<- error) {
	defer g.wg.Done()

	failures := 0
	for {
		wait := g.pollInterval
		if err := g.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			if g.maxFailures > 0 && failures >= g.maxFailures {
				g.logger.Errorw("GasGate: giving up after repeated gas price failures",
					"failures", failures,
					"err", err,
				)
				select {
				case chErr <- errors.Wrapf(err, "%d consecutive failures", failures):
				case <-ctx.Done():
				}
				return
			}
			wait = g.sleeper.After()
			g.logger.Warnw("GasGate: poll failed, backing off",
				"failures", failures,
				"retryIn", wait,
				"err", err,
			)
		} else if failures > 0 {
			failures = 0
			g.sleeper.Reset()
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
