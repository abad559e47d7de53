package txmanager

import (
	"context"
	mathRand "math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"
)

type StartStopOnce struct {
	state StartStopOnceState
	sync.Mutex
}

type StartStopOnceState int

const (
	StartStopOnce_Unstarted StartStopOnceState = iota
	StartStopOnce_Started
	StartStopOnce_Stopped
)

func (once *StartStopOnce) OkayToStart() (ok bool) {
	once.Lock()
	defer once.Unlock()

	if once.state != StartStopOnce_Unstarted {
		return false
	}
	once.state = StartStopOnce_Started
	return true
}

func (once *StartStopOnce) OkayToStop() (ok bool) {
	once.Lock()
	defer once.Unlock()

	if once.state != StartStopOnce_Started {
		return false
	}
	once.state = StartStopOnce_Stopped
	return true
}

// randomDelay draws a uniformly random duration in [min, max] with
// millisecond resolution
func randomDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	spread := int64((max - min) / time.Millisecond)
	if spread <= 0 {
		return min
	}
	return min + time.Duration(mathRand.Int63n(spread+1))*time.Millisecond
}

// sleepContext waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// WrapIfError decorates an error with the given message. It is intended to
// be used with `defer` statements, like so:
//
//	func SomeFunction() (err error) {
//		defer WrapIfError(&err, "error in SomeFunction:")
//
//		...
//	}
func WrapIfError(err *error, msg string) {
	if *err != nil {
		*err = errors.Wrap(*err, msg)
	}
}
