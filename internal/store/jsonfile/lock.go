package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

// ErrLockTimeout is returned when the data files stay locked past the lock timeout.
var ErrLockTimeout = errors.New("jsonfile: timed out waiting for data lock")

const (
	lockRetryDelay = 20 * time.Millisecond

	// maxReaders is the semaphore weight; a writer takes all of it.
	maxReaders = 1 << 20
)

// lockWrite serializes mutations within the process and across processes.
func (s *Store) lockWrite(ctx context.Context) (func(), error) {
	return s.lock(ctx, maxReaders, func(fl *flock.Flock) func(context.Context, time.Duration) (bool, error) {
		return fl.TryLockContext
	})
}

// lockRead admits concurrent readers but excludes writers.
// Each call opens its own descriptor, so shared locks are counted per reader.
func (s *Store) lockRead(ctx context.Context) (func(), error) {
	return s.lock(ctx, 1, func(fl *flock.Flock) func(context.Context, time.Duration) (bool, error) {
		return fl.TryRLockContext
	})
}

// lock takes weight from the in-process semaphore and then the file lock. Both
// waits are bounded by ctx and the store's lock timeout.
func (s *Store) lock(ctx context.Context, weight int64, try func(*flock.Flock) func(context.Context, time.Duration) (bool, error)) (func(), error) {
	lctx := ctx
	if s.lockTimeout > 0 {
		var cancel context.CancelFunc
		lctx, cancel = context.WithTimeout(ctx, s.lockTimeout)
		defer cancel()
	}

	if err := s.sem.Acquire(lctx, weight); err != nil {
		return nil, s.lockErr(ctx, err)
	}
	fl := flock.New(s.lockPath)
	ok, err := try(fl)(lctx, lockRetryDelay)
	if err == nil && !ok {
		err = context.DeadlineExceeded
	}
	if err != nil {
		s.sem.Release(weight)
		return nil, s.lockErr(ctx, err)
	}
	return func() {
		_ = fl.Unlock()
		s.sem.Release(weight)
	}, nil
}

// lockErr reports a timeout as ErrLockTimeout unless the caller's own ctx ended.
func (s *Store) lockErr(ctx context.Context, err error) error {
	if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrLockTimeout, s.lockPath)
	}
	return fmt.Errorf("lock %s: %w", s.lockPath, err)
}
