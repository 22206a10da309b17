/*
locks.go - Per-account serialization units

PURPOSE:
  Gives the Mutator its serializability guarantee: two concurrent moves
  touching the same account must not interleave their read-modify-write.
  Moves touching disjoint accounts proceed independently - there is no
  global lock.

DEADLOCK PREVENTION:
  A move that touches two accounts acquires both locks in sorted id
  order. Two transfers moving funds in opposite directions between the
  same pair therefore always contend on the same first lock instead of
  deadlocking on each other.

BOUNDED WAIT:
  Acquisition waits at most the configured timeout, then fails with
  ErrContention. The caller retries; we never park a request forever.
*/
package ledger

import (
	"context"
	"sort"
	"sync"
	"time"
)

// DefaultLockTimeout bounds how long a move waits for an account's
// serialization unit before failing with ErrContention.
const DefaultLockTimeout = 3 * time.Second

// AccountLocks hands out one semaphore per account id.
type AccountLocks struct {
	mu      sync.Mutex
	sems    map[AccountID]chan struct{}
	Timeout time.Duration
}

func NewAccountLocks(timeout time.Duration) *AccountLocks {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &AccountLocks{
		sems:    make(map[AccountID]chan struct{}),
		Timeout: timeout,
	}
}

func (l *AccountLocks) sem(id AccountID) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sems[id]
	if !ok {
		s = make(chan struct{}, 1)
		l.sems[id] = s
	}
	return s
}

// Acquire takes the locks for the given accounts in sorted id order,
// deduplicating repeats. On success it returns a release function; on
// timeout or context cancellation it releases everything taken so far
// and returns ErrContention.
func (l *AccountLocks) Acquire(ctx context.Context, ids ...AccountID) (release func(), err error) {
	sorted := make([]AccountID, 0, len(ids))
	seen := make(map[AccountID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			sorted = append(sorted, id)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	deadline := time.NewTimer(l.Timeout)
	defer deadline.Stop()

	var held []chan struct{}
	releaseHeld := func() {
		// Release in reverse acquisition order.
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}

	for _, id := range sorted {
		s := l.sem(id)
		select {
		case s <- struct{}{}:
			held = append(held, s)
		case <-deadline.C:
			releaseHeld()
			return nil, ErrContention
		case <-ctx.Done():
			releaseHeld()
			return nil, ErrContention
		}
	}

	return releaseHeld, nil
}
