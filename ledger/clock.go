package ledger

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidWindow is returned for epoch windows shorter than one second
var ErrInvalidWindow = errors.New("invalid epoch window")

// Clock derives epoch indexes from a fixed deployment timestamp and window
// length. Both are fixed at construction: changing either would reorder
// existing checkpoints.
type Clock struct {
	deployedAt int64 // unix seconds
	window     int64 // seconds
}

// NewClock creates a clock for a token deployed at deployedAt. Time is
// truncated to whole seconds.
func NewClock(deployedAt time.Time, window time.Duration) (Clock, error) {
	if window < time.Second {
		return Clock{}, fmt.Errorf("%w: %s (minimum 1s)", ErrInvalidWindow, window)
	}
	return Clock{
		deployedAt: deployedAt.Unix(),
		window:     int64(window / time.Second),
	}, nil
}

// DeployedAt returns the deployment timestamp
func (c Clock) DeployedAt() time.Time {
	return time.Unix(c.deployedAt, 0).UTC()
}

// Window returns the epoch window length
func (c Clock) Window() time.Duration {
	return time.Duration(c.window) * time.Second
}

// EpochAt returns floor((now - deployedAt) / window). Timestamps before
// deployment belong to epoch 0.
func (c Clock) EpochAt(now time.Time) uint64 {
	if c.window == 0 {
		return 0
	}
	elapsed := now.Unix() - c.deployedAt
	if elapsed <= 0 {
		return 0
	}
	return uint64(elapsed / c.window)
}

// StartOf returns the first instant of an epoch
func (c Clock) StartOf(epoch uint64) time.Time {
	return time.Unix(c.deployedAt+int64(epoch)*c.window, 0).UTC()
}

// IsZero reports whether the clock was never configured
func (c Clock) IsZero() bool {
	return c.window == 0
}
