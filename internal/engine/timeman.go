package engine

import (
	"time"
)

// TimeManager tracks the move-time budget of one search.
type TimeManager struct {
	budget    time.Duration // zero means unlimited
	startTime time.Time
}

// NewTimeManager creates a new time manager.
func NewTimeManager() *TimeManager {
	return &TimeManager{}
}

// Init starts the clock. The budget is the move time plus the increment;
// a non-positive move time disables the deadline.
func (tm *TimeManager) Init(moveTime, increment time.Duration) {
	tm.startTime = time.Now()
	tm.budget = 0
	if moveTime > 0 {
		tm.budget = moveTime + max(increment, 0)
	}
}

// Elapsed returns the time elapsed since search started.
func (tm *TimeManager) Elapsed() time.Duration {
	return time.Since(tm.startTime)
}

// Budget returns the time allowed for this move, zero if unlimited.
func (tm *TimeManager) Budget() time.Duration {
	return tm.budget
}

// ShouldStop reports whether the budget is spent.
func (tm *TimeManager) ShouldStop() bool {
	return tm.budget > 0 && tm.Elapsed() >= tm.budget
}

// PastHalf reports whether more than half the budget is gone, in which case
// the next iteration is unlikely to finish.
func (tm *TimeManager) PastHalf() bool {
	return tm.budget > 0 && tm.Elapsed()*2 >= tm.budget
}
