package bridge

import (
	"sort"
	"sync/atomic"
)

// Tuning constants for the adaptive due-time policy (spec §4.1).
const (
	Postpone        = 60
	Backoff         = 10
	MaxTxInterval   = 3600
	MinTxInterval   = 900
	LoggerTxDelay   = 20
	txHistoryLength = 5
)

// Schedule is the mutable per-device polling state. Every field except
// Generation is touched only by the worker that currently holds the
// device's Mu lock. Generation is an atomic counter so the priority queue
// can validate a popped entry without taking the device mutex — taking it
// there would invert the device-mutex-then-heap-mutex lock order of spec
// §5 and deadlock against a worker that is re-pushing while holding Mu.
type Schedule struct {
	DueAt      int64
	LastSeen   int64
	txHistory  []int64 // most-recent first, bounded to txHistoryLength
	Errors     int
	Generation atomic.Uint64
	InFlight   bool
}

// NewSchedule builds the initial Schedule for a freshly discovered device.
func NewSchedule(lastSeen, dueAt int64) *Schedule {
	return &Schedule{
		DueAt:    dueAt,
		LastSeen: lastSeen,
	}
}

// AddSuccessfulTx records a successful transmission timestamp and clears
// the consecutive-error count. Called only by the owning worker.
func (s *Schedule) AddSuccessfulTx(ts int64) {
	s.txHistory = append([]int64{ts}, s.txHistory...)
	if len(s.txHistory) > txHistoryLength {
		s.txHistory = s.txHistory[:txHistoryLength]
	}
	s.Errors = 0
}

// IncError increments the consecutive failed-attempt counter.
func (s *Schedule) IncError() {
	s.Errors++
}

// UpdateDueAt recomputes DueAt from the current state, following the
// escalating-backoff / adaptive-cadence policy of spec §4.1.
func (s *Schedule) UpdateDueAt(now int64) {
	if s.Errors > 0 {
		delay := Postpone
		for i := 0; i < s.Errors-1 && delay < MaxTxInterval; i++ {
			delay *= Backoff
		}
		delay = clamp(delay, Postpone, MaxTxInterval)
		s.DueAt = now + int64(delay) + LoggerTxDelay
		return
	}

	if len(s.txHistory) < 2 {
		s.DueAt = now + MinTxInterval + LoggerTxDelay
		return
	}

	interval := clamp(medianDelta(s.txHistory), MinTxInterval, MaxTxInterval)
	s.DueAt = s.txHistory[0] + int64(interval) + LoggerTxDelay
}

// medianDelta computes the median of the pairwise deltas between adjacent
// entries of a most-recent-first timestamp history.
func medianDelta(history []int64) int {
	if len(history) < 2 {
		return MinTxInterval
	}

	deltas := make([]int64, 0, len(history)-1)
	for i := 0; i < len(history)-1; i++ {
		deltas = append(deltas, history[i]-history[i+1])
	}

	sort.Slice(deltas, func(i, j int) bool { return deltas[i] < deltas[j] })

	n := len(deltas)
	if n%2 == 1 {
		return int(deltas[n/2])
	}
	return int((deltas[n/2-1] + deltas[n/2]) / 2)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
