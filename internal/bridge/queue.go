package bridge

import (
	"container/heap"
	"sync"

	"github.com/sdg-telemetry/bridge/internal/metrics"
)

// entry is one (due_at, device_id, generation) tuple. Ordered
// lexicographically by DueAt then DeviceID, a deterministic tie-break
// (spec §4.2).
type entry struct {
	DueAt      int64
	DeviceID   int64
	Generation uint64
}

// entryHeap is a plain container/heap.Interface min-heap. Mutation of a
// device's schedule never mutates an already-queued entry; instead the
// device's generation is bumped and a fresh entry pushed, leaving the old
// one stale to be discarded lazily on pop (spec §4.2).
type entryHeap []entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].DueAt != h[j].DueAt {
		return h[i].DueAt < h[j].DueAt
	}
	if h[i].DeviceID != h[j].DeviceID {
		return h[i].DeviceID < h[j].DeviceID
	}
	return h[i].Generation < h[j].Generation
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) { *h = append(*h, x.(entry)) }

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// PriorityQueue is the scheduler's single time-ordered work source. All
// heap operations are atomic with respect to a single queue-wide lock,
// always acquired after any device mutex and released before any blocking
// I/O (spec §5's deadlock-avoidance ordering).
type PriorityQueue struct {
	mu       sync.Mutex
	h        entryHeap
	registry *Registry
}

// NewPriorityQueue builds an empty queue backed by the given registry,
// used to validate generation and existence on pop.
func NewPriorityQueue(registry *Registry) *PriorityQueue {
	return &PriorityQueue{registry: registry}
}

// Push inserts an entry for the device's current due time and generation.
func (q *PriorityQueue) Push(deviceID int64, dueAt int64, generation uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	heap.Push(&q.h, entry{DueAt: dueAt, DeviceID: deviceID, Generation: generation})
	metrics.HeapDepth.Set(float64(q.h.Len()))
}

// PopDue repeatedly pops the minimum entry, discarding ones whose
// generation no longer matches the device's current generation or whose
// device has since disappeared, and returns the first live one.
func (q *PriorityQueue) PopDue() (entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.h.Len() > 0 {
		e := heap.Pop(&q.h).(entry)

		d, ok := q.registry.Get(e.DeviceID)
		if !ok {
			continue
		}

		if d.Schedule.Generation.Load() != e.Generation {
			continue
		}
		metrics.HeapDepth.Set(float64(q.h.Len()))
		return e, true
	}
	metrics.HeapDepth.Set(float64(q.h.Len()))
	return entry{}, false
}

// Len reports the current heap size, for metrics/observability only.
func (q *PriorityQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.h.Len()
}
