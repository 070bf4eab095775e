package eventloop

import (
	"container/heap"
	"time"
)

type timer struct {
	due       time.Time
	seq       uint64
	fn        func()
	cancelled bool
}

// timerHeap implements container/heap.Interface sorted by due time, then by
// insertion sequence so timers due at the same instant run FIFO.
type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].seq < h[j].seq
	}
	return h[i].due.Before(h[j].due)
}
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) {
	*h = append(*h, x.(*timer))
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}

func heapPush(h *timerHeap, t *timer) {
	heap.Push(h, t)
}

func heapPop(h *timerHeap) *timer {
	return heap.Pop(h).(*timer)
}

// peek drops cancelled timers from the top and returns the earliest live one.
func (h *timerHeap) peek() *timer {
	for h.Len() > 0 {
		top := (*h)[0]
		if !top.cancelled {
			return top
		}
		heapPop(h)
	}
	return nil
}
