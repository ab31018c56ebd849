package scheduler

import "container/heap"

// alarmHeap implements container/heap.Interface for entries,
// sorted by When (earliest first, min-heap).
type alarmHeap []entry

func (h alarmHeap) Len() int { return len(h) }
func (h alarmHeap) Less(i, j int) bool {
	if h[i].When.Equal(h[j].When) {
		return h[i].seq < h[j].seq
	}
	return h[i].When.Before(h[j].When)
}
func (h alarmHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *alarmHeap) Push(x any) {
	*h = append(*h, x.(entry))
}

func (h *alarmHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// heapPush adds an entry to the heap, maintaining the heap invariant.
func heapPush(h *alarmHeap, e entry) {
	heap.Push(h, e)
}

// heapPop removes and returns the entry with the earliest When.
// Panics if the heap is empty.
func heapPop(h *alarmHeap) entry {
	return heap.Pop(h).(entry)
}

// heapRemoveByName removes every entry with the given name and reports
// whether any was found.
func heapRemoveByName(h *alarmHeap, name string) bool {
	found := false
	for {
		idx := -1
		for i, e := range *h {
			if e.Name == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return found
		}
		heap.Remove(h, idx)
		found = true
	}
}
