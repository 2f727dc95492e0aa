// Implements the WaitQueue, which holds all flows waiting for the pipe.
// Flows are inserted when they contend for an occupied pipe and leave only
// by becoming the holder.

package sim

import (
	"fmt"
	"strings"
)

// WaitQueue is the ordered collection of flows waiting for the pipe.
// The queue is re-sorted by its FlowOrdering after every insertion, so the
// head is always the flow that acquires next.
//
// WaitQueue is not safe for concurrent use; the ResourceArbiter guards it
// with its own mutex.
type WaitQueue struct {
	ordering FlowOrdering
	queue    []*Flow
}

// NewWaitQueue creates an empty queue ordered by ordering.
func NewWaitQueue(ordering FlowOrdering) *WaitQueue {
	if ordering == nil {
		panic("NewWaitQueue: ordering must not be nil")
	}
	return &WaitQueue{ordering: ordering}
}

// Insert adds a flow and re-sorts the queue.
// Inserting a flow whose ID is already queued panics: a flow waits at most once.
func (wq *WaitQueue) Insert(f *Flow) {
	if f == nil {
		panic("Insert: flow must not be nil")
	}
	if wq.Contains(f.ID) {
		panic(fmt.Sprintf("Insert: flow %d is already queued", f.ID))
	}
	wq.queue = append(wq.queue, f)
	SortFlows(wq.queue, wq.ordering)
}

func (wq *WaitQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, val := range wq.queue {
		sb.WriteString(fmt.Sprint(val.ID))
		if i < len(wq.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}

// Len returns the number of flows in the queue.
func (wq *WaitQueue) Len() int {
	return len(wq.queue)
}

// Peek returns the flow at the head of the queue without removing it.
// Returns nil if the queue is empty.
func (wq *WaitQueue) Peek() *Flow {
	if len(wq.queue) == 0 {
		return nil
	}
	return wq.queue[0]
}

// Contains reports whether a flow with the given ID is queued.
func (wq *WaitQueue) Contains(id int) bool {
	for _, f := range wq.queue {
		if f.ID == id {
			return true
		}
	}
	return false
}

// IDs returns a copy of the queued flow IDs in acquisition order.
func (wq *WaitQueue) IDs() []int {
	ids := make([]int, len(wq.queue))
	for i, f := range wq.queue {
		ids[i] = f.ID
	}
	return ids
}

// Items returns the queue contents for iteration.
// The returned slice is the queue's internal storage -- callers MUST NOT
// append to, reslice or reorder it.
func (wq *WaitQueue) Items() []*Flow {
	return wq.queue
}

// PopHead removes the flow at the head of the queue.
// Returns nil if the queue is empty.
func (wq *WaitQueue) PopHead() *Flow {
	if len(wq.queue) == 0 {
		return nil
	}
	head := wq.queue[0]
	wq.queue[0] = nil
	wq.queue = wq.queue[1:]
	return head
}
