// SPDX-License-Identifier: EPL-2.0

package engine

import "sync/atomic"

type propsNode[T any] struct {
	props T
	next  atomic.Pointer[propsNode[T]]
}

// exchange hands property snapshots from control goroutines to the mixer.
// Producers fill a node taken from the freelist and swap it into pending;
// the mixer swaps pending out, copies it and returns the node. Only one
// producer may pop at a time (the owning entity's mutex), which keeps the
// freelist free of ABA.
type exchange[T any] struct {
	pending atomic.Pointer[propsNode[T]]
	free    atomic.Pointer[propsNode[T]]
	reset   func(*T)
}

func newExchange[T any](seed int, reset func(*T)) *exchange[T] {
	e := &exchange[T]{reset: reset}
	for range seed {
		e.release(&propsNode[T]{})
	}

	return e
}

// release puts n back on the freelist. Safe from any goroutine.
func (e *exchange[T]) release(n *propsNode[T]) {
	if e.reset != nil {
		e.reset(&n.props)
	}
	for {
		head := e.free.Load()
		n.next.Store(head)
		if e.free.CompareAndSwap(head, n) {
			return
		}
	}
}

func (e *exchange[T]) pop() *propsNode[T] {
	for {
		head := e.free.Load()
		if head == nil {
			return nil
		}
		if e.free.CompareAndSwap(head, head.next.Load()) {
			head.next.Store(nil)
			return head
		}
	}
}

// publish fills a node and makes it the pending snapshot, recycling any
// snapshot the mixer has not taken yet. Without allocate it gives up when
// the freelist is empty. The caller holds the owning entity's lock.
func (e *exchange[T]) publish(fill func(*T), allocate bool) bool {
	n := e.pop()
	if n == nil {
		if !allocate {
			return false
		}
		n = &propsNode[T]{}
	}
	fill(&n.props)
	if old := e.pending.Swap(n); old != nil {
		e.release(old)
	}

	return true
}

// take removes the pending snapshot, if any.
func (e *exchange[T]) take() *propsNode[T] {
	return e.pending.Swap(nil)
}

func (e *exchange[T]) freeCount() int {
	n := 0
	for p := e.free.Load(); p != nil; p = p.next.Load() {
		n++
	}

	return n
}
