// SPDX-License-Identifier: EPL-2.0

package engine

import "testing"

func TestExchange_PublishTakeRelease(t *testing.T) {
	t.Parallel()

	e := newExchange[int](2, nil)
	if got := e.freeCount(); got != 2 {
		t.Fatalf("seeded %d nodes, want 2", got)
	}

	if !e.publish(func(p *int) { *p = 7 }, false) {
		t.Fatal("publish from freelist failed")
	}
	if !e.publish(func(p *int) { *p = 8 }, false) {
		t.Fatal("second publish failed")
	}
	// The first snapshot was superseded and recycled.
	if got := e.freeCount(); got != 1 {
		t.Errorf("free nodes = %d, want 1", got)
	}

	n := e.take()
	if n == nil || n.props != 8 {
		t.Fatalf("take = %v, want latest snapshot 8", n)
	}
	if e.take() != nil {
		t.Error("second take should be empty")
	}
	e.release(n)
	if got := e.freeCount(); got != 2 {
		t.Errorf("free nodes after release = %d, want 2", got)
	}
}

func TestExchange_NoAllocateFailsWhenEmpty(t *testing.T) {
	t.Parallel()

	e := newExchange[int](0, nil)
	if e.publish(func(p *int) { *p = 1 }, false) {
		t.Fatal("publish without nodes or allocation should fail")
	}
	if e.take() != nil {
		t.Fatal("nothing should be pending")
	}
	if !e.publish(func(p *int) { *p = 1 }, true) {
		t.Fatal("allocating publish failed")
	}
	if n := e.take(); n == nil || n.props != 1 {
		t.Fatalf("take = %v", n)
	}
}

func TestExchange_ResetOnRelease(t *testing.T) {
	t.Parallel()

	type snap struct{ ref *int }
	e := newExchange[snap](0, func(p *snap) { p.ref = nil })
	v := 3
	e.publish(func(p *snap) { p.ref = &v }, true)
	n := e.take()
	e.release(n)
	if n.props.ref != nil {
		t.Error("reset hook did not run on release")
	}
}
