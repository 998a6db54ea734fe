// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package addon

import "sync"

// QueuedAction is a pending action for one path.
type QueuedAction struct {
	Path     string
	Action   Action
	Priority Priority

	// deferred runs after a system action that displaced it.
	deferred *QueuedAction
	// pass is the pass the action was queued during; zero outside a pass.
	pass uint64
}

// Queue holds at most one regular and one system action per path, in
// arrival order. It has its own lock so producers never need the
// registry lock.
//
// System actions queued while a pass is running are held until the next
// pass, so a module is never freed by the pass that started its unload.
type Queue struct {
	mu     sync.Mutex
	items  []*QueuedAction
	wake   chan struct{}
	pass   uint64
	inPass bool
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Enqueue records action for path and reports whether it was stored.
//
// A newer request replaces the pending one unless the pending one is
// manual and the newer one automatic. System actions are never replaced;
// a regular request arriving while one is pending runs right after it.
func (q *Queue) Enqueue(path string, action Action, prio Priority) bool {
	q.mu.Lock()
	stored := q.enqueueLocked(path, action, prio)
	q.mu.Unlock()

	if stored {
		select {
		case q.wake <- struct{}{}:
		default:
		}
	}
	return stored
}

func (q *Queue) enqueueLocked(path string, action Action, prio Priority) bool {
	stamp := uint64(0)
	if q.inPass {
		stamp = q.pass
	}
	next := &QueuedAction{Path: path, Action: action, Priority: prio, pass: stamp}
	for i, cur := range q.items {
		if cur.Path != path {
			continue
		}
		if cur.Priority == PrioritySystem {
			if prio == PrioritySystem {
				cur.Action = action
				cur.pass = stamp
				return true
			}
			if cur.deferred == nil || replaces(cur.deferred.Priority, prio) {
				cur.deferred = next
				return true
			}
			return false
		}
		if prio == PrioritySystem {
			next.deferred = cur
			q.items[i] = next
			return true
		}
		if !replaces(cur.Priority, prio) {
			return false
		}
		cur.Action = action
		cur.Priority = prio
		return true
	}
	q.items = append(q.items, next)
	return true
}

// replaces reports whether a request of priority next may overwrite a
// pending request of priority cur.
func replaces(cur, next Priority) bool {
	return !(cur == PriorityManual && next == PriorityAutomatic)
}

// BeginPass starts a dispatcher pass. System actions queued from now on
// are held until EndPass.
func (q *Queue) BeginPass() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pass++
	q.inPass = true
}

// EndPass ends the current pass. Held actions become runnable and the
// dispatcher is woken if any are waiting.
func (q *Queue) EndPass() {
	q.mu.Lock()
	q.inPass = false
	waiting := len(q.items) > 0
	q.mu.Unlock()

	if waiting {
		select {
		case q.wake <- struct{}{}:
		default:
		}
	}
}

// held reports whether item must wait for a later pass.
func (q *Queue) held(item *QueuedAction) bool {
	return q.inPass && item.Priority == PrioritySystem && item.pass == q.pass
}

// Pop removes and returns the oldest runnable action. A regular action
// deferred behind it is queued at the back.
func (q *Queue) Pop() (QueuedAction, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, head := range q.items {
		if q.held(head) {
			continue
		}
		q.items = append(q.items[:i:i], q.items[i+1:]...)
		if head.deferred != nil {
			q.items = append(q.items, head.deferred)
			head.deferred = nil
		}
		return *head, true
	}
	return QueuedAction{}, false
}

// Pending returns the action waiting for path.
func (q *Queue) Pending(path string) (QueuedAction, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, item := range q.items {
		if item.Path == path {
			return QueuedAction{Path: item.Path, Action: item.Action, Priority: item.Priority}, true
		}
	}
	return QueuedAction{}, false
}

// Len returns the number of queued entries, deferred ones excluded.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Ready is signalled after an action is stored.
func (q *Queue) Ready() <-chan struct{} {
	return q.wake
}
