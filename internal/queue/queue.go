// Package queue provides a simple generic FIFO queue.
//
// The queue is not safe for concurrent use; callers are expected to guard it
// with their own critical section.
package queue

// Queue is a slice-backed FIFO queue.
type Queue[T any] struct {
	items []T
}

// New creates a Queue with the given preallocated capacity.
func New[T any](prealloc int) *Queue[T] {
	return &Queue[T]{items: make([]T, 0, prealloc)}
}

// Enqueue adds an item to the tail of the queue.
func (q *Queue[T]) Enqueue(item T) {
	q.items = append(q.items, item)
}

// Dequeue removes and returns the item at the head of the queue.
// It returns the zero value and false if the queue is empty.
func (q *Queue[T]) Dequeue() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return item, true
}

// Peek returns the item at the head of the queue without removing it.
func (q *Queue[T]) Peek() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	return q.items[0], true
}

// Remove removes the first item for which match returns true, preserving the
// order of the remaining items. It returns true if an item was removed.
func (q *Queue[T]) Remove(match func(T) bool) bool {
	for i, item := range q.items {
		if match(item) {
			var zero T
			q.items[i] = zero
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// Scan calls visit for every queued item in FIFO order. Items for which visit
// returns true are removed from the queue; the rest keep their positions.
func (q *Queue[T]) Scan(visit func(T) bool) {
	kept := q.items[:0]
	for _, item := range q.items {
		if !visit(item) {
			kept = append(kept, item)
		}
	}
	// Zero the tail so removed items don't pin memory.
	var zero T
	for i := len(kept); i < len(q.items); i++ {
		q.items[i] = zero
	}
	q.items = kept
}

// Reset resets the queue to an empty state.
func (q *Queue[T]) Reset() {
	var zero T
	for i := range q.items {
		q.items[i] = zero
	}
	q.items = q.items[:0]
}

// IsEmpty returns true if the queue is empty, false otherwise.
func (q *Queue[T]) IsEmpty() bool {
	return len(q.items) == 0
}

// Length returns the number of items in the queue.
func (q *Queue[T]) Length() int {
	return len(q.items)
}
