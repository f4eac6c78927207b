package deque

// Deque is a bounded double-ended queue.
type Deque[T any] interface {
	Size() int

	// Get returns the element at index i counted from the head.
	Get(i int) T

	Set(i int, v T)

	// Traverse visits the elements from head to tail.
	Traverse(f func(i int, item *T))

	// AddLast appends at the tail. It reports false when the deque is full.
	AddLast(v T) bool

	RemoveLast() (T, bool)

	// AddFirst prepends at the head. It reports false when the deque is full.
	AddFirst(v T) bool

	RemoveFirst() (T, bool)

	IsFull() bool

	IsEmpty() bool
}
