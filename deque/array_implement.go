package deque

// ArrDeque keeps its elements in one fixed array used as a ring.
type ArrDeque[T any] struct {
	arr   []T
	start int
	size  int
}

var _ Deque[int] = (*ArrDeque[int])(nil)

func NewArrDeque[T any](capacity int) *ArrDeque[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &ArrDeque[T]{arr: make([]T, capacity)}
}

func (ad *ArrDeque[T]) Size() int {
	return ad.size
}

func (ad *ArrDeque[T]) Capacity() int {
	return len(ad.arr)
}

// pos maps a head-relative index to the array.
func (ad *ArrDeque[T]) pos(i int) int {
	return (ad.start + i) % len(ad.arr)
}

func (ad *ArrDeque[T]) Get(i int) T {
	if i < 0 || i >= ad.size {
		panic("index out of length")
	}
	return ad.arr[ad.pos(i)]
}

func (ad *ArrDeque[T]) Set(i int, v T) {
	if i < 0 || i >= ad.size {
		panic("index out of length")
	}
	ad.arr[ad.pos(i)] = v
}

func (ad *ArrDeque[T]) Traverse(f func(i int, item *T)) {
	for i := 0; i < ad.size; i++ {
		f(i, &ad.arr[ad.pos(i)])
	}
}

func (ad *ArrDeque[T]) AddLast(v T) bool {
	if ad.IsFull() {
		return false
	}
	ad.arr[ad.pos(ad.size)] = v
	ad.size++
	return true
}

func (ad *ArrDeque[T]) RemoveLast() (T, bool) {
	var zero T
	if ad.IsEmpty() {
		return zero, false
	}
	p := ad.pos(ad.size - 1)
	v := ad.arr[p]
	ad.arr[p] = zero
	ad.size--
	return v, true
}

func (ad *ArrDeque[T]) AddFirst(v T) bool {
	if ad.IsFull() {
		return false
	}
	ad.start = (ad.start - 1 + len(ad.arr)) % len(ad.arr)
	ad.arr[ad.start] = v
	ad.size++
	return true
}

func (ad *ArrDeque[T]) RemoveFirst() (T, bool) {
	var zero T
	if ad.IsEmpty() {
		return zero, false
	}
	v := ad.arr[ad.start]
	ad.arr[ad.start] = zero
	ad.start = ad.pos(1)
	ad.size--
	return v, true
}

// Push appends at the tail, dropping the head first when full.
func (ad *ArrDeque[T]) Push(v T) {
	if ad.IsFull() {
		ad.RemoveFirst()
	}
	ad.AddLast(v)
}

// Slice copies the elements from head to tail.
func (ad *ArrDeque[T]) Slice() []T {
	res := make([]T, 0, ad.size)
	ad.Traverse(func(_ int, item *T) {
		res = append(res, *item)
	})
	return res
}

func (ad *ArrDeque[T]) IsFull() bool {
	return ad.size == len(ad.arr)
}

func (ad *ArrDeque[T]) IsEmpty() bool {
	return ad.size == 0
}
