package list

// Iterator with ability to validate himself when current element is removed from list.
type Iterator[T any] struct {
	list    *List[T]
	prev    Handle
	current Handle
	next    Handle
	started bool
}

// NewIterator creates iterator. Iterator is not valid until Next() call.
func NewIterator[T any](list *List[T]) Iterator[T] {
	return Iterator[T]{
		list: list,
	}
}

// Current returns the handle of the current element.
func (it *Iterator[T]) Current() Handle {
	return it.current
}

// Value returns the value of the current element or nil.
func (it *Iterator[T]) Value() *T {
	return it.list.Value(it.current)
}

func (it *Iterator[T]) Next() bool {
	switch {
	// 1. start iteration
	case !it.started:
		it.started = true
		it.current = it.list.Front()
	// 2. first element is removed
	case it.prev == Nil && it.current != it.list.Front():
		it.current = it.list.Front()
	// 3. middle element is removed
	case it.prev != Nil && it.list.Next(it.prev) != it.current:
		it.current = it.list.Next(it.prev)
	// 4. no changes in list
	default:
		it.prev = it.current
		it.current = it.next
	}

	if it.current == Nil {
		return false
	}
	it.next = it.list.Next(it.current)
	return true
}

func (it *Iterator[T]) Valid() bool {
	return it.current != Nil
}
