package list

// List represents a doubly linked list whose elements live in an Arena.
//
// Elements are addressed by handles which stay valid until removal.
// A zero List must be initialized with Init before use.
type List[T any] struct {
	arena *Arena[T]
	head  Handle
	tail  Handle
	len   int
}

// NewList creates new List instance storing its elements in the given arena.
func NewList[T any](arena *Arena[T]) *List[T] {
	return new(List[T]).Init(arena)
}

// Init binds list l to the arena and makes it empty. Elements of l are not released.
func (l *List[T]) Init(arena *Arena[T]) *List[T] {
	l.arena = arena
	l.head, l.tail, l.len = Nil, Nil, 0
	return l
}

// Arena returns the arena the list elements are stored in.
func (l *List[T]) Arena() *Arena[T] {
	return l.arena
}

// Front returns the first element of list l or Nil if the list is empty.
func (l *List[T]) Front() Handle {
	return l.head
}

// Back returns the last element of list l or Nil if the list is empty.
func (l *List[T]) Back() Handle {
	return l.tail
}

// Len returns the number of elements of list l.
func (l *List[T]) Len() int {
	return l.len
}

// Contains returns true if h is an element of list l.
func (l *List[T]) Contains(h Handle) bool {
	return h != Nil && int(h) < len(l.arena.elements) && l.arena.elements[h].list == l
}

// Value returns the value of the element h or nil if h is not an element of list l.
func (l *List[T]) Value(h Handle) *T {
	if !l.Contains(h) {
		return nil
	}
	return &l.arena.elements[h].value
}

// Next returns the element after h or Nil.
func (l *List[T]) Next(h Handle) Handle {
	if !l.Contains(h) {
		return Nil
	}
	return l.arena.elements[h].next
}

// Prev returns the element before h or Nil.
func (l *List[T]) Prev(h Handle) Handle {
	if !l.Contains(h) {
		return Nil
	}
	return l.arena.elements[h].prev
}

// PushBack inserts a new element with value v at the back of list l and returns its handle.
func (l *List[T]) PushBack(v T) (Handle, error) {
	h, err := l.arena.alloc(v, l)
	if err != nil {
		return Nil, err
	}
	e := &l.arena.elements[h]
	e.prev = l.tail
	if l.tail != Nil {
		l.arena.elements[l.tail].next = h
	} else {
		l.head = h
	}
	l.tail = h
	l.len++
	return h, nil
}

// PushFront inserts a new element with value v at the front of list l and returns its handle.
func (l *List[T]) PushFront(v T) (Handle, error) {
	h, err := l.arena.alloc(v, l)
	if err != nil {
		return Nil, err
	}
	e := &l.arena.elements[h]
	e.next = l.head
	if l.head != Nil {
		l.arena.elements[l.head].prev = h
	} else {
		l.tail = h
	}
	l.head = h
	l.len++
	return h, nil
}

// Remove removes h from l if h is an element of list l and releases its slot.
func (l *List[T]) Remove(h Handle) (v T, err error) {
	if h == Nil {
		err = ErrorListElementIsNil
		return
	}
	if !l.Contains(h) {
		err = ErrorListElementIsNotInTheList
		return
	}
	e := &l.arena.elements[h]
	v = e.value
	if e.prev != Nil {
		l.arena.elements[e.prev].next = e.next
	} else {
		l.head = e.next
	}
	if e.next != Nil {
		l.arena.elements[e.next].prev = e.prev
	} else {
		l.tail = e.prev
	}
	l.len--
	l.arena.release(h)
	return
}

// Clean cleans list l by removing all existing elements.
func (l *List[T]) Clean() {
	for h := l.head; h != Nil; {
		next := l.arena.elements[h].next
		l.arena.release(h)
		h = next
	}
	l.head, l.tail, l.len = Nil, Nil, 0
}

// Iterator returns new iterator over list l.
func (l *List[T]) Iterator() Iterator[T] {
	return NewIterator(l)
}
