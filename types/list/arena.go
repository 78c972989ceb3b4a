package list

// Handle addresses an element stored in an Arena.
type Handle uint32

// Nil is the handle of no element.
const Nil Handle = 0

type element[T any] struct {
	value T
	prev  Handle
	next  Handle
	list  *List[T] // owning list, nil while the slot is free
}

// Arena is a fixed-capacity store of list elements shared by any number of lists.
//
// All element slots are allocated at construction and recycled through a free chain,
// so pushing and removing never allocates.
type Arena[T any] struct {
	elements []element[T] // elements[0] is reserved for Nil
	free     Handle       // free chain linked through element.next
	used     int
}

// NewArena creates new Arena instance able to hold capacity elements.
func NewArena[T any](capacity int) *Arena[T] {
	if capacity < 0 {
		capacity = 0
	}
	a := &Arena[T]{
		elements: make([]element[T], capacity+1),
	}
	for i := capacity; i > 0; i-- {
		a.elements[i].next = a.free
		a.free = Handle(i)
	}
	return a
}

// Len returns the number of elements in use.
func (a *Arena[T]) Len() int {
	return a.used
}

// Cap returns the maximum number of elements.
func (a *Arena[T]) Cap() int {
	return len(a.elements) - 1
}

// Full returns true if no free element is left.
func (a *Arena[T]) Full() bool {
	return a.free == Nil
}

// Get returns the value stored in the element h or nil if h does not address an element in use.
// The pointer stays valid until the element is removed from its list.
func (a *Arena[T]) Get(h Handle) *T {
	if h == Nil || int(h) >= len(a.elements) || a.elements[h].list == nil {
		return nil
	}
	return &a.elements[h].value
}

func (a *Arena[T]) alloc(v T, l *List[T]) (Handle, error) {
	h := a.free
	if h == Nil {
		return Nil, ErrorArenaFull
	}
	e := &a.elements[h]
	a.free = e.next
	e.value = v
	e.prev, e.next, e.list = Nil, Nil, l
	a.used++
	return h, nil
}

func (a *Arena[T]) release(h Handle) {
	var zero T
	e := &a.elements[h]
	e.value = zero
	e.prev, e.list = Nil, nil
	e.next = a.free
	a.free = h
	a.used--
}
