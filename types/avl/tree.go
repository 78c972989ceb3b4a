package avl

import (
	"gopkg.in/typ.v4"
)

// Tree is a self-balancing AVL tree with nodes stored in a fixed-capacity arena.
//
// Node identity is stable: removing a key never moves other keys to different handles,
// so handles and value pointers of the remaining keys stay valid.
// The most left and most right nodes are cached.
type Tree[K, V any] struct {
	compare   func(a, b K) int
	nodes     []node[K, V] // nodes[0] is reserved for Nil
	free      Handle       // free chain linked through node.right
	root      Handle
	mostLeft  Handle
	mostRight Handle
	size      int
}

// NewOrderedTree creates new Tree instance for ordered keys.
func NewOrderedTree[K typ.Ordered, V any](capacity int) *Tree[K, V] {
	return NewTree[K, V](typ.Compare[K], capacity)
}

// NewTree creates new Tree instance able to hold capacity nodes ordered by compare.
func NewTree[K, V any](compare func(a, b K) int, capacity int) *Tree[K, V] {
	if capacity < 0 {
		capacity = 0
	}
	t := &Tree[K, V]{
		compare: compare,
		nodes:   make([]node[K, V], capacity+1),
	}
	t.resetFreeChain()
	return t
}

// Size returns the number of keys in the tree.
func (t *Tree[K, V]) Size() int {
	return t.size
}

// Cap returns the maximum number of keys.
func (t *Tree[K, V]) Cap() int {
	return len(t.nodes) - 1
}

// Full returns true if no more keys can be added.
func (t *Tree[K, V]) Full() bool {
	return t.free == Nil
}

// Contains returns true if the tree contains the key.
func (t *Tree[K, V]) Contains(key K) bool {
	return t.find(key) != Nil
}

// Find returns the node with the key or Nil.
func (t *Tree[K, V]) Find(key K) Handle {
	return t.find(key)
}

// Add adds a new key to the tree and returns its node.
func (t *Tree[K, V]) Add(key K, value V) (Handle, error) {
	if t.find(key) != Nil {
		return Nil, ErrorTreeNodeDuplicate
	}
	h, err := t.alloc(key, value)
	if err != nil {
		return Nil, err
	}
	t.root = t.insert(t.root, h)
	if t.mostLeft == Nil || t.compare(key, t.nodes[t.mostLeft].key) < 0 {
		t.mostLeft = h
	}
	if t.mostRight == Nil || t.compare(key, t.nodes[t.mostRight].key) > 0 {
		t.mostRight = h
	}
	t.size++
	return h, nil
}

// Remove removes the key from the tree and returns its value.
func (t *Tree[K, V]) Remove(key K) (value V, err error) {
	root, removed := t.remove(t.root, key)
	if removed == Nil {
		err = ErrorTreeNodeNotFound
		return
	}
	t.root = root
	value = t.nodes[removed].value
	if removed == t.mostLeft {
		t.mostLeft = t.mostLeftOf(t.root)
	}
	if removed == t.mostRight {
		t.mostRight = t.mostRightOf(t.root)
	}
	t.release(removed)
	t.size--
	return
}

// MostLeft returns the node with the smallest key or Nil if the tree is empty.
func (t *Tree[K, V]) MostLeft() Handle {
	return t.mostLeft
}

// MostRight returns the node with the biggest key or Nil if the tree is empty.
func (t *Tree[K, V]) MostRight() Handle {
	return t.mostRight
}

// Key returns the key of the node h.
func (t *Tree[K, V]) Key(h Handle) K {
	return t.nodes[h].key
}

// Value returns the value of the node h or nil if h does not address a node in use.
// The pointer stays valid until the key is removed.
func (t *Tree[K, V]) Value(h Handle) *V {
	if h == Nil || int(h) >= len(t.nodes) || !t.nodes[h].used {
		return nil
	}
	return &t.nodes[h].value
}

// Clear removes all keys from the tree.
func (t *Tree[K, V]) Clear() {
	clear(t.nodes)
	t.resetFreeChain()
	t.root, t.mostLeft, t.mostRight = Nil, Nil, Nil
	t.size = 0
}

// IteratePreOrder visits the keys in pre-order until f returns true.
func (t *Tree[K, V]) IteratePreOrder(f func(key K, value *V) bool) {
	t.iteratePreOrder(t.root, f)
}

// IterateInOrder visits the keys in ascending order until f returns true.
func (t *Tree[K, V]) IterateInOrder(f func(key K, value *V) bool) {
	t.iterateInOrder(t.root, f)
}

// IteratePostOrder visits the keys in post-order until f returns true.
func (t *Tree[K, V]) IteratePostOrder(f func(key K, value *V) bool) {
	t.iteratePostOrder(t.root, f)
}

func (t *Tree[K, V]) resetFreeChain() {
	t.free = Nil
	for i := len(t.nodes) - 1; i > 0; i-- {
		t.nodes[i].right = t.free
		t.free = Handle(i)
	}
}
