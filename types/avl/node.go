package avl

// Handle addresses a node stored in the tree arena.
// A handle stays valid and keeps addressing the same key until the key is removed.
type Handle uint32

// Nil is the handle of no node.
const Nil Handle = 0

type node[K, V any] struct {
	key    K
	value  V
	left   Handle
	right  Handle
	height int32 // 0 for Nil, 1 for a leaf
	used   bool
}

func (t *Tree[K, V]) alloc(key K, value V) (Handle, error) {
	h := t.free
	if h == Nil {
		return Nil, ErrorTreeFull
	}
	n := &t.nodes[h]
	t.free = n.right
	*n = node[K, V]{key: key, value: value, height: 1, used: true}
	return h, nil
}

func (t *Tree[K, V]) release(h Handle) {
	t.nodes[h] = node[K, V]{right: t.free}
	t.free = h
}

func (t *Tree[K, V]) find(key K) Handle {
	for h := t.root; h != Nil; {
		n := &t.nodes[h]
		switch cmp := t.compare(key, n.key); {
		case cmp < 0:
			h = n.left
		case cmp > 0:
			h = n.right
		default:
			return h
		}
	}
	return Nil
}

// insert links the allocated node h into the subtree rooted at root and returns the new subtree root.
// The key of h must not be present in the subtree.
func (t *Tree[K, V]) insert(root, h Handle) Handle {
	if root == Nil {
		return h
	}
	n := &t.nodes[root]
	if t.compare(t.nodes[h].key, n.key) < 0 {
		n.left = t.insert(n.left, h)
	} else {
		n.right = t.insert(n.right, h)
	}
	return t.rebalance(root)
}

// remove unlinks the node with the given key from the subtree rooted at root.
// It returns the new subtree root and the unlinked node or Nil if the key is absent.
func (t *Tree[K, V]) remove(root Handle, key K) (Handle, Handle) {
	if root == Nil {
		return Nil, Nil
	}
	var removed Handle
	n := &t.nodes[root]
	switch cmp := t.compare(key, n.key); {
	case cmp < 0:
		n.left, removed = t.remove(n.left, key)
	case cmp > 0:
		n.right, removed = t.remove(n.right, key)
	default:
		if n.left == Nil {
			return n.right, root
		}
		if n.right == Nil {
			return n.left, root
		}
		// Relink the in-order successor in place of the removed node,
		// so handles of the remaining keys are not moved.
		right, successor := t.popMostLeft(n.right)
		s := &t.nodes[successor]
		s.left, s.right = n.left, right
		return t.rebalance(successor), root
	}
	if removed == Nil {
		return root, Nil
	}
	return t.rebalance(root), removed
}

func (t *Tree[K, V]) popMostLeft(root Handle) (Handle, Handle) {
	n := &t.nodes[root]
	if n.left == Nil {
		return n.right, root
	}
	var popped Handle
	n.left, popped = t.popMostLeft(n.left)
	return t.rebalance(root), popped
}

func (t *Tree[K, V]) mostLeftOf(h Handle) Handle {
	if h == Nil {
		return Nil
	}
	for t.nodes[h].left != Nil {
		h = t.nodes[h].left
	}
	return h
}

func (t *Tree[K, V]) mostRightOf(h Handle) Handle {
	if h == Nil {
		return Nil
	}
	for t.nodes[h].right != Nil {
		h = t.nodes[h].right
	}
	return h
}

func (t *Tree[K, V]) balanceFactor(h Handle) int32 {
	n := &t.nodes[h]
	return t.nodes[n.left].height - t.nodes[n.right].height
}

func (t *Tree[K, V]) updateHeight(h Handle) {
	n := &t.nodes[h]
	n.height = 1 + max(t.nodes[n.left].height, t.nodes[n.right].height)
}

func (t *Tree[K, V]) rebalance(h Handle) Handle {
	t.updateHeight(h)
	n := &t.nodes[h]
	switch bf := t.balanceFactor(h); {
	case bf > 1:
		if t.balanceFactor(n.left) < 0 {
			n.left = t.rotateLeft(n.left)
		}
		return t.rotateRight(h)
	case bf < -1:
		if t.balanceFactor(n.right) > 0 {
			n.right = t.rotateRight(n.right)
		}
		return t.rotateLeft(h)
	}
	return h
}

func (t *Tree[K, V]) rotateLeft(h Handle) Handle {
	n := &t.nodes[h]
	r := n.right
	n.right = t.nodes[r].left
	t.nodes[r].left = h
	t.updateHeight(h)
	t.updateHeight(r)
	return r
}

func (t *Tree[K, V]) rotateRight(h Handle) Handle {
	n := &t.nodes[h]
	l := n.left
	n.left = t.nodes[l].right
	t.nodes[l].right = h
	t.updateHeight(h)
	t.updateHeight(l)
	return l
}

func (t *Tree[K, V]) iteratePreOrder(h Handle, f func(key K, value *V) bool) bool {
	if h == Nil {
		return false
	}
	n := &t.nodes[h]
	return f(n.key, &n.value) || t.iteratePreOrder(n.left, f) || t.iteratePreOrder(n.right, f)
}

func (t *Tree[K, V]) iterateInOrder(h Handle, f func(key K, value *V) bool) bool {
	if h == Nil {
		return false
	}
	n := &t.nodes[h]
	return t.iterateInOrder(n.left, f) || f(n.key, &n.value) || t.iterateInOrder(n.right, f)
}

func (t *Tree[K, V]) iteratePostOrder(h Handle, f func(key K, value *V) bool) bool {
	if h == Nil {
		return false
	}
	n := &t.nodes[h]
	return t.iteratePostOrder(n.left, f) || t.iteratePostOrder(n.right, f) || f(n.key, &n.value)
}
