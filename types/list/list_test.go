package list

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func collect(l *List[int]) []int {
	result := []int{}
	for h := l.Front(); h != Nil; h = l.Next(h) {
		result = append(result, *l.Value(h))
	}
	return result
}

func collectBackward(l *List[int]) []int {
	result := []int{}
	for h := l.Back(); h != Nil; h = l.Prev(h) {
		result = append(result, *l.Value(h))
	}
	return result
}

func TestList(t *testing.T) {
	t.Run("push and remove", func(t *testing.T) {
		l := NewList(NewArena[int](8))
		h2, err := l.PushBack(2)
		require.NoError(t, err)
		_, err = l.PushBack(3)
		require.NoError(t, err)
		h1, err := l.PushFront(1)
		require.NoError(t, err)
		require.Equal(t, []int{1, 2, 3}, collect(l))
		require.Equal(t, []int{3, 2, 1}, collectBackward(l))
		require.Equal(t, h1, l.Front())

		v, err := l.Remove(h2)
		require.NoError(t, err)
		require.Equal(t, 2, v)
		require.Equal(t, []int{1, 3}, collect(l))
		require.Equal(t, []int{3, 1}, collectBackward(l))
		require.Nil(t, l.Value(h2))

		_, err = l.Remove(h2)
		require.ErrorIs(t, err, ErrorListElementIsNotInTheList)
		_, err = l.Remove(Nil)
		require.ErrorIs(t, err, ErrorListElementIsNil)
	})

	t.Run("shared arena", func(t *testing.T) {
		arena := NewArena[int](4)
		a := NewList(arena)
		b := NewList(arena)
		ha, err := a.PushBack(1)
		require.NoError(t, err)
		hb, err := b.PushBack(2)
		require.NoError(t, err)
		require.Equal(t, 2, arena.Len())

		require.True(t, a.Contains(ha))
		require.False(t, a.Contains(hb))
		_, err = a.Remove(hb)
		require.ErrorIs(t, err, ErrorListElementIsNotInTheList)
		require.Equal(t, 1, *arena.Get(ha))
		require.Equal(t, 2, *arena.Get(hb))
	})

	t.Run("arena exhaustion and reuse", func(t *testing.T) {
		arena := NewArena[int](2)
		l := NewList(arena)
		h1, err := l.PushBack(1)
		require.NoError(t, err)
		_, err = l.PushBack(2)
		require.NoError(t, err)
		require.True(t, arena.Full())
		_, err = l.PushBack(3)
		require.ErrorIs(t, err, ErrorArenaFull)
		require.Equal(t, []int{1, 2}, collect(l))

		_, err = l.Remove(h1)
		require.NoError(t, err)
		h3, err := l.PushBack(3)
		require.NoError(t, err)
		require.Equal(t, h1, h3)
		require.Equal(t, []int{2, 3}, collect(l))
		require.Equal(t, 2, arena.Cap())
	})

	t.Run("zero capacity", func(t *testing.T) {
		l := NewList(NewArena[int](0))
		_, err := l.PushFront(1)
		require.ErrorIs(t, err, ErrorArenaFull)
		require.Nil(t, l.Arena().Get(Nil))
	})
}
