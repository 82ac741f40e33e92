package topk

import (
	"cmp"
	"errors"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/harvesthub/catalog-engine/internal/errors"
	"github.com/harvesthub/catalog-engine/internal/sorting"
)

func asc(a, b int) int { return cmp.Compare(a, b) }

func TestHeap_PushPopOrder(t *testing.T) {
	h := New[int](asc)
	for _, v := range []int{5, 1, 9, 3, 7, 1} {
		h.Push(v)
	}
	require.Equal(t, 6, h.Len())

	top, ok := h.Peek()
	require.True(t, ok)
	assert.Equal(t, 1, top)

	var got []int
	for h.Len() > 0 {
		v, _ := h.Pop()
		got = append(got, v)
	}
	assert.Equal(t, []int{1, 1, 3, 5, 7, 9}, got)

	_, ok = h.Pop()
	assert.False(t, ok)
	_, ok = h.Peek()
	assert.False(t, ok)
}

func TestHeap_MaxHeapViaReverse(t *testing.T) {
	h, err := From([]int{4, 8, 2, 6}, sorting.Reverse[int](asc))
	require.NoError(t, err)

	top, err := h.ExtractTop(2)
	require.NoError(t, err)
	assert.Equal(t, []int{8, 6}, top)
}

func TestHeap_ExtractTopDoesNotMutate(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	values := make([]int, 200)
	for i := range values {
		values[i] = r.Intn(1000)
	}

	h, err := From(values, asc)
	require.NoError(t, err)

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	first, err := h.ExtractTop(25)
	require.NoError(t, err)
	assert.Equal(t, sorted[:25], first)
	assert.Equal(t, 200, h.Len())

	second, err := h.ExtractTop(25)
	require.NoError(t, err)
	assert.Equal(t, first, second, "repeated extraction returns the same answer")

	// draining the heap still yields everything in order
	var drained []int
	for h.Len() > 0 {
		v, _ := h.Pop()
		drained = append(drained, v)
	}
	assert.Equal(t, sorted, drained)
}

func TestHeap_ExtractTopBounds(t *testing.T) {
	h, err := From([]int{3, 1, 2}, asc)
	require.NoError(t, err)

	all, err := h.ExtractTop(10)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, all, "k larger than heap returns everything")

	_, err = h.ExtractTop(0)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	empty := New[int](asc)
	got, err := empty.ExtractTop(3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSelect(t *testing.T) {
	r := rand.New(rand.NewSource(99))
	values := make([]int, 500)
	for i := range values {
		values[i] = r.Intn(50)
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	slices.Reverse(sorted)

	got, err := Select(values, 10, sorting.Reverse[int](asc))
	require.NoError(t, err)
	assert.Equal(t, sorted[:10], got)

	got, err = Select([]int{2, 1}, 5, asc)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got)

	_, err = Select(values, -1, asc)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, err = Select[int](values, 3, nil)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}
