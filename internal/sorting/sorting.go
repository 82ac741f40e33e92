// Package sorting provides comparator-driven merge sort and quick sort.
//
// A Comparator returns a negative number when a sorts before b, zero when they
// are equal and a positive number otherwise. Descending order is expressed by
// wrapping a comparator with Reverse rather than by a flag on the sort.
package sorting

import (
	"github.com/harvesthub/catalog-engine/internal/errors"
)

// Comparator is a three-way comparison over T.
type Comparator[T any] func(a, b T) int

// Reverse flips the order of cmp.
func Reverse[T any](cmp Comparator[T]) Comparator[T] {
	return func(a, b T) int { return cmp(b, a) }
}

// Chain compares with each comparator in turn until one reports a difference.
func Chain[T any](cmps ...Comparator[T]) Comparator[T] {
	return func(a, b T) int {
		for _, c := range cmps {
			if r := c(a, b); r != 0 {
				return r
			}
		}
		return 0
	}
}

func checkComparator[T any](cmp Comparator[T]) error {
	if cmp == nil {
		return errors.NewValidationError("comparator", "must not be nil")
	}
	return nil
}

// MergeSort returns a stably sorted copy of items. The input is never modified.
func MergeSort[T any](items []T, cmp Comparator[T]) ([]T, error) {
	if err := checkComparator(cmp); err != nil {
		return nil, err
	}

	out := make([]T, len(items))
	copy(out, items)
	if len(out) < 2 {
		return out, nil
	}

	buf := make([]T, len(out))
	mergeSort(out, buf, cmp)
	return out, nil
}

func mergeSort[T any](items, buf []T, cmp Comparator[T]) {
	if len(items) < 2 {
		return
	}
	mid := len(items) / 2
	mergeSort(items[:mid], buf[:mid], cmp)
	mergeSort(items[mid:], buf[mid:], cmp)

	// already ordered halves need no merge
	if cmp(items[mid-1], items[mid]) <= 0 {
		return
	}

	copy(buf, items)
	i, j, k := 0, mid, 0
	for i < mid && j < len(items) {
		// take from the left run on ties to keep the sort stable
		if cmp(buf[j], buf[i]) < 0 {
			items[k] = buf[j]
			j++
		} else {
			items[k] = buf[i]
			i++
		}
		k++
	}
	for i < mid {
		items[k] = buf[i]
		i++
		k++
	}
	for j < len(items) {
		items[k] = buf[j]
		j++
		k++
	}
}

// QuickSort returns a sorted copy of items using an in-place partition sort on
// the copy. The relative order of equal elements is not preserved.
func QuickSort[T any](items []T, cmp Comparator[T]) ([]T, error) {
	if err := checkComparator(cmp); err != nil {
		return nil, err
	}

	out := make([]T, len(items))
	copy(out, items)
	quickSort(out, cmp)
	return out, nil
}

// QuickSortInPlace sorts items in place. Use it only on slices the caller owns.
func QuickSortInPlace[T any](items []T, cmp Comparator[T]) error {
	if err := checkComparator(cmp); err != nil {
		return err
	}
	quickSort(items, cmp)
	return nil
}

const insertionThreshold = 12

func quickSort[T any](items []T, cmp Comparator[T]) {
	for len(items) > insertionThreshold {
		p := partition(items, cmp)
		// recurse into the smaller side to bound stack depth
		if p < len(items)-p-1 {
			quickSort(items[:p], cmp)
			items = items[p+1:]
		} else {
			quickSort(items[p+1:], cmp)
			items = items[:p]
		}
	}
	insertionSort(items, cmp)
}

// partition uses a median-of-three pivot and returns its final index.
func partition[T any](items []T, cmp Comparator[T]) int {
	lo, hi := 0, len(items)-1
	mid := lo + (hi-lo)/2

	if cmp(items[mid], items[lo]) < 0 {
		items[mid], items[lo] = items[lo], items[mid]
	}
	if cmp(items[hi], items[lo]) < 0 {
		items[hi], items[lo] = items[lo], items[hi]
	}
	if cmp(items[hi], items[mid]) < 0 {
		items[hi], items[mid] = items[mid], items[hi]
	}
	// pivot parked at hi-1; items[lo] <= pivot <= items[hi]
	items[mid], items[hi-1] = items[hi-1], items[mid]
	pivot := items[hi-1]

	i, j := lo, hi-1
	for {
		for i++; cmp(items[i], pivot) < 0; i++ {
		}
		for j--; cmp(pivot, items[j]) < 0; j-- {
		}
		if i >= j {
			break
		}
		items[i], items[j] = items[j], items[i]
	}
	items[i], items[hi-1] = items[hi-1], items[i]
	return i
}

func insertionSort[T any](items []T, cmp Comparator[T]) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && cmp(items[j], items[j-1]) < 0; j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}
