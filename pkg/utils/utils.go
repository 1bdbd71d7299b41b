// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package utils provides various generic utilities.
package utils

// GroupBy groups the given slice of items using a function which provides a
// key, based on which the items will be grouped.
func GroupBy[K comparable, V any](items []V, keyFunc func(item V) K) map[K][]V {
	result := make(map[K][]V)
	for _, item := range items {
		key := keyFunc(item)
		result[key] = append(result[key], item)
	}

	return result
}

// Chunks partitions the given slice into chunks of up to size items each. The
// last chunk may contain fewer items. A size less than 1 yields a single chunk
// containing all items.
func Chunks[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}

	if size < 1 {
		return [][]T{items}
	}

	result := make([][]T, 0, (len(items)+size-1)/size)
	for size < len(items) {
		result = append(result, items[:size])
		items = items[size:]
	}

	return append(result, items)
}
