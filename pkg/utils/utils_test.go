// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

package utils_test

import (
	"slices"
	"testing"

	"github.com/m365ops/tenantctl/pkg/utils"
)

func TestGroupBy(t *testing.T) {
	items := []string{"apple", "avocado", "banana", "blueberry", "cherry"}
	groups := utils.GroupBy(items, func(item string) byte {
		return item[0]
	})

	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}

	if !slices.Equal(groups['a'], []string{"apple", "avocado"}) {
		t.Fatalf("unexpected group for 'a': %v", groups['a'])
	}

	if !slices.Equal(groups['c'], []string{"cherry"}) {
		t.Fatalf("unexpected group for 'c': %v", groups['c'])
	}
}

func TestChunks(t *testing.T) {
	testCases := []struct {
		desc   string
		items  []int
		size   int
		wanted [][]int
	}{
		{
			desc:   "empty input",
			items:  nil,
			size:   3,
			wanted: nil,
		},
		{
			desc:   "even chunks",
			items:  []int{1, 2, 3, 4},
			size:   2,
			wanted: [][]int{{1, 2}, {3, 4}},
		},
		{
			desc:   "short last chunk",
			items:  []int{1, 2, 3, 4, 5},
			size:   2,
			wanted: [][]int{{1, 2}, {3, 4}, {5}},
		},
		{
			desc:   "size larger than input",
			items:  []int{1, 2},
			size:   10,
			wanted: [][]int{{1, 2}},
		},
		{
			desc:   "non-positive size",
			items:  []int{1, 2, 3},
			size:   0,
			wanted: [][]int{{1, 2, 3}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			out := utils.Chunks(tc.items, tc.size)
			if len(out) != len(tc.wanted) {
				t.Fatalf("got %d chunks, expected %d", len(out), len(tc.wanted))
			}

			for i := range out {
				if !slices.Equal(out[i], tc.wanted[i]) {
					t.Fatalf("chunk %d is %v, expected %v", i, out[i], tc.wanted[i])
				}
			}
		})
	}
}
