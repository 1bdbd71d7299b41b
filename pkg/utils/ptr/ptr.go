// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package ptr provides helpers for working with pointers.
package ptr

// Value returns the value referenced by p, if p is non-nil, else it returns
// the default value def.
func Value[T any](p *T, def T) T {
	if p != nil {
		return *p
	}

	return def
}

// To returns a pointer to a copy of the given value.
func To[T any](v T) *T {
	return &v
}
