// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"errors"
	"testing"
)

func TestNewRegistryIsEmpty(t *testing.T) {
	registry := New[string, int]()

	if registry.Length() != 0 {
		t.Fatalf("new registry must have a length of 0")
	}
}

func TestRegisterAndGet(t *testing.T) {
	registry := New[string, int]()

	const key = "key"
	const value = 42

	if err := registry.Register(key, value); err != nil {
		t.Fatalf("failed to register %q: %s", key, err)
	}

	if registry.Length() != 1 {
		t.Fatalf("registry length after registering one item must be 1")
	}

	outValue, exists := registry.Get(key)
	if !exists {
		t.Fatalf("no value found for registered key %q", key)
	}

	if outValue != value {
		t.Fatalf("registry returned value %v, expected %v", outValue, value)
	}
}

func TestRegisterDuplicateKey(t *testing.T) {
	registry := New[string, int]()

	const key = "key"
	if err := registry.Register(key, 1); err != nil {
		t.Fatalf("failed to register %q: %s", key, err)
	}

	err := registry.Register(key, 2)
	if !errors.Is(err, ErrKeyAlreadyRegistered) {
		t.Fatalf("registering a duplicate key must return ErrKeyAlreadyRegistered, got %v", err)
	}
}

func TestMustRegisterPanicsOnDuplicateKey(t *testing.T) {
	registry := New[string, int]()

	const key = "key"
	registry.MustRegister(key, 1)

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustRegister did not panic when registering a duplicate key")
		}
	}()

	registry.MustRegister(key, 1)
}

func TestUnregisterRemovesKey(t *testing.T) {
	registry := New[string, int]()

	const key = "key"
	registry.MustRegister(key, 1)
	registry.Unregister(key)

	if registry.Exists(key) {
		t.Fatalf("key %q still exists after unregistering it", key)
	}
}

func TestOverwrite(t *testing.T) {
	registry := New[string, int]()

	const key = "key"
	registry.MustRegister(key, 1)
	registry.Overwrite(key, 2)

	val, ok := registry.Get(key)
	if !ok {
		t.Fatalf("no value found for key %q", key)
	}

	if val != 2 {
		t.Fatalf("overwritten value is %v, expected 2", val)
	}
}

func TestRangeStopsOnStopIteration(t *testing.T) {
	registry := New[string, int]()
	registry.MustRegister("a", 1)
	registry.MustRegister("b", 2)

	visited := 0
	rangeFunc := func(_ string, _ int) error {
		visited++

		return ErrStopIteration
	}

	if err := registry.Range(rangeFunc); err != nil {
		t.Fatalf("Range must not propagate ErrStopIteration, got %v", err)
	}

	if visited != 1 {
		t.Fatalf("Range visited %d items after ErrStopIteration, expected 1", visited)
	}
}

func TestRangePropagatesErrors(t *testing.T) {
	registry := New[string, int]()
	registry.MustRegister("a", 1)

	wantErr := errors.New("boom")
	rangeFunc := func(_ string, _ int) error {
		return wantErr
	}

	if err := registry.Range(rangeFunc); !errors.Is(err, wantErr) {
		t.Fatalf("Range returned %v, expected %v", err, wantErr)
	}
}
