// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

package batch_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m365ops/tenantctl/pkg/batch"
)

func TestProcessAllItemsSucceed(t *testing.T) {
	items := make([]int, 50)
	for i := range items {
		items[i] = i
	}

	var processed atomic.Int64
	fn := func(_ context.Context, _ int) error {
		processed.Add(1)

		return nil
	}

	opts := batch.Options{ChunkSize: 10, Concurrency: 5, ChunkDelay: time.Millisecond}
	result, err := batch.Process(context.Background(), items, fn, opts)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if result.Processed != len(items) {
		t.Fatalf("processed %d items, expected %d", result.Processed, len(items))
	}

	if result.Failed != 0 {
		t.Fatalf("got %d failed items, expected none", result.Failed)
	}

	if got := processed.Load(); got != int64(len(items)) {
		t.Fatalf("fn called %d times, expected %d", got, len(items))
	}
}

func TestProcessFailuresDoNotStopRun(t *testing.T) {
	errBoom := errors.New("boom")
	items := []int{0, 1, 2, 3, 4, 5}
	fn := func(_ context.Context, item int) error {
		if item%2 == 0 {
			return errBoom
		}

		return nil
	}

	opts := batch.Options{ChunkSize: 2, Concurrency: 2, ChunkDelay: time.Millisecond}
	result, err := batch.Process(context.Background(), items, fn, opts)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if result.Processed != 3 {
		t.Fatalf("processed %d items, expected 3", result.Processed)
	}

	if result.Failed != 3 {
		t.Fatalf("got %d failed items, expected 3", result.Failed)
	}

	if len(result.Errors) != 3 {
		t.Fatalf("got %d item errors, expected 3", len(result.Errors))
	}

	for _, itemErr := range result.Errors {
		if !errors.Is(itemErr.Err, errBoom) {
			t.Fatalf("unexpected item error: %v", itemErr.Err)
		}

		if itemErr.Index%2 != 0 {
			t.Fatalf("item %d recorded as failed, but should have succeeded", itemErr.Index)
		}
	}
}

func TestProcessEmptyInput(t *testing.T) {
	fn := func(_ context.Context, _ int) error {
		t.Fatal("fn should not be called for empty input")

		return nil
	}

	result, err := batch.Process(context.Background(), nil, fn, batch.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if result.Processed != 0 || result.Failed != 0 {
		t.Fatalf("unexpected result for empty input: %+v", result)
	}
}

func TestProcessConcurrencyBound(t *testing.T) {
	items := make([]int, 40)
	var mu sync.Mutex
	inflight := 0
	maxInflight := 0

	fn := func(_ context.Context, _ int) error {
		mu.Lock()
		inflight++
		if inflight > maxInflight {
			maxInflight = inflight
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		inflight--
		mu.Unlock()

		return nil
	}

	opts := batch.Options{ChunkSize: 20, Concurrency: 5, ChunkDelay: time.Millisecond}
	result, err := batch.Process(context.Background(), items, fn, opts)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if result.Processed != len(items) {
		t.Fatalf("processed %d items, expected %d", result.Processed, len(items))
	}

	if maxInflight > 5 {
		t.Fatalf("observed %d concurrent items, expected at most 5", maxInflight)
	}
}

func TestProcessFallsBackToDefaults(t *testing.T) {
	// Zero or negative chunk size and concurrency fall back to the
	// package defaults.
	items := make([]int, 45)
	var mu sync.Mutex
	inflight := 0
	maxInflight := 0

	fn := func(_ context.Context, _ int) error {
		mu.Lock()
		inflight++
		if inflight > maxInflight {
			maxInflight = inflight
		}
		mu.Unlock()

		time.Sleep(time.Millisecond)

		mu.Lock()
		inflight--
		mu.Unlock()

		return nil
	}

	delay := 25 * time.Millisecond
	opts := batch.Options{ChunkSize: 0, Concurrency: -1, ChunkDelay: delay}

	start := time.Now()
	result, err := batch.Process(context.Background(), items, fn, opts)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if result.Processed != len(items) {
		t.Fatalf("processed %d items, expected %d", result.Processed, len(items))
	}

	if maxInflight > batch.DefaultConcurrency {
		t.Fatalf("observed %d concurrent items, expected at most %d", maxInflight, batch.DefaultConcurrency)
	}

	// 45 items with the default chunk size of 20 means three chunks and
	// two inter-chunk delays.
	if elapsed < 2*delay {
		t.Fatalf("run finished in %s, expected at least %s", elapsed, 2*delay)
	}
}

func TestProcessNegativeChunkDelay(t *testing.T) {
	// A negative delay is treated as no delay rather than falling back
	// to the default.
	items := make([]int, 6)
	fn := func(_ context.Context, _ int) error {
		return nil
	}

	opts := batch.Options{ChunkSize: 2, Concurrency: 2, ChunkDelay: -time.Second}

	start := time.Now()
	result, err := batch.Process(context.Background(), items, fn, opts)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if result.Processed != len(items) {
		t.Fatalf("processed %d items, expected %d", result.Processed, len(items))
	}

	if elapsed >= batch.DefaultChunkDelay {
		t.Fatalf("run took %s, negative delay should not fall back to the default", elapsed)
	}
}

func TestProcessContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	items := make([]int, 100)

	var processed atomic.Int64
	fn := func(_ context.Context, _ int) error {
		if processed.Add(1) == 10 {
			cancel()
		}

		return nil
	}

	opts := batch.Options{ChunkSize: 10, Concurrency: 1, ChunkDelay: 10 * time.Millisecond}
	result, err := batch.Process(ctx, items, fn, opts)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if result.Processed >= len(items) {
		t.Fatalf("run was not interrupted, processed %d items", result.Processed)
	}
}

func TestProcessChunkDelay(t *testing.T) {
	items := make([]int, 4)
	fn := func(_ context.Context, _ int) error {
		return nil
	}

	delay := 50 * time.Millisecond
	opts := batch.Options{ChunkSize: 2, Concurrency: 2, ChunkDelay: delay}

	start := time.Now()
	result, err := batch.Process(context.Background(), items, fn, opts)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if result.Processed != len(items) {
		t.Fatalf("processed %d items, expected %d", result.Processed, len(items))
	}

	// Two chunks means a single inter-chunk delay.
	if elapsed < delay {
		t.Fatalf("run finished in %s, expected at least %s", elapsed, delay)
	}
}
