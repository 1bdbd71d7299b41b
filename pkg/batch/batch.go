// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package batch provides a generic processor for running an operation against
// a large number of items in chunks with bounded concurrency.
package batch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/m365ops/tenantctl/pkg/utils"
	asynqutils "github.com/m365ops/tenantctl/pkg/utils/asynq"
)

// Default settings used by [Process], when the respective [Options] fields are
// not set.
const (
	// DefaultChunkSize is the default number of items per chunk.
	DefaultChunkSize = 20

	// DefaultConcurrency is the default number of items processed
	// concurrently within a chunk.
	DefaultConcurrency = 5

	// DefaultChunkDelay is the default delay between chunks.
	DefaultChunkDelay = 500 * time.Millisecond
)

// Func is an operation applied to a single item.
type Func[T any] func(ctx context.Context, item T) error

// Options configures the behaviour of [Process]. The zero value of each field
// means the respective default is used.
type Options struct {
	// ChunkSize is the number of items per chunk.
	ChunkSize int

	// Concurrency is the max number of items processed concurrently within
	// a chunk.
	Concurrency int

	// ChunkDelay is the delay between chunks.
	ChunkDelay time.Duration
}

// ItemError associates a failed item with the error it failed with.
type ItemError struct {
	// Index is the position of the item in the original input slice.
	Index int

	// Err is the error with which the item failed.
	Err error
}

// Result summarizes a [Process] run.
type Result struct {
	// Processed is the number of successfully processed items.
	Processed int

	// Failed is the number of items which failed.
	Failed int

	// Errors contains the per-item failures.
	Errors []ItemError
}

// Process applies fn to each item from items. The items are partitioned into
// chunks, the items of a chunk are processed concurrently, and consecutive
// chunks are separated by a delay.
//
// A failing item does not stop the run. The failure is logged, recorded in the
// returned [Result] and processing continues with the remaining items.
//
// Cancelling the context stops the run between chunks and between items of a
// chunk. The returned [Result] reflects the items processed so far, and the
// returned error is the context error.
func Process[T any](ctx context.Context, items []T, fn Func[T], opts Options) (Result, error) {
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	chunkDelay := opts.ChunkDelay
	switch {
	case chunkDelay < 0:
		chunkDelay = 0
	case chunkDelay == 0:
		chunkDelay = DefaultChunkDelay
	}

	logger := asynqutils.GetLogger(ctx)

	var mu sync.Mutex
	result := Result{}

	chunks := utils.Chunks(items, chunkSize)
	base := 0
	for chunkIdx, chunk := range chunks {
		if chunkIdx > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(chunkDelay):
			}
		}

		g, groupCtx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)

		for i, item := range chunk {
			index := base + i
			item := item
			g.Go(func() error {
				select {
				case <-groupCtx.Done():
					return groupCtx.Err()
				default:
				}

				err := fn(groupCtx, item)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					logger.Error(
						"failed to process item",
						"index", index,
						"reason", err,
					)
					result.Failed++
					result.Errors = append(result.Errors, ItemError{Index: index, Err: err})

					return nil
				}
				result.Processed++

				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return result, err
		}

		base += len(chunk)
	}

	return result, nil
}
