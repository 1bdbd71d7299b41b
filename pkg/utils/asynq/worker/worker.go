// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package worker provides a thin wrapper around [asynq.Server] and
// [asynq.ServeMux].
package worker

import (
	"context"
	"runtime"

	"github.com/hibiken/asynq"

	"github.com/m365ops/tenantctl/pkg/core/config"
)

// Option is a function, which configures the [Worker].
type Option func(conf *asynq.Config)

// Worker wraps an [asynq.Server] and [asynq.ServeMux] with additional
// convenience methods for task handlers.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// WithLogLevel is an [Option], which configures the log level of the [Worker].
func WithLogLevel(level asynq.LogLevel) Option {
	opt := func(conf *asynq.Config) {
		conf.LogLevel = level
	}

	return opt
}

// WithErrorHandler is an [Option], which configures the [Worker] to use the
// specified [asynq.ErrorHandler].
func WithErrorHandler(handler asynq.ErrorHandler) Option {
	opt := func(conf *asynq.Config) {
		conf.ErrorHandler = handler
	}

	return opt
}

// NewFromConfig creates a new [Worker] based on the provided
// [config.WorkerConfig] spec.
func NewFromConfig(r asynq.RedisClientOpt, conf config.WorkerConfig, opts ...Option) *Worker {
	concurrency := conf.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	defaultQueues := map[string]int{
		config.DefaultQueueName: 1,
	}

	queues := conf.Queues
	if len(queues) == 0 {
		queues = defaultQueues
	}

	config := asynq.Config{
		Concurrency:    concurrency,
		Queues:         queues,
		StrictPriority: conf.StrictPriority,
	}

	for _, opt := range opts {
		opt(&config)
	}

	server := asynq.NewServer(r, config)
	mux := asynq.NewServeMux()
	worker := &Worker{
		server: server,
		mux:    mux,
	}

	return worker
}

// UseMiddlewares configures the [Worker] to use the given middlewares.
func (w *Worker) UseMiddlewares(middlewares ...asynq.MiddlewareFunc) {
	w.mux.Use(middlewares...)
}

// Handle registers the given handler with the [Worker] for the specified task
// pattern.
func (w *Worker) Handle(pattern string, handler asynq.Handler) {
	w.mux.Handle(pattern, handler)
}

// HandleFunc registers the given handler function with the [Worker] for the
// specified task pattern.
func (w *Worker) HandleFunc(pattern string, handler func(ctx context.Context, t *asynq.Task) error) {
	w.mux.HandleFunc(pattern, handler)
}

// Run starts the [Worker] and blocks until an OS signal is received.
func (w *Worker) Run() error {
	return w.server.Run(w.mux)
}

// Start starts the [Worker] without blocking.
func (w *Worker) Start() error {
	return w.server.Start(w.mux)
}

// Shutdown gracefully shuts down the [Worker].
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}
