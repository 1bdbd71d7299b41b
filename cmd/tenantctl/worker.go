// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/hibiken/asynq"
	"github.com/urfave/cli/v2"

	asynqclient "github.com/m365ops/tenantctl/pkg/clients/asynq"
	dbclient "github.com/m365ops/tenantctl/pkg/clients/db"
	"github.com/m365ops/tenantctl/pkg/core/config"
	"github.com/m365ops/tenantctl/pkg/core/registry"
	graphtasks "github.com/m365ops/tenantctl/pkg/graph/tasks"
	"github.com/m365ops/tenantctl/pkg/metrics"
	asynqutils "github.com/m365ops/tenantctl/pkg/utils/asynq"
	workerutils "github.com/m365ops/tenantctl/pkg/utils/asynq/worker"
	slogutils "github.com/m365ops/tenantctl/pkg/utils/slog"
)

// NewWorkerCommand returns a new command for interfacing with the workers.
func NewWorkerCommand() *cli.Command {
	cmd := &cli.Command{
		Name:    "worker",
		Usage:   "worker operations",
		Aliases: []string{"w"},
		Before: func(ctx *cli.Context) error {
			conf := getConfig(ctx)
			validatorFuncs := []func(c *config.Config) error{
				validateRedisConfig,
				validateDBConfig,
				validateGraphConfig,
			}

			for _, validator := range validatorFuncs {
				if err := validator(conf); err != nil {
					return err
				}
			}

			return nil
		},
		Subcommands: []*cli.Command{
			{
				Name:    "start",
				Usage:   "start the worker",
				Aliases: []string{"s"},
				Action:  startWorker,
			},
		},
	}

	return cmd
}

// startWorker starts the worker.
func startWorker(ctx *cli.Context) error {
	conf := getConfig(ctx)

	logger, err := slogutils.NewFromConfig(os.Stdout, conf.Logging)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	db, err := newDB(conf)
	if err != nil {
		return err
	}
	defer db.Close() // nolint: errcheck

	client := newAsynqClient(conf)
	defer client.Close() // nolint: errcheck

	inspector := newInspector(conf)
	defer inspector.Close() // nolint: errcheck

	// Initialize clients used by the task handlers
	dbclient.SetDB(db)
	asynqclient.SetClient(client)
	asynqclient.SetInspector(inspector)

	if err := configureVaultClient(conf); err != nil {
		return err
	}

	if err := configureGraphClients(ctx.Context, conf); err != nil {
		return err
	}

	graphtasks.SetBatchOptions(conf.Batch)
	graphtasks.SetReportsConfig(conf.Reports)

	logLevel := asynq.InfoLevel
	if conf.Debug {
		logLevel = asynq.DebugLevel
	}

	worker := workerutils.NewFromConfig(
		newRedisClientOpt(conf),
		conf.Worker,
		workerutils.WithLogLevel(logLevel),
	)

	worker.UseMiddlewares(
		asynqutils.NewLoggerMiddleware(logger),
		asynqutils.NewMeasuringMiddleware(),
		asynqutils.NewMetricsMiddleware(),
	)

	// Register the task handlers from the registry
	err = registry.TaskRegistry.Range(func(name string, handler asynq.Handler) error {
		logger.Info("registering task", "name", name)
		worker.Handle(name, handler)

		return nil
	})
	if err != nil {
		return err
	}

	// Expose the metrics, if configured
	if conf.Metrics.Address != "" {
		srv := metrics.NewServer(conf.Metrics.Address, conf.Metrics.Path)
		go func() {
			logger.Info("starting metrics server", "address", conf.Metrics.Address, "path", conf.Metrics.Path)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "reason", err)
			}
		}()
	}

	return worker.Run()
}
