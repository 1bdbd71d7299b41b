// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/olekukonko/tablewriter"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"

	"github.com/m365ops/tenantctl/internal/pkg/migrations"
	"github.com/m365ops/tenantctl/pkg/core/config"
	dbutils "github.com/m365ops/tenantctl/pkg/utils/db"
)

// na is displayed in tables for values which are not available.
const na = "N/A"

// errNoRedisEndpoint is an error, which is returned when no Redis endpoint
// was configured.
var errNoRedisEndpoint = errors.New("no redis endpoint configured")

// errNoDashboardAddress is an error, which is returned when no dashboard
// address was configured.
var errNoDashboardAddress = errors.New("no dashboard address configured")

// configKey is the key under which the parsed [config.Config] is stored in
// the context.
type configKey struct{}

// getConfig returns the [config.Config] associated with the given
// [cli.Context].
func getConfig(ctx *cli.Context) *config.Config {
	return ctx.Context.Value(configKey{}).(*config.Config)
}

// validateRedisConfig validates the Redis configuration settings.
func validateRedisConfig(conf *config.Config) error {
	if conf.Redis.Endpoint == "" {
		return errNoRedisEndpoint
	}

	return nil
}

// validateDBConfig validates the database configuration settings.
func validateDBConfig(conf *config.Config) error {
	if conf.Database.DSN == "" {
		return dbutils.ErrInvalidDSN
	}

	return nil
}

// validateDashboardConfig validates the dashboard configuration settings.
func validateDashboardConfig(conf *config.Config) error {
	if conf.Dashboard.Address == "" {
		return errNoDashboardAddress
	}

	return nil
}

// newRedisClientOpt returns a new [asynq.RedisClientOpt] from the given
// config.
func newRedisClientOpt(conf *config.Config) asynq.RedisClientOpt {
	// TODO: Handle authentication, TLS, etc.
	return asynq.RedisClientOpt{
		Addr: conf.Redis.Endpoint,
	}
}

// newAsynqClient returns a new [asynq.Client] from the given config.
func newAsynqClient(conf *config.Config) *asynq.Client {
	return asynq.NewClient(newRedisClientOpt(conf))
}

// newInspector returns a new [asynq.Inspector] from the given config.
func newInspector(conf *config.Config) *asynq.Inspector {
	return asynq.NewInspector(newRedisClientOpt(conf))
}

// newScheduler returns a new [asynq.Scheduler] from the given config.
func newScheduler(conf *config.Config) *asynq.Scheduler {
	preEnqueueFunc := func(t *asynq.Task, _ []asynq.Option) {
		slog.Info("enqueueing task", "name", t.Type())
	}

	opts := &asynq.SchedulerOpts{
		PreEnqueueFunc: preEnqueueFunc,
	}

	return asynq.NewScheduler(newRedisClientOpt(conf), opts)
}

// newDB returns a new [bun.DB] database from the given config.
func newDB(conf *config.Config) (*bun.DB, error) {
	db, err := dbutils.NewFromConfig(conf.Database)
	if err != nil {
		return nil, err
	}
	db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(conf.Debug)))

	return db, nil
}

// newMigrator returns a new [migrate.Migrator] from the given config.
func newMigrator(conf *config.Config, db *bun.DB) (*migrate.Migrator, error) {
	// By default we will use the bundled migrations, unless an alternate
	// migrations directory was configured.
	m := migrations.Migrations
	if conf.Database.MigrationDirectory != "" {
		m = migrate.NewMigrations(migrate.WithMigrationsDirectory(conf.Database.MigrationDirectory))
		if err := m.Discover(os.DirFS(conf.Database.MigrationDirectory)); err != nil {
			return nil, err
		}
	}

	return migrate.NewMigrator(db, m), nil
}

// newTableWriter returns a new [tablewriter.Table] with the given headers.
func newTableWriter(w io.Writer, headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	row := make([]any, 0, len(headers))
	for _, header := range headers {
		row = append(row, header)
	}
	table.Header(row...)

	return table
}
