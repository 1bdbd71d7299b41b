// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package db provides database utilities.
package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	dbclient "github.com/m365ops/tenantctl/pkg/clients/db"
	"github.com/m365ops/tenantctl/pkg/core/config"
	asynqutils "github.com/m365ops/tenantctl/pkg/utils/asynq"
)

// ErrInvalidDSN error is returned, when the DSN configuration is incorrect, or
// empty.
var ErrInvalidDSN = errors.New("invalid or missing database configuration")

// NewFromConfig creates a new [bun.DB] based on the provided
// [config.DatabaseConfig] spec.
func NewFromConfig(conf config.DatabaseConfig) (*bun.DB, error) {
	if conf.DSN == "" {
		return nil, ErrInvalidDSN
	}

	pgdb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(conf.DSN)))
	db := bun.NewDB(pgdb, pgdialect.New())

	return db, nil
}

// LinkFunction is a function, which establishes relationships between models.
type LinkFunction func(ctx context.Context, db *bun.DB) error

// LinkObjects links objects by using the provided [LinkFunction] items.
func LinkObjects(ctx context.Context, db *bun.DB, items []LinkFunction) error {
	logger := asynqutils.GetLogger(ctx)
	for _, linkFunc := range items {
		if err := linkFunc(ctx, db); err != nil {
			logger.Error("failed to link objects", "reason", err)

			continue
		}
	}

	return nil
}

// GetModelsFromDB fetches all records of the given model from the database.
func GetModelsFromDB[T any](ctx context.Context) ([]T, error) {
	items := make([]T, 0)
	err := dbclient.DB.NewSelect().Model(&items).Scan(ctx)

	return items, err
}
