// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package db provides the database connection used by workers during runtime.
package db

import "github.com/uptrace/bun"

// DB provides the connection to the tenantctl database.
var DB *bun.DB

// SetDB sets the database connection to be used by the workers.
func SetDB(database *bun.DB) {
	DB = database
}
