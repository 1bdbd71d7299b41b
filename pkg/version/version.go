// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package version provides the version of tenantctl.
package version

// Version is the version of tenantctl. It is set at build time via the
// -ldflags option.
var Version = "v0.1.0-dev"
