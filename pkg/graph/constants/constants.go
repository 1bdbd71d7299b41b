// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package constants provides Microsoft Graph related constants.
package constants

const (
	// DefaultScope is the OAuth2 scope requested for Microsoft Graph
	// tokens.
	DefaultScope = "https://graph.microsoft.com/.default"

	// PageSize is the max page size requested from collection endpoints.
	PageSize = 999

	// MemberTypeUser represents a group member backed by a user account.
	MemberTypeUser = "user"

	// MemberTypeGroup represents a group member which is a nested group.
	MemberTypeGroup = "group"

	// MemberTypeUnknown represents a group member of an unknown directory
	// object type.
	MemberTypeUnknown = "unknown"
)
