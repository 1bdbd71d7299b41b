// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

package graph

// Client is a wrapper for a Microsoft Graph API client, which comes with
// additional metadata such as the named credentials which were used to create
// the client, and the tenant with which the client is associated.
type Client[T any] struct {
	// NamedCredentials is the name of the credentials, which were used to
	// create the API client.
	NamedCredentials string

	// TenantID is the id of the Microsoft 365 tenant.
	TenantID string

	// TenantName is a friendly name for the tenant.
	TenantName string

	// Client is the client used to make API calls against the Microsoft
	// Graph API.
	Client T
}
