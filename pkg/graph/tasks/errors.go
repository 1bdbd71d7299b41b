// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"errors"
	"fmt"
)

// ErrNoPayload is an error, which is returned by task handlers, which expect a
// payload, but none was provided.
var ErrNoPayload = errors.New("no payload specified")

// ErrNoTenantID is an error, which is returned when a task expects a tenant
// id, but none was provided.
var ErrNoTenantID = errors.New("no tenant id specified")

// ErrNoUserPrincipalName is an error, which is returned by task handlers, which
// expect a user principal name to be specified, but none was provided.
var ErrNoUserPrincipalName = errors.New("no user principal name specified")

// ErrNoGroupID is an error, which is returned when a task expects a group id,
// but none was provided.
var ErrNoGroupID = errors.New("no group id specified")

// ErrNoMemberID is an error, which is returned when a task expects a member
// id, but none was provided.
var ErrNoMemberID = errors.New("no member id specified")

// ErrNoTeamID is an error, which is returned when a task expects a team id,
// but none was provided.
var ErrNoTeamID = errors.New("no team id specified")

// ErrNoSiteID is an error, which is returned when a task expects a site id,
// but none was provided.
var ErrNoSiteID = errors.New("no site id specified")

// ErrNoSKUID is an error, which is returned when a task expects a license SKU
// id, but none was provided.
var ErrNoSKUID = errors.New("no sku id specified")

// ErrNoDisplayName is an error, which is returned when a task expects a
// display name, but none was provided.
var ErrNoDisplayName = errors.New("no display name specified")

// ErrNoCSVPath is an error, which is returned when a task expects the path to
// a CSV file, but none was provided.
var ErrNoCSVPath = errors.New("no csv file path specified")

// ErrNoReportName is an error, which is returned when a task expects a report
// name, but none was provided.
var ErrNoReportName = errors.New("no report name specified")

// ErrUnknownReport is an error, which is returned when an unknown report name
// was specified.
var ErrUnknownReport = errors.New("unknown report")

// ErrNoRecipients is an error, which is returned when a mail task was invoked
// without any recipients.
var ErrNoRecipients = errors.New("no recipients specified")

// ErrNoSender is an error, which is returned when a mail task was invoked
// without a sending mailbox being configured.
var ErrNoSender = errors.New("no sender specified")

// ErrClientNotFound is an error, which is returned when a Microsoft Graph
// client was not found in the clientset registry.
var ErrClientNotFound = errors.New("client not found")

// ClientNotFound wraps [ErrClientNotFound] with the given tenant id.
func ClientNotFound(tenantID string) error {
	return fmt.Errorf("%w: tenant id %s", ErrClientNotFound, tenantID)
}
