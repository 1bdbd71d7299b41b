// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package graph provides the registry of Microsoft Graph API clients, which
// are used by workers during runtime.
package graph

import (
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"

	"github.com/m365ops/tenantctl/pkg/core/registry"
)

// Clientset provides the registry of Graph API clients, keyed by tenant id.
var Clientset = registry.New[string, *Client[*msgraphsdk.GraphServiceClient]]()
