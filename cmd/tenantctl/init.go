// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	_ "github.com/m365ops/tenantctl/pkg/common/tasks"
	_ "github.com/m365ops/tenantctl/pkg/graph/models"
	_ "github.com/m365ops/tenantctl/pkg/graph/tasks"
)
