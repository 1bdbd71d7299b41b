// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

package registry

import "github.com/hibiken/asynq"

// TaskRegistry is the default registry for task handlers.
var TaskRegistry = New[string, asynq.Handler]()

// ScheduledTaskRegistry is the default registry for periodic tasks. The key is
// the cron spec with which the task will be scheduled.
var ScheduledTaskRegistry = New[string, *asynq.Task]()

// ModelRegistry is the default registry for database models.
var ModelRegistry = New[string, any]()
