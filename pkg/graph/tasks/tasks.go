// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package tasks provides the task handlers for managing Microsoft 365
// tenants via Microsoft Graph.
package tasks

import (
	"context"

	"github.com/hibiken/asynq"

	"github.com/m365ops/tenantctl/pkg/clients/db"
	"github.com/m365ops/tenantctl/pkg/core/registry"
	asynqutils "github.com/m365ops/tenantctl/pkg/utils/asynq"
	dbutils "github.com/m365ops/tenantctl/pkg/utils/db"
)

const (
	// TaskCollectAll is a meta task, which enqueues all collection tasks.
	TaskCollectAll = "graph:task:collect-all"

	// TaskLinkAll is a task, which establishes links between the collected
	// models.
	TaskLinkAll = "graph:task:link-all"
)

// HandleCollectAllTask is a handler, which enqueues tasks for collecting all
// directory objects from all known tenants.
func HandleCollectAllTask(ctx context.Context, _ *asynq.Task) error {
	queue := asynqutils.GetQueueName(ctx)

	// Task constructors
	taskFns := []asynqutils.TaskConstructor{
		NewCollectUsersTask,
		NewCollectGroupsTask,
		NewCollectGroupMembersTask,
		NewCollectTeamsTask,
		NewCollectTeamChannelsTask,
		NewCollectTeamMembersTask,
		NewCollectSitesTask,
		NewCollectDrivesTask,
		NewCollectSKUsTask,
		NewCollectSignInActivityTask,
		NewCollectSignInsTask,
		NewCollectDirectoryAuditsTask,
	}

	return asynqutils.Enqueue(ctx, taskFns, asynq.Queue(queue))
}

// HandleLinkAllTask is a handler, which establishes links between the various
// collected models.
func HandleLinkAllTask(ctx context.Context, _ *asynq.Task) error {
	linkFns := []dbutils.LinkFunction{
		LinkUsersWithGroups,
		LinkDrivesWithSites,
	}

	return dbutils.LinkObjects(ctx, db.DB, linkFns)
}

// init registers our task handlers and periodic tasks with the registries.
func init() {
	// Task handlers
	registry.TaskRegistry.MustRegister(TaskCollectAll, asynq.HandlerFunc(HandleCollectAllTask))
	registry.TaskRegistry.MustRegister(TaskLinkAll, asynq.HandlerFunc(HandleLinkAllTask))
	registry.TaskRegistry.MustRegister(TaskCollectUsers, asynq.HandlerFunc(HandleCollectUsersTask))
	registry.TaskRegistry.MustRegister(TaskCollectUser, asynq.HandlerFunc(HandleCollectUserTask))
	registry.TaskRegistry.MustRegister(TaskCreateUser, asynq.HandlerFunc(HandleCreateUserTask))
	registry.TaskRegistry.MustRegister(TaskUpdateUser, asynq.HandlerFunc(HandleUpdateUserTask))
	registry.TaskRegistry.MustRegister(TaskDeleteUser, asynq.HandlerFunc(HandleDeleteUserTask))
	registry.TaskRegistry.MustRegister(TaskDisableUser, asynq.HandlerFunc(HandleDisableUserTask))
	registry.TaskRegistry.MustRegister(TaskRevokeSessions, asynq.HandlerFunc(HandleRevokeSessionsTask))
	registry.TaskRegistry.MustRegister(TaskCollectSignInActivity, asynq.HandlerFunc(HandleCollectSignInActivityTask))
	registry.TaskRegistry.MustRegister(TaskBulkUpdateUsers, asynq.HandlerFunc(HandleBulkUpdateUsersTask))
	registry.TaskRegistry.MustRegister(TaskProcessJoiners, asynq.HandlerFunc(HandleProcessJoinersTask))
	registry.TaskRegistry.MustRegister(TaskProcessLeavers, asynq.HandlerFunc(HandleProcessLeaversTask))
	registry.TaskRegistry.MustRegister(TaskCollectGroups, asynq.HandlerFunc(HandleCollectGroupsTask))
	registry.TaskRegistry.MustRegister(TaskCollectGroupMembers, asynq.HandlerFunc(HandleCollectGroupMembersTask))
	registry.TaskRegistry.MustRegister(TaskCreateGroup, asynq.HandlerFunc(HandleCreateGroupTask))
	registry.TaskRegistry.MustRegister(TaskDeleteGroup, asynq.HandlerFunc(HandleDeleteGroupTask))
	registry.TaskRegistry.MustRegister(TaskAddGroupMember, asynq.HandlerFunc(HandleAddGroupMemberTask))
	registry.TaskRegistry.MustRegister(TaskRemoveGroupMember, asynq.HandlerFunc(HandleRemoveGroupMemberTask))
	registry.TaskRegistry.MustRegister(TaskCollectTeams, asynq.HandlerFunc(HandleCollectTeamsTask))
	registry.TaskRegistry.MustRegister(TaskCollectTeamChannels, asynq.HandlerFunc(HandleCollectTeamChannelsTask))
	registry.TaskRegistry.MustRegister(TaskCollectTeamMembers, asynq.HandlerFunc(HandleCollectTeamMembersTask))
	registry.TaskRegistry.MustRegister(TaskArchiveTeam, asynq.HandlerFunc(HandleArchiveTeamTask))
	registry.TaskRegistry.MustRegister(TaskCollectSites, asynq.HandlerFunc(HandleCollectSitesTask))
	registry.TaskRegistry.MustRegister(TaskCollectDrives, asynq.HandlerFunc(HandleCollectDrivesTask))
	registry.TaskRegistry.MustRegister(TaskCollectUserDrives, asynq.HandlerFunc(HandleCollectUserDrivesTask))
	registry.TaskRegistry.MustRegister(TaskCollectSKUs, asynq.HandlerFunc(HandleCollectSKUsTask))
	registry.TaskRegistry.MustRegister(TaskAssignLicense, asynq.HandlerFunc(HandleAssignLicenseTask))
	registry.TaskRegistry.MustRegister(TaskRemoveLicense, asynq.HandlerFunc(HandleRemoveLicenseTask))
	registry.TaskRegistry.MustRegister(TaskCollectSignIns, asynq.HandlerFunc(HandleCollectSignInsTask))
	registry.TaskRegistry.MustRegister(TaskCollectDirectoryAudits, asynq.HandlerFunc(HandleCollectDirectoryAuditsTask))
	registry.TaskRegistry.MustRegister(TaskExportReport, asynq.HandlerFunc(HandleExportReportTask))
	registry.TaskRegistry.MustRegister(TaskMailReport, asynq.HandlerFunc(HandleMailReportTask))
}
