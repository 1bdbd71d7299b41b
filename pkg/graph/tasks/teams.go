// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/hibiken/asynq"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	msgraphcore "github.com/microsoftgraph/msgraph-sdk-go-core"
	graphmodels "github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/teams"

	asynqclient "github.com/m365ops/tenantctl/pkg/clients/asynq"
	"github.com/m365ops/tenantctl/pkg/clients/db"
	graphclients "github.com/m365ops/tenantctl/pkg/clients/graph"
	"github.com/m365ops/tenantctl/pkg/core/registry"
	"github.com/m365ops/tenantctl/pkg/graph/models"
	graphutils "github.com/m365ops/tenantctl/pkg/graph/utils"
	asynqutils "github.com/m365ops/tenantctl/pkg/utils/asynq"
	"github.com/m365ops/tenantctl/pkg/utils/ptr"
)

const (
	// TaskCollectTeams is the name of the task for collecting Microsoft
	// Teams teams.
	TaskCollectTeams = "teams:task:collect-teams"

	// TaskCollectTeamChannels is the name of the task for collecting the
	// channels of a team.
	TaskCollectTeamChannels = "teams:task:collect-channels"

	// TaskCollectTeamMembers is the name of the task for collecting the
	// membership roster of a team.
	TaskCollectTeamMembers = "teams:task:collect-team-members"

	// TaskArchiveTeam is the name of the task for archiving a team.
	TaskArchiveTeam = "teams:task:archive-team"
)

// CollectTeamsPayload is the payload used for collecting teams.
type CollectTeamsPayload struct {
	// TenantID specifies the tenant from which to collect.
	TenantID string `json:"tenant_id" yaml:"tenant_id"`
}

// NewCollectTeamsTask creates a new [asynq.Task] for collecting teams,
// without specifying a payload.
func NewCollectTeamsTask() *asynq.Task {
	return asynq.NewTask(TaskCollectTeams, nil)
}

// HandleCollectTeamsTask is the handler, which collects teams.
func HandleCollectTeamsTask(ctx context.Context, t *asynq.Task) error {
	data := t.Payload()
	if data == nil {
		return enqueueCollectTeams(ctx)
	}

	var payload CollectTeamsPayload
	if err := asynqutils.Unmarshal(data, &payload); err != nil {
		return asynqutils.SkipRetry(err)
	}

	if payload.TenantID == "" {
		return asynqutils.SkipRetry(ErrNoTenantID)
	}

	return collectTeams(ctx, payload)
}

// enqueueCollectTeams enqueues tasks for collecting teams from all known
// tenants.
func enqueueCollectTeams(ctx context.Context) error {
	logger := asynqutils.GetLogger(ctx)
	if graphclients.Clientset.Length() == 0 {
		logger.Warn("no Microsoft Graph clients found")

		return nil
	}

	return graphclients.Clientset.Range(func(tenantID string, _ *graphclients.Client[*msgraphsdk.GraphServiceClient]) error {
		payload := CollectTeamsPayload{
			TenantID: tenantID,
		}
		data, err := json.Marshal(payload)
		if err != nil {
			logger.Error(
				"failed to marshal payload for team collection",
				"tenant_id", tenantID,
				"reason", err,
			)

			return registry.ErrContinue
		}
		task := asynq.NewTask(TaskCollectTeams, data)
		info, err := asynqclient.Client.Enqueue(task)
		if err != nil {
			logger.Error(
				"failed to enqueue task",
				"type", task.Type(),
				"tenant_id", tenantID,
				"reason", err,
			)

			return registry.ErrContinue
		}

		logger.Info(
			"enqueued task",
			"type", task.Type(),
			"id", info.ID,
			"queue", info.Queue,
			"tenant_id", tenantID,
		)

		return nil
	})
}

// collectTeams collects the teams from the tenant specified in the payload.
func collectTeams(ctx context.Context, payload CollectTeamsPayload) error {
	client, ok := graphclients.Clientset.Get(payload.TenantID)
	if !ok {
		return asynqutils.SkipRetry(ClientNotFound(payload.TenantID))
	}

	logger := asynqutils.GetLogger(ctx)
	logger.Info("collecting teams", "tenant_id", payload.TenantID)

	result, err := client.Client.Teams().Get(ctx, nil)
	if err != nil {
		logger.Error(
			"failed to get teams",
			"tenant_id", payload.TenantID,
			"reason", err,
		)

		return graphutils.MaybeSkipRetry(err)
	}

	iter, err := msgraphcore.NewPageIterator[graphmodels.Teamable](
		result,
		client.Client.GetAdapter(),
		graphmodels.CreateTeamCollectionResponseFromDiscriminatorValue,
	)
	if err != nil {
		return err
	}

	items := make([]models.Team, 0)
	err = iter.Iterate(ctx, func(item graphmodels.Teamable) bool {
		teamID := ptr.Value(item.GetId(), "")
		if teamID == "" {
			return true
		}

		visibility := ""
		if v := item.GetVisibility(); v != nil {
			visibility = v.String()
		}

		team := models.Team{
			TenantID:    payload.TenantID,
			TeamID:      teamID,
			DisplayName: ptr.Value(item.GetDisplayName(), ""),
			Description: ptr.Value(item.GetDescription(), ""),
			Visibility:  visibility,
			IsArchived:  ptr.Value(item.GetIsArchived(), false),
		}
		items = append(items, team)

		return true
	})
	if err != nil {
		return graphutils.MaybeSkipRetry(err)
	}

	if len(items) == 0 {
		return nil
	}

	out, err := db.DB.NewInsert().
		Model(&items).
		On("CONFLICT (tenant_id, team_id) DO UPDATE").
		Set("display_name = EXCLUDED.display_name").
		Set("description = EXCLUDED.description").
		Set("visibility = EXCLUDED.visibility").
		Set("is_archived = EXCLUDED.is_archived").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("id").
		Exec(ctx)

	if err != nil {
		return err
	}

	count, err := out.RowsAffected()
	if err != nil {
		return err
	}

	logger.Info("populated teams", "count", count, "tenant_id", payload.TenantID)
	teamsMetric(payload.TenantID, len(items))

	return nil
}

// CollectTeamChannelsPayload is the payload used for collecting the channels
// of a team.
type CollectTeamChannelsPayload struct {
	// TenantID specifies the tenant of the team.
	TenantID string `json:"tenant_id" yaml:"tenant_id"`

	// TeamID specifies the team whose channels will be collected.
	TeamID string `json:"team_id" yaml:"team_id"`
}

// NewCollectTeamChannelsTask creates a new [asynq.Task] for collecting team
// channels, without specifying a payload.
func NewCollectTeamChannelsTask() *asynq.Task {
	return asynq.NewTask(TaskCollectTeamChannels, nil)
}

// HandleCollectTeamChannelsTask is the handler, which collects the channels
// of teams. When called without a payload it enqueues channel collection for
// each already collected team.
func HandleCollectTeamChannelsTask(ctx context.Context, t *asynq.Task) error {
	data := t.Payload()
	if data == nil {
		return enqueueCollectTeamChannels(ctx)
	}

	var payload CollectTeamChannelsPayload
	if err := asynqutils.Unmarshal(data, &payload); err != nil {
		return asynqutils.SkipRetry(err)
	}

	if payload.TenantID == "" {
		return asynqutils.SkipRetry(ErrNoTenantID)
	}
	if payload.TeamID == "" {
		return asynqutils.SkipRetry(ErrNoTeamID)
	}

	return collectTeamChannels(ctx, payload)
}

// enqueueCollectTeamChannels enqueues tasks for collecting the channels of
// all teams which are known to the database.
func enqueueCollectTeamChannels(ctx context.Context) error {
	logger := asynqutils.GetLogger(ctx)
	items, err := graphutils.GetTeamsFromDB(ctx)
	if err != nil {
		logger.Error("failed to get teams from db", "reason", err)

		return err
	}

	for _, item := range items {
		payload := CollectTeamChannelsPayload{
			TenantID: item.TenantID,
			TeamID:   item.TeamID,
		}
		data, err := json.Marshal(payload)
		if err != nil {
			logger.Error(
				"failed to marshal payload for channel collection",
				"tenant_id", item.TenantID,
				"team_id", item.TeamID,
				"reason", err,
			)

			continue
		}
		task := asynq.NewTask(TaskCollectTeamChannels, data)
		info, err := asynqclient.Client.Enqueue(task)
		if err != nil {
			logger.Error(
				"failed to enqueue task",
				"type", task.Type(),
				"team_id", item.TeamID,
				"reason", err,
			)

			continue
		}

		logger.Info(
			"enqueued task",
			"type", task.Type(),
			"id", info.ID,
			"queue", info.Queue,
			"team_id", item.TeamID,
		)
	}

	return nil
}

// collectTeamChannels collects the channels of the team specified in the
// payload.
func collectTeamChannels(ctx context.Context, payload CollectTeamChannelsPayload) error {
	client, ok := graphclients.Clientset.Get(payload.TenantID)
	if !ok {
		return asynqutils.SkipRetry(ClientNotFound(payload.TenantID))
	}

	logger := asynqutils.GetLogger(ctx)
	logger.Info(
		"collecting team channels",
		"tenant_id", payload.TenantID,
		"team_id", payload.TeamID,
	)

	result, err := client.Client.Teams().ByTeamId(payload.TeamID).Channels().Get(ctx, nil)
	if err != nil {
		logger.Error(
			"failed to get team channels",
			"tenant_id", payload.TenantID,
			"team_id", payload.TeamID,
			"reason", err,
		)

		return graphutils.MaybeSkipRetry(err)
	}

	iter, err := msgraphcore.NewPageIterator[graphmodels.Channelable](
		result,
		client.Client.GetAdapter(),
		graphmodels.CreateChannelCollectionResponseFromDiscriminatorValue,
	)
	if err != nil {
		return err
	}

	items := make([]models.TeamChannel, 0)
	err = iter.Iterate(ctx, func(item graphmodels.Channelable) bool {
		channelID := ptr.Value(item.GetId(), "")
		if channelID == "" {
			return true
		}

		membershipType := ""
		if mt := item.GetMembershipType(); mt != nil {
			membershipType = mt.String()
		}

		channel := models.TeamChannel{
			TenantID:       payload.TenantID,
			TeamID:         payload.TeamID,
			ChannelID:      channelID,
			DisplayName:    ptr.Value(item.GetDisplayName(), ""),
			Description:    ptr.Value(item.GetDescription(), ""),
			MembershipType: membershipType,
		}
		items = append(items, channel)

		return true
	})
	if err != nil {
		return graphutils.MaybeSkipRetry(err)
	}

	if len(items) == 0 {
		return nil
	}

	out, err := db.DB.NewInsert().
		Model(&items).
		On("CONFLICT (tenant_id, team_id, channel_id) DO UPDATE").
		Set("display_name = EXCLUDED.display_name").
		Set("description = EXCLUDED.description").
		Set("membership_type = EXCLUDED.membership_type").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("id").
		Exec(ctx)

	if err != nil {
		return err
	}

	count, err := out.RowsAffected()
	if err != nil {
		return err
	}

	logger.Info(
		"populated team channels",
		"count", count,
		"tenant_id", payload.TenantID,
		"team_id", payload.TeamID,
	)

	return nil
}

// CollectTeamMembersPayload is the payload used for collecting the membership
// roster of a team.
type CollectTeamMembersPayload struct {
	// TenantID specifies the tenant of the team.
	TenantID string `json:"tenant_id" yaml:"tenant_id"`

	// TeamID specifies the team whose members will be collected.
	TeamID string `json:"team_id" yaml:"team_id"`
}

// NewCollectTeamMembersTask creates a new [asynq.Task] for collecting team
// members, without specifying a payload.
func NewCollectTeamMembersTask() *asynq.Task {
	return asynq.NewTask(TaskCollectTeamMembers, nil)
}

// HandleCollectTeamMembersTask is the handler, which collects the membership
// roster of teams. When called without a payload it enqueues member
// collection for each already collected team.
func HandleCollectTeamMembersTask(ctx context.Context, t *asynq.Task) error {
	data := t.Payload()
	if data == nil {
		return enqueueCollectTeamMembers(ctx)
	}

	var payload CollectTeamMembersPayload
	if err := asynqutils.Unmarshal(data, &payload); err != nil {
		return asynqutils.SkipRetry(err)
	}

	if payload.TenantID == "" {
		return asynqutils.SkipRetry(ErrNoTenantID)
	}
	if payload.TeamID == "" {
		return asynqutils.SkipRetry(ErrNoTeamID)
	}

	return collectTeamMembers(ctx, payload)
}

// enqueueCollectTeamMembers enqueues tasks for collecting the members of all
// teams which are known to the database.
func enqueueCollectTeamMembers(ctx context.Context) error {
	logger := asynqutils.GetLogger(ctx)
	items, err := graphutils.GetTeamsFromDB(ctx)
	if err != nil {
		logger.Error("failed to get teams from db", "reason", err)

		return err
	}

	for _, item := range items {
		payload := CollectTeamMembersPayload{
			TenantID: item.TenantID,
			TeamID:   item.TeamID,
		}
		data, err := json.Marshal(payload)
		if err != nil {
			logger.Error(
				"failed to marshal payload for team member collection",
				"tenant_id", item.TenantID,
				"team_id", item.TeamID,
				"reason", err,
			)

			continue
		}
		task := asynq.NewTask(TaskCollectTeamMembers, data)
		info, err := asynqclient.Client.Enqueue(task)
		if err != nil {
			logger.Error(
				"failed to enqueue task",
				"type", task.Type(),
				"team_id", item.TeamID,
				"reason", err,
			)

			continue
		}

		logger.Info(
			"enqueued task",
			"type", task.Type(),
			"id", info.ID,
			"queue", info.Queue,
			"team_id", item.TeamID,
		)
	}

	return nil
}

// collectTeamMembers collects the membership roster of the team specified in
// the payload.
func collectTeamMembers(ctx context.Context, payload CollectTeamMembersPayload) error {
	client, ok := graphclients.Clientset.Get(payload.TenantID)
	if !ok {
		return asynqutils.SkipRetry(ClientNotFound(payload.TenantID))
	}

	logger := asynqutils.GetLogger(ctx)
	logger.Info(
		"collecting team members",
		"tenant_id", payload.TenantID,
		"team_id", payload.TeamID,
	)

	result, err := client.Client.Teams().ByTeamId(payload.TeamID).Members().Get(ctx, nil)
	if err != nil {
		logger.Error(
			"failed to get team members",
			"tenant_id", payload.TenantID,
			"team_id", payload.TeamID,
			"reason", err,
		)

		return graphutils.MaybeSkipRetry(err)
	}

	iter, err := msgraphcore.NewPageIterator[graphmodels.ConversationMemberable](
		result,
		client.Client.GetAdapter(),
		graphmodels.CreateConversationMemberCollectionResponseFromDiscriminatorValue,
	)
	if err != nil {
		return err
	}

	items := make([]models.TeamMember, 0)
	err = iter.Iterate(ctx, func(item graphmodels.ConversationMemberable) bool {
		membershipID := ptr.Value(item.GetId(), "")
		if membershipID == "" {
			return true
		}

		member := models.TeamMember{
			TenantID:     payload.TenantID,
			TeamID:       payload.TeamID,
			MembershipID: membershipID,
			DisplayName:  ptr.Value(item.GetDisplayName(), ""),
			Roles:        strings.Join(item.GetRoles(), ","),
		}

		if aadMember, ok := item.(graphmodels.AadUserConversationMemberable); ok {
			member.UserID = ptr.Value(aadMember.GetUserId(), "")
		}
		items = append(items, member)

		return true
	})
	if err != nil {
		return graphutils.MaybeSkipRetry(err)
	}

	if len(items) == 0 {
		return nil
	}

	out, err := db.DB.NewInsert().
		Model(&items).
		On("CONFLICT (tenant_id, team_id, membership_id) DO UPDATE").
		Set("member_user_id = EXCLUDED.member_user_id").
		Set("display_name = EXCLUDED.display_name").
		Set("roles = EXCLUDED.roles").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("id").
		Exec(ctx)

	if err != nil {
		return err
	}

	count, err := out.RowsAffected()
	if err != nil {
		return err
	}

	logger.Info(
		"populated team members",
		"count", count,
		"tenant_id", payload.TenantID,
		"team_id", payload.TeamID,
	)

	return nil
}

// ArchiveTeamPayload is the payload used for archiving a team.
type ArchiveTeamPayload struct {
	// TenantID specifies the tenant of the team.
	TenantID string `json:"tenant_id" yaml:"tenant_id"`

	// TeamID specifies the team to be archived.
	TeamID string `json:"team_id" yaml:"team_id"`

	// SetSPOSiteReadOnly specifies whether to make the backing SharePoint
	// site read-only for members while the team is archived.
	SetSPOSiteReadOnly bool `json:"set_spo_site_read_only" yaml:"set_spo_site_read_only"`
}

// HandleArchiveTeamTask is the handler, which archives a team.
func HandleArchiveTeamTask(ctx context.Context, t *asynq.Task) error {
	data := t.Payload()
	if data == nil {
		return asynqutils.SkipRetry(ErrNoPayload)
	}

	var payload ArchiveTeamPayload
	if err := asynqutils.Unmarshal(data, &payload); err != nil {
		return asynqutils.SkipRetry(err)
	}

	if payload.TenantID == "" {
		return asynqutils.SkipRetry(ErrNoTenantID)
	}
	if payload.TeamID == "" {
		return asynqutils.SkipRetry(ErrNoTeamID)
	}

	client, ok := graphclients.Clientset.Get(payload.TenantID)
	if !ok {
		return asynqutils.SkipRetry(ClientNotFound(payload.TenantID))
	}

	logger := asynqutils.GetLogger(ctx)
	logger.Info(
		"archiving team",
		"tenant_id", payload.TenantID,
		"team_id", payload.TeamID,
	)

	requestBody := teams.NewItemArchivePostRequestBody()
	requestBody.SetShouldSetSpoSiteReadOnlyForMembers(ptr.To(payload.SetSPOSiteReadOnly))
	err := client.Client.Teams().ByTeamId(payload.TeamID).Archive().Post(ctx, requestBody, nil)
	if err != nil {
		logger.Error(
			"failed to archive team",
			"tenant_id", payload.TenantID,
			"team_id", payload.TeamID,
			"reason", err,
		)

		return graphutils.MaybeSkipRetry(err)
	}

	return nil
}
