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
	"github.com/microsoftgraph/msgraph-sdk-go/groups"
	graphmodels "github.com/microsoftgraph/msgraph-sdk-go/models"

	asynqclient "github.com/m365ops/tenantctl/pkg/clients/asynq"
	"github.com/m365ops/tenantctl/pkg/clients/db"
	graphclients "github.com/m365ops/tenantctl/pkg/clients/graph"
	"github.com/m365ops/tenantctl/pkg/core/registry"
	"github.com/m365ops/tenantctl/pkg/graph/constants"
	"github.com/m365ops/tenantctl/pkg/graph/models"
	graphutils "github.com/m365ops/tenantctl/pkg/graph/utils"
	asynqutils "github.com/m365ops/tenantctl/pkg/utils/asynq"
	"github.com/m365ops/tenantctl/pkg/utils/ptr"
)

const (
	// TaskCollectGroups is the name of the task for collecting Microsoft
	// Entra groups.
	TaskCollectGroups = "groups:task:collect-groups"

	// TaskCollectGroupMembers is the name of the task for collecting the
	// members of a group.
	TaskCollectGroupMembers = "groups:task:collect-group-members"

	// TaskCreateGroup is the name of the task for creating a new group.
	TaskCreateGroup = "groups:task:create-group"

	// TaskDeleteGroup is the name of the task for deleting a group.
	TaskDeleteGroup = "groups:task:delete-group"

	// TaskAddGroupMember is the name of the task for adding a member to a
	// group.
	TaskAddGroupMember = "groups:task:add-member"

	// TaskRemoveGroupMember is the name of the task for removing a member
	// from a group.
	TaskRemoveGroupMember = "groups:task:remove-member"
)

// CollectGroupsPayload is the payload used for collecting groups.
type CollectGroupsPayload struct {
	// TenantID specifies the tenant from which to collect.
	TenantID string `json:"tenant_id" yaml:"tenant_id"`
}

// NewCollectGroupsTask creates a new [asynq.Task] for collecting groups,
// without specifying a payload.
func NewCollectGroupsTask() *asynq.Task {
	return asynq.NewTask(TaskCollectGroups, nil)
}

// HandleCollectGroupsTask is the handler, which collects groups.
func HandleCollectGroupsTask(ctx context.Context, t *asynq.Task) error {
	data := t.Payload()
	if data == nil {
		return enqueueCollectGroups(ctx)
	}

	var payload CollectGroupsPayload
	if err := asynqutils.Unmarshal(data, &payload); err != nil {
		return asynqutils.SkipRetry(err)
	}

	if payload.TenantID == "" {
		return asynqutils.SkipRetry(ErrNoTenantID)
	}

	return collectGroups(ctx, payload)
}

// enqueueCollectGroups enqueues tasks for collecting groups from all known
// tenants.
func enqueueCollectGroups(ctx context.Context) error {
	logger := asynqutils.GetLogger(ctx)
	if graphclients.Clientset.Length() == 0 {
		logger.Warn("no Microsoft Graph clients found")

		return nil
	}

	return graphclients.Clientset.Range(func(tenantID string, _ *graphclients.Client[*msgraphsdk.GraphServiceClient]) error {
		payload := CollectGroupsPayload{
			TenantID: tenantID,
		}
		data, err := json.Marshal(payload)
		if err != nil {
			logger.Error(
				"failed to marshal payload for group collection",
				"tenant_id", tenantID,
				"reason", err,
			)

			return registry.ErrContinue
		}
		task := asynq.NewTask(TaskCollectGroups, data)
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

// collectGroups collects the groups from the tenant specified in the payload.
func collectGroups(ctx context.Context, payload CollectGroupsPayload) error {
	client, ok := graphclients.Clientset.Get(payload.TenantID)
	if !ok {
		return asynqutils.SkipRetry(ClientNotFound(payload.TenantID))
	}

	logger := asynqutils.GetLogger(ctx)
	logger.Info("collecting groups", "tenant_id", payload.TenantID)

	requestConfig := &groups.GroupsRequestBuilderGetRequestConfiguration{
		QueryParameters: &groups.GroupsRequestBuilderGetQueryParameters{
			Select: []string{
				"id",
				"displayName",
				"description",
				"mail",
				"mailEnabled",
				"securityEnabled",
				"groupTypes",
				"visibility",
			},
			Top: ptr.To(int32(constants.PageSize)),
		},
	}
	result, err := client.Client.Groups().Get(ctx, requestConfig)
	if err != nil {
		logger.Error(
			"failed to get groups",
			"tenant_id", payload.TenantID,
			"reason", err,
		)

		return graphutils.MaybeSkipRetry(err)
	}

	iter, err := msgraphcore.NewPageIterator[graphmodels.Groupable](
		result,
		client.Client.GetAdapter(),
		graphmodels.CreateGroupCollectionResponseFromDiscriminatorValue,
	)
	if err != nil {
		return err
	}

	items := make([]models.Group, 0)
	err = iter.Iterate(ctx, func(item graphmodels.Groupable) bool {
		groupID := ptr.Value(item.GetId(), "")
		if groupID == "" {
			return true
		}

		group := models.Group{
			TenantID:        payload.TenantID,
			GroupID:         groupID,
			DisplayName:     ptr.Value(item.GetDisplayName(), ""),
			Description:     ptr.Value(item.GetDescription(), ""),
			Mail:            ptr.Value(item.GetMail(), ""),
			MailEnabled:     ptr.Value(item.GetMailEnabled(), false),
			SecurityEnabled: ptr.Value(item.GetSecurityEnabled(), false),
			GroupTypes:      strings.Join(item.GetGroupTypes(), ","),
			Visibility:      ptr.Value(item.GetVisibility(), ""),
		}
		items = append(items, group)

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
		On("CONFLICT (tenant_id, group_id) DO UPDATE").
		Set("display_name = EXCLUDED.display_name").
		Set("description = EXCLUDED.description").
		Set("mail = EXCLUDED.mail").
		Set("mail_enabled = EXCLUDED.mail_enabled").
		Set("security_enabled = EXCLUDED.security_enabled").
		Set("group_types = EXCLUDED.group_types").
		Set("visibility = EXCLUDED.visibility").
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

	logger.Info("populated groups", "count", count, "tenant_id", payload.TenantID)
	groupsMetric(payload.TenantID, len(items))

	return nil
}

// CollectGroupMembersPayload is the payload used for collecting the members
// of a group.
type CollectGroupMembersPayload struct {
	// TenantID specifies the tenant of the group.
	TenantID string `json:"tenant_id" yaml:"tenant_id"`

	// GroupID specifies the group whose members will be collected.
	GroupID string `json:"group_id" yaml:"group_id"`
}

// NewCollectGroupMembersTask creates a new [asynq.Task] for collecting group
// members, without specifying a payload.
func NewCollectGroupMembersTask() *asynq.Task {
	return asynq.NewTask(TaskCollectGroupMembers, nil)
}

// HandleCollectGroupMembersTask is the handler, which collects the members of
// groups. When called without a payload it enqueues member collection for
// each already collected group.
func HandleCollectGroupMembersTask(ctx context.Context, t *asynq.Task) error {
	data := t.Payload()
	if data == nil {
		return enqueueCollectGroupMembers(ctx)
	}

	var payload CollectGroupMembersPayload
	if err := asynqutils.Unmarshal(data, &payload); err != nil {
		return asynqutils.SkipRetry(err)
	}

	if payload.TenantID == "" {
		return asynqutils.SkipRetry(ErrNoTenantID)
	}
	if payload.GroupID == "" {
		return asynqutils.SkipRetry(ErrNoGroupID)
	}

	return collectGroupMembers(ctx, payload)
}

// enqueueCollectGroupMembers enqueues tasks for collecting the members of all
// groups which are known to the database.
func enqueueCollectGroupMembers(ctx context.Context) error {
	logger := asynqutils.GetLogger(ctx)
	items, err := graphutils.GetGroupsFromDB(ctx)
	if err != nil {
		logger.Error("failed to get groups from db", "reason", err)

		return err
	}

	for _, item := range items {
		payload := CollectGroupMembersPayload{
			TenantID: item.TenantID,
			GroupID:  item.GroupID,
		}
		data, err := json.Marshal(payload)
		if err != nil {
			logger.Error(
				"failed to marshal payload for group member collection",
				"tenant_id", item.TenantID,
				"group_id", item.GroupID,
				"reason", err,
			)

			continue
		}
		task := asynq.NewTask(TaskCollectGroupMembers, data)
		info, err := asynqclient.Client.Enqueue(task)
		if err != nil {
			logger.Error(
				"failed to enqueue task",
				"type", task.Type(),
				"tenant_id", item.TenantID,
				"group_id", item.GroupID,
				"reason", err,
			)

			continue
		}

		logger.Info(
			"enqueued task",
			"type", task.Type(),
			"id", info.ID,
			"queue", info.Queue,
			"group_id", item.GroupID,
		)
	}

	return nil
}

// collectGroupMembers collects the members of the group specified in the
// payload.
func collectGroupMembers(ctx context.Context, payload CollectGroupMembersPayload) error {
	client, ok := graphclients.Clientset.Get(payload.TenantID)
	if !ok {
		return asynqutils.SkipRetry(ClientNotFound(payload.TenantID))
	}

	logger := asynqutils.GetLogger(ctx)
	logger.Info(
		"collecting group members",
		"tenant_id", payload.TenantID,
		"group_id", payload.GroupID,
	)

	result, err := client.Client.Groups().ByGroupId(payload.GroupID).Members().Get(ctx, nil)
	if err != nil {
		logger.Error(
			"failed to get group members",
			"tenant_id", payload.TenantID,
			"group_id", payload.GroupID,
			"reason", err,
		)

		return graphutils.MaybeSkipRetry(err)
	}

	iter, err := msgraphcore.NewPageIterator[graphmodels.DirectoryObjectable](
		result,
		client.Client.GetAdapter(),
		graphmodels.CreateDirectoryObjectCollectionResponseFromDiscriminatorValue,
	)
	if err != nil {
		return err
	}

	items := make([]models.GroupMember, 0)
	err = iter.Iterate(ctx, func(item graphmodels.DirectoryObjectable) bool {
		memberID := ptr.Value(item.GetId(), "")
		if memberID == "" {
			return true
		}

		member := models.GroupMember{
			TenantID:   payload.TenantID,
			GroupID:    payload.GroupID,
			MemberID:   memberID,
			MemberType: constants.MemberTypeUnknown,
		}

		switch obj := item.(type) {
		case graphmodels.Userable:
			member.MemberType = constants.MemberTypeUser
			member.DisplayName = ptr.Value(obj.GetDisplayName(), "")
		case graphmodels.Groupable:
			member.MemberType = constants.MemberTypeGroup
			member.DisplayName = ptr.Value(obj.GetDisplayName(), "")
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
		On("CONFLICT (tenant_id, group_id, member_id) DO UPDATE").
		Set("member_type = EXCLUDED.member_type").
		Set("display_name = EXCLUDED.display_name").
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
		"populated group members",
		"count", count,
		"tenant_id", payload.TenantID,
		"group_id", payload.GroupID,
	)

	return nil
}

// CreateGroupPayload is the payload used for creating a new group.
type CreateGroupPayload struct {
	// TenantID specifies the tenant in which to create the group.
	TenantID string `json:"tenant_id" yaml:"tenant_id"`

	// DisplayName specifies the display name of the new group.
	DisplayName string `json:"display_name" yaml:"display_name"`

	// Description specifies the description of the new group.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// MailNickname specifies the mail alias of the new group. When empty a
	// nickname is derived from the display name.
	MailNickname string `json:"mail_nickname,omitempty" yaml:"mail_nickname,omitempty"`

	// SecurityEnabled specifies whether to create a security group.
	SecurityEnabled bool `json:"security_enabled" yaml:"security_enabled"`

	// MailEnabled specifies whether to create a mail-enabled group.
	MailEnabled bool `json:"mail_enabled" yaml:"mail_enabled"`
}

// HandleCreateGroupTask is the handler, which creates a new group.
func HandleCreateGroupTask(ctx context.Context, t *asynq.Task) error {
	data := t.Payload()
	if data == nil {
		return asynqutils.SkipRetry(ErrNoPayload)
	}

	var payload CreateGroupPayload
	if err := asynqutils.Unmarshal(data, &payload); err != nil {
		return asynqutils.SkipRetry(err)
	}

	if payload.TenantID == "" {
		return asynqutils.SkipRetry(ErrNoTenantID)
	}
	if payload.DisplayName == "" {
		return asynqutils.SkipRetry(ErrNoDisplayName)
	}

	return createGroup(ctx, payload)
}

// createGroup creates the group specified in the given payload.
func createGroup(ctx context.Context, payload CreateGroupPayload) error {
	client, ok := graphclients.Clientset.Get(payload.TenantID)
	if !ok {
		return asynqutils.SkipRetry(ClientNotFound(payload.TenantID))
	}

	logger := asynqutils.GetLogger(ctx)
	logger.Info(
		"creating group",
		"tenant_id", payload.TenantID,
		"display_name", payload.DisplayName,
	)

	mailNickname := payload.MailNickname
	if mailNickname == "" {
		mailNickname = strings.ReplaceAll(strings.ToLower(payload.DisplayName), " ", "-")
	}

	group := graphmodels.NewGroup()
	group.SetDisplayName(ptr.To(payload.DisplayName))
	group.SetMailNickname(ptr.To(mailNickname))
	group.SetMailEnabled(ptr.To(payload.MailEnabled))
	group.SetSecurityEnabled(ptr.To(payload.SecurityEnabled))
	if payload.Description != "" {
		group.SetDescription(ptr.To(payload.Description))
	}

	created, err := client.Client.Groups().Post(ctx, group, nil)
	if err != nil {
		logger.Error(
			"failed to create group",
			"tenant_id", payload.TenantID,
			"display_name", payload.DisplayName,
			"reason", err,
		)

		return graphutils.MaybeSkipRetry(err)
	}

	logger.Info(
		"created group",
		"tenant_id", payload.TenantID,
		"display_name", payload.DisplayName,
		"group_id", ptr.Value(created.GetId(), ""),
	)

	return nil
}

// DeleteGroupPayload is the payload used for deleting a group.
type DeleteGroupPayload struct {
	// TenantID specifies the tenant of the group.
	TenantID string `json:"tenant_id" yaml:"tenant_id"`

	// GroupID specifies the group to be deleted.
	GroupID string `json:"group_id" yaml:"group_id"`
}

// HandleDeleteGroupTask is the handler, which deletes a group.
func HandleDeleteGroupTask(ctx context.Context, t *asynq.Task) error {
	data := t.Payload()
	if data == nil {
		return asynqutils.SkipRetry(ErrNoPayload)
	}

	var payload DeleteGroupPayload
	if err := asynqutils.Unmarshal(data, &payload); err != nil {
		return asynqutils.SkipRetry(err)
	}

	if payload.TenantID == "" {
		return asynqutils.SkipRetry(ErrNoTenantID)
	}
	if payload.GroupID == "" {
		return asynqutils.SkipRetry(ErrNoGroupID)
	}

	client, ok := graphclients.Clientset.Get(payload.TenantID)
	if !ok {
		return asynqutils.SkipRetry(ClientNotFound(payload.TenantID))
	}

	logger := asynqutils.GetLogger(ctx)
	logger.Info(
		"deleting group",
		"tenant_id", payload.TenantID,
		"group_id", payload.GroupID,
	)

	if err := client.Client.Groups().ByGroupId(payload.GroupID).Delete(ctx, nil); err != nil {
		logger.Error(
			"failed to delete group",
			"tenant_id", payload.TenantID,
			"group_id", payload.GroupID,
			"reason", err,
		)

		return graphutils.MaybeSkipRetry(err)
	}

	return nil
}

// GroupMemberPayload is the payload used for adding a member to, or removing
// a member from a group.
type GroupMemberPayload struct {
	// TenantID specifies the tenant of the group.
	TenantID string `json:"tenant_id" yaml:"tenant_id"`

	// GroupID specifies the group whose membership will be changed.
	GroupID string `json:"group_id" yaml:"group_id"`

	// MemberID specifies the directory object id of the member.
	MemberID string `json:"member_id" yaml:"member_id"`
}

// validate validates the payload.
func (p *GroupMemberPayload) validate() error {
	if p.TenantID == "" {
		return asynqutils.SkipRetry(ErrNoTenantID)
	}
	if p.GroupID == "" {
		return asynqutils.SkipRetry(ErrNoGroupID)
	}
	if p.MemberID == "" {
		return asynqutils.SkipRetry(ErrNoMemberID)
	}

	return nil
}

// HandleAddGroupMemberTask is the handler, which adds a member to a group.
func HandleAddGroupMemberTask(ctx context.Context, t *asynq.Task) error {
	data := t.Payload()
	if data == nil {
		return asynqutils.SkipRetry(ErrNoPayload)
	}

	var payload GroupMemberPayload
	if err := asynqutils.Unmarshal(data, &payload); err != nil {
		return asynqutils.SkipRetry(err)
	}
	if err := payload.validate(); err != nil {
		return err
	}

	return addGroupMember(ctx, payload)
}

// addGroupMember adds the member specified in the payload to the group.
func addGroupMember(ctx context.Context, payload GroupMemberPayload) error {
	client, ok := graphclients.Clientset.Get(payload.TenantID)
	if !ok {
		return asynqutils.SkipRetry(ClientNotFound(payload.TenantID))
	}

	logger := asynqutils.GetLogger(ctx)
	logger.Info(
		"adding group member",
		"tenant_id", payload.TenantID,
		"group_id", payload.GroupID,
		"member_id", payload.MemberID,
	)

	ref := graphmodels.NewReferenceCreate()
	ref.SetOdataId(ptr.To("https://graph.microsoft.com/v1.0/directoryObjects/" + payload.MemberID))
	err := client.Client.Groups().ByGroupId(payload.GroupID).Members().Ref().Post(ctx, ref, nil)
	if err != nil {
		logger.Error(
			"failed to add group member",
			"tenant_id", payload.TenantID,
			"group_id", payload.GroupID,
			"member_id", payload.MemberID,
			"reason", err,
		)

		return graphutils.MaybeSkipRetry(err)
	}

	return nil
}

// HandleRemoveGroupMemberTask is the handler, which removes a member from a
// group.
func HandleRemoveGroupMemberTask(ctx context.Context, t *asynq.Task) error {
	data := t.Payload()
	if data == nil {
		return asynqutils.SkipRetry(ErrNoPayload)
	}

	var payload GroupMemberPayload
	if err := asynqutils.Unmarshal(data, &payload); err != nil {
		return asynqutils.SkipRetry(err)
	}
	if err := payload.validate(); err != nil {
		return err
	}

	client, ok := graphclients.Clientset.Get(payload.TenantID)
	if !ok {
		return asynqutils.SkipRetry(ClientNotFound(payload.TenantID))
	}

	logger := asynqutils.GetLogger(ctx)
	logger.Info(
		"removing group member",
		"tenant_id", payload.TenantID,
		"group_id", payload.GroupID,
		"member_id", payload.MemberID,
	)

	err := client.Client.Groups().
		ByGroupId(payload.GroupID).
		Members().
		ByDirectoryObjectId(payload.MemberID).
		Ref().
		Delete(ctx, nil)
	if err != nil {
		logger.Error(
			"failed to remove group member",
			"tenant_id", payload.TenantID,
			"group_id", payload.GroupID,
			"member_id", payload.MemberID,
			"reason", err,
		)

		return graphutils.MaybeSkipRetry(err)
	}

	return nil
}
