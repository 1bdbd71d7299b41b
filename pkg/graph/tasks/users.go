// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	msgraphcore "github.com/microsoftgraph/msgraph-sdk-go-core"
	graphmodels "github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/users"

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
	// TaskCollectUsers is the name of the task for collecting Microsoft
	// Entra user accounts.
	TaskCollectUsers = "users:task:collect-users"

	// TaskCollectUser is the name of the task for collecting a single
	// Microsoft Entra user account.
	TaskCollectUser = "users:task:collect-user"

	// TaskCreateUser is the name of the task for creating a new user
	// account.
	TaskCreateUser = "users:task:create-user"

	// TaskUpdateUser is the name of the task for updating attributes of an
	// existing user account.
	TaskUpdateUser = "users:task:update-user"

	// TaskDeleteUser is the name of the task for deleting a user account.
	TaskDeleteUser = "users:task:delete-user"

	// TaskDisableUser is the name of the task for disabling sign-in for a
	// user account.
	TaskDisableUser = "users:task:disable-user"

	// TaskRevokeSessions is the name of the task for revoking the refresh
	// tokens of a user account.
	TaskRevokeSessions = "users:task:revoke-sessions"

	// TaskCollectSignInActivity is the name of the task for collecting the
	// sign-in activity of user accounts.
	TaskCollectSignInActivity = "users:task:collect-signin-activity"
)

// userSelectFields are the user properties requested when collecting user
// accounts.
var userSelectFields = []string{
	"id",
	"userPrincipalName",
	"displayName",
	"givenName",
	"surname",
	"mail",
	"jobTitle",
	"department",
	"officeLocation",
	"usageLocation",
	"accountEnabled",
	"createdDateTime",
}

// CollectUsersPayload is the payload used for collecting user accounts.
type CollectUsersPayload struct {
	// TenantID specifies the tenant from which to collect.
	TenantID string `json:"tenant_id" yaml:"tenant_id"`
}

// NewCollectUsersTask creates a new [asynq.Task] for collecting user
// accounts, without specifying a payload.
func NewCollectUsersTask() *asynq.Task {
	return asynq.NewTask(TaskCollectUsers, nil)
}

// HandleCollectUsersTask is the handler, which collects user accounts.
func HandleCollectUsersTask(ctx context.Context, t *asynq.Task) error {
	// If we were called without a payload, then we enqueue collection from
	// all known tenants.
	data := t.Payload()
	if data == nil {
		return enqueueCollectUsers(ctx)
	}

	var payload CollectUsersPayload
	if err := asynqutils.Unmarshal(data, &payload); err != nil {
		return asynqutils.SkipRetry(err)
	}

	if payload.TenantID == "" {
		return asynqutils.SkipRetry(ErrNoTenantID)
	}

	return collectUsers(ctx, payload)
}

// enqueueCollectUsers enqueues tasks for collecting user accounts from all
// known tenants.
func enqueueCollectUsers(ctx context.Context) error {
	logger := asynqutils.GetLogger(ctx)
	if graphclients.Clientset.Length() == 0 {
		logger.Warn("no Microsoft Graph clients found")

		return nil
	}

	return graphclients.Clientset.Range(func(tenantID string, _ *graphclients.Client[*msgraphsdk.GraphServiceClient]) error {
		payload := CollectUsersPayload{
			TenantID: tenantID,
		}
		data, err := json.Marshal(payload)
		if err != nil {
			logger.Error(
				"failed to marshal payload for user collection",
				"tenant_id", tenantID,
				"reason", err,
			)

			return registry.ErrContinue
		}
		task := asynq.NewTask(TaskCollectUsers, data)
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

// collectUsers collects the user accounts from the tenant specified in the
// payload.
func collectUsers(ctx context.Context, payload CollectUsersPayload) error {
	client, ok := graphclients.Clientset.Get(payload.TenantID)
	if !ok {
		return asynqutils.SkipRetry(ClientNotFound(payload.TenantID))
	}

	logger := asynqutils.GetLogger(ctx)
	logger.Info("collecting users", "tenant_id", payload.TenantID)

	requestConfig := &users.UsersRequestBuilderGetRequestConfiguration{
		QueryParameters: &users.UsersRequestBuilderGetQueryParameters{
			Select: userSelectFields,
			Top:    ptr.To(int32(constants.PageSize)),
		},
	}
	result, err := client.Client.Users().Get(ctx, requestConfig)
	if err != nil {
		logger.Error(
			"failed to get users",
			"tenant_id", payload.TenantID,
			"reason", err,
		)

		return graphutils.MaybeSkipRetry(err)
	}

	iter, err := msgraphcore.NewPageIterator[graphmodels.Userable](
		result,
		client.Client.GetAdapter(),
		graphmodels.CreateUserCollectionResponseFromDiscriminatorValue,
	)
	if err != nil {
		return err
	}

	items := make([]models.User, 0)
	err = iter.Iterate(ctx, func(item graphmodels.Userable) bool {
		userID := ptr.Value(item.GetId(), "")
		if userID == "" {
			return true
		}

		user := models.User{
			TenantID:          payload.TenantID,
			UserID:            userID,
			UserPrincipalName: ptr.Value(item.GetUserPrincipalName(), ""),
			DisplayName:       ptr.Value(item.GetDisplayName(), ""),
			GivenName:         ptr.Value(item.GetGivenName(), ""),
			Surname:           ptr.Value(item.GetSurname(), ""),
			Mail:              ptr.Value(item.GetMail(), ""),
			JobTitle:          ptr.Value(item.GetJobTitle(), ""),
			Department:        ptr.Value(item.GetDepartment(), ""),
			OfficeLocation:    ptr.Value(item.GetOfficeLocation(), ""),
			UsageLocation:     ptr.Value(item.GetUsageLocation(), ""),
			AccountEnabled:    ptr.Value(item.GetAccountEnabled(), false),
			UserCreatedAt:     ptr.Value(item.GetCreatedDateTime(), time.Time{}),
		}
		items = append(items, user)

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
		On("CONFLICT (tenant_id, user_id) DO UPDATE").
		Set("user_principal_name = EXCLUDED.user_principal_name").
		Set("display_name = EXCLUDED.display_name").
		Set("given_name = EXCLUDED.given_name").
		Set("surname = EXCLUDED.surname").
		Set("mail = EXCLUDED.mail").
		Set("job_title = EXCLUDED.job_title").
		Set("department = EXCLUDED.department").
		Set("office_location = EXCLUDED.office_location").
		Set("usage_location = EXCLUDED.usage_location").
		Set("account_enabled = EXCLUDED.account_enabled").
		Set("user_created_at = EXCLUDED.user_created_at").
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

	logger.Info("populated users", "count", count, "tenant_id", payload.TenantID)
	usersMetric(payload.TenantID, len(items))

	return nil
}

// CollectUserPayload is the payload used for collecting a single user
// account.
type CollectUserPayload struct {
	// TenantID specifies the tenant from which to collect.
	TenantID string `json:"tenant_id" yaml:"tenant_id"`

	// UserPrincipalName specifies the principal name of the user to be
	// collected.
	UserPrincipalName string `json:"user_principal_name" yaml:"user_principal_name"`
}

// HandleCollectUserTask is the handler, which collects a single user account.
func HandleCollectUserTask(ctx context.Context, t *asynq.Task) error {
	data := t.Payload()
	if data == nil {
		return asynqutils.SkipRetry(ErrNoPayload)
	}

	var payload CollectUserPayload
	if err := asynqutils.Unmarshal(data, &payload); err != nil {
		return asynqutils.SkipRetry(err)
	}

	if payload.TenantID == "" {
		return asynqutils.SkipRetry(ErrNoTenantID)
	}
	if payload.UserPrincipalName == "" {
		return asynqutils.SkipRetry(ErrNoUserPrincipalName)
	}

	return collectUser(ctx, payload)
}

// collectUser collects the user account specified in the given payload.
func collectUser(ctx context.Context, payload CollectUserPayload) error {
	client, ok := graphclients.Clientset.Get(payload.TenantID)
	if !ok {
		return asynqutils.SkipRetry(ClientNotFound(payload.TenantID))
	}

	logger := asynqutils.GetLogger(ctx)
	logger.Info(
		"collecting user",
		"tenant_id", payload.TenantID,
		"user_principal_name", payload.UserPrincipalName,
	)

	// The users item endpoint accepts the user principal name in place of
	// the object id.
	requestConfig := &users.UserItemRequestBuilderGetRequestConfiguration{
		QueryParameters: &users.UserItemRequestBuilderGetQueryParameters{
			Select: userSelectFields,
		},
	}
	item, err := client.Client.Users().ByUserId(payload.UserPrincipalName).Get(ctx, requestConfig)
	if err != nil {
		logger.Error(
			"failed to get user",
			"tenant_id", payload.TenantID,
			"user_principal_name", payload.UserPrincipalName,
			"reason", err,
		)

		return graphutils.MaybeSkipRetry(err)
	}

	userID := ptr.Value(item.GetId(), "")
	if userID == "" {
		logger.Warn(
			"empty id received for user",
			"tenant_id", payload.TenantID,
			"user_principal_name", payload.UserPrincipalName,
		)

		return nil
	}

	user := models.User{
		TenantID:          payload.TenantID,
		UserID:            userID,
		UserPrincipalName: ptr.Value(item.GetUserPrincipalName(), ""),
		DisplayName:       ptr.Value(item.GetDisplayName(), ""),
		GivenName:         ptr.Value(item.GetGivenName(), ""),
		Surname:           ptr.Value(item.GetSurname(), ""),
		Mail:              ptr.Value(item.GetMail(), ""),
		JobTitle:          ptr.Value(item.GetJobTitle(), ""),
		Department:        ptr.Value(item.GetDepartment(), ""),
		OfficeLocation:    ptr.Value(item.GetOfficeLocation(), ""),
		UsageLocation:     ptr.Value(item.GetUsageLocation(), ""),
		AccountEnabled:    ptr.Value(item.GetAccountEnabled(), false),
		UserCreatedAt:     ptr.Value(item.GetCreatedDateTime(), time.Time{}),
	}

	_, err = db.DB.NewInsert().
		Model(&user).
		On("CONFLICT (tenant_id, user_id) DO UPDATE").
		Set("user_principal_name = EXCLUDED.user_principal_name").
		Set("display_name = EXCLUDED.display_name").
		Set("given_name = EXCLUDED.given_name").
		Set("surname = EXCLUDED.surname").
		Set("mail = EXCLUDED.mail").
		Set("job_title = EXCLUDED.job_title").
		Set("department = EXCLUDED.department").
		Set("office_location = EXCLUDED.office_location").
		Set("usage_location = EXCLUDED.usage_location").
		Set("account_enabled = EXCLUDED.account_enabled").
		Set("user_created_at = EXCLUDED.user_created_at").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("id").
		Exec(ctx)

	return err
}

// CreateUserPayload is the payload used for creating a new user account.
type CreateUserPayload struct {
	// TenantID specifies the tenant in which to create the user.
	TenantID string `json:"tenant_id" yaml:"tenant_id"`

	// UserPrincipalName specifies the principal name of the new user.
	UserPrincipalName string `json:"user_principal_name" yaml:"user_principal_name"`

	// DisplayName specifies the display name of the new user.
	DisplayName string `json:"display_name" yaml:"display_name"`

	// MailNickname specifies the mail alias of the new user.
	MailNickname string `json:"mail_nickname" yaml:"mail_nickname"`

	// GivenName specifies the given name of the new user.
	GivenName string `json:"given_name" yaml:"given_name"`

	// Surname specifies the surname of the new user.
	Surname string `json:"surname" yaml:"surname"`

	// JobTitle specifies the job title of the new user.
	JobTitle string `json:"job_title" yaml:"job_title"`

	// Department specifies the department of the new user.
	Department string `json:"department" yaml:"department"`

	// UsageLocation specifies the usage location of the new user, required
	// before a license can be assigned.
	UsageLocation string `json:"usage_location" yaml:"usage_location"`

	// Password specifies the initial password of the new user. The user is
	// required to change it on first sign-in.
	Password string `json:"password" yaml:"password"`
}

// HandleCreateUserTask is the handler, which creates a new user account.
func HandleCreateUserTask(ctx context.Context, t *asynq.Task) error {
	data := t.Payload()
	if data == nil {
		return asynqutils.SkipRetry(ErrNoPayload)
	}

	var payload CreateUserPayload
	if err := asynqutils.Unmarshal(data, &payload); err != nil {
		return asynqutils.SkipRetry(err)
	}

	if payload.TenantID == "" {
		return asynqutils.SkipRetry(ErrNoTenantID)
	}
	if payload.UserPrincipalName == "" {
		return asynqutils.SkipRetry(ErrNoUserPrincipalName)
	}
	if payload.DisplayName == "" {
		return asynqutils.SkipRetry(ErrNoDisplayName)
	}

	_, err := createUser(ctx, payload)

	return err
}

// createUser creates the user account specified in the given payload and
// returns the object id of the new user.
func createUser(ctx context.Context, payload CreateUserPayload) (string, error) {
	client, ok := graphclients.Clientset.Get(payload.TenantID)
	if !ok {
		return "", asynqutils.SkipRetry(ClientNotFound(payload.TenantID))
	}

	logger := asynqutils.GetLogger(ctx)
	logger.Info(
		"creating user",
		"tenant_id", payload.TenantID,
		"user_principal_name", payload.UserPrincipalName,
	)

	passwordProfile := graphmodels.NewPasswordProfile()
	passwordProfile.SetPassword(ptr.To(payload.Password))
	passwordProfile.SetForceChangePasswordNextSignIn(ptr.To(true))

	user := graphmodels.NewUser()
	user.SetAccountEnabled(ptr.To(true))
	user.SetUserPrincipalName(ptr.To(payload.UserPrincipalName))
	user.SetDisplayName(ptr.To(payload.DisplayName))
	user.SetMailNickname(ptr.To(payload.MailNickname))
	user.SetPasswordProfile(passwordProfile)

	if payload.GivenName != "" {
		user.SetGivenName(ptr.To(payload.GivenName))
	}
	if payload.Surname != "" {
		user.SetSurname(ptr.To(payload.Surname))
	}
	if payload.JobTitle != "" {
		user.SetJobTitle(ptr.To(payload.JobTitle))
	}
	if payload.Department != "" {
		user.SetDepartment(ptr.To(payload.Department))
	}
	if payload.UsageLocation != "" {
		user.SetUsageLocation(ptr.To(payload.UsageLocation))
	}

	created, err := client.Client.Users().Post(ctx, user, nil)
	if err != nil {
		logger.Error(
			"failed to create user",
			"tenant_id", payload.TenantID,
			"user_principal_name", payload.UserPrincipalName,
			"reason", err,
		)

		return "", graphutils.MaybeSkipRetry(err)
	}

	userID := ptr.Value(created.GetId(), "")
	logger.Info(
		"created user",
		"tenant_id", payload.TenantID,
		"user_principal_name", payload.UserPrincipalName,
		"user_id", userID,
	)

	return userID, nil
}

// UpdateUserPayload is the payload used for updating attributes of an
// existing user account.
type UpdateUserPayload struct {
	// TenantID specifies the tenant of the user.
	TenantID string `json:"tenant_id" yaml:"tenant_id"`

	// UserPrincipalName specifies the principal name of the user to be
	// updated.
	UserPrincipalName string `json:"user_principal_name" yaml:"user_principal_name"`

	// DisplayName, when set, specifies the new display name.
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty"`

	// JobTitle, when set, specifies the new job title.
	JobTitle string `json:"job_title,omitempty" yaml:"job_title,omitempty"`

	// Department, when set, specifies the new department.
	Department string `json:"department,omitempty" yaml:"department,omitempty"`

	// OfficeLocation, when set, specifies the new office location.
	OfficeLocation string `json:"office_location,omitempty" yaml:"office_location,omitempty"`

	// MobilePhone, when set, specifies the new mobile phone number.
	MobilePhone string `json:"mobile_phone,omitempty" yaml:"mobile_phone,omitempty"`

	// UsageLocation, when set, specifies the new usage location.
	UsageLocation string `json:"usage_location,omitempty" yaml:"usage_location,omitempty"`
}

// HandleUpdateUserTask is the handler, which updates an existing user
// account.
func HandleUpdateUserTask(ctx context.Context, t *asynq.Task) error {
	data := t.Payload()
	if data == nil {
		return asynqutils.SkipRetry(ErrNoPayload)
	}

	var payload UpdateUserPayload
	if err := asynqutils.Unmarshal(data, &payload); err != nil {
		return asynqutils.SkipRetry(err)
	}

	if payload.TenantID == "" {
		return asynqutils.SkipRetry(ErrNoTenantID)
	}
	if payload.UserPrincipalName == "" {
		return asynqutils.SkipRetry(ErrNoUserPrincipalName)
	}

	return updateUser(ctx, payload)
}

// updateUser patches the user account with the attributes set in the given
// payload.
func updateUser(ctx context.Context, payload UpdateUserPayload) error {
	client, ok := graphclients.Clientset.Get(payload.TenantID)
	if !ok {
		return asynqutils.SkipRetry(ClientNotFound(payload.TenantID))
	}

	logger := asynqutils.GetLogger(ctx)
	logger.Info(
		"updating user",
		"tenant_id", payload.TenantID,
		"user_principal_name", payload.UserPrincipalName,
	)

	user := graphmodels.NewUser()
	if payload.DisplayName != "" {
		user.SetDisplayName(ptr.To(payload.DisplayName))
	}
	if payload.JobTitle != "" {
		user.SetJobTitle(ptr.To(payload.JobTitle))
	}
	if payload.Department != "" {
		user.SetDepartment(ptr.To(payload.Department))
	}
	if payload.OfficeLocation != "" {
		user.SetOfficeLocation(ptr.To(payload.OfficeLocation))
	}
	if payload.MobilePhone != "" {
		user.SetMobilePhone(ptr.To(payload.MobilePhone))
	}
	if payload.UsageLocation != "" {
		user.SetUsageLocation(ptr.To(payload.UsageLocation))
	}

	if _, err := client.Client.Users().ByUserId(payload.UserPrincipalName).Patch(ctx, user, nil); err != nil {
		logger.Error(
			"failed to update user",
			"tenant_id", payload.TenantID,
			"user_principal_name", payload.UserPrincipalName,
			"reason", err,
		)

		return graphutils.MaybeSkipRetry(err)
	}

	return nil
}

// DeleteUserPayload is the payload used for deleting a user account.
type DeleteUserPayload struct {
	// TenantID specifies the tenant of the user.
	TenantID string `json:"tenant_id" yaml:"tenant_id"`

	// UserPrincipalName specifies the principal name of the user to be
	// deleted.
	UserPrincipalName string `json:"user_principal_name" yaml:"user_principal_name"`
}

// HandleDeleteUserTask is the handler, which deletes a user account.
func HandleDeleteUserTask(ctx context.Context, t *asynq.Task) error {
	data := t.Payload()
	if data == nil {
		return asynqutils.SkipRetry(ErrNoPayload)
	}

	var payload DeleteUserPayload
	if err := asynqutils.Unmarshal(data, &payload); err != nil {
		return asynqutils.SkipRetry(err)
	}

	if payload.TenantID == "" {
		return asynqutils.SkipRetry(ErrNoTenantID)
	}
	if payload.UserPrincipalName == "" {
		return asynqutils.SkipRetry(ErrNoUserPrincipalName)
	}

	client, ok := graphclients.Clientset.Get(payload.TenantID)
	if !ok {
		return asynqutils.SkipRetry(ClientNotFound(payload.TenantID))
	}

	logger := asynqutils.GetLogger(ctx)
	logger.Info(
		"deleting user",
		"tenant_id", payload.TenantID,
		"user_principal_name", payload.UserPrincipalName,
	)

	if err := client.Client.Users().ByUserId(payload.UserPrincipalName).Delete(ctx, nil); err != nil {
		logger.Error(
			"failed to delete user",
			"tenant_id", payload.TenantID,
			"user_principal_name", payload.UserPrincipalName,
			"reason", err,
		)

		return graphutils.MaybeSkipRetry(err)
	}

	return nil
}

// DisableUserPayload is the payload used for disabling sign-in for a user
// account.
type DisableUserPayload struct {
	// TenantID specifies the tenant of the user.
	TenantID string `json:"tenant_id" yaml:"tenant_id"`

	// UserPrincipalName specifies the principal name of the user to be
	// disabled.
	UserPrincipalName string `json:"user_principal_name" yaml:"user_principal_name"`
}

// HandleDisableUserTask is the handler, which disables sign-in for a user
// account.
func HandleDisableUserTask(ctx context.Context, t *asynq.Task) error {
	data := t.Payload()
	if data == nil {
		return asynqutils.SkipRetry(ErrNoPayload)
	}

	var payload DisableUserPayload
	if err := asynqutils.Unmarshal(data, &payload); err != nil {
		return asynqutils.SkipRetry(err)
	}

	if payload.TenantID == "" {
		return asynqutils.SkipRetry(ErrNoTenantID)
	}
	if payload.UserPrincipalName == "" {
		return asynqutils.SkipRetry(ErrNoUserPrincipalName)
	}

	client, ok := graphclients.Clientset.Get(payload.TenantID)
	if !ok {
		return asynqutils.SkipRetry(ClientNotFound(payload.TenantID))
	}

	logger := asynqutils.GetLogger(ctx)
	logger.Info(
		"disabling user",
		"tenant_id", payload.TenantID,
		"user_principal_name", payload.UserPrincipalName,
	)

	user := graphmodels.NewUser()
	user.SetAccountEnabled(ptr.To(false))
	if _, err := client.Client.Users().ByUserId(payload.UserPrincipalName).Patch(ctx, user, nil); err != nil {
		logger.Error(
			"failed to disable user",
			"tenant_id", payload.TenantID,
			"user_principal_name", payload.UserPrincipalName,
			"reason", err,
		)

		return graphutils.MaybeSkipRetry(err)
	}

	return nil
}

// RevokeSessionsPayload is the payload used for revoking the refresh tokens
// of a user account.
type RevokeSessionsPayload struct {
	// TenantID specifies the tenant of the user.
	TenantID string `json:"tenant_id" yaml:"tenant_id"`

	// UserPrincipalName specifies the principal name of the user whose
	// sessions will be revoked.
	UserPrincipalName string `json:"user_principal_name" yaml:"user_principal_name"`
}

// HandleRevokeSessionsTask is the handler, which invalidates the refresh
// tokens of a user account.
func HandleRevokeSessionsTask(ctx context.Context, t *asynq.Task) error {
	data := t.Payload()
	if data == nil {
		return asynqutils.SkipRetry(ErrNoPayload)
	}

	var payload RevokeSessionsPayload
	if err := asynqutils.Unmarshal(data, &payload); err != nil {
		return asynqutils.SkipRetry(err)
	}

	if payload.TenantID == "" {
		return asynqutils.SkipRetry(ErrNoTenantID)
	}
	if payload.UserPrincipalName == "" {
		return asynqutils.SkipRetry(ErrNoUserPrincipalName)
	}

	client, ok := graphclients.Clientset.Get(payload.TenantID)
	if !ok {
		return asynqutils.SkipRetry(ClientNotFound(payload.TenantID))
	}

	logger := asynqutils.GetLogger(ctx)
	logger.Info(
		"revoking sessions",
		"tenant_id", payload.TenantID,
		"user_principal_name", payload.UserPrincipalName,
	)

	_, err := client.Client.Users().ByUserId(payload.UserPrincipalName).RevokeSignInSessions().Post(ctx, nil)
	if err != nil {
		logger.Error(
			"failed to revoke sessions",
			"tenant_id", payload.TenantID,
			"user_principal_name", payload.UserPrincipalName,
			"reason", err,
		)

		return graphutils.MaybeSkipRetry(err)
	}

	return nil
}

// CollectSignInActivityPayload is the payload used for collecting the
// sign-in activity of user accounts.
type CollectSignInActivityPayload struct {
	// TenantID specifies the tenant from which to collect.
	TenantID string `json:"tenant_id" yaml:"tenant_id"`
}

// NewCollectSignInActivityTask creates a new [asynq.Task] for collecting the
// sign-in activity of user accounts, without specifying a payload.
func NewCollectSignInActivityTask() *asynq.Task {
	return asynq.NewTask(TaskCollectSignInActivity, nil)
}

// HandleCollectSignInActivityTask is the handler, which collects the sign-in
// activity of user accounts. The collected activity drives the inactive user
// reports.
func HandleCollectSignInActivityTask(ctx context.Context, t *asynq.Task) error {
	data := t.Payload()
	if data == nil {
		return enqueueCollectSignInActivity(ctx)
	}

	var payload CollectSignInActivityPayload
	if err := asynqutils.Unmarshal(data, &payload); err != nil {
		return asynqutils.SkipRetry(err)
	}

	if payload.TenantID == "" {
		return asynqutils.SkipRetry(ErrNoTenantID)
	}

	return collectSignInActivity(ctx, payload)
}

// enqueueCollectSignInActivity enqueues tasks for collecting the sign-in
// activity from all known tenants.
func enqueueCollectSignInActivity(ctx context.Context) error {
	logger := asynqutils.GetLogger(ctx)
	if graphclients.Clientset.Length() == 0 {
		logger.Warn("no Microsoft Graph clients found")

		return nil
	}

	return graphclients.Clientset.Range(func(tenantID string, _ *graphclients.Client[*msgraphsdk.GraphServiceClient]) error {
		payload := CollectSignInActivityPayload{
			TenantID: tenantID,
		}
		data, err := json.Marshal(payload)
		if err != nil {
			logger.Error(
				"failed to marshal payload for sign-in activity collection",
				"tenant_id", tenantID,
				"reason", err,
			)

			return registry.ErrContinue
		}
		task := asynq.NewTask(TaskCollectSignInActivity, data)
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

// collectSignInActivity collects the sign-in activity of the user accounts
// from the tenant specified in the payload and refreshes the last sign-in
// timestamps of the already collected users.
func collectSignInActivity(ctx context.Context, payload CollectSignInActivityPayload) error {
	client, ok := graphclients.Clientset.Get(payload.TenantID)
	if !ok {
		return asynqutils.SkipRetry(ClientNotFound(payload.TenantID))
	}

	logger := asynqutils.GetLogger(ctx)
	logger.Info("collecting sign-in activity", "tenant_id", payload.TenantID)

	requestConfig := &users.UsersRequestBuilderGetRequestConfiguration{
		QueryParameters: &users.UsersRequestBuilderGetQueryParameters{
			Select: []string{"id", "userPrincipalName", "signInActivity"},
			Top:    ptr.To(int32(constants.PageSize)),
		},
	}
	result, err := client.Client.Users().Get(ctx, requestConfig)
	if err != nil {
		logger.Error(
			"failed to get sign-in activity",
			"tenant_id", payload.TenantID,
			"reason", err,
		)

		return graphutils.MaybeSkipRetry(err)
	}

	iter, err := msgraphcore.NewPageIterator[graphmodels.Userable](
		result,
		client.Client.GetAdapter(),
		graphmodels.CreateUserCollectionResponseFromDiscriminatorValue,
	)
	if err != nil {
		return err
	}

	count := 0
	err = iter.Iterate(ctx, func(item graphmodels.Userable) bool {
		userID := ptr.Value(item.GetId(), "")
		activity := item.GetSignInActivity()
		if userID == "" || activity == nil {
			return true
		}

		lastSignIn := ptr.Value(activity.GetLastSignInDateTime(), time.Time{})
		if lastSignIn.IsZero() {
			return true
		}

		_, err := db.DB.NewUpdate().
			Model(&models.User{}).
			Set("last_sign_in_at = ?", lastSignIn).
			Set("updated_at = current_timestamp").
			Where("tenant_id = ? AND user_id = ?", payload.TenantID, userID).
			Exec(ctx)
		if err != nil {
			logger.Error(
				"failed to update sign-in activity",
				"tenant_id", payload.TenantID,
				"user_id", userID,
				"reason", err,
			)

			return true
		}
		count++

		return true
	})
	if err != nil {
		return graphutils.MaybeSkipRetry(err)
	}

	logger.Info("populated sign-in activity", "count", count, "tenant_id", payload.TenantID)

	return nil
}
