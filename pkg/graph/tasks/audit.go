// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	msgraphcore "github.com/microsoftgraph/msgraph-sdk-go-core"
	"github.com/microsoftgraph/msgraph-sdk-go/auditlogs"
	graphmodels "github.com/microsoftgraph/msgraph-sdk-go/models"

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
	// TaskCollectSignIns is the name of the task for collecting sign-in
	// log entries.
	TaskCollectSignIns = "audit:task:collect-signins"

	// TaskCollectDirectoryAudits is the name of the task for collecting
	// directory audit log entries.
	TaskCollectDirectoryAudits = "audit:task:collect-directory-audits"

	// defaultAuditWindowDays is the default collection window for audit
	// log tasks.
	defaultAuditWindowDays = 7
)

// CollectSignInsPayload is the payload used for collecting sign-in log
// entries.
type CollectSignInsPayload struct {
	// TenantID specifies the tenant from which to collect.
	TenantID string `json:"tenant_id" yaml:"tenant_id"`

	// WindowDays specifies how many days back to collect. Defaults to 7.
	WindowDays int `json:"window_days,omitempty" yaml:"window_days,omitempty"`
}

// NewCollectSignInsTask creates a new [asynq.Task] for collecting sign-in log
// entries, without specifying a payload.
func NewCollectSignInsTask() *asynq.Task {
	return asynq.NewTask(TaskCollectSignIns, nil)
}

// HandleCollectSignInsTask is the handler, which collects sign-in log
// entries within the configured window.
func HandleCollectSignInsTask(ctx context.Context, t *asynq.Task) error {
	data := t.Payload()
	if data == nil {
		return enqueueCollectSignIns(ctx)
	}

	var payload CollectSignInsPayload
	if err := asynqutils.Unmarshal(data, &payload); err != nil {
		return asynqutils.SkipRetry(err)
	}

	if payload.TenantID == "" {
		return asynqutils.SkipRetry(ErrNoTenantID)
	}

	return collectSignIns(ctx, payload)
}

// enqueueCollectSignIns enqueues tasks for collecting the sign-in log entries
// from all known tenants.
func enqueueCollectSignIns(ctx context.Context) error {
	logger := asynqutils.GetLogger(ctx)
	if graphclients.Clientset.Length() == 0 {
		logger.Warn("no Microsoft Graph clients found")

		return nil
	}

	return graphclients.Clientset.Range(func(tenantID string, _ *graphclients.Client[*msgraphsdk.GraphServiceClient]) error {
		payload := CollectSignInsPayload{
			TenantID: tenantID,
		}
		data, err := json.Marshal(payload)
		if err != nil {
			logger.Error(
				"failed to marshal payload for sign-in collection",
				"tenant_id", tenantID,
				"reason", err,
			)

			return registry.ErrContinue
		}
		task := asynq.NewTask(TaskCollectSignIns, data)
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

// collectSignIns collects the sign-in log entries from the tenant specified
// in the payload.
func collectSignIns(ctx context.Context, payload CollectSignInsPayload) error {
	client, ok := graphclients.Clientset.Get(payload.TenantID)
	if !ok {
		return asynqutils.SkipRetry(ClientNotFound(payload.TenantID))
	}

	windowDays := payload.WindowDays
	if windowDays <= 0 {
		windowDays = defaultAuditWindowDays
	}
	since := time.Now().UTC().AddDate(0, 0, -windowDays)

	logger := asynqutils.GetLogger(ctx)
	logger.Info(
		"collecting sign-ins",
		"tenant_id", payload.TenantID,
		"since", since,
	)

	filter := fmt.Sprintf("createdDateTime ge %s", since.Format(time.RFC3339))
	requestConfig := &auditlogs.SignInsRequestBuilderGetRequestConfiguration{
		QueryParameters: &auditlogs.SignInsRequestBuilderGetQueryParameters{
			Filter: ptr.To(filter),
		},
	}
	result, err := client.Client.AuditLogs().SignIns().Get(ctx, requestConfig)
	if err != nil {
		logger.Error(
			"failed to get sign-ins",
			"tenant_id", payload.TenantID,
			"reason", err,
		)

		return graphutils.MaybeSkipRetry(err)
	}

	iter, err := msgraphcore.NewPageIterator[graphmodels.SignInable](
		result,
		client.Client.GetAdapter(),
		graphmodels.CreateSignInCollectionResponseFromDiscriminatorValue,
	)
	if err != nil {
		return err
	}

	items := make([]models.SignIn, 0)
	err = iter.Iterate(ctx, func(item graphmodels.SignInable) bool {
		signInID := ptr.Value(item.GetId(), "")
		if signInID == "" {
			return true
		}

		signIn := models.SignIn{
			TenantID:          payload.TenantID,
			SignInID:          signInID,
			UserID:            ptr.Value(item.GetUserId(), ""),
			UserPrincipalName: ptr.Value(item.GetUserPrincipalName(), ""),
			AppDisplayName:    ptr.Value(item.GetAppDisplayName(), ""),
			ClientAppUsed:     ptr.Value(item.GetClientAppUsed(), ""),
			IPAddress:         ptr.Value(item.GetIpAddress(), ""),
			SignInCreatedAt:   ptr.Value(item.GetCreatedDateTime(), time.Time{}),
		}

		if status := item.GetStatus(); status != nil {
			signIn.ErrorCode = int(ptr.Value(status.GetErrorCode(), 0))
		}
		items = append(items, signIn)

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
		On("CONFLICT (tenant_id, signin_id) DO UPDATE").
		Set("user_id = EXCLUDED.user_id").
		Set("user_principal_name = EXCLUDED.user_principal_name").
		Set("app_display_name = EXCLUDED.app_display_name").
		Set("client_app_used = EXCLUDED.client_app_used").
		Set("ip_address = EXCLUDED.ip_address").
		Set("error_code = EXCLUDED.error_code").
		Set("signin_created_at = EXCLUDED.signin_created_at").
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

	logger.Info("populated sign-ins", "count", count, "tenant_id", payload.TenantID)

	return nil
}

// CollectDirectoryAuditsPayload is the payload used for collecting directory
// audit log entries.
type CollectDirectoryAuditsPayload struct {
	// TenantID specifies the tenant from which to collect.
	TenantID string `json:"tenant_id" yaml:"tenant_id"`

	// WindowDays specifies how many days back to collect. Defaults to 7.
	WindowDays int `json:"window_days,omitempty" yaml:"window_days,omitempty"`

	// Category, when set, restricts collection to the given audit
	// category, e.g. UserManagement or GroupManagement.
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
}

// NewCollectDirectoryAuditsTask creates a new [asynq.Task] for collecting
// directory audit log entries, without specifying a payload.
func NewCollectDirectoryAuditsTask() *asynq.Task {
	return asynq.NewTask(TaskCollectDirectoryAudits, nil)
}

// HandleCollectDirectoryAuditsTask is the handler, which collects directory
// audit log entries within the configured window.
func HandleCollectDirectoryAuditsTask(ctx context.Context, t *asynq.Task) error {
	data := t.Payload()
	if data == nil {
		return enqueueCollectDirectoryAudits(ctx)
	}

	var payload CollectDirectoryAuditsPayload
	if err := asynqutils.Unmarshal(data, &payload); err != nil {
		return asynqutils.SkipRetry(err)
	}

	if payload.TenantID == "" {
		return asynqutils.SkipRetry(ErrNoTenantID)
	}

	return collectDirectoryAudits(ctx, payload)
}

// enqueueCollectDirectoryAudits enqueues tasks for collecting the directory
// audit log entries from all known tenants.
func enqueueCollectDirectoryAudits(ctx context.Context) error {
	logger := asynqutils.GetLogger(ctx)
	if graphclients.Clientset.Length() == 0 {
		logger.Warn("no Microsoft Graph clients found")

		return nil
	}

	return graphclients.Clientset.Range(func(tenantID string, _ *graphclients.Client[*msgraphsdk.GraphServiceClient]) error {
		payload := CollectDirectoryAuditsPayload{
			TenantID: tenantID,
		}
		data, err := json.Marshal(payload)
		if err != nil {
			logger.Error(
				"failed to marshal payload for directory audit collection",
				"tenant_id", tenantID,
				"reason", err,
			)

			return registry.ErrContinue
		}
		task := asynq.NewTask(TaskCollectDirectoryAudits, data)
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

// collectDirectoryAudits collects the directory audit log entries from the
// tenant specified in the payload.
func collectDirectoryAudits(ctx context.Context, payload CollectDirectoryAuditsPayload) error {
	client, ok := graphclients.Clientset.Get(payload.TenantID)
	if !ok {
		return asynqutils.SkipRetry(ClientNotFound(payload.TenantID))
	}

	windowDays := payload.WindowDays
	if windowDays <= 0 {
		windowDays = defaultAuditWindowDays
	}
	since := time.Now().UTC().AddDate(0, 0, -windowDays)

	logger := asynqutils.GetLogger(ctx)
	logger.Info(
		"collecting directory audits",
		"tenant_id", payload.TenantID,
		"since", since,
	)

	filter := fmt.Sprintf("activityDateTime ge %s", since.Format(time.RFC3339))
	if payload.Category != "" {
		filter = fmt.Sprintf("%s and category eq '%s'", filter, payload.Category)
	}
	requestConfig := &auditlogs.DirectoryAuditsRequestBuilderGetRequestConfiguration{
		QueryParameters: &auditlogs.DirectoryAuditsRequestBuilderGetQueryParameters{
			Filter: ptr.To(filter),
		},
	}
	result, err := client.Client.AuditLogs().DirectoryAudits().Get(ctx, requestConfig)
	if err != nil {
		logger.Error(
			"failed to get directory audits",
			"tenant_id", payload.TenantID,
			"reason", err,
		)

		return graphutils.MaybeSkipRetry(err)
	}

	iter, err := msgraphcore.NewPageIterator[graphmodels.DirectoryAuditable](
		result,
		client.Client.GetAdapter(),
		graphmodels.CreateDirectoryAuditCollectionResponseFromDiscriminatorValue,
	)
	if err != nil {
		return err
	}

	items := make([]models.DirectoryAudit, 0)
	err = iter.Iterate(ctx, func(item graphmodels.DirectoryAuditable) bool {
		auditID := ptr.Value(item.GetId(), "")
		if auditID == "" {
			return true
		}

		audit := models.DirectoryAudit{
			TenantID:     payload.TenantID,
			AuditID:      auditID,
			ActivityName: ptr.Value(item.GetActivityDisplayName(), ""),
			Category:     ptr.Value(item.GetCategory(), ""),
			ActivityAt:   ptr.Value(item.GetActivityDateTime(), time.Time{}),
		}

		if result := item.GetResult(); result != nil {
			audit.Result = result.String()
		}

		if initiatedBy := item.GetInitiatedBy(); initiatedBy != nil {
			if user := initiatedBy.GetUser(); user != nil {
				audit.InitiatedBy = ptr.Value(user.GetUserPrincipalName(), "")
			}
		}
		items = append(items, audit)

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
		On("CONFLICT (tenant_id, audit_id) DO UPDATE").
		Set("activity_name = EXCLUDED.activity_name").
		Set("category = EXCLUDED.category").
		Set("result = EXCLUDED.result").
		Set("initiated_by = EXCLUDED.initiated_by").
		Set("activity_at = EXCLUDED.activity_at").
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

	logger.Info("populated directory audits", "count", count, "tenant_id", payload.TenantID)

	return nil
}
