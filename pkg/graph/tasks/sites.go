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
	"github.com/microsoftgraph/msgraph-sdk-go/sites"

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
	// TaskCollectSites is the name of the task for collecting SharePoint
	// sites.
	TaskCollectSites = "sites:task:collect-sites"

	// TaskCollectDrives is the name of the task for collecting the drives
	// of a site.
	TaskCollectDrives = "sites:task:collect-drives"

	// TaskCollectUserDrives is the name of the task for collecting the
	// OneDrive drives of a user.
	TaskCollectUserDrives = "sites:task:collect-user-drives"
)

// CollectSitesPayload is the payload used for collecting SharePoint sites.
type CollectSitesPayload struct {
	// TenantID specifies the tenant from which to collect.
	TenantID string `json:"tenant_id" yaml:"tenant_id"`
}

// NewCollectSitesTask creates a new [asynq.Task] for collecting SharePoint
// sites, without specifying a payload.
func NewCollectSitesTask() *asynq.Task {
	return asynq.NewTask(TaskCollectSites, nil)
}

// HandleCollectSitesTask is the handler, which collects SharePoint sites.
func HandleCollectSitesTask(ctx context.Context, t *asynq.Task) error {
	data := t.Payload()
	if data == nil {
		return enqueueCollectSites(ctx)
	}

	var payload CollectSitesPayload
	if err := asynqutils.Unmarshal(data, &payload); err != nil {
		return asynqutils.SkipRetry(err)
	}

	if payload.TenantID == "" {
		return asynqutils.SkipRetry(ErrNoTenantID)
	}

	return collectSites(ctx, payload)
}

// enqueueCollectSites enqueues tasks for collecting SharePoint sites from all
// known tenants.
func enqueueCollectSites(ctx context.Context) error {
	logger := asynqutils.GetLogger(ctx)
	if graphclients.Clientset.Length() == 0 {
		logger.Warn("no Microsoft Graph clients found")

		return nil
	}

	return graphclients.Clientset.Range(func(tenantID string, _ *graphclients.Client[*msgraphsdk.GraphServiceClient]) error {
		payload := CollectSitesPayload{
			TenantID: tenantID,
		}
		data, err := json.Marshal(payload)
		if err != nil {
			logger.Error(
				"failed to marshal payload for site collection",
				"tenant_id", tenantID,
				"reason", err,
			)

			return registry.ErrContinue
		}
		task := asynq.NewTask(TaskCollectSites, data)
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

// collectSites collects the SharePoint sites from the tenant specified in the
// payload.
func collectSites(ctx context.Context, payload CollectSitesPayload) error {
	client, ok := graphclients.Clientset.Get(payload.TenantID)
	if !ok {
		return asynqutils.SkipRetry(ClientNotFound(payload.TenantID))
	}

	logger := asynqutils.GetLogger(ctx)
	logger.Info("collecting sites", "tenant_id", payload.TenantID)

	requestConfig := &sites.SitesRequestBuilderGetRequestConfiguration{
		QueryParameters: &sites.SitesRequestBuilderGetQueryParameters{
			Search: ptr.To("*"),
		},
	}
	result, err := client.Client.Sites().Get(ctx, requestConfig)
	if err != nil {
		logger.Error(
			"failed to get sites",
			"tenant_id", payload.TenantID,
			"reason", err,
		)

		return graphutils.MaybeSkipRetry(err)
	}

	iter, err := msgraphcore.NewPageIterator[graphmodels.Siteable](
		result,
		client.Client.GetAdapter(),
		graphmodels.CreateSiteCollectionResponseFromDiscriminatorValue,
	)
	if err != nil {
		return err
	}

	items := make([]models.Site, 0)
	err = iter.Iterate(ctx, func(item graphmodels.Siteable) bool {
		siteID := ptr.Value(item.GetId(), "")
		if siteID == "" {
			return true
		}

		site := models.Site{
			TenantID:       payload.TenantID,
			SiteID:         siteID,
			Name:           ptr.Value(item.GetName(), ""),
			DisplayName:    ptr.Value(item.GetDisplayName(), ""),
			WebURL:         ptr.Value(item.GetWebUrl(), ""),
			SiteCreatedAt:  ptr.Value(item.GetCreatedDateTime(), time.Time{}),
			SiteModifiedAt: ptr.Value(item.GetLastModifiedDateTime(), time.Time{}),
		}
		items = append(items, site)

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
		On("CONFLICT (tenant_id, site_id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("display_name = EXCLUDED.display_name").
		Set("web_url = EXCLUDED.web_url").
		Set("site_created_at = EXCLUDED.site_created_at").
		Set("site_modified_at = EXCLUDED.site_modified_at").
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

	logger.Info("populated sites", "count", count, "tenant_id", payload.TenantID)
	sitesMetric(payload.TenantID, len(items))

	return nil
}

// CollectDrivesPayload is the payload used for collecting the drives of a
// site.
type CollectDrivesPayload struct {
	// TenantID specifies the tenant of the site.
	TenantID string `json:"tenant_id" yaml:"tenant_id"`

	// SiteID specifies the site whose drives will be collected.
	SiteID string `json:"site_id" yaml:"site_id"`
}

// NewCollectDrivesTask creates a new [asynq.Task] for collecting site drives,
// without specifying a payload.
func NewCollectDrivesTask() *asynq.Task {
	return asynq.NewTask(TaskCollectDrives, nil)
}

// HandleCollectDrivesTask is the handler, which collects the drives of
// SharePoint sites. When called without a payload it enqueues drive
// collection for each already collected site.
func HandleCollectDrivesTask(ctx context.Context, t *asynq.Task) error {
	data := t.Payload()
	if data == nil {
		return enqueueCollectDrives(ctx)
	}

	var payload CollectDrivesPayload
	if err := asynqutils.Unmarshal(data, &payload); err != nil {
		return asynqutils.SkipRetry(err)
	}

	if payload.TenantID == "" {
		return asynqutils.SkipRetry(ErrNoTenantID)
	}
	if payload.SiteID == "" {
		return asynqutils.SkipRetry(ErrNoSiteID)
	}

	return collectDrives(ctx, payload)
}

// enqueueCollectDrives enqueues tasks for collecting the drives of all sites
// which are known to the database.
func enqueueCollectDrives(ctx context.Context) error {
	logger := asynqutils.GetLogger(ctx)
	items, err := graphutils.GetSitesFromDB(ctx)
	if err != nil {
		logger.Error("failed to get sites from db", "reason", err)

		return err
	}

	for _, item := range items {
		payload := CollectDrivesPayload{
			TenantID: item.TenantID,
			SiteID:   item.SiteID,
		}
		data, err := json.Marshal(payload)
		if err != nil {
			logger.Error(
				"failed to marshal payload for drive collection",
				"tenant_id", item.TenantID,
				"site_id", item.SiteID,
				"reason", err,
			)

			continue
		}
		task := asynq.NewTask(TaskCollectDrives, data)
		info, err := asynqclient.Client.Enqueue(task)
		if err != nil {
			logger.Error(
				"failed to enqueue task",
				"type", task.Type(),
				"site_id", item.SiteID,
				"reason", err,
			)

			continue
		}

		logger.Info(
			"enqueued task",
			"type", task.Type(),
			"id", info.ID,
			"queue", info.Queue,
			"site_id", item.SiteID,
		)
	}

	return nil
}

// driveFromGraph converts the given Graph drive item into a [models.Drive].
func driveFromGraph(tenantID string, item graphmodels.Driveable) (models.Drive, bool) {
	driveID := ptr.Value(item.GetId(), "")
	if driveID == "" {
		return models.Drive{}, false
	}

	drive := models.Drive{
		TenantID:  tenantID,
		DriveID:   driveID,
		Name:      ptr.Value(item.GetName(), ""),
		DriveType: ptr.Value(item.GetDriveType(), ""),
		WebURL:    ptr.Value(item.GetWebUrl(), ""),
	}

	if quota := item.GetQuota(); quota != nil {
		drive.QuotaTotal = ptr.Value(quota.GetTotal(), 0)
		drive.QuotaUsed = ptr.Value(quota.GetUsed(), 0)
		drive.QuotaRemaining = ptr.Value(quota.GetRemaining(), 0)
		drive.QuotaState = ptr.Value(quota.GetState(), "")
	}

	if owner := item.GetOwner(); owner != nil {
		if user := owner.GetUser(); user != nil {
			drive.OwnerID = ptr.Value(user.GetId(), "")
		}
	}

	return drive, true
}

// upsertDrives persists the given drives into the database.
func upsertDrives(ctx context.Context, items []models.Drive) (int64, error) {
	out, err := db.DB.NewInsert().
		Model(&items).
		On("CONFLICT (tenant_id, drive_id) DO UPDATE").
		Set("site_id = EXCLUDED.site_id").
		Set("owner_id = EXCLUDED.owner_id").
		Set("name = EXCLUDED.name").
		Set("drive_type = EXCLUDED.drive_type").
		Set("web_url = EXCLUDED.web_url").
		Set("quota_total = EXCLUDED.quota_total").
		Set("quota_used = EXCLUDED.quota_used").
		Set("quota_remaining = EXCLUDED.quota_remaining").
		Set("quota_state = EXCLUDED.quota_state").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("id").
		Exec(ctx)

	if err != nil {
		return 0, err
	}

	return out.RowsAffected()
}

// collectDrives collects the drives of the site specified in the payload.
func collectDrives(ctx context.Context, payload CollectDrivesPayload) error {
	client, ok := graphclients.Clientset.Get(payload.TenantID)
	if !ok {
		return asynqutils.SkipRetry(ClientNotFound(payload.TenantID))
	}

	logger := asynqutils.GetLogger(ctx)
	logger.Info(
		"collecting site drives",
		"tenant_id", payload.TenantID,
		"site_id", payload.SiteID,
	)

	result, err := client.Client.Sites().BySiteId(payload.SiteID).Drives().Get(ctx, nil)
	if err != nil {
		logger.Error(
			"failed to get site drives",
			"tenant_id", payload.TenantID,
			"site_id", payload.SiteID,
			"reason", err,
		)

		return graphutils.MaybeSkipRetry(err)
	}

	iter, err := msgraphcore.NewPageIterator[graphmodels.Driveable](
		result,
		client.Client.GetAdapter(),
		graphmodels.CreateDriveCollectionResponseFromDiscriminatorValue,
	)
	if err != nil {
		return err
	}

	items := make([]models.Drive, 0)
	err = iter.Iterate(ctx, func(item graphmodels.Driveable) bool {
		drive, ok := driveFromGraph(payload.TenantID, item)
		if !ok {
			return true
		}
		drive.SiteID = payload.SiteID
		items = append(items, drive)

		return true
	})
	if err != nil {
		return graphutils.MaybeSkipRetry(err)
	}

	if len(items) == 0 {
		return nil
	}

	count, err := upsertDrives(ctx, items)
	if err != nil {
		return err
	}

	logger.Info(
		"populated site drives",
		"count", count,
		"tenant_id", payload.TenantID,
		"site_id", payload.SiteID,
	)

	return nil
}

// CollectUserDrivesPayload is the payload used for collecting the OneDrive
// drives of a user.
type CollectUserDrivesPayload struct {
	// TenantID specifies the tenant of the user.
	TenantID string `json:"tenant_id" yaml:"tenant_id"`

	// UserPrincipalName specifies the user whose drives will be collected.
	UserPrincipalName string `json:"user_principal_name" yaml:"user_principal_name"`
}

// HandleCollectUserDrivesTask is the handler, which collects the OneDrive
// drives of a user.
func HandleCollectUserDrivesTask(ctx context.Context, t *asynq.Task) error {
	data := t.Payload()
	if data == nil {
		return asynqutils.SkipRetry(ErrNoPayload)
	}

	var payload CollectUserDrivesPayload
	if err := asynqutils.Unmarshal(data, &payload); err != nil {
		return asynqutils.SkipRetry(err)
	}

	if payload.TenantID == "" {
		return asynqutils.SkipRetry(ErrNoTenantID)
	}
	if payload.UserPrincipalName == "" {
		return asynqutils.SkipRetry(ErrNoUserPrincipalName)
	}

	return collectUserDrives(ctx, payload)
}

// collectUserDrives collects the OneDrive drives of the user specified in the
// payload.
func collectUserDrives(ctx context.Context, payload CollectUserDrivesPayload) error {
	client, ok := graphclients.Clientset.Get(payload.TenantID)
	if !ok {
		return asynqutils.SkipRetry(ClientNotFound(payload.TenantID))
	}

	logger := asynqutils.GetLogger(ctx)
	logger.Info(
		"collecting user drives",
		"tenant_id", payload.TenantID,
		"user_principal_name", payload.UserPrincipalName,
	)

	result, err := client.Client.Users().ByUserId(payload.UserPrincipalName).Drives().Get(ctx, nil)
	if err != nil {
		logger.Error(
			"failed to get user drives",
			"tenant_id", payload.TenantID,
			"user_principal_name", payload.UserPrincipalName,
			"reason", err,
		)

		return graphutils.MaybeSkipRetry(err)
	}

	iter, err := msgraphcore.NewPageIterator[graphmodels.Driveable](
		result,
		client.Client.GetAdapter(),
		graphmodels.CreateDriveCollectionResponseFromDiscriminatorValue,
	)
	if err != nil {
		return err
	}

	items := make([]models.Drive, 0)
	err = iter.Iterate(ctx, func(item graphmodels.Driveable) bool {
		drive, ok := driveFromGraph(payload.TenantID, item)
		if !ok {
			return true
		}
		items = append(items, drive)

		return true
	})
	if err != nil {
		return graphutils.MaybeSkipRetry(err)
	}

	if len(items) == 0 {
		return nil
	}

	count, err := upsertDrives(ctx, items)
	if err != nil {
		return err
	}

	logger.Info(
		"populated user drives",
		"count", count,
		"tenant_id", payload.TenantID,
		"user_principal_name", payload.UserPrincipalName,
	)

	return nil
}
