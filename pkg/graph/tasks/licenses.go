// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	graphmodels "github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/users"

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
	// TaskCollectSKUs is the name of the task for collecting the license
	// SKUs subscribed to by a tenant.
	TaskCollectSKUs = "licenses:task:collect-skus"

	// TaskAssignLicense is the name of the task for assigning a license to
	// a user.
	TaskAssignLicense = "licenses:task:assign-license"

	// TaskRemoveLicense is the name of the task for removing a license
	// from a user.
	TaskRemoveLicense = "licenses:task:remove-license"
)

// CollectSKUsPayload is the payload used for collecting subscribed license
// SKUs.
type CollectSKUsPayload struct {
	// TenantID specifies the tenant from which to collect.
	TenantID string `json:"tenant_id" yaml:"tenant_id"`
}

// NewCollectSKUsTask creates a new [asynq.Task] for collecting subscribed
// license SKUs, without specifying a payload.
func NewCollectSKUsTask() *asynq.Task {
	return asynq.NewTask(TaskCollectSKUs, nil)
}

// HandleCollectSKUsTask is the handler, which collects the license SKUs
// subscribed to by a tenant.
func HandleCollectSKUsTask(ctx context.Context, t *asynq.Task) error {
	data := t.Payload()
	if data == nil {
		return enqueueCollectSKUs(ctx)
	}

	var payload CollectSKUsPayload
	if err := asynqutils.Unmarshal(data, &payload); err != nil {
		return asynqutils.SkipRetry(err)
	}

	if payload.TenantID == "" {
		return asynqutils.SkipRetry(ErrNoTenantID)
	}

	return collectSKUs(ctx, payload)
}

// enqueueCollectSKUs enqueues tasks for collecting the subscribed license
// SKUs from all known tenants.
func enqueueCollectSKUs(ctx context.Context) error {
	logger := asynqutils.GetLogger(ctx)
	if graphclients.Clientset.Length() == 0 {
		logger.Warn("no Microsoft Graph clients found")

		return nil
	}

	return graphclients.Clientset.Range(func(tenantID string, _ *graphclients.Client[*msgraphsdk.GraphServiceClient]) error {
		payload := CollectSKUsPayload{
			TenantID: tenantID,
		}
		data, err := json.Marshal(payload)
		if err != nil {
			logger.Error(
				"failed to marshal payload for sku collection",
				"tenant_id", tenantID,
				"reason", err,
			)

			return registry.ErrContinue
		}
		task := asynq.NewTask(TaskCollectSKUs, data)
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

// collectSKUs collects the license SKUs subscribed to by the tenant specified
// in the payload.
func collectSKUs(ctx context.Context, payload CollectSKUsPayload) error {
	client, ok := graphclients.Clientset.Get(payload.TenantID)
	if !ok {
		return asynqutils.SkipRetry(ClientNotFound(payload.TenantID))
	}

	logger := asynqutils.GetLogger(ctx)
	logger.Info("collecting subscribed skus", "tenant_id", payload.TenantID)

	result, err := client.Client.SubscribedSkus().Get(ctx, nil)
	if err != nil {
		logger.Error(
			"failed to get subscribed skus",
			"tenant_id", payload.TenantID,
			"reason", err,
		)

		return graphutils.MaybeSkipRetry(err)
	}

	items := make([]models.SubscribedSKU, 0)
	for _, item := range result.GetValue() {
		skuID := item.GetSkuId()
		if skuID == nil {
			continue
		}

		sku := models.SubscribedSKU{
			TenantID:         payload.TenantID,
			SKUID:            skuID.String(),
			SKUPartNumber:    ptr.Value(item.GetSkuPartNumber(), ""),
			AppliesTo:        ptr.Value(item.GetAppliesTo(), ""),
			CapabilityStatus: ptr.Value(item.GetCapabilityStatus(), ""),
			ConsumedUnits:    int(ptr.Value(item.GetConsumedUnits(), 0)),
		}

		if prepaid := item.GetPrepaidUnits(); prepaid != nil {
			sku.EnabledUnits = int(ptr.Value(prepaid.GetEnabled(), 0))
			sku.SuspendedUnits = int(ptr.Value(prepaid.GetSuspended(), 0))
			sku.WarningUnits = int(ptr.Value(prepaid.GetWarning(), 0))
		}
		items = append(items, sku)
	}

	if len(items) == 0 {
		return nil
	}

	out, err := db.DB.NewInsert().
		Model(&items).
		On("CONFLICT (tenant_id, sku_id) DO UPDATE").
		Set("sku_part_number = EXCLUDED.sku_part_number").
		Set("applies_to = EXCLUDED.applies_to").
		Set("capability_status = EXCLUDED.capability_status").
		Set("consumed_units = EXCLUDED.consumed_units").
		Set("enabled_units = EXCLUDED.enabled_units").
		Set("suspended_units = EXCLUDED.suspended_units").
		Set("warning_units = EXCLUDED.warning_units").
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

	logger.Info("populated subscribed skus", "count", count, "tenant_id", payload.TenantID)

	return nil
}

// LicensePayload is the payload used for assigning a license to, or removing
// a license from a user.
type LicensePayload struct {
	// TenantID specifies the tenant of the user.
	TenantID string `json:"tenant_id" yaml:"tenant_id"`

	// UserPrincipalName specifies the user whose licenses will be changed.
	UserPrincipalName string `json:"user_principal_name" yaml:"user_principal_name"`

	// SKUID specifies the license SKU to assign or remove.
	SKUID string `json:"sku_id" yaml:"sku_id"`
}

// validate validates the payload.
func (p *LicensePayload) validate() error {
	if p.TenantID == "" {
		return asynqutils.SkipRetry(ErrNoTenantID)
	}
	if p.UserPrincipalName == "" {
		return asynqutils.SkipRetry(ErrNoUserPrincipalName)
	}
	if p.SKUID == "" {
		return asynqutils.SkipRetry(ErrNoSKUID)
	}

	return nil
}

// HandleAssignLicenseTask is the handler, which assigns a license to a user.
func HandleAssignLicenseTask(ctx context.Context, t *asynq.Task) error {
	data := t.Payload()
	if data == nil {
		return asynqutils.SkipRetry(ErrNoPayload)
	}

	var payload LicensePayload
	if err := asynqutils.Unmarshal(data, &payload); err != nil {
		return asynqutils.SkipRetry(err)
	}
	if err := payload.validate(); err != nil {
		return err
	}

	return assignLicense(ctx, payload)
}

// assignLicense assigns the license SKU specified in the payload to the user.
func assignLicense(ctx context.Context, payload LicensePayload) error {
	client, ok := graphclients.Clientset.Get(payload.TenantID)
	if !ok {
		return asynqutils.SkipRetry(ClientNotFound(payload.TenantID))
	}

	skuID, err := uuid.Parse(payload.SKUID)
	if err != nil {
		return asynqutils.SkipRetry(err)
	}

	logger := asynqutils.GetLogger(ctx)
	logger.Info(
		"assigning license",
		"tenant_id", payload.TenantID,
		"user_principal_name", payload.UserPrincipalName,
		"sku_id", payload.SKUID,
	)

	license := graphmodels.NewAssignedLicense()
	license.SetSkuId(&skuID)

	requestBody := users.NewItemAssignLicensePostRequestBody()
	requestBody.SetAddLicenses([]graphmodels.AssignedLicenseable{license})
	requestBody.SetRemoveLicenses([]uuid.UUID{})

	_, err = client.Client.Users().ByUserId(payload.UserPrincipalName).AssignLicense().Post(ctx, requestBody, nil)
	if err != nil {
		logger.Error(
			"failed to assign license",
			"tenant_id", payload.TenantID,
			"user_principal_name", payload.UserPrincipalName,
			"sku_id", payload.SKUID,
			"reason", err,
		)

		return graphutils.MaybeSkipRetry(err)
	}

	return nil
}

// HandleRemoveLicenseTask is the handler, which removes a license from a
// user.
func HandleRemoveLicenseTask(ctx context.Context, t *asynq.Task) error {
	data := t.Payload()
	if data == nil {
		return asynqutils.SkipRetry(ErrNoPayload)
	}

	var payload LicensePayload
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

	skuID, err := uuid.Parse(payload.SKUID)
	if err != nil {
		return asynqutils.SkipRetry(err)
	}

	logger := asynqutils.GetLogger(ctx)
	logger.Info(
		"removing license",
		"tenant_id", payload.TenantID,
		"user_principal_name", payload.UserPrincipalName,
		"sku_id", payload.SKUID,
	)

	requestBody := users.NewItemAssignLicensePostRequestBody()
	requestBody.SetAddLicenses([]graphmodels.AssignedLicenseable{})
	requestBody.SetRemoveLicenses([]uuid.UUID{skuID})

	_, err = client.Client.Users().ByUserId(payload.UserPrincipalName).AssignLicense().Post(ctx, requestBody, nil)
	if err != nil {
		logger.Error(
			"failed to remove license",
			"tenant_id", payload.TenantID,
			"user_principal_name", payload.UserPrincipalName,
			"sku_id", payload.SKUID,
			"reason", err,
		)

		return graphutils.MaybeSkipRetry(err)
	}

	return nil
}
