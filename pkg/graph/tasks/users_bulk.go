// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hibiken/asynq"
	msgraphcore "github.com/microsoftgraph/msgraph-sdk-go-core"
	graphmodels "github.com/microsoftgraph/msgraph-sdk-go/models"

	"github.com/m365ops/tenantctl/pkg/batch"
	graphclients "github.com/m365ops/tenantctl/pkg/clients/graph"
	"github.com/m365ops/tenantctl/pkg/core/config"
	asynqutils "github.com/m365ops/tenantctl/pkg/utils/asynq"
	"github.com/m365ops/tenantctl/pkg/utils/ptr"
)

const (
	// TaskBulkUpdateUsers is the name of the task for updating user
	// attributes in bulk from a CSV file.
	TaskBulkUpdateUsers = "users:task:bulk-update-users"

	// TaskProcessJoiners is the name of the task for onboarding new hires
	// from a CSV file.
	TaskProcessJoiners = "users:task:process-joiners"

	// TaskProcessLeavers is the name of the task for offboarding leavers
	// from a CSV file.
	TaskProcessLeavers = "users:task:process-leavers"
)

// batchOptions are the options used by the CSV-driven bulk tasks. They are
// configured from the worker command via [SetBatchOptions].
var batchOptions batch.Options

// SetBatchOptions configures the batch processing options used by the bulk
// tasks.
func SetBatchOptions(conf config.BatchConfig) {
	batchOptions = batch.Options{
		ChunkSize:   conf.ChunkSize,
		Concurrency: conf.Concurrency,
		ChunkDelay:  conf.ChunkDelay,
	}
}

// csvRecord represents a single CSV data row, keyed by the CSV header.
type csvRecord map[string]string

// readCSVRecords reads the CSV file at the given path and returns its data
// rows keyed by the header row.
func readCSVRecords(path string) ([]csvRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}

		return nil, err
	}

	for i, name := range header {
		header[i] = strings.TrimSpace(name)
	}

	records := make([]csvRecord, 0)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		record := make(csvRecord, len(header))
		for i, name := range header {
			if i < len(row) {
				record[name] = strings.TrimSpace(row[i])
			}
		}
		records = append(records, record)
	}

	return records, nil
}

// BulkCSVPayload is the payload used by the CSV-driven bulk tasks.
type BulkCSVPayload struct {
	// TenantID specifies the tenant against which to run.
	TenantID string `json:"tenant_id" yaml:"tenant_id"`

	// Path specifies the path to the CSV file.
	Path string `json:"path" yaml:"path"`
}

// validate validates the payload.
func (p *BulkCSVPayload) validate() error {
	if p.TenantID == "" {
		return asynqutils.SkipRetry(ErrNoTenantID)
	}
	if p.Path == "" {
		return asynqutils.SkipRetry(ErrNoCSVPath)
	}

	return nil
}

// HandleBulkUpdateUsersTask is the handler, which updates user attributes in
// bulk from a CSV file. The CSV file is expected to provide a
// user_principal_name column, plus one column per attribute to update.
//
// Rows which fail to apply are logged and counted, without affecting the
// remaining rows.
func HandleBulkUpdateUsersTask(ctx context.Context, t *asynq.Task) error {
	data := t.Payload()
	if data == nil {
		return asynqutils.SkipRetry(ErrNoPayload)
	}

	var payload BulkCSVPayload
	if err := asynqutils.Unmarshal(data, &payload); err != nil {
		return asynqutils.SkipRetry(err)
	}
	if err := payload.validate(); err != nil {
		return err
	}

	records, err := readCSVRecords(payload.Path)
	if err != nil {
		return asynqutils.SkipRetry(err)
	}

	logger := asynqutils.GetLogger(ctx)
	logger.Info(
		"bulk updating users",
		"tenant_id", payload.TenantID,
		"path", payload.Path,
		"rows", len(records),
	)

	fn := func(ctx context.Context, record csvRecord) error {
		upn := record["user_principal_name"]
		if upn == "" {
			return ErrNoUserPrincipalName
		}

		return updateUser(ctx, UpdateUserPayload{
			TenantID:          payload.TenantID,
			UserPrincipalName: upn,
			DisplayName:       record["display_name"],
			JobTitle:          record["job_title"],
			Department:        record["department"],
			OfficeLocation:    record["office_location"],
			MobilePhone:       record["mobile_phone"],
			UsageLocation:     record["usage_location"],
		})
	}

	result, err := batch.Process(ctx, records, fn, batchOptions)
	logger.Info(
		"bulk update finished",
		"tenant_id", payload.TenantID,
		"processed", result.Processed,
		"failed", result.Failed,
	)

	return err
}

// HandleProcessJoinersTask is the handler, which onboards new hires from a
// CSV file. For each row a user account is created, a license is assigned
// when a sku_id column is present, and the user is added to the groups listed
// in the groups column (separated by semicolons).
func HandleProcessJoinersTask(ctx context.Context, t *asynq.Task) error {
	data := t.Payload()
	if data == nil {
		return asynqutils.SkipRetry(ErrNoPayload)
	}

	var payload BulkCSVPayload
	if err := asynqutils.Unmarshal(data, &payload); err != nil {
		return asynqutils.SkipRetry(err)
	}
	if err := payload.validate(); err != nil {
		return err
	}

	records, err := readCSVRecords(payload.Path)
	if err != nil {
		return asynqutils.SkipRetry(err)
	}

	logger := asynqutils.GetLogger(ctx)
	logger.Info(
		"processing joiners",
		"tenant_id", payload.TenantID,
		"path", payload.Path,
		"rows", len(records),
	)

	fn := func(ctx context.Context, record csvRecord) error {
		return processJoiner(ctx, payload.TenantID, record)
	}

	result, err := batch.Process(ctx, records, fn, batchOptions)
	logger.Info(
		"joiner processing finished",
		"tenant_id", payload.TenantID,
		"processed", result.Processed,
		"failed", result.Failed,
	)

	return err
}

// processJoiner onboards a single new hire.
func processJoiner(ctx context.Context, tenantID string, record csvRecord) error {
	upn := record["user_principal_name"]
	if upn == "" {
		return ErrNoUserPrincipalName
	}

	userID, err := createUser(ctx, CreateUserPayload{
		TenantID:          tenantID,
		UserPrincipalName: upn,
		DisplayName:       record["display_name"],
		MailNickname:      record["mail_nickname"],
		GivenName:         record["given_name"],
		Surname:           record["surname"],
		JobTitle:          record["job_title"],
		Department:        record["department"],
		UsageLocation:     record["usage_location"],
		Password:          record["password"],
	})
	if err != nil {
		return err
	}

	if skuID := record["sku_id"]; skuID != "" {
		err := assignLicense(ctx, LicensePayload{
			TenantID:          tenantID,
			UserPrincipalName: upn,
			SKUID:             skuID,
		})
		if err != nil {
			return fmt.Errorf("failed to assign license to %s: %w", upn, err)
		}
	}

	for _, groupID := range strings.Split(record["groups"], ";") {
		groupID = strings.TrimSpace(groupID)
		if groupID == "" {
			continue
		}

		err := addGroupMember(ctx, GroupMemberPayload{
			TenantID: tenantID,
			GroupID:  groupID,
			MemberID: userID,
		})
		if err != nil {
			return fmt.Errorf("failed to add %s to group %s: %w", upn, groupID, err)
		}
	}

	return nil
}

// HandleProcessLeaversTask is the handler, which offboards leavers from a CSV
// file. For each row the user account is disabled, its refresh tokens are
// revoked, and its group memberships are removed.
func HandleProcessLeaversTask(ctx context.Context, t *asynq.Task) error {
	data := t.Payload()
	if data == nil {
		return asynqutils.SkipRetry(ErrNoPayload)
	}

	var payload BulkCSVPayload
	if err := asynqutils.Unmarshal(data, &payload); err != nil {
		return asynqutils.SkipRetry(err)
	}
	if err := payload.validate(); err != nil {
		return err
	}

	records, err := readCSVRecords(payload.Path)
	if err != nil {
		return asynqutils.SkipRetry(err)
	}

	logger := asynqutils.GetLogger(ctx)
	logger.Info(
		"processing leavers",
		"tenant_id", payload.TenantID,
		"path", payload.Path,
		"rows", len(records),
	)

	fn := func(ctx context.Context, record csvRecord) error {
		return processLeaver(ctx, payload.TenantID, record)
	}

	result, err := batch.Process(ctx, records, fn, batchOptions)
	logger.Info(
		"leaver processing finished",
		"tenant_id", payload.TenantID,
		"processed", result.Processed,
		"failed", result.Failed,
	)

	return err
}

// processLeaver offboards a single leaver.
func processLeaver(ctx context.Context, tenantID string, record csvRecord) error {
	upn := record["user_principal_name"]
	if upn == "" {
		return ErrNoUserPrincipalName
	}

	client, ok := graphclients.Clientset.Get(tenantID)
	if !ok {
		return ClientNotFound(tenantID)
	}

	logger := asynqutils.GetLogger(ctx)

	user := graphmodels.NewUser()
	user.SetAccountEnabled(ptr.To(false))
	if _, err := client.Client.Users().ByUserId(upn).Patch(ctx, user, nil); err != nil {
		return fmt.Errorf("failed to disable %s: %w", upn, err)
	}

	if _, err := client.Client.Users().ByUserId(upn).RevokeSignInSessions().Post(ctx, nil); err != nil {
		return fmt.Errorf("failed to revoke sessions of %s: %w", upn, err)
	}

	item, err := client.Client.Users().ByUserId(upn).Get(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to get user %s: %w", upn, err)
	}
	userID := ptr.Value(item.GetId(), "")
	if userID == "" {
		return fmt.Errorf("no object id for %s", upn)
	}

	// Remove the remaining group memberships. Dynamic and mail-enabled
	// memberships cannot be removed this way, so failures here are logged
	// only.
	memberOf, err := client.Client.Users().ByUserId(upn).MemberOf().Get(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to get memberships of %s: %w", upn, err)
	}

	iter, err := msgraphcore.NewPageIterator[graphmodels.DirectoryObjectable](
		memberOf,
		client.Client.GetAdapter(),
		graphmodels.CreateDirectoryObjectCollectionResponseFromDiscriminatorValue,
	)
	if err != nil {
		return err
	}

	err = iter.Iterate(ctx, func(obj graphmodels.DirectoryObjectable) bool {
		group, ok := obj.(graphmodels.Groupable)
		if !ok {
			return true
		}

		groupID := ptr.Value(group.GetId(), "")
		if groupID == "" {
			return true
		}

		err := client.Client.Groups().
			ByGroupId(groupID).
			Members().
			ByDirectoryObjectId(userID).
			Ref().
			Delete(ctx, nil)
		if err != nil {
			logger.Warn(
				"failed to remove group membership",
				"user_principal_name", upn,
				"group_id", groupID,
				"reason", err,
			)
		}

		return true
	})
	if err != nil {
		return fmt.Errorf("failed to iterate memberships of %s: %w", upn, err)
	}

	return nil
}
