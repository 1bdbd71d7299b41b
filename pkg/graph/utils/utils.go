// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package utils provides Microsoft Graph related utilities.
package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/hibiken/asynq"
	"github.com/microsoftgraph/msgraph-sdk-go/models/odataerrors"

	"github.com/m365ops/tenantctl/pkg/clients/db"
	"github.com/m365ops/tenantctl/pkg/graph/models"
)

// MaybeSkipRetry wraps known Microsoft Graph client errors with
// [asynq.SkipRetry], so that the tasks from which these errors originate from
// won't be retried.
//
// Client errors (4xx) are considered permanent, except for request timeouts
// and throttling responses, which are worth retrying.
func MaybeSkipRetry(err error) error {
	statusCode := 0

	var odataErr *odataerrors.ODataError
	var respErr *azcore.ResponseError
	switch {
	case errors.As(err, &odataErr):
		statusCode = odataErr.ResponseStatusCode
	case errors.As(err, &respErr):
		statusCode = respErr.StatusCode
	default:
		return err
	}

	isClientError := statusCode >= http.StatusBadRequest && statusCode < http.StatusInternalServerError
	isRetryable := statusCode == http.StatusRequestTimeout || statusCode == http.StatusTooManyRequests
	if isClientError && !isRetryable {
		return fmt.Errorf("%w (%w)", err, asynq.SkipRetry)
	}

	return err
}

// GetUsersFromDB returns the [models.User] records from the database.
func GetUsersFromDB(ctx context.Context) ([]models.User, error) {
	items := make([]models.User, 0)
	err := db.DB.NewSelect().Model(&items).Scan(ctx)

	return items, err
}

// GetGroupsFromDB returns the [models.Group] records from the database.
func GetGroupsFromDB(ctx context.Context) ([]models.Group, error) {
	items := make([]models.Group, 0)
	err := db.DB.NewSelect().Model(&items).Scan(ctx)

	return items, err
}

// GetTeamsFromDB returns the [models.Team] records from the database.
func GetTeamsFromDB(ctx context.Context) ([]models.Team, error) {
	items := make([]models.Team, 0)
	err := db.DB.NewSelect().Model(&items).Scan(ctx)

	return items, err
}

// GetSitesFromDB returns the [models.Site] records from the database.
func GetSitesFromDB(ctx context.Context) ([]models.Site, error) {
	items := make([]models.Site, 0)
	err := db.DB.NewSelect().Model(&items).Scan(ctx)

	return items, err
}
