// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/m365ops/tenantctl/pkg/graph/models"
	asynqutils "github.com/m365ops/tenantctl/pkg/utils/asynq"
)

// LinkUsersWithGroups creates links between the [models.User] and
// [models.Group] models based on the collected group memberships.
func LinkUsersWithGroups(ctx context.Context, db *bun.DB) error {
	var items []models.GroupMember
	err := db.NewSelect().
		Model(&items).
		Relation("Group").
		Relation("User").
		Where("?.id IS NOT NULL", bun.Ident("group")).
		Where("?.id IS NOT NULL", bun.Ident("user")).
		Scan(ctx)

	if err != nil {
		return err
	}

	links := make([]models.UserToGroup, 0, len(items))
	for _, item := range items {
		link := models.UserToGroup{
			UserID:  item.User.ID,
			GroupID: item.Group.ID,
		}
		links = append(links, link)
	}

	if len(links) == 0 {
		return nil
	}

	out, err := db.NewInsert().
		Model(&links).
		On("CONFLICT (user_id, group_id) DO UPDATE").
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

	logger := asynqutils.GetLogger(ctx)
	logger.Info("linked user with group", "count", count)

	return nil
}

// LinkDrivesWithSites creates links between the [models.Drive] and
// [models.Site] models.
func LinkDrivesWithSites(ctx context.Context, db *bun.DB) error {
	var items []models.Drive
	err := db.NewSelect().
		Model(&items).
		Relation("Site").
		Where("site.id IS NOT NULL").
		Scan(ctx)

	if err != nil {
		return err
	}

	links := make([]models.DriveToSite, 0, len(items))
	for _, item := range items {
		link := models.DriveToSite{
			DriveID: item.ID,
			SiteID:  item.Site.ID,
		}
		links = append(links, link)
	}

	if len(links) == 0 {
		return nil
	}

	out, err := db.NewInsert().
		Model(&links).
		On("CONFLICT (drive_id, site_id) DO UPDATE").
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

	logger := asynqutils.GetLogger(ctx)
	logger.Info("linked drive with site", "count", count)

	return nil
}
