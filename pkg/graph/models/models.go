// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package models provides the models for directory data collected from
// Microsoft Graph.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	coremodels "github.com/m365ops/tenantctl/pkg/core/models"
	"github.com/m365ops/tenantctl/pkg/core/registry"
)

// Names for the various models provided by this package.
// These names are used for registering models with [registry.ModelRegistry]
const (
	UserModelName           = "graph:model:user"
	GroupModelName          = "graph:model:group"
	GroupMemberModelName    = "graph:model:group_member"
	TeamModelName           = "graph:model:team"
	TeamChannelModelName    = "graph:model:team_channel"
	TeamMemberModelName     = "graph:model:team_member"
	SiteModelName           = "graph:model:site"
	DriveModelName          = "graph:model:drive"
	SubscribedSKUModelName  = "graph:model:subscribed_sku"
	SignInModelName         = "graph:model:signin"
	DirectoryAuditModelName = "graph:model:directory_audit"
	ReportRunModelName      = "graph:model:report_run"
	UserToGroupModelName    = "graph:model:link_user_to_group"
	DriveToSiteModelName    = "graph:model:link_drive_to_site"
)

// models specifies the mapping between name and model type, which will be
// registered with [registry.ModelRegistry].
var models = map[string]any{
	UserModelName:           &User{},
	GroupModelName:          &Group{},
	GroupMemberModelName:    &GroupMember{},
	TeamModelName:           &Team{},
	TeamChannelModelName:    &TeamChannel{},
	TeamMemberModelName:     &TeamMember{},
	SiteModelName:           &Site{},
	DriveModelName:          &Drive{},
	SubscribedSKUModelName:  &SubscribedSKU{},
	SignInModelName:         &SignIn{},
	DirectoryAuditModelName: &DirectoryAudit{},
	ReportRunModelName:      &ReportRun{},

	// Link models
	UserToGroupModelName: &UserToGroup{},
	DriveToSiteModelName: &DriveToSite{},
}

// User represents a Microsoft Entra user account.
type User struct {
	bun.BaseModel `bun:"table:g_user"`
	coremodels.Model

	TenantID          string    `bun:"tenant_id,notnull,unique:g_user_key"`
	UserID            string    `bun:"user_id,notnull,unique:g_user_key"`
	UserPrincipalName string    `bun:"user_principal_name,notnull"`
	DisplayName       string    `bun:"display_name,nullzero"`
	GivenName         string    `bun:"given_name,nullzero"`
	Surname           string    `bun:"surname,nullzero"`
	Mail              string    `bun:"mail,nullzero"`
	JobTitle          string    `bun:"job_title,nullzero"`
	Department        string    `bun:"department,nullzero"`
	OfficeLocation    string    `bun:"office_location,nullzero"`
	UsageLocation     string    `bun:"usage_location,nullzero"`
	AccountEnabled    bool      `bun:"account_enabled,notnull"`
	UserCreatedAt     time.Time `bun:"user_created_at,nullzero"`
	LastSignInAt      time.Time `bun:"last_sign_in_at,nullzero"`
}

// Group represents a Microsoft Entra group.
type Group struct {
	bun.BaseModel `bun:"table:g_group"`
	coremodels.Model

	TenantID        string `bun:"tenant_id,notnull,unique:g_group_key"`
	GroupID         string `bun:"group_id,notnull,unique:g_group_key"`
	DisplayName     string `bun:"display_name,notnull"`
	Description     string `bun:"description,nullzero"`
	Mail            string `bun:"mail,nullzero"`
	MailEnabled     bool   `bun:"mail_enabled,notnull"`
	SecurityEnabled bool   `bun:"security_enabled,notnull"`
	GroupTypes      string `bun:"group_types,nullzero"`
	Visibility      string `bun:"visibility,nullzero"`
}

// GroupMember represents a member of a Microsoft Entra group.
type GroupMember struct {
	bun.BaseModel `bun:"table:g_group_member"`
	coremodels.Model

	TenantID    string `bun:"tenant_id,notnull,unique:g_group_member_key"`
	GroupID     string `bun:"group_id,notnull,unique:g_group_member_key"`
	MemberID    string `bun:"member_id,notnull,unique:g_group_member_key"`
	MemberType  string `bun:"member_type,notnull"`
	DisplayName string `bun:"display_name,nullzero"`
	Group       *Group `bun:"rel:has-one,join:group_id=group_id,join:tenant_id=tenant_id"`
	User        *User  `bun:"rel:has-one,join:member_id=user_id,join:tenant_id=tenant_id"`
}

// UserToGroup represents a link table connecting the [User] with [Group]
// models.
type UserToGroup struct {
	bun.BaseModel `bun:"table:l_g_user_to_group"`
	coremodels.Model

	UserID  uuid.UUID `bun:"user_id,notnull,type:uuid,unique:l_g_user_to_group_key"`
	GroupID uuid.UUID `bun:"group_id,notnull,type:uuid,unique:l_g_user_to_group_key"`
}

// Team represents a Microsoft Teams team.
type Team struct {
	bun.BaseModel `bun:"table:g_team"`
	coremodels.Model

	TenantID    string `bun:"tenant_id,notnull,unique:g_team_key"`
	TeamID      string `bun:"team_id,notnull,unique:g_team_key"`
	DisplayName string `bun:"display_name,notnull"`
	Description string `bun:"description,nullzero"`
	Visibility  string `bun:"visibility,nullzero"`
	IsArchived  bool   `bun:"is_archived,notnull"`
}

// TeamChannel represents a channel of a Microsoft Teams team.
type TeamChannel struct {
	bun.BaseModel `bun:"table:g_team_channel"`
	coremodels.Model

	TenantID       string `bun:"tenant_id,notnull,unique:g_team_channel_key"`
	TeamID         string `bun:"team_id,notnull,unique:g_team_channel_key"`
	ChannelID      string `bun:"channel_id,notnull,unique:g_team_channel_key"`
	DisplayName    string `bun:"display_name,notnull"`
	Description    string `bun:"description,nullzero"`
	MembershipType string `bun:"membership_type,nullzero"`
	Team           *Team  `bun:"rel:has-one,join:team_id=team_id,join:tenant_id=tenant_id"`
}

// TeamMember represents a member of a Microsoft Teams team.
type TeamMember struct {
	bun.BaseModel `bun:"table:g_team_member"`
	coremodels.Model

	TenantID     string `bun:"tenant_id,notnull,unique:g_team_member_key"`
	TeamID       string `bun:"team_id,notnull,unique:g_team_member_key"`
	MembershipID string `bun:"membership_id,notnull,unique:g_team_member_key"`
	UserID       string `bun:"member_user_id,nullzero"`
	DisplayName  string `bun:"display_name,nullzero"`
	Roles        string `bun:"roles,nullzero"`
	Team         *Team  `bun:"rel:has-one,join:team_id=team_id,join:tenant_id=tenant_id"`
}

// Site represents a SharePoint site.
type Site struct {
	bun.BaseModel `bun:"table:g_site"`
	coremodels.Model

	TenantID       string    `bun:"tenant_id,notnull,unique:g_site_key"`
	SiteID         string    `bun:"site_id,notnull,unique:g_site_key"`
	Name           string    `bun:"name,nullzero"`
	DisplayName    string    `bun:"display_name,nullzero"`
	WebURL         string    `bun:"web_url,nullzero"`
	SiteCreatedAt  time.Time `bun:"site_created_at,nullzero"`
	SiteModifiedAt time.Time `bun:"site_modified_at,nullzero"`
}

// Drive represents a SharePoint document library or a OneDrive drive.
type Drive struct {
	bun.BaseModel `bun:"table:g_drive"`
	coremodels.Model

	TenantID       string `bun:"tenant_id,notnull,unique:g_drive_key"`
	DriveID        string `bun:"drive_id,notnull,unique:g_drive_key"`
	SiteID         string `bun:"site_id,nullzero"`
	OwnerID        string `bun:"owner_id,nullzero"`
	Name           string `bun:"name,nullzero"`
	DriveType      string `bun:"drive_type,nullzero"`
	WebURL         string `bun:"web_url,nullzero"`
	QuotaTotal     int64  `bun:"quota_total,notnull"`
	QuotaUsed      int64  `bun:"quota_used,notnull"`
	QuotaRemaining int64  `bun:"quota_remaining,notnull"`
	QuotaState     string `bun:"quota_state,nullzero"`
	Site           *Site  `bun:"rel:has-one,join:site_id=site_id,join:tenant_id=tenant_id"`
}

// DriveToSite represents a link table connecting the [Drive] with [Site]
// models.
type DriveToSite struct {
	bun.BaseModel `bun:"table:l_g_drive_to_site"`
	coremodels.Model

	DriveID uuid.UUID `bun:"drive_id,notnull,type:uuid,unique:l_g_drive_to_site_key"`
	SiteID  uuid.UUID `bun:"site_id,notnull,type:uuid,unique:l_g_drive_to_site_key"`
}

// SubscribedSKU represents a license SKU subscribed to by the tenant.
type SubscribedSKU struct {
	bun.BaseModel `bun:"table:g_subscribed_sku"`
	coremodels.Model

	TenantID         string `bun:"tenant_id,notnull,unique:g_subscribed_sku_key"`
	SKUID            string `bun:"sku_id,notnull,unique:g_subscribed_sku_key"`
	SKUPartNumber    string `bun:"sku_part_number,notnull"`
	AppliesTo        string `bun:"applies_to,nullzero"`
	CapabilityStatus string `bun:"capability_status,nullzero"`
	ConsumedUnits    int    `bun:"consumed_units,notnull"`
	EnabledUnits     int    `bun:"enabled_units,notnull"`
	SuspendedUnits   int    `bun:"suspended_units,notnull"`
	WarningUnits     int    `bun:"warning_units,notnull"`
}

// SignIn represents an entry from the Microsoft Entra sign-in logs.
type SignIn struct {
	bun.BaseModel `bun:"table:g_signin"`
	coremodels.Model

	TenantID          string    `bun:"tenant_id,notnull,unique:g_signin_key"`
	SignInID          string    `bun:"signin_id,notnull,unique:g_signin_key"`
	UserID            string    `bun:"user_id,nullzero"`
	UserPrincipalName string    `bun:"user_principal_name,nullzero"`
	AppDisplayName    string    `bun:"app_display_name,nullzero"`
	ClientAppUsed     string    `bun:"client_app_used,nullzero"`
	IPAddress         string    `bun:"ip_address,nullzero"`
	ErrorCode         int       `bun:"error_code,notnull"`
	SignInCreatedAt   time.Time `bun:"signin_created_at,nullzero"`
}

// DirectoryAudit represents an entry from the directory audit logs.
type DirectoryAudit struct {
	bun.BaseModel `bun:"table:g_directory_audit"`
	coremodels.Model

	TenantID     string    `bun:"tenant_id,notnull,unique:g_directory_audit_key"`
	AuditID      string    `bun:"audit_id,notnull,unique:g_directory_audit_key"`
	ActivityName string    `bun:"activity_name,nullzero"`
	Category     string    `bun:"category,nullzero"`
	Result       string    `bun:"result,nullzero"`
	InitiatedBy  string    `bun:"initiated_by,nullzero"`
	ActivityAt   time.Time `bun:"activity_at,nullzero"`
}

// ReportRun represents a rendered report export.
type ReportRun struct {
	bun.BaseModel `bun:"table:g_report_run"`
	coremodels.Model

	Name   string `bun:"name,notnull"`
	Format string `bun:"format,notnull"`
	Path   string `bun:"path,notnull"`
	Rows   int    `bun:"rows,notnull"`
}

// init registers the models with the [registry.ModelRegistry].
func init() {
	for k, v := range models {
		registry.ModelRegistry.MustRegister(k, v)
	}
}
