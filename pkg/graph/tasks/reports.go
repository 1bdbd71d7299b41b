// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
	graphmodels "github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/users"

	asynqclient "github.com/m365ops/tenantctl/pkg/clients/asynq"
	"github.com/m365ops/tenantctl/pkg/clients/db"
	graphclients "github.com/m365ops/tenantctl/pkg/clients/graph"
	"github.com/m365ops/tenantctl/pkg/core/config"
	"github.com/m365ops/tenantctl/pkg/export"
	"github.com/m365ops/tenantctl/pkg/graph/models"
	graphutils "github.com/m365ops/tenantctl/pkg/graph/utils"
	asynqutils "github.com/m365ops/tenantctl/pkg/utils/asynq"
	"github.com/m365ops/tenantctl/pkg/utils/ptr"
)

const (
	// TaskExportReport is the name of the task for rendering a report and
	// exporting it to the reports directory.
	TaskExportReport = "reports:task:export"

	// TaskMailReport is the name of the task for rendering a report and
	// delivering it via mail.
	TaskMailReport = "reports:task:mail-report"

	// defaultInactiveDays is the sign-in activity cutoff used by the
	// inactive-users report.
	defaultInactiveDays = 90
)

// reportsConfig provides the report rendering settings. It is configured from
// the worker command via [SetReportsConfig].
var reportsConfig config.ReportsConfig

// SetReportsConfig configures the report rendering settings used by the
// report tasks.
func SetReportsConfig(conf config.ReportsConfig) {
	reportsConfig = conf
}

// reportBuilder builds a report from the collected directory data.
type reportBuilder func(ctx context.Context) (export.Report, error)

// reportBuilders provides the known reports.
var reportBuilders = map[string]reportBuilder{
	"users":          buildUsersReport,
	"inactive-users": buildInactiveUsersReport,
	"groups":         buildGroupsReport,
	"group-members":  buildGroupMembersReport,
	"empty-groups":   buildEmptyGroupsReport,
	"teams":          buildTeamsReport,
	"drives":         buildDrivesReport,
	"license-usage":  buildLicenseUsageReport,
	"signins":        buildSignInsReport,
}

// buildReport builds the report with the given name.
func buildReport(ctx context.Context, name string) (export.Report, error) {
	builder, ok := reportBuilders[name]
	if !ok {
		return export.Report{}, fmt.Errorf("%w: %s", ErrUnknownReport, name)
	}

	return builder(ctx)
}

// BuildReport builds the report with the given name from the collected
// directory data.
func BuildReport(ctx context.Context, name string) (export.Report, error) {
	return buildReport(ctx, name)
}

// ReportNames returns the names of the known reports, in sorted order.
func ReportNames() []string {
	names := make([]string, 0, len(reportBuilders))
	for name := range reportBuilders {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// formatTime renders the given timestamp for report output. Zero timestamps
// render as an empty cell.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.Format(time.RFC3339)
}

// buildUsersReport builds a report of all known user accounts.
func buildUsersReport(ctx context.Context) (export.Report, error) {
	items, err := graphutils.GetUsersFromDB(ctx)
	if err != nil {
		return export.Report{}, err
	}

	report := export.Report{
		Name: "users",
		Headers: []string{
			"tenant_id",
			"user_principal_name",
			"display_name",
			"mail",
			"department",
			"job_title",
			"account_enabled",
			"last_sign_in_at",
		},
	}
	for _, item := range items {
		report.Rows = append(report.Rows, []string{
			item.TenantID,
			item.UserPrincipalName,
			item.DisplayName,
			item.Mail,
			item.Department,
			item.JobTitle,
			strconv.FormatBool(item.AccountEnabled),
			formatTime(item.LastSignInAt),
		})
	}

	return report, nil
}

// buildInactiveUsersReport builds a report of enabled user accounts without
// sign-in activity within the cutoff window.
func buildInactiveUsersReport(ctx context.Context) (export.Report, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -defaultInactiveDays)
	items := make([]models.User, 0)
	err := db.DB.NewSelect().
		Model(&items).
		Where("account_enabled = TRUE").
		Where("last_sign_in_at IS NULL OR last_sign_in_at < ?", cutoff).
		Order("last_sign_in_at ASC").
		Scan(ctx)
	if err != nil {
		return export.Report{}, err
	}

	report := export.Report{
		Name: "inactive-users",
		Headers: []string{
			"tenant_id",
			"user_principal_name",
			"display_name",
			"department",
			"last_sign_in_at",
		},
	}
	for _, item := range items {
		report.Rows = append(report.Rows, []string{
			item.TenantID,
			item.UserPrincipalName,
			item.DisplayName,
			item.Department,
			formatTime(item.LastSignInAt),
		})
	}

	return report, nil
}

// buildGroupsReport builds a report of all known groups.
func buildGroupsReport(ctx context.Context) (export.Report, error) {
	items, err := graphutils.GetGroupsFromDB(ctx)
	if err != nil {
		return export.Report{}, err
	}

	report := export.Report{
		Name: "groups",
		Headers: []string{
			"tenant_id",
			"group_id",
			"display_name",
			"mail",
			"group_types",
			"visibility",
			"security_enabled",
			"mail_enabled",
		},
	}
	for _, item := range items {
		report.Rows = append(report.Rows, []string{
			item.TenantID,
			item.GroupID,
			item.DisplayName,
			item.Mail,
			item.GroupTypes,
			item.Visibility,
			strconv.FormatBool(item.SecurityEnabled),
			strconv.FormatBool(item.MailEnabled),
		})
	}

	return report, nil
}

// buildGroupMembersReport builds a report of all known group memberships.
func buildGroupMembersReport(ctx context.Context) (export.Report, error) {
	items := make([]models.GroupMember, 0)
	err := db.DB.NewSelect().
		Model(&items).
		Relation("Group").
		Order("tenant_id ASC", "group_id ASC").
		Scan(ctx)
	if err != nil {
		return export.Report{}, err
	}

	report := export.Report{
		Name: "group-members",
		Headers: []string{
			"tenant_id",
			"group_id",
			"group_display_name",
			"member_id",
			"member_display_name",
			"member_type",
		},
	}
	for _, item := range items {
		groupName := ""
		if item.Group != nil {
			groupName = item.Group.DisplayName
		}
		report.Rows = append(report.Rows, []string{
			item.TenantID,
			item.GroupID,
			groupName,
			item.MemberID,
			item.DisplayName,
			item.MemberType,
		})
	}

	return report, nil
}

// buildEmptyGroupsReport builds a report of groups without any members.
func buildEmptyGroupsReport(ctx context.Context) (export.Report, error) {
	items := make([]models.Group, 0)
	err := db.DB.NewSelect().
		Model(&items).
		Where("NOT EXISTS (SELECT 1 FROM g_group_member AS gm WHERE gm.group_id = ?TableAlias.group_id AND gm.tenant_id = ?TableAlias.tenant_id)").
		Order("tenant_id ASC", "display_name ASC").
		Scan(ctx)
	if err != nil {
		return export.Report{}, err
	}

	report := export.Report{
		Name: "empty-groups",
		Headers: []string{
			"tenant_id",
			"group_id",
			"display_name",
			"group_types",
		},
	}
	for _, item := range items {
		report.Rows = append(report.Rows, []string{
			item.TenantID,
			item.GroupID,
			item.DisplayName,
			item.GroupTypes,
		})
	}

	return report, nil
}

// buildTeamsReport builds a report of all known teams.
func buildTeamsReport(ctx context.Context) (export.Report, error) {
	items, err := graphutils.GetTeamsFromDB(ctx)
	if err != nil {
		return export.Report{}, err
	}

	report := export.Report{
		Name: "teams",
		Headers: []string{
			"tenant_id",
			"team_id",
			"display_name",
			"visibility",
			"is_archived",
		},
	}
	for _, item := range items {
		report.Rows = append(report.Rows, []string{
			item.TenantID,
			item.TeamID,
			item.DisplayName,
			item.Visibility,
			strconv.FormatBool(item.IsArchived),
		})
	}

	return report, nil
}

// buildDrivesReport builds a report of all known drives and their storage
// consumption.
func buildDrivesReport(ctx context.Context) (export.Report, error) {
	items := make([]models.Drive, 0)
	err := db.DB.NewSelect().
		Model(&items).
		Order("tenant_id ASC", "quota_used DESC").
		Scan(ctx)
	if err != nil {
		return export.Report{}, err
	}

	report := export.Report{
		Name: "drives",
		Headers: []string{
			"tenant_id",
			"drive_id",
			"name",
			"drive_type",
			"owner_id",
			"quota_used",
			"quota_total",
			"used_percent",
			"quota_state",
		},
	}
	for _, item := range items {
		usedPercent := ""
		if item.QuotaTotal > 0 {
			usedPercent = strconv.FormatFloat(
				float64(item.QuotaUsed)/float64(item.QuotaTotal)*100.0, 'f', 2, 64,
			)
		}
		report.Rows = append(report.Rows, []string{
			item.TenantID,
			item.DriveID,
			item.Name,
			item.DriveType,
			item.OwnerID,
			strconv.FormatInt(item.QuotaUsed, 10),
			strconv.FormatInt(item.QuotaTotal, 10),
			usedPercent,
			item.QuotaState,
		})
	}

	return report, nil
}

// buildLicenseUsageReport builds a report of the subscribed license SKUs and
// their consumption.
func buildLicenseUsageReport(ctx context.Context) (export.Report, error) {
	items := make([]models.SubscribedSKU, 0)
	err := db.DB.NewSelect().
		Model(&items).
		Order("tenant_id ASC", "sku_part_number ASC").
		Scan(ctx)
	if err != nil {
		return export.Report{}, err
	}

	report := export.Report{
		Name: "license-usage",
		Headers: []string{
			"tenant_id",
			"sku_part_number",
			"sku_id",
			"consumed_units",
			"enabled_units",
			"available_units",
			"suspended_units",
			"warning_units",
		},
	}
	for _, item := range items {
		report.Rows = append(report.Rows, []string{
			item.TenantID,
			item.SKUPartNumber,
			item.SKUID,
			strconv.Itoa(item.ConsumedUnits),
			strconv.Itoa(item.EnabledUnits),
			strconv.Itoa(item.EnabledUnits - item.ConsumedUnits),
			strconv.Itoa(item.SuspendedUnits),
			strconv.Itoa(item.WarningUnits),
		})
	}

	return report, nil
}

// buildSignInsReport builds a report of the collected sign-in log entries.
func buildSignInsReport(ctx context.Context) (export.Report, error) {
	items := make([]models.SignIn, 0)
	err := db.DB.NewSelect().
		Model(&items).
		Order("signin_created_at DESC").
		Scan(ctx)
	if err != nil {
		return export.Report{}, err
	}

	report := export.Report{
		Name: "signins",
		Headers: []string{
			"tenant_id",
			"user_principal_name",
			"app_display_name",
			"client_app_used",
			"ip_address",
			"error_code",
			"created_at",
		},
	}
	for _, item := range items {
		report.Rows = append(report.Rows, []string{
			item.TenantID,
			item.UserPrincipalName,
			item.AppDisplayName,
			item.ClientAppUsed,
			item.IPAddress,
			strconv.Itoa(item.ErrorCode),
			formatTime(item.SignInCreatedAt),
		})
	}

	return report, nil
}

// ExportReportPayload is the payload used for rendering and exporting a
// report.
type ExportReportPayload struct {
	// Name specifies the report to render.
	Name string `json:"name" yaml:"name"`

	// Format specifies the output format. When empty the default formats
	// from the configuration are used.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// NewExportReportTask creates a new [asynq.Task] for exporting reports,
// without specifying a payload.
func NewExportReportTask() *asynq.Task {
	return asynq.NewTask(TaskExportReport, nil)
}

// HandleExportReportTask is the handler, which renders a report and exports
// it to the reports directory. When called without a payload it enqueues
// export tasks for all known reports in the default formats.
func HandleExportReportTask(ctx context.Context, t *asynq.Task) error {
	data := t.Payload()
	if data == nil {
		return enqueueExportReports(ctx)
	}

	var payload ExportReportPayload
	if err := asynqutils.Unmarshal(data, &payload); err != nil {
		return asynqutils.SkipRetry(err)
	}

	if payload.Name == "" {
		return asynqutils.SkipRetry(ErrNoReportName)
	}

	return exportReport(ctx, payload)
}

// defaultFormats returns the default output formats from the configuration.
func defaultFormats() []string {
	if len(reportsConfig.Formats) > 0 {
		return reportsConfig.Formats
	}

	return []string{string(export.FormatCSV)}
}

// enqueueExportReports enqueues export tasks for all known reports in the
// default formats.
func enqueueExportReports(ctx context.Context) error {
	logger := asynqutils.GetLogger(ctx)
	for name := range reportBuilders {
		for _, format := range defaultFormats() {
			payload := ExportReportPayload{
				Name:   name,
				Format: format,
			}
			data, err := json.Marshal(payload)
			if err != nil {
				logger.Error(
					"failed to marshal payload for report export",
					"report", name,
					"format", format,
					"reason", err,
				)

				continue
			}
			task := asynq.NewTask(TaskExportReport, data)
			info, err := asynqclient.Client.Enqueue(task)
			if err != nil {
				logger.Error(
					"failed to enqueue task",
					"type", task.Type(),
					"report", name,
					"format", format,
					"reason", err,
				)

				continue
			}

			logger.Info(
				"enqueued task",
				"type", task.Type(),
				"id", info.ID,
				"queue", info.Queue,
				"report", name,
				"format", format,
			)
		}
	}

	return nil
}

// exportReport renders the report specified in the payload and exports it to
// the reports directory.
func exportReport(ctx context.Context, payload ExportReportPayload) error {
	report, err := buildReport(ctx, payload.Name)
	if err != nil {
		if errors.Is(err, ErrUnknownReport) {
			return asynqutils.SkipRetry(err)
		}

		return err
	}

	formats := []string{payload.Format}
	if payload.Format == "" {
		formats = defaultFormats()
	}

	logger := asynqutils.GetLogger(ctx)
	for _, format := range formats {
		path, err := export.WriteFile(reportsConfig.Directory, export.Format(format), report)
		if err != nil {
			return err
		}

		run := models.ReportRun{
			Name:   report.Name,
			Format: format,
			Path:   path,
			Rows:   len(report.Rows),
		}
		if _, err := db.DB.NewInsert().Model(&run).Exec(ctx); err != nil {
			return err
		}

		logger.Info(
			"exported report",
			"report", report.Name,
			"format", format,
			"path", path,
			"rows", len(report.Rows),
		)
	}

	return nil
}

// MailReportPayload is the payload used for rendering a report and delivering
// it via mail.
type MailReportPayload struct {
	// TenantID specifies the tenant from which the mail is sent.
	TenantID string `json:"tenant_id" yaml:"tenant_id"`

	// Name specifies the report to render.
	Name string `json:"name" yaml:"name"`

	// Format specifies the output format of the attachment. Defaults to
	// csv.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`

	// Recipients specifies the recipients of the mail. When empty the
	// default recipients from the configuration are used.
	Recipients []string `json:"recipients,omitempty" yaml:"recipients,omitempty"`
}

// validate validates the payload.
func (p *MailReportPayload) validate() error {
	if p.TenantID == "" {
		return asynqutils.SkipRetry(ErrNoTenantID)
	}
	if p.Name == "" {
		return asynqutils.SkipRetry(ErrNoReportName)
	}

	return nil
}

// attachmentContentType returns the MIME type for the given export format.
func attachmentContentType(format export.Format) string {
	switch format {
	case export.FormatJSON:
		return "application/json"
	case export.FormatHTML:
		return "text/html"
	default:
		return "text/csv"
	}
}

// HandleMailReportTask is the handler, which renders a report and delivers it
// via mail as an attachment.
func HandleMailReportTask(ctx context.Context, t *asynq.Task) error {
	data := t.Payload()
	if data == nil {
		return asynqutils.SkipRetry(ErrNoPayload)
	}

	var payload MailReportPayload
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

	sender := reportsConfig.Mail.From
	if sender == "" {
		return asynqutils.SkipRetry(ErrNoSender)
	}

	recipients := payload.Recipients
	if len(recipients) == 0 {
		recipients = reportsConfig.Mail.To
	}
	if len(recipients) == 0 {
		return asynqutils.SkipRetry(ErrNoRecipients)
	}

	format := export.Format(payload.Format)
	if payload.Format == "" {
		format = export.FormatCSV
	}

	report, err := buildReport(ctx, payload.Name)
	if err != nil {
		if errors.Is(err, ErrUnknownReport) {
			return asynqutils.SkipRetry(err)
		}

		return err
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, report); err != nil {
		return asynqutils.SkipRetry(err)
	}

	subject := fmt.Sprintf("[tenantctl] %s report", report.Name)
	content := fmt.Sprintf(
		"The %s report from %s is attached.\r\n\r\nRows: %d\r\n",
		report.Name,
		time.Now().UTC().Format(time.RFC3339),
		len(report.Rows),
	)

	body := graphmodels.NewItemBody()
	body.SetContentType(ptr.To(graphmodels.TEXT_BODYTYPE))
	body.SetContent(ptr.To(content))

	toRecipients := make([]graphmodels.Recipientable, 0, len(recipients))
	for _, addr := range recipients {
		email := graphmodels.NewEmailAddress()
		email.SetAddress(ptr.To(addr))
		recipient := graphmodels.NewRecipient()
		recipient.SetEmailAddress(email)
		toRecipients = append(toRecipients, recipient)
	}

	attachment := graphmodels.NewFileAttachment()
	attachment.SetName(ptr.To(fmt.Sprintf("%s.%s", report.Name, format)))
	attachment.SetContentType(ptr.To(attachmentContentType(format)))
	attachment.SetContentBytes(buf.Bytes())

	message := graphmodels.NewMessage()
	message.SetSubject(ptr.To(subject))
	message.SetBody(body)
	message.SetToRecipients(toRecipients)
	message.SetAttachments([]graphmodels.Attachmentable{attachment})

	requestBody := users.NewItemSendMailPostRequestBody()
	requestBody.SetMessage(message)
	requestBody.SetSaveToSentItems(ptr.To(false))

	logger := asynqutils.GetLogger(ctx)
	err = client.Client.Users().ByUserId(sender).SendMail().Post(ctx, requestBody, nil)
	if err != nil {
		logger.Error(
			"failed to send report mail",
			"tenant_id", payload.TenantID,
			"report", report.Name,
			"reason", err,
		)

		return graphutils.MaybeSkipRetry(err)
	}

	logger.Info(
		"sent report mail",
		"tenant_id", payload.TenantID,
		"report", report.Name,
		"format", format,
		"recipients", len(recipients),
	)

	return nil
}
