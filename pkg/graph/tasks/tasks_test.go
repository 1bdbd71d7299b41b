// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
)

// handlerFunc is the signature shared by all task handlers in this package.
type handlerFunc func(ctx context.Context, t *asynq.Task) error

func TestHandlersRejectNilPayload(t *testing.T) {
	testCases := []struct {
		taskName string
		handler  handlerFunc
	}{
		{TaskCreateUser, HandleCreateUserTask},
		{TaskUpdateUser, HandleUpdateUserTask},
		{TaskDeleteUser, HandleDeleteUserTask},
		{TaskDisableUser, HandleDisableUserTask},
		{TaskRevokeSessions, HandleRevokeSessionsTask},
		{TaskCreateGroup, HandleCreateGroupTask},
		{TaskDeleteGroup, HandleDeleteGroupTask},
		{TaskAddGroupMember, HandleAddGroupMemberTask},
		{TaskRemoveGroupMember, HandleRemoveGroupMemberTask},
		{TaskAssignLicense, HandleAssignLicenseTask},
		{TaskRemoveLicense, HandleRemoveLicenseTask},
		{TaskArchiveTeam, HandleArchiveTeamTask},
		{TaskBulkUpdateUsers, HandleBulkUpdateUsersTask},
		{TaskProcessJoiners, HandleProcessJoinersTask},
		{TaskProcessLeavers, HandleProcessLeaversTask},
		{TaskMailReport, HandleMailReportTask},
	}

	for _, tc := range testCases {
		t.Run(tc.taskName, func(t *testing.T) {
			task := asynq.NewTask(tc.taskName, nil)
			err := tc.handler(context.Background(), task)
			if err == nil {
				t.Fatal("handler should reject nil payload")
			}
			if !errors.Is(err, ErrNoPayload) {
				t.Errorf("want ErrNoPayload, got %v", err)
			}
			if !errors.Is(err, asynq.SkipRetry) {
				t.Errorf("nil payload should not be retried, got %v", err)
			}
		})
	}
}

func TestHandleCreateUserTaskValidatesPayload(t *testing.T) {
	testCases := []struct {
		desc    string
		payload CreateUserPayload
		wantErr error
	}{
		{
			desc:    "missing tenant id",
			payload: CreateUserPayload{UserPrincipalName: "jdoe@example.com", DisplayName: "John Doe"},
			wantErr: ErrNoTenantID,
		},
		{
			desc:    "missing user principal name",
			payload: CreateUserPayload{TenantID: "tenant-1", DisplayName: "John Doe"},
			wantErr: ErrNoUserPrincipalName,
		},
		{
			desc:    "missing display name",
			payload: CreateUserPayload{TenantID: "tenant-1", UserPrincipalName: "jdoe@example.com"},
			wantErr: ErrNoDisplayName,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			data, err := json.Marshal(tc.payload)
			if err != nil {
				t.Fatal(err)
			}

			task := asynq.NewTask(TaskCreateUser, data)
			err = HandleCreateUserTask(context.Background(), task)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("want %v, got %v", tc.wantErr, err)
			}
			if !errors.Is(err, asynq.SkipRetry) {
				t.Errorf("validation failure should not be retried, got %v", err)
			}
		})
	}
}

func TestGroupMemberPayloadValidation(t *testing.T) {
	testCases := []struct {
		desc    string
		payload GroupMemberPayload
		wantErr error
	}{
		{
			desc:    "missing tenant id",
			payload: GroupMemberPayload{GroupID: "group-1", MemberID: "member-1"},
			wantErr: ErrNoTenantID,
		},
		{
			desc:    "missing group id",
			payload: GroupMemberPayload{TenantID: "tenant-1", MemberID: "member-1"},
			wantErr: ErrNoGroupID,
		},
		{
			desc:    "missing member id",
			payload: GroupMemberPayload{TenantID: "tenant-1", GroupID: "group-1"},
			wantErr: ErrNoMemberID,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			err := tc.payload.validate()
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLicensePayloadValidation(t *testing.T) {
	testCases := []struct {
		desc    string
		payload LicensePayload
		wantErr error
	}{
		{
			desc:    "missing tenant id",
			payload: LicensePayload{UserPrincipalName: "jdoe@example.com", SKUID: "c42b9cae-ea4f-4ab7-9717-81576235ccac"},
			wantErr: ErrNoTenantID,
		},
		{
			desc:    "missing user principal name",
			payload: LicensePayload{TenantID: "tenant-1", SKUID: "c42b9cae-ea4f-4ab7-9717-81576235ccac"},
			wantErr: ErrNoUserPrincipalName,
		},
		{
			desc:    "missing sku id",
			payload: LicensePayload{TenantID: "tenant-1", UserPrincipalName: "jdoe@example.com"},
			wantErr: ErrNoSKUID,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			err := tc.payload.validate()
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestBulkCSVPayloadValidation(t *testing.T) {
	testCases := []struct {
		desc    string
		payload BulkCSVPayload
		wantErr error
	}{
		{
			desc:    "missing tenant id",
			payload: BulkCSVPayload{Path: "/tmp/users.csv"},
			wantErr: ErrNoTenantID,
		},
		{
			desc:    "missing path",
			payload: BulkCSVPayload{TenantID: "tenant-1"},
			wantErr: ErrNoCSVPath,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			err := tc.payload.validate()
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestMailReportPayloadValidation(t *testing.T) {
	testCases := []struct {
		desc    string
		payload MailReportPayload
		wantErr error
	}{
		{
			desc:    "missing tenant id",
			payload: MailReportPayload{Name: "users"},
			wantErr: ErrNoTenantID,
		},
		{
			desc:    "missing report name",
			payload: MailReportPayload{TenantID: "tenant-1"},
			wantErr: ErrNoReportName,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			err := tc.payload.validate()
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestHandlersRejectUnknownTenant(t *testing.T) {
	// The clientset is not configured during tests, so a syntactically
	// valid payload must fail with ErrClientNotFound without being
	// retried.
	testCases := []struct {
		taskName string
		handler  handlerFunc
		payload  any
	}{
		{
			taskName: TaskAssignLicense,
			handler:  HandleAssignLicenseTask,
			payload: LicensePayload{
				TenantID:          "unknown-tenant",
				UserPrincipalName: "jdoe@example.com",
				SKUID:             "c42b9cae-ea4f-4ab7-9717-81576235ccac",
			},
		},
		{
			taskName: TaskAddGroupMember,
			handler:  HandleAddGroupMemberTask,
			payload: GroupMemberPayload{
				TenantID: "unknown-tenant",
				GroupID:  "group-1",
				MemberID: "member-1",
			},
		},
		{
			taskName: TaskCreateUser,
			handler:  HandleCreateUserTask,
			payload: CreateUserPayload{
				TenantID:          "unknown-tenant",
				UserPrincipalName: "jdoe@example.com",
				DisplayName:       "John Doe",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.taskName, func(t *testing.T) {
			data, err := json.Marshal(tc.payload)
			if err != nil {
				t.Fatal(err)
			}

			task := asynq.NewTask(tc.taskName, data)
			err = tc.handler(context.Background(), task)
			if !errors.Is(err, ErrClientNotFound) {
				t.Errorf("want ErrClientNotFound, got %v", err)
			}
			if !errors.Is(err, asynq.SkipRetry) {
				t.Errorf("unknown tenant should not be retried, got %v", err)
			}
		})
	}
}
