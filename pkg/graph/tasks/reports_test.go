// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/m365ops/tenantctl/pkg/export"
)

func TestReportNames(t *testing.T) {
	names := ReportNames()
	if len(names) == 0 {
		t.Fatal("no reports registered")
	}

	if !sort.StringsAreSorted(names) {
		t.Errorf("report names should be sorted, got %v", names)
	}

	wanted := []string{"users", "inactive-users", "groups", "license-usage"}
	for _, want := range wanted {
		found := false
		for _, name := range names {
			if name == want {
				found = true

				break
			}
		}
		if !found {
			t.Errorf("report %q not registered", want)
		}
	}
}

func TestBuildReportUnknownName(t *testing.T) {
	_, err := BuildReport(context.Background(), "no-such-report")
	if !errors.Is(err, ErrUnknownReport) {
		t.Errorf("want ErrUnknownReport, got %v", err)
	}
}

func TestAttachmentContentType(t *testing.T) {
	testCases := []struct {
		format export.Format
		want   string
	}{
		{export.FormatCSV, "text/csv"},
		{export.FormatJSON, "application/json"},
		{export.FormatHTML, "text/html"},
		{export.Format("unknown"), "text/csv"},
	}

	for _, tc := range testCases {
		got := attachmentContentType(tc.format)
		if got != tc.want {
			t.Errorf("format %q: want %q, got %q", tc.format, tc.want, got)
		}
	}
}

func TestFormatTime(t *testing.T) {
	if got := formatTime(time.Time{}); got != "" {
		t.Errorf("zero time should render as empty cell, got %q", got)
	}

	ts := time.Date(2026, 7, 1, 12, 30, 0, 0, time.UTC)
	if got := formatTime(ts); got != "2026-07-01T12:30:00Z" {
		t.Errorf("unexpected timestamp rendering: %q", got)
	}
}
