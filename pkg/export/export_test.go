// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

package export_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m365ops/tenantctl/pkg/export"
)

var testReport = export.Report{
	Name:    "inactive-users",
	Headers: []string{"UserPrincipalName", "DisplayName"},
	Rows: [][]string{
		{"jdoe@example.com", "John Doe"},
		{"asmith@example.com", "Alice Smith"},
	},
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := export.Write(&buf, export.FormatCSV, testReport); err != nil {
		t.Fatalf("failed to export report: %s", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, expected 3", len(lines))
	}

	if lines[0] != "UserPrincipalName,DisplayName" {
		t.Fatalf("unexpected header record: %s", lines[0])
	}

	if lines[1] != "jdoe@example.com,John Doe" {
		t.Fatalf("unexpected first record: %s", lines[1])
	}
}

func TestWriteCSVEmptyReport(t *testing.T) {
	report := export.Report{
		Name:    "empty",
		Headers: []string{"A", "B"},
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, export.FormatCSV, report); err != nil {
		t.Fatalf("failed to export report: %s", err)
	}

	if strings.TrimSpace(buf.String()) != "A,B" {
		t.Fatalf("expected header-only output, got %q", buf.String())
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := export.Write(&buf, export.FormatJSON, testReport); err != nil {
		t.Fatalf("failed to export report: %s", err)
	}

	var items []map[string]string
	if err := json.Unmarshal(buf.Bytes(), &items); err != nil {
		t.Fatalf("failed to unmarshal exported report: %s", err)
	}

	if len(items) != 2 {
		t.Fatalf("got %d items, expected 2", len(items))
	}

	if items[0]["UserPrincipalName"] != "jdoe@example.com" {
		t.Fatalf("unexpected first item: %v", items[0])
	}
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := export.Write(&buf, export.FormatHTML, testReport); err != nil {
		t.Fatalf("failed to export report: %s", err)
	}

	out := buf.String()
	for _, want := range []string{"<title>inactive-users</title>", "<th>DisplayName</th>", "<td>jdoe@example.com</td>"} {
		if !strings.Contains(out, want) {
			t.Fatalf("exported HTML does not contain %q", want)
		}
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := export.Write(&buf, export.Format("xml"), testReport)
	if !errors.Is(err, export.ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path, err := export.WriteFile(dir, export.FormatCSV, testReport)
	if err != nil {
		t.Fatalf("failed to export report: %s", err)
	}

	base := filepath.Base(path)
	if !strings.HasPrefix(base, "inactive-users-") || !strings.HasSuffix(base, ".csv") {
		t.Fatalf("unexpected file name: %s", base)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read exported file: %s", err)
	}

	if !strings.Contains(string(data), "jdoe@example.com") {
		t.Fatalf("exported file does not contain report data: %s", data)
	}
}

func TestWriteFileNoName(t *testing.T) {
	_, err := export.WriteFile(t.TempDir(), export.FormatCSV, export.Report{})
	if !errors.Is(err, export.ErrNoReportName) {
		t.Fatalf("expected ErrNoReportName, got %v", err)
	}
}

func TestTabulate(t *testing.T) {
	var buf bytes.Buffer
	if err := export.Tabulate(&buf, testReport); err != nil {
		t.Fatalf("failed to tabulate report: %s", err)
	}

	out := buf.String()
	if !strings.Contains(out, "jdoe@example.com") {
		t.Fatalf("tabulated output does not contain report data: %s", out)
	}
}
