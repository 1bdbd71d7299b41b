// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/m365ops/tenantctl/pkg/batch"
)

func writeTempCSV(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestReadCSVRecords(t *testing.T) {
	contents := `user_principal_name,display_name,department
jdoe@example.com,John Doe,Engineering
asmith@example.com, Alice Smith ,Sales
`
	path := writeTempCSV(t, contents)

	records, err := readCSVRecords(path)
	if err != nil {
		t.Fatal(err)
	}

	if len(records) != 2 {
		t.Fatalf("want 2 records, got %d", len(records))
	}

	first := records[0]
	if first["user_principal_name"] != "jdoe@example.com" {
		t.Errorf("unexpected user_principal_name: %q", first["user_principal_name"])
	}
	if first["department"] != "Engineering" {
		t.Errorf("unexpected department: %q", first["department"])
	}

	// Values are trimmed
	second := records[1]
	if second["display_name"] != "Alice Smith" {
		t.Errorf("values should be trimmed, got %q", second["display_name"])
	}
}

func TestReadCSVRecordsHeaderOnly(t *testing.T) {
	path := writeTempCSV(t, "user_principal_name,display_name\n")

	records, err := readCSVRecords(path)
	if err != nil {
		t.Fatal(err)
	}

	if len(records) != 0 {
		t.Errorf("want no records, got %d", len(records))
	}
}

func TestReadCSVRecordsMissingFile(t *testing.T) {
	_, err := readCSVRecords(filepath.Join(t.TempDir(), "missing.csv"))
	if err == nil {
		t.Error("missing file should result in an error")
	}
}

func TestProcessLeaverRowErrors(t *testing.T) {
	testCases := []struct {
		desc    string
		record  csvRecord
		wantErr error
	}{
		{
			desc:    "missing user principal name",
			record:  csvRecord{"display_name": "John Doe"},
			wantErr: ErrNoUserPrincipalName,
		},
		{
			desc:    "unknown tenant",
			record:  csvRecord{"user_principal_name": "jdoe@example.com"},
			wantErr: ErrClientNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			err := processLeaver(context.Background(), "unknown-tenant", tc.record)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLeaverRowFailuresAreCounted(t *testing.T) {
	// Rows which fail to offboard must be recorded as failures by the
	// batch processor instead of counting as processed.
	contents := `user_principal_name
jdoe@example.com
asmith@example.com
`
	path := writeTempCSV(t, contents)
	records, err := readCSVRecords(path)
	if err != nil {
		t.Fatal(err)
	}

	fn := func(ctx context.Context, record csvRecord) error {
		return processLeaver(ctx, "unknown-tenant", record)
	}

	opts := batch.Options{ChunkSize: 2, Concurrency: 2, ChunkDelay: time.Millisecond}
	result, err := batch.Process(context.Background(), records, fn, opts)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if result.Processed != 0 {
		t.Errorf("no row should count as processed, got %d", result.Processed)
	}

	if result.Failed != len(records) {
		t.Errorf("want %d failed rows, got %d", len(records), result.Failed)
	}

	for _, itemErr := range result.Errors {
		if !errors.Is(itemErr.Err, ErrClientNotFound) {
			t.Errorf("unexpected row error: %v", itemErr.Err)
		}
	}
}

func TestHandleProcessLeaversTaskToleratesRowFailures(t *testing.T) {
	// Per-row failures are logged and counted, they must not fail the
	// task itself.
	path := writeTempCSV(t, "user_principal_name\njdoe@example.com\n")
	payload := BulkCSVPayload{TenantID: "unknown-tenant", Path: path}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}

	task := asynq.NewTask(TaskProcessLeavers, data)
	if err := HandleProcessLeaversTask(context.Background(), task); err != nil {
		t.Errorf("row failures should not fail the task, got %v", err)
	}
}
