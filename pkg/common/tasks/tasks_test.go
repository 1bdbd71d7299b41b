// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"errors"
	"testing"

	"github.com/hibiken/asynq"
)

func TestQueueFromPayload(t *testing.T) {
	task := asynq.NewTask(DeleteArchivedTaskType, []byte(`{"queue": "default"}`))
	queue, err := queueFromPayload(task)
	if err != nil {
		t.Fatal(err)
	}
	if queue != "default" {
		t.Errorf("want queue %q, got %q", "default", queue)
	}
}

func TestQueueFromPayloadNilPayload(t *testing.T) {
	task := asynq.NewTask(DeleteArchivedTaskType, nil)
	_, err := queueFromPayload(task)
	if !errors.Is(err, ErrNoQueueName) {
		t.Errorf("want ErrNoQueueName, got %v", err)
	}
	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("missing queue name should not be retried, got %v", err)
	}
}

func TestQueueFromPayloadEmptyQueueName(t *testing.T) {
	task := asynq.NewTask(DeleteArchivedTaskType, []byte(`{"queue": ""}`))
	_, err := queueFromPayload(task)
	if !errors.Is(err, ErrNoQueueName) {
		t.Errorf("want ErrNoQueueName, got %v", err)
	}
}
