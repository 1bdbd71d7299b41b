// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package tasks provides common housekeeping task handlers.
package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"

	asynqclient "github.com/m365ops/tenantctl/pkg/clients/asynq"
	"github.com/m365ops/tenantctl/pkg/clients/db"
	"github.com/m365ops/tenantctl/pkg/core/registry"
	asynqutils "github.com/m365ops/tenantctl/pkg/utils/asynq"
)

const (
	// HousekeeperTaskType is the name of the task responsible for cleaning
	// up stale records from the database.
	HousekeeperTaskType = "common:task:housekeeper"

	// DeleteArchivedTaskType is the name of the task responsible for
	// deleting archived tasks from a task queue.
	DeleteArchivedTaskType = "common:task:delete-archived-tasks"

	// DeleteCompletedTaskType is the name of the task responsible for
	// deleting completed tasks from a task queue.
	DeleteCompletedTaskType = "common:task:delete-completed-tasks"
)

// ErrNoQueueName is an error, which is returned when a queue management task
// was invoked without a queue name.
var ErrNoQueueName = errors.New("no queue name specified")

// RetentionConfig represents the retention configuration for a given model.
type RetentionConfig struct {
	// Name specifies the model name, as registered in the model registry.
	Name string `yaml:"name" json:"name"`

	// Duration specifies the max duration for which an object will be
	// kept, if it hasn't been updated recently. An object whose updated_at
	// timestamp is older than the duration by the time the housekeeper
	// runs is considered stale and will be removed.
	Duration time.Duration `yaml:"duration" json:"duration"`
}

// HousekeeperPayload represents the payload of the housekeeper task.
type HousekeeperPayload struct {
	// Retention provides the retention configuration of objects.
	Retention []RetentionConfig `yaml:"retention"`
}

// DeleteQueuePayload represents the payload of a queue management task.
type DeleteQueuePayload struct {
	// Name of the queue that holds the tasks.
	Queue string `yaml:"queue"`
}

// HandleHousekeeperTask performs housekeeping activities, such as deleting
// stale records.
func HandleHousekeeperTask(ctx context.Context, task *asynq.Task) error {
	var payload HousekeeperPayload
	if err := asynqutils.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	logger := asynqutils.GetLogger(ctx)
	for _, item := range payload.Retention {
		// Look up the registry for the actual model type
		model, ok := registry.ModelRegistry.Get(item.Name)
		if !ok {
			logger.Warn("model not found in registry", "name", item.Name)
			continue
		}

		past := time.Now().Add(-item.Duration)
		out, err := db.DB.NewDelete().
			Model(model).
			Where("date_part('epoch', updated_at) < ?", past.Unix()).
			Exec(ctx)

		if err != nil {
			// Log the error and keep going with the rest of the
			// objects to clean up
			logger.Error("failed to delete stale records", "name", item.Name, "reason", err)
			continue
		}

		count, err := out.RowsAffected()
		if err != nil {
			logger.Error("failed to get number of deleted rows", "name", item.Name, "reason", err)
			continue
		}
		logger.Info("deleted stale records", "name", item.Name, "count", count)
	}

	return nil
}

// queueFromPayload extracts the queue name from the task payload.
func queueFromPayload(task *asynq.Task) (string, error) {
	if task.Payload() == nil {
		return "", asynqutils.SkipRetry(ErrNoQueueName)
	}

	var payload DeleteQueuePayload
	if err := asynqutils.Unmarshal(task.Payload(), &payload); err != nil {
		return "", asynqutils.SkipRetry(err)
	}

	if payload.Queue == "" {
		return "", asynqutils.SkipRetry(ErrNoQueueName)
	}

	return payload.Queue, nil
}

// HandleDeleteArchivedTask deletes archived tasks.
func HandleDeleteArchivedTask(ctx context.Context, task *asynq.Task) error {
	queue, err := queueFromPayload(task)
	if err != nil {
		return err
	}

	logger := asynqutils.GetLogger(ctx)

	count, err := asynqclient.Inspector.DeleteAllArchivedTasks(queue)
	if err != nil {
		logger.Error("failed to delete archived tasks", "queue", queue, "reason", err)
	}

	logger.Info("deleted archived tasks", "queue", queue, "count", count)

	return nil
}

// HandleDeleteCompletedTask deletes completed tasks.
func HandleDeleteCompletedTask(ctx context.Context, task *asynq.Task) error {
	queue, err := queueFromPayload(task)
	if err != nil {
		return err
	}

	logger := asynqutils.GetLogger(ctx)

	count, err := asynqclient.Inspector.DeleteAllCompletedTasks(queue)
	if err != nil {
		logger.Error("failed to delete completed tasks", "queue", queue, "reason", err)
	}

	logger.Info("deleted completed tasks", "queue", queue, "count", count)

	return nil
}

func init() {
	registry.TaskRegistry.MustRegister(HousekeeperTaskType, asynq.HandlerFunc(HandleHousekeeperTask))
	registry.TaskRegistry.MustRegister(DeleteArchivedTaskType, asynq.HandlerFunc(HandleDeleteArchivedTask))
	registry.TaskRegistry.MustRegister(DeleteCompletedTaskType, asynq.HandlerFunc(HandleDeleteCompletedTask))
}
