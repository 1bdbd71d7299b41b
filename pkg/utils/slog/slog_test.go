// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

package slog_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/m365ops/tenantctl/pkg/core/config"
	slogutils "github.com/m365ops/tenantctl/pkg/utils/slog"
)

func TestNewFromConfigDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := slogutils.NewFromConfig(&buf, config.LoggingConfig{})
	if err != nil {
		t.Fatalf("failed to create logger: %s", err)
	}

	logger.Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Fatalf("unexpected log output: %s", buf.String())
	}
}

func TestNewFromConfigJSON(t *testing.T) {
	var buf bytes.Buffer
	conf := config.LoggingConfig{
		Format:     "json",
		Attributes: map[string]any{"service": "tenantctl"},
	}

	logger, err := slogutils.NewFromConfig(&buf, conf)
	if err != nil {
		t.Fatalf("failed to create logger: %s", err)
	}

	logger.Info("hello")
	out := buf.String()
	if !strings.Contains(out, `"msg":"hello"`) {
		t.Fatalf("unexpected log output: %s", out)
	}

	if !strings.Contains(out, `"service":"tenantctl"`) {
		t.Fatalf("default attribute missing from log output: %s", out)
	}
}

func TestNewFromConfigInvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	_, err := slogutils.NewFromConfig(&buf, config.LoggingConfig{Level: "trace"})
	if !errors.Is(err, slogutils.ErrInvalidLogLevel) {
		t.Fatalf("expected ErrInvalidLogLevel, got %v", err)
	}
}

func TestNewFromConfigInvalidFormat(t *testing.T) {
	var buf bytes.Buffer
	_, err := slogutils.NewFromConfig(&buf, config.LoggingConfig{Format: "xml"})
	if !errors.Is(err, slogutils.ErrInvalidLogFormat) {
		t.Fatalf("expected ErrInvalidLogFormat, got %v", err)
	}
}
