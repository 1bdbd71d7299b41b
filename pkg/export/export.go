// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package export provides writers for exporting reports in various formats.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/olekukonko/tablewriter"
)

// ErrUnknownFormat is an error, which is returned when attempting to export a
// report in an unknown format.
var ErrUnknownFormat = errors.New("unknown export format")

// ErrNoReportName is an error, which is returned when attempting to export a
// report without a name.
var ErrNoReportName = errors.New("no report name specified")

// Format represents an export format.
type Format string

const (
	// FormatCSV specifies CSV export format.
	FormatCSV Format = "csv"

	// FormatJSON specifies JSON export format.
	FormatJSON Format = "json"

	// FormatHTML specifies HTML export format.
	FormatHTML Format = "html"
)

// Report represents tabular report data to be exported.
type Report struct {
	// Name is the name of the report.
	Name string `json:"name" yaml:"name"`

	// Headers contains the column names of the report.
	Headers []string `json:"headers" yaml:"headers"`

	// Rows contains the report rows. Each row is expected to have as many
	// cells as there are headers.
	Rows [][]string `json:"rows" yaml:"rows"`
}

// Write exports the report to the given [io.Writer] in the specified format.
func Write(w io.Writer, format Format, report Report) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, report)
	case FormatJSON:
		return writeJSON(w, report)
	case FormatHTML:
		return writeHTML(w, report)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

// WriteFile exports the report into the given directory in the specified
// format. The file is named after the report and the current timestamp, and
// the path of the created file is returned.
func WriteFile(dir string, format Format, report Report) (string, error) {
	if report.Name == "" {
		return "", ErrNoReportName
	}

	if err := os.MkdirAll(dir, 0o775); err != nil {
		return "", err
	}

	timestamp := time.Now().Format("20060102-150405")
	name := fmt.Sprintf("%s-%s.%s", report.Name, timestamp, format)
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := Write(f, format, report); err != nil {
		return "", err
	}

	if err := f.Close(); err != nil {
		return "", err
	}

	return path, nil
}

// Tabulate renders the report as a table to the given [io.Writer].
func Tabulate(w io.Writer, report Report) error {
	table := tablewriter.NewWriter(w)
	headers := make([]any, 0, len(report.Headers))
	for _, h := range report.Headers {
		headers = append(headers, h)
	}
	table.Header(headers...)

	for _, row := range report.Rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}

	return table.Render()
}
