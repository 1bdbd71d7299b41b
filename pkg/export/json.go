// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"encoding/json"
	"io"
)

// writeJSON exports the report as a JSON array of objects, keyed by the report
// headers.
func writeJSON(w io.Writer, report Report) error {
	items := make([]map[string]string, 0, len(report.Rows))
	for _, row := range report.Rows {
		item := make(map[string]string, len(report.Headers))
		for i, header := range report.Headers {
			if i < len(row) {
				item[header] = row[i]
			}
		}
		items = append(items, item)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(items)
}
