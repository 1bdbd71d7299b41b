// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"encoding/csv"
	"io"
)

// writeCSV exports the report as CSV. The first record contains the report
// headers.
func writeCSV(w io.Writer, report Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(report.Headers); err != nil {
		return err
	}

	for _, row := range report.Rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}
