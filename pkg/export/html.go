// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

package export

import (
	_ "embed"
	"html/template"
	"io"
)

//go:embed templates/report.html.tmpl
var htmlTemplate string

// reportTemplate is the parsed template used for HTML exports.
var reportTemplate = template.Must(template.New("report").Parse(htmlTemplate))

// writeHTML exports the report as a standalone HTML document.
func writeHTML(w io.Writer, report Report) error {
	return reportTemplate.Execute(w, report)
}
