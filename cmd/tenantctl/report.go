// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	dbclient "github.com/m365ops/tenantctl/pkg/clients/db"
	"github.com/m365ops/tenantctl/pkg/export"
	graphtasks "github.com/m365ops/tenantctl/pkg/graph/tasks"
)

// NewReportCommand returns a new command for rendering reports.
func NewReportCommand() *cli.Command {
	cmd := &cli.Command{
		Name:    "report",
		Usage:   "report operations",
		Aliases: []string{"r"},
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Usage:   "list available reports",
				Aliases: []string{"ls"},
				Action: func(_ *cli.Context) error {
					for _, name := range graphtasks.ReportNames() {
						fmt.Println(name)
					}

					return nil
				},
			},
			{
				Name:    "generate",
				Usage:   "generate a report",
				Aliases: []string{"g"},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Usage:    "name of report to generate",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "output format: csv, json or html",
					},
					&cli.PathFlag{
						Name:  "output-dir",
						Usage: "directory in which to store the report",
					},
				},
				Before: func(ctx *cli.Context) error {
					conf := getConfig(ctx)

					return validateDBConfig(conf)
				},
				Action: func(ctx *cli.Context) error {
					conf := getConfig(ctx)
					db, err := newDB(conf)
					if err != nil {
						return err
					}
					defer db.Close() // nolint: errcheck
					dbclient.SetDB(db)

					report, err := graphtasks.BuildReport(ctx.Context, ctx.String("name"))
					if err != nil {
						return err
					}

					// Without a format the report is rendered as a
					// table on the standard output.
					format := ctx.String("format")
					if format == "" {
						return export.Tabulate(os.Stdout, report)
					}

					dir := ctx.Path("output-dir")
					if dir == "" {
						dir = conf.Reports.Directory
					}
					if dir == "" {
						dir = "."
					}

					path, err := export.WriteFile(dir, export.Format(format), report)
					if err != nil {
						return err
					}

					fmt.Println(path)

					return nil
				},
			},
		},
	}

	return cmd
}
