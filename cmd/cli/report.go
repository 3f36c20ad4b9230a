package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sevigo/doc-sentry/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report <report.json>",
	Short: "Render a previously produced impact report",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		result, err := report.ReadJSON(args[0])
		if err != nil {
			return err
		}
		report.Render(os.Stdout, result)
		return nil
	},
}
