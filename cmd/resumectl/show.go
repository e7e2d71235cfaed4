package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"resume-feedback/internal/pipeline"
	"resume-feedback/internal/shared/storage/kv"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a stored record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		app, err := buildApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		value, err := app.Records.Get(ctx, pipeline.RecordKey(args[0]))
		if errors.Is(err, kv.ErrNotFound) {
			return fmt.Errorf("record %s not found", args[0])
		}
		if err != nil {
			return err
		}
		rec, err := pipeline.ParseRecord([]byte(value))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		bold := color.New(color.Bold)
		bold.Fprintf(out, "%s\n", rec.ID)
		fmt.Fprintf(out, "company:  %s\njob:      %s\nresume:   %s\nimage:    %s\n",
			rec.CompanyName, rec.JobTitle, rec.ResumePath, rec.ImagePath)
		if rec.Feedback.IsEmpty() {
			color.New(color.FgYellow).Fprintln(out, "feedback: pending")
			return nil
		}
		var pretty any
		if err := rec.Feedback.Decode(&pretty); err != nil {
			return err
		}
		formatted, err := json.MarshalIndent(pretty, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "feedback:\n%s\n", formatted)
		return nil
	},
}
