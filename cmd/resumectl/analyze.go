package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"resume-feedback/internal/pipeline"
	"resume-feedback/internal/shared/auth"
)

var analyzeOpts struct {
	file        string
	contentType string
	company     string
	title       string
	description string
	token       string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Upload a resume PDF and generate feedback",
	RunE:  runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVarP(&analyzeOpts.file, "file", "f", "", "path to the resume PDF")
	f.StringVar(&analyzeOpts.contentType, "content-type", "", "declared media type (detected when empty)")
	f.StringVar(&analyzeOpts.company, "company", "", "company name")
	f.StringVar(&analyzeOpts.title, "title", "", "job title")
	f.StringVar(&analyzeOpts.description, "description", "", "job description")
	f.StringVar(&analyzeOpts.token, "token", os.Getenv("RESUMECTL_TOKEN"), "bearer token (defaults to $RESUMECTL_TOKEN)")
	_ = analyzeCmd.MarkFlagRequired("file")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(analyzeOpts.file)
	if err != nil {
		return fmt.Errorf("read resume: %w", err)
	}
	contentType := strings.TrimSpace(analyzeOpts.contentType)
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if claims, err := app.Signer.Verify(analyzeOpts.token); err == nil {
		ctx = auth.WithIdentity(ctx, auth.FromClaims(claims))
	}
	ctrl := app.Controller(auth.TokenGate{Signer: app.Signer, Token: analyzeOpts.token})

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Writer = os.Stderr
	ctrl.Session.Observe(func(snap pipeline.Snapshot) {
		if snap.StatusText == "" {
			return
		}
		s.Lock()
		s.Suffix = " " + snap.StatusText
		s.Unlock()
	})
	s.Start()
	id, err := ctrl.Analyze(ctx, pipeline.AnalysisRequest{
		CompanyName:    analyzeOpts.company,
		JobTitle:       analyzeOpts.title,
		JobDescription: analyzeOpts.description,
		File: pipeline.File{
			Name:        filepath.Base(analyzeOpts.file),
			ContentType: contentType,
			Data:        data,
		},
	})
	s.Stop()

	if err != nil {
		return fmt.Errorf("%s (%w)", ctrl.Session.Snapshot().StatusText, err)
	}
	color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ %s\n", ctrl.Session.Snapshot().StatusText)
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}
