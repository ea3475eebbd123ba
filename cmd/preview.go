package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"retint/internal/archive"
	"retint/internal/preview"
	"retint/internal/tui"
)

var (
	previewFlags     transformFlags
	previewDir       string
	previewBatchSize int
	previewPolicy    string
	previewThumbSize int
)

var previewCmd = &cobra.Command{
	Use:   "preview [flags] <archive.zip>",
	Short: "Render before/after thumbnails one batch at a time",
	Long: "preview writes side-by-side thumbnails of the selected textures into a directory,\n" +
		"one batch per key press, without producing an archive.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := args[0]
		logger := newLogger()

		cfg, err := loadConfig(cmd.Flags(), &previewFlags)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("batch-size") {
			cfg.Preview.BatchSize = previewBatchSize
		}
		if cmd.Flags().Changed("policy") {
			cfg.Preview.Policy = previewPolicy
		}
		if cmd.Flags().Changed("thumb-size") {
			cfg.Preview.ThumbSize = previewThumbSize
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		policy, err := preview.ParsePolicy(cfg.Preview.Policy)
		if err != nil {
			return err
		}

		sel, err := buildSelector(cfg.Select)
		if err != nil {
			return err
		}
		fn, tc, err := buildTransform(cfg)
		if err != nil {
			return err
		}

		in, err := archive.Load(input)
		if err != nil {
			return err
		}

		session, err := preview.NewSession(in, sel, fn, preview.Options{
			Dir:       previewDir,
			BatchSize: cfg.Preview.BatchSize,
			ThumbSize: cfg.Preview.ThumbSize,
			Policy:    policy,
			Logger:    logger,
		})
		if err != nil {
			return err
		}
		logger.Info("preview session", "targets", session.Total(), "batches", session.Batches(), "policy", policy, "transform", describeTransform(tc))
		if session.Total() == 0 {
			fmt.Fprintln(os.Stdout, "No entries matched the selector.")
			return nil
		}

		final, err := tea.NewProgram(tui.NewPreviewModel(cmd.Context(), session)).Run()
		if err != nil {
			return err
		}
		if m, ok := final.(tui.PreviewModel); ok && m.Err() != nil {
			return m.Err()
		}

		dir := session.Dir()
		if abs, absErr := filepath.Abs(dir); absErr == nil {
			dir = abs
		}
		rows := []tui.SummaryRow{
			{Label: "Targets", Value: fmt.Sprintf("%d", session.Total())},
			{Label: "Batches shown", Value: fmt.Sprintf("%d/%d", session.BatchIndex(), session.Batches())},
			{Label: "Preview files", Value: fmt.Sprintf("%d", len(session.Files()))},
			{Label: "Policy", Value: policy.String()},
		}
		fmt.Fprintln(os.Stdout, tui.RenderSummary(describeTransform(tc), rows))
		fmt.Fprintf(os.Stdout, "Previews in: %s\n", dir)
		return nil
	},
}

func init() {
	previewFlags.register(previewCmd.Flags())
	previewCmd.Flags().StringVarP(&previewDir, "dir", "d", "retint-preview", "directory for preview images")
	previewCmd.Flags().IntVar(&previewBatchSize, "batch-size", 100, "targets rendered per step")
	previewCmd.Flags().StringVar(&previewPolicy, "policy", "replace", "replace clears the previous batch, append keeps it")
	previewCmd.Flags().IntVar(&previewThumbSize, "thumb-size", preview.DefaultThumbSize, "thumbnail edge in pixels")

	rootCmd.AddCommand(previewCmd)
}
