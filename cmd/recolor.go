package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"retint/internal/archive"
	"retint/internal/repack"
	"retint/internal/tui"
)

var (
	recolorFlags       transformFlags
	recolorOutput      string
	recolorWorkers     int
	recolorJPEGQuality int
)

var recolorCmd = &cobra.Command{
	Use:   "recolor [flags] <archive.zip>",
	Short: "Transform the selected textures and write a new archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := args[0]
		logger := newLogger()

		cfg, err := loadConfig(cmd.Flags(), &recolorFlags)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("workers") {
			cfg.Output.Workers = recolorWorkers
		}
		if cmd.Flags().Changed("jpeg-quality") {
			cfg.Output.JPEGQuality = recolorJPEGQuality
		}
		if err := cfg.Validate(); err != nil {
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
		logger.Info("loaded archive", "path", input, "entries", in.Len(), "transform", describeTransform(tc))

		output := recolorOutput
		if output == "" {
			output = defaultOutputPath(input)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		updates := make(chan repack.ProgressUpdate, 64)
		program := tea.NewProgram(tui.NewModel(updates).WithCancel(cancel))

		uiDone := make(chan struct{})
		go func() {
			_, _ = program.Run()
			for range updates {
			}
			close(uiDone)
		}()

		out, summary, err := repack.Repackage(ctx, in, sel, fn, repack.Options{
			Workers:     cfg.Output.Workers,
			JPEGQuality: cfg.Output.JPEGQuality,
			Logger:      logger,
		}, updates)

		close(updates)
		<-uiDone
		if err != nil {
			return err
		}
		if summary.Targets == 0 {
			logger.Warn("no entries matched the selector; output is a copy of the input", "select", cfg.Select.Contains, "glob", cfg.Select.Glob)
		}

		if err := out.Save(output); err != nil {
			return err
		}

		rows := []tui.SummaryRow{
			{Label: "Entries", Value: fmt.Sprintf("%d", summary.Entries)},
			{Label: "Textures converted", Value: fmt.Sprintf("%d", summary.Converted)},
			{Label: "Copied unchanged", Value: fmt.Sprintf("%d", summary.Passed)},
			{Label: "Texture bytes in", Value: tui.FormatBytes(summary.BytesIn)},
			{Label: "Texture bytes out", Value: tui.FormatBytes(summary.BytesOut)},
		}
		fmt.Fprintln(os.Stdout, tui.RenderSummary(describeTransform(tc), rows))

		outPath := output
		if abs, absErr := filepath.Abs(output); absErr == nil {
			outPath = abs
		}
		fmt.Fprintf(os.Stdout, "Archive written to: %s\n", outPath)
		return nil
	},
}

// defaultOutputPath puts the result next to the input as <name>-retint.zip.
func defaultOutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "-retint.zip"
}

func init() {
	recolorFlags.register(recolorCmd.Flags())
	recolorCmd.Flags().StringVarP(&recolorOutput, "output", "o", "", "destination archive (default <input>-retint.zip)")
	recolorCmd.Flags().IntVarP(&recolorWorkers, "workers", "w", 0, "parallel conversions (default number of CPUs)")
	recolorCmd.Flags().IntVar(&recolorJPEGQuality, "jpeg-quality", repack.DefaultJPEGQuality, "quality for .jpg/.jpeg targets")

	rootCmd.AddCommand(recolorCmd)
}
