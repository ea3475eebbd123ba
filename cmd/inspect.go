package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"retint/internal/archive"
	"retint/internal/inspect"
	"retint/internal/tui"
)

var (
	inspectFlags   transformFlags
	inspectCompare string
	inspectAll     bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [flags] <archive.zip>",
	Short: "Report which entries would be transformed, without writing anything",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Flags(), &inspectFlags)
		if err != nil {
			return err
		}
		sel, err := buildSelector(cfg.Select)
		if err != nil {
			return err
		}

		in, err := archive.Load(args[0])
		if err != nil {
			return err
		}

		if inspectCompare != "" {
			out, err := archive.Load(inspectCompare)
			if err != nil {
				return err
			}
			printComparison(archive.Compare(in, out))
			return nil
		}

		report := inspect.Archive(in, sel)
		first := true
		for _, e := range report.Entries {
			if !inspectAll && e.Role != inspect.RoleTarget {
				continue
			}
			if !first {
				fmt.Fprintln(os.Stdout)
			}
			first = false
			printEntry(e)
		}

		rows := []tui.SummaryRow{
			{Label: "Entries", Value: fmt.Sprintf("%d", len(report.Entries))},
			{Label: "Images", Value: fmt.Sprintf("%d", report.Images)},
			{Label: "Targets", Value: fmt.Sprintf("%d", report.Targets)},
			{Label: "Problems", Value: fmt.Sprintf("%d", report.Problems)},
		}
		if !first {
			fmt.Fprintln(os.Stdout)
		}
		fmt.Fprintln(os.Stdout, tui.RenderSummary("", rows))
		if report.Problems > 0 {
			return fmt.Errorf("%d target(s) cannot be converted", report.Problems)
		}
		return nil
	},
}

func printEntry(e inspect.EntryReport) {
	fmt.Fprintf(os.Stdout, "%s %s\n", inspectFileStyle.Render(e.Path), inspectDimStyle.Render("["+e.Role.String()+"]"))
	if e.Role == inspect.RoleDirectory {
		return
	}
	detail := fmt.Sprintf("%s  %s", tui.FormatBytes(int64(e.Size)), e.Digest.Short())
	if e.Width > 0 {
		detail = fmt.Sprintf("%s %dx%d  %s", e.Kind, e.Width, e.Height, detail)
	}
	fmt.Fprintf(os.Stdout, "  %s %s\n", inspectBulletStyle.Render("-"), inspectValueStyle.Render(detail))
	for _, note := range e.Notes {
		fmt.Fprintf(os.Stdout, "  %s %s %s\n",
			inspectBulletStyle.Render("-"),
			inspectCategoryStyle.Render(note.Kind+":"),
			inspectValueStyle.Render(note.Message),
		)
	}
}

func printComparison(c archive.Comparison) {
	sections := []struct {
		label string
		paths []string
	}{
		{"Changed", c.Changed},
		{"Added", c.Added},
		{"Removed", c.Removed},
	}
	for _, s := range sections {
		if len(s.paths) == 0 {
			continue
		}
		fmt.Fprintf(os.Stdout, "%s\n", inspectCategoryStyle.Render(s.label+":"))
		for _, p := range s.paths {
			fmt.Fprintf(os.Stdout, "  %s %s\n", inspectBulletStyle.Render("-"), inspectValueStyle.Render(p))
		}
	}

	rows := []tui.SummaryRow{
		{Label: "Unchanged", Value: fmt.Sprintf("%d", len(c.Unchanged))},
		{Label: "Changed", Value: fmt.Sprintf("%d", len(c.Changed))},
		{Label: "Added", Value: fmt.Sprintf("%d", len(c.Added))},
		{Label: "Removed", Value: fmt.Sprintf("%d", len(c.Removed))},
	}
	fmt.Fprintln(os.Stdout, tui.RenderSummary("", rows))
	if c.SamePaths() {
		fmt.Fprintln(os.Stdout, inspectDimStyle.Render("Both archives hold the same set of paths."))
	}
}

var (
	inspectFileStyle     = lipgloss.NewStyle().Bold(true).Foreground(tui.ColorAccent)
	inspectCategoryStyle = lipgloss.NewStyle().Foreground(tui.ColorAccentAlt)
	inspectValueStyle    = lipgloss.NewStyle().Foreground(tui.ColorInk)
	inspectDimStyle      = lipgloss.NewStyle().Foreground(tui.ColorDim)
	inspectBulletStyle   = lipgloss.NewStyle().Foreground(tui.ColorDim)
)

func init() {
	inspectFlags.registerSelect(inspectCmd.Flags())
	inspectCmd.Flags().StringVar(&inspectCompare, "compare", "", "compare against a repackaged archive by digest")
	inspectCmd.Flags().BoolVarP(&inspectAll, "all", "a", false, "list pass-through entries too")

	rootCmd.AddCommand(inspectCmd)
}
