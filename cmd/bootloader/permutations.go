package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/wippyai/bootloader/selection"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func newPermutationsCmd() *cobra.Command {
	var manifestPath string

	cmd := &cobra.Command{
		Use:   "permutations",
		Short: "List the permutation table of a manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			if manifestPath == "" {
				manifestPath = cfg.Manifest
			}
			return runPermutations(cmd.OutOrStdout(), manifestPath)
		},
	}
	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "permutation manifest (default from config)")
	return cmd
}

func runPermutations(w io.Writer, manifestPath string) error {
	mod, err := loadModule(manifestPath)
	if err != nil {
		return err
	}
	// Building the engine validates the table against the properties.
	if _, err := mod.Build(&selection.Env{}); err != nil {
		return err
	}

	headers := make([]string, 0, len(mod.Properties)+1)
	for _, p := range mod.Properties {
		headers = append(headers, p.Name)
	}
	headers = append(headers, "strong name")

	rows := make([][]string, 0, len(mod.Permutations))
	for _, p := range mod.Permutations {
		row := append(append([]string(nil), p.Values...), p.StrongName)
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)

	fmt.Fprintf(w, "%s: %d permutations\n", mod.Name, len(rows))
	fmt.Fprintln(w, t.Render())
	return nil
}
