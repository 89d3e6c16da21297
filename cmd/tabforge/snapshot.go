package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"pkt.systems/tabforge/internal/persist"
	"pkt.systems/tabforge/schema"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect saved field data",
	}
	cmd.AddCommand(newSnapshotValidateCmd())
	cmd.AddCommand(newSnapshotShowCmd())
	return cmd
}

func newSnapshotValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a snapshot file against the snapshot schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readSnapshot(args[0])
			if err != nil {
				return err
			}
			fields := 0
			for _, tab := range snap.Tabs {
				fields += len(tab.Fields)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: valid (%d tabs, %d fields, saved %s)\n", args[0], len(snap.Tabs), fields, snap.Timestamp)
			return err
		},
	}
}

func newSnapshotShowCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "show <file>",
		Short: "Print a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readSnapshot(args[0])
			if err != nil {
				return err
			}
			if raw {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			renderer, err := glamour.NewTermRenderer(glamour.WithStandardStyle("notty"), glamour.WithWordWrap(100))
			if err != nil {
				return err
			}
			out, err := renderer.Render(snapshotMarkdown(snap))
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().BoolVar(&raw, "json", false, "print JSON instead of a rendered summary")
	return cmd
}

func readSnapshot(path string) (schema.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return schema.Snapshot{}, err
	}
	snap, err := persist.ValidateSnapshot(data)
	if err != nil {
		return schema.Snapshot{}, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

func snapshotMarkdown(snap schema.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Field data\n\nSaved %s\n", snap.Timestamp)
	for _, tab := range snap.Tabs {
		fmt.Fprintf(&b, "\n## %s\n\n", tab.Name)
		if len(tab.Fields) == 0 {
			b.WriteString("_no fields_\n")
			continue
		}
		b.WriteString("| Field | Type | Value |\n| --- | --- | --- |\n")
		for _, field := range tab.Fields {
			value := field.Value
			if field.Type == schema.FieldPassword && value != "" {
				value = "••••••"
			}
			fmt.Fprintf(&b, "| %s | %s | %s |\n", escapeCell(field.Label), field.Type, escapeCell(value))
		}
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}
