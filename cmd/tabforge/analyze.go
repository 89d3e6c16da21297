package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pkt.systems/tabforge/internal/analysis"
	"pkt.systems/tabforge/internal/appconfig"
)

func newAnalyzeCmd() *cobra.Command {
	var cfgPath string
	var endpoint string
	cmd := &cobra.Command{
		Use:   "analyze <image>",
		Short: "Detect tab headers in a screenshot and print the result JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			upload, err := analysis.Inspect(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			analyzer, err := buildAnalyzer(cfg, endpoint, loggerFrom(cmd))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			resp, err := analyzer.AnalyzeImage(cmd.Context(), data, upload.MIME)
			if err != nil {
				_ = enc.Encode(analysis.ErrorBody(err))
				return fmt.Errorf("analyze %s: %w", args[0], err)
			}
			return enc.Encode(resp)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "analyze via a remote /api/analyze-image URL")
	return cmd
}
