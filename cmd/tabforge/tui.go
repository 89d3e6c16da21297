package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"pkt.systems/tabforge/core"
	"pkt.systems/tabforge/internal/analysis"
	"pkt.systems/tabforge/internal/appconfig"
	"pkt.systems/tabforge/internal/eventbus"
	"pkt.systems/tabforge/internal/persist"
	"pkt.systems/tabforge/schema"
	"pkt.systems/tabforge/tui"
)

const localSession schema.SessionID = "local"

func newTUICmd() *cobra.Command {
	var cfgPath string
	var endpoint string
	var from string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Run the workspace in this terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			// stderr would tear the alt screen; log to the file only.
			logger, closeLog, err := attachLogFile(cmd, nil, cfg.Logging)
			if err != nil {
				return err
			}
			defer func() { _ = closeLog.Close() }()

			analyzer, err := buildAnalyzer(cfg, endpoint, logger)
			if err != nil {
				return err
			}
			local, downloads, err := openStorage(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeLocal(local)

			bus := eventbus.New(logger)
			events, unsubscribe := bus.Subscribe(localSession)
			defer unsubscribe()
			ws := core.NewWorkspace(core.StoreDeps{
				Session:   localSession,
				Local:     local,
				Download:  downloads,
				EventSink: bus,
				Logger:    logger,
			})
			if from != "" {
				if err := loadSnapshotFile(ws.Store, from); err != nil {
					return err
				}
			}

			model := tui.New(tui.Options{
				Context:   cmd.Context(),
				Workspace: ws,
				Bridge:    analysis.NewBridge(analyzer, logger),
				Events:    events,
				Logger:    logger,
			})
			program := tea.NewProgram(model,
				tea.WithContext(cmd.Context()),
				tea.WithAltScreen(),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)
			if _, err := program.Run(); err != nil {
				return fmt.Errorf("terminal ui: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "analyze via a remote /api/analyze-image URL")
	cmd.Flags().StringVar(&from, "from", "", "load a saved snapshot before starting")
	return cmd
}

func loadSnapshotFile(store *core.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	snap, err := persist.ValidateSnapshot(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return store.Load(snap)
}
