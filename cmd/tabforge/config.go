package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/tabforge/internal/appconfig"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration and credentials",
	}
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigSetKeyCmd())
	cmd.AddCommand(newConfigDeleteKeyCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var cfgPath string
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := appconfig.WriteDefault(cfgPath, force)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return err
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}

func newConfigSetKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-key [key]",
		Short: "Store the vision provider API key in the OS keyring",
		Long:  "Store the vision provider API key in the OS keyring. Without an argument the key is read from stdin.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ""
			if len(args) == 1 {
				key = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read key: %w", err)
				}
				key = line
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return errors.New("api key is empty")
			}
			if err := appconfig.StoreAPIKey(key); err != nil {
				return err
			}
			loggerFrom(cmd).Info("vision api key stored", "service", appconfig.KeyringService)
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "api key stored in keyring")
			return err
		},
	}
}

func newConfigDeleteKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-key",
		Short: "Remove the vision provider API key from the OS keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := appconfig.DeleteAPIKey(); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "api key removed from keyring")
			return err
		},
	}
}

func loggerFrom(cmd *cobra.Command) pslog.Logger {
	return pslog.Ctx(cmd.Context())
}
