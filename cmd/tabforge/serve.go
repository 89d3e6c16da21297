package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/tabforge"
	"pkt.systems/tabforge/httpapi"
	"pkt.systems/tabforge/internal/appconfig"
	"pkt.systems/tabforge/sshserver"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	var enableSSH bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP UI and, optionally, the SSH terminal UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			logger, closeLog, err := attachLogFile(cmd, os.Stderr, cfg.Logging)
			if err != nil {
				return err
			}
			defer func() { _ = closeLog.Close() }()

			analyzer, err := buildAnalyzer(cfg, "", logger)
			if err != nil {
				return err
			}
			local, downloads, err := openStorage(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			logger.Info("storage ready", "backend", cfg.Storage.Backend, "exports", downloads.Dir())

			opts := []tabforge.ServerOption{tabforge.WithHTTP()}
			if enableSSH || cfg.SSH.Enabled {
				opts = append(opts, tabforge.WithSSH())
			}
			server, err := tabforge.New(tabforge.ServerConfig{
				HTTP: toHTTPConfig(cfg.HTTP),
				SSH:  toSSHConfig(cfg.SSH),
			}, tabforge.ServerDeps{
				Analyzer:  analyzer,
				Local:     local,
				Downloads: downloads,
				Logger:    logger,
			}, opts...)
			if err != nil {
				closeLocal(local)
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			if err := server.Start(ctx); err != nil {
				return err
			}
			return server.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&enableSSH, "ssh", false, "also serve the terminal UI over SSH")
	return cmd
}

func toHTTPConfig(cfg appconfig.HTTPConfig) httpapi.Config {
	return httpapi.Config{
		Addr:            cfg.Addr,
		SessionCookie:   cfg.SessionCookie,
		SessionTTLHours: cfg.SessionTTLHours,
		BaseURL:         cfg.BaseURL,
		BasePath:        cfg.BasePath,
		MaxUploadMB:     cfg.MaxUploadMB,
	}
}

func toSSHConfig(cfg appconfig.SSHConfig) sshserver.Config {
	return sshserver.Config{
		Addr:        cfg.Addr,
		HostKeyPath: cfg.HostKeyPath,
		UploadDir:   cfg.UploadDir,
	}
}
