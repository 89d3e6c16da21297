package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/tabforge/internal/analysis"
	"pkt.systems/tabforge/internal/appconfig"
	"pkt.systems/tabforge/internal/persist"
	"pkt.systems/tabforge/internal/vision"
)

// buildAnalyzer returns a remote client when endpoint is set, otherwise the
// in-process service. A missing provider key yields a service that reports
// itself unconfigured.
func buildAnalyzer(cfg appconfig.Config, endpoint string, logger pslog.Logger) (analysis.Analyzer, error) {
	timeout := time.Duration(cfg.Vision.TimeoutSeconds) * time.Second
	if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
		logger.Info("analysis remote endpoint selected", "endpoint", endpoint)
		return analysis.NewRemoteClient(endpoint, &http.Client{Timeout: timeout}), nil
	}
	key, source, err := appconfig.ResolveAPIKey(cfg.Vision)
	if err != nil {
		logger.Warn("vision api key lookup failed", "err", err)
	}
	if key == "" {
		logger.Warn("vision api key not configured", "env", appconfig.APIKeyEnv)
		return analysis.NewService(nil, logger), nil
	}
	client, err := vision.New(vision.Config{
		BaseURL:   cfg.Vision.BaseURL,
		APIKey:    key,
		Model:     cfg.Vision.Model,
		MaxTokens: cfg.Vision.MaxTokens,
		Timeout:   timeout,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("vision provider configured", "model", cfg.Vision.Model, "key_source", source)
	return analysis.NewService(client, logger), nil
}

func openStorage(ctx context.Context, cfg appconfig.Config, logger pslog.Logger) (persist.LocalStore, *persist.DownloadDir, error) {
	local, err := persist.OpenLocalStore(ctx, persist.Options{
		Backend:    persist.Backend(cfg.Storage.Backend),
		SQLitePath: cfg.Storage.SQLitePath,
		FileDir:    cfg.Storage.FileDir,
		Logger:     logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open local storage: %w", err)
	}
	downloads, err := persist.NewDownloadDir(cfg.Storage.ExportDir, logger)
	if err != nil {
		closeLocal(local)
		return nil, nil, fmt.Errorf("open export dir: %w", err)
	}
	return local, downloads, nil
}

func closeLocal(local persist.LocalStore) {
	if closer, ok := local.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}
