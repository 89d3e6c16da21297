package main

import (
	"context"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"pkt.systems/psi"
	"pkt.systems/pslog"
	"pkt.systems/tabforge/internal/appconfig"
	"pkt.systems/tabforge/internal/logx"
)

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	logger := newLogger(os.Stderr)
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)

	root := newRootCmd()
	root.SetArgs(os.Args[1:])

	if err := root.ExecuteContext(ctx); err != nil {
		pslog.Ctx(ctx).With("err", err).Error("tabforge command failed")
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tabforge",
		Short:         "Tabbed field workspace with drag-and-drop, image analysis and SSH/HTTP UIs",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newTUICmd())
	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newSnapshotCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())

	return root
}

func newLogger(w io.Writer) pslog.Logger {
	return pslog.LoggerFromEnv(
		pslog.WithEnvWriter(w),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
}

// attachLogFile rebinds the command logger to stderr (or console when nil)
// teed with the configured rotating log file.
func attachLogFile(cmd *cobra.Command, console io.Writer, cfg appconfig.LoggingConfig) (pslog.Logger, io.Closer, error) {
	if console == nil {
		console = io.Discard
	}
	out, closer, err := logx.Output(console, logx.FileOptions{
		Path:       cfg.File,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	})
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(out)
	cmd.SetContext(pslog.ContextWithLogger(cmd.Context(), logger))
	return logger, closer, nil
}
