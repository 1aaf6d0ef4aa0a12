package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/woxQAQ/hmbridge/internal/app"
	"github.com/woxQAQ/hmbridge/internal/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	configPath string
	logLevel   string
	fs         afero.Fs

	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(afero.NewOsFs()).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(fsys afero.Fs) *cobra.Command {
	opts := &options{fs: fsys}

	root := &cobra.Command{
		Use:          "hmbridge",
		Short:        "Drive a macro engine through the hmbridge mailbox",
		Version:      fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return opts.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to configuration file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(
		newEvalCmd(opts),
		newExecCmd(opts),
		newCallCmd(opts),
		newEncodingCmd(opts),
	)
	return root
}

func (o *options) setup() error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}

	logger, err := newLogger(level)
	if err != nil {
		return err
	}

	o.cfg = cfg
	o.logger = logger
	o.logger.Debug("Starting hmbridge",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("date", date),
	)
	return nil
}

func newLogger(level zapcore.Level) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if level == zapcore.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// open assembles the bridge for one command run.
func (o *options) open(ctx context.Context) (*app.App, error) {
	return app.New(ctx, o.cfg, o.fs, o.logger)
}
