package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/museecg/internal/config"
	"github.com/himanishpuri/museecg/pkg/logger"
	"github.com/himanishpuri/museecg/pkg/museecg"
)

// app carries the state shared by all commands.
type app struct {
	configPath string
	logLevel   string
	workers    int
	dbPath     string

	cfg      *config.Config
	log      *logger.Logger
	exitCode int
}

func newApp() *app {
	return &app{log: logger.GetLogger()}
}

// loadConfig layers CLI flags over the file and environment settings.
func (a *app) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("workers") {
		cfg.Workers = a.workers
	}
	if flags.Changed("db") {
		cfg.DBPath = a.dbPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.log.SetLevel(cfg.Level())
	return nil
}

// createService creates a new service with the configured options. The
// record store is opened only when withDB is set.
func (a *app) createService(withDB bool) (museecg.Service, error) {
	opts := []museecg.Option{
		museecg.WithLogger(a.log),
		museecg.WithDecodeScale(a.cfg.DecodeScale),
		museecg.WithWAVResolution(a.cfg.WAVResolution),
		museecg.WithWorkers(a.cfg.Workers),
		museecg.WithProgressEvery(a.cfg.ProgressEvery),
	}
	if withDB {
		dbPath := a.cfg.DBPath
		if dbPath == "" {
			dbPath = "museecg.sqlite3"
		}
		opts = append(opts, museecg.WithDBPath(dbPath))
	}
	return museecg.NewService(opts...)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "museecg",
		Short: "Read GE MUSE resting ECG XML exports",
		Long: `museecg decodes the base64 rhythm waveforms of GE MUSE XML exports,
derives the limb and augmented leads, and extracts patient, measurement and
diagnosis metadata into TSV, SQLite, PNG and WAV outputs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", os.Getenv("MUSE_CONFIG"), "YAML config file (env: MUSE_CONFIG)")
	pf.StringVar(&a.logLevel, "log-level", "info", "debug, info, warn or error")
	pf.IntVar(&a.workers, "workers", 1, "documents processed concurrently")
	pf.StringVar(&a.dbPath, "db", "", "SQLite record store (env: MUSE_DB_PATH, default: museecg.sqlite3)")

	root.AddCommand(
		newExtractCmd(a),
		newLeadsCmd(a),
		newDecodeCmd(a),
		newPlotCmd(a),
		newSpectrogramCmd(a),
		newWAVCmd(a),
		newIndexCmd(a),
		newRecordsCmd(a),
	)
	return root
}

func run(ctx context.Context, a *app, args []string) int {
	root := newRootCmd(a)
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
		return 1
	}
	return a.exitCode
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, newApp(), os.Args[1:])
	stop()
	os.Exit(code)
}
