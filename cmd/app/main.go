package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/TemirB/moneyorder-sync/internal/application/retention"
	"github.com/TemirB/moneyorder-sync/internal/cache"
	"github.com/TemirB/moneyorder-sync/internal/config"
	"github.com/TemirB/moneyorder-sync/internal/database"
	"github.com/TemirB/moneyorder-sync/internal/engine"
	"github.com/TemirB/moneyorder-sync/internal/httpapi"
)

type app struct {
	cfg    config.Config
	logger *zap.Logger
}

func main() {
	a := &app{}
	root := &cobra.Command{
		Use:           "syncd",
		Short:         "Offline-first money order sync engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadE()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			a.cfg, a.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.AddCommand(a.serveCommand(), a.exportCommand(), a.importCommand(), a.pruneCommand())

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zc := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func (a *app) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the sync engine and the local HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := engine.New(ctx, a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := e.Close(); err != nil {
					a.logger.Error("Error while closing engine", zap.Error(err))
				}
			}()

			if err := e.Start(ctx); err != nil {
				return err
			}

			api := httpapi.New(e.Service, retention.NewArchive(e.Repo), a.logger, e.Metrics, e.Metrics.Registry)
			return api.ListenAndServe(ctx, a.cfg.HTTPAddr)
		},
	}
}

// withRepo opens the configured store for one-shot commands.
func (a *app) withRepo(ctx context.Context, fn func(*database.Repository) error) error {
	store, err := engine.OpenStore(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	return fn(database.NewRepository(store))
}

func (a *app) exportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write every stored collection as one JSON document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRepo(cmd.Context(), func(repo *database.Repository) error {
				snap, err := retention.NewArchive(repo).Export(cmd.Context())
				if err != nil {
					return err
				}
				if len(args) == 0 {
					return retention.Encode(cmd.OutOrStdout(), snap)
				}
				f, err := os.Create(args[0])
				if err != nil {
					return err
				}
				if err := retention.Encode(f, snap); err != nil {
					f.Close()
					return err
				}
				return f.Close()
			})
		},
	}
}

func (a *app) importCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Merge an exported JSON document into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			snap, err := retention.Decode(f)
			if err != nil {
				return err
			}
			return a.withRepo(cmd.Context(), func(repo *database.Repository) error {
				res, err := retention.NewArchive(repo).Import(cmd.Context(), snap)
				if err != nil {
					return err
				}
				a.logger.Info("Import finished",
					zap.Int("orders", res.Orders),
					zap.Int("receipts", res.Receipts),
					zap.Int("pools", res.Pools),
					zap.Int("tasks", res.Tasks),
					zap.Int("skipped", res.Skipped),
				)
				return nil
			})
		},
	}
}

func (a *app) pruneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete synced orders and receipts older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRepo(cmd.Context(), func(repo *database.Repository) error {
				c, err := cache.New(1)
				if err != nil {
					return err
				}
				p := retention.NewPruner(repo, c, a.cfg.Retention.Window, a.cfg.Retention.PruneInterval, a.logger)
				res, err := p.Prune(cmd.Context())
				if err != nil {
					return err
				}
				a.logger.Info("Prune finished", zap.Int("orders", res.Orders), zap.Int("receipts", res.Receipts))
				return nil
			})
		},
	}
}
