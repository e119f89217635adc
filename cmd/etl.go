package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"mixer-report/core/errors"
	"mixer-report/core/scheduler"
	"mixer-report/feature/mixer"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var onceFlag bool

// etlCmd runs the reconciliation pipeline.
var etlCmd = &cobra.Command{
	Use:   "etl",
	Short: "Run the reconciliation pipeline",
	Long: `Runs reconciliation cycles with a fixed pause between them until interrupted.
With --once a single cycle runs and the command fails when the cycle fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadBootstrap(needs{db: true, profile: true})
		if err != nil {
			return err
		}
		defer rt.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runPipeline(ctx, rt, onceFlag)
	},
}

// runPipeline wires the pipeline and runs one cycle or the loop until ctx ends.
func runPipeline(ctx context.Context, rt *bootstrap, once bool) error {
	p, closeSinks, err := mixer.Build(ctx, rt.cfg, rt.profile, mixer.Deps{
		DB:      rt.db,
		Storage: rt.store,
		Logger:  rt.logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSinks(); err != nil {
			rt.logger.Warn("Failed to close sinks", zap.Error(err))
		}
	}()

	if once {
		res := p.RunCycle(ctx)
		return res.Err
	}

	loop := scheduler.New(rt.cfg.Pipeline.Interval(), nil, rt.logger)
	rt.logger.Info("Starting pipeline loop", zap.Duration("interval", loop.Delay()))
	if err := loop.Run(ctx, p.Job()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	rt.logger.Info("Pipeline loop stopped", zap.Uint64("runs", loop.Runs()))
	return nil
}

func init() {
	etlCmd.Flags().BoolVar(&onceFlag, "once", false, "Run a single cycle and exit")
	RootCmd.AddCommand(etlCmd)
}
