package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mixer-report/core/loader"
	"mixer-report/core/logger"
	"mixer-report/core/middleware/auth"
	"mixer-report/core/middleware/rayid"

	"mixer-report/feature/integrity"
	"mixer-report/feature/report"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "mixer-report/docs/swagger"
)

// @title Mixer Report API
// @version 1.0
// @description Shift-aware reconciliation report of foundry sand-mixer batches.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

var withETL bool

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the report server",
	Long: `Starts the HTTP server and initializes all enabled features.
With --etl the reconciliation loop runs in the same process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. Configuration, logger, optional database and storage
		rt, err := loadBootstrap(needs{profile: true, db: withETL})
		if err != nil {
			return err
		}
		defer rt.close()
		logg := rt.logger

		// 2. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
		})

		// 3. Initialize Feature Loader
		mgr := loader.NewManager(logg)
		mgr.Register(report.NewFeature(rt.db, rt.profile.Sink.Table, rt.profile.ReportTimestampColumn(),
			rt.profile.Sink.CheckpointTable, time.Local, logg))
		mgr.Register(integrity.NewFeature(rt.store, rt.cfg.Storage.Bucket, logg, rt.db, rt.profile))

		// Middleware Registration
		// 1. RayID (Must be first to trace everything)
		app.Use(rayid.New())

		// 2. Request logging with the ray id
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// 3. Swagger Documentation (Public)
		app.Get("/swagger/*", swagger.HandlerDefault)

		// 4. Auth (Protect API)
		app.Use(auth.New(auth.Config{ApiKey: rt.cfg.Server.ApiKey}))
		if !rt.cfg.Server.AuthEnabled() {
			logg.Warn("API key not configured, endpoints are public")
		}

		// 5. Load Features
		if err := mgr.LoadAll(app); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// 6. Optional pipeline loop
		etlDone := make(chan error, 1)
		if withETL {
			go func() { etlDone <- runPipeline(ctx, rt, false) }()
		} else {
			close(etlDone)
		}

		// 7. Start Server
		go func() {
			logg.Info("Starting server", zap.String("addr", rt.cfg.Server.Addr()))
			if err := app.Listen(rt.cfg.Server.Addr()); err != nil {
				logg.Error("Server failed", zap.Error(err))
				stop()
			}
		}()

		// 8. Graceful Shutdown
		<-ctx.Done()
		logg.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logg.Warn("Server shutdown failed", zap.Error(err))
		}
		if err := <-etlDone; err != nil {
			return err
		}
		return nil
	},
}

func init() {
	startCmd.Flags().BoolVar(&withETL, "etl", false, "Run the reconciliation loop alongside the server")
	RootCmd.AddCommand(startCmd)
}
