package cmd

import (
	"mixer-report/core/config"
	"mixer-report/core/database"
	"mixer-report/core/errors"
	"mixer-report/core/logger"
	"mixer-report/core/storage"
	"mixer-report/feature/mixer"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// bootstrap is what every command builds before doing its work.
type bootstrap struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *gorm.DB
	store   storage.Client
	profile *mixer.Profile
}

// needs says which optional parts a command requires.
type needs struct {
	db      bool
	storage bool
	profile bool
}

func loadBootstrap(n needs) (*bootstrap, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to load configuration"), errors.ErrInvalidConfig)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize logger")
	}
	zap.ReplaceGlobals(logg)
	rt := &bootstrap{cfg: cfg, logger: logg.With(zap.String("site", cfg.Server.Site))}

	if n.profile {
		profile, err := mixer.LoadProfile(cfg.Pipeline.Profile)
		if err != nil {
			return nil, err
		}
		rt.profile = profile
		rt.logger.Info("Loaded site profile",
			zap.String("path", cfg.Pipeline.Profile),
			zap.String("mixer", profile.MixerName),
			zap.String("shifts", profile.Calendar().String()))
	}

	if conn, err := database.Connect(cfg.Database); err != nil {
		if n.db {
			return nil, err
		}
		rt.logger.Warn("Optional database connection failed", zap.Error(err))
	} else {
		rt.db = conn
		rt.logger.Info("Connected to plant database", zap.String("driver", cfg.Database.Driver))
	}

	if n.storage || cfg.Pipeline.Source == config.SourceStorage || cfg.Pipeline.ArchivePrefix != "" {
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, err
		}
		rt.store = client
	}

	return rt, nil
}

func (rt *bootstrap) close() {
	if rt.db != nil {
		if err := database.Close(rt.db); err != nil {
			rt.logger.Warn("Failed to close database", zap.Error(err))
		}
	}
	_ = rt.logger.Sync()
}
