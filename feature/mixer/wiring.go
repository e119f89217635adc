package mixer

import (
	"context"

	"mixer-report/core/checkpoint"
	"mixer-report/core/config"
	"mixer-report/core/errors"
	"mixer-report/core/lock"
	"mixer-report/core/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the connections a pipeline is built from.
type Deps struct {
	DB      *gorm.DB
	Storage storage.Client
	Logger  *zap.Logger
}

// Build wires a pipeline from the application configuration and a site profile.
// The returned close function releases writers opened here.
func Build(ctx context.Context, cfg *config.Config, profile *Profile, deps Deps) (*Pipeline, func() error, error) {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if deps.DB == nil {
		return nil, nil, errors.Mark(errors.New("pipeline needs a database for the report table and checkpoint log"), errors.ErrSourceUnavailable)
	}

	var source Source
	switch cfg.Pipeline.Source {
	case config.SourceDatabase, "":
		source = NewDBSource(deps.DB)
	case config.SourceStorage:
		if deps.Storage == nil {
			return nil, nil, errors.Mark(errors.New("storage source selected without a storage client"), errors.ErrInvalidConfig)
		}
		source = NewStorageSource(deps.Storage, cfg.Storage.Bucket, log)
	default:
		return nil, nil, errors.Mark(errors.Newf("unknown pipeline source %q", cfg.Pipeline.Source), errors.ErrInvalidConfig)
	}

	var secondaries []Sink
	closeFn := func() error { return nil }

	if cfg.Pipeline.ArchivePrefix != "" && deps.Storage != nil {
		site := profile.Site
		if site == "" {
			site = cfg.Server.Site
		}
		secondaries = append(secondaries, NewArchiveSink(deps.Storage, cfg.Storage.Bucket, cfg.Pipeline.ArchivePrefix, site))
	}
	if len(cfg.Pipeline.Kafka.Brokers) > 0 {
		ks := NewKafkaSink(NewKafkaWriter(cfg.Pipeline.Kafka.Brokers, cfg.Pipeline.Kafka.Topic), cfg.Pipeline.Kafka.Topic)
		secondaries = append(secondaries, ks)
		closeFn = ks.Close
	}
	sink := NewFanoutSink(NewTableSink(deps.DB, profile.Sink.Table), log, secondaries...)

	store := checkpoint.NewStore(deps.DB, profile.Sink.CheckpointTable)
	if err := store.Migrate(ctx); err != nil {
		return nil, nil, err
	}

	names := make([]string, 0, len(secondaries)+1)
	names = append(names, sink.Name())
	for _, s := range secondaries {
		names = append(names, s.Name())
	}
	log.Info("Pipeline wired",
		zap.String("site", profile.Site),
		zap.String("source", cfg.Pipeline.Source),
		zap.Strings("sinks", names),
		zap.String("checkpoint_table", store.Table()),
		zap.String("calendar", profile.Calendar().String()))

	p := NewPipeline(profile, source, sink, store,
		WithLogger(log.With(zap.String("site", profile.Site))),
		WithLocker(lock.New(cfg.Pipeline.Lock)))
	return p, closeFn, nil
}
