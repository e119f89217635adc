package integrity

import (
	"context"

	"mixer-report/core/storage"
	"mixer-report/feature/integrity/checks"
	"mixer-report/feature/mixer"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service handles integrity checks of the configured sources and sinks.
type Service struct {
	client  storage.Client
	bucket  string
	logger  *zap.Logger
	db      *gorm.DB
	profile *mixer.Profile
}

// NewService creates a new integrity service.
func NewService(client storage.Client, bucket string, logger *zap.Logger, db *gorm.DB, profile *mixer.Profile) *Service {
	return &Service{
		client:  client,
		bucket:  bucket,
		logger:  logger,
		db:      db,
		profile: profile,
	}
}

// Targets lists the tables the pipeline reads and writes with the columns it needs.
// The sink entry holds the delivered column names.
func (s *Service) Targets() map[string]checks.Target {
	targets := make(map[string]checks.Target)
	required := s.profile.RequiredColumns()
	for stream, src := range s.profile.Streams() {
		if src.Table == "" {
			continue
		}
		targets[stream] = checks.Target{Table: src.Table, Columns: required[stream]}
	}

	var delivered []string
	for _, col := range s.profile.SelectedColumns() {
		delivered = append(delivered, s.profile.OutputName(col))
	}
	targets["sink"] = checks.Target{Table: s.profile.Sink.Table, Columns: delivered}
	return targets
}

// CheckSchema compares the database tables with the profile.
func (s *Service) CheckSchema() (*checks.SchemaReport, error) {
	return checks.CheckSchema(s.db, s.Targets())
}

// Prefixes lists the export prefix of every stream that has one.
func (s *Service) Prefixes() map[string]string {
	prefixes := make(map[string]string)
	for stream, src := range s.profile.Streams() {
		if src.Prefix != "" {
			prefixes[stream] = src.Prefix
		}
	}
	return prefixes
}

// CheckExports returns the streams without any export in the bucket.
func (s *Service) CheckExports(ctx context.Context) ([]string, error) {
	return checks.CheckExports(ctx, s.client, s.bucket, s.Prefixes())
}

// FixExports creates the export folders of the missing streams.
func (s *Service) FixExports(ctx context.Context, missing []string) error {
	return checks.FixExports(ctx, s.client, s.bucket, s.logger, s.Prefixes(), missing)
}
