package report

import (
	"time"

	"mixer-report/core/checkpoint"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
	enabled bool
}

// NewFeature creates the report feature. It is disabled without a database.
func NewFeature(db *gorm.DB, table, timestampColumn, checkpointTable string, location *time.Location, logger *zap.Logger) *Feature {
	var store *checkpoint.Store
	if db != nil {
		store = checkpoint.NewStore(db, checkpointTable)
	}
	svc := NewService(db, table, timestampColumn, store, location, logger)
	return &Feature{service: svc, handler: NewHandler(svc), enabled: db != nil}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "report"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return f.enabled
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}
