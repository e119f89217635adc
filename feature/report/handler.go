package report

import (
	"strconv"
	"strings"
	"time"

	"mixer-report/core/errors"
	"mixer-report/core/logger"
	"mixer-report/core/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the mixer report.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the report routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/api/mixer-report")
	group.Get("/", h.HandleReport)
	group.Get("/checkpoints", h.HandleCheckpoints)
}

// HandleReport returns one page of reconciled report rows.
// @Summary Get Mixer Report
// @Description Pages through the reconciled report, newest first. The date filter is inclusive and applies to the canonical timestamp; a date without a time as end_date covers the whole day.
// @Tags report
// @Accept json
// @Produce json
// @Param limit query int false "Page size" default(100)
// @Param offset query int false "Rows to skip" default(0)
// @Param start_date query string false "Earliest timestamp (e.g. '2025-03-14' or '2025-03-14 07:00:00')"
// @Param end_date query string false "Latest timestamp"
// @Success 200 {object} report.Page "Report Page"
// @Failure 400 {object} report.ErrorResponse "Invalid Date"
// @Failure 404 {object} report.ErrorResponse "Report Table Missing"
// @Failure 500 {object} report.ErrorResponse "Internal Server Error"
// @Router /api/mixer-report [get]
func (h *Handler) HandleReport(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	q := Query{
		Limit:  queryInt(c, "limit", DefaultLimit),
		Offset: queryInt(c, "offset", 0),
	}
	var err error
	if q.Start, err = parseBound(c.Query("start_date"), h.service.Location(), false); err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}
	if q.End, err = parseBound(c.Query("end_date"), h.service.Location(), true); err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}

	page, err := h.service.Fetch(c.UserContext(), q)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			l.Warn("Report table missing", zap.Error(err))
			return fail(c, fiber.StatusNotFound, err)
		}
		l.Error("Report query failed", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(page)
}

// HandleCheckpoints returns the checkpoint log, newest first.
// @Summary Get Checkpoint History
// @Description Lists the append-only checkpoint log of the report pipeline.
// @Tags report
// @Accept json
// @Produce json
// @Param limit query int false "Number of entries" default(20)
// @Success 200 {object} report.CheckpointPage "Checkpoint History"
// @Failure 404 {object} report.ErrorResponse "Checkpoint Table Missing"
// @Failure 500 {object} report.ErrorResponse "Internal Server Error"
// @Router /api/mixer-report/checkpoints [get]
func (h *Handler) HandleCheckpoints(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	records, err := h.service.Checkpoints(c.UserContext(), queryInt(c, "limit", DefaultCheckpointLimit))
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return fail(c, fiber.StatusNotFound, err)
		}
		l.Error("Checkpoint history failed", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(CheckpointPage{Status: "success", Data: records})
}

func fail(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(ErrorResponse{Status: "error", Message: err.Error()})
}

// queryInt reads a non-negative integer parameter; unparseable values fall back to def.
func queryInt(c *fiber.Ctx, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return max(n, 0)
}

// parseBound parses a date filter. A date-only upper bound is extended to the end of that day.
func parseBound(raw string, loc *time.Location, upper bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if day, err := time.ParseInLocation("2006-01-02", raw, loc); err == nil {
		if upper {
			day = day.AddDate(0, 0, 1).Add(-time.Second)
		}
		return &day, nil
	}
	ts, ok := utils.ToTime(raw, loc)
	if !ok {
		return nil, errors.Mark(errors.Newf("invalid date %q", raw), errors.ErrParse)
	}
	return &ts, nil
}
