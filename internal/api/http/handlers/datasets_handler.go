package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-priority/internal/api/dto"
	"github.com/spec-kit/ticket-priority/internal/observability"
	"github.com/spec-kit/ticket-priority/internal/service"
	apperrors "github.com/spec-kit/ticket-priority/pkg/util/errorutil"
)

// DatasetsHandler exposes cache maintenance and counters.
type DatasetsHandler struct {
	service *service.ReportService
	metrics *observability.Metrics
}

// NewDatasetsHandler constructs handler.
func NewDatasetsHandler(reportService *service.ReportService, metrics *observability.Metrics) *DatasetsHandler {
	return &DatasetsHandler{service: reportService, metrics: metrics}
}

// Refresh POST /api/datasets/refresh.
func (h *DatasetsHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	datasets, err := h.service.Refresh(c.UserContext(), req.Datasets...)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"invalidated": datasets}})
}

// Metrics GET /metrics.
func (h *DatasetsHandler) Metrics(c *fiber.Ctx) error {
	if h.metrics == nil {
		return c.JSON(fiber.Map{"data": observability.MetricsSnapshot{}})
	}
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
