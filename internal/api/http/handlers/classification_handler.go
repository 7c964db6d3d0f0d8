package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-priority/internal/api/dto"
	"github.com/spec-kit/ticket-priority/internal/service"
	apperrors "github.com/spec-kit/ticket-priority/pkg/util/errorutil"
)

// ClassificationHandler manages the intervention type of requests.
type ClassificationHandler struct {
	service *service.ReportService
}

// NewClassificationHandler constructs handler.
func NewClassificationHandler(reportService *service.ReportService) *ClassificationHandler {
	return &ClassificationHandler{service: reportService}
}

// ListInterventionTypes GET /api/request-classification.
func (h *ClassificationHandler) ListInterventionTypes(c *fiber.Ctx) error {
	types, err := h.service.InterventionTypes(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewInterventionTypeResponses(types)})
}

// UpdateClassification PATCH /api/request-classification.
func (h *ClassificationHandler) UpdateClassification(c *fiber.Ctx) error {
	var req dto.ClassificationUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	classification, err := h.service.UpdateClassification(c.UserContext(), req.Key(), req.Type)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewClassificationResponse(req.RequestID, classification)})
}
