package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-priority/internal/api/dto"
	"github.com/spec-kit/ticket-priority/internal/selector"
	"github.com/spec-kit/ticket-priority/internal/service"
)

// ReportsHandler serves the report catalogue, tables and calendars.
type ReportsHandler struct {
	service *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reportService *service.ReportService) *ReportsHandler {
	return &ReportsHandler{service: reportService}
}

// ListReports GET /api/reports.
func (h *ReportsHandler) ListReports(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": service.Reports()})
}

// GetReport GET /api/reports/:name.
func (h *ReportsHandler) GetReport(c *fiber.Ctx) error {
	view := strings.TrimSpace(c.Query("view"))
	if view == "" {
		view = string(service.ViewDatatable)
	}
	q := service.ReportQuery{
		Name:       service.ReportName(c.Params("name")),
		View:       service.View(view),
		TechFilter: c.Query("tech_filter"),
		InterType:  interType(c),
	}
	res, err := h.service.Report(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ReportPayload(res)})
}

// TechnicianTable GET /api/tables/technicians.
func (h *ReportsHandler) TechnicianTable(c *fiber.Ctx) error {
	table, err := h.service.TechnicianTable(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": table})
}

// ExpirationTable GET /api/tables/expiration.
func (h *ReportsHandler) ExpirationTable(c *fiber.Ctx) error {
	table, err := h.service.ExpirationTable(c.UserContext(), interType(c), c.Query("tech_filter"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": table})
}

// SuspendedMailTable GET /api/tables/suspended-mail.
func (h *ReportsHandler) SuspendedMailTable(c *fiber.Ctx) error {
	table, err := h.service.SuspendedMailTable(c.UserContext(), c.Query("tech_filter"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": table})
}

// RDVCalendar GET /api/calendars/rdv.
func (h *ReportsHandler) RDVCalendar(c *fiber.Ctx) error {
	events, err := h.service.RDVCalendar(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": events})
}

// EmployeeMovementCalendar GET /api/calendars/employee-movements.
func (h *ReportsHandler) EmployeeMovementCalendar(c *fiber.Ctx) error {
	events, err := h.service.EmployeeMovementCalendar(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": events})
}

func interType(c *fiber.Ctx) selector.Flow {
	return selector.Flow(strings.ToLower(strings.TrimSpace(c.Query("inter_type"))))
}
