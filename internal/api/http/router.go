package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-priority/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Reports        *handlers.ReportsHandler
	Classification *handlers.ClassificationHandler
	Datasets       *handlers.DatasetsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Datasets.Metrics)

	api := app.Group("/api")
	api.Get("/reports", cfg.Reports.ListReports)
	api.Get("/reports/:name", cfg.Reports.GetReport)

	tables := api.Group("/tables")
	tables.Get("/technicians", cfg.Reports.TechnicianTable)
	tables.Get("/expiration", cfg.Reports.ExpirationTable)
	tables.Get("/suspended-mail", cfg.Reports.SuspendedMailTable)

	calendars := api.Group("/calendars")
	calendars.Get("/rdv", cfg.Reports.RDVCalendar)
	calendars.Get("/employee-movements", cfg.Reports.EmployeeMovementCalendar)

	api.Get("/request-classification", cfg.Classification.ListInterventionTypes)
	api.Patch("/request-classification", cfg.Classification.UpdateClassification)

	api.Post("/datasets/refresh", cfg.Datasets.Refresh)
}
