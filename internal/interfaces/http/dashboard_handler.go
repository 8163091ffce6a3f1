package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Cotizaciones-api/internal/application/dto"
)

// SummaryService resumen de facturación de la empresa.
type SummaryService interface {
	GetSummary(ctx context.Context, companyID string) (*dto.DashboardSummaryDTO, error)
}

// DashboardHandler maneja los endpoints del módulo de Dashboard.
type DashboardHandler struct {
	uc SummaryService
}

// NewDashboardHandler construye el handler.
func NewDashboardHandler(uc SummaryService) *DashboardHandler {
	return &DashboardHandler{uc: uc}
}

// GetSummary devuelve el resumen de facturación de las cotizaciones.
// GET /api/dashboard/summary
//
// Respuesta: DashboardSummaryDTO (quotes_by_status, quoted_total, invoiced_total,
// collected_total, remaining_total, fully_paid_count, monthly_invoiced, date_label).
func (h *DashboardHandler) GetSummary(c *fiber.Ctx) error {
	summary, err := h.uc.GetSummary(c.UserContext(), GetCompanyID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(summary)
}
