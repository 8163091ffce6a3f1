package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Cotizaciones-api/internal/application/dto"
)

// QuoteService casos de uso de cotizaciones que expone el handler.
type QuoteService interface {
	Create(ctx context.Context, companyID string, in dto.CreateQuoteRequest) (*dto.QuoteResponse, error)
	Update(ctx context.Context, companyID, id string, in dto.UpdateQuoteRequest) (*dto.QuoteResponse, error)
	Get(ctx context.Context, companyID, id string) (*dto.QuoteResponse, error)
	Progress(ctx context.Context, companyID, id string) (*dto.ProgressResponse, error)
	Allocation(ctx context.Context, companyID, id string, hint int) (*dto.AllocationResponse, error)
	Actions(ctx context.Context, companyID, id string) (*dto.ActionsResponse, error)
	ChangeStatus(ctx context.Context, companyID, id string, in dto.ChangeQuoteStatusRequest) (*dto.QuoteStatusResponse, error)
	Delete(ctx context.Context, companyID, id string) error
}

// ConvertService conversión de cotización a facturas.
type ConvertService interface {
	Convert(ctx context.Context, companyID, quoteID string, in dto.ConvertQuoteRequest) (*dto.ConvertQuoteResponse, error)
}

// QuoteHandler maneja las peticiones HTTP de cotizaciones (protegido).
type QuoteHandler struct {
	quotes  QuoteService
	convert ConvertService
}

// NewQuoteHandler construye el handler.
func NewQuoteHandler(quotes QuoteService, convert ConvertService) *QuoteHandler {
	return &QuoteHandler{quotes: quotes, convert: convert}
}

// Create godoc
// @Summary      Crear cotización en borrador
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateQuoteRequest  true  "Cliente, líneas y descuento"
// @Success      201   {object}  dto.QuoteResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/quotes [post]
func (h *QuoteHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateQuoteRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	out, err := h.quotes.Create(c.UserContext(), GetCompanyID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Update godoc
// @Summary      Editar cotización en borrador o enviada
// @Description  Solo DRAFT y PENDING. Los totales se recalculan con las líneas y el descuento resultantes.
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID de la cotización"
// @Param        body  body  dto.UpdateQuoteRequest  true  "Campos a cambiar"
// @Success      200   {object}  dto.QuoteResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/quotes/{id} [patch]
func (h *QuoteHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateQuoteRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	out, err := h.quotes.Update(c.UserContext(), GetCompanyID(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener cotización con facturas vinculadas
// @Tags         quotes
// @Produce      json
// @Param        id   path  string  true  "ID de la cotización"
// @Success      200  {object}  dto.QuoteResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/quotes/{id} [get]
func (h *QuoteHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.quotes.Get(c.UserContext(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	// Los montos cambian con cada factura; nunca se cachean.
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(out)
}

// Progress godoc
// @Summary      Avance de facturación
// @Tags         quotes
// @Produce      json
// @Param        id   path  string  true  "ID de la cotización"
// @Success      200  {object}  dto.ProgressResponse
// @Security     BearerAuth
// @Router       /api/quotes/{id}/progress [get]
func (h *QuoteHandler) Progress(c *fiber.Ctx) error {
	out, err := h.quotes.Progress(c.UserContext(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(out)
}

// Allocation godoc
// @Summary      Valores por defecto de la próxima factura
// @Tags         quotes
// @Produce      json
// @Param        id    path   string  true   "ID de la cotización"
// @Param        hint  query  int     false  "Último porcentaje usado"
// @Success      200   {object}  dto.AllocationResponse
// @Security     BearerAuth
// @Router       /api/quotes/{id}/allocation [get]
func (h *QuoteHandler) Allocation(c *fiber.Ctx) error {
	out, err := h.quotes.Allocation(c.UserContext(), GetCompanyID(c), c.Params("id"), c.QueryInt("hint", 0))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Actions godoc
// @Summary      Acciones disponibles
// @Tags         quotes
// @Produce      json
// @Param        id   path  string  true  "ID de la cotización"
// @Success      200  {object}  dto.ActionsResponse
// @Security     BearerAuth
// @Router       /api/quotes/{id}/actions [get]
func (h *QuoteHandler) Actions(c *fiber.Ctx) error {
	out, err := h.quotes.Actions(c.UserContext(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ChangeStatus godoc
// @Summary      Cambiar estado de la cotización
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        id    path  string                        true  "ID de la cotización"
// @Param        body  body  dto.ChangeQuoteStatusRequest  true  "Nuevo estado"
// @Success      200   {object}  dto.QuoteStatusResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/quotes/{id}/status [patch]
func (h *QuoteHandler) ChangeStatus(c *fiber.Ctx) error {
	var in dto.ChangeQuoteStatusRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	out, err := h.quotes.ChangeStatus(c.UserContext(), GetCompanyID(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Eliminar cotización en borrador
// @Tags         quotes
// @Param        id   path  string  true  "ID de la cotización"
// @Success      204
// @Failure      409  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/quotes/{id} [delete]
func (h *QuoteHandler) Delete(c *fiber.Ctx) error {
	if err := h.quotes.Delete(c.UserContext(), GetCompanyID(c), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Convert godoc
// @Summary      Crear facturas desde la cotización
// @Description  Un porcentaje por factura. Máximo 3 facturas por cotización; anticipo solo en la primera.
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "ID de la cotización"
// @Param        body  body  dto.ConvertQuoteRequest  true  "Distribución"
// @Success      201   {object}  dto.ConvertQuoteResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/quotes/{id}/invoices [post]
func (h *QuoteHandler) Convert(c *fiber.Ctx) error {
	var in dto.ConvertQuoteRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	out, err := h.convert.Convert(c.UserContext(), GetCompanyID(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}
