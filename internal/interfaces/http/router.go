package http

import (
	"github.com/gofiber/fiber/v2"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Quotes    QuoteService
	Convert   ConvertService
	Invoices  InvoiceService
	Summary   SummaryService
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	write := RequireRole(RoleAdmin, RoleContador)

	quotes := api.Group("/quotes")
	quoteHandler := NewQuoteHandler(deps.Quotes, deps.Convert)
	quotes.Post("/", write, quoteHandler.Create)
	quotes.Get("/:id", quoteHandler.GetByID)
	quotes.Patch("/:id", write, quoteHandler.Update)
	quotes.Get("/:id/progress", quoteHandler.Progress)
	quotes.Get("/:id/allocation", quoteHandler.Allocation)
	quotes.Get("/:id/actions", quoteHandler.Actions)
	quotes.Patch("/:id/status", write, quoteHandler.ChangeStatus)
	quotes.Delete("/:id", write, quoteHandler.Delete)
	quotes.Post("/:id/invoices", write, quoteHandler.Convert)

	invoices := api.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.Invoices)
	invoices.Get("/:id", invoiceHandler.GetByID)
	invoices.Patch("/:id/status", write, invoiceHandler.UpdateStatus)

	dashboard := api.Group("/dashboard")
	dashboardHandler := NewDashboardHandler(deps.Summary)
	dashboard.Get("/summary", dashboardHandler.GetSummary)
}
