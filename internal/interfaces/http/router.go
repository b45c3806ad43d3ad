package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jhoicas/pos-core/internal/application/billing"
	"github.com/jhoicas/pos-core/internal/application/cash"
	"github.com/jhoicas/pos-core/internal/application/catalog"
	"github.com/jhoicas/pos-core/internal/application/filing"
	"github.com/jhoicas/pos-core/internal/application/idempotency"
	"github.com/jhoicas/pos-core/internal/application/inventory"
	"github.com/jhoicas/pos-core/internal/application/numbering"
	"github.com/jhoicas/pos-core/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Orchestrator *billing.Orchestrator
	Invoices     *billing.InvoiceQueryUseCase
	InvoicePDF   *billing.PDFUseCase
	Dispatcher   *filing.Dispatcher
	Inventory    *inventory.Service
	Cash         *cash.Ledger
	Catalog      *catalog.Service
	Numbering    *numbering.Service
	Gate         *idempotency.Gate
	Metrics      http.Handler // nil desactiva /metrics
	ServiceName  string
	Tokens       *jwt.Codec
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics))
	}

	// Todas las rutas de negocio requieren Bearer Token; la empresa del token es el tenant.
	api := app.Group("/api", AuthMiddleware(deps.Tokens), requireTenant)

	anyRole := RequireRole(RoleAdmin, RoleVendedor, RoleBodeguero)
	sellers := RequireRole(RoleAdmin, RoleVendedor)
	stock := RequireRole(RoleAdmin, RoleBodeguero)
	admin := RequireRole(RoleAdmin)

	// Ventas y documentos comerciales
	sales := NewSaleHandler(deps.Orchestrator)
	api.Post("/sales", sellers, sales.CreateSale)
	api.Post("/quotes", sellers, sales.CreateQuote)
	api.Post("/quotes/:id/convert", sellers, sales.ConvertQuote)
	api.Post("/returns", sellers, sales.CreateReturn)
	api.Post("/purchase-orders", stock, sales.CreatePurchaseOrder)
	api.Post("/purchase-orders/:id/receive", stock, sales.ReceivePurchaseOrder)

	// Facturas y documento electrónico
	invoices := NewInvoiceHandler(deps.Orchestrator, deps.Invoices, deps.InvoicePDF, deps.Dispatcher)
	api.Get("/invoices/:id", anyRole, invoices.GetByID)
	api.Get("/invoices/:id/status", anyRole, invoices.GetStatus)
	api.Get("/invoices/:id/pdf", anyRole, invoices.DownloadPDF)
	api.Post("/invoices/:id/void", admin, invoices.Void)
	api.Post("/filing/:id/requeue", admin, invoices.RequeueFiling)

	// Inventario
	inv := NewInventoryHandler(deps.Inventory)
	api.Post("/inventory/movements", stock, inv.RegisterMovement)
	api.Get("/inventory/balances/:product_id", anyRole, inv.GetBalance)
	api.Get("/inventory/balances/:product_id/movements", anyRole, inv.ListMovements)

	// Caja ("current" antes de ":id")
	cashH := NewCashHandler(deps.Cash)
	api.Post("/cash-sessions", sellers, cashH.Open)
	api.Get("/cash-sessions/current", sellers, cashH.Current)
	api.Get("/cash-sessions/:id", sellers, cashH.GetByID)
	api.Post("/cash-sessions/:id/movements", sellers, cashH.AddMovement)
	api.Post("/cash-sessions/:id/close", sellers, cashH.Close)

	// Numeración e idempotencia
	num := NewNumberingHandler(deps.Numbering, deps.Gate)
	api.Put("/numbering-range", admin, num.Configure)
	api.Get("/numbering-range", anyRole, num.Current)
	api.Get("/numbering-range/remaining", anyRole, num.Remaining)
	api.Get("/idempotency/:key", anyRole, num.LookupKey)

	// Catálogo
	company := NewCompanyHandler(deps.Catalog)
	api.Post("/company", admin, company.Register)
	api.Get("/company", anyRole, company.Get)
	products := NewProductHandler(deps.Catalog)
	api.Post("/products", stock, products.Create)
	api.Get("/products/:id", anyRole, products.GetByID)
	customers := NewCustomerHandler(deps.Catalog)
	api.Post("/customers", sellers, customers.Create)
	api.Get("/customers/:id", anyRole, customers.GetByID)
}
