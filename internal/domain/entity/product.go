package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product producto del catálogo (solo lectura para el núcleo transaccional, salvo el costo).
type Product struct {
	ID             string
	CompanyID      string
	SKU            string // código único por empresa
	Name           string
	Price          decimal.Decimal // precio de venta
	Cost           decimal.Decimal // costo promedio ponderado
	TaxRate        decimal.Decimal // IVA Colombia: 0, 0.05, 0.19
	UnitMeasure    string
	IsActive       bool
	AllowBackorder bool // permite vender sin existencias
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
