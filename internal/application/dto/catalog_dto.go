package dto

import "github.com/shopspring/decimal"

// CreateProductRequest body para POST /api/products. tax_rate es fracción (0, 0.05, 0.19).
type CreateProductRequest struct {
	SKU            string          `json:"sku" validate:"required,max=64"`
	Name           string          `json:"name" validate:"required,max=200"`
	Price          decimal.Decimal `json:"price" validate:"gte=0"`
	TaxRate        decimal.Decimal `json:"tax_rate" validate:"gte=0"`
	UnitMeasure    string          `json:"unit_measure,omitempty"`
	AllowBackorder bool            `json:"allow_backorder,omitempty"`
}

// ProductResponse producto del catálogo.
type ProductResponse struct {
	ID             string          `json:"id"`
	SKU            string          `json:"sku"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	Cost           decimal.Decimal `json:"cost"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	UnitMeasure    string          `json:"unit_measure"`
	IsActive       bool            `json:"is_active"`
	AllowBackorder bool            `json:"allow_backorder"`
	CreatedAt      string          `json:"created_at"`
}

// CreateCustomerRequest body para POST /api/customers. Un NIT con guion se valida con su DV.
type CreateCustomerRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	TaxID string `json:"tax_id" validate:"required,max=20"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Phone string `json:"phone,omitempty"`
}

// CustomerResponse cliente.
type CustomerResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	TaxID     string `json:"tax_id"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	CreatedAt string `json:"created_at"`
}

// RegisterCompanyRequest body para POST /api/company (datos del emisor del token).
type RegisterCompanyRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	NIT     string `json:"nit" validate:"required,max=20"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
}

// CompanyResponse empresa emisora.
type CompanyResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	NIT     string `json:"nit"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}
