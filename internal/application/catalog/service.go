// Package catalog registra los datos maestros que consumen las ventas: productos,
// clientes y la empresa emisora.
package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/pos-core/internal/application/dto"
	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
	"github.com/jhoicas/pos-core/pkg/dian"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var allowedTaxRates = []decimal.Decimal{
	decimal.Zero,
	decimal.RequireFromString("0.05"),
	decimal.RequireFromString("0.19"),
}

// Service casos de uso del catálogo. No pasa por idempotencia: las restricciones de unicidad
// (SKU, NIT) hacen que un reintento devuelva DUPLICATE.
type Service struct {
	products  repository.ProductRepository
	customers repository.CustomerRepository
	companies repository.CompanyRepository
	log       zerolog.Logger
}

// NewService construye el caso de uso sobre repositorios fuera de transacción.
func NewService(repos repository.TxRepos, log zerolog.Logger) *Service {
	return &Service{
		products:  repos.Products,
		customers: repos.Customers,
		companies: repos.Companies,
		log:       log,
	}
}

// CreateProduct alta de producto. El costo inicia en cero y lo mueven las entradas de inventario.
func (s *Service) CreateProduct(ctx context.Context, tenantID string, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	if !validTaxRate(req.TaxRate) {
		return nil, domain.NewValidationError("tax_rate", "debe ser 0, 0.05 o 0.19")
	}
	unit := strings.TrimSpace(req.UnitMeasure)
	if unit == "" {
		unit = dian.UnitUnit
	}
	now := time.Now().UTC()
	p := &entity.Product{
		ID:             uuid.NewString(),
		CompanyID:      tenantID,
		SKU:            strings.TrimSpace(req.SKU),
		Name:           strings.TrimSpace(req.Name),
		Price:          req.Price,
		Cost:           decimal.Zero,
		TaxRate:        req.TaxRate,
		UnitMeasure:    unit,
		IsActive:       true,
		AllowBackorder: req.AllowBackorder,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info().Str("tenant_id", tenantID).Str("product_id", p.ID).Str("sku", p.SKU).Msg("producto creado")
	return toProductResponse(p), nil
}

// GetProduct producto de la empresa.
func (s *Service) GetProduct(ctx context.Context, tenantID, id string) (*dto.ProductResponse, error) {
	p, err := s.products.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return toProductResponse(p), nil
}

// CreateCustomer alta de cliente. Un tax_id con guion es NIT y debe traer el DV correcto;
// sin guion se trata como cédula.
func (s *Service) CreateCustomer(ctx context.Context, tenantID string, req dto.CreateCustomerRequest) (*dto.CustomerResponse, error) {
	taxID := strings.TrimSpace(req.TaxID)
	if strings.Contains(taxID, "-") {
		if err := dian.ValidateNITVerificationDigit(taxID); err != nil {
			return nil, domain.NewValidationError("tax_id", err.Error())
		}
	}
	now := time.Now().UTC()
	c := &entity.Customer{
		ID:        uuid.NewString(),
		CompanyID: tenantID,
		Name:      strings.TrimSpace(req.Name),
		TaxID:     taxID,
		Email:     req.Email,
		Phone:     req.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.customers.Create(ctx, c); err != nil {
		return nil, err
	}
	return toCustomerResponse(c), nil
}

// GetCustomer cliente de la empresa.
func (s *Service) GetCustomer(ctx context.Context, tenantID, id string) (*dto.CustomerResponse, error) {
	c, err := s.customers.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	return toCustomerResponse(c), nil
}

// RegisterCompany registra la empresa del token como emisora. Solo una vez por tenant.
func (s *Service) RegisterCompany(ctx context.Context, tenantID string, req dto.RegisterCompanyRequest) (*dto.CompanyResponse, error) {
	nit := strings.TrimSpace(req.NIT)
	if err := dian.ValidateNITVerificationDigit(nit); err != nil {
		return nil, domain.NewValidationError("nit", err.Error())
	}
	existing, err := s.companies.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}
	now := time.Now().UTC()
	c := &entity.Company{
		ID:        tenantID,
		Name:      strings.TrimSpace(req.Name),
		NIT:       nit,
		Address:   req.Address,
		Phone:     req.Phone,
		Email:     req.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.companies.Create(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info().Str("tenant_id", tenantID).Str("nit", nit).Msg("empresa registrada")
	return toCompanyResponse(c), nil
}

// GetCompany empresa del tenant.
func (s *Service) GetCompany(ctx context.Context, tenantID string) (*dto.CompanyResponse, error) {
	c, err := s.companies.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	return toCompanyResponse(c), nil
}

func validTaxRate(rate decimal.Decimal) bool {
	for _, r := range allowedTaxRates {
		if rate.Equal(r) {
			return true
		}
	}
	return false
}

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:             p.ID,
		SKU:            p.SKU,
		Name:           p.Name,
		Price:          p.Price,
		Cost:           p.Cost,
		TaxRate:        p.TaxRate,
		UnitMeasure:    p.UnitMeasure,
		IsActive:       p.IsActive,
		AllowBackorder: p.AllowBackorder,
		CreatedAt:      dto.FormatTime(p.CreatedAt),
	}
}

func toCustomerResponse(c *entity.Customer) *dto.CustomerResponse {
	return &dto.CustomerResponse{
		ID:        c.ID,
		Name:      c.Name,
		TaxID:     c.TaxID,
		Email:     c.Email,
		Phone:     c.Phone,
		CreatedAt: dto.FormatTime(c.CreatedAt),
	}
}

func toCompanyResponse(c *entity.Company) *dto.CompanyResponse {
	return &dto.CompanyResponse{
		ID:      c.ID,
		Name:    c.Name,
		NIT:     c.NIT,
		Address: c.Address,
		Phone:   c.Phone,
		Email:   c.Email,
	}
}
