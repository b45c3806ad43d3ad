package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
)

var (
	_ repository.CustomerRepository = (*CustomerRepo)(nil)
	_ repository.CompanyRepository  = (*CompanyRepo)(nil)
)

// CustomerRepo clientes por empresa; (company_id, tax_id) es único.
type CustomerRepo struct{ q Querier }

func NewCustomerRepository(q Querier) *CustomerRepo { return &CustomerRepo{q: q} }

const customerCols = `id, company_id, name, tax_id, email, phone, created_at, updated_at`

func scanCustomer(s pgxScanner, c *entity.Customer) error {
	return s.Scan(&c.ID, &c.CompanyID, &c.Name, &c.TaxID, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt)
}

func (r *CustomerRepo) Create(ctx context.Context, c *entity.Customer) error {
	stamp(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	_, err := r.q.Exec(ctx, `INSERT INTO customers (`+customerCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		c.ID, c.CompanyID, c.Name, c.TaxID, c.Email, c.Phone, c.CreatedAt, c.UpdatedAt)
	return insertErr(err, "customer")
}

func (r *CustomerRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Customer, error) {
	row := r.q.QueryRow(ctx, `SELECT `+customerCols+` FROM customers WHERE company_id = $1 AND id = $2`, tenantID, id)
	return scanOne(row, "customer", scanCustomer)
}

// CompanyRepo empresas (tenants); el NIT es único.
type CompanyRepo struct{ q Querier }

func NewCompanyRepository(q Querier) *CompanyRepo { return &CompanyRepo{q: q} }

const companyCols = `id, name, nit, address, phone, email, created_at, updated_at`

func scanCompany(s pgxScanner, c *entity.Company) error {
	return s.Scan(&c.ID, &c.Name, &c.NIT, &c.Address, &c.Phone, &c.Email, &c.CreatedAt, &c.UpdatedAt)
}

func (r *CompanyRepo) Create(ctx context.Context, c *entity.Company) error {
	stamp(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	_, err := r.q.Exec(ctx, `INSERT INTO companies (`+companyCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		c.ID, c.Name, c.NIT, c.Address, c.Phone, c.Email, c.CreatedAt, c.UpdatedAt)
	return insertErr(err, "company")
}

func (r *CompanyRepo) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	return scanOne(r.q.QueryRow(ctx, `SELECT `+companyCols+` FROM companies WHERE id = $1`, id), "company", scanCompany)
}

// stamp completa ID y marcas de tiempo que el llamador dejó vacíos.
func stamp(id *string, created, updated *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	if updated.IsZero() {
		*updated = *created
	}
}
