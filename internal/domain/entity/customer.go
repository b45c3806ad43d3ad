package entity

import "time"

// Customer cliente de la empresa (facturación).
type Customer struct {
	ID        string
	CompanyID string
	Name      string
	TaxID     string // NIT o Cédula (Colombia)
	Email     string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FinalConsumer adquiriente genérico cuando la venta no identifica cliente (DIAN).
func FinalConsumer(companyID string) *Customer {
	return &Customer{CompanyID: companyID, Name: "Consumidor final", TaxID: "222222222222"}
}
