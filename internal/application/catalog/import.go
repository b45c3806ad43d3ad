package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jhoicas/pos-core/internal/application/dto"
	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// columnas del archivo de carga, en este orden.
var importHeader = []string{"sku", "nombre", "precio", "iva", "cantidad", "costo"}

// ImportRow fila del archivo de carga inicial.
type ImportRow struct {
	Line     int
	SKU      string
	Name     string
	Price    decimal.Decimal
	TaxRate  decimal.Decimal
	Quantity decimal.Decimal
	UnitCost decimal.Decimal
}

// ReadProductsCSV lee un catálogo separado por ';' (exportación típica de hoja de cálculo en
// es-CO). Con latin1 el archivo se decodifica desde ISO-8859-1. Acepta coma decimal.
func ReadProductsCSV(r io.Reader, latin1 bool) ([]ImportRow, error) {
	if latin1 {
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("leer encabezado: %w", err)
	}
	if len(header) < len(importHeader) {
		return nil, fmt.Errorf("encabezado inválido: se esperan las columnas %s", strings.Join(importHeader, ";"))
	}
	for i, col := range importHeader {
		if !strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")), col) {
			return nil, fmt.Errorf("columna %d: se esperaba %q, llegó %q", i+1, col, header[i])
		}
	}

	var rows []ImportRow
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		row, err := parseImportRow(line, rec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseImportRow(line int, rec []string) (ImportRow, error) {
	nums := make([]decimal.Decimal, 4)
	for i, raw := range rec[2:6] {
		raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return ImportRow{}, fmt.Errorf("línea %d, columna %s: número inválido %q", line, importHeader[i+2], raw)
		}
		nums[i] = d
	}
	row := ImportRow{
		Line:     line,
		SKU:      strings.TrimSpace(rec[0]),
		Name:     strings.TrimSpace(rec[1]),
		Price:    nums[0],
		TaxRate:  nums[1],
		Quantity: nums[2],
		UnitCost: nums[3],
	}
	// El IVA puede venir como porcentaje (19) o como fracción (0.19).
	if row.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		row.TaxRate = row.TaxRate.Shift(-2)
	}
	if row.SKU == "" || row.Name == "" {
		return ImportRow{}, fmt.Errorf("línea %d: sku y nombre son obligatorios", line)
	}
	return row, nil
}

// StockRegistrar registra la existencia inicial de un producto importado.
type StockRegistrar interface {
	RegisterInitialStock(ctx context.Context, tenantID, productID, key string, qty, unitCost decimal.Decimal) error
}

// ImportResult resumen de una carga.
type ImportResult struct {
	Created int
	Skipped int
	Failed  int
}

// Import crea los productos del archivo. Los SKU existentes se omiten, de modo que repetir
// la carga no duplica productos ni existencias.
func (s *Service) Import(ctx context.Context, tenantID string, rows []ImportRow, stock StockRegistrar) (ImportResult, error) {
	var res ImportResult
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		p, err := s.CreateProduct(ctx, tenantID, dto.CreateProductRequest{
			SKU: row.SKU, Name: row.Name, Price: row.Price, TaxRate: row.TaxRate,
		})
		switch {
		case errors.Is(err, domain.ErrDuplicate):
			res.Skipped++
			continue
		case err != nil:
			res.Failed++
			s.log.Warn().Err(err).Int("line", row.Line).Str("sku", row.SKU).Msg("producto no importado")
			continue
		}
		res.Created++
		if stock == nil || !row.Quantity.IsPositive() {
			continue
		}
		if err := stock.RegisterInitialStock(ctx, tenantID, p.ID, "import:"+row.SKU, row.Quantity, row.UnitCost); err != nil {
			return res, fmt.Errorf("existencia inicial de %s: %w", row.SKU, err)
		}
	}
	return res, nil
}
