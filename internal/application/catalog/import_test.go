package catalog_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/jhoicas/pos-core/internal/application/catalog"
	"github.com/jhoicas/pos-core/internal/application/idempotency"
	"github.com/jhoicas/pos-core/internal/application/inventory"
	"github.com/jhoicas/pos-core/internal/infrastructure/memory"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

const sampleCSV = "sku;nombre;precio;iva;cantidad;costo\n" +
	"CAFE-500;Café 500g;10000;19;12;6000\n" +
	"PAN-01;Pan tajado;5000,50;0;;\n"

func TestReadProductsCSV(t *testing.T) {
	rows, err := catalog.ReadProductsCSV(strings.NewReader(sampleCSV), false)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Café 500g", rows[0].Name)
	assert.True(t, rows[0].TaxRate.Equal(decimal.RequireFromString("0.19")), "19 se lee como porcentaje")
	assert.True(t, rows[0].Quantity.Equal(decimal.NewFromInt(12)))
	assert.True(t, rows[1].Price.Equal(decimal.RequireFromString("5000.5")), "coma decimal")
	assert.True(t, rows[1].Quantity.IsZero())
	assert.Equal(t, 3, rows[1].Line)
}

func TestReadProductsCSV_Latin1(t *testing.T) {
	raw, err := charmap.ISO8859_1.NewEncoder().String(sampleCSV)
	require.NoError(t, err)

	rows, err := catalog.ReadProductsCSV(bytes.NewReader([]byte(raw)), true)
	require.NoError(t, err)
	assert.Equal(t, "Café 500g", rows[0].Name)
}

func TestReadProductsCSV_Errors(t *testing.T) {
	cases := map[string]string{
		"encabezado":     "codigo;nombre;precio;iva;cantidad;costo\n",
		"número":         "sku;nombre;precio;iva;cantidad;costo\nA;B;diez;0;0;0\n",
		"sku vacío":      "sku;nombre;precio;iva;cantidad;costo\n;B;1;0;0;0\n",
		"vacío":          "",
		"pocas columnas": "sku;nombre\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := catalog.ReadProductsCSV(strings.NewReader(in), false)
			assert.Error(t, err)
		})
	}
}

// recordingStock guarda los productos que recibieron existencia inicial.
type recordingStock struct {
	inner *inventory.Service
	ids   []string
}

func (r *recordingStock) RegisterInitialStock(ctx context.Context, tenantID, productID, key string, qty, unitCost decimal.Decimal) error {
	r.ids = append(r.ids, productID)
	return r.inner.RegisterInitialStock(ctx, tenantID, productID, key, qty, unitCost)
}

func TestImport_IsRepeatable(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repos()
	log := zerolog.Nop()
	gate := idempotency.NewGate(store, repos.Idempotency, idempotency.Options{Logger: log})
	inv := inventory.NewService(gate, inventory.NewLedger(log), repos.Products, repos.Stock, repos.Movements)
	svc := catalog.NewService(repos, log)
	stock := &recordingStock{inner: inv}
	ctx := context.Background()

	rows, err := catalog.ReadProductsCSV(strings.NewReader(sampleCSV+"MALO;IVA raro;1;16;0;0\n"), false)
	require.NoError(t, err)

	res, err := svc.Import(ctx, tenant, rows, stock)
	require.NoError(t, err)
	assert.Equal(t, catalog.ImportResult{Created: 2, Failed: 1}, res)
	require.Len(t, stock.ids, 1, "solo el café trae cantidad")

	again, err := svc.Import(ctx, tenant, rows, stock)
	require.NoError(t, err)
	assert.Equal(t, catalog.ImportResult{Skipped: 2, Failed: 1}, again)
	assert.Len(t, stock.ids, 1)

	bal, err := inv.GetBalance(ctx, tenant, stock.ids[0])
	require.NoError(t, err)
	assert.True(t, bal.QuantityOnHand.Equal(decimal.NewFromInt(12)))

	p, err := svc.GetProduct(ctx, tenant, stock.ids[0])
	require.NoError(t, err)
	assert.True(t, p.Cost.Equal(decimal.NewFromInt(6000)))
}
