package pdf

import (
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	appbilling "github.com/jhoicas/pos-core/internal/application/billing"
	"github.com/jhoicas/pos-core/internal/domain/entity"
)

// caracteres por línea de CUFE en la tirilla (fuente monoespaciada de 6 pt).
const receiptCUFEWidth = 32

// receiptRows tirilla: todo a una columna, centrado, con el QR al final.
func receiptRows(data appbilling.InvoicePDFData) []core.Row {
	inv, company := data.Invoice, data.Company
	rows := []core.Row{
		centered(company.Name, 9, fontstyle.Bold),
		centered("NIT "+company.NIT, 7, fontstyle.Normal),
	}
	if company.Address != "" {
		rows = append(rows, centered(company.Address, 7, fontstyle.Normal))
	}
	rows = append(rows,
		dashes(),
		centered("FACTURA ELECTRÓNICA DE VENTA", 7, fontstyle.Bold),
		centered(inv.FullNumber(), 9, fontstyle.Bold),
		centered(inv.Date.Format("02/01/2006 15:04"), 7, fontstyle.Normal),
	)
	if inv.Status == entity.InvoiceStatusVoided {
		rows = append(rows, banner("ANULADA", 9))
	}
	rows = append(rows,
		dashes(),
		leftText("Cliente: "+data.Customer.Name),
		leftText("NIT/CC: "+data.Customer.TaxID),
		dashes(),
	)
	for _, d := range data.Details {
		rows = append(rows, receiptLine(d)...)
	}
	rows = append(rows,
		dashes(),
		pair("Subtotal", money(inv.NetTotal), false),
		pair("IVA", money(inv.TaxTotal), false),
		pair("TOTAL", money(inv.GrandTotal), true),
	)
	if s := data.Sale; s != nil {
		rows = append(rows, pair("Pago", paymentLabel(s.PaymentMethod), false))
		if s.PaymentMethod == entity.PaymentMethodCash && s.AmountTendered.IsPositive() {
			rows = append(rows,
				pair("Recibido", money(s.AmountTendered), false),
				pair("Cambio", money(s.ChangeDue), false),
			)
		}
	}
	rows = append(rows, dashes(), centered(filingNote(data.FilingStatus), 6, fontstyle.Bold), leftText("CUFE:"))
	for _, part := range chunks(data.CUFE, receiptCUFEWidth) {
		rows = append(rows, row.New(3).Add(col.New(12).Add(text.New(part, props.Text{Size: 6, Align: align.Center}))))
	}
	if data.QRData != "" {
		rows = append(rows, row.New(40).Add(col.New(12).Add(code.NewQr(data.QRData, props.Rect{Percent: 90, Center: true}))))
	}
	rows = append(rows, centered("Gracias por su compra", 7, fontstyle.Italic))
	return rows
}

// receiptLine nombre en una línea; cantidad x precio y subtotal en la siguiente.
func receiptLine(d appbilling.InvoiceDetailForPDF) []core.Row {
	return []core.Row{
		leftText(d.ProductName),
		row.New(4).Add(
			col.New(7).Add(text.New(quantity(d.Quantity)+" x "+money(d.UnitPrice)+"  IVA "+percent(d.TaxRate), props.Text{Size: 7, Left: 2})),
			col.New(5).Add(text.New(money(d.Subtotal), props.Text{Size: 7, Align: align.Right})),
		),
	}
}

func centered(s string, size float64, style fontstyle.Type) core.Row {
	return row.New(size*0.5 + 1).Add(col.New(12).Add(text.New(s, props.Text{Size: size, Style: style, Align: align.Center})))
}

func leftText(s string) core.Row {
	return row.New(4).Add(col.New(12).Add(text.New(s, props.Text{Size: 7})))
}

func pair(label, value string, strong bool) core.Row {
	style := props.Text{Size: 7}
	if strong {
		style.Size, style.Style = 9, fontstyle.Bold
	}
	right := style
	right.Align = align.Right
	return row.New(style.Size*0.5+1).Add(
		col.New(6).Add(text.New(label, style)),
		col.New(6).Add(text.New(value, right)),
	)
}

func dashes() core.Row {
	return row.New(3).Add(col.New(12).Add(text.New("----------------------------------------", props.Text{Size: 7, Align: align.Center, Color: colorGray})))
}
