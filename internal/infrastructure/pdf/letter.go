package pdf

import (
	"fmt"

	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	appbilling "github.com/jhoicas/pos-core/internal/application/billing"
	"github.com/jhoicas/pos-core/internal/domain/entity"
)

// letterRows hoja A4:
//
//	encabezado (emisor | número y fecha)
//	emisor y adquiriente
//	tabla de líneas
//	totales y forma de pago
//	CUFE, QR y leyenda
func letterRows(data appbilling.InvoicePDFData) []core.Row {
	inv := data.Invoice
	rows := []core.Row{letterHeader(inv, data.Company)}
	if inv.Status == entity.InvoiceStatusVoided {
		rows = append(rows, banner("ANULADA: "+inv.VoidReason, 10))
	}
	rows = append(rows,
		rule(0.5),
		partyRow("EMISOR", data.Company.Name, fmt.Sprintf("NIT %s  |  %s  |  Tel. %s  |  %s",
			data.Company.NIT, orDash(data.Company.Address), orDash(data.Company.Phone), orDash(data.Company.Email))),
		partyRow("ADQUIRIENTE", data.Customer.Name, fmt.Sprintf("NIT/CC %s  |  Tel. %s  |  %s",
			data.Customer.TaxID, orDash(data.Customer.Phone), orDash(data.Customer.Email))),
		rule(0.3),
		letterTableHeader(),
	)
	for _, d := range data.Details {
		rows = append(rows, letterLine(d))
	}
	rows = append(rows, rule(0.3), letterTotals(inv, data.Sale))
	rows = append(rows, letterFooter(data)...)
	return rows
}

func letterHeader(inv *entity.Invoice, company *entity.Company) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New(company.Name, props.Text{Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1}),
			text.New("NIT: "+company.NIT, props.Text{Size: 9, Top: 9, Color: colorGray}),
		),
		col.New(5).Add(
			text.New("FACTURA ELECTRÓNICA DE VENTA", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1}),
			text.New(inv.FullNumber(), props.Text{Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7}),
			text.New("Fecha: "+inv.Date.Format("02/01/2006 15:04"), props.Text{Size: 8, Align: align.Right, Top: 14, Color: colorGray}),
		),
	)
}

func partyRow(title, name, detail string) core.Row {
	return row.New(14).Add(col.New(12).Add(
		text.New(title, props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
		text.New(name, props.Text{Style: fontstyle.Bold, Size: 10, Top: 5}),
		text.New(detail, props.Text{Size: 8, Top: 10.5, Color: colorGray}),
	))
}

// columnas: cantidad, descripción, precio unitario, IVA, subtotal.
var letterColumns = [5]int{1, 5, 2, 1, 3}

func letterTableHeader() core.Row {
	labels := [5]string{"Cant.", "Descripción", "Precio unit.", "IVA", "Subtotal"}
	aligns := [5]align.Type{align.Center, align.Left, align.Right, align.Center, align.Right}
	cols := make([]core.Col, 0, len(labels))
	for i, l := range labels {
		cols = append(cols, col.New(letterColumns[i]).Add(text.New(l, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: aligns[i], Color: colorWhite, Top: 2, Left: 1, Right: 1,
		})))
	}
	return row.New(8).Add(cols...).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

func letterLine(d appbilling.InvoiceDetailForPDF) core.Row {
	cell := func(i int, s string, a align.Type) core.Col {
		return col.New(letterColumns[i]).Add(text.New(s, props.Text{Size: 8, Align: a, Top: 1, Left: 1, Right: 1}))
	}
	return row.New(7).Add(
		cell(0, quantity(d.Quantity), align.Center),
		cell(1, d.ProductName, align.Left),
		cell(2, money(d.UnitPrice), align.Right),
		cell(3, percent(d.TaxRate), align.Center),
		cell(4, money(d.Subtotal), align.Right),
	)
}

func letterTotals(inv *entity.Invoice, sale *entity.Sale) core.Row {
	labels := []string{"Subtotal neto:", "IVA:", "TOTAL A PAGAR:"}
	values := []string{money(inv.NetTotal), money(inv.TaxTotal), money(inv.GrandTotal)}

	payment := col.New(6)
	if sale != nil {
		payment.Add(
			text.New("Forma de pago: "+paymentLabel(sale.PaymentMethod), props.Text{Size: 8, Top: 1, Color: colorGray}),
		)
		if sale.PaymentMethod == entity.PaymentMethodCash && sale.AmountTendered.IsPositive() {
			payment.Add(
				text.New("Recibido: "+money(sale.AmountTendered), props.Text{Size: 8, Top: 6, Color: colorGray}),
				text.New("Cambio: "+money(sale.ChangeDue), props.Text{Size: 8, Top: 11, Color: colorGray}),
			)
		}
	}

	labelCol, valueCol := col.New(3), col.New(3)
	for i := range labels {
		style := props.Text{Size: 9, Align: align.Right, Top: float64(i) * 6, Right: 1}
		if i == len(labels)-1 {
			style.Style, style.Color, style.Size = fontstyle.Bold, colorPrimary, 10
		}
		lbl := style
		lbl.Style = fontstyle.Bold
		labelCol.Add(text.New(labels[i], lbl))
		valueCol.Add(text.New(values[i], style))
	}
	return row.New(22).Add(payment, labelCol, valueCol)
}

func letterFooter(data appbilling.InvoicePDFData) []core.Row {
	rows := []core.Row{
		row.New(3),
		rule(0.3),
		row.New(6).Add(col.New(12).Add(text.New("INFORMACIÓN ELECTRÓNICA DIAN · "+filingNote(data.FilingStatus), props.Text{
			Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
		}))),
		row.New(5).Add(col.New(12).Add(text.New("CUFE:", props.Text{Style: fontstyle.Bold, Size: 7, Top: 1}))),
	}
	for _, part := range chunks(data.CUFE, 80) {
		rows = append(rows, row.New(4).Add(col.New(12).Add(text.New(part, props.Text{Size: 6.5, Color: colorGray, Left: 2}))))
	}
	if data.QRData != "" {
		rows = append(rows, row.New(45).Add(
			col.New(4).Add(code.NewQr(data.QRData, props.Rect{Percent: 95, Center: true})),
			col.New(8).Add(text.New("Escanee el código QR para consultar esta factura en el portal de la DIAN.", props.Text{
				Size: 8, Top: 6, Left: 3, Color: colorGray,
			})),
		))
	}
	rows = append(rows, row.New(8).Add(col.New(12).Add(text.New(
		"Factura electrónica de venta expedida conforme a la Resolución DIAN 000042 de 2020.",
		props.Text{Size: 6.5, Color: colorGray, Top: 2},
	))))
	return rows
}

func rule(thickness float64) core.Row {
	return line.NewRow(1, props.Line{Color: colorPrimary, Thickness: thickness})
}

func banner(msg string, size float64) core.Row {
	return row.New(8).Add(col.New(12).Add(text.New(msg, props.Text{
		Style: fontstyle.Bold, Size: size, Align: align.Center, Color: colorVoided, Top: 1,
	})))
}
