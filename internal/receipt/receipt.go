// Package receipt renders a committed sale as a downloadable A4 PDF.
package receipt

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"github.com/safar/go-bookstore/internal/models"
	"github.com/shopspring/decimal"
)

type Kind int

const (
	KindSale Kind = iota
	KindPurchase
)

func (k Kind) slug() string {
	if k == KindPurchase {
		return "compra"
	}
	return "venta"
}

func (k Kind) title() string {
	if k == KindPurchase {
		return "COMPROBANTE DE COMPRA"
	}
	return "COMPROBANTE DE VENTA"
}

func (k Kind) section() string {
	if k == KindPurchase {
		return "INFORMACIÓN DE LA COMPRA:"
	}
	return "INFORMACIÓN DE LA VENTA:"
}

const ContentType = "application/pdf"

// Filename is the download name offered for a receipt.
func Filename(kind Kind, saleID uuid.UUID) string {
	return fmt.Sprintf("comprobante_%s_%s.pdf", kind.slug(), saleID)
}

// Layout in points, measured from the top-left corner of an A4 page.
const (
	left        = 60.0
	right       = 535.0
	colQty      = 300.0
	colPrice    = 350.0
	colSubtotal = 450.0
	colTotals   = 350.0

	topMargin = 50.0
	// New page once the cursor passes this line.
	breakLine = 841.89 - 150.0
	// Totals and footer need this much room below the cursor.
	closingRoom = 130.0

	maxTitle  = 40
	maxAuthor = 50
)

type renderer struct {
	pdf  *fpdf.Fpdf
	tr   func(string) string
	y    float64
	page float64
}

// Render lays the sale out and returns the finished PDF bytes.
func Render(sale *models.Sale, kind Kind) ([]byte, error) {
	var buf bytes.Buffer
	if err := layout(sale, kind).Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

func layout(sale *models.Sale, kind Kind) *fpdf.Fpdf {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(fmt.Sprintf("%s - %s", kind.title(), sale.ID), true)
	pdf.SetCreator("Biblioteca Digital", true)

	_, pageHeight := pdf.GetPageSize()
	r := &renderer{
		pdf:  pdf,
		tr:   pdf.UnicodeTranslatorFromDescriptor(""),
		page: pageHeight,
	}

	pdf.AddPage()
	r.header(kind)
	r.metadata(sale, kind)
	r.customer(sale)
	if sale.Channel == models.ChannelInPerson {
		r.staff(sale)
	}
	r.items(sale.Items)
	r.totals(sale)
	r.footer()

	return pdf
}

func (r *renderer) text(x float64, s string) {
	r.pdf.Text(x, r.y, r.tr(s))
}

func (r *renderer) font(style string, size float64) {
	r.pdf.SetFont("Helvetica", style, size)
}

func (r *renderer) header(kind Kind) {
	r.y = topMargin
	r.font("B", 18)
	r.text(left, "BIBLIOTECA DIGITAL")
	r.y += 20
	r.font("B", 16)
	r.text(left, kind.title())
	r.pdf.Line(left, r.y+5, right, r.y+5)
	r.y += 40
}

func (r *renderer) metadata(sale *models.Sale, kind Kind) {
	r.font("B", 12)
	r.text(left, kind.section())
	r.font("", 10)
	r.y += 20
	r.text(left, "Folio: "+sale.ID.String())
	r.y += 15
	r.text(left, "Fecha: "+sale.SoldAt.Format("02/01/2006"))
	r.y += 15
	r.text(left, "Hora: "+sale.SoldAt.Format("15:04:05"))
	r.y += 15
	r.text(left, "Estado: "+statusLabel(sale.Status))
	r.y += 30
}

func (r *renderer) customer(sale *models.Sale) {
	r.font("B", 12)
	r.text(left, "INFORMACIÓN DEL CLIENTE:")
	r.font("", 10)
	r.y += 20
	r.text(left, "Nombre: "+orNA(sale.CustomerName))
	r.y += 15
	r.text(left, "Email: "+orNA(sale.CustomerEmail))
	if sale.CustomerPhone != "" {
		r.y += 15
		r.text(left, "Teléfono: "+sale.CustomerPhone)
	}
	r.y += 30
}

func (r *renderer) staff(sale *models.Sale) {
	r.font("B", 12)
	r.text(left, "INFORMACIÓN DEL VENDEDOR:")
	r.font("", 10)
	r.y += 20
	r.text(left, "Atendió: "+orNA(sale.StaffName))
	r.y += 30
}

func (r *renderer) columnTitles() {
	r.font("B", 10)
	r.text(left, "Producto")
	r.text(colQty, "Cant.")
	r.text(colPrice, "Precio Unit.")
	r.text(colSubtotal, "Subtotal")
	r.y += 5
	r.pdf.Line(left, r.y, right, r.y)
	r.y += 15
	r.font("", 9)
}

func (r *renderer) items(items []models.SaleItem) {
	r.font("B", 12)
	r.text(left, "DETALLE DE PRODUCTOS:")
	r.y += 20
	r.columnTitles()

	for _, item := range items {
		if r.y > breakLine {
			r.pdf.AddPage()
			r.y = topMargin
			r.columnTitles()
		}

		r.text(left, truncate(item.Title, maxTitle))
		r.text(colQty, fmt.Sprintf("%d", item.Quantity))
		r.text(colPrice, money(item.UnitPrice))
		r.text(colSubtotal, money(item.Subtotal))

		if item.Author != "" {
			r.y += 12
			r.font("I", 8)
			r.text(left, truncate("Autor: "+item.Author, maxAuthor))
			r.font("", 9)
		}
		r.y += 20
	}
}

func (r *renderer) totals(sale *models.Sale) {
	if r.y+closingRoom > r.page {
		r.pdf.AddPage()
		r.y = topMargin
	}

	r.y -= 10
	r.pdf.Line(left, r.y, right, r.y)
	r.y += 20

	r.font("", 10)
	r.text(colTotals, "Subtotal: "+money(sale.Subtotal))
	r.y += 15
	r.text(colTotals, fmt.Sprintf("IVA (%s%%): %s", sale.TaxRate.String(), money(sale.Tax)))
	r.y += 15
	r.font("B", 12)
	r.text(colTotals, "TOTAL: "+money(sale.Total))
	r.y += 40
}

func (r *renderer) footer() {
	r.font("I", 10)
	r.text(left, "¡Gracias por su compra en Biblioteca Digital!")
	r.y += 15
	r.text(left, "Esperamos volver a servirle pronto.")
	r.y += 15
	r.text(left, "Sistema de Gestión de Libros - Venta segura y confiable")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func statusLabel(status string) string {
	if status == models.SaleStatusCompleted {
		return "Completada"
	}
	return status
}
