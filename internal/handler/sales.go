package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/safar/go-bookstore/internal/database"
	"github.com/safar/go-bookstore/internal/models"
	"github.com/safar/go-bookstore/internal/receipt"
	"github.com/safar/go-bookstore/internal/session"
	"github.com/safar/go-bookstore/internal/store"
)

const (
	salesPath   = "/ventas"
	newSalePath = "/ventas/nueva"
)

func (h *Handler) ListSales(c *gin.Context) {
	page, pageSize := store.NormalizePage(queryPage(c), 0)

	result, err := store.ListSales(c.Request.Context(), h.db, page, pageSize)
	if err != nil {
		h.fail(c, "ListSales", err, "/dashboard")
		return
	}

	view(c, "ventas", gin.H{"sales": result})
}

// NewSalePage lists what the counter form offers: active customers and books
// with stock left.
func (h *Handler) NewSalePage(c *gin.Context) {
	ctx := c.Request.Context()

	customers, err := store.ListActiveCustomers(ctx, h.db)
	if err != nil {
		h.fail(c, "NewSalePage", err, salesPath)
		return
	}
	books, err := store.ListInStockBooks(ctx, h.db)
	if err != nil {
		h.fail(c, "NewSalePage", err, salesPath)
		return
	}

	view(c, "nueva_venta", gin.H{
		"customers": customers,
		"books":     books,
		"tax_rate":  h.carts.TaxRate(),
	})
}

// formArray reads a repeated field sent either as name[] or as name.
func formArray(c *gin.Context, name string) []string {
	if values := c.PostFormArray(name + "[]"); len(values) > 0 {
		return values
	}
	return c.PostFormArray(name)
}

// saleLines pairs the book and quantity columns of the counter form. Rows
// without a book are blank form rows and are skipped.
func saleLines(bookIDs, quantities []string) ([]store.SaleLineRequest, error) {
	lines := make([]store.SaleLineRequest, 0, len(bookIDs))
	for i, raw := range bookIDs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		bookID, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: book id %q", database.ErrInvalidInput, raw)
		}

		qty := 0
		if i < len(quantities) {
			qty, err = strconv.Atoi(strings.TrimSpace(quantities[i]))
			if err != nil {
				return nil, database.ErrInvalidQuantity
			}
		}
		if qty <= 0 {
			return nil, database.ErrInvalidQuantity
		}

		lines = append(lines, store.SaleLineRequest{BookID: bookID, Quantity: qty})
	}

	if len(lines) == 0 {
		return nil, database.ErrEmptySale
	}
	return lines, nil
}

func (h *Handler) CreateSale(c *gin.Context) {
	customerID, err := uuid.Parse(strings.TrimSpace(c.PostForm("cliente_id")))
	if err != nil {
		flash(c, session.FlashError, "Selecciona un cliente")
		redirect(c, newSalePath)
		return
	}

	lines, err := saleLines(formArray(c, "libro_id"), formArray(c, "cantidad"))
	if err != nil {
		h.fail(c, "CreateSale", err, newSalePath)
		return
	}

	sess := session.FromContext(c)
	staff := store.StaffRef{ID: *sess.StaffID, Name: sess.StaffName}

	sale, err := h.sales.SellInPerson(c.Request.Context(), staff, customerID, lines)
	if err != nil {
		h.fail(c, "CreateSale", err, newSalePath)
		return
	}

	flash(c, session.FlashSuccess, fmt.Sprintf("Venta registrada exitosamente. Total: $%s", sale.Total.StringFixed(2)))
	redirect(c, salesPath+"/"+sale.ID.String())
}

func (h *Handler) ShowSale(c *gin.Context) {
	id, ok := pathID(c, salesPath)
	if !ok {
		return
	}

	sale, err := store.GetSale(c.Request.Context(), h.db, id)
	if err != nil {
		h.fail(c, "ShowSale", err, salesPath)
		return
	}

	view(c, "detalle_venta", gin.H{"sale": sale})
}

func (h *Handler) SaleReceipt(c *gin.Context) {
	id, ok := pathID(c, salesPath)
	if !ok {
		return
	}

	sale, err := store.GetSale(c.Request.Context(), h.db, id)
	if err != nil {
		h.fail(c, "SaleReceipt", err, salesPath)
		return
	}

	h.sendReceipt(c, sale, receipt.KindSale, salesPath+"/"+id.String())
}

func (h *Handler) sendReceipt(c *gin.Context, sale *models.Sale, kind receipt.Kind, fallback string) {
	pdf, err := receipt.Render(sale, kind)
	if err != nil {
		h.fail(c, "sendReceipt", err, fallback)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, receipt.Filename(kind, sale.ID)))
	c.Data(http.StatusOK, receipt.ContentType, pdf)
}
