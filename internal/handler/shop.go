package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/safar/go-bookstore/internal/cart"
	"github.com/safar/go-bookstore/internal/database"
	"github.com/safar/go-bookstore/internal/receipt"
	"github.com/safar/go-bookstore/internal/session"
	"github.com/safar/go-bookstore/internal/store"
)

const (
	catalogPath   = "/catalogo"
	cartPath      = "/carrito"
	purchasesPath = "/mis-compras"

	purchasesPageSize = 10
)

// cartLineForm is what the catalog and cart pages post. Quantity defaults
// to one when the field is absent.
type cartLineForm struct {
	BookID   string `form:"libro_id" binding:"required"`
	Quantity string `form:"cantidad"`
}

func (f cartLineForm) parse() (uuid.UUID, int, error) {
	bookID, err := uuid.Parse(strings.TrimSpace(f.BookID))
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("%w: book id %q", database.ErrInvalidInput, f.BookID)
	}

	raw := strings.TrimSpace(f.Quantity)
	if raw == "" {
		return bookID, 1, nil
	}
	qty, err := strconv.Atoi(raw)
	if err != nil {
		return uuid.Nil, 0, database.ErrInvalidQuantity
	}
	return bookID, qty, nil
}

func cartJSON(summary *cart.Summary, message string) gin.H {
	return gin.H{
		"success":       true,
		"message":       message,
		"carrito_count": summary.Count,
		"subtotal":      summary.Subtotal.StringFixed(2),
		"iva":           summary.Tax.StringFixed(2),
		"total":         summary.Total.StringFixed(2),
	}
}

func (h *Handler) Catalog(c *gin.Context) {
	ctx := c.Request.Context()

	books, err := store.ListInStockBooks(ctx, h.db)
	if err != nil {
		h.logUnexpected("Catalog", err)
		view(c, "catalogo", gin.H{"error": errorMessage(err)})
		return
	}
	summary, err := h.carts.Totals(ctx, session.FromContext(c).Token)
	if err != nil {
		h.logUnexpected("Catalog", err)
		view(c, "catalogo", gin.H{"books": books, "error": errorMessage(err)})
		return
	}

	view(c, "catalogo", gin.H{"books": books, "carrito_count": summary.Count})
}

func (h *Handler) ShowCart(c *gin.Context) {
	summary, err := h.carts.Totals(c.Request.Context(), session.FromContext(c).Token)
	if err != nil {
		h.fail(c, "ShowCart", err, catalogPath)
		return
	}

	view(c, "carrito", gin.H{"cart": summary})
}

func (h *Handler) AddToCart(c *gin.Context) {
	var form cartLineForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": strings.Join(validationMessages(err), ". ")})
		return
	}
	bookID, qty, err := form.parse()
	if err != nil {
		h.failJSON(c, "AddToCart", err)
		return
	}

	summary, err := h.carts.Add(c.Request.Context(), session.FromContext(c).Token, bookID, qty)
	if err != nil {
		h.failJSON(c, "AddToCart", err)
		return
	}

	c.JSON(http.StatusOK, cartJSON(summary, "Libro agregado al carrito"))
}

func (h *Handler) UpdateCart(c *gin.Context) {
	var form cartLineForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": strings.Join(validationMessages(err), ". ")})
		return
	}
	bookID, qty, err := form.parse()
	if err != nil {
		h.failJSON(c, "UpdateCart", err)
		return
	}

	summary, err := h.carts.Update(c.Request.Context(), session.FromContext(c).Token, bookID, qty)
	if err != nil {
		h.failJSON(c, "UpdateCart", err)
		return
	}

	c.JSON(http.StatusOK, cartJSON(summary, "Carrito actualizado"))
}

func (h *Handler) RemoveFromCart(c *gin.Context) {
	bookID, ok := pathID(c, cartPath)
	if !ok {
		return
	}

	if _, err := h.carts.Remove(c.Request.Context(), session.FromContext(c).Token, bookID); err != nil {
		h.fail(c, "RemoveFromCart", err, cartPath)
		return
	}

	flash(c, session.FlashSuccess, "Libro eliminado del carrito")
	redirect(c, cartPath)
}

func (h *Handler) ClearCart(c *gin.Context) {
	if err := h.carts.Clear(c.Request.Context(), session.FromContext(c).Token); err != nil {
		h.fail(c, "ClearCart", err, cartPath)
		return
	}

	flash(c, session.FlashSuccess, "Carrito vaciado")
	redirect(c, cartPath)
}

func (h *Handler) CheckoutCart(c *gin.Context) {
	sess := session.FromContext(c)

	sale, err := h.sales.CheckoutCart(c.Request.Context(), sess.Token, *sess.CustomerID)
	if err != nil {
		h.fail(c, "CheckoutCart", err, cartPath)
		return
	}

	flash(c, session.FlashSuccess, "¡Compra realizada exitosamente!")
	redirect(c, "/mi-compra/"+sale.ID.String())
}

func (h *Handler) BuyNow(c *gin.Context) {
	var form cartLineForm
	if !bind(c, &form, catalogPath) {
		return
	}
	bookID, qty, err := form.parse()
	if err != nil {
		h.fail(c, "BuyNow", err, catalogPath)
		return
	}

	sess := session.FromContext(c)
	sale, err := h.sales.BuyNow(c.Request.Context(), *sess.CustomerID, bookID, qty)
	if err != nil {
		h.fail(c, "BuyNow", err, catalogPath)
		return
	}

	flash(c, session.FlashSuccess, "¡Compra realizada exitosamente!")
	redirect(c, "/mi-compra/"+sale.ID.String())
}

func (h *Handler) MyPurchases(c *gin.Context) {
	sess := session.FromContext(c)

	result, err := store.ListCustomerSalesCursor(c.Request.Context(), h.db, *sess.CustomerID, c.Query("cursor"), purchasesPageSize)
	if err != nil {
		h.fail(c, "MyPurchases", err, catalogPath)
		return
	}

	view(c, "mis_compras", gin.H{"sales": result})
}

func (h *Handler) ShowPurchase(c *gin.Context) {
	id, ok := pathID(c, purchasesPath)
	if !ok {
		return
	}

	sale, err := store.GetCustomerSale(c.Request.Context(), h.db, id, *session.FromContext(c).CustomerID)
	if err != nil {
		h.fail(c, "ShowPurchase", err, purchasesPath)
		return
	}

	view(c, "detalle_compra", gin.H{"sale": sale})
}

func (h *Handler) PurchaseReceipt(c *gin.Context) {
	id, ok := pathID(c, purchasesPath)
	if !ok {
		return
	}

	sale, err := store.GetCustomerSale(c.Request.Context(), h.db, id, *session.FromContext(c).CustomerID)
	if err != nil {
		h.fail(c, "PurchaseReceipt", err, purchasesPath)
		return
	}

	h.sendReceipt(c, sale, receipt.KindPurchase, "/mi-compra/"+id.String())
}
