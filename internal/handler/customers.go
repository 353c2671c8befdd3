package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/safar/go-bookstore/internal/session"
	"github.com/safar/go-bookstore/internal/store"
)

const customersPath = "/clientes"

func (h *Handler) ListCustomers(c *gin.Context) {
	page, pageSize := store.NormalizePage(queryPage(c), 0)

	result, err := store.ListCustomers(c.Request.Context(), h.db, page, pageSize)
	if err != nil {
		h.fail(c, "ListCustomers", err, "/dashboard")
		return
	}

	view(c, "clientes", gin.H{"customers": result})
}

// CreateCustomer registers a customer at the counter. Without a password the
// configured default is assigned so the customer can log in later.
func (h *Handler) CreateCustomer(c *gin.Context) {
	var form customerForm
	if !bind(c, &form, customersPath) {
		return
	}
	if form.Password == "" {
		form.Password = h.cfg.Bootstrap.DefaultCustomerPassword
	}

	in, err := form.input(h.cfg.Sales.PhoneRegion)
	if err != nil {
		h.fail(c, "CreateCustomer", err, customersPath)
		return
	}

	customer, err := store.CreateCustomer(c.Request.Context(), h.db, in)
	if err != nil {
		h.fail(c, "CreateCustomer", err, customersPath)
		return
	}

	flash(c, session.FlashSuccess, "Cliente "+customer.Name+" agregado exitosamente")
	redirect(c, customersPath)
}

func (h *Handler) EditCustomerPage(c *gin.Context) {
	id, ok := pathID(c, customersPath)
	if !ok {
		return
	}

	customer, err := store.GetCustomer(c.Request.Context(), h.db, id)
	if err != nil {
		h.fail(c, "EditCustomerPage", err, customersPath)
		return
	}

	view(c, "editar_cliente", gin.H{"customer_record": customer})
}

func (h *Handler) UpdateCustomer(c *gin.Context) {
	id, ok := pathID(c, customersPath)
	if !ok {
		return
	}
	editPath := customersPath + "/editar/" + id.String()

	var form customerForm
	if !bind(c, &form, editPath) {
		return
	}

	in, err := form.input(h.cfg.Sales.PhoneRegion)
	if err != nil {
		h.fail(c, "UpdateCustomer", err, editPath)
		return
	}

	if _, err := store.UpdateCustomer(c.Request.Context(), h.db, id, in); err != nil {
		h.fail(c, "UpdateCustomer", err, editPath)
		return
	}

	flash(c, session.FlashSuccess, "Cliente actualizado exitosamente")
	redirect(c, customersPath)
}

func (h *Handler) DeactivateCustomer(c *gin.Context) {
	id, ok := pathID(c, customersPath)
	if !ok {
		return
	}

	if err := store.DeactivateCustomer(c.Request.Context(), h.db, id); err != nil {
		h.fail(c, "DeactivateCustomer", err, customersPath)
		return
	}

	flash(c, session.FlashSuccess, "Cliente eliminado exitosamente")
	redirect(c, customersPath)
}
