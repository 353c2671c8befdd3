package handler

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/safar/go-bookstore/internal/models"
	"github.com/safar/go-bookstore/internal/session"
	"github.com/safar/go-bookstore/internal/store"
)

type loginForm struct {
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required"`
}

type customerForm struct {
	Name       string `form:"nombre" binding:"required"`
	Email      string `form:"email" binding:"required,email"`
	Password   string `form:"password"`
	Phone      string `form:"telefono"`
	Street     string `form:"calle"`
	City       string `form:"ciudad"`
	PostalCode string `form:"codigo_postal"`
}

func (f customerForm) input(region string) (store.CustomerInput, error) {
	phone, err := normalizePhone(f.Phone, region)
	if err != nil {
		return store.CustomerInput{}, err
	}
	return store.CustomerInput{
		Name:     f.Name,
		Email:    f.Email,
		Password: f.Password,
		Phone:    phone,
		Address: models.Address{
			Street:     strings.TrimSpace(f.Street),
			City:       strings.TrimSpace(f.City),
			PostalCode: strings.TrimSpace(f.PostalCode),
		},
	}, nil
}

func (h *Handler) LoginPage(c *gin.Context) {
	view(c, strings.TrimPrefix(c.FullPath(), "/"), nil)
}

func (h *Handler) Login(c *gin.Context) {
	var form loginForm
	if !bind(c, &form, "/login") {
		return
	}

	account, err := store.AuthenticateAccount(c.Request.Context(), h.db, form.Email, form.Password)
	if err != nil {
		h.fail(c, "Login", err, "/login")
		return
	}

	sess := h.renew(c)
	sess.LoginStaff(account)
	sess.AddFlash(session.FlashSuccess, fmt.Sprintf("¡Bienvenido %s!", account.Name))
	redirect(c, "/dashboard")
}

func (h *Handler) LoginCustomer(c *gin.Context) {
	var form loginForm
	if !bind(c, &form, "/login-cliente") {
		return
	}

	customer, err := store.AuthenticateCustomer(c.Request.Context(), h.db, form.Email, form.Password)
	if err != nil {
		h.fail(c, "LoginCustomer", err, "/login-cliente")
		return
	}

	sess := h.renew(c)
	sess.LoginCustomer(customer)
	sess.AddFlash(session.FlashSuccess, fmt.Sprintf("¡Bienvenido %s!", customer.Name))
	redirect(c, "/catalogo")
}

// renew rotates the session token on login. The cart lives under the token,
// so the pre-login cart is dropped with it.
func (h *Handler) renew(c *gin.Context) *session.Session {
	old := session.FromContext(c).Token
	if err := h.carts.Clear(c.Request.Context(), old); err != nil {
		h.logUnexpected("renew", err)
	}
	return h.sessions.Renew(c)
}

func (h *Handler) RegisterCustomer(c *gin.Context) {
	var form customerForm
	if !bind(c, &form, "/registro-cliente") {
		return
	}
	if form.Password == "" {
		flash(c, session.FlashError, "El campo contraseña es obligatorio")
		redirect(c, "/registro-cliente")
		return
	}

	in, err := form.input(h.cfg.Sales.PhoneRegion)
	if err != nil {
		h.fail(c, "RegisterCustomer", err, "/registro-cliente")
		return
	}

	if _, err := store.CreateCustomer(c.Request.Context(), h.db, in); err != nil {
		h.fail(c, "RegisterCustomer", err, "/registro-cliente")
		return
	}

	flash(c, session.FlashSuccess, "Registro exitoso. Ahora puedes iniciar sesión")
	redirect(c, "/login-cliente")
}

func (h *Handler) Logout(c *gin.Context) {
	sess := session.FromContext(c)
	if err := h.carts.Clear(c.Request.Context(), sess.Token); err != nil {
		h.logUnexpected("Logout", err)
	}

	sess = h.sessions.Destroy(c)
	sess.AddFlash(session.FlashSuccess, "Sesión cerrada correctamente")
	redirect(c, "/login")
}
