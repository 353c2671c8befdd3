package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/safar/go-bookstore/internal/cart"
	"github.com/safar/go-bookstore/internal/config"
	"github.com/safar/go-bookstore/internal/database"
	"github.com/safar/go-bookstore/internal/models"
	"github.com/safar/go-bookstore/internal/session"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router   *gin.Engine
	sessions *session.Manager
	book     *models.Book
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	book := &models.Book{
		ID:     uuid.New(),
		Title:  "Rayuela",
		Author: "Julio Cortázar",
		Stock:  3,
		Price:  decimal.RequireFromString("10.00"),
	}
	lookup := func(_ context.Context, id uuid.UUID) (*models.Book, error) {
		if id == book.ID {
			copied := *book
			return &copied, nil
		}
		return nil, database.ErrBookNotFound
	}

	sessions := session.NewManager(session.NewMemoryStore(), &config.SessionConfig{
		Secret:     "handler-test",
		CookieName: "test_session",
		TTL:        time.Hour,
	})
	h := New(Deps{
		Sessions: sessions,
		Carts:    cart.NewManager(cart.NewMemoryStore(), lookup, decimal.NewFromInt(16)),
		Config: &config.Config{
			Sales:     config.SalesConfig{PhoneRegion: "US"},
			Bootstrap: config.BootstrapConfig{DefaultCustomerPassword: "cliente123"},
		},
	})

	r := gin.New()
	r.Use(sessions.Middleware())
	r.POST("/test/customer", func(c *gin.Context) {
		sess := sessions.Renew(c)
		sess.LoginCustomer(&models.Customer{ID: uuid.New(), Name: "Luis", Email: "luis@example.com"})
		c.Status(http.StatusNoContent)
	})
	h.Register(r)

	return &testServer{router: r, sessions: sessions, book: book}
}

func (s *testServer) do(method, path string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) loginCustomer(t *testing.T) []*http.Cookie {
	t.Helper()
	w := s.do(http.MethodPost, "/test/customer", nil, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestIndexRedirectsByScope(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/", nil, nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	cookies := s.loginCustomer(t)
	w = s.do(http.MethodGet, "/", nil, cookies)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/catalogo", w.Header().Get("Location"))
}

func TestProtectedRoutesRedirectToLogin(t *testing.T) {
	s := newTestServer(t)

	for path, login := range map[string]string{
		"/dashboard":   "/login",
		"/libros":      "/login",
		"/usuarios":    "/login",
		"/ventas":      "/login",
		"/catalogo":    "/login-cliente",
		"/carrito":     "/login-cliente",
		"/mis-compras": "/login-cliente",
	} {
		w := s.do(http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusSeeOther, w.Code, path)
		assert.Equal(t, login, w.Header().Get("Location"), path)
	}
}

func TestCustomerCannotReachStaffRoutes(t *testing.T) {
	s := newTestServer(t)
	cookies := s.loginCustomer(t)

	w := s.do(http.MethodGet, "/libros", nil, cookies)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestLoginRejectsMalformedForm(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/login", url.Values{"email": {"not-an-email"}}, nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	page := s.do(http.MethodGet, "/login", nil, w.Result().Cookies())
	require.Equal(t, http.StatusOK, page.Code)
	body := page.Body.String()
	assert.Contains(t, body, "El email no tiene un formato válido")
	assert.Contains(t, body, "El campo contraseña es obligatorio")
}

func TestCartAddReturnsTotals(t *testing.T) {
	s := newTestServer(t)
	cookies := s.loginCustomer(t)

	w := s.do(http.MethodPost, "/carrito/agregar", url.Values{
		"libro_id": {s.book.ID.String()},
		"cantidad": {"2"},
	}, cookies)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(1), body["carrito_count"])
	assert.Equal(t, "20.00", body["subtotal"])
	assert.Equal(t, "3.20", body["iva"])
	assert.Equal(t, "23.20", body["total"])
}

func TestCartAddDefaultsToOneCopy(t *testing.T) {
	s := newTestServer(t)
	cookies := s.loginCustomer(t)

	w := s.do(http.MethodPost, "/carrito/agregar", url.Values{"libro_id": {s.book.ID.String()}}, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "10.00", decode(t, w)["subtotal"])
}

func TestCartAddRejectsBeyondStock(t *testing.T) {
	s := newTestServer(t)
	cookies := s.loginCustomer(t)

	w := s.do(http.MethodPost, "/carrito/agregar", url.Values{
		"libro_id": {s.book.ID.String()},
		"cantidad": {"4"},
	}, cookies)
	require.Equal(t, http.StatusConflict, w.Code)

	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["message"], "Rayuela")
}

func TestCartRejectsBadInput(t *testing.T) {
	s := newTestServer(t)
	cookies := s.loginCustomer(t)

	tests := []struct {
		name string
		path string
		form url.Values
		code int
	}{
		{"missing book", "/carrito/agregar", url.Values{}, http.StatusBadRequest},
		{"malformed id", "/carrito/agregar", url.Values{"libro_id": {"abc"}}, http.StatusBadRequest},
		{"zero quantity", "/carrito/agregar", url.Values{"libro_id": {s.book.ID.String()}, "cantidad": {"0"}}, http.StatusBadRequest},
		{"unknown book", "/carrito/agregar", url.Values{"libro_id": {uuid.NewString()}}, http.StatusNotFound},
		{"update line not in cart", "/carrito/actualizar", url.Values{"libro_id": {s.book.ID.String()}, "cantidad": {"1"}}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, tt.path, tt.form, cookies)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
			assert.Equal(t, false, decode(t, w)["success"])
		})
	}
}

func TestCartRemoveAndClearRedirect(t *testing.T) {
	s := newTestServer(t)
	cookies := s.loginCustomer(t)

	w := s.do(http.MethodPost, "/carrito/agregar", url.Values{"libro_id": {s.book.ID.String()}}, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/carrito/eliminar/"+s.book.ID.String(), nil, cookies)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/carrito", w.Header().Get("Location"))

	w = s.do(http.MethodGet, "/carrito", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	cartView := decode(t, w)["cart"].(map[string]any)
	assert.Equal(t, float64(0), cartView["count"])
	assert.Contains(t, w.Body.String(), "Libro eliminado del carrito")

	w = s.do(http.MethodPost, "/carrito/vaciar", nil, cookies)
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestLogoutDropsIdentity(t *testing.T) {
	s := newTestServer(t)
	cookies := s.loginCustomer(t)

	w := s.do(http.MethodGet, "/logout", nil, cookies)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = s.do(http.MethodGet, "/catalogo", nil, cookies)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login-cliente", w.Header().Get("Location"))
}

func TestSaleLines(t *testing.T) {
	id := uuid.New()

	lines, err := saleLines([]string{id.String(), "", " "}, []string{"2", "", ""})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, id, lines[0].BookID)
	assert.Equal(t, 2, lines[0].Quantity)

	_, err = saleLines([]string{"", ""}, []string{"", ""})
	assert.ErrorIs(t, err, database.ErrEmptySale)

	_, err = saleLines([]string{id.String()}, []string{"0"})
	assert.ErrorIs(t, err, database.ErrInvalidQuantity)

	_, err = saleLines([]string{id.String()}, nil)
	assert.ErrorIs(t, err, database.ErrInvalidQuantity)

	_, err = saleLines([]string{"nope"}, []string{"1"})
	assert.ErrorIs(t, err, database.ErrInvalidInput)
}

func TestErrorMessage(t *testing.T) {
	outOfStock := &database.OutOfStockError{Title: "Ficciones", Available: 1, Requested: 3}
	assert.Equal(t, "Stock insuficiente para Ficciones (disponible: 1)", errorMessage(outOfStock))
	assert.Equal(t, "El email ya está registrado", errorMessage(database.ErrDuplicateEmail))
	assert.Equal(t, "No puedes eliminar tu propio usuario", errorMessage(database.ErrSelfDeactivation))
	assert.Equal(t, "Credenciales incorrectas", errorMessage(database.ErrInvalidCredentials))

	unavailable := database.StoreError("list books", errors.New("connection refused"))
	assert.NotContains(t, errorMessage(unavailable), "connection refused")
	assert.Equal(t, http.StatusInternalServerError, statusFor(unavailable))
	assert.Equal(t, http.StatusConflict, statusFor(outOfStock))
}

func TestValidationMessages(t *testing.T) {
	err := binding.Validator.ValidateStruct(&accountForm{Email: "x", Role: "root"})
	require.Error(t, err)

	messages := validationMessages(err)
	assert.Contains(t, messages, "El campo nombre es obligatorio")
	assert.Contains(t, messages, "El email no tiene un formato válido")
	assert.Contains(t, messages, "El campo rol no tiene un valor permitido")
}

func TestAccountFormRole(t *testing.T) {
	assert.Equal(t, models.RoleAdministrator, accountForm{Role: "administrador"}.role())
	assert.Equal(t, models.RoleAdministrator, accountForm{Role: "administrator"}.role())
	assert.Equal(t, models.RoleEmployee, accountForm{Role: "empleado"}.role())
	assert.Equal(t, models.RoleEmployee, accountForm{}.role())
}

func TestNormalizePhone(t *testing.T) {
	phone, err := normalizePhone("", "US")
	require.NoError(t, err)
	assert.Empty(t, phone)

	phone, err = normalizePhone("+1 650-253-0000", "US")
	require.NoError(t, err)
	assert.Equal(t, "+1 650-253-0000", phone)

	_, err = normalizePhone("123", "US")
	assert.ErrorIs(t, err, database.ErrInvalidInput)
}
