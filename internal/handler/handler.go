// Package handler exposes the bookstore over HTTP with gin. Staff and
// customer routes sit behind the session guard; mutations answer with a
// redirect and a flash message, views answer with JSON for the template layer.
package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/safar/go-bookstore/internal/cart"
	"github.com/safar/go-bookstore/internal/config"
	"github.com/safar/go-bookstore/internal/models"
	"github.com/safar/go-bookstore/internal/sales"
	"github.com/safar/go-bookstore/internal/session"
	"github.com/sirupsen/logrus"
)

const moduleName = "handler"

type Deps struct {
	DB       *sql.DB
	Redis    *redis.Client
	Sessions *session.Manager
	Carts    *cart.Manager
	Sales    *sales.Processor
	Config   *config.Config
}

type Handler struct {
	db       *sql.DB
	redis    *redis.Client
	sessions *session.Manager
	carts    *cart.Manager
	sales    *sales.Processor
	cfg      *config.Config
	logger   *logrus.Logger
}

func New(deps Deps) *Handler {
	return &Handler{
		db:       deps.DB,
		redis:    deps.Redis,
		sessions: deps.Sessions,
		carts:    deps.Carts,
		sales:    deps.Sales,
		cfg:      deps.Config,
		logger:   config.GetLogger(),
	}
}

// Register mounts every route on r. The session middleware must run first.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/", h.Index)
	r.GET("/healthz", h.Health)

	r.GET("/login", h.LoginPage)
	r.POST("/login", h.Login)
	r.GET("/login-cliente", h.LoginPage)
	r.POST("/login-cliente", h.LoginCustomer)
	r.GET("/registro-cliente", h.LoginPage)
	r.POST("/registro-cliente", h.RegisterCustomer)
	r.GET("/logout", h.Logout)

	staff := r.Group("/", session.Require(session.ScopeStaff))
	{
		staff.GET("/dashboard", h.Dashboard)

		accounts := staff.Group("/usuarios", session.RequireRole(models.RoleAdministrator))
		accounts.GET("", h.ListAccounts)
		accounts.POST("/agregar", h.CreateAccount)
		accounts.GET("/editar/:id", h.EditAccountPage)
		accounts.POST("/editar/:id", h.UpdateAccount)
		accounts.POST("/eliminar/:id", h.DeactivateAccount)

		staff.GET("/libros", h.ListBooks)
		staff.POST("/libros/agregar", h.CreateBook)
		staff.GET("/libros/editar/:id", h.EditBookPage)
		staff.POST("/libros/editar/:id", h.UpdateBook)
		staff.POST("/libros/eliminar/:id", h.DeleteBook)

		staff.GET("/clientes", h.ListCustomers)
		staff.POST("/clientes/agregar", h.CreateCustomer)
		staff.GET("/clientes/editar/:id", h.EditCustomerPage)
		staff.POST("/clientes/editar/:id", h.UpdateCustomer)
		staff.POST("/clientes/eliminar/:id", h.DeactivateCustomer)

		staff.GET("/ventas", h.ListSales)
		staff.GET("/ventas/nueva", h.NewSalePage)
		staff.POST("/ventas/nueva", h.CreateSale)
		staff.GET("/ventas/:id", h.ShowSale)
		staff.GET("/ventas/:id/comprobante", h.SaleReceipt)
	}

	customer := r.Group("/", session.Require(session.ScopeCustomer))
	{
		customer.GET("/catalogo", h.Catalog)
		customer.GET("/carrito", h.ShowCart)
		customer.POST("/carrito/agregar", h.AddToCart)
		customer.POST("/carrito/actualizar", h.UpdateCart)
		customer.POST("/carrito/eliminar/:id", h.RemoveFromCart)
		customer.POST("/carrito/vaciar", h.ClearCart)
		customer.POST("/carrito/comprar", h.CheckoutCart)
		customer.POST("/comprar-directo", h.BuyNow)
		customer.GET("/mis-compras", h.MyPurchases)
		customer.GET("/mi-compra/:id", h.ShowPurchase)
		customer.GET("/mi-compra/:id/comprobante", h.PurchaseReceipt)
	}
}

func (h *Handler) Index(c *gin.Context) {
	sess := session.FromContext(c)
	switch {
	case sess.Has(session.ScopeStaff):
		c.Redirect(http.StatusSeeOther, "/dashboard")
	case sess.Has(session.ScopeCustomer):
		c.Redirect(http.StatusSeeOther, "/catalogo")
	default:
		c.Redirect(http.StatusSeeOther, "/login")
	}
}

func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := gin.H{"database": "ok", "redis": "ok"}
	code := http.StatusOK

	if err := h.db.PingContext(ctx); err != nil {
		config.LogError(h.logger, moduleName, "Health", "ping database", nil, err)
		status["database"] = "unavailable"
		code = http.StatusServiceUnavailable
	}
	if err := h.redis.Ping(ctx).Err(); err != nil {
		config.LogError(h.logger, moduleName, "Health", "ping redis", nil, err)
		status["redis"] = "unavailable"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, status)
}
