// Package sales turns in-person orders, carts and single-book purchases into
// committed sales.
package sales

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/safar/go-bookstore/internal/cart"
	"github.com/safar/go-bookstore/internal/config"
	"github.com/safar/go-bookstore/internal/models"
	"github.com/safar/go-bookstore/internal/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const moduleName = "sales"

type Processor struct {
	db      *sql.DB
	carts   *cart.Manager
	taxRate decimal.Decimal
	logger  *logrus.Logger
}

func NewProcessor(db *sql.DB, carts *cart.Manager, taxRate decimal.Decimal) *Processor {
	return &Processor{
		db:      db,
		carts:   carts,
		taxRate: taxRate,
		logger:  config.GetLogger(),
	}
}

// SellInPerson records a counter sale rung up by a staff member.
func (p *Processor) SellInPerson(ctx context.Context, staff store.StaffRef, customerID uuid.UUID, items []store.SaleLineRequest) (*models.Sale, error) {
	sale, err := store.CreateSale(ctx, p.db, store.CreateSaleRequest{
		CustomerID: customerID,
		Staff:      &staff,
		Channel:    models.ChannelInPerson,
		Items:      items,
		TaxRate:    p.taxRate,
	})
	if err != nil {
		return nil, err
	}

	p.logSale("SellInPerson", sale)
	return sale, nil
}

// CheckoutCart buys everything in the session cart. The cart is emptied only
// after the sale commits; on any failure it is left as it was.
func (p *Processor) CheckoutCart(ctx context.Context, cartKey string, customerID uuid.UUID) (*models.Sale, error) {
	var sale *models.Sale

	err := p.carts.Checkout(ctx, cartKey, func(lines []models.CartLine) error {
		items := make([]store.SaleLineRequest, len(lines))
		for i, line := range lines {
			items[i] = store.SaleLineRequest{BookID: line.BookID, Quantity: line.Quantity}
		}

		created, err := store.CreateSale(ctx, p.db, store.CreateSaleRequest{
			CustomerID: customerID,
			Channel:    models.ChannelOnline,
			Items:      items,
			TaxRate:    p.taxRate,
		})
		if err != nil {
			return err
		}
		sale = created
		return nil
	})
	if err != nil && sale == nil {
		return nil, err
	}
	if err != nil {
		config.LogError(p.logger, moduleName, "CheckoutCart", "clear cart after sale", sale.ID, err)
	}

	p.logSale("CheckoutCart", sale)
	return sale, nil
}

// BuyNow purchases a single book without touching the cart.
func (p *Processor) BuyNow(ctx context.Context, customerID, bookID uuid.UUID, qty int) (*models.Sale, error) {
	sale, err := store.CreateSale(ctx, p.db, store.CreateSaleRequest{
		CustomerID: customerID,
		Channel:    models.ChannelOnline,
		Items:      []store.SaleLineRequest{{BookID: bookID, Quantity: qty}},
		TaxRate:    p.taxRate,
	})
	if err != nil {
		return nil, err
	}

	p.logSale("BuyNow", sale)
	return sale, nil
}

func (p *Processor) logSale(funcName string, sale *models.Sale) {
	p.logger.WithFields(logrus.Fields{
		"module":      moduleName,
		"funcName":    funcName,
		"sale_id":     sale.ID,
		"customer_id": sale.CustomerID,
		"channel":     sale.Channel,
		"lines":       len(sale.Items),
		"total":       sale.Total.StringFixed(2),
	}).Info("sale completed")
}
