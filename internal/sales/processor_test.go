package sales

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/safar/go-bookstore/internal/cart"
	"github.com/safar/go-bookstore/internal/database"
	"github.com/safar/go-bookstore/internal/models"
	"github.com/safar/go-bookstore/internal/store"
	"github.com/safar/go-bookstore/internal/tax"
	"github.com/safar/go-bookstore/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db        *sql.DB
	carts     *cart.Manager
	processor *Processor
	customer  *models.Customer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)

	carts := cart.NewManager(cart.NewMemoryStore(), func(ctx context.Context, id uuid.UUID) (*models.Book, error) {
		return store.GetBook(ctx, db, id)
	}, tax.DefaultRate)

	customer, err := store.CreateCustomer(context.Background(), db, store.CustomerInput{
		Name:     "Cliente Prueba",
		Email:    "cliente@example.com",
		Password: "cliente123",
	})
	require.NoError(t, err)

	return &fixture{
		db:        db,
		carts:     carts,
		processor: NewProcessor(db, carts, tax.DefaultRate),
		customer:  customer,
	}
}

func (f *fixture) book(t *testing.T, title, price string, stock int) *models.Book {
	t.Helper()
	book, err := store.CreateBook(context.Background(), f.db, store.BookInput{
		Title:  title,
		Author: "Autor",
		Stock:  stock,
		Price:  decimal.RequireFromString(price),
	})
	require.NoError(t, err)
	return book
}

func (f *fixture) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	book, err := store.GetBook(context.Background(), f.db, id)
	require.NoError(t, err)
	return book.Stock
}

func TestSellInPerson(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b1 := f.book(t, "Primero", "15.00", 2)
	b2 := f.book(t, "Segundo", "5.00", 3)
	staff := store.StaffRef{ID: uuid.New(), Name: "Vendedor"}

	sale, err := f.processor.SellInPerson(ctx, staff, f.customer.ID, []store.SaleLineRequest{
		{BookID: b1.ID, Quantity: 1},
		{BookID: b2.ID, Quantity: 3},
	})
	require.NoError(t, err)

	assert.Equal(t, "34.80", sale.Total.StringFixed(2))
	assert.Equal(t, models.ChannelInPerson, sale.Channel)
	require.NotNil(t, sale.StaffID)
	assert.Equal(t, staff.ID, *sale.StaffID)
	assert.Equal(t, 1, f.stock(t, b1.ID))
	assert.Equal(t, 0, f.stock(t, b2.ID))
}

func TestCheckoutCartClearsOnSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	book := f.book(t, "Carrito", "10.00", 3)
	_, err := f.carts.Add(ctx, "session", book.ID, 2)
	require.NoError(t, err)

	sale, err := f.processor.CheckoutCart(ctx, "session", f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "23.20", sale.Total.StringFixed(2))
	assert.Equal(t, models.ChannelOnline, sale.Channel)
	assert.Nil(t, sale.StaffID)
	assert.Equal(t, 1, f.stock(t, book.ID))

	lines, err := f.carts.Lines(ctx, "session")
	require.NoError(t, err)
	assert.Empty(t, lines)

	stored, err := store.GetCustomerSale(ctx, f.db, sale.ID, f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, f.customer.Email, stored.CustomerEmail)
}

func TestCheckoutCartStockDroppedLeavesEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	steady := f.book(t, "Estable", "4.00", 10)
	shrinking := f.book(t, "Menguante", "6.00", 3)

	_, err := f.carts.Add(ctx, "session", steady.ID, 2)
	require.NoError(t, err)
	_, err = f.carts.Add(ctx, "session", shrinking.ID, 3)
	require.NoError(t, err)

	_, err = f.processor.BuyNow(ctx, f.customer.ID, shrinking.ID, 2)
	require.NoError(t, err)

	_, err = f.processor.CheckoutCart(ctx, "session", f.customer.ID)
	var outOfStock *database.OutOfStockError
	require.ErrorAs(t, err, &outOfStock)
	assert.Equal(t, shrinking.ID, outOfStock.BookID)

	assert.Equal(t, 10, f.stock(t, steady.ID))
	assert.Equal(t, 1, f.stock(t, shrinking.ID))

	lines, err := f.carts.Lines(ctx, "session")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, 3, lines[1].Quantity)
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.processor.CheckoutCart(context.Background(), "nobody", f.customer.ID)
	assert.ErrorIs(t, err, database.ErrEmptyCart)
}

func TestBuyNow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	book := f.book(t, "Directo", "100.00", 1)

	sale, err := f.processor.BuyNow(ctx, f.customer.ID, book.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "116.00", sale.Total.StringFixed(2))
	assert.Equal(t, 0, f.stock(t, book.ID))

	_, err = f.processor.BuyNow(ctx, f.customer.ID, book.ID, 1)
	assert.ErrorIs(t, err, database.ErrInsufficientStock)

	_, err = f.processor.BuyNow(ctx, f.customer.ID, book.ID, 0)
	assert.ErrorIs(t, err, database.ErrInvalidQuantity)
}
