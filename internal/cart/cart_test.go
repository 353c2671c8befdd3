package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/safar/go-bookstore/internal/database"
	"github.com/safar/go-bookstore/internal/models"
	"github.com/safar/go-bookstore/internal/tax"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog map[uuid.UUID]*models.Book

func (c fakeCatalog) lookup(_ context.Context, id uuid.UUID) (*models.Book, error) {
	book, ok := c[id]
	if !ok {
		return nil, database.ErrBookNotFound
	}
	copied := *book
	return &copied, nil
}

func newFixture(t *testing.T, stock int, price string) (*Manager, fakeCatalog, uuid.UUID) {
	t.Helper()
	id := uuid.New()
	catalog := fakeCatalog{id: {
		ID:     id,
		Title:  "Don Quijote",
		Author: "Cervantes",
		Stock:  stock,
		Price:  decimal.RequireFromString(price),
	}}
	return NewManager(NewMemoryStore(), catalog.lookup, tax.DefaultRate), catalog, id
}

func TestAddComputesTotals(t *testing.T) {
	m, _, bookID := newFixture(t, 3, "10.00")
	ctx := context.Background()

	_, err := m.Add(ctx, "s1", bookID, 2)
	require.NoError(t, err)

	summary, err := m.Totals(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "20.00", summary.Subtotal.StringFixed(2))
	assert.Equal(t, "3.20", summary.Tax.StringFixed(2))
	assert.Equal(t, "23.20", summary.Total.StringFixed(2))
	assert.Equal(t, 1, summary.Count)
}

func TestZeroTaxRateIsKept(t *testing.T) {
	_, catalog, bookID := newFixture(t, 3, "10.00")
	m := NewManager(NewMemoryStore(), catalog.lookup, decimal.Zero)
	ctx := context.Background()

	summary, err := m.Add(ctx, "s1", bookID, 2)
	require.NoError(t, err)
	assert.True(t, m.TaxRate().IsZero())
	assert.True(t, summary.Tax.IsZero())
	assert.Equal(t, "20.00", summary.Total.StringFixed(2))
}

func TestAddRejectsCumulativeOverStock(t *testing.T) {
	m, _, bookID := newFixture(t, 3, "10.00")
	ctx := context.Background()

	_, err := m.Add(ctx, "s1", bookID, 2)
	require.NoError(t, err)

	_, err = m.Add(ctx, "s1", bookID, 2)
	require.ErrorIs(t, err, database.ErrInsufficientStock)

	var outOfStock *database.OutOfStockError
	require.ErrorAs(t, err, &outOfStock)
	assert.Equal(t, 4, outOfStock.Requested)
	assert.Equal(t, 3, outOfStock.Available)

	lines, err := m.Lines(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestAddMergesAndRereadsPrice(t *testing.T) {
	m, catalog, bookID := newFixture(t, 10, "10.00")
	ctx := context.Background()

	_, err := m.Add(ctx, "s1", bookID, 1)
	require.NoError(t, err)

	catalog[bookID].Price = decimal.RequireFromString("12.00")
	catalog[bookID].Title = "Otro título"

	summary, err := m.Add(ctx, "s1", bookID, 1)
	require.NoError(t, err)
	require.Len(t, summary.Lines, 1)

	line := summary.Lines[0]
	assert.Equal(t, 2, line.Quantity)
	assert.Equal(t, "Don Quijote", line.Title)
	assert.True(t, line.UnitPrice.Equal(decimal.RequireFromString("12.00")))
	assert.True(t, line.Subtotal.Equal(decimal.RequireFromString("24.00")))
}

func TestAddUnknownBook(t *testing.T) {
	m, _, _ := newFixture(t, 1, "1.00")

	_, err := m.Add(context.Background(), "s1", uuid.New(), 1)
	assert.ErrorIs(t, err, database.ErrBookNotFound)
}

func TestQuantityMustBePositive(t *testing.T) {
	m, _, bookID := newFixture(t, 5, "1.00")
	ctx := context.Background()

	for _, qty := range []int{0, -1} {
		_, err := m.Add(ctx, "s1", bookID, qty)
		assert.ErrorIs(t, err, database.ErrInvalidQuantity)
		assert.ErrorIs(t, err, database.ErrInvalidInput)
	}

	_, err := m.Add(ctx, "s1", bookID, 1)
	require.NoError(t, err)

	_, err = m.Update(ctx, "s1", bookID, 0)
	assert.ErrorIs(t, err, database.ErrInvalidQuantity)
}

func TestUpdateRevalidatesStock(t *testing.T) {
	m, catalog, bookID := newFixture(t, 5, "2.50")
	ctx := context.Background()

	_, err := m.Add(ctx, "s1", bookID, 1)
	require.NoError(t, err)

	summary, err := m.Update(ctx, "s1", bookID, 4)
	require.NoError(t, err)
	assert.Equal(t, "10.00", summary.Subtotal.StringFixed(2))

	catalog[bookID].Stock = 2
	_, err = m.Update(ctx, "s1", bookID, 3)
	assert.ErrorIs(t, err, database.ErrInsufficientStock)

	_, err = m.Update(ctx, "s1", uuid.New(), 1)
	assert.ErrorIs(t, err, database.ErrBookNotFound)
}

func TestRemoveIsIdempotent(t *testing.T) {
	m, _, bookID := newFixture(t, 5, "1.00")
	ctx := context.Background()

	_, err := m.Add(ctx, "s1", bookID, 1)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		summary, err := m.Remove(ctx, "s1", bookID)
		require.NoError(t, err)
		assert.Empty(t, summary.Lines)
		assert.True(t, summary.Total.IsZero())
	}
}

func TestCartsAreKeyedBySession(t *testing.T) {
	m, _, bookID := newFixture(t, 5, "1.00")
	ctx := context.Background()

	_, err := m.Add(ctx, "s1", bookID, 1)
	require.NoError(t, err)

	other, err := m.Totals(ctx, "s2")
	require.NoError(t, err)
	assert.Empty(t, other.Lines)

	require.NoError(t, m.Clear(ctx, "s1"))
	cleared, err := m.Totals(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, cleared.Lines)
}
