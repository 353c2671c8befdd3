// Package cart keeps a customer's pending purchase lines, keyed by session.
package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/safar/go-bookstore/internal/database"
	"github.com/safar/go-bookstore/internal/models"
	"github.com/safar/go-bookstore/internal/tax"
	"github.com/shopspring/decimal"
)

// Store persists the lines of one cart. Lock serializes read-modify-write
// cycles on the same key.
type Store interface {
	Load(ctx context.Context, key string) ([]models.CartLine, error)
	Save(ctx context.Context, key string, lines []models.CartLine) error
	Delete(ctx context.Context, key string) error
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// BookLookup resolves the current catalog state of a book.
type BookLookup func(ctx context.Context, id uuid.UUID) (*models.Book, error)

type Summary struct {
	Lines    []models.CartLine `json:"lines"`
	Count    int               `json:"count"`
	Subtotal decimal.Decimal   `json:"subtotal"`
	TaxRate  decimal.Decimal   `json:"tax_rate"`
	Tax      decimal.Decimal   `json:"tax"`
	Total    decimal.Decimal   `json:"total"`
}

type Manager struct {
	store   Store
	books   BookLookup
	taxRate decimal.Decimal
}

func NewManager(store Store, books BookLookup, taxRate decimal.Decimal) *Manager {
	return &Manager{store: store, books: books, taxRate: taxRate}
}

func (m *Manager) TaxRate() decimal.Decimal {
	return m.taxRate
}

// Add puts qty copies of a book in the cart, merging with an existing line.
// The cumulative quantity must fit the current stock.
func (m *Manager) Add(ctx context.Context, key string, bookID uuid.UUID, qty int) (*Summary, error) {
	if qty <= 0 {
		return nil, database.ErrInvalidQuantity
	}

	return m.mutate(ctx, key, func(lines []models.CartLine) ([]models.CartLine, error) {
		book, err := m.books(ctx, bookID)
		if err != nil {
			return nil, err
		}

		i := indexOf(lines, bookID)
		wanted := qty
		if i >= 0 {
			wanted += lines[i].Quantity
		}
		if book.Stock < wanted {
			return nil, &database.OutOfStockError{
				BookID:    book.ID,
				Title:     book.Title,
				Available: book.Stock,
				Requested: wanted,
			}
		}

		if i < 0 {
			return append(lines, newLine(book, wanted)), nil
		}
		lines[i].Quantity = wanted
		lines[i].UnitPrice = book.Price
		lines[i].Subtotal = lineSubtotal(book.Price, wanted)
		return lines, nil
	})
}

// Update replaces the quantity of a line already in the cart.
func (m *Manager) Update(ctx context.Context, key string, bookID uuid.UUID, qty int) (*Summary, error) {
	if qty <= 0 {
		return nil, database.ErrInvalidQuantity
	}

	return m.mutate(ctx, key, func(lines []models.CartLine) ([]models.CartLine, error) {
		i := indexOf(lines, bookID)
		if i < 0 {
			return nil, fmt.Errorf("%w: not in cart", database.ErrBookNotFound)
		}

		book, err := m.books(ctx, bookID)
		if err != nil {
			return nil, err
		}
		if book.Stock < qty {
			return nil, &database.OutOfStockError{
				BookID:    book.ID,
				Title:     book.Title,
				Available: book.Stock,
				Requested: qty,
			}
		}

		lines[i].Quantity = qty
		lines[i].UnitPrice = book.Price
		lines[i].Subtotal = lineSubtotal(book.Price, qty)
		return lines, nil
	})
}

// Remove drops a line. Removing an absent book is not an error.
func (m *Manager) Remove(ctx context.Context, key string, bookID uuid.UUID) (*Summary, error) {
	return m.mutate(ctx, key, func(lines []models.CartLine) ([]models.CartLine, error) {
		kept := lines[:0]
		for _, line := range lines {
			if line.BookID != bookID {
				kept = append(kept, line)
			}
		}
		return kept, nil
	})
}

func (m *Manager) Clear(ctx context.Context, key string) error {
	if err := m.store.Delete(ctx, key); err != nil {
		return database.StoreError("clear cart", err)
	}
	return nil
}

func (m *Manager) Lines(ctx context.Context, key string) ([]models.CartLine, error) {
	lines, err := m.store.Load(ctx, key)
	if err != nil {
		return nil, database.StoreError("load cart", err)
	}
	return lines, nil
}

// Totals recomputes subtotal, tax and total from the stored lines.
func (m *Manager) Totals(ctx context.Context, key string) (*Summary, error) {
	lines, err := m.Lines(ctx, key)
	if err != nil {
		return nil, err
	}
	return m.summarize(lines), nil
}

// Checkout hands the cart lines to commit while holding the cart lock and
// empties the cart only when commit succeeds.
func (m *Manager) Checkout(ctx context.Context, key string, commit func([]models.CartLine) error) error {
	unlock, err := m.store.Lock(ctx, key)
	if err != nil {
		return database.StoreError("lock cart", err)
	}
	defer unlock()

	lines, err := m.Lines(ctx, key)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return database.ErrEmptyCart
	}

	if err := commit(lines); err != nil {
		return err
	}

	return m.Clear(ctx, key)
}

func (m *Manager) summarize(lines []models.CartLine) *Summary {
	if lines == nil {
		lines = []models.CartLine{}
	}
	subtotals := make([]decimal.Decimal, len(lines))
	for i, line := range lines {
		subtotals[i] = lineSubtotal(line.UnitPrice, line.Quantity)
	}
	totals := tax.Sum(m.taxRate, subtotals...)

	return &Summary{
		Lines:    lines,
		Count:    len(lines),
		Subtotal: totals.Subtotal,
		TaxRate:  m.taxRate,
		Tax:      totals.Tax,
		Total:    totals.Total,
	}
}

func (m *Manager) mutate(ctx context.Context, key string, fn func([]models.CartLine) ([]models.CartLine, error)) (*Summary, error) {
	unlock, err := m.store.Lock(ctx, key)
	if err != nil {
		return nil, database.StoreError("lock cart", err)
	}
	defer unlock()

	lines, err := m.Lines(ctx, key)
	if err != nil {
		return nil, err
	}

	lines, err = fn(lines)
	if err != nil {
		return nil, err
	}

	if err := m.store.Save(ctx, key, lines); err != nil {
		return nil, database.StoreError("save cart", err)
	}

	return m.summarize(lines), nil
}

func newLine(book *models.Book, qty int) models.CartLine {
	return models.CartLine{
		BookID:    book.ID,
		Title:     book.Title,
		Author:    book.Author,
		UnitPrice: book.Price,
		Quantity:  qty,
		Subtotal:  lineSubtotal(book.Price, qty),
	}
}

func lineSubtotal(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty)))
}

func indexOf(lines []models.CartLine, bookID uuid.UUID) int {
	for i, line := range lines {
		if line.BookID == bookID {
			return i
		}
	}
	return -1
}
