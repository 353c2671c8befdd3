package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/safar/go-bookstore/internal/database"
	"github.com/safar/go-bookstore/internal/models"
	"github.com/safar/go-bookstore/internal/tax"
	"github.com/shopspring/decimal"
)

type SaleLineRequest struct {
	BookID   uuid.UUID
	Quantity int
}

// StaffRef identifies the account that rang up an in-person sale.
type StaffRef struct {
	ID   uuid.UUID
	Name string
}

type CreateSaleRequest struct {
	CustomerID uuid.UUID
	Staff      *StaffRef
	Channel    models.Channel
	Items      []SaleLineRequest
	TaxRate    decimal.Decimal
}

// mergeLines folds repeated books into one line, keeping first-seen order.
func mergeLines(items []SaleLineRequest) ([]SaleLineRequest, error) {
	if len(items) == 0 {
		return nil, database.ErrEmptySale
	}

	merged := make([]SaleLineRequest, 0, len(items))
	index := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, database.ErrInvalidQuantity
		}
		if i, ok := index[item.BookID]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.BookID] = len(merged)
		merged = append(merged, item)
	}
	return merged, nil
}

type lockedBook struct {
	id     uuid.UUID
	title  string
	author string
	genre  string
	isbn   string
	price  decimal.Decimal
	stock  int
}

func lockBooks(ctx context.Context, tx *sql.Tx, lines []SaleLineRequest) (map[uuid.UUID]lockedBook, error) {
	ids := make([]string, len(lines))
	for i, line := range lines {
		ids[i] = line.BookID.String()
	}

	// Locks are taken in id order so concurrent sales cannot deadlock.
	rows, err := tx.QueryContext(ctx,
		`SELECT id, title, author, genre, isbn, price, stock
		 FROM books
		 WHERE id = ANY($1::uuid[])
		 ORDER BY id
		 FOR UPDATE`,
		pq.Array(ids))
	if err != nil {
		return nil, database.StoreError("lock books", err)
	}
	defer rows.Close()

	books := make(map[uuid.UUID]lockedBook, len(lines))
	for rows.Next() {
		var b lockedBook
		if err := rows.Scan(&b.id, &b.title, &b.author, &b.genre, &b.isbn, &b.price, &b.stock); err != nil {
			return nil, database.StoreError("scan locked book", err)
		}
		books[b.id] = b
	}
	if err := rows.Err(); err != nil {
		return nil, database.StoreError("rows error", err)
	}

	return books, nil
}

// CreateSale checks stock, decrements it and records the sale snapshot in a
// single transaction. Either every line is committed or nothing changes.
func CreateSale(ctx context.Context, db *sql.DB, req CreateSaleRequest) (*models.Sale, error) {
	lines, err := mergeLines(req.Items)
	if err != nil {
		return nil, err
	}
	if req.Channel != models.ChannelInPerson && req.Channel != models.ChannelOnline {
		return nil, fmt.Errorf("%w: unknown channel %q", database.ErrInvalidInput, req.Channel)
	}
	rate := req.TaxRate
	if rate.IsNegative() {
		return nil, fmt.Errorf("%w: negative tax rate", database.ErrInvalidInput)
	}

	var sale *models.Sale

	err = database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		customer, err := GetCustomer(ctx, tx, req.CustomerID)
		if err != nil {
			return err
		}
		if !customer.Active {
			return database.ErrCustomerNotFound
		}

		books, err := lockBooks(ctx, tx, lines)
		if err != nil {
			return err
		}

		items := make([]models.SaleItem, 0, len(lines))
		subtotals := make([]decimal.Decimal, 0, len(lines))
		for _, line := range lines {
			book, ok := books[line.BookID]
			if !ok {
				return fmt.Errorf("%w: %s", database.ErrBookNotFound, line.BookID)
			}
			if book.stock < line.Quantity {
				return &database.OutOfStockError{
					BookID:    book.id,
					Title:     book.title,
					Available: book.stock,
					Requested: line.Quantity,
				}
			}

			subtotal := book.price.Mul(decimal.NewFromInt(int64(line.Quantity)))
			subtotals = append(subtotals, subtotal)
			items = append(items, models.SaleItem{
				BookID:    book.id,
				Title:     book.title,
				Author:    book.author,
				Genre:     book.genre,
				ISBN:      book.isbn,
				Quantity:  line.Quantity,
				UnitPrice: book.price,
				Subtotal:  subtotal,
			})
		}

		for _, item := range items {
			result, err := tx.ExecContext(ctx,
				`UPDATE books
				 SET stock = stock - $1,
				     updated_at = NOW(),
				     version = version + 1
				 WHERE id = $2
				   AND stock >= $1`,
				item.Quantity, item.BookID)
			if err != nil {
				return database.StoreError("update stock", err)
			}

			rowsAffected, err := result.RowsAffected()
			if err != nil {
				return database.StoreError("get rows affected", err)
			}
			if rowsAffected == 0 {
				return &database.OutOfStockError{BookID: item.BookID, Title: item.Title, Requested: item.Quantity}
			}
		}

		totals := tax.Sum(rate, subtotals...)
		sale = &models.Sale{
			ID:            uuid.New(),
			CustomerID:    customer.ID,
			CustomerName:  customer.Name,
			CustomerEmail: customer.Email,
			CustomerPhone: customer.Phone,
			Items:         items,
			Subtotal:      totals.Subtotal,
			TaxRate:       rate,
			Tax:           totals.Tax,
			Total:         totals.Total,
			Status:        models.SaleStatusCompleted,
			Channel:       req.Channel,
		}

		var staffID uuid.NullUUID
		if req.Staff != nil {
			staffID = uuid.NullUUID{UUID: req.Staff.ID, Valid: true}
			sale.StaffID = &req.Staff.ID
			sale.StaffName = req.Staff.Name
		}

		err = tx.QueryRowContext(ctx,
			`INSERT INTO sales (id, customer_id, customer_name, customer_email, customer_phone,
			                    staff_id, staff_name, subtotal, tax_rate, tax, total, status, channel, sold_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
			 RETURNING sold_at`,
			sale.ID, sale.CustomerID, sale.CustomerName, sale.CustomerEmail, sale.CustomerPhone,
			staffID, sale.StaffName, sale.Subtotal, sale.TaxRate, sale.Tax, sale.Total, sale.Status, sale.Channel,
		).Scan(&sale.SoldAt)
		if err != nil {
			return database.StoreError("create sale", err)
		}

		for i, item := range items {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO sale_items (sale_id, position, book_id, title, author, genre, isbn, quantity, unit_price, subtotal)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				sale.ID, i, item.BookID, item.Title, item.Author, item.Genre, item.ISBN,
				item.Quantity, item.UnitPrice, item.Subtotal)
			if err != nil {
				return database.StoreError("create sale item", err)
			}
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return sale, nil
}

const saleColumns = `id, customer_id, customer_name, customer_email, customer_phone, staff_id, staff_name,
	subtotal, tax_rate, tax, total, status, channel, sold_at`

func scanSale(row rowScanner) (*models.Sale, error) {
	sale := &models.Sale{}
	var staffID uuid.NullUUID
	err := row.Scan(
		&sale.ID,
		&sale.CustomerID,
		&sale.CustomerName,
		&sale.CustomerEmail,
		&sale.CustomerPhone,
		&staffID,
		&sale.StaffName,
		&sale.Subtotal,
		&sale.TaxRate,
		&sale.Tax,
		&sale.Total,
		&sale.Status,
		&sale.Channel,
		&sale.SoldAt,
	)
	if err != nil {
		return nil, err
	}
	if staffID.Valid {
		id := staffID.UUID
		sale.StaffID = &id
	}
	return sale, nil
}

func GetSale(ctx context.Context, db Querier, id uuid.UUID) (*models.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1`

	sale, err := scanSale(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrSaleNotFound
		}
		return nil, database.StoreError("get sale", err)
	}

	items, err := getSaleItems(ctx, db, id)
	if err != nil {
		return nil, err
	}
	sale.Items = items

	return sale, nil
}

// GetCustomerSale resolves a sale only when it belongs to customerID.
func GetCustomerSale(ctx context.Context, db Querier, id, customerID uuid.UUID) (*models.Sale, error) {
	sale, err := GetSale(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if sale.CustomerID != customerID {
		return nil, database.ErrSaleNotFound
	}
	return sale, nil
}

func getSaleItems(ctx context.Context, db Querier, saleID uuid.UUID) ([]models.SaleItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT book_id, title, author, genre, isbn, quantity, unit_price, subtotal
		 FROM sale_items
		 WHERE sale_id = $1
		 ORDER BY position`,
		saleID)
	if err != nil {
		return nil, database.StoreError("get sale items", err)
	}
	defer rows.Close()

	items := []models.SaleItem{}
	for rows.Next() {
		var item models.SaleItem
		err := rows.Scan(
			&item.BookID,
			&item.Title,
			&item.Author,
			&item.Genre,
			&item.ISBN,
			&item.Quantity,
			&item.UnitPrice,
			&item.Subtotal,
		)
		if err != nil {
			return nil, database.StoreError("scan sale item", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, database.StoreError("rows error", err)
	}

	return items, nil
}

func ListSales(ctx context.Context, db Querier, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales`).Scan(&total)
	if err != nil {
		return nil, database.StoreError("count sales", err)
	}

	offset := (page - 1) * pageSize
	query := `SELECT ` + saleColumns + `
		FROM sales
		ORDER BY sold_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	sales, err := querySales(ctx, db, "list sales", query, pageSize, offset)
	if err != nil {
		return nil, err
	}

	return &OffsetPage{
		Items:      sales,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

func RecentSales(ctx context.Context, db Querier, limit int) ([]models.Sale, error) {
	query := `SELECT ` + saleColumns + `
		FROM sales
		ORDER BY sold_at DESC, id DESC
		LIMIT $1`

	return querySales(ctx, db, "recent sales", query, limit)
}

// ListCustomerSalesCursor pages a customer's purchase history newest first.
func ListCustomerSalesCursor(ctx context.Context, db Querier, customerID uuid.UUID, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	var sales []models.Sale
	if cursorData == nil {
		query := `SELECT ` + saleColumns + `
			FROM sales
			WHERE customer_id = $1
			ORDER BY sold_at DESC, id DESC
			LIMIT $2`
		sales, err = querySales(ctx, db, "list customer sales", query, customerID, limit+1)
	} else {
		query := `SELECT ` + saleColumns + `
			FROM sales
			WHERE customer_id = $1
			  AND (sold_at, id) < ($2, $3)
			ORDER BY sold_at DESC, id DESC
			LIMIT $4`
		sales, err = querySales(ctx, db, "list customer sales", query, customerID, cursorData.SoldAt, cursorData.ID, limit+1)
	}
	if err != nil {
		return nil, err
	}

	hasMore := len(sales) > limit
	if hasMore {
		sales = sales[:limit]
	}

	var nextCursor string
	if hasMore && len(sales) > 0 {
		last := sales[len(sales)-1]
		nextCursor = EncodeCursor(SaleCursor{
			SoldAt: last.SoldAt,
			ID:     last.ID,
		})
	}

	return &CursorPage{
		Items:      sales,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func querySales(ctx context.Context, db Querier, op, query string, args ...any) ([]models.Sale, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, database.StoreError(op, err)
	}
	defer rows.Close()

	sales := []models.Sale{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, database.StoreError("scan sale", err)
		}
		sales = append(sales, *sale)
	}

	if err := rows.Err(); err != nil {
		return nil, database.StoreError("rows error", err)
	}

	return sales, nil
}
