package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/safar/go-bookstore/internal/database"
	"github.com/safar/go-bookstore/internal/models"
	"github.com/shopspring/decimal"
)

const bookColumns = `id, title, author, genre, stock, isbn, publication_year, price, description, added_at, updated_at, version`

type BookInput struct {
	Title           string
	Author          string
	Genre           string
	Stock           int
	ISBN            string
	PublicationYear int
	Price           decimal.Decimal
	Description     string
}

func (in *BookInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return fmt.Errorf("%w: title is required", database.ErrInvalidInput)
	}
	if in.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", database.ErrInvalidInput)
	}
	if in.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", database.ErrInvalidInput)
	}
	if in.PublicationYear < 0 {
		return fmt.Errorf("%w: publication year must not be negative", database.ErrInvalidInput)
	}
	return nil
}

func scanBook(row rowScanner) (*models.Book, error) {
	book := &models.Book{}
	err := row.Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.Genre,
		&book.Stock,
		&book.ISBN,
		&book.PublicationYear,
		&book.Price,
		&book.Description,
		&book.AddedAt,
		&book.UpdatedAt,
		&book.Version,
	)
	if err != nil {
		return nil, err
	}
	return book, nil
}

func CreateBook(ctx context.Context, db Querier, in BookInput) (*models.Book, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO books (id, title, author, genre, stock, isbn, publication_year, price, description, added_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW(), 1)
		RETURNING ` + bookColumns

	book, err := scanBook(db.QueryRowContext(ctx, query,
		uuid.New(), in.Title, in.Author, in.Genre, in.Stock, in.ISBN, in.PublicationYear, in.Price, in.Description))
	if err != nil {
		return nil, database.StoreError("create book", err)
	}

	return book, nil
}

func GetBook(ctx context.Context, db Querier, id uuid.UUID) (*models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`

	book, err := scanBook(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrBookNotFound
		}
		return nil, database.StoreError("get book", err)
	}

	return book, nil
}

// UpdateBook overwrites the editable fields. A non-zero expectedVersion turns
// the write into an optimistic update that fails when the row has moved on.
func UpdateBook(ctx context.Context, db Querier, id uuid.UUID, in BookInput, expectedVersion int) (*models.Book, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	query := `
		UPDATE books
		SET title = $1, author = $2, genre = $3, stock = $4, isbn = $5,
		    publication_year = $6, price = $7, description = $8,
		    updated_at = NOW(), version = version + 1
		WHERE id = $9 AND ($10 = 0 OR version = $10)
		RETURNING ` + bookColumns

	book, err := scanBook(db.QueryRowContext(ctx, query,
		in.Title, in.Author, in.Genre, in.Stock, in.ISBN, in.PublicationYear, in.Price, in.Description,
		id, expectedVersion))
	if err == nil {
		return book, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, database.StoreError("update book", err)
	}

	if _, getErr := GetBook(ctx, db, id); getErr != nil {
		return nil, getErr
	}
	return nil, database.ErrOptimisticLockFailed
}

// DeleteBook removes the catalog row. Sales keep their own snapshot.
func DeleteBook(ctx context.Context, db Querier, id uuid.UUID) error {
	result, err := db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return database.StoreError("delete book", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return database.StoreError("get rows affected", err)
	}
	if rowsAffected == 0 {
		return database.ErrBookNotFound
	}

	return nil
}

func ListBooks(ctx context.Context, db Querier, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&total)
	if err != nil {
		return nil, database.StoreError("count books", err)
	}

	offset := (page - 1) * pageSize
	query := `SELECT ` + bookColumns + `
		FROM books
		ORDER BY added_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	books, err := queryBooks(ctx, db, "list books", query, pageSize, offset)
	if err != nil {
		return nil, err
	}

	return &OffsetPage{
		Items:      books,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

// ListInStockBooks returns every book with stock left, ordered by title. It
// backs the customer catalog and the in-person sale form.
func ListInStockBooks(ctx context.Context, db Querier) ([]models.Book, error) {
	query := `SELECT ` + bookColumns + `
		FROM books
		WHERE stock > 0
		ORDER BY title, id`

	return queryBooks(ctx, db, "list in-stock books", query)
}

func ListLowStockBooks(ctx context.Context, db Querier, threshold int) ([]models.Book, error) {
	query := `SELECT ` + bookColumns + `
		FROM books
		WHERE stock < $1
		ORDER BY stock, title`

	return queryBooks(ctx, db, "list low-stock books", query, threshold)
}

func queryBooks(ctx context.Context, db Querier, op, query string, args ...any) ([]models.Book, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, database.StoreError(op, err)
	}
	defer rows.Close()

	books := []models.Book{}
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, database.StoreError("scan book", err)
		}
		books = append(books, *book)
	}

	if err := rows.Err(); err != nil {
		return nil, database.StoreError("rows error", err)
	}

	return books, nil
}
