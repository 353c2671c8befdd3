package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/safar/go-bookstore/internal/auth"
	"github.com/safar/go-bookstore/internal/database"
	"github.com/safar/go-bookstore/internal/models"
)

const customerColumns = `id, name, email, password_hash, phone, street, city, postal_code, active, registered_at, updated_at`

// CustomerInput carries the editable fields of a customer. On update an empty
// Password keeps the current digest.
type CustomerInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Address  models.Address
}

func (in *CustomerInput) normalize(requirePassword bool) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)

	switch {
	case in.Name == "":
		return fmt.Errorf("%w: name is required", database.ErrInvalidInput)
	case in.Email == "":
		return fmt.Errorf("%w: email is required", database.ErrInvalidInput)
	case requirePassword && in.Password == "":
		return fmt.Errorf("%w: password is required", database.ErrInvalidInput)
	}
	return nil
}

func scanCustomer(row rowScanner) (*models.Customer, error) {
	customer := &models.Customer{}
	err := row.Scan(
		&customer.ID,
		&customer.Name,
		&customer.Email,
		&customer.PasswordHash,
		&customer.Phone,
		&customer.Address.Street,
		&customer.Address.City,
		&customer.Address.PostalCode,
		&customer.Active,
		&customer.RegisteredAt,
		&customer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return customer, nil
}

// CreateCustomer stores a new active customer. The email uniqueness check is
// enforced by the customers_email_key constraint.
func CreateCustomer(ctx context.Context, db Querier, in CustomerInput) (*models.Customer, error) {
	if err := in.normalize(true); err != nil {
		return nil, err
	}

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	query := `
		INSERT INTO customers (id, name, email, password_hash, phone, street, city, postal_code, active, registered_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, NOW(), NOW())
		RETURNING ` + customerColumns

	customer, err := scanCustomer(db.QueryRowContext(ctx, query,
		uuid.New(), in.Name, in.Email, hashed, in.Phone,
		in.Address.Street, in.Address.City, in.Address.PostalCode))
	if err != nil {
		if database.IsUniqueViolation(err, "email") {
			return nil, database.ErrDuplicateEmail
		}
		return nil, database.StoreError("create customer", err)
	}

	return customer, nil
}

func GetCustomer(ctx context.Context, db Querier, id uuid.UUID) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	customer, err := scanCustomer(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCustomerNotFound
		}
		return nil, database.StoreError("get customer", err)
	}

	return customer, nil
}

func AuthenticateCustomer(ctx context.Context, db Querier, email, password string) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE email = $1 AND active`

	customer, err := scanCustomer(db.QueryRowContext(ctx, query, normalizeEmail(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrInvalidCredentials
		}
		return nil, database.StoreError("find customer", err)
	}

	if !auth.ComparePassword(customer.PasswordHash, password) {
		return nil, database.ErrInvalidCredentials
	}

	return customer, nil
}

func ListCustomers(ctx context.Context, db Querier, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers WHERE active`).Scan(&total)
	if err != nil {
		return nil, database.StoreError("count customers", err)
	}

	offset := (page - 1) * pageSize
	query := `SELECT ` + customerColumns + `
		FROM customers
		WHERE active
		ORDER BY registered_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	customers, err := queryCustomers(ctx, db, "list customers", query, pageSize, offset)
	if err != nil {
		return nil, err
	}

	return &OffsetPage{
		Items:      customers,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

// ListActiveCustomers returns all active customers by name, for pickers.
func ListActiveCustomers(ctx context.Context, db Querier) ([]models.Customer, error) {
	query := `SELECT ` + customerColumns + `
		FROM customers
		WHERE active
		ORDER BY name, id`

	return queryCustomers(ctx, db, "list active customers", query)
}

func queryCustomers(ctx context.Context, db Querier, op, query string, args ...any) ([]models.Customer, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, database.StoreError(op, err)
	}
	defer rows.Close()

	customers := []models.Customer{}
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, database.StoreError("scan customer", err)
		}
		customers = append(customers, *customer)
	}

	if err := rows.Err(); err != nil {
		return nil, database.StoreError("rows error", err)
	}

	return customers, nil
}

func UpdateCustomer(ctx context.Context, db Querier, id uuid.UUID, in CustomerInput) (*models.Customer, error) {
	if err := in.normalize(false); err != nil {
		return nil, err
	}

	var hashed sql.NullString
	if in.Password != "" {
		h, err := auth.HashPassword(in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		hashed = sql.NullString{String: h, Valid: true}
	}

	query := `
		UPDATE customers
		SET name = $1, email = $2, phone = $3, street = $4, city = $5, postal_code = $6,
		    password_hash = COALESCE($7, password_hash),
		    updated_at = NOW()
		WHERE id = $8
		RETURNING ` + customerColumns

	customer, err := scanCustomer(db.QueryRowContext(ctx, query,
		in.Name, in.Email, in.Phone, in.Address.Street, in.Address.City, in.Address.PostalCode, hashed, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCustomerNotFound
		}
		if database.IsUniqueViolation(err, "email") {
			return nil, database.ErrDuplicateEmail
		}
		return nil, database.StoreError("update customer", err)
	}

	return customer, nil
}

// DeactivateCustomer soft-deletes a customer; repeating it is a no-op.
func DeactivateCustomer(ctx context.Context, db Querier, id uuid.UUID) error {
	result, err := db.ExecContext(ctx,
		`UPDATE customers SET active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return database.StoreError("deactivate customer", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return database.StoreError("get rows affected", err)
	}
	if rowsAffected == 0 {
		return database.ErrCustomerNotFound
	}

	return nil
}
