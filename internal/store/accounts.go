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

const accountColumns = `id, name, email, password_hash, role, active, registered_at, updated_at`

// AccountInput carries the editable fields of a staff account. On update an
// empty Password keeps the current digest.
type AccountInput struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
}

func (in *AccountInput) normalize(requirePassword bool) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if in.Role == "" {
		in.Role = models.RoleEmployee
	}

	switch {
	case in.Name == "":
		return fmt.Errorf("%w: name is required", database.ErrInvalidInput)
	case in.Email == "":
		return fmt.Errorf("%w: email is required", database.ErrInvalidInput)
	case !in.Role.Valid():
		return fmt.Errorf("%w: unknown role %q", database.ErrInvalidInput, in.Role)
	case requirePassword && in.Password == "":
		return fmt.Errorf("%w: password is required", database.ErrInvalidInput)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func scanAccount(row rowScanner) (*models.Account, error) {
	account := &models.Account{}
	err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.PasswordHash,
		&account.Role,
		&account.Active,
		&account.RegisteredAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return account, nil
}

func CreateAccount(ctx context.Context, db Querier, in AccountInput) (*models.Account, error) {
	if err := in.normalize(true); err != nil {
		return nil, err
	}

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	query := `
		INSERT INTO accounts (id, name, email, password_hash, role, active, registered_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, NOW(), NOW())
		RETURNING ` + accountColumns

	account, err := scanAccount(db.QueryRowContext(ctx, query, uuid.New(), in.Name, in.Email, hashed, in.Role))
	if err != nil {
		if database.IsUniqueViolation(err, "email") {
			return nil, database.ErrDuplicateEmail
		}
		return nil, database.StoreError("create account", err)
	}

	return account, nil
}

func GetAccount(ctx context.Context, db Querier, id uuid.UUID) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrAccountNotFound
		}
		return nil, database.StoreError("get account", err)
	}

	return account, nil
}

// AuthenticateAccount resolves an active account by email and password.
// Unknown email, inactive account and wrong password are indistinguishable.
func AuthenticateAccount(ctx context.Context, db Querier, email, password string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1 AND active`

	account, err := scanAccount(db.QueryRowContext(ctx, query, normalizeEmail(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrInvalidCredentials
		}
		return nil, database.StoreError("find account", err)
	}

	if !auth.ComparePassword(account.PasswordHash, password) {
		return nil, database.ErrInvalidCredentials
	}

	return account, nil
}

func ListAccounts(ctx context.Context, db Querier, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts WHERE active`).Scan(&total)
	if err != nil {
		return nil, database.StoreError("count accounts", err)
	}

	offset := (page - 1) * pageSize
	query := `SELECT ` + accountColumns + `
		FROM accounts
		WHERE active
		ORDER BY registered_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	rows, err := db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, database.StoreError("list accounts", err)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, database.StoreError("scan account", err)
		}
		accounts = append(accounts, *account)
	}

	if err := rows.Err(); err != nil {
		return nil, database.StoreError("rows error", err)
	}

	return &OffsetPage{
		Items:      accounts,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

func UpdateAccount(ctx context.Context, db Querier, id uuid.UUID, in AccountInput) (*models.Account, error) {
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
		UPDATE accounts
		SET name = $1, email = $2, role = $3,
		    password_hash = COALESCE($4, password_hash),
		    updated_at = NOW()
		WHERE id = $5
		RETURNING ` + accountColumns

	account, err := scanAccount(db.QueryRowContext(ctx, query, in.Name, in.Email, in.Role, hashed, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrAccountNotFound
		}
		if database.IsUniqueViolation(err, "email") {
			return nil, database.ErrDuplicateEmail
		}
		return nil, database.StoreError("update account", err)
	}

	return account, nil
}

// DeactivateAccount soft-deletes an account. Deactivating an inactive account
// succeeds without change; an account may not deactivate itself.
func DeactivateAccount(ctx context.Context, db Querier, id, actingID uuid.UUID) error {
	if id == actingID {
		return database.ErrSelfDeactivation
	}

	result, err := db.ExecContext(ctx,
		`UPDATE accounts SET active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return database.StoreError("deactivate account", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return database.StoreError("get rows affected", err)
	}
	if rowsAffected == 0 {
		return database.ErrAccountNotFound
	}

	return nil
}

// EnsureAdmin creates the first administrator when the accounts table is
// empty. It reports whether an account was created.
func EnsureAdmin(ctx context.Context, db Querier, name, email, password string) (bool, error) {
	var count int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count); err != nil {
		return false, database.StoreError("count accounts", err)
	}
	if count > 0 {
		return false, nil
	}

	_, err := CreateAccount(ctx, db, AccountInput{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     models.RoleAdministrator,
	})
	if err != nil {
		if errors.Is(err, database.ErrDuplicateEmail) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}
