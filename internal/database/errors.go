package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001":
			return ErrorClassSerialization
		case "40P01":
			return ErrorClassDeadlock
		case "55P03", "57P01", "08006", "08003":
			return ErrorClassTransient
		case "23505", "23503", "23502", "23514":
			return ErrorClassPermanent
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrorClassPermanent
	}

	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient ||
		class == ErrorClassDeadlock ||
		class == ErrorClassSerialization
}

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrBookNotFound     = errors.New("book not found")
	ErrSaleNotFound     = errors.New("sale not found")

	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidQuantity      = fmt.Errorf("%w: quantity must be greater than zero", ErrInvalidInput)
	ErrEmptySale            = fmt.Errorf("%w: a sale needs at least one book", ErrInvalidInput)
	ErrEmptyCart            = fmt.Errorf("%w: cart is empty", ErrInvalidInput)
	ErrSelfDeactivation     = fmt.Errorf("%w: an account cannot deactivate itself", ErrInvalidInput)
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrStoreUnavailable     = errors.New("store unavailable")
	ErrOptimisticLockFailed = errors.New("optimistic lock failed")
)

// OutOfStockError names the book that could not cover the requested quantity.
type OutOfStockError struct {
	BookID    uuid.UUID
	Title     string
	Available int
	Requested int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d", e.Title, e.Requested, e.Available)
}

func (e *OutOfStockError) Unwrap() error {
	return ErrInsufficientStock
}

// StoreError tags a driver failure as ErrStoreUnavailable while keeping the
// original error in the chain.
func StoreError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// IsUniqueViolation reports whether err is a unique_violation on a constraint
// whose name contains the given fragment.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || strings.Contains(pqErr.Constraint, constraint)
}

// IsNotFound reports whether err belongs to the NotFound family.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrBookNotFound) ||
		errors.Is(err, ErrSaleNotFound)
}
