package database

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ErrorClassPermanent},
		{"serialization", &pq.Error{Code: "40001"}, ErrorClassSerialization},
		{"deadlock", fmt.Errorf("wrapped: %w", &pq.Error{Code: "40P01"}), ErrorClassDeadlock},
		{"lock not available", &pq.Error{Code: "55P03"}, ErrorClassTransient},
		{"unique violation", &pq.Error{Code: "23505"}, ErrorClassPermanent},
		{"no rows", sql.ErrNoRows, ErrorClassPermanent},
		{"domain error", ErrInsufficientStock, ErrorClassPermanent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyError(tc.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pq.Error{Code: "40001"}))
	assert.True(t, IsRetryable(&pq.Error{Code: "40P01"}))
	assert.False(t, IsRetryable(&pq.Error{Code: "23505"}))
	assert.False(t, IsRetryable(ErrBookNotFound))
}

func TestOutOfStockErrorUnwraps(t *testing.T) {
	err := error(&OutOfStockError{BookID: uuid.New(), Title: "Rayuela", Available: 1, Requested: 3})

	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Contains(t, err.Error(), "Rayuela")

	var oos *OutOfStockError
	assert.True(t, errors.As(fmt.Errorf("create sale: %w", err), &oos))
	assert.Equal(t, 3, oos.Requested)
}

func TestStoreErrorKeepsBothCauses(t *testing.T) {
	cause := errors.New("connection refused")
	err := StoreError("get book", cause)

	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsNotFound(err))
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pq.Error{Code: "23505", Constraint: "customers_email_key"})

	assert.True(t, IsUniqueViolation(err, "email"))
	assert.False(t, IsUniqueViolation(err, "isbn"))
	assert.False(t, IsUniqueViolation(errors.New("boom"), ""))
}

func TestInvalidInputFamily(t *testing.T) {
	for _, err := range []error{ErrInvalidQuantity, ErrEmptySale, ErrEmptyCart, ErrSelfDeactivation} {
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}
