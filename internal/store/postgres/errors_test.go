package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/ridepool/ridepool/internal/domain/user"
)

func pqUnique(constraint string) error {
	return &pq.Error{Code: "23505", Constraint: constraint}
}

// TestUniqueViolation matches only the named constraint with the unique code
func TestUniqueViolation(t *testing.T) {
	assert.True(t, uniqueViolation(pqUnique(constraintUserEmail), constraintUserEmail))
	assert.True(t, uniqueViolation(fmt.Errorf("insert: %w", pqUnique(constraintUserEmail)), constraintUserEmail))

	assert.False(t, uniqueViolation(pqUnique(constraintUserPhone), constraintUserEmail))
	assert.False(t, uniqueViolation(&pq.Error{Code: "23503", Constraint: constraintUserEmail}, constraintUserEmail))
	assert.False(t, uniqueViolation(errors.New("connection reset"), constraintUserEmail))
}

// TestMapUserInsertError maps unique violations to the domain sentinels the
// auth service matches on and leaves everything else wrapped.
func TestMapUserInsertError(t *testing.T) {
	assert.ErrorIs(t, mapUserInsertError(pqUnique(constraintUserEmail)), user.ErrEmailTaken)
	assert.ErrorIs(t, mapUserInsertError(pqUnique(constraintUserPhone)), user.ErrPhoneTaken)

	other := mapUserInsertError(errors.New("connection reset"))
	assert.NotErrorIs(t, other, user.ErrEmailTaken)
	assert.NotErrorIs(t, other, user.ErrPhoneTaken)
	assert.Contains(t, other.Error(), "insert user")
}
