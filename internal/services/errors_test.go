package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestIsUniqueConstraintError(t *testing.T) {
	require.False(t, isUniqueConstraintError(nil))
	require.True(t, isUniqueConstraintError(gorm.ErrDuplicatedKey))
	require.True(t, isUniqueConstraintError(fmt.Errorf("create: %w", &pgconn.PgError{Code: "23505"})))
	require.False(t, isUniqueConstraintError(&pgconn.PgError{Code: "23503"}))
	require.True(t, isUniqueConstraintError(&mysql.MySQLError{Number: 1062, Message: "dup"}))
	require.True(t, isUniqueConstraintError(errors.New("UNIQUE constraint failed: students.email")))
	require.False(t, isUniqueConstraintError(errors.New("connection refused")))
}

func TestCooldownError(t *testing.T) {
	err := ErrResendCooldown.WithInternal(CooldownError{Remaining: 42})
	require.ErrorIs(t, err, ErrResendCooldown)

	var cd CooldownError
	require.True(t, errors.As(err, &cd))
	require.Equal(t, 42, cd.RetryAfterSeconds())
}
