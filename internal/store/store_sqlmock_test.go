package store

import (
	"context"
	"database/sql/driver"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// A helper function to create a mock database connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}

// TestCancelTimer_SQL verifies the cancel path issues a single guarded
// UPDATE against the timers table.
func TestCancelTimer_SQL(t *testing.T) {
	t.Run("existing timer is cancelled", func(t *testing.T) {
		gormDB, mock := newMockDB(t)
		s := NewGormStore(gormDB)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "timers" SET`).
			WithArgs(Any{}, "cancelled", "s1", "t1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := s.CancelTimer(context.Background(), "s1", "t1")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing timer reports not found", func(t *testing.T) {
		gormDB, mock := newMockDB(t)
		s := NewGormStore(gormDB)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "timers" SET`).
			WithArgs(Any{}, "cancelled", "s1", "missing").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := s.CancelTimer(context.Background(), "s1", "missing")
		assert.ErrorIs(t, err, ErrTimerNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
