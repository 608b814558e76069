package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aulasoft/academia-engine/internal/models"
)

func newFacturaRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

func TestFacturaRepositoryMarkOverdue(t *testing.T) {
	db, mock, cleanup := newFacturaRepoMock(t)
	defer cleanup()
	repo := NewFacturaRepository(db)

	today := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE facturas SET state = $1, updated_at = $2")).
		WithArgs(models.FacturaStateOverdue, sqlmock.AnyArg(), models.FacturaStatePending, today).
		WillReturnResult(sqlmock.NewResult(0, 3))

	affected, err := repo.MarkOverdue(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFacturaRepositoryUpdateState(t *testing.T) {
	db, mock, cleanup := newFacturaRepoMock(t)
	defer cleanup()
	repo := NewFacturaRepository(db)

	paid := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE facturas SET state = $2, payment_date = $3, updated_at = $4 WHERE id = $1")).
		WithArgs("fac-1", models.FacturaStatePaid, &paid, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateState(context.Background(), "fac-1", models.FacturaStatePaid, &paid)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFacturaRepositoryListFiltersByState(t *testing.T) {
	db, mock, cleanup := newFacturaRepoMock(t)
	defer cleanup()
	repo := NewFacturaRepository(db)

	rows := sqlmock.NewRows([]string{
		"id", "name", "alumno_id", "curso_id", "clase_id", "date", "due_date", "payment_date",
		"amount", "concept", "description", "payment_method", "invoice_type", "state", "active",
		"created_at", "updated_at",
	}).AddRow("fac-1", "FAC/2026/00001", "alumno-1", nil, nil, time.Now(), nil, nil,
		120.0, "Mensualidad", "", models.PaymentTransfer, models.FacturaTypeMonthly,
		models.FacturaStatePending, true, time.Now(), time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("FROM facturas WHERE state = $1")).
		WithArgs(models.FacturaStatePending).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM facturas WHERE state = $1")).
		WithArgs(models.FacturaStatePending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	facturas, total, err := repo.List(context.Background(), models.FacturaFilter{State: models.FacturaStatePending})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, facturas, 1)
	assert.Equal(t, "FAC/2026/00001", facturas[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}
