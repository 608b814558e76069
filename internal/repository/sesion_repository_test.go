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

func newSesionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
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

func sesionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "curso_id", "clase_id", "profesor_id", "date", "start_time", "duration",
		"end_time", "seats", "room", "topic", "state", "active", "created_at", "updated_at",
	})
}

func TestSesionRepositoryFindByProfesorAndDate(t *testing.T) {
	db, mock, cleanup := newSesionRepoMock(t)
	defer cleanup()
	repo := NewSesionRepository(db)

	date := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	rows := sesionRows().
		AddRow("ses-1", "curso-1", nil, "prof-1", date, 9.0, 1.5, 10.5, 15, "Aula 2", "",
			models.SesionStateConfirmed, true, time.Now(), time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("WHERE profesor_id = $1 AND date = $2 AND state <> $3")).
		WithArgs("prof-1", date, models.SesionStateCancelled).
		WillReturnRows(rows)

	sesiones, err := repo.FindByProfesorAndDate(context.Background(), "prof-1", date, "")
	require.NoError(t, err)
	require.Len(t, sesiones, 1)
	assert.Equal(t, 10.5, sesiones[0].EndTime)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSesionRepositoryFindByProfesorAndDateExcludesSelf(t *testing.T) {
	db, mock, cleanup := newSesionRepoMock(t)
	defer cleanup()
	repo := NewSesionRepository(db)

	date := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("AND id <> $4")).
		WithArgs("prof-1", date, models.SesionStateCancelled, "ses-9").
		WillReturnRows(sesionRows())

	sesiones, err := repo.FindByProfesorAndDate(context.Background(), "prof-1", date, "ses-9")
	require.NoError(t, err)
	assert.Empty(t, sesiones)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSesionRepositoryAddAsistente(t *testing.T) {
	db, mock, cleanup := newSesionRepoMock(t)
	defer cleanup()
	repo := NewSesionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT seats FROM sesiones WHERE id = $1 FOR UPDATE")).
		WithArgs("ses-1").
		WillReturnRows(sqlmock.NewRows([]string{"seats"}).AddRow(15))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM alumno_sesion WHERE sesion_id = $1 AND alumno_id <> $2")).
		WithArgs("ses-1", "alumno-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO alumno_sesion (alumno_id, sesion_id) VALUES ($1, $2) ON CONFLICT DO NOTHING")).
		WithArgs("alumno-1", "ses-1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.AddAsistente(context.Background(), "ses-1", "alumno-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSesionRepositoryAddAsistenteFull(t *testing.T) {
	db, mock, cleanup := newSesionRepoMock(t)
	defer cleanup()
	repo := NewSesionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT seats FROM sesiones WHERE id = $1 FOR UPDATE")).
		WithArgs("ses-1").
		WillReturnRows(sqlmock.NewRows([]string{"seats"}).AddRow(5))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM alumno_sesion WHERE sesion_id = $1 AND alumno_id <> $2")).
		WithArgs("ses-1", "alumno-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectRollback()

	err := repo.AddAsistente(context.Background(), "ses-1", "alumno-1")
	require.ErrorIs(t, err, ErrSesionFull)
	require.NoError(t, mock.ExpectationsWereMet())
}
