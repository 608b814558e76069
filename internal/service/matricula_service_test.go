package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aulasoft/academia-engine/internal/models"
	"github.com/aulasoft/academia-engine/internal/repository"
	"github.com/aulasoft/academia-engine/pkg/clock"
	"github.com/aulasoft/academia-engine/pkg/config"
	appErrors "github.com/aulasoft/academia-engine/pkg/errors"
	"github.com/aulasoft/academia-engine/pkg/sequence"
)

type mockMatriculaRepo struct {
	matriculas map[string]models.Matricula
	duplicates bool
	claseFull  bool
	created    *models.Matricula
	paidWith   *models.Factura
}

func (m *mockMatriculaRepo) List(context.Context, models.MatriculaFilter) ([]models.Matricula, int, error) {
	return nil, 0, nil
}

func (m *mockMatriculaRepo) FindByID(_ context.Context, id string) (*models.Matricula, error) {
	if mat, ok := m.matriculas[id]; ok {
		return &mat, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockMatriculaRepo) FindDetailByID(_ context.Context, id string) (*models.MatriculaDetail, error) {
	if mat, ok := m.matriculas[id]; ok {
		return &models.MatriculaDetail{Matricula: mat}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockMatriculaRepo) ExistsForAlumnoCursoFecha(context.Context, string, string, time.Time, string) (bool, error) {
	return m.duplicates, nil
}

func (m *mockMatriculaRepo) Create(_ context.Context, matricula *models.Matricula) error {
	if m.matriculas == nil {
		m.matriculas = make(map[string]models.Matricula)
	}
	if matricula.ID == "" {
		matricula.ID = "new-matricula"
	}
	m.matriculas[matricula.ID] = *matricula
	m.created = matricula
	return nil
}

func (m *mockMatriculaRepo) Update(_ context.Context, matricula *models.Matricula) error {
	m.matriculas[matricula.ID] = *matricula
	return nil
}

func (m *mockMatriculaRepo) UpdateState(_ context.Context, id string, state models.MatriculaState) error {
	if mat, ok := m.matriculas[id]; ok {
		mat.State = state
		m.matriculas[id] = mat
	}
	return nil
}

func (m *mockMatriculaRepo) Confirm(_ context.Context, matricula *models.Matricula) error {
	if m.claseFull {
		return repository.ErrClaseFull
	}
	matricula.State = models.MatriculaStateConfirmed
	m.matriculas[matricula.ID] = *matricula
	return nil
}

func (m *mockMatriculaRepo) Pay(_ context.Context, matricula *models.Matricula, factura *models.Factura) error {
	factura.ID = "new-factura"
	matricula.State = models.MatriculaStatePaid
	matricula.FacturaID = &factura.ID
	matricula.ImportePagado = matricula.ImporteTotal
	matricula.ImportePendiente = 0
	m.matriculas[matricula.ID] = *matricula
	m.paidWith = factura
	return nil
}

func newMatriculaService(repo *mockMatriculaRepo, clk clock.Clock) (*MatriculaService, *recordingSink) {
	alumnos := &mockAlumnoReader{alumnos: map[string]*models.Alumno{
		"alumno-1": {ID: "alumno-1", State: models.AlumnoStateDraft, Active: true},
	}}
	cursos := &mockCursoReader{cursos: map[string]*models.Curso{
		"curso-1": {ID: "curso-1", Name: "Inglés B2", Nivel: "b2", Price: 500, Active: true},
		"curso-2": {ID: "curso-2", Name: "Francés A1", Nivel: "a1", Price: 300, Active: true},
	}}
	clases := &mockClaseReader{clases: map[string]*models.Clase{
		"clase-1": {ID: "clase-1", CursoID: "curso-1", MaxAlumnos: 10},
	}}
	sink := &recordingSink{}
	cfg := config.EngineConfig{
		DefaultImporteMatricula: 50,
		MatriculaSequence:       "MAT",
		FacturaSequence:         "FAC",
	}
	svc := NewMatriculaService(repo, alumnos, cursos, clases,
		sequence.NewMemory(clk), cfg, clk, sink, validator.New(), zap.NewNop())
	return svc, sink
}

func TestMatriculaServiceCreateComputesTotals(t *testing.T) {
	repo := &mockMatriculaRepo{}
	clk := clock.At(time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC))
	svc, _ := newMatriculaService(repo, clk)

	descuento := 10.0
	matricula, err := svc.Create(context.Background(), CreateMatriculaRequest{
		AlumnoID:    "alumno-1",
		CursoID:     "curso-1",
		FechaInicio: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		Descuento:   &descuento,
	})
	require.NoError(t, err)
	assert.Equal(t, "MAT/2026/00001", matricula.Name)
	assert.Equal(t, 500.0, matricula.ImporteCurso)
	assert.Equal(t, 500.0, matricula.ImporteTotal) // 500*0.9 + 50
	assert.Equal(t, 500.0, matricula.ImportePendiente)
	assert.Equal(t, models.MatriculaStateDraft, matricula.State)
}

func TestMatriculaServiceCreateRejectsDuplicate(t *testing.T) {
	repo := &mockMatriculaRepo{duplicates: true}
	svc, _ := newMatriculaService(repo, clock.At(time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)))

	_, err := svc.Create(context.Background(), CreateMatriculaRequest{
		AlumnoID:    "alumno-1",
		CursoID:     "curso-1",
		FechaInicio: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestMatriculaServiceCreateRejectsForeignClase(t *testing.T) {
	repo := &mockMatriculaRepo{}
	svc, _ := newMatriculaService(repo, clock.At(time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)))

	claseID := "clase-1"
	_, err := svc.Create(context.Background(), CreateMatriculaRequest{
		AlumnoID:    "alumno-1",
		CursoID:     "curso-2",
		ClaseID:     &claseID,
		FechaInicio: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestMatriculaServiceCreateRejectsBadDescuento(t *testing.T) {
	repo := &mockMatriculaRepo{}
	svc, _ := newMatriculaService(repo, clock.At(time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)))

	descuento := 120.0
	_, err := svc.Create(context.Background(), CreateMatriculaRequest{
		AlumnoID:    "alumno-1",
		CursoID:     "curso-1",
		FechaInicio: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		Descuento:   &descuento,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestMatriculaServiceConfirm(t *testing.T) {
	repo := &mockMatriculaRepo{matriculas: map[string]models.Matricula{
		"mat-1": {ID: "mat-1", AlumnoID: "alumno-1", CursoID: "curso-1", State: models.MatriculaStateDraft},
	}}
	svc, sink := newMatriculaService(repo, clock.At(time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)))

	matricula, err := svc.Confirm(context.Background(), "mat-1")
	require.NoError(t, err)
	assert.Equal(t, models.MatriculaStateConfirmed, matricula.State)
	assert.Contains(t, sink.transitions, "matricula:mat-1:draft->confirmed")
}

func TestMatriculaServiceConfirmRejectsNonDraft(t *testing.T) {
	repo := &mockMatriculaRepo{matriculas: map[string]models.Matricula{
		"mat-1": {ID: "mat-1", State: models.MatriculaStatePaid},
	}}
	svc, _ := newMatriculaService(repo, clock.At(time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)))

	_, err := svc.Confirm(context.Background(), "mat-1")
	require.Error(t, err)
	e := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, e.Code)
	assert.Contains(t, e.Message, "paid")
	assert.Contains(t, e.Message, "confirmed")
}

func TestMatriculaServiceConfirmClaseFull(t *testing.T) {
	claseID := "clase-1"
	repo := &mockMatriculaRepo{
		matriculas: map[string]models.Matricula{
			"mat-1": {ID: "mat-1", AlumnoID: "alumno-1", ClaseID: &claseID, State: models.MatriculaStateDraft},
		},
		claseFull: true,
	}
	svc, _ := newMatriculaService(repo, clock.At(time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)))

	_, err := svc.Confirm(context.Background(), "mat-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestMatriculaServicePay(t *testing.T) {
	repo := &mockMatriculaRepo{matriculas: map[string]models.Matricula{
		"mat-1": {
			ID: "mat-1", Name: "MAT/2026/00042",
			AlumnoID: "alumno-1", CursoID: "curso-1",
			State:        models.MatriculaStateConfirmed,
			ImporteCurso: 500, Descuento: 10, ImporteMatricula: 50,
			ImporteTotal: 500, ImportePendiente: 500,
		},
	}}
	clk := clock.At(time.Date(2026, 8, 29, 15, 0, 0, 0, time.UTC))
	svc, sink := newMatriculaService(repo, clk)

	matricula, err := svc.Pay(context.Background(), "mat-1", PayMatriculaRequest{PaymentMethod: models.PaymentCard})
	require.NoError(t, err)
	assert.Equal(t, models.MatriculaStatePaid, matricula.State)
	assert.Equal(t, 500.0, matricula.ImportePagado)
	assert.Equal(t, 0.0, matricula.ImportePendiente)
	require.NotNil(t, matricula.FacturaID)

	require.NotNil(t, repo.paidWith)
	assert.Equal(t, 500.0, repo.paidWith.Amount)
	assert.Equal(t, "FAC/2026/00001", repo.paidWith.Name)
	assert.Equal(t, models.FacturaStatePaid, repo.paidWith.State)
	assert.Equal(t, "Matrícula MAT/2026/00042 - Inglés B2", repo.paidWith.Concept)
	assert.Contains(t, sink.transitions, "matricula:mat-1:confirmed->paid")
}

func TestMatriculaServicePayRejectsDraft(t *testing.T) {
	repo := &mockMatriculaRepo{matriculas: map[string]models.Matricula{
		"mat-1": {ID: "mat-1", State: models.MatriculaStateDraft},
	}}
	svc, _ := newMatriculaService(repo, clock.At(time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)))

	_, err := svc.Pay(context.Background(), "mat-1", PayMatriculaRequest{PaymentMethod: models.PaymentCash})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestMatriculaServiceCancelRejectsPaid(t *testing.T) {
	repo := &mockMatriculaRepo{matriculas: map[string]models.Matricula{
		"mat-1": {ID: "mat-1", State: models.MatriculaStatePaid},
	}}
	svc, _ := newMatriculaService(repo, clock.At(time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)))

	_, err := svc.Cancel(context.Background(), "mat-1")
	require.Error(t, err)
	e := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, e.Code)
	assert.Equal(t, models.MatriculaStatePaid, repo.matriculas["mat-1"].State)
}

func TestMatriculaServiceCancelConfirmed(t *testing.T) {
	repo := &mockMatriculaRepo{matriculas: map[string]models.Matricula{
		"mat-1": {ID: "mat-1", State: models.MatriculaStateConfirmed},
	}}
	svc, sink := newMatriculaService(repo, clock.At(time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)))

	matricula, err := svc.Cancel(context.Background(), "mat-1")
	require.NoError(t, err)
	assert.Equal(t, models.MatriculaStateCancelled, matricula.State)
	assert.Contains(t, sink.transitions, "matricula:mat-1:confirmed->cancelled")
}

func TestMatriculaServiceRevertToDraftKeepsAmounts(t *testing.T) {
	facturaID := "fac-1"
	repo := &mockMatriculaRepo{matriculas: map[string]models.Matricula{
		"mat-1": {
			ID: "mat-1", Name: "MAT/2026/00007", State: models.MatriculaStateCancelled,
			FacturaID: &facturaID, ImportePagado: 500, ImporteTotal: 500,
		},
	}}
	svc, _ := newMatriculaService(repo, clock.At(time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)))

	matricula, err := svc.RevertToDraft(context.Background(), "mat-1")
	require.NoError(t, err)
	assert.Equal(t, models.MatriculaStateDraft, matricula.State)
	assert.Equal(t, "MAT/2026/00007", matricula.Name)
	assert.Equal(t, 500.0, matricula.ImportePagado)
	require.NotNil(t, matricula.FacturaID)
}

func TestMatriculaServiceSequenceIncrements(t *testing.T) {
	repo := &mockMatriculaRepo{}
	clk := clock.At(time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC))
	svc, _ := newMatriculaService(repo, clk)

	first, err := svc.Create(context.Background(), CreateMatriculaRequest{
		AlumnoID:    "alumno-1",
		CursoID:     "curso-1",
		FechaInicio: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), CreateMatriculaRequest{
		AlumnoID:    "alumno-1",
		CursoID:     "curso-1",
		FechaInicio: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "MAT/2026/00001", first.Name)
	assert.Equal(t, "MAT/2026/00002", second.Name)
}
