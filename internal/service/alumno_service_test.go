package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aulasoft/academia-engine/internal/models"
	"github.com/aulasoft/academia-engine/pkg/clock"
	appErrors "github.com/aulasoft/academia-engine/pkg/errors"
)

type mockAlumnoRepo struct {
	alumnos map[string]models.Alumno
	created *models.Alumno
}

func (m *mockAlumnoRepo) List(context.Context, models.AlumnoFilter) ([]models.Alumno, int, error) {
	return nil, 0, nil
}

func (m *mockAlumnoRepo) FindByID(_ context.Context, id string) (*models.Alumno, error) {
	if a, ok := m.alumnos[id]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAlumnoRepo) FindDetailByID(_ context.Context, id string) (*models.AlumnoDetail, error) {
	a, ok := m.alumnos[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.AlumnoDetail{Alumno: a}, nil
}

func (m *mockAlumnoRepo) Create(_ context.Context, alumno *models.Alumno) error {
	if m.alumnos == nil {
		m.alumnos = make(map[string]models.Alumno)
	}
	if alumno.ID == "" {
		alumno.ID = "new-alumno"
	}
	m.alumnos[alumno.ID] = *alumno
	m.created = alumno
	return nil
}

func (m *mockAlumnoRepo) Update(_ context.Context, alumno *models.Alumno) error {
	m.alumnos[alumno.ID] = *alumno
	return nil
}

func (m *mockAlumnoRepo) UpdateState(_ context.Context, id string, state models.AlumnoState) error {
	a := m.alumnos[id]
	a.State = state
	m.alumnos[id] = a
	return nil
}

func newAlumnoService(repo *mockAlumnoRepo) (*AlumnoService, *recordingSink) {
	sink := &recordingSink{}
	clk := clock.At(time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC))
	return NewAlumnoService(repo, clk, sink, nil, nil), sink
}

func TestAlumnoServiceCreate(t *testing.T) {
	repo := &mockAlumnoRepo{}
	svc, _ := newAlumnoService(repo)

	alumno, err := svc.Create(context.Background(), CreateAlumnoRequest{
		Name:      "María",
		Apellidos: "García López",
		Email:     "maria@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AlumnoStateDraft, alumno.State)
	assert.Equal(t, time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), alumno.EnrollmentDate)
}

func TestAlumnoServiceCreateRejectsFutureBirthdate(t *testing.T) {
	repo := &mockAlumnoRepo{}
	svc, _ := newAlumnoService(repo)

	future := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Create(context.Background(), CreateAlumnoRequest{
		Name:      "María",
		Apellidos: "García López",
		Email:     "maria@example.com",
		Birthdate: &future,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestAlumnoServiceGetComputesDerived(t *testing.T) {
	birth := time.Date(2008, 12, 1, 0, 0, 0, 0, time.UTC)
	repo := &mockAlumnoRepo{alumnos: map[string]models.Alumno{
		"alu-1": {ID: "alu-1", Name: "María", Apellidos: "García López", Birthdate: &birth},
	}}
	svc, _ := newAlumnoService(repo)

	detail, err := svc.Get(context.Background(), "alu-1")
	require.NoError(t, err)
	assert.Equal(t, "María García López", detail.DisplayName)
	// Birthday in December has not passed yet on 2026-08-29.
	assert.Equal(t, 17, detail.Age)
}

func TestAlumnoServiceLifecycle(t *testing.T) {
	repo := &mockAlumnoRepo{alumnos: map[string]models.Alumno{
		"alu-1": {ID: "alu-1", State: models.AlumnoStateEnrolled},
	}}
	svc, sink := newAlumnoService(repo)
	ctx := context.Background()

	alumno, err := svc.Activate(ctx, "alu-1")
	require.NoError(t, err)
	assert.Equal(t, models.AlumnoStateActive, alumno.State)

	alumno, err = svc.Suspend(ctx, "alu-1")
	require.NoError(t, err)
	assert.Equal(t, models.AlumnoStateSuspended, alumno.State)

	alumno, err = svc.Activate(ctx, "alu-1")
	require.NoError(t, err)
	assert.Equal(t, models.AlumnoStateActive, alumno.State)

	_, err = svc.Complete(ctx, "alu-1")
	require.NoError(t, err)

	assert.Contains(t, sink.transitions, "alumno:alu-1:enrolled->active")
	assert.Contains(t, sink.transitions, "alumno:alu-1:active->completed")
}

func TestAlumnoServiceCompleteRequiresActive(t *testing.T) {
	repo := &mockAlumnoRepo{alumnos: map[string]models.Alumno{
		"alu-1": {ID: "alu-1", State: models.AlumnoStateDraft},
	}}
	svc, _ := newAlumnoService(repo)

	_, err := svc.Complete(context.Background(), "alu-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}
