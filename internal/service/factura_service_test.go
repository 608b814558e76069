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
	"github.com/aulasoft/academia-engine/pkg/clock"
	"github.com/aulasoft/academia-engine/pkg/config"
	appErrors "github.com/aulasoft/academia-engine/pkg/errors"
	"github.com/aulasoft/academia-engine/pkg/sequence"
)

type mockFacturaRepo struct {
	facturas    map[string]models.Factura
	overdueHits int64
	created     *models.Factura
}

func (m *mockFacturaRepo) List(context.Context, models.FacturaFilter) ([]models.Factura, int, error) {
	return nil, 0, nil
}

func (m *mockFacturaRepo) FindByID(_ context.Context, id string) (*models.Factura, error) {
	if f, ok := m.facturas[id]; ok {
		return &f, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockFacturaRepo) Create(_ context.Context, factura *models.Factura) error {
	if m.facturas == nil {
		m.facturas = make(map[string]models.Factura)
	}
	if factura.ID == "" {
		factura.ID = "new-factura"
	}
	m.facturas[factura.ID] = *factura
	m.created = factura
	return nil
}

func (m *mockFacturaRepo) Update(_ context.Context, factura *models.Factura) error {
	m.facturas[factura.ID] = *factura
	return nil
}

func (m *mockFacturaRepo) UpdateState(_ context.Context, id string, state models.FacturaState, paymentDate *time.Time) error {
	if f, ok := m.facturas[id]; ok {
		f.State = state
		f.PaymentDate = paymentDate
		m.facturas[id] = f
	}
	return nil
}

func (m *mockFacturaRepo) MarkOverdue(context.Context, time.Time) (int64, error) {
	return m.overdueHits, nil
}

func newFacturaService(repo *mockFacturaRepo, clk clock.Clock) *FacturaService {
	alumnos := &mockAlumnoReader{alumnos: map[string]*models.Alumno{
		"alumno-1": {ID: "alumno-1", Active: true},
	}}
	cfg := config.EngineConfig{FacturaSequence: "FAC"}
	return NewFacturaService(repo, alumnos, sequence.NewMemory(clk), cfg, clk, nil, validator.New(), zap.NewNop())
}

func TestFacturaServiceCreateGeneratesReference(t *testing.T) {
	repo := &mockFacturaRepo{}
	clk := clock.At(time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC))
	svc := newFacturaService(repo, clk)

	factura, err := svc.Create(context.Background(), CreateFacturaRequest{
		Name:     models.ReferencePlaceholder,
		AlumnoID: "alumno-1",
		Amount:   120,
		Type:     models.FacturaTypeMonthly,
	})
	require.NoError(t, err)
	assert.Equal(t, "FAC/2026/00001", factura.Name)
	assert.Equal(t, "Mensualidad", factura.Concept)
	assert.Equal(t, models.FacturaStateDraft, factura.State)
	assert.Equal(t, time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), factura.Date)
}

func TestFacturaServiceCreateKeepsExplicitName(t *testing.T) {
	repo := &mockFacturaRepo{}
	svc := newFacturaService(repo, clock.At(time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)))

	factura, err := svc.Create(context.Background(), CreateFacturaRequest{
		Name:     "FAC-MANUAL-7",
		AlumnoID: "alumno-1",
		Amount:   80,
		Concept:  "Libro de texto",
		Type:     models.FacturaTypeMaterials,
	})
	require.NoError(t, err)
	assert.Equal(t, "FAC-MANUAL-7", factura.Name)
	assert.Equal(t, "Libro de texto", factura.Concept)
}

func TestFacturaServiceConfirmAndPay(t *testing.T) {
	repo := &mockFacturaRepo{facturas: map[string]models.Factura{
		"fac-1": {ID: "fac-1", AlumnoID: "alumno-1", Date: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), Amount: 120, State: models.FacturaStateDraft},
	}}
	svc := newFacturaService(repo, clock.At(time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)))

	factura, err := svc.Confirm(context.Background(), "fac-1")
	require.NoError(t, err)
	assert.Equal(t, models.FacturaStatePending, factura.State)

	factura, err = svc.Pay(context.Background(), "fac-1", PayFacturaRequest{PaymentMethod: models.PaymentTransfer})
	require.NoError(t, err)
	assert.Equal(t, models.FacturaStatePaid, factura.State)
	require.NotNil(t, factura.PaymentDate)
	assert.Equal(t, time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), *factura.PaymentDate)
	assert.Equal(t, models.PaymentTransfer, repo.facturas["fac-1"].PaymentMethod)
}

func TestFacturaServicePayRejectsEarlierPaymentDate(t *testing.T) {
	repo := &mockFacturaRepo{facturas: map[string]models.Factura{
		"fac-1": {ID: "fac-1", Date: time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC), State: models.FacturaStatePending},
	}}
	svc := newFacturaService(repo, clock.At(time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)))

	early := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Pay(context.Background(), "fac-1", PayFacturaRequest{
		PaymentMethod: models.PaymentCash,
		PaymentDate:   &early,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestFacturaServicePayRejectsDraft(t *testing.T) {
	repo := &mockFacturaRepo{facturas: map[string]models.Factura{
		"fac-1": {ID: "fac-1", State: models.FacturaStateDraft},
	}}
	svc := newFacturaService(repo, clock.At(time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)))

	_, err := svc.Pay(context.Background(), "fac-1", PayFacturaRequest{PaymentMethod: models.PaymentCash})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestFacturaServiceGetComputesOverdue(t *testing.T) {
	due := time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC)
	repo := &mockFacturaRepo{facturas: map[string]models.Factura{
		"fac-1": {ID: "fac-1", State: models.FacturaStatePending, DueDate: &due},
	}}
	svc := newFacturaService(repo, clock.At(time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)))

	detail, err := svc.Get(context.Background(), "fac-1")
	require.NoError(t, err)
	assert.True(t, detail.IsOverdue)
	assert.Equal(t, 10, detail.DaysOverdue)
}

func TestFacturaServiceMarkOverdue(t *testing.T) {
	repo := &mockFacturaRepo{overdueHits: 4}
	svc := newFacturaService(repo, clock.At(time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)))

	count, err := svc.MarkOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}
