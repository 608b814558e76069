package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/aulasoft/academia-engine/internal/audit"
	"github.com/aulasoft/academia-engine/internal/compute"
	"github.com/aulasoft/academia-engine/internal/models"
	"github.com/aulasoft/academia-engine/internal/rules"
	"github.com/aulasoft/academia-engine/pkg/clock"
	"github.com/aulasoft/academia-engine/pkg/config"
	appErrors "github.com/aulasoft/academia-engine/pkg/errors"
	"github.com/aulasoft/academia-engine/pkg/sequence"
)

type facturaRepository interface {
	List(ctx context.Context, filter models.FacturaFilter) ([]models.Factura, int, error)
	FindByID(ctx context.Context, id string) (*models.Factura, error)
	Create(ctx context.Context, factura *models.Factura) error
	Update(ctx context.Context, factura *models.Factura) error
	UpdateState(ctx context.Context, id string, state models.FacturaState, paymentDate *time.Time) error
	MarkOverdue(ctx context.Context, today time.Time) (int64, error)
}

// CreateFacturaRequest describes invoice creation. Leaving Name empty or at
// the placeholder value generates the next reference; leaving Concept empty
// fills in the concept suggested by the invoice type.
type CreateFacturaRequest struct {
	Name          string               `json:"name"`
	AlumnoID      string               `json:"alumno_id" validate:"required"`
	CursoID       *string              `json:"curso_id"`
	ClaseID       *string              `json:"clase_id"`
	Date          time.Time            `json:"date"`
	DueDate       *time.Time           `json:"due_date"`
	Amount        float64              `json:"amount" validate:"gte=0"`
	Concept       string               `json:"concept"`
	Description   string               `json:"description"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	Type          models.FacturaType   `json:"invoice_type" validate:"required,oneof=enrollment monthly materials exam certificate other"`
}

// PayFacturaRequest carries the payment details for the pay transition.
type PayFacturaRequest struct {
	PaymentMethod models.PaymentMethod `json:"payment_method" validate:"required,oneof=cash card transfer domiciliation other"`
	PaymentDate   *time.Time           `json:"payment_date"`
}

// FacturaService manages invoices and the overdue sweep.
type FacturaService struct {
	repo      facturaRepository
	alumnos   alumnoReader
	seq       sequence.Generator
	graph     *compute.Recalculator[models.FacturaDetail]
	cfg       config.EngineConfig
	clk       clock.Clock
	sink      audit.Sink
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFacturaService constructs FacturaService.
func NewFacturaService(repo facturaRepository, alumnos alumnoReader, seq sequence.Generator, cfg config.EngineConfig, clk clock.Clock, sink audit.Sink, validate *validator.Validate, logger *zap.Logger) *FacturaService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.System{}
	}
	if sink == nil {
		sink = audit.Nop{}
	}
	if seq == nil {
		seq = sequence.NewMemory(clk)
	}
	return &FacturaService{
		repo:      repo,
		alumnos:   alumnos,
		seq:       seq,
		graph:     compute.FacturaGraph(clk),
		cfg:       cfg,
		clk:       clk,
		sink:      sink,
		validator: validate,
		logger:    logger,
	}
}

// List returns invoices with pagination metadata.
func (s *FacturaService) List(ctx context.Context, filter models.FacturaFilter) ([]models.Factura, *models.Pagination, error) {
	facturas, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list facturas")
	}
	return facturas, paginate(filter.Page, filter.PageSize, total), nil
}

// Get returns an invoice with its overdue flags recomputed.
func (s *FacturaService) Get(ctx context.Context, id string) (*models.FacturaDetail, error) {
	factura, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "factura not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load factura")
	}
	detail := &models.FacturaDetail{Factura: *factura}
	s.graph.Recompute(detail)
	return detail, nil
}

// Create registers a new invoice in draft state.
func (s *FacturaService) Create(ctx context.Context, req CreateFacturaRequest) (*models.Factura, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid factura payload")
	}
	if _, err := s.alumnos.FindByID(ctx, req.AlumnoID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "alumno not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load alumno")
	}
	name := req.Name
	if name == "" || name == models.ReferencePlaceholder {
		generated, err := s.seq.Next(ctx, s.cfg.FacturaSequence)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate factura reference")
		}
		name = generated
	}
	concept := req.Concept
	if concept == "" {
		concept = req.Type.SuggestedConcept()
	}
	date := req.Date
	if date.IsZero() {
		date = clock.Today(s.clk)
	}
	factura := &models.Factura{
		Name:          name,
		AlumnoID:      req.AlumnoID,
		CursoID:       req.CursoID,
		ClaseID:       req.ClaseID,
		Date:          date,
		DueDate:       req.DueDate,
		Amount:        req.Amount,
		Concept:       concept,
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
		Type:          req.Type,
		State:         models.FacturaStateDraft,
		Active:        true,
	}
	if err := rules.CheckFactura(*factura).Err(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, factura); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create factura")
	}
	s.logger.Info("factura created",
		zap.String("factura_id", factura.ID),
		zap.String("name", factura.Name),
		zap.Float64("amount", factura.Amount),
	)
	return factura, nil
}

// Confirm issues a draft invoice, moving it to pending.
func (s *FacturaService) Confirm(ctx context.Context, id string) (*models.Factura, error) {
	factura, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if factura.State != models.FacturaStateDraft {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed,
			transitionMessage("factura", string(factura.State), string(models.FacturaStatePending)))
	}
	return s.applyTransition(ctx, factura, models.FacturaStatePending, nil)
}

// Pay settles a pending or overdue invoice.
func (s *FacturaService) Pay(ctx context.Context, id string, req PayFacturaRequest) (*models.Factura, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	factura, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if factura.State != models.FacturaStatePending && factura.State != models.FacturaStateOverdue {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed,
			transitionMessage("factura", string(factura.State), string(models.FacturaStatePaid)))
	}
	paymentDate := req.PaymentDate
	if paymentDate == nil {
		today := clock.Today(s.clk)
		paymentDate = &today
	}
	if paymentDate.Before(factura.Date) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			"la fecha de pago no puede ser anterior a la fecha de factura")
	}
	prev := factura.State
	factura.PaymentMethod = req.PaymentMethod
	factura.PaymentDate = paymentDate
	factura.State = models.FacturaStatePaid
	if err := s.repo.Update(ctx, factura); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to pay factura")
	}
	s.sink.Transition(ctx, "factura", factura.ID, string(prev), string(models.FacturaStatePaid))
	return factura, nil
}

// Cancel voids a draft, pending or overdue invoice.
func (s *FacturaService) Cancel(ctx context.Context, id string) (*models.Factura, error) {
	factura, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch factura.State {
	case models.FacturaStateDraft, models.FacturaStatePending, models.FacturaStateOverdue:
	default:
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed,
			transitionMessage("factura", string(factura.State), string(models.FacturaStateCancelled)))
	}
	return s.applyTransition(ctx, factura, models.FacturaStateCancelled, nil)
}

// Draft returns a pending or cancelled invoice to draft.
func (s *FacturaService) Draft(ctx context.Context, id string) (*models.Factura, error) {
	factura, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if factura.State != models.FacturaStatePending && factura.State != models.FacturaStateCancelled {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed,
			transitionMessage("factura", string(factura.State), string(models.FacturaStateDraft)))
	}
	return s.applyTransition(ctx, factura, models.FacturaStateDraft, nil)
}

// MarkOverdue flips every pending invoice past its due date to overdue and
// returns how many were flipped. Intended to run on a schedule.
func (s *FacturaService) MarkOverdue(ctx context.Context) (int64, error) {
	count, err := s.repo.MarkOverdue(ctx, clock.Today(s.clk))
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark facturas overdue")
	}
	if count > 0 {
		s.logger.Info("facturas marked overdue", zap.Int64("count", count))
	}
	return count, nil
}

func (s *FacturaService) load(ctx context.Context, id string) (*models.Factura, error) {
	factura, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "factura not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load factura")
	}
	return factura, nil
}

func (s *FacturaService) applyTransition(ctx context.Context, factura *models.Factura, to models.FacturaState, paymentDate *time.Time) (*models.Factura, error) {
	prev := factura.State
	if err := s.repo.UpdateState(ctx, factura.ID, to, paymentDate); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update factura state")
	}
	factura.State = to
	s.sink.Transition(ctx, "factura", factura.ID, string(prev), string(to))
	return factura, nil
}
