package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/aulasoft/academia-engine/internal/audit"
	"github.com/aulasoft/academia-engine/internal/compute"
	"github.com/aulasoft/academia-engine/internal/models"
	"github.com/aulasoft/academia-engine/internal/repository"
	"github.com/aulasoft/academia-engine/internal/rules"
	"github.com/aulasoft/academia-engine/pkg/clock"
	"github.com/aulasoft/academia-engine/pkg/config"
	appErrors "github.com/aulasoft/academia-engine/pkg/errors"
	"github.com/aulasoft/academia-engine/pkg/sequence"
)

type matriculaRepository interface {
	List(ctx context.Context, filter models.MatriculaFilter) ([]models.Matricula, int, error)
	FindByID(ctx context.Context, id string) (*models.Matricula, error)
	FindDetailByID(ctx context.Context, id string) (*models.MatriculaDetail, error)
	ExistsForAlumnoCursoFecha(ctx context.Context, alumnoID, cursoID string, fechaInicio time.Time, excludeID string) (bool, error)
	Create(ctx context.Context, matricula *models.Matricula) error
	Update(ctx context.Context, matricula *models.Matricula) error
	UpdateState(ctx context.Context, id string, state models.MatriculaState) error
	Confirm(ctx context.Context, matricula *models.Matricula) error
	Pay(ctx context.Context, matricula *models.Matricula, factura *models.Factura) error
}

// CreateMatriculaRequest describes enrollment creation. A nil Descuento or
// ImporteMatricula falls back to zero discount and the configured default
// enrollment fee; the course price is snapshotted at creation time.
type CreateMatriculaRequest struct {
	AlumnoID         string     `json:"alumno_id" validate:"required"`
	CursoID          string     `json:"curso_id" validate:"required"`
	ClaseID          *string    `json:"clase_id"`
	FechaInicio      time.Time  `json:"fecha_inicio" validate:"required"`
	FechaFin         *time.Time `json:"fecha_fin"`
	Descuento        *float64   `json:"descuento"`
	ImporteMatricula *float64   `json:"importe_matricula"`
	Notes            string     `json:"notes"`
}

// UpdateMatriculaRequest describes an enrollment update. Nil fields stay
// unchanged. Only draft enrollments accept updates.
type UpdateMatriculaRequest struct {
	ClaseID          *string    `json:"clase_id"`
	FechaInicio      *time.Time `json:"fecha_inicio"`
	FechaFin         *time.Time `json:"fecha_fin"`
	Descuento        *float64   `json:"descuento"`
	ImporteMatricula *float64   `json:"importe_matricula"`
	Notes            *string    `json:"notes"`
}

// PayMatriculaRequest carries the payment details for the pay transition.
type PayMatriculaRequest struct {
	PaymentMethod models.PaymentMethod `json:"payment_method" validate:"required,oneof=cash card transfer domiciliation other"`
}

// MatriculaService drives the enrollment workflow
// draft -> confirmed -> paid, with cancellation and reversion to draft.
type MatriculaService struct {
	repo      matriculaRepository
	alumnos   alumnoReader
	cursos    cursoReader
	clases    claseReader
	seq       sequence.Generator
	graph     *compute.Recalculator[models.Matricula]
	cfg       config.EngineConfig
	clk       clock.Clock
	sink      audit.Sink
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMatriculaService constructs MatriculaService.
func NewMatriculaService(repo matriculaRepository, alumnos alumnoReader, cursos cursoReader, clases claseReader, seq sequence.Generator, cfg config.EngineConfig, clk clock.Clock, sink audit.Sink, validate *validator.Validate, logger *zap.Logger) *MatriculaService {
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
	return &MatriculaService{
		repo:      repo,
		alumnos:   alumnos,
		cursos:    cursos,
		clases:    clases,
		seq:       seq,
		graph:     compute.MatriculaGraph(),
		cfg:       cfg,
		clk:       clk,
		sink:      sink,
		validator: validate,
		logger:    logger,
	}
}

// List returns enrollments with pagination metadata.
func (s *MatriculaService) List(ctx context.Context, filter models.MatriculaFilter) ([]models.Matricula, *models.Pagination, error) {
	matriculas, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list matriculas")
	}
	return matriculas, paginate(filter.Page, filter.PageSize, total), nil
}

// Get returns an enrollment with its student, course and class names.
func (s *MatriculaService) Get(ctx context.Context, id string) (*models.MatriculaDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "matricula not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load matricula")
	}
	return detail, nil
}

// Create registers a new enrollment in draft state. The reference number is
// generated from the yearly sequence, the course price is snapshotted and
// the derived totals are computed before any rule runs.
func (s *MatriculaService) Create(ctx context.Context, req CreateMatriculaRequest) (*models.Matricula, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid matricula payload")
	}
	if _, err := s.alumnos.FindByID(ctx, req.AlumnoID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "alumno not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load alumno")
	}
	curso, err := s.cursos.FindByID(ctx, req.CursoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "curso not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load curso")
	}
	if req.ClaseID != nil {
		clase, err := s.clases.FindByID(ctx, *req.ClaseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "clase not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load clase")
		}
		if clase.CursoID != req.CursoID {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				"la clase seleccionada no pertenece al curso de la matrícula")
		}
	}
	exists, err := s.repo.ExistsForAlumnoCursoFecha(ctx, req.AlumnoID, req.CursoID, req.FechaInicio, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate matricula")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict,
			"el alumno ya tiene una matrícula en este curso para la misma fecha de inicio")
	}

	name, err := s.seq.Next(ctx, s.cfg.MatriculaSequence)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate matricula reference")
	}
	matricula := &models.Matricula{
		Name:             name,
		AlumnoID:         req.AlumnoID,
		CursoID:          req.CursoID,
		ClaseID:          req.ClaseID,
		FechaMatricula:   clock.Today(s.clk),
		FechaInicio:      req.FechaInicio,
		FechaFin:         req.FechaFin,
		ImporteCurso:     curso.Price,
		ImporteMatricula: s.cfg.DefaultImporteMatricula,
		Notes:            req.Notes,
		State:            models.MatriculaStateDraft,
		Active:           true,
	}
	if req.Descuento != nil {
		matricula.Descuento = *req.Descuento
	}
	if req.ImporteMatricula != nil {
		matricula.ImporteMatricula = *req.ImporteMatricula
	}
	s.graph.Recompute(matricula)
	if err := rules.CheckMatricula(*matricula).Err(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, matricula); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create matricula")
	}
	s.logger.Info("matricula created",
		zap.String("matricula_id", matricula.ID),
		zap.String("name", matricula.Name),
		zap.Float64("importe_total", matricula.ImporteTotal),
	)
	return matricula, nil
}

// Update applies partial changes to a draft enrollment and recomputes the
// money fields.
func (s *MatriculaService) Update(ctx context.Context, id string, req UpdateMatriculaRequest) (*models.Matricula, error) {
	matricula, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "matricula not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load matricula")
	}
	if matricula.State != models.MatriculaStateDraft {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed,
			"solo se pueden modificar matrículas en borrador")
	}
	if req.ClaseID != nil {
		clase, err := s.clases.FindByID(ctx, *req.ClaseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "clase not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load clase")
		}
		if clase.CursoID != matricula.CursoID {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				"la clase seleccionada no pertenece al curso de la matrícula")
		}
		matricula.ClaseID = req.ClaseID
	}
	if req.FechaInicio != nil {
		exists, err := s.repo.ExistsForAlumnoCursoFecha(ctx, matricula.AlumnoID, matricula.CursoID, *req.FechaInicio, matricula.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate matricula")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict,
				"el alumno ya tiene una matrícula en este curso para la misma fecha de inicio")
		}
		matricula.FechaInicio = *req.FechaInicio
	}
	if req.FechaFin != nil {
		matricula.FechaFin = req.FechaFin
	}
	if req.Descuento != nil {
		matricula.Descuento = *req.Descuento
	}
	if req.ImporteMatricula != nil {
		matricula.ImporteMatricula = *req.ImporteMatricula
	}
	if req.Notes != nil {
		matricula.Notes = *req.Notes
	}
	s.graph.Recompute(matricula, compute.FieldDescuento, compute.FieldImporteMat)
	if err := rules.CheckMatricula(*matricula).Err(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, matricula); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update matricula")
	}
	return matricula, nil
}

// Confirm transitions a draft enrollment to confirmed. When a class group is
// assigned the student joins its roster atomically, subject to capacity.
func (s *MatriculaService) Confirm(ctx context.Context, id string) (*models.Matricula, error) {
	matricula, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "matricula not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load matricula")
	}
	if matricula.State != models.MatriculaStateDraft {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed,
			transitionMessage("matricula", string(matricula.State), string(models.MatriculaStateConfirmed)))
	}
	if err := s.repo.Confirm(ctx, matricula); err != nil {
		if errors.Is(err, repository.ErrClaseFull) {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				"la clase asignada ha alcanzado su capacidad máxima")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to confirm matricula")
	}
	s.sink.Transition(ctx, "matricula", id, string(models.MatriculaStateDraft), string(models.MatriculaStateConfirmed))
	return matricula, nil
}

// Pay settles a confirmed enrollment: the invoice is created, the amounts
// are marked paid and the student leaves draft, all atomically.
func (s *MatriculaService) Pay(ctx context.Context, id string, req PayMatriculaRequest) (*models.Matricula, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	matricula, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "matricula not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load matricula")
	}
	if matricula.State != models.MatriculaStateConfirmed {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed,
			transitionMessage("matricula", string(matricula.State), string(models.MatriculaStatePaid)))
	}

	curso, err := s.cursos.FindByID(ctx, matricula.CursoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "curso not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load curso")
	}

	reference, err := s.seq.Next(ctx, s.cfg.FacturaSequence)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate factura reference")
	}
	today := clock.Today(s.clk)
	factura := &models.Factura{
		Name:          reference,
		AlumnoID:      matricula.AlumnoID,
		CursoID:       &matricula.CursoID,
		ClaseID:       matricula.ClaseID,
		Date:          today,
		PaymentDate:   &today,
		Amount:        matricula.ImporteTotal,
		Concept:       fmt.Sprintf("Matrícula %s - %s", matricula.Name, curso.Name),
		PaymentMethod: req.PaymentMethod,
		Type:          models.FacturaTypeEnrollment,
		State:         models.FacturaStatePaid,
		Active:        true,
	}
	if err := s.repo.Pay(ctx, matricula, factura); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to pay matricula")
	}
	s.sink.Transition(ctx, "matricula", id, string(models.MatriculaStateConfirmed), string(models.MatriculaStatePaid))
	s.logger.Info("matricula paid",
		zap.String("matricula_id", id),
		zap.String("factura_id", factura.ID),
		zap.Float64("amount", factura.Amount),
	)
	return matricula, nil
}

// Cancel cancels a draft or confirmed enrollment. Paid enrollments cannot
// be cancelled. The class roster keeps the student; removing them stays a
// separate explicit operation.
func (s *MatriculaService) Cancel(ctx context.Context, id string) (*models.Matricula, error) {
	matricula, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "matricula not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load matricula")
	}
	if matricula.State == models.MatriculaStatePaid {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed,
			"no se puede cancelar una matrícula pagada")
	}
	if matricula.State == models.MatriculaStateCancelled {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed,
			transitionMessage("matricula", string(matricula.State), string(models.MatriculaStateCancelled)))
	}
	prev := matricula.State
	if err := s.repo.UpdateState(ctx, id, models.MatriculaStateCancelled); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel matricula")
	}
	matricula.State = models.MatriculaStateCancelled
	s.sink.Transition(ctx, "matricula", id, string(prev), string(models.MatriculaStateCancelled))
	return matricula, nil
}

// RevertToDraft returns a confirmed or cancelled enrollment to draft. The
// payment fields and the generated reference stay untouched.
func (s *MatriculaService) RevertToDraft(ctx context.Context, id string) (*models.Matricula, error) {
	matricula, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "matricula not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load matricula")
	}
	if matricula.State != models.MatriculaStateConfirmed && matricula.State != models.MatriculaStateCancelled {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed,
			transitionMessage("matricula", string(matricula.State), string(models.MatriculaStateDraft)))
	}
	prev := matricula.State
	if err := s.repo.UpdateState(ctx, id, models.MatriculaStateDraft); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revert matricula")
	}
	matricula.State = models.MatriculaStateDraft
	s.sink.Transition(ctx, "matricula", id, string(prev), string(models.MatriculaStateDraft))
	return matricula, nil
}
