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
	appErrors "github.com/aulasoft/academia-engine/pkg/errors"
)

type alumnoRepository interface {
	List(ctx context.Context, filter models.AlumnoFilter) ([]models.Alumno, int, error)
	FindByID(ctx context.Context, id string) (*models.Alumno, error)
	FindDetailByID(ctx context.Context, id string) (*models.AlumnoDetail, error)
	Create(ctx context.Context, alumno *models.Alumno) error
	Update(ctx context.Context, alumno *models.Alumno) error
	UpdateState(ctx context.Context, id string, state models.AlumnoState) error
}

// CreateAlumnoRequest describes student creation.
type CreateAlumnoRequest struct {
	Name      string     `json:"name" validate:"required"`
	Apellidos string     `json:"apellidos" validate:"required"`
	Email     string     `json:"email" validate:"required,email"`
	Phone     string     `json:"phone"`
	DNI       string     `json:"dni"`
	Address   string     `json:"address"`
	Birthdate *time.Time `json:"birthdate"`
}

// UpdateAlumnoRequest describes a student update. Nil fields stay unchanged.
type UpdateAlumnoRequest struct {
	Name      *string    `json:"name"`
	Apellidos *string    `json:"apellidos"`
	Email     *string    `json:"email"`
	Phone     *string    `json:"phone"`
	DNI       *string    `json:"dni"`
	Address   *string    `json:"address"`
	Birthdate *time.Time `json:"birthdate"`
	Active    *bool      `json:"active"`
}

// AlumnoService manages student records.
type AlumnoService struct {
	repo      alumnoRepository
	graph     *compute.Recalculator[models.AlumnoDetail]
	clk       clock.Clock
	sink      audit.Sink
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAlumnoService constructs AlumnoService.
func NewAlumnoService(repo alumnoRepository, clk clock.Clock, sink audit.Sink, validate *validator.Validate, logger *zap.Logger) *AlumnoService {
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
	return &AlumnoService{
		repo:      repo,
		graph:     compute.AlumnoGraph(clk),
		clk:       clk,
		sink:      sink,
		validator: validate,
		logger:    logger,
	}
}

// List returns students with pagination metadata.
func (s *AlumnoService) List(ctx context.Context, filter models.AlumnoFilter) ([]models.Alumno, *models.Pagination, error) {
	alumnos, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list alumnos")
	}
	return alumnos, paginate(filter.Page, filter.PageSize, total), nil
}

// Get returns a student with display name, age and billing balance.
func (s *AlumnoService) Get(ctx context.Context, id string) (*models.AlumnoDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "alumno not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load alumno")
	}
	s.graph.Recompute(detail)
	return detail, nil
}

// Create registers a new student in draft state.
func (s *AlumnoService) Create(ctx context.Context, req CreateAlumnoRequest) (*models.Alumno, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid alumno payload")
	}
	alumno := &models.Alumno{
		Name:           req.Name,
		Apellidos:      req.Apellidos,
		Email:          req.Email,
		Phone:          req.Phone,
		DNI:            req.DNI,
		Address:        req.Address,
		Birthdate:      req.Birthdate,
		EnrollmentDate: clock.Today(s.clk),
		State:          models.AlumnoStateDraft,
		Active:         true,
	}
	if err := rules.CheckAlumno(*alumno, clock.Today(s.clk)).Err(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, alumno); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create alumno")
	}
	s.logger.Info("alumno created", zap.String("alumno_id", alumno.ID))
	return alumno, nil
}

// Update applies partial changes to a student.
func (s *AlumnoService) Update(ctx context.Context, id string, req UpdateAlumnoRequest) (*models.Alumno, error) {
	alumno, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "alumno not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load alumno")
	}
	if req.Name != nil {
		alumno.Name = *req.Name
	}
	if req.Apellidos != nil {
		alumno.Apellidos = *req.Apellidos
	}
	if req.Email != nil {
		alumno.Email = *req.Email
	}
	if req.Phone != nil {
		alumno.Phone = *req.Phone
	}
	if req.DNI != nil {
		alumno.DNI = *req.DNI
	}
	if req.Address != nil {
		alumno.Address = *req.Address
	}
	if req.Birthdate != nil {
		alumno.Birthdate = req.Birthdate
	}
	if req.Active != nil {
		alumno.Active = *req.Active
	}
	if err := rules.CheckAlumno(*alumno, clock.Today(s.clk)).Err(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, alumno); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update alumno")
	}
	return alumno, nil
}

// Activate promotes an enrolled student to active.
func (s *AlumnoService) Activate(ctx context.Context, id string) (*models.Alumno, error) {
	return s.transition(ctx, id, models.AlumnoStateActive,
		models.AlumnoStateEnrolled, models.AlumnoStateSuspended)
}

// Suspend suspends an active student.
func (s *AlumnoService) Suspend(ctx context.Context, id string) (*models.Alumno, error) {
	return s.transition(ctx, id, models.AlumnoStateSuspended, models.AlumnoStateActive)
}

// Complete marks an active student as having finished their studies.
func (s *AlumnoService) Complete(ctx context.Context, id string) (*models.Alumno, error) {
	return s.transition(ctx, id, models.AlumnoStateCompleted, models.AlumnoStateActive)
}

func (s *AlumnoService) transition(ctx context.Context, id string, to models.AlumnoState, from ...models.AlumnoState) (*models.Alumno, error) {
	alumno, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "alumno not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load alumno")
	}
	allowed := false
	for _, f := range from {
		if alumno.State == f {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed,
			transitionMessage("alumno", string(alumno.State), string(to)))
	}
	prev := alumno.State
	if err := s.repo.UpdateState(ctx, id, to); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update alumno state")
	}
	alumno.State = to
	s.sink.Transition(ctx, "alumno", id, string(prev), string(to))
	return alumno, nil
}
