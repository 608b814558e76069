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
	"github.com/aulasoft/academia-engine/internal/repository"
	"github.com/aulasoft/academia-engine/internal/rules"
	appErrors "github.com/aulasoft/academia-engine/pkg/errors"
)

type claseRepository interface {
	List(ctx context.Context, filter models.ClaseFilter) ([]models.Clase, int, error)
	FindByID(ctx context.Context, id string) (*models.Clase, error)
	FindDetailByID(ctx context.Context, id string) (*models.ClaseDetail, error)
	CountAlumnos(ctx context.Context, claseID string) (int, error)
	Create(ctx context.Context, clase *models.Clase) error
	Update(ctx context.Context, clase *models.Clase) error
	UpdateState(ctx context.Context, id string, state models.ClaseState) error
	AddAlumno(ctx context.Context, claseID, alumnoID string) error
	RemoveAlumno(ctx context.Context, claseID, alumnoID string) error
}

type cursoReader interface {
	FindByID(ctx context.Context, id string) (*models.Curso, error)
}

type profesorReader interface {
	FindByID(ctx context.Context, id string) (*models.Profesor, error)
}

type alumnoReader interface {
	FindByID(ctx context.Context, id string) (*models.Alumno, error)
}

// CreateClaseRequest describes class group creation.
type CreateClaseRequest struct {
	Name       string               `json:"name" validate:"required"`
	Code       string               `json:"code"`
	CursoID    string               `json:"curso_id" validate:"required"`
	ProfesorID string               `json:"profesor_id" validate:"required"`
	Schedule   models.ClaseSchedule `json:"schedule" validate:"required,oneof=morning afternoon evening weekend"`
	Monday     bool                 `json:"monday"`
	Tuesday    bool                 `json:"tuesday"`
	Wednesday  bool                 `json:"wednesday"`
	Thursday   bool                 `json:"thursday"`
	Friday     bool                 `json:"friday"`
	Saturday   bool                 `json:"saturday"`
	Sunday     bool                 `json:"sunday"`
	StartTime  float64              `json:"start_time" validate:"gte=0,lt=24"`
	EndTime    float64              `json:"end_time" validate:"gt=0,lte=24"`
	StartDate  time.Time            `json:"start_date" validate:"required"`
	EndDate    *time.Time           `json:"end_date"`
	MaxAlumnos int                  `json:"max_alumnos" validate:"gt=0"`
	Room       string               `json:"room"`
}

// UpdateClaseRequest describes a class group update. Nil fields stay
// unchanged.
type UpdateClaseRequest struct {
	Name       *string               `json:"name"`
	ProfesorID *string               `json:"profesor_id"`
	Schedule   *models.ClaseSchedule `json:"schedule"`
	StartTime  *float64              `json:"start_time"`
	EndTime    *float64              `json:"end_time"`
	EndDate    *time.Time            `json:"end_date"`
	MaxAlumnos *int                  `json:"max_alumnos"`
	Room       *string               `json:"room"`
}

// ClaseService manages class groups and their rosters.
type ClaseService struct {
	repo      claseRepository
	cursos    cursoReader
	profes    profesorReader
	alumnos   alumnoReader
	sink      audit.Sink
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClaseService constructs ClaseService.
func NewClaseService(repo claseRepository, cursos cursoReader, profes profesorReader, alumnos alumnoReader, sink audit.Sink, validate *validator.Validate, logger *zap.Logger) *ClaseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = audit.Nop{}
	}
	return &ClaseService{repo: repo, cursos: cursos, profes: profes, alumnos: alumnos, sink: sink, validator: validate, logger: logger}
}

// List returns class groups with pagination metadata.
func (s *ClaseService) List(ctx context.Context, filter models.ClaseFilter) ([]models.Clase, *models.Pagination, error) {
	clases, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list clases")
	}
	return clases, paginate(filter.Page, filter.PageSize, total), nil
}

// Get returns a class group with its derived occupancy counters.
func (s *ClaseService) Get(ctx context.Context, id string) (*models.ClaseDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "clase not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load clase")
	}
	detail.PlazasDisponibles = compute.SeatsAvailable(detail.MaxAlumnos, detail.TotalAlumnos)
	detail.DiasSemana = compute.DiasSemana(detail.Clase)
	return detail, nil
}

// Create registers a new class group in draft state.
func (s *ClaseService) Create(ctx context.Context, req CreateClaseRequest) (*models.Clase, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid clase payload")
	}
	if _, err := s.cursos.FindByID(ctx, req.CursoID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "curso not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load curso")
	}
	if _, err := s.profes.FindByID(ctx, req.ProfesorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profesor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profesor")
	}
	clase := &models.Clase{
		Name:       req.Name,
		Code:       req.Code,
		CursoID:    req.CursoID,
		ProfesorID: req.ProfesorID,
		Schedule:   req.Schedule,
		Monday:     req.Monday,
		Tuesday:    req.Tuesday,
		Wednesday:  req.Wednesday,
		Thursday:   req.Thursday,
		Friday:     req.Friday,
		Saturday:   req.Saturday,
		Sunday:     req.Sunday,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		MaxAlumnos: req.MaxAlumnos,
		Room:       req.Room,
		State:      models.ClaseStateDraft,
		Active:     true,
	}
	if err := rules.CheckClase(*clase, 0).Err(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, clase); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create clase")
	}
	s.logger.Info("clase created", zap.String("clase_id", clase.ID), zap.String("curso_id", clase.CursoID))
	return clase, nil
}

// Update applies partial changes to a class group. Shrinking the capacity
// below the current roster size is rejected.
func (s *ClaseService) Update(ctx context.Context, id string, req UpdateClaseRequest) (*models.Clase, error) {
	clase, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "clase not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load clase")
	}
	if req.Name != nil {
		clase.Name = *req.Name
	}
	if req.ProfesorID != nil {
		if _, err := s.profes.FindByID(ctx, *req.ProfesorID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "profesor not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profesor")
		}
		clase.ProfesorID = *req.ProfesorID
	}
	if req.Schedule != nil {
		clase.Schedule = *req.Schedule
	}
	if req.StartTime != nil {
		clase.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		clase.EndTime = *req.EndTime
	}
	if req.EndDate != nil {
		clase.EndDate = req.EndDate
	}
	if req.MaxAlumnos != nil {
		clase.MaxAlumnos = *req.MaxAlumnos
	}
	if req.Room != nil {
		clase.Room = *req.Room
	}
	total, err := s.repo.CountAlumnos(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count clase alumnos")
	}
	if err := rules.CheckClase(*clase, total).Err(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, clase); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update clase")
	}
	return clase, nil
}

// AddAlumno adds a student to the roster, enforcing capacity.
func (s *ClaseService) AddAlumno(ctx context.Context, claseID, alumnoID string) error {
	clase, err := s.repo.FindByID(ctx, claseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "clase not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load clase")
	}
	if _, err := s.alumnos.FindByID(ctx, alumnoID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "alumno not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load alumno")
	}
	if err := s.repo.AddAlumno(ctx, claseID, alumnoID); err != nil {
		if errors.Is(err, repository.ErrClaseFull) {
			return appErrors.Clone(appErrors.ErrValidation, claseFullMessage(clase))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add alumno to clase")
	}
	s.sink.FieldChange(ctx, "clase", claseID, "alumnos")
	return nil
}

// RemoveAlumno removes a student from the roster.
func (s *ClaseService) RemoveAlumno(ctx context.Context, claseID, alumnoID string) error {
	if _, err := s.repo.FindByID(ctx, claseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "clase not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load clase")
	}
	if err := s.repo.RemoveAlumno(ctx, claseID, alumnoID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove alumno from clase")
	}
	s.sink.FieldChange(ctx, "clase", claseID, "alumnos")
	return nil
}

// Confirm transitions a class group from draft to confirmed.
func (s *ClaseService) Confirm(ctx context.Context, id string) (*models.Clase, error) {
	return s.transition(ctx, id, models.ClaseStateConfirmed, models.ClaseStateDraft)
}

// Start transitions a class group from confirmed to in progress.
func (s *ClaseService) Start(ctx context.Context, id string) (*models.Clase, error) {
	return s.transition(ctx, id, models.ClaseStateInProgress, models.ClaseStateConfirmed)
}

// Finish transitions a class group from in progress to done.
func (s *ClaseService) Finish(ctx context.Context, id string) (*models.Clase, error) {
	return s.transition(ctx, id, models.ClaseStateDone, models.ClaseStateInProgress)
}

// Cancel transitions a class group to cancelled from any state but done.
func (s *ClaseService) Cancel(ctx context.Context, id string) (*models.Clase, error) {
	return s.transition(ctx, id, models.ClaseStateCancelled,
		models.ClaseStateDraft, models.ClaseStateConfirmed, models.ClaseStateInProgress)
}

func (s *ClaseService) transition(ctx context.Context, id string, to models.ClaseState, from ...models.ClaseState) (*models.Clase, error) {
	clase, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "clase not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load clase")
	}
	allowed := false
	for _, f := range from {
		if clase.State == f {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed,
			transitionMessage("clase", string(clase.State), string(to)))
	}
	prev := clase.State
	if err := s.repo.UpdateState(ctx, id, to); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update clase state")
	}
	clase.State = to
	s.sink.Transition(ctx, "clase", id, string(prev), string(to))
	return clase, nil
}
