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
	"github.com/aulasoft/academia-engine/pkg/clock"
	"github.com/aulasoft/academia-engine/pkg/config"
	appErrors "github.com/aulasoft/academia-engine/pkg/errors"
)

type sesionRepository interface {
	List(ctx context.Context, filter models.SesionFilter) ([]models.Sesion, int, error)
	FindByID(ctx context.Context, id string) (*models.Sesion, error)
	FindDetailByID(ctx context.Context, id string) (*models.SesionDetail, error)
	FindByProfesorAndDate(ctx context.Context, profesorID string, date time.Time, excludeID string) ([]models.Sesion, error)
	CountAsistentes(ctx context.Context, sesionID string) (int, error)
	Create(ctx context.Context, sesion *models.Sesion) error
	Update(ctx context.Context, sesion *models.Sesion) error
	UpdateState(ctx context.Context, id string, state models.SesionState) error
	AddAsistente(ctx context.Context, sesionID, alumnoID string) error
	RemoveAsistente(ctx context.Context, sesionID, alumnoID string) error
}

type claseReader interface {
	FindByID(ctx context.Context, id string) (*models.Clase, error)
}

// CreateSesionRequest describes session creation. Omitted start time,
// duration and seats fall back to the engine defaults, or to the class
// group's schedule when one is assigned.
type CreateSesionRequest struct {
	CursoID    string    `json:"curso_id" validate:"required"`
	ClaseID    *string   `json:"clase_id"`
	ProfesorID string    `json:"profesor_id" validate:"required"`
	Date       time.Time `json:"date" validate:"required"`
	StartTime  *float64  `json:"start_time"`
	Duration   *float64  `json:"duration"`
	Seats      *int      `json:"seats"`
	Room       string    `json:"room"`
	Topic      string    `json:"topic"`
}

// UpdateSesionRequest describes a session update. Nil fields stay unchanged.
type UpdateSesionRequest struct {
	ProfesorID *string    `json:"profesor_id"`
	Date       *time.Time `json:"date"`
	StartTime  *float64   `json:"start_time"`
	Duration   *float64   `json:"duration"`
	Seats      *int       `json:"seats"`
	Room       *string    `json:"room"`
	Topic      *string    `json:"topic"`
}

// SesionService manages scheduled sessions: defaults, derived fields,
// teacher schedule conflicts and the attendance roster.
type SesionService struct {
	repo      sesionRepository
	cursos    cursoReader
	clases    claseReader
	profes    profesorReader
	alumnos   alumnoReader
	graph     *compute.Recalculator[models.SesionDetail]
	cfg       config.EngineConfig
	clk       clock.Clock
	sink      audit.Sink
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSesionService constructs SesionService.
func NewSesionService(repo sesionRepository, cursos cursoReader, clases claseReader, profes profesorReader, alumnos alumnoReader, cfg config.EngineConfig, clk clock.Clock, sink audit.Sink, validate *validator.Validate, logger *zap.Logger) *SesionService {
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
	return &SesionService{
		repo:      repo,
		cursos:    cursos,
		clases:    clases,
		profes:    profes,
		alumnos:   alumnos,
		graph:     compute.SesionGraph(),
		cfg:       cfg,
		clk:       clk,
		sink:      sink,
		validator: validate,
		logger:    logger,
	}
}

// List returns sessions with pagination metadata.
func (s *SesionService) List(ctx context.Context, filter models.SesionFilter) ([]models.Sesion, *models.Pagination, error) {
	sesiones, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sesiones")
	}
	return sesiones, paginate(filter.Page, filter.PageSize, total), nil
}

// Get returns a session with every derived field recomputed.
func (s *SesionService) Get(ctx context.Context, id string) (*models.SesionDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sesion not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sesion")
	}
	s.graph.Recompute(detail)
	detail.Name = s.sesionName(ctx, detail)
	return detail, nil
}

// Create registers a new session in draft state, rejecting it when it
// overlaps another session of the same teacher on the same date.
func (s *SesionService) Create(ctx context.Context, req CreateSesionRequest) (*models.Sesion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sesion payload")
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

	// The conflict pool query compares dates by equality, so the stored
	// date carries no time component.
	sesion := &models.Sesion{
		CursoID:    req.CursoID,
		ClaseID:    req.ClaseID,
		ProfesorID: req.ProfesorID,
		Date:       clock.DateOf(req.Date),
		StartTime:  s.cfg.DefaultSesionStart,
		Duration:   s.cfg.DefaultSesionDuration,
		Seats:      s.cfg.DefaultSesionSeats,
		Room:       req.Room,
		Topic:      req.Topic,
		State:      models.SesionStateDraft,
		Active:     true,
	}
	if req.ClaseID != nil {
		clase, err := s.clases.FindByID(ctx, *req.ClaseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "clase not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load clase")
		}
		sesion.StartTime = clase.StartTime
		sesion.Duration = clase.EndTime - clase.StartTime
		sesion.Seats = clase.MaxAlumnos
		if sesion.Room == "" {
			sesion.Room = clase.Room
		}
	}
	if req.StartTime != nil {
		sesion.StartTime = *req.StartTime
	}
	if req.Duration != nil {
		sesion.Duration = *req.Duration
	}
	if req.Seats != nil {
		sesion.Seats = *req.Seats
	}
	sesion.EndTime = compute.EndTime(sesion.StartTime, sesion.Duration)

	if err := rules.CheckSesion(*sesion, 0, clock.Today(s.clk)).Err(); err != nil {
		return nil, err
	}
	if err := s.checkSchedule(ctx, sesion); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, sesion); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create sesion")
	}
	s.logger.Info("sesion created",
		zap.String("sesion_id", sesion.ID),
		zap.String("profesor_id", sesion.ProfesorID),
		zap.Time("date", sesion.Date),
	)
	return sesion, nil
}

// Update applies partial changes to a session. Any change touching the
// teacher, the date or the time band re-runs the conflict check.
func (s *SesionService) Update(ctx context.Context, id string, req UpdateSesionRequest) (*models.Sesion, error) {
	sesion, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sesion not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sesion")
	}
	if req.ProfesorID != nil {
		if _, err := s.profes.FindByID(ctx, *req.ProfesorID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "profesor not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profesor")
		}
		sesion.ProfesorID = *req.ProfesorID
	}
	if req.Date != nil {
		sesion.Date = clock.DateOf(*req.Date)
	}
	if req.StartTime != nil {
		sesion.StartTime = *req.StartTime
	}
	if req.Duration != nil {
		sesion.Duration = *req.Duration
	}
	if req.Seats != nil {
		sesion.Seats = *req.Seats
	}
	if req.Room != nil {
		sesion.Room = *req.Room
	}
	if req.Topic != nil {
		sesion.Topic = *req.Topic
	}
	sesion.EndTime = compute.EndTime(sesion.StartTime, sesion.Duration)

	total, err := s.repo.CountAsistentes(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count asistentes")
	}
	if err := rules.CheckSesion(*sesion, total, clock.Today(s.clk)).Err(); err != nil {
		return nil, err
	}
	if err := s.checkSchedule(ctx, sesion); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, sesion); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update sesion")
	}
	return sesion, nil
}

// AddAsistente adds a student to the session, enforcing seat capacity.
func (s *SesionService) AddAsistente(ctx context.Context, sesionID, alumnoID string) error {
	sesion, err := s.repo.FindByID(ctx, sesionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "sesion not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sesion")
	}
	if sesion.State == models.SesionStateCancelled {
		return appErrors.Clone(appErrors.ErrPreconditionFailed,
			"no se pueden añadir asistentes a una sesión cancelada")
	}
	if _, err := s.alumnos.FindByID(ctx, alumnoID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "alumno not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load alumno")
	}
	if err := s.repo.AddAsistente(ctx, sesionID, alumnoID); err != nil {
		if errors.Is(err, repository.ErrSesionFull) {
			return appErrors.Clone(appErrors.ErrValidation, sesionFullMessage(sesion))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add asistente")
	}
	s.sink.FieldChange(ctx, "sesion", sesionID, "asistentes")
	return nil
}

// RemoveAsistente removes a student from the session.
func (s *SesionService) RemoveAsistente(ctx context.Context, sesionID, alumnoID string) error {
	if _, err := s.repo.FindByID(ctx, sesionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "sesion not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sesion")
	}
	if err := s.repo.RemoveAsistente(ctx, sesionID, alumnoID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove asistente")
	}
	s.sink.FieldChange(ctx, "sesion", sesionID, "asistentes")
	return nil
}

// Confirm transitions a session from draft to confirmed, re-running the
// schedule conflict check against the sessions scheduled since.
func (s *SesionService) Confirm(ctx context.Context, id string) (*models.Sesion, error) {
	sesion, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sesion not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sesion")
	}
	if sesion.State != models.SesionStateDraft {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed,
			transitionMessage("sesion", string(sesion.State), string(models.SesionStateConfirmed)))
	}
	if err := s.checkSchedule(ctx, sesion); err != nil {
		return nil, err
	}
	return s.applyTransition(ctx, sesion, models.SesionStateConfirmed)
}

// Done marks a session as held. Sessions dated in the future cannot be
// marked done.
func (s *SesionService) Done(ctx context.Context, id string) (*models.Sesion, error) {
	sesion, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sesion not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sesion")
	}
	if sesion.State != models.SesionStateConfirmed {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed,
			transitionMessage("sesion", string(sesion.State), string(models.SesionStateDone)))
	}
	if sesion.Date.After(clock.Today(s.clk)) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			"no se puede marcar como realizada una sesión con fecha futura")
	}
	return s.applyTransition(ctx, sesion, models.SesionStateDone)
}

// Cancel cancels a session from draft or confirmed.
func (s *SesionService) Cancel(ctx context.Context, id string) (*models.Sesion, error) {
	sesion, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sesion not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sesion")
	}
	if sesion.State != models.SesionStateDraft && sesion.State != models.SesionStateConfirmed {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed,
			transitionMessage("sesion", string(sesion.State), string(models.SesionStateCancelled)))
	}
	return s.applyTransition(ctx, sesion, models.SesionStateCancelled)
}

// Draft returns a confirmed or cancelled session to draft.
func (s *SesionService) Draft(ctx context.Context, id string) (*models.Sesion, error) {
	sesion, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sesion not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sesion")
	}
	if sesion.State != models.SesionStateConfirmed && sesion.State != models.SesionStateCancelled {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed,
			transitionMessage("sesion", string(sesion.State), string(models.SesionStateDraft)))
	}
	return s.applyTransition(ctx, sesion, models.SesionStateDraft)
}

func (s *SesionService) applyTransition(ctx context.Context, sesion *models.Sesion, to models.SesionState) (*models.Sesion, error) {
	prev := sesion.State
	if err := s.repo.UpdateState(ctx, sesion.ID, to); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update sesion state")
	}
	sesion.State = to
	s.sink.Transition(ctx, "sesion", sesion.ID, string(prev), string(to))
	return sesion, nil
}

// checkSchedule rejects the session when it overlaps another session of the
// same teacher on the same date. Intervals are half open: a session ending
// at 10.5 does not conflict with one starting at 10.5.
func (s *SesionService) checkSchedule(ctx context.Context, sesion *models.Sesion) error {
	pool, err := s.repo.FindByProfesorAndDate(ctx, sesion.ProfesorID, sesion.Date, sesion.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profesor schedule")
	}
	return rules.CheckProfesorSchedule(*sesion, pool)
}

func (s *SesionService) sesionName(ctx context.Context, detail *models.SesionDetail) string {
	cursoName := ""
	if curso, err := s.cursos.FindByID(ctx, detail.CursoID); err == nil {
		cursoName = curso.Name
	}
	claseCode := ""
	if detail.ClaseID != nil {
		if clase, err := s.clases.FindByID(ctx, *detail.ClaseID); err == nil {
			claseCode = clase.Code
		}
	}
	return compute.SesionName(cursoName, claseCode, detail.Date)
}
