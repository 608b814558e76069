package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/aulasoft/academia-engine/internal/models"
	"github.com/aulasoft/academia-engine/internal/repository"
	"github.com/aulasoft/academia-engine/internal/rules"
	appErrors "github.com/aulasoft/academia-engine/pkg/errors"
)

type cursoRepository interface {
	List(ctx context.Context, filter models.CursoFilter) ([]models.Curso, int, error)
	FindByID(ctx context.Context, id string) (*models.Curso, error)
	Stats(ctx context.Context, id string) (*models.CursoStats, error)
	Create(ctx context.Context, curso *models.Curso) error
	Update(ctx context.Context, curso *models.Curso) error
	Delete(ctx context.Context, id string) error
}

// CreateCursoRequest describes course creation.
type CreateCursoRequest struct {
	Name        string       `json:"name" validate:"required"`
	Description string       `json:"description"`
	Nivel       models.Nivel `json:"nivel" validate:"required"`
	Price       float64      `json:"price" validate:"gte=0"`
}

// UpdateCursoRequest describes a course update. Nil fields stay unchanged.
type UpdateCursoRequest struct {
	Name        *string       `json:"name"`
	Description *string       `json:"description"`
	Nivel       *models.Nivel `json:"nivel"`
	Price       *float64      `json:"price"`
	Active      *bool         `json:"active"`
}

// CursoService manages the course catalog.
type CursoService struct {
	repo      cursoRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCursoService constructs CursoService.
func NewCursoService(repo cursoRepository, validate *validator.Validate, logger *zap.Logger) *CursoService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CursoService{repo: repo, validator: validate, logger: logger}
}

// List returns courses with pagination metadata.
func (s *CursoService) List(ctx context.Context, filter models.CursoFilter) ([]models.Curso, *models.Pagination, error) {
	cursos, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cursos")
	}
	return cursos, paginate(filter.Page, filter.PageSize, total), nil
}

// Get returns one course.
func (s *CursoService) Get(ctx context.Context, id string) (*models.Curso, error) {
	curso, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "curso not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load curso")
	}
	return curso, nil
}

// Stats returns the session and distinct-student counters of a course.
func (s *CursoService) Stats(ctx context.Context, id string) (*models.CursoStats, error) {
	stats, err := s.repo.Stats(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "curso not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load curso stats")
	}
	return stats, nil
}

// Create registers a new course.
func (s *CursoService) Create(ctx context.Context, req CreateCursoRequest) (*models.Curso, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid curso payload")
	}
	curso := &models.Curso{
		Name:        req.Name,
		Description: req.Description,
		Nivel:       req.Nivel,
		Price:       req.Price,
		Active:      true,
	}
	if err := rules.CheckCurso(*curso).Err(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, curso); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create curso")
	}
	s.logger.Info("curso created", zap.String("curso_id", curso.ID), zap.String("nivel", string(curso.Nivel)))
	return curso, nil
}

// Update applies partial changes to a course, rejecting the whole update
// when any rule breaks on the candidate state.
func (s *CursoService) Update(ctx context.Context, id string, req UpdateCursoRequest) (*models.Curso, error) {
	curso, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "curso not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load curso")
	}
	if req.Name != nil {
		curso.Name = *req.Name
	}
	if req.Description != nil {
		curso.Description = *req.Description
	}
	if req.Nivel != nil {
		curso.Nivel = *req.Nivel
	}
	if req.Price != nil {
		curso.Price = *req.Price
	}
	if req.Active != nil {
		curso.Active = *req.Active
	}
	if err := rules.CheckCurso(*curso).Err(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, curso); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update curso")
	}
	return curso, nil
}

// Delete removes a course. Courses that still own class groups cannot be
// deleted; their sessions are removed with them otherwise.
func (s *CursoService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "curso not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load curso")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrCursoHasClases) {
			return appErrors.Clone(appErrors.ErrPreconditionFailed,
				"no se puede eliminar un curso con clases asociadas")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete curso")
	}
	s.logger.Info("curso deleted", zap.String("curso_id", id))
	return nil
}
