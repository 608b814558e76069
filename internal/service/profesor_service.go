package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/aulasoft/academia-engine/internal/compute"
	"github.com/aulasoft/academia-engine/internal/models"
	"github.com/aulasoft/academia-engine/internal/rules"
	appErrors "github.com/aulasoft/academia-engine/pkg/errors"
)

type profesorRepository interface {
	List(ctx context.Context, filter models.ProfesorFilter) ([]models.Profesor, int, error)
	FindByID(ctx context.Context, id string) (*models.Profesor, error)
	FindDetailByID(ctx context.Context, id string) (*models.ProfesorDetail, error)
	Create(ctx context.Context, profesor *models.Profesor) error
	Update(ctx context.Context, profesor *models.Profesor) error
}

// CreateProfesorRequest describes teacher creation.
type CreateProfesorRequest struct {
	Name           string  `json:"name" validate:"required"`
	Apellidos      string  `json:"apellidos" validate:"required"`
	Email          string  `json:"email" validate:"required,email"`
	Phone          string  `json:"phone"`
	Titulacion     string  `json:"titulacion"`
	Specialization string  `json:"specialization"`
	UserID         *string `json:"user_id"`
}

// UpdateProfesorRequest describes a teacher update. Nil fields stay
// unchanged.
type UpdateProfesorRequest struct {
	Name           *string `json:"name"`
	Apellidos      *string `json:"apellidos"`
	Email          *string `json:"email"`
	Phone          *string `json:"phone"`
	Titulacion     *string `json:"titulacion"`
	Specialization *string `json:"specialization"`
	Active         *bool   `json:"active"`
}

// ProfesorService manages teacher records.
type ProfesorService struct {
	repo      profesorRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfesorService constructs ProfesorService.
func NewProfesorService(repo profesorRepository, validate *validator.Validate, logger *zap.Logger) *ProfesorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfesorService{repo: repo, validator: validate, logger: logger}
}

// List returns teachers with pagination metadata.
func (s *ProfesorService) List(ctx context.Context, filter models.ProfesorFilter) ([]models.Profesor, *models.Pagination, error) {
	profesores, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list profesores")
	}
	return profesores, paginate(filter.Page, filter.PageSize, total), nil
}

// Get returns a teacher with display name and class counter.
func (s *ProfesorService) Get(ctx context.Context, id string) (*models.ProfesorDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profesor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profesor")
	}
	detail.DisplayName = compute.ProfesorDisplayName(detail.Name, detail.Apellidos)
	return detail, nil
}

// Create registers a new teacher.
func (s *ProfesorService) Create(ctx context.Context, req CreateProfesorRequest) (*models.Profesor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profesor payload")
	}
	profesor := &models.Profesor{
		Name:           req.Name,
		Apellidos:      req.Apellidos,
		Email:          req.Email,
		Phone:          req.Phone,
		Titulacion:     req.Titulacion,
		Specialization: req.Specialization,
		UserID:         req.UserID,
		Active:         true,
	}
	if err := rules.CheckProfesor(*profesor).Err(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, profesor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create profesor")
	}
	s.logger.Info("profesor created", zap.String("profesor_id", profesor.ID))
	return profesor, nil
}

// Update applies partial changes to a teacher.
func (s *ProfesorService) Update(ctx context.Context, id string, req UpdateProfesorRequest) (*models.Profesor, error) {
	profesor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profesor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profesor")
	}
	if req.Name != nil {
		profesor.Name = *req.Name
	}
	if req.Apellidos != nil {
		profesor.Apellidos = *req.Apellidos
	}
	if req.Email != nil {
		profesor.Email = *req.Email
	}
	if req.Phone != nil {
		profesor.Phone = *req.Phone
	}
	if req.Titulacion != nil {
		profesor.Titulacion = *req.Titulacion
	}
	if req.Specialization != nil {
		profesor.Specialization = *req.Specialization
	}
	if req.Active != nil {
		profesor.Active = *req.Active
	}
	if err := rules.CheckProfesor(*profesor).Err(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, profesor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profesor")
	}
	return profesor, nil
}
