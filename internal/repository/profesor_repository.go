package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/aulasoft/academia-engine/internal/models"
)

// ProfesorRepository handles persistence of teachers.
type ProfesorRepository struct {
	db *sqlx.DB
}

// NewProfesorRepository constructs the repository.
func NewProfesorRepository(db *sqlx.DB) *ProfesorRepository {
	return &ProfesorRepository{db: db}
}

const profesorColumns = `id, name, apellidos, email, phone, titulacion, specialization,
        user_id, active, created_at, updated_at`

// List returns teachers filtered by the provided criteria.
func (r *ProfesorRepository) List(ctx context.Context, filter models.ProfesorFilter) ([]models.Profesor, int, error) {
	base := "FROM profesores"
	var conditions []string
	var args []interface{}

	if filter.Specialization != "" {
		conditions = append(conditions, fmt.Sprintf("specialization = $%d", len(args)+1))
		args = append(args, filter.Specialization)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(name ILIKE $%d OR apellidos ILIKE $%d OR email ILIKE $%d)",
			len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	_, size, offset := normalizePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY name %s LIMIT %d OFFSET %d",
		profesorColumns, base+clause, order, size, offset)

	var profesores []models.Profesor
	if err := r.db.SelectContext(ctx, &profesores, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list profesores: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count profesores: %w", err)
	}
	return profesores, total, nil
}

// FindByID returns a teacher by ID.
func (r *ProfesorRepository) FindByID(ctx context.Context, id string) (*models.Profesor, error) {
	query := fmt.Sprintf("SELECT %s FROM profesores WHERE id = $1", profesorColumns)
	var profesor models.Profesor
	if err := r.db.GetContext(ctx, &profesor, query, id); err != nil {
		return nil, err
	}
	return &profesor, nil
}

// FindDetailByID returns a teacher with the assigned-class counter.
func (r *ProfesorRepository) FindDetailByID(ctx context.Context, id string) (*models.ProfesorDetail, error) {
	const query = `SELECT p.id, p.name, p.apellidos, p.email, p.phone, p.titulacion, p.specialization,
        p.user_id, p.active, p.created_at, p.updated_at,
        (SELECT COUNT(*) FROM clases c WHERE c.profesor_id = p.id) AS total_clases
        FROM profesores p WHERE p.id = $1`
	var detail models.ProfesorDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create persists a new teacher.
func (r *ProfesorRepository) Create(ctx context.Context, profesor *models.Profesor) error {
	if profesor.ID == "" {
		profesor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	profesor.CreatedAt = now
	profesor.UpdatedAt = now
	const query = `INSERT INTO profesores (id, name, apellidos, email, phone, titulacion,
        specialization, user_id, active, created_at, updated_at)
        VALUES (:id, :name, :apellidos, :email, :phone, :titulacion,
        :specialization, :user_id, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, profesor); err != nil {
		return storeErr(err, "create profesor")
	}
	return nil
}

// Update persists changes to an existing teacher.
func (r *ProfesorRepository) Update(ctx context.Context, profesor *models.Profesor) error {
	profesor.UpdatedAt = time.Now().UTC()
	const query = `UPDATE profesores SET name = :name, apellidos = :apellidos, email = :email,
        phone = :phone, titulacion = :titulacion, specialization = :specialization,
        user_id = :user_id, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, profesor); err != nil {
		return storeErr(err, "update profesor")
	}
	return nil
}
