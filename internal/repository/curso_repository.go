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

// ErrCursoHasClases blocks deletion of a course that still owns class groups.
var ErrCursoHasClases = fmt.Errorf("curso has clases")

// CursoRepository handles persistence of courses.
type CursoRepository struct {
	db *sqlx.DB
}

// NewCursoRepository constructs the repository.
func NewCursoRepository(db *sqlx.DB) *CursoRepository {
	return &CursoRepository{db: db}
}

// List returns courses filtered by the provided criteria.
func (r *CursoRepository) List(ctx context.Context, filter models.CursoFilter) ([]models.Curso, int, error) {
	base := "FROM cursos"
	var conditions []string
	var args []interface{}

	if filter.Nivel != "" {
		conditions = append(conditions, fmt.Sprintf("nivel = $%d", len(args)+1))
		args = append(args, filter.Nivel)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)+1))
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

	allowedSorts := map[string]string{
		"name":  "name",
		"nivel": "nivel",
		"price": "price",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "nivel, name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	_, size, offset := normalizePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT id, name, description, nivel, price, active, created_at, updated_at
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var cursos []models.Curso
	if err := r.db.SelectContext(ctx, &cursos, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list cursos: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count cursos: %w", err)
	}
	return cursos, total, nil
}

// FindByID returns a course by its ID.
func (r *CursoRepository) FindByID(ctx context.Context, id string) (*models.Curso, error) {
	const query = `SELECT id, name, description, nivel, price, active, created_at, updated_at FROM cursos WHERE id = $1`
	var curso models.Curso
	if err := r.db.GetContext(ctx, &curso, query, id); err != nil {
		return nil, err
	}
	return &curso, nil
}

// Stats aggregates session and distinct-student counters for a course.
func (r *CursoRepository) Stats(ctx context.Context, id string) (*models.CursoStats, error) {
	const query = `SELECT
        (SELECT COUNT(*) FROM sesiones WHERE curso_id = $1) AS total_sesiones,
        (SELECT COUNT(DISTINCT ac.alumno_id)
            FROM alumno_clase ac JOIN clases c ON c.id = ac.clase_id
            WHERE c.curso_id = $1) AS total_alumnos`
	var stats models.CursoStats
	if err := r.db.GetContext(ctx, &stats, query, id); err != nil {
		return nil, fmt.Errorf("curso stats: %w", err)
	}
	return &stats, nil
}

// Create persists a new course.
func (r *CursoRepository) Create(ctx context.Context, curso *models.Curso) error {
	if curso.ID == "" {
		curso.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	curso.CreatedAt = now
	curso.UpdatedAt = now
	const query = `INSERT INTO cursos (id, name, description, nivel, price, active, created_at, updated_at)
        VALUES (:id, :name, :description, :nivel, :price, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, curso); err != nil {
		return storeErr(err, "create curso")
	}
	return nil
}

// Update persists changes to an existing course.
func (r *CursoRepository) Update(ctx context.Context, curso *models.Curso) error {
	curso.UpdatedAt = time.Now().UTC()
	const query = `UPDATE cursos SET name = :name, description = :description, nivel = :nivel,
        price = :price, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, curso); err != nil {
		return storeErr(err, "update curso")
	}
	return nil
}

// Delete removes a course and cascades to its sessions. Deletion is blocked
// while the course still owns class groups.
func (r *CursoRepository) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete curso: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var clases int
	if err = tx.GetContext(ctx, &clases, `SELECT COUNT(*) FROM clases WHERE curso_id = $1`, id); err != nil {
		return fmt.Errorf("count curso clases: %w", err)
	}
	if clases > 0 {
		err = ErrCursoHasClases
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM alumno_sesion WHERE sesion_id IN (SELECT id FROM sesiones WHERE curso_id = $1)`, id); err != nil {
		return fmt.Errorf("delete curso sesion attendees: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM sesiones WHERE curso_id = $1`, id); err != nil {
		return fmt.Errorf("delete curso sesiones: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM cursos WHERE id = $1`, id); err != nil {
		return storeErr(err, "delete curso")
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete curso: %w", err)
	}
	return nil
}
