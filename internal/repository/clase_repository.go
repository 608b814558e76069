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

// ClaseRepository handles persistence of class groups and their rosters.
type ClaseRepository struct {
	db *sqlx.DB
}

// NewClaseRepository constructs the repository.
func NewClaseRepository(db *sqlx.DB) *ClaseRepository {
	return &ClaseRepository{db: db}
}

const claseColumns = `id, name, code, curso_id, profesor_id, schedule,
        monday, tuesday, wednesday, thursday, friday, saturday, sunday,
        start_time, end_time, start_date, end_date, max_alumnos, room, state, active, created_at, updated_at`

// List returns class groups filtered by the provided criteria.
func (r *ClaseRepository) List(ctx context.Context, filter models.ClaseFilter) ([]models.Clase, int, error) {
	base := "FROM clases"
	var conditions []string
	var args []interface{}

	if filter.CursoID != "" {
		conditions = append(conditions, fmt.Sprintf("curso_id = $%d", len(args)+1))
		args = append(args, filter.CursoID)
	}
	if filter.ProfesorID != "" {
		conditions = append(conditions, fmt.Sprintf("profesor_id = $%d", len(args)+1))
		args = append(args, filter.ProfesorID)
	}
	if filter.Schedule != "" {
		conditions = append(conditions, fmt.Sprintf("schedule = $%d", len(args)+1))
		args = append(args, filter.Schedule)
	}
	if filter.State != "" {
		conditions = append(conditions, fmt.Sprintf("state = $%d", len(args)+1))
		args = append(args, filter.State)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR code ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"name":       "name",
		"code":       "code",
		"start_date": "start_date",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "curso_id, name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	_, size, offset := normalizePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d",
		claseColumns, base+clause, orderBy, order, size, offset)

	var clases []models.Clase
	if err := r.db.SelectContext(ctx, &clases, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list clases: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count clases: %w", err)
	}
	return clases, total, nil
}

// FindByID returns a class group by its ID.
func (r *ClaseRepository) FindByID(ctx context.Context, id string) (*models.Clase, error) {
	query := fmt.Sprintf("SELECT %s FROM clases WHERE id = $1", claseColumns)
	var clase models.Clase
	if err := r.db.GetContext(ctx, &clase, query, id); err != nil {
		return nil, err
	}
	return &clase, nil
}

// FindDetailByID returns a class group with occupancy counters and the
// course price.
func (r *ClaseRepository) FindDetailByID(ctx context.Context, id string) (*models.ClaseDetail, error) {
	const query = `SELECT c.id, c.name, c.code, c.curso_id, c.profesor_id, c.schedule,
        c.monday, c.tuesday, c.wednesday, c.thursday, c.friday, c.saturday, c.sunday,
        c.start_time, c.end_time, c.start_date, c.end_date, c.max_alumnos, c.room, c.state, c.active,
        c.created_at, c.updated_at,
        (SELECT COUNT(*) FROM alumno_clase ac WHERE ac.clase_id = c.id) AS total_alumnos,
        c.max_alumnos - (SELECT COUNT(*) FROM alumno_clase ac WHERE ac.clase_id = c.id) AS plazas_disponibles,
        (SELECT COUNT(*) FROM sesiones s WHERE s.clase_id = c.id) AS total_sesiones,
        cu.price AS precio_curso
        FROM clases c JOIN cursos cu ON cu.id = c.curso_id
        WHERE c.id = $1`
	var detail models.ClaseDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// CountAlumnos returns the current roster size of a class group.
func (r *ClaseRepository) CountAlumnos(ctx context.Context, claseID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM alumno_clase WHERE clase_id = $1`, claseID); err != nil {
		return 0, fmt.Errorf("count clase alumnos: %w", err)
	}
	return count, nil
}

// Create persists a new class group.
func (r *ClaseRepository) Create(ctx context.Context, clase *models.Clase) error {
	if clase.ID == "" {
		clase.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	clase.CreatedAt = now
	clase.UpdatedAt = now
	const query = `INSERT INTO clases (id, name, code, curso_id, profesor_id, schedule,
        monday, tuesday, wednesday, thursday, friday, saturday, sunday,
        start_time, end_time, start_date, end_date, max_alumnos, room, state, active, created_at, updated_at)
        VALUES (:id, :name, :code, :curso_id, :profesor_id, :schedule,
        :monday, :tuesday, :wednesday, :thursday, :friday, :saturday, :sunday,
        :start_time, :end_time, :start_date, :end_date, :max_alumnos, :room, :state, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, clase); err != nil {
		return storeErr(err, "create clase")
	}
	return nil
}

// Update persists changes to an existing class group.
func (r *ClaseRepository) Update(ctx context.Context, clase *models.Clase) error {
	clase.UpdatedAt = time.Now().UTC()
	const query = `UPDATE clases SET name = :name, code = :code, curso_id = :curso_id,
        profesor_id = :profesor_id, schedule = :schedule,
        monday = :monday, tuesday = :tuesday, wednesday = :wednesday, thursday = :thursday,
        friday = :friday, saturday = :saturday, sunday = :sunday,
        start_time = :start_time, end_time = :end_time, start_date = :start_date, end_date = :end_date,
        max_alumnos = :max_alumnos, room = :room, state = :state, active = :active, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, clase); err != nil {
		return storeErr(err, "update clase")
	}
	return nil
}

// UpdateState transitions a class group's lifecycle state.
func (r *ClaseRepository) UpdateState(ctx context.Context, id string, state models.ClaseState) error {
	const query = `UPDATE clases SET state = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, state, time.Now().UTC()); err != nil {
		return fmt.Errorf("update clase state: %w", err)
	}
	return nil
}

// AddAlumno adds a student to the roster, enforcing capacity inside the
// transaction. The class row is locked so two concurrent additions cannot
// both pass the capacity check. Adding an existing member is a no-op.
func (r *ClaseRepository) AddAlumno(ctx context.Context, claseID, alumnoID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add alumno: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var maxAlumnos int
	if err = tx.GetContext(ctx, &maxAlumnos, `SELECT max_alumnos FROM clases WHERE id = $1 FOR UPDATE`, claseID); err != nil {
		return fmt.Errorf("lock clase: %w", err)
	}
	var current int
	if err = tx.GetContext(ctx, &current,
		`SELECT COUNT(*) FROM alumno_clase WHERE clase_id = $1 AND alumno_id <> $2`, claseID, alumnoID); err != nil {
		return fmt.Errorf("count clase roster: %w", err)
	}
	if current >= maxAlumnos {
		err = ErrClaseFull
		return err
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO alumno_clase (alumno_id, clase_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		alumnoID, claseID); err != nil {
		return storeErr(err, "add alumno to clase")
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit add alumno: %w", err)
	}
	return nil
}

// RemoveAlumno removes a student from the roster.
func (r *ClaseRepository) RemoveAlumno(ctx context.Context, claseID, alumnoID string) error {
	const query = `DELETE FROM alumno_clase WHERE clase_id = $1 AND alumno_id = $2`
	if _, err := r.db.ExecContext(ctx, query, claseID, alumnoID); err != nil {
		return fmt.Errorf("remove alumno from clase: %w", err)
	}
	return nil
}
