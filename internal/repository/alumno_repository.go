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

// AlumnoRepository handles persistence of students.
type AlumnoRepository struct {
	db *sqlx.DB
}

// NewAlumnoRepository constructs the repository.
func NewAlumnoRepository(db *sqlx.DB) *AlumnoRepository {
	return &AlumnoRepository{db: db}
}

const alumnoColumns = `id, name, apellidos, email, phone, dni, address, birthdate,
        enrollment_date, state, active, created_at, updated_at`

// List returns students filtered by the provided criteria.
func (r *AlumnoRepository) List(ctx context.Context, filter models.AlumnoFilter) ([]models.Alumno, int, error) {
	base := "FROM alumnos a"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(a.name ILIKE $%d OR a.apellidos ILIKE $%d OR a.email ILIKE $%d)",
			len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.ClaseID != "" {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM alumno_clase ac WHERE ac.alumno_id = a.id AND ac.clase_id = $%d)", len(args)+1))
		args = append(args, filter.ClaseID)
	}
	if filter.State != "" {
		conditions = append(conditions, fmt.Sprintf("a.state = $%d", len(args)+1))
		args = append(args, filter.State)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("a.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"apellidos":       "a.apellidos",
		"name":            "a.name",
		"enrollment_date": "a.enrollment_date",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "a.apellidos, a.name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	_, size, offset := normalizePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT a.id, a.name, a.apellidos, a.email, a.phone, a.dni, a.address,
        a.birthdate, a.enrollment_date, a.state, a.active, a.created_at, a.updated_at
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var alumnos []models.Alumno
	if err := r.db.SelectContext(ctx, &alumnos, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list alumnos: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count alumnos: %w", err)
	}
	return alumnos, total, nil
}

// FindByID returns a student by ID.
func (r *AlumnoRepository) FindByID(ctx context.Context, id string) (*models.Alumno, error) {
	query := fmt.Sprintf("SELECT %s FROM alumnos WHERE id = $1", alumnoColumns)
	var alumno models.Alumno
	if err := r.db.GetContext(ctx, &alumno, query, id); err != nil {
		return nil, err
	}
	return &alumno, nil
}

// FindDetailByID returns a student with billing counters: the pending
// balance sums the amounts of invoices still in pending state.
func (r *AlumnoRepository) FindDetailByID(ctx context.Context, id string) (*models.AlumnoDetail, error) {
	const query = `SELECT a.id, a.name, a.apellidos, a.email, a.phone, a.dni, a.address,
        a.birthdate, a.enrollment_date, a.state, a.active, a.created_at, a.updated_at,
        (SELECT COUNT(*) FROM facturas f WHERE f.alumno_id = a.id) AS total_facturas,
        COALESCE((SELECT SUM(f.amount) FROM facturas f WHERE f.alumno_id = a.id AND f.state = 'pending'), 0) AS saldo_pendiente
        FROM alumnos a WHERE a.id = $1`
	var detail models.AlumnoDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create persists a new student.
func (r *AlumnoRepository) Create(ctx context.Context, alumno *models.Alumno) error {
	if alumno.ID == "" {
		alumno.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	alumno.CreatedAt = now
	alumno.UpdatedAt = now
	if alumno.EnrollmentDate.IsZero() {
		alumno.EnrollmentDate = now
	}
	if alumno.State == "" {
		alumno.State = models.AlumnoStateDraft
	}
	const query = `INSERT INTO alumnos (id, name, apellidos, email, phone, dni, address, birthdate,
        enrollment_date, state, active, created_at, updated_at)
        VALUES (:id, :name, :apellidos, :email, :phone, :dni, :address, :birthdate,
        :enrollment_date, :state, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, alumno); err != nil {
		return storeErr(err, "create alumno")
	}
	return nil
}

// Update persists changes to an existing student.
func (r *AlumnoRepository) Update(ctx context.Context, alumno *models.Alumno) error {
	alumno.UpdatedAt = time.Now().UTC()
	const query = `UPDATE alumnos SET name = :name, apellidos = :apellidos, email = :email,
        phone = :phone, dni = :dni, address = :address, birthdate = :birthdate,
        enrollment_date = :enrollment_date, state = :state, active = :active, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, alumno); err != nil {
		return storeErr(err, "update alumno")
	}
	return nil
}

// UpdateState transitions a student's lifecycle state.
func (r *AlumnoRepository) UpdateState(ctx context.Context, id string, state models.AlumnoState) error {
	const query = `UPDATE alumnos SET state = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, state, time.Now().UTC()); err != nil {
		return fmt.Errorf("update alumno state: %w", err)
	}
	return nil
}
