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

// MatriculaRepository handles persistence of enrollments, including the
// multi-entity transitions that must commit atomically.
type MatriculaRepository struct {
	db *sqlx.DB
}

// NewMatriculaRepository constructs the repository.
func NewMatriculaRepository(db *sqlx.DB) *MatriculaRepository {
	return &MatriculaRepository{db: db}
}

const matriculaColumns = `id, name, alumno_id, curso_id, clase_id, factura_id, fecha_matricula,
        fecha_inicio, fecha_fin, importe_curso, descuento, importe_matricula, importe_total,
        importe_pagado, importe_pendiente, notes, state, active, created_at, updated_at`

// List returns enrollments filtered by the provided criteria.
func (r *MatriculaRepository) List(ctx context.Context, filter models.MatriculaFilter) ([]models.Matricula, int, error) {
	base := "FROM matriculas"
	var conditions []string
	var args []interface{}

	if filter.AlumnoID != "" {
		conditions = append(conditions, fmt.Sprintf("alumno_id = $%d", len(args)+1))
		args = append(args, filter.AlumnoID)
	}
	if filter.CursoID != "" {
		conditions = append(conditions, fmt.Sprintf("curso_id = $%d", len(args)+1))
		args = append(args, filter.CursoID)
	}
	if filter.ClaseID != "" {
		conditions = append(conditions, fmt.Sprintf("clase_id = $%d", len(args)+1))
		args = append(args, filter.ClaseID)
	}
	if filter.State != "" {
		conditions = append(conditions, fmt.Sprintf("state = $%d", len(args)+1))
		args = append(args, filter.State)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	sortBy := "fecha_matricula"
	switch filter.SortBy {
	case "name", "fecha_matricula", "fecha_inicio", "importe_total", "state":
		sortBy = filter.SortBy
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	_, size, offset := normalizePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d",
		matriculaColumns, base+clause, sortBy, order, size, offset)

	var matriculas []models.Matricula
	if err := r.db.SelectContext(ctx, &matriculas, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list matriculas: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count matriculas: %w", err)
	}
	return matriculas, total, nil
}

// FindByID returns an enrollment by ID.
func (r *MatriculaRepository) FindByID(ctx context.Context, id string) (*models.Matricula, error) {
	query := fmt.Sprintf("SELECT %s FROM matriculas WHERE id = $1", matriculaColumns)
	var matricula models.Matricula
	if err := r.db.GetContext(ctx, &matricula, query, id); err != nil {
		return nil, err
	}
	return &matricula, nil
}

// FindDetailByID returns an enrollment joined with its student, course and
// class group names.
func (r *MatriculaRepository) FindDetailByID(ctx context.Context, id string) (*models.MatriculaDetail, error) {
	const query = `SELECT m.id, m.name, m.alumno_id, m.curso_id, m.clase_id, m.factura_id,
        m.fecha_matricula, m.fecha_inicio, m.fecha_fin, m.importe_curso, m.descuento,
        m.importe_matricula, m.importe_total, m.importe_pagado, m.importe_pendiente,
        m.notes, m.state, m.active, m.created_at, m.updated_at,
        a.name || ', ' || a.apellidos AS alumno_name,
        cu.name AS curso_name,
        cl.name AS clase_name
        FROM matriculas m
        JOIN alumnos a ON a.id = m.alumno_id
        JOIN cursos cu ON cu.id = m.curso_id
        LEFT JOIN clases cl ON cl.id = m.clase_id
        WHERE m.id = $1`
	var detail models.MatriculaDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsForAlumnoCursoFecha reports whether a non-cancelled enrollment
// already binds the student to the course for the same start date.
func (r *MatriculaRepository) ExistsForAlumnoCursoFecha(ctx context.Context, alumnoID, cursoID string, fechaInicio time.Time, excludeID string) (bool, error) {
	query := `SELECT COUNT(*) FROM matriculas
        WHERE alumno_id = $1 AND curso_id = $2 AND fecha_inicio = $3 AND state <> $4`
	args := []interface{}{alumnoID, cursoID, fechaInicio, models.MatriculaStateCancelled}
	if excludeID != "" {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, fmt.Errorf("check duplicate matricula: %w", err)
	}
	return count > 0, nil
}

// Create persists a new enrollment.
func (r *MatriculaRepository) Create(ctx context.Context, matricula *models.Matricula) error {
	if matricula.ID == "" {
		matricula.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	matricula.CreatedAt = now
	matricula.UpdatedAt = now
	if matricula.State == "" {
		matricula.State = models.MatriculaStateDraft
	}
	const query = `INSERT INTO matriculas (id, name, alumno_id, curso_id, clase_id, factura_id,
        fecha_matricula, fecha_inicio, fecha_fin, importe_curso, descuento, importe_matricula,
        importe_total, importe_pagado, importe_pendiente, notes, state, active, created_at, updated_at)
        VALUES (:id, :name, :alumno_id, :curso_id, :clase_id, :factura_id,
        :fecha_matricula, :fecha_inicio, :fecha_fin, :importe_curso, :descuento, :importe_matricula,
        :importe_total, :importe_pagado, :importe_pendiente, :notes, :state, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, matricula); err != nil {
		return storeErr(err, "create matricula")
	}
	return nil
}

// Update persists changes to an existing enrollment.
func (r *MatriculaRepository) Update(ctx context.Context, matricula *models.Matricula) error {
	matricula.UpdatedAt = time.Now().UTC()
	const query = `UPDATE matriculas SET name = :name, alumno_id = :alumno_id, curso_id = :curso_id,
        clase_id = :clase_id, factura_id = :factura_id, fecha_matricula = :fecha_matricula,
        fecha_inicio = :fecha_inicio, fecha_fin = :fecha_fin, importe_curso = :importe_curso,
        descuento = :descuento, importe_matricula = :importe_matricula, importe_total = :importe_total,
        importe_pagado = :importe_pagado, importe_pendiente = :importe_pendiente, notes = :notes,
        state = :state, active = :active, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, matricula); err != nil {
		return storeErr(err, "update matricula")
	}
	return nil
}

// UpdateState transitions an enrollment's state without touching amounts.
func (r *MatriculaRepository) UpdateState(ctx context.Context, id string, state models.MatriculaState) error {
	const query = `UPDATE matriculas SET state = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, state, time.Now().UTC()); err != nil {
		return fmt.Errorf("update matricula state: %w", err)
	}
	return nil
}

// Confirm transitions the enrollment to confirmed and, when a class group is
// assigned, adds the student to its roster inside the same transaction. The
// class row stays locked while the capacity check runs.
func (r *MatriculaRepository) Confirm(ctx context.Context, matricula *models.Matricula) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin confirm matricula: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if matricula.ClaseID != nil {
		var maxAlumnos int
		if err = tx.GetContext(ctx, &maxAlumnos,
			`SELECT max_alumnos FROM clases WHERE id = $1 FOR UPDATE`, *matricula.ClaseID); err != nil {
			return fmt.Errorf("lock clase: %w", err)
		}
		var current int
		if err = tx.GetContext(ctx, &current,
			`SELECT COUNT(*) FROM alumno_clase WHERE clase_id = $1 AND alumno_id <> $2`,
			*matricula.ClaseID, matricula.AlumnoID); err != nil {
			return fmt.Errorf("count clase alumnos: %w", err)
		}
		if current >= maxAlumnos {
			err = ErrClaseFull
			return err
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO alumno_clase (alumno_id, clase_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			matricula.AlumnoID, *matricula.ClaseID); err != nil {
			return storeErr(err, "add alumno to clase")
		}
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE matriculas SET state = $2, updated_at = $3 WHERE id = $1`,
		matricula.ID, models.MatriculaStateConfirmed, time.Now().UTC()); err != nil {
		return fmt.Errorf("confirm matricula: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit confirm matricula: %w", err)
	}
	matricula.State = models.MatriculaStateConfirmed
	return nil
}

// Pay marks the enrollment paid, creates its invoice and promotes the
// student out of draft, all in one transaction.
func (r *MatriculaRepository) Pay(ctx context.Context, matricula *models.Matricula, factura *models.Factura) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin pay matricula: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if factura.ID == "" {
		factura.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	factura.CreatedAt = now
	factura.UpdatedAt = now
	if _, err = tx.NamedExecContext(ctx,
		`INSERT INTO facturas (id, name, alumno_id, curso_id, clase_id, date, due_date, payment_date,
        amount, concept, description, payment_method, invoice_type, state, active, created_at, updated_at)
        VALUES (:id, :name, :alumno_id, :curso_id, :clase_id, :date, :due_date, :payment_date,
        :amount, :concept, :description, :payment_method, :invoice_type, :state, :active, :created_at, :updated_at)`,
		factura); err != nil {
		return storeErr(err, "create payment factura")
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE matriculas SET state = $2, factura_id = $3, importe_pagado = $4,
        importe_pendiente = $5, updated_at = $6 WHERE id = $1`,
		matricula.ID, models.MatriculaStatePaid, factura.ID,
		matricula.ImporteTotal, 0.0, now); err != nil {
		return fmt.Errorf("pay matricula: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE alumnos SET state = $2, updated_at = $3 WHERE id = $1 AND state = $4`,
		matricula.AlumnoID, models.AlumnoStateEnrolled, now, models.AlumnoStateDraft); err != nil {
		return fmt.Errorf("promote alumno: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit pay matricula: %w", err)
	}
	matricula.State = models.MatriculaStatePaid
	matricula.FacturaID = &factura.ID
	matricula.ImportePagado = matricula.ImporteTotal
	matricula.ImportePendiente = 0
	return nil
}
