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

// SesionRepository handles persistence of scheduled sessions and their
// attendee sets.
type SesionRepository struct {
	db *sqlx.DB
}

// NewSesionRepository constructs the repository.
func NewSesionRepository(db *sqlx.DB) *SesionRepository {
	return &SesionRepository{db: db}
}

const sesionColumns = `id, curso_id, clase_id, profesor_id, date, start_time, duration, end_time,
        seats, room, topic, state, active, created_at, updated_at`

// List returns sessions filtered by the provided criteria.
func (r *SesionRepository) List(ctx context.Context, filter models.SesionFilter) ([]models.Sesion, int, error) {
	base := "FROM sesiones"
	var conditions []string
	var args []interface{}

	if filter.CursoID != "" {
		conditions = append(conditions, fmt.Sprintf("curso_id = $%d", len(args)+1))
		args = append(args, filter.CursoID)
	}
	if filter.ClaseID != "" {
		conditions = append(conditions, fmt.Sprintf("clase_id = $%d", len(args)+1))
		args = append(args, filter.ClaseID)
	}
	if filter.ProfesorID != "" {
		conditions = append(conditions, fmt.Sprintf("profesor_id = $%d", len(args)+1))
		args = append(args, filter.ProfesorID)
	}
	if filter.Date != nil {
		conditions = append(conditions, fmt.Sprintf("date = $%d", len(args)+1))
		args = append(args, *filter.Date)
	}
	if filter.State != "" {
		conditions = append(conditions, fmt.Sprintf("state = $%d", len(args)+1))
		args = append(args, filter.State)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	_, size, offset := normalizePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY date %s, start_time ASC LIMIT %d OFFSET %d",
		sesionColumns, base+clause, order, size, offset)

	var sesiones []models.Sesion
	if err := r.db.SelectContext(ctx, &sesiones, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sesiones: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sesiones: %w", err)
	}
	return sesiones, total, nil
}

// FindByID returns a session by ID.
func (r *SesionRepository) FindByID(ctx context.Context, id string) (*models.Sesion, error) {
	query := fmt.Sprintf("SELECT %s FROM sesiones WHERE id = $1", sesionColumns)
	var sesion models.Sesion
	if err := r.db.GetContext(ctx, &sesion, query, id); err != nil {
		return nil, err
	}
	return &sesion, nil
}

// FindDetailByID returns a session with its attendee count.
func (r *SesionRepository) FindDetailByID(ctx context.Context, id string) (*models.SesionDetail, error) {
	const query = `SELECT s.id, s.curso_id, s.clase_id, s.profesor_id, s.date, s.start_time, s.duration,
        s.end_time, s.seats, s.room, s.topic, s.state, s.active, s.created_at, s.updated_at,
        (SELECT COUNT(*) FROM alumno_sesion asx WHERE asx.sesion_id = s.id) AS total_asistentes
        FROM sesiones s WHERE s.id = $1`
	var detail models.SesionDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByProfesorAndDate returns the candidate pool for overlap checking:
// every non-cancelled session of the teacher on the date, excluding the
// session identified by excludeID when updating.
func (r *SesionRepository) FindByProfesorAndDate(ctx context.Context, profesorID string, date time.Time, excludeID string) ([]models.Sesion, error) {
	query := fmt.Sprintf(`SELECT %s FROM sesiones
        WHERE profesor_id = $1 AND date = $2 AND state <> $3`, sesionColumns)
	args := []interface{}{profesorID, date, models.SesionStateCancelled}
	if excludeID != "" {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}
	var sesiones []models.Sesion
	if err := r.db.SelectContext(ctx, &sesiones, query, args...); err != nil {
		return nil, fmt.Errorf("find profesor sesiones: %w", err)
	}
	return sesiones, nil
}

// CountAsistentes returns the attendee count of a session.
func (r *SesionRepository) CountAsistentes(ctx context.Context, sesionID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM alumno_sesion WHERE sesion_id = $1`, sesionID); err != nil {
		return 0, fmt.Errorf("count sesion asistentes: %w", err)
	}
	return count, nil
}

// Create persists a new session.
func (r *SesionRepository) Create(ctx context.Context, sesion *models.Sesion) error {
	if sesion.ID == "" {
		sesion.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sesion.CreatedAt = now
	sesion.UpdatedAt = now
	if sesion.State == "" {
		sesion.State = models.SesionStateDraft
	}
	const query = `INSERT INTO sesiones (id, curso_id, clase_id, profesor_id, date, start_time, duration,
        end_time, seats, room, topic, state, active, created_at, updated_at)
        VALUES (:id, :curso_id, :clase_id, :profesor_id, :date, :start_time, :duration,
        :end_time, :seats, :room, :topic, :state, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sesion); err != nil {
		return storeErr(err, "create sesion")
	}
	return nil
}

// Update persists changes to an existing session.
func (r *SesionRepository) Update(ctx context.Context, sesion *models.Sesion) error {
	sesion.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sesiones SET curso_id = :curso_id, clase_id = :clase_id, profesor_id = :profesor_id,
        date = :date, start_time = :start_time, duration = :duration, end_time = :end_time,
        seats = :seats, room = :room, topic = :topic, state = :state, active = :active, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, sesion); err != nil {
		return storeErr(err, "update sesion")
	}
	return nil
}

// UpdateState transitions a session's lifecycle state.
func (r *SesionRepository) UpdateState(ctx context.Context, id string, state models.SesionState) error {
	const query = `UPDATE sesiones SET state = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, state, time.Now().UTC()); err != nil {
		return fmt.Errorf("update sesion state: %w", err)
	}
	return nil
}

// AddAsistente adds a student to the attendee set, enforcing seat capacity
// inside the transaction with the session row locked.
func (r *SesionRepository) AddAsistente(ctx context.Context, sesionID, alumnoID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add asistente: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var seats int
	if err = tx.GetContext(ctx, &seats, `SELECT seats FROM sesiones WHERE id = $1 FOR UPDATE`, sesionID); err != nil {
		return fmt.Errorf("lock sesion: %w", err)
	}
	var current int
	if err = tx.GetContext(ctx, &current,
		`SELECT COUNT(*) FROM alumno_sesion WHERE sesion_id = $1 AND alumno_id <> $2`, sesionID, alumnoID); err != nil {
		return fmt.Errorf("count sesion asistentes: %w", err)
	}
	if current >= seats {
		err = ErrSesionFull
		return err
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO alumno_sesion (alumno_id, sesion_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		alumnoID, sesionID); err != nil {
		return storeErr(err, "add asistente to sesion")
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit add asistente: %w", err)
	}
	return nil
}

// RemoveAsistente removes a student from the attendee set.
func (r *SesionRepository) RemoveAsistente(ctx context.Context, sesionID, alumnoID string) error {
	const query = `DELETE FROM alumno_sesion WHERE sesion_id = $1 AND alumno_id = $2`
	if _, err := r.db.ExecContext(ctx, query, sesionID, alumnoID); err != nil {
		return fmt.Errorf("remove asistente from sesion: %w", err)
	}
	return nil
}
