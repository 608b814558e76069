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

// FacturaRepository handles persistence of invoices.
type FacturaRepository struct {
	db *sqlx.DB
}

// NewFacturaRepository constructs the repository.
func NewFacturaRepository(db *sqlx.DB) *FacturaRepository {
	return &FacturaRepository{db: db}
}

const facturaColumns = `id, name, alumno_id, curso_id, clase_id, date, due_date, payment_date,
        amount, concept, description, payment_method, invoice_type, state, active, created_at, updated_at`

// List returns invoices filtered by the provided criteria.
func (r *FacturaRepository) List(ctx context.Context, filter models.FacturaFilter) ([]models.Factura, int, error) {
	base := "FROM facturas"
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
	if filter.State != "" {
		conditions = append(conditions, fmt.Sprintf("state = $%d", len(args)+1))
		args = append(args, filter.State)
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("invoice_type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.DueBefore != nil {
		conditions = append(conditions, fmt.Sprintf("due_date < $%d", len(args)+1))
		args = append(args, *filter.DueBefore)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	sortBy := "date"
	switch filter.SortBy {
	case "name", "date", "due_date", "amount", "state":
		sortBy = filter.SortBy
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	_, size, offset := normalizePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d",
		facturaColumns, base+clause, sortBy, order, size, offset)

	var facturas []models.Factura
	if err := r.db.SelectContext(ctx, &facturas, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list facturas: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count facturas: %w", err)
	}
	return facturas, total, nil
}

// FindByID returns an invoice by ID.
func (r *FacturaRepository) FindByID(ctx context.Context, id string) (*models.Factura, error) {
	query := fmt.Sprintf("SELECT %s FROM facturas WHERE id = $1", facturaColumns)
	var factura models.Factura
	if err := r.db.GetContext(ctx, &factura, query, id); err != nil {
		return nil, err
	}
	return &factura, nil
}

// Create persists a new invoice.
func (r *FacturaRepository) Create(ctx context.Context, factura *models.Factura) error {
	if factura.ID == "" {
		factura.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	factura.CreatedAt = now
	factura.UpdatedAt = now
	if factura.State == "" {
		factura.State = models.FacturaStateDraft
	}
	const query = `INSERT INTO facturas (id, name, alumno_id, curso_id, clase_id, date, due_date, payment_date,
        amount, concept, description, payment_method, invoice_type, state, active, created_at, updated_at)
        VALUES (:id, :name, :alumno_id, :curso_id, :clase_id, :date, :due_date, :payment_date,
        :amount, :concept, :description, :payment_method, :invoice_type, :state, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, factura); err != nil {
		return storeErr(err, "create factura")
	}
	return nil
}

// Update persists changes to an existing invoice.
func (r *FacturaRepository) Update(ctx context.Context, factura *models.Factura) error {
	factura.UpdatedAt = time.Now().UTC()
	const query = `UPDATE facturas SET name = :name, alumno_id = :alumno_id, curso_id = :curso_id,
        clase_id = :clase_id, date = :date, due_date = :due_date, payment_date = :payment_date,
        amount = :amount, concept = :concept, description = :description, payment_method = :payment_method,
        invoice_type = :invoice_type, state = :state, active = :active, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, factura); err != nil {
		return storeErr(err, "update factura")
	}
	return nil
}

// UpdateState transitions an invoice's state, recording the payment date
// when one is supplied.
func (r *FacturaRepository) UpdateState(ctx context.Context, id string, state models.FacturaState, paymentDate *time.Time) error {
	const query = `UPDATE facturas SET state = $2, payment_date = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, state, paymentDate, time.Now().UTC()); err != nil {
		return fmt.Errorf("update factura state: %w", err)
	}
	return nil
}

// MarkOverdue flips every pending invoice whose due date has passed to
// overdue and returns how many rows changed.
func (r *FacturaRepository) MarkOverdue(ctx context.Context, today time.Time) (int64, error) {
	const query = `UPDATE facturas SET state = $1, updated_at = $2
        WHERE state = $3 AND due_date IS NOT NULL AND due_date < $4`
	res, err := r.db.ExecContext(ctx, query, models.FacturaStateOverdue, time.Now().UTC(), models.FacturaStatePending, today)
	if err != nil {
		return 0, fmt.Errorf("mark facturas overdue: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark facturas overdue: %w", err)
	}
	return affected, nil
}
