package models

import "time"

// FacturaState captures the lifecycle of an invoice.
type FacturaState string

const (
	FacturaStateDraft     FacturaState = "draft"
	FacturaStatePending   FacturaState = "pending"
	FacturaStatePaid      FacturaState = "paid"
	FacturaStateOverdue   FacturaState = "overdue"
	FacturaStateCancelled FacturaState = "cancelled"
)

// PaymentMethod enumerates supported payment channels.
type PaymentMethod string

const (
	PaymentCash          PaymentMethod = "cash"
	PaymentCard          PaymentMethod = "card"
	PaymentTransfer      PaymentMethod = "transfer"
	PaymentDomiciliation PaymentMethod = "domiciliation"
	PaymentOther         PaymentMethod = "other"
)

// FacturaType categorises what an invoice bills for.
type FacturaType string

const (
	FacturaTypeEnrollment  FacturaType = "enrollment"
	FacturaTypeMonthly     FacturaType = "monthly"
	FacturaTypeMaterials   FacturaType = "materials"
	FacturaTypeExam        FacturaType = "exam"
	FacturaTypeCertificate FacturaType = "certificate"
	FacturaTypeOther       FacturaType = "other"
)

// SuggestedConcept returns the default billing concept for an invoice type.
func (t FacturaType) SuggestedConcept() string {
	switch t {
	case FacturaTypeEnrollment:
		return "Matrícula"
	case FacturaTypeMonthly:
		return "Mensualidad"
	case FacturaTypeMaterials:
		return "Material didáctico"
	case FacturaTypeExam:
		return "Tasa de examen"
	case FacturaTypeCertificate:
		return "Emisión de certificado"
	default:
		return ""
	}
}

// ReferencePlaceholder marks a reference that still needs a generated number.
const ReferencePlaceholder = "Nuevo"

// Factura represents an invoice issued to a student, optionally tied to a
// course or class group.
type Factura struct {
	ID            string        `db:"id" json:"id"`
	Name          string        `db:"name" json:"name"`
	AlumnoID      string        `db:"alumno_id" json:"alumno_id"`
	CursoID       *string       `db:"curso_id" json:"curso_id,omitempty"`
	ClaseID       *string       `db:"clase_id" json:"clase_id,omitempty"`
	Date          time.Time     `db:"date" json:"date"`
	DueDate       *time.Time    `db:"due_date" json:"due_date,omitempty"`
	PaymentDate   *time.Time    `db:"payment_date" json:"payment_date,omitempty"`
	Amount        float64       `db:"amount" json:"amount"`
	Concept       string        `db:"concept" json:"concept"`
	Description   string        `db:"description" json:"description"`
	PaymentMethod PaymentMethod `db:"payment_method" json:"payment_method"`
	Type          FacturaType   `db:"invoice_type" json:"invoice_type"`
	State         FacturaState  `db:"state" json:"state"`
	Active        bool          `db:"active" json:"active"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// FacturaDetail extends Factura with derived overdue values.
type FacturaDetail struct {
	Factura
	IsOverdue   bool `db:"-" json:"is_overdue"`
	DaysOverdue int  `db:"-" json:"days_overdue"`
}

// FacturaFilter defines filter criteria for listing invoices.
type FacturaFilter struct {
	AlumnoID  string
	CursoID   string
	State     FacturaState
	Type      FacturaType
	DueBefore *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
