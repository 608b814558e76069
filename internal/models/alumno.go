package models

import "time"

// AlumnoState captures the lifecycle of a student.
type AlumnoState string

const (
	AlumnoStateDraft     AlumnoState = "draft"
	AlumnoStateEnrolled  AlumnoState = "enrolled"
	AlumnoStateActive    AlumnoState = "active"
	AlumnoStateSuspended AlumnoState = "suspended"
	AlumnoStateCompleted AlumnoState = "completed"
)

// Alumno represents a student registered at the academy.
type Alumno struct {
	ID             string      `db:"id" json:"id"`
	Name           string      `db:"name" json:"name"`
	Apellidos      string      `db:"apellidos" json:"apellidos"`
	Email          string      `db:"email" json:"email"`
	Phone          string      `db:"phone" json:"phone"`
	DNI            string      `db:"dni" json:"dni"`
	Address        string      `db:"address" json:"address"`
	Birthdate      *time.Time  `db:"birthdate" json:"birthdate,omitempty"`
	EnrollmentDate time.Time   `db:"enrollment_date" json:"enrollment_date"`
	State          AlumnoState `db:"state" json:"state"`
	Active         bool        `db:"active" json:"active"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}

// AlumnoDetail extends Alumno with derived billing counters.
type AlumnoDetail struct {
	Alumno
	DisplayName    string  `db:"-" json:"display_name"`
	Age            int     `db:"-" json:"age"`
	TotalFacturas  int     `db:"total_facturas" json:"total_facturas"`
	SaldoPendiente float64 `db:"saldo_pendiente" json:"saldo_pendiente"`
}

// AlumnoFilter defines filter criteria for listing students.
type AlumnoFilter struct {
	Search    string
	ClaseID   string
	State     AlumnoState
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
