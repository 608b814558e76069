package models

import "time"

// MatriculaState captures the enrollment workflow:
// draft -> confirmed -> paid, with cancelled reachable from draft or
// confirmed, and draft reachable again from confirmed or cancelled.
type MatriculaState string

const (
	MatriculaStateDraft     MatriculaState = "draft"
	MatriculaStateConfirmed MatriculaState = "confirmed"
	MatriculaStatePaid      MatriculaState = "paid"
	MatriculaStateCancelled MatriculaState = "cancelled"
)

// Matricula binds a student to a course (and optionally to a class group),
// carrying the payment breakdown. ImporteCurso is a snapshot of the course
// price; ImporteTotal and ImportePendiente are derived.
type Matricula struct {
	ID               string         `db:"id" json:"id"`
	Name             string         `db:"name" json:"name"`
	AlumnoID         string         `db:"alumno_id" json:"alumno_id"`
	CursoID          string         `db:"curso_id" json:"curso_id"`
	ClaseID          *string        `db:"clase_id" json:"clase_id,omitempty"`
	FacturaID        *string        `db:"factura_id" json:"factura_id,omitempty"`
	FechaMatricula   time.Time      `db:"fecha_matricula" json:"fecha_matricula"`
	FechaInicio      time.Time      `db:"fecha_inicio" json:"fecha_inicio"`
	FechaFin         *time.Time     `db:"fecha_fin" json:"fecha_fin,omitempty"`
	ImporteCurso     float64        `db:"importe_curso" json:"importe_curso"`
	Descuento        float64        `db:"descuento" json:"descuento"`
	ImporteMatricula float64        `db:"importe_matricula" json:"importe_matricula"`
	ImporteTotal     float64        `db:"importe_total" json:"importe_total"`
	ImportePagado    float64        `db:"importe_pagado" json:"importe_pagado"`
	ImportePendiente float64        `db:"importe_pendiente" json:"importe_pendiente"`
	Notes            string         `db:"notes" json:"notes"`
	State            MatriculaState `db:"state" json:"state"`
	Active           bool           `db:"active" json:"active"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// MatriculaDetail extends Matricula with context for list views.
type MatriculaDetail struct {
	Matricula
	AlumnoName string  `db:"alumno_name" json:"alumno_name"`
	CursoName  string  `db:"curso_name" json:"curso_name"`
	ClaseName  *string `db:"clase_name" json:"clase_name,omitempty"`
}

// MatriculaFilter defines filter criteria for listing enrollments.
type MatriculaFilter struct {
	AlumnoID  string
	CursoID   string
	ClaseID   string
	State     MatriculaState
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
