// Package rules enforces the invariants that must hold after any create or
// update. Checks never mutate their input: callers validate the candidate
// post-update state and abort the whole operation on any violation.
package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/aulasoft/academia-engine/internal/models"
	appErrors "github.com/aulasoft/academia-engine/pkg/errors"
)

// Violation identifies a single broken invariant on one entity.
type Violation struct {
	Entity  string `json:"entity"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s/%s: %s", v.Entity, v.Rule, v.Message)
}

// Violations accumulates rule failures. Batch checks collect every violation
// before reporting instead of stopping at the first.
type Violations []Violation

// Add appends a violation.
func (vs *Violations) Add(entity, rule, message string) {
	*vs = append(*vs, Violation{Entity: entity, Rule: rule, Message: message})
}

// Merge appends another set of violations.
func (vs *Violations) Merge(other Violations) {
	*vs = append(*vs, other...)
}

// Err converts the collected violations into a validation error, or nil when
// every rule passed.
func (vs Violations) Err() error {
	if len(vs) == 0 {
		return nil
	}
	msgs := make([]string, len(vs))
	for i, v := range vs {
		msgs[i] = v.String()
	}
	return appErrors.Clone(appErrors.ErrValidation, strings.Join(msgs, "; "))
}

// CheckCurso validates a course record.
func CheckCurso(c models.Curso) Violations {
	var vs Violations
	if c.Name == "" {
		vs.Add("curso", "name_required", "el curso debe tener un título")
	}
	if !c.Nivel.Valid() {
		vs.Add("curso", "nivel_invalid", fmt.Sprintf("nivel desconocido: %q", c.Nivel))
	}
	if c.Price < 0 {
		vs.Add("curso", "price_positive", "el precio del curso no puede ser negativo")
	}
	return vs
}

// CheckClase validates a class group together with its current roster size.
func CheckClase(c models.Clase, totalAlumnos int) Violations {
	var vs Violations
	if c.MaxAlumnos <= 0 {
		vs.Add("clase", "max_alumnos_positive", "la capacidad máxima debe ser mayor que 0")
	}
	if c.MaxAlumnos > 0 && totalAlumnos > c.MaxAlumnos {
		vs.Add("clase", "capacidad", fmt.Sprintf(
			"la clase %s ha superado su capacidad máxima (%d alumnos)", c.Name, c.MaxAlumnos))
	}
	if c.EndTime <= c.StartTime {
		vs.Add("clase", "horario", "la hora de fin debe ser posterior a la de inicio")
	}
	if c.EndDate != nil && c.StartDate.After(*c.EndDate) {
		vs.Add("clase", "fechas", "la fecha de fin debe ser posterior a la de inicio")
	}
	return vs
}

// CheckSesion validates a session together with its attendee count. The done
// check compares against the injected "today".
func CheckSesion(s models.Sesion, totalAsistentes int, today time.Time) Violations {
	var vs Violations
	if s.Duration <= 0 {
		vs.Add("sesion", "duration_positive", "la duración debe ser mayor que 0")
	}
	if s.Seats < 0 {
		vs.Add("sesion", "seats_positive", "el número de asientos no puede ser negativo")
	}
	if totalAsistentes > s.Seats {
		vs.Add("sesion", "capacidad", fmt.Sprintf(
			"la sesión solo tiene %d asientos disponibles", s.Seats))
	}
	if s.State == models.SesionStateDone && s.Date.After(today) {
		vs.Add("sesion", "fecha_futura",
			"no se puede marcar como realizada una sesión con fecha futura")
	}
	return vs
}

// CheckAlumno validates a student record against the injected "today".
func CheckAlumno(a models.Alumno, today time.Time) Violations {
	var vs Violations
	if a.Email == "" || !strings.Contains(a.Email, "@") {
		vs.Add("alumno", "email", "el email debe contener @")
	}
	if a.Birthdate != nil && a.Birthdate.After(today) {
		vs.Add("alumno", "birthdate", "la fecha de nacimiento no puede ser futura")
	}
	return vs
}

// CheckProfesor validates a teacher record.
func CheckProfesor(p models.Profesor) Violations {
	var vs Violations
	if p.Email == "" || !strings.Contains(p.Email, "@") {
		vs.Add("profesor", "email", "el email debe contener @")
	}
	return vs
}

// CheckFactura validates an invoice record.
func CheckFactura(f models.Factura) Violations {
	var vs Violations
	if f.Amount < 0 {
		vs.Add("factura", "amount_positive", "la cantidad debe ser positiva")
	}
	if f.PaymentDate != nil && f.PaymentDate.Before(f.Date) {
		vs.Add("factura", "payment_date",
			"la fecha de pago no puede ser anterior a la fecha de factura")
	}
	return vs
}

// CheckMatricula validates an enrollment record. Derived totals must already
// be recomputed on the candidate state.
func CheckMatricula(m models.Matricula) Violations {
	var vs Violations
	if m.FechaFin != nil && m.FechaFin.Before(m.FechaInicio) {
		vs.Add("matricula", "fechas", "la fecha de fin debe ser posterior a la fecha de inicio")
	}
	if m.Descuento < 0 || m.Descuento > 100 {
		vs.Add("matricula", "descuento_range", "el descuento debe estar entre 0 y 100%")
	}
	if m.ImporteMatricula < 0 {
		vs.Add("matricula", "importe_matricula_positive",
			"el importe de matrícula no puede ser negativo")
	}
	if m.ImportePagado > m.ImporteTotal {
		vs.Add("matricula", "importe_pagado",
			"el importe pagado no puede superar el importe total")
	}
	return vs
}
