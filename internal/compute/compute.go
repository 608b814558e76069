// Package compute derives read-only values from entity fields. Every
// function is pure and total: absent inputs yield zero values, never errors.
package compute

import (
	"fmt"
	"strings"
	"time"

	"github.com/aulasoft/academia-engine/internal/models"
)

// AlumnoDisplayName joins surname and first name for student listings.
func AlumnoDisplayName(name, apellidos string) string {
	if name != "" && apellidos != "" {
		return fmt.Sprintf("%s, %s", apellidos, name)
	}
	return name
}

// ProfesorDisplayName joins first name and surname for teacher listings.
func ProfesorDisplayName(name, apellidos string) string {
	if name != "" && apellidos != "" {
		return fmt.Sprintf("%s %s", name, apellidos)
	}
	return name
}

// Age returns full years elapsed from birthdate to today, decremented by one
// when this year's birthday has not happened yet. Nil birthdate yields 0.
func Age(birthdate *time.Time, today time.Time) int {
	if birthdate == nil {
		return 0
	}
	age := today.Year() - birthdate.Year()
	if today.Month() < birthdate.Month() ||
		(today.Month() == birthdate.Month() && today.Day() < birthdate.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// EndTime derives a session's end from its start and duration, both in
// decimal hours.
func EndTime(startTime, duration float64) float64 {
	return startTime + duration
}

// SeatsAvailable returns remaining capacity, which may go negative when the
// attendee list already exceeds seats (the validator rejects such a write).
func SeatsAvailable(seats, asistentes int) int {
	return seats - asistentes
}

// OccupancyRate returns attendees over seats as a percentage, 0 when there
// are no seats.
func OccupancyRate(seats, asistentes int) float64 {
	if seats <= 0 {
		return 0
	}
	return float64(asistentes) / float64(seats) * 100
}

// SesionColor picks the calendar color for a session. Checks run in priority
// order; the first match wins.
func SesionColor(state models.SesionState, isFull bool, occupancyRate float64) models.SesionColor {
	switch {
	case state == models.SesionStateCancelled:
		return models.ColorRed
	case state == models.SesionStateDone:
		return models.ColorGreen
	case isFull:
		return models.ColorRed
	case occupancyRate >= 80:
		return models.ColorOrange
	case occupancyRate >= 50:
		return models.ColorYellow
	default:
		return models.ColorLightBlue
	}
}

// SesionName builds the session display name from course, group code and date.
func SesionName(cursoName, claseCode string, date time.Time) string {
	var parts []string
	if cursoName != "" {
		parts = append(parts, cursoName)
	}
	if claseCode != "" {
		parts = append(parts, fmt.Sprintf("[%s]", claseCode))
	}
	if !date.IsZero() {
		parts = append(parts, date.Format("2006-01-02"))
	}
	if len(parts) == 0 {
		return "Nueva Sesión"
	}
	return strings.Join(parts, " - ")
}

// Overdue reports whether an unpaid invoice is past due and by how many
// days. Only pending or already-overdue invoices with a due date count;
// days clamp to 0 otherwise.
func Overdue(state models.FacturaState, dueDate *time.Time, today time.Time) (bool, int) {
	if state != models.FacturaStatePending && state != models.FacturaStateOverdue {
		return false, 0
	}
	if dueDate == nil {
		return false, 0
	}
	if !dueDate.Before(today) {
		return false, 0
	}
	return true, int(today.Sub(*dueDate).Hours() / 24)
}

// ImporteTotal applies the discount percentage to the course price and adds
// the flat enrollment fee.
func ImporteTotal(importeCurso, descuento, importeMatricula float64) float64 {
	aplicado := importeCurso * (descuento / 100)
	return (importeCurso - aplicado) + importeMatricula
}

// ImportePendiente is the unpaid remainder of an enrollment.
func ImportePendiente(importeTotal, importePagado float64) float64 {
	return importeTotal - importePagado
}

// DiasSemana renders the weekly day flags of a class group as the
// Spanish-calendar letter string L-M-X-J-V-S-D.
func DiasSemana(c models.Clase) string {
	type day struct {
		on    bool
		letra string
	}
	days := []day{
		{c.Monday, "L"},
		{c.Tuesday, "M"},
		{c.Wednesday, "X"},
		{c.Thursday, "J"},
		{c.Friday, "V"},
		{c.Saturday, "S"},
		{c.Sunday, "D"},
	}
	var letras []string
	for _, d := range days {
		if d.on {
			letras = append(letras, d.letra)
		}
	}
	return strings.Join(letras, "-")
}
