package compute

import (
	"github.com/aulasoft/academia-engine/internal/models"
	"github.com/aulasoft/academia-engine/pkg/clock"
)

// Field names shared by the entity graphs.
const (
	FieldStartTime      Field = "start_time"
	FieldDuration       Field = "duration"
	FieldEndTime        Field = "end_time"
	FieldSeats          Field = "seats"
	FieldAsistentes     Field = "asistentes"
	FieldSeatsAvailable Field = "seats_available"
	FieldOccupancyRate  Field = "occupancy_rate"
	FieldIsFull         Field = "is_full"
	FieldState          Field = "state"
	FieldColor          Field = "color"
	FieldImporteCurso   Field = "importe_curso"
	FieldDescuento      Field = "descuento"
	FieldImporteMat     Field = "importe_matricula"
	FieldImporteTotal   Field = "importe_total"
	FieldImportePagado  Field = "importe_pagado"
	FieldImportePend    Field = "importe_pendiente"
	FieldDueDate        Field = "due_date"
	FieldIsOverdue      Field = "is_overdue"
	FieldDaysOverdue    Field = "days_overdue"
	FieldNombre         Field = "name"
	FieldApellidos      Field = "apellidos"
	FieldBirthdate      Field = "birthdate"
	FieldDisplayName    Field = "display_name"
	FieldAge            Field = "age"
)

// SesionGraph wires the derived session fields. Changing start_time marks
// end_time dirty; changing the attendee set ripples through the seat stats
// into is_full and the display color.
func SesionGraph() *Recalculator[models.SesionDetail] {
	return MustRecalculator(
		Rule[models.SesionDetail]{
			Target:    FieldEndTime,
			DependsOn: []Field{FieldStartTime, FieldDuration},
			Apply: func(s *models.SesionDetail) {
				s.EndTime = EndTime(s.StartTime, s.Duration)
			},
		},
		Rule[models.SesionDetail]{
			Target:    FieldSeatsAvailable,
			DependsOn: []Field{FieldSeats, FieldAsistentes},
			Apply: func(s *models.SesionDetail) {
				s.SeatsAvailable = SeatsAvailable(s.Seats, s.TotalAsistentes)
			},
		},
		Rule[models.SesionDetail]{
			Target:    FieldOccupancyRate,
			DependsOn: []Field{FieldSeats, FieldAsistentes},
			Apply: func(s *models.SesionDetail) {
				s.OccupancyRate = OccupancyRate(s.Seats, s.TotalAsistentes)
			},
		},
		Rule[models.SesionDetail]{
			Target:    FieldIsFull,
			DependsOn: []Field{FieldSeatsAvailable},
			Apply: func(s *models.SesionDetail) {
				s.IsFull = s.SeatsAvailable <= 0
			},
		},
		Rule[models.SesionDetail]{
			Target:    FieldColor,
			DependsOn: []Field{FieldState, FieldIsFull, FieldOccupancyRate},
			Apply: func(s *models.SesionDetail) {
				s.Color = SesionColor(s.State, s.IsFull, s.OccupancyRate)
			},
		},
	)
}

// MatriculaGraph wires the enrollment money fields: importe_total follows
// the price snapshot, discount and fee; importe_pendiente follows the total
// and the amount paid.
func MatriculaGraph() *Recalculator[models.Matricula] {
	return MustRecalculator(
		Rule[models.Matricula]{
			Target:    FieldImporteTotal,
			DependsOn: []Field{FieldImporteCurso, FieldDescuento, FieldImporteMat},
			Apply: func(m *models.Matricula) {
				m.ImporteTotal = ImporteTotal(m.ImporteCurso, m.Descuento, m.ImporteMatricula)
			},
		},
		Rule[models.Matricula]{
			Target:    FieldImportePend,
			DependsOn: []Field{FieldImporteTotal, FieldImportePagado},
			Apply: func(m *models.Matricula) {
				m.ImportePendiente = ImportePendiente(m.ImporteTotal, m.ImportePagado)
			},
		},
	)
}

// FacturaGraph wires the overdue flags against the injected clock.
func FacturaGraph(clk clock.Clock) *Recalculator[models.FacturaDetail] {
	return MustRecalculator(
		Rule[models.FacturaDetail]{
			Target:    FieldIsOverdue,
			DependsOn: []Field{FieldState, FieldDueDate},
			Apply: func(f *models.FacturaDetail) {
				f.IsOverdue, f.DaysOverdue = Overdue(f.State, f.DueDate, clock.Today(clk))
			},
		},
	)
}

// AlumnoGraph wires the student display fields against the injected clock.
func AlumnoGraph(clk clock.Clock) *Recalculator[models.AlumnoDetail] {
	return MustRecalculator(
		Rule[models.AlumnoDetail]{
			Target:    FieldDisplayName,
			DependsOn: []Field{FieldNombre, FieldApellidos},
			Apply: func(a *models.AlumnoDetail) {
				a.DisplayName = AlumnoDisplayName(a.Name, a.Apellidos)
			},
		},
		Rule[models.AlumnoDetail]{
			Target:    FieldAge,
			DependsOn: []Field{FieldBirthdate},
			Apply: func(a *models.AlumnoDetail) {
				a.Age = Age(a.Birthdate, clock.Today(clk))
			},
		},
	)
}
