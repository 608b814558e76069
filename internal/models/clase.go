package models

import "time"

// ClaseSchedule buckets a group into a weekly time band.
type ClaseSchedule string

const (
	ScheduleMorning   ClaseSchedule = "morning"
	ScheduleAfternoon ClaseSchedule = "afternoon"
	ScheduleEvening   ClaseSchedule = "evening"
	ScheduleWeekend   ClaseSchedule = "weekend"
)

// ClaseState captures the lifecycle of a class group.
type ClaseState string

const (
	ClaseStateDraft      ClaseState = "draft"
	ClaseStateConfirmed  ClaseState = "confirmed"
	ClaseStateInProgress ClaseState = "in_progress"
	ClaseStateDone       ClaseState = "done"
	ClaseStateCancelled  ClaseState = "cancelled"
)

// Clase represents a class group: a set of students meeting on a weekly
// schedule for one course. Times are decimal hours (9.5 = 09:30).
type Clase struct {
	ID         string        `db:"id" json:"id"`
	Name       string        `db:"name" json:"name"`
	Code       string        `db:"code" json:"code"`
	CursoID    string        `db:"curso_id" json:"curso_id"`
	ProfesorID string        `db:"profesor_id" json:"profesor_id"`
	Schedule   ClaseSchedule `db:"schedule" json:"schedule"`
	Monday     bool          `db:"monday" json:"monday"`
	Tuesday    bool          `db:"tuesday" json:"tuesday"`
	Wednesday  bool          `db:"wednesday" json:"wednesday"`
	Thursday   bool          `db:"thursday" json:"thursday"`
	Friday     bool          `db:"friday" json:"friday"`
	Saturday   bool          `db:"saturday" json:"saturday"`
	Sunday     bool          `db:"sunday" json:"sunday"`
	StartTime  float64       `db:"start_time" json:"start_time"`
	EndTime    float64       `db:"end_time" json:"end_time"`
	StartDate  time.Time     `db:"start_date" json:"start_date"`
	EndDate    *time.Time    `db:"end_date" json:"end_date,omitempty"`
	MaxAlumnos int           `db:"max_alumnos" json:"max_alumnos"`
	Room       string        `db:"room" json:"room"`
	State      ClaseState    `db:"state" json:"state"`
	Active     bool          `db:"active" json:"active"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}

// ClaseDetail extends Clase with derived occupancy counters.
type ClaseDetail struct {
	Clase
	TotalAlumnos      int     `db:"total_alumnos" json:"total_alumnos"`
	PlazasDisponibles int     `db:"plazas_disponibles" json:"plazas_disponibles"`
	TotalSesiones     int     `db:"total_sesiones" json:"total_sesiones"`
	DiasSemana        string  `db:"-" json:"dias_semana"`
	PrecioCurso       float64 `db:"precio_curso" json:"precio_curso"`
}

// ClaseFilter defines filter criteria for listing class groups.
type ClaseFilter struct {
	CursoID    string
	ProfesorID string
	Schedule   ClaseSchedule
	State      ClaseState
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
