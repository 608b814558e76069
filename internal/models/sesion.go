package models

import (
	"fmt"
	"time"
)

// SesionState captures the lifecycle of a scheduled session.
type SesionState string

const (
	SesionStateDraft     SesionState = "draft"
	SesionStateConfirmed SesionState = "confirmed"
	SesionStateDone      SesionState = "done"
	SesionStateCancelled SesionState = "cancelled"
)

// SesionColor is the calendar display color derived from state and occupancy.
type SesionColor string

const (
	ColorRed       SesionColor = "red"
	ColorOrange    SesionColor = "orange"
	ColorYellow    SesionColor = "yellow"
	ColorLightBlue SesionColor = "light-blue"
	ColorGreen     SesionColor = "green"
)

// Sesion represents a single scheduled meeting of a course, taught by one
// teacher on one date. StartTime and Duration are decimal hours; EndTime is
// derived as StartTime + Duration.
type Sesion struct {
	ID         string      `db:"id" json:"id"`
	CursoID    string      `db:"curso_id" json:"curso_id"`
	ClaseID    *string     `db:"clase_id" json:"clase_id,omitempty"`
	ProfesorID string      `db:"profesor_id" json:"profesor_id"`
	Date       time.Time   `db:"date" json:"date"`
	StartTime  float64     `db:"start_time" json:"start_time"`
	Duration   float64     `db:"duration" json:"duration"`
	EndTime    float64     `db:"end_time" json:"end_time"`
	Seats      int         `db:"seats" json:"seats"`
	Room       string      `db:"room" json:"room"`
	Topic      string      `db:"topic" json:"topic"`
	State      SesionState `db:"state" json:"state"`
	Active     bool        `db:"active" json:"active"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updated_at"`
}

// SesionDetail extends Sesion with derived occupancy values.
type SesionDetail struct {
	Sesion
	Name            string      `db:"-" json:"name"`
	TotalAsistentes int         `db:"total_asistentes" json:"total_asistentes"`
	SeatsAvailable  int         `db:"-" json:"seats_available"`
	OccupancyRate   float64     `db:"-" json:"occupancy_rate"`
	IsFull          bool        `db:"-" json:"is_full"`
	Color           SesionColor `db:"-" json:"color"`
}

// SesionFilter defines filter criteria for listing sessions.
type SesionFilter struct {
	CursoID    string
	ClaseID    string
	ProfesorID string
	Date       *time.Time
	State      SesionState
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// SesionConflict describes an existing session occupying the teacher's time.
type SesionConflict struct {
	SesionID   string    `json:"sesion_id"`
	ProfesorID string    `json:"profesor_id"`
	Date       time.Time `json:"date"`
	StartTime  float64   `json:"start_time"`
	EndTime    float64   `json:"end_time"`
}

// SesionConflictError is returned when a session overlaps another session of
// the same teacher on the same date.
type SesionConflictError struct {
	Message   string           `json:"message"`
	Conflicts []SesionConflict `json:"conflicts"`
}

// Error implements the error interface.
func (e *SesionConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// FormatHour renders a decimal hour as HH:MM (9.5 becomes "09:30").
func FormatHour(t float64) string {
	hours := int(t)
	minutes := int((t - float64(hours)) * 60)
	return fmt.Sprintf("%02d:%02d", hours, minutes)
}
