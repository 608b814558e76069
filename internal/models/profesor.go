package models

import "time"

// Profesor represents a teacher employed by the academy. A teacher may be
// linked to at most one system user account.
type Profesor struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Apellidos      string    `db:"apellidos" json:"apellidos"`
	Email          string    `db:"email" json:"email"`
	Phone          string    `db:"phone" json:"phone"`
	Titulacion     string    `db:"titulacion" json:"titulacion"`
	Specialization string    `db:"specialization" json:"specialization"`
	UserID         *string   `db:"user_id" json:"user_id,omitempty"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// ProfesorDetail extends Profesor with assignment counters.
type ProfesorDetail struct {
	Profesor
	DisplayName string `db:"-" json:"display_name"`
	TotalClases int    `db:"total_clases" json:"total_clases"`
}

// ProfesorFilter defines filter criteria for listing teachers.
type ProfesorFilter struct {
	Specialization string
	Search         string
	Active         *bool
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
