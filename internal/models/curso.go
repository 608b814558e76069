package models

import "time"

// Nivel enumerates CEFR course levels, ordered from A1 to C2.
type Nivel string

const (
	NivelA1 Nivel = "a1"
	NivelA2 Nivel = "a2"
	NivelB1 Nivel = "b1"
	NivelB2 Nivel = "b2"
	NivelC1 Nivel = "c1"
	NivelC2 Nivel = "c2"
)

var nivelOrder = map[Nivel]int{
	NivelA1: 1,
	NivelA2: 2,
	NivelB1: 3,
	NivelB2: 4,
	NivelC1: 5,
	NivelC2: 6,
}

// Valid reports whether the level is one of the known CEFR codes.
func (n Nivel) Valid() bool {
	_, ok := nivelOrder[n]
	return ok
}

// Before reports whether n precedes other in the CEFR ordering.
func (n Nivel) Before(other Nivel) bool {
	return nivelOrder[n] < nivelOrder[other]
}

// Curso represents a language course offered by the academy.
type Curso struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Nivel       Nivel     `db:"nivel" json:"nivel"`
	Price       float64   `db:"price" json:"price"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CursoStats aggregates course-level counters derived from related entities.
type CursoStats struct {
	TotalSesiones int `db:"total_sesiones" json:"total_sesiones"`
	TotalAlumnos  int `db:"total_alumnos" json:"total_alumnos"`
}

// CursoFilter defines filter criteria for listing courses.
type CursoFilter struct {
	Nivel     Nivel
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
