package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aulasoft/academia-engine/internal/models"
)

type mockCursoReader struct {
	cursos map[string]*models.Curso
}

func (m *mockCursoReader) FindByID(_ context.Context, id string) (*models.Curso, error) {
	if c, ok := m.cursos[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type mockClaseReader struct {
	clases map[string]*models.Clase
}

func (m *mockClaseReader) FindByID(_ context.Context, id string) (*models.Clase, error) {
	if c, ok := m.clases[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type mockProfesorReader struct {
	profesores map[string]*models.Profesor
}

func (m *mockProfesorReader) FindByID(_ context.Context, id string) (*models.Profesor, error) {
	if p, ok := m.profesores[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

type mockAlumnoReader struct {
	alumnos map[string]*models.Alumno
}

func (m *mockAlumnoReader) FindByID(_ context.Context, id string) (*models.Alumno, error) {
	if a, ok := m.alumnos[id]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

// recordingSink captures audit notifications for assertions.
type recordingSink struct {
	transitions []string
	changes     []string
}

func (s *recordingSink) Transition(_ context.Context, entity, entityID, from, to string) {
	s.transitions = append(s.transitions, fmt.Sprintf("%s:%s:%s->%s", entity, entityID, from, to))
}

func (s *recordingSink) FieldChange(_ context.Context, entity, entityID, field string) {
	s.changes = append(s.changes, fmt.Sprintf("%s:%s:%s", entity, entityID, field))
}
