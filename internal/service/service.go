// Package service orchestrates the academy workflows on top of the
// repositories: validation, derived-field recomputation, schedule conflict
// detection and the enrollment state machine.
package service

import (
	"fmt"

	"github.com/aulasoft/academia-engine/internal/models"
)

func paginate(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}

// transitionMessage names both the current and the requested state so a
// rejected transition is diagnosable from the message alone.
func transitionMessage(entity, current, requested string) string {
	return fmt.Sprintf("%s en estado %q no admite la transición a %q", entity, current, requested)
}

func claseFullMessage(c *models.Clase) string {
	return fmt.Sprintf("la clase %s ha alcanzado su capacidad máxima (%d alumnos)", c.Name, c.MaxAlumnos)
}

func sesionFullMessage(s *models.Sesion) string {
	return fmt.Sprintf("la sesión solo tiene %d asientos disponibles", s.Seats)
}
