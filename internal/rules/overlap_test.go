package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aulasoft/academia-engine/internal/models"
	appErrors "github.com/aulasoft/academia-engine/pkg/errors"
)

func TestOverlaps(t *testing.T) {
	// Half-open intervals: touching endpoints never overlap.
	assert.False(t, Overlaps(9, 10.5, 10.5, 12))
	assert.False(t, Overlaps(10.5, 12, 9, 10.5))
	assert.True(t, Overlaps(9, 10.5, 10, 11))
	assert.True(t, Overlaps(10, 11, 9, 10.5))
	assert.True(t, Overlaps(9, 12, 10, 11))
	assert.False(t, Overlaps(9, 10, 11, 12))
}

func overlapDate() time.Time {
	return time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
}

func TestConflictsFiltersPool(t *testing.T) {
	s := models.Sesion{ID: "ses-new", ProfesorID: "prof-1", Date: overlapDate(), StartTime: 10, EndTime: 11.5}
	pool := []models.Sesion{
		{ID: "ses-new", ProfesorID: "prof-1", Date: overlapDate(), StartTime: 10, EndTime: 11.5},
		{ID: "ses-otro-profe", ProfesorID: "prof-2", Date: overlapDate(), StartTime: 10, EndTime: 11},
		{ID: "ses-otro-dia", ProfesorID: "prof-1", Date: overlapDate().AddDate(0, 0, 1), StartTime: 10, EndTime: 11},
		{ID: "ses-cancelada", ProfesorID: "prof-1", Date: overlapDate(), StartTime: 10, EndTime: 11, State: models.SesionStateCancelled},
		{ID: "ses-choca", ProfesorID: "prof-1", Date: overlapDate(), StartTime: 11, EndTime: 12, State: models.SesionStateConfirmed},
	}
	conflicting := Conflicts(s, pool)
	require.Len(t, conflicting, 1)
	assert.Equal(t, "ses-choca", conflicting[0].ID)
}

func TestCheckProfesorScheduleMessage(t *testing.T) {
	s := models.Sesion{ID: "ses-new", ProfesorID: "prof-1", Date: overlapDate(), StartTime: 10, EndTime: 11.5}
	pool := []models.Sesion{
		{ID: "ses-1", ProfesorID: "prof-1", Date: overlapDate(), StartTime: 9.5, EndTime: 10.5, State: models.SesionStateConfirmed},
	}
	err := CheckProfesorSchedule(s, pool)
	require.Error(t, err)

	e := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, e.Code)
	assert.Contains(t, e.Message, "09:30")
	assert.Contains(t, e.Message, "10:30")
	assert.Contains(t, e.Message, "2026-09-14")

	var conflictErr *models.SesionConflictError
	require.ErrorAs(t, err, &conflictErr)
	require.Len(t, conflictErr.Conflicts, 1)
	assert.Equal(t, "ses-1", conflictErr.Conflicts[0].SesionID)
}

func TestCheckProfesorScheduleClean(t *testing.T) {
	s := models.Sesion{ID: "ses-new", ProfesorID: "prof-1", Date: overlapDate(), StartTime: 10.5, EndTime: 12}
	pool := []models.Sesion{
		{ID: "ses-1", ProfesorID: "prof-1", Date: overlapDate(), StartTime: 9, EndTime: 10.5, State: models.SesionStateConfirmed},
	}
	assert.NoError(t, CheckProfesorSchedule(s, pool))
}
