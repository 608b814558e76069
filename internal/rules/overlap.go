package rules

import (
	"fmt"
	"time"

	"github.com/aulasoft/academia-engine/internal/models"
	appErrors "github.com/aulasoft/academia-engine/pkg/errors"
)

// Overlaps reports whether two half-open intervals [aStart, aEnd) and
// [bStart, bEnd) share at least one instant. Touching endpoints do not
// overlap: a session ending at 11.0 leaves the teacher free at 11.0.
func Overlaps(aStart, aEnd, bStart, bEnd float64) bool {
	return aStart < bEnd && aEnd > bStart
}

// Conflicts returns every session in the candidate pool that occupies the
// same teacher at an overlapping time on the same date. Cancelled sessions
// and the session itself never conflict. A linear scan is enough at academy
// scale.
func Conflicts(s models.Sesion, pool []models.Sesion) []models.Sesion {
	var conflicting []models.Sesion
	for _, other := range pool {
		if other.ID == s.ID {
			continue
		}
		if other.ProfesorID != s.ProfesorID {
			continue
		}
		if !sameDate(other.Date, s.Date) {
			continue
		}
		if other.State == models.SesionStateCancelled {
			continue
		}
		if Overlaps(s.StartTime, s.EndTime, other.StartTime, other.EndTime) {
			conflicting = append(conflicting, other)
		}
	}
	return conflicting
}

// CheckProfesorSchedule rejects a session that overlaps any other active
// session of the same teacher on the same date. The returned error names
// every conflicting interval.
func CheckProfesorSchedule(s models.Sesion, pool []models.Sesion) error {
	conflicting := Conflicts(s, pool)
	if len(conflicting) == 0 {
		return nil
	}

	details := make([]models.SesionConflict, len(conflicting))
	for i, other := range conflicting {
		details[i] = models.SesionConflict{
			SesionID:   other.ID,
			ProfesorID: other.ProfesorID,
			Date:       other.Date,
			StartTime:  other.StartTime,
			EndTime:    other.EndTime,
		}
	}
	first := details[0]
	domainErr := &models.SesionConflictError{
		Message: fmt.Sprintf(
			"el profesor ya tiene una sesión programada de %s a %s el día %s",
			models.FormatHour(first.StartTime),
			models.FormatHour(first.EndTime),
			first.Date.Format("2006-01-02"),
		),
		Conflicts: details,
	}
	return appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status,
		fmt.Sprintf("solapamiento de horario: %s", domainErr.Message))
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
