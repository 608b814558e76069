package compute

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aulasoft/academia-engine/internal/models"
)

func TestAge(t *testing.T) {
	today := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	birthdayPassed := time.Date(2000, 3, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 26, Age(&birthdayPassed, today))

	birthdayPending := time.Date(2000, 11, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 25, Age(&birthdayPending, today))

	birthdayToday := time.Date(2000, 8, 29, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 26, Age(&birthdayToday, today))

	assert.Equal(t, 0, Age(nil, today))
}

func TestDisplayNames(t *testing.T) {
	assert.Equal(t, "García, María", AlumnoDisplayName("María", "García"))
	assert.Equal(t, "María", AlumnoDisplayName("María", ""))
	assert.Equal(t, "Juan Pérez", ProfesorDisplayName("Juan", "Pérez"))
}

func TestOccupancyRate(t *testing.T) {
	assert.Equal(t, 50.0, OccupancyRate(10, 5))
	assert.Equal(t, 0.0, OccupancyRate(0, 5))
	assert.Equal(t, 100.0, OccupancyRate(10, 10))
}

func TestSesionColor(t *testing.T) {
	cases := []struct {
		name      string
		state     models.SesionState
		isFull    bool
		occupancy float64
		want      models.SesionColor
	}{
		{"cancelled wins over full", models.SesionStateCancelled, true, 100, models.ColorRed},
		{"done wins over full", models.SesionStateDone, true, 100, models.ColorGreen},
		{"full confirmed", models.SesionStateConfirmed, true, 100, models.ColorRed},
		{"eighty percent", models.SesionStateConfirmed, false, 80, models.ColorOrange},
		{"fifty percent", models.SesionStateConfirmed, false, 50, models.ColorYellow},
		{"below fifty", models.SesionStateDraft, false, 49, models.ColorLightBlue},
		{"empty draft", models.SesionStateDraft, false, 0, models.ColorLightBlue},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SesionColor(tc.state, tc.isFull, tc.occupancy))
		})
	}
}

func TestSesionName(t *testing.T) {
	date := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Inglés B2 - [B2-M1] - 2026-09-14", SesionName("Inglés B2", "B2-M1", date))
	assert.Equal(t, "Inglés B2 - 2026-09-14", SesionName("Inglés B2", "", date))
	assert.Equal(t, "Nueva Sesión", SesionName("", "", time.Time{}))
}

func TestOverdue(t *testing.T) {
	today := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	due := time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC)

	over, days := Overdue(models.FacturaStatePending, &due, today)
	assert.True(t, over)
	assert.Equal(t, 10, days)

	over, days = Overdue(models.FacturaStateOverdue, &due, today)
	assert.True(t, over)
	assert.Equal(t, 10, days)

	over, _ = Overdue(models.FacturaStatePaid, &due, today)
	assert.False(t, over)

	over, _ = Overdue(models.FacturaStatePending, &today, today)
	assert.False(t, over)

	over, _ = Overdue(models.FacturaStatePending, nil, today)
	assert.False(t, over)
}

func TestImporteTotal(t *testing.T) {
	assert.Equal(t, 500.0, ImporteTotal(500, 10, 50))
	assert.Equal(t, 550.0, ImporteTotal(500, 0, 50))
	assert.Equal(t, 50.0, ImporteTotal(500, 100, 50))
}

func TestDiasSemana(t *testing.T) {
	c := models.Clase{Monday: true, Wednesday: true, Friday: true}
	assert.Equal(t, "L-X-V", DiasSemana(c))
	assert.Equal(t, "", DiasSemana(models.Clase{}))
	full := models.Clase{Monday: true, Tuesday: true, Wednesday: true, Thursday: true, Friday: true, Saturday: true, Sunday: true}
	assert.Equal(t, "L-M-X-J-V-S-D", DiasSemana(full))
}

func TestFormatHour(t *testing.T) {
	assert.Equal(t, "09:30", models.FormatHour(9.5))
	assert.Equal(t, "10:00", models.FormatHour(10))
	assert.Equal(t, "16:45", models.FormatHour(16.75))
}
