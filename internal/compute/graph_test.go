package compute

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aulasoft/academia-engine/internal/models"
	"github.com/aulasoft/academia-engine/pkg/clock"
)

type widget struct {
	A, B    int
	Sum     int
	Doubled int
}

func TestRecalculatorOrdersChainedRules(t *testing.T) {
	// Doubled depends on Sum, so Sum must run first regardless of the
	// declaration order.
	rec, err := NewRecalculator(
		Rule[widget]{
			Target:    "doubled",
			DependsOn: []Field{"sum"},
			Apply:     func(w *widget) { w.Doubled = w.Sum * 2 },
		},
		Rule[widget]{
			Target:    "sum",
			DependsOn: []Field{"a", "b"},
			Apply:     func(w *widget) { w.Sum = w.A + w.B },
		},
	)
	require.NoError(t, err)

	w := &widget{A: 2, B: 3}
	rec.Recompute(w)
	assert.Equal(t, 5, w.Sum)
	assert.Equal(t, 10, w.Doubled)
}

func TestRecalculatorDirtyPropagation(t *testing.T) {
	rec := MustRecalculator(
		Rule[widget]{
			Target:    "sum",
			DependsOn: []Field{"a", "b"},
			Apply:     func(w *widget) { w.Sum = w.A + w.B },
		},
		Rule[widget]{
			Target:    "doubled",
			DependsOn: []Field{"sum"},
			Apply:     func(w *widget) { w.Doubled = w.Sum * 2 },
		},
	)

	w := &widget{A: 1, B: 1, Sum: 99, Doubled: 99}
	rec.Recompute(w, "a")
	assert.Equal(t, 2, w.Sum)
	assert.Equal(t, 4, w.Doubled)

	// An unrelated field leaves everything untouched.
	w2 := &widget{A: 1, B: 1, Sum: 99, Doubled: 99}
	rec.Recompute(w2, "unrelated")
	assert.Equal(t, 99, w2.Sum)
	assert.Equal(t, 99, w2.Doubled)
}

func TestNewRecalculatorRejectsCycle(t *testing.T) {
	_, err := NewRecalculator(
		Rule[widget]{Target: "x", DependsOn: []Field{"y"}, Apply: func(*widget) {}},
		Rule[widget]{Target: "y", DependsOn: []Field{"x"}, Apply: func(*widget) {}},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestNewRecalculatorRejectsDuplicateTarget(t *testing.T) {
	_, err := NewRecalculator(
		Rule[widget]{Target: "x", Apply: func(*widget) {}},
		Rule[widget]{Target: "x", Apply: func(*widget) {}},
	)
	require.Error(t, err)
}

func TestSesionGraphRipplesAsistentesToColor(t *testing.T) {
	g := SesionGraph()
	s := &models.SesionDetail{
		Sesion: models.Sesion{
			StartTime: 9,
			Duration:  1.5,
			Seats:     10,
			State:     models.SesionStateConfirmed,
		},
		TotalAsistentes: 8,
	}
	g.Recompute(s)
	assert.Equal(t, 10.5, s.EndTime)
	assert.Equal(t, 2, s.SeatsAvailable)
	assert.Equal(t, 80.0, s.OccupancyRate)
	assert.False(t, s.IsFull)
	assert.Equal(t, models.ColorOrange, s.Color)

	s.TotalAsistentes = 10
	g.Recompute(s, FieldAsistentes)
	assert.True(t, s.IsFull)
	assert.Equal(t, models.ColorRed, s.Color)
}

func TestMatriculaGraphIsIdempotent(t *testing.T) {
	g := MatriculaGraph()
	m := &models.Matricula{ImporteCurso: 500, Descuento: 10, ImporteMatricula: 50, ImportePagado: 100}
	g.Recompute(m)
	assert.Equal(t, 500.0, m.ImporteTotal)
	assert.Equal(t, 400.0, m.ImportePendiente)

	g.Recompute(m)
	assert.Equal(t, 500.0, m.ImporteTotal)
	assert.Equal(t, 400.0, m.ImportePendiente)
}

func TestAlumnoGraph(t *testing.T) {
	clk := clock.At(time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC))
	g := AlumnoGraph(clk)
	birth := time.Date(2008, 12, 1, 0, 0, 0, 0, time.UTC)
	a := &models.AlumnoDetail{Alumno: models.Alumno{Name: "María", Apellidos: "García", Birthdate: &birth}}
	g.Recompute(a)
	assert.Equal(t, "García, María", a.DisplayName)
	assert.Equal(t, 17, a.Age)
}
