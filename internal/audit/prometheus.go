package audit

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink counts transitions and field changes on a caller-supplied
// registry. Exposition is the host application's concern.
type PrometheusSink struct {
	transitions  *prometheus.CounterVec
	fieldChanges *prometheus.CounterVec
}

// NewPrometheusSink registers the engine counters.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "academia_state_transitions_total",
		Help: "State transitions performed by the engine",
	}, []string{"entity", "from", "to"})

	fieldChanges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "academia_field_changes_total",
		Help: "Field changes observed by the engine",
	}, []string{"entity", "field"})

	for _, c := range []prometheus.Collector{transitions, fieldChanges} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return &PrometheusSink{transitions: transitions, fieldChanges: fieldChanges}, nil
}

func (s *PrometheusSink) Transition(_ context.Context, entity, _ string, from, to string) {
	s.transitions.WithLabelValues(entity, from, to).Inc()
}

func (s *PrometheusSink) FieldChange(_ context.Context, entity, _ string, field string) {
	s.fieldChanges.WithLabelValues(entity, field).Inc()
}
