package compute

import "fmt"

// Field names a stored or derived attribute of an entity.
type Field string

// Rule recomputes one derived field of T from its declared dependencies.
// Apply must be pure over the entity's fields and never fail.
type Rule[T any] struct {
	Target    Field
	DependsOn []Field
	Apply     func(*T)
}

// Recalculator is a directed dependency graph between stored fields and
// derived fields. Mutating a field invalidates its transitive dependents,
// which are recomputed synchronously in topological order.
type Recalculator[T any] struct {
	ordered []Rule[T]
	deps    map[Field][]Field
}

// NewRecalculator builds a recalculator from the given rules. It fails on
// duplicate targets and on dependency cycles among derived fields.
func NewRecalculator[T any](rules ...Rule[T]) (*Recalculator[T], error) {
	byTarget := make(map[Field]Rule[T], len(rules))
	for _, r := range rules {
		if _, dup := byTarget[r.Target]; dup {
			return nil, fmt.Errorf("compute: duplicate rule for field %q", r.Target)
		}
		if r.Apply == nil {
			return nil, fmt.Errorf("compute: rule for field %q has no apply func", r.Target)
		}
		byTarget[r.Target] = r
	}

	// Kahn's algorithm over edges between derived fields only; stored
	// fields have no rule and act as graph sources.
	indegree := make(map[Field]int, len(rules))
	dependents := make(map[Field][]Field)
	for _, r := range rules {
		indegree[r.Target] += 0
		for _, dep := range r.DependsOn {
			if _, derived := byTarget[dep]; derived {
				dependents[dep] = append(dependents[dep], r.Target)
				indegree[r.Target]++
			}
		}
	}

	var queue []Field
	for target, deg := range indegree {
		if deg == 0 {
			queue = append(queue, target)
		}
	}

	ordered := make([]Rule[T], 0, len(rules))
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		ordered = append(ordered, byTarget[next])
		for _, dependent := range dependents[next] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}
	if len(ordered) != len(rules) {
		return nil, fmt.Errorf("compute: dependency cycle among derived fields")
	}

	deps := make(map[Field][]Field, len(rules))
	for _, r := range rules {
		deps[r.Target] = r.DependsOn
	}
	return &Recalculator[T]{ordered: ordered, deps: deps}, nil
}

// MustRecalculator is NewRecalculator for statically-known graphs.
func MustRecalculator[T any](rules ...Rule[T]) *Recalculator[T] {
	r, err := NewRecalculator(rules...)
	if err != nil {
		panic(err)
	}
	return r
}

// Recompute applies the rules whose dependencies transitively include any of
// the changed fields, in topological order. With no changed fields given,
// every rule runs.
func (r *Recalculator[T]) Recompute(entity *T, changed ...Field) {
	if len(changed) == 0 {
		for _, rule := range r.ordered {
			rule.Apply(entity)
		}
		return
	}

	dirty := make(map[Field]bool, len(changed))
	for _, f := range changed {
		dirty[f] = true
	}
	for _, rule := range r.ordered {
		for _, dep := range r.deps[rule.Target] {
			if dirty[dep] {
				rule.Apply(entity)
				dirty[rule.Target] = true
				break
			}
		}
	}
}
