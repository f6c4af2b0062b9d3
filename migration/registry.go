package migration

// Registry holds migrations by name and remembers registration order, which
// breaks ties between migrations with no dependency relationship.
//
// A Registry is built once and must not be modified while a Migrator is
// planning or running against it.
type Registry struct {
	migrations map[string]*Migration
	order      []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{migrations: make(map[string]*Migration)}
}

// Register adds m. Registering a name twice replaces the earlier migration but
// keeps its original position in registration order.
func (r *Registry) Register(m *Migration) {
	if _, exists := r.migrations[m.Name()]; !exists {
		r.order = append(r.order, m.Name())
	}
	r.migrations[m.Name()] = m
}

// Get returns the migration registered under name.
func (r *Registry) Get(name string) (*Migration, bool) {
	m, ok := r.migrations[name]
	return m, ok
}

// All returns the registered migrations in registration order.
func (r *Registry) All() []*Migration {
	all := make([]*Migration, 0, len(r.order))
	for _, name := range r.order {
		all = append(all, r.migrations[name])
	}
	return all
}

// Len returns the number of registered migrations.
func (r *Registry) Len() int {
	return len(r.order)
}

type visitState int

const (
	unvisited visitState = iota
	inProgress
	done
)

type frame struct {
	name string
	next int // index of the next dependency to visit
}

// ResolveOrder returns every registered migration name ordered so that each
// name follows all of its transitive dependencies. Roots are taken in
// registration order and visited depth first; a name is emitted once all of
// its dependencies have been.
//
// It fails with *NotFoundError when a dependency is not registered and with
// *CircularDependencyError when a dependency is reached while still being
// visited.
func (r *Registry) ResolveOrder() ([]string, error) {
	state := make(map[string]visitState, len(r.order))
	result := make([]string, 0, len(r.order))

	for _, root := range r.order {
		if state[root] == done {
			continue
		}

		state[root] = inProgress
		stack := []frame{{name: root}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps := r.migrations[top.name].Dependencies()

			if top.next < len(deps) {
				dep := deps[top.next]
				top.next++

				switch state[dep] {
				case done:
					continue
				case inProgress:
					return nil, &CircularDependencyError{Name: dep}
				}

				if _, ok := r.migrations[dep]; !ok {
					return nil, &NotFoundError{Name: dep}
				}

				state[dep] = inProgress
				stack = append(stack, frame{name: dep})
				continue
			}

			state[top.name] = done
			result = append(result, top.name)
			stack = stack[:len(stack)-1]
		}
	}

	return result, nil
}
