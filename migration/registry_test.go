package migration

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func registryOf(migs ...*Migration) *Registry {
	r := NewRegistry()
	for _, m := range migs {
		r.Register(m)
	}
	return r
}

func TestResolveOrder_Linear(t *testing.T) {
	r := registryOf(
		New("0003_c").DependsOn("0002_b"),
		New("0001_a"),
		New("0002_b").DependsOn("0001_a"),
	)

	order, err := r.ResolveOrder()
	if err != nil {
		t.Fatalf("ResolveOrder failed: %v", err)
	}

	if want := []string{"0001_a", "0002_b", "0003_c"}; !reflect.DeepEqual(order, want) {
		t.Errorf("Expected %v, got %v", want, order)
	}
}

func TestResolveOrder_IndependentKeepRegistrationOrder(t *testing.T) {
	r := registryOf(New("zeta"), New("alpha"), New("mid"))

	order, err := r.ResolveOrder()
	if err != nil {
		t.Fatalf("ResolveOrder failed: %v", err)
	}

	if want := []string{"zeta", "alpha", "mid"}; !reflect.DeepEqual(order, want) {
		t.Errorf("Expected %v, got %v", want, order)
	}
}

func TestResolveOrder_Diamond(t *testing.T) {
	r := registryOf(
		New("d").DependsOn("b", "c"),
		New("b").DependsOn("a"),
		New("c").DependsOn("a"),
		New("a"),
	)

	order, err := r.ResolveOrder()
	if err != nil {
		t.Fatalf("ResolveOrder failed: %v", err)
	}

	if want := []string{"a", "b", "c", "d"}; !reflect.DeepEqual(order, want) {
		t.Errorf("Expected %v, got %v", want, order)
	}
	assertDependencyOrder(t, r, order)
}

func TestResolveOrder_DependenciesPrecedeDependents(t *testing.T) {
	r := registryOf(
		New("m5").DependsOn("m2", "m4"),
		New("m1"),
		New("m4").DependsOn("m3"),
		New("m2").DependsOn("m1"),
		New("m3").DependsOn("m1"),
		New("m6"),
		New("m7").DependsOn("m6", "m5"),
	)

	order, err := r.ResolveOrder()
	if err != nil {
		t.Fatalf("ResolveOrder failed: %v", err)
	}

	if len(order) != r.Len() {
		t.Fatalf("Expected %d names, got %v", r.Len(), order)
	}
	assertDependencyOrder(t, r, order)

	again, err := r.ResolveOrder()
	if err != nil {
		t.Fatalf("ResolveOrder (second) failed: %v", err)
	}
	if !reflect.DeepEqual(order, again) {
		t.Errorf("Expected deterministic order, got %v then %v", order, again)
	}
}

// assertDependencyOrder checks that every dependency appears before its dependent.
func assertDependencyOrder(t *testing.T, r *Registry, order []string) {
	t.Helper()

	pos := make(map[string]int, len(order))
	for i, name := range order {
		if _, dup := pos[name]; dup {
			t.Fatalf("Name %s appears twice in %v", name, order)
		}
		pos[name] = i
	}

	for _, m := range r.All() {
		for _, dep := range m.Dependencies() {
			if pos[dep] >= pos[m.Name()] {
				t.Errorf("Expected %s before %s in %v", dep, m.Name(), order)
			}
		}
	}
}

func TestResolveOrder_Cycle(t *testing.T) {
	r := registryOf(
		New("a").DependsOn("b"),
		New("b").DependsOn("c"),
		New("c").DependsOn("a"),
	)

	_, err := r.ResolveOrder()
	if !errors.Is(err, ErrCircularDependency) {
		t.Fatalf("Expected circular dependency error, got %v", err)
	}

	var cycleErr *CircularDependencyError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("Expected *CircularDependencyError, got %T", err)
	}
	if cycleErr.Name != "a" {
		t.Errorf("Expected cycle detected at a, got %s", cycleErr.Name)
	}
}

func TestResolveOrder_SelfDependency(t *testing.T) {
	r := registryOf(New("a").DependsOn("a"))

	if _, err := r.ResolveOrder(); !errors.Is(err, ErrCircularDependency) {
		t.Errorf("Expected circular dependency error, got %v", err)
	}
}

func TestResolveOrder_MissingDependency(t *testing.T) {
	r := registryOf(New("a"), New("b").DependsOn("ghost"))

	_, err := r.ResolveOrder()
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected *NotFoundError, got %v", err)
	}
	if notFound.Name != "ghost" {
		t.Errorf("Expected missing name ghost, got %s", notFound.Name)
	}
	if err.Error() != "migration not found: ghost" {
		t.Errorf("Unexpected message: %s", err.Error())
	}
}

func TestResolveOrder_DeepChain(t *testing.T) {
	r := NewRegistry()
	const n = 10000

	names := make([]string, n)
	for i := 0; i < n; i++ {
		names[i] = fmt.Sprintf("m%05d", i)
	}
	// register in reverse so every root walks the whole chain
	for i := n - 1; i >= 0; i-- {
		m := New(names[i])
		if i > 0 {
			m.DependsOn(names[i-1])
		}
		r.Register(m)
	}

	order, err := r.ResolveOrder()
	if err != nil {
		t.Fatalf("ResolveOrder failed: %v", err)
	}
	if !reflect.DeepEqual(order, names) {
		t.Errorf("Expected chain order, got first=%s last=%s", order[0], order[len(order)-1])
	}
}

func TestRegister_LastWriteWinsKeepsPosition(t *testing.T) {
	r := NewRegistry()
	r.Register(New("a"))
	r.Register(New("b"))
	r.Register(New("a").Atomic(false))

	if r.Len() != 2 {
		t.Fatalf("Expected 2 migrations, got %d", r.Len())
	}

	m, ok := r.Get("a")
	if !ok || m.IsAtomic() {
		t.Errorf("Expected replaced migration a, got %v", m)
	}

	all := r.All()
	if all[0].Name() != "a" || all[1].Name() != "b" {
		t.Errorf("Expected registration order a, b; got %s, %s", all[0].Name(), all[1].Name())
	}

	if _, ok := r.Get("missing"); ok {
		t.Error("Expected missing migration lookup to fail")
	}
}
