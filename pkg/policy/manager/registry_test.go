package manager

import (
	"sync"
	"testing"
)

func testPolicy(id string) *Policy {
	return &Policy{
		ID:      id,
		Name:    id,
		Version: "1.0.0",
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	registry := NewRegistry()

	if err := registry.Register(testPolicy("a")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	policy, ok := registry.Get("a")
	if !ok || policy.ID != "a" {
		t.Errorf("Get(a) = %v, %v; want policy, true", policy, ok)
	}

	if _, ok := registry.Get("missing"); ok {
		t.Error("Get(missing) = true, want false")
	}
}

func TestRegistry_RegisterValidation(t *testing.T) {
	registry := NewRegistry()

	if err := registry.Register(nil); err == nil {
		t.Error("Register(nil) error = nil, want error")
	}
	if err := registry.Register(&Policy{}); err == nil {
		t.Error("Register(empty id) error = nil, want error")
	}
}

func TestRegistry_Replace(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(testPolicy("old")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	v1 := registry.GetVersion()

	err := registry.Replace([]*Policy{testPolicy("a"), testPolicy("b")})
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	if registry.Count() != 2 {
		t.Errorf("Count() = %d, want 2", registry.Count())
	}
	if _, ok := registry.Get("old"); ok {
		t.Error("Get(old) = true, want replaced away")
	}
	if registry.GetVersion() == v1 {
		t.Error("GetVersion() unchanged after replace")
	}
}

func TestRegistry_GetAllSorted(t *testing.T) {
	registry := NewRegistry()
	for _, id := range []string{"c", "a", "b"} {
		if err := registry.Register(testPolicy(id)); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	all := registry.GetAll()
	if len(all) != 3 {
		t.Fatalf("GetAll() = %d policies, want 3", len(all))
	}
	for i, want := range []string{"a", "b", "c"} {
		if all[i].ID != want {
			t.Errorf("GetAll()[%d] = %q, want %q", i, all[i].ID, want)
		}
	}
}

func TestRegistry_Unregister(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(testPolicy("a")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := registry.Unregister("a"); err != nil {
		t.Errorf("Unregister(a) error = %v", err)
	}
	if err := registry.Unregister("a"); err == nil {
		t.Error("Unregister(missing) error = nil, want error")
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(testPolicy("a")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				registry.Get("a")
				registry.GetAll()
				registry.GetVersion()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = registry.Replace([]*Policy{testPolicy("a"), testPolicy("b")})
			}
		}()
	}
	wg.Wait()

	if registry.Count() != 2 {
		t.Errorf("Count() = %d, want 2", registry.Count())
	}
}
