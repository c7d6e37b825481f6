package ordered

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestMapPreservesInsertionOrder(t *testing.T) {
	m := New[int]()
	m.Set("zeta", 1)
	m.Set("alpha", 2)
	m.Set("mid", 3)
	m.Set("zeta", 4) // existing key keeps its slot

	want := []string{"zeta", "alpha", "mid"}
	if got := m.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	if v, _ := m.Get("zeta"); v != 4 {
		t.Fatalf("Get(zeta) = %d, want 4", v)
	}

	var seen []string
	for k := range m.All() {
		seen = append(seen, k)
	}
	if !reflect.DeepEqual(seen, want) {
		t.Fatalf("All() order = %v, want %v", seen, want)
	}
}

func TestAppend(t *testing.T) {
	m := New[[]string]()
	Append(m, "b", "x")
	Append(m, "a", "y")
	Append(m, "b", "z", "w")

	got, _ := m.Get("b")
	if !reflect.DeepEqual(got, []string{"x", "z", "w"}) {
		t.Fatalf("Get(b) = %v", got)
	}
	if m.Len() != 2 {
		t.Fatalf("Len() = %d", m.Len())
	}
}

func TestMarshalJSONKeepsOrder(t *testing.T) {
	inner := New[int]()
	inner.Set("b", 2)
	inner.Set("a", 1)
	outer := New[*Map[int]]()
	outer.Set("2023/07/24", inner)
	outer.Set("2023/07/03", New[int]())

	b, err := json.Marshal(outer)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"2023/07/24":{"b":2,"a":1},"2023/07/03":{}}`
	if string(b) != want {
		t.Fatalf("json = %s, want %s", b, want)
	}
}
