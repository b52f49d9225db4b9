package invoke

import (
	"testing"
)

type handle struct {
	name     string
	released int
}

func (h *handle) Release() { h.released++ }

func TestObjectTableIdentity(t *testing.T) {
	tbl := NewObjectTable()
	a, b := &handle{name: "a"}, &handle{name: "b"}

	ida, err := tbl.Put(a)
	if err != nil {
		t.Fatal(err)
	}
	idb, _ := tbl.Put(b)
	again, _ := tbl.Put(a)

	if ida != 1 || idb != 2 {
		t.Errorf("ids = %d, %d, want 1, 2", ida, idb)
	}
	if again != ida {
		t.Errorf("same object got id %d, want %d", again, ida)
	}
	if v, ok := tbl.Get(idb); !ok || v != b {
		t.Errorf("Get(%d) = %v %v", idb, v, ok)
	}
	if tbl.Len() != 2 {
		t.Errorf("Len = %d", tbl.Len())
	}
}

func TestObjectTableFreeReusesID(t *testing.T) {
	tbl := NewObjectTable()
	a := &handle{name: "a"}
	id, _ := tbl.Put(a)

	if _, ok := tbl.Free(id); !ok {
		t.Fatal("Free failed")
	}
	if a.released != 1 {
		t.Errorf("released = %d", a.released)
	}
	if _, ok := tbl.Free(id); ok {
		t.Error("double free succeeded")
	}
	if _, ok := tbl.Get(id); ok {
		t.Error("freed id still resolves")
	}

	b := &handle{name: "b"}
	if reused, _ := tbl.Put(b); reused != id {
		t.Errorf("reused id = %d, want %d", reused, id)
	}
}

func TestObjectTableUncomparable(t *testing.T) {
	tbl := NewObjectTable()
	s := []int{1, 2}
	id1, err := tbl.Put(s)
	if err != nil {
		t.Fatal(err)
	}
	id2, _ := tbl.Put(s)
	if id1 == id2 {
		t.Error("uncomparable values share an id")
	}
}

type boxed struct {
	V any
}

func TestObjectTableUncomparableDynamicValue(t *testing.T) {
	tbl := NewObjectTable()
	tests := []any{
		boxed{V: func() {}},
		boxed{V: map[string]int{}},
		[1]any{[]int{1}},
	}
	for _, v := range tests {
		id1, err := tbl.Put(v)
		if err != nil {
			t.Fatalf("Put(%T): %v", v, err)
		}
		id2, _ := tbl.Put(v)
		if id1 == id2 {
			t.Errorf("%T values share an id", v)
		}
		if _, ok := tbl.Free(id1); !ok {
			t.Errorf("Free(%d) failed", id1)
		}
	}

	// A comparable dynamic value in the same type is still keyed.
	id1, _ := tbl.Put(boxed{V: 7})
	id2, _ := tbl.Put(boxed{V: 7})
	if id1 != id2 {
		t.Errorf("equal values got ids %d and %d", id1, id2)
	}
}

func TestObjectTableRejects(t *testing.T) {
	tbl := NewObjectTable()
	if _, err := tbl.Put(nil); err == nil {
		t.Error("nil accepted")
	}
	for _, id := range []int{0, -1, 5} {
		if _, ok := tbl.Get(id); ok {
			t.Errorf("Get(%d) resolved", id)
		}
	}
}

func TestObjectTableClose(t *testing.T) {
	tbl := NewObjectTable()
	a, b := &handle{}, &handle{}
	tbl.Put(a)
	tbl.Put(b)

	tbl.Close()
	tbl.Close()

	if a.released != 1 || b.released != 1 {
		t.Errorf("released = %d, %d", a.released, b.released)
	}
	if tbl.Len() != 0 {
		t.Errorf("Len = %d", tbl.Len())
	}
	if _, err := tbl.Put(a); err == nil {
		t.Error("Put after Close succeeded")
	}
}
