package alphabet

import "testing"

func TestNew_IndicesMatchInsertionOrder(t *testing.T) {
	a := New(5)
	for i := 0; i < 5; i++ {
		if a.Symbol(i) != Symbol(i) {
			t.Fatalf("Symbol(%d) = %d, want %d", i, a.Symbol(i), i)
		}
		if a.IndexOf(Symbol(i)) != i {
			t.Fatalf("IndexOf(%d) = %d, want %d", i, a.IndexOf(Symbol(i)), i)
		}
	}
}

func TestAdd_DeduplicatesAndReturnsExistingIndex(t *testing.T) {
	a := Empty()
	i1 := a.Add(7)
	i2 := a.Add(3)
	i3 := a.Add(7)
	if i1 != i3 {
		t.Fatalf("Add of duplicate symbol returned new index %d, want %d", i3, i1)
	}
	if a.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", a.Size())
	}
	if i2 != 1 {
		t.Fatalf("second distinct Add got index %d, want 1", i2)
	}
}

func TestIndexOf_NotFound(t *testing.T) {
	a := New(3)
	if idx := a.IndexOf(Symbol(9)); idx != NotFound {
		t.Fatalf("IndexOf(9) = %d, want NotFound", idx)
	}
}

func TestUnion_PreservesOrderAndDedupes(t *testing.T) {
	a := FromSymbols([]Symbol{1, 2, 3})
	b := FromSymbols([]Symbol{3, 4})
	u := Union(a, b)

	want := []Symbol{1, 2, 3, 4}
	if u.Size() != len(want) {
		t.Fatalf("Union size = %d, want %d", u.Size(), len(want))
	}
	for i, s := range want {
		if u.Symbol(i) != s {
			t.Fatalf("Union.Symbol(%d) = %d, want %d", i, u.Symbol(i), s)
		}
	}
}

func TestDuplicate_IsIndependentCopy(t *testing.T) {
	a := FromSymbols([]Symbol{1, 2})
	b := Duplicate(a)
	b.Add(9)
	if a.Size() != 2 {
		t.Fatalf("mutating duplicate affected original: a.Size() = %d", a.Size())
	}
	if b.Size() != 3 {
		t.Fatalf("Duplicate.Add did not grow copy: b.Size() = %d", b.Size())
	}
}

func TestContains(t *testing.T) {
	a := New(4)
	if !a.Contains(2) {
		t.Fatal("Contains(2) = false, want true")
	}
	if a.Contains(9) {
		t.Fatal("Contains(9) = true, want false")
	}
}
