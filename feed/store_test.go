package feed

import "testing"

func item(id string) Item {
	return Item{ID: id, Text: "post " + id, AuthorName: "Aria"}
}

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestStoreAppendNewestFirst(t *testing.T) {
	s := NewStore(10)
	s.Append(item("a"))
	s.Append(item("b"))
	s.Append(item("c"))
	got := ids(s.List())
	want := []string{"c", "b", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestStoreEvictsOldestAtCapacity(t *testing.T) {
	s := NewStore(2)
	if ev := s.Append(item("a")); ev != 0 {
		t.Fatalf("evicted %d, want 0", ev)
	}
	s.Append(item("b"))
	if ev := s.Append(item("c")); ev != 1 {
		t.Fatalf("evicted %d, want 1", ev)
	}
	got := ids(s.List())
	if len(got) != 2 || got[0] != "c" || got[1] != "b" {
		t.Fatalf("after eviction = %v, want [c b]", got)
	}
}

func TestStoreCapacityFloor(t *testing.T) {
	s := NewStore(0)
	if s.Capacity() != 1 {
		t.Fatalf("capacity = %d, want 1", s.Capacity())
	}
	s.Append(item("a"))
	s.Append(item("b"))
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}
	if s.List()[0].ID != "b" {
		t.Fatal("single slot should hold the newest item")
	}
}

func TestStoreSetCapacityShrinks(t *testing.T) {
	s := NewStore(5)
	for _, id := range []string{"a", "b", "c", "d"} {
		s.Append(item(id))
	}
	s.SetCapacity(2)
	got := ids(s.List())
	if len(got) != 2 || got[0] != "d" || got[1] != "c" {
		t.Fatalf("after shrink = %v, want [d c]", got)
	}
	s.SetCapacity(-1)
	if s.Capacity() != 1 {
		t.Fatalf("capacity = %d, want floor of 1", s.Capacity())
	}
}

func TestStoreReplaceTrims(t *testing.T) {
	s := NewStore(2)
	s.Replace([]Item{item("a"), item("b"), item("c")})
	got := ids(s.List())
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("after replace = %v, want [a b]", got)
	}
}

func TestStoreListIsACopy(t *testing.T) {
	s := NewStore(5)
	s.Append(item("a"))
	out := s.List()
	out[0].ID = "mutated"
	if s.List()[0].ID != "a" {
		t.Fatal("List must not expose internal storage")
	}
}
