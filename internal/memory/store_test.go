package memory

import "testing"

func TestSaveAndRecall(t *testing.T) {
	s := NewStore()

	if err := s.Save("greeting", "hello"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	e, ok := s.Recall("greeting")
	if !ok {
		t.Fatal("Recall() did not find saved key")
	}
	if e.Value != "hello" {
		t.Errorf("Value = %q, want hello", e.Value)
	}
	if e.Size != 5 {
		t.Errorf("Size = %d, want 5", e.Size)
	}

	if _, ok := s.Recall("missing"); ok {
		t.Error("Recall() found a key that was never saved")
	}
}

func TestSaveRequiresKey(t *testing.T) {
	s := NewStore()
	if err := s.Save("", "value"); err == nil {
		t.Error("Save() with empty key should fail")
	}
}

func TestSaveOverwrites(t *testing.T) {
	s := NewStore()
	s.Save("k", "first")
	s.Save("k", "second")

	e, _ := s.Recall("k")
	if e.Value != "second" {
		t.Errorf("Value = %q, want second", e.Value)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestListSorted(t *testing.T) {
	s := NewStore()
	s.Save("b", "2")
	s.Save("a", "1")
	s.Save("c", "3")

	entries := s.List()
	if len(entries) != 3 {
		t.Fatalf("List() returned %d entries, want 3", len(entries))
	}
	for i, want := range []string{"a", "b", "c"} {
		if entries[i].Key != want {
			t.Errorf("entries[%d].Key = %q, want %q", i, entries[i].Key, want)
		}
	}
}

func TestClear(t *testing.T) {
	s := NewStore()
	s.Save("a", "1")
	s.Save("b", "2")

	if n := s.Clear("a"); n != 1 {
		t.Errorf("Clear(a) = %d, want 1", n)
	}
	if n := s.Clear("a"); n != 0 {
		t.Errorf("Clear(a) again = %d, want 0", n)
	}
	if n := s.Clear(""); n != 1 {
		t.Errorf("Clear(all) = %d, want 1", n)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d after clear all, want 0", s.Len())
	}
}
