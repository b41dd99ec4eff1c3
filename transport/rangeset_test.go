package transport

import "testing"

func TestRangeSetAddMerge(t *testing.T) {
	var s rangeSet
	s.add(5, 10)
	s.add(12, 15) // adjacent-but-not-touching at this point
	s.add(11, 11) // bridges the gap, should merge into one range
	if s.count() != 1 {
		t.Fatalf("count = %d, want 1 after bridging gap: %v", s.count(), s)
	}
	if !s.contains(5, 15) {
		t.Fatalf("expected [5,15] to be covered: %v", s)
	}
}

func TestRangeSetAddDisjoint(t *testing.T) {
	var s rangeSet
	s.add(10, 20)
	s.add(30, 40)
	if s.count() != 2 {
		t.Fatalf("count = %d, want 2: %v", s.count(), s)
	}
	if s.containsAny(21, 29) {
		t.Fatalf("gap [21,29] should not be covered: %v", s)
	}
}

func TestRangeSetRemove(t *testing.T) {
	var s rangeSet
	s.add(1, 100)
	s.remove(40, 60)
	if s.count() != 2 {
		t.Fatalf("count = %d, want 2 after splitting: %v", s.count(), s)
	}
	if s.containsAny(40, 60) {
		t.Fatalf("removed range still reported covered: %v", s)
	}
	if !s.contains(1, 39) || !s.contains(61, 100) {
		t.Fatalf("surrounding ranges not preserved: %v", s)
	}
}

func TestRangeSetRemoveUntil(t *testing.T) {
	var s rangeSet
	s.add(1, 10)
	s.add(20, 30)
	s.removeUntil(25)
	if got, ok := s.min(); !ok || got != 26 {
		t.Fatalf("min = %d, %v; want 26, true", got, ok)
	}
}

func TestRangeSetMinMaxSpan(t *testing.T) {
	var s rangeSet
	if _, ok := s.min(); ok {
		t.Fatalf("min on empty set should report false")
	}
	s.add(5, 9)
	s.add(20, 22)
	min, _ := s.min()
	max, _ := s.max()
	if min != 5 || max != 22 {
		t.Fatalf("min/max = %d/%d, want 5/22", min, max)
	}
	if span := s.span(); span != 8 {
		t.Fatalf("span = %d, want 8", span)
	}
}
