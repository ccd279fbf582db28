package varset

import "testing"

func TestSpecScalarSize(t *testing.T) {
	cases := []struct {
		spec Spec
		want int
	}{
		{P, 3},
		{simple(Color, "Cs"), 3},
		{Spec{Type: Matrix, ArraySize: 1, Name: "m"}, 16},
		{Spec{Type: Float, ArraySize: 4, Name: "w"}, 4},
		{simple(Hpoint, "h"), 4},
	}
	for _, c := range cases {
		if got := c.spec.ScalarSize(); got != c.want {
			t.Errorf("%v.ScalarSize() = %d, want %d", c.spec, got, c.want)
		}
	}
}

func TestSetLookup(t *testing.T) {
	s := New([]Spec{Cs, P, N, {Type: Float, ArraySize: 1, Name: "custom"}})
	if s.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", s.Len())
	}
	for i := 1; i < s.Len(); i++ {
		if !s.At(i - 1).Less(s.At(i)) {
			t.Fatalf("set not sorted at %d: %v >= %v", i, s.At(i-1), s.At(i))
		}
	}
	if i := s.FindStd(StdP); i < 0 || s.At(i) != P {
		t.Fatalf("FindStd(StdP) = %d", i)
	}
	if !s.ContainsStd(StdN) {
		t.Fatal("expected N to be present")
	}
	if s.ContainsStd(StdOi) {
		t.Fatal("did not expect Oi to be present")
	}
	if i := s.Find(Cs); i < 0 {
		t.Fatal("expected to find Cs by Spec")
	}
	if s.Find(Oi) >= 0 {
		t.Fatal("did not expect to find Oi")
	}
}

func TestSetDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate spec")
		}
	}()
	New([]Spec{P, P})
}
