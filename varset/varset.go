package varset

import "sort"

// StdID names a well-known standard variable for O(1) lookup within
// a Set, shortcutting the O(log n) lookup by Spec.
type StdID int

// Recognized standard variables.
const (
	StdP StdID = iota
	StdN
	StdNg
	StdI
	StdCs
	StdCl
	StdOs
	StdOi
	StdS
	StdT
	StdU
	StdV
	StdDu
	StdDv
	StdDPdu
	StdDPdv
	StdE
	StdTime
	StdNcomp
	StdAlpha
	StdCi
	StdZ
	StdSt
	numStd
)

var stdSpecs = [numStd]Spec{
	StdP: P, StdN: N, StdNg: Ng, StdI: I, StdCs: Cs, StdCl: Cl,
	StdOs: Os, StdOi: Oi, StdS: S, StdT: Tvar, StdU: U, StdV: V,
	StdDu: Du, StdDv: Dv, StdDPdu: DPdu, StdDPdv: DPdv, StdE: E,
	StdTime: Time, StdNcomp: Ncomp, StdAlpha: Alpha, StdCi: Ci,
	StdZ: Z, StdSt: St,
}

// Set is an immutable, sorted sequence of Spec values with a side
// table giving O(1) lookup for the closed set of standard variables.
// The zero value is an empty Set.
type Set struct {
	specs []Spec
	std   [numStd]int
}

// New builds a Set from an unsorted slice of Specs.
// It panics if the slice contains duplicate Specs (per Spec equality
// of (type, arraySize, name)), since a VarSet's invariant is that
// every triple is unique.
func New(specs []Spec) Set {
	s := append([]Spec(nil), specs...)
	sort.Slice(s, func(i, j int) bool { return s[i].Less(s[j]) })
	for i := 1; i < len(s); i++ {
		if s[i-1] == s[i] {
			panic("varset: duplicate Spec " + s[i].String())
		}
	}
	var set Set
	set.specs = s
	for i := range set.std {
		set.std[i] = -1
	}
	for i, sp := range s {
		for id, std := range stdSpecs {
			if sp == std {
				set.std[id] = i
				break
			}
		}
	}
	return set
}

// Len returns the number of Specs in the set.
func (s *Set) Len() int { return len(s.specs) }

// At returns the i'th Spec in sorted order.
func (s *Set) At(i int) Spec { return s.specs[i] }

// All returns the set's Specs in sorted order. The caller must not
// mutate the returned slice.
func (s *Set) All() []Spec { return s.specs }

// Find returns the index of spec within the set, or -1 if absent.
// This is an O(log n) binary search.
func (s *Set) Find(spec Spec) int {
	lo, hi := 0, len(s.specs)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case s.specs[mid] == spec:
			return mid
		case s.specs[mid].Less(spec):
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return -1
}

// FindStd returns the index of the given standard variable within
// the set, or -1 if absent. This is O(1).
func (s *Set) FindStd(id StdID) int { return s.std[id] }

// Contains reports whether spec is a member of the set.
func (s *Set) Contains(spec Spec) bool { return s.Find(spec) >= 0 }

// ContainsStd reports whether the given standard variable is a
// member of the set.
func (s *Set) ContainsStd(id StdID) bool { return s.std[id] >= 0 }
